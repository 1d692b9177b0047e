package core

// gate.go is the first pipeline step. It decides, without parsing anything,
// whether a request may proceed: who is asking, from where, and whether the
// attached bytes plausibly are a spreadsheet of acceptable size and name.

import (
	"fmt"
	"mime"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/JonMunkholm/stateport/internal/config"
	"github.com/JonMunkholm/stateport/internal/workbook"
)

// Known spreadsheet content types. A strong type names a spreadsheet
// explicitly; the generic octet-stream is only accepted next to a matching
// extension.
var (
	strongMIMETypes = map[string]workbook.Format{
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": workbook.FormatXLSX,
		"application/vnd.ms-excel":   workbook.FormatXLS,
		"application/msexcel":        workbook.FormatXLS,
		"application/x-msexcel":      workbook.FormatXLS,
		"application/x-ms-excel":     workbook.FormatXLS,
		"application/x-excel":        workbook.FormatXLS,
		"application/excel":          workbook.FormatXLS,
		"application/x-dos_ms_excel": workbook.FormatXLS,
		"application/xls":            workbook.FormatXLS,
	}
	weakMIMETypes = map[string]bool{
		"application/octet-stream": true,
		"binary/octet-stream":      true,
	}
	extensionFormats = map[string]workbook.Format{
		".xlsx": workbook.FormatXLSX,
		".xls":  workbook.FormatXLS,
	}
)

// MIMEForExtension returns the standard content type for a workbook
// extension, or "" if the extension is not accepted.
func MIMEForExtension(ext string) string {
	switch strings.ToLower(ext) {
	case ".xlsx":
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case ".xls":
		return "application/vnd.ms-excel"
	}
	return ""
}

// Gate performs the access, signature and shape checks.
type Gate struct {
	maxSize         int64
	allowedOrigins  []string
	allowDevOrigins bool
}

// NewGate builds a gate from the import settings.
func NewGate(cfg config.ImportConfig) *Gate {
	return &Gate{
		maxSize:         cfg.MaxFileSize,
		allowedOrigins:  cfg.AllowedOrigins,
		allowDevOrigins: cfg.AllowDevOrigins,
	}
}

// CheckAccess verifies the principal is an admin and, for console requests,
// that the request came from the admin console.
func (g *Gate) CheckAccess(req *ImportRequest) Verdict {
	if !req.Principal.IsAdmin() {
		return Reject(StageAccess, KindAccessDenied, ReasonNotAdmin,
			fmt.Sprintf("principal %q role %q", req.Principal.ID, req.Principal.Role))
	}
	if req.Channel == ChannelCLI {
		return Accept(StageAccess)
	}

	source := req.Origin
	if source == "" {
		source = req.Referer
	}
	if !g.originAllowed(source) {
		return Reject(StageAccess, KindAccessDenied, ReasonOriginNotAllowed, truncate(source, 200))
	}
	return Accept(StageAccess)
}

func (g *Gate) originAllowed(source string) bool {
	if source == "" {
		return false
	}
	for _, prefix := range g.allowedOrigins {
		if hasOriginPrefix(source, prefix) {
			return true
		}
	}
	return g.allowDevOrigins && isLoopbackOrigin(source)
}

// hasOriginPrefix matches prefix on a path boundary so that
// https://admin.example.com does not admit https://admin.example.com.evil.io.
func hasOriginPrefix(source, prefix string) bool {
	prefix = strings.TrimRight(prefix, "/")
	if prefix == "" || !strings.HasPrefix(source, prefix) {
		return false
	}
	rest := source[len(prefix):]
	return rest == "" || rest[0] == '/' || rest[0] == '?' || rest[0] == '#'
}

func isLoopbackOrigin(source string) bool {
	u, err := url.Parse(source)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return false
	}
	switch u.Hostname() {
	case "localhost", "127.0.0.1", "::1":
		return true
	}
	return false
}

// CheckShape validates the attached file: presence, extension, declared
// content type, size, name and magic number, in that order.
func (g *Gate) CheckShape(req *ImportRequest) (ShapeReport, Verdict) {
	report := ShapeReport{Size: len(req.Data)}
	var warnings []string

	if req.Filename == "" && len(req.Data) == 0 {
		return report, Reject(StageShape, KindMalformedInput, ReasonNoFile, "")
	}

	ext := strings.ToLower(filepath.Ext(req.Filename))
	extFormat, extOK := extensionFormats[ext]
	report.Extension = ext
	if !extOK {
		return report, Reject(StageShape, KindMalformedInput, ReasonBadExtension, truncate(ext, 20))
	}

	mimeType := normalizeMIME(req.MIMEType)
	_, strongMIME := strongMIMETypes[mimeType]
	if !strongMIME && !weakMIMETypes[mimeType] {
		return report, Reject(StageShape, KindMalformedInput, ReasonBadMIME, truncate(mimeType, 100))
	}

	if len(req.Data) == 0 {
		return report, Reject(StageShape, KindMalformedInput, ReasonEmptyFile, "")
	}
	if int64(len(req.Data)) > g.maxSize {
		return report, Reject(StageShape, KindMalformedInput, ReasonFileTooLarge,
			fmt.Sprintf("%d bytes exceeds %d", len(req.Data), g.maxSize))
	}

	name, ok := DecodeFilename(req.Filename)
	if !ok {
		return report, Reject(StageShape, KindMalformedInput, ReasonBadFilename, truncate(req.Filename, 100))
	}
	report.Filename = name

	profile, matched := DetectFormat(req.Data)
	switch {
	case matched:
		report.Format = profile.Format
		if profile.Format != extFormat {
			warnings = append(warnings, fmt.Sprintf("file content is %s but extension is %s; reading as %s",
				profile.Format, ext, profile.Format))
		}
	case strongMIME:
		// Both independent signals agree; tolerate a mangled header.
		report.Format = extFormat
		warnings = append(warnings, "file signature not recognised; accepted on extension and content type")
	default:
		return report, Reject(StageShape, KindMalformedInput, ReasonSignatureMismatch,
			fmt.Sprintf("leading bytes % x", head(req.Data, SignatureLength)))
	}

	return report, Accept(StageShape, warnings...)
}

func normalizeMIME(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return ""
	}
	if mt, _, err := mime.ParseMediaType(v); err == nil {
		return strings.ToLower(mt)
	}
	return strings.ToLower(v)
}

func head(b []byte, n int) []byte {
	if len(b) > n {
		return b[:n]
	}
	return b
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
