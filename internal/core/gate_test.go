package core

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/stateport/internal/config"
	"github.com/JonMunkholm/stateport/internal/workbook"
)

const xlsxMIME = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var (
	zipMagic = []byte("PK\x03\x04\x14\x00\x06\x00")
	oleMagic = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}
)

func testGate() *Gate {
	return NewGate(config.ImportConfig{
		MaxFileSize:     1024,
		AllowedOrigins:  []string{"https://admin.example.com"},
		AllowDevOrigins: true,
	})
}

func admin() Principal {
	return Principal{ID: "1", Username: "root", Role: RoleAdmin}
}

func withPayload(magic []byte, n int) []byte {
	return append(append([]byte{}, magic...), bytes.Repeat([]byte{'x'}, n)...)
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name   string
		data   []byte
		want   workbook.Format
		wantOK bool
	}{
		{"ole2", withPayload(oleMagic, 10), workbook.FormatXLS, true},
		{"zip", withPayload(zipMagic, 10), workbook.FormatXLSX, true},
		{"empty zip", []byte("PK\x05\x06\x00\x00\x00\x00"), workbook.FormatXLSX, true},
		{"pdf", []byte("%PDF-1.7\n"), "", false},
		{"short", []byte("PK"), "", false},
		{"empty", nil, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, ok := DetectFormat(tt.data)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, p.Format)
		})
	}
}

func TestDecodeFilename(t *testing.T) {
	// UTF-8 bytes read back as Latin-1, one rune per byte.
	var mangled strings.Builder
	for _, b := range []byte("数据备份.xlsx") {
		mangled.WriteRune(rune(b))
	}

	tests := []struct {
		name   string
		raw    string
		want   string
		wantOK bool
	}{
		{"ascii", "backup 2024-01-01.xlsx", "backup 2024-01-01.xlsx", true},
		{"cjk", "数据备份.xlsx", "数据备份.xlsx", true},
		{"brackets", "导出【1】(final).xls", "导出【1】(final).xls", true},
		{"latin1 repaired", mangled.String(), "数据备份.xlsx", true},
		{"traversal", "../../etc/passwd.xlsx", "", false},
		{"separator", "dir/file.xlsx", "", false},
		{"shell", "a;rm -rf ~.xlsx", "", false},
		{"backtick", "`id`.xlsx", "", false},
		{"hidden", ".hidden.xlsx", "", false},
		{"empty", "", "", false},
		{"too long", strings.Repeat("a", 300) + ".xlsx", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := DecodeFilename(tt.raw)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestCheckAccess(t *testing.T) {
	g := testGate()

	tests := []struct {
		name   string
		req    ImportRequest
		reason string
	}{
		{"admin from console", ImportRequest{Principal: admin(), Origin: "https://admin.example.com"}, ""},
		{"console path", ImportRequest{Principal: admin(), Referer: "https://admin.example.com/admin/import"}, ""},
		{"localhost", ImportRequest{Principal: admin(), Origin: "http://localhost:5173"}, ""},
		{"cli has no origin", ImportRequest{Principal: admin(), Channel: ChannelCLI}, ""},
		{"not admin", ImportRequest{Principal: Principal{ID: "2", Role: "user"}, Origin: "https://admin.example.com"}, ReasonNotAdmin},
		{"anonymous", ImportRequest{Origin: "https://admin.example.com"}, ReasonNotAdmin},
		{"lookalike host", ImportRequest{Principal: admin(), Origin: "https://admin.example.com.evil.io"}, ReasonOriginNotAllowed},
		{"other site", ImportRequest{Principal: admin(), Referer: "https://evil.io/admin"}, ReasonOriginNotAllowed},
		{"no origin", ImportRequest{Principal: admin()}, ReasonOriginNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := g.CheckAccess(&tt.req)
			if tt.reason == "" {
				assert.True(t, v.Accepted, v.Reason)
				return
			}
			assert.False(t, v.Accepted)
			assert.Equal(t, KindAccessDenied, v.Kind)
			assert.Equal(t, tt.reason, v.Reason)
		})
	}
}

func TestCheckAccess_DevOriginsDisabled(t *testing.T) {
	g := NewGate(config.ImportConfig{MaxFileSize: 1024})
	v := g.CheckAccess(&ImportRequest{Principal: admin(), Origin: "http://127.0.0.1:8080"})
	assert.False(t, v.Accepted)
	assert.Equal(t, ReasonOriginNotAllowed, v.Reason)
}

func TestCheckShape(t *testing.T) {
	g := testGate()

	tests := []struct {
		name     string
		filename string
		mime     string
		data     []byte
		reason   string
	}{
		{"xlsx", "backup.xlsx", xlsxMIME, withPayload(zipMagic, 100), ""},
		{"xls", "backup.xls", "application/vnd.ms-excel", withPayload(oleMagic, 100), ""},
		{"octet stream with extension", "backup.xlsx", "application/octet-stream", withPayload(zipMagic, 100), ""},
		{"mime parameters", "backup.xlsx", xlsxMIME + "; charset=binary", withPayload(zipMagic, 100), ""},
		{"no file", "", "", nil, ReasonNoFile},
		{"csv extension", "backup.csv", "text/csv", withPayload(zipMagic, 10), ReasonBadExtension},
		{"no extension", "backup", xlsxMIME, withPayload(zipMagic, 10), ReasonBadExtension},
		{"text mime", "backup.xlsx", "text/plain", withPayload(zipMagic, 10), ReasonBadMIME},
		{"missing mime", "backup.xlsx", "", withPayload(zipMagic, 10), ReasonBadMIME},
		{"empty", "backup.xlsx", xlsxMIME, []byte{}, ReasonEmptyFile},
		{"too large", "backup.xlsx", xlsxMIME, withPayload(zipMagic, 2048), ReasonFileTooLarge},
		{"traversal name", "../backup.xlsx", xlsxMIME, withPayload(zipMagic, 10), ReasonBadFilename},
		{"bad magic weak mime", "backup.xlsx", "application/octet-stream", []byte("MZ\x90\x00 executable"), ReasonSignatureMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, v := g.CheckShape(&ImportRequest{Filename: tt.filename, MIMEType: tt.mime, Data: tt.data})
			if tt.reason == "" {
				assert.True(t, v.Accepted, v.Reason)
				return
			}
			assert.False(t, v.Accepted)
			assert.Equal(t, KindMalformedInput, v.Kind)
			assert.Equal(t, tt.reason, v.Reason)
		})
	}
}

func TestCheckShape_SignatureFallback(t *testing.T) {
	g := testGate()

	report, v := g.CheckShape(&ImportRequest{Filename: "backup.xlsx", MIMEType: xlsxMIME, Data: []byte("garbled header bytes")})
	require.True(t, v.Accepted)
	assert.Equal(t, workbook.FormatXLSX, report.Format)
	assert.Len(t, v.Warnings, 1)
}

func TestCheckShape_DetectedFormatWins(t *testing.T) {
	g := testGate()

	report, v := g.CheckShape(&ImportRequest{Filename: "backup.xlsx", MIMEType: xlsxMIME, Data: withPayload(oleMagic, 10)})
	require.True(t, v.Accepted)
	assert.Equal(t, workbook.FormatXLS, report.Format)
	require.Len(t, v.Warnings, 1)
	assert.Contains(t, v.Warnings[0], "xls")
}

func TestCheckShape_EvidenceIsHex(t *testing.T) {
	g := testGate()
	_, v := g.CheckShape(&ImportRequest{Filename: "b.xlsx", MIMEType: "application/octet-stream", Data: []byte("ABCDEFGHIJ")})
	require.False(t, v.Accepted)
	assert.Equal(t, "leading bytes 41 42 43 44 45 46 47 48", v.Evidence)
}

func TestMIMEForExtension(t *testing.T) {
	assert.Equal(t, xlsxMIME, MIMEForExtension(".XLSX"))
	assert.Equal(t, "application/vnd.ms-excel", MIMEForExtension(".xls"))
	assert.Equal(t, "", MIMEForExtension(".csv"))
}

func TestVerdictErr(t *testing.T) {
	assert.NoError(t, Accept(StageShape).Err())

	err := Reject(StageScan, KindSecurityRejection, ReasonMaliciousContent, "1 match(es)").Err()
	require.Error(t, err)
	assert.Equal(t, KindSecurityRejection, KindOf(err))
	assert.Equal(t, "scan: malicious content detected", err.Error())
}
