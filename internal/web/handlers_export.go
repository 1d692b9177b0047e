package web

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/JonMunkholm/stateport/internal/core"
)

// handleExport streams a snapshot workbook of every entity table.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	ctx, principal := requestContext(r)

	snap, err := s.service.Export(ctx, principal)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", core.MIMEForExtension(".xlsx"))
	w.Header().Set("Content-Disposition", attachment(snap.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(snap.Data)))
	w.WriteHeader(http.StatusOK)
	w.Write(snap.Data)
}

// attachment builds a Content-Disposition header carrying both an ASCII
// filename and the RFC 5987 encoded UTF-8 name.
func attachment(name string) string {
	encoded := strings.ReplaceAll(url.QueryEscape(name), "+", "%20")
	return fmt.Sprintf(`attachment; filename="%s"; filename*=UTF-8''%s`, asciiFilename(name), encoded)
}

// asciiFilename replaces anything outside printable ASCII, plus quotes and
// backslashes, with an underscore.
func asciiFilename(name string) string {
	return strings.Map(func(r rune) rune {
		if r < 0x20 || r > 0x7e || r == '"' || r == '\\' {
			return '_'
		}
		return r
	}, name)
}
