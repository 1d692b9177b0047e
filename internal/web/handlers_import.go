package web

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/JonMunkholm/stateport/internal/core"
)

// multipartOverhead is the allowance for form boundaries and part headers on
// top of the file size limit.
const multipartOverhead = 1 << 20

// handleImport reads one workbook from the "file" form field and runs it
// through the import pipeline.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	ctx, principal := requestContext(r)
	req := &core.ImportRequest{
		Principal: principal,
		Origin:    r.Header.Get("Origin"),
		Referer:   r.Referer(),
		Channel:   core.ChannelConsole,
	}

	limit := s.cfg.Import.MaxFileSize + multipartOverhead
	if r.ContentLength > limit {
		v := core.Reject(core.StageShape, core.KindMalformedInput, core.ReasonFileTooLarge,
			fmt.Sprintf("request body of %d bytes over %d", r.ContentLength, limit))
		s.respondError(w, r, s.service.RejectRequest(ctx, req, v))
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			v := core.Reject(core.StageShape, core.KindMalformedInput, core.ReasonFileTooLarge,
				fmt.Sprintf("request body over %d bytes", tooLarge.Limit))
			s.respondError(w, r, s.service.RejectRequest(ctx, req, v))
			return
		}
		v := core.Reject(core.StageShape, core.KindMalformedInput, core.ReasonNoFile, "invalid multipart form")
		s.respondError(w, r, s.service.RejectRequest(ctx, req, v))
		return
	}
	defer r.MultipartForm.RemoveAll()

	// A missing file is reported by the pipeline after the access check.
	if file, header, err := r.FormFile("file"); err == nil {
		data, err := io.ReadAll(file)
		file.Close()
		if err != nil {
			s.respondError(w, r, fmt.Errorf("read upload: %w", err))
			return
		}
		req.Data = data
		req.Filename = header.Filename
		req.MIMEType = header.Header.Get("Content-Type")
	}

	result, err := s.service.Import(ctx, req)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	if isHTMX(r) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		ImportSummary(result).Render(r.Context(), w)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleImportStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.service.ImportStatus())
}
