// Handles conversion of uploaded documents into draft notes.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/maruel/memoir/internal/convert"
	"github.com/maruel/memoir/internal/server/dto"
	"github.com/maruel/memoir/internal/server/reqctx"
)

// ImportHandler turns uploaded files into drafts.
type ImportHandler struct {
	svc *Services
	cfg *Config
}

// NewImportHandler creates a new import handler.
func NewImportHandler(svc *Services, cfg *Config) *ImportHandler {
	return &ImportHandler{svc: svc, cfg: cfg}
}

// ImportNote reads the multipart "file" field and returns an unsaved draft.
//
// The draft is not stored; the client edits it and creates the note.
// Conversion errors are localized from the Accept-Language header.
func (h *ImportHandler) ImportNote(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := reqctx.User(ctx)
	if user == nil {
		writeErrorResponse(w, dto.Unauthorized("Unauthorized"))
		return
	}

	maxMemory := int64(32 << 20)
	if h.cfg != nil && h.cfg.Quotas.MaxUploadBytes > 0 {
		maxMemory = min(maxMemory, h.cfg.Quotas.MaxUploadBytes)
	}
	if err := r.ParseMultipartForm(maxMemory); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeErrorResponse(w, dto.PayloadTooLarge(maxBytesErr.Limit))
			return
		}
		writeErrorResponse(w, dto.BadRequest("Invalid multipart form"))
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeErrorResponse(w, dto.MissingField("file"))
		return
	}
	defer func() { _ = file.Close() }()

	text, err := h.svc.Converter.Convert(ctx, header.Filename, file)
	if err != nil {
		writeErrorResponse(w, conversionError(err, r.Header.Get("Accept-Language")))
		return
	}
	slog.InfoContext(ctx, "Imported file", "user", user.ID, "file", header.Filename, "size", header.Size)
	d := h.svc.Notes.Draft(user.ID, header.Filename, text)
	writeJSON(w, &dto.DraftResponse{Title: d.Title, Text: d.Text, Tags: d.Tags})
}

// conversionError renders err in the language preferred by acceptLanguage.
func conversionError(err error, acceptLanguage string) *dto.APIError {
	var cerr *convert.ConversionError
	if !errors.As(err, &cerr) {
		return dto.InternalWithError("Failed to convert the file", err)
	}
	msg := cerr.Localize(convert.MatchLanguage(acceptLanguage))
	if cerr.Unsupported() {
		return dto.UnsupportedFormat(msg)
	}
	return dto.ConversionFailed(msg)
}
