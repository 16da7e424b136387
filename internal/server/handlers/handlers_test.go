package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/maruel/memoir/internal/convert"
	"github.com/maruel/memoir/internal/server/dto"
	"github.com/maruel/memoir/internal/storage"
)

func TestHealthHandler(t *testing.T) {
	for _, version := range []string{"1.0.0", "dev", ""} {
		t.Run(version, func(t *testing.T) {
			resp, err := NewHealthHandler(nil, version).Health(t.Context(), &dto.HealthRequest{})
			if err != nil {
				t.Fatal(err)
			}
			if resp.Status != "ok" || resp.Version != version {
				t.Errorf("Health() = %+v", resp)
			}
		})
	}
}

func TestStorageError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   dto.ErrorCode
	}{
		{"not found", fmt.Errorf("note 3: %w", storage.ErrNotFound), http.StatusNotFound, dto.ErrorCodeNotFound},
		{"forbidden", fmt.Errorf("note 3: %w", storage.ErrForbidden), http.StatusForbidden, dto.ErrorCodeForbidden},
		{"exists", storage.ErrUserExists, http.StatusConflict, dto.ErrorCodeConflict},
		{"quota", storage.ErrUserQuotaExceeded, http.StatusForbidden, dto.ErrorCodeQuotaExceeded},
		{"credentials", storage.ErrInvalidCredentials, http.StatusUnauthorized, dto.ErrorCodeUnauthorized},
		{"validation", &storage.ValidationError{Field: "title", Err: errors.New("title is required")}, http.StatusBadRequest, dto.ErrorCodeValidationFailed},
		{"other", errors.New("disk full"), http.StatusInternalServerError, dto.ErrorCodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ews dto.ErrorWithStatus
			if !errors.As(storageError(tt.err, "note", "save note"), &ews) {
				t.Fatal("not an ErrorWithStatus")
			}
			if ews.StatusCode() != tt.status || ews.Code() != tt.code {
				t.Errorf("got %d %s, want %d %s", ews.StatusCode(), ews.Code(), tt.status, tt.code)
			}
		})
	}
}

func TestWriteErrorResponse(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		code    dto.ErrorCode
		message string
	}{
		{"wrapped cause hidden", dto.InternalWithError("Failed to save note", errors.New("open /data/db/Note: permission denied")), http.StatusInternalServerError, dto.ErrorCodeInternal, "Failed to save note"},
		{"api error", dto.NotFound("note"), http.StatusNotFound, dto.ErrorCodeNotFound, "note not found"},
		{"wrapped api error", fmt.Errorf("import: %w", dto.UnsupportedFormat("nope")), http.StatusUnsupportedMediaType, dto.ErrorCodeUnsupportedFormat, "nope"},
		{"plain error", errors.New("secret"), http.StatusInternalServerError, dto.ErrorCodeInternal, "internal error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			writeErrorResponse(w, tt.err)
			if w.Code != tt.status {
				t.Errorf("status = %d, want %d", w.Code, tt.status)
			}
			var resp dto.ErrorResponse
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatal(err)
			}
			if resp.Error.Code != tt.code || resp.Error.Message != tt.message {
				t.Errorf("error = %+v, want %s %q", resp.Error, tt.code, tt.message)
			}
			if strings.Contains(w.Body.String(), "permission denied") {
				t.Errorf("body leaks the cause: %s", w.Body.String())
			}
		})
	}
}

func TestConversionError(t *testing.T) {
	reg := convert.Default()
	_, unsupported := reg.Convert(t.Context(), "a.pdf", nil)
	_, failed := reg.Convert(t.Context(), "a.docx", strings.NewReader("nope"))

	tests := []struct {
		name   string
		err    error
		lang   string
		status int
		msg    string
	}{
		{"unsupported en", unsupported, "en-US", http.StatusUnsupportedMediaType, convert.MsgUnsupportedFormat},
		{"unsupported ru", unsupported, "ru", http.StatusUnsupportedMediaType, "Формат файла не поддерживается"},
		{"failed ru", failed, "ru-RU,en;q=0.5", http.StatusUnprocessableEntity, "Ошибка преобразования файла"},
		{"failed fallback", failed, "ja", http.StatusUnprocessableEntity, convert.MsgConversionFailed},
		{"other", errors.New("boom"), "", http.StatusInternalServerError, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := conversionError(tt.err, tt.lang)
			if got.StatusCode() != tt.status {
				t.Errorf("StatusCode() = %d, want %d", got.StatusCode(), tt.status)
			}
			if tt.msg != "" && got.Message() != tt.msg {
				t.Errorf("Message() = %q, want %q", got.Message(), tt.msg)
			}
		})
	}
}

func TestNewConfig(t *testing.T) {
	sc := &storage.ServerConfig{JWTSecret: []byte("s"), SessionTTLHours: 2, Quotas: storage.DefaultServerQuotas()}
	cfg := NewConfig(sc, "v1")
	if cfg.SessionTTL != 2*time.Hour || cfg.Version != "v1" || cfg.Quotas.MaxUploadBytes != sc.Quotas.MaxUploadBytes {
		t.Errorf("NewConfig() = %+v", cfg)
	}
}
