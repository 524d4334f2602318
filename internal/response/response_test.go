package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestRequestIDMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.GET("/", func(c *gin.Context) { Fail(c, http.StatusNotFound, ErrSessionNotFound) })

	tests := []struct {
		name   string
		header string
		keep   bool
	}{
		{"client id kept", "abc-123", true},
		{"missing", "", false},
		{"spaces rejected", "a b", false},
		{"too long", strings.Repeat("x", 65), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("X-Request-ID", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			got := w.Header().Get("X-Request-ID")
			if tt.keep && got != tt.header {
				t.Fatalf("X-Request-ID = %q, want %q", got, tt.header)
			}
			if !tt.keep && (got == "" || got == tt.header) {
				t.Fatalf("X-Request-ID = %q, want a generated ID", got)
			}

			var body Response
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Metadata.RequestID != got {
				t.Errorf("metadata request_id = %q, header %q", body.Metadata.RequestID, got)
			}
			if body.Error == nil || body.Error.Code != ErrSessionNotFound || body.Error.Message != GetMessage(ErrSessionNotFound) {
				t.Errorf("error = %+v", body.Error)
			}
		})
	}
}

func TestNewPagination(t *testing.T) {
	tests := []struct {
		page, perPage int
		total         int64
		wantPages     int
	}{
		{1, 20, 0, 0},
		{1, 20, 20, 1},
		{2, 20, 21, 2},
		{1, 0, 5, 0},
	}
	for _, tt := range tests {
		p := NewPagination(tt.page, tt.perPage, tt.total)
		if p.TotalPages != tt.wantPages || p.TotalItems != int(tt.total) {
			t.Errorf("NewPagination(%d, %d, %d) = %+v, want %d pages", tt.page, tt.perPage, tt.total, p, tt.wantPages)
		}
	}
}

func TestEveryCodeHasMessage(t *testing.T) {
	codes := []ErrCode{
		ErrTokenRequired, ErrTokenInvalid, ErrTokenExpired, ErrValidation, ErrInvalidID,
		ErrInvalidPayload, ErrInvalidConfig, ErrOutOfRange, ErrNotFound, ErrSessionNotFound,
		ErrTooManySessions, ErrNoQuestions, ErrInvalidSpecialization, ErrInsufficientQuestions,
		ErrProviderUnavailable, ErrQuestionGenerationError, ErrRateLimitExceeded, ErrInternal,
	}
	for _, code := range codes {
		if msg := GetMessage(code); msg == "" || msg == string(code) {
			t.Errorf("code %s has no message", code)
		}
	}
}
