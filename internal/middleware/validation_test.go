package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"interview/internal/models"
)

type mockRequest struct {
	Value string `json:"value"`
}

func (m *mockRequest) Validate() error {
	switch m.Value {
	case "error_response":
		return &models.ErrorPayload{Code: "invalid", Message: "invalid"}
	case "generic_error":
		return errors.New("failed")
	default:
		return nil
	}
}

func TestValidateRequestSuccess(t *testing.T) {
	called := false
	handler := ValidateRequest[*mockRequest]()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		req, ok := GetValidatedRequest[*mockRequest](r)
		if !ok || req.Value != "ok" {
			t.Fatalf("expected value ok, got %#v", req)
		}
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/test", bytes.NewBufferString(`{"value":"ok"}`)))

	if !called {
		t.Fatal("expected handler to be called")
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
}

func TestValidateRequestEmptyBody(t *testing.T) {
	called := false
	handler := ValidateRequest[*mockRequest]()(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true }))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/test", nil))

	if !called {
		t.Fatalf("empty body should reach the handler, got %d", rec.Code)
	}
}

func TestValidateRequestInvalidJSON(t *testing.T) {
	handler := ValidateRequest[*mockRequest]()(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/test", bytes.NewBufferString(`{`)))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid json, got %d", rec.Code)
	}
}

func TestValidateRequestValidationErrors(t *testing.T) {
	cases := map[string]string{
		"error_response": "invalid",
		"generic_error":  "validation_error",
	}
	for value, wantCode := range cases {
		t.Run(value, func(t *testing.T) {
			handler := ValidateRequest[*mockRequest]()(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))

			rec := httptest.NewRecorder()
			body := `{"value":"` + value + `"}`
			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(body)))

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400 for validation error, got %d", rec.Code)
			}
			var payload models.ErrorPayload
			if err := json.NewDecoder(rec.Body).Decode(&payload); err != nil {
				t.Fatalf("decode error body: %v", err)
			}
			if payload.Code != wantCode {
				t.Fatalf("expected code %s, got %s", wantCode, payload.Code)
			}
		})
	}
}

func TestStartInterviewRequestLimit(t *testing.T) {
	handler := ValidateRequest[*models.StartInterviewRequest]()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req, _ := GetValidatedRequest[*models.StartInterviewRequest](r)
		if req.ResumeText != "Go developer" {
			t.Fatalf("resume should be trimmed, got %q", req.ResumeText)
		}
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/start", strings.NewReader(`{"resumeText":"  Go developer "}`)))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	long, _ := json.Marshal(models.StartInterviewRequest{ResumeText: strings.Repeat("a", models.MaxResumeRunes+1)})
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/start", bytes.NewReader(long)))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for oversized resume, got %d", rec.Code)
	}
}
