package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/face-studio/internal/ai"
	"github.com/kozaktomas/face-studio/internal/imagestore"
	"github.com/kozaktomas/face-studio/internal/session"
	"github.com/kozaktomas/face-studio/internal/store"
)

// memStore is an in-memory store.Store for handler tests.
type memStore struct {
	mu     sync.Mutex
	record *store.Record
}

func (s *memStore) Load(ctx context.Context) (*store.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.record, nil
}

func (s *memStore) Update(ctx context.Context, p store.Partial) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record = store.Merge(s.record, p)
	return nil
}

// stubProvider is a canned ai.Provider for handler tests.
type stubProvider struct {
	analyzeErr error
	analysis   *ai.FaceAnalysis
}

func (p *stubProvider) Name() string { return "stub" }

func (p *stubProvider) AnalyzeFace(ctx context.Context, imageData []byte) (*ai.FaceAnalysis, error) {
	if p.analyzeErr != nil {
		return nil, p.analyzeErr
	}
	if p.analysis != nil {
		return p.analysis, nil
	}
	return &ai.FaceAnalysis{SkinTone: "medium", Confidence: 0.9}, nil
}

func (p *stubProvider) SwapFace(ctx context.Context, sources [][]byte, target []byte, settings ai.SwapSettings) ([]byte, error) {
	return append([]byte("swapped:"), target...), nil
}

func (p *stubProvider) GetUsage() *ai.Usage { return &ai.Usage{} }
func (p *stubProvider) ResetUsage()         {}

// newTestSession creates a restored session manager backed by a temp image
// store.
func newTestSession(t *testing.T) *session.Manager {
	t.Helper()
	images, err := imagestore.New(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create image store: %v", err)
	}
	sess := session.NewManager(&memStore{}, images, session.NewAnalysisCache())
	if err := sess.Restore(context.Background()); err != nil {
		t.Fatalf("Restore failed: %v", err)
	}
	return sess
}

// multipartRequest builds a multipart POST with one part per payload under
// the "files" field.
func multipartRequest(t *testing.T, path string, payloads ...[]byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for i, data := range payloads {
		part, err := mw.CreateFormFile("files", "upload-"+string(rune('a'+i))+".jpg")
		if err != nil {
			t.Fatalf("failed to create form file: %v", err)
		}
		if _, err := part.Write(data); err != nil {
			t.Fatalf("failed to write form file: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("failed to close multipart writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

// requestWithChiParams creates a request with chi URL parameters
func requestWithChiParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// parseJSONResponse parses a JSON response body into the target type
func parseJSONResponse(t *testing.T, recorder *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), target); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nBody: %s", err, recorder.Body.String())
	}
}

// assertStatusCode checks if the response has the expected status code
func assertStatusCode(t *testing.T, recorder *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if recorder.Code != expected {
		t.Errorf("expected status %d, got %d\nBody: %s", expected, recorder.Code, recorder.Body.String())
	}
}

// assertJSONError checks if the response is a JSON error with the expected message
func assertJSONError(t *testing.T, recorder *httptest.ResponseRecorder, expectedMessage string) {
	t.Helper()
	var result map[string]string
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse error response: %v\nBody: %s", err, recorder.Body.String())
	}
	if result["error"] != expectedMessage {
		t.Errorf("expected error '%s', got '%s'", expectedMessage, result["error"])
	}
}

var errStub = errors.New("stub failure")
