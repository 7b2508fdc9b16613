package handlers

import (
	"archive/zip"
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestImagesServe(t *testing.T) {
	sess := newTestSession(t)
	h := NewImagesHandler(sess)
	ref, _ := sess.Images().Put([]byte("image bytes"))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/images/"+string(ref), nil)
	req = requestWithChiParams(req, map[string]string{"ref": string(ref)})
	rec := httptest.NewRecorder()
	h.Serve(rec, req)

	assertStatusCode(t, rec, http.StatusOK)
	if rec.Body.String() != "image bytes" {
		t.Error("expected raw image bytes in response")
	}
	if cc := rec.Header().Get("Cache-Control"); cc == "" {
		t.Error("expected immutable cache headers on content-addressed image")
	}
}

func TestImagesServe_InvalidRef(t *testing.T) {
	h := NewImagesHandler(newTestSession(t))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/images/../etc/passwd", nil)
	req = requestWithChiParams(req, map[string]string{"ref": "../etc/passwd"})
	rec := httptest.NewRecorder()
	h.Serve(rec, req)

	assertStatusCode(t, rec, http.StatusBadRequest)
}

func TestImagesServe_NotFound(t *testing.T) {
	h := NewImagesHandler(newTestSession(t))

	missing := "0000000000000000000000000000000000000000000000000000000000000000.jpg"
	req := httptest.NewRequest(http.MethodGet, "/api/v1/images/"+missing, nil)
	req = requestWithChiParams(req, map[string]string{"ref": missing})
	rec := httptest.NewRecorder()
	h.Serve(rec, req)

	assertStatusCode(t, rec, http.StatusNotFound)
}

func TestDownloadTarget(t *testing.T) {
	sess := newTestSession(t)
	h := NewImagesHandler(sess)
	orig, _ := sess.Images().Put([]byte("original"))
	processed, _ := sess.Images().Put([]byte("swapped result"))
	item := sess.AddTarget(orig)
	sess.MarkCompleted(item.ID, processed)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/targets/"+item.ID+"/download", nil)
	req = requestWithChiParams(req, map[string]string{"id": item.ID})
	rec := httptest.NewRecorder()
	h.DownloadTarget(rec, req)

	assertStatusCode(t, rec, http.StatusOK)
	if rec.Body.String() != "swapped result" {
		t.Error("expected processed image bytes")
	}
	if cd := rec.Header().Get("Content-Disposition"); cd == "" {
		t.Error("expected attachment disposition")
	}
}

func TestDownloadTarget_NotCompleted(t *testing.T) {
	sess := newTestSession(t)
	h := NewImagesHandler(sess)
	orig, _ := sess.Images().Put([]byte("original"))
	item := sess.AddTarget(orig)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/targets/"+item.ID+"/download", nil)
	req = requestWithChiParams(req, map[string]string{"id": item.ID})
	rec := httptest.NewRecorder()
	h.DownloadTarget(rec, req)

	assertStatusCode(t, rec, http.StatusConflict)
}

func TestDownloadArchive(t *testing.T) {
	sess := newTestSession(t)
	h := NewImagesHandler(sess)
	for _, payload := range []string{"result-1", "result-2"} {
		orig, _ := sess.Images().Put([]byte("orig-" + payload))
		processed, _ := sess.Images().Put([]byte(payload))
		item := sess.AddTarget(orig)
		sess.MarkCompleted(item.ID, processed)
	}
	// A failed item must not end up in the archive.
	orig, _ := sess.Images().Put([]byte("bad"))
	failed := sess.AddTarget(orig)
	sess.MarkFailed(failed.ID, "engine refused")

	rec := httptest.NewRecorder()
	h.DownloadArchive(rec, httptest.NewRequest(http.MethodGet, "/api/v1/download/archive", nil))

	assertStatusCode(t, rec, http.StatusOK)
	zr, err := zip.NewReader(bytes.NewReader(rec.Body.Bytes()), int64(rec.Body.Len()))
	if err != nil {
		t.Fatalf("expected valid zip archive: %v", err)
	}
	if len(zr.File) != 2 {
		t.Errorf("expected 2 files in archive, got %d", len(zr.File))
	}
}

func TestDownloadArchive_NothingCompleted(t *testing.T) {
	h := NewImagesHandler(newTestSession(t))

	rec := httptest.NewRecorder()
	h.DownloadArchive(rec, httptest.NewRequest(http.MethodGet, "/api/v1/download/archive", nil))

	assertStatusCode(t, rec, http.StatusConflict)
}
