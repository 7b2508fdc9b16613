package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kozaktomas/face-studio/internal/ai"
)

func TestSettingsGet_Defaults(t *testing.T) {
	h := NewSettingsHandler(newTestSession(t))

	rec := httptest.NewRecorder()
	h.Get(rec, httptest.NewRequest(http.MethodGet, "/api/v1/settings", nil))

	assertStatusCode(t, rec, http.StatusOK)
	var settings ai.SwapSettings
	parseJSONResponse(t, rec, &settings)
	if settings != ai.DefaultSwapSettings() {
		t.Errorf("expected default settings, got %+v", settings)
	}
}

func TestSettingsUpdate(t *testing.T) {
	sess := newTestSession(t)
	h := NewSettingsHandler(sess)

	body := `{"preserve_hair":false,"match_skin_tone":true,"match_lighting":false,"face_scale_lock":"fixed","skin_smoothness":7,"output_quality":80}`
	req := httptest.NewRequest(http.MethodPut, "/api/v1/settings", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Update(rec, req)

	assertStatusCode(t, rec, http.StatusOK)
	got := sess.Settings()
	if got.PreserveHair || got.SkinSmoothness != 7 || got.FaceScaleLock != ai.FaceScaleFixed {
		t.Errorf("expected settings applied, got %+v", got)
	}
}

func TestSettingsUpdate_ClampsOutOfRange(t *testing.T) {
	h := NewSettingsHandler(newTestSession(t))

	body := `{"skin_smoothness":42,"output_quality":-5}`
	req := httptest.NewRequest(http.MethodPut, "/api/v1/settings", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Update(rec, req)

	assertStatusCode(t, rec, http.StatusOK)
	var settings ai.SwapSettings
	parseJSONResponse(t, rec, &settings)
	if settings.SkinSmoothness != 10 || settings.OutputQuality != 0 {
		t.Errorf("expected clamped values, got %+v", settings)
	}
}

func TestSettingsUpdate_InvalidBody(t *testing.T) {
	h := NewSettingsHandler(newTestSession(t))

	req := httptest.NewRequest(http.MethodPut, "/api/v1/settings", strings.NewReader("{broken"))
	rec := httptest.NewRecorder()
	h.Update(rec, req)

	assertStatusCode(t, rec, http.StatusBadRequest)
	assertJSONError(t, rec, errInvalidRequestBody)
}
