package main

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHandleHealthz(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	handleHealthz(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if rec.Body.String() != "ok" {
		t.Errorf("expected body %q, got %q", "ok", rec.Body.String())
	}
}

func jsonBody(s string) io.ReadCloser {
	return io.NopCloser(strings.NewReader(s))
}

func TestHandleAddFolderRejectsMissingPath(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/folders", nil)
	req.Body = jsonBody(`{}`)
	rec := httptest.NewRecorder()

	// nil engine is safe here: validation rejects the empty path before
	// any engine method is called.
	handleAddFolder(nil)(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for missing path, got %d", rec.Code)
	}
}

func TestHandleAddFolderRejectsMalformedJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/folders", nil)
	req.Body = jsonBody(`not json`)
	rec := httptest.NewRecorder()
	handleAddFolder(nil)(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for malformed body, got %d", rec.Code)
	}
}

func TestHandleSearchRejectsMissingQuery(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/search", nil)
	rec := httptest.NewRecorder()
	handleSearch(nil)(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for missing query, got %d", rec.Code)
	}
}

func TestHandleRemoveFolderRejectsMissingPath(t *testing.T) {
	req := httptest.NewRequest(http.MethodDelete, "/api/folders", nil)
	rec := httptest.NewRecorder()
	handleRemoveFolder(nil)(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for missing path, got %d", rec.Code)
	}
}
