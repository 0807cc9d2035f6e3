package api

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestTimeout_CarriesDistinctCodeAndMessage(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	Timeout(c)

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", w.Code)
	}
	if !bytes.Contains(w.Body.Bytes(), []byte(`"error_code":5004`)) {
		t.Fatalf("expected timeout code, got %s", w.Body.String())
	}
	if !bytes.Contains(w.Body.Bytes(), []byte("request timed out")) {
		t.Fatalf("expected timeout message, got %s", w.Body.String())
	}
}

func TestInternal_CarriesSystemCode(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	Internal(c, "failed to load jobs")

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 got %d", w.Code)
	}
	if !bytes.Contains(w.Body.Bytes(), []byte(`"error_code":5000`)) {
		t.Fatalf("expected system code, got %s", w.Body.String())
	}
}
