package logger

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestMiddleware_LogsRequestWithSessionAttrs(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var buf bytes.Buffer
	l := NewWriter(&buf, "production")

	r := gin.New()
	r.Use(Middleware(l))
	r.GET("/session", func(c *gin.Context) {
		if From(c.Request.Context()) != FromGin(c) {
			t.Errorf("context and gin loggers differ")
		}
		c.Set("session_id", "sid-1")
		c.Set("role", "FUNCIONARIO_EMPRESA")
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/session", nil)
	req.Header.Set("X-Request-Id", "rid-1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Header().Get("X-Request-Id") != "rid-1" {
		t.Fatalf("request id not echoed")
	}
	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("log line is not json: %v (%q)", err, buf.String())
	}
	if line["request_id"] != "rid-1" || line["session_id"] != "sid-1" || line["role"] != "FUNCIONARIO_EMPRESA" {
		t.Fatalf("unexpected log line %v", line)
	}
}

func TestMiddleware_GeneratesRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var buf bytes.Buffer

	r := gin.New()
	r.Use(Middleware(NewWriter(&buf, "local")))
	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if w.Header().Get("X-Request-Id") == "" {
		t.Fatalf("expected generated request id")
	}
}
