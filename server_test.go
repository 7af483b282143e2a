package main

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestAdminOnlyMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(actorMiddleware())
	ops := r.Group("/internal/ops", adminOnlyMiddleware())
	ops.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	cases := []struct {
		name       string
		header     string
		wantStatus int
	}{
		{"no header", "", http.StatusForbidden},
		{"non-admin", "false", http.StatusForbidden},
		{"admin", "true", http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/internal/ops/ping", nil)
			if tc.header != "" {
				req.Header.Set("x-is-admin", tc.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tc.wantStatus {
				t.Fatalf("%s: expected %d, got %d", tc.name, tc.wantStatus, w.Code)
			}
		})
	}
}
