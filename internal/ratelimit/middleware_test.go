package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestPerMinute_DisabledWithoutBackend(t *testing.T) {
	gin.SetMode(gin.TestMode)

	// No Redis client means no limiting; requests pass through untouched.
	r := gin.New()
	r.GET("/x", PerMinute(nil, "global", 1), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("expected pass-through, got %d", w.Code)
		}
	}
}

func TestPerMinute_DisabledWithZeroLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.GET("/x", PerMinute(nil, "global", 0), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected pass-through, got %d", w.Code)
	}
}
