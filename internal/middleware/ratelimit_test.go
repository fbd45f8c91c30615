package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/AnshRaj112/calmsteps-backend/internal/database"
	"github.com/AnshRaj112/calmsteps-backend/internal/logger"
)

func TestWriteRateLimit_Redis(t *testing.T) {
	uri := os.Getenv("REDIS_TEST_URI")
	if uri == "" {
		t.Skip("REDIS_TEST_URI not set, skipping Redis integration test")
	}
	rdb, err := database.ConnectRedis(context.Background(), uri)
	if err != nil {
		t.Fatalf("connect redis: %v", err)
	}
	t.Cleanup(func() { rdb.Close() })

	user := uuid.New()
	t.Cleanup(func() { rdb.Del(context.Background(), RateLimitKeyPrefix+"user:"+user.String()) })
	h := WriteRateLimit(rdb, 2, time.Minute, false, logger.Nop())(okHandler)

	do := func(method string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, "/api/modules/x", nil)
		req = req.WithContext(WithUserID(req.Context(), user))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	if do(http.MethodPatch).Code != http.StatusOK || do(http.MethodPatch).Code != http.StatusOK {
		t.Fatalf("first two writes should pass")
	}
	rec := do(http.MethodPatch)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("third write: %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Errorf("missing Retry-After")
	}
	if do(http.MethodGet).Code != http.StatusOK {
		t.Fatalf("reads are not limited")
	}
}
