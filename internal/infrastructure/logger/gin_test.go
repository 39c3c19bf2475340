package logger

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newObservedRouter(t *testing.T) (*gin.Engine, *observer.ObservedLogs) {
	t.Helper()
	core, recorded := observer.New(zapcore.InfoLevel)
	router := gin.New()
	router.Use(GinMiddleware(zap.New(core)))
	return router, recorded
}

func requestLog(t *testing.T, recorded *observer.ObservedLogs) observer.LoggedEntry {
	t.Helper()
	logs := recorded.FilterMessage("http request").All()
	require.Len(t, logs, 1)
	return logs[0]
}

func TestGinMiddlewareLogsRequest(t *testing.T) {
	router, recorded := newObservedRouter(t)
	router.GET("/documents", func(c *gin.Context) {
		c.Set("tenant_id", "t-1")
		c.JSON(http.StatusOK, gin.H{"data": []string{}})
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/documents?page=2", nil)
	router.ServeHTTP(w, req)

	entry := requestLog(t, recorded)
	assert.Equal(t, zapcore.InfoLevel, entry.Level)

	fields := entry.ContextMap()
	assert.Equal(t, "GET", fields["method"])
	assert.Equal(t, "/documents", fields["path"])
	assert.Equal(t, int64(http.StatusOK), fields["status"])
	assert.Equal(t, "page=2", fields["query"])
	assert.Equal(t, "t-1", fields["tenant_id"])
}

func TestGinMiddlewareLevelByStatus(t *testing.T) {
	tests := []struct {
		status   int
		expected zapcore.Level
	}{
		{http.StatusOK, zapcore.InfoLevel},
		{http.StatusNotFound, zapcore.WarnLevel},
		{http.StatusInternalServerError, zapcore.ErrorLevel},
	}

	for _, tt := range tests {
		router, recorded := newObservedRouter(t)
		router.GET("/status", func(c *gin.Context) {
			c.Status(tt.status)
		})

		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, "/status", nil)
		router.ServeHTTP(w, req)

		entry := requestLog(t, recorded)
		assert.Equal(t, tt.expected, entry.Level, "status %d", tt.status)
	}
}

func TestGinMiddlewareQuietHealthProbes(t *testing.T) {
	router, recorded := newObservedRouter(t)
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/health", nil)
	router.ServeHTTP(w, req)

	assert.Empty(t, recorded.FilterMessage("http request").All())
}

func TestGinMiddlewareFailedHealthProbeStillLogs(t *testing.T) {
	router, recorded := newObservedRouter(t)
	router.GET("/ready", func(c *gin.Context) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/ready", nil)
	router.ServeHTTP(w, req)

	entry := requestLog(t, recorded)
	assert.Equal(t, zapcore.ErrorLevel, entry.Level)
}

func TestRecoveryLogsPanic(t *testing.T) {
	core, recorded := observer.New(zapcore.ErrorLevel)
	router := gin.New()
	router.Use(Recovery(zap.New(core)))
	router.GET("/boom", func(c *gin.Context) {
		panic("handler exploded")
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/boom", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)

	logs := recorded.FilterMessage("panic recovered").All()
	require.Len(t, logs, 1)
	assert.Equal(t, "handler exploded", logs[0].ContextMap()["error"])
}

func TestGetGinLogger(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	// Without a logger in context a no-op is returned, never nil.
	assert.NotNil(t, GetGinLogger(c))

	zapLogger := zap.NewNop().Named("request")
	c.Set("logger", zapLogger)
	assert.Same(t, zapLogger, GetGinLogger(c))
}
