package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	logrustest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestLogger(t *testing.T) {
	logger, hook := logrustest.NewNullLogger()

	router := gin.New()
	router.Use(Logger(logger))
	router.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping?limit=3", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, hook.Entries, 1)

	entry := hook.LastEntry()
	assert.Equal(t, "Request completed", entry.Message)
	assert.Equal(t, http.StatusOK, entry.Data["status"])
	assert.Equal(t, http.MethodGet, entry.Data["method"])
	assert.Equal(t, "/ping", entry.Data["path"])
	assert.Equal(t, "limit=3", entry.Data["query"])
	assert.NotContains(t, entry.Data, "error")
}

func TestRecovery(t *testing.T) {
	logger, hook := logrustest.NewNullLogger()

	router := gin.New()
	router.Use(Recovery(logger))
	router.GET("/boom", func(c *gin.Context) {
		panic("kaboom")
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "INTERNAL_SERVER_ERROR")

	require.Len(t, hook.Entries, 1)
	entry := hook.LastEntry()
	assert.Equal(t, logrus.ErrorLevel, entry.Level)
	assert.Equal(t, "kaboom", entry.Data["panic"])
	assert.Equal(t, "/boom", entry.Data["path"])
}
