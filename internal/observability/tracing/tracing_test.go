package tracing

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

func TestSafeAttributesDropsSecrets(t *testing.T) {
	attrs := SafeAttributes(
		attribute.String("http.route", "/v1/cards"),
		attribute.String("gateway.api_key", "k"),
		attribute.String("Card_Number", "1234"),
		attribute.String("user.phone", "010"),
	)
	require.Len(t, attrs, 1)
	require.Equal(t, attribute.Key("http.route"), attrs[0].Key)
}

func TestSafeErrorTruncates(t *testing.T) {
	require.Nil(t, SafeError(nil))

	long := errors.New(strings.Repeat("x", 400))
	require.Len(t, SafeError(long).Error(), 256)
}

func TestGinMiddlewareSkipsProbes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(GinMiddleware())

	var traced bool
	r.GET("/health", func(c *gin.Context) {
		traced = trace.SpanFromContext(c.Request.Context()).SpanContext().IsValid()
		c.Status(http.StatusOK)
	})
	r.GET("/cards", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.False(t, traced)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/cards", nil))
	require.Equal(t, http.StatusOK, w.Code)
}
