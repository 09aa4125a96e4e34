package tracing

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestStartSpanParenting(t *testing.T) {
	tracer := New("test", nil)
	defer tracer.Close()

	root, ctx := tracer.StartSpan(context.Background(), "root")
	child, childCtx := tracer.StartSpan(ctx, "child")

	assert.NotEmpty(t, root.TraceID)
	assert.Empty(t, root.ParentID)
	assert.Equal(t, root.TraceID, child.TraceID)
	assert.Equal(t, root.SpanID, child.ParentID)
	assert.Equal(t, child.SpanID, GetSpanID(childCtx))
	assert.Equal(t, root.TraceID, GetTraceID(childCtx))
}

func TestWithTraceContext(t *testing.T) {
	ctx := WithTraceContext(context.Background(), "trace-1", "span-1")
	assert.Equal(t, TraceID("trace-1"), GetTraceID(ctx))
	assert.Equal(t, SpanID("span-1"), GetSpanID(ctx))

	empty := WithTraceContext(context.Background(), "", "")
	assert.Empty(t, GetTraceID(empty))
}

func TestCollectorLogsSpans(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	tracer := New("test", zap.New(core))
	defer tracer.Close()

	span, _ := tracer.StartSpan(context.Background(), "dispatch")
	span.SetTag("route", "/users")
	span.SetError(errors.New("boom"))
	tracer.Finish(span)

	require.Eventually(t, func() bool { return logs.Len() == 1 }, time.Second, 5*time.Millisecond)
	entry := logs.All()[0]
	assert.Equal(t, "span completed with error", entry.Message)
	assert.Equal(t, "/users", entry.ContextMap()["tag.route"])
	assert.EqualValues(t, http.StatusInternalServerError, entry.ContextMap()["status"])
}

func TestSubmitAfterClose(t *testing.T) {
	tracer := New("test", nil)
	tracer.Close()
	tracer.Close()

	span, _ := tracer.StartSpan(context.Background(), "late")
	assert.NotPanics(t, func() { tracer.Finish(span) })
}

func TestHTTPMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tracer := New("test", nil)
	defer tracer.Close()

	var seen TraceID
	router := gin.New()
	router.Use(HTTPMiddleware(tracer))
	router.GET("/ping", func(c *gin.Context) {
		seen = GetTraceID(c.Request.Context())
		c.String(http.StatusOK, "pong")
	})

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(TraceHeader, "incoming")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, TraceID("incoming"), seen)
	assert.Equal(t, "incoming", w.Header().Get(TraceHeader))
	assert.NotEmpty(t, w.Header().Get(SpanHeader))
}
