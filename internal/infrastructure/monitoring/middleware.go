package monitoring

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// Middleware creates a Gin middleware recording host level request metrics
func Middleware(metrics *Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		method := c.Request.Method

		c.Next()

		status := strconv.Itoa(c.Writer.Status())
		metrics.RecordHTTPRequest(method, status, time.Since(start), int64(c.Writer.Size()))
	}
}

// Timer measures the duration of a background job
type Timer struct {
	start   time.Time
	metrics *Metrics
	command string
}

// NewTimer starts a job timer
func NewTimer(metrics *Metrics, command string) *Timer {
	return &Timer{
		start:   time.Now(),
		metrics: metrics,
		command: command,
	}
}

// Stop records the job with its final status
func (t *Timer) Stop(status string) {
	if t.metrics == nil {
		return
	}
	t.metrics.RecordJob(t.command, status, time.Since(t.start))
}
