// Package logging provides structured logging on top of zap.
//
// Production loggers write JSON, development loggers write colored console
// lines. Each dispatch logs one line carrying the request id, method,
// path, status and duration; failures add the exception id so the line
// can be matched with the rendered error page.
//
// Example Usage:
//
//	logger := logging.NewDefault()
//	logger.ForRequest(req.ID()).Info("dispatched", zap.Int("status", 200))
package logging
