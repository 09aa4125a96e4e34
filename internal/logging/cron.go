package logging

import "go.uber.org/zap"

// CronLogger adapts the logger to the key/value logging interface used by
// the job scheduler.
type CronLogger struct {
	sugar *zap.SugaredLogger
}

// Cron returns a scheduler logger. Scheduler info messages are logged at
// debug level.
func (l *Logger) Cron() CronLogger {
	return CronLogger{sugar: l.Logger.Named("cron").Sugar()}
}

// Info logs routine scheduler activity.
func (c CronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.sugar.Debugw(msg, keysAndValues...)
}

// Error logs scheduler failures.
func (c CronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.sugar.Errorw(msg, append(keysAndValues, "error", err)...)
}
