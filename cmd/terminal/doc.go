// Package main runs background jobs published by the server.
//
// Given a job file it builds the named command through the container, calls
// the requested method with the job's arguments and exits non-zero when the
// job fails. With -spool it watches the worker storage path and runs pending
// jobs on the configured cron schedule.
//
// Usage:
//
//	./terminal storage/jobs/2024-01-02_150405_01HV....job
//	./terminal -spool
//	./terminal -spool -once
package main
