/*
Package worker runs background commands outside the request path.

A Job names a command registered in the container, the method to run
and its arguments. Publishing writes the job to the spool directory as
"<timestamp>_<ulid>.job"; the terminal runner executes one job file and
the spooler drains the directory on a cron schedule.

# Commands

A command is built through the container with the job arguments as
named constructor overrides. It may run middleware against the
container, take a lock, and exposes its methods as container Funcs:

	type Mailer struct{ worker.Base }

	func (m *Mailer) Methods() map[string]container.Func {
		return map[string]container.Func{"Main": {...}}
	}

Method parameters are resolved by name from the job arguments first,
then through the container.

# Failures

A failing command is reported in red with its origin and trace. Each
command runs behind its own circuit breaker so a command that keeps
failing is skipped until its cooldown passes.
*/
package worker
