/*
Package log provides structured logging for hutch built on zerolog.

All hutch components log through this package rather than using zerolog
directly, giving one place to configure level, format and destination.
Output is human-readable console format by default and JSON when
configured, which is what log collectors want.

# Usage

	log.Init(log.Config{Level: "debug", JSONOutput: false})

	logger := log.WithComponent("lifecycle")
	logger.Info().Str("container_id", id).Msg("container created")

WithComponent, WithContainerID and WithVMID return loggers with the
corresponding field pre-attached, so related log lines correlate
without repeating fields at every call site. The zero-value Logger is
usable and silent, which keeps tests quiet without setup.
*/
package log
