/*
Package log provides structured logging for the backup autopilot using
zerolog. It wraps a single global logger with component- and service-scoped
child loggers so every adapter and engine step can tag its lines without
threading a logger argument through every call.

# Usage

	log.Init(log.Config{Level: log.InfoLevel, JSONOutput: true, Output: os.Stdout})

	engineLog := log.WithComponent("engine")
	engineLog.Info().Str("service", name).Msg("backup started")

	svcLog := log.WithService(engineLog, "nginx")
	svcLog.Error().Err(err).Msg("verification failed")

# Log Levels

Debug is for adapter-internal detail (HTTP request bodies, staged file
lists); Info covers one line per pipeline step; Warn is for conditions the
engine tolerates (direct-storage path outside /mnt|/nfs|/ceph, retention
delete failures); Error is for a step that ends in `false`.

Never log secrets: hypervisor/remote-archive passwords and tokens must
never reach a log line, structured or otherwise.
*/
package log
