// Package logging provides structured logging for the arena.
//
// It wraps log/slog with a JSON handler. Records carry persistent context
// attributes (channel, session, component) added through child loggers, so a
// single debate can be followed through the log with a channel_id filter.
//
// # Output
//
// [NewLogger] writes to arena.log inside the configured directory through a
// [RotatingWriter], which rotates by size into arena.log.1 … arena.log.N. An
// empty directory sends output to stderr.
//
// # Usage
//
//	logger, err := logging.NewLogger(dir, logging.LevelInfo, logging.RotationMB(10, 3))
//	if err != nil {
//	    return err
//	}
//	defer logger.Close()
//
//	chLog := logger.WithChannel("debate-1").WithSession(sess.ID())
//	chLog.Info("debate started", "topic", topic)
//
// Output:
//
//	{"time":"...","level":"INFO","msg":"debate started","channel_id":"debate-1","session_id":"...","topic":"..."}
//
// # Thread Safety
//
// All types in this package are safe for concurrent use. Child loggers share
// the parent's writer.
package logging
