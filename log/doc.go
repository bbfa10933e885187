// Package log provides the leveled, printf-style logging used throughout multiagent.
//
// The default logger is backed by kataras/golog and writes to stderr with the
// "[multiagent] " prefix at INFO level. Packages log through the package-level
// helpers so that applications can swap the backend once:
//
//	log.SetLogLevel(log.LogLevelDebug)
//	log.Info("agent %s ready", name)
//
// To route logs elsewhere, wrap an existing golog instance or any writer:
//
//	logger := log.NewCustomLogger(file, log.LogLevelWarn)
//	log.SetDefaultLogger(logger)
//
// LOG_LEVEL strings from configuration are converted with ParseLevel.
package log
