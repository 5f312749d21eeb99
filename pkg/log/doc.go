/*
Package log provides structured logging for SimpliDFS using zerolog.

A single package-level Logger is configured once via Init and is safe for
concurrent use from every component. Context loggers (WithComponent,
WithNodeID, WithFile) attach a scoped field so call sites don't have to
repeat it on every line:

	log.Init(log.Config{Level: log.InfoLevel, JSONOutput: true})
	repairLog := log.WithComponent("repair")
	repairLog.Info().Str("file", name).Msg("replica added")
*/
package log
