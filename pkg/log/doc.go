/*
Package log wraps zerolog to give every subsystem a component-scoped
structured logger.

	log.Init(log.Config{Level: log.InfoLevel, JSONOutput: true})
	catalogLog := log.WithComponent("catalog")
	catalogLog.Info().Str("entity", "s.t").Msg("entity created")

Init must run once before any other package logs; until then Logger is the
zerolog zero value (a no-op discard logger).
*/
package log
