// Package server runs the instrumented HTTP service and coordinates its
// shutdown.
//
// # Middleware
//
// Every request passes, outermost first, through recovery, request ID,
// the tracing middleware, the metrics middleware and the access log.
//
// # Shutdown
//
// A Coordinator waits for either a termination signal or the end of the
// serving loop, whichever comes first:
//
//	ln, err := srv.Listen()
//	serveErr := make(chan error, 1)
//	go func() { serveErr <- srv.Serve(ln) }()
//
//	coord := server.NewCoordinator(srv, tel, cfg.Server.ShutdownTimeout, logger)
//	err = coord.Wait(ctx, serveErr)
//
// It then stops accepting connections, gives in-flight requests the grace
// period to finish and flushes telemetry in the order traces, logs,
// metrics. ErrGraceExceeded reports requests that had to be cut off.
package server
