// Package app provides the application context for devel79ctl.
//
// This package wires the loaded configuration, the machine controller and
// the event log together using the functional options pattern, so tests
// can substitute a mock control service.
//
// # App Context
//
//	type App struct {
//	    Config     *config.Configuration // Loaded server definition
//	    Controller *machine.Controller   // Connection to the machine
//	    Events     *audit.Logger         // Lifecycle event log
//	}
//
// # Creating an App
//
//	// Production usage
//	a := app.New(cfg)
//
//	// Testing with a mock control service
//	svc := vbox.NewMockService()
//	a := app.New(cfg,
//	    app.WithDialer(svc.Dialer()),
//	    app.WithEvents(audit.NewLogger(t.TempDir())),
//	)
//
// # Lifecycle
//
//	if err := a.Open(ctx, runServer); err != nil { ... }
//	defer a.Close()
//
// Close is the single shutdown path and disconnects exactly once.
package app
