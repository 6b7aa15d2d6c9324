// Package testutil provides test fixtures and utilities.
//
// # Fixtures
//
// Fixtures are embedded using go:embed:
//
//	fixtures/devel79.conf              // the documented example file
//	fixtures/custom.conf               // comments, mixed case, junk lines
//	fixtures/showvminfo_poweroff.txt   // VBoxManage machine-readable output
//	fixtures/showvminfo_running.txt
//
//	cfg, err := testutil.LoadConfigFixture("custom.conf")
//	out, err := testutil.ShowVMInfo("running")
//
// # Test Environment
//
// NewTestEnv creates a temporary directory holding a configuration file
// and a state directory, plus a vbox.MockService knowing the configured
// machine:
//
//	env := testutil.NewTestEnv(t, vbox.StatePoweredOff)
//	a := app.New(env.Config(), app.WithDialer(env.Service.Dialer()))
package testutil
