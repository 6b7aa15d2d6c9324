// Package testutil provides test utilities for command and controller tests
package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/firefly-engineering/devel79ctl/internal/config"
	"github.com/firefly-engineering/devel79ctl/internal/vbox"
)

// TestEnv holds the test environment
type TestEnv struct {
	T          *testing.T
	TmpDir     string
	StateDir   string
	ConfigFile string
	Service    *vbox.MockService
}

// NewTestEnv creates a test environment with a mock control service
// knowing machine "devel79" in state, and a configuration file pointing
// at it with a loopback management address.
func NewTestEnv(t *testing.T, state vbox.MachineState) *TestEnv {
	t.Helper()

	tmpDir := t.TempDir()
	env := &TestEnv{
		T:          t,
		TmpDir:     tmpDir,
		StateDir:   filepath.Join(tmpDir, "state"),
		ConfigFile: filepath.Join(tmpDir, config.DefaultConfigFile),
		Service:    vbox.NewMockService(),
	}

	if err := os.MkdirAll(env.StateDir, 0755); err != nil {
		t.Fatalf("Failed to create directory %s: %v", env.StateDir, err)
	}

	env.Service.AddMachine(config.DefaultMachine, TestUUID, state)
	env.WriteConfig(config.DefaultMachine)
	return env
}

// ConfigContent returns a configuration file for machine with a
// loopback management address and a one second checktime.
func ConfigContent(machine string) string {
	return fmt.Sprintf("# test server\nname = Test Server\nmachine = %s\nip = 127.0.0.1\nchecktime = 1\n", machine)
}

// WriteConfig rewrites the configuration file for machine.
func (e *TestEnv) WriteConfig(machine string) {
	e.T.Helper()

	if err := os.WriteFile(e.ConfigFile, []byte(ConfigContent(machine)), 0644); err != nil {
		e.T.Fatalf("Failed to write config: %v", err)
	}
}

// AppendConfig appends raw lines to the configuration file.
func (e *TestEnv) AppendConfig(lines string) {
	e.T.Helper()

	f, err := os.OpenFile(e.ConfigFile, os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		e.T.Fatalf("Failed to open config: %v", err)
	}
	defer f.Close()

	if _, err := f.WriteString(lines); err != nil {
		e.T.Fatalf("Failed to append to config: %v", err)
	}
}

// Config loads the environment's configuration file.
func (e *TestEnv) Config() *config.Configuration {
	e.T.Helper()

	cfg, err := config.Load(e.ConfigFile)
	if err != nil {
		e.T.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

// MissingConfig returns a configuration path that does not exist.
func (e *TestEnv) MissingConfig() string {
	return filepath.Join(e.TmpDir, "missing.conf")
}
