package testutil

import (
	"bytes"
	"embed"

	"github.com/firefly-engineering/devel79ctl/internal/config"
)

//go:embed fixtures/*
var fixturesFS embed.FS

// TestUUID is the UUID of the machine in the showvminfo fixtures.
const TestUUID = "0b5e8f3c-1111-4c6e-9b1a-3f5d2a7c9e10"

// LoadFixture loads a fixture file by name.
func LoadFixture(name string) ([]byte, error) {
	return fixturesFS.ReadFile("fixtures/" + name)
}

// LoadConfigFixture parses a configuration fixture.
func LoadConfigFixture(name string) (*config.Configuration, error) {
	data, err := LoadFixture(name)
	if err != nil {
		return nil, err
	}
	return config.Parse(bytes.NewReader(data))
}

// ShowVMInfo returns "showvminfo --machinereadable" output for the
// fixture machine in state, "running" or "poweroff".
func ShowVMInfo(state string) ([]byte, error) {
	return LoadFixture("showvminfo_" + state + ".txt")
}
