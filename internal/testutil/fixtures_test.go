package testutil

import (
	"reflect"
	"testing"

	"github.com/firefly-engineering/devel79ctl/internal/config"
	"github.com/firefly-engineering/devel79ctl/internal/vbox"
)

func TestLoadConfigFixture_Example(t *testing.T) {
	cfg, err := LoadConfigFixture("devel79.conf")
	if err != nil {
		t.Fatalf("Failed to load fixture: %v", err)
	}

	want := config.Default()
	if !reflect.DeepEqual(cfg, want) {
		t.Errorf("example config = %+v, want defaults %+v", cfg, want)
	}
}

func TestLoadConfigFixture_Custom(t *testing.T) {
	cfg, err := LoadConfigFixture("custom.conf")
	if err != nil {
		t.Fatalf("Failed to load fixture: %v", err)
	}

	if cfg.DisplayName != "Staging Box" {
		t.Errorf("DisplayName = %q", cfg.DisplayName)
	}
	if cfg.MachineID != "staging-79" {
		t.Errorf("MachineID = %q", cfg.MachineID)
	}
	if cfg.ManagementAddress != "192.168.99.1" {
		t.Errorf("ManagementAddress = %q", cfg.ManagementAddress)
	}
	if cfg.PollIntervalSeconds != 30 {
		t.Errorf("PollIntervalSeconds = %d", cfg.PollIntervalSeconds)
	}
	if cfg.SessionType != "headless" {
		t.Errorf("SessionType = %q", cfg.SessionType)
	}
	if cfg.SSHCommand != "ssh -t dev@192.168.99.1" {
		t.Errorf("SSHCommand = %q", cfg.SSHCommand)
	}
	if len(cfg.Commands) != 1 || cfg.Commands[0].Name != "Restart PHP" {
		t.Errorf("Commands = %+v", cfg.Commands)
	}
}

func TestShowVMInfo(t *testing.T) {
	for _, state := range []string{"running", "poweroff"} {
		out, err := ShowVMInfo(state)
		if err != nil {
			t.Fatalf("ShowVMInfo(%q) error = %v", state, err)
		}
		info := vbox.ParseMachineReadable(out)
		if info["VMState"] != state {
			t.Errorf("VMState = %q, want %q", info["VMState"], state)
		}
		if info["UUID"] != TestUUID {
			t.Errorf("UUID = %q, want %q", info["UUID"], TestUUID)
		}
	}
}

func TestLoadFixture_NotFound(t *testing.T) {
	if _, err := LoadFixture("nonexistent.conf"); err == nil {
		t.Error("expected error for missing fixture")
	}
}

func TestNewTestEnv(t *testing.T) {
	env := NewTestEnv(t, vbox.StateRunning)

	cfg := env.Config()
	if cfg.MachineID != config.DefaultMachine || cfg.ManagementAddress != "127.0.0.1" {
		t.Errorf("config = %+v", cfg)
	}
	if cfg.Path != env.ConfigFile {
		t.Errorf("Path = %q, want %q", cfg.Path, env.ConfigFile)
	}

	m, ok := env.Service.Machines[config.DefaultMachine]
	if !ok || m.State != vbox.StateRunning {
		t.Errorf("mock machine = %+v", m)
	}

	env.WriteConfig("other")
	if got := env.Config().MachineID; got != "other" {
		t.Errorf("MachineID after rewrite = %q", got)
	}
}
