package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name    string
		err     *Error
		wantMsg string
	}{
		{
			name:    "without cause",
			err:     New(ExitGeneralError, KindGeneral, "something went wrong"),
			wantMsg: "something went wrong",
		},
		{
			name:    "with cause",
			err:     Wrap(ExitGeneralError, KindGeneral, "operation failed", fmt.Errorf("underlying error")),
			wantMsg: "operation failed: underlying error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantMsg {
				t.Errorf("Error() = %q, want %q", got, tt.wantMsg)
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := fmt.Errorf("root cause")
	err := Wrap(ExitGeneralError, KindGeneral, "wrapped", cause)

	if unwrapped := err.Unwrap(); unwrapped != cause {
		t.Errorf("Unwrap() = %v, want %v", unwrapped, cause)
	}

	errNoCause := New(ExitGeneralError, KindGeneral, "no cause")
	if unwrapped := errNoCause.Unwrap(); unwrapped != nil {
		t.Errorf("Unwrap() = %v, want nil", unwrapped)
	}
}

func TestConstructors(t *testing.T) {
	cause := fmt.Errorf("boom")

	tests := []struct {
		name     string
		err      *Error
		wantCode int
		wantKind Kind
		wantMsg  string
	}{
		{"config io", ConfigIO("/opt/d/devel79.conf", cause), ExitConfigIO, KindConfigIO,
			"Error while opening configuration file: '/opt/d/devel79.conf'."},
		{"service unavailable", ServiceUnavailable(cause), ExitServiceUnavailable, KindServiceUnavailable,
			"Error while connecting to VirtualBox."},
		{"machine not found", MachineNotFound("devel79"), ExitMachineNotFound, KindMachineNotFound,
			"Machine 'devel79' not found."},
		{"identity", Identity(cause), ExitLaunch, KindIdentity,
			"Error while retrieving machine identity."},
		{"session", SessionCreation(cause), ExitSessionCreation, KindSessionCreation,
			"Error while creating session."},
		{"launch", Launch("devel79", cause), ExitLaunch, KindLaunch,
			"Error while launching machine 'devel79'."},
		{"stop", Stop("devel79", cause), ExitGeneralError, KindStop,
			"Error while stopping machine 'devel79'."},
		{"not connected", NotConnected("start"), ExitUsage, KindUsage,
			"Cannot start: not connected to a machine."},
		{"already connected", AlreadyConnected(), ExitUsage, KindUsage,
			"Already connected to VirtualBox."},
		{"command", CommandFailed("deploy", cause), ExitCommand, KindCommand,
			"Error while running command 'deploy'."},
		{"ssh", SSHError("ssh not found", cause), ExitCommand, KindSSH,
			"ssh not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Code != tt.wantCode {
				t.Errorf("Code = %d, want %d", tt.err.Code, tt.wantCode)
			}
			if tt.err.Kind != tt.wantKind {
				t.Errorf("Kind = %q, want %q", tt.err.Kind, tt.wantKind)
			}
			if tt.err.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", tt.err.Message, tt.wantMsg)
			}
		})
	}
}

func TestTimeout(t *testing.T) {
	err := Timeout("machine launch", 30*time.Second)

	if err.Code != ExitTimeout {
		t.Errorf("Code = %d, want %d", err.Code, ExitTimeout)
	}
	if !strings.Contains(err.Message, "30s") {
		t.Errorf("Message = %q, should mention the timeout", err.Message)
	}
}

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
	}{
		{
			name:     "Error",
			err:      MachineNotFound("test"),
			wantCode: ExitMachineNotFound,
		},
		{
			name:     "wrapped Error",
			err:      fmt.Errorf("outer: %w", ServiceUnavailable(nil)),
			wantCode: ExitServiceUnavailable,
		},
		{
			name:     "regular error",
			err:      fmt.Errorf("some error"),
			wantCode: ExitGeneralError,
		},
		{
			name:     "nil error",
			err:      nil,
			wantCode: ExitSuccess,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetExitCode(tt.err); got != tt.wantCode {
				t.Errorf("GetExitCode() = %d, want %d", got, tt.wantCode)
			}
		})
	}
}

func TestKindOf(t *testing.T) {
	if got := KindOf(fmt.Errorf("wrapped: %w", SessionCreation(nil))); got != KindSessionCreation {
		t.Errorf("KindOf() = %q, want %q", got, KindSessionCreation)
	}
	if got := KindOf(fmt.Errorf("plain")); got != KindGeneral {
		t.Errorf("KindOf(plain) = %q, want %q", got, KindGeneral)
	}
}

func TestUserMessage(t *testing.T) {
	err := fmt.Errorf("connect: %w", MachineNotFound("devel79"))
	if got := UserMessage(err); got != "Machine 'devel79' not found." {
		t.Errorf("UserMessage() = %q", got)
	}
	if got := UserMessage(fmt.Errorf("plain")); got != "plain" {
		t.Errorf("UserMessage(plain) = %q, want %q", got, "plain")
	}
	if got := UserMessage(nil); got != "" {
		t.Errorf("UserMessage(nil) = %q, want empty", got)
	}
}

func TestAs(t *testing.T) {
	wrapped := fmt.Errorf("wrapped: %w", MachineNotFound("test"))

	var target *Error
	if !As(wrapped, &target) {
		t.Error("As() should return true for wrapped Error")
	}

	if target.Code != ExitMachineNotFound {
		t.Errorf("target.Code = %d, want %d", target.Code, ExitMachineNotFound)
	}

	regularErr := fmt.Errorf("regular error")
	if As(regularErr, &target) {
		t.Error("As() should return false for non-Error")
	}
}

func TestErrorChaining(t *testing.T) {
	root := fmt.Errorf("root cause")
	middle := Launch("devel79", root)
	outer := fmt.Errorf("start failed: %w", middle)

	if !errors.Is(outer, root) {
		t.Error("errors.Is should find root cause")
	}

	var e *Error
	if !errors.As(outer, &e) {
		t.Fatal("errors.As should find Error")
	}

	if e.Code != ExitLaunch {
		t.Errorf("Code = %d, want %d", e.Code, ExitLaunch)
	}
}
