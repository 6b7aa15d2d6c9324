// Package machine controls a single VirtualBox machine on behalf of the
// server process.
//
// A Controller moves through three phases:
//
//	Uninitialized --Connect--> Connected --Disconnect--> Disconnected
//
// Connect resolves the machine through a vbox.Service and keeps both for
// the lifetime of the controller. StartInteractive and Stop are actions
// available only while Connected; they do not change the phase. A failed
// Connect leaves the controller Uninitialized with the service released.
// Disconnect is the single release path and may be called any number of
// times.
//
// Every failing operation returns a typed error from internal/errors and
// records its user message, available through ErrorMessage.
package machine
