// Package a3interface is the cgo surface Arma loads: RVExtension entry points,
// the callback registration and the sync reply buffer.
package a3interface

import (
	"github.com/AIAI/extension/internal/dispatcher"
)

type configStruct struct {
	// rvExtensionVersion is returned when Arma first loads the extension
	rvExtensionVersion string

	dispatcher *dispatcher.Dispatcher
}

func (c *configStruct) Init() {
	c.rvExtensionVersion = "No version set"
}

// SetVersion sets the string returned by RVExtensionVersion
func SetVersion(version string) {
	Config.rvExtensionVersion = version
}

// SetDispatcher sets the command dispatcher
func SetDispatcher(d *dispatcher.Dispatcher) {
	Config.dispatcher = d
}

// GetDispatcher returns the configured dispatcher, or nil if not set
func GetDispatcher() *dispatcher.Dispatcher {
	return Config.dispatcher
}
