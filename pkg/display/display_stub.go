//go:build !tinygo || nodebug

// Package display provides a no-op stub off-device or when built with the
// nodebug tag. This saves memory by excluding the SSD1306 driver.
//
// To build without display support, use:
//
//	tinygo build -tags=nodebug -target=pico -o firmware.uf2 .
package display

import "log"

// Manager is a no-op stub.
type Manager struct{}

// NewManager returns nil; callers treat a nil display as absent.
func NewManager(logger *log.Logger) *Manager {
	return nil
}

// ShowIncomingCommand is a no-op.
func (m *Manager) ShowIncomingCommand(cmd string, refresh bool) {}

// ShowOutgoingResponse is a no-op.
func (m *Manager) ShowOutgoingResponse(msg []byte) {}

// ShowError is a no-op.
func (m *Manager) ShowError(err error) {}
