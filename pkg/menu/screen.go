// Package menu renders the device's main menu screen and dispatches parsed
// pfod commands to it.
package menu

import (
	"strconv"
	"sync/atomic"
)

// DefaultToken is the item token of the main screen's single item.
const DefaultToken = 'A'

var loadCounter atomic.Uint32

// Screen is the content of the menu: one item holding the main drawing.
// It is read-only once created.
type Screen struct {
	// Token is the item token clients send to activate the item.
	Token byte
	// LoadID is the load command clients use to fetch the drawing. It is
	// unique per Screen within the process.
	LoadID string
}

// NewScreen creates a screen whose single item uses token.
func NewScreen(token byte) *Screen {
	return &Screen{
		Token:  token,
		LoadID: "z" + strconv.FormatUint(uint64(loadCounter.Add(1)), 10),
	}
}
