// Package protocol implements the pfod text protocol spoken over serial,
// Bluetooth or TCP links.
//
// Request format:
//
//	{[VERSION:]CMD[~ARG|`ARG]...}
//	- VERSION: menu version the client has cached, present on refresh requests
//	- CMD: command token, e.g. '.' for the main menu
//	- ARG: optional arguments separated by '~' or '`'
//
// Every request the device recognises must be answered with a message of the
// same {...} shape, otherwise the client drops the connection.
package protocol

import (
	"errors"
)

const (
	MsgStart = '{'
	MsgEnd   = '}'

	// Separators inside a request
	VersionSep = ':'
	ArgSep     = '~'
	AltArgSep  = '`'

	// Command tokens (client → device)
	CmdMenu   = '.' // main menu request
	CmdClose  = '!' // client is closing the connection
	CmdIgnore = '@' // keep-alive, acknowledged and otherwise ignored

	// MaxMessageLen bounds a single request, excluding the braces.
	MaxMessageLen = 255
)

// Message markers (device → client)
const (
	MenuStart   = "{,"
	UpdateStart = "{;"
	ItemPrefix  = "|+"
	Empty       = "{}"
)

var ErrNoConnection = errors.New("no connection")

// Conn is the byte stream a parser reads from and writes responses to.
// machine.Serialer and a bufio-wrapped net.Conn both satisfy it.
type Conn interface {
	ReadByte() (byte, error)
	Write(p []byte) (int, error)
}
