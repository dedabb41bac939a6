package protocol

import (
	"bytes"
)

type parserState uint8

const (
	stateIdle parserState = iota // waiting for '{'
	stateBody                    // collecting bytes up to '}'
)

// Parser tokenizes the inbound byte stream of one connection into pfod
// requests. It is not safe for concurrent use.
type Parser struct {
	conn    Conn
	version string

	state   parserState
	inIndex int
	inBuf   [MaxMessageLen]byte

	cmd       []byte
	reqVer    []byte
	hasPrefix bool

	err     error
	dropped int
}

// NewParser creates a parser reading from conn. version is the menu version
// the device currently serves; requests prefixed with it are refreshes.
func NewParser(conn Conn, version string) *Parser {
	return &Parser{
		conn:    conn,
		version: version,
	}
}

// Parse consumes bytes until a request completes and returns its first
// command byte. It returns 0 when the connection has no more bytes for now
// or the request was empty; Err reports why reading stopped.
func (p *Parser) Parse() byte {
	p.err = nil
	if p.conn == nil {
		p.err = ErrNoConnection
		return 0
	}

	for {
		b, err := p.conn.ReadByte()
		if err != nil {
			p.err = err
			return 0
		}

		if p.feed(b) {
			if len(p.cmd) == 0 {
				return 0
			}
			return p.cmd[0]
		}
	}
}

// feed advances the state machine by one byte and reports whether a
// request just completed.
func (p *Parser) feed(b byte) bool {
	switch p.state {
	case stateIdle:
		if b == MsgStart {
			p.state = stateBody
			p.inIndex = 0
		}
		return false
	case stateBody:
		switch b {
		case MsgStart:
			// Restart on a new opening brace
			p.inIndex = 0
			return false
		case MsgEnd:
			p.state = stateIdle
			p.split(p.inBuf[:p.inIndex])
			return true
		}
		if p.inIndex == MaxMessageLen {
			p.state = stateIdle
			p.inIndex = 0
			p.dropped++
			return false
		}
		p.inBuf[p.inIndex] = b
		p.inIndex++
	}
	return false
}

// split breaks a request body into version prefix and command. Arguments
// are not used by any screen and are skipped.
func (p *Parser) split(body []byte) {
	p.reqVer = nil
	p.hasPrefix = false

	// The version prefix ends at the first ':' before any argument separator
	end := bytes.IndexAny(body, string([]byte{ArgSep, AltArgSep}))
	if end < 0 {
		end = len(body)
	}
	if i := bytes.IndexByte(body[:end], VersionSep); i >= 0 {
		p.reqVer = append([]byte(nil), body[:i]...)
		p.hasPrefix = true
		body = body[i+1:]
		end -= i + 1
	}

	p.cmd = append(p.cmd[:0], body[:end]...)
}

// CmdEquals reports whether the last command is exactly the single byte c.
func (p *Parser) CmdEquals(c byte) bool {
	return len(p.cmd) == 1 && p.cmd[0] == c
}

// IsRefresh reports whether the last request carried the menu version the
// device serves, meaning the client has the screen cached.
func (p *Parser) IsRefresh() bool {
	return p.hasPrefix && p.version != "" && string(p.reqVer) == p.version
}

// Command returns the full command token of the last request.
func (p *Parser) Command() string {
	return string(p.cmd)
}

// RequestVersion returns the version prefix of the last request, if any.
func (p *Parser) RequestVersion() string {
	return string(p.reqVer)
}

// Conn returns the connection the parser reads from.
func (p *Parser) Conn() Conn {
	return p.conn
}

// Write sends response bytes back on the same connection.
func (p *Parser) Write(b []byte) (int, error) {
	if p.conn == nil {
		return 0, ErrNoConnection
	}
	return p.conn.Write(b)
}

// Err returns the read error that stopped the last Parse, if any.
func (p *Parser) Err() error {
	return p.err
}

// Dropped returns how many oversized requests have been discarded.
func (p *Parser) Dropped() int {
	return p.dropped
}

// Reset discards any partially received request.
func (p *Parser) Reset() {
	p.state = stateIdle
	p.inIndex = 0
	p.cmd = p.cmd[:0]
	p.reqVer = nil
	p.hasPrefix = false
}
