package menu

import (
	"bytes"
	"errors"
	"io"
	"log"
	"sync/atomic"

	"github.com/tuffrabit/tinygo-pfod-menu/pkg/protocol"
)

// Parser is the per-connection view of the inbound stream the dispatcher
// consumes. *protocol.Parser implements it.
type Parser interface {
	Parse() byte
	CmdEquals(c byte) bool
	IsRefresh() bool
	Command() string
	RequestVersion() string
	Conn() protocol.Conn
	io.Writer
}

// Closer terminates a connection on request of the client.
type Closer interface {
	CloseConnection(conn protocol.Conn)
}

// CloserFunc adapts a function to Closer.
type CloserFunc func(conn protocol.Conn)

// CloseConnection calls f(conn).
func (f CloserFunc) CloseConnection(conn protocol.Conn) {
	f(conn)
}

// ErrNotInitialized is shown on the monitor when commands arrive before
// Initialize.
var ErrNotInitialized = errors.New("not initialized")

// Monitor observes traffic and failures, e.g. the on-board debug display.
type Monitor interface {
	ShowIncomingCommand(cmd string, refresh bool)
	ShowOutgoingResponse(msg []byte)
	ShowError(err error)
}

// Kind classifies a parsed command.
type Kind uint8

const (
	KindNone     Kind = iota // no complete command yet
	KindMenu                 // main menu request
	KindActivate             // main item clicked
	KindClose                // client closing the connection
	KindIgnored              // keep-alive
	KindUnknown              // anything else
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindMenu:
		return "menu"
	case KindActivate:
		return "activate"
	case KindClose:
		return "close"
	case KindIgnored:
		return "ignored"
	case KindUnknown:
		return "unknown"
	default:
		return "invalid"
	}
}

// Config is what a Dispatcher is built from.
type Config struct {
	Screen   *Screen
	Renderer *Renderer
	// Logger receives diagnostics. Nil disables logging.
	Logger *log.Logger
	// Monitor, if set, is shown every command and response.
	Monitor Monitor
}

// Dispatcher turns one parsed command per call into one response. It keeps
// no per-connection state, so one Dispatcher may serve many connections as
// long as calls for the same connection don't overlap.
type Dispatcher struct {
	cfg    Config
	closer atomic.Pointer[Closer]
	warned atomic.Bool
}

// NewDispatcher creates a dispatcher. Initialize must be called before
// close requests take effect.
func NewDispatcher(cfg Config) *Dispatcher {
	return &Dispatcher{cfg: cfg}
}

// Initialize registers the closer. Only the first call has any effect.
// It must complete before Handle runs on another goroutine.
func (d *Dispatcher) Initialize(closer Closer) {
	if closer == nil {
		return
	}
	d.closer.CompareAndSwap(nil, &closer)
}

// Initialized reports whether a closer has been registered.
func (d *Dispatcher) Initialized() bool {
	return d.closer.Load() != nil
}

// Classify maps the last parsed command to its Kind.
func (d *Dispatcher) Classify(p Parser, cmd byte) Kind {
	switch {
	case cmd == 0:
		return KindNone
	case cmd == protocol.CmdMenu:
		return KindMenu
	case d.cfg.Screen != nil && p.CmdEquals(d.cfg.Screen.Token):
		return KindActivate
	case cmd == protocol.CmdClose:
		return KindClose
	case cmd == protocol.CmdIgnore:
		return KindIgnored
	default:
		return KindUnknown
	}
}

// Handle consumes at most one command from p and writes its response back
// through p. Errors are logged, never returned.
func (d *Dispatcher) Handle(p Parser) {
	closer := d.closer.Load()
	if closer == nil && d.warned.CompareAndSwap(false, true) {
		d.logf("Need to call Initialize() before handling commands")
		d.showError(ErrNotInitialized)
	}

	d.respond(p, d.Classify(p, p.Parse()), closer)
}

func (d *Dispatcher) respond(p Parser, kind Kind, closer *Closer) {
	if kind == KindNone {
		return
	}

	refresh := p.IsRefresh()
	if d.cfg.Monitor != nil {
		d.cfg.Monitor.ShowIncomingCommand(p.Command(), refresh)
	}

	var w io.Writer = p
	var sent *bytes.Buffer
	if d.cfg.Monitor != nil {
		sent = &bytes.Buffer{}
		w = io.MultiWriter(p, sent)
	}

	var err error
	switch kind {
	case KindMenu, KindActivate:
		if refresh {
			err = d.sendMenuUpdate(w)
		} else {
			if v := p.RequestVersion(); v != "" {
				d.logf("Client has menu version %q cached, sending full menu", v)
			}
			err = d.sendMenu(w)
		}
	case KindClose:
		if closer != nil {
			d.logf("Closing connection on client request")
			(*closer).CloseConnection(p.Conn())
		}
		return
	case KindIgnored, KindUnknown:
		// Always answer, otherwise the client disconnects
		_, err = io.WriteString(w, protocol.Empty)
	default:
		d.logf("Invalid kind %d for command %q", uint8(kind), p.Command())
		_, err = io.WriteString(w, protocol.Empty)
	}

	if sent != nil {
		d.cfg.Monitor.ShowOutgoingResponse(sent.Bytes())
	}
	if err != nil {
		// Shown last so the error stays on screen
		d.logf("Write %s response failed: %v", kind, err)
		d.showError(err)
	}
}

func (d *Dispatcher) sendMenu(w io.Writer) error {
	if d.cfg.Renderer == nil {
		_, err := io.WriteString(w, protocol.Empty)
		return err
	}
	return d.cfg.Renderer.RenderFull(w, d.cfg.Screen)
}

func (d *Dispatcher) sendMenuUpdate(w io.Writer) error {
	if d.cfg.Renderer == nil {
		_, err := io.WriteString(w, protocol.Empty)
		return err
	}
	return d.cfg.Renderer.RenderUpdate(w, d.cfg.Screen)
}

func (d *Dispatcher) showError(err error) {
	if d.cfg.Monitor != nil {
		d.cfg.Monitor.ShowError(err)
	}
}

func (d *Dispatcher) logf(format string, args ...any) {
	if d.cfg.Logger != nil {
		d.cfg.Logger.Printf(format, args...)
	}
}
