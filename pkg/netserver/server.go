// Package netserver serves the pfod menu over TCP, one goroutine per client.
package netserver

import (
	"bufio"
	"errors"
	"fmt"
	"log"
	"net"
	"sync"
	"time"

	"github.com/tuffrabit/tinygo-pfod-menu/pkg/menu"
	"github.com/tuffrabit/tinygo-pfod-menu/pkg/protocol"
)

// Accept failures such as EMFILE are retried with a delay that doubles up
// to maxAcceptDelay.
const (
	minAcceptDelay = 5 * time.Millisecond
	maxAcceptDelay = time.Second
)

// Options configures a Server.
type Options struct {
	// Version is the menu version clients must echo for a refresh.
	Version string
	// Logger receives connection events. Nil disables logging.
	Logger *log.Logger
}

// Server accepts pfod clients and hands their bytes to a shared dispatcher.
type Server struct {
	addr       string
	ln         net.Listener
	dispatcher *menu.Dispatcher
	opts       Options

	mu     sync.Mutex
	conns  map[*conn]struct{}
	closed bool
	wg     sync.WaitGroup
}

// conn adapts a net.Conn to protocol.Conn. Responses are buffered and
// flushed once per dispatch so a message leaves in one piece.
type conn struct {
	nc net.Conn
	r  *bufio.Reader
	w  *bufio.Writer
}

func (c *conn) ReadByte() (byte, error)     { return c.r.ReadByte() }
func (c *conn) Write(p []byte) (int, error) { return c.w.Write(p) }

// NewServer listens on addr. Call Serve to start accepting.
func NewServer(addr string, dispatcher *menu.Dispatcher, opts Options) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	return &Server{
		addr:       addr,
		ln:         ln,
		dispatcher: dispatcher,
		opts:       opts,
		conns:      make(map[*conn]struct{}),
	}, nil
}

// Addr returns the listening address.
func (s *Server) Addr() net.Addr {
	return s.ln.Addr()
}

// Serve accepts connections until Close is called. Other accept errors are
// logged and retried.
func (s *Server) Serve() error {
	s.logf("[server] Listening on %s", s.ln.Addr())
	var delay time.Duration
	for {
		nc, err := s.ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			if delay == 0 {
				delay = minAcceptDelay
			} else {
				delay *= 2
			}
			if delay > maxAcceptDelay {
				delay = maxAcceptDelay
			}
			s.logf("[server] Accept error: %v; retrying in %v", err, delay)
			time.Sleep(delay)
			continue
		}
		delay = 0

		c := &conn{
			nc: nc,
			r:  bufio.NewReader(nc),
			w:  bufio.NewWriter(nc),
		}
		if !s.track(c) {
			nc.Close()
			return nil
		}

		s.logf("[server] New connection accepted from %s", nc.RemoteAddr())
		go func() {
			defer s.wg.Done()
			s.handleConn(c)
		}()
	}
}

// handleConn runs the dispatch loop for one client until it disconnects or
// is closed.
func (s *Server) handleConn(c *conn) {
	defer s.untrack(c)

	parser := protocol.NewParser(c, s.opts.Version)
	defer func() {
		if n := parser.Dropped(); n > 0 {
			s.logf("[server] Dropped %d oversized request(s) from %s", n, c.nc.RemoteAddr())
		}
	}()

	for {
		s.dispatcher.Handle(parser)
		if err := c.w.Flush(); err != nil {
			s.logf("[server] Write to %s failed: %v", c.nc.RemoteAddr(), err)
			return
		}
		if err := parser.Err(); err != nil {
			s.logf("[server] Connection %s ended: %v", c.nc.RemoteAddr(), err)
			return
		}
	}
}

// CloseConnection implements menu.Closer. Handles that don't belong to this
// server are ignored.
func (s *Server) CloseConnection(pc protocol.Conn) {
	c, ok := pc.(*conn)
	if !ok {
		return
	}

	s.mu.Lock()
	_, live := s.conns[c]
	s.mu.Unlock()
	if !live {
		return
	}

	s.logf("[server] Closing %s on client request", c.nc.RemoteAddr())
	c.nc.Close()
}

// Close stops accepting, closes every live connection and waits for their
// loops to finish.
func (s *Server) Close() error {
	s.mu.Lock()
	s.closed = true
	for c := range s.conns {
		c.nc.Close()
	}
	s.mu.Unlock()

	err := s.ln.Close()
	s.wg.Wait()
	return err
}

// ConnCount returns the number of live connections.
func (s *Server) ConnCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

func (s *Server) track(c *conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.conns[c] = struct{}{}
	s.wg.Add(1)
	return true
}

func (s *Server) untrack(c *conn) {
	s.mu.Lock()
	delete(s.conns, c)
	s.mu.Unlock()
	c.nc.Close()
}

func (s *Server) logf(format string, args ...any) {
	if s.opts.Logger != nil {
		s.opts.Logger.Printf(format, args...)
	}
}
