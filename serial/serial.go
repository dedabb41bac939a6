// Package serial runs the pfod menu over a byte-oriented serial link such as
// USB CDC or a Bluetooth UART.
package serial

import (
	"log"
	"time"

	"github.com/tuffrabit/tinygo-pfod-menu/pkg/menu"
	"github.com/tuffrabit/tinygo-pfod-menu/pkg/protocol"
)

// Port is the serial device. machine.Serialer satisfies it; its ReadByte
// returns an error when no byte is buffered.
type Port = protocol.Conn

type Serial struct {
	serial     Port
	parser     *protocol.Parser
	dispatcher *menu.Dispatcher
	logger     *log.Logger
	dropped    int
}

// NewSerial binds a dispatcher to a port. logger must not write to the same
// port, or diagnostics would corrupt the pfod stream; nil disables logging.
func NewSerial(serial Port, dispatcher *menu.Dispatcher, version string, logger *log.Logger) Serial {
	return Serial{
		serial:     serial,
		parser:     protocol.NewParser(serial, version),
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// Handle polls the port forever, yielding while the port is idle.
func (s *Serial) Handle() {
	for {
		s.Poll()
		if s.parser.Err() != nil {
			time.Sleep(time.Millisecond)
		}
	}
}

// Poll runs one dispatch over whatever bytes are buffered.
func (s *Serial) Poll() {
	s.dispatcher.Handle(s.parser)

	if n := s.parser.Dropped(); n != s.dropped {
		s.logf("Dropped %d oversized request(s), %d total", n-s.dropped, n)
		s.dropped = n
	}
}

// CloseConnection implements menu.Closer. A serial link can't be closed, so
// a close request only drops any partially received message.
func (s *Serial) CloseConnection(conn protocol.Conn) {
	if conn != s.serial {
		return
	}
	s.parser.Reset()
}

func (s *Serial) logf(format string, args ...any) {
	if s.logger != nil {
		s.logger.Printf(format, args...)
	}
}
