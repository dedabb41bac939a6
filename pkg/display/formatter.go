package display

import (
	"fmt"
	"strings"

	"github.com/tuffrabit/tinygo-pfod-menu/pkg/protocol"
)

// MessageFormatter formats pfod traffic for display on the SSD1306.
// It creates compact string representations suitable for 16-character wide display rows.
type MessageFormatter struct{}

// NewMessageFormatter creates a new message formatter.
func NewMessageFormatter() *MessageFormatter {
	return &MessageFormatter{}
}

// FormatIncoming formats an inbound command for display.
// Returns the request string and a parsed description; refreshes are marked (R).
func (f *MessageFormatter) FormatIncoming(cmd string, refresh bool) (bytesStr, parsedStr string) {
	bytesStr = "{" + cmd + "}"

	parsedStr = f.getCommandName(cmd)
	if refresh {
		parsedStr += " (R)"
	}

	return bytesStr, parsedStr
}

// FormatOutgoing formats an outbound message for display.
// Returns the printable message and a parsed description.
func (f *MessageFormatter) FormatOutgoing(msg []byte) (bytesStr, parsedStr string) {
	bytesStr = printable(msg)
	parsedStr = fmt.Sprintf("%s[%d]", f.getMessageName(msg), len(msg))
	return bytesStr, parsedStr
}

// FormatError formats an error for display.
func (f *MessageFormatter) FormatError(err error) string {
	msg := err.Error()
	if len(msg) > 12 {
		msg = msg[:12]
	}
	return msg
}

// getCommandName returns a short name for a command token.
func (f *MessageFormatter) getCommandName(cmd string) string {
	if len(cmd) != 1 {
		if cmd == "" {
			return "Empty"
		}
		return "Cmd " + cmd
	}
	switch cmd[0] {
	case protocol.CmdMenu:
		return "Menu"
	case protocol.CmdClose:
		return "Close"
	case protocol.CmdIgnore:
		return "Ignore"
	default:
		return "Item " + cmd
	}
}

// getMessageName returns a short name for an outbound message.
func (f *MessageFormatter) getMessageName(msg []byte) string {
	s := string(msg)
	switch {
	case s == protocol.Empty:
		return "Ack"
	case strings.HasPrefix(s, protocol.MenuStart):
		return "Menu"
	case strings.HasPrefix(s, protocol.UpdateStart):
		return "Update"
	case len(s) == 0:
		return "None"
	default:
		return "Msg"
	}
}

// printable replaces bytes the display font cannot draw.
func printable(msg []byte) string {
	var b strings.Builder
	for _, c := range msg {
		if c < 0x20 || c > 0x7e {
			b.WriteByte('.')
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

// truncate limits a string to maxLen characters, adding ".." if truncated.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 2 {
		return s[:maxLen]
	}
	return s[:maxLen-2] + ".."
}
