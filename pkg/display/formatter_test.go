package display

import (
	"errors"
	"testing"

	"github.com/tuffrabit/tinygo-pfod-menu/pkg/menu"
)

var _ menu.Monitor = (*Manager)(nil)

func TestFormatIncoming(t *testing.T) {
	f := NewMessageFormatter()

	tests := []struct {
		cmd     string
		refresh bool
		bytes   string
		parsed  string
	}{
		{".", false, "{.}", "Menu"},
		{".", true, "{.}", "Menu (R)"},
		{"A", true, "{A}", "Item A (R)"},
		{"!", false, "{!}", "Close"},
		{"@", false, "{@}", "Ignore"},
		{"AB", false, "{AB}", "Cmd AB"},
		{"", false, "{}", "Empty"},
	}

	for _, tt := range tests {
		bytesStr, parsedStr := f.FormatIncoming(tt.cmd, tt.refresh)
		if bytesStr != tt.bytes {
			t.Errorf("FormatIncoming(%q): bytes expected '%s', got '%s'", tt.cmd, tt.bytes, bytesStr)
		}
		if parsedStr != tt.parsed {
			t.Errorf("FormatIncoming(%q): parsed expected '%s', got '%s'", tt.cmd, tt.parsed, parsedStr)
		}
	}
}

func TestFormatOutgoing(t *testing.T) {
	f := NewMessageFormatter()

	tests := []struct {
		msg    string
		bytes  string
		parsed string
	}{
		{"{}", "{}", "Ack[2]"},
		{"{;~|+A}", "{;~|+A}", "Update[7]"},
		{"{,<bg w>~~V1|+A~z1}", "{,<bg w>~~V1|+A~z1}", "Menu[19]"},
		{"", "", "None[0]"},
		{"{\n}", "{.}", "Msg[3]"},
	}

	for _, tt := range tests {
		bytesStr, parsedStr := f.FormatOutgoing([]byte(tt.msg))
		if bytesStr != tt.bytes {
			t.Errorf("FormatOutgoing(%q): bytes expected '%s', got '%s'", tt.msg, tt.bytes, bytesStr)
		}
		if parsedStr != tt.parsed {
			t.Errorf("FormatOutgoing(%q): parsed expected '%s', got '%s'", tt.msg, tt.parsed, parsedStr)
		}
	}
}

func TestFormatError(t *testing.T) {
	f := NewMessageFormatter()

	if got := f.FormatError(errors.New("short")); got != "short" {
		t.Errorf("Expected 'short', got '%s'", got)
	}
	if got := f.FormatError(errors.New("connection reset by peer")); got != "connection r" {
		t.Errorf("Expected truncation to 12 chars, got '%s'", got)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("I:{.}", 15); got != "I:{.}" {
		t.Errorf("Expected unchanged string, got '%s'", got)
	}
	if got := truncate("O:{,<bg w>~~V1|+A~z1}", 15); got != "O:{,<bg w>~~V.." {
		t.Errorf("Expected '..' suffix, got '%s'", got)
	}
	if got := truncate("abc", 2); got != "ab" {
		t.Errorf("Expected 'ab', got '%s'", got)
	}
}

func TestStubManagerIsNilSafe(t *testing.T) {
	m := NewManager(nil)

	// Off-device the manager is absent but its methods must not panic
	m.ShowIncomingCommand(".", false)
	m.ShowOutgoingResponse([]byte("{}"))
	m.ShowError(errors.New("oops"))
}
