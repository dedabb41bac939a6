package menu

import (
	"io"
	"strconv"

	"github.com/tuffrabit/tinygo-pfod-menu/pkg/config"
	"github.com/tuffrabit/tinygo-pfod-menu/pkg/protocol"
)

// Renderer writes the two wire forms of a screen: the full menu definition
// and the update sent to clients that have it cached.
type Renderer struct {
	background string
	refreshMs  uint32
	version    string
}

// NewRenderer creates a renderer for the given settings.
func NewRenderer(settings config.MenuSettings) *Renderer {
	return &Renderer{
		background: settings.BackgroundColour(),
		refreshMs:  settings.RefreshMs,
		version:    settings.GetMenuVersion(),
	}
}

// Version returns the menu version embedded in full definitions.
func (r *Renderer) Version() string {
	return r.version
}

// RenderFull writes a full menu definition:
//
//	{,<bg w>~[`REFRESH]~VERSION|+A~LOADID}
//
// A nil screen produces a menu without items.
func (r *Renderer) RenderFull(w io.Writer, s *Screen) error {
	ew := &errWriter{w: w}
	ew.print(protocol.MenuStart)
	ew.print("<bg " + r.background + ">~") // no prompt
	r.sendRefreshAndVersion(ew)
	if s != nil {
		ew.print(protocol.ItemPrefix)
		ew.printByte(s.Token)
		ew.print("~")
		ew.print(s.LoadID)
	}
	ew.printByte(protocol.MsgEnd)
	return ew.err
}

// RenderUpdate writes the update for a cached menu:
//
//	{;~|+A}
//
// It carries no load id; the item's reload marker tells the client to
// re-request the drawing it already knows.
func (r *Renderer) RenderUpdate(w io.Writer, s *Screen) error {
	ew := &errWriter{w: w}
	ew.print(protocol.UpdateStart)
	ew.print("~") // no change to colours and size
	if s != nil {
		ew.print(protocol.ItemPrefix)
		ew.printByte(s.Token)
	}
	ew.printByte(protocol.MsgEnd)
	return ew.err
}

func (r *Renderer) sendRefreshAndVersion(ew *errWriter) {
	if r.refreshMs != 0 {
		ew.printByte(protocol.AltArgSep)
		ew.print(strconv.FormatUint(uint64(r.refreshMs), 10))
	}
	ew.printByte(protocol.ArgSep)
	ew.print(r.version)
}

// errWriter writes pieces straight to the connection and keeps the first
// error; later pieces are skipped.
type errWriter struct {
	w   io.Writer
	err error
	buf [1]byte
}

func (ew *errWriter) print(s string) {
	if ew.err != nil || s == "" {
		return
	}
	_, ew.err = io.WriteString(ew.w, s)
}

func (ew *errWriter) printByte(b byte) {
	if ew.err != nil {
		return
	}
	ew.buf[0] = b
	_, ew.err = ew.w.Write(ew.buf[:])
}
