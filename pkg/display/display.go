//go:build tinygo && !nodebug

// Package display provides SSD1306 OLED display support for debug output.
// It shows pfod traffic with the inbound command on the yellow
// rows (0-1) and the outbound message on the blue rows (2-3).
//
// To build without display support (saves RAM and flash), use:
//
//	tinygo build -tags=nodebug -target=pico -o firmware.uf2 .
package display

import (
	"image/color"
	"log"
	"machine"
	"time"

	"tinygo.org/x/drivers/ssd1306"
	"tinygo.org/x/tinyfont"
	"tinygo.org/x/tinyfont/proggy"
)

const (
	// I2C configuration
	i2cAddress = 0x3C
	sclPin     = machine.GPIO1
	sdaPin     = machine.GPIO0

	// Display dimensions
	screenWidth  = 128
	screenHeight = 64
	charWidth    = 8
	charHeight   = 8
	cols         = screenWidth / charWidth  // 16 columns
	rows         = screenHeight / charHeight // 8 rows

	// Row assignments
	rowInBytes   = 0 // Yellow - inbound request
	rowInParsed  = 1 // Yellow - inbound parsed
	rowOutBytes  = 2 // Blue - outbound message
	rowOutParsed = 3 // Blue - outbound parsed
)

// Colors for monochrome display
var (
	black = color.RGBA{0, 0, 0, 0}
	white = color.RGBA{255, 255, 255, 255}
)

// Manager handles the SSD1306 display for debug output.
type Manager struct {
	device    *ssd1306.Device
	i2c       *machine.I2C
	formatter *MessageFormatter
}

// NewManager creates and initializes the display manager.
// Returns nil if display initialization fails (non-fatal for debug).
// Setup failures are reported to logger, which may be nil.
func NewManager(logger *log.Logger) *Manager {
	i2c := machine.I2C0
	if err := i2c.Configure(machine.I2CConfig{
		Frequency: 400000, // 400kHz fast mode
		SCL:       sclPin,
		SDA:       sdaPin,
	}); err != nil {
		if logger != nil {
			logger.Printf("I2C config failed: %v", err)
		}
		return nil
	}

	// Small delay for bus stabilization
	time.Sleep(10 * time.Millisecond)

	dev := ssd1306.NewI2C(i2c)
	dev.Configure(ssd1306.Config{
		Address: i2cAddress,
		Width:   screenWidth,
		Height:  screenHeight,
	})
	dev.ClearDisplay()

	mgr := &Manager{
		device:    dev,
		i2c:       i2c,
		formatter: NewMessageFormatter(),
	}

	mgr.drawString(0, 0, "pfod menu")
	mgr.drawString(0, 1, "Waiting...")
	mgr.refresh()

	return mgr
}

// ShowIncomingCommand displays an inbound command on the yellow rows.
func (m *Manager) ShowIncomingCommand(cmd string, refresh bool) {
	if m == nil {
		return
	}
	bytesStr, parsedStr := m.formatter.FormatIncoming(cmd, refresh)
	m.clearRow(rowInBytes)
	m.clearRow(rowInParsed)
	m.drawString(0, rowInBytes, truncate("I:"+bytesStr, cols-1))
	m.drawString(0, rowInParsed, truncate(" "+parsedStr, cols-1))
	m.refresh()
}

// ShowOutgoingResponse displays an outbound message on the blue rows.
func (m *Manager) ShowOutgoingResponse(msg []byte) {
	if m == nil {
		return
	}
	bytesStr, parsedStr := m.formatter.FormatOutgoing(msg)
	m.clearRow(rowOutBytes)
	m.clearRow(rowOutParsed)
	m.drawString(0, rowOutBytes, truncate("O:"+bytesStr, cols-1))
	m.drawString(0, rowOutParsed, truncate(" "+parsedStr, cols-1))
	m.refresh()
}

// ShowError displays an error on the blue rows.
func (m *Manager) ShowError(err error) {
	if m == nil || err == nil {
		return
	}
	m.clearRow(rowOutBytes)
	m.clearRow(rowOutParsed)
	m.drawString(0, rowOutBytes, "ERR:")
	m.drawString(0, rowOutParsed, " "+m.formatter.FormatError(err))
	m.refresh()
}

// clearRow blanks all 8 pixel lines of a text row.
func (m *Manager) clearRow(row int) {
	if row < 0 || row >= rows {
		return
	}
	yStart := int16(row * charHeight)
	for y := yStart; y < yStart+charHeight; y++ {
		for x := int16(0); x < screenWidth; x++ {
			m.device.SetPixel(x, y, black)
		}
	}
}

// drawString draws a string at the specified column and row.
func (m *Manager) drawString(col, row int, s string) {
	if row < 0 || row >= rows || col < 0 || col >= cols {
		return
	}
	// tinyfont positions text by its baseline
	x := int16(col * charWidth)
	y := int16(row*charHeight + charHeight - 1)
	tinyfont.WriteLine(m.device, &proggy.TinySZ8pt7b, x, y, s, white)
}

// refresh updates the display with current buffer content.
func (m *Manager) refresh() {
	m.device.Display()
}
