//go:build tinygo

package main

import (
	"io"
	"log"
	"machine"

	"github.com/tuffrabit/tinygo-pfod-menu/pkg/config"
	"github.com/tuffrabit/tinygo-pfod-menu/pkg/display"
	"github.com/tuffrabit/tinygo-pfod-menu/pkg/menu"
	"github.com/tuffrabit/tinygo-pfod-menu/pkg/storage"
	"github.com/tuffrabit/tinygo-pfod-menu/serial"
)

// Diagnostics UART. GPIO0/1 carry the display's I2C bus, so UART0 is moved
// to GPIO16/17.
const (
	diagTX   = machine.GPIO16
	diagRX   = machine.GPIO17
	diagBaud = 115200
)

// MAIN THREAD DUTIES
//

func main() {
	// USB CDC (os.Stdout) carries pfod traffic, so diagnostics must not go there
	logger := newDiagLogger()

	settings := loadSettings(logger)

	cfg := menu.Config{
		Screen:   menu.NewScreen(menu.DefaultToken),
		Renderer: menu.NewRenderer(settings),
		Logger:   logger,
	}
	if dsp := display.NewManager(logger); dsp != nil {
		cfg.Monitor = dsp
	}
	dispatcher := menu.NewDispatcher(cfg)

	serialer := machine.Serial // USB CDC Serial
	mainSerial := serial.NewSerial(serialer, dispatcher, settings.GetMenuVersion(), logger)
	dispatcher.Initialize(&mainSerial)

	go mainSerial.Handle()

	// Block main goroutine to keep program running
	select {}
}

// newDiagLogger returns a logger on the diagnostics UART, or a silent one
// if the UART can't be configured.
func newDiagLogger() *log.Logger {
	uart := machine.UART0
	if err := uart.Configure(machine.UARTConfig{
		BaudRate: diagBaud,
		TX:       diagTX,
		RX:       diagRX,
	}); err != nil {
		return log.New(io.Discard, "", 0)
	}
	return log.New(uart, "", 0)
}

// loadSettings reads menu settings from flash, falling back to defaults if
// the filesystem can't be used.
func loadSettings(logger *log.Logger) config.MenuSettings {
	mgr, err := storage.New(machine.Flash, true)
	if err != nil {
		logger.Printf("storage unavailable: %v", err)
		return config.DefaultSettings()
	}
	defer mgr.Close()

	settings, err := mgr.LoadOrDefault()
	if err != nil {
		logger.Printf("settings: %v", err)
	}

	if stats, err := mgr.GetStats(); err == nil {
		logger.Printf("storage: %d of %d bytes used, settings saved: %t",
			stats.UsedSpace, stats.TotalSpace, stats.HasSettings)
	}
	return settings
}
