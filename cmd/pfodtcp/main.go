// Command pfodtcp serves the pfod main menu over TCP.
package main

import (
	"flag"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/tuffrabit/tinygo-pfod-menu/pkg/config"
	"github.com/tuffrabit/tinygo-pfod-menu/pkg/menu"
	"github.com/tuffrabit/tinygo-pfod-menu/pkg/netserver"
)

func main() {
	addr := flag.String("addr", ":4989", "TCP listen address")
	version := flag.String("version", config.DefaultMenuVersion, "menu version clients cache against")
	refresh := flag.Uint("refresh", 0, "client refresh interval in ms, 0 disables")
	bg := flag.String("bg", string(rune(config.DefaultBackground)), "menu background colour code")
	token := flag.String("token", string(rune(menu.DefaultToken)), "item token of the main screen")
	quiet := flag.Bool("quiet", false, "disable logging")
	flag.Parse()

	logger := log.New(os.Stderr, "", log.LstdFlags)
	if *quiet {
		logger.SetOutput(io.Discard)
	}

	settings := config.DefaultSettings()
	settings.SetMenuVersion(*version)
	settings.RefreshMs = uint32(*refresh)
	if len(*bg) != 1 || len(*token) != 1 {
		log.Fatalf("-bg and -token must be single characters")
	}
	settings.Background = (*bg)[0]
	if err := settings.Validate(); err != nil {
		log.Fatalf("invalid settings: %v", err)
	}

	dispatcher := menu.NewDispatcher(menu.Config{
		Screen:   menu.NewScreen((*token)[0]),
		Renderer: menu.NewRenderer(settings),
		Logger:   logger,
	})

	srv, err := netserver.NewServer(*addr, dispatcher, netserver.Options{
		Version: settings.GetMenuVersion(),
		Logger:  logger,
	})
	if err != nil {
		log.Fatal(err)
	}
	dispatcher.Initialize(srv)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Printf("[server] Shutting down")
		srv.Close()
	}()

	if err := srv.Serve(); err != nil {
		log.Fatal(err)
	}
}
