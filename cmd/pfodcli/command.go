package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/shlex"

	"github.com/tuffrabit/tinygo-pfod-menu/pkg/protocol"
)

var (
	errEmptyLine = errors.New("empty line")
	errUsage     = errors.New("usage: menu | refresh | click TOKEN | reload TOKEN | close | ignore | raw MSG")
)

// request is one message to send, whether a reply is expected and whether
// the server hangs up after it.
type request struct {
	msg       string
	wantReply bool
	closes    bool
}

// translate turns a console line into a pfod request. version is the menu
// version the client claims to have cached for refreshes.
func translate(line, version string) (request, error) {
	words, err := shlex.Split(line)
	if err != nil {
		return request{}, fmt.Errorf("parse %q: %w", line, err)
	}
	if len(words) == 0 {
		return request{}, errEmptyLine
	}

	arg := func() (string, error) {
		if len(words) != 2 || words[1] == "" {
			return "", errUsage
		}
		return words[1], nil
	}

	switch strings.ToLower(words[0]) {
	case "menu":
		return request{msg: "{.}", wantReply: true}, nil
	case "refresh":
		return request{msg: "{" + version + ":.}", wantReply: true}, nil
	case "click":
		tok, err := arg()
		if err != nil {
			return request{}, err
		}
		return request{msg: "{" + tok + "}", wantReply: true}, nil
	case "reload":
		tok, err := arg()
		if err != nil {
			return request{}, err
		}
		return request{msg: "{" + version + ":" + tok + "}", wantReply: true}, nil
	case "close":
		return request{msg: "{!}", closes: true}, nil
	case "ignore":
		return request{msg: "{@}", wantReply: true}, nil
	case "raw":
		msg, err := arg()
		if err != nil {
			return request{}, err
		}
		cmd := firstCommand(msg)
		return request{
			msg:       msg,
			wantReply: cmd != 0 && cmd != protocol.CmdClose,
			closes:    cmd == protocol.CmdClose,
		}, nil
	default:
		return request{}, errUsage
	}
}

// firstCommand returns the first command byte the server will act on in
// msg, or 0 if msg holds no complete command. The server sends nothing back
// for such a message.
func firstCommand(msg string) byte {
	p := protocol.NewParser(struct {
		io.ByteReader
		io.Writer
	}{strings.NewReader(msg), io.Discard}, "")

	for {
		cmd := p.Parse()
		if p.Err() != nil {
			return 0
		}
		if cmd != 0 {
			return cmd
		}
	}
}
