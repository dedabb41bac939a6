// Command pfodcli is a line-oriented pfod client for poking at a menu server.
package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"time"
)

func main() {
	addr := flag.String("addr", "127.0.0.1:4989", "server address")
	version := flag.String("version", "V1", "cached menu version used by refresh and reload")
	timeout := flag.Duration("timeout", 5*time.Second, "dial and reply timeout")
	flag.Parse()

	conn, err := net.DialTimeout("tcp", *addr, *timeout)
	if err != nil {
		log.Fatalf("[client] %v", err)
	}
	defer conn.Close()

	replies := bufio.NewReader(conn)
	lines := bufio.NewScanner(os.Stdin)
	for lines.Scan() {
		req, err := translate(lines.Text(), *version)
		if errors.Is(err, errEmptyLine) {
			continue
		}
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			continue
		}

		if err := exchange(conn, replies, req, *timeout); err != nil {
			log.Fatalf("[client] %v", err)
		}
		if req.closes {
			return
		}
	}
}

// exchange sends one request and prints its reply.
func exchange(conn net.Conn, replies *bufio.Reader, req request, timeout time.Duration) error {
	if err := conn.SetDeadline(time.Now().Add(timeout)); err != nil {
		return err
	}
	if _, err := conn.Write([]byte(req.msg)); err != nil {
		return fmt.Errorf("send %s: %w", req.msg, err)
	}
	if !req.wantReply {
		return nil
	}

	reply, err := replies.ReadString('}')
	if err != nil {
		return fmt.Errorf("read reply to %s: %w", req.msg, err)
	}
	fmt.Println(reply)
	return nil
}
