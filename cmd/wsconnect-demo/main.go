// File: cmd/wsconnect-demo/main.go
// Author: momentics <momentics@gmail.com>
//
// A minimal command-line driver for the client package: dial one endpoint,
// send a text frame, print the connection state before and after a short
// wait, and shut down cleanly on SIGINT. Inbound frames are not printed. Grounded on examples/echo/main.go's signal.NotifyContext
// shutdown shape, adapted from a raw net.Listener loop to a single
// supervised Client connection.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/momentics/wsconnect/api"
	"github.com/momentics/wsconnect/behavior"
	"github.com/momentics/wsconnect/client"
	"github.com/momentics/wsconnect/ratelimit"
)

func main() {
	addr := flag.String("addr", "localhost:9001", "host:port of the WebSocket endpoint")
	path := flag.String("path", "/", "request path")
	tls := flag.Bool("tls", false, "use wss instead of ws")
	message := flag.String("message", "hello", "text frame to send once connected")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	endpoint, err := parseEndpoint(*addr, *path, *tls)
	if err != nil {
		log.Fatalf("invalid endpoint: %v", err)
	}

	c, err := client.Open(client.ConnectionOptions{
		Endpoints: []api.Endpoint{endpoint},
		Transport: endpoint.Transport,
		RateLimit: ratelimit.Config{Mode: ratelimit.ModeAlwaysAllow},
		Handlers: api.HandlerSet{
			Logging: behavior.DefaultLoggingHandler{},
			Metrics: behavior.NewDefaultMetricsCollector(nil),
		},
	})
	if err != nil {
		log.Fatalf("open failed: %v", err)
	}
	defer c.Close()

	fmt.Printf("connected: id=%s state=%s\n", c.ID(), c.ConnState())

	if err := c.SendFrame(api.Frame{Type: api.FrameText, Data: []byte(*message)}); err != nil {
		log.Fatalf("send_frame failed: %v", err)
	}
	fmt.Printf("sent: %q\n", *message)

	select {
	case <-ctx.Done():
	case <-time.After(2 * time.Second):
	}

	fmt.Printf("final state: %s\n", c.ConnState())
}

func parseEndpoint(addr, path string, useTLS bool) (api.Endpoint, error) {
	idx := strings.LastIndex(addr, ":")
	if idx < 0 {
		return api.Endpoint{}, fmt.Errorf("expected host:port, got %q", addr)
	}
	host, portStr := addr[:idx], addr[idx+1:]
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return api.Endpoint{}, fmt.Errorf("bad port in %q: %w", addr, err)
	}

	transport := api.TransportPlaintext
	if useTLS {
		transport = api.TransportTLS
	}
	return api.Endpoint{Host: host, Port: port, Path: path, Transport: transport}, nil
}
