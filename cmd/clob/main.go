// Command clob runs a single-symbol central limit order book as a TCP
// daemon: parse flags, build a logger, construct the matching engine, wire
// the TCP server as its trade reporter, and block on context cancellation.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"clob/internal/common"
	"clob/internal/matchingengine"
	"clob/internal/server"
)

func main() {
	address := flag.String("address", "0.0.0.0", "address to listen on")
	port := flag.Int("port", 9001, "port to listen on")
	logLevel := flag.String("log-level", "info", "zerolog level: debug, info, warn, error")
	debugInvariants := flag.Bool("debug", false, "assert order book invariants after every public call")
	flag.Parse()

	level, err := zerolog.ParseLevel(*logLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
		Level(level).
		With().
		Timestamp().
		Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	eng := matchingengine.New(common.Equities)
	eng.Book().SetDebugInvariants(*debugInvariants)

	srv := server.New(*address, *port, eng)
	eng.SetReporter(srv)

	go srv.Run(ctx)

	<-ctx.Done()
}
