// Package server is the TCP front end that drives the single-threaded
// matching core from one serialized command stream: the core itself takes
// no locks and assumes a single caller, so every accepted client command
// is funneled through one channel and applied by one goroutine
// (sessionHandler) before the next is considered.
package server

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"

	"clob/internal/matchingengine"
	"clob/internal/protocol"
)

const (
	defaultNWorkers    = 10
	defaultConnTimeout = 30 * time.Second
)

// clientCommand links a parsed command to the connection that sent it, so
// the single session-handling goroutine can reply once it has applied the
// command to the book.
type clientCommand struct {
	conn net.Conn
	cmd  protocol.Command
}

// Server accepts TCP connections, parses one line-protocol command per
// line, and applies them one at a time to a matchingengine.Engine.
type Server struct {
	address string
	port    int
	engine  *matchingengine.Engine

	pool   workerPool
	cancel context.CancelFunc

	sessionsMu sync.Mutex
	sessions   map[string]net.Conn
	// orderOwner tracks which connection placed a given resting order id,
	// so ReportTrade can route a FILL line to the right client.
	orderOwner map[uint64]net.Conn

	commands chan clientCommand
}

// New constructs a Server bound to address:port, driving engine.
func New(address string, port int, engine *matchingengine.Engine) *Server {
	return &Server{
		address:    address,
		port:       port,
		engine:     engine,
		pool:       newWorkerPool(defaultNWorkers),
		sessions:   make(map[string]net.Conn),
		orderOwner: make(map[uint64]net.Conn),
		commands:   make(chan clientCommand, defaultNWorkers),
	}
}

// Shutdown stops accepting connections and cancels the run context.
func (s *Server) Shutdown() {
	log.Info().Msg("server shutting down")
	if s.cancel != nil {
		s.cancel()
	}
}

// Run listens for connections and drives the command pipeline until ctx is
// canceled. It blocks; callers typically invoke it in a goroutine.
func (s *Server) Run(ctx context.Context) {
	defer s.Shutdown()
	ctx, s.cancel = context.WithCancel(ctx)
	t, ctx := tomb.WithContext(ctx)

	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", fmt.Sprintf("%s:%d", s.address, s.port))
	if err != nil {
		log.Error().Err(err).Msg("unable to start listener")
		return
	}
	defer func() {
		if err := listener.Close(); err != nil {
			log.Error().Err(err).Msg("unable to close listener")
		}
	}()

	s.pool.work = s.handleConnection
	t.Go(func() error {
		s.pool.setup(t)
		return nil
	})
	t.Go(func() error {
		return s.sessionHandler(t)
	})

	log.Info().Str("address", listener.Addr().String()).Msg("order book server listening")

	for {
		select {
		case <-ctx.Done():
			return
		default:
			conn, err := listener.Accept()
			if err != nil {
				select {
				case <-ctx.Done():
					return
				default:
					log.Error().Err(err).Msg("error accepting client")
					continue
				}
			}
			log.Info().Str("address", conn.RemoteAddr().String()).Msg("new client connected")
			s.addSession(conn)
			s.pool.addTask(conn)
		}
	}
}

// sessionHandler is the single goroutine allowed to mutate the engine's
// book: it drains parsed commands and applies them one at a time, exactly
// the non-reentrancy the core requires.
func (s *Server) sessionHandler(t *tomb.Tomb) error {
	for {
		select {
		case <-t.Dying():
			return nil
		case cc := <-s.commands:
			s.apply(cc)
		}
	}
}

// handleConnection reads and parses exactly one command line, forwards it
// to sessionHandler, and (if the read succeeded) re-queues the connection
// so the pool continues reading its next line. A read error or EOF drops
// the session.
func (s *Server) handleConnection(t *tomb.Tomb, conn net.Conn) error {
	conn.SetReadDeadline(time.Now().Add(defaultConnTimeout))

	// Read byte by byte so nothing past the newline is consumed: the next
	// line stays on the socket for the next worker that picks up conn.
	var line []byte
	b := make([]byte, 1)
	for {
		n, err := conn.Read(b)
		if n == 1 {
			if b[0] == '\n' {
				break
			}
			line = append(line, b[0])
		}
		if err != nil {
			s.removeSession(conn)
			return nil
		}
	}

	cmd, err := protocol.ParseCommand(string(line))
	if err != nil {
		fmt.Fprintln(conn, protocol.ErrLine(err))
		s.pool.addTask(conn)
		return nil
	}

	select {
	case <-t.Dying():
		return nil
	case s.commands <- clientCommand{conn: conn, cmd: cmd}:
	}
	s.pool.addTask(conn)
	return nil
}

// apply executes one already-parsed command against the engine and writes
// its report line back to the originating connection.
func (s *Server) apply(cc clientCommand) {
	conn, cmd := cc.conn, cc.cmd

	switch cmd.Verb {
	case protocol.VerbPing:
		fmt.Fprintln(conn, protocol.PongLine())

	case protocol.VerbBestBid:
		price, ok := s.engine.Book().BestBid()
		fmt.Fprintln(conn, protocol.PriceLine(price, ok))

	case protocol.VerbBestAsk:
		price, ok := s.engine.Book().BestAsk()
		fmt.Fprintln(conn, protocol.PriceLine(price, ok))

	case protocol.VerbDepth:
		count, shares, ok := s.engine.Book().DepthAt(cmd.Side, cmd.Price)
		fmt.Fprintln(conn, protocol.DepthLine(count, shares, ok))

	case protocol.VerbLimit:
		_, err := s.engine.PlaceLimit(cmd.ID, cmd.Side, cmd.Price, cmd.Shares, cmd.TIF)
		s.reply(conn, cmd.ID, err)

	case protocol.VerbMarket:
		_, _, err := s.engine.PlaceMarket(cmd.Side, cmd.Shares)
		if err != nil {
			fmt.Fprintln(conn, protocol.ErrLine(err))
		}

	case protocol.VerbStop:
		_, err := s.engine.PlaceStop(cmd.ID, cmd.Side, cmd.Price, cmd.Shares, cmd.TIF)
		s.reply(conn, cmd.ID, err)

	case protocol.VerbCancel:
		err := s.engine.Cancel(cmd.ID)
		if err != nil {
			fmt.Fprintln(conn, protocol.ErrLine(err))
			return
		}
		s.forgetOwner(cmd.ID)
		fmt.Fprintln(conn, protocol.RestLine(cmd.ID))

	case protocol.VerbAmend:
		_, err := s.engine.Amend(cmd.ID, cmd.Shares, cmd.NewPrice)
		s.reply(conn, cmd.ID, err)
	}
}

func (s *Server) reply(conn net.Conn, id uint64, err error) {
	if err != nil {
		fmt.Fprintln(conn, protocol.ErrLine(err))
		return
	}
	s.setOwner(id, conn)
	fmt.Fprintln(conn, protocol.RestLine(id))
}

// ReportTrade implements matchingengine.Reporter: it writes a FILL line to
// whichever connected client owns each side of the trade, if any (a
// counterparty may be a synthetic market-order id with no owner, or may
// already have disconnected).
func (s *Server) ReportTrade(evt matchingengine.TradeEvent) {
	s.sessionsMu.Lock()
	maker, makerOk := s.orderOwner[evt.MakerOrderID]
	taker, takerOk := s.orderOwner[evt.TakerOrderID]
	s.sessionsMu.Unlock()

	line := protocol.FillLine(uuid.New(), evt)
	if makerOk {
		fmt.Fprintln(maker, line)
	}
	if takerOk {
		fmt.Fprintln(taker, line)
	}
}

func (s *Server) addSession(conn net.Conn) {
	s.sessionsMu.Lock()
	defer s.sessionsMu.Unlock()
	s.sessions[conn.RemoteAddr().String()] = conn
}

func (s *Server) removeSession(conn net.Conn) {
	s.sessionsMu.Lock()
	defer s.sessionsMu.Unlock()
	delete(s.sessions, conn.RemoteAddr().String())
	conn.Close()
}

func (s *Server) setOwner(id uint64, conn net.Conn) {
	s.sessionsMu.Lock()
	defer s.sessionsMu.Unlock()
	s.orderOwner[id] = conn
}

func (s *Server) forgetOwner(id uint64) {
	s.sessionsMu.Lock()
	defer s.sessionsMu.Unlock()
	delete(s.orderOwner, id)
}
