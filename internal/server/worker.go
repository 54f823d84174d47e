package server

import (
	"net"

	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"
)

const taskChanSize = 100

// workerFunc handles one accepted connection to completion.
type workerFunc = func(t *tomb.Tomb, conn net.Conn) error

// workerPool is a small supervised pool of connection handlers: setup
// keeps topping the pool up to n active workers, each of which handles
// exactly one task off the channel before exiting (so a handler that
// errors doesn't wedge the slot).
type workerPool struct {
	n     int
	tasks chan net.Conn
	work  workerFunc
}

func newWorkerPool(n int) workerPool {
	return workerPool{tasks: make(chan net.Conn, taskChanSize), n: n}
}

func (p *workerPool) addTask(conn net.Conn) {
	p.tasks <- conn
}

// setup maintains a full pool of workers until t starts dying.
func (p *workerPool) setup(t *tomb.Tomb) {
	log.Info().Int("workers", p.n).Msg("adding connection workers")
	active := 0
	for {
		select {
		case <-t.Dying():
			return
		default:
			if active < p.n {
				t.Go(func() error {
					err := p.worker(t)
					active--
					return err
				})
				active++
			}
		}
	}
}

func (p *workerPool) worker(t *tomb.Tomb) error {
	select {
	case <-t.Dying():
		return nil
	case conn := <-p.tasks:
		if err := p.work(t, conn); err != nil {
			log.Error().Err(err).Msg("connection worker exiting")
			return err
		}
	}
	return nil
}
