package transport

import (
	"errors"
	"net"
	"strconv"
	"sync"

	"github.com/JacobBorden/SimpliDFS-sub000/pkg/log"
	"github.com/JacobBorden/SimpliDFS-sub000/pkg/metrics"
	"github.com/JacobBorden/SimpliDFS-sub000/pkg/types"
	"github.com/rs/zerolog"
)

// Handler processes one request payload and returns the response payload to
// send back on the same connection.
type Handler func(conn *Conn, req types.Payload) types.Payload

// Server accepts connections on a listener and serves each on its own
// goroutine until Shutdown is called.
type Server struct {
	handler Handler
	logger  zerolog.Logger

	mu       sync.Mutex
	listener net.Listener
	wg       sync.WaitGroup
	closing  bool
	clients  map[*Conn]struct{}
}

// NewServer creates a Server that dispatches every received payload to
// handler.
func NewServer(handler Handler) *Server {
	return &Server{
		handler: handler,
		logger:  log.WithComponent("transport-server"),
		clients: make(map[*Conn]struct{}),
	}
}

// Serve accepts connections on lis until Shutdown is called, blocking the
// caller. Each connection is handled on its own goroutine.
func (s *Server) Serve(lis net.Listener) error {
	s.mu.Lock()
	s.listener = lis
	s.mu.Unlock()

	for {
		nc, err := lis.Accept()
		if err != nil {
			s.mu.Lock()
			closing := s.closing
			s.mu.Unlock()
			if closing {
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			s.logger.Error().Err(err).Msg("accept failed")
			continue
		}

		conn := NewConn(nc)
		s.mu.Lock()
		s.clients[conn] = struct{}{}
		s.mu.Unlock()

		s.wg.Add(1)
		go s.serveConn(conn)
	}
}

func (s *Server) serveConn(conn *Conn) {
	defer s.wg.Done()
	defer conn.Close()
	defer func() {
		s.mu.Lock()
		delete(s.clients, conn)
		s.mu.Unlock()
	}()

	for {
		req, ok, err := conn.ReceivePayload()
		if err != nil {
			s.logger.Warn().Err(err).Str("remote", conn.RemoteAddr().String()).Msg("frame read failed")
			return
		}
		if !ok {
			return
		}

		timer := metrics.NewTimer()
		resp := s.handler(conn, req)
		timer.ObserveDurationVec(metrics.RequestDuration, req.Type.String())
		metrics.RequestsTotal.WithLabelValues(req.Type.String(), strconv.Itoa(resp.ErrorCode)).Inc()

		if err := conn.SendPayload(resp); err != nil {
			s.logger.Warn().Err(err).Str("remote", conn.RemoteAddr().String()).Msg("frame write failed")
			return
		}
	}
}

// Shutdown closes the listener, asks every recorded client connection to
// shut down, and does not return until every serveConn goroutine has
// exited. A client idling in ReceivePayload's blocking read would
// otherwise hold wg.Wait() open forever, since Accept being refused
// stops new connections but does nothing for ones already established.
func (s *Server) Shutdown() {
	s.mu.Lock()
	s.closing = true
	lis := s.listener
	clients := make([]*Conn, 0, len(s.clients))
	for c := range s.clients {
		clients = append(clients, c)
	}
	s.mu.Unlock()

	if lis != nil {
		lis.Close()
	}
	for _, c := range clients {
		c.Close()
	}
	s.wg.Wait()
}
