// Package tcpserver implements the raw wire-protocol listener of spec
// §6: a plain TCP accept loop, one goroutine per connection, each
// connection reading and replying to a stream of {action, data} JSON
// objects until the peer disconnects. Grounded in
// original_source/server/charge_server.py's ChargeServer, which runs
// the same accept-loop-plus-per-connection-thread shape over a raw
// socket with no framing beyond "accumulate bytes until they parse as
// JSON".
package tcpserver

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/evstation/charge-station/internal/adapter/router"
)

// Server accepts connections on a single TCP listener and dispatches
// every decoded request through router.Router. It tracks open
// connections so Shutdown can wait for them to drain.
type Server struct {
	addr         string
	rt           *router.Router
	log          *zap.Logger
	readTimeout  time.Duration
	writeTimeout time.Duration

	mu       sync.Mutex
	listener net.Listener
	conns    map[net.Conn]struct{}
	wg       sync.WaitGroup
}

// New builds a Server. A zero readTimeout/writeTimeout disables the
// corresponding per-read/write deadline.
func New(addr string, rt *router.Router, readTimeout, writeTimeout time.Duration, log *zap.Logger) *Server {
	return &Server{
		addr:         addr,
		rt:           rt,
		log:          log,
		readTimeout:  readTimeout,
		writeTimeout: writeTimeout,
		conns:        make(map[net.Conn]struct{}),
	}
}

// ListenAndServe binds addr and accepts connections until ctx is
// cancelled or Shutdown is called. It blocks until the accept loop
// exits.
func (s *Server) ListenAndServe(ctx context.Context) error {
	lis, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.listener = lis
	s.mu.Unlock()

	s.log.Info("tcp server listening", zap.String("addr", s.addr))

	go func() {
		<-ctx.Done()
		lis.Close()
	}()

	for {
		conn, err := lis.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				s.wg.Wait()
				return nil
			default:
				s.log.Warn("accept failed", zap.Error(err))
				return err
			}
		}

		s.trackConn(conn)
		s.wg.Add(1)
		go s.handle(conn)
	}
}

// Shutdown closes the listener and every tracked connection, then
// waits for their handler goroutines to drain, subject to ctx.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if s.listener != nil {
		s.listener.Close()
	}
	for c := range s.conns {
		c.Close()
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Server) trackConn(c net.Conn) {
	s.mu.Lock()
	s.conns[c] = struct{}{}
	s.mu.Unlock()
}

func (s *Server) untrackConn(c net.Conn) {
	s.mu.Lock()
	delete(s.conns, c)
	s.mu.Unlock()
}

// handle services one connection: it loops reading a request,
// dispatching it, and writing the response, until the peer closes the
// socket or a read/write error occurs.
func (s *Server) handle(conn net.Conn) {
	defer s.wg.Done()
	defer s.untrackConn(conn)
	defer conn.Close()

	addr := conn.RemoteAddr().String()
	reader := bufio.NewReader(conn)

	for {
		req, err := s.readRequest(conn, reader)
		if err != nil {
			if !errors.Is(err, io.EOF) {
				s.log.Debug("connection closed", zap.String("addr", addr), zap.Error(err))
			}
			return
		}

		resp := s.rt.Dispatch(context.Background(), req)

		if s.writeTimeout > 0 {
			conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
		}
		body, err := json.Marshal(resp)
		if err != nil {
			s.log.Error("failed to marshal response", zap.Error(err))
			return
		}
		if _, err := conn.Write(body); err != nil {
			s.log.Debug("write failed", zap.String("addr", addr), zap.Error(err))
			return
		}
	}
}

// readRequest accumulates bytes off conn until they parse as a
// complete {action, data} JSON object, mirroring the Python server's
// "keep recv()-ing until json.loads succeeds" framing. Each read is
// bounded by the server's read timeout so a peer that stops sending
// mid-message does not pin a goroutine forever.
func (s *Server) readRequest(conn net.Conn, reader *bufio.Reader) (router.Request, error) {
	var buf []byte
	for {
		if s.readTimeout > 0 {
			conn.SetReadDeadline(time.Now().Add(s.readTimeout))
		}

		b, err := reader.ReadByte()
		if err != nil {
			return router.Request{}, err
		}
		buf = append(buf, b)

		var req router.Request
		if json.Unmarshal(buf, &req) == nil {
			return req, nil
		}
	}
}
