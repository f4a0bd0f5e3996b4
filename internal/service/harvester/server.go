package harvester

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"time"

	"PipFlow/internal/domain/models"
	applogger "PipFlow/pkg/logger"
)

// maxLineBytes bounds one ndjson frame; historical-candle batches are the
// largest frames the harvester sends.
const maxLineBytes = 4 << 20

// Server implements a FrameStream fed by the external harvester process.
// The harvester dials in over TCP and writes newline-delimited JSON
// frames; a new connection supersedes the previous one.
type Server struct {
	addr   string
	logger *applogger.Logger

	mu        sync.Mutex
	listener  net.Listener
	conn      net.Conn
	connected bool
	closed    bool

	frames chan models.Frame
	errs   chan error
}

// Option configures Server.
type Option func(*Server)

// WithLogger sets the structured logger.
func WithLogger(l *applogger.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// New creates a harvester listener bound to addr.
func New(addr string, opts ...Option) *Server {
	s := &Server{
		addr:   addr,
		frames: make(chan models.Frame, 4096),
		errs:   make(chan error, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Listen binds the TCP socket and starts accepting harvester connections.
func (s *Server) Listen(ctx context.Context) error {
	ln, err := new(net.ListenConfig).Listen(ctx, "tcp", s.addr)
	if err != nil {
		return fmt.Errorf("harvester listen %s: %w", s.addr, err)
	}
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()
	if s.logger != nil {
		s.logger.Info("harvester listener started", applogger.String("addr", s.addr))
	}

	go s.acceptLoop(ctx)
	return nil
}

// Read exposes the decoded frame stream. Both channels close when the
// server shuts down.
func (s *Server) Read(ctx context.Context) (<-chan models.Frame, <-chan error) {
	return s.frames, s.errs
}

// IsConnected reports whether a harvester connection is active.
func (s *Server) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

// Close shuts the listener and any active connection.
func (s *Server) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	ln := s.listener
	conn := s.conn
	s.mu.Unlock()

	var err error
	if ln != nil {
		err = ln.Close()
	}
	if conn != nil {
		conn.Close()
	}
	return err
}

func (s *Server) acceptLoop(ctx context.Context) {
	var wg sync.WaitGroup
	defer func() {
		wg.Wait()
		close(s.frames)
		close(s.errs)
	}()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			s.mu.Lock()
			closed := s.closed
			s.mu.Unlock()
			if closed || ctx.Err() != nil {
				return
			}
			select {
			case s.errs <- fmt.Errorf("harvester accept: %w", err):
			default:
			}
			time.Sleep(time.Second)
			continue
		}

		s.mu.Lock()
		if s.conn != nil {
			// the harvester reconnected, the old session is dead
			s.conn.Close()
		}
		s.conn = conn
		s.connected = true
		s.mu.Unlock()
		if s.logger != nil {
			s.logger.Info("harvester connected", applogger.String("remote", conn.RemoteAddr().String()))
		}

		wg.Add(1)
		go func(conn net.Conn) {
			defer wg.Done()
			s.readConn(ctx, conn)

			s.mu.Lock()
			if s.conn == conn {
				s.conn = nil
				s.connected = false
			}
			s.mu.Unlock()
			if s.logger != nil {
				s.logger.Info("harvester disconnected", applogger.String("remote", conn.RemoteAddr().String()))
			}
		}(conn)
	}
}

func (s *Server) readConn(ctx context.Context, conn net.Conn) {
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var f models.Frame
		if err := json.Unmarshal(line, &f); err != nil {
			if s.logger != nil {
				s.logger.Warn("harvester frame malformed", applogger.Error(err))
			}
			continue
		}
		if f.Type == "" {
			continue
		}
		select {
		case s.frames <- f:
		case <-ctx.Done():
			return
		default:
			// consumer stalled, shedding is safer than blocking the
			// read loop behind a dead downstream
			if s.logger != nil {
				s.logger.Warn("harvester frame dropped", applogger.String("type", f.Type))
			}
		}
	}
	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		select {
		case s.errs <- fmt.Errorf("harvester read: %w", err):
		default:
		}
	}
}
