package orbit

/*------------------------------------------------------------------
 *
 * Purpose:	TCP acceptor.
 *
 * Description:	Binds (host, port) and accepts clients; each accepted
 *		connection is handed to its own handler goroutine with a
 *		fresh mailbox from the broadcaster.
 *
 *		net.Listen plus SO_REUSEADDR via the raw fd so a restart
 *		doesn't hit "address already in use", then a loop that
 *		accepts and hands the connection off to a per-client
 *		goroutine. No cap on concurrent clients.
 *
 *------------------------------------------------------------------*/

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"syscall"

	"github.com/charmbracelet/log"
)

// Server accepts TCP clients and spawns a ConnectionHandler for each.
type Server struct {
	listener    net.Listener
	broadcaster *Broadcaster
	keepalive   KeepaliveConfig

	mu      sync.Mutex
	handles []*ConnectionHandler

	logger *log.Logger
}

// KeepaliveConfig bundles the connection-handler timing constants so tests can shrink them without touching production defaults.
type KeepaliveConfig struct {
	PingTimeout  float64 // seconds
	PollInterval float64 // seconds, cooperative yield between FSM iterations
}

// DefaultKeepaliveConfig is the literal 10 second ping_timeout.
func DefaultKeepaliveConfig() KeepaliveConfig {
	return KeepaliveConfig{PingTimeout: 10, PollInterval: 0.02}
}

// NewServer binds host:port. SO_REUSEADDR is set on the listening socket
// so a restarted orchestrator does not hit "address already in use" for a
// lingering TIME_WAIT socket.
func NewServer(host string, port int, broadcaster *Broadcaster, keepalive KeepaliveConfig) (*Server, error) {
	listener, err := net.Listen("tcp", fmt.Sprintf("%s:%d", host, port))
	if err != nil {
		return nil, fmt.Errorf("orbit: listening on %s:%d: %w", host, port, err)
	}

	if tcpListener, ok := listener.(*net.TCPListener); ok {
		if file, ferr := tcpListener.File(); ferr == nil {
			_ = syscall.SetsockoptInt(int(file.Fd()), syscall.SOL_SOCKET, syscall.SO_REUSEADDR, 1)
			_ = file.Close()
		}
	}

	return &Server{
		listener:    listener,
		broadcaster: broadcaster,
		keepalive:   keepalive,
		logger:      log.With("component", "tcp-server"),
	}, nil
}

// Addr returns the bound address, useful for tests that bind to port 0.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// Serve accepts connections until the listener is closed. It returns nil
// when Close causes Accept to fail, and any other error otherwise.
func (s *Server) Serve() error {
	s.logger.Info("accepting connections", "addr", s.listener.Addr())
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("orbit: accept failed: %w", err)
		}

		handler := NewConnectionHandler(conn, s.broadcaster.Subscribe(), s.broadcaster, s.keepalive)
		s.mu.Lock()
		s.handles = append(s.handles, handler)
		s.mu.Unlock()

		go handler.Run()
	}
}

// Close stops accepting new connections. In-flight handlers run to their
// own completion.
func (s *Server) Close() error {
	return s.listener.Close()
}
