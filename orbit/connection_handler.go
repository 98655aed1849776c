package orbit

/*------------------------------------------------------------------
 *
 * Purpose:	Per-connection framed protocol state machine with
 *		timeout-based keepalive.
 *
 * Description:	Each connection cooperatively polls its socket (non-
 *		blocking read via a short deadline) and its mailbox
 *		(non-blocking pop), lexes any buffered input against
 *		`^(?:[^S]*)(?:S(.*?)E)?`, and tracks the client-driven
 *		keepalive: the connection is closed if no `SOKE` frame
 *		arrives within ping_timeout seconds of the last one.
 *
 *		This implements a push-whenever-available model plus
 *		client-driven keepalive, not a client-request/server-response
 *		model.
 *
 *------------------------------------------------------------------*/

import (
	"errors"
	"fmt"
	"net"
	"regexp"
	"time"

	"github.com/charmbracelet/log"
)

// frameLexer matches a "zero-or-one frame" grammar: drop leading
// garbage before the first 'S', then optionally capture one
// S...E payload. It never fails to match (the whole expression is
// optional), so the handler always makes progress advancing past
// whatever is consumed.
var frameLexer = regexp.MustCompile(`^(?:[^S]*)(?:S(.*?)E)?`)

const readChunkSize = 64

// ConnectionHandler owns one client connection's FSM.
type ConnectionHandler struct {
	conn        net.Conn
	mailbox     *Mailbox
	broadcaster *Broadcaster
	keepalive   KeepaliveConfig

	buf       []byte
	lastOKAt  time.Time
	logger    *log.Logger
}

// NewConnectionHandler builds a handler for an accepted connection,
// already subscribed to mailbox.
func NewConnectionHandler(conn net.Conn, mailbox *Mailbox, broadcaster *Broadcaster, keepalive KeepaliveConfig) *ConnectionHandler {
	return &ConnectionHandler{
		conn:        conn,
		mailbox:     mailbox,
		broadcaster: broadcaster,
		keepalive:   keepalive,
		lastOKAt:    walltime(),
		logger:      log.With("component", "connection-handler", "remote", conn.RemoteAddr()),
	}
}

// walltime exists only so tests can't accidentally depend on wall-clock
// jitter in this file's own logic; it is a direct time.Now() today.
func walltime() time.Time { return time.Now() }

// Run executes the FSM until the connection closes or times out, then
// tears down the socket and mailbox.
func (h *ConnectionHandler) Run() {
	h.logWithTimestamp("connection established")
	defer h.teardown()

	for {
		if !h.step() {
			return
		}
	}
}

// step runs one cooperative iteration of the handler's read/drain/lex/
// keepalive cycle, returning false when the handler should exit.
func (h *ConnectionHandler) step() bool {
	ok, readErr := h.tryRead()
	if readErr != nil {
		h.logger.Error("read failed", "err", readErr)
		return false
	}
	if !ok {
		// Peer closed (EOF with zero bytes): exit per step 1.
		return false
	}

	if !h.drainMailbox() {
		return false
	}

	h.lexInput()

	if walltime().After(h.lastOKAt.Add(time.Duration(h.keepalive.PingTimeout * float64(time.Second)))) {
		h.logger.Info("keepalive timeout, closing connection")
		return false
	}

	time.Sleep(time.Duration(h.keepalive.PollInterval * float64(time.Second)))
	return true
}

// tryRead attempts a non-blocking read of up to readChunkSize bytes,
// implemented with a short read deadline since net.Conn has no portable
// would-block mode. Returns (true, nil) whether or not bytes were read;
// only a genuine peer close or I/O error returns a non-continuable result.
func (h *ConnectionHandler) tryRead() (bool, error) {
	_ = h.conn.SetReadDeadline(walltime().Add(1 * time.Millisecond))

	chunk := make([]byte, readChunkSize)
	n, err := h.conn.Read(chunk)
	if n > 0 {
		h.buf = append(h.buf, chunk[:n]...)
	}
	if err == nil {
		return true, nil
	}
	if errors.Is(err, net.ErrClosed) {
		return false, nil
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		// Would-block: no data available this iteration, not an error.
		return true, nil
	}
	if err.Error() == "EOF" {
		return false, nil
	}
	return false, err
}

// drainMailbox pops at most one pending result and writes it to the
// socket as an `S{rps}:{direction}E` frame.
func (h *ConnectionHandler) drainMailbox() bool {
	result, ok := h.mailbox.Pop()
	if !ok {
		return true
	}
	frame := fmt.Sprintf("S%g:%dE", result.RPS, result.Direction)
	if _, err := h.conn.Write([]byte(frame)); err != nil {
		h.logger.Error("write failed", "err", err)
		return false
	}
	return true
}

// lexInput scans for one `S...E` frame, discards leading garbage plus
// the matched frame from the buffer, and bumps lastOKAt when the payload
// is exactly "OK".
func (h *ConnectionHandler) lexInput() {
	if len(h.buf) == 0 {
		return
	}
	loc := frameLexer.FindSubmatchIndex(h.buf)
	if loc == nil {
		return
	}
	consumed := loc[1]
	var payload []byte
	if loc[2] >= 0 && loc[3] >= 0 {
		payload = h.buf[loc[2]:loc[3]]
	}
	if consumed > 0 {
		h.buf = append([]byte(nil), h.buf[consumed:]...)
	}
	if string(payload) == "OK" {
		h.lastOKAt = walltime()
	}
}

func (h *ConnectionHandler) teardown() {
	_ = h.conn.Close()
	h.broadcaster.Unsubscribe(h.mailbox)
	h.logWithTimestamp("connection closed")
}

// logWithTimestamp attaches the operator-configured strftime prefix
// (--log-timestamp-format), if any, to a connection lifecycle log line.
func (h *ConnectionHandler) logWithTimestamp(msg string) {
	if prefix := connectionTimestampPrefix(walltime()); prefix != "" {
		h.logger.Info(msg, "ts", prefix)
		return
	}
	h.logger.Info(msg)
}
