package server

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 8192

	// Outbound buffer; a full buffer closes the connection.
	sendBufferSize = 256
)

var ErrConnectionClosed = websocket.ErrCloseSent

// Connection wraps one client WebSocket. Identity is attached after a
// successful login; everything else is keyed by the user id, never by the
// connection itself.
type Connection struct {
	conn   *websocket.Conn
	send   chan response
	svc    *Service
	logger *log.Logger

	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once

	mu       sync.RWMutex
	userID   int64
	username string
}

// NewConnection wraps an upgraded websocket.
func NewConnection(conn *websocket.Conn, svc *Service, logger *log.Logger) *Connection {
	ctx, cancel := context.WithCancel(context.Background())
	return &Connection{
		conn:   conn,
		send:   make(chan response, sendBufferSize),
		svc:    svc,
		logger: logger.WithPrefix("conn"),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start begins the read and write pumps.
func (c *Connection) Start() {
	go c.writePump()
	go c.readPump()
}

// Close tears the connection down once.
func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.cancel()
		close(c.send)
		if c.conn != nil {
			err = c.conn.Close()
		}
	})
	return err
}

// Done is closed when the connection is torn down.
func (c *Connection) Done() <-chan struct{} {
	return c.ctx.Done()
}

// Send enqueues a message for the client. A full buffer means the client
// is not draining; the connection is closed rather than blocking a table.
func (c *Connection) Send(msg response) error {
	defer func() {
		if r := recover(); r != nil {
			// Send channel closed during shutdown.
			c.logger.Debug("send on closed connection", "error", r)
		}
	}()

	select {
	case c.send <- msg:
		return nil
	case <-c.ctx.Done():
		return c.ctx.Err()
	default:
		c.logger.Warn("send buffer full, closing connection", "user", c.UserID())
		_ = c.Close()
		return ErrConnectionClosed
	}
}

// setUser attaches the authenticated identity.
func (c *Connection) setUser(userID int64, username string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.userID = userID
	c.username = username
}

// UserID returns the logged-in user id, zero if unauthenticated.
func (c *Connection) UserID() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.userID
}

// Username returns the logged-in display name.
func (c *Connection) Username() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.username
}

func (c *Connection) readPump() {
	defer func() { _ = c.Close() }()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		var req Request
		if err := c.conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("websocket error", "error", err)
			}
			return
		}

		c.handleRequest(&req)
	}
}

func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				c.logger.Error("write failed", "error", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.ctx.Done():
			return
		}
	}
}

// handleRequest parses the action and dispatches. Every ActionKind has a
// case; new actions fail to compile into silence here only if someone
// forgets, which the unknown default turns into a client-visible error.
func (c *Connection) handleRequest(req *Request) {
	kind := req.Kind()
	c.logger.Debug("request", "action", req.ActionName(), "user", c.UserID())
	c.svc.metrics.MessagesTotal.WithLabelValues(req.ActionName()).Inc()

	if kind.RequiresAuth() && c.UserID() == 0 {
		c.Send(errorResponse(req.MessageID, "Not authenticated"))
		return
	}

	switch kind {
	case ActionRegister:
		c.handleRegister(req)
	case ActionLogin:
		c.handleLogin(req)
	case ActionPing:
		c.Send(newResponse("pong", req.MessageID))
	case ActionPong:
		// Application-level pong; the transport pong handler resets the
		// read deadline.
	case ActionGetWallet:
		c.handleGetWallet(req)
	case ActionWalletDeposit:
		c.handleWalletDeposit(req)
	case ActionCaptureDeposit:
		c.handleCaptureDeposit(req)
	case ActionCancelDeposit:
		c.handleCancelDeposit(req)
	case ActionWalletWithdraw:
		c.handleWalletWithdraw(req)
	case ActionGetTransactions:
		c.handleGetTransactions(req)
	case ActionGetCashTables:
		c.handleGetCashTables(req)
	case ActionJoinCashTable:
		c.handleJoinCashTable(req)
	case ActionLeaveTable:
		c.handleLeaveTable(req)
	case ActionCreateFriendGame:
		c.handleCreateFriendGame(req)
	case ActionJoinFriendGame:
		c.handleJoinFriendGame(req)
	case ActionGetFriendGames:
		c.handleGetFriendGames(req)
	case ActionDeleteFriendGame:
		c.handleDeleteFriendGame(req)
	case ActionCheck, ActionCall, ActionRaise, ActionFold:
		c.handleGameAction(req, kind)
	case ActionSitOut:
		c.handleSitOut(req)
	case ActionSitIn:
		c.handleSitIn(req)
	case ActionGetTableState:
		c.handleGetTableState(req)
	case ActionGetStatistics:
		c.handleGetStatistics(req)
	case ActionGetHistory:
		c.handleGetHistory(req)
	case ActionChatMessage:
		c.handleChat(req)
	case ActionUnknown:
		c.Send(errorResponse(req.MessageID, "Unknown action: "+req.ActionName()))
	}
}
