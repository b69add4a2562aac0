package gateway

import (
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait             = 10 * time.Second
	closeGrace            = time.Second
	defaultMaxMessageSize = 1 << 20
)

var ErrConnClosed = errors.New("connection closed")

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Conn is the client transport as seen by a Controller.
type Conn interface {
	Read() (binary bool, data []byte, err error)
	Send(data []byte) error
	Ping() error
	OnPong(fn func())
	Terminate() error
	Close(code int, reason string) error
	RemoteAddr() string
}

// WSConnection adapts a gorilla websocket to Conn. Read must only be
// called from one goroutine; every other method is safe for concurrent use.
type WSConnection struct {
	ws      *websocket.Conn
	writeMu sync.Mutex
	closed  atomic.Bool
}

func NewWSConnection(ws *websocket.Conn, maxMessageSize int64) *WSConnection {
	if maxMessageSize <= 0 {
		maxMessageSize = defaultMaxMessageSize
	}
	ws.SetReadLimit(maxMessageSize)
	return &WSConnection{ws: ws}
}

func (c *WSConnection) Read() (bool, []byte, error) {
	for {
		mt, data, err := c.ws.ReadMessage()
		if err != nil {
			return false, nil, err
		}
		switch mt {
		case websocket.BinaryMessage:
			return true, data, nil
		case websocket.TextMessage:
			return false, data, nil
		}
	}
}

func (c *WSConnection) Send(data []byte) error {
	if c.closed.Load() {
		return ErrConnClosed
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return c.ws.WriteMessage(websocket.TextMessage, data)
}

func (c *WSConnection) Ping() error {
	if c.closed.Load() {
		return ErrConnClosed
	}
	return c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

// OnPong installs fn as the pong handler. Pongs are only observed while a
// Read is in progress.
func (c *WSConnection) OnPong(fn func()) {
	c.ws.SetPongHandler(func(string) error {
		fn()
		return nil
	})
}

// Terminate drops the socket without a closing handshake.
func (c *WSConnection) Terminate() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	return c.ws.Close()
}

func (c *WSConnection) Close(code int, reason string) error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	_ = c.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(code, reason),
		time.Now().Add(closeGrace))
	return c.ws.Close()
}

func (c *WSConnection) RemoteAddr() string {
	return c.ws.RemoteAddr().String()
}
