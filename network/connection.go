// network/connection.go
package network

import (
	"encoding/json"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// ErrInvalidPacket 客户端发来的不是 JSON 文本帧
var ErrInvalidPacket = errors.New("invalid packet")

type Connection interface {
	Send(msg Envelope) error
	Close() error
	RemoteAddr() net.Addr
	SetHeartbeat(interval time.Duration)
	ReadPacket() (*Packet, error)
}

type WSConnection struct {
	conn      *websocket.Conn
	sendMutex sync.Mutex
	heartbeat time.Duration
}

const writeWait = 10 * time.Second

func NewWSConnection(conn *websocket.Conn) *WSConnection {
	return &WSConnection{conn: conn}
}

// Send 写入一条 JSON 文本帧，可被多个 goroutine 同时调用
func (c *WSConnection) Send(msg Envelope) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	c.sendMutex.Lock()
	defer c.sendMutex.Unlock()

	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// ReadPacket 读取下一条消息。只能由一个读循环调用。
func (c *WSConnection) ReadPacket() (*Packet, error) {
	msgType, data, err := c.conn.ReadMessage()
	if err != nil {
		return nil, err
	}
	if c.heartbeat > 0 {
		c.conn.SetReadDeadline(time.Now().Add(c.heartbeat * 2))
	}
	if msgType != websocket.TextMessage {
		return nil, ErrInvalidPacket
	}

	var packet Packet
	if err := json.Unmarshal(data, &packet); err != nil || packet.Event == "" {
		return nil, ErrInvalidPacket
	}
	return &packet, nil
}

// SetHeartbeat 设置读超时，收到任何消息或 pong 都会续期
func (c *WSConnection) SetHeartbeat(interval time.Duration) {
	c.heartbeat = interval
	c.conn.SetReadDeadline(time.Now().Add(interval * 2))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(interval * 2))
	})
}

// Ping sends a websocket ping control frame.
func (c *WSConnection) Ping() error {
	c.sendMutex.Lock()
	defer c.sendMutex.Unlock()
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

func (c *WSConnection) Close() error {
	return c.conn.Close()
}

func (c *WSConnection) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}
