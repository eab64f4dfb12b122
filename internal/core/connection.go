package core

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"

	pb "highseas/proto"
)

type WebSocketConn struct {
	Conn *websocket.Conn
	mu   sync.Mutex
}

// Send writes one packet. Writes are serialised because gorilla connections
// allow only one concurrent writer.
func (c *WebSocketConn) Send(pkt *pb.Packet) error {
	if c == nil || c.Conn == nil {
		return nil
	}
	data, err := pkt.Marshal()
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Conn.SetWriteDeadline(time.Now().Add(wsWriteDeadline))
	return c.Conn.WriteMessage(websocket.BinaryMessage, data)
}

func (c *WebSocketConn) Ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Conn.SetWriteDeadline(time.Now().Add(wsWriteDeadline))
	return c.Conn.WriteMessage(websocket.PingMessage, nil)
}
