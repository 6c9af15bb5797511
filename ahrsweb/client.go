package ahrsweb

import (
	"github.com/gorilla/websocket"
)

// client is one websocket connection in a Room. Messages it sends are
// relayed to the whole room; send holds what the room relays to it.
type client struct {
	socket *websocket.Conn
	send   chan []byte
	room   *Room
}

func (c *client) read() {
	defer c.socket.Close()
	for {
		_, msg, err := c.socket.ReadMessage()
		if err != nil {
			return
		}
		if !c.room.Forward(msg) {
			return
		}
	}
}

// write runs until the room closes send.
func (c *client) write() {
	defer c.socket.Close()
	for msg := range c.send {
		if err := c.socket.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}
