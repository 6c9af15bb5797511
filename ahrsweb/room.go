package ahrsweb

import (
	"net/http"
	"sync/atomic"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

// Room fans every message it receives out to all connected websocket clients.
// Messages come from Forward or from any client, such as a remote Publisher.
// Only Run touches clients.
type Room struct {
	forward     chan []byte
	join, leave chan *client
	quit        chan struct{}
	clients     map[*client]bool
	count       atomic.Int32 // len(clients), for readers outside Run
}

// NewRoom returns a room; start it with Run.
func NewRoom() *Room {
	return &Room{
		forward: make(chan []byte),
		join:    make(chan *client),
		leave:   make(chan *client),
		clients: make(map[*client]bool),
		quit:    make(chan struct{}),
	}
}

// Run serves the room until Stop is called.
func (r *Room) Run() {
	for {
		select {
		case c := <-r.join:
			r.clients[c] = true
			r.count.Store(int32(len(r.clients)))
			log.Infof("AHRSWeb: client %s joined", c.socket.RemoteAddr())
		case c := <-r.leave:
			delete(r.clients, c)
			close(c.send)
			r.count.Store(int32(len(r.clients)))
			log.Infof("AHRSWeb: client %s left", c.socket.RemoteAddr())
		case msg := <-r.forward:
			for c := range r.clients {
				select {
				case c.send <- msg:
				default:
					log.Debugf("AHRSWeb: client %s is slow, dropping message", c.socket.RemoteAddr())
				}
			}
		case <-r.quit:
			for c := range r.clients {
				delete(r.clients, c)
				close(c.send)
			}
			r.count.Store(0)
			return
		}
	}
}

// Stop disconnects all clients and ends Run.
func (r *Room) Stop() {
	close(r.quit)
}

// Forward sends msg to every client. It returns false if the room is stopped.
func (r *Room) Forward(msg []byte) bool {
	select {
	case r.forward <- msg:
		return true
	case <-r.quit:
		return false
	}
}

// Clients returns the number of connected clients.
func (r *Room) Clients() int {
	return int(r.count.Load())
}

const (
	wsBufSize   = 1024
	sendBufSize = 10 // Messages queued per client before dropping
)

var upgrader = &websocket.Upgrader{
	ReadBufferSize:  wsBufSize,
	WriteBufferSize: wsBufSize,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// ServeHTTP upgrades the request to a websocket and keeps it in the room
// until either side closes.
func (r *Room) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	conn, err := upgrader.Upgrade(w, req, nil)
	if err != nil {
		log.Warnln("AHRSWeb: upgrade failed:", err)
		return
	}
	c := &client{
		socket: conn,
		send:   make(chan []byte, sendBufSize),
		room:   r,
	}
	select {
	case r.join <- c:
	case <-r.quit:
		conn.Close()
		return
	}
	defer func() {
		select {
		case r.leave <- c:
		case <-r.quit:
		}
	}()
	go c.write()
	c.read()
}
