package ahrsweb

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/westphae/goecompass/sensors"
)

// Publisher pushes readings to a remote ahrsweb server, whose room relays
// them to its browsers.
type Publisher struct {
	url string
	t0  time.Time
	c   *websocket.Conn
}

// NewPublisher connects to the websocket endpoint at url, e.g.
// "ws://localhost:8000/ahrsweb".
func NewPublisher(url string) (p *Publisher, err error) {
	p = &Publisher{url: url, t0: time.Now()}
	if err = p.connect(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Publisher) connect() (err error) {
	p.c, _, err = websocket.DefaultDialer.Dial(p.url, nil)
	return
}

// Send publishes one reading. On a write error it reconnects and drops the
// message.
func (p *Publisher) Send(d *sensors.MagAccelData) error {
	msg, err := json.Marshal(NewCompassData(d, p.t0))
	if err != nil {
		log.Println("AHRSWeb: Error marshalling json data:", err)
		return err
	}
	if p.c == nil {
		if err := p.connect(); err != nil {
			return fmt.Errorf("AHRSWeb: reconnecting: %v", err)
		}
	}
	if err := p.c.WriteMessage(websocket.TextMessage, msg); err != nil {
		log.Println("AHRSWeb: Error writing to websocket:", err)
		err2 := p.reconnect()
		return fmt.Errorf("AHRSWeb: %v: %v", err, err2)
	}
	return nil
}

// reconnect closes the current connection, if any, and dials a new one.
func (p *Publisher) reconnect() error {
	if p.c != nil {
		p.c.Close()
		p.c = nil
	}
	return p.connect()
}

func (p *Publisher) Close() {
	if p.c == nil {
		return
	}
	if err := p.c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")); err != nil {
		log.Println("AHRSWeb: Error closing websocket:", err)
	}
	p.c.Close()
}
