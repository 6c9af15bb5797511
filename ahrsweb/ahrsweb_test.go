package ahrsweb

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	magkal "github.com/westphae/goecompass/magnetometer"
	"github.com/westphae/goecompass/sensors"
	"github.com/westphae/goecompass/sensors/saul"
)

const Tolerance = 1e-6

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeSource struct {
	a, m             [3]int16 // milli-g, milli-gauss
	temp             int16
	aErr, mErr, tErr error
}

func (s *fakeSource) ReadAccelPhysical(res *saul.Phydat) (int, error) {
	if s.aErr != nil {
		return 0, s.aErr
	}
	*res = saul.Phydat{Val: s.a, Unit: saul.UnitG, Scale: -3}
	return 3, nil
}

func (s *fakeSource) ReadMagPhysical(res *saul.Phydat) (int, error) {
	if s.mErr != nil {
		return 0, s.mErr
	}
	*res = saul.Phydat{Val: s.m, Unit: saul.UnitGauss, Scale: -3}
	return 3, nil
}

func (s *fakeSource) ReadTemperature() (int16, error) {
	return s.temp, s.tErr
}

func level(heading int16) *fakeSource {
	// 300 mGs horizontal, 400 mGs down, in the package frame.
	m := map[int16][3]int16{
		0:   {300, 0, -400},
		90:  {0, 300, -400},
		180: {-300, 0, -400},
	}
	return &fakeSource{a: [3]int16{0, 0, 1000}, m: m[heading], temp: 25}
}

func TestListenerRead(t *testing.T) {
	cal := magkal.Calibration{Offset: [3]float64{0.1, 0, -0.1}, Scale: [3]float64{2, 1, 1}}
	l := NewListener(NewRoom(), level(0), cal, time.Second)

	d := l.Read()
	if d.AError != nil || d.MagError != nil || d.TempError != nil {
		t.Fatalf("unexpected errors: %v %v %v", d.AError, d.MagError, d.TempError)
	}
	if math.Abs(d.A3-1) > Tolerance || math.Abs(d.A1) > Tolerance {
		t.Errorf("acceleration %v %v %v", d.A1, d.A2, d.A3)
	}
	if math.Abs(d.M1-0.4) > Tolerance || math.Abs(d.M3+0.3) > Tolerance {
		t.Errorf("calibration not applied: %v %v %v", d.M1, d.M2, d.M3)
	}
	if d.Temp != 25 || d.N != 1 {
		t.Errorf("temp %d, n %d", d.Temp, d.N)
	}
	if l.Read().N != 2 {
		t.Error("sequence number did not advance")
	}
}

func TestNewCompassData(t *testing.T) {
	for _, h := range []int16{0, 90, 180} {
		l := NewListener(NewRoom(), level(h), magkal.Identity(), time.Second)
		c := NewCompassData(l.Read(), l.t0)
		if !c.AttValid || c.Err != "" {
			t.Fatalf("heading %d: no attitude: %q", h, c.Err)
		}
		if math.Abs(c.Heading-float64(h)) > Tolerance || math.Abs(c.Roll) > Tolerance || math.Abs(c.Pitch) > Tolerance {
			t.Errorf("heading %d: got %v/%v/%v", h, c.Roll, c.Pitch, c.Heading)
		}
	}
}

func TestNewCompassDataCarriesErrors(t *testing.T) {
	src := level(0)
	src.mErr = errors.New("mag broken")
	src.tErr = errors.New("temp broken")
	l := NewListener(NewRoom(), src, magkal.Identity(), time.Second)

	c := NewCompassData(l.Read(), l.t0)
	if c.MValid || c.TValid || !c.AValid || c.AttValid {
		t.Errorf("wrong validity: %+v", c)
	}
	if !strings.Contains(c.Err, "mag broken") || !strings.Contains(c.Err, "temp broken") {
		t.Errorf("errors not carried: %q", c.Err)
	}
}

func waitClients(t *testing.T, r *Room, n int) {
	deadline := time.Now().Add(2 * time.Second)
	for r.Clients() != n {
		if time.Now().After(deadline) {
			t.Fatalf("%d clients after 2s, should be %d", r.Clients(), n)
		}
		time.Sleep(time.Millisecond)
	}
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ahrsweb"
}

func readCompassData(t *testing.T, conn *websocket.Conn) *CompassData {
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage: %s", err)
	}
	c := new(CompassData)
	if err := json.Unmarshal(msg, c); err != nil {
		t.Fatalf("bad message %q: %s", msg, err)
	}
	return c
}

func TestRoomStreamsListener(t *testing.T) {
	room := NewRoom()
	go room.Run()
	defer room.Stop()
	srv := httptest.NewServer(NewRouter(room, new(saul.Registry)))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv), nil)
	if err != nil {
		t.Fatalf("Dial: %s", err)
	}
	defer conn.Close()
	waitClients(t, room, 1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go NewListener(room, level(90), magkal.Identity(), 5*time.Millisecond).Run(ctx)

	c := readCompassData(t, conn)
	if !c.AttValid || math.Abs(c.Heading-90) > Tolerance || math.Abs(c.A3-1) > Tolerance {
		t.Errorf("wrong message %+v", c)
	}
}

func TestPublisherRelaysToViewers(t *testing.T) {
	room := NewRoom()
	go room.Run()
	defer room.Stop()
	srv := httptest.NewServer(NewRouter(room, new(saul.Registry)))
	defer srv.Close()

	viewer, _, err := websocket.DefaultDialer.Dial(wsURL(srv), nil)
	if err != nil {
		t.Fatalf("Dial: %s", err)
	}
	defer viewer.Close()
	waitClients(t, room, 1)

	pub, err := NewPublisher(wsURL(srv))
	if err != nil {
		t.Fatalf("NewPublisher: %s", err)
	}
	defer pub.Close()
	waitClients(t, room, 2)

	if err := pub.Send(&sensors.MagAccelData{A1: 0.5, M1: 0.25, N: 7, T: time.Now()}); err != nil {
		t.Fatalf("Send: %s", err)
	}
	c := readCompassData(t, viewer)
	if c.A1 != 0.5 || c.M1 != 0.25 || c.N != 7 {
		t.Errorf("wrong relay %+v", c)
	}
}

func TestRoomStop(t *testing.T) {
	room := NewRoom()
	go room.Run()
	room.Stop()
	if room.Forward([]byte("x")) {
		t.Error("Forward succeeded on a stopped room")
	}
}

func TestPublisherReconnectClosesOldSocket(t *testing.T) {
	room := NewRoom()
	go room.Run()
	defer room.Stop()
	srv := httptest.NewServer(NewRouter(room, new(saul.Registry)))
	defer srv.Close()

	pub, err := NewPublisher(wsURL(srv))
	if err != nil {
		t.Fatalf("NewPublisher: %s", err)
	}
	defer pub.Close()
	waitClients(t, room, 1)

	old := pub.c
	if err := pub.reconnect(); err != nil {
		t.Fatalf("reconnect: %s", err)
	}
	if pub.c == old {
		t.Fatal("reconnect kept the old connection")
	}
	if err := old.WriteMessage(websocket.TextMessage, []byte("{}")); err == nil {
		t.Error("old connection still writable after reconnect")
	}
	// The server drops the old socket, leaving only the new one.
	waitClients(t, room, 1)
}

func TestPublisherRecoversFromBrokenSocket(t *testing.T) {
	room := NewRoom()
	go room.Run()
	defer room.Stop()
	srv := httptest.NewServer(NewRouter(room, new(saul.Registry)))
	defer srv.Close()

	pub, err := NewPublisher(wsURL(srv))
	if err != nil {
		t.Fatalf("NewPublisher: %s", err)
	}
	defer pub.Close()
	waitClients(t, room, 1)

	pub.c.UnderlyingConn().Close()
	if err := pub.Send(&sensors.MagAccelData{N: 1, T: time.Now()}); err == nil {
		t.Error("Send on a broken socket succeeded")
	}
	waitClients(t, room, 1)

	viewer, _, err := websocket.DefaultDialer.Dial(wsURL(srv), nil)
	if err != nil {
		t.Fatalf("Dial: %s", err)
	}
	defer viewer.Close()
	waitClients(t, room, 2)

	if err := pub.Send(&sensors.MagAccelData{N: 2, T: time.Now()}); err != nil {
		t.Fatalf("Send after reconnect: %s", err)
	}
	if c := readCompassData(t, viewer); c.N != 2 {
		t.Errorf("relayed sample %d, should be 2", c.N)
	}
}
