package chat

import (
	"encoding/json"
	"fmt"
	stdsync "sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	bridgeWriteWait = 10 * time.Second
	bridgePongWait  = 90 * time.Second
	bridgePingEvery = 30 * time.Second
)

// WSTransport talks to the messenger bridge process over a WebSocket.
// Requests go out as JSON frames; the bridge answers with Event frames
// carrying the matching correlation id, plus unsolicited updates.
type WSTransport struct {
	conn    *websocket.Conn
	updates chan Event

	writeMu stdsync.Mutex
	closed  chan struct{}
	once    stdsync.Once
}

// DialBridge connects to the messenger bridge at the given ws:// URL.
func DialBridge(url string) (*WSTransport, error) {
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return nil, fmt.Errorf("dialing messenger bridge: %w", err)
	}

	t := &WSTransport{
		conn:    conn,
		updates: make(chan Event, 64),
		closed:  make(chan struct{}),
	}
	conn.SetReadDeadline(time.Now().Add(bridgePongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(bridgePongWait))
		return nil
	})

	go t.readLoop()
	go t.pingLoop()
	return t, nil
}

func (t *WSTransport) Send(r Request) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return err
	}
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	t.conn.SetWriteDeadline(time.Now().Add(bridgeWriteWait))
	return t.conn.WriteMessage(websocket.TextMessage, payload)
}

func (t *WSTransport) Updates() <-chan Event { return t.updates }

// Close shuts the connection down. The updates channel is closed once
// the read loop drains, so consumers see a clean end of stream.
func (t *WSTransport) Close() error {
	var err error
	t.once.Do(func() {
		close(t.closed)
		t.writeMu.Lock()
		t.conn.SetWriteDeadline(time.Now().Add(bridgeWriteWait))
		t.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		t.writeMu.Unlock()
		err = t.conn.Close()
	})
	return err
}

func (t *WSTransport) readLoop() {
	defer close(t.updates)
	for {
		_, data, err := t.conn.ReadMessage()
		if err != nil {
			select {
			case <-t.closed:
			default:
				logrus.WithField("error", err.Error()).Warn("messenger bridge connection lost")
			}
			return
		}

		var evt Event
		if err := json.Unmarshal(data, &evt); err != nil {
			logrus.WithField("error", err.Error()).Warn("malformed bridge event, skipping")
			continue
		}

		select {
		case t.updates <- evt:
		case <-t.closed:
			return
		}
	}
}

func (t *WSTransport) pingLoop() {
	ticker := time.NewTicker(bridgePingEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			t.writeMu.Lock()
			t.conn.SetWriteDeadline(time.Now().Add(bridgeWriteWait))
			err := t.conn.WriteMessage(websocket.PingMessage, nil)
			t.writeMu.Unlock()
			if err != nil {
				return
			}
		case <-t.closed:
			return
		}
	}
}
