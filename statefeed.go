package main

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/CodedInternet/godiffdrive/onboard"
	"github.com/gorilla/websocket"
)

var WS_WRITE_TIMEOUT = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// the frontend is served from the device itself; other origins
		// are only seen during development
		return true
	},
}

// propertyEvent is the wire form of one observer notification.
type propertyEvent struct {
	Key   string      `json:"key"`
	Value interface{} `json:"value"`
}

// StateFeedHandler upgrades the connection and streams every property
// change the loop publishes. Inbound messages are treated as command
// payloads in the same shape the REST endpoint accepts.
func StateFeedHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade: %v", err)
		return
	}

	var writeMu sync.Mutex
	send := func(ev propertyEvent) {
		writeMu.Lock()
		defer writeMu.Unlock()
		// a dead client must not stall the delivery of notifications
		// to everyone else
		conn.SetWriteDeadline(time.Now().Add(WS_WRITE_TIMEOUT))
		if err := conn.WriteJSON(ev); err != nil {
			log.Printf("ws write: %v", err)
		}
	}

	id := ENV.Loop.AddListener(onboard.ListenerFunc(
		func(key string, _, newValue interface{}) {
			send(propertyEvent{Key: key, Value: newValue})
		}))
	defer ENV.Loop.RemoveListener(id)

	// opening burst so the client renders without waiting for a tick
	running, hs := ENV.Loop.Status()
	send(propertyEvent{Key: onboard.KeyRunState, Value: running})
	send(propertyEvent{Key: onboard.KeyHandshake, Value: hs.String()})
	send(propertyEvent{Key: onboard.KeySnapshot, Value: ENV.Loop.Snapshot()})

	for {
		var payload CommandPayload
		if err := conn.ReadJSON(&payload); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("ws read: %v", err)
			}
			return
		}

		cmd, err := payload.command()
		if err != nil {
			send(propertyEvent{Key: onboard.KeyFault, Value: err.Error()})
			continue
		}
		if err := ENV.Loop.Do(cmd); err != nil {
			send(propertyEvent{Key: onboard.KeyFault, Value: err.Error()})
		}
	}
}
