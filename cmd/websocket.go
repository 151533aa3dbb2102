package main

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/dumacp/go-logs/pkg/logs"
	"github.com/gorilla/websocket"
)

const clientQueue = 8

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// broadcaster pushes every state payload to the connected websocket clients.
// Slow clients drop messages instead of stalling the driver.
type broadcaster struct {
	mux      sync.Mutex
	clients  map[*websocket.Conn]chan []byte
	snapshot func() (interface{}, error)
}

func newBroadcaster(snapshot func() (interface{}, error)) *broadcaster {
	return &broadcaster{
		clients:  make(map[*websocket.Conn]chan []byte),
		snapshot: snapshot,
	}
}

func (b *broadcaster) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", b.handleWS)
	mux.HandleFunc("/state", b.handleState)
	return mux
}

// publish is a bus handler.
func (b *broadcaster) publish(payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		logs.LogWarn.Printf("websocket encode error: %s", err)
		return
	}
	b.mux.Lock()
	defer b.mux.Unlock()
	for conn, queue := range b.clients {
		select {
		case queue <- data:
		default:
			logs.LogBuild.Printf("websocket client %s slow, message dropped", conn.RemoteAddr())
		}
	}
}

func (b *broadcaster) clientCount() int {
	b.mux.Lock()
	defer b.mux.Unlock()
	return len(b.clients)
}

func (b *broadcaster) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logs.LogWarn.Printf("websocket upgrade error: %s", err)
		return
	}
	queue := make(chan []byte, clientQueue)
	b.mux.Lock()
	b.clients[conn] = queue
	b.mux.Unlock()
	logs.LogInfo.Printf("websocket client %s connected", conn.RemoteAddr())

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					logs.LogWarn.Printf("websocket error: %s", err)
				}
				return
			}
		}
	}()

	defer func() {
		b.mux.Lock()
		delete(b.clients, conn)
		b.mux.Unlock()
		conn.Close()
		logs.LogInfo.Printf("websocket client %s disconnected", conn.RemoteAddr())
	}()
	for {
		select {
		case data := <-queue:
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

func (b *broadcaster) handleState(w http.ResponseWriter, r *http.Request) {
	state, err := b.snapshot()
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(state); err != nil {
		logs.LogWarn.Printf("state encode error: %s", err)
	}
}
