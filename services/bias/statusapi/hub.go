// Copyright (C) 2025 The Libra Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package statusapi

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// hub maintains the set of subscribed progress-websocket clients and
// broadcasts status snapshots to all of them.
type hub struct {
	mu        sync.Mutex
	clients   map[*websocket.Conn]bool
	broadcast chan []byte
}

func newHub() *hub {
	return &hub{
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan []byte, 256),
	}
}

// run drains h.broadcast and fans each message out to every client,
// dropping and closing any connection that fails to write.
func (h *hub) run() {
	for message := range h.broadcast {
		h.mu.Lock()
		for client := range h.clients {
			_ = client.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := client.WriteMessage(websocket.TextMessage, message); err != nil {
				slog.Warn("statusapi: websocket write failed, dropping client", slog.String("error", err.Error()))
				client.Close()
				delete(h.clients, client)
			}
		}
		h.mu.Unlock()
	}
}

// subscribe upgrades c's connection and registers it as a broadcast target.
func (h *hub) subscribe(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Warn("statusapi: websocket upgrade failed", slog.String("error", err.Error()))
		return
	}

	h.mu.Lock()
	h.clients[conn] = true
	h.mu.Unlock()

	go func() {
		defer func() {
			h.mu.Lock()
			delete(h.clients, conn)
			h.mu.Unlock()
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					slog.Warn("statusapi: websocket closed unexpectedly", slog.String("error", err.Error()))
				}
				return
			}
		}
	}()
}

// publish enqueues data for delivery to every subscribed client.
func (h *hub) publish(data []byte) {
	select {
	case h.broadcast <- data:
	default:
		slog.Warn("statusapi: broadcast channel full, dropping snapshot")
	}
}
