// Copyright (C) 2025 The Libra Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package statusapi

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/libra-go/libra/services/bias/stats"
)

func marshalSnapshot(s Snapshot) ([]byte, error) {
	return json.Marshal(s)
}

// Handlers bundles the shared state a status server's HTTP handlers read
// from: the run's live counters and the websocket broadcast hub.
type Handlers struct {
	counters *stats.Counters
	hub      *hub
}

// NewHandlers returns handlers reporting on counters.
func NewHandlers(counters *stats.Counters) *Handlers {
	return &Handlers{counters: counters, hub: newHub()}
}

// HandleStatus serves GET /v1/libra/status: a JSON snapshot of the run's
// counters.
func (h *Handlers) HandleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, TakeSnapshot(h.counters))
}

// HandleStatusWS serves GET /v1/libra/status/ws: upgrades the connection
// and subscribes it to snapshot pushes from Publish.
func (h *Handlers) HandleStatusWS(c *gin.Context) {
	h.hub.subscribe(c)
}

// Publish takes a fresh snapshot, mirrors it onto the Prometheus gauges,
// and pushes it to every subscribed websocket client. Intended to be called
// on a fixed interval by a driver or CLI progress loop.
func (h *Handlers) Publish() {
	snap := TakeSnapshot(h.counters)
	publishMetrics(snap)

	data, err := marshalSnapshot(snap)
	if err != nil {
		return
	}
	h.hub.publish(data)
}

// Run starts the hub's broadcast loop. Intended to be run in its own
// goroutine for the lifetime of the server.
func (h *Handlers) Run() {
	h.hub.run()
}
