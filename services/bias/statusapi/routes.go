// Copyright (C) 2025 The Libra Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package statusapi

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RegisterRoutes registers /libra/status and /libra/status/ws under rg
// (typically the API version group, e.g. /v1).
func RegisterRoutes(rg *gin.RouterGroup, handlers *Handlers) {
	status := rg.Group("/libra/status")
	{
		status.GET("", handlers.HandleStatus)
		status.GET("/ws", handlers.HandleStatusWS)
	}
}

// RegisterMetricsRoute registers the Prometheus scrape endpoint at the
// engine's root, conventionally outside any API version group.
func RegisterMetricsRoute(router *gin.Engine) {
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
}
