package httpgin

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/venuepulse/venuepulse/internal/notifier"
	redisx "github.com/venuepulse/venuepulse/internal/redis"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Browser clients come from arbitrary origins; auth happens via the
	// token, not the Origin header.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// @Summary  Live change feed over WebSocket
// @Param    topics     query  string  false  "comma-separated: venue_occupancy,venue_status,venue_votes"
// @Param    venue_ids  query  string  false  "comma-separated venue ids; empty matches all"
// @Router   /ws [get]
func handleSubscribe(hub *notifier.Hub, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		topics := parseTopics(c.Query("topics"))
		if len(topics) == 0 {
			topics = []redisx.Topic{
				redisx.TopicOccupancy,
				redisx.TopicStatus,
				redisx.TopicVotes,
			}
		}

		filter, err := ParseVenueIDs(c.Query("venue_ids"))
		if err != nil {
			badRequest(c, "invalid venue_ids")
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			// Upgrade already wrote the error response.
			logger.Warn("websocket upgrade failed", "error", err)
			return
		}

		sub := hub.Subscribe(topics, filter)
		client := notifier.NewClient(conn, sub, logger)

		go client.WritePump()
		go client.ReadPump()
	}
}

func parseTopics(raw string) []redisx.Topic {
	var out []redisx.Topic
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, redisx.Topic(part))
	}
	return out
}
