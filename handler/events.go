package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/receipto/console/service"
)

type EventsHandler struct {
	broadcaster *service.Broadcaster
}

func NewEventsHandler(broadcaster *service.Broadcaster) *EventsHandler {
	return &EventsHandler{broadcaster: broadcaster}
}

// Stream sends queue notifications to the dashboard as server-sent events,
// one "data: <json>" event per notification, until the client disconnects.
func (h *EventsHandler) Stream(c *gin.Context) {
	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Status(http.StatusOK)
	flusher.Flush()

	ch := h.broadcaster.Subscribe()
	defer h.broadcaster.Unsubscribe(ch)

	done := c.Request.Context().Done()
	for {
		select {
		case <-done:
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = c.Writer.Write([]byte("data: " + msg + "\n\n"))
			flusher.Flush()
		}
	}
}
