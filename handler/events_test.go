package handler

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/receipto/console/service"
)

func TestEventsStream(t *testing.T) {
	broadcaster := service.NewBroadcaster()
	h := NewEventsHandler(broadcaster)

	router := gin.New()
	router.GET("/api/events", h.Stream)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req := httptest.NewRequest("GET", "/api/events", nil).WithContext(ctx)
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		router.ServeHTTP(w, req)
		close(done)
	}()

	// Wait for the handler to subscribe before sending the event
	deadline := time.Now().Add(time.Second)
	for broadcaster.SubscriberCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if broadcaster.SubscriberCount() != 1 {
		t.Fatal("Expected the stream to subscribe")
	}

	broadcaster.Notify(service.NotifySuccess, "Uploaded a.png")
	time.Sleep(50 * time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stream did not terminate on disconnect")
	}

	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Expected text/event-stream, got %s", ct)
	}

	body := w.Body.String()
	if !strings.Contains(body, "data: ") {
		t.Errorf("Expected an SSE data line, got %q", body)
	}
	if !strings.Contains(body, "Uploaded a.png") {
		t.Errorf("Expected notification payload in stream, got %q", body)
	}

	if broadcaster.SubscriberCount() != 0 {
		t.Error("Expected unsubscribe on disconnect")
	}
}
