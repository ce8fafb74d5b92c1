package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/swiftpaylabs/swiftpay-backend/internal/notify"
	"github.com/swiftpaylabs/swiftpay-backend/pkg/enums"
)

// safeRecorder serializes access so the test can read the body while the
// handler goroutine is still streaming.
type safeRecorder struct {
	mu  sync.Mutex
	rec *httptest.ResponseRecorder
}

func newSafeRecorder() *safeRecorder {
	return &safeRecorder{rec: httptest.NewRecorder()}
}

func (s *safeRecorder) Header() http.Header {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rec.Header()
}

func (s *safeRecorder) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rec.Write(p)
}

func (s *safeRecorder) WriteHeader(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rec.WriteHeader(status)
}

func (s *safeRecorder) Flush() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rec.Flush()
}

func (s *safeRecorder) Body() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rec.Body.String()
}

func (s *safeRecorder) ContentType() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rec.Header().Get("Content-Type")
}

func TestStreamDeliversMatchingMessages(t *testing.T) {
	broker := notify.NewBroker(testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/stream?topics=group:grp-1", nil).WithContext(ctx)
	resp := newSafeRecorder()

	done := make(chan struct{})
	go func() {
		Stream(broker, testLogger())(resp, req)
		close(done)
	}()

	waitFor(t, func() bool { return broker.SubscriberCount() == 1 })

	broker.PublishAll(context.Background(), []notify.Message{{
		Type:         enums.NotificationTypeGroupCreated,
		ChainGroupID: "grp-1",
		EmittedAt:    time.Now().UTC(),
	}})

	waitFor(t, func() bool { return strings.Contains(resp.Body(), "event: group_created") })
	cancel()
	<-done

	if !strings.Contains(resp.Body(), `"groupId":"grp-1"`) {
		t.Fatalf("expected group id in SSE data, got %q", resp.Body())
	}
	if resp.ContentType() != "text/event-stream" {
		t.Fatalf("unexpected content type %q", resp.ContentType())
	}
}

func TestStreamFiltersUnrelatedTopics(t *testing.T) {
	broker := notify.NewBroker(testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/stream?topics=group:other", nil).WithContext(ctx)
	resp := newSafeRecorder()

	done := make(chan struct{})
	go func() {
		Stream(broker, testLogger())(resp, req)
		close(done)
	}()

	waitFor(t, func() bool { return broker.SubscriberCount() == 1 })

	broker.PublishAll(context.Background(), []notify.Message{{
		Type:         enums.NotificationTypeGroupCreated,
		ChainGroupID: "grp-1",
	}})

	time.Sleep(20 * time.Millisecond)
	cancel()
	<-done

	if strings.Contains(resp.Body(), "group_created") {
		t.Fatalf("unrelated topic leaked into stream: %q", resp.Body())
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition never met")
}
