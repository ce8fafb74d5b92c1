package controllers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/swiftpaylabs/swiftpay-backend/api/responses"
	"github.com/swiftpaylabs/swiftpay-backend/internal/notify"
	pkgerrors "github.com/swiftpaylabs/swiftpay-backend/pkg/errors"
	"github.com/swiftpaylabs/swiftpay-backend/pkg/logger"
)

const streamHeartbeat = 15 * time.Second

// Stream serves notifications over SSE. Clients narrow delivery with the
// topics query parameter (comma-separated, e.g. "group:abc,addr:0x1"); no
// topics means everything.
func Stream(broker *notify.Broker, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeInternal, "streaming unsupported by connection"))
			return
		}

		var topics []string
		if raw := strings.TrimSpace(r.URL.Query().Get("topics")); raw != "" {
			for _, topic := range strings.Split(raw, ",") {
				if topic = strings.TrimSpace(topic); topic != "" {
					topics = append(topics, topic)
				}
			}
		}

		sub := broker.Subscribe(topics...)
		defer broker.Unsubscribe(sub.ID)

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)
		flusher.Flush()

		ctx := r.Context()
		if logg != nil {
			logg.Info(logg.WithField(ctx, "topics", strings.Join(topics, ",")), "stream opened")
		}

		heartbeat := time.NewTicker(streamHeartbeat)
		defer heartbeat.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-heartbeat.C:
				fmt.Fprint(w, ": keep-alive\n\n")
				flusher.Flush()
			case msg, open := <-sub.C:
				if !open {
					return
				}
				data, err := json.Marshal(msg)
				if err != nil {
					if logg != nil {
						logg.Error(ctx, "encoding stream message", err)
					}
					continue
				}
				fmt.Fprintf(w, "event: %s\ndata: %s\n\n", msg.Type, data)
				flusher.Flush()
			}
		}
	}
}
