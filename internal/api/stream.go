package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// handleStream relays a session's events as Server-Sent Events:
//
//	event: HANDSHAKE_COMPLETE
//	data: {"driver_b":"bob"}
//
// A comment line is sent every keep-alive interval so proxies keep the
// connection open.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeDetail(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	sub, err := s.svc.Subscribe(r.Context(), sessionID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	defer sub.Close()

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	s.logger.Debug("stream opened", zap.String("session_id", sessionID))
	defer s.logger.Debug("stream closed", zap.String("session_id", sessionID))

	ticker := time.NewTicker(s.opts.SSEKeepAlive)
	defer ticker.Stop()

	events := sub.Events()
	errs := sub.Errors()
	for {
		select {
		case <-r.Context().Done():
			return

		case ev, ok := <-events:
			if !ok {
				return
			}
			data, err := json.Marshal(ev.Data)
			if err != nil {
				s.logger.Warn("failed to encode event", zap.String("event", ev.Type), zap.Error(err))
				continue
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, data); err != nil {
				return
			}
			flusher.Flush()

		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			s.logger.Warn("subscription error", zap.String("session_id", sessionID), zap.Error(err))

		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
