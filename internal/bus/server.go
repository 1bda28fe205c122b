package bus

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

// maxBroadcastBody bounds one published message.
const maxBroadcastBody = 100 << 20

type serverMetrics struct {
	roomsActive     prometheus.GaugeFunc
	eventsPublished prometheus.Counter
	subscribers     prometheus.Gauge
}

func newServerMetrics(reg prometheus.Registerer, registry *Registry) *serverMetrics {
	factory := promauto.With(reg)
	return &serverMetrics{
		roomsActive: factory.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "wallet_mpc_bus_rooms_active",
			Help: "Number of live rooms.",
		}, func() float64 { return float64(registry.Rooms()) }),
		eventsPublished: factory.NewCounter(prometheus.CounterOpts{
			Name: "wallet_mpc_bus_events_published_total",
			Help: "Messages accepted for broadcast.",
		}),
		subscribers: factory.NewGauge(prometheus.GaugeOpts{
			Name: "wallet_mpc_bus_subscribers",
			Help: "Currently attached event-stream subscribers.",
		}),
	}
}

// Server exposes a Registry over the gateway wire surface:
//
//	GET  /rooms/{room_id}/subscribe        SSE stream, Last-Event-Id resume
//	POST /rooms/{room_id}/broadcast        body: base64 of the canonical Msg
//	POST /rooms/{room_id}/issue_unique_idx
//	POST /rooms/{room_id}/close
//	GET  /metrics
type Server struct {
	registry *Registry
	metrics  *serverMetrics
	mux      *http.ServeMux
}

// NewServer wires the routes around the registry. Each server carries
// its own metrics registry so several instances can coexist in one
// process.
func NewServer(registry *Registry) *Server {
	promRegistry := prometheus.NewRegistry()
	s := &Server{
		registry: registry,
		metrics:  newServerMetrics(promRegistry, registry),
		mux:      http.NewServeMux(),
	}
	s.mux.HandleFunc("/rooms/", s.handleRooms)
	s.mux.Handle("/metrics", promhttp.HandlerFor(promRegistry, promhttp.HandlerOpts{}))
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) handleRooms(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/rooms/")
	parts := strings.Split(rest, "/")
	if len(parts) != 2 {
		http.NotFound(w, r)
		return
	}
	roomID, action := parts[0], parts[1]
	if !roomIDPattern.MatchString(roomID) {
		http.Error(w, "invalid room id", http.StatusBadRequest)
		return
	}
	switch {
	case action == "subscribe" && r.Method == http.MethodGet:
		s.handleSubscribe(w, r, roomID)
	case action == "broadcast" && r.Method == http.MethodPost:
		s.handleBroadcast(w, r, roomID)
	case action == "issue_unique_idx" && r.Method == http.MethodPost:
		s.handleIssueIdx(w, roomID)
	case action == "close" && r.Method == http.MethodPost:
		s.registry.Close(roomID)
		w.WriteHeader(http.StatusOK)
	default:
		http.NotFound(w, r)
	}
}

func parseLastEventID(r *http.Request) int64 {
	header := r.Header.Get("Last-Event-Id")
	if header == "" {
		return -1
	}
	id, err := strconv.ParseUint(header, 10, 63)
	if err != nil {
		return -1
	}
	return int64(id)
}

func (s *Server) handleSubscribe(w http.ResponseWriter, r *http.Request, roomID string) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	lastEventID := parseLastEventID(r)
	sub, err := s.registry.Subscribe(roomID, lastEventID)
	if errors.Is(err, ErrHistoryGap) {
		http.Error(w, "history gap: restart from 0", http.StatusConflict)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	defer sub.Close()
	s.metrics.subscribers.Inc()
	defer s.metrics.subscribers.Dec()

	log.WithFields(log.Fields{"room": roomID, "last_event_id": lastEventID}).Info("subscriber attached")

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub.Events():
			if !ok {
				// distinguish a drop from a clean room close for the
				// client's sake
				if err := sub.Err(); err != nil {
					fmt.Fprintf(w, "event: error\ndata: %s\n\n", err)
					flusher.Flush()
				}
				return
			}
			payload, _ := ev.Msg.MarshalBinary()
			fmt.Fprintf(w, "id: %d\nevent: new-message\ndata: %s\n\n",
				ev.ID, base64.StdEncoding.EncodeToString(payload))
			flusher.Flush()
		}
	}
}

type broadcastResponse struct {
	OK      bool   `json:"ok"`
	EventID uint64 `json:"event_id"`
}

func (s *Server) handleBroadcast(w http.ResponseWriter, r *http.Request, roomID string) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBroadcastBody))
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}
	raw, err := base64.StdEncoding.DecodeString(string(body))
	if err != nil {
		http.Error(w, "body must be base64", http.StatusBadRequest)
		return
	}
	var msg Msg
	if err := msg.UnmarshalBinary(raw); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	id, err := s.registry.Broadcast(roomID, msg)
	if errors.Is(err, ErrRoomClosed) {
		http.Error(w, err.Error(), http.StatusGone)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.metrics.eventsPublished.Inc()
	writeJSON(w, broadcastResponse{OK: true, EventID: id})
}

type issuedUniqueIdx struct {
	UniqueIdx uint16 `json:"unique_idx"`
}

func (s *Server) handleIssueIdx(w http.ResponseWriter, roomID string) {
	idx, err := s.registry.IssueUniqueIndex(roomID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	log.WithFields(log.Fields{"room": roomID, "unique_idx": idx}).Info("issued unique index")
	writeJSON(w, issuedUniqueIdx{UniqueIdx: idx})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
