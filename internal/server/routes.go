package server

import (
	"encoding/json"
	"net/http"
	"slices"

	"github.com/gorilla/websocket"
	"github.com/samber/lo"

	"github.com/BioHazard786/tandem/internal/signaling"
)

// NewUpgrader configures the websocket upgrader. An empty allow-list accepts
// every origin.
func NewUpgrader(allowedOrigins []string) *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  64 * 1024, // 64 KB
		WriteBufferSize: 64 * 1024, // 64 KB

		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			return origin == "" || slices.Contains(allowedOrigins, origin)
		},
	}
}

// ServeWs returns an http.HandlerFunc that handles websocket requests.
// It takes the hub as a dependency.
func ServeWs(hub *Hub, upgrader *websocket.Upgrader, readLimit int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Upgrade the HTTP connection to a WebSocket
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			hub.log.Warn("Failed to upgrade connection", "remote", r.RemoteAddr, "error", err)
			return
		}

		client := hub.Attach(conn)

		// Start the client's read and write pumps in separate goroutines
		// These methods will handle the client's lifecycle
		go client.WritePump()
		go client.ReadPump(readLimit)
	}
}

// Health Check endpoint
func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Signaling relay is healthy."))
}

// Stats is the /stats response body. Room identifiers are never listed.
type Stats struct {
	Connections int `json:"connections"`
	Rooms       int `json:"rooms"`
	Waiting     int `json:"waiting"`
	InCall      int `json:"in_call"`
}

func statsHandler(hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		rooms := hub.coord.Rooms()
		inCall := lo.CountBy(rooms, func(room signaling.RoomSize) bool {
			return room.Members >= signaling.RoomCapacity
		})
		stats := Stats{
			Connections: hub.coord.Connections(),
			Rooms:       len(rooms),
			Waiting:     len(rooms) - inCall,
			InCall:      inCall,
		}

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-store")
		if err := json.NewEncoder(w).Encode(stats); err != nil {
			hub.log.Warn("Failed to write stats", "error", err)
		}
	}
}
