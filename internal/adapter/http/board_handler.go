package http

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"

	"tableside/internal/adapter/logger"
	"tableside/internal/app/sync"
)

// BoardHandler serves the aggregated table view: the current snapshot over
// plain HTTP and a websocket that pushes every refreshed snapshot.
type BoardHandler struct {
	ctrl     *sync.Controller
	upgrader websocket.Upgrader
	logger   logger.Logger
}

func NewBoardHandler(ctrl *sync.Controller, lgr logger.Logger) *BoardHandler {
	return &BoardHandler{
		ctrl: ctrl,
		upgrader: websocket.Upgrader{
			// The board is read-only; any diner at the table may watch it.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: lgr,
	}
}

type boardResponse struct {
	State    string `json:"state"`
	Snapshot any    `json:"snapshot"`
}

func (h *BoardHandler) Board(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	snap, state := h.ctrl.Snapshot()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(boardResponse{
		State:    state.String(),
		Snapshot: snap,
	})
}

// BoardWS upgrades to a websocket, sends the current snapshot, then pushes
// each snapshot the controller applies until the client goes away.
func (h *BoardHandler) BoardWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("ws_upgrade_failed", "Failed to upgrade board connection", "", nil, err)
		return
	}
	defer conn.Close()

	updates, cancel := h.ctrl.Watch()
	defer cancel()

	snap, state := h.ctrl.Snapshot()
	if err := conn.WriteJSON(boardResponse{State: state.String(), Snapshot: snap}); err != nil {
		return
	}

	// Drain reads so close frames are processed.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			return
		case <-r.Context().Done():
			return
		case snap, ok := <-updates:
			if !ok {
				return
			}
			if err := conn.WriteJSON(boardResponse{State: sync.StateSynced.String(), Snapshot: snap}); err != nil {
				return
			}
		}
	}
}
