package http

import (
	"context"
	"net/http"
	"time"
)

// Pinger — то немногое, что служебным ручкам нужно от хранилища.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler — сущность HTTP-обработчиков служебной поверхности.
type Handler struct {
	store Pinger
}

// NewHandler создаёт новый Handler с внедрённой зависимостью.
func NewHandler(store Pinger) *Handler {
	return &Handler{store: store}
}

// Health отвечает 200, пока база отвечает на ping.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		http.Error(w, "database is unreachable", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
