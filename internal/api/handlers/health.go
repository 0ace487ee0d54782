package handlers

import (
	"net/http"

	"github.com/pharmaqa/rag-engine/internal/kv"
)

type HealthHandler struct {
	store kv.Store
}

func NewHealthHandler(store kv.Store) *HealthHandler {
	return &HealthHandler{store: store}
}

func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Readyz pings the record store when the configured driver holds a
// remote connection. The in-memory driver has nothing to check and is
// always ready.
func (h *HealthHandler) Readyz(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{"store": "ok"}

	if p, ok := h.store.(kv.Pinger); ok {
		if err := p.Ping(r.Context()); err != nil {
			checks["store"] = "unhealthy: " + err.Error()
		}
	}

	status := http.StatusOK
	for _, v := range checks {
		if v != "ok" {
			status = http.StatusServiceUnavailable
			break
		}
	}

	writeJSON(w, status, map[string]interface{}{"status": statusStr(status), "checks": checks})
}

func statusStr(code int) string {
	if code == http.StatusOK {
		return "ok"
	}
	return "unhealthy"
}
