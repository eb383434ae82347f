package controller

import (
	"net/http"

	"github.com/trngon/payment/internal/providers"
)

// ConnectionChecker reports broker connectivity; *nats.Conn satisfies it.
type ConnectionChecker interface {
	IsConnected() bool
}

type HealthController struct {
	gateways *providers.Factory
	broker   ConnectionChecker
}

// NewHealthController creates the health endpoints. broker may be nil when
// event publishing is disabled.
func NewHealthController(gateways *providers.Factory, broker ConnectionChecker) *HealthController {
	return &HealthController{gateways: gateways, broker: broker}
}

func (h *HealthController) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *HealthController) Liveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

// Readiness requires every gateway to resolve its default merchant and, when
// configured, the broker to be connected.
func (h *HealthController) Readiness(w http.ResponseWriter, r *http.Request) {
	for _, name := range h.gateways.Names() {
		g, err := h.gateways.Get(name)
		if err == nil {
			_, err = g.DefaultMerchant()
		}
		if err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"reason": "gateway " + name + ": " + err.Error(),
			})
			return
		}
	}

	if h.broker != nil && !h.broker.IsConnected() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"reason": "nats unavailable",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
