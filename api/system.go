package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type SystemHandler struct {
	db  Pinger
	now func() time.Time
}

func NewSystemHandler(db Pinger) *SystemHandler {
	return &SystemHandler{db: db, now: time.Now}
}

type healthResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	Database  string `json:"database,omitempty"`
	Timestamp string `json:"timestamp"`
}

func (h *SystemHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	res := healthResponse{Success: true, Message: "Server is running", Timestamp: h.now().UTC().Format(time.RFC3339Nano)}
	status := http.StatusOK

	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		res.Database = "ok"
		if err := h.db.Ping(ctx); err != nil {
			logger.Error("health check: database unreachable", slog.Any("err", err))
			res.Success = false
			res.Message = "Database unavailable"
			res.Database = "unavailable"
			status = http.StatusServiceUnavailable
		}
	}

	writeJSON(w, status, res)
}

func (h *SystemHandler) VersionHandler(version, buildTime string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"version": version, "buildTime": buildTime})
	}
}
