package service

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/ethereum/go-ethereum/log"
	"github.com/rs/cors"
)

// Progress is the state of the test run reported on /healthz
type Progress struct {
	RunID     string `json:"run_id"`
	Tests     int    `json:"tests"`
	Completed int    `json:"completed"`
	Remaining int    `json:"remaining"`
	Finished  bool   `json:"finished"`
}

// HealthzServer answers liveness checks with the progress of the run
type HealthzServer struct {
	Progress func() Progress // Optional

	ctx    context.Context
	server *http.Server
}

func (h *HealthzServer) Start(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", h.Handle)
	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet},
	})
	h.server = &http.Server{
		Handler: c.Handler(mux),
		Addr:    addr,
	}
	h.ctx = ctx
	return h.server.ListenAndServe()
}

func (h *HealthzServer) Shutdown() error {
	if h.server == nil {
		return nil
	}
	return h.server.Shutdown(h.ctx)
}

func (h *HealthzServer) Handle(w http.ResponseWriter, r *http.Request) {
	var progress Progress
	if h.Progress != nil {
		progress = h.Progress()
	}
	log.Debug("Received health check request", "path", r.URL.Path, "completed", progress.Completed, "tests", progress.Tests)

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(progress); err != nil {
		log.Warn("Failed to write health check response", "err", err)
	}
}
