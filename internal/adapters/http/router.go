package httpadapter

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mpetrenko/taxmate/internal/core/domain"
	"github.com/mpetrenko/taxmate/internal/core/ports"
)

// Router exposes the REST surface of the api process. Authentication is a
// trusted X-User-Id header set by the fronting gateway; every user-facing
// handler requires it.
type Router struct {
	uploader    ports.DocumentUploader
	processor   ports.DocumentProcessor
	monitor     ports.StatusMonitor
	reader      ports.ReturnReader
	maintenance ports.ReturnMaintenance
	docs        ports.DocumentRepository
	exporter    ports.ReturnExporter

	traffic *TrafficControl
	devMode bool
}

func NewRouter(
	uploader ports.DocumentUploader,
	processor ports.DocumentProcessor,
	monitor ports.StatusMonitor,
	reader ports.ReturnReader,
	maintenance ports.ReturnMaintenance,
	docs ports.DocumentRepository,
	exporter ports.ReturnExporter,
	traffic *TrafficControl,
	devMode bool,
) *Router {
	return &Router{
		uploader:    uploader,
		processor:   processor,
		monitor:     monitor,
		reader:      reader,
		maintenance: maintenance,
		docs:        docs,
		exporter:    exporter,
		traffic:     traffic,
		devMode:     devMode,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", rt.healthz)

	mux.HandleFunc("POST /v1/returns/{id}/documents", rt.uploadDocument)
	mux.HandleFunc("GET /v1/returns/{id}", rt.getReturn)
	mux.HandleFunc("GET /v1/returns/{id}/documents", rt.listDocuments)
	mux.HandleFunc("GET /v1/returns/{id}/income", rt.getIncome)
	mux.HandleFunc("POST /v1/returns/{id}/recalculate", rt.recalculate)
	mux.HandleFunc("GET /v1/returns/{id}/export", rt.exportReturn)

	mux.HandleFunc("GET /v1/documents/{id}", rt.getDocument)
	mux.HandleFunc("POST /v1/documents/{id}/process", rt.processDocument)
	mux.HandleFunc("GET /v1/documents/{id}/events", rt.streamEvents)
	mux.HandleFunc("DELETE /v1/documents/{id}", rt.deleteDocument)
	mux.HandleFunc("POST /v1/documents/{id}/duplicate-resolution", rt.resolveDuplicate)

	var handler http.Handler = mux
	if rt.traffic != nil {
		handler = rt.traffic.Middleware(handler)
	}
	return requestIDMiddleware(accessLogMiddleware(handler))
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// userID extracts the trusted identity header. Empty means unauthenticated.
func userID(r *http.Request) string {
	return r.Header.Get("X-User-Id")
}

func (rt *Router) requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := userID(r)
	if id == "" {
		rt.writeError(w, r, domain.WrapError(domain.ErrUnauthorized, "authenticate request",
			errors.New("missing X-User-Id header")))
		return "", false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
