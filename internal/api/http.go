package api

import (
	"Go2NetSwitch/internal/model"
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/projectdiscovery/gologger"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// Handler holds the dependencies of the HTTP handlers.
type Handler struct {
	state model.SwitchState
}

// NewRouter returns the read-only REST routes over state.
func NewRouter(state model.SwitchState) *mux.Router {
	h := &Handler{state: state}
	r := mux.NewRouter()
	v1 := r.PathPrefix("/api/v1").Subrouter()
	v1.HandleFunc("/mac", h.macTableHandler).Methods(http.MethodGet)
	v1.HandleFunc("/igmp", h.igmpTableHandler).Methods(http.MethodGet)
	v1.HandleFunc("/ports", h.portsHandler).Methods(http.MethodGet)
	v1.HandleFunc("/health", h.healthHandler).Methods(http.MethodGet)
	return r
}

func (h *Handler) macTableHandler(w http.ResponseWriter, r *http.Request) {
	view, err := macTableView(h.state.MacTable())
	writeView(w, "mac table", view, err)
}

func (h *Handler) igmpTableHandler(w http.ResponseWriter, r *http.Request) {
	view, err := igmpTableView(h.state.IgmpTable(), h.state.Queriers())
	writeView(w, "igmp table", view, err)
}

func (h *Handler) portsHandler(w http.ResponseWriter, r *http.Request) {
	view, err := portsView(h.state.PortStats())
	writeView(w, "ports", view, err)
}

func (h *Handler) healthHandler(w http.ResponseWriter, r *http.Request) {
	view, err := healthView(h.state)
	writeView(w, "health", view, err)
}

func writeView(w http.ResponseWriter, what string, view *structpb.Struct, err error) {
	if err != nil {
		http.Error(w, viewError(what, err).Error(), http.StatusInternalServerError)
		return
	}
	jsonBytes, err := protojson.Marshal(view)
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to marshal response: %v", err), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(jsonBytes)
}

// HTTPServer serves NewRouter on a TCP address.
type HTTPServer struct {
	server *http.Server
}

// NewHTTPServer creates the REST server. It does not listen until Start.
func NewHTTPServer(addr string, state model.SwitchState) *HTTPServer {
	return &HTTPServer{server: &http.Server{Addr: addr, Handler: NewRouter(state)}}
}

// Start listens in the background. A listen failure is logged; the switch
// keeps running without the API.
func (s *HTTPServer) Start() {
	go func() {
		gologger.Info().Msgf("API server starting on %s", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			gologger.Error().Msgf("Could not listen on %s: %v", s.server.Addr, err)
		}
	}()
}

// Shutdown stops accepting requests and waits for in-flight ones until ctx
// expires.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("API server forced to shutdown: %w", err)
	}
	gologger.Info().Msgf("API server exited.")
	return nil
}
