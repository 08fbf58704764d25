// Package httpapi is the minimal HTTP status surface the automation host
// and local tooling poll: health, metrics, and the current bridge text.
// Persistence and the real device binding are explicit non-goals; this is
// the read-only analog of the teacher's StartEngine mux, scoped down to
// what the core actually needs to expose.
package httpapi

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/fatih/color"
	"github.com/rs/cors"

	"github.com/brovakt/canal/bridgetext"
	"github.com/brovakt/canal/engine"
	"github.com/brovakt/canal/metrics"
)

// Server wraps the status mux and the vessel/bridge-text sources it reads
// from on every request. Cross-MMSI reads always go through
// VesselRegistry.Snapshot(), so a request never observes a partially
// updated vessel (spec.md §5).
type Server struct {
	registry    *engine.VesselRegistry
	bridgeText  *bridgetext.Service
	promHandler http.Handler
	version     string
}

func NewServer(registry *engine.VesselRegistry, bridgeText *bridgetext.Service, promHandler http.Handler, version string) *Server {
	return &Server{registry: registry, bridgeText: bridgeText, promHandler: promHandler, version: version}
}

func (s *Server) mux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/bridge-text", s.handleBridgeText)
	mux.HandleFunc("/vessels", s.handleVessels)
	if s.promHandler != nil {
		mux.Handle("/metrics", s.promHandler)
	}
	return mux
}

// Handler returns the CORS-wrapped mux, for tests or for embedding in
// another server.
func (s *Server) Handler() http.Handler {
	corsHandler := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "OPTIONS"},
	})
	return corsHandler.Handler(s.mux())
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.Write([]byte("OK"))
}

type bridgeTextResponse struct {
	Text  string `json:"bridge_text"`
	Alarm bool   `json:"alarm_generic"`
}

func (s *Server) handleBridgeText(w http.ResponseWriter, r *http.Request) {
	vessels := s.registry.Snapshot()
	prior, _ := s.bridgeText.Cached()
	text, alarm := s.bridgeText.Compose(time.Now().UTC(), vessels)
	metrics.RecordBridgeTextRegeneration(r.Context(), text == prior)
	writeJSON(w, bridgeTextResponse{Text: text, Alarm: alarm})
}

func (s *Server) handleVessels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.registry.Snapshot())
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// ListenAndServe binds addr, prints the same style of startup banner the
// teacher's StartEngine does, and serves in a background goroutine until
// the returned server is shut down.
func ListenAndServe(addr string, handler http.Handler) (*http.Server, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}

	srv := &http.Server{Addr: addr, Handler: handler}

	green := color.New(color.FgGreen)
	cyan := color.New(color.FgCyan)
	bold := color.New(color.Bold)
	fmt.Println()
	green.Print("  ➜ ")
	bold.Print("Brovakt Canal Bridge Watch ")
	fmt.Println("running at:")
	green.Print("  ➜ ")
	fmt.Print("Local:   ")
	cyan.Printf("http://%s\n", listener.Addr())
	fmt.Println()

	go func() {
		if err := srv.Serve(listener); err != nil && err != http.ErrServerClosed {
			fmt.Println("http server error:", err)
		}
	}()

	return srv, nil
}
