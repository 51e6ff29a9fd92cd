package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server serves a Registry's metrics over HTTP for --metrics-listen.
type Server struct {
	httpServer *http.Server
}

// Serve starts listening on addr in the background and returns
// immediately; call Shutdown to stop it.
func Serve(addr string, r *Registry) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(r.Registerer(), promhttp.HandlerOpts{}))

	s := &Server{httpServer: &http.Server{Addr: addr, Handler: mux}}
	go s.httpServer.ListenAndServe()
	return s
}

// Shutdown gracefully stops the exporter.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
