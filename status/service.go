// Package status serves runtime diagnostics over HTTP.
package status

import (
	"encoding/json"
	"expvar"
	"fmt"
	"log"
	"net"
	"net/http"
	"net/http/pprof"
	"os"
	"sort"
	"strings"
	"sync"
	"time"
)

// Provider is the interface status providers should implement.
type Provider interface {
	Status() (map[string]interface{}, error)
}

// ProviderFunc adapts a function to a Provider.
type ProviderFunc func() (map[string]interface{}, error)

// Status calls f.
func (f ProviderFunc) Status() (map[string]interface{}, error) { return f() }

// Service serves /status, built from registered providers, plus expvar
// counters at /debug/vars and pprof under /debug/pprof.
type Service struct {
	addr string       // Bind address of the HTTP service.
	ln   net.Listener // Service listener

	start     time.Time           // Start up time.
	providers map[string]Provider // Registered providers, by key
	mu        sync.Mutex

	Logger *log.Logger // Logs serving errors
}

// NewService returns a Service that will bind to addr on Start.
func NewService(addr string) *Service {
	return &Service{
		addr:      addr,
		start:     time.Now(),
		providers: make(map[string]Provider),
		Logger:    log.New(os.Stderr, "[status] ", log.LstdFlags),
	}
}

// Start binds the service and begins serving in the background.
func (s *Service) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.ln = ln

	server := http.Server{Handler: s}
	go func() {
		if err := server.Serve(ln); err != nil {
			s.Logger.Println("HTTP service Serve() returned:", err.Error())
		}
	}()
	s.Logger.Println("service listening on", ln.Addr())
	return nil
}

// Close stops the service.
func (s *Service) Close() error {
	if s.ln == nil {
		return nil
	}
	return s.ln.Close()
}

// Addr returns the address on which the Service is listening.
func (s *Service) Addr() net.Addr {
	return s.ln.Addr()
}

// Register registers provider under key, replacing any earlier provider
// for the same key.
func (s *Service) Register(key string, provider Provider) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.providers[key] = provider
}

// ServeHTTP allows Service to serve HTTP requests.
func (s *Service) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/status":
		s.handleStatus(w, r)
	case r.URL.Path == "/debug/vars":
		serveExpvar(w)
	case strings.HasPrefix(r.URL.Path, "/debug/pprof"):
		servePprof(w, r)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (s *Service) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := map[string]interface{}{
		"uptime": time.Since(s.start).String(),
	}
	for k, p := range s.providers {
		st, err := p.Status()
		if err != nil {
			s.Logger.Printf("failed to retrieve status for %s: %s", k, err.Error())
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		status[k] = st
	}

	var b []byte
	var err error
	if _, pretty := r.URL.Query()["pretty"]; pretty {
		b, err = json.MarshalIndent(status, "", "    ")
	} else {
		b, err = json.Marshal(status)
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Write(b)
}

// serveExpvar writes every published expvar, in key order.
func serveExpvar(w http.ResponseWriter) {
	var kvs []expvar.KeyValue
	expvar.Do(func(kv expvar.KeyValue) {
		kvs = append(kvs, kv)
	})
	sort.Slice(kvs, func(i, j int) bool { return kvs[i].Key < kvs[j].Key })

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	fmt.Fprintf(w, "{\n")
	for i, kv := range kvs {
		if i > 0 {
			fmt.Fprintf(w, ",\n")
		}
		fmt.Fprintf(w, "%q: %s", kv.Key, kv.Value)
	}
	fmt.Fprintf(w, "\n}\n")
}

func servePprof(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/debug/pprof/cmdline":
		pprof.Cmdline(w, r)
	case "/debug/pprof/profile":
		pprof.Profile(w, r)
	case "/debug/pprof/symbol":
		pprof.Symbol(w, r)
	case "/debug/pprof/trace":
		pprof.Trace(w, r)
	default:
		pprof.Index(w, r)
	}
}
