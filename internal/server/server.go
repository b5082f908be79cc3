// Package server serves a scraped schema, its classes and exports for preview.
package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sort"
	"sync"

	"github.com/gorilla/mux"
	"github.com/urfave/negroni"

	"github.com/xcono/webexdocs/internal/classgen"
	"github.com/xcono/webexdocs/internal/generate"
	"github.com/xcono/webexdocs/internal/metrics"
	"github.com/xcono/webexdocs/internal/models"
	"github.com/xcono/webexdocs/internal/store"
	"github.com/xcono/webexdocs/internal/validate"
)

// Options configures a Server
type Options struct {
	Package string
	Metrics *metrics.Metrics
	Store   store.Store
	Logger  *slog.Logger
}

// Server wraps the preview API handlers.
type Server struct {
	doc      *models.Schema
	registry *classgen.Registry
	opts     Options
	log      *slog.Logger
	router   *mux.Router

	// source emission marks classes on the shared registry
	emitMu sync.Mutex
}

type sectionSummary struct {
	Name    string `json:"name"`
	Methods int    `json:"methods"`
}

// groupSchema is the JSON schema of one parameter group of a method
type groupSchema struct {
	Method string         `json:"method"`
	Label  string         `json:"label"`
	Schema map[string]any `json:"schema"`
}

type classDetail struct {
	*classgen.Class
	Source string `json:"source"`
}

// New builds the classes of doc and registers the routes
func New(doc *models.Schema, opts Options) (*Server, error) {
	if doc == nil {
		return nil, errors.New("schema is nil")
	}
	if opts.Package == "" {
		opts.Package = "models"
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.New()
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	registry, inferred, err := classgen.Generate(doc, log)
	if err != nil {
		return nil, err
	}
	opts.Metrics.SetClasses(registry.Len(), inferred)

	s := &Server{
		doc:      doc,
		registry: registry,
		opts:     opts,
		log:      log.With("component", "server"),
		router:   mux.NewRouter().StrictSlash(true),
	}
	s.setupRoutes()
	return s, nil
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/api/sections", s.handleSections()).Methods("GET")
	s.router.HandleFunc("/api/sections/{section}", s.handleSection()).Methods("GET")
	s.router.HandleFunc("/api/sections/{section}/schema", s.handleSectionSchema()).Methods("GET")
	s.router.HandleFunc("/api/classes", s.handleClasses()).Methods("GET")
	s.router.HandleFunc("/api/classes/{name}", s.handleClass()).Methods("GET")
	s.router.HandleFunc("/api/openapi/{section}", s.handleOpenAPI()).Methods("GET")
	s.router.HandleFunc("/api/runs", s.handleRuns()).Methods("GET")
	s.router.HandleFunc("/models.go", s.handleSource()).Methods("GET")
	s.router.Handle("/metrics", s.opts.Metrics.Handler()).Methods("GET")
}

// Handler returns the router wrapped in the recovery and logging middleware
func (s *Server) Handler() http.Handler {
	n := negroni.New(negroni.NewRecovery(), negroni.HandlerFunc(s.logMiddleware))
	n.UseHandler(s.router)
	return n
}

// ListenAndServe starts the server on addr.
func (s *Server) ListenAndServe(addr string) error {
	s.log.Info("listening", "addr", addr)
	return http.ListenAndServe(addr, s.Handler())
}

func (s *Server) logMiddleware(w http.ResponseWriter, r *http.Request, next http.HandlerFunc) {
	ww := negroni.NewResponseWriter(w)
	next(ww, r)
	s.log.Info("request", "method", r.Method, "uri", r.RequestURI, "status", ww.Status(), "size", ww.Size())
}

func (s *Server) handleSections() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sections := make([]sectionSummary, 0, len(s.doc.Docs))
		for _, name := range s.doc.Sections() {
			sections = append(sections, sectionSummary{Name: name, Methods: len(s.doc.Docs[name])})
		}
		writeJSON(w, http.StatusOK, sections)
	}
}

func (s *Server) handleSection() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		methods, ok := s.doc.Docs[mux.Vars(r)["section"]]
		if !ok {
			http.Error(w, "section not found", http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, methods)
	}
}

func (s *Server) handleSectionSchema() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		methods, ok := s.doc.Docs[mux.Vars(r)["section"]]
		if !ok {
			http.Error(w, "section not found", http.StatusNotFound)
			return
		}

		v := validate.NewSchemaValidator()
		schemas := []groupSchema{}
		for _, md := range methods {
			for _, label := range md.Labels() {
				schemas = append(schemas, groupSchema{
					Method: md.Header,
					Label:  label,
					Schema: v.GenerateSchemaFromParameters(md.Header+" "+label, md.ParametersAndResponse[label]),
				})
			}
		}
		writeJSON(w, http.StatusOK, schemas)
	}
}

func (s *Server) handleClasses() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		classes := s.registry.Classes()
		sort.Slice(classes, func(i, j int) bool { return classes[i].Name < classes[j].Name })
		writeJSON(w, http.StatusOK, classes)
	}
}

func (s *Server) handleClass() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := mux.Vars(r)["name"]
		c := s.registry.Get(name)
		if c == nil {
			http.Error(w, "class not found", http.StatusNotFound)
			return
		}

		s.emitMu.Lock()
		defs := generate.NewSourceEmitter(s.registry).Definitions()
		s.emitMu.Unlock()

		detail := classDetail{Class: c}
		for _, d := range defs {
			if d.Name == name {
				detail.Source = d.Source
			}
		}
		writeJSON(w, http.StatusOK, detail)
	}
}

func (s *Server) handleSource() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.emitMu.Lock()
		src, err := generate.NewSourceEmitter(s.registry).File(s.opts.Package)
		s.emitMu.Unlock()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/x-go; charset=utf-8")
		_, _ = w.Write(src)
	}
}

func (s *Server) handleOpenAPI() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		section := mux.Vars(r)["section"]
		methods, ok := s.doc.Docs[section]
		if !ok {
			http.Error(w, "section not found", http.StatusNotFound)
			return
		}
		spec, err := generate.NewOpenAPIGenerator().GenerateSpec(section, methods)
		if err != nil {
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
		data, err := spec.ToYAML()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/yaml")
		_, _ = w.Write(data)
	}
}

func (s *Server) handleRuns() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.opts.Store == nil {
			writeJSON(w, http.StatusOK, []store.Run{})
			return
		}
		runs, err := s.opts.Store.ListRuns(r.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if runs == nil {
			runs = []store.Run{}
		}
		writeJSON(w, http.StatusOK, runs)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
