package ui

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"log"
	"math"
	"net/http"
	"strings"

	"relialab/adapters/charts"
	"relialab/app"
	"relialab/domain/core"
	"relialab/domain/lifedata"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

//go:embed templates/*.html
var embeddedFiles embed.FS

// Dashboard serves HTML pages for browsing and comparing stored analyses
type Dashboard struct {
	router    *chi.Mux
	service   *app.AnalysisService
	renderer  *charts.Renderer
	templates *template.Template
}

// NewDashboard creates the dashboard and parses its templates
func NewDashboard(service *app.AnalysisService, renderer *charts.Renderer) (*Dashboard, error) {
	funcMap := template.FuncMap{
		"score": func(v float64) string {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return "n/a"
			}
			return fmt.Sprintf("%.4f", v)
		},
		"displayName": func(a *lifedata.Analysis) string {
			if a.Name != "" {
				return a.Name
			}
			return string(a.Model.Distribution)
		},
	}
	templates, err := template.New("").Funcs(funcMap).ParseFS(embeddedFiles, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	d := &Dashboard{
		router:    chi.NewRouter(),
		service:   service,
		renderer:  renderer,
		templates: templates,
	}
	d.setupMiddleware()
	d.setupRoutes()
	return d, nil
}

func (d *Dashboard) setupMiddleware() {
	d.router.Use(middleware.Logger)
	d.router.Use(middleware.Recoverer)
	d.router.Use(middleware.Compress(5))
}

func (d *Dashboard) setupRoutes() {
	d.router.Get("/", d.handleIndex)
	d.router.Get("/analyses/{id}", d.handleAnalysis)
	d.router.Get("/analyses/{id}/charts", d.handleAnalysisCharts)
	d.router.Get("/compare", d.handleCompare)
}

// ServeHTTP makes the dashboard an http.Handler
func (d *Dashboard) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	d.router.ServeHTTP(w, r)
}

// Start serves the dashboard on addr
func (d *Dashboard) Start(addr string) error {
	log.Printf("[Dashboard] Listening on %s", addr)
	return http.ListenAndServe(addr, d.router)
}

func (d *Dashboard) handleIndex(w http.ResponseWriter, r *http.Request) {
	analyses, err := d.service.List(r.Context(), 100, 0)
	if err != nil {
		d.renderError(w, err)
		return
	}
	d.renderTemplate(w, "index.html", map[string]interface{}{
		"Title":    "Analyses",
		"Analyses": analyses,
	})
}

func (d *Dashboard) handleAnalysis(w http.ResponseWriter, r *http.Request) {
	id, err := core.ParseAnalysisID(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	report, err := d.service.Report(r.Context(), id)
	if err != nil {
		d.renderError(w, err)
		return
	}
	d.renderTemplate(w, "analysis.html", map[string]interface{}{
		"Title":  id.String(),
		"ID":     id,
		"Report": template.HTML(report.HTML), // raw HTML is stripped by RenderMarkdown
	})
}

// handleAnalysisCharts renders the probability plot, curves and, for Weibull fits, bounds
func (d *Dashboard) handleAnalysisCharts(w http.ResponseWriter, r *http.Request) {
	id, err := core.ParseAnalysisID(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	series, analyses, err := d.service.CurvesForAnalyses(r.Context(), []core.AnalysisID{id})
	if err != nil {
		d.renderError(w, err)
		return
	}
	analysis := analyses[0]

	var bounds *lifedata.BoundsResult
	if analysis.Model.Distribution == lifedata.Weibull {
		if b, err := d.service.BoundsForAnalysis(r.Context(), id, 0); err == nil {
			bounds = &b
		}
	}

	var buf bytes.Buffer
	if err := d.renderer.RenderAnalysis(&buf, analysis, series, bounds); err != nil {
		d.renderError(w, err)
		return
	}
	writeHTML(w, &buf)
}

// handleCompare overlays curves for ?ids=a,b or repeated ?id= parameters
func (d *Dashboard) handleCompare(w http.ResponseWriter, r *http.Request) {
	var raw []string
	for _, v := range r.URL.Query()["ids"] {
		raw = append(raw, strings.Split(v, ",")...)
	}
	raw = append(raw, r.URL.Query()["id"]...)

	ids := make([]core.AnalysisID, 0, len(raw))
	for _, s := range raw {
		if strings.TrimSpace(s) == "" {
			continue
		}
		id, err := core.ParseAnalysisID(s)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		http.Error(w, "at least one analysis id is required", http.StatusBadRequest)
		return
	}

	series, analyses, err := d.service.CurvesForAnalyses(r.Context(), ids)
	if err != nil {
		d.renderError(w, err)
		return
	}
	title := fmt.Sprintf("Comparison of %d analyses", len(analyses))
	var buf bytes.Buffer
	if err := d.renderer.RenderComparison(&buf, title, series); err != nil {
		d.renderError(w, err)
		return
	}
	writeHTML(w, &buf)
}

func (d *Dashboard) renderTemplate(w http.ResponseWriter, name string, data interface{}) {
	// Render to a buffer so template errors do not leave a half-written page
	var buf bytes.Buffer
	if err := d.templates.ExecuteTemplate(&buf, name, data); err != nil {
		log.Printf("[Dashboard] Template error for %s: %v", name, err)
		http.Error(w, "Template error", http.StatusInternalServerError)
		return
	}
	writeHTML(w, &buf)
}

func (d *Dashboard) renderError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.Printf("[Dashboard] %v", err)
	}
	http.Error(w, err.Error(), status)
}

func writeHTML(w http.ResponseWriter, buf *bytes.Buffer) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		log.Printf("[Dashboard] Error writing response: %v", err)
	}
}
