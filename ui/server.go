package ui

import (
	"log"
	"net/http"
	"strconv"
	"strings"

	"relialab/app"
	"relialab/domain/core"
	"relialab/domain/lifedata"
	"relialab/internal/errors"
	"relialab/ports"

	"github.com/gin-gonic/gin"
)

// maxUploadBytes bounds multipart life-data uploads
const maxUploadBytes = 32 << 20

// Server is the JSON API for estimation and stored analyses
type Server struct {
	router  *gin.Engine
	service *app.AnalysisService
	reader  ports.SampleReader
}

// sampleBody is the observation part shared by most requests. Grouped, when
// present, replaces Failures and Suspensions.
type sampleBody struct {
	Failures    []float64               `json:"failures"`
	Suspensions []float64               `json:"suspensions"`
	Grouped     *lifedata.GroupedSample `json:"grouped,omitempty"`
}

func (b sampleBody) sample(service *app.AnalysisService) (lifedata.Sample, error) {
	if b.Grouped != nil {
		return service.ExpandGrouped(*b.Grouped)
	}
	return lifedata.Sample{Failures: b.Failures, Suspensions: b.Suspensions}, nil
}

type estimateRequest struct {
	sampleBody
	Name         string `json:"name"`
	Distribution string `json:"distribution"`
	Method       string `json:"method"`
}

type batchRequest struct {
	sampleBody
	Models []app.ModelSpec `json:"models"`
}

type curveModel struct {
	Name         string             `json:"name"`
	Distribution string             `json:"distribution"`
	Parameters   map[string]float64 `json:"parameters"`
	MaxTime      float64            `json:"maxTime"`
}

type reliabilityRequest struct {
	Models      []curveModel `json:"models"`
	AnalysisIDs []string     `json:"analysisIds"`
}

type boundsRequest struct {
	Failures        []float64 `json:"failures"`
	AnalysisID      string    `json:"analysisId"`
	ConfidenceLevel float64   `json:"confidenceLevel"`
}

type overridesRequest struct {
	Parameters map[string]float64 `json:"parameters"`
}

// NewServer creates the API server. ginMode is one of gin's debug/release/test modes.
func NewServer(service *app.AnalysisService, reader ports.SampleReader, ginMode string) *Server {
	if ginMode != "" {
		gin.SetMode(ginMode)
	}
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	router.MaxMultipartMemory = maxUploadBytes

	s := &Server{router: router, service: service, reader: reader}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)
	s.router.NoRoute(func(c *gin.Context) {
		writeError(c, errors.NotFound("route "+c.Request.Method+" "+c.Request.URL.Path))
	})

	api := s.router.Group("/api")
	{
		api.POST("/estimate", s.handleEstimate)
		api.POST("/estimate/batch", s.handleEstimateBatch)
		api.POST("/reliability", s.handleReliability)
		api.POST("/best-fit", s.handleBestFit)
		api.POST("/bounds", s.handleBounds)
		api.POST("/import", s.handleImport)

		api.GET("/analyses", s.handleListAnalyses)
		api.GET("/analyses/:id", s.handleGetAnalysis)
		api.DELETE("/analyses/:id", s.handleDeleteAnalysis)
		api.PUT("/analyses/:id/overrides", s.handleOverrides)
		api.GET("/analyses/:id/report", s.handleReport)
		api.POST("/analyses/:id/summary", s.handleSummary)
	}
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run starts the HTTP server on addr
func (s *Server) Run(addr string) error {
	log.Printf("[API] Listening on %s", addr)
	return s.router.Run(addr)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleEstimate(c *gin.Context) {
	var req estimateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	analysis, err := s.service.Fit(c.Request.Context(), app.FitRequest{
		Name:         req.Name,
		Distribution: req.Distribution,
		Method:       req.Method,
		Sample:       lifedata.Sample{Failures: req.Failures, Suspensions: req.Suspensions},
		Grouped:      req.Grouped,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, analysis)
}

func (s *Server) handleEstimateBatch(c *gin.Context) {
	var req batchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	sample, err := req.sample(s.service)
	if err != nil {
		writeError(c, err)
		return
	}
	results, err := s.service.FitModels(c.Request.Context(), sample, req.Models)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}

func (s *Server) handleReliability(c *gin.Context) {
	var req reliabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	if len(req.AnalysisIDs) > 0 {
		ids := make([]core.AnalysisID, 0, len(req.AnalysisIDs))
		for _, raw := range req.AnalysisIDs {
			id, err := core.ParseAnalysisID(raw)
			if err != nil {
				badRequest(c, err)
				return
			}
			ids = append(ids, id)
		}
		series, _, err := s.service.CurvesForAnalyses(c.Request.Context(), ids)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, series)
		return
	}

	inputs := make([]lifedata.CurveInput, 0, len(req.Models))
	for _, m := range req.Models {
		input := lifedata.CurveInput{Name: m.Name, MaxTime: m.MaxTime}
		if dist, err := lifedata.ParseDistribution(m.Distribution); err == nil && len(m.Parameters) > 0 {
			// Unknown families and missing values evaluate to null curves
			input.Parameters, _ = lifedata.ParametersFromValues(dist, m.Parameters)
		}
		if input.Name == "" {
			input.Name = strings.ToLower(m.Distribution)
		}
		inputs = append(inputs, input)
	}
	series, err := s.service.Curves(c.Request.Context(), inputs)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, series)
}

func (s *Server) handleBestFit(c *gin.Context) {
	var req sampleBody
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	sample, err := req.sample(s.service)
	if err != nil {
		writeError(c, err)
		return
	}
	result, err := s.service.Compare(c.Request.Context(), sample)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleBounds(c *gin.Context) {
	var req boundsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	var (
		result lifedata.BoundsResult
		err    error
	)
	if req.AnalysisID != "" {
		id, perr := core.ParseAnalysisID(req.AnalysisID)
		if perr != nil {
			badRequest(c, perr)
			return
		}
		result, err = s.service.BoundsForAnalysis(c.Request.Context(), id, req.ConfidenceLevel)
	} else {
		result, err = s.service.Bounds(c.Request.Context(), req.Failures, req.ConfidenceLevel)
	}
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// handleImport reads an uploaded .xlsx/.csv file and fits it like /api/estimate
func (s *Server) handleImport(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		badRequest(c, errors.InvalidInput("multipart field \"file\" is required"))
		return
	}
	f, err := header.Open()
	if err != nil {
		writeError(c, errors.Wrap(err, "failed to open upload"))
		return
	}
	defer f.Close()

	grouped, err := s.reader.Read(f, header.Filename)
	if err != nil {
		badRequest(c, err)
		return
	}

	name := c.PostForm("name")
	if name == "" {
		name = header.Filename
	}
	analysis, err := s.service.Fit(c.Request.Context(), app.FitRequest{
		Name:         name,
		Distribution: c.PostForm("distribution"),
		Method:       c.PostForm("method"),
		Grouped:      &grouped,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, analysis)
}

func (s *Server) handleListAnalyses(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit < 0 {
		badRequest(c, errors.InvalidInput("limit must be a non-negative integer"))
		return
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		badRequest(c, errors.InvalidInput("offset must be a non-negative integer"))
		return
	}
	analyses, err := s.service.List(c.Request.Context(), limit, offset)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"analyses": analyses, "limit": limit, "offset": offset})
}

func (s *Server) handleGetAnalysis(c *gin.Context) {
	id, ok := analysisID(c)
	if !ok {
		return
	}
	analysis, err := s.service.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, analysis)
}

func (s *Server) handleDeleteAnalysis(c *gin.Context) {
	id, ok := analysisID(c)
	if !ok {
		return
	}
	if err := s.service.Delete(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleOverrides(c *gin.Context) {
	id, ok := analysisID(c)
	if !ok {
		return
	}
	var req overridesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	analysis, err := s.service.Override(c.Request.Context(), id, req.Parameters)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, analysis)
}

// handleReport returns the report as JSON, or as an HTML document with ?format=html
func (s *Server) handleReport(c *gin.Context) {
	id, ok := analysisID(c)
	if !ok {
		return
	}
	report, err := s.service.Report(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	switch c.Query("format") {
	case "html":
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(report.HTML))
	case "markdown", "md":
		c.Data(http.StatusOK, "text/markdown; charset=utf-8", []byte(report.Markdown))
	default:
		c.JSON(http.StatusOK, report)
	}
}

func (s *Server) handleSummary(c *gin.Context) {
	id, ok := analysisID(c)
	if !ok {
		return
	}
	summary, err := s.service.Summarize(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "summary": summary})
}

func analysisID(c *gin.Context) (core.AnalysisID, bool) {
	id, err := core.ParseAnalysisID(c.Param("id"))
	if err != nil {
		badRequest(c, err)
		return "", false
	}
	return id, true
}

func badRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

// writeError maps an application error to an HTTP status
func writeError(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.Printf("[API] %s %s failed: %v", c.Request.Method, c.FullPath(), err)
	}
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error(), "code": errors.GetCode(err)})
}

func statusFor(err error) int {
	if core.IsNotFoundError(err) {
		return http.StatusNotFound
	}
	switch errors.GetCode(err) {
	case errors.CodeInvalidInput:
		return http.StatusBadRequest
	case errors.CodeNotFound:
		return http.StatusNotFound
	case errors.CodeInsufficientData:
		return http.StatusUnprocessableEntity
	case errors.CodeNotConfigured:
		return http.StatusServiceUnavailable
	case errors.CodeExternalService:
		return http.StatusBadGateway
	}
	if core.IsInputError(err) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
