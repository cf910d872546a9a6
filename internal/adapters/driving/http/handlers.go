package http

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/swaggo/swag"

	"github.com/custodia-labs/maintenance-agent/internal/core/domain"
)

// ErrorResponse represents an API error response
// @Description API error response
type ErrorResponse struct {
	Error string `json:"error" example:"invalid request body"`
}

// StatusResponse represents a simple status response
// @Description Simple status response
type StatusResponse struct {
	Status string `json:"status" example:"ok"`
}

// VersionResponse represents the API version response
// @Description API version response
type VersionResponse struct {
	Version string `json:"version" example:"1.0.0"`
}

// ReadyResponse reports the state of each dependency
// @Description Readiness status with per-component detail
type ReadyResponse struct {
	Status     string            `json:"status" example:"ready"`
	Components map[string]string `json:"components"`
}

// analyzeRequest is the /analyze request body
// @Description Defect report: a base64 image plus optional context
type analyzeRequest struct {
	ImageBase64 string `json:"image_base64" example:"iVBORw0KGgo..."`
	Question    string `json:"question,omitempty" example:"machine is making grinding noise"`
	ClientID    string `json:"client_id,omitempty" example:"line-3-camera"`
}

// searchRequest is the manual search request body
// @Description Manual passage search
type searchRequest struct {
	Query string `json:"query" example:"oil leak"`
	TopK  int    `json:"top_k,omitempty" example:"3"`
}

// searchResponse wraps manual search hits
type searchResponse struct {
	Query   string                   `json:"query"`
	Sources []domain.RetrievedSource `json:"sources"`
}

// logListResponse wraps a filtered record listing
type logListResponse struct {
	Records []*domain.LogRecord `json:"records"`
	Count   int                 `json:"count"`
}

// Health endpoints

// handleHealth godoc
// @Summary      Health check
// @Description  Returns the liveness status of the API
// @Tags         Health
// @Produce      json
// @Success      200  {object}  StatusResponse
// @Router       /health [get]
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
}

// handleReady godoc
// @Summary      Readiness check
// @Description  Checks the log store, the rebuild lock backend and the manual index
// @Tags         Health
// @Produce      json
// @Success      200  {object}  ReadyResponse
// @Failure      503  {object}  ReadyResponse
// @Router       /ready [get]
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	resp := ReadyResponse{Status: "ready", Components: map[string]string{}}
	status := http.StatusOK

	check := func(name string, p Pinger) {
		if p == nil {
			return
		}
		if err := p.Ping(ctx); err != nil {
			resp.Components[name] = "unhealthy"
			resp.Status = "not_ready"
			status = http.StatusServiceUnavailable
			return
		}
		resp.Components[name] = "healthy"
	}
	check("log_store", s.logStore)
	check("lock", s.lock)

	// An empty index still answers requests with the no-sources templates
	if s.indexService != nil {
		st := s.indexService.Status()
		switch {
		case st.Rebuilding:
			resp.Components["index"] = "rebuilding"
		case st.Empty:
			resp.Components["index"] = "empty"
		default:
			resp.Components["index"] = "loaded"
		}
	}

	writeJSON(w, status, resp)
}

// handleVersion godoc
// @Summary      Get API version
// @Description  Returns the current API version
// @Tags         Health
// @Produce      json
// @Success      200  {object}  VersionResponse
// @Router       /version [get]
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, VersionResponse{Version: s.version})
}

// handleSwaggerDoc serves the registered OpenAPI document
func (s *Server) handleSwaggerDoc(w http.ResponseWriter, r *http.Request) {
	doc, err := swag.ReadDoc()
	if err != nil {
		writeError(w, http.StatusNotFound, "api documentation not registered")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(doc))
}

// Diagnosis

// handleAnalyze godoc
// @Summary      Analyze a defect report
// @Description  Classifies the image, retrieves the top manual passages and returns a recommended action
// @Tags         Analysis
// @Accept       json
// @Produce      json
// @Param        request  body      analyzeRequest  true  "Defect report"
// @Success      200      {object}  domain.AnalyzeResponse
// @Failure      400      {object}  ErrorResponse  "Invalid body or image"
// @Failure      413      {object}  ErrorResponse  "Image too large"
// @Failure      429      {object}  ErrorResponse  "Rate limit exceeded"
// @Failure      502      {object}  ErrorResponse  "Classifier failed"
// @Failure      500      {object}  ErrorResponse  "Manual search failed"
// @Router       /analyze [post]
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxBodyBytes)

	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	image, err := decodeImageBase64(req.ImageBase64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid image: image_base64 is not valid base64")
		return
	}

	resp, err := s.analysisService.Analyze(r.Context(), domain.AnalyzeRequest{
		Image:    image,
		Question: req.Question,
		ClientID: req.ClientID,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidImage):
			writeError(w, http.StatusBadRequest, "invalid image")
		case errors.Is(err, domain.ErrClassification):
			writeError(w, http.StatusBadGateway, "classification failed")
		default:
			s.logger.Error("analysis failed", "error", err, "request_id", GetRequestID(r.Context()))
			writeError(w, http.StatusInternalServerError, "analysis failed")
		}
		return
	}

	// Same encoding the log store keeps as response_json
	body, err := json.Marshal(resp)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to encode response")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// decodeImageBase64 accepts standard or URL-safe base64, padded or not,
// optionally prefixed with a data URI header
func decodeImageBase64(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if i := strings.Index(s, ","); strings.HasPrefix(s, "data:") && i >= 0 {
		s = s[i+1:]
	}
	if s == "" {
		return nil, errors.New("empty image")
	}
	for _, enc := range []*base64.Encoding{
		base64.StdEncoding, base64.RawStdEncoding,
		base64.URLEncoding, base64.RawURLEncoding,
	} {
		if data, err := enc.DecodeString(s); err == nil {
			return data, nil
		}
	}
	return nil, errors.New("malformed base64")
}

// Auth endpoints

// handleLogin godoc
// @Summary      Operator login
// @Description  Authenticate with username and password to receive a JWT token
// @Tags         Authentication
// @Accept       json
// @Produce      json
// @Param        request  body      domain.LoginRequest  true  "Login credentials"
// @Success      200      {object}  domain.LoginResponse
// @Failure      400      {object}  ErrorResponse  "Invalid request body"
// @Failure      401      {object}  ErrorResponse  "Invalid credentials"
// @Failure      500      {object}  ErrorResponse  "Internal server error"
// @Router       /api/v1/auth/login [post]
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := s.authService.Authenticate(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, "username and password are required")
		case errors.Is(err, domain.ErrInvalidCredentials):
			writeError(w, http.StatusUnauthorized, "invalid credentials")
		default:
			writeError(w, http.StatusInternalServerError, "authentication failed")
		}
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleGetMe godoc
// @Summary      Current operator
// @Description  Returns the operator identified by the bearer token
// @Tags         Authentication
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  domain.AuthContext
// @Failure      401  {object}  ErrorResponse  "Unauthorized"
// @Router       /api/v1/me [get]
func (s *Server) handleGetMe(w http.ResponseWriter, r *http.Request) {
	authCtx := GetAuthContext(r.Context())
	if authCtx == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	writeJSON(w, http.StatusOK, authCtx)
}

// Log endpoints

// handleListLogs godoc
// @Summary      List request logs
// @Description  Filtered audit records, newest first
// @Tags         Logs
// @Produce      json
// @Security     BearerAuth
// @Param        resolution  query     string  false  "all, resolved or unresolved"
// @Param        status      query     string  false  "OK or NG"
// @Param        client_id   query     string  false  "Client id"
// @Param        since       query     string  false  "RFC 3339 lower bound (inclusive)"
// @Param        until       query     string  false  "RFC 3339 upper bound (exclusive)"
// @Param        limit       query     int     false  "Maximum records"
// @Success      200  {object}  logListResponse
// @Failure      400  {object}  ErrorResponse  "Invalid filter"
// @Failure      401  {object}  ErrorResponse  "Unauthorized"
// @Failure      500  {object}  ErrorResponse  "Internal server error"
// @Router       /api/v1/logs [get]
func (s *Server) handleListLogs(w http.ResponseWriter, r *http.Request) {
	filter, err := parseLogFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	records, err := s.logService.List(r.Context(), filter)
	if err != nil {
		s.writeLogError(w, r, err, "failed to list logs")
		return
	}
	if records == nil {
		records = []*domain.LogRecord{}
	}

	writeJSON(w, http.StatusOK, logListResponse{Records: records, Count: len(records)})
}

// handleLogReport godoc
// @Summary      Log report
// @Description  Uptime, latency, defect histogram, per-client failures and overdue issues over the filtered records
// @Tags         Logs
// @Produce      json
// @Security     BearerAuth
// @Param        resolution  query     string  false  "all, resolved or unresolved"
// @Param        status      query     string  false  "OK or NG"
// @Param        client_id   query     string  false  "Client id"
// @Param        since       query     string  false  "RFC 3339 lower bound (inclusive)"
// @Param        until       query     string  false  "RFC 3339 upper bound (exclusive)"
// @Success      200  {object}  domain.LogReport
// @Failure      400  {object}  ErrorResponse  "Invalid filter"
// @Failure      401  {object}  ErrorResponse  "Unauthorized"
// @Failure      500  {object}  ErrorResponse  "Internal server error"
// @Router       /api/v1/logs/report [get]
func (s *Server) handleLogReport(w http.ResponseWriter, r *http.Request) {
	filter, err := parseLogFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	report, err := s.logService.Report(r.Context(), filter)
	if err != nil {
		s.writeLogError(w, r, err, "failed to build report")
		return
	}

	writeJSON(w, http.StatusOK, report)
}

// handleOverdueLogs godoc
// @Summary      Overdue issues
// @Description  NG records left unresolved for more than 48 hours
// @Tags         Logs
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  logListResponse
// @Failure      401  {object}  ErrorResponse  "Unauthorized"
// @Failure      500  {object}  ErrorResponse  "Internal server error"
// @Router       /api/v1/logs/overdue [get]
func (s *Server) handleOverdueLogs(w http.ResponseWriter, r *http.Request) {
	records, err := s.logService.Overdue(r.Context())
	if err != nil {
		s.writeLogError(w, r, err, "failed to list overdue issues")
		return
	}
	if records == nil {
		records = []*domain.LogRecord{}
	}

	writeJSON(w, http.StatusOK, logListResponse{Records: records, Count: len(records)})
}

// handleGetLog godoc
// @Summary      Get request log
// @Description  A single audit record including the stored response body
// @Tags         Logs
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Record ID"
// @Success      200  {object}  domain.LogRecord
// @Failure      400  {object}  ErrorResponse  "Invalid record ID"
// @Failure      401  {object}  ErrorResponse  "Unauthorized"
// @Failure      404  {object}  ErrorResponse  "Record not found"
// @Router       /api/v1/logs/{id} [get]
func (s *Server) handleGetLog(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	rec, err := s.logService.Get(r.Context(), id)
	if err != nil {
		s.writeLogError(w, r, err, "failed to get log")
		return
	}

	writeJSON(w, http.StatusOK, rec)
}

// handleResolveLog godoc
// @Summary      Resolve an issue
// @Description  Marks the record resolved and refreshes its resolution time
// @Tags         Logs
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Record ID"
// @Success      200  {object}  domain.LogRecord
// @Failure      400  {object}  ErrorResponse  "Invalid record ID"
// @Failure      401  {object}  ErrorResponse  "Unauthorized"
// @Failure      403  {object}  ErrorResponse  "Insufficient permissions"
// @Failure      404  {object}  ErrorResponse  "Record not found"
// @Router       /api/v1/logs/{id}/resolve [post]
func (s *Server) handleResolveLog(w http.ResponseWriter, r *http.Request) {
	s.setResolved(w, r, true)
}

// handleUnresolveLog godoc
// @Summary      Reopen an issue
// @Description  Marks the record unresolved and clears its resolution time
// @Tags         Logs
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Record ID"
// @Success      200  {object}  domain.LogRecord
// @Failure      400  {object}  ErrorResponse  "Invalid record ID"
// @Failure      401  {object}  ErrorResponse  "Unauthorized"
// @Failure      403  {object}  ErrorResponse  "Insufficient permissions"
// @Failure      404  {object}  ErrorResponse  "Record not found"
// @Router       /api/v1/logs/{id}/unresolve [post]
func (s *Server) handleUnresolveLog(w http.ResponseWriter, r *http.Request) {
	s.setResolved(w, r, false)
}

func (s *Server) setResolved(w http.ResponseWriter, r *http.Request, resolved bool) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var (
		rec *domain.LogRecord
		err error
	)
	if resolved {
		rec, err = s.logService.Resolve(r.Context(), id)
	} else {
		rec, err = s.logService.Unresolve(r.Context(), id)
	}
	if err != nil {
		s.writeLogError(w, r, err, "failed to update resolution")
		return
	}

	actor := ""
	if authCtx := GetAuthContext(r.Context()); authCtx != nil {
		actor = authCtx.Username
	}
	s.logger.Info("resolution changed", "id", id, "resolved", resolved, "operator", actor)

	writeJSON(w, http.StatusOK, rec)
}

// Index endpoints

// handleIndexStatus godoc
// @Summary      Manual index status
// @Description  Chunk and document counts, embedding model and build time of the live index
// @Tags         Index
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  domain.IndexStatus
// @Failure      401  {object}  ErrorResponse  "Unauthorized"
// @Router       /api/v1/index/status [get]
func (s *Server) handleIndexStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.indexService.Status())
}

// handleIndexSearch godoc
// @Summary      Search manuals
// @Description  Returns the manual passages most similar to the query
// @Tags         Index
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      searchRequest  true  "Search query"
// @Success      200      {object}  searchResponse
// @Failure      400      {object}  ErrorResponse  "Invalid request"
// @Failure      401      {object}  ErrorResponse  "Unauthorized"
// @Failure      500      {object}  ErrorResponse  "Search failed"
// @Router       /api/v1/index/search [post]
func (s *Server) handleIndexSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}
	if req.TopK == 0 {
		req.TopK = 3
	}

	sources, err := s.indexService.Search(r.Context(), req.Query, req.TopK)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Error("manual search failed", "error", err, "request_id", GetRequestID(r.Context()))
		writeError(w, http.StatusInternalServerError, "search failed")
		return
	}

	writeJSON(w, http.StatusOK, searchResponse{Query: req.Query, Sources: sources})
}

// handleRebuildIndex godoc
// @Summary      Rebuild manual index
// @Description  Re-reads the manual corpus, persists a new snapshot and swaps it in
// @Tags         Index
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  domain.IndexStatus
// @Failure      401  {object}  ErrorResponse  "Unauthorized"
// @Failure      403  {object}  ErrorResponse  "Admin access required"
// @Failure      409  {object}  ErrorResponse  "Rebuild already in progress"
// @Failure      422  {object}  ErrorResponse  "Corpus produced no chunks"
// @Failure      500  {object}  ErrorResponse  "Rebuild failed"
// @Router       /api/v1/admin/index/rebuild [post]
func (s *Server) handleRebuildIndex(w http.ResponseWriter, r *http.Request) {
	status, err := s.indexService.Rebuild(r.Context())
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrRebuildInProgress):
			writeError(w, http.StatusConflict, "index rebuild already in progress")
		case errors.Is(err, domain.ErrIndexEmpty):
			writeError(w, http.StatusUnprocessableEntity, "manual corpus produced no chunks")
		default:
			s.logger.Error("index rebuild failed", "error", err, "request_id", GetRequestID(r.Context()))
			writeError(w, http.StatusInternalServerError, "index rebuild failed")
		}
		return
	}

	writeJSON(w, http.StatusOK, status)
}

// Helper functions

func (s *Server) writeLogError(w http.ResponseWriter, r *http.Request, err error, msg string) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "log record not found")
	case errors.Is(err, domain.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.logger.Error(msg, "error", err, "request_id", GetRequestID(r.Context()))
		writeError(w, http.StatusInternalServerError, msg)
	}
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id < 1 {
		writeError(w, http.StatusBadRequest, "invalid record id")
		return 0, false
	}
	return id, true
}

// parseLogFilter reads the reporting query parameters
func parseLogFilter(r *http.Request) (domain.LogFilter, error) {
	q := r.URL.Query()
	filter := domain.LogFilter{
		Resolution: domain.ResolutionFilter(strings.ToLower(strings.TrimSpace(q.Get("resolution")))),
		ClientID:   strings.TrimSpace(q.Get("client_id")),
	}

	if v := q.Get("status"); v != "" {
		status, err := domain.ParseStatus(v)
		if err != nil {
			return filter, err
		}
		filter.Status = status
	}
	for name, dst := range map[string]**time.Time{"since": &filter.Since, "until": &filter.Until} {
		v := q.Get(name)
		if v == "" {
			continue
		}
		t, err := domain.ParseFilterTime(v)
		if err != nil {
			return filter, errors.New("invalid " + name + ": expected RFC 3339 or YYYY-MM-DD")
		}
		*dst = &t
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return filter, errors.New("invalid limit")
		}
		filter.Limit = n
	}

	if err := filter.Validate(); err != nil {
		return filter, err
	}
	return filter, nil
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}
