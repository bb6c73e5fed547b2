// Package server runs variational MaxCut optimizations as asynchronous jobs
// behind a REST API and a JSON-RPC 2.0 endpoint.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/copyleftdev/vqo/internal/backend"
	"github.com/copyleftdev/vqo/internal/config"
	vqoerrors "github.com/copyleftdev/vqo/internal/errors"
	"github.com/copyleftdev/vqo/internal/logging"
	"github.com/copyleftdev/vqo/internal/metrics"
	"github.com/copyleftdev/vqo/internal/objective"
	"github.com/copyleftdev/vqo/internal/optimization"
	"github.com/copyleftdev/vqo/internal/varform"
	"github.com/copyleftdev/vqo/internal/vqo"
)

// JSON-RPC 2.0 error codes.
const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeServerError    = -32000
)

// StartRequest describes a MaxCut optimization job. Zero values fall back to
// the server configuration.
type StartRequest struct {
	// Weights is the symmetric adjacency matrix of the graph.
	Weights             [][]float64             `json:"weights"`
	Optimizer           string                  `json:"optimizer,omitempty"`
	OptimizerParameters optimization.Parameters `json:"optimizer_parameters,omitempty"`
	Depth               int                     `json:"depth,omitempty"`
	Entanglement        string                  `json:"entanglement,omitempty"`
	// EntanglerMap maps source qubits to target lists, e.g. {"0": [1, 2]}.
	// It overrides Entanglement.
	EntanglerMap        any                     `json:"entangler_map,omitempty"`
	Backend             string                  `json:"backend,omitempty"`
	Shots               int                     `json:"shots,omitempty"`
	Seed                *uint64                 `json:"seed,omitempty"`
	InitialPoint        []float64               `json:"initial_point,omitempty"`
	SmoothSchedule      bool                    `json:"smooth_schedule,omitempty"`
	Knots               int                     `json:"knots,omitempty"`
	SkipOperatorCheck   bool                    `json:"do_not_check_cost_operator,omitempty"`
}

// Job is the state of one optimization. Fields are guarded by the server
// lock.
type Job struct {
	ID        string
	Status    string
	Optimizer string
	StartTime time.Time
	EndTime   *time.Time
	Result    *vqo.Result
	Solution  *vqo.Solution
	Err       error

	cancel context.CancelFunc
}

// JobStatus is the wire form of a Job.
type JobStatus struct {
	ID        string        `json:"optimization_id"`
	Status    string        `json:"status"`
	Optimizer string        `json:"optimizer"`
	StartTime string        `json:"start_time"`
	EndTime   string        `json:"end_time,omitempty"`
	Result    *vqo.Result   `json:"result,omitempty"`
	Solution  *vqo.Solution `json:"solution,omitempty"`
	Error     string        `json:"error,omitempty"`
}

func (j *Job) status() JobStatus {
	st := JobStatus{
		ID:        j.ID,
		Status:    j.Status,
		Optimizer: j.Optimizer,
		StartTime: j.StartTime.Format(time.RFC3339),
		Result:    j.Result,
		Solution:  j.Solution,
	}
	if j.EndTime != nil {
		st.EndTime = j.EndTime.Format(time.RFC3339)
	}
	if j.Err != nil {
		st.Error = j.Err.Error()
	}
	return st
}

func (j *Job) terminal() bool {
	switch j.Status {
	case metrics.JobSucceeded, metrics.JobFailed, metrics.JobCancelled:
		return true
	}
	return false
}

// Server implements the HTTP and JSON-RPC server for the optimization service.
// At most cfg.Optimization.WorkerCount jobs run at once; the rest wait as
// pending.
type Server struct {
	cfg     *config.Config
	logger  *logging.Logger
	metrics *metrics.Collector
	workers chan struct{}
	wg      sync.WaitGroup

	jobs   map[string]*Job
	jobsMu sync.RWMutex
}

// NewServer creates a new server instance. collector may be nil.
func NewServer(cfg *config.Config, logger *logging.Logger, collector *metrics.Collector) *Server {
	workers := cfg.Optimization.WorkerCount
	if workers < 1 {
		workers = 1
	}
	return &Server{
		cfg:     cfg,
		logger:  logger,
		metrics: collector,
		workers: make(chan struct{}, workers),
		jobs:    make(map[string]*Job),
	}
}

func (s *Server) RegisterRoutes(r chi.Router) {
	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/optimize", s.handleOptimize)
		r.Get("/status/{id}", s.handleStatus)
		r.Delete("/optimization/{id}", s.handleCancel)
		r.Get("/optimizers", s.handleOptimizers)
	})

	// JSON-RPC 2.0 endpoint
	r.Post("/rpc", s.handleJSONRPC)
}

type rpcRequest struct {
	JSONRPC string            `json:"jsonrpc"`
	ID      interface{}       `json:"id"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params,omitempty"`
}

type idParams struct {
	ID string `json:"optimization_id"`
}

// handleJSONRPC handles JSON-RPC 2.0 requests
func (s *Server) handleJSONRPC(w http.ResponseWriter, r *http.Request) {
	var request rpcRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		s.respondWithError(w, codeParseError, "Parse error", nil, nil)
		return
	}

	// Validate JSON-RPC 2.0 request
	if request.JSONRPC != "2.0" {
		s.respondWithError(w, codeInvalidRequest, "Invalid Request", request.ID, nil)
		return
	}

	var result interface{}
	var err error

	switch request.Method {
	case "optimization.start":
		var req StartRequest
		if err = decodeParams(request.Params, &req); err == nil {
			result, err = s.Start(req)
		}
	case "optimization.status":
		var p idParams
		if err = decodeParams(request.Params, &p); err == nil {
			result, err = s.Status(p.ID)
		}
	case "optimization.cancel":
		var p idParams
		if err = decodeParams(request.Params, &p); err == nil {
			result, err = s.Cancel(p.ID)
		}
	case "optimization.optimizers":
		result = optimization.Default().Names()
	default:
		s.respondWithError(w, codeMethodNotFound, "Method not found", request.ID, nil)
		return
	}

	if err != nil {
		code := codeServerError
		if vqoerrors.HTTPStatus(err) == http.StatusBadRequest {
			code = codeInvalidParams
		}
		s.respondWithError(w, code, http.StatusText(vqoerrors.HTTPStatus(err)), request.ID, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      request.ID,
		"result":  result,
	})
}

// decodeParams decodes the first positional parameter into v.
func decodeParams(params []json.RawMessage, v interface{}) error {
	if len(params) == 0 {
		return vqoerrors.New(vqoerrors.KindContract, "missing required parameters")
	}
	if err := json.Unmarshal(params[0], v); err != nil {
		return vqoerrors.Wrap(err, vqoerrors.KindContract, "invalid parameter format, expected object")
	}
	return nil
}

// respondWithError sends a JSON-RPC 2.0 error response
func (s *Server) respondWithError(w http.ResponseWriter, code int, message string, id interface{}, cause error) {
	fields := map[string]interface{}{
		"status":  code,
		"message": message,
	}
	rpcErr := map[string]interface{}{
		"code":    code,
		"message": message,
	}
	if cause != nil {
		fields["error"] = cause.Error()
		rpcErr["data"] = cause.Error()
	}
	s.logger.Warn("Request error", fields)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"jsonrpc": "2.0",
		"error":   rpcErr,
		"id":      id,
	})
}

// Start validates req, builds the optimizer and queues the job. Invalid
// requests fail here rather than in the background.
func (s *Server) Start(req StartRequest) (*JobStatus, error) {
	obj, opts, name, err := s.buildRun(req)
	if err != nil {
		return nil, err
	}
	v, err := vqo.New(obj, name, opts)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	job := &Job{
		ID:        uuid.NewString(),
		Status:    metrics.JobPending,
		Optimizer: name,
		StartTime: time.Now(),
		cancel:    cancel,
	}

	s.jobsMu.Lock()
	s.jobs[job.ID] = job
	s.metrics.JobTransition("", metrics.JobPending)
	st := job.status()
	s.jobsMu.Unlock()

	s.logger.Info("Optimization queued", map[string]interface{}{
		"optimization_id": job.ID,
		"optimizer":       name,
		"num_qubits":      len(req.Weights),
	})

	s.wg.Add(1)
	go s.runJob(ctx, job, v)

	return &st, nil
}

// buildRun turns a request into the objective and options of a run.
func (s *Server) buildRun(req StartRequest) (objective.Func, vqo.Options, string, error) {
	defaults := s.cfg.Optimization

	weights, err := objective.WeightsFromRows(req.Weights)
	if err != nil {
		return nil, vqo.Options{}, "", err
	}
	n, _ := weights.Dims()

	var entanglerMap varform.EntanglerMap
	if req.EntanglerMap != nil {
		if entanglerMap, err = varform.ParseEntanglerMap(req.EntanglerMap, n); err != nil {
			return nil, vqo.Options{}, "", err
		}
	}

	op, offset, err := objective.MaxCutOperator(weights)
	if err != nil {
		return nil, vqo.Options{}, "", err
	}

	name := req.Optimizer
	if name == "" {
		name = defaults.Optimizer
	}
	params := optimization.Parameters{"maxiter": defaults.MaxIter}
	for k, v := range req.OptimizerParameters {
		params[k] = v
	}

	depth := req.Depth
	if depth == 0 {
		depth = defaults.Depth
	}
	entanglement := req.Entanglement
	if entanglement == "" {
		entanglement = defaults.Entanglement
	}
	backendName := req.Backend
	if backendName == "" {
		backendName = defaults.Backend
	}
	shots := req.Shots
	if shots == 0 {
		shots = defaults.Shots
	}
	seed := defaults.Seed
	if req.Seed != nil {
		seed = *req.Seed
	}
	if _, ok := params["seed"]; !ok {
		params["seed"] = seed
	}

	opts := vqo.Options{
		OptimizerParameters: params,
		VarformDescription: varform.Description{
			Name:         "RYRZ",
			NumQubits:    n,
			Depth:        depth,
			Entanglement: entanglement,
			EntanglerMap: entanglerMap,
		},
		BackendDescription: backend.Description{Package: backend.PackageSimulator, Name: backendName},
		ExecuteParameters:  backend.ExecuteParameters{Shots: shots},
		ProblemDescription: vqo.ProblemDescription{
			Offset:                 offset,
			DoNotCheckCostOperator: req.SkipOperatorCheck,
			SmoothSchedule:         req.SmoothSchedule,
			Knots:                  req.Knots,
			CostOperator:           op,
		},
		InitialPoint: req.InitialPoint,
		BackendSeed:  seed,
		Logger:       logging.NewZapLogger(s.logger),
		Metrics:      s.metrics,
	}
	return objective.MaxCut(weights), opts, name, nil
}

// runJob waits for a worker slot, then optimizes and extracts the solution.
func (s *Server) runJob(ctx context.Context, job *Job, v *vqo.VariationalQuantumOptimizer) {
	defer s.wg.Done()

	select {
	case s.workers <- struct{}{}:
		defer func() { <-s.workers }()
	case <-ctx.Done():
		return
	}

	if !s.transition(job, metrics.JobRunning) {
		return
	}

	res, err := v.Optimize(ctx)
	var sol *vqo.Solution
	if err == nil {
		sol, err = v.OptimalSolution(ctx, 0)
	}

	s.jobsMu.Lock()
	defer s.jobsMu.Unlock()

	if job.terminal() {
		// Cancelled while running.
		return
	}
	now := time.Now()
	job.EndTime = &now
	if err != nil {
		s.logger.WithError(err).Error("Optimization failed", map[string]interface{}{
			"optimization_id": job.ID,
		})
		job.Err = err
		s.setStatus(job, metrics.JobFailed)
		return
	}
	job.Result = res
	job.Solution = sol
	s.setStatus(job, metrics.JobSucceeded)
	s.logger.Info("Optimization completed", map[string]interface{}{
		"optimization_id": job.ID,
		"min_val":         res.MinVal,
		"value":           sol.Value,
	})
}

// transition moves a non-terminal job to status and reports whether it did.
func (s *Server) transition(job *Job, status string) bool {
	s.jobsMu.Lock()
	defer s.jobsMu.Unlock()
	if job.terminal() {
		return false
	}
	s.setStatus(job, status)
	return true
}

// setStatus must be called with jobsMu held.
func (s *Server) setStatus(job *Job, status string) {
	s.metrics.JobTransition(job.Status, status)
	job.Status = status
}

// Status returns the current state of a job.
func (s *Server) Status(id string) (*JobStatus, error) {
	s.jobsMu.RLock()
	defer s.jobsMu.RUnlock()

	job, ok := s.jobs[id]
	if !ok {
		return nil, errNotFound(id)
	}
	st := job.status()
	return &st, nil
}

// Cancel stops a pending or running job.
func (s *Server) Cancel(id string) (*JobStatus, error) {
	s.jobsMu.Lock()
	defer s.jobsMu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return nil, errNotFound(id)
	}
	if job.terminal() {
		return nil, vqoerrors.Errorf(vqoerrors.KindOrdering, "cannot cancel optimization with status: %s", job.Status)
	}

	job.cancel()
	now := time.Now()
	job.EndTime = &now
	s.setStatus(job, metrics.JobCancelled)

	s.logger.Info("Optimization cancelled", map[string]interface{}{
		"optimization_id": id,
	})
	st := job.status()
	return &st, nil
}

func errNotFound(id string) error {
	return vqoerrors.Errorf(vqoerrors.KindContract, "optimization not found: %s", id)
}

// Close cancels every job and waits for the workers to exit.
func (s *Server) Close() error {
	s.jobsMu.Lock()
	for _, job := range s.jobs {
		job.cancel()
	}
	s.jobsMu.Unlock()

	s.wg.Wait()
	return nil
}

// handleOptimize handles POST /api/v1/optimize.
func (s *Server) handleOptimize(w http.ResponseWriter, r *http.Request) {
	var req StartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error": fmt.Sprintf("Invalid request body: %v", err),
		})
		return
	}

	st, err := s.Start(req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, st)
}

// handleStatus handles GET /api/v1/status/{id}.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st, err := s.Status(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]interface{}{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// handleCancel handles DELETE /api/v1/optimization/{id}.
func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.Status(id); err != nil {
		writeJSON(w, http.StatusNotFound, map[string]interface{}{"error": err.Error()})
		return
	}

	st, err := s.Cancel(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// handleOptimizers handles GET /api/v1/optimizers.
func (s *Server) handleOptimizers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"optimizers": optimization.Default().Names(),
	})
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, vqoerrors.HTTPStatus(err), map[string]interface{}{
		"error": err.Error(),
		"kind":  vqoerrors.KindOf(err).String(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
