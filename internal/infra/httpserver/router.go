package httpserver

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/sirupsen/logrus"

	appai "github.com/bryanwahyu/automaton-forensics/internal/application/ai"
	appanalysis "github.com/bryanwahyu/automaton-forensics/internal/application/analysis"
	domai "github.com/bryanwahyu/automaton-forensics/internal/domain/ai"
	domain "github.com/bryanwahyu/automaton-forensics/internal/domain/forensics"
	"github.com/bryanwahyu/automaton-forensics/internal/middleware"
)

// maxMemory is how much of a multipart body is kept in RAM before spilling
// to temp files.
const maxMemory = 32 << 20

// Options wires the router. AI, Limiter and Health are optional.
type Options struct {
	Analysis       *appanalysis.Service
	AI             *appai.Service
	Registry       *domain.Registry
	SamplePath     string
	MaxUploadBytes int64
	APIKeys        map[string]string
	Limiter        *middleware.RateLimiter
	Health         map[string]middleware.HealthChecker
	Log            logrus.FieldLogger
}

type Router struct {
	analysisSvc *appanalysis.Service
	aiSvc       *appai.Service
	registry    *domain.Registry
	samplePath  string
	maxUpload   int64
	log         logrus.FieldLogger
}

func NewRouter(opts Options) http.Handler {
	log := opts.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	r := &Router{
		analysisSvc: opts.Analysis,
		aiSvc:       opts.AI,
		registry:    opts.Registry,
		samplePath:  opts.SamplePath,
		maxUpload:   opts.MaxUploadBytes,
		log:         log,
	}

	mux := chi.NewRouter()
	mux.Use(middleware.MetricsMiddleware)
	mux.Use(middleware.LoggingMiddleware(log))

	mux.Get("/", r.wrap(r.handleIndex))
	if opts.Limiter != nil {
		mux.With(middleware.RateLimit(opts.Limiter)).Post("/analyze", r.wrap(r.handleAnalyze))
	} else {
		mux.Post("/analyze", r.wrap(r.handleAnalyze))
	}
	mux.Get("/download/{name}", r.wrap(r.handleDownload))

	mux.Get("/ping", middleware.PingHandler)
	mux.Get("/health", middleware.HealthHandler(opts.Health))
	mux.Get("/metrics", middleware.MetricsHandler)

	mux.Route("/v1", func(rt chi.Router) {
		rt.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Authorization", "Content-Type"},
			MaxAge:         300,
		}))
		rt.Use(middleware.APIKeyAuth(opts.APIKeys))

		rt.Get("/reports", r.wrap(r.handlePaginate))
		rt.Get("/reports/latest", r.wrap(r.handleLatest))
		rt.Get("/reports/{id}", r.wrap(r.handleGet))
		rt.Get("/reports/{id}/failures", r.wrap(r.handleFailures))
		rt.Get("/summary", r.wrap(r.handleSummary))

		if r.aiSvc != nil {
			rt.Post("/reports/{id}/triage", r.wrap(r.handleTriage))
			rt.Get("/reports/{id}/triage", r.wrap(r.handleLatestTriage))
			rt.Get("/triage", r.wrap(r.handleTriageList))
		}
	})

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

// notices for errors the user can fix; they go back to the index page
var notices = map[error]string{
	domain.ErrSampleMissing: "Sample file missing on server.",
	domain.ErrNoUpload:      "No file uploaded.",
	domain.ErrEmptyFilename: "Empty filename.",
}

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		err := h(w, req)
		if err == nil {
			return
		}
		for target, text := range notices {
			if errors.Is(err, target) {
				middleware.IncrementAnalysesRejected()
				redirectNotice(w, req, text)
				return
			}
		}

		var tooLarge *http.MaxBytesError
		switch {
		case errors.Is(err, domain.ErrReportNotFound), errors.Is(err, sql.ErrNoRows):
			http.Error(w, "not found", http.StatusNotFound)
		case errors.Is(err, domai.ErrQuotaExceeded):
			http.Error(w, "ai quota exceeded", http.StatusTooManyRequests)
		case errors.As(err, &tooLarge):
			http.Error(w, "upload too large", http.StatusRequestEntityTooLarge)
		case errors.Is(err, errBadRequest):
			http.Error(w, err.Error(), http.StatusBadRequest)
		default:
			r.log.WithError(err).WithField("path", req.URL.Path).Error("request failed")
			http.Error(w, "internal server error", http.StatusInternalServerError)
		}
	}
}

var errBadRequest = errors.New("bad request")

func badRequest(msg string) error {
	return fmt.Errorf("%w: %s", errBadRequest, msg)
}

// redirectNotice kembali ke index dengan pesan sekali tampil
func redirectNotice(w http.ResponseWriter, req *http.Request, text string) {
	q := url.Values{}
	q.Set("notice", text)
	q.Set("level", "danger")
	http.Redirect(w, req, "/?"+q.Encode(), http.StatusSeeOther)
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

// GET /
func (r *Router) handleIndex(w http.ResponseWriter, req *http.Request) error {
	resp := map[string]any{
		"groups":            r.registry.Catalog(),
		"informational":     domain.InformationalTools,
		"default_selection": domain.DefaultSelection,
		"sample_path":       r.samplePath,
	}
	if n := req.URL.Query().Get("notice"); n != "" {
		level := req.URL.Query().Get("level")
		if level == "" {
			level = "info"
		}
		resp["notice"] = map[string]string{"text": n, "level": level}
	}
	return writeJSON(w, http.StatusOK, resp)
}

type analyzeResponse struct {
	*domain.Report
	JSONDownload string `json:"json_download"`
}

// POST /analyze (multipart: use_sample, file, tools...)
func (r *Router) handleAnalyze(w http.ResponseWriter, req *http.Request) error {
	if r.maxUpload > 0 {
		req.Body = http.MaxBytesReader(w, req.Body, r.maxUpload)
	}

	cmd, cleanup, err := parseAnalyze(req)
	if err != nil {
		return err
	}
	defer cleanup()

	report, err := r.analysisSvc.Analyze(req.Context(), cmd)
	if err != nil {
		return err
	}

	failed := 0
	for _, res := range report.Results {
		if !res.OK() {
			failed++
		}
	}
	middleware.IncrementAnalyses(len(report.Results), failed)

	return writeJSON(w, http.StatusOK, analyzeResponse{
		Report:       report,
		JSONDownload: "/download/" + url.PathEscape(report.JSONName),
	})
}

func parseAnalyze(req *http.Request) (appanalysis.AnalyzeCommand, func(), error) {
	noop := func() {}
	var cmd appanalysis.AnalyzeCommand

	err := req.ParseMultipartForm(maxMemory)
	switch {
	case err == nil:
	case errors.Is(err, http.ErrNotMultipart):
		// form biasa: hanya use_sample yang masuk akal
	default:
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return cmd, noop, err
		}
		return cmd, noop, badRequest("malformed form: " + err.Error())
	}

	cleanup := noop
	if req.MultipartForm != nil {
		form := req.MultipartForm
		cleanup = func() { _ = form.RemoveAll() }
	}

	cmd.UseSample = req.FormValue("use_sample") == "1"
	cmd.Tools = middleware.SanitizeToolNames(req.Form["tools"])
	if cmd.UseSample {
		return cmd, cleanup, nil
	}

	if req.MultipartForm == nil {
		return cmd, cleanup, nil
	}
	if files := req.MultipartForm.File["file"]; len(files) > 0 {
		f, err := files[0].Open()
		if err != nil {
			cleanup()
			return cmd, noop, err
		}
		cmd.Filename = middleware.SanitizeFilename(files[0].Filename)
		cmd.Content = f
		return cmd, func() { f.Close(); cleanup() }, nil
	}
	// a part named "file" with an empty filename is parsed as a plain value
	if _, ok := req.MultipartForm.Value["file"]; ok {
		cmd.Content = strings.NewReader("")
	}
	return cmd, cleanup, nil
}

// GET /download/{name}
func (r *Router) handleDownload(w http.ResponseWriter, req *http.Request) error {
	name, err := pathParam(req, "name")
	if err != nil {
		redirectNotice(w, req, "File not found.")
		return nil
	}
	if err := middleware.ValidateReportName(name); err != nil {
		redirectNotice(w, req, "File not found.")
		return nil
	}

	rc, err := r.analysisSvc.OpenReport(name)
	if errors.Is(err, domain.ErrReportNotFound) {
		redirectNotice(w, req, "File not found.")
		return nil
	}
	if err != nil {
		return err
	}
	defer rc.Close()

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="`+strings.ReplaceAll(name, `"`, "")+`"`)
	_, err = io.Copy(w, rc)
	return err
}

// pathParam returns a decoded URL parameter. chi routes on RawPath when the
// request path has a non-default encoding (e.g. %2C), and then the
// parameter is still escaped.
func pathParam(req *http.Request, key string) (string, error) {
	v := chi.URLParam(req, key)
	if req.URL.RawPath == "" {
		return v, nil
	}
	return url.PathUnescape(v)
}

// GET /v1/reports/latest?limit=20
func (r *Router) handleLatest(w http.ResponseWriter, req *http.Request) error {
	limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))

	list, err := r.analysisSvc.Latest(req.Context(), middleware.ValidateLimit(limit))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, list)
}

// GET /v1/reports?page=&page_size=
func (r *Router) handlePaginate(w http.ResponseWriter, req *http.Request) error {
	page, _ := strconv.Atoi(req.URL.Query().Get("page"))
	size, _ := strconv.Atoi(req.URL.Query().Get("page_size"))

	res, err := r.analysisSvc.Paginate(req.Context(), middleware.ValidatePage(page), middleware.ValidateLimit(size))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, res)
}

// GET /v1/reports/{id}
func (r *Router) handleGet(w http.ResponseWriter, req *http.Request) error {
	id := chi.URLParam(req, "id")
	if err := middleware.ValidateReportID(id); err != nil {
		return badRequest(err.Error())
	}

	rep, err := r.analysisSvc.Get(req.Context(), domain.ReportID(id))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, rep)
}

// GET /v1/reports/{id}/failures?limit=
func (r *Router) handleFailures(w http.ResponseWriter, req *http.Request) error {
	id := chi.URLParam(req, "id")
	if err := middleware.ValidateReportID(id); err != nil {
		return badRequest(err.Error())
	}
	limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))

	list, err := r.analysisSvc.FailuresFor(req.Context(), domain.ReportID(id), middleware.ValidateLimit(limit))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, list)
}

// GET /v1/summary?days=7
func (r *Router) handleSummary(w http.ResponseWriter, req *http.Request) error {
	days, _ := strconv.Atoi(req.URL.Query().Get("days"))

	summary, err := r.analysisSvc.Summary(req.Context(), middleware.ValidateDays(days))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, summary)
}

// POST /v1/reports/{id}/triage
func (r *Router) handleTriage(w http.ResponseWriter, req *http.Request) error {
	id := chi.URLParam(req, "id")
	if err := middleware.ValidateReportID(id); err != nil {
		return badRequest(err.Error())
	}

	a, err := r.aiSvc.AnalyzeAndStore(req.Context(), domain.ReportID(id))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusCreated, a)
}

// GET /v1/reports/{id}/triage
func (r *Router) handleLatestTriage(w http.ResponseWriter, req *http.Request) error {
	id := chi.URLParam(req, "id")
	if err := middleware.ValidateReportID(id); err != nil {
		return badRequest(err.Error())
	}

	a, err := r.aiSvc.Latest(req.Context(), domain.ReportID(id))
	if err != nil {
		return err
	}
	if a == nil {
		return domain.ErrReportNotFound
	}
	return writeJSON(w, http.StatusOK, a)
}

// GET /v1/triage?page=&page_size=
func (r *Router) handleTriageList(w http.ResponseWriter, req *http.Request) error {
	page, _ := strconv.Atoi(req.URL.Query().Get("page"))
	size, _ := strconv.Atoi(req.URL.Query().Get("page_size"))

	list, err := r.aiSvc.ListAnalyses(req.Context(), middleware.ValidatePage(page), middleware.ValidateLimit(size))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, list)
}
