package message

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/nao1215/phishscan/internal/model"
)

// Message types.
const (
	TypeReportSuspect = "REPORT_SUSPECT"
	TypeGetReports    = "GET_REPORTS"
	TypeClearReports  = "CLEAR_REPORTS"
	TypeUploadReports = "UPLOAD_REPORTS"
	TypeClassify      = "CLASSIFY"
)

var (
	// ErrNoType is reported for requests without a type.
	ErrNoType = errors.New("no type")

	// ErrUnknownType is reported for unrecognized message types.
	ErrUnknownType = errors.New("unknown type")

	// ErrNoAPIURL is reported by UPLOAD_REPORTS when neither the request nor
	// the handler names a collector.
	ErrNoAPIURL = errors.New("no apiUrl provided")

	// ErrNoAnalyzer is reported by CLASSIFY when the handler has no analyzer.
	ErrNoAnalyzer = errors.New("classification is not available")
)

// Request is one incoming message.
type Request struct {
	Type string `json:"type"`

	URL   string          `json:"url,omitempty"`
	Score *float64        `json:"score,omitempty"`
	Extra json.RawMessage `json:"extra,omitempty"`

	// Result is the classifier output some senders attach instead of
	// score and extra. It is only consulted for fields they leave empty.
	Result json.RawMessage `json:"result,omitempty"`

	APIURL string `json:"apiUrl,omitempty"`
}

// Response is the reply to a Request.
type Response struct {
	OK       bool            `json:"ok"`
	Stored   bool            `json:"stored,omitempty"`
	Report   *model.Report   `json:"report,omitempty"`
	Reports  []model.Report  `json:"reports,omitzero"`
	Uploaded *int            `json:"uploaded,omitempty"`
	Analysis *model.Analysis `json:"analysis,omitempty"`
	Message  string          `json:"message,omitempty"`
	Error    string          `json:"error,omitempty"`
}

// Queue is the report queue the handler operates on.
type Queue interface {
	Append(ctx context.Context, r model.Report) error
	List(ctx context.Context) ([]model.Report, error)
	Clear(ctx context.Context) error
	UploadAndPurge(ctx context.Context, endpoint string) (int, error)
}

// Analyzer classifies a URL.
type Analyzer interface {
	Analyze(ctx context.Context, url string) (*model.Analysis, error)
}

// Handler dispatches requests.
type Handler struct {
	queue    Queue
	analyzer Analyzer
	endpoint string
	logger   *slog.Logger
}

// Option configures a Handler.
type Option func(*Handler)

// WithAnalyzer enables CLASSIFY.
func WithAnalyzer(a Analyzer) Option {
	return func(h *Handler) {
		h.analyzer = a
	}
}

// WithDefaultEndpoint sets the collector used when UPLOAD_REPORTS carries
// no apiUrl.
func WithDefaultEndpoint(endpoint string) Option {
	return func(h *Handler) {
		h.endpoint = endpoint
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) {
		h.logger = logger
	}
}

// NewHandler creates a Handler over queue.
func NewHandler(queue Queue, opts ...Option) *Handler {
	h := &Handler{
		queue:  queue,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Handle processes req. It always returns a Response.
func (h *Handler) Handle(ctx context.Context, req Request) (resp Response) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("message handler panicked", "type", req.Type, "panic", r)
			resp = failure(fmt.Errorf("internal error: %v", r))
		}
	}()

	var err error
	switch req.Type {
	case "":
		err = ErrNoType
	case TypeReportSuspect:
		resp, err = h.reportSuspect(ctx, req)
	case TypeGetReports:
		resp, err = h.getReports(ctx)
	case TypeClearReports:
		err = h.queue.Clear(ctx)
		resp = Response{OK: true}
	case TypeUploadReports:
		resp, err = h.uploadReports(ctx, req)
	case TypeClassify:
		resp, err = h.classify(ctx, req)
	default:
		err = fmt.Errorf("%w: %s", ErrUnknownType, req.Type)
	}

	if err != nil {
		h.logger.Warn("message failed", "type", req.Type, "error", err)
		return failure(err)
	}
	return resp
}

func (h *Handler) reportSuspect(ctx context.Context, req Request) (Response, error) {
	score, extra := normalizeSuspect(req)
	r, err := model.NewReport(req.URL, score, extra)
	if err != nil {
		return Response{}, err
	}
	if err := h.queue.Append(ctx, r); err != nil {
		return Response{}, err
	}
	h.logger.Info("stored phish report", "id", r.ID, "url", r.URL, "score", r.Score)
	return Response{OK: true, Stored: true, Report: &r}, nil
}

// normalizeSuspect resolves score and extra, falling back to the attached
// classifier result for whichever is missing.
func normalizeSuspect(req Request) (float64, model.ReportExtra) {
	var result struct {
		Score *float64 `json:"score"`
	}
	if len(req.Result) > 0 {
		_ = json.Unmarshal(req.Result, &result) //nolint:errcheck // an unusable result is ignored
	}

	score := 0.0
	switch {
	case req.Score != nil:
		score = *req.Score
	case result.Score != nil:
		score = *result.Score
	}
	if math.IsNaN(score) || math.IsInf(score, 0) {
		score = 0
	}

	raw := req.Extra
	if len(raw) == 0 || string(raw) == "null" {
		raw = req.Result
	}
	return score, model.NormalizeExtra(raw)
}

func (h *Handler) getReports(ctx context.Context) (Response, error) {
	reports, err := h.queue.List(ctx)
	if err != nil {
		return Response{}, err
	}
	if reports == nil {
		reports = []model.Report{}
	}
	return Response{OK: true, Reports: reports}, nil
}

func (h *Handler) uploadReports(ctx context.Context, req Request) (Response, error) {
	endpoint := strings.TrimSpace(req.APIURL)
	if endpoint == "" {
		endpoint = h.endpoint
	}
	if endpoint == "" {
		return Response{}, ErrNoAPIURL
	}

	n, err := h.queue.UploadAndPurge(ctx, endpoint)
	if err != nil {
		return Response{}, err
	}
	resp := Response{OK: true, Uploaded: &n}
	if n == 0 {
		resp.Message = "no reports"
	}
	return resp, nil
}

func (h *Handler) classify(ctx context.Context, req Request) (Response, error) {
	if h.analyzer == nil {
		return Response{}, ErrNoAnalyzer
	}
	a, err := h.analyzer.Analyze(ctx, req.URL)
	if err != nil {
		return Response{}, err
	}
	return Response{OK: true, Analysis: a}, nil
}

func failure(err error) Response {
	return Response{OK: false, Error: err.Error()}
}
