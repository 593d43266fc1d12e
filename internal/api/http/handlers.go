package apihttp

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	analysis "fleet-pc-alert/internal/analysis/domain"
	"fleet-pc-alert/internal/alerting/notify"
	"fleet-pc-alert/internal/store"
)

const timeLayout = time.RFC3339

const defaultHistoryLimit = 100

// AnalysisRunner triggers an analysis pass with an explicit configuration.
type AnalysisRunner interface {
	RunWith(ctx context.Context, cfg analysis.Config) (analysis.AnalysisSummary, []analysis.AlertDecision, notify.DeliveryReport, error)
}

// HistoryReader reads persisted alert decisions.
type HistoryReader interface {
	ListRecent(ctx context.Context, limit int) ([]store.AlertRecord, error)
	ListBetween(ctx context.Context, from, to time.Time) ([]store.AlertRecord, error)
}

// AnalysisHandler serves on-demand analysis runs.
type AnalysisHandler struct {
	runner   AnalysisRunner
	defaults analysis.Config
}

// NewAnalysisHandler constructs an AnalysisHandler.
func NewAnalysisHandler(runner AnalysisRunner, defaults analysis.Config) (*AnalysisHandler, error) {
	if runner == nil {
		return nil, errors.New("analysis handler: nil runner")
	}
	return &AnalysisHandler{runner: runner, defaults: defaults}, nil
}

type runRequest struct {
	PCThresholdHours    *float64 `json:"pc_threshold_hours"`
	DriverTagIDs        []string `json:"driver_tag_ids"`
	IncludeAllPCDrivers *bool    `json:"include_all_pc_drivers"`
}

type runResponse struct {
	Success       bool                     `json:"success"`
	Summary       analysis.AnalysisSummary `json:"summary"`
	Alerts        []analysis.AlertDecision `json:"alerts"`
	AlertDelivery notify.DeliveryReport    `json:"alert_delivery"`
}

// ServeHTTP handles POST /api/v1/analysis/run. An empty body runs with
// the service defaults; a JSON body may override individual settings.
func (h *AnalysisHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	cfg := h.defaults
	var req runRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.PCThresholdHours != nil {
		cfg.ThresholdHours = *req.PCThresholdHours
	}
	if req.DriverTagIDs != nil {
		cfg.DriverTagIDs = req.DriverTagIDs
	}
	if req.IncludeAllPCDrivers != nil {
		cfg.IncludeAllPCDrivers = *req.IncludeAllPCDrivers
	}

	summary, alerts, report, err := h.runner.RunWith(r.Context(), cfg)
	if err != nil {
		if errors.Is(err, analysis.ErrConfiguration) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	if alerts == nil {
		alerts = []analysis.AlertDecision{}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(runResponse{
		Success:       true,
		Summary:       summary,
		Alerts:        alerts,
		AlertDelivery: report,
	})
}

// AlertsHandler serves persisted alert history.
type AlertsHandler struct {
	history HistoryReader
}

// NewAlertsHandler constructs an AlertsHandler. A nil history means the
// service runs without Postgres; the handler then answers 503.
func NewAlertsHandler(history HistoryReader) *AlertsHandler {
	return &AlertsHandler{history: history}
}

// ServeHTTP handles GET /api/v1/alerts.
func (h *AlertsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if h == nil || h.history == nil {
		http.Error(w, "alert history not configured", http.StatusServiceUnavailable)
		return
	}

	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	records, err := h.history.ListRecent(r.Context(), limit)
	if err != nil {
		http.Error(w, "query alert history error", http.StatusInternalServerError)
		return
	}
	if records == nil {
		records = []store.AlertRecord{}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(records)
}

// ExportHandler serves alert history exports.
type ExportHandler struct {
	history HistoryReader
}

// NewExportHandler constructs an ExportHandler.
func NewExportHandler(history HistoryReader) *ExportHandler {
	return &ExportHandler{history: history}
}

// ServeHTTP handles GET /api/v1/exports/alerts.{xlsx,pdf}.
func (h *ExportHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if h == nil || h.history == nil {
		http.Error(w, "alert history not configured", http.StatusServiceUnavailable)
		return
	}

	var format string
	switch {
	case strings.HasSuffix(r.URL.Path, "/alerts.xlsx"):
		format = "xlsx"
	case strings.HasSuffix(r.URL.Path, "/alerts.pdf"):
		format = "pdf"
	default:
		w.WriteHeader(http.StatusNotFound)
		return
	}

	records, err := h.fetch(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	switch format {
	case "xlsx":
		payload, err := BuildAlertsXLSX(records)
		if err != nil {
			http.Error(w, "build xlsx error", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", `attachment; filename="alerts.xlsx"`)
		_, _ = w.Write(payload)
	case "pdf":
		payload, err := BuildAlertsPDF(records)
		if err != nil {
			http.Error(w, "build pdf error", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", `attachment; filename="alerts.pdf"`)
		_, _ = w.Write(payload)
	}
}

// fetch returns recent history by default; an explicit from/to window
// switches to a ranged query.
func (h *ExportHandler) fetch(r *http.Request) ([]store.AlertRecord, error) {
	fromRaw := r.URL.Query().Get("from")
	toRaw := r.URL.Query().Get("to")
	if fromRaw == "" && toRaw == "" {
		return h.history.ListRecent(r.Context(), defaultHistoryLimit)
	}

	from, err := parseTimeQuery(r, "from")
	if err != nil {
		return nil, err
	}
	to, err := parseTimeQuery(r, "to")
	if err != nil {
		return nil, err
	}
	if !to.After(from) {
		return nil, errors.New("to must be after from")
	}
	return h.history.ListBetween(r.Context(), from, to)
}

func parseTimeQuery(r *http.Request, key string) (time.Time, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return time.Time{}, errors.New(key + " is required")
	}
	parsed, err := time.Parse(timeLayout, raw)
	if err != nil {
		return time.Time{}, errors.New(key + " must be RFC3339")
	}
	return parsed.UTC(), nil
}
