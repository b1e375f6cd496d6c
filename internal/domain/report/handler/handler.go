// Package handler serves the report endpoints.
package handler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/FACorreiaa/smart-expense-tracker/internal/domain/report"
	"github.com/FACorreiaa/smart-expense-tracker/pkg/interceptors"
	"github.com/FACorreiaa/smart-expense-tracker/pkg/respond"
)

// Reporter is the part of report.Service the handler uses.
type Reporter interface {
	Generate(ctx context.Context, userID uuid.UUID, req report.Request) (*report.Report, error)
	MonthlyTrend(ctx context.Context, userID uuid.UUID, n int) (*report.Report, error)
	Summary(ctx context.Context, userID uuid.UUID) (*report.Summary, error)
}

type ReportHandler struct {
	reports Reporter
	logger  *slog.Logger
}

func NewReportHandler(reports Reporter, logger *slog.Logger) *ReportHandler {
	return &ReportHandler{reports: reports, logger: logger}
}

// Register mounts the report routes.
func (h *ReportHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /v1/reports", h.CustomRange)
	mux.HandleFunc("GET /v1/reports/this-month", h.named(report.ThisMonth))
	mux.HandleFunc("GET /v1/reports/last-month", h.named(report.LastMonth))
	mux.HandleFunc("GET /v1/reports/last-n-months/{n}", h.LastNMonths)
	mux.HandleFunc("GET /v1/reports/monthly-trend", h.MonthlyTrend)
	mux.HandleFunc("GET /v1/reports/summary", h.Summary)
	mux.HandleFunc("GET /v1/reports/export", h.Export)
}

type rangeRequest struct {
	Start string `json:"start"`
	End   string `json:"end"`
	Trend bool   `json:"trend"`
}

func (h *ReportHandler) CustomRange(w http.ResponseWriter, r *http.Request) {
	var req rangeRequest
	if err := respond.Decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	rr, err := parseRange(req.Start, req.End)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	rr.Trend = req.Trend
	h.generate(w, r, rr)
}

func (h *ReportHandler) named(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.generate(w, r, report.Request{Named: name, Trend: r.URL.Query().Get("trend") == "true"})
	}
}

func (h *ReportHandler) LastNMonths(w http.ResponseWriter, r *http.Request) {
	n, err := strconv.Atoi(r.PathValue("n"))
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "n must be an integer")
		return
	}
	h.generate(w, r, report.Request{Named: report.LastNMonths, N: n, Trend: true})
}

func (h *ReportHandler) MonthlyTrend(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	n := 6
	if v := r.URL.Query().Get("months"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			respond.Error(w, http.StatusBadRequest, "months must be an integer")
			return
		}
		n = parsed
	}

	out, err := h.reports.MonthlyTrend(r.Context(), userID, n)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, out)
}

func (h *ReportHandler) Summary(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	out, err := h.reports.Summary(r.Context(), userID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, out)
}

// Export writes a custom range as CSV or XLSX. Without start/end it exports this month.
func (h *ReportHandler) Export(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	format := q.Get("format")
	if format == "" {
		format = report.FormatCSV
	}
	if format != report.FormatCSV && format != report.FormatXLSX {
		respond.Error(w, http.StatusBadRequest, "format must be csv or xlsx")
		return
	}

	req := report.Request{Named: report.ThisMonth, Trend: true}
	if q.Get("start") != "" || q.Get("end") != "" {
		var err error
		if req, err = parseRange(q.Get("start"), q.Get("end")); err != nil {
			h.fail(w, r, err)
			return
		}
		req.Trend = true
	}

	out, err := h.reports.Generate(r.Context(), userID, req)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	// Buffer so an encoding failure can still become a 500.
	var buf bytes.Buffer
	if format == report.FormatXLSX {
		err = report.ExportXLSX(&buf, out)
	} else {
		err = report.ExportCSV(&buf, out)
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}

	filename := fmt.Sprintf("expenses_%s_%s.%s",
		out.Range.Start.Format("20060102"), out.Range.End.Format("20060102"), format)
	w.Header().Set("Content-Type", report.ContentType(format))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (h *ReportHandler) generate(w http.ResponseWriter, r *http.Request, req report.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	out, err := h.reports.Generate(r.Context(), userID, req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, out)
}

// parseRange requires both ends.
func parseRange(start, end string) (report.Request, error) {
	s, err := respond.ParseDate(start)
	if err != nil {
		return report.Request{}, err
	}
	e, err := respond.ParseDate(end)
	if err != nil {
		return report.Request{}, err
	}
	if s.IsZero() || e.IsZero() {
		return report.Request{}, fmt.Errorf("%w: start and end are required", report.ErrInvalidRange)
	}
	return report.Request{Start: s, End: e}, nil
}

func (h *ReportHandler) userID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := interceptors.UserUUIDFromContext(r.Context())
	if err != nil {
		respond.Error(w, http.StatusUnauthorized, "authentication required")
		return uuid.Nil, false
	}
	return id, true
}

func (h *ReportHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, respond.ErrBadRequest), errors.Is(err, report.ErrInvalidRange):
		respond.Error(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.ErrorContext(r.Context(), "report request failed",
			slog.String("path", r.URL.Path),
			slog.Any("error", err),
		)
		respond.Error(w, http.StatusInternalServerError, "internal error")
	}
}
