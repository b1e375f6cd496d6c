// Package handler implements the category and expense HTTP endpoints.
package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/FACorreiaa/smart-expense-tracker/internal/domain/catalog"
	"github.com/FACorreiaa/smart-expense-tracker/internal/domain/categorization"
	"github.com/FACorreiaa/smart-expense-tracker/internal/domain/expense"
	"github.com/FACorreiaa/smart-expense-tracker/pkg/interceptors"
	"github.com/FACorreiaa/smart-expense-tracker/pkg/respond"
)

// ExpenseService is the part of expense.Service the handler uses.
type ExpenseService interface {
	Create(ctx context.Context, userID uuid.UUID, in expense.Input) (*expense.Created, error)
	Get(ctx context.Context, userID, expenseID uuid.UUID) (*expense.Expense, error)
	Update(ctx context.Context, userID, expenseID uuid.UUID, p expense.Patch) (*expense.Updated, error)
	List(ctx context.Context, userID uuid.UUID, f expense.Filter) ([]expense.Expense, error)
	Delete(ctx context.Context, userID, expenseID uuid.UUID) error
}

// Previewer categorizes a note without storing anything.
type Previewer interface {
	Preview(ctx context.Context, userID uuid.UUID, note string) (*categorization.PreviewResult, error)
}

// FinanceHandler serves /v1/categories and /v1/expenses.
type FinanceHandler struct {
	catalog  catalog.Repository
	expenses ExpenseService
	preview  Previewer
	logger   *slog.Logger
}

// NewFinanceHandler constructs a new handler.
func NewFinanceHandler(cat catalog.Repository, expenses ExpenseService, preview Previewer, logger *slog.Logger) *FinanceHandler {
	return &FinanceHandler{
		catalog:  cat,
		expenses: expenses,
		preview:  preview,
		logger:   logger,
	}
}

// Register mounts the routes on mux. Every route expects an authenticated user on the context.
func (h *FinanceHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /v1/categories", h.ListCategories)
	mux.HandleFunc("POST /v1/categories", h.CreateCategory)
	mux.HandleFunc("PATCH /v1/categories/{id}", h.UpdateCategory)
	mux.HandleFunc("DELETE /v1/categories/{id}", h.DeleteCategory)
	mux.HandleFunc("GET /v1/categories/{id}/expenses-count", h.CountCategoryExpenses)

	mux.HandleFunc("POST /v1/expenses", h.CreateExpense)
	mux.HandleFunc("POST /v1/expenses/quick", h.QuickCreateExpense)
	mux.HandleFunc("GET /v1/expenses", h.ListExpenses)
	mux.HandleFunc("GET /v1/expenses/{id}", h.GetExpense)
	mux.HandleFunc("PATCH /v1/expenses/{id}", h.UpdateExpense)
	mux.HandleFunc("DELETE /v1/expenses/{id}", h.DeleteExpense)
	mux.HandleFunc("POST /v1/expenses/categorize-preview", h.CategorizePreview)
}

type categoryRequest struct {
	Name  *string `json:"name"`
	Emoji *string `json:"emoji"`
}

type createExpenseRequest struct {
	Amount     string     `json:"amount"`
	Note       string     `json:"note"`
	Date       string     `json:"date"`
	CategoryID *uuid.UUID `json:"category_id"`
}

type updateExpenseRequest struct {
	Amount     *string    `json:"amount"`
	Note       *string    `json:"note"`
	Date       *string    `json:"date"`
	CategoryID *uuid.UUID `json:"category_id"`
}

type quickExpenseRequest struct {
	Text string `json:"text"`
	Date string `json:"date"`
}

type previewRequest struct {
	Note string `json:"note"`
}

func (h *FinanceHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	cats, err := h.catalog.ListCategories(r.Context(), userID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if cats == nil {
		cats = []catalog.Category{}
	}
	respond.JSON(w, http.StatusOK, map[string]any{"categories": cats})
}

func (h *FinanceHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	var req categoryRequest
	if err := respond.Decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	if req.Name == nil {
		respond.Error(w, http.StatusBadRequest, "name is required")
		return
	}

	c, err := h.catalog.CreateCategory(r.Context(), userID, *req.Name, req.Emoji)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respond.JSON(w, http.StatusCreated, c)
}

func (h *FinanceHandler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	categoryID, ok := pathID(w, r)
	if !ok {
		return
	}
	var req categoryRequest
	if err := respond.Decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	c, err := h.catalog.UpdateCategory(r.Context(), userID, categoryID, req.Name, req.Emoji)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, c)
}

func (h *FinanceHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	categoryID, ok := pathID(w, r)
	if !ok {
		return
	}

	moved, err := h.catalog.DeleteCategory(r.Context(), userID, categoryID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.logger.InfoContext(r.Context(), "category deleted",
		slog.String("user_id", userID.String()),
		slog.String("category_id", categoryID.String()),
		slog.Int64("reassigned", moved),
	)
	respond.JSON(w, http.StatusOK, map[string]any{"deleted": true, "reassigned_expenses": moved})
}

func (h *FinanceHandler) CountCategoryExpenses(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	categoryID, ok := pathID(w, r)
	if !ok {
		return
	}

	n, err := h.catalog.CountExpenses(r.Context(), userID, categoryID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]any{"category_id": categoryID, "count": n})
}

func (h *FinanceHandler) CreateExpense(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	var req createExpenseRequest
	if err := respond.Decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	date, err := respond.ParseDate(req.Date)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	out, err := h.expenses.Create(r.Context(), userID, expense.Input{
		Amount:     req.Amount,
		Note:       req.Note,
		Date:       date,
		CategoryID: req.CategoryID,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respond.JSON(w, http.StatusCreated, out)
}

// QuickCreateExpense accepts one line of text such as "swiggy lunch ₹250".
func (h *FinanceHandler) QuickCreateExpense(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	var req quickExpenseRequest
	if err := respond.Decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	in, err := expense.ParseQuickEntry(req.Text)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if in.Date, err = respond.ParseDate(req.Date); err != nil {
		h.fail(w, r, err)
		return
	}

	out, err := h.expenses.Create(r.Context(), userID, in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respond.JSON(w, http.StatusCreated, out)
}

// ListExpenses supports start, end, category_id, search, limit and offset query parameters.
func (h *FinanceHandler) ListExpenses(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	f, err := parseFilter(r.URL.Query())
	if err != nil {
		h.fail(w, r, err)
		return
	}

	items, err := h.expenses.List(r.Context(), userID, f)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if items == nil {
		items = []expense.Expense{}
	}
	respond.JSON(w, http.StatusOK, map[string]any{"expenses": items})
}

func parseFilter(q url.Values) (expense.Filter, error) {
	var f expense.Filter

	start, err := respond.ParseDate(q.Get("start"))
	if err != nil {
		return f, err
	}
	end, err := respond.ParseDate(q.Get("end"))
	if err != nil {
		return f, err
	}
	if !start.IsZero() || !end.IsZero() {
		if !start.IsZero() && !end.IsZero() && start.After(end) {
			return f, fmt.Errorf("%w: start must not be after end", respond.ErrBadRequest)
		}
		f.Range = &expense.DateRange{Start: start, End: end}
	}

	if v := q.Get("category_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return f, fmt.Errorf("%w: invalid category_id", respond.ErrBadRequest)
		}
		f.CategoryID = &id
	}
	f.Search = q.Get("search")

	if f.Limit, err = intParam(q, "limit", 1, expense.MaxPageSize); err != nil {
		return f, err
	}
	if f.Offset, err = intParam(q, "offset", 0, math.MaxInt32); err != nil {
		return f, err
	}
	return f, nil
}

// intParam returns 0 for a missing parameter.
func intParam(q url.Values, key string, lo, hi int) (int, error) {
	v := q.Get(key)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < lo || n > hi {
		return 0, fmt.Errorf("%w: %s must be between %d and %d", respond.ErrBadRequest, key, lo, hi)
	}
	return n, nil
}

func (h *FinanceHandler) GetExpense(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	expenseID, ok := pathID(w, r)
	if !ok {
		return
	}
	e, err := h.expenses.Get(r.Context(), userID, expenseID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, e)
}

func (h *FinanceHandler) UpdateExpense(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	expenseID, ok := pathID(w, r)
	if !ok {
		return
	}
	var req updateExpenseRequest
	if err := respond.Decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	patch := expense.Patch{Amount: req.Amount, Note: req.Note, CategoryID: req.CategoryID}
	if req.Date != nil {
		date, err := respond.ParseDate(*req.Date)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		if !date.IsZero() {
			patch.Date = &date
		}
	}

	out, err := h.expenses.Update(r.Context(), userID, expenseID, patch)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, out)
}

func (h *FinanceHandler) DeleteExpense(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	expenseID, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.expenses.Delete(r.Context(), userID, expenseID); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *FinanceHandler) CategorizePreview(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	var req previewRequest
	if err := respond.Decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	res, err := h.preview.Preview(ctx, userID, req.Note)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, res)
}

func (h *FinanceHandler) userID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := interceptors.UserUUIDFromContext(r.Context())
	if err != nil {
		respond.Error(w, http.StatusUnauthorized, "authentication required")
		return uuid.Nil, false
	}
	return id, true
}

func pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid id")
		return uuid.Nil, false
	}
	return id, true
}

// fail maps domain errors to status codes; anything unknown is logged and hidden.
func (h *FinanceHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, respond.ErrBadRequest),
		errors.Is(err, catalog.ErrInvalidName),
		errors.Is(err, catalog.ErrNothingToUpdate),
		errors.Is(err, catalog.ErrSystemCategory),
		errors.Is(err, catalog.ErrFallbackCategory),
		errors.Is(err, expense.ErrInvalidAmount),
		errors.Is(err, expense.ErrInvalidNote),
		errors.Is(err, expense.ErrInvalidDate),
		errors.Is(err, expense.ErrNothingToUpdate):
		respond.Error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, catalog.ErrCategoryNotFound),
		errors.Is(err, expense.ErrExpenseNotFound):
		respond.Error(w, http.StatusNotFound, err.Error())
	case errors.Is(err, catalog.ErrDuplicateName):
		respond.Error(w, http.StatusConflict, err.Error())
	default:
		h.logger.ErrorContext(r.Context(), "request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Any("error", err),
		)
		respond.Error(w, http.StatusInternalServerError, "internal error")
	}
}
