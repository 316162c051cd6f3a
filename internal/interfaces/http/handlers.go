package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ormeda/labdesk/internal/apperr"
	"github.com/ormeda/labdesk/internal/application/service"
	"github.com/ormeda/labdesk/internal/domain/entity"
	"github.com/ormeda/labdesk/internal/domain/period"
)

// DashboardSource serves a cached dashboard roll-up. A nil source means the
// refresher worker is disabled.
type DashboardSource interface {
	Snapshot() (*entity.DashboardSnapshot, bool)
}

// Handlers contains all HTTP request handlers
type Handlers struct {
	quotes    service.QuoteService
	invoices  service.InvoiceService
	ledger    service.LedgerService
	stats     service.StatsService
	dashboard DashboardSource
	logger    Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(
	quotes service.QuoteService,
	invoices service.InvoiceService,
	ledger service.LedgerService,
	stats service.StatsService,
	dashboard DashboardSource,
	logger Logger,
) *Handlers {
	return &Handlers{
		quotes:    quotes,
		invoices:  invoices,
		ledger:    ledger,
		stats:     stats,
		dashboard: dashboard,
		logger:    logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// fail maps domain errors onto HTTP status codes
func (h *Handlers) fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, apperr.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, apperr.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, apperr.ErrInvalidTransition), errors.Is(err, apperr.ErrConcurrencyConflict):
		status = http.StatusConflict
	}
	if status == http.StatusInternalServerError {
		h.logger.Error("Request failed", "path", c.Request.URL.Path, "error", err)
	}
	c.JSON(status, Response{Success: false, Error: err.Error()})
}

func (h *Handlers) ok(c *gin.Context, status int, data interface{}) {
	c.JSON(status, Response{Success: true, Data: data})
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid id"})
		return 0, false
	}
	return id, true
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	h.ok(c, http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// QuoteItemRequest is one line item in a quote creation request
type QuoteItemRequest struct {
	ProductName string `json:"product_name"`
	Quantity    int64  `json:"quantity"`
	UnitPrice   int64  `json:"unit_price"`
}

// CreateQuoteRequest is the body of POST /api/quotes
type CreateQuoteRequest struct {
	Customer struct {
		Name          string `json:"name"`
		Email         string `json:"email"`
		Phone         string `json:"phone"`
		Establishment string `json:"establishment"`
		City          string `json:"city"`
	} `json:"customer"`
	Items      []QuoteItemRequest `json:"items"`
	Priority   string             `json:"priority"`
	Message    string             `json:"message"`
	ValidUntil *time.Time         `json:"valid_until"`
}

// CreateQuote handles POST /api/quotes
func (h *Handlers) CreateQuote(c *gin.Context) {
	var req CreateQuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body"})
		return
	}

	input := service.CreateQuoteInput{
		Customer: entity.CustomerSnapshot{
			Name:          req.Customer.Name,
			Email:         req.Customer.Email,
			Phone:         req.Customer.Phone,
			Establishment: req.Customer.Establishment,
			City:          req.Customer.City,
		},
		Priority:   entity.Priority(req.Priority),
		Message:    req.Message,
		ValidUntil: req.ValidUntil,
	}
	for _, item := range req.Items {
		input.Items = append(input.Items, service.QuoteItemInput{
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
		})
	}

	quote, err := h.quotes.Create(c.Request.Context(), input)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, http.StatusCreated, quote)
}

// ListQuotes handles GET /api/quotes
func (h *Handlers) ListQuotes(c *gin.Context) {
	filter := entity.QuoteFilter{
		Status:   entity.QuoteStatus(c.Query("status")),
		Priority: entity.Priority(c.Query("priority")),
		Search:   c.Query("q"),
	}
	filter.Limit, _ = strconv.Atoi(c.DefaultQuery("limit", "50"))
	filter.Offset, _ = strconv.Atoi(c.Query("offset"))

	quotes, err := h.quotes.List(c.Request.Context(), filter)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, http.StatusOK, quotes)
}

// SearchQuotes handles GET /api/quotes/search
func (h *Handlers) SearchQuotes(c *gin.Context) {
	quotes, err := h.quotes.Search(c.Request.Context(), c.Query("q"))
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, http.StatusOK, quotes)
}

// GetQuote handles GET /api/quotes/:id
func (h *Handlers) GetQuote(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	quote, err := h.quotes.Get(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, http.StatusOK, quote)
}

// UpdateQuoteStatus handles PATCH /api/quotes/:id/status
func (h *Handlers) UpdateQuoteStatus(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req struct {
		Status string `json:"status"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body"})
		return
	}
	quote, err := h.quotes.UpdateStatus(c.Request.Context(), id, entity.QuoteStatus(req.Status))
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, http.StatusOK, quote)
}

// UpdateQuotePriority handles PATCH /api/quotes/:id/priority
func (h *Handlers) UpdateQuotePriority(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req struct {
		Priority string `json:"priority"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body"})
		return
	}
	quote, err := h.quotes.UpdatePriority(c.Request.Context(), id, entity.Priority(req.Priority))
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, http.StatusOK, quote)
}

// AddQuoteNote handles POST /api/quotes/:id/notes
func (h *Handlers) AddQuoteNote(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req struct {
		Text string `json:"text"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body"})
		return
	}
	quote, err := h.quotes.AddNote(c.Request.Context(), id, req.Text)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, http.StatusOK, quote)
}

// DuplicateQuote handles POST /api/quotes/:id/duplicate
func (h *Handlers) DuplicateQuote(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	quote, err := h.quotes.Duplicate(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, http.StatusCreated, quote)
}

// DeleteQuote handles DELETE /api/quotes/:id
func (h *Handlers) DeleteQuote(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.quotes.Delete(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// DeriveInvoice handles POST /api/quotes/:id/invoice
func (h *Handlers) DeriveInvoice(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	invoice, err := h.invoices.Derive(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, http.StatusCreated, invoice)
}

// ListInvoices handles GET /api/invoices
func (h *Handlers) ListInvoices(c *gin.Context) {
	filter := entity.InvoiceFilter{
		Status: entity.InvoiceStatus(c.Query("status")),
		Search: c.Query("q"),
	}
	filter.Limit, _ = strconv.Atoi(c.DefaultQuery("limit", "50"))
	filter.Offset, _ = strconv.Atoi(c.Query("offset"))

	invoices, err := h.invoices.List(c.Request.Context(), filter)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, http.StatusOK, invoices)
}

// GetInvoice handles GET /api/invoices/:id
func (h *Handlers) GetInvoice(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	invoice, err := h.invoices.Get(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, http.StatusOK, invoice)
}

// CancelInvoice handles POST /api/invoices/:id/cancel
func (h *Handlers) CancelInvoice(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	invoice, err := h.invoices.Cancel(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, http.StatusOK, invoice)
}

// RecordTransactionRequest is the body of POST /api/invoices/:id/transactions
type RecordTransactionRequest struct {
	Amount   int64  `json:"amount"`
	Method   string `json:"method"`
	Provider string `json:"provider"`
}

// RecordTransaction handles POST /api/invoices/:id/transactions
func (h *Handlers) RecordTransaction(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req RecordTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body"})
		return
	}
	tx, err := h.ledger.Record(c.Request.Context(), id, req.Amount, entity.PaymentMethod(req.Method), req.Provider)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, http.StatusCreated, tx)
}

// RefundTransaction handles POST /api/transactions/:id/refund
func (h *Handlers) RefundTransaction(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	refund, err := h.ledger.Refund(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, http.StatusCreated, refund)
}

// ListTransactions handles GET /api/transactions
func (h *Handlers) ListTransactions(c *gin.Context) {
	filter := entity.TransactionFilter{
		Status: entity.TransactionStatus(c.Query("status")),
		Method: entity.PaymentMethod(c.Query("method")),
	}
	if invoiceID, err := strconv.ParseInt(c.Query("invoice_id"), 10, 64); err == nil {
		filter.InvoiceID = invoiceID
	}
	dr, err := parsePeriod(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	filter.Date = dr
	filter.Limit, _ = strconv.Atoi(c.DefaultQuery("limit", "50"))
	filter.Offset, _ = strconv.Atoi(c.Query("offset"))

	txs, err := h.ledger.ListTransactions(c.Request.Context(), filter)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, http.StatusOK, txs)
}

// AddLedgerEntryRequest is the body of POST /api/ledger/entries
type AddLedgerEntryRequest struct {
	Date        *time.Time `json:"date"`
	Category    string     `json:"category"`
	Description string     `json:"description"`
	Amount      int64      `json:"amount"`
	Type        string     `json:"type"`
}

// AddLedgerEntry handles POST /api/ledger/entries
func (h *Handlers) AddLedgerEntry(c *gin.Context) {
	var req AddLedgerEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body"})
		return
	}
	input := service.EntryInput{
		Category:    req.Category,
		Description: req.Description,
		Amount:      req.Amount,
		Type:        entity.EntryType(req.Type),
	}
	if req.Date != nil {
		input.Date = *req.Date
	}
	entry, err := h.ledger.AddEntry(c.Request.Context(), input)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, http.StatusCreated, entry)
}

// GetStats handles GET /api/stats
func (h *Handlers) GetStats(c *gin.Context) {
	dr, err := parsePeriod(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	stats, err := h.stats.Stats(c.Request.Context(), dr)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, http.StatusOK, stats)
}

// GetSalesByPeriod handles GET /api/stats/sales
func (h *Handlers) GetSalesByPeriod(c *gin.Context) {
	dr, err := parsePeriod(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	points, err := h.stats.SalesByPeriod(c.Request.Context(), dr)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, http.StatusOK, points)
}

// GetDashboard handles GET /api/stats/dashboard
func (h *Handlers) GetDashboard(c *gin.Context) {
	if h.dashboard == nil {
		h.fail(c, apperr.NewNotFound("dashboard", "snapshot"))
		return
	}
	snapshot, ok := h.dashboard.Snapshot()
	if !ok {
		h.fail(c, apperr.NewNotFound("dashboard", "snapshot"))
		return
	}
	h.ok(c, http.StatusOK, snapshot)
}

// parsePeriod resolves the period/start/end query parameters into a date range.
// Custom periods accept RFC3339 timestamps or bare dates; a bare end date is
// expanded to the end of that day to keep the range half-open.
func parsePeriod(c *gin.Context) (entity.DateRange, error) {
	name := period.Filter(c.DefaultQuery("period", string(period.FilterAll)))
	if name != period.FilterCustom {
		return period.Resolve(name, time.Now())
	}

	start, _, err := parseBound(c.Query("start"))
	if err != nil {
		return entity.DateRange{}, apperr.NewValidation("start", "invalid start date")
	}
	end, dateOnly, err := parseBound(c.Query("end"))
	if err != nil {
		return entity.DateRange{}, apperr.NewValidation("end", "invalid end date")
	}
	// Order is checked on the raw bounds: expanding a bare end date first
	// would turn a reversed range into an accepted empty one.
	if start.After(end) {
		return entity.DateRange{}, apperr.NewValidation("period", "start must not be after end")
	}
	if dateOnly {
		end = end.AddDate(0, 0, 1)
	}
	return period.ResolveCustom(start, end)
}

func parseBound(value string) (time.Time, bool, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, false, nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, false, err
	}
	return t, true, nil
}
