package sales

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// Handler wires HTTP endpoints for sales fulfillment.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers sales routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/sales", h.recordSale)
	r.Get("/invoices", h.listInvoices)
}

type saleLineForm struct {
	ItemID    int64   `json:"item_id" validate:"required"`
	Qty       int64   `json:"qty" validate:"required,gt=0"`
	UnitPrice float64 `json:"unit_price" validate:"gte=0"`
}

type recordSaleForm struct {
	WarehouseID  int64          `json:"warehouse_id" validate:"required"`
	BuyerName    string         `json:"buyer_name" validate:"required"`
	BuyerType    string         `json:"buyer_type"`
	BuyerContact string         `json:"buyer_contact"`
	Lines        []saleLineForm `json:"lines" validate:"required,min=1,dive"`
	OnCredit     bool           `json:"on_credit"`
	DueDate      string         `json:"due_date" validate:"omitempty,datetime=2006-01-02"`
}

func (h *Handler) recordSale(w http.ResponseWriter, r *http.Request) {
	scope, ok := shared.ScopeFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}
	var form recordSaleForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}
	if err := h.validator.Struct(form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	input := RecordSaleInput{
		WarehouseID:    form.WarehouseID,
		Buyer:          Buyer{Name: form.BuyerName, Type: form.BuyerType, Contact: form.BuyerContact},
		OnCredit:       form.OnCredit,
		IdempotencyKey: r.Header.Get("Idempotency-Key"),
	}
	for _, line := range form.Lines {
		input.Lines = append(input.Lines, SaleLine{ItemID: line.ItemID, Qty: line.Qty, UnitPrice: line.UnitPrice})
	}
	if form.DueDate != "" {
		due, _ := time.Parse("2006-01-02", form.DueDate)
		input.DueDate = &due
	}
	result, err := h.service.RecordSale(r.Context(), scope, input)
	if err != nil {
		h.logger.Warn("record sale", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, result)
}

func (h *Handler) listInvoices(w http.ResponseWriter, r *http.Request) {
	scope, ok := shared.ScopeFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}
	invoices, err := h.service.ListInvoices(r.Context(), scope)
	if err != nil {
		h.logger.Error("list invoices", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, invoices)
}
