package transport

import (
	"errors"
	"net/http"
	"time"

	"phone-pos/internal/domain"
	"phone-pos/internal/middleware"
	"phone-pos/internal/repository"
	"phone-pos/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CartRequest is a cart as the register sends it.
type CartRequest struct {
	Store string            `json:"store"`
	Lines []domain.CartLine `json:"lines" validate:"required,min=1,dive"`
}

func (c CartRequest) toDomain() domain.Cart {
	return domain.Cart{Store: c.Store, Lines: c.Lines}
}

// AddToCartRequest adds one product to a (possibly empty) cart.
type AddToCartRequest struct {
	Cart      domain.Cart `json:"cart"`
	ProductID string      `json:"product_id" validate:"required,uuid"`
	Quantity  int         `json:"quantity" validate:"gt=0"`
}

// SellRequest represents the checkout payload
type SellRequest struct {
	Cart     CartRequest             `json:"cart"`
	Customer domain.CustomerSnapshot `json:"customer"`
	Payment  domain.Payment          `json:"payment"`
	TradeIn  *domain.TradeIn         `json:"trade_in,omitempty"`
}

// ReserveRequest represents the reservation payload
type ReserveRequest struct {
	Cart           CartRequest             `json:"cart"`
	Customer       domain.CustomerSnapshot `json:"customer"`
	DownPayment    decimal.Decimal         `json:"down_payment" validate:"gt=0"`
	ExpirationDate time.Time               `json:"expiration_date" validate:"required"`
}

// TransferRequest moves units of a product to another store.
type TransferRequest struct {
	Quantity    int    `json:"quantity" validate:"gt=0"`
	TargetStore string `json:"target_store" validate:"required"`
}

// SettingsRequest replaces the settings record at Version.
type SettingsRequest struct {
	ExchangeRate decimal.Decimal `json:"exchange_rate" validate:"gte=0"`
	PointsPaused bool            `json:"points_paused"`
	PointValue   decimal.Decimal `json:"point_value" validate:"gte=0"`
	EarnRate     decimal.Decimal `json:"earn_rate" validate:"gte=0"`
	Version      int64           `json:"version" validate:"gt=0"`
}

// SaleHandler handles HTTP requests for carts, sales, reserves and settings
type SaleHandler struct {
	sales    service.SaleService
	carts    service.CartService
	settings service.SettingsService
	logger   *zap.Logger
}

// NewSaleHandler creates a new SaleHandler
func NewSaleHandler(sales service.SaleService, carts service.CartService, settings service.SettingsService, logger *zap.Logger) *SaleHandler {
	return &SaleHandler{
		sales:    sales,
		carts:    carts,
		settings: settings,
		logger:   logger,
	}
}

// RegisterRoutes mounts the API under /api. Every route needs an operator
// token; transfers and settings changes need the admin role.
func (h *SaleHandler) RegisterRoutes(r chi.Router, authMiddleware, adminMiddleware func(http.Handler) http.Handler) {
	r.Route("/api", func(r chi.Router) {
		r.Use(authMiddleware)

		r.Post("/cart/lines", h.AddToCart)

		r.Post("/sales", h.Sell)
		r.Get("/sales/{id}", h.GetSale)

		r.Post("/reserves", h.Reserve)
		r.Get("/reserves/{id}", h.GetReserve)
		r.Post("/reserves/{id}/complete", h.CompleteReservation)

		r.Get("/settings", h.GetSettings)

		r.Group(func(r chi.Router) {
			r.Use(adminMiddleware)
			r.Post("/products/{id}/transfer", h.Transfer)
			r.Put("/settings", h.UpdateSettings)
		})
	})
}

// AddToCart handles POST /api/cart/lines
func (h *SaleHandler) AddToCart(w http.ResponseWriter, r *http.Request) {
	var req AddToCartRequest
	if !h.decode(w, r, &req) {
		return
	}

	res, err := h.carts.AddToCart(r.Context(), req.Cart, uuid.MustParse(req.ProductID), req.Quantity)
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, res)
}

// Sell handles POST /api/sales
func (h *SaleHandler) Sell(w http.ResponseWriter, r *http.Request) {
	var req SellRequest
	if !h.decode(w, r, &req) {
		return
	}

	sale, err := h.sales.Sell(r.Context(), h.sellRequest(r, req))
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusCreated, sale)
}

// Reserve handles POST /api/reserves
func (h *SaleHandler) Reserve(w http.ResponseWriter, r *http.Request) {
	var req ReserveRequest
	if !h.decode(w, r, &req) {
		return
	}

	operatorID, _ := middleware.GetOperatorID(r.Context())
	reserve, err := h.sales.Reserve(r.Context(), service.ReserveRequest{
		Cart:           req.Cart.toDomain(),
		Customer:       req.Customer,
		DownPayment:    req.DownPayment,
		ExpirationDate: req.ExpirationDate,
		OperatorID:     operatorID,
	})
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusCreated, reserve)
}

// CompleteReservation handles POST /api/reserves/{id}/complete
func (h *SaleHandler) CompleteReservation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req SellRequest
	if !h.decode(w, r, &req) {
		return
	}

	sale, err := h.sales.CompleteReservation(r.Context(), id, h.sellRequest(r, req))
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusCreated, sale)
}

// GetSale handles GET /api/sales/{id}
func (h *SaleHandler) GetSale(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	sale, err := h.sales.GetSale(r.Context(), id)
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, sale)
}

// GetReserve handles GET /api/reserves/{id}
func (h *SaleHandler) GetReserve(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	reserve, err := h.sales.GetReserve(r.Context(), id)
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, reserve)
}

// Transfer handles POST /api/products/{id}/transfer
func (h *SaleHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req TransferRequest
	if !h.decode(w, r, &req) {
		return
	}

	res, err := h.sales.Transfer(r.Context(), id, req.Quantity, req.TargetStore)
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, res)
}

// GetSettings handles GET /api/settings
func (h *SaleHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.settings.Get(r.Context())
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, settings)
}

// UpdateSettings handles PUT /api/settings
func (h *SaleHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req SettingsRequest
	if !h.decode(w, r, &req) {
		return
	}

	settings, err := h.settings.Update(r.Context(), &domain.Settings{
		ExchangeRate: req.ExchangeRate,
		PointsPaused: req.PointsPaused,
		PointValue:   req.PointValue,
		EarnRate:     req.EarnRate,
		Version:      req.Version,
	})
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, settings)
}

func (h *SaleHandler) sellRequest(r *http.Request, req SellRequest) service.SellRequest {
	operatorID, _ := middleware.GetOperatorID(r.Context())
	return service.SellRequest{
		Cart:       req.Cart.toDomain(),
		Customer:   req.Customer,
		Payment:    req.Payment,
		TradeIn:    req.TradeIn,
		OperatorID: operatorID,
	}
}

// decode writes the 400 itself and reports whether the handler may go on.
func (h *SaleHandler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	err := middleware.DecodeAndValidate(w, r, v)
	if err == nil {
		return true
	}

	h.logger.Debug("Request validation failed", zap.String("path", r.URL.Path), zap.Error(err))
	if fieldErrors := middleware.FormatValidationErrors(err); len(fieldErrors) > 0 {
		middleware.RespondWithValidationErrors(w, fieldErrors)
		return false
	}
	middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
	return false
}

func pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid id")
		return uuid.Nil, false
	}
	return id, true
}

var notFoundErrors = []error{
	repository.ErrProductNotFound,
	repository.ErrCustomerNotFound,
	repository.ErrReserveNotFound,
	repository.ErrSaleNotFound,
	repository.ErrSettingsNotFound,
}

// respondWithServiceError maps domain and repository errors onto HTTP
// statuses. Anything unrecognized is logged and reported as a 500.
func (h *SaleHandler) respondWithServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		validation   *domain.ValidationError
		insufficient *domain.InsufficientStockError
		mismatch     *domain.StoreMismatchError
		commit       *domain.CounterCommitError
	)

	switch {
	case errors.As(err, &validation):
		middleware.RespondWithErrorDetails(w, http.StatusBadRequest, validation.Message, map[string]any{
			"field": validation.Field,
		})
	case errors.As(err, &commit):
		h.logger.Error("Receipt counter unavailable", zap.String("series", commit.Series), zap.Error(err))
		middleware.RespondWithError(w, http.StatusServiceUnavailable, "receipt numbering is busy, retry the transaction")
	case errors.As(err, &insufficient):
		middleware.RespondWithErrorDetails(w, http.StatusConflict, insufficient.Error(), map[string]any{
			"product_id": insufficient.ProductID,
			"requested":  insufficient.Requested,
			"available":  insufficient.Available,
		})
	case errors.As(err, &mismatch):
		middleware.RespondWithErrorDetails(w, http.StatusUnprocessableEntity, mismatch.Error(), map[string]any{
			"product_id": mismatch.ProductID,
			"expected":   mismatch.Expected,
			"actual":     mismatch.Actual,
		})
	case errors.Is(err, repository.ErrVersionConflict):
		middleware.RespondWithError(w, http.StatusConflict, "record was modified concurrently, reload and retry")
	case isNotFound(err):
		middleware.RespondWithError(w, http.StatusNotFound, err.Error())
	default:
		h.logger.Error("Request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		middleware.RespondWithError(w, http.StatusInternalServerError, "internal server error")
	}
}

func isNotFound(err error) bool {
	for _, target := range notFoundErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
