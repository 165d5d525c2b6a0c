package handler

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/dreschagin/order-service/internal/application/usecase"
	"github.com/dreschagin/order-service/internal/domain/entity"
	"github.com/dreschagin/order-service/internal/domain/repository"
	"github.com/dreschagin/order-service/pkg/logger"
)

// orderRequest is the JSON body of create and update calls.
type orderRequest struct {
	Name     string  `json:"name"`
	Phone    string  `json:"phone"`
	County   string  `json:"county"`
	Location string  `json:"location"`
	Item     string  `json:"item"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
	Amount   float64 `json:"amount"`
	Note     string  `json:"note"`
}

func (req orderRequest) details() entity.OrderDetails {
	return entity.OrderDetails{
		Name:     req.Name,
		Phone:    req.Phone,
		County:   req.County,
		Location: req.Location,
		Item:     req.Item,
		Quantity: req.Quantity,
		Price:    req.Price,
		Amount:   req.Amount,
		Note:     req.Note,
	}
}

// orderResponse is the JSON form of an order.
type orderResponse struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	County    string    `json:"county"`
	Location  string    `json:"location"`
	Item      string    `json:"item"`
	Quantity  int       `json:"quantity"`
	Price     float64   `json:"price"`
	Amount    float64   `json:"amount"`
	Note      string    `json:"note"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toOrderResponse(o *entity.Order) orderResponse {
	return orderResponse{
		ID:        o.ID,
		Name:      o.Name,
		Phone:     o.Phone,
		County:    o.County,
		Location:  o.Location,
		Item:      o.Item,
		Quantity:  o.Quantity,
		Price:     o.Price,
		Amount:    o.Amount,
		Note:      o.Note,
		CreatedAt: o.CreatedAt,
		UpdatedAt: o.UpdatedAt,
	}
}

// OrderHandler обрабатывает API запросы для заказов
type OrderHandler struct {
	orders *usecase.ManageOrdersUseCase
	logger *logger.Logger
}

// NewOrderHandler создает новый handler
func NewOrderHandler(orders *usecase.ManageOrdersUseCase, logger *logger.Logger) *OrderHandler {
	return &OrderHandler{
		orders: orders,
		logger: logger,
	}
}

// List возвращает все заказы
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	log := requestLogger(h.logger, r)

	orders, err := h.orders.List(r.Context())
	if err != nil {
		log.Error("Error fetching all orders", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch orders")
		return
	}

	data := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		data = append(data, toOrderResponse(o))
	}

	log.Info("Fetched all orders successfully", "count", len(data))
	writeSuccess(w, http.StatusOK, "All orders fetched successfully", data)
}

// Get возвращает заказ по ID
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	log := requestLogger(h.logger, r)

	id, err := parseID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	order, err := h.orders.Get(r.Context(), id)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		log.Warn(fmt.Sprintf("Order with ID: %d not found", id))
		writeError(w, http.StatusNotFound, fmt.Sprintf("Order with ID: %d not found", id))
		return
	case err != nil:
		log.Error(fmt.Sprintf("Error fetching order with ID: %d", id), err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch order")
		return
	}

	log.Info(fmt.Sprintf("Fetched order with ID: %d successfully", id))
	writeSuccess(w, http.StatusOK, fmt.Sprintf("Order with ID: %d fetched successfully", id), toOrderResponse(order))
}

// Create создает заказ
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	log := requestLogger(h.logger, r)

	var req orderRequest
	if err := decodeBody(w, r, &req); err != nil {
		log.Warn("Rejected malformed order payload", "error", err.Error())
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	order, err := h.orders.Create(r.Context(), req.details())
	switch {
	case errors.Is(err, usecase.ErrInvalidInput):
		log.Warn("Rejected invalid order", "error", err.Error())
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		log.Error("Error creating order", err)
		writeError(w, http.StatusInternalServerError, "Failed to create order")
		return
	}

	log.Info(fmt.Sprintf("New order created: %d", order.ID),
		"item", order.Item,
		"quantity", order.Quantity,
		"amount", order.Amount)
	writeSuccess(w, http.StatusCreated, "Order created successfully", toOrderResponse(order))
}

// Update обновляет заказ
func (h *OrderHandler) Update(w http.ResponseWriter, r *http.Request) {
	log := requestLogger(h.logger, r)

	id, err := parseID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req orderRequest
	if err := decodeBody(w, r, &req); err != nil {
		log.Warn("Rejected malformed order payload", "error", err.Error())
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	order, err := h.orders.Update(r.Context(), id, req.details())
	switch {
	case errors.Is(err, repository.ErrNotFound):
		log.Warn(fmt.Sprintf("Order with ID: %d not found for update", id))
		writeError(w, http.StatusNotFound, fmt.Sprintf("Order with ID: %d not found", id))
		return
	case errors.Is(err, usecase.ErrInvalidInput):
		log.Warn("Rejected invalid order", "order_id", id, "error", err.Error())
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		log.Error(fmt.Sprintf("Error updating order with ID: %d", id), err)
		writeError(w, http.StatusInternalServerError, "Failed to update order")
		return
	}

	log.Info(fmt.Sprintf("Order with ID: %d updated successfully", id))
	writeSuccess(w, http.StatusOK, fmt.Sprintf("Order with ID: %d updated successfully", id), toOrderResponse(order))
}

// Delete мягко удаляет заказ
func (h *OrderHandler) Delete(w http.ResponseWriter, r *http.Request) {
	log := requestLogger(h.logger, r)

	id, err := parseID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	err = h.orders.Delete(r.Context(), id)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		log.Warn(fmt.Sprintf("Order with ID: %d not found for deletion", id))
		writeError(w, http.StatusNotFound, fmt.Sprintf("Order with ID: %d not found", id))
		return
	case err != nil:
		log.Error(fmt.Sprintf("Error deleting order with ID: %d", id), err)
		writeError(w, http.StatusInternalServerError, "Failed to delete order")
		return
	}

	log.Info(fmt.Sprintf("Order with ID: %d deleted successfully", id))
	writeSuccess(w, http.StatusNoContent, "", nil)
}
