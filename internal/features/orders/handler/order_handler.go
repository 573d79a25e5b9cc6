package handler

import (
	"errors"
	"net/http"

	"smartcity-orders/internal/core/auth"
	"smartcity-orders/internal/core/logger"
	"smartcity-orders/internal/features/orders/domain"
	"smartcity-orders/internal/features/orders/ports"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// OrderHandler handles HTTP requests related to orders.
type OrderHandler struct {
	// lookup resolves single orders through cache, store and placeholder.
	lookup ports.OrderLookup
	// orders lists orders and changes their status.
	orders ports.OrderManager
}

// NewOrderHandler creates a new instance of OrderHandler.
func NewOrderHandler(lookup ports.OrderLookup, orders ports.OrderManager) *OrderHandler {
	return &OrderHandler{
		lookup: lookup,
		orders: orders,
	}
}

// ErrorResponse represents the structure of an error response.
type ErrorResponse struct {
	// Message is the error description.
	Message string `json:"message"`
	// RayID is the unique request identifier for debugging.
	RayID string `json:"ray_id"`
}

// UpdateStatusRequest is the body of PATCH /orders/{id}/status.
type UpdateStatusRequest struct {
	Status string `json:"status"`
}

// GetOrder handles the request to resolve an order by ID.
// @Summary Get Order by ID
// @Description Resolves the order from cache, then the order store. Unknown ids may return a placeholder flagged with warning=true.
// @Tags orders
// @Produce json
// @Security BearerAuth
// @Param id path string true "Order ID"
// @Success 200 {object} domain.Resolution
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 503 {object} ErrorResponse
// @Router /orders/{id} [get]
func (h *OrderHandler) GetOrder(c *fiber.Ctx) error {
	caller, ok := auth.FromCtx(c)
	if !ok {
		return respondError(c, http.StatusUnauthorized, "authentication required")
	}

	orderID := c.Params("id")
	if orderID == "" {
		return respondError(c, http.StatusBadRequest, "Order ID is required")
	}

	res, err := h.lookup.Resolve(c.UserContext(), orderID)
	if err != nil {
		return fail(c, orderID, err)
	}

	if res.Source != domain.SourceSynthetic && !caller.Admin && !res.Order.OwnedBy(caller.UID) {
		return fail(c, orderID, domain.ErrOrderForbidden)
	}

	return c.Status(http.StatusOK).JSON(res)
}

// ListOrders returns the caller's orders, newest first.
// @Summary List own orders
// @Tags orders
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Maximum number of orders (default 20, max 100)"
// @Success 200 {array} domain.Order
// @Failure 401 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /orders [get]
func (h *OrderHandler) ListOrders(c *fiber.Ctx) error {
	caller, ok := auth.FromCtx(c)
	if !ok {
		return respondError(c, http.StatusUnauthorized, "authentication required")
	}

	orders, err := h.orders.ListForUser(c.UserContext(), caller.UID, c.QueryInt("limit"))
	if err != nil {
		return fail(c, "", err)
	}
	return c.Status(http.StatusOK).JSON(orders)
}

// UpdateStatus moves an order along its lifecycle. Customers may cancel their
// own orders; any other change needs the admin claim.
// @Summary Change order status
// @Description Allowed transitions: pending→confirmed, confirmed→fulfilled, pending|confirmed→cancelled. Only administrators may confirm or fulfil.
// @Tags orders
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Order ID"
// @Param request body UpdateStatusRequest true "Target status"
// @Success 200 {object} domain.Order
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /orders/{id}/status [patch]
func (h *OrderHandler) UpdateStatus(c *fiber.Ctx) error {
	caller, ok := auth.FromCtx(c)
	if !ok {
		return respondError(c, http.StatusUnauthorized, "authentication required")
	}

	orderID := c.Params("id")

	var req UpdateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, http.StatusBadRequest, "invalid request body")
	}
	next, err := domain.ParseStatus(req.Status)
	if err != nil {
		return fail(c, orderID, err)
	}

	res, err := h.lookup.Resolve(c.UserContext(), orderID)
	if err != nil {
		return fail(c, orderID, err)
	}
	if res.Source == domain.SourceSynthetic {
		return fail(c, orderID, domain.ErrOrderNotFound)
	}
	if !caller.Admin {
		if !res.Order.OwnedBy(caller.UID) {
			return fail(c, orderID, domain.ErrOrderForbidden)
		}
		if !domain.CustomerMaySet(next) {
			return fail(c, orderID, domain.ErrAdminRequired)
		}
	}

	order, err := h.orders.UpdateStatus(c.UserContext(), orderID, next)
	if err != nil {
		return fail(c, orderID, err)
	}
	return c.Status(http.StatusOK).JSON(order)
}

func fail(c *fiber.Ctx, orderID string, err error) error {
	status := http.StatusInternalServerError
	msg := "Internal Server Error"

	switch {
	case errors.Is(err, domain.ErrOrderNotFound):
		status, msg = http.StatusNotFound, "Order not found"
	case errors.Is(err, domain.ErrOrderForbidden):
		status, msg = http.StatusForbidden, "Order belongs to another user"
	case errors.Is(err, domain.ErrAdminRequired):
		status, msg = http.StatusForbidden, err.Error()
	case errors.Is(err, domain.ErrInvalidStatus):
		status, msg = http.StatusBadRequest, err.Error()
	case errors.Is(err, domain.ErrInvalidTransition):
		status, msg = http.StatusConflict, err.Error()
	case errors.Is(err, domain.ErrLookupUnavailable):
		status, msg = http.StatusServiceUnavailable, "Order lookup temporarily unavailable"
	}

	if status >= http.StatusInternalServerError {
		rayID, _ := c.Locals("requestid").(string)
		logger.WithRayID(rayID).Error("Order request failed",
			zap.String("order_id", orderID),
			zap.Error(err),
		)
	}
	return respondError(c, status, msg)
}

func respondError(c *fiber.Ctx, status int, msg string) error {
	rayID, _ := c.Locals("requestid").(string)
	return c.Status(status).JSON(ErrorResponse{
		Message: msg,
		RayID:   rayID,
	})
}
