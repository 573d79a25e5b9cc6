package handler

import (
	"errors"
	"net/http"

	"smartcity-orders/internal/core/auth"
	"smartcity-orders/internal/core/logger"
	cart "smartcity-orders/internal/features/cart/domain"
	catalog "smartcity-orders/internal/features/catalog/domain"
	"smartcity-orders/internal/features/checkout/domain"
	"smartcity-orders/internal/features/checkout/ports"
	orders "smartcity-orders/internal/features/orders/domain"
	payment "smartcity-orders/internal/features/payment/domain"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// CheckoutHandler handles order placement.
type CheckoutHandler struct {
	checkout ports.Checkout
}

// NewCheckoutHandler creates a new CheckoutHandler.
func NewCheckoutHandler(checkout ports.Checkout) *CheckoutHandler {
	return &CheckoutHandler{checkout: checkout}
}

// ErrorResponse represents an error response with Ray ID.
type ErrorResponse struct {
	// Message is the error description.
	Message string `json:"message"`
	// Field names the offending input, when there is one.
	Field string `json:"field,omitempty"`
	// RayID is the unique request identifier for tracing.
	RayID string `json:"ray_id"`
}

// PlaceOrder handles POST /checkout.
// @Summary Place an order from the caller's cart
// @Description Validates billing and payment details, reserves stock, confirms payment and stores the order. Totals are recomputed server-side.
// @Tags checkout
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body domain.Request true "Billing and payment details"
// @Success 201 {object} orders.Order
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 402 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Failure 503 {object} ErrorResponse
// @Failure 504 {object} ErrorResponse
// @Router /checkout [post]
func (h *CheckoutHandler) PlaceOrder(c *fiber.Ctx) error {
	rayID, _ := c.Locals("requestid").(string)

	caller, ok := auth.FromCtx(c)
	if !ok {
		return c.Status(http.StatusUnauthorized).JSON(ErrorResponse{
			Message: "authentication required",
			RayID:   rayID,
		})
	}

	var req domain.Request
	if err := c.BodyParser(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(ErrorResponse{
			Message: "invalid request body",
			RayID:   rayID,
		})
	}

	order, err := h.checkout.PlaceOrder(c.UserContext(), caller, req)
	if err != nil {
		status, resp := classify(err)
		resp.RayID = rayID
		if status >= http.StatusInternalServerError && status != http.StatusGatewayTimeout {
			logger.WithRayID(rayID).Error("Checkout failed",
				zap.String("user_id", caller.UID),
				zap.Error(err),
			)
		}
		return c.Status(status).JSON(resp)
	}

	return c.Status(http.StatusCreated).JSON(order)
}

func classify(err error) (int, ErrorResponse) {
	var billingErr *orders.IncompleteBillingError
	var detailsErr *payment.DetailsError

	switch {
	case errors.Is(err, cart.ErrEmptyCart):
		return http.StatusUnprocessableEntity, ErrorResponse{Message: "cart is empty"}
	case errors.As(err, &billingErr):
		return http.StatusUnprocessableEntity, ErrorResponse{Message: billingErr.Error(), Field: billingErr.Field}
	case errors.As(err, &detailsErr):
		return http.StatusBadRequest, ErrorResponse{Message: detailsErr.Error(), Field: detailsErr.Field}
	case errors.Is(err, payment.ErrUnsupportedPaymentMethod):
		return http.StatusBadRequest, ErrorResponse{Message: err.Error(), Field: "payment_method"}
	case errors.Is(err, catalog.ErrInsufficientStock):
		return http.StatusConflict, ErrorResponse{Message: err.Error()}
	case errors.Is(err, catalog.ErrProductUnavailable):
		return http.StatusConflict, ErrorResponse{Message: err.Error()}
	case errors.Is(err, catalog.ErrProductNotFound):
		return http.StatusNotFound, ErrorResponse{Message: "product not found"}
	case errors.Is(err, payment.ErrPaymentDeclined):
		return http.StatusPaymentRequired, ErrorResponse{Message: "payment declined"}
	case errors.Is(err, payment.ErrPaymentTimeout):
		return http.StatusGatewayTimeout, ErrorResponse{Message: "payment confirmation timed out"}
	case errors.Is(err, payment.ErrGatewayUnavailable):
		return http.StatusServiceUnavailable, ErrorResponse{Message: "payment gateway unavailable"}
	}
	return http.StatusInternalServerError, ErrorResponse{Message: "Internal server error"}
}
