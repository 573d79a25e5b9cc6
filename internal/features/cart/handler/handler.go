package handler

import (
	"errors"
	"net/http"
	"time"

	"smartcity-orders/internal/core/auth"
	"smartcity-orders/internal/core/cache"
	"smartcity-orders/internal/core/logger"
	"smartcity-orders/internal/features/cart/domain"
	"smartcity-orders/internal/features/cart/ports"
	catalog "smartcity-orders/internal/features/catalog/domain"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// CartHandler handles HTTP requests for the caller's cart.
type CartHandler struct {
	service ports.CartService
}

// NewCartHandler creates a new CartHandler.
func NewCartHandler(service ports.CartService) *CartHandler {
	return &CartHandler{
		service: service,
	}
}

// ErrorResponse represents an error response with Ray ID.
type ErrorResponse struct {
	// Message is the error description.
	Message string `json:"message"`
	// RayID is the unique request identifier for tracing.
	RayID string `json:"ray_id"`
}

// AddItemRequest is the body of POST /cart/items.
type AddItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int64  `json:"quantity"`
}

// UpdateItemRequest is the body of PATCH /cart/items/{productId}.
type UpdateItemRequest struct {
	Quantity int64 `json:"quantity"`
}

// CartResponse is a cart with its server-computed totals.
type CartResponse struct {
	UserID    string        `json:"user_id"`
	Lines     []domain.Line `json:"lines"`
	Totals    domain.Totals `json:"totals"`
	UpdatedAt time.Time     `json:"updated_at"`
}

func (h *CartHandler) respond(c *fiber.Ctx, cart *domain.Cart) error {
	return c.Status(http.StatusOK).JSON(CartResponse{
		UserID:    cart.UserID,
		Lines:     cart.Lines,
		Totals:    h.service.Quote(cart),
		UpdatedAt: cart.UpdatedAt,
	})
}

func (h *CartHandler) fail(c *fiber.Ctx, err error) error {
	rayID, _ := c.Locals("requestid").(string)

	status := http.StatusInternalServerError
	msg := "Internal server error"
	switch {
	case errors.Is(err, domain.ErrInvalidQuantity), errors.Is(err, catalog.ErrInvalidQuantity):
		status, msg = http.StatusBadRequest, domain.ErrInvalidQuantity.Error()
	case errors.Is(err, domain.ErrLineNotFound):
		status, msg = http.StatusNotFound, "product is not in the cart"
	case errors.Is(err, catalog.ErrProductNotFound):
		status, msg = http.StatusNotFound, "product not found"
	case errors.Is(err, catalog.ErrInsufficientStock):
		status, msg = http.StatusConflict, err.Error()
	case errors.Is(err, catalog.ErrProductUnavailable):
		status, msg = http.StatusConflict, "product is not available for sale"
	case errors.Is(err, cache.ErrLockBusy):
		status, msg = http.StatusConflict, "cart is being updated, retry shortly"
	default:
		logger.WithRayID(rayID).Error("Cart operation failed", zap.Error(err))
	}

	return c.Status(status).JSON(ErrorResponse{
		Message: msg,
		RayID:   rayID,
	})
}

func unauthenticated(c *fiber.Ctx) error {
	rayID, _ := c.Locals("requestid").(string)
	return c.Status(http.StatusUnauthorized).JSON(ErrorResponse{
		Message: "authentication required",
		RayID:   rayID,
	})
}

// GetCart handles GET /cart.
// @Summary Get the caller's cart
// @Description Returns cart lines with subtotal, shipping, tax, discount and grand total in minor units.
// @Tags cart
// @Produce json
// @Security BearerAuth
// @Success 200 {object} CartResponse
// @Failure 401 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /cart [get]
func (h *CartHandler) GetCart(c *fiber.Ctx) error {
	id, ok := auth.FromCtx(c)
	if !ok {
		return unauthenticated(c)
	}

	cart, err := h.service.Get(c.UserContext(), id.UID)
	if err != nil {
		return h.fail(c, err)
	}
	return h.respond(c, cart)
}

// AddItem handles POST /cart/items.
// @Summary Add a product to the cart
// @Description Adds quantity units at the current catalog price. The merged quantity must not exceed stock.
// @Tags cart
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param item body AddItemRequest true "Product and quantity"
// @Success 200 {object} CartResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /cart/items [post]
func (h *CartHandler) AddItem(c *fiber.Ctx) error {
	id, ok := auth.FromCtx(c)
	if !ok {
		return unauthenticated(c)
	}

	var req AddItemRequest
	if err := c.BodyParser(&req); err != nil || req.ProductID == "" {
		rayID, _ := c.Locals("requestid").(string)
		return c.Status(http.StatusBadRequest).JSON(ErrorResponse{
			Message: "Invalid request body",
			RayID:   rayID,
		})
	}

	cart, err := h.service.AddItem(c.UserContext(), id.UID, req.ProductID, req.Quantity)
	if err != nil {
		return h.fail(c, err)
	}
	return h.respond(c, cart)
}

// UpdateItem handles PATCH /cart/items/{productId}.
// @Summary Change a line quantity
// @Description Sets the quantity of a cart line. Zero or less removes the line.
// @Tags cart
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param productId path string true "Product ID"
// @Param item body UpdateItemRequest true "New quantity"
// @Success 200 {object} CartResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /cart/items/{productId} [patch]
func (h *CartHandler) UpdateItem(c *fiber.Ctx) error {
	id, ok := auth.FromCtx(c)
	if !ok {
		return unauthenticated(c)
	}

	var req UpdateItemRequest
	if err := c.BodyParser(&req); err != nil {
		rayID, _ := c.Locals("requestid").(string)
		return c.Status(http.StatusBadRequest).JSON(ErrorResponse{
			Message: "Invalid request body",
			RayID:   rayID,
		})
	}

	cart, err := h.service.UpdateItem(c.UserContext(), id.UID, c.Params("productId"), req.Quantity)
	if err != nil {
		return h.fail(c, err)
	}
	return h.respond(c, cart)
}

// RemoveItem handles DELETE /cart/items/{productId}.
// @Summary Remove a product from the cart
// @Tags cart
// @Produce json
// @Security BearerAuth
// @Param productId path string true "Product ID"
// @Success 200 {object} CartResponse
// @Failure 500 {object} ErrorResponse
// @Router /cart/items/{productId} [delete]
func (h *CartHandler) RemoveItem(c *fiber.Ctx) error {
	id, ok := auth.FromCtx(c)
	if !ok {
		return unauthenticated(c)
	}

	cart, err := h.service.RemoveItem(c.UserContext(), id.UID, c.Params("productId"))
	if err != nil {
		return h.fail(c, err)
	}
	return h.respond(c, cart)
}

// ClearCart handles DELETE /cart.
// @Summary Empty the cart
// @Tags cart
// @Security BearerAuth
// @Success 204
// @Failure 500 {object} ErrorResponse
// @Router /cart [delete]
func (h *CartHandler) ClearCart(c *fiber.Ctx) error {
	id, ok := auth.FromCtx(c)
	if !ok {
		return unauthenticated(c)
	}

	if err := h.service.Clear(c.UserContext(), id.UID); err != nil {
		return h.fail(c, err)
	}
	return c.SendStatus(http.StatusNoContent)
}
