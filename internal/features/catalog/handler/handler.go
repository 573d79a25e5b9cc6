package handler

import (
	"errors"
	"net/http"

	"smartcity-orders/internal/core/logger"
	"smartcity-orders/internal/features/catalog/domain"
	"smartcity-orders/internal/features/catalog/ports"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// ProductHandler handles HTTP requests for catalog products.
type ProductHandler struct {
	service ports.CatalogService
}

// NewProductHandler creates a new ProductHandler.
func NewProductHandler(service ports.CatalogService) *ProductHandler {
	return &ProductHandler{
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

// GetProduct godoc
// @Summary Get a catalog product
// @Description Returns price, stock and sale status of a product.
// @Tags catalog
// @Produce json
// @Param id path string true "Product ID"
// @Success 200 {object} domain.Product
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /products/{id} [get]
func (h *ProductHandler) GetProduct(c *fiber.Ctx) error {
	rayID, _ := c.Locals("requestid").(string)

	product, err := h.service.GetProduct(c.UserContext(), c.Params("id"))
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrProductNotFound):
			return c.Status(http.StatusNotFound).JSON(ErrorResponse{
				Message: "product not found",
				RayID:   rayID,
			})
		case errors.Is(err, domain.ErrInvalidProduct):
			return c.Status(http.StatusBadRequest).JSON(ErrorResponse{
				Message: "product id is required",
				RayID:   rayID,
			})
		}

		logger.WithRayID(rayID).Error("Failed to get product", zap.String("product_id", c.Params("id")), zap.Error(err))
		return c.Status(http.StatusInternalServerError).JSON(ErrorResponse{
			Message: "Internal server error",
			RayID:   rayID,
		})
	}

	return c.Status(http.StatusOK).JSON(product)
}
