package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"smartcity-orders/internal/core/auth"
	"smartcity-orders/internal/core/cache"
	"smartcity-orders/internal/features/cart/domain"
	catalog "smartcity-orders/internal/features/catalog/domain"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockCartService is a mock implementation of ports.CartService
type MockCartService struct {
	mock.Mock
}

func (m *MockCartService) Get(ctx context.Context, userID string) (*domain.Cart, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Cart), args.Error(1)
}

func (m *MockCartService) AddItem(ctx context.Context, userID, productID string, quantity int64) (*domain.Cart, error) {
	args := m.Called(ctx, userID, productID, quantity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Cart), args.Error(1)
}

func (m *MockCartService) UpdateItem(ctx context.Context, userID, productID string, quantity int64) (*domain.Cart, error) {
	args := m.Called(ctx, userID, productID, quantity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Cart), args.Error(1)
}

func (m *MockCartService) RemoveItem(ctx context.Context, userID, productID string) (*domain.Cart, error) {
	args := m.Called(ctx, userID, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Cart), args.Error(1)
}

func (m *MockCartService) Clear(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *MockCartService) Totals(ctx context.Context, userID string) (domain.Totals, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(domain.Totals), args.Error(1)
}

func (m *MockCartService) Quote(cart *domain.Cart) domain.Totals {
	return cart.ComputeTotals(domain.DefaultPricing)
}

func setupApp(service *MockCartService, authenticated bool) *fiber.App {
	app := fiber.New()
	if authenticated {
		app.Use(func(c *fiber.Ctx) error {
			auth.SetIdentity(c, auth.Identity{UID: "u1", Email: "ana@example.com"})
			return c.Next()
		})
	}
	handler := NewCartHandler(service)
	app.Get("/cart", handler.GetCart)
	app.Delete("/cart", handler.ClearCart)
	app.Post("/cart/items", handler.AddItem)
	app.Patch("/cart/items/:productId", handler.UpdateItem)
	app.Delete("/cart/items/:productId", handler.RemoveItem)
	return app
}

func sampleCart() *domain.Cart {
	c := domain.New("u1")
	_ = c.AddLine("P1", "Smart Meter", 2, 500)
	return c
}

func jsonRequest(method, target string, body any) *http.Request {
	data, _ := json.Marshal(body)
	req := httptest.NewRequest(method, target, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestCartHandler_GetCart(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		mockService := new(MockCartService)
		app := setupApp(mockService, true)
		mockService.On("Get", mock.Anything, "u1").Return(sampleCart(), nil).Once()

		resp, err := app.Test(httptest.NewRequest("GET", "/cart", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var body CartResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		require.Len(t, body.Lines, 1)
		assert.EqualValues(t, 1000, body.Totals.Subtotal)
		assert.EqualValues(t, 1070, body.Totals.GrandTotal)
		mockService.AssertExpectations(t)
	})

	t.Run("Unauthenticated", func(t *testing.T) {
		mockService := new(MockCartService)
		app := setupApp(mockService, false)

		resp, err := app.Test(httptest.NewRequest("GET", "/cart", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}

func TestCartHandler_AddItem(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"Success", nil, http.StatusOK},
		{"InvalidQuantity", domain.ErrInvalidQuantity, http.StatusBadRequest},
		{"UnknownProduct", catalog.ErrProductNotFound, http.StatusNotFound},
		{"InsufficientStock", &catalog.StockError{ProductID: "P1", Requested: 9, Available: 2}, http.StatusConflict},
		{"Unavailable", catalog.ErrProductUnavailable, http.StatusConflict},
		{"CartBusy", fmt.Errorf("service: failed to lock cart: %w", cache.ErrLockBusy), http.StatusConflict},
		{"StoreDown", errors.New("redis down"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockCartService)
			app := setupApp(mockService, true)

			if tt.err == nil {
				mockService.On("AddItem", mock.Anything, "u1", "P1", int64(2)).Return(sampleCart(), nil).Once()
			} else {
				mockService.On("AddItem", mock.Anything, "u1", "P1", int64(2)).Return(nil, tt.err).Once()
			}

			resp, err := app.Test(jsonRequest("POST", "/cart/items", AddItemRequest{ProductID: "P1", Quantity: 2}))
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			mockService.AssertExpectations(t)
		})
	}

	t.Run("MissingProductID", func(t *testing.T) {
		mockService := new(MockCartService)
		app := setupApp(mockService, true)

		resp, err := app.Test(jsonRequest("POST", "/cart/items", AddItemRequest{Quantity: 2}))
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		mockService.AssertNotCalled(t, "AddItem", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestCartHandler_UpdateItem(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		mockService := new(MockCartService)
		app := setupApp(mockService, true)
		mockService.On("UpdateItem", mock.Anything, "u1", "P1", int64(4)).Return(sampleCart(), nil).Once()

		resp, err := app.Test(jsonRequest("PATCH", "/cart/items/P1", UpdateItemRequest{Quantity: 4}))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		mockService.AssertExpectations(t)
	})

	t.Run("LineNotFound", func(t *testing.T) {
		mockService := new(MockCartService)
		app := setupApp(mockService, true)
		mockService.On("UpdateItem", mock.Anything, "u1", "P9", int64(4)).Return(nil, domain.ErrLineNotFound).Once()

		resp, err := app.Test(jsonRequest("PATCH", "/cart/items/P9", UpdateItemRequest{Quantity: 4}))
		require.NoError(t, err)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestCartHandler_RemoveAndClear(t *testing.T) {
	mockService := new(MockCartService)
	app := setupApp(mockService, true)
	mockService.On("RemoveItem", mock.Anything, "u1", "P1").Return(domain.New("u1"), nil).Once()
	mockService.On("Clear", mock.Anything, "u1").Return(nil).Once()

	resp, err := app.Test(httptest.NewRequest("DELETE", "/cart/items/P1", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("DELETE", "/cart", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	mockService.AssertExpectations(t)
}
