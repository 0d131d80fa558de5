package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/nikolayk812/luxcore/internal/cache"
	"github.com/nikolayk812/luxcore/internal/domain"
	"github.com/nikolayk812/luxcore/internal/port"
	"github.com/nikolayk812/luxcore/internal/repository"
	"github.com/nikolayk812/luxcore/internal/server"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/currency"
)

type stubCheckout struct {
	checkoutFn func(input port.CheckoutInput) (port.CheckoutResult, error)
	getOrderFn func(userID, orderID uuid.UUID) (domain.Order, error)
	trackFn    func(token string) (domain.Order, error)
	listFn     func(userID uuid.UUID) ([]domain.OrderSummary, error)
}

func (s *stubCheckout) Checkout(_ context.Context, input port.CheckoutInput) (port.CheckoutResult, error) {
	return s.checkoutFn(input)
}

func (s *stubCheckout) GetOrder(_ context.Context, userID, orderID uuid.UUID) (domain.Order, error) {
	return s.getOrderFn(userID, orderID)
}

func (s *stubCheckout) TrackOrder(_ context.Context, token string) (domain.Order, error) {
	return s.trackFn(token)
}

func (s *stubCheckout) ListUserOrders(_ context.Context, userID uuid.UUID) ([]domain.OrderSummary, error) {
	return s.listFn(userID)
}

type stubCatalog struct {
	product domain.Product
	err     error
}

func (s *stubCatalog) GetProduct(context.Context, uuid.UUID) (domain.Product, error) {
	return s.product, s.err
}

func (s *stubCatalog) GetProducts(context.Context, []uuid.UUID) ([]domain.Product, error) {
	return nil, nil
}

func (s *stubCatalog) ReserveStock(context.Context, []port.StockReservation) (map[uuid.UUID]int, error) {
	return nil, nil
}

func (s *stubCatalog) ReleaseStock(context.Context, []port.StockReservation) error { return nil }

func (s *stubCatalog) AdjustStock(context.Context, uuid.UUID, int) (int, error) { return 0, nil }

func newTestRouter(checkout port.CheckoutService, catalog port.CatalogRepository) *gin.Engine {
	gin.SetMode(gin.TestMode)

	if catalog == nil {
		catalog = &stubCatalog{}
	}

	return server.New(checkout, cache.NewCatalogCache(catalog, time.Minute)).Router()
}

func sampleOrder() domain.Order {
	unit := currency.USD
	orderID := uuid.New()

	return domain.Order{
		ID:             orderID,
		OrderNumber:    domain.NewOrderNumber(),
		Status:         domain.OrderStatusPending,
		PaymentStatus:  domain.PaymentStatusUnpaid,
		Subtotal:       domain.NewMoney(decimal.RequireFromString("150.00"), unit),
		TaxAmount:      domain.NewMoney(decimal.RequireFromString("12.00"), unit),
		ShippingAmount: domain.NewMoney(decimal.RequireFromString("25.00"), unit),
		DiscountAmount: domain.NewMoney(decimal.Zero, unit),
		TotalAmount:    domain.NewMoney(decimal.RequireFromString("187.00"), unit),
		CreatedAt:      time.Now(),
	}
}

func validOrderBody() map[string]any {
	return map[string]any{
		"items": []map[string]any{
			{"productId": uuid.NewString(), "quantity": 2},
		},
		"shippingAddress": map[string]any{
			"firstName": "Ada",
			"lastName":  "Lovelace",
			"address1":  "12 Analytical Row",
			"city":      "London",
			"state":     "LN",
			"zipCode":   "E1 6AN",
			"country":   "GB",
		},
		"paymentMethod": "card",
		"guestEmail":    "ada@example.com",
	}
}

func postOrder(t *testing.T, router *gin.Engine, body map[string]any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/orders", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)
	return recorder
}

func TestCreateOrder(t *testing.T) {
	t.Run("guest order created", func(t *testing.T) {
		order := sampleOrder()
		order.TrackingToken = domain.NewTrackingToken()

		checkout := &stubCheckout{
			checkoutFn: func(input port.CheckoutInput) (port.CheckoutResult, error) {
				assert.Nil(t, input.UserID)
				assert.Equal(t, "ada@example.com", input.GuestEmail)
				assert.Len(t, input.Cart.Lines, 1)
				assert.Equal(t, 2, input.Cart.Lines[0].Quantity)
				return port.CheckoutResult{Order: order}, nil
			},
		}

		recorder := postOrder(t, newTestRouter(checkout, nil), validOrderBody(), nil)
		require.Equal(t, http.StatusCreated, recorder.Code)

		var response struct {
			Message       string `json:"message"`
			TrackingToken string `json:"trackingToken"`
			Order         struct {
				OrderNumber string `json:"orderNumber"`
				TotalAmount string `json:"totalAmount"`
			} `json:"order"`
		}
		require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))

		assert.Equal(t, order.OrderNumber, response.Order.OrderNumber)
		assert.Equal(t, "187.00", response.Order.TotalAmount)
		assert.Equal(t, order.TrackingToken, response.TrackingToken)
	})

	t.Run("authenticated user forwarded from header", func(t *testing.T) {
		userID := uuid.New()

		checkout := &stubCheckout{
			checkoutFn: func(input port.CheckoutInput) (port.CheckoutResult, error) {
				require.NotNil(t, input.UserID)
				assert.Equal(t, userID, *input.UserID)
				return port.CheckoutResult{Order: sampleOrder()}, nil
			},
		}

		recorder := postOrder(t, newTestRouter(checkout, nil), validOrderBody(),
			map[string]string{"X-User-ID": userID.String()})
		assert.Equal(t, http.StatusCreated, recorder.Code)
	})

	t.Run("idempotent replay returns 200", func(t *testing.T) {
		key := uuid.NewString()

		checkout := &stubCheckout{
			checkoutFn: func(input port.CheckoutInput) (port.CheckoutResult, error) {
				assert.Equal(t, key, input.IdempotencyKey)
				return port.CheckoutResult{Order: sampleOrder(), Replayed: true}, nil
			},
		}

		recorder := postOrder(t, newTestRouter(checkout, nil), validOrderBody(),
			map[string]string{"Idempotency-Key": key})
		assert.Equal(t, http.StatusOK, recorder.Code)
	})

	t.Run("malformed body rejected", func(t *testing.T) {
		checkout := &stubCheckout{
			checkoutFn: func(port.CheckoutInput) (port.CheckoutResult, error) {
				t.Fatal("checkout must not be called")
				return port.CheckoutResult{}, nil
			},
		}

		body := validOrderBody()
		delete(body, "items")

		recorder := postOrder(t, newTestRouter(checkout, nil), body, nil)
		assert.Equal(t, http.StatusBadRequest, recorder.Code)
	})

	t.Run("duplicate cart lines rejected", func(t *testing.T) {
		productID := uuid.NewString()

		body := validOrderBody()
		body["items"] = []map[string]any{
			{"productId": productID, "quantity": 1},
			{"productId": productID, "quantity": 2},
		}

		// each element passes binding on its own, only the orchestrator
		// sees the duplication
		checkout := &stubCheckout{
			checkoutFn: func(input port.CheckoutInput) (port.CheckoutResult, error) {
				return port.CheckoutResult{}, input.Cart.Dedup()
			},
		}

		recorder := postOrder(t, newTestRouter(checkout, nil), body, nil)
		require.Equal(t, http.StatusBadRequest, recorder.Code)
		assert.Contains(t, recorder.Body.String(), "duplicate product in cart")
	})

	t.Run("error taxonomy mapped to statuses", func(t *testing.T) {
		tests := []struct {
			name       string
			err        error
			wantStatus int
		}{
			{"guest email required", domain.ErrGuestEmailRequired, http.StatusUnauthorized},
			{"empty cart", domain.ErrEmptyCart, http.StatusBadRequest},
			{"invalid coupon", fmt.Errorf("coupon[X]: %w", domain.ErrInvalidCoupon), http.StatusBadRequest},
			{"insufficient stock", domain.InsufficientStockError{ProductID: uuid.New(), Requested: 2, Available: 0}, http.StatusBadRequest},
			{"internal failure", assert.AnError, http.StatusInternalServerError},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				checkout := &stubCheckout{
					checkoutFn: func(port.CheckoutInput) (port.CheckoutResult, error) {
						return port.CheckoutResult{}, tt.err
					},
				}

				recorder := postOrder(t, newTestRouter(checkout, nil), validOrderBody(), nil)
				assert.Equal(t, tt.wantStatus, recorder.Code)
			})
		}
	})
}

func TestGetOrder(t *testing.T) {
	order := sampleOrder()
	owner := uuid.New()

	checkout := &stubCheckout{
		getOrderFn: func(userID, orderID uuid.UUID) (domain.Order, error) {
			if userID != owner || orderID != order.ID {
				return domain.Order{}, repository.ErrNotFound
			}
			return order, nil
		},
	}
	router := newTestRouter(checkout, nil)

	t.Run("unauthenticated: 401", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/orders/"+order.ID.String(), nil)
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, req)

		assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	})

	t.Run("owner: 200", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/orders/"+order.ID.String(), nil)
		req.Header.Set("X-User-ID", owner.String())
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, req)

		assert.Equal(t, http.StatusOK, recorder.Code)
	})

	t.Run("someone else: 404", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/orders/"+order.ID.String(), nil)
		req.Header.Set("X-User-ID", uuid.NewString())
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, req)

		assert.Equal(t, http.StatusNotFound, recorder.Code)
	})

	t.Run("invalid id: 400", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/orders/not-a-uuid", nil)
		req.Header.Set("X-User-ID", owner.String())
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, req)

		assert.Equal(t, http.StatusBadRequest, recorder.Code)
	})
}

func TestTrackOrder(t *testing.T) {
	order := sampleOrder()
	order.TrackingToken = domain.NewTrackingToken()

	checkout := &stubCheckout{
		trackFn: func(token string) (domain.Order, error) {
			if token != order.TrackingToken {
				return domain.Order{}, repository.ErrNotFound
			}
			return order, nil
		},
	}
	router := newTestRouter(checkout, nil)

	t.Run("known token, no auth needed", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/orders/track/"+order.TrackingToken, nil)
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, req)

		assert.Equal(t, http.StatusOK, recorder.Code)
	})

	t.Run("unknown token: 404", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/orders/track/"+domain.NewTrackingToken(), nil)
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, req)

		assert.Equal(t, http.StatusNotFound, recorder.Code)
	})
}

func TestListOrders(t *testing.T) {
	userID := uuid.New()

	checkout := &stubCheckout{
		listFn: func(got uuid.UUID) ([]domain.OrderSummary, error) {
			assert.Equal(t, userID, got)
			return []domain.OrderSummary{
				{
					ID:            uuid.New(),
					OrderNumber:   domain.NewOrderNumber(),
					Status:        domain.OrderStatusPending,
					PaymentStatus: domain.PaymentStatusUnpaid,
					TotalAmount:   domain.NewMoney(decimal.RequireFromString("99.50"), currency.USD),
					CreatedAt:     time.Now(),
				},
			}, nil
		},
	}
	router := newTestRouter(checkout, nil)

	t.Run("unauthenticated: 401", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, req)

		assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	})

	t.Run("authenticated: 200 with summaries", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
		req.Header.Set("X-User-ID", userID.String())
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, req)

		require.Equal(t, http.StatusOK, recorder.Code)

		var response struct {
			Orders []struct {
				TotalAmount string `json:"totalAmount"`
			} `json:"orders"`
		}
		require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))
		require.Len(t, response.Orders, 1)
		assert.Equal(t, "99.50", response.Orders[0].TotalAmount)
	})
}

func TestGetProduct(t *testing.T) {
	product := domain.Product{
		ID:     uuid.New(),
		Name:   "Leather Tote",
		Price:  domain.NewMoney(decimal.RequireFromString("450.00"), currency.USD),
		Stock:  3,
		Status: domain.ProductStatusActive,
	}

	router := newTestRouter(&stubCheckout{}, &stubCatalog{product: product})

	req := httptest.NewRequest(http.MethodGet, "/api/products/"+product.ID.String(), nil)
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)

	require.Equal(t, http.StatusOK, recorder.Code)

	var response struct {
		Name  string `json:"name"`
		Price string `json:"price"`
		Stock int    `json:"stock"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))
	assert.Equal(t, "Leather Tote", response.Name)
	assert.Equal(t, "450.00", response.Price)
	assert.Equal(t, 3, response.Stock)
}

func TestHealth(t *testing.T) {
	router := newTestRouter(&stubCheckout{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "healthy")
}

func TestMetricsEndpoint(t *testing.T) {
	router := newTestRouter(&stubCheckout{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)

	assert.Equal(t, http.StatusOK, recorder.Code)
}
