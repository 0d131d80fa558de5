package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/nikolayk812/luxcore/internal/domain"
	"github.com/nikolayk812/luxcore/internal/port"
	"github.com/nikolayk812/luxcore/internal/repository"
	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
)

type createOrderRequest struct {
	Items           []orderItemRequest `json:"items" binding:"required"`
	ShippingAddress addressPayload     `json:"shippingAddress" binding:"required"`
	BillingAddress  *addressPayload    `json:"billingAddress"`
	PaymentMethod   string             `json:"paymentMethod" binding:"required"`
	CouponCode      string             `json:"couponCode"`
	GuestEmail      string             `json:"guestEmail" binding:"omitempty,email"`
	RedeemPoints    int                `json:"redeemPoints" binding:"omitempty,min=0"`
	IdempotencyKey  string             `json:"-"`
}

type orderItemRequest struct {
	ProductID   uuid.UUID       `json:"productId" binding:"required"`
	Quantity    int             `json:"quantity" binding:"required,min=1"`
	VariantInfo json.RawMessage `json:"variantInfo"`
}

type addressPayload struct {
	FirstName string `json:"firstName" binding:"required"`
	LastName  string `json:"lastName" binding:"required"`
	Address1  string `json:"address1" binding:"required"`
	Address2  string `json:"address2"`
	City      string `json:"city" binding:"required"`
	State     string `json:"state" binding:"required"`
	ZipCode   string `json:"zipCode" binding:"required"`
	Country   string `json:"country" binding:"required"`
	Phone     string `json:"phone"`
}

func (a addressPayload) toDomain() domain.Address {
	return domain.Address(a)
}

type orderResponse struct {
	ID            uuid.UUID           `json:"id"`
	OrderNumber   string              `json:"orderNumber"`
	Status        string              `json:"status"`
	PaymentStatus string              `json:"paymentStatus"`
	Subtotal      string              `json:"subtotal"`
	TaxAmount     string              `json:"taxAmount"`
	Shipping      string              `json:"shippingAmount"`
	Discount      string              `json:"discountAmount"`
	TotalAmount   string              `json:"totalAmount"`
	Currency      string              `json:"currency"`
	PointsUsed    int                 `json:"pointsUsed,omitempty"`
	PointsEarned  int                 `json:"pointsEarned,omitempty"`
	Items         []orderItemResponse `json:"items,omitempty"`
	CreatedAt     time.Time           `json:"createdAt"`
}

type orderItemResponse struct {
	ProductID    uuid.UUID       `json:"productId"`
	Quantity     int             `json:"quantity"`
	UnitPrice    string          `json:"unitPrice"`
	LineTotal    string          `json:"lineTotal"`
	ProductName  string          `json:"productName"`
	ProductImage string          `json:"productImage,omitempty"`
	VariantInfo  json.RawMessage `json:"variantInfo,omitempty"`
}

func (s *Server) createOrder(c *gin.Context) {
	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order data: " + err.Error()})
		return
	}

	lines := make([]domain.CartLine, 0, len(req.Items))
	for _, item := range req.Items {
		lines = append(lines, domain.CartLine{
			ProductID:   item.ProductID,
			Quantity:    item.Quantity,
			VariantInfo: item.VariantInfo,
		})
	}

	input := port.CheckoutInput{
		UserID:          currentUser(c),
		GuestEmail:      req.GuestEmail,
		Cart:            domain.Cart{Lines: lines},
		ShippingAddress: req.ShippingAddress.toDomain(),
		PaymentMethod:   req.PaymentMethod,
		CouponCode:      req.CouponCode,
		RedeemPoints:    req.RedeemPoints,
		IdempotencyKey:  c.GetHeader("Idempotency-Key"),
	}
	if req.BillingAddress != nil {
		input.BillingAddress = lo.ToPtr(req.BillingAddress.toDomain())
	}

	result, err := s.checkout.Checkout(c.Request.Context(), input)
	if err != nil {
		writeError(c, err)
		return
	}

	status := http.StatusCreated
	if result.Replayed {
		status = http.StatusOK
	}

	response := gin.H{
		"message": "Order created successfully",
		"order":   toOrderResponse(result.Order, false),
	}
	if result.Order.TrackingToken != "" {
		response["trackingToken"] = result.Order.TrackingToken
	}

	c.JSON(status, response)
}

func (s *Server) listOrders(c *gin.Context) {
	userID := currentUser(c)
	if userID == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	summaries, err := s.checkout.ListUserOrders(c.Request.Context(), *userID)
	if err != nil {
		writeError(c, err)
		return
	}

	responses := make([]gin.H, 0, len(summaries))
	for _, summary := range summaries {
		responses = append(responses, gin.H{
			"id":            summary.ID,
			"orderNumber":   summary.OrderNumber,
			"status":        string(summary.Status),
			"paymentStatus": string(summary.PaymentStatus),
			"totalAmount":   summary.TotalAmount.Amount.StringFixed(2),
			"createdAt":     summary.CreatedAt,
		})
	}

	c.JSON(http.StatusOK, gin.H{"orders": responses})
}

func (s *Server) getOrder(c *gin.Context) {
	userID := currentUser(c)
	if userID == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
		return
	}

	order, err := s.checkout.GetOrder(c.Request.Context(), *userID, orderID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"order": toOrderResponse(order, true)})
}

func (s *Server) trackOrder(c *gin.Context) {
	order, err := s.checkout.TrackOrder(c.Request.Context(), c.Param("token"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"order": toOrderResponse(order, true)})
}

func (s *Server) getProduct(c *gin.Context) {
	productID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid product id"})
		return
	}

	product, err := s.catalog.GetProduct(c.Request.Context(), productID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":     product.ID,
		"name":   product.Name,
		"price":  product.Price.Amount.StringFixed(2),
		"image":  product.Image,
		"stock":  product.Stock,
		"status": string(product.Status),
	})
}

// writeError maps the checkout error taxonomy to HTTP statuses: 401 for a
// missing identity, 400 for business-rule rejections, 404 for lookup misses
// and an opaque 500 for everything else.
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrGuestEmailRequired):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case domain.IsBusinessError(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, repository.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
	default:
		log.WithError(err).Error("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

func toOrderResponse(order domain.Order, withItems bool) orderResponse {
	response := orderResponse{
		ID:            order.ID,
		OrderNumber:   order.OrderNumber,
		Status:        string(order.Status),
		PaymentStatus: string(order.PaymentStatus),
		Subtotal:      order.Subtotal.Amount.StringFixed(2),
		TaxAmount:     order.TaxAmount.Amount.StringFixed(2),
		Shipping:      order.ShippingAmount.Amount.StringFixed(2),
		Discount:      order.DiscountAmount.Amount.StringFixed(2),
		TotalAmount:   order.TotalAmount.Amount.StringFixed(2),
		Currency:      order.TotalAmount.Currency.String(),
		PointsUsed:    order.PointsUsed,
		PointsEarned:  order.PointsEarned,
		CreatedAt:     order.CreatedAt,
	}

	if withItems {
		for _, item := range order.Items {
			response.Items = append(response.Items, orderItemResponse{
				ProductID:    item.ProductID,
				Quantity:     item.Quantity,
				UnitPrice:    item.UnitPrice.Amount.StringFixed(2),
				LineTotal:    item.LineTotal.Amount.StringFixed(2),
				ProductName:  item.ProductName,
				ProductImage: item.ProductImage,
				VariantInfo:  item.VariantInfo,
			})
		}
	}

	return response
}
