package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nikolayk812/luxcore/internal/domain"
	"github.com/nikolayk812/luxcore/internal/metrics"
	"github.com/nikolayk812/luxcore/internal/outbox"
	"github.com/nikolayk812/luxcore/internal/port"
	"github.com/nikolayk812/luxcore/internal/repository"
	log "github.com/sirupsen/logrus"
)

const notifyTimeout = 5 * time.Second

// Checkout glues pricing, reservation and persistence into one commit
// sequence. The invariant it protects: no stock decrement without a matching
// persisted order, and no persisted order without its items.
type Checkout struct {
	catalog  port.CatalogRepository
	orders   port.OrderRepository
	tx       port.TxRunner
	notifier port.Notifier
	coupons  port.CouponRepository
	loyalty  port.LoyaltyRepository
	pricing  PricingEngine
	cfg      PricingConfig
}

func NewCheckout(
	cfg PricingConfig,
	catalog port.CatalogRepository,
	orders port.OrderRepository,
	coupons port.CouponRepository,
	loyalty port.LoyaltyRepository,
	tx port.TxRunner,
	notifier port.Notifier,
) (*Checkout, error) {
	if catalog == nil || orders == nil || coupons == nil || loyalty == nil || tx == nil {
		return nil, errors.New("nil dependency")
	}

	return &Checkout{
		catalog:  catalog,
		orders:   orders,
		coupons:  coupons,
		loyalty:  loyalty,
		tx:       tx,
		notifier: notifier,
		pricing:  NewPricingEngine(cfg),
		cfg:      cfg,
	}, nil
}

func (s *Checkout) Checkout(ctx context.Context, input port.CheckoutInput) (port.CheckoutResult, error) {
	result, err := s.checkout(ctx, input)

	switch {
	case err == nil:
		metrics.CheckoutsTotal.WithLabelValues("ok").Inc()
	case domain.IsBusinessError(err):
		metrics.CheckoutsTotal.WithLabelValues("rejected").Inc()
	default:
		metrics.CheckoutsTotal.WithLabelValues("error").Inc()
	}

	return result, err
}

func (s *Checkout) checkout(ctx context.Context, input port.CheckoutInput) (port.CheckoutResult, error) {
	var zero port.CheckoutResult

	// identity first: a guest without an email is rejected before any
	// pricing or inventory work
	if input.UserID == nil && input.GuestEmail == "" {
		return zero, domain.ErrGuestEmailRequired
	}

	if err := input.Cart.Validate(); err != nil {
		return zero, err
	}
	if err := input.Cart.Dedup(); err != nil {
		return zero, err
	}

	if err := input.ShippingAddress.Validate(); err != nil {
		return zero, fmt.Errorf("shipping address: %w", err)
	}
	if input.BillingAddress != nil {
		if err := input.BillingAddress.Validate(); err != nil {
			return zero, fmt.Errorf("billing address: %w", err)
		}
	}

	if input.IdempotencyKey != "" {
		existing, err := s.orders.GetOrderByIdempotencyKey(ctx, input.IdempotencyKey)
		if err == nil {
			return port.CheckoutResult{Order: existing, Replayed: true}, nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return zero, fmt.Errorf("orders.GetOrderByIdempotencyKey: %w", err)
		}
	}

	quote, err := s.quote(ctx, input)
	if err != nil {
		return zero, err
	}

	reservations := make([]port.StockReservation, 0, len(input.Cart.Lines))
	for _, line := range input.Cart.Lines {
		reservations = append(reservations, port.StockReservation{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
		})
	}

	if _, err := s.catalog.ReserveStock(ctx, reservations); err != nil {
		return zero, err
	}

	order, err := s.persistOrder(ctx, input, quote)
	if err != nil {
		// reservation succeeded but persistence did not: restore the
		// reserved stock before surfacing the error, or it leaks forever
		s.compensate(ctx, reservations, err)

		if errors.Is(err, repository.ErrIdempotencyConflict) {
			existing, lookupErr := s.orders.GetOrderByIdempotencyKey(ctx, input.IdempotencyKey)
			if lookupErr == nil {
				return port.CheckoutResult{Order: existing, Replayed: true}, nil
			}
			return zero, fmt.Errorf("idempotency replay lookup: %w", lookupErr)
		}

		return zero, err
	}

	s.notifyAsync(ctx, order)

	return port.CheckoutResult{Order: order}, nil
}

// quote gathers read snapshots and runs the pure pricing engine over them.
func (s *Checkout) quote(ctx context.Context, input port.CheckoutInput) (Quote, error) {
	var zero Quote

	productIDs := make([]uuid.UUID, 0, len(input.Cart.Lines))
	for _, line := range input.Cart.Lines {
		productIDs = append(productIDs, line.ProductID)
	}

	products, err := s.catalog.GetProducts(ctx, productIDs)
	if err != nil {
		return zero, fmt.Errorf("catalog.GetProducts: %w", err)
	}

	productMap := make(map[uuid.UUID]domain.Product, len(products))
	for _, p := range products {
		productMap[p.ID] = p
	}

	var coupon *domain.Coupon
	if input.CouponCode != "" {
		c, err := s.coupons.GetCoupon(ctx, input.CouponCode)
		if err != nil {
			if errors.Is(err, repository.ErrCouponNotFound) {
				return zero, fmt.Errorf("coupon[%s]: %w", input.CouponCode, domain.ErrInvalidCoupon)
			}
			return zero, fmt.Errorf("coupons.GetCoupon: %w", err)
		}
		coupon = &c
	}

	pointsBalance := 0
	if input.RedeemPoints > 0 {
		// guests have no loyalty account to redeem from
		if input.UserID == nil {
			return zero, domain.ErrInsufficientPoints
		}

		account, err := s.loyalty.GetAccount(ctx, *input.UserID)
		if err != nil {
			// no account behaves like a zero balance
			if errors.Is(err, repository.ErrUserNotFound) {
				return zero, domain.ErrInsufficientPoints
			}
			return zero, fmt.Errorf("loyalty.GetAccount: %w", err)
		}
		pointsBalance = account.Points
	}

	return s.pricing.Quote(input.Cart, productMap, coupon, input.RedeemPoints, pointsBalance, time.Now())
}

// persistOrder commits the order, its items, coupon usage, loyalty mutations
// and the order-created event in one database transaction.
func (s *Checkout) persistOrder(ctx context.Context, input port.CheckoutInput, quote Quote) (domain.Order, error) {
	order := s.assembleOrder(input, quote)

	var persisted domain.Order

	err := s.tx.InTx(ctx, func(stores port.TxStores) error {
		var err error

		persisted, err = stores.Orders.InsertOrder(ctx, order)
		if err != nil {
			return fmt.Errorf("orders.InsertOrder: %w", err)
		}

		if input.CouponCode != "" {
			if err := stores.Coupons.IncrementUsage(ctx, input.CouponCode); err != nil {
				return fmt.Errorf("coupons.IncrementUsage: %w", err)
			}
		}

		if input.UserID != nil {
			if quote.PointsUsed > 0 {
				if err := stores.Loyalty.RedeemPoints(ctx, *input.UserID, quote.PointsUsed); err != nil {
					return fmt.Errorf("loyalty.RedeemPoints: %w", err)
				}
			}

			if err := stores.Loyalty.AddPoints(ctx, *input.UserID, quote.PointsEarned, quote.Total); err != nil {
				return fmt.Errorf("loyalty.AddPoints: %w", err)
			}
		}

		event := orderCreatedEvent{
			OrderID:     persisted.ID.String(),
			OrderNumber: persisted.OrderNumber,
			Email:       persisted.GuestEmail,
			Total:       persisted.TotalAmount.Amount.StringFixed(2),
			Currency:    persisted.TotalAmount.Currency.String(),
		}
		if err := stores.Events.Insert(ctx, uuid.NewString(), outbox.TopicOrderCreated, persisted.ID.String(), event); err != nil {
			return fmt.Errorf("events.Insert: %w", err)
		}

		return nil
	})
	if err != nil {
		return domain.Order{}, err
	}

	return persisted, nil
}

func (s *Checkout) assembleOrder(input port.CheckoutInput, quote Quote) domain.Order {
	unit := s.cfg.Currency

	items := make([]domain.OrderItem, 0, len(quote.Lines))
	for _, line := range quote.Lines {
		items = append(items, domain.OrderItem{
			ProductID:    line.ProductID,
			Quantity:     line.Quantity,
			UnitPrice:    domain.NewMoney(line.UnitPrice, unit),
			LineTotal:    domain.NewMoney(line.LineTotal, unit),
			ProductName:  line.ProductName,
			ProductImage: line.ProductImage,
			VariantInfo:  line.VariantInfo,
		})
	}

	billing := input.ShippingAddress
	if input.BillingAddress != nil {
		billing = *input.BillingAddress
	}

	trackingToken := ""
	if input.UserID == nil {
		trackingToken = domain.NewTrackingToken()
	}

	return domain.Order{
		UserID:          input.UserID,
		GuestEmail:      input.GuestEmail,
		IdempotencyKey:  input.IdempotencyKey,
		Subtotal:        domain.NewMoney(quote.Subtotal, unit),
		TaxAmount:       domain.NewMoney(quote.Tax, unit),
		ShippingAmount:  domain.NewMoney(quote.Shipping, unit),
		DiscountAmount:  domain.NewMoney(quote.Discount, unit),
		TotalAmount:     domain.NewMoney(quote.Total, unit),
		PointsUsed:      quote.PointsUsed,
		PointsEarned:    quote.PointsEarned,
		PaymentMethod:   input.PaymentMethod,
		ShippingAddress: input.ShippingAddress,
		BillingAddress:  billing,
		TrackingToken:   trackingToken,
		Items:           items,
	}
}

// compensate releases reserved stock after a failed persistence step.
// It runs on a non-cancellable context: the reversal must happen even when
// the request context is already gone.
func (s *Checkout) compensate(ctx context.Context, reservations []port.StockReservation, cause error) {
	releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	if err := s.catalog.ReleaseStock(releaseCtx, reservations); err != nil {
		// stock is now leaked, this needs an operator
		log.WithError(err).WithFields(log.Fields{
			"cause":        cause.Error(),
			"reservations": len(reservations),
		}).Error("stock compensation failed")
		return
	}

	metrics.StockCompensations.Inc()

	log.WithFields(log.Fields{
		"cause":        cause.Error(),
		"reservations": len(reservations),
	}).Warn("order persistence failed, reserved stock released")
}

// notifyAsync triggers the order-created notification without blocking the
// commit path. Failures are logged and dropped, delivery is best-effort.
func (s *Checkout) notifyAsync(ctx context.Context, order domain.Order) {
	if s.notifier == nil {
		return
	}

	go func() {
		notifyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
		defer cancel()

		if err := s.notifier.OrderCreated(notifyCtx, order.ID.String(), order.OrderNumber, order.GuestEmail); err != nil {
			log.WithError(err).WithField("order_id", order.ID).Warn("order notification failed")
		}
	}()
}

func (s *Checkout) GetOrder(ctx context.Context, userID, orderID uuid.UUID) (domain.Order, error) {
	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}

	// a miss and someone else's order look the same to the caller
	if order.UserID == nil || *order.UserID != userID {
		return domain.Order{}, repository.ErrNotFound
	}

	return order, nil
}

func (s *Checkout) TrackOrder(ctx context.Context, token string) (domain.Order, error) {
	return s.orders.GetOrderByTrackingToken(ctx, token)
}

func (s *Checkout) ListUserOrders(ctx context.Context, userID uuid.UUID) ([]domain.OrderSummary, error) {
	return s.orders.ListUserOrders(ctx, userID)
}

type orderCreatedEvent struct {
	OrderID     string `json:"order_id"`
	OrderNumber string `json:"order_number"`
	Email       string `json:"email,omitempty"`
	Total       string `json:"total"`
	Currency    string `json:"currency"`
}
