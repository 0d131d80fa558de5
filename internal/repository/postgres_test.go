package repository_test

import (
	"context"
	"path/filepath"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nikolayk812/luxcore/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"golang.org/x/text/currency"
)

// startPostgres starts a disposable Postgres with the schema applied.
// Each suite gets its own container, terminated in TearDownSuite.
func startPostgres(ctx context.Context) (testcontainers.Container, string, error) {
	container, err := tcpostgres.Run(ctx, "postgres:17-alpine",
		tcpostgres.WithInitScripts(filepath.Join("..", "..", "migrations", "001_init.sql")),
		tcpostgres.WithDatabase("luxcore"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		return nil, "", err
	}

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return container, "", err
	}

	return container, connStr, nil
}

func insertProduct(ctx context.Context, pool *pgxpool.Pool, p domain.Product) (uuid.UUID, error) {
	var id uuid.UUID

	err := pool.QueryRow(ctx,
		`INSERT INTO products (name, price_amount, price_currency, image, stock, status)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id`,
		p.Name, p.Price.Amount, p.Price.Currency.String(), p.Image, p.Stock, string(p.Status)).Scan(&id)

	return id, err
}

func insertUser(ctx context.Context, pool *pgxpool.Pool, account domain.LoyaltyAccount) (uuid.UUID, error) {
	var id uuid.UUID

	err := pool.QueryRow(ctx,
		`INSERT INTO users (email, loyalty_points, loyalty_tier, total_spent)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id`,
		gofakeit.Email(), account.Points, string(account.Tier), account.TotalSpent).Scan(&id)

	return id, err
}

func insertCoupon(ctx context.Context, pool *pgxpool.Pool, c domain.Coupon) error {
	_, err := pool.Exec(ctx,
		`INSERT INTO coupons (code, type, value, minimum_amount, usage_limit, used_count, starts_at, expires_at, is_active)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		c.Code, string(c.Type), c.Value, c.MinimumAmount, c.UsageLimit, c.UsedCount, c.StartsAt, c.ExpiresAt, c.Active)

	return err
}

func randomProduct(stock int) domain.Product {
	return domain.Product{
		Name:   gofakeit.ProductName(),
		Price:  domain.NewMoney(decimal.NewFromFloat(gofakeit.Price(1, 500)).Round(2), currency.USD),
		Image:  gofakeit.URL(),
		Stock:  stock,
		Status: domain.ProductStatusActive,
	}
}

func randomAddress() domain.Address {
	return domain.Address{
		FirstName: gofakeit.FirstName(),
		LastName:  gofakeit.LastName(),
		Address1:  gofakeit.Street(),
		City:      gofakeit.City(),
		State:     gofakeit.StateAbr(),
		ZipCode:   gofakeit.Zip(),
		Country:   "US",
	}
}

func randomGuestOrder() domain.Order {
	unit := currency.USD
	subtotal := decimal.Zero

	var items []domain.OrderItem
	for i := 0; i < gofakeit.Number(1, 4); i++ {
		unitPrice := decimal.NewFromFloat(gofakeit.Price(1, 200)).Round(2)
		quantity := gofakeit.Number(1, 3)
		lineTotal := unitPrice.Mul(decimal.NewFromInt(int64(quantity)))
		subtotal = subtotal.Add(lineTotal)

		items = append(items, domain.OrderItem{
			ProductID:    uuid.MustParse(gofakeit.UUID()),
			Quantity:     quantity,
			UnitPrice:    domain.NewMoney(unitPrice, unit),
			LineTotal:    domain.NewMoney(lineTotal, unit),
			ProductName:  gofakeit.ProductName(),
			ProductImage: gofakeit.URL(),
			VariantInfo:  []byte(`{"size":"` + gofakeit.RandomString([]string{"S", "M", "L"}) + `"}`),
		})
	}

	tax := subtotal.Mul(decimal.NewFromFloat(0.08)).Round(2)
	shipping := decimal.NewFromInt(25)
	total := subtotal.Add(tax).Add(shipping)

	return domain.Order{
		GuestEmail:      gofakeit.Email(),
		Subtotal:        domain.NewMoney(subtotal, unit),
		TaxAmount:       domain.NewMoney(tax, unit),
		ShippingAmount:  domain.NewMoney(shipping, unit),
		DiscountAmount:  domain.NewMoney(decimal.Zero, unit),
		TotalAmount:     domain.NewMoney(total, unit),
		PaymentMethod:   "card",
		ShippingAddress: randomAddress(),
		BillingAddress:  randomAddress(),
		TrackingToken:   domain.NewTrackingToken(),
		Items:           items,
	}
}
