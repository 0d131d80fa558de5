// Package notify delivers order notifications to an external webhook.
// The call is best-effort: checkout fires it in the background and a circuit
// breaker keeps a flaky notification service from piling up requests.
package notify

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/nikolayk812/luxcore/internal/metrics"
	"github.com/nikolayk812/luxcore/internal/port"
	log "github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
)

type webhookNotifier struct {
	client  *resty.Client
	breaker *gobreaker.CircuitBreaker
	url     string
}

func NewWebhook(url string, timeout time.Duration) port.Notifier {
	client := resty.New().
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(200 * time.Millisecond)

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "notification-webhook",
		MaxRequests: 3,
		Interval:    15 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			state := float64(0)
			switch to {
			case gobreaker.StateOpen:
				state = 1
			case gobreaker.StateHalfOpen:
				state = 2
			}
			metrics.CircuitBreakerState.WithLabelValues(name).Set(state)

			log.WithFields(log.Fields{
				"circuit": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Info("circuit breaker state changed")
		},
	})

	return &webhookNotifier{
		client:  client,
		breaker: breaker,
		url:     url,
	}
}

func (n *webhookNotifier) OrderCreated(ctx context.Context, orderID, orderNumber, email string) error {
	payload := map[string]string{
		"event":        "order.created",
		"order_id":     orderID,
		"order_number": orderNumber,
		"email":        email,
	}

	_, err := n.breaker.Execute(func() (any, error) {
		resp, err := n.client.R().
			SetContext(ctx).
			SetBody(payload).
			Post(n.url)
		if err != nil {
			return nil, err
		}

		if resp.StatusCode() >= http.StatusBadRequest {
			return nil, fmt.Errorf("webhook returned %d", resp.StatusCode())
		}

		return nil, nil
	})
	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return fmt.Errorf("notification circuit open: %w", err)
		}
		return fmt.Errorf("notify order created: %w", err)
	}

	return nil
}
