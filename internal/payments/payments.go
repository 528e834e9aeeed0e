// Package payments lists plans and manages the subscription of the signed-in user.
package payments

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	slogctx "github.com/veqryn/slog-context"

	"github.com/hyperbuds/hyperbuds-client/internal/apiclient"
	"github.com/hyperbuds/hyperbuds-client/internal/serviceerr"
)

type Plan struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Price    int64    `json:"price"` // minor units
	Currency string   `json:"currency"`
	Interval string   `json:"interval,omitempty"`
	Features []string `json:"features,omitempty"`
}

type Subscription struct {
	ID                string    `json:"id"`
	PlanID            string    `json:"planId"`
	Status            string    `json:"status"`
	CurrentPeriodEnd  time.Time `json:"currentPeriodEnd,omitzero"`
	CancelAtPeriodEnd bool      `json:"cancelAtPeriodEnd,omitempty"`
}

// Active reports whether the subscription currently grants its plan.
func (s Subscription) Active() bool {
	return s.Status == "active" || s.Status == "trialing"
}

// Checkout is a started payment. The user completes it at URL.
type Checkout struct {
	SessionID string `json:"sessionId"`
	URL       string `json:"url"`
}

type Payment struct {
	ID        string    `json:"id"`
	Amount    int64     `json:"amount"`
	Currency  string    `json:"currency"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt,omitzero"`
}

type Service struct {
	api apiclient.Caller
}

func NewService(api apiclient.Caller) *Service {
	return &Service{api: api}
}

func (s *Service) Plans(ctx context.Context) ([]Plan, error) {
	resp, err := s.api.Do(ctx, apiclient.Request{Method: http.MethodGet, Path: "/payments/plans"})
	if err != nil {
		return nil, fmt.Errorf("fetching plans: %w", err)
	}

	plans, err := apiclient.DecodeItems[Plan](resp, "plans", "data")
	if err != nil {
		return nil, fmt.Errorf("fetching plans: %w", err)
	}

	return plans, nil
}

// Subscription returns the current subscription, or serviceerr.ErrNotFound when
// the user has none.
func (s *Service) Subscription(ctx context.Context) (Subscription, error) {
	resp, err := s.api.Do(ctx, apiclient.Request{Method: http.MethodGet, Path: "/payments/subscription"})
	if err != nil {
		return Subscription{}, fmt.Errorf("fetching subscription: %w", err)
	}

	if _, ok := resp.Payload.(map[string]any); !ok {
		return Subscription{}, serviceerr.ErrNotFound
	}

	var sub Subscription
	if err := apiclient.DecodeObject(resp, &sub, "subscription", "data"); err != nil {
		return Subscription{}, fmt.Errorf("fetching subscription: %w", err)
	}
	if sub.ID == "" {
		return Subscription{}, serviceerr.ErrNotFound
	}

	return sub, nil
}

func (s *Service) Checkout(ctx context.Context, planID string) (Checkout, error) {
	planID = strings.TrimSpace(planID)
	if planID == "" {
		return Checkout{}, fmt.Errorf("%w: plan id is required", serviceerr.ErrInvalidInput)
	}

	resp, err := s.api.Do(ctx, apiclient.Request{
		Method: http.MethodPost,
		Path:   "/payments/checkout",
		Body:   map[string]string{"planId": planID},
	})
	if err != nil {
		return Checkout{}, fmt.Errorf("starting checkout: %w", err)
	}

	var c Checkout
	if err := apiclient.DecodeObject(resp, &c, "checkout", "data"); err != nil {
		return Checkout{}, fmt.Errorf("starting checkout: %w", err)
	}
	if c.URL == "" {
		return Checkout{}, fmt.Errorf("%w: checkout response carries no url", serviceerr.ErrAPI)
	}

	slogctx.Info(ctx, "Checkout started", "plan_id", planID)

	return c, nil
}

// CancelSubscription cancels at the end of the current period.
func (s *Service) CancelSubscription(ctx context.Context) (Subscription, error) {
	resp, err := s.api.Do(ctx, apiclient.Request{Method: http.MethodPost, Path: "/payments/subscription/cancel"})
	if err != nil {
		return Subscription{}, fmt.Errorf("cancelling subscription: %w", err)
	}

	var sub Subscription
	if resp.Payload != nil {
		if err := apiclient.DecodeObject(resp, &sub, "subscription", "data"); err != nil {
			return Subscription{}, fmt.Errorf("cancelling subscription: %w", err)
		}
	}

	slogctx.Info(ctx, "Subscription cancelled", "subscription_id", sub.ID)

	return sub, nil
}

func (s *Service) History(ctx context.Context) ([]Payment, error) {
	resp, err := s.api.Do(ctx, apiclient.Request{Method: http.MethodGet, Path: "/payments/history"})
	if err != nil {
		return nil, fmt.Errorf("fetching payment history: %w", err)
	}

	payments, err := apiclient.DecodeItems[Payment](resp, "payments", "history", "data")
	if err != nil {
		return nil, fmt.Errorf("fetching payment history: %w", err)
	}

	return payments, nil
}
