// Package billing consumes the external billing provider: webhook events
// update entitlement records, and checkout/portal sessions are created on
// behalf of signed-in users.
package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"promptschola/internal/entitlement"
	derrors "promptschola/pkg/domainerrors"
	"promptschola/pkg/sentinel"
)

// Service maps billing provider state onto entitlement records.
type Service struct {
	provider ProviderClient
	store    entitlement.Store
	resolver *entitlement.Resolver
	logger   *slog.Logger

	priceID       string
	publicBaseURL string
}

// NewService constructs the billing service.
func NewService(provider ProviderClient, store entitlement.Store, resolver *entitlement.Resolver,
	logger *slog.Logger, priceID, publicBaseURL string) *Service {
	return &Service{
		provider:      provider,
		store:         store,
		resolver:      resolver,
		logger:        logger,
		priceID:       priceID,
		publicBaseURL: publicBaseURL,
	}
}

// HandleEvent applies a verified webhook event. Unrecognized event types are
// acknowledged without action so the provider does not retry them forever.
func (s *Service) HandleEvent(ctx context.Context, event Event) error {
	switch event.Type {
	case EventCheckoutCompleted:
		return s.handleCheckoutCompleted(ctx, event)
	case EventSubscriptionCreated, EventSubscriptionUpdated, EventSubscriptionDeleted:
		return s.handleSubscriptionChange(ctx, event)
	default:
		s.logger.DebugContext(ctx, "ignoring billing event", "type", event.Type)
		return nil
	}
}

func (s *Service) handleCheckoutCompleted(ctx context.Context, event Event) error {
	var session CheckoutSession
	if err := json.Unmarshal(event.Data.Object, &session); err != nil {
		return derrors.Wrap(err, derrors.CodeBadRequest, "malformed checkout session object")
	}

	userID := session.UserID()
	if session.CustomerID == "" || session.SubscriptionID == "" || userID == "" {
		s.logger.WarnContext(ctx, "checkout event missing references, skipping",
			"event_id", event.ID)
		return nil
	}

	// The session does not carry the subscription status; fetch it.
	sub, err := s.provider.GetSubscription(ctx, session.SubscriptionID)
	if err != nil {
		return fmt.Errorf("fetch subscription %s: %w", session.SubscriptionID, err)
	}

	return s.applySubscription(ctx, userID, session.CustomerID, sub)
}

func (s *Service) handleSubscriptionChange(ctx context.Context, event Event) error {
	var sub Subscription
	if err := json.Unmarshal(event.Data.Object, &sub); err != nil {
		return derrors.Wrap(err, derrors.CodeBadRequest, "malformed subscription object")
	}

	// Subscription events only carry the customer reference; resolve the user
	// through the stored mapping.
	rec, err := s.store.FindByCustomer(ctx, sub.CustomerID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			s.logger.WarnContext(ctx, "subscription event for unknown customer, skipping",
				"customer_id", sub.CustomerID, "event_id", event.ID)
			return nil
		}
		return fmt.Errorf("resolve customer %s: %w", sub.CustomerID, err)
	}

	return s.applySubscription(ctx, rec.UserID, sub.CustomerID, &sub)
}

func (s *Service) applySubscription(ctx context.Context, userID, customerID string, sub *Subscription) error {
	tier := string(entitlement.TierFree)
	isPaid := false
	if sub.IsActive() {
		tier = string(entitlement.TierPaid)
		isPaid = true
	}

	params := entitlement.UpsertParams{
		Tier:                  tier,
		IsPaid:                &isPaid,
		BillingCustomerID:     customerID,
		BillingSubscriptionID: sub.ID,
	}
	if sub.CurrentPeriodEnd > 0 {
		end := time.Unix(sub.CurrentPeriodEnd, 0).UTC()
		params.CurrentPeriodEnd = &end
	}

	if err := s.store.Upsert(ctx, userID, params); err != nil {
		return fmt.Errorf("upsert entitlement for %s: %w", userID, err)
	}

	// The stored tier changed (or may have); drop any cached value.
	s.resolver.InvalidateCache(ctx, userID)

	s.logger.InfoContext(ctx, "entitlement updated from billing event",
		"user_id", userID, "tier", tier, "subscription_status", sub.Status)
	return nil
}

// CreateCheckout starts a subscription checkout for a signed-in user,
// creating the billing customer mapping on first use.
func (s *Service) CreateCheckout(ctx context.Context, userID, email string) (string, error) {
	if s.priceID == "" {
		return "", derrors.New(derrors.CodeConfig, "missing BILLING_PRICE_ID")
	}

	customerID, err := s.ensureCustomer(ctx, userID, email)
	if err != nil {
		return "", err
	}

	session, err := s.provider.CreateCheckoutSession(ctx, CheckoutParams{
		CustomerID: customerID,
		PriceID:    s.priceID,
		UserID:     userID,
		SuccessURL: s.publicBaseURL + "/pricing.html?status=success&session_id={CHECKOUT_SESSION_ID}",
		CancelURL:  s.publicBaseURL + "/pricing.html?status=cancel",
	})
	if err != nil {
		return "", err
	}
	return session.URL, nil
}

// CreatePortal opens the provider's self-service portal for an existing
// billing customer.
func (s *Service) CreatePortal(ctx context.Context, userID string) (string, error) {
	rec, err := s.store.Get(ctx, userID)
	if err != nil || rec.BillingCustomerID == "" {
		if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
			return "", derrors.Wrap(err, derrors.CodeInternal, "load entitlement record")
		}
		return "", derrors.New(derrors.CodeBadRequest, "No billing customer found for this account.")
	}

	session, err := s.provider.CreatePortalSession(ctx, rec.BillingCustomerID, s.publicBaseURL+"/pricing.html")
	if err != nil {
		return "", err
	}
	return session.URL, nil
}

func (s *Service) ensureCustomer(ctx context.Context, userID, email string) (string, error) {
	rec, err := s.store.Get(ctx, userID)
	if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return "", derrors.Wrap(err, derrors.CodeInternal, "load entitlement record")
	}
	if rec != nil && rec.BillingCustomerID != "" {
		return rec.BillingCustomerID, nil
	}

	customer, err := s.provider.CreateCustomer(ctx, email, userID)
	if err != nil {
		return "", err
	}

	if err := s.store.Upsert(ctx, userID, entitlement.UpsertParams{
		Tier:              string(entitlement.TierFree),
		BillingCustomerID: customer.ID,
	}); err != nil {
		return "", derrors.Wrap(err, derrors.CodeInternal, "store billing customer mapping")
	}
	return customer.ID, nil
}
