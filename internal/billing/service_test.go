package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"promptschola/internal/entitlement"
	derrors "promptschola/pkg/domainerrors"
)

// fakeProvider is an in-memory ProviderClient recording calls.
type fakeProvider struct {
	subscription *Subscription
	subErr       error
	subCalls     int

	createdCustomers []string
	checkoutParams   *CheckoutParams
	portalCustomer   string
}

func (f *fakeProvider) CreateCustomer(_ context.Context, email, _ string) (*Customer, error) {
	f.createdCustomers = append(f.createdCustomers, email)
	return &Customer{ID: "cus_new", Email: email}, nil
}

func (f *fakeProvider) GetSubscription(_ context.Context, _ string) (*Subscription, error) {
	f.subCalls++
	return f.subscription, f.subErr
}

func (f *fakeProvider) CreateCheckoutSession(_ context.Context, params CheckoutParams) (*Session, error) {
	f.checkoutParams = &params
	return &Session{ID: "cs_1", URL: "https://billing.example/checkout/cs_1"}, nil
}

func (f *fakeProvider) CreatePortalSession(_ context.Context, customerID, _ string) (*Session, error) {
	f.portalCustomer = customerID
	return &Session{ID: "ps_1", URL: "https://billing.example/portal/ps_1"}, nil
}

func newTestService(provider ProviderClient, store entitlement.Store) *Service {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	resolver := entitlement.NewResolver(store, logger)
	return NewService(provider, store, resolver, logger, "price_test", "https://app.example")
}

func eventWith(t *testing.T, eventType string, object any) Event {
	t.Helper()
	raw, err := json.Marshal(object)
	require.NoError(t, err)
	e := Event{ID: "evt_1", Type: eventType}
	e.Data.Object = raw
	return e
}

func TestHandleEvent_CheckoutCompleted(t *testing.T) {
	store := entitlement.NewMemory()
	provider := &fakeProvider{subscription: &Subscription{
		ID:               "sub_1",
		CustomerID:       "cus_1",
		Status:           StatusActive,
		CurrentPeriodEnd: 1775000000,
	}}
	svc := newTestService(provider, store)

	event := eventWith(t, EventCheckoutCompleted, CheckoutSession{
		ID:             "cs_1",
		CustomerID:     "cus_1",
		SubscriptionID: "sub_1",
		Metadata:       map[string]string{"user_id": "user-1"},
	})
	require.NoError(t, svc.HandleEvent(context.Background(), event))

	rec, err := store.Get(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, string(entitlement.TierPaid), rec.Tier)
	require.NotNil(t, rec.IsPaid)
	assert.True(t, *rec.IsPaid)
	assert.Equal(t, "cus_1", rec.BillingCustomerID)
	assert.Equal(t, "sub_1", rec.BillingSubscriptionID)
	require.NotNil(t, rec.CurrentPeriodEnd)
}

func TestHandleEvent_CheckoutFallsBackToClientReference(t *testing.T) {
	store := entitlement.NewMemory()
	provider := &fakeProvider{subscription: &Subscription{ID: "sub_1", Status: StatusTrialing}}
	svc := newTestService(provider, store)

	event := eventWith(t, EventCheckoutCompleted, CheckoutSession{
		CustomerID:        "cus_1",
		SubscriptionID:    "sub_1",
		ClientReferenceID: "user-2",
	})
	require.NoError(t, svc.HandleEvent(context.Background(), event))

	rec, err := store.Get(context.Background(), "user-2")
	require.NoError(t, err)
	assert.Equal(t, string(entitlement.TierPaid), rec.Tier)
}

func TestHandleEvent_CheckoutMissingReferencesIsAcked(t *testing.T) {
	store := entitlement.NewMemory()
	provider := &fakeProvider{}
	svc := newTestService(provider, store)

	event := eventWith(t, EventCheckoutCompleted, CheckoutSession{CustomerID: "cus_1"})
	require.NoError(t, svc.HandleEvent(context.Background(), event))
	assert.Zero(t, provider.subCalls)
}

func TestHandleEvent_SubscriptionDeletedDowngrades(t *testing.T) {
	store := entitlement.NewMemory()
	seedPaid(t, store, "user-1", "cus_1")
	svc := newTestService(&fakeProvider{}, store)

	event := eventWith(t, EventSubscriptionDeleted, Subscription{
		ID:         "sub_1",
		CustomerID: "cus_1",
		Status:     "canceled",
	})
	require.NoError(t, svc.HandleEvent(context.Background(), event))

	rec, err := store.Get(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, string(entitlement.TierFree), rec.Tier)
	require.NotNil(t, rec.IsPaid)
	assert.False(t, *rec.IsPaid)
}

func TestHandleEvent_SubscriptionUpdatedUpgrades(t *testing.T) {
	store := entitlement.NewMemory()
	seedFree(t, store, "user-1", "cus_1")
	svc := newTestService(&fakeProvider{}, store)

	event := eventWith(t, EventSubscriptionUpdated, Subscription{
		ID:         "sub_1",
		CustomerID: "cus_1",
		Status:     StatusActive,
	})
	require.NoError(t, svc.HandleEvent(context.Background(), event))

	rec, err := store.Get(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, string(entitlement.TierPaid), rec.Tier)
}

func TestHandleEvent_UnknownCustomerIsAcked(t *testing.T) {
	store := entitlement.NewMemory()
	svc := newTestService(&fakeProvider{}, store)

	event := eventWith(t, EventSubscriptionUpdated, Subscription{
		ID:         "sub_1",
		CustomerID: "cus_stranger",
		Status:     StatusActive,
	})
	require.NoError(t, svc.HandleEvent(context.Background(), event))
}

func TestHandleEvent_UnknownTypeIsAcked(t *testing.T) {
	svc := newTestService(&fakeProvider{}, entitlement.NewMemory())

	event := Event{ID: "evt_1", Type: "invoice.paid"}
	event.Data.Object = json.RawMessage(`{}`)
	require.NoError(t, svc.HandleEvent(context.Background(), event))
}

func TestHandleEvent_MalformedObject(t *testing.T) {
	svc := newTestService(&fakeProvider{}, entitlement.NewMemory())

	event := Event{ID: "evt_1", Type: EventCheckoutCompleted}
	event.Data.Object = json.RawMessage(`"not an object"`)
	err := svc.HandleEvent(context.Background(), event)
	assert.Equal(t, derrors.CodeBadRequest, derrors.CodeOf(err))
}

func TestHandleEvent_SubscriptionFetchFailurePropagates(t *testing.T) {
	provider := &fakeProvider{subErr: errors.New("provider down")}
	svc := newTestService(provider, entitlement.NewMemory())

	event := eventWith(t, EventCheckoutCompleted, CheckoutSession{
		CustomerID:        "cus_1",
		SubscriptionID:    "sub_1",
		ClientReferenceID: "user-1",
	})
	assert.Error(t, svc.HandleEvent(context.Background(), event))
}

func TestCreateCheckout_NewCustomer(t *testing.T) {
	store := entitlement.NewMemory()
	provider := &fakeProvider{}
	svc := newTestService(provider, store)

	url, err := svc.CreateCheckout(context.Background(), "user-1", "student@example.com")
	require.NoError(t, err)
	assert.Equal(t, "https://billing.example/checkout/cs_1", url)

	// A customer was created and the mapping stored.
	assert.Equal(t, []string{"student@example.com"}, provider.createdCustomers)
	rec, err := store.Get(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, "cus_new", rec.BillingCustomerID)

	require.NotNil(t, provider.checkoutParams)
	assert.Equal(t, "cus_new", provider.checkoutParams.CustomerID)
	assert.Equal(t, "price_test", provider.checkoutParams.PriceID)
	assert.Equal(t, "user-1", provider.checkoutParams.UserID)
	assert.Contains(t, provider.checkoutParams.SuccessURL, "https://app.example/pricing.html")
}

func TestCreateCheckout_ExistingCustomerReused(t *testing.T) {
	store := entitlement.NewMemory()
	seedFree(t, store, "user-1", "cus_existing")
	provider := &fakeProvider{}
	svc := newTestService(provider, store)

	_, err := svc.CreateCheckout(context.Background(), "user-1", "student@example.com")
	require.NoError(t, err)

	assert.Empty(t, provider.createdCustomers)
	assert.Equal(t, "cus_existing", provider.checkoutParams.CustomerID)
}

func TestCreateCheckout_MissingPriceID(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	store := entitlement.NewMemory()
	svc := NewService(&fakeProvider{}, store, entitlement.NewResolver(store, logger),
		logger, "", "https://app.example")

	_, err := svc.CreateCheckout(context.Background(), "user-1", "student@example.com")
	assert.Equal(t, derrors.CodeConfig, derrors.CodeOf(err))
}

func TestCreatePortal(t *testing.T) {
	store := entitlement.NewMemory()
	seedPaid(t, store, "user-1", "cus_1")
	provider := &fakeProvider{}
	svc := newTestService(provider, store)

	url, err := svc.CreatePortal(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, "https://billing.example/portal/ps_1", url)
	assert.Equal(t, "cus_1", provider.portalCustomer)
}

func TestCreatePortal_NoCustomer(t *testing.T) {
	svc := newTestService(&fakeProvider{}, entitlement.NewMemory())

	_, err := svc.CreatePortal(context.Background(), "user-1")
	assert.Equal(t, derrors.CodeBadRequest, derrors.CodeOf(err))
}

func seedPaid(t *testing.T, store entitlement.Store, userID, customerID string) {
	t.Helper()
	isPaid := true
	require.NoError(t, store.Upsert(context.Background(), userID, entitlement.UpsertParams{
		Tier:              string(entitlement.TierPaid),
		IsPaid:            &isPaid,
		BillingCustomerID: customerID,
	}))
}

func seedFree(t *testing.T, store entitlement.Store, userID, customerID string) {
	t.Helper()
	require.NoError(t, store.Upsert(context.Background(), userID, entitlement.UpsertParams{
		Tier:              string(entitlement.TierFree),
		BillingCustomerID: customerID,
	}))
}
