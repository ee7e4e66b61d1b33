package billing

import "encoding/json"

// Event types this service consumes. Everything else is acknowledged and
// ignored.
const (
	EventCheckoutCompleted   = "checkout.session.completed"
	EventSubscriptionCreated = "customer.subscription.created"
	EventSubscriptionUpdated = "customer.subscription.updated"
	EventSubscriptionDeleted = "customer.subscription.deleted"
)

// Subscription statuses that map to the paid tier.
const (
	StatusActive   = "active"
	StatusTrialing = "trialing"
)

// Event is the provider's webhook envelope.
type Event struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

// CheckoutSession is the object attached to checkout.session.completed.
type CheckoutSession struct {
	ID                string            `json:"id"`
	CustomerID        string            `json:"customer"`
	SubscriptionID    string            `json:"subscription"`
	ClientReferenceID string            `json:"client_reference_id"`
	Metadata          map[string]string `json:"metadata"`
}

// UserID returns the user reference attached at checkout creation time.
func (s CheckoutSession) UserID() string {
	if id := s.Metadata["user_id"]; id != "" {
		return id
	}
	return s.ClientReferenceID
}

// Subscription is the provider's subscription object.
type Subscription struct {
	ID               string `json:"id"`
	CustomerID       string `json:"customer"`
	Status           string `json:"status"`
	CurrentPeriodEnd int64  `json:"current_period_end"` // unix seconds
}

// IsActive reports whether the subscription status unlocks the paid tier.
func (s Subscription) IsActive() bool {
	return s.Status == StatusActive || s.Status == StatusTrialing
}

// Customer is the provider's customer object.
type Customer struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Session is a hosted checkout or portal session; clients are redirected to
// its URL.
type Session struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}
