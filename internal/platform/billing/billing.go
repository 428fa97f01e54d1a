package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"

	"github.com/yungbote/routineflow-backend/internal/platform/logger"
)

var ErrNotConfigured = errors.New("billing: not configured")

type Customer struct {
	ID    string
	Email string
}

type Subscription struct {
	ID               string
	ProductID        string
	CurrentPeriodEnd time.Time
}

// Event is the part of a webhook delivery the plan sync needs.
type Event struct {
	ID         string
	Type       string
	CustomerID string
}

type Client interface {
	FindCustomer(ctx context.Context, email string) (*Customer, error)
	GetCustomer(ctx context.Context, id string) (*Customer, error)
	// ActiveSubscription returns nil when the customer has no active subscription.
	ActiveSubscription(ctx context.Context, customerID string) (*Subscription, error)
	PortalURL(ctx context.Context, customerID, returnURL string) (string, error)
	ParseWebhook(payload []byte, signature string) (*Event, error)
}

type stripeClient struct {
	log           *logger.Logger
	api           *client.API
	webhookSecret string
}

func NewStripeClient(log *logger.Logger, secretKey, webhookSecret string) (Client, error) {
	if strings.TrimSpace(secretKey) == "" {
		return nil, ErrNotConfigured
	}
	return &stripeClient{
		log:           log.With("client", "StripeClient"),
		api:           client.New(secretKey, nil),
		webhookSecret: webhookSecret,
	}, nil
}

func (c *stripeClient) FindCustomer(ctx context.Context, email string) (*Customer, error) {
	params := &stripe.CustomerListParams{Email: stripe.String(email)}
	params.Context = ctx
	params.Limit = stripe.Int64(1)
	it := c.api.Customers.List(params)
	for it.Next() {
		cu := it.Customer()
		return &Customer{ID: cu.ID, Email: cu.Email}, nil
	}
	if err := it.Err(); err != nil {
		return nil, fmt.Errorf("stripe customer list: %w", err)
	}
	return nil, nil
}

func (c *stripeClient) GetCustomer(ctx context.Context, id string) (*Customer, error) {
	params := &stripe.CustomerParams{}
	params.Context = ctx
	cu, err := c.api.Customers.Get(id, params)
	if err != nil {
		return nil, fmt.Errorf("stripe customer get: %w", err)
	}
	return &Customer{ID: cu.ID, Email: cu.Email}, nil
}

func (c *stripeClient) ActiveSubscription(ctx context.Context, customerID string) (*Subscription, error) {
	params := &stripe.SubscriptionListParams{
		Customer: stripe.String(customerID),
		Status:   stripe.String(string(stripe.SubscriptionStatusActive)),
	}
	params.Context = ctx
	params.Limit = stripe.Int64(1)
	it := c.api.Subscriptions.List(params)
	for it.Next() {
		sub := it.Subscription()
		out := &Subscription{ID: sub.ID}
		if sub.CurrentPeriodEnd > 0 {
			out.CurrentPeriodEnd = time.Unix(sub.CurrentPeriodEnd, 0).UTC()
		}
		if sub.Items != nil && len(sub.Items.Data) > 0 {
			if p := sub.Items.Data[0].Price; p != nil && p.Product != nil {
				out.ProductID = p.Product.ID
			}
		}
		return out, nil
	}
	if err := it.Err(); err != nil {
		return nil, fmt.Errorf("stripe subscription list: %w", err)
	}
	return nil, nil
}

func (c *stripeClient) PortalURL(ctx context.Context, customerID, returnURL string) (string, error) {
	params := &stripe.BillingPortalSessionParams{Customer: stripe.String(customerID)}
	if returnURL != "" {
		params.ReturnURL = stripe.String(returnURL)
	}
	params.Context = ctx
	sess, err := c.api.BillingPortalSessions.New(params)
	if err != nil {
		return "", fmt.Errorf("stripe portal session: %w", err)
	}
	return sess.URL, nil
}

func (c *stripeClient) ParseWebhook(payload []byte, signature string) (*Event, error) {
	if c.webhookSecret == "" {
		return nil, ErrNotConfigured
	}
	evt, err := webhook.ConstructEventWithOptions(payload, signature, c.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, fmt.Errorf("verify webhook: %w", err)
	}
	out := &Event{ID: evt.ID, Type: string(evt.Type)}
	if evt.Data != nil && len(evt.Data.Raw) > 0 {
		var obj struct {
			Object   string          `json:"object"`
			ID       string          `json:"id"`
			Customer json.RawMessage `json:"customer"`
		}
		if err := json.Unmarshal(evt.Data.Raw, &obj); err != nil {
			return nil, fmt.Errorf("decode webhook object: %w", err)
		}
		out.CustomerID = customerRef(obj.Object, obj.ID, obj.Customer)
	}
	return out, nil
}

// customerRef reads the customer id from an expanded or unexpanded reference.
func customerRef(object, id string, raw json.RawMessage) string {
	if object == "customer" {
		return id
	}
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var cu struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &cu); err == nil {
		return cu.ID
	}
	return ""
}
