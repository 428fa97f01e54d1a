package services

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/routineflow-backend/internal/data/repos"
	types "github.com/yungbote/routineflow-backend/internal/domain"
	"github.com/yungbote/routineflow-backend/internal/platform/apierr"
	"github.com/yungbote/routineflow-backend/internal/platform/billing"
	"github.com/yungbote/routineflow-backend/internal/platform/ctxutil"
	"github.com/yungbote/routineflow-backend/internal/platform/dbctx"
	"github.com/yungbote/routineflow-backend/internal/platform/logger"
	"github.com/yungbote/routineflow-backend/internal/realtime"
	"github.com/yungbote/routineflow-backend/internal/realtime/bus"
)

// Legacy profile display limits written on plan sync.
const (
	paidAdjustmentsLimit = 999999
	freeAdjustmentsLimit = 3
)

type SubscriptionStatus struct {
	Subscribed      bool       `json:"subscribed"`
	Plan            string     `json:"plan"`
	SubscriptionEnd *time.Time `json:"subscription_end"`
}

type SubscriptionService interface {
	Check(dbc dbctx.Context, userID uuid.UUID, email string) (*SubscriptionStatus, error)
	Portal(dbc dbctx.Context, email string) (string, error)
	HandleWebhook(ctx context.Context, payload []byte, signature string) error
}

type subscriptionService struct {
	log          *logger.Logger
	billing      billing.Client
	profiles     repos.ProfileRepo
	events       bus.Bus
	productPlans map[string]types.Plan
	returnURL    string
}

// NewSubscriptionService accepts a nil billing client; every call then fails with 503.
func NewSubscriptionService(
	log *logger.Logger,
	billingClient billing.Client,
	profiles repos.ProfileRepo,
	events bus.Bus,
	productPlans map[string]string,
	returnURL string,
) SubscriptionService {
	plans := make(map[string]types.Plan, len(productPlans))
	for product, plan := range productPlans {
		plans[strings.TrimSpace(product)] = types.ParsePlan(plan)
	}
	return &subscriptionService{
		log:          log.With("service", "SubscriptionService"),
		billing:      billingClient,
		profiles:     profiles,
		events:       events,
		productPlans: plans,
		returnURL:    returnURL,
	}
}

// ParseProductPlans reads "prod_a=pro,prod_b=annual" pairs.
func ParseProductPlans(pairs []string) map[string]string {
	out := map[string]string{}
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		k, v = strings.TrimSpace(k), strings.TrimSpace(v)
		if ok && k != "" && v != "" {
			out[k] = v
		}
	}
	return out
}

func (s *subscriptionService) unavailable() error {
	return apierr.New(http.StatusServiceUnavailable, CodeBillingUnavailable, billing.ErrNotConfigured)
}

func (s *subscriptionService) planFor(sub *billing.Subscription) types.Plan {
	if sub == nil {
		return types.PlanFree
	}
	if p, ok := s.productPlans[sub.ProductID]; ok && p.IsPaid() {
		return p
	}
	return types.PlanPro
}

func limitFor(plan types.Plan) int {
	if plan.IsPaid() {
		return paidAdjustmentsLimit
	}
	return freeAdjustmentsLimit
}

// lookup resolves the billing status for an email.
func (s *subscriptionService) lookup(ctx context.Context, email string) (*SubscriptionStatus, error) {
	out := &SubscriptionStatus{Plan: types.PlanFree.String()}
	cu, err := s.billing.FindCustomer(ctx, email)
	if err != nil {
		return nil, err
	}
	if cu == nil {
		return out, nil
	}
	sub, err := s.billing.ActiveSubscription(ctx, cu.ID)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return out, nil
	}
	out.Subscribed = true
	out.Plan = s.planFor(sub).String()
	if !sub.CurrentPeriodEnd.IsZero() {
		end := sub.CurrentPeriodEnd
		out.SubscriptionEnd = &end
	}
	return out, nil
}

func (s *subscriptionService) Check(dbc dbctx.Context, userID uuid.UUID, email string) (*SubscriptionStatus, error) {
	if s.billing == nil {
		return nil, s.unavailable()
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, invalid("account has no email")
	}
	ctx := ctxutil.Default(dbc.Ctx)
	st, err := s.lookup(ctx, email)
	if err != nil {
		s.log.Error("billing lookup failed", "step", "check", "user_id", userID, "error", err)
		return nil, apierr.New(http.StatusBadGateway, CodeBillingUnavailable, err)
	}
	if err := s.applyPlan(dbc, userID, types.ParsePlan(st.Plan)); err != nil {
		return nil, err
	}
	return st, nil
}

func (s *subscriptionService) applyPlan(dbc dbctx.Context, userID uuid.UUID, plan types.Plan) error {
	current, err := s.profiles.GetByUserID(dbc, userID)
	if err != nil {
		s.log.Error("profile lookup failed", "step", "apply_plan", "user_id", userID, "error", err)
		return err
	}
	if current == nil {
		return apierr.NotFound(CodeProfileNotFound, fmt.Errorf("no profile for user %s", userID))
	}
	if err := s.profiles.UpdatePlan(dbc, userID, plan, limitFor(plan)); err != nil {
		s.log.Error("plan update failed", "step", "apply_plan", "user_id", userID, "error", err)
		return err
	}
	if current.Plan != plan {
		s.log.Info("plan changed", "user_id", userID, "from", current.Plan.String(), "to", plan.String())
		publish(s.log, s.events, dbc.Ctx, realtime.NewEvent(realtime.EventPlanChanged, userID, map[string]any{
			"from": current.Plan.String(),
			"to":   plan.String(),
		}))
	}
	return nil
}

func (s *subscriptionService) Portal(dbc dbctx.Context, email string) (string, error) {
	if s.billing == nil {
		return "", s.unavailable()
	}
	ctx := ctxutil.Default(dbc.Ctx)
	cu, err := s.billing.FindCustomer(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		s.log.Error("billing lookup failed", "step", "portal", "error", err)
		return "", apierr.New(http.StatusBadGateway, CodeBillingUnavailable, err)
	}
	if cu == nil {
		return "", apierr.NotFound("customer_not_found", fmt.Errorf("no billing customer for account"))
	}
	url, err := s.billing.PortalURL(ctx, cu.ID, s.returnURL)
	if err != nil {
		s.log.Error("portal session failed", "step", "portal", "error", err)
		return "", apierr.New(http.StatusBadGateway, CodeBillingUnavailable, err)
	}
	return url, nil
}

func (s *subscriptionService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	if s.billing == nil {
		return s.unavailable()
	}
	evt, err := s.billing.ParseWebhook(payload, signature)
	if err != nil {
		return apierr.BadRequest("invalid_signature", err)
	}
	switch evt.Type {
	case "customer.subscription.created", "customer.subscription.updated", "customer.subscription.deleted":
	default:
		s.log.Debug("webhook ignored", "event_id", evt.ID, "type", evt.Type)
		return nil
	}
	if evt.CustomerID == "" {
		s.log.Warn("webhook without customer", "event_id", evt.ID, "type", evt.Type)
		return nil
	}
	cu, err := s.billing.GetCustomer(ctx, evt.CustomerID)
	if err != nil {
		s.log.Error("customer lookup failed", "step", "webhook", "event_id", evt.ID, "error", err)
		return err
	}
	if cu == nil || strings.TrimSpace(cu.Email) == "" {
		return nil
	}
	dbc := dbctx.Context{Ctx: ctx}
	profile, err := s.profiles.GetByEmail(dbc, cu.Email)
	if err != nil {
		s.log.Error("profile lookup failed", "step", "webhook", "event_id", evt.ID, "error", err)
		return err
	}
	if profile == nil {
		s.log.Warn("webhook for unknown account", "event_id", evt.ID, "type", evt.Type)
		return nil
	}
	st, err := s.lookup(ctx, cu.Email)
	if err != nil {
		s.log.Error("billing lookup failed", "step", "webhook", "event_id", evt.ID, "error", err)
		return err
	}
	return s.applyPlan(dbc, profile.UserID, types.ParsePlan(st.Plan))
}
