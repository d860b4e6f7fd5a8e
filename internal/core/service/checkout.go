package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/port"
)

// OrdersLocation is where the storefront goes after a placed order.
const OrdersLocation = "/orders"

var (
	ErrSubmitInProgress = errors.New("order submission already in progress")
	ErrEmptyCart        = errors.New("cart is empty")
	ErrMissingFields    = errors.New("missing required fields")
)

// ValidationError is returned before any request is made.
type ValidationError struct {
	Fields []string
	Err    error
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return e.Err.Error()
	}
	return fmt.Sprintf("%v: %s", e.Err, strings.Join(e.Fields, ", "))
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

type FlowState int

const (
	FlowIdle FlowState = iota
	FlowValidating
	FlowSubmitting
	FlowSucceeded
	FlowFailed
)

func (s FlowState) String() string {
	switch s {
	case FlowIdle:
		return "idle"
	case FlowValidating:
		return "validating"
	case FlowSubmitting:
		return "submitting"
	case FlowSucceeded:
		return "succeeded"
	case FlowFailed:
		return "failed"
	default:
		return "unknown"
	}
}

type CheckoutForm struct {
	Name    string
	Phone   string
	Address string
	Zone    domain.Zone
}

type CheckoutResult struct {
	Order domain.Order
	Next  string
}

// CheckoutFlow turns the active cart and a checkout form into a placed order.
// The ordered lines leave the cart only after the API acknowledges the order.
type CheckoutFlow struct {
	mu    sync.Mutex
	state FlowState

	cart    *CartStore
	pricing *Pricing
	orders  port.OrderAPI
	tokens  port.TokenSource
	logger  *zap.Logger
}

func NewCheckoutFlow(cart *CartStore, pricing *Pricing, orders port.OrderAPI, tokens port.TokenSource, logger *zap.Logger) *CheckoutFlow {
	return &CheckoutFlow{
		state:   FlowIdle,
		cart:    cart,
		pricing: pricing,
		orders:  orders,
		tokens:  tokens,
		logger:  logger,
	}
}

func (f *CheckoutFlow) State() FlowState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Quote prices the active cart for zone, for display next to the form.
func (f *CheckoutFlow) Quote(zone domain.Zone) (Quote, error) {
	return f.pricing.Quote(f.cart.Items(), zone)
}

// Submit places the order. A call made while another is in flight returns
// ErrSubmitInProgress without touching the API.
func (f *CheckoutFlow) Submit(ctx context.Context, form CheckoutForm) (CheckoutResult, error) {
	f.mu.Lock()
	if f.state == FlowValidating || f.state == FlowSubmitting {
		f.mu.Unlock()
		return CheckoutResult{}, ErrSubmitInProgress
	}

	f.transition(FlowValidating)
	identity, snapshot, req, token, err := f.prepare(form)
	if err != nil {
		f.transition(FlowIdle)
		f.mu.Unlock()
		return CheckoutResult{}, err
	}
	f.transition(FlowSubmitting)
	f.mu.Unlock()

	order, err := f.orders.CreateOrder(ctx, token, req)

	f.mu.Lock()
	defer f.mu.Unlock()

	if err != nil {
		f.transition(FlowFailed)
		f.logger.Warn("order submission failed",
			zap.String("request_id", req.RequestID),
			zap.Error(err),
		)
		f.transition(FlowIdle)
		return CheckoutResult{}, fmt.Errorf("place order: %w", err)
	}

	f.cart.RemoveOrdered(ctx, identity, snapshot)
	f.transition(FlowSucceeded)
	f.logger.Info("order placed",
		zap.String("order_id", order.ID),
		zap.String("total", order.TotalAmount.StringFixed(2)),
	)

	return CheckoutResult{Order: order, Next: OrdersLocation}, nil
}

func (f *CheckoutFlow) prepare(form CheckoutForm) (domain.IdentityKey, []domain.CartLineItem, domain.OrderRequest, string, error) {
	var missing []string
	if strings.TrimSpace(form.Name) == "" {
		missing = append(missing, "name")
	}
	if strings.TrimSpace(form.Address) == "" {
		missing = append(missing, "address")
	}
	if strings.TrimSpace(form.Phone) == "" {
		missing = append(missing, "phone")
	}
	if len(missing) > 0 {
		return "", nil, domain.OrderRequest{}, "", &ValidationError{Fields: missing, Err: ErrMissingFields}
	}

	zone := form.Zone
	if zone == "" {
		zone = f.pricing.DefaultZone()
	}

	identity, items := f.cart.Snapshot()
	if len(items) == 0 {
		return "", nil, domain.OrderRequest{}, "", &ValidationError{Err: ErrEmptyCart}
	}

	quote, err := f.pricing.Quote(items, zone)
	if err != nil {
		return "", nil, domain.OrderRequest{}, "", &ValidationError{Fields: []string{"zone"}, Err: err}
	}

	token, ok := f.tokens.BearerToken()
	if !ok {
		return "", nil, domain.OrderRequest{}, "", domain.ErrNotAuthenticated
	}

	orderItems := make([]domain.OrderItem, len(items))
	for i, item := range items {
		orderItems[i] = item.OrderItem()
	}

	req := domain.OrderRequest{
		RequestID:      uuid.NewString(),
		Items:          orderItems,
		DeliveryType:   quote.Zone,
		Subtotal:       quote.Subtotal,
		DeliveryCharge: quote.DeliveryCharge,
		TotalAmount:    quote.Total,
		Customer: domain.Customer{
			Name:    strings.TrimSpace(form.Name),
			Phone:   strings.TrimSpace(form.Phone),
			Address: strings.TrimSpace(form.Address),
		},
	}
	return identity, items, req, token, nil
}

// transition must be called with f.mu held.
func (f *CheckoutFlow) transition(to FlowState) {
	f.logger.Debug("checkout state", zap.Stringer("from", f.state), zap.Stringer("to", to))
	f.state = to
}
