package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/port"
)

var (
	ErrDuplicateRequest = errors.New("duplicate request")
	ErrInvalidOrder     = errors.New("invalid order")
	ErrTotalMismatch    = errors.New("order total does not match")
	ErrInvalidStatus    = errors.New("invalid order status")
)

type OrderService struct {
	cache   port.CacheRepository
	db      port.OrderRepository
	pricing *Pricing
	logger  *zap.Logger
	now     func() time.Time
}

func NewOrderService(cache port.CacheRepository, db port.OrderRepository, pricing *Pricing, logger *zap.Logger) *OrderService {
	return &OrderService{
		cache:   cache,
		db:      db,
		pricing: pricing,
		logger:  logger,
		now:     time.Now,
	}
}

// PlaceOrder re-prices the submitted lines, rejects replays of the same
// request id and persists the order. The idempotency key is released again
// when the write fails so the client can retry.
func (s *OrderService) PlaceOrder(ctx context.Context, user domain.User, req domain.OrderRequest) (domain.Order, error) {
	if err := validateOrderRequest(req); err != nil {
		return domain.Order{}, err
	}

	quote, err := s.pricing.QuoteOrder(req.Items, req.DeliveryType)
	if err != nil {
		return domain.Order{}, fmt.Errorf("%w: %v", ErrInvalidOrder, err)
	}
	if !quote.Total.Equal(req.TotalAmount) || !quote.DeliveryCharge.Equal(req.DeliveryCharge) {
		return domain.Order{}, fmt.Errorf("%w: expected %s, got %s",
			ErrTotalMismatch, quote.Total.StringFixed(2), req.TotalAmount.StringFixed(2))
	}

	idempotencyKey := fmt.Sprintf("order:%s:%s", user.ID, req.RequestID)

	ok, err := s.cache.SetIdempotency(ctx, idempotencyKey)
	if err != nil {
		return domain.Order{}, fmt.Errorf("idempotency check failed: %w", err)
	}
	if !ok {
		return domain.Order{}, ErrDuplicateRequest
	}

	order := domain.Order{
		ID:             uuid.NewString(),
		UserID:         user.ID,
		UserEmail:      user.Email,
		Items:          req.Items,
		DeliveryType:   quote.Zone,
		Subtotal:       quote.Subtotal,
		DeliveryCharge: quote.DeliveryCharge,
		TotalAmount:    quote.Total,
		PaymentStatus:  domain.PaymentStatusPending,
		DeliveryStatus: domain.DeliveryStatusPlaced,
		Customer:       req.Customer,
		CreatedAt:      s.now().UTC(),
	}

	if err := s.db.CreateOrder(ctx, order); err != nil {
		s.logger.Error("failed to save order", zap.String("order_id", order.ID), zap.Error(err))

		if rollbackErr := s.cache.ReleaseIdempotency(ctx, idempotencyKey); rollbackErr != nil {
			s.logger.Error("CRITICAL idempotency rollback failed",
				zap.String("key", idempotencyKey),
				zap.Error(rollbackErr),
			)
		}
		return domain.Order{}, fmt.Errorf("save order: %w", err)
	}

	s.logger.Info("saved order",
		zap.String("order_id", order.ID),
		zap.String("user_id", user.ID),
		zap.String("total", order.TotalAmount.StringFixed(2)),
	)
	return order, nil
}

// ListOrders shows admins every order and everyone else their own.
func (s *OrderService) ListOrders(ctx context.Context, user domain.User) ([]domain.Order, error) {
	userID := user.ID
	if user.IsAdmin() {
		userID = ""
	}
	orders, err := s.db.ListOrders(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

func (s *OrderService) UpdateOrderStatus(ctx context.Context, id string, update domain.OrderStatusUpdate) (domain.Order, error) {
	if update.Empty() {
		return domain.Order{}, fmt.Errorf("%w: nothing to update", ErrInvalidStatus)
	}
	if update.PaymentStatus != nil && !update.PaymentStatus.Valid() {
		return domain.Order{}, fmt.Errorf("%w: payment status %q", ErrInvalidStatus, *update.PaymentStatus)
	}
	if update.DeliveryStatus != nil && !update.DeliveryStatus.Valid() {
		return domain.Order{}, fmt.Errorf("%w: delivery status %q", ErrInvalidStatus, *update.DeliveryStatus)
	}

	order, err := s.db.UpdateOrderStatus(ctx, id, update)
	if err != nil {
		return domain.Order{}, fmt.Errorf("update order %s: %w", id, err)
	}
	return order, nil
}

func (s *OrderService) DeleteOrder(ctx context.Context, id string) error {
	if err := s.db.DeleteOrder(ctx, id); err != nil {
		return fmt.Errorf("delete order %s: %w", id, err)
	}
	s.logger.Info("deleted order", zap.String("order_id", id))
	return nil
}

func validateOrderRequest(req domain.OrderRequest) error {
	if req.RequestID == "" {
		return fmt.Errorf("%w: missing request id", ErrInvalidOrder)
	}
	if len(req.Items) == 0 {
		return fmt.Errorf("%w: no items", ErrInvalidOrder)
	}
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Phone) == "" || strings.TrimSpace(req.Address) == "" {
		return fmt.Errorf("%w: missing customer details", ErrInvalidOrder)
	}
	for _, item := range req.Items {
		if item.ProductID == "" || item.Quantity < 1 || item.Price.IsNegative() {
			return fmt.Errorf("%w: bad item %q", ErrInvalidOrder, item.ProductID)
		}
	}
	return nil
}
