package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentStatusPending        PaymentStatus = "Pending"
	PaymentStatusPaymentPending PaymentStatus = "Payment Pending"
	PaymentStatusPaid           PaymentStatus = "Paid"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusPaymentPending, PaymentStatusPaid:
		return true
	}
	return false
}

type DeliveryStatus string

const (
	DeliveryStatusPlaced    DeliveryStatus = "Order Placed"
	DeliveryStatusPacked    DeliveryStatus = "Packed"
	DeliveryStatusShipped   DeliveryStatus = "Shipped"
	DeliveryStatusDelivered DeliveryStatus = "Delivered"
)

func (s DeliveryStatus) Valid() bool {
	switch s {
	case DeliveryStatusPlaced, DeliveryStatusPacked, DeliveryStatusShipped, DeliveryStatusDelivered:
		return true
	}
	return false
}

type Customer struct {
	Name    string `json:"customer_name"`
	Phone   string `json:"customer_phone"`
	Address string `json:"customer_address"`
}

type OrderItem struct {
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
}

func (i OrderItem) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// OrderRequest is the payload a client submits to create an order.
// RequestID doubles as the idempotency key on the server.
type OrderRequest struct {
	RequestID      string          `json:"request_id"`
	Items          []OrderItem     `json:"items"`
	DeliveryType   Zone            `json:"delivery_type"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	DeliveryCharge decimal.Decimal `json:"delivery_charge"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	Customer
}

type Order struct {
	ID             string          `json:"id"`
	UserID         string          `json:"user_id"`
	UserEmail      string          `json:"user_email"`
	Items          []OrderItem     `json:"items"`
	DeliveryType   Zone            `json:"delivery_type"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	DeliveryCharge decimal.Decimal `json:"delivery_charge"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	PaymentStatus  PaymentStatus   `json:"payment_status"`
	DeliveryStatus DeliveryStatus  `json:"delivery_status"`
	Customer
	CreatedAt time.Time `json:"created_at"`
}

// OrderStatusUpdate carries the admin-editable status fields. Nil fields are
// left unchanged.
type OrderStatusUpdate struct {
	PaymentStatus  *PaymentStatus
	DeliveryStatus *DeliveryStatus
}

func (u OrderStatusUpdate) Empty() bool {
	return u.PaymentStatus == nil && u.DeliveryStatus == nil
}
