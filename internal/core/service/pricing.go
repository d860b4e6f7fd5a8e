package service

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/rl1809/storefront/internal/core/domain"
)

var ErrUnknownZone = errors.New("unknown delivery zone")

// Quote is the price breakdown of a cart for one delivery zone.
type Quote struct {
	Zone           domain.Zone
	Subtotal       decimal.Decimal
	DeliveryCharge decimal.Decimal
	Total          decimal.Decimal
}

// Pricing computes checkout totals from a fixed per-zone delivery table.
// It holds no state besides the table, so every call recomputes from its
// inputs.
type Pricing struct {
	options []domain.DeliveryOption
	charges map[domain.Zone]decimal.Decimal
}

func NewPricing(options []domain.DeliveryOption) (*Pricing, error) {
	if len(options) == 0 {
		return nil, errors.New("delivery table is empty")
	}

	charges := make(map[domain.Zone]decimal.Decimal, len(options))
	for _, opt := range options {
		if opt.Zone == "" {
			return nil, errors.New("delivery option without zone")
		}
		if opt.Charge.IsNegative() {
			return nil, fmt.Errorf("delivery charge for %s is negative", opt.Zone)
		}
		if _, dup := charges[opt.Zone]; dup {
			return nil, fmt.Errorf("duplicate delivery zone %s", opt.Zone)
		}
		charges[opt.Zone] = opt.Charge
	}

	return &Pricing{
		options: append([]domain.DeliveryOption(nil), options...),
		charges: charges,
	}, nil
}

// DefaultPricing uses domain.DefaultDeliveryOptions.
func DefaultPricing() *Pricing {
	p, err := NewPricing(domain.DefaultDeliveryOptions())
	if err != nil {
		panic(err)
	}
	return p
}

func (p *Pricing) Options() []domain.DeliveryOption {
	return append([]domain.DeliveryOption(nil), p.options...)
}

// Zones lists the known zones in table order.
func (p *Pricing) Zones() []domain.Zone {
	zones := make([]domain.Zone, len(p.options))
	for i, opt := range p.options {
		zones[i] = opt.Zone
	}
	return zones
}

// DefaultZone is the cheapest zone; ties go to the one listed first.
func (p *Pricing) DefaultZone() domain.Zone {
	best := p.options[0]
	for _, opt := range p.options[1:] {
		if opt.Charge.LessThan(best.Charge) {
			best = opt
		}
	}
	return best.Zone
}

func (p *Pricing) DeliveryCharge(zone domain.Zone) (decimal.Decimal, error) {
	charge, ok := p.charges[zone]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrUnknownZone, zone)
	}
	return charge, nil
}

// OrderTotal is the cart's price plus the zone's delivery charge.
func (p *Pricing) OrderTotal(cart *CartStore, zone domain.Zone) (decimal.Decimal, error) {
	charge, err := p.DeliveryCharge(zone)
	if err != nil {
		return decimal.Zero, err
	}
	return cart.TotalPrice().Add(charge), nil
}

func (p *Pricing) Quote(items []domain.CartLineItem, zone domain.Zone) (Quote, error) {
	return p.quote(sumLines(items), zone)
}

// QuoteOrder prices submitted order lines the same way Quote prices a cart.
func (p *Pricing) QuoteOrder(items []domain.OrderItem, zone domain.Zone) (Quote, error) {
	return p.quote(sumLines(items), zone)
}

func (p *Pricing) quote(subtotal decimal.Decimal, zone domain.Zone) (Quote, error) {
	charge, err := p.DeliveryCharge(zone)
	if err != nil {
		return Quote{}, err
	}
	return Quote{
		Zone:           zone,
		Subtotal:       subtotal,
		DeliveryCharge: charge,
		Total:          subtotal.Add(charge),
	}, nil
}

type lineTotaler interface {
	LineTotal() decimal.Decimal
}

func sumLines[T lineTotaler](items []T) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.LineTotal())
	}
	return total
}
