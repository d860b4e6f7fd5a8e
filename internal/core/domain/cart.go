package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var ErrInvalidCart = errors.New("invalid cart")

// CartLineItem is one product in a cart. Display fields are a snapshot taken
// when the product was first added.
type CartLineItem struct {
	ProductID string          `json:"id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
	ImageURL  string          `json:"image_url,omitempty"`
	Weight    string          `json:"weight,omitempty"`
}

func NewCartLineItem(p Product, quantity int) CartLineItem {
	return CartLineItem{
		ProductID: p.ID,
		Name:      p.Name,
		UnitPrice: p.Price,
		Quantity:  quantity,
		ImageURL:  p.ImageURL,
		Weight:    p.Weight,
	}
}

func (i CartLineItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

func (i CartLineItem) OrderItem() OrderItem {
	return OrderItem{
		ProductID:   i.ProductID,
		ProductName: i.Name,
		Quantity:    i.Quantity,
		Price:       i.UnitPrice,
	}
}

// ValidateCart checks the shape of a line-item sequence read from outside the
// process.
func ValidateCart(items []CartLineItem) error {
	seen := make(map[string]struct{}, len(items))
	for i, item := range items {
		if item.ProductID == "" {
			return fmt.Errorf("%w: item %d has no product id", ErrInvalidCart, i)
		}
		if item.UnitPrice.IsNegative() {
			return fmt.Errorf("%w: item %s has a negative price", ErrInvalidCart, item.ProductID)
		}
		if item.Quantity < 1 {
			return fmt.Errorf("%w: item %s has quantity %d", ErrInvalidCart, item.ProductID, item.Quantity)
		}
		if _, dup := seen[item.ProductID]; dup {
			return fmt.Errorf("%w: duplicate item %s", ErrInvalidCart, item.ProductID)
		}
		seen[item.ProductID] = struct{}{}
	}
	return nil
}
