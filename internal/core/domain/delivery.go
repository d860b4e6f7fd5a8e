package domain

import "github.com/shopspring/decimal"

// Zone is the delivery-charge classification picked at checkout.
type Zone string

const (
	ZoneLocal    Zone = "local"
	ZoneRegional Zone = "regional"
	ZoneNational Zone = "national"
)

type DeliveryOption struct {
	Zone   Zone            `json:"zone" yaml:"zone"`
	Label  string          `json:"label" yaml:"label"`
	Charge decimal.Decimal `json:"charge" yaml:"charge"`
}

func DefaultDeliveryOptions() []DeliveryOption {
	return []DeliveryOption{
		{Zone: ZoneLocal, Label: "Within the city", Charge: decimal.NewFromInt(50)},
		{Zone: ZoneRegional, Label: "Within the region", Charge: decimal.NewFromInt(70)},
		{Zone: ZoneNational, Label: "Outside the region", Charge: decimal.NewFromInt(90)},
	}
}
