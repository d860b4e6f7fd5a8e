package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// MaxFeaturedProducts bounds how many products the home page highlights.
const MaxFeaturedProducts = 4

type Product struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Weight      string          `json:"weight"`
	Price       decimal.Decimal `json:"price"`
	Description string          `json:"description"`
	Features    []string        `json:"features"`
	CategoryID  string          `json:"category_id"`
	Tags        []string        `json:"tags"`
	ImageURL    string          `json:"image_url,omitempty"`
	Stock       int             `json:"stock"`
	IsFeatured  bool            `json:"is_featured"`
	CreatedAt   time.Time       `json:"created_at"`
}

type Category struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type Testimonial struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"created_at"`
}

// Content is a static page body keyed by page name ("about", "privacy").
type Content struct {
	Page      string    `json:"page"`
	Content   string    `json:"content"`
	UpdatedAt time.Time `json:"updated_at"`
}
