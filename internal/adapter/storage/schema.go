package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// EnsureSchema creates the storefront tables when they do not exist yet.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS categories (
			id          VARCHAR(36)  NOT NULL PRIMARY KEY,
			name        VARCHAR(255) NOT NULL,
			description TEXT,
			created_at  DATETIME(6)  NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS products (
			id          VARCHAR(36)    NOT NULL PRIMARY KEY,
			name        VARCHAR(255)   NOT NULL,
			weight      VARCHAR(64)    NOT NULL DEFAULT '',
			price       DECIMAL(12, 2) NOT NULL,
			description TEXT,
			features    JSON,
			category_id VARCHAR(36)    NOT NULL DEFAULT '',
			tags        JSON,
			image_url   VARCHAR(1024)  NOT NULL DEFAULT '',
			stock       INT            NOT NULL DEFAULT 0,
			is_featured BOOLEAN        NOT NULL DEFAULT FALSE,
			created_at  DATETIME(6)    NOT NULL,
			INDEX idx_products_category (category_id)
		)`,
		`CREATE TABLE IF NOT EXISTS orders (
			id               VARCHAR(36)    NOT NULL PRIMARY KEY,
			user_id          VARCHAR(64)    NOT NULL,
			user_email       VARCHAR(255)   NOT NULL DEFAULT '',
			delivery_type    VARCHAR(32)    NOT NULL,
			subtotal         DECIMAL(12, 2) NOT NULL,
			delivery_charge  DECIMAL(12, 2) NOT NULL,
			total_amount     DECIMAL(12, 2) NOT NULL,
			payment_status   VARCHAR(32)    NOT NULL,
			delivery_status  VARCHAR(32)    NOT NULL,
			customer_name    VARCHAR(255)   NOT NULL,
			customer_phone   VARCHAR(64)    NOT NULL,
			customer_address TEXT           NOT NULL,
			created_at       DATETIME(6)    NOT NULL,
			INDEX idx_orders_user (user_id)
		)`,
		`CREATE TABLE IF NOT EXISTS order_items (
			order_id     VARCHAR(36)    NOT NULL,
			position     INT            NOT NULL,
			product_id   VARCHAR(36)    NOT NULL,
			product_name VARCHAR(255)   NOT NULL,
			quantity     INT            NOT NULL,
			price        DECIMAL(12, 2) NOT NULL,
			PRIMARY KEY (order_id, position),
			FOREIGN KEY (order_id) REFERENCES orders (id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS testimonials (
			id         VARCHAR(36)  NOT NULL PRIMARY KEY,
			name       VARCHAR(255) NOT NULL,
			rating     TINYINT      NOT NULL,
			comment    TEXT         NOT NULL,
			created_at DATETIME(6)  NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS content (
			page       VARCHAR(64) NOT NULL PRIMARY KEY,
			content    MEDIUMTEXT  NOT NULL,
			updated_at DATETIME(6) NOT NULL
		)`,
	}
	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
