package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rl1809/storefront/internal/core/domain"
)

type rowScanner interface {
	Scan(dest ...any) error
}

type MySQLAdapter struct {
	db *sql.DB
}

func NewMySQLAdapter(db *sql.DB) *MySQLAdapter {
	return &MySQLAdapter{db: db}
}

const productColumns = `id, name, weight, price, description, features, category_id, tags, image_url, stock, is_featured, created_at`

func (m *MySQLAdapter) ListProducts(ctx context.Context, categoryID string) ([]domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products`
	var args []any
	if categoryID != "" {
		query += ` WHERE category_id = ?`
		args = append(args, categoryID)
	}
	query += ` ORDER BY created_at`

	rows, err := m.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	products := []domain.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func (m *MySQLAdapter) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	row := m.db.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = ?`, id)
	p, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Product{}, fmt.Errorf("product %s: %w", id, domain.ErrNotFound)
	}
	return p, err
}

func (m *MySQLAdapter) CreateProduct(ctx context.Context, p domain.Product, featuredLimit int) error {
	features, tags, err := encodeLists(p.Features, p.Tags)
	if err != nil {
		return err
	}

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if p.IsFeatured {
		if err := checkFeaturedLimit(ctx, tx, featuredLimit); err != nil {
			return err
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO products (`+productColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.Weight, p.Price, p.Description, features, p.CategoryID, tags,
		p.ImageURL, p.Stock, p.IsFeatured, p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	return tx.Commit()
}

// UpdateProduct leaves created_at alone. The row is locked before the
// featured count so two concurrent features cannot both pass the limit.
func (m *MySQLAdapter) UpdateProduct(ctx context.Context, p domain.Product, featuredLimit int) error {
	features, tags, err := encodeLists(p.Features, p.Tags)
	if err != nil {
		return err
	}

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var current bool
	err = tx.QueryRowContext(ctx, `SELECT is_featured FROM products WHERE id = ? FOR UPDATE`, p.ID).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("product %s: %w", p.ID, domain.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("lock product: %w", err)
	}

	if p.IsFeatured && !current {
		if err := checkFeaturedLimit(ctx, tx, featuredLimit); err != nil {
			return err
		}
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE products
		SET name = ?, weight = ?, price = ?, description = ?, features = ?,
		    category_id = ?, tags = ?, image_url = ?, stock = ?, is_featured = ?
		WHERE id = ?`,
		p.Name, p.Weight, p.Price, p.Description, features,
		p.CategoryID, tags, p.ImageURL, p.Stock, p.IsFeatured, p.ID,
	)
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}
	return tx.Commit()
}

func (m *MySQLAdapter) DeleteProduct(ctx context.Context, id string) error {
	return m.deleteByID(ctx, "products", id)
}

func checkFeaturedLimit(ctx context.Context, tx *sql.Tx, limit int) error {
	var count int
	err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM products WHERE is_featured = TRUE FOR UPDATE`).Scan(&count)
	if err != nil {
		return fmt.Errorf("count featured: %w", err)
	}
	if count >= limit {
		return domain.ErrFeaturedLimit
	}
	return nil
}

func (m *MySQLAdapter) ListCategories(ctx context.Context) ([]domain.Category, error) {
	rows, err := m.db.QueryContext(ctx, `SELECT id, name, description, created_at FROM categories ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	defer rows.Close()

	categories := []domain.Category{}
	for rows.Next() {
		var (
			c           domain.Category
			description sql.NullString
		)
		if err := rows.Scan(&c.ID, &c.Name, &description, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		c.Description = description.String
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (m *MySQLAdapter) CreateCategory(ctx context.Context, c domain.Category) error {
	_, err := m.db.ExecContext(ctx, `
		INSERT INTO categories (id, name, description, created_at) VALUES (?, ?, ?, ?)`,
		c.ID, c.Name, c.Description, c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert category: %w", err)
	}
	return nil
}

func (m *MySQLAdapter) UpdateCategory(ctx context.Context, c domain.Category) error {
	result, err := m.db.ExecContext(ctx, `
		UPDATE categories SET name = ?, description = ? WHERE id = ?`,
		c.Name, c.Description, c.ID,
	)
	if err != nil {
		return fmt.Errorf("update category: %w", err)
	}
	return m.checkAffected(ctx, result, "categories", c.ID)
}

func (m *MySQLAdapter) DeleteCategory(ctx context.Context, id string) error {
	return m.deleteByID(ctx, "categories", id)
}

func (m *MySQLAdapter) ListTestimonials(ctx context.Context) ([]domain.Testimonial, error) {
	rows, err := m.db.QueryContext(ctx, `SELECT id, name, rating, comment, created_at FROM testimonials ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("query testimonials: %w", err)
	}
	defer rows.Close()

	testimonials := []domain.Testimonial{}
	for rows.Next() {
		var t domain.Testimonial
		if err := rows.Scan(&t.ID, &t.Name, &t.Rating, &t.Comment, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan testimonial: %w", err)
		}
		testimonials = append(testimonials, t)
	}
	return testimonials, rows.Err()
}

func (m *MySQLAdapter) CreateTestimonial(ctx context.Context, t domain.Testimonial) error {
	_, err := m.db.ExecContext(ctx, `
		INSERT INTO testimonials (id, name, rating, comment, created_at) VALUES (?, ?, ?, ?, ?)`,
		t.ID, t.Name, t.Rating, t.Comment, t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert testimonial: %w", err)
	}
	return nil
}

func (m *MySQLAdapter) DeleteTestimonial(ctx context.Context, id string) error {
	return m.deleteByID(ctx, "testimonials", id)
}

func (m *MySQLAdapter) GetContent(ctx context.Context, page string) (domain.Content, error) {
	var c domain.Content
	err := m.db.QueryRowContext(ctx, `
		SELECT page, content, updated_at FROM content WHERE page = ?`, page,
	).Scan(&c.Page, &c.Content, &c.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return domain.Content{}, fmt.Errorf("content %s: %w", page, domain.ErrNotFound)
	}
	if err != nil {
		return domain.Content{}, fmt.Errorf("query content: %w", err)
	}
	return c, nil
}

func (m *MySQLAdapter) PutContent(ctx context.Context, c domain.Content) error {
	_, err := m.db.ExecContext(ctx, `
		INSERT INTO content (page, content, updated_at) VALUES (?, ?, ?)
		ON DUPLICATE KEY UPDATE content = VALUES(content), updated_at = VALUES(updated_at)`,
		c.Page, c.Content, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert content: %w", err)
	}
	return nil
}

func (m *MySQLAdapter) CreateOrder(ctx context.Context, order domain.Order) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders (id, user_id, user_email, delivery_type, subtotal, delivery_charge,
			total_amount, payment_status, delivery_status, customer_name, customer_phone,
			customer_address, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		order.ID, order.UserID, order.UserEmail, order.DeliveryType, order.Subtotal,
		order.DeliveryCharge, order.TotalAmount, order.PaymentStatus, order.DeliveryStatus,
		order.Name, order.Phone, order.Address, order.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	for i, item := range order.Items {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO order_items (order_id, position, product_id, product_name, quantity, price)
			VALUES (?, ?, ?, ?, ?, ?)`,
			order.ID, i, item.ProductID, item.ProductName, item.Quantity, item.Price,
		)
		if err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}

	return tx.Commit()
}

const orderQuery = `
	SELECT o.id, o.user_id, o.user_email, o.delivery_type, o.subtotal, o.delivery_charge,
		o.total_amount, o.payment_status, o.delivery_status, o.customer_name, o.customer_phone,
		o.customer_address, o.created_at,
		i.product_id, i.product_name, i.quantity, i.price
	FROM orders o
	LEFT JOIN order_items i ON i.order_id = o.id`

func (m *MySQLAdapter) ListOrders(ctx context.Context, userID string) ([]domain.Order, error) {
	query := orderQuery
	var args []any
	if userID != "" {
		query += ` WHERE o.user_id = ?`
		args = append(args, userID)
	}
	query += ` ORDER BY o.created_at DESC, o.id, i.position`

	return m.queryOrders(ctx, query, args...)
}

func (m *MySQLAdapter) UpdateOrderStatus(ctx context.Context, id string, update domain.OrderStatusUpdate) (domain.Order, error) {
	var (
		sets []string
		args []any
	)
	if update.PaymentStatus != nil {
		sets = append(sets, "payment_status = ?")
		args = append(args, *update.PaymentStatus)
	}
	if update.DeliveryStatus != nil {
		sets = append(sets, "delivery_status = ?")
		args = append(args, *update.DeliveryStatus)
	}

	if len(sets) > 0 {
		args = append(args, id)
		_, err := m.db.ExecContext(ctx, `UPDATE orders SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
		if err != nil {
			return domain.Order{}, fmt.Errorf("update order: %w", err)
		}
	}

	orders, err := m.queryOrders(ctx, orderQuery+` WHERE o.id = ? ORDER BY i.position`, id)
	if err != nil {
		return domain.Order{}, err
	}
	if len(orders) == 0 {
		return domain.Order{}, fmt.Errorf("order %s: %w", id, domain.ErrNotFound)
	}
	return orders[0], nil
}

func (m *MySQLAdapter) DeleteOrder(ctx context.Context, id string) error {
	return m.deleteByID(ctx, "orders", id)
}

// queryOrders folds the orders/order_items join back into orders, keeping
// the row order of the query.
func (m *MySQLAdapter) queryOrders(ctx context.Context, query string, args ...any) ([]domain.Order, error) {
	rows, err := m.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	orders := []domain.Order{}
	index := make(map[string]int)
	for rows.Next() {
		var (
			o           domain.Order
			productID   sql.NullString
			productName sql.NullString
			quantity    sql.NullInt64
			price       sql.NullString
		)
		err := rows.Scan(
			&o.ID, &o.UserID, &o.UserEmail, &o.DeliveryType, &o.Subtotal, &o.DeliveryCharge,
			&o.TotalAmount, &o.PaymentStatus, &o.DeliveryStatus, &o.Name, &o.Phone,
			&o.Address, &o.CreatedAt,
			&productID, &productName, &quantity, &price,
		)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}

		i, seen := index[o.ID]
		if !seen {
			o.Items = []domain.OrderItem{}
			orders = append(orders, o)
			i = len(orders) - 1
			index[o.ID] = i
		}
		if !productID.Valid {
			continue
		}

		item := domain.OrderItem{
			ProductID:   productID.String,
			ProductName: productName.String,
			Quantity:    int(quantity.Int64),
		}
		if err := item.Price.Scan(price.String); err != nil {
			return nil, fmt.Errorf("scan item price: %w", err)
		}
		orders[i].Items = append(orders[i].Items, item)
	}
	return orders, rows.Err()
}

func (m *MySQLAdapter) deleteByID(ctx context.Context, table, id string) error {
	result, err := m.db.ExecContext(ctx, `DELETE FROM `+table+` WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete from %s: %w", table, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("%s %s: %w", table, id, domain.ErrNotFound)
	}
	return nil
}

// checkAffected tells a missing row apart from an UPDATE that matched a row
// but changed nothing, which MySQL also reports as zero rows affected.
func (m *MySQLAdapter) checkAffected(ctx context.Context, result sql.Result, table, id string) error {
	rows, _ := result.RowsAffected()
	if rows > 0 {
		return nil
	}

	var one int
	err := m.db.QueryRowContext(ctx, `SELECT 1 FROM `+table+` WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %s: %w", table, id, domain.ErrNotFound)
	}
	return err
}

func scanProduct(row rowScanner) (domain.Product, error) {
	var (
		p           domain.Product
		description sql.NullString
		features    []byte
		tags        []byte
	)
	err := row.Scan(&p.ID, &p.Name, &p.Weight, &p.Price, &description, &features,
		&p.CategoryID, &tags, &p.ImageURL, &p.Stock, &p.IsFeatured, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Product{}, err
		}
		return domain.Product{}, fmt.Errorf("scan product: %w", err)
	}
	p.Description = description.String

	if p.Features, err = decodeList(features); err != nil {
		return domain.Product{}, fmt.Errorf("decode features: %w", err)
	}
	if p.Tags, err = decodeList(tags); err != nil {
		return domain.Product{}, fmt.Errorf("decode tags: %w", err)
	}
	return p, nil
}

func encodeLists(features, tags []string) (string, string, error) {
	f, err := encodeList(features)
	if err != nil {
		return "", "", fmt.Errorf("encode features: %w", err)
	}
	t, err := encodeList(tags)
	if err != nil {
		return "", "", fmt.Errorf("encode tags: %w", err)
	}
	return f, t, nil
}

func encodeList(list []string) (string, error) {
	if list == nil {
		list = []string{}
	}
	raw, err := json.Marshal(list)
	return string(raw), err
}

func decodeList(raw []byte) ([]string, error) {
	list := []string{}
	if len(raw) == 0 {
		return list, nil
	}
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, err
	}
	return list, nil
}
