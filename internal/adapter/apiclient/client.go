// Package apiclient talks to the storefront REST API on behalf of the client
// side services (catalog, checkout, admin panels).
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"path"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/core/service"
	"github.com/rl1809/storefront/internal/port"
)

const defaultTimeout = 15 * time.Second

var _ port.AdminAPI = (*Client)(nil)

// APIError is a non-2xx answer from the API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api: %d %s", e.Status, e.Message)
}

// Is lets callers test an APIError against the sentinels the server maps
// onto status codes.
func (e *APIError) Is(target error) bool {
	switch e.Status {
	case http.StatusNotFound:
		return target == domain.ErrNotFound
	case http.StatusUnauthorized:
		return target == domain.ErrNotAuthenticated
	case http.StatusForbidden:
		return target == domain.ErrForbidden
	case http.StatusConflict:
		if strings.Contains(e.Message, domain.ErrFeaturedLimit.Error()) {
			return target == domain.ErrFeaturedLimit
		}
		return target == service.ErrDuplicateRequest
	case http.StatusBadRequest:
		return target == service.ErrInvalidInput
	}
	return false
}

type Client struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger
}

// New returns a client for the API rooted at baseURL, e.g.
// "http://localhost:8080/api". A nil httpClient gets a default with a timeout.
func New(baseURL string, httpClient *http.Client, logger *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		logger:  logger,
	}
}

func (c *Client) ListProducts(ctx context.Context, categoryID string) ([]domain.Product, error) {
	query := url.Values{}
	if categoryID != "" {
		query.Set("category_id", categoryID)
	}
	var out []domain.Product
	err := c.do(ctx, http.MethodGet, "/products", query, "", nil, &out)
	return out, err
}

func (c *Client) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	var out domain.Product
	err := c.do(ctx, http.MethodGet, "/products/"+url.PathEscape(id), nil, "", nil, &out)
	return out, err
}

func (c *Client) ListCategories(ctx context.Context) ([]domain.Category, error) {
	var out []domain.Category
	err := c.do(ctx, http.MethodGet, "/categories", nil, "", nil, &out)
	return out, err
}

func (c *Client) ListTestimonials(ctx context.Context) ([]domain.Testimonial, error) {
	var out []domain.Testimonial
	err := c.do(ctx, http.MethodGet, "/testimonials", nil, "", nil, &out)
	return out, err
}

func (c *Client) GetContent(ctx context.Context, page string) (domain.Content, error) {
	var out domain.Content
	err := c.do(ctx, http.MethodGet, "/content/"+url.PathEscape(page), nil, "", nil, &out)
	return out, err
}

func (c *Client) CreateOrder(ctx context.Context, token string, req domain.OrderRequest) (domain.Order, error) {
	var out domain.Order
	err := c.do(ctx, http.MethodPost, "/orders", nil, token, req, &out)
	return out, err
}

func (c *Client) ListOrders(ctx context.Context, token string) ([]domain.Order, error) {
	var out []domain.Order
	err := c.do(ctx, http.MethodGet, "/orders", nil, token, nil, &out)
	return out, err
}

func (c *Client) CreateProduct(ctx context.Context, token string, product domain.Product) (domain.Product, error) {
	var out domain.Product
	err := c.do(ctx, http.MethodPost, "/products", nil, token, product, &out)
	return out, err
}

func (c *Client) UpdateProduct(ctx context.Context, token string, product domain.Product) (domain.Product, error) {
	var out domain.Product
	err := c.do(ctx, http.MethodPut, "/products/"+url.PathEscape(product.ID), nil, token, product, &out)
	return out, err
}

func (c *Client) DeleteProduct(ctx context.Context, token string, id string) error {
	return c.do(ctx, http.MethodDelete, "/products/"+url.PathEscape(id), nil, token, nil, nil)
}

func (c *Client) CreateCategory(ctx context.Context, token string, category domain.Category) (domain.Category, error) {
	var out domain.Category
	err := c.do(ctx, http.MethodPost, "/categories", nil, token, category, &out)
	return out, err
}

func (c *Client) UpdateCategory(ctx context.Context, token string, category domain.Category) (domain.Category, error) {
	var out domain.Category
	err := c.do(ctx, http.MethodPut, "/categories/"+url.PathEscape(category.ID), nil, token, category, &out)
	return out, err
}

func (c *Client) DeleteCategory(ctx context.Context, token string, id string) error {
	return c.do(ctx, http.MethodDelete, "/categories/"+url.PathEscape(id), nil, token, nil, nil)
}

func (c *Client) CreateTestimonial(ctx context.Context, token string, testimonial domain.Testimonial) (domain.Testimonial, error) {
	var out domain.Testimonial
	err := c.do(ctx, http.MethodPost, "/testimonials", nil, token, testimonial, &out)
	return out, err
}

func (c *Client) DeleteTestimonial(ctx context.Context, token string, id string) error {
	return c.do(ctx, http.MethodDelete, "/testimonials/"+url.PathEscape(id), nil, token, nil, nil)
}

func (c *Client) UpdateOrderStatus(ctx context.Context, token string, id string, update domain.OrderStatusUpdate) (domain.Order, error) {
	query := url.Values{}
	if update.PaymentStatus != nil {
		query.Set("payment_status", string(*update.PaymentStatus))
	}
	if update.DeliveryStatus != nil {
		query.Set("delivery_status", string(*update.DeliveryStatus))
	}
	var out domain.Order
	err := c.do(ctx, http.MethodPut, "/orders/"+url.PathEscape(id), query, token, nil, &out)
	return out, err
}

func (c *Client) DeleteOrder(ctx context.Context, token string, id string) error {
	return c.do(ctx, http.MethodDelete, "/orders/"+url.PathEscape(id), nil, token, nil, nil)
}

func (c *Client) UpdateContent(ctx context.Context, token string, content domain.Content) (domain.Content, error) {
	var out domain.Content
	body := map[string]string{"page": content.Page, "content": content.Content}
	err := c.do(ctx, http.MethodPut, "/content/"+url.PathEscape(content.Page), nil, token, body, &out)
	return out, err
}

// UploadImage sends body as the multipart "file" field. The content type
// comes from the file extension, falling back to sniffing the bytes.
func (c *Client) UploadImage(ctx context.Context, token string, filename string, body io.Reader) (string, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return "", fmt.Errorf("read image: %w", err)
	}

	contentType := mime.TypeByExtension(strings.ToLower(path.Ext(filename)))
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, path.Base(filename)))
	header.Set("Content-Type", contentType)
	part, err := mw.CreatePart(header)
	if err != nil {
		return "", err
	}
	if _, err := part.Write(data); err != nil {
		return "", err
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/upload", nil, token, &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var out struct {
		Success bool   `json:"success"`
		URL     string `json:"url"`
	}
	if err := c.send(req, &out); err != nil {
		return "", err
	}
	if !out.Success || out.URL == "" {
		return "", errors.New("upload: server returned no url")
	}
	return out.URL, nil
}

func (c *Client) do(ctx context.Context, method, p string, query url.Values, token string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, p, err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := c.newRequest(ctx, method, p, query, token, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.send(req, out)
}

func (c *Client) newRequest(ctx context.Context, method, p string, query url.Values, token string, body io.Reader) (*http.Request, error) {
	target := c.baseURL + p
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("build %s %s: %w", method, p, err)
	}
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

func (c *Client) send(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		var payload struct {
			Error string `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&payload); err == nil && payload.Error != "" {
			apiErr.Message = payload.Error
		}
		c.logger.Debug("api request failed",
			zap.String("method", req.Method),
			zap.String("path", req.URL.Path),
			zap.Int("status", resp.StatusCode),
		)
		return apiErr
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", req.Method, req.URL.Path, err)
	}
	return nil
}
