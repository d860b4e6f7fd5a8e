package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/core/service"
	"github.com/rl1809/storefront/internal/port"
)

const (
	// MaxUploadSize caps image uploads at 5 MiB.
	MaxUploadSize = 5 << 20
	// uploadFormOverhead leaves room for the multipart headers around the file.
	uploadFormOverhead = 64 << 10

	userKey = "user"
)

type HTTPHandler struct {
	engine   *gin.Engine
	orders   *service.OrderService
	catalog  *service.CatalogService
	verifier port.TokenVerifier
	logger   *zap.Logger
}

type UploadResponse struct {
	Success bool   `json:"success"`
	URL     string `json:"url"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type contentRequest struct {
	Content string `json:"content"`
}

func NewHTTPHandler(orders *service.OrderService, catalog *service.CatalogService, verifier port.TokenVerifier, logger *zap.Logger) *HTTPHandler {
	r := gin.New()
	r.Use(requestLogger(logger), gin.Recovery())
	r.MaxMultipartMemory = MaxUploadSize

	h := &HTTPHandler{
		engine:   r,
		orders:   orders,
		catalog:  catalog,
		verifier: verifier,
		logger:   logger,
	}
	h.registerRoutes()
	return h
}

func (h *HTTPHandler) Engine() *gin.Engine { return h.engine }

func (h *HTTPHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.engine.ServeHTTP(w, r)
}

func (h *HTTPHandler) registerRoutes() {
	api := h.engine.Group("/api")
	auth := api.Group("", h.authenticate)
	admin := auth.Group("", h.requireAdmin)

	api.GET("/health", h.HealthCheck)

	api.GET("/categories", h.listCategories)
	admin.POST("/categories", h.createCategory)
	admin.PUT("/categories/:id", h.updateCategory)
	admin.DELETE("/categories/:id", h.deleteCategory)

	api.GET("/products", h.listProducts)
	api.GET("/products/:id", h.getProduct)
	admin.POST("/products", h.createProduct)
	admin.PUT("/products/:id", h.updateProduct)
	admin.DELETE("/products/:id", h.deleteProduct)

	auth.GET("/orders", h.listOrders)
	auth.POST("/orders", h.createOrder)
	admin.PUT("/orders/:id", h.updateOrderStatus)
	admin.DELETE("/orders/:id", h.deleteOrder)

	api.GET("/testimonials", h.listTestimonials)
	admin.POST("/testimonials", h.createTestimonial)
	admin.DELETE("/testimonials/:id", h.deleteTestimonial)

	api.GET("/content/:page", h.getContent)
	admin.PUT("/content/:page", h.putContent)

	admin.POST("/upload", h.upload)
}

func (h *HTTPHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

func (h *HTTPHandler) listCategories(c *gin.Context) {
	list, err := h.catalog.ListCategories(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *HTTPHandler) createCategory(c *gin.Context) {
	var req domain.Category
	if !bindJSON(c, &req) {
		return
	}
	category, err := h.catalog.CreateCategory(c.Request.Context(), req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, category)
}

func (h *HTTPHandler) updateCategory(c *gin.Context) {
	var req domain.Category
	if !bindJSON(c, &req) {
		return
	}
	category, err := h.catalog.UpdateCategory(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, category)
}

func (h *HTTPHandler) deleteCategory(c *gin.Context) {
	if err := h.catalog.DeleteCategory(c.Request.Context(), c.Param("id")); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "category deleted"})
}

func (h *HTTPHandler) listProducts(c *gin.Context) {
	list, err := h.catalog.ListProducts(c.Request.Context(), c.Query("category_id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *HTTPHandler) getProduct(c *gin.Context) {
	product, err := h.catalog.GetProduct(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func (h *HTTPHandler) createProduct(c *gin.Context) {
	var req domain.Product
	if !bindJSON(c, &req) {
		return
	}
	product, err := h.catalog.CreateProduct(c.Request.Context(), req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, product)
}

func (h *HTTPHandler) updateProduct(c *gin.Context) {
	var req domain.Product
	if !bindJSON(c, &req) {
		return
	}
	product, err := h.catalog.UpdateProduct(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func (h *HTTPHandler) deleteProduct(c *gin.Context) {
	if err := h.catalog.DeleteProduct(c.Request.Context(), c.Param("id")); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "product deleted"})
}

func (h *HTTPHandler) listOrders(c *gin.Context) {
	orders, err := h.orders.ListOrders(c.Request.Context(), currentUser(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

// createOrder takes the idempotency key from the body, then the
// Idempotency-Key header. A request carrying neither gets a fresh key and is
// never treated as a replay.
func (h *HTTPHandler) createOrder(c *gin.Context) {
	var req domain.OrderRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.RequestID == "" {
		req.RequestID = c.GetHeader("Idempotency-Key")
	}
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}

	order, err := h.orders.PlaceOrder(c.Request.Context(), currentUser(c), req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

func (h *HTTPHandler) updateOrderStatus(c *gin.Context) {
	var update domain.OrderStatusUpdate
	if v := c.Query("payment_status"); v != "" {
		status := domain.PaymentStatus(v)
		update.PaymentStatus = &status
	}
	if v := c.Query("delivery_status"); v != "" {
		status := domain.DeliveryStatus(v)
		update.DeliveryStatus = &status
	}

	order, err := h.orders.UpdateOrderStatus(c.Request.Context(), c.Param("id"), update)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *HTTPHandler) deleteOrder(c *gin.Context) {
	if err := h.orders.DeleteOrder(c.Request.Context(), c.Param("id")); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "order deleted"})
}

func (h *HTTPHandler) listTestimonials(c *gin.Context) {
	list, err := h.catalog.ListTestimonials(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *HTTPHandler) createTestimonial(c *gin.Context) {
	var req domain.Testimonial
	if !bindJSON(c, &req) {
		return
	}
	testimonial, err := h.catalog.CreateTestimonial(c.Request.Context(), req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, testimonial)
}

func (h *HTTPHandler) deleteTestimonial(c *gin.Context) {
	if err := h.catalog.DeleteTestimonial(c.Request.Context(), c.Param("id")); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "testimonial deleted"})
}

func (h *HTTPHandler) getContent(c *gin.Context) {
	content, err := h.catalog.GetContent(c.Request.Context(), c.Param("page"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, content)
}

func (h *HTTPHandler) putContent(c *gin.Context) {
	var req contentRequest
	if !bindJSON(c, &req) {
		return
	}
	content, err := h.catalog.PutContent(c.Request.Context(), c.Param("page"), req.Content)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, content)
}

func (h *HTTPHandler) upload(c *gin.Context) {
	const bodyLimit = MaxUploadSize + uploadFormOverhead
	if c.Request.ContentLength > bodyLimit {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file exceeds 5 MiB"})
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, bodyLimit)

	file, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file exceeds 5 MiB"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing file"})
		return
	}
	if file.Size > MaxUploadSize {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file exceeds 5 MiB"})
		return
	}

	body, err := file.Open()
	if err != nil {
		h.writeError(c, err)
		return
	}
	defer body.Close()

	url, err := h.catalog.UploadImage(c.Request.Context(), file.Filename, file.Header.Get("Content-Type"), body)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, UploadResponse{Success: true, URL: url})
}

// authenticate resolves the bearer token to a user and stores it on the
// context for the handlers behind it.
func (h *HTTPHandler) authenticate(c *gin.Context) {
	token, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
	if !ok || strings.TrimSpace(token) == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
		return
	}

	user, err := h.verifier.VerifyToken(c.Request.Context(), strings.TrimSpace(token))
	if err != nil {
		if !errors.Is(err, domain.ErrNotAuthenticated) {
			h.logger.Warn("token verification failed", zap.Error(err))
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication failed"})
		return
	}

	c.Set(userKey, user)
	c.Next()
}

func (h *HTTPHandler) requireAdmin(c *gin.Context) {
	if !currentUser(c).IsAdmin() {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin access required"})
		return
	}
	c.Next()
}

func currentUser(c *gin.Context) domain.User {
	user, _ := c.MustGet(userKey).(domain.User)
	return user
}

func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return false
	}
	return true
}

func (h *HTTPHandler) writeError(c *gin.Context, err error) {
	status, message := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
	}
	c.JSON(status, gin.H{"error": message})
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, service.ErrInvalidOrder),
		errors.Is(err, service.ErrInvalidStatus),
		errors.Is(err, service.ErrTotalMismatch):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, service.ErrDuplicateRequest):
		return http.StatusConflict, "duplicate request"
	case errors.Is(err, domain.ErrFeaturedLimit):
		return http.StatusConflict, err.Error()
	case errors.Is(err, domain.ErrNotAuthenticated):
		return http.StatusUnauthorized, err.Error()
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, err.Error()
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}
