// Package httpapi exposes the storefront and back-office REST API.
package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	app "github.com/sokoni-labs/commerce_layer/internal/app"
	"github.com/sokoni-labs/commerce_layer/internal/app/domain/catalog"
	"github.com/sokoni-labs/commerce_layer/internal/app/domain/coupon"
	"github.com/sokoni-labs/commerce_layer/internal/app/domain/customer"
	"github.com/sokoni-labs/commerce_layer/internal/app/domain/loyalty"
	"github.com/sokoni-labs/commerce_layer/internal/app/domain/order"
	"github.com/sokoni-labs/commerce_layer/internal/app/domain/payment"
	"github.com/sokoni-labs/commerce_layer/internal/app/domain/review"
	"github.com/sokoni-labs/commerce_layer/internal/app/domain/support"
	"github.com/sokoni-labs/commerce_layer/internal/app/metrics"
	catalogsvc "github.com/sokoni-labs/commerce_layer/internal/app/services/catalog"
	couponsvc "github.com/sokoni-labs/commerce_layer/internal/app/services/coupons"
	ordersvc "github.com/sokoni-labs/commerce_layer/internal/app/services/orders"
	paymentsvc "github.com/sokoni-labs/commerce_layer/internal/app/services/payments"
	"github.com/sokoni-labs/commerce_layer/internal/app/storage"
)

// Config tunes the HTTP handler.
type Config struct {
	Auth      *Authenticator
	AuditPath string
	AuditMax  int
}

// handler bundles HTTP endpoints for the application services.
type handler struct {
	app   *app.Application
	auth  *Authenticator
	audit *auditLog
}

// NewHandler returns a mux exposing the storefront and admin REST API.
func NewHandler(application *app.Application, cfg Config) (http.Handler, error) {
	if cfg.Auth == nil {
		return nil, fmt.Errorf("authenticator is required")
	}
	sink, err := newFileAuditSink(cfg.AuditPath)
	if err != nil {
		return nil, fmt.Errorf("open audit sink: %w", err)
	}

	h := &handler{
		app:   application,
		auth:  cfg.Auth,
		audit: newAuditLog(cfg.AuditMax, sink),
	}

	mux := http.NewServeMux()
	mux.Handle("/healthz", app.Healthz())
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/categories", h.categories)
	mux.HandleFunc("/products", h.products)
	mux.HandleFunc("/products/", h.productResources)
	mux.HandleFunc("/orders", h.orders)
	mux.HandleFunc("/orders/", h.orderResources)
	mux.HandleFunc("/payments/webhook", h.paymentWebhook)
	mux.HandleFunc("/payments/", h.paymentResources)
	mux.HandleFunc("/wishlist", h.wishlist)
	mux.HandleFunc("/wishlist/", h.wishlistItem)
	mux.HandleFunc("/loyalty", h.loyaltyAccount)
	mux.HandleFunc("/loyalty/preview", h.loyaltyPreview)
	mux.HandleFunc("/coupons/preview", h.couponPreview)
	mux.HandleFunc("/support", h.supportRequests)
	mux.HandleFunc("/support/", h.supportResource)
	mux.HandleFunc("/me", h.profile)
	mux.HandleFunc("/admin/", h.adminRoot)

	return h.withAuthContext(mux), nil
}

// errorStatus maps service errors onto HTTP status codes.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, paymentsvc.ErrBadSignature):
		return http.StatusUnauthorized
	case errors.Is(err, paymentsvc.ErrProvider):
		return http.StatusBadGateway
	case errors.Is(err, storage.ErrConflict),
		errors.Is(err, catalog.ErrInsufficientStock),
		errors.Is(err, coupon.ErrExhausted),
		errors.Is(err, loyalty.ErrInsufficientPoints),
		errors.Is(err, review.ErrDuplicate),
		errors.Is(err, order.ErrInvalidTransition),
		errors.Is(err, payment.ErrInvalidTransition),
		errors.Is(err, support.ErrInvalidTransition):
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}

func writeServiceError(w http.ResponseWriter, err error) {
	writeError(w, errorStatus(err), err)
}

// --- storefront: catalog ----------------------------------------------------

func (h *handler) categories(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	cats, err := h.app.Catalog.ListCategories(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cats)
}

func (h *handler) products(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	filter := storage.ProductFilter{
		CategoryID: strings.TrimSpace(r.URL.Query().Get("category")),
		ActiveOnly: true,
	}
	products, err := h.app.Catalog.ListProducts(r.Context(), filter)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, products)
}

func (h *handler) productResources(w http.ResponseWriter, r *http.Request) {
	parts := pathParts(r.URL.Path, "/products")
	if len(parts) == 0 {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	productID := parts[0]

	if len(parts) == 1 {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		product, err := h.app.Catalog.GetProduct(r.Context(), productID)
		if err != nil || !product.Active {
			writeError(w, http.StatusNotFound, fmt.Errorf("product not found"))
			return
		}
		writeJSON(w, http.StatusOK, product)
		return
	}

	switch parts[1] {
	case "reviews":
		h.productReviews(w, r, productID)
	case "rating":
		h.productRating(w, r, productID)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *handler) productReviews(w http.ResponseWriter, r *http.Request, productID string) {
	switch r.Method {
	case http.MethodGet:
		list, err := h.app.Reviews.List(r.Context(), productID, true)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, list)

	case http.MethodPost:
		customerID, ok := requireCustomer(w, r)
		if !ok {
			return
		}
		var payload struct {
			Rating  int    `json:"rating"`
			Title   string `json:"title"`
			Comment string `json:"comment"`
		}
		if err := decodeJSON(r.Body, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		rev, err := h.app.Reviews.Create(r.Context(), productID, customerID, payload.Rating, payload.Title, payload.Comment)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, rev)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *handler) productRating(w http.ResponseWriter, r *http.Request, productID string) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	avg, count, err := h.app.Reviews.Summary(r.Context(), productID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"average": avg, "count": count})
}

// --- storefront: orders -----------------------------------------------------

type orderLinePayload struct {
	ProductID string `json:"product_id"`
	Quantity  int64  `json:"quantity"`
}

func (h *handler) orders(w http.ResponseWriter, r *http.Request) {
	customerID, ok := requireCustomer(w, r)
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodPost:
		var payload struct {
			Items           []orderLinePayload `json:"items"`
			CouponCode      string             `json:"coupon_code"`
			RedeemPoints    int64              `json:"redeem_points"`
			ShippingAddress string             `json:"shipping_address"`
			Currency        string             `json:"currency"`
		}
		if err := decodeJSON(r.Body, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}

		params := ordersvc.CheckoutParams{
			CustomerID:      customerID,
			CouponCode:      payload.CouponCode,
			RedeemPoints:    payload.RedeemPoints,
			ShippingAddress: payload.ShippingAddress,
			Currency:        payload.Currency,
			IdempotencyKey:  strings.TrimSpace(r.Header.Get("Idempotency-Key")),
		}
		for _, line := range payload.Items {
			params.Lines = append(params.Lines, ordersvc.Line{ProductID: line.ProductID, Quantity: line.Quantity})
		}

		ord, err := h.app.Orders.PlaceOrder(r.Context(), params)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		metrics.RecordOrderPlaced(ord.TotalCents, ord.CouponCode != "")
		writeJSON(w, http.StatusCreated, ord)

	case http.MethodGet:
		list, err := h.app.Orders.List(r.Context(), customerID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, list)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *handler) orderResources(w http.ResponseWriter, r *http.Request) {
	customerID, ok := requireCustomer(w, r)
	if !ok {
		return
	}
	parts := pathParts(r.URL.Path, "/orders")
	if len(parts) == 0 {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	orderID := parts[0]

	if len(parts) == 1 {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		ord, err := h.app.Orders.GetForCustomer(r.Context(), orderID, customerID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, ord)
		return
	}

	switch parts[1] {
	case "items":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if _, err := h.app.Orders.GetForCustomer(r.Context(), orderID, customerID); err != nil {
			writeServiceError(w, err)
			return
		}
		items, err := h.app.Orders.Items(r.Context(), orderID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, items)

	case "cancel":
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		ord, err := h.app.Orders.Cancel(r.Context(), orderID, customerID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, ord)

	case "payments":
		h.orderPayments(w, r, orderID, customerID)

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *handler) orderPayments(w http.ResponseWriter, r *http.Request, orderID, customerID string) {
	switch r.Method {
	case http.MethodPost:
		var payload struct {
			Method string `json:"method"`
			Phone  string `json:"phone"`
		}
		if err := decodeJSON(r.Body, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		pay, err := h.app.Payments.Initiate(r.Context(), paymentsvc.InitiateParams{
			OrderID:    orderID,
			CustomerID: customerID,
			Method:     payload.Method,
			Phone:      payload.Phone,
		})
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, pay)

	case http.MethodGet:
		if _, err := h.app.Orders.GetForCustomer(r.Context(), orderID, customerID); err != nil {
			writeServiceError(w, err)
			return
		}
		list, err := h.app.Payments.List(r.Context(), orderID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, list)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// --- storefront: payments ---------------------------------------------------

func (h *handler) paymentWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("read webhook body: %w", err))
		return
	}
	defer r.Body.Close()

	signature := r.Header.Get("X-Signature")
	if err := h.app.Payments.HandleWebhook(r.Context(), body, signature); err != nil {
		metrics.RecordWebhook("rejected")
		writeServiceError(w, err)
		return
	}
	metrics.RecordWebhook("accepted")
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) paymentResources(w http.ResponseWriter, r *http.Request) {
	customerID, ok := requireCustomer(w, r)
	if !ok {
		return
	}
	parts := pathParts(r.URL.Path, "/payments")
	if len(parts) != 1 || r.Method != http.MethodGet {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	pay, err := h.app.Payments.Get(r.Context(), parts[0])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if pay.CustomerID != customerID && roleFrom(r.Context()) != "admin" {
		writeError(w, http.StatusNotFound, storage.ErrNotFound)
		return
	}
	writeJSON(w, http.StatusOK, pay)
}

// --- storefront: wishlist, loyalty, coupons ---------------------------------

func (h *handler) wishlist(w http.ResponseWriter, r *http.Request) {
	customerID, ok := requireCustomer(w, r)
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodGet:
		items, err := h.app.Wishlists.List(r.Context(), customerID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, items)

	case http.MethodPost:
		var payload struct {
			ProductID string `json:"product_id"`
		}
		if err := decodeJSON(r.Body, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		item, err := h.app.Wishlists.Add(r.Context(), customerID, payload.ProductID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, item)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *handler) wishlistItem(w http.ResponseWriter, r *http.Request) {
	customerID, ok := requireCustomer(w, r)
	if !ok {
		return
	}
	parts := pathParts(r.URL.Path, "/wishlist")
	if len(parts) != 1 || r.Method != http.MethodDelete {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if err := h.app.Wishlists.Remove(r.Context(), customerID, parts[0]); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) loyaltyAccount(w http.ResponseWriter, r *http.Request) {
	customerID, ok := requireCustomer(w, r)
	if !ok {
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	account, err := h.app.Loyalty.Account(r.Context(), customerID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

func (h *handler) loyaltyPreview(w http.ResponseWriter, r *http.Request) {
	customerID, ok := requireCustomer(w, r)
	if !ok {
		return
	}
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var payload struct {
		Points int64 `json:"points"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	discount, err := h.app.Loyalty.PreviewRedemption(r.Context(), customerID, payload.Points)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"discount_cents": discount})
}

func (h *handler) couponPreview(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireCustomer(w, r); !ok {
		return
	}
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var payload struct {
		Code          string `json:"code"`
		SubtotalCents int64  `json:"subtotal_cents"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	c, discount, err := h.app.Coupons.Preview(r.Context(), payload.Code, payload.SubtotalCents)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"code":           c.Code,
		"type":           c.Type,
		"discount_cents": discount,
	})
}

// --- storefront: support and profile ----------------------------------------

func (h *handler) supportRequests(w http.ResponseWriter, r *http.Request) {
	customerID, ok := requireCustomer(w, r)
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodPost:
		var payload struct {
			OrderID string `json:"order_id"`
			Subject string `json:"subject"`
			Body    string `json:"body"`
		}
		if err := decodeJSON(r.Body, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		req, err := h.app.Support.Create(r.Context(), customerID, payload.OrderID, payload.Subject, payload.Body)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, req)

	case http.MethodGet:
		list, err := h.app.Support.List(r.Context(), customerID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, list)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *handler) supportResource(w http.ResponseWriter, r *http.Request) {
	customerID, ok := requireCustomer(w, r)
	if !ok {
		return
	}
	parts := pathParts(r.URL.Path, "/support")
	if len(parts) != 1 || r.Method != http.MethodGet {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	req, err := h.app.Support.GetForCustomer(r.Context(), parts[0], customerID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

func (h *handler) profile(w http.ResponseWriter, r *http.Request) {
	customerID, ok := requireCustomer(w, r)
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodGet:
		c, err := h.app.Customers.Get(r.Context(), customerID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, c)

	case http.MethodPut:
		var payload struct {
			Email string `json:"email"`
			Name  string `json:"name"`
			Phone string `json:"phone"`
		}
		if err := decodeJSON(r.Body, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		c, err := h.app.Customers.Upsert(r.Context(), customer.Customer{
			ID:    customerID,
			Email: payload.Email,
			Name:  payload.Name,
			Phone: payload.Phone,
		})
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, c)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// --- admin ------------------------------------------------------------------

func (h *handler) adminRoot(w http.ResponseWriter, r *http.Request) {
	if !requireAdmin(w, r) {
		return
	}

	rec := &statusCapture{ResponseWriter: w, status: http.StatusOK}
	defer func() {
		h.audit.add(auditEntry{
			Time:       time.Now().UTC(),
			Customer:   customerFrom(r.Context()),
			Role:       roleFrom(r.Context()),
			Path:       r.URL.Path,
			Method:     r.Method,
			Status:     rec.status,
			RemoteAddr: r.RemoteAddr,
			UserAgent:  r.UserAgent(),
		})
	}()

	parts := pathParts(r.URL.Path, "/admin")
	if len(parts) == 0 {
		rec.WriteHeader(http.StatusNotFound)
		return
	}

	switch parts[0] {
	case "categories":
		h.adminCategories(rec, r, parts[1:])
	case "products":
		h.adminProducts(rec, r, parts[1:])
	case "coupons":
		h.adminCoupons(rec, r, parts[1:])
	case "orders":
		h.adminOrders(rec, r, parts[1:])
	case "payments":
		h.adminPayments(rec, r, parts[1:])
	case "reviews":
		h.adminReviews(rec, r, parts[1:])
	case "support":
		h.adminSupport(rec, r, parts[1:])
	case "customers":
		h.adminCustomers(rec, r, parts[1:])
	case "stats":
		h.adminStats(rec, r)
	case "audit":
		h.adminAudit(rec, r)
	default:
		rec.WriteHeader(http.StatusNotFound)
	}
}

func (h *handler) adminCategories(w http.ResponseWriter, r *http.Request, parts []string) {
	if len(parts) == 0 {
		switch r.Method {
		case http.MethodPost:
			var payload struct {
				Name        string `json:"name"`
				Slug        string `json:"slug"`
				Description string `json:"description"`
			}
			if err := decodeJSON(r.Body, &payload); err != nil {
				writeError(w, http.StatusBadRequest, err)
				return
			}
			cat, err := h.app.Catalog.CreateCategory(r.Context(), payload.Name, payload.Slug, payload.Description)
			if err != nil {
				writeServiceError(w, err)
				return
			}
			writeJSON(w, http.StatusCreated, cat)
		case http.MethodGet:
			cats, err := h.app.Catalog.ListCategories(r.Context())
			if err != nil {
				writeServiceError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, cats)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
		return
	}

	id := parts[0]
	switch r.Method {
	case http.MethodPatch:
		var payload struct {
			Name        *string `json:"name"`
			Description *string `json:"description"`
			Active      *bool   `json:"active"`
		}
		if err := decodeJSON(r.Body, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		cat, err := h.app.Catalog.UpdateCategory(r.Context(), id, payload.Name, payload.Description, payload.Active)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, cat)
	case http.MethodDelete:
		if err := h.app.Catalog.DeleteCategory(r.Context(), id); err != nil {
			writeServiceError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *handler) adminProducts(w http.ResponseWriter, r *http.Request, parts []string) {
	if len(parts) == 0 {
		switch r.Method {
		case http.MethodPost:
			var payload struct {
				CategoryID     string `json:"category_id"`
				Name           string `json:"name"`
				Description    string `json:"description"`
				PriceCents     int64  `json:"price_cents"`
				CompareAtCents int64  `json:"compare_at_cents"`
				Stock          int64  `json:"stock"`
				Condition      string `json:"condition"`
				ImageURL       string `json:"image_url"`
			}
			if err := decodeJSON(r.Body, &payload); err != nil {
				writeError(w, http.StatusBadRequest, err)
				return
			}
			product, err := h.app.Catalog.CreateProduct(r.Context(), catalogsvc.ProductParams{
				CategoryID:     payload.CategoryID,
				Name:           payload.Name,
				Description:    payload.Description,
				PriceCents:     payload.PriceCents,
				CompareAtCents: payload.CompareAtCents,
				Stock:          payload.Stock,
				Condition:      payload.Condition,
				ImageURL:       payload.ImageURL,
			})
			if err != nil {
				writeServiceError(w, err)
				return
			}
			writeJSON(w, http.StatusCreated, product)
		case http.MethodGet:
			filter := storage.ProductFilter{CategoryID: strings.TrimSpace(r.URL.Query().Get("category"))}
			products, err := h.app.Catalog.ListProducts(r.Context(), filter)
			if err != nil {
				writeServiceError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, products)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
		return
	}

	id := parts[0]
	if len(parts) == 2 && parts[1] == "stock" {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		var payload struct {
			Delta int64 `json:"delta"`
		}
		if err := decodeJSON(r.Body, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		product, err := h.app.Catalog.AdjustStock(r.Context(), id, payload.Delta)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, product)
		return
	}

	switch r.Method {
	case http.MethodGet:
		product, err := h.app.Catalog.GetProduct(r.Context(), id)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, product)
	case http.MethodPatch:
		var payload struct {
			CategoryID     *string `json:"category_id"`
			Name           *string `json:"name"`
			Description    *string `json:"description"`
			PriceCents     *int64  `json:"price_cents"`
			CompareAtCents *int64  `json:"compare_at_cents"`
			Condition      *string `json:"condition"`
			Active         *bool   `json:"active"`
			ImageURL       *string `json:"image_url"`
		}
		if err := decodeJSON(r.Body, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		product, err := h.app.Catalog.UpdateProduct(r.Context(), id, catalogsvc.ProductUpdate{
			CategoryID:     payload.CategoryID,
			Name:           payload.Name,
			Description:    payload.Description,
			PriceCents:     payload.PriceCents,
			CompareAtCents: payload.CompareAtCents,
			Condition:      payload.Condition,
			Active:         payload.Active,
			ImageURL:       payload.ImageURL,
		})
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, product)
	case http.MethodDelete:
		if err := h.app.Catalog.DeleteProduct(r.Context(), id); err != nil {
			writeServiceError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *handler) adminCoupons(w http.ResponseWriter, r *http.Request, parts []string) {
	if len(parts) == 0 {
		switch r.Method {
		case http.MethodPost:
			var payload struct {
				Code             string     `json:"code"`
				Type             string     `json:"type"`
				Value            int64      `json:"value"`
				MinPurchaseCents int64      `json:"min_purchase_cents"`
				MaxDiscountCents int64      `json:"max_discount_cents"`
				UsageLimit       int64      `json:"usage_limit"`
				ValidFrom        *time.Time `json:"valid_from"`
				ValidUntil       *time.Time `json:"valid_until"`
			}
			if err := decodeJSON(r.Body, &payload); err != nil {
				writeError(w, http.StatusBadRequest, err)
				return
			}
			params := couponsvc.Params{
				Code:             payload.Code,
				Type:             payload.Type,
				Value:            payload.Value,
				MinPurchaseCents: payload.MinPurchaseCents,
				MaxDiscountCents: payload.MaxDiscountCents,
				UsageLimit:       payload.UsageLimit,
			}
			if payload.ValidFrom != nil {
				params.ValidFrom = *payload.ValidFrom
			}
			if payload.ValidUntil != nil {
				params.ValidUntil = *payload.ValidUntil
			}
			c, err := h.app.Coupons.Create(r.Context(), params)
			if err != nil {
				writeServiceError(w, err)
				return
			}
			writeJSON(w, http.StatusCreated, c)
		case http.MethodGet:
			list, err := h.app.Coupons.List(r.Context())
			if err != nil {
				writeServiceError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, list)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
		return
	}

	id := parts[0]
	switch r.Method {
	case http.MethodGet:
		c, err := h.app.Coupons.Get(r.Context(), id)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, c)
	case http.MethodPatch:
		var payload struct {
			Value            *int64     `json:"value"`
			MinPurchaseCents *int64     `json:"min_purchase_cents"`
			MaxDiscountCents *int64     `json:"max_discount_cents"`
			UsageLimit       *int64     `json:"usage_limit"`
			ValidFrom        *time.Time `json:"valid_from"`
			ValidUntil       *time.Time `json:"valid_until"`
			Active           *bool      `json:"active"`
		}
		if err := decodeJSON(r.Body, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		c, err := h.app.Coupons.Apply(r.Context(), id, couponsvc.Update{
			Value:            payload.Value,
			MinPurchaseCents: payload.MinPurchaseCents,
			MaxDiscountCents: payload.MaxDiscountCents,
			UsageLimit:       payload.UsageLimit,
			ValidFrom:        payload.ValidFrom,
			ValidUntil:       payload.ValidUntil,
			Active:           payload.Active,
		})
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, c)
	case http.MethodDelete:
		if err := h.app.Coupons.Delete(r.Context(), id); err != nil {
			writeServiceError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *handler) adminOrders(w http.ResponseWriter, r *http.Request, parts []string) {
	if len(parts) == 0 {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		list, err := h.app.Orders.List(r.Context(), strings.TrimSpace(r.URL.Query().Get("customer")))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
		return
	}

	id := parts[0]
	if len(parts) == 1 {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		ord, err := h.app.Orders.Get(r.Context(), id)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, ord)
		return
	}

	switch parts[1] {
	case "items":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		items, err := h.app.Orders.Items(r.Context(), id)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, items)
	case "status":
		if r.Method != http.MethodPatch {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		var payload struct {
			Status string `json:"status"`
		}
		if err := decodeJSON(r.Body, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		ord, err := h.app.Orders.Transition(r.Context(), id, order.Status(strings.ToLower(strings.TrimSpace(payload.Status))))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, ord)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *handler) adminPayments(w http.ResponseWriter, r *http.Request, parts []string) {
	if len(parts) == 0 {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		list, err := h.app.Payments.List(r.Context(), strings.TrimSpace(r.URL.Query().Get("order")))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
		return
	}

	id := parts[0]
	if len(parts) == 1 {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		pay, err := h.app.Payments.Get(r.Context(), id)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, pay)
		return
	}

	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var (
		pay payment.Payment
		err error
	)
	switch parts[1] {
	case "collect":
		// Cash collected on delivery.
		pay, err = h.app.Payments.Settle(r.Context(), id, true, "")
	case "refund":
		pay, err = h.app.Payments.Refund(r.Context(), id)
	case "cancel":
		pay, err = h.app.Payments.Cancel(r.Context(), id)
	default:
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if err != nil {
		writeServiceError(w, err)
		return
	}
	metrics.RecordPaymentSettled(string(pay.Method), string(pay.Status))
	writeJSON(w, http.StatusOK, pay)
}

func (h *handler) adminReviews(w http.ResponseWriter, r *http.Request, parts []string) {
	if len(parts) == 0 {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		productID := strings.TrimSpace(r.URL.Query().Get("product"))
		if productID == "" {
			writeError(w, http.StatusBadRequest, fmt.Errorf("product query parameter is required"))
			return
		}
		list, err := h.app.Reviews.List(r.Context(), productID, false)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
		return
	}

	id := parts[0]
	if len(parts) == 1 {
		if r.Method != http.MethodDelete {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if err := h.app.Reviews.Delete(r.Context(), id); err != nil {
			writeServiceError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var (
		rev review.Review
		err error
	)
	switch parts[1] {
	case "approve":
		rev, err = h.app.Reviews.Approve(r.Context(), id)
	case "reject":
		rev, err = h.app.Reviews.Reject(r.Context(), id)
	default:
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rev)
}

func (h *handler) adminSupport(w http.ResponseWriter, r *http.Request, parts []string) {
	if len(parts) == 0 {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		list, err := h.app.Support.List(r.Context(), strings.TrimSpace(r.URL.Query().Get("customer")))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
		return
	}

	id := parts[0]
	if len(parts) == 1 {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		req, err := h.app.Support.Get(r.Context(), id)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, req)
		return
	}

	if parts[1] != "reply" || r.Method != http.MethodPost {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	var payload struct {
		Reply  string `json:"reply"`
		Status string `json:"status"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	req, err := h.app.Support.Reply(r.Context(), id, payload.Reply, support.Status(strings.ToLower(strings.TrimSpace(payload.Status))))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

func (h *handler) adminCustomers(w http.ResponseWriter, r *http.Request, parts []string) {
	if len(parts) == 0 {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		list, err := h.app.Customers.List(r.Context())
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
		return
	}

	id := parts[0]
	if len(parts) == 1 {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		c, err := h.app.Customers.Get(r.Context(), id)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, c)
		return
	}

	if parts[1] != "points" || r.Method != http.MethodPost {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	var payload struct {
		Points int64 `json:"points"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	account, err := h.app.Loyalty.Grant(r.Context(), id, payload.Points)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

func (h *handler) adminStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	snapshot, err := h.app.Stats.Snapshot(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

func (h *handler) adminAudit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	writeJSON(w, http.StatusOK, h.audit.listLimit(limit))
}

// --- helpers ----------------------------------------------------------------

func pathParts(path, prefix string) []string {
	trimmed := strings.Trim(strings.TrimPrefix(path, prefix), "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

type statusCapture struct {
	http.ResponseWriter
	status int
}

func (c *statusCapture) WriteHeader(code int) {
	c.status = code
	c.ResponseWriter.WriteHeader(code)
}

func decodeJSON(body io.ReadCloser, dst interface{}) error {
	defer body.Close()
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
