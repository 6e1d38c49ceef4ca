package v1

import (
	"net/http"

	"motoparts-backend/internal/delivery/http/middleware"
)

// Handlers groups every v1 handler so the route table lives in one place.
type Handlers struct {
	Catalog            *CatalogHandler
	Orders             *OrderHandler
	Coupons            *CouponHandler
	Loyalty            *LoyaltyHandler
	Config             *ConfigHandler
	Sitemap            *SitemapHandler
	AdminCatalog       *AdminCatalogHandler
	AdminCompatibility *AdminCompatibilityHandler
	AdminOrders        *AdminOrderHandler
	AdminCoupons       *AdminCouponHandler
}

func RegisterRoutes(mux *http.ServeMux, h Handlers) {
	protected := func(fn http.HandlerFunc) http.Handler {
		return middleware.AuthMiddleware(fn)
	}
	adminMiddleware := func(fn http.HandlerFunc) http.Handler {
		return middleware.AuthMiddleware(middleware.AdminMiddleware(fn))
	}

	// Config & SEO (Public)
	mux.HandleFunc("GET /api/v1/config/enums", h.Config.GetEnums)
	mux.HandleFunc("GET /sitemap.xml", h.Sitemap.ServeHTTP)

	// Catalog (Public)
	mux.HandleFunc("GET /api/v1/products", h.Catalog.ListProducts)
	mux.HandleFunc("GET /api/v1/products/{id}", h.Catalog.GetProduct)
	mux.HandleFunc("GET /api/v1/products/{id}/compatibility", h.Catalog.GetCompatibility)

	// Motorcycle picker (Public)
	mux.HandleFunc("GET /api/v1/motorcycles/brands", h.Catalog.Brands)
	mux.HandleFunc("GET /api/v1/motorcycles/models", h.Catalog.Models)
	mux.HandleFunc("GET /api/v1/motorcycles/years", h.Catalog.Years)

	// Checkout works for guests; a valid token links the order to the account.
	mux.Handle("POST /api/v1/checkout", middleware.OptionalAuth(http.HandlerFunc(h.Orders.Checkout)))
	mux.HandleFunc("POST /api/v1/coupons/validate", h.Coupons.Validate)

	// Account (Protected)
	mux.Handle("GET /api/v1/orders", protected(h.Orders.GetMyOrders))
	mux.Handle("GET /api/v1/orders/{id}", protected(h.Orders.GetMyOrder))
	mux.Handle("GET /api/v1/loyalty", protected(h.Loyalty.GetMine))
	mux.Handle("POST /api/v1/loyalty/redeem", protected(h.Loyalty.Redeem))

	// Admin Product Management
	mux.Handle("GET /api/v1/admin/products", adminMiddleware(h.AdminCatalog.ListProducts))
	mux.Handle("GET /api/v1/admin/products/{id}", adminMiddleware(h.AdminCatalog.GetProduct))
	mux.Handle("POST /api/v1/admin/products", adminMiddleware(h.AdminCatalog.CreateProduct))
	mux.Handle("PUT /api/v1/admin/products/{id}", adminMiddleware(h.AdminCatalog.UpdateProduct))
	mux.Handle("DELETE /api/v1/admin/products/{id}", adminMiddleware(h.AdminCatalog.DeleteProduct))
	mux.Handle("POST /api/v1/admin/products/{id}/restock", adminMiddleware(h.AdminCatalog.Restock))
	mux.Handle("POST /api/v1/admin/products/{id}/images", adminMiddleware(h.AdminCatalog.UploadImage))
	mux.Handle("PUT /api/v1/admin/products/{id}/compatibility", adminMiddleware(h.AdminCatalog.SetCompatibility))
	mux.Handle("GET /api/v1/admin/inventory/logs", adminMiddleware(h.AdminCatalog.InventoryLogs))

	// Admin Compatibility
	mux.Handle("GET /api/v1/admin/motorcycles", adminMiddleware(h.AdminCompatibility.ListModels))
	mux.Handle("GET /api/v1/admin/motorcycles/{id}", adminMiddleware(h.AdminCompatibility.GetModel))
	mux.Handle("POST /api/v1/admin/motorcycles", adminMiddleware(h.AdminCompatibility.CreateModel))
	mux.Handle("PUT /api/v1/admin/motorcycles/{id}", adminMiddleware(h.AdminCompatibility.UpdateModel))
	mux.Handle("DELETE /api/v1/admin/motorcycles/{id}", adminMiddleware(h.AdminCompatibility.DeleteModel))
	mux.Handle("GET /api/v1/admin/compatibility-rules", adminMiddleware(h.AdminCompatibility.ListRules))
	mux.Handle("GET /api/v1/admin/compatibility-rules/{id}", adminMiddleware(h.AdminCompatibility.GetRule))
	mux.Handle("POST /api/v1/admin/compatibility-rules", adminMiddleware(h.AdminCompatibility.CreateRule))
	mux.Handle("PUT /api/v1/admin/compatibility-rules/{id}", adminMiddleware(h.AdminCompatibility.UpdateRule))
	mux.Handle("DELETE /api/v1/admin/compatibility-rules/{id}", adminMiddleware(h.AdminCompatibility.DeleteRule))

	// Admin Orders
	mux.Handle("GET /api/v1/admin/orders", adminMiddleware(h.AdminOrders.ListOrders))
	mux.Handle("GET /api/v1/admin/orders/{id}", adminMiddleware(h.AdminOrders.GetOrder))
	mux.Handle("PATCH /api/v1/admin/orders/{id}/status", adminMiddleware(h.AdminOrders.UpdateStatus))
	mux.Handle("GET /api/v1/admin/orders/{id}/history", adminMiddleware(h.AdminOrders.GetHistory))

	// Admin Coupons
	mux.Handle("GET /api/v1/admin/coupons", adminMiddleware(h.AdminCoupons.ListCoupons))
	mux.Handle("GET /api/v1/admin/coupons/{id}", adminMiddleware(h.AdminCoupons.GetCoupon))
	mux.Handle("POST /api/v1/admin/coupons", adminMiddleware(h.AdminCoupons.CreateCoupon))
	mux.Handle("PUT /api/v1/admin/coupons/{id}", adminMiddleware(h.AdminCoupons.UpdateCoupon))
	mux.Handle("DELETE /api/v1/admin/coupons/{id}", adminMiddleware(h.AdminCoupons.DeleteCoupon))

	// Admin Loyalty
	mux.Handle("GET /api/v1/admin/loyalty/leaderboard", adminMiddleware(h.Loyalty.Leaderboard))
}
