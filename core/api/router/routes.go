package router

import (
	"fmt"

	"github.com/gofiber/fiber/v3"

	"github.com/devtlco1/E-Jibaya-sub000/core/api/handler"
	"github.com/devtlco1/E-Jibaya-sub000/core/api/middleware"
	models "github.com/devtlco1/E-Jibaya-sub000/core/api/models/mongodb"
	"github.com/devtlco1/E-Jibaya-sub000/core/notification"
)

// ============================================================================
// ⚠️ QUAN TRỌNG: FIBER V3 - CÁCH ĐĂNG KÝ MIDDLEWARE
// ============================================================================
//
// KHÔNG đăng ký middleware trực tiếp trong route:
//
//	❌ router.Get("/path", middleware.AuthMiddleware(), handler)
//	→ Middleware sẽ KHÔNG được gọi!
//
// PHẢI đăng ký qua group .Use():
//
//	✅ registerRouteWithMiddleware(router, "/prefix", "GET", "/path",
//	       []fiber.Handler{authMiddleware}, handler)
//
// ============================================================================

// RoutePrefix chứa các prefix cho API versioning
type RoutePrefix struct {
	V1 string
}

// NewRoutePrefix tạo route prefix mặc định
func NewRoutePrefix() RoutePrefix {
	return RoutePrefix{
		V1: "/api/v1",
	}
}

// Router quản lý việc định tuyến cho API
type Router struct {
	app *fiber.App
	hub *notification.Hub
}

// NewRouter tạo router mới
func NewRouter(app *fiber.App, hub *notification.Hub) *Router {
	return &Router{app: app, hub: hub}
}

// registerRouteWithMiddleware đăng ký route với middleware qua group .Use()
func registerRouteWithMiddleware(router fiber.Router, prefix string, method string, path string, middlewares []fiber.Handler, handler fiber.Handler) {
	// Tạo group với prefix, middleware chỉ áp dụng cho routes trong group này
	routeGroup := router.Group(prefix)
	for _, mw := range middlewares {
		routeGroup.Use(mw)
	}

	switch method {
	case "GET":
		routeGroup.Get(path, handler)
	case "POST":
		routeGroup.Post(path, handler)
	case "PUT":
		routeGroup.Put(path, handler)
	case "DELETE":
		routeGroup.Delete(path, handler)
	}
}

// registerAuthRoutes đăng ký các route xác thực
func (r *Router) registerAuthRoutes(router fiber.Router) error {
	userHandler, err := handler.NewUserHandler()
	if err != nil {
		return fmt.Errorf("failed to create user handler: %v", err)
	}

	auth := middleware.AuthMiddleware()

	// Login là route public duy nhất
	router.Post("/auth/login", userHandler.HandleLogin)
	registerRouteWithMiddleware(router, "/auth", "GET", "/me", []fiber.Handler{auth}, userHandler.HandleMe)

	return nil
}

// registerUserRoutes đăng ký các route quản lý người dùng (admin-only)
func (r *Router) registerUserRoutes(router fiber.Router) error {
	userHandler, err := handler.NewUserHandler()
	if err != nil {
		return fmt.Errorf("failed to create user handler: %v", err)
	}

	auth := middleware.AuthMiddleware()
	adminOnly := middleware.RequireRole(models.RoleAdmin)
	mws := []fiber.Handler{auth, adminOnly}

	registerRouteWithMiddleware(router, "/users", "GET", "/", mws, userHandler.HandleFindPage)
	registerRouteWithMiddleware(router, "/users", "POST", "/", mws, userHandler.HandleCreate)
	registerRouteWithMiddleware(router, "/users", "GET", "/:id", mws, userHandler.FindOneById)
	registerRouteWithMiddleware(router, "/users", "PUT", "/:id", mws, userHandler.HandleUpdate)
	registerRouteWithMiddleware(router, "/users", "DELETE", "/:id", mws, userHandler.DeleteById)

	return nil
}

// registerRecordRoutes đăng ký các route bản ghi thu thập chỉ số.
// Các route tĩnh (/count, /latest, /stream) phải đăng ký trước /:id.
func (r *Router) registerRecordRoutes(router fiber.Router) error {
	recordHandler, err := handler.NewRecordHandler()
	if err != nil {
		return fmt.Errorf("failed to create record handler: %v", err)
	}

	lockHandler, err := handler.NewRecordLockHandler()
	if err != nil {
		return fmt.Errorf("failed to create record lock handler: %v", err)
	}

	streamHandler := handler.NewRecordStreamHandler(r.hub)

	auth := middleware.AuthMiddleware()
	adminOnly := middleware.RequireRole(models.RoleAdmin)
	mws := []fiber.Handler{auth}
	adminMws := []fiber.Handler{auth, adminOnly}

	registerRouteWithMiddleware(router, "/records", "GET", "/", mws, recordHandler.HandleFindPage)
	registerRouteWithMiddleware(router, "/records", "POST", "/", mws, recordHandler.HandleCreate)
	registerRouteWithMiddleware(router, "/records", "GET", "/count", mws, recordHandler.HandleCount)
	registerRouteWithMiddleware(router, "/records", "GET", "/latest", mws, recordHandler.HandleLatest)
	registerRouteWithMiddleware(router, "/records", "GET", "/stream", mws, streamHandler.HandleStream)
	registerRouteWithMiddleware(router, "/records", "GET", "/:id", mws, recordHandler.FindOneById)
	registerRouteWithMiddleware(router, "/records", "PUT", "/:id", mws, recordHandler.HandleUpdate)
	registerRouteWithMiddleware(router, "/records", "DELETE", "/:id", adminMws, recordHandler.DeleteById)
	registerRouteWithMiddleware(router, "/records", "POST", "/:id/verify", adminMws, recordHandler.HandleVerify)

	// Lease sửa bản ghi
	registerRouteWithMiddleware(router, "/records", "POST", "/:id/lock", mws, lockHandler.HandleAcquire)
	registerRouteWithMiddleware(router, "/records", "DELETE", "/:id/lock", mws, lockHandler.HandleRelease)
	registerRouteWithMiddleware(router, "/records", "GET", "/:id/lock", mws, lockHandler.HandleCheck)
	registerRouteWithMiddleware(router, "/records", "POST", "/:id/lock/extend", mws, lockHandler.HandleExtend)

	return nil
}

// SetupRoutes thiết lập tất cả các route cho ứng dụng
func SetupRoutes(app *fiber.App, hub *notification.Hub) error {
	prefix := NewRoutePrefix()
	v1 := app.Group(prefix.V1)

	router := NewRouter(app, hub)

	if err := router.registerAuthRoutes(v1); err != nil {
		return fmt.Errorf("failed to register auth routes: %v", err)
	}

	if err := router.registerUserRoutes(v1); err != nil {
		return fmt.Errorf("failed to register user routes: %v", err)
	}

	if err := router.registerRecordRoutes(v1); err != nil {
		return fmt.Errorf("failed to register record routes: %v", err)
	}

	return nil
}
