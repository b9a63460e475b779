package router

import (
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"tillsync/internal/config"
	"tillsync/internal/handler"
	"tillsync/internal/middleware"
	"tillsync/internal/model"
	"tillsync/internal/probe"
	"tillsync/internal/session"
	"tillsync/internal/shift"
	"tillsync/internal/syncer"
)

// Deps are the wired components the router exposes over HTTP. Wiring happens
// in main; the router only maps routes onto it.
type Deps struct {
	Cfg         *config.Config
	DB          *gorm.DB
	RDB         *redis.Client
	Probe       probe.Probe
	Coordinator *syncer.Coordinator
	Shifts      shift.Service
	Guard       *session.Guard
}

// New returns a configured Gin engine.
func New(d Deps) *gin.Engine {
	if d.Cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS())
	r.Use(middleware.ErrorHandler())

	authH := handler.NewAuthHandler(d.Guard)
	shiftsH := handler.NewShiftsHandler(d.Shifts, d.Guard)
	catalogH := handler.NewCatalogHandler(d.Coordinator)
	receiptsH := handler.NewReceiptsHandler(d.Shifts, d.Coordinator)
	ticketsH := handler.NewTicketsHandler(d.Coordinator)
	syncH := handler.NewSyncHandler(d.Coordinator, d.RDB)

	// Public
	r.GET("/health", handler.Health(d.DB, d.RDB, d.Probe))

	auth := r.Group("/v1/auth")
	{
		auth.POST("/login", middleware.LoginRateLimiter(), authH.Login)
	}

	// Protected routes
	sessionMW := middleware.SessionAuth(d.Cfg.JWTSecret, d.Guard)
	v1 := r.Group("/v1", sessionMW)
	{
		v1.POST("/auth/logout", authH.Logout)
		v1.GET("/auth/session", authH.Session)

		v1.POST("/shifts/open", shiftsH.Open)
		v1.GET("/shifts/current", shiftsH.Current)
		v1.POST("/shifts/close", shiftsH.Close)
		v1.POST("/shifts/movements", shiftsH.Movement)

		v1.GET("/categories", catalogH.ListCategories)
		v1.GET("/products", catalogH.ListProducts)
		// Catalog writes are admin-only; cashiers sell from the catalog,
		// they do not edit it.
		adminOnly := middleware.RequireRole(model.RoleAdmin)
		v1.POST("/categories", adminOnly, catalogH.CreateCategory)
		v1.PATCH("/categories/:id", adminOnly, catalogH.UpdateCategory)
		v1.DELETE("/categories/:id", adminOnly, catalogH.DeleteCategory)
		v1.POST("/categories/bulk-delete", adminOnly, catalogH.BulkDeleteCategories)
		v1.POST("/products", adminOnly, catalogH.CreateProduct)
		v1.PATCH("/products/:id", adminOnly, catalogH.UpdateProduct)
		v1.DELETE("/products/:id", adminOnly, catalogH.DeleteProduct)

		v1.POST("/sales", receiptsH.RecordSale)
		v1.GET("/receipts", receiptsH.List)

		v1.GET("/tickets", ticketsH.List)
		v1.POST("/tickets", ticketsH.Park)
		v1.POST("/tickets/:id/resume", ticketsH.Resume)
		v1.DELETE("/tickets/:id", ticketsH.Delete)

		v1.GET("/sync/status", syncH.Status)
		v1.POST("/sync/flush", syncH.Flush)
	}

	return r
}
