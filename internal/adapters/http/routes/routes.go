package routes

import (
	"shelfdesk/internal/adapters/http/handlers"
	"shelfdesk/internal/adapters/http/middleware"
	"shelfdesk/internal/adapters/persistence/repositories"
	"shelfdesk/internal/config"
	"shelfdesk/internal/core/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"
	"gorm.io/gorm"
)

// Setup configures all routes for the application
func Setup(app *fiber.App, db *gorm.DB, cfg *config.Config) {
	// Initialize repositories
	userRepo := repositories.NewUserRepository(db)
	refreshTokenRepo := repositories.NewRefreshTokenRepository(db)
	bookRepo := repositories.NewBookRepository(db)
	circRepo := repositories.NewCirculationRepository(db)

	// Initialize services
	authService := services.NewAuthService(userRepo, refreshTokenRepo, cfg)
	userService := services.NewUserService(userRepo, circRepo)
	bookService := services.NewBookService(bookRepo)
	circService := services.NewCirculationService(db, cfg)

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler()
	authHandler := handlers.NewAuthHandler(authService, cfg)
	userHandler := handlers.NewUserHandler(userService, circService)
	bookHandler := handlers.NewBookHandler(bookService)
	circHandler := handlers.NewCirculationHandler(circService)

	// Health check & root routes
	app.Get("/", healthHandler.Root)
	app.Get("/health", healthHandler.HealthCheck)

	// Swagger documentation
	app.Get("/swagger/*", swagger.HandlerDefault)

	// API v1 group
	apiV1 := app.Group("/api/v1")

	// Auth routes (public + protected)
	authRoutes := apiV1.Group("/auth")
	setupAuthRoutes(authRoutes, authHandler, cfg)

	// Catalog routes (authenticated; write ops librarian/admin)
	bookRoutes := apiV1.Group("/books")
	bookRoutes.Use(middleware.AuthMiddleware(cfg))
	setupBookRoutes(bookRoutes, bookHandler)

	// Patron routes (authenticated)
	userRoutes := apiV1.Group("/users")
	userRoutes.Use(middleware.AuthMiddleware(cfg))
	setupUserRoutes(userRoutes, userHandler)

	// Circulation desk routes (librarian/admin only)
	circRoutes := apiV1.Group("/circulation")
	circRoutes.Use(middleware.AuthMiddleware(cfg))
	circRoutes.Use(middleware.LibrarianOrAdmin())
	setupCirculationRoutes(circRoutes, circHandler)

	// Account administration routes (admin only)
	adminRoutes := apiV1.Group("/admin")
	adminRoutes.Use(middleware.AuthMiddleware(cfg))
	adminRoutes.Use(middleware.AdminOnly())
	setupAdminRoutes(adminRoutes, userHandler)
}

// setupAuthRoutes configures authentication routes
func setupAuthRoutes(router fiber.Router, handler *handlers.AuthHandler, cfg *config.Config) {
	// Public routes (rate limited against brute force)
	router.Post("/register", middleware.AuthRateLimiter(), handler.Register)
	router.Post("/login", middleware.AuthRateLimiter(), handler.Login)
	router.Post("/refresh", handler.RefreshToken)
	router.Post("/logout", handler.Logout)

	// Protected routes
	router.Post("/logout-all", middleware.AuthMiddleware(cfg), handler.LogoutAll)
}

// setupBookRoutes configures catalog routes
func setupBookRoutes(router fiber.Router, handler *handlers.BookHandler) {
	// Any authenticated user can browse
	router.Get("/", handler.List)
	router.Get("/search", handler.Search)

	// Librarian/Admin manage the catalog
	staffRoutes := router.Group("")
	staffRoutes.Use(middleware.LibrarianOrAdmin())

	staffRoutes.Post("/", handler.Add)
	staffRoutes.Patch("/:id", handler.Edit)
	staffRoutes.Delete("/:id", handler.Delete)
}

// setupUserRoutes configures patron routes
func setupUserRoutes(router fiber.Router, handler *handlers.UserHandler) {
	router.Get("/profile", handler.Profile)
	router.Post("/fines/pay", handler.PayFines)
	router.Post("/requests", handler.RequestBook)
	router.Get("/issued", handler.IssuedBooks)
	router.Get("/history", handler.History)
	router.Get("/rejected", handler.RejectedRequests)
}

// setupAdminRoutes configures account administration routes
func setupAdminRoutes(router fiber.Router, handler *handlers.UserHandler) {
	router.Get("/users", handler.ListUsers)
	router.Post("/users/librarians", handler.CreateLibrarian)
}

// setupCirculationRoutes configures the circulation desk routes
func setupCirculationRoutes(router fiber.Router, handler *handlers.CirculationHandler) {
	router.Get("/requests", handler.ListRequests)
	router.Post("/requests/:id/approve", handler.Approve)
	router.Post("/requests/:id/reject", handler.Reject)
	router.Get("/issued", handler.ListIssued)
	router.Post("/returns", handler.MarkReturned)
	router.Get("/defaulters", handler.Defaulters)
}
