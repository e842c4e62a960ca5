package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/jhoicas/cokelateh-api/internal/application/approval"
	"github.com/jhoicas/cokelateh-api/internal/application/audit"
	"github.com/jhoicas/cokelateh-api/internal/application/rd"
	"github.com/jhoicas/cokelateh-api/internal/application/stock"
	"github.com/jhoicas/cokelateh-api/internal/application/users"
	"github.com/jhoicas/cokelateh-api/internal/domain/entity"
	"github.com/jhoicas/cokelateh-api/pkg/config"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Sessions     SessionStore
	StockUC      *stock.UseCase
	ApprovalUC   *approval.UseCase
	RDUC         *rd.UseCase
	UsersUC      *users.UseCase
	AuditUC      *audit.UseCase
	LoginMetrics LoginMetrics
	JWT          config.JWTConfig
	CookieSecure bool
	Log          zerolog.Logger
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api")
	authMW := AuthMiddleware(deps.JWT.Secret, deps.Sessions)

	// Auth: la sesión de cliente va en cookie; las rutas de cuenta además piden token.
	authHandler := NewAuthHandler(deps.Sessions, deps.JWT, deps.CookieSecure, deps.LoginMetrics, deps.Log)
	authGroup := api.Group("/auth", SessionMiddleware(deps.CookieSecure))
	authGroup.Post("/login", authHandler.Login)
	authGroup.Post("/mfa/verify", authHandler.VerifyMFA)
	authGroup.Post("/logout", authHandler.Logout)
	authGroup.Get("/me", authHandler.Me)
	authGroup.Post("/mfa/enroll", authMW, authHandler.StartEnrollment)
	authGroup.Post("/mfa/enroll/complete", authMW, authHandler.CompleteEnrollment)
	authGroup.Post("/password", authMW, authHandler.ChangePassword)

	// Rutas protegidas (requieren Bearer Token y sesión iniciada)
	protected := api.Group("/", authMW)
	manageInventory := RequirePermission(entity.PermissionManageInventory)
	manageProducts := RequirePermission(entity.PermissionManageProducts)
	manageOrders := RequirePermission(entity.PermissionManageOrders)
	manageUsers := RequirePermission(entity.PermissionManageUsers)

	stockHandler := NewStockHandler(deps.StockUC)
	ingredients := protected.Group("/ingredients")
	ingredients.Get("/", stockHandler.ListIngredients)
	ingredients.Post("/", manageInventory, stockHandler.CreateIngredient)

	stockGroup := protected.Group("/stock")
	stockGroup.Get("/", stockHandler.List)
	stockGroup.Get("/low", stockHandler.Low)
	stockGroup.Get("/:ingredientId", stockHandler.Get)
	stockGroup.Patch("/:ingredientId", manageInventory, stockHandler.Edit)
	stockGroup.Post("/:ingredientId/save", manageInventory, stockHandler.Save)
	stockGroup.Get("/:ingredientId/history", stockHandler.History)

	approvalHandler := NewApprovalHandler(deps.ApprovalUC)
	approvals := protected.Group("/approvals")
	approvals.Get("/", approvalHandler.List)
	approvals.Post("/", approvalHandler.Create)
	approvals.Post("/:id/approve", manageProducts, approvalHandler.Approve)
	approvals.Post("/:id/reject", manageProducts, approvalHandler.Reject)

	rdHandler := NewRDHandler(deps.RDUC)
	rdGroup := protected.Group("/rd")
	rdGroup.Get("/categories", rdHandler.ListCategories)
	rdGroup.Post("/categories", manageProducts, rdHandler.CreateCategory)
	rdGroup.Get("/products", rdHandler.ListProducts)
	rdGroup.Post("/products", manageProducts, rdHandler.CreateProduct)
	rdGroup.Patch("/products/:id/status", manageProducts, rdHandler.UpdateStatus)
	rdGroup.Post("/products/:id/production", manageOrders, rdHandler.MoveToProduction)

	userHandler := NewUserHandler(deps.UsersUC, deps.AuditUC)
	usersGroup := protected.Group("/users", manageUsers)
	usersGroup.Get("/", userHandler.List)
	usersGroup.Post("/", userHandler.Create)
	usersGroup.Put("/:id/permissions", userHandler.UpdatePermissions)
	protected.Get("/logs", manageUsers, userHandler.Logs)
}
