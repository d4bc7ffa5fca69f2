package http

import (
	nethttp "net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/jhoicas/facturacion-sri/internal/application/billing"
	"github.com/jhoicas/facturacion-sri/internal/application/usecase"
	"github.com/jhoicas/facturacion-sri/pkg/jwt"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	CompanyUC      *usecase.CompanyUseCase
	EmitUC         *billing.EmitUseCase
	DocumentsQuery *billing.DocumentQueryUseCase
	Metrics        nethttp.Handler // opcional: /metrics
	ServiceName    string
	JWTSecret      string
	JWTIssuer      string
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": deps.ServiceName})
	})
	if deps.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(deps.Metrics))
	}

	api := app.Group("/api", AuthMiddleware(deps.JWTSecret, deps.JWTIssuer))
	anyRole := RequireRole(jwt.RoleAdmin, jwt.RoleEmisor, jwt.RoleAuditor)
	writers := RequireRole(jwt.RoleAdmin, jwt.RoleEmisor)
	adminOnly := RequireRole(jwt.RoleAdmin)

	// Emisores
	companies := api.Group("/companies")
	companyHandler := NewCompanyHandler(deps.CompanyUC)
	companies.Post("/", adminOnly, companyHandler.Create)
	companies.Get("/:id", anyRole, companyHandler.GetByID)
	companies.Put("/:id/certificate", adminOnly, companyHandler.UpdateCertificate)

	// Comprobantes
	documents := api.Group("/documents")
	documentHandler := NewDocumentHandler(deps.EmitUC, deps.DocumentsQuery)
	documents.Post("/", writers, documentHandler.Emit)
	documents.Get("/", anyRole, documentHandler.List)
	documents.Get("/:id", anyRole, documentHandler.GetByID)
	documents.Get("/:id/xml", anyRole, documentHandler.XML)
	documents.Get("/:id/ride", anyRole, documentHandler.RIDE)
	documents.Get("/:id/notification", anyRole, documentHandler.Notification)
	documents.Post("/:id/credit-notes", writers, documentHandler.EmitCreditNote)
	documents.Post("/:id/process", writers, documentHandler.Process)

	api.Post("/redrive", adminOnly, documentHandler.Redrive)
}
