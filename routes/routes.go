package routes

import (
	"github.com/ahmed-abdelmageed/vise-services-sub001/controllers"
	"github.com/ahmed-abdelmageed/vise-services-sub001/middlewares"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Register wires all HTTP routes.
func Register(app *fiber.App, ctl *controllers.Controller, db *gorm.DB, log *zap.Logger) {
	app.Get("/health", controllers.Health)

	api := app.Group("/api")

	// Public catalog and wizard
	api.Get("/services", ctl.GetServices)
	api.Get("/services/:id", ctl.GetService)
	api.Post("/services/:id/quote", ctl.QuoteService)
	api.Post("/applications/validate", ctl.ValidateApplication)
	api.Post("/applications", middlewares.Idempotency(db), ctl.SubmitApplication)
	api.Get("/applications/track/:reference", ctl.TrackApplication)

	if ctl.Drafts != nil {
		api.Put("/drafts/:id", ctl.SaveDraft)
		api.Get("/drafts/:id", ctl.GetDraft)
		api.Delete("/drafts/:id", ctl.DeleteDraft)
	}

	// Gateway facing
	api.Get("/payments/:paymentId/status", ctl.PaymentStatus)
	api.Post("/payments/callback", ctl.PaymentCallback)

	// Protected endpoints (JWT auth)
	protected := api.Group("", middlewares.IsAuthenticatedHeader())

	// Idempotency guard FIRST (not tied to request TX)
	protected.Use(middlewares.Idempotency(db))

	me := protected.Group("/me", middlewares.RequireRole(middlewares.RoleClient, middlewares.RoleAdmin))
	me.Get("/applications", ctl.MyApplications)
	me.Get("/invoices", ctl.MyInvoices)

	protected.Post("/invoices/:id/pay", middlewares.RequireRole(middlewares.RoleClient, middlewares.RoleAdmin), ctl.PayInvoice)
	protected.Get("/applications/:id/documents", middlewares.RequireRole(middlewares.RoleClient, middlewares.RoleAdmin), ctl.GetClientDocuments)

	// Admin; then per-request transaction (commits/rolls back)
	admin := protected.Group("/admin", middlewares.RequireRole(middlewares.RoleAdmin))
	admin.Get("/dashboard", ctl.Dashboard)

	// Catalog
	admin.Get("/services", ctl.AdminGetServices)
	admin.Post("/services", ctl.CreateService)
	admin.Put("/services/:id", ctl.UpdateService)
	admin.Delete("/services/:id", ctl.DisableService)

	tx := admin.Group("", middlewares.RequestTx(db, log))

	// Applications
	tx.Get("/applications", ctl.GetApplications)
	tx.Get("/applications/:id", ctl.GetApplication)
	tx.Put("/applications/:id/status", ctl.UpdateApplicationStatus)
	tx.Delete("/applications/:id", ctl.DeleteApplication)
	tx.Delete("/applications/:id/files/:kind/:index", ctl.DeleteApplicationFile)

	// Client documents
	tx.Get("/applications/:id/documents", ctl.GetClientDocuments)
	tx.Post("/applications/:id/documents", ctl.UploadClientDocument)
	tx.Delete("/documents/:id", ctl.DeleteClientDocument)

	// Invoices
	tx.Put("/invoices/status", ctl.BulkUpdateInvoiceStatus)
	tx.Post("/invoices", ctl.CreateInvoice)
	tx.Get("/invoices", ctl.GetInvoices)
	tx.Get("/invoices/:id", ctl.GetInvoice)
	tx.Put("/invoices/:id/status", ctl.UpdateInvoiceStatus)
	tx.Delete("/invoices/:id", ctl.DeleteInvoice)
}
