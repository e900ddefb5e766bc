// Package router defines how HTTP routes are registered for the API.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/trovoapp/family-qr/internal/handler"
)

// RegisterRoutes registers the health check on the provided Echo instance.
// The endpoint can be used by load balancers or monitoring systems to
// verify that the service is up and running.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterQr registers the QR code endpoints under /v1/qr.  The bare
// collection GET exists so a request that names no identifier at all is
// answered with the missing-id error instead of a framework 404.
func RegisterQr(e *echo.Echo, h *handler.QrHandler) {
	// Bulk generation, gated by the shared API secret in the body.
	e.POST("/v1/qr", h.GenerateBatch)
	// Lookup of a single code.
	e.GET("/v1/qr/:id", h.Get)
	e.GET("/v1/qr", h.Get)
	// Claim the first empty slot for the uid in the body.
	e.POST("/v1/qr/:id/slots", h.Claim)
	// Release the slot held by the uid in the body.
	e.DELETE("/v1/qr/:id/slots", h.Release)
}
