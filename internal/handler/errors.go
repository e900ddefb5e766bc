package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/trovoapp/family-qr/internal/service"
)

// qrErrors maps every taxonomy sentinel of the allocation service onto an
// HTTP status and a human-readable message.  The machine-readable code in
// the response body is the sentinel's own message and is stable; only the
// text here is free to change.
var qrErrors = map[error]struct {
	Status  int
	Message string
}{
	service.ErrUnauthorized:      {http.StatusUnauthorized, "API secret missing or incorrect"},
	service.ErrMissingID:         {http.StatusBadRequest, "no QR code supplied"},
	service.ErrInvalidID:         {http.StatusBadRequest, "invalid QR code"},
	service.ErrNotFound:          {http.StatusNotFound, "QR code not found"},
	service.ErrMissingUID:        {http.StatusBadRequest, "no user id supplied"},
	service.ErrAlreadyRegistered: {http.StatusForbidden, "user already linked to this code"},
	service.ErrNoSlotsAvailable:  {http.StatusForbidden, "no family slots available"},
	service.ErrUserNotRegistered: {http.StatusNotFound, "user not linked to this code"},
}

// respondWithError writes the envelope for a failed operation.  Taxonomy
// errors translate via qrErrors; anything else (store failures, exhausted
// write retries) is logged and surfaced as a generic internal error, never
// silently swallowed.
func respondWithError(c echo.Context, err error) error {
	for sentinel, meta := range qrErrors {
		if errors.Is(err, sentinel) {
			return c.JSON(meta.Status, echo.Map{
				"error": echo.Map{"code": sentinel.Error(), "message": meta.Message},
				"data":  nil,
			})
		}
	}
	log.Printf("qr-handler: unexpected error: %v", err)
	return c.JSON(http.StatusInternalServerError, echo.Map{
		"error": echo.Map{"code": "internal/unexpected", "message": "unexpected internal error"},
		"data":  nil,
	})
}
