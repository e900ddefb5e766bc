package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/trovoapp/family-qr/internal/model"
	"github.com/trovoapp/family-qr/internal/queue"
	"github.com/trovoapp/family-qr/internal/service"
)

// QrHandler exposes the slot allocation operations over HTTP.  All
// responses share the {"error": ..., "data": ...} envelope: exactly one of
// the two fields is non-null.
type QrHandler struct {
	Service *service.QrService // the allocation engine
}

// NewQrHandler constructs a QrHandler and panics if the service is nil.
func NewQrHandler(svc *service.QrService) *QrHandler {
	if svc == nil {
		panic("nil service passed to NewQrHandler")
	}
	return &QrHandler{Service: svc}
}

// GenerateBatch handles POST /v1/qr.  The body carries the shared API
// secret and an optional quantity; quantity may arrive as a JSON number or
// a numeric string and anything below 1 is coerced to 1.  On success it
// returns 200 with the effective quantity.
func (h *QrHandler) GenerateBatch(c echo.Context) error {
	var body struct {
		Auth     string `json:"auth"`
		Quantity any    `json:"quantity"`
	}
	if err := c.Bind(&body); err != nil {
		// An unreadable body carries no usable secret.
		return respondWithError(c, service.ErrUnauthorized)
	}
	quantity, err := h.Service.GenerateBatch(c.Request().Context(), body.Auth, parseQuantity(body.Quantity))
	if err != nil {
		return respondWithError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"error": nil,
		"data":  echo.Map{"status": "success", "quantity": quantity},
	})
}

// Get handles GET /v1/qr/:id.  Pure lookup of the stored snapshot.
func (h *QrHandler) Get(c echo.Context) error {
	qr, err := h.Service.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return respondWithError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"error": nil, "data": qr})
}

// Claim handles POST /v1/qr/:id/slots.  The body must carry the user id.
// On success it returns 201 with the authoritative post-write snapshot and
// publishes a scan event to the broker in the background.
func (h *QrHandler) Claim(c echo.Context) error {
	uid, err := bindUID(c)
	if err != nil {
		return respondWithError(c, service.ErrMissingUID)
	}
	qr, err := h.Service.Claim(c.Request().Context(), c.Param("id"), uid)
	if err != nil {
		return respondWithError(c, err)
	}
	publishScan(qr, uid, "claim")
	return c.JSON(http.StatusCreated, echo.Map{"error": nil, "data": qr})
}

// Release handles DELETE /v1/qr/:id/slots.  The body must carry the user
// id of the slot holder.  On success it returns 201 with the authoritative
// post-write snapshot.
func (h *QrHandler) Release(c echo.Context) error {
	uid, err := bindUID(c)
	if err != nil {
		return respondWithError(c, service.ErrMissingUID)
	}
	qr, err := h.Service.Release(c.Request().Context(), c.Param("id"), uid)
	if err != nil {
		return respondWithError(c, err)
	}
	publishScan(qr, uid, "release")
	return c.JSON(http.StatusCreated, echo.Map{"error": nil, "data": qr})
}

// bindUID extracts the uid field from the request body.  An unreadable
// body and an absent uid are treated alike: the caller never named a user.
func bindUID(c echo.Context) (string, error) {
	var body struct {
		UID string `json:"uid"`
	}
	if err := c.Bind(&body); err != nil {
		return "", err
	}
	return body.UID, nil
}

// parseQuantity accepts the quantity field in the shapes clients actually
// send: absent, a JSON number, or a numeric string.  Anything unparseable
// falls back to 0 and is coerced to 1 by the service.
func parseQuantity(v any) int {
	switch t := v.(type) {
	case float64:
		return int(t)
	case string:
		if n, err := strconv.Atoi(t); err == nil {
			return n
		}
	}
	return 0
}

// publishScan fans the latest scan event out to the broker.  Best effort:
// publishing runs in its own goroutine, failures are logged by the
// publisher and never affect the request that produced the event.
func publishScan(qr model.QrCode, uid, action string) {
	if len(qr.Scans) == 0 {
		return
	}
	last := qr.Scans[len(qr.Scans)-1]
	ev := queue.ScanRecordedEvent{
		QrID:      qr.ID,
		UID:       uid,
		Action:    action,
		ScanID:    last.ScanID,
		ScannedAt: last.ScannedAt.Format(time.RFC3339),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = service.PublishScanRecorded(ctx, ev)
	}()
}
