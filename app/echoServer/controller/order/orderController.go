package order

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/ivlisss/bookstore/model"
	osvc "github.com/ivlisss/bookstore/service/order"
)

type Controller struct {
	Svc osvc.Service
	V   *validator.Validate
	Log *slog.Logger
}

// Checkout converts the cart into an order
// @Summary      Checkout
// @Description  Convert the caller's cart into an order, decrementing stock atomically
// @Tags         orders
// @Accept       json
// @Produce      json
// @Param        payload  body  CheckoutReq  true  "Checkout payload"
// @Param        Idempotency-Key  header  string  false  "Optional duplicate-submit guard"
// @Success      201  {object}  model.Order
// @Failure      400  {object}  map[string]any "empty cart / validation / insufficient stock"
// @Failure      409  {object}  map[string]any "duplicate idempotency key"
// @Router       /v1/orders [post]
func (h *Controller) Checkout(c echo.Context) error {
	var req CheckoutReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid JSON"})
	}
	if err := h.V.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "validation error", "errors": err.Error()})
	}
	uid, _ := c.Get("user_id").(int64)

	o, err := h.Svc.Checkout(c.Request().Context(), uid, osvc.CheckoutInput{
		DeliveryMethod:  model.DeliveryMethod(req.DeliveryMethod),
		ShippingAddress: req.ShippingAddress,
		IdempotencyKey:  c.Request().Header.Get("Idempotency-Key"),
	})
	if err != nil {
		return h.fail(c, "checkout", err)
	}
	return c.JSON(http.StatusCreated, o)
}

// GET /v1/orders
func (h *Controller) ListMine(c echo.Context) error {
	uid, _ := c.Get("user_id").(int64)
	orders, err := h.Svc.ListMine(c.Request().Context(), uid)
	if err != nil {
		h.Log.Error("order list", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"data": orders})
}

// GET /v1/orders/:id
func (h *Controller) GetMine(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	uid, _ := c.Get("user_id").(int64)

	o, err := h.Svc.GetMine(c.Request().Context(), uid, id)
	if err != nil {
		return h.fail(c, "order get", err)
	}
	return c.JSON(http.StatusOK, o)
}

// POST /v1/orders/:id/cancel
func (h *Controller) Cancel(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	uid, _ := c.Get("user_id").(int64)

	o, err := h.Svc.Cancel(c.Request().Context(), uid, id)
	if err != nil {
		return h.fail(c, "order cancel", err)
	}
	return c.JSON(http.StatusOK, o)
}

// PUT /v1/admin/orders/:id/status  (admin)
func (h *Controller) UpdateStatus(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	var req UpdateStatusReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid JSON"})
	}
	if err := h.V.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "validation error", "errors": err.Error()})
	}

	o, err := h.Svc.UpdateStatus(c.Request().Context(), id, model.OrderStatus(req.Status))
	if err != nil {
		return h.fail(c, "order status update", err)
	}
	return c.JSON(http.StatusOK, o)
}

// GET /v1/admin/orders  (admin)
func (h *Controller) ListAll(c echo.Context) error {
	status := model.OrderStatus(c.QueryParam("status"))
	orders, err := h.Svc.ListAll(c.Request().Context(), status)
	if err != nil {
		return h.fail(c, "admin order list", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"data": orders})
}

// GET /v1/admin/stats  (admin)
func (h *Controller) Stats(c echo.Context) error {
	stats, err := h.Svc.Stats(c.Request().Context())
	if err != nil {
		h.Log.Error("admin stats", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	return c.JSON(http.StatusOK, stats)
}

func (h *Controller) fail(c echo.Context, op string, err error) error {
	switch osvc.Code(err) {
	case osvc.ErrNotFound:
		return c.JSON(http.StatusNotFound, echo.Map{"message": "order not found"})
	case osvc.ErrEmptyCart:
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "cart is empty"})
	case osvc.ErrValidation:
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "validation error"})
	case osvc.ErrInvalidTransition:
		return c.JSON(http.StatusConflict, echo.Map{"message": "invalid status transition"})
	case osvc.ErrDuplicateRequest:
		return c.JSON(http.StatusConflict, echo.Map{"message": "duplicate request"})
	case osvc.ErrNoStock:
		var se *osvc.StockError
		if errors.As(err, &se) {
			return c.JSON(http.StatusBadRequest, echo.Map{
				"message":   "insufficient stock",
				"book_id":   se.BookID,
				"requested": se.Requested,
				"available": se.Available,
			})
		}
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "insufficient stock"})
	default:
		h.Log.Error(op, "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
}
