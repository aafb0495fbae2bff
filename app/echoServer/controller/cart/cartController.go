package cart

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	cs "github.com/ivlisss/bookstore/service/cart"
)

type Controller struct {
	Svc cs.Service
	V   *validator.Validate
	Log *slog.Logger
}

// GET /v1/cart
func (h *Controller) Get(c echo.Context) error {
	uid, _ := c.Get("user_id").(int64)
	view, err := h.Svc.Get(c.Request().Context(), uid)
	if err != nil {
		h.Log.Error("cart get", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	return c.JSON(http.StatusOK, view)
}

// POST /v1/cart/add_item
func (h *Controller) AddItem(c echo.Context) error {
	var req AddItemReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid JSON"})
	}
	if err := h.V.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "validation error", "errors": err.Error()})
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	uid, _ := c.Get("user_id").(int64)

	view, err := h.Svc.AddItem(c.Request().Context(), uid, req.BookID, req.Quantity)
	if err != nil {
		return h.fail(c, "cart add_item", err)
	}
	return c.JSON(http.StatusOK, view)
}

// POST /v1/cart/update_item
func (h *Controller) UpdateItem(c echo.Context) error {
	var req UpdateItemReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid JSON"})
	}
	if err := h.V.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "validation error", "errors": err.Error()})
	}
	uid, _ := c.Get("user_id").(int64)

	view, err := h.Svc.UpdateItemQuantity(c.Request().Context(), uid, req.BookID, req.Quantity)
	if err != nil {
		return h.fail(c, "cart update_item", err)
	}
	return c.JSON(http.StatusOK, view)
}

// POST /v1/cart/remove_item
func (h *Controller) RemoveItem(c echo.Context) error {
	var req RemoveItemReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid JSON"})
	}
	if err := h.V.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "validation error", "errors": err.Error()})
	}
	uid, _ := c.Get("user_id").(int64)

	view, err := h.Svc.RemoveItem(c.Request().Context(), uid, req.BookID)
	if err != nil {
		return h.fail(c, "cart remove_item", err)
	}
	return c.JSON(http.StatusOK, view)
}

// DELETE /v1/cart/items/:id
func (h *Controller) RemoveItemByID(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	uid, _ := c.Get("user_id").(int64)

	view, err := h.Svc.RemoveItemByID(c.Request().Context(), uid, id)
	if err != nil {
		return h.fail(c, "cart remove item", err)
	}
	return c.JSON(http.StatusOK, view)
}

// POST /v1/cart/clear
func (h *Controller) Clear(c echo.Context) error {
	uid, _ := c.Get("user_id").(int64)
	if err := h.Svc.Clear(c.Request().Context(), uid); err != nil {
		h.Log.Error("cart clear", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "cart cleared"})
}

func (h *Controller) fail(c echo.Context, op string, err error) error {
	switch cs.Code(err) {
	case cs.ErrBookNotFound:
		return c.JSON(http.StatusNotFound, echo.Map{"message": "book not found"})
	case cs.ErrItemNotFound:
		return c.JSON(http.StatusNotFound, echo.Map{"message": "cart item not found"})
	case cs.ErrBadQuantity:
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "quantity must be positive"})
	case cs.ErrNoStock:
		var se *cs.StockError
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
