// Admin CRUD for categories, authors and publishers.
package catalog

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/ivlisss/bookstore/model"
	catalogsvc "github.com/ivlisss/bookstore/service/catalog"
)

type Controller struct {
	Svc catalogsvc.Service
	V   *validator.Validate
	Log *slog.Logger
}

type CategoryReq struct {
	Name        string `json:"name" validate:"required"`
	Slug        string `json:"slug" validate:"required"`
	Description string `json:"description"`
}

type AuthorReq struct {
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name" validate:"required"`
	Bio       string `json:"bio"`
	Website   string `json:"website" validate:"omitempty,url"`
}

type PublisherReq struct {
	Name    string `json:"name" validate:"required"`
	Address string `json:"address"`
	Website string `json:"website" validate:"omitempty,url"`
}

func isAdmin(c echo.Context) bool {
	role, _ := c.Get("role").(string)
	return role == "admin"
}

// POST /v1/categories  (admin)
func (h *Controller) CreateCategory(c echo.Context) error {
	if !isAdmin(c) {
		return c.JSON(http.StatusForbidden, echo.Map{"message": "forbidden"})
	}
	var req CategoryReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid json"})
	}
	if err := h.V.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "validation error", "errors": err.Error()})
	}
	cat := &model.Category{Name: req.Name, Slug: req.Slug, Description: req.Description}
	if err := h.Svc.CreateCategory(c.Request().Context(), cat); err != nil {
		return h.fail(c, "category create", err)
	}
	return c.JSON(http.StatusCreated, cat)
}

// GET /v1/categories
func (h *Controller) ListCategories(c echo.Context) error {
	rows, err := h.Svc.ListCategories(c.Request().Context())
	if err != nil {
		return h.fail(c, "category list", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"data": rows})
}

// DELETE /v1/categories/:id  (admin)
func (h *Controller) DeleteCategory(c echo.Context) error {
	return h.delete(c, h.Svc.DeleteCategory)
}

// POST /v1/authors  (admin)
func (h *Controller) CreateAuthor(c echo.Context) error {
	if !isAdmin(c) {
		return c.JSON(http.StatusForbidden, echo.Map{"message": "forbidden"})
	}
	var req AuthorReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid json"})
	}
	if err := h.V.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "validation error", "errors": err.Error()})
	}
	a := &model.Author{FirstName: req.FirstName, LastName: req.LastName, Bio: req.Bio, Website: req.Website}
	if err := h.Svc.CreateAuthor(c.Request().Context(), a); err != nil {
		return h.fail(c, "author create", err)
	}
	return c.JSON(http.StatusCreated, a)
}

// GET /v1/authors
func (h *Controller) ListAuthors(c echo.Context) error {
	rows, err := h.Svc.ListAuthors(c.Request().Context())
	if err != nil {
		return h.fail(c, "author list", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"data": rows})
}

// DELETE /v1/authors/:id  (admin)
func (h *Controller) DeleteAuthor(c echo.Context) error {
	return h.delete(c, h.Svc.DeleteAuthor)
}

// POST /v1/publishers  (admin)
func (h *Controller) CreatePublisher(c echo.Context) error {
	if !isAdmin(c) {
		return c.JSON(http.StatusForbidden, echo.Map{"message": "forbidden"})
	}
	var req PublisherReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid json"})
	}
	if err := h.V.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "validation error", "errors": err.Error()})
	}
	p := &model.Publisher{Name: req.Name, Address: req.Address, Website: req.Website}
	if err := h.Svc.CreatePublisher(c.Request().Context(), p); err != nil {
		return h.fail(c, "publisher create", err)
	}
	return c.JSON(http.StatusCreated, p)
}

// GET /v1/publishers
func (h *Controller) ListPublishers(c echo.Context) error {
	rows, err := h.Svc.ListPublishers(c.Request().Context())
	if err != nil {
		return h.fail(c, "publisher list", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"data": rows})
}

// DELETE /v1/publishers/:id  (admin)
func (h *Controller) DeletePublisher(c echo.Context) error {
	return h.delete(c, h.Svc.DeletePublisher)
}

func (h *Controller) delete(c echo.Context, fn func(ctx context.Context, id int64) error) error {
	if !isAdmin(c) {
		return c.JSON(http.StatusForbidden, echo.Map{"message": "forbidden"})
	}
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	if err := fn(c.Request().Context(), id); err != nil {
		return h.fail(c, "catalog delete", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "deleted"})
}

func (h *Controller) fail(c echo.Context, op string, err error) error {
	switch {
	case errors.Is(err, catalogsvc.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"message": "not found"})
	case errors.Is(err, catalogsvc.ErrBadInput):
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "bad input"})
	default:
		h.Log.Error(op, "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
}
