package echoServer

import (
	"net/http"

	"github.com/ivlisss/bookstore/app/echoServer/controller/auth"
	"github.com/ivlisss/bookstore/app/echoServer/controller/book"
	"github.com/ivlisss/bookstore/app/echoServer/controller/cart"
	"github.com/ivlisss/bookstore/app/echoServer/controller/catalog"
	"github.com/ivlisss/bookstore/app/echoServer/controller/order"
	"github.com/ivlisss/bookstore/app/echoServer/jwtx"

	"github.com/golang-jwt/jwt/v5"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	echoSwagger "github.com/swaggo/echo-swagger"
)

type C struct {
	Auth      *auth.Controller
	Book      *book.Controller
	Catalog   *catalog.Controller
	Cart      *cart.Controller
	Order     *order.Controller
	JWTSecret string
}

func Register(e *echo.Echo, c C) {
	e.GET("/health", func(ctx echo.Context) error {
		return ctx.JSON(http.StatusOK, echo.Map{"status": "ok"})
	})
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	// Public
	pub := e.Group("/v1")
	pub.POST("/users/register", c.Auth.Register)
	pub.POST("/users/login", c.Auth.Login)

	// Catalog browsing requires no session
	pub.GET("/books", c.Book.List)
	pub.GET("/books/:id", c.Book.Detail)
	pub.GET("/categories", c.Catalog.ListCategories)
	pub.GET("/authors", c.Catalog.ListAuthors)
	pub.GET("/publishers", c.Catalog.ListPublishers)

	// Auth
	authG := e.Group("/v1")
	authG.Use(echojwt.WithConfig(echojwt.Config{
		SigningKey:    []byte(c.JWTSecret),
		NewClaimsFunc: func(c echo.Context) jwt.Claims { return jwt.MapClaims{} },
		TokenLookup:   "header:Authorization",
	}))
	// user_id + role extraction for downstream handlers
	authG.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			uid, err := jwtx.UserIDFromContext(ctx)
			if err != nil {
				reqID := ctx.Response().Header().Get(echo.HeaderXRequestID)
				ctx.Logger().Warnf("[AUTH] %v req_id=%s ip=%s", err, reqID, ctx.RealIP())
				return ctx.JSON(http.StatusUnauthorized, echo.Map{"message": "unauthorized"})
			}
			ctx.Set("user_id", uid)
			if role, err := jwtx.RoleFromContext(ctx); err == nil {
				ctx.Set("role", role)
			}
			return next(ctx)
		}
	})

	// Profile
	authG.GET("/users/me", c.Auth.Me)
	authG.PUT("/users/me", c.Auth.UpdateProfile)

	// Cart
	authG.GET("/cart", c.Cart.Get)
	authG.POST("/cart/add_item", c.Cart.AddItem)
	authG.POST("/cart/update_item", c.Cart.UpdateItem)
	authG.POST("/cart/remove_item", c.Cart.RemoveItem)
	authG.POST("/cart/clear", c.Cart.Clear)
	authG.DELETE("/cart/items/:id", c.Cart.RemoveItemByID)

	// Orders
	authG.POST("/orders", c.Order.Checkout)
	authG.GET("/orders", c.Order.ListMine)
	authG.GET("/orders/:id", c.Order.GetMine)
	authG.POST("/orders/:id/cancel", c.Order.Cancel)

	// Admin: catalog management
	authG.POST("/books", c.Book.Create)
	authG.PUT("/books/:id", c.Book.Update)
	authG.DELETE("/books/:id", c.Book.Delete)
	authG.POST("/categories", c.Catalog.CreateCategory)
	authG.DELETE("/categories/:id", c.Catalog.DeleteCategory)
	authG.POST("/authors", c.Catalog.CreateAuthor)
	authG.DELETE("/authors/:id", c.Catalog.DeleteAuthor)
	authG.POST("/publishers", c.Catalog.CreatePublisher)
	authG.DELETE("/publishers/:id", c.Catalog.DeletePublisher)

	// Admin: back office
	adm := authG.Group("/admin", adminOnly)
	adm.GET("/orders", c.Order.ListAll)
	adm.PUT("/orders/:id/status", c.Order.UpdateStatus)
	adm.GET("/stats", c.Order.Stats)
}

func adminOnly(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		if role, _ := ctx.Get("role").(string); role != "admin" {
			return ctx.JSON(http.StatusForbidden, echo.Map{"message": "admin only"})
		}
		return next(ctx)
	}
}
