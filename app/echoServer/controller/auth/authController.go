// app/echoServer/controller/auth/authController.go
package auth

import (
	"log/slog"
	"net/http"

	"github.com/ivlisss/bookstore/model"
	authsvc "github.com/ivlisss/bookstore/service/auth"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

type Controller struct {
	Svc authsvc.Service
	V   *validator.Validate
	Log *slog.Logger
}

// Register a new user
// @Summary      Register user
// @Description  Register a new user with email/username uniqueness and validation
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        payload  body  model.RegisterReq  true  "Register payload"
// @Success      201  {object}  map[string]any
// @Failure      400  {object}  map[string]any
// @Failure      409  {object}  map[string]any "email/username already taken"
// @Failure      500  {object}  map[string]any "internal server error"
// @Router       /v1/users/register [post]
func (ct *Controller) Register(c echo.Context) error {
	var req model.RegisterReq

	// Bind
	if err := c.Bind(&req); err != nil {
		if ct.Log != nil {
			ct.Log.Warn("bind failed", "path", c.Path(), "err", err)
		}
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	// Validate
	if ct.V != nil {
		if err := ct.V.Struct(req); err != nil {
			if ct.Log != nil {
				ct.Log.Warn("validation failed", "path", c.Path(), "err", err)
			}
			return echo.NewHTTPError(http.StatusBadRequest, "validation error")
		}
	} else if err := c.Validate(&req); err != nil {
		if ct.Log != nil {
			ct.Log.Warn("validation failed", "path", c.Path(), "err", err)
		}
		return echo.NewHTTPError(http.StatusBadRequest, "validation error")
	}

	// Business logic
	u, _, err := ct.Svc.Register(c.Request().Context(), req)
	if err != nil {
		switch authsvc.Code(err) {
		case authsvc.ErrEmailTaken:
			return echo.NewHTTPError(http.StatusConflict, "email already registered")
		case authsvc.ErrUsernameTaken:
			return echo.NewHTTPError(http.StatusConflict, "username already taken")
		case authsvc.ErrInvalidCreds:
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid email or password")
		case authsvc.ErrBadInput:
			return echo.NewHTTPError(http.StatusBadRequest, "bad input")
		default:
			if ct.Log != nil {
				rid := c.Response().Header().Get(echo.HeaderXRequestID)
				ct.Log.Error("register failed",
					"err", err,
					"req_id", rid,
					"path", c.Path(),
					"method", c.Request().Method,
				)
			}
			return echo.NewHTTPError(http.StatusInternalServerError, "register failed")
		}
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"message": "registered",
		"user":    u,
	})
}

// Login
// @Summary      Login
// @Description  Login with email + password, returns JWT
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        payload  body  model.LoginReq  true  "Login payload"
// @Success      200  {object}  map[string]any
// @Failure      400  {object}  map[string]any
// @Failure      401  {object}  map[string]any
// @Failure      500  {object}  map[string]any
// @Router       /v1/users/login [post]
func (ct *Controller) Login(c echo.Context) error {
	var req model.LoginReq

	if err := c.Bind(&req); err != nil {
		if ct.Log != nil {
			ct.Log.Warn("bind failed", "path", c.Path(), "err", err)
		}
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	if ct.V != nil {
		if err := ct.V.Struct(req); err != nil {
			if ct.Log != nil {
				ct.Log.Warn("validation failed", "path", c.Path(), "err", err)
			}
			return echo.NewHTTPError(http.StatusBadRequest, "validation error")
		}
	} else if err := c.Validate(&req); err != nil {
		if ct.Log != nil {
			ct.Log.Warn("validation failed", "path", c.Path(), "err", err)
		}
		return echo.NewHTTPError(http.StatusBadRequest, "validation error")
	}

	_, token, err := ct.Svc.Login(c.Request().Context(), req)
	if err != nil {
		switch authsvc.Code(err) {
		case authsvc.ErrInvalidCreds:
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid email or password")
		case authsvc.ErrBadInput:
			if ct.Log != nil {
				ct.Log.Warn("bad input", "path", c.Path(), "err", err)
			}
			return echo.NewHTTPError(http.StatusBadRequest, "bad input")
		default:
			rid := c.Response().Header().Get(echo.HeaderXRequestID)
			if ct.Log != nil {
				ct.Log.Error("login failed",
					"err", err,
					"req_id", rid,
					"path", c.Path(),
					"method", c.Request().Method,
				)
			}
			return echo.NewHTTPError(http.StatusInternalServerError, "login failed")
		}

	}

	return c.JSON(http.StatusOK, echo.Map{
		"message": "login success",
		"token":   token,
	})
}

// Me returns the profile of the authenticated user
// @Summary      Get profile
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  model.User
// @Failure      401  {object}  map[string]any
// @Failure      404  {object}  map[string]any
// @Router       /v1/users/me [get]
func (ct *Controller) Me(c echo.Context) error {
	uid, _ := c.Get("user_id").(int64)

	u, err := ct.Svc.Profile(c.Request().Context(), uid)
	if err != nil {
		if authsvc.Code(err) == authsvc.ErrNotFound {
			return echo.NewHTTPError(http.StatusNotFound, "user not found")
		}
		if ct.Log != nil {
			ct.Log.Error("get profile failed", "err", err, "user_id", uid)
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "get profile failed")
	}

	return c.JSON(http.StatusOK, u)
}

// UpdateProfile updates contact and shipping details of the authenticated user
// @Summary      Update profile
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body  model.ProfileReq  true  "Profile payload"
// @Success      200  {object}  model.User
// @Failure      400  {object}  map[string]any
// @Failure      404  {object}  map[string]any
// @Router       /v1/users/me [put]
func (ct *Controller) UpdateProfile(c echo.Context) error {
	uid, _ := c.Get("user_id").(int64)

	var req model.ProfileReq
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if ct.V != nil {
		if err := ct.V.Struct(req); err != nil {
			if ct.Log != nil {
				ct.Log.Warn("validation failed", "path", c.Path(), "err", err)
			}
			return echo.NewHTTPError(http.StatusBadRequest, "validation error")
		}
	}

	u, err := ct.Svc.UpdateProfile(c.Request().Context(), uid, req)
	if err != nil {
		if authsvc.Code(err) == authsvc.ErrNotFound {
			return echo.NewHTTPError(http.StatusNotFound, "user not found")
		}
		if ct.Log != nil {
			ct.Log.Error("update profile failed", "err", err, "user_id", uid)
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "update profile failed")
	}

	return c.JSON(http.StatusOK, u)
}
