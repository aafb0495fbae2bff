// Package main bookstore API.
//
// @title           Bookstore API
// @version         1.0
// @description     Online bookstore service (catalog, cart, orders, back office).
// @BasePath        /
// @schemes         http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description  Use:  Bearer <JWT>
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/ivlisss/bookstore/app/echoServer"
	authctrl "github.com/ivlisss/bookstore/app/echoServer/controller/auth"
	bookctrl "github.com/ivlisss/bookstore/app/echoServer/controller/book"
	cartctrl "github.com/ivlisss/bookstore/app/echoServer/controller/cart"
	catalogctrl "github.com/ivlisss/bookstore/app/echoServer/controller/catalog"
	orderctrl "github.com/ivlisss/bookstore/app/echoServer/controller/order"
	"github.com/ivlisss/bookstore/app/echoServer/validation"
	"github.com/ivlisss/bookstore/config"
	"github.com/ivlisss/bookstore/events"
	bookrepo "github.com/ivlisss/bookstore/repository/book"
	cartrepo "github.com/ivlisss/bookstore/repository/cart"
	catalogrepo "github.com/ivlisss/bookstore/repository/catalog"
	orderrepo "github.com/ivlisss/bookstore/repository/order"
	userrepo "github.com/ivlisss/bookstore/repository/user"
	authsvc "github.com/ivlisss/bookstore/service/auth"
	booksvc "github.com/ivlisss/bookstore/service/book"
	cartsvc "github.com/ivlisss/bookstore/service/cart"
	catalogsvc "github.com/ivlisss/bookstore/service/catalog"
	ordersvc "github.com/ivlisss/bookstore/service/order"
	"github.com/ivlisss/bookstore/util/database"

	"github.com/go-playground/validator/v10"
	"github.com/go-redis/redis/v8"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

func main() {

	cfg := config.Load()
	ctx := context.Background()

	// logger
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	// DB: *sql.DB
	db, err := database.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("db connect failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	// Idempotency store. Disabled when REDIS_ADDR is empty.
	var idem ordersvc.IdemStore
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		idem = ordersvc.NewRedisIdemStore(rdb)
	}

	// Order event stream. No-op when KAFKA_BROKERS is empty.
	pub := events.NewPublisher(cfg.KafkaBrokers, log)
	defer pub.Close()

	// repos
	ur := userrepo.New(db)
	br := bookrepo.New(db)
	cr := cartrepo.New(db)
	or := orderrepo.New(db)
	ctr := catalogrepo.New(db)

	// services
	as := authsvc.New(ur, cfg.JWTSecret)
	bs := booksvc.New(br)
	cs := cartsvc.New(cr, br)
	cats := catalogsvc.New(ctr)
	ords := ordersvc.New(db, cr, br, or, idem, pub, ordersvc.Policy{
		DeliveryCost:    decimal.New(cfg.DeliveryCostCents, -2),
		RestockOnCancel: cfg.RestockOnCancel,
	})

	// controllers
	v := validator.New()
	authC := &authctrl.Controller{Svc: as, V: v, Log: log}
	bookC := &bookctrl.Controller{Svc: bs, V: v, Log: log}
	cartC := &cartctrl.Controller{Svc: cs, V: v, Log: log}
	catalogC := &catalogctrl.Controller{Svc: cats, V: v, Log: log}
	orderC := &orderctrl.Controller{Svc: ords, V: v, Log: log}

	// echo
	e := echo.New()
	echoServer.RegisterMiddlewares(e)
	e.Validator = validation.New()

	echoServer.Register(e, echoServer.C{
		Auth:      authC,
		Book:      bookC,
		Catalog:   catalogC,
		Cart:      cartC,
		Order:     orderC,
		JWTSecret: cfg.JWTSecret,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.Port
	}

	log.Info("starting server", "port", port, "env", cfg.Env)

	e.Logger.Fatal(e.Start(":" + port))
}
