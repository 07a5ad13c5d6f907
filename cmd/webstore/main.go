package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/MikeRez0/webstore/internal/adapter/auth"
	"github.com/MikeRez0/webstore/internal/adapter/cache"
	"github.com/MikeRez0/webstore/internal/adapter/client/notify"
	"github.com/MikeRez0/webstore/internal/adapter/config"
	"github.com/MikeRez0/webstore/internal/adapter/handler/http"
	"github.com/MikeRez0/webstore/internal/adapter/logger"
	"github.com/MikeRez0/webstore/internal/adapter/storage"
	"github.com/MikeRez0/webstore/internal/adapter/storage/memory"
	"github.com/MikeRez0/webstore/internal/adapter/storage/repository"
	"github.com/MikeRez0/webstore/internal/core/port"
	"github.com/MikeRez0/webstore/internal/core/service"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	conf, err := config.NewConfig()
	if err != nil {
		fmt.Printf("config error:%s", err)
		return
	}

	log := logger.NewLogger(conf.App)
	if log == nil {
		fmt.Printf("error creating log")
		return
	}
	defer func() {
		err := log.Sync()
		if err != nil {
			fmt.Printf("log error: %s", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tokenService, err := auth.New(conf.App.TokenKey)
	if err != nil {
		log.Error("token service creating error", zap.Error(err))
		return
	}

	var repo port.Repository
	if conf.Database.DSN != "" {
		db, err := storage.NewDBStorage(ctx, conf.Database)
		if err != nil {
			log.Error("database error", zap.Error(err))
			return
		}
		defer db.Close()
		err = db.RunMigrations()
		if err != nil {
			log.Error("database migration error", zap.Error(err))
			return
		}
		repo, err = repository.NewRepository(db)
		if err != nil {
			log.Error("order repo creating error", zap.Error(err))
			return
		}
	} else {
		if conf.App.Mode == config.AppModeProduction {
			log.Error("database dsn is required in production mode")
			return
		}
		log.Warn("no database configured, using in-memory storage")
		mem := memory.NewRepository()
		err = seedDemo(ctx, mem, tokenService, log.Named("Seed"))
		if err != nil {
			log.Error("demo data error", zap.Error(err))
			return
		}
		repo = mem
	}

	if conf.Redis.Address != "" {
		client := redis.NewClient(&redis.Options{Addr: conf.Redis.Address})
		defer client.Close()
		err = client.Ping(ctx).Err()
		if err != nil {
			log.Error("redis error", zap.Error(err))
			return
		}
		repo = cache.NewOrderCache(repo, client, conf.Redis.TTL, log.Named("Cache"))
	}

	writer := notify.NewWriter(conf.Notify, log.Named("Kafka"))
	dispatcher, err := notify.NewDispatcher(conf.Notify, writer, log.Named("Notify"))
	if err != nil {
		log.Error("notify dispatcher creating error", zap.Error(err))
		return
	}
	defer func() {
		err := dispatcher.Close()
		if err != nil {
			log.Error("notify writer close error", zap.Error(err))
		}
	}()
	dispatcher.Run(ctx, conf.Notify.Workers)

	orders, err := service.NewOrderService(repo, log.Named("Order service"))
	if err != nil {
		log.Error("order service creating error", zap.Error(err))
		return
	}
	payments, err := service.NewPaymentService(repo, dispatcher, log.Named("Payment service"))
	if err != nil {
		log.Error("payment service creating error", zap.Error(err))
		return
	}

	orderHandler, err := http.NewOrderHandler(orders, payments, log.Named("Order handler"))
	if err != nil {
		log.Error("order handler creating error", zap.Error(err))
		return
	}
	paymentHandler, err := http.NewPaymentHandler(payments, log.Named("Payment handler"))
	if err != nil {
		log.Error("payment handler creating error", zap.Error(err))
		return
	}

	r, err := http.NewRouter(tokenService, orderHandler, paymentHandler, log.Named("Router"))
	if err != nil {
		log.Error("router creating error", zap.Error(err))
		return
	}

	err = r.Serve(ctx, conf.HTTP.HostString)
	if err != nil {
		log.Error("router serve error", zap.Error(err))
		return
	}
}
