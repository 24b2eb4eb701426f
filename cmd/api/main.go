package main

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"stockroom/internal/config"
	"stockroom/internal/handler"
	"stockroom/internal/infra/db"
	infraRepo "stockroom/internal/infra/repository"
	"stockroom/internal/obs"
	"stockroom/internal/server"
	"stockroom/internal/usecase"

	"github.com/joho/godotenv"
)

func main() {
	if err := run(); err != nil {
		obs.Logger.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func run() error {
	//.envは無くてもよい
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	obs.InitLogger(cfg.LogLevel)
	obs.Logger.Info("config loaded", "env", cfg.GoEnv, "seed_catalog", cfg.SeedCatalog)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	//DB接続
	gormDB, err := db.Connect(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(gormDB); err != nil {
			obs.Logger.Warn("close db", "err", err)
		}
	}()

	if err := db.Migrate(ctx, gormDB); err != nil {
		return err
	}
	if cfg.SeedCatalog {
		n, err := db.Seed(ctx, gormDB)
		if err != nil {
			return err
		}
		if n > 0 {
			obs.Logger.Info("seeded catalog", "products", n)
		}
	}

	//Repository（GORM実装）生成
	repos := infraRepo.NewRepos(gormDB)
	txm := infraRepo.NewTxManagerGorm(gormDB)

	//Usecase生成
	productUC := usecase.NewProductUsecase(repos.Products(), repos.Inventory(), txm)
	orderUC := usecase.NewOrderUsecase(txm)

	sqlDB, err := gormDB.DB()
	if err != nil {
		return err
	}

	//Handler生成
	e := server.New(cfg, server.Handlers{
		Health:       handler.NewHealthHandler(sqlDB),
		Products:     handler.NewProductHandler(productUC),
		AdminProduct: handler.NewAdminProductHandler(productUC),
		Orders:       handler.NewOrderHandler(orderUC),
	})

	if cfg.AdminJWTSecret == "" {
		obs.Logger.Warn("ADMIN_JWT_SECRET is empty; product mutations are not authenticated")
	}

	//Server起動
	return server.Run(ctx, e, cfg.ListenAddr(), cfg.ShutdownTimeout)
}
