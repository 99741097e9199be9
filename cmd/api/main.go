package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"app/internal/archiver"
	"app/internal/config"
	"app/internal/domain/model"
	"app/internal/handler"
	"app/internal/infra/db"
	infraRepo "app/internal/infra/repository"
	"app/internal/server"
	"app/internal/usecase"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func newLogger(goEnv string) (*zap.Logger, error) {
	if goEnv == "prod" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

func main() {
	//.envは無くてもよい（本番は実環境変数）
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger, err := newLogger(cfg.GoEnv)
	if err != nil {
		panic(err)
	}
	zap.ReplaceGlobals(logger)
	defer logger.Sync()

	//DB接続
	gormDB, err := db.Connect(cfg.DSN())
	if err != nil {
		zap.L().Fatal("db connect failed", zap.Error(err))
	}
	if err := gormDB.AutoMigrate(
		&model.User{},
		&model.Product{},
		&model.Order{},
		&model.OrderItem{},
	); err != nil {
		zap.L().Fatal("migrate failed", zap.Error(err))
	}

	//Repository（GORM実装）生成
	productRepo := infraRepo.NewProductGormRepository(gormDB)
	orderRepo := infraRepo.NewOrderGormRepository(gormDB)
	userRepo := infraRepo.NewUserGormRepository(gormDB)
	txManager := infraRepo.NewTxManagerGorm(gormDB)

	//Usecase生成
	orderUC := usecase.NewOrderUsecase(txManager)
	productUC := usecase.NewProductUsecase(productRepo)
	userUC := usecase.NewUserUsecase(userRepo, txManager)

	//Handler生成
	orderH := handler.NewOrderHandler(orderUC)
	productH := handler.NewProductHandler(productUC)
	userH := handler.NewUserHandler(userUC)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	//アーカイブ常駐ループ（リクエスト処理とは独立）
	arch := archiver.New(orderRepo, cfg.ArchiveRetention, cfg.ArchiveInterval, cfg.ArchiveRetryInterval)
	go arch.Run(ctx)

	//Server起動
	srv := server.New(productH, orderH, userH)

	go func() {
		zap.L().Info("server starting", zap.String("port", cfg.Port))
		if err := srv.Start(":" + cfg.Port); err != nil {
			zap.L().Info("server stopped", zap.Error(err))
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zap.L().Error("shutdown failed", zap.Error(err))
	}
	zap.L().Info("bye")
}
