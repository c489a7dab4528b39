package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"google.golang.org/grpc"

	"barbook/internal/auth"
	"barbook/internal/catalog"
	"barbook/internal/cocktails"
	"barbook/internal/ingredients"
	"barbook/internal/rpc"
	"barbook/internal/settings"
	"barbook/pkg/config"
	"barbook/pkg/database"
	"barbook/pkg/logging"
	"barbook/pkg/models"
)

func main() {
	configPath := flag.String("config", config.DefaultPath, "YAML config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintln(os.Stderr, "grpc-server:", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	db, err := database.Open(database.Config{Path: cfg.DBPath})
	if err != nil {
		return err
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		return fmt.Errorf("db migrate: %w", err)
	}

	listener, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return fmt.Errorf("grpc listen: %w", err)
	}

	tokens := auth.TokenService{
		Secret:   []byte(cfg.Auth.JWTSecret),
		Issuer:   cfg.Auth.JWTIssuer,
		Duration: cfg.Auth.JWTDuration(),
	}
	settingsRepo := settings.NewRepo(db, models.Settings{BarName: "barbook", SearchThreshold: cfg.Search.Threshold})
	svc := rpc.NewServer(ingredients.NewRepo(db), cocktails.NewRepo(db), catalog.NewRepo(db), settingsRepo, logger)

	grpcServer := grpc.NewServer(grpc.UnaryInterceptor(rpc.AuthInterceptor(tokens, auth.NewRepo(db))))
	rpc.RegisterCatalogServer(grpcServer, svc)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		logger.Info("shutting down grpc server")
		grpcServer.GracefulStop()
	}()

	logger.Info("grpc server listening", zap.String("addr", cfg.GRPCAddr))
	if err := grpcServer.Serve(listener); err != nil {
		return fmt.Errorf("grpc serve: %w", err)
	}
	return nil
}
