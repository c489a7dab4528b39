package main

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"barbook/internal/auth"
	"barbook/internal/catalog"
	"barbook/internal/cocktails"
	"barbook/internal/events"
	"barbook/internal/ingredients"
	"barbook/internal/printcard"
	"barbook/internal/settings"
	"barbook/internal/transfer"
	"barbook/pkg/config"
	"barbook/pkg/logging"
	"barbook/pkg/models"
)

type app struct {
	cfg config.Config
	db  *sql.DB
	hub *events.Hub
	log *zap.Logger
}

func (a *app) tokens() auth.TokenService {
	return auth.TokenService{
		Secret:   []byte(a.cfg.Auth.JWTSecret),
		Issuer:   a.cfg.Auth.JWTIssuer,
		Duration: a.cfg.Auth.JWTDuration(),
	}
}

func (a *app) router() *gin.Engine {
	r := gin.New()
	r.Use(logging.GinLogger(a.log), gin.Recovery())
	_ = r.SetTrustedProxies([]string{"127.0.0.1"})

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ready", func(c *gin.Context) {
		stats := a.hub.Stats()
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := a.db.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":      "not_ready",
				"db_error":    err.Error(),
				"tcp_clients": stats.TCPClients,
				"ws_clients":  stats.WSClients,
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":      "ready",
			"db":          "ok",
			"tcp_clients": stats.TCPClients,
			"ws_clients":  stats.WSClients,
		})
	})

	r.GET("/debug", func(c *gin.Context) {
		stats := a.hub.Stats()
		c.JSON(http.StatusOK, gin.H{
			"db":          a.cfg.DBPath,
			"sync_addr":   a.cfg.SyncAddr,
			"tcp_clients": stats.TCPClients,
			"ws_clients":  stats.WSClients,
		})
	})

	r.GET("/ws", events.WSHandler(a.hub, a.log))

	tokens := a.tokens()
	authRepo := auth.NewRepo(a.db)
	authHandler := auth.NewHandler(authRepo, tokens, a.log)
	authHandler.RegisterRoutes(r.Group("/auth"))

	protected := auth.AuthMiddleware(tokens, authRepo)
	authHandler.RegisterUserRoutes(r.Group("/users", protected))
	auth.NewAdminHandler(authRepo, a.cfg.Auth.InviteDuration(), a.log).
		RegisterRoutes(r.Group("/admin", protected, auth.RequireRole(models.RoleAdmin)))

	settingsRepo := settings.NewRepo(a.db, models.Settings{BarName: "barbook", SearchThreshold: a.cfg.Search.Threshold})
	ingRepo := ingredients.NewRepo(a.db)
	cocktailRepo := cocktails.NewRepo(a.db)
	layoutRepo := printcard.NewRepo(a.db)

	ingredients.NewHandler(ingRepo, a.hub, settingsRepo, a.log).RegisterRoutes(r.Group("/ingredients", protected))
	cocktails.NewHandler(cocktailRepo, a.hub, settingsRepo, a.log).RegisterRoutes(r.Group("/cocktails", protected))
	catalog.NewHandler(catalog.NewRepo(a.db), a.hub, a.log).RegisterRoutes(r.Group("/catalog", protected))
	printcard.NewHandler(layoutRepo, cocktailRepo, settingsRepo, a.hub, a.log).RegisterRoutes(r.Group("/print", protected))
	settings.NewHandler(settingsRepo, layoutRepo, a.hub, a.log).RegisterRoutes(r.Group("/settings", protected))
	transfer.NewHandler(transfer.New(ingRepo, cocktailRepo, a.log), a.hub).RegisterRoutes(r.Group("/transfer", protected))

	return r
}
