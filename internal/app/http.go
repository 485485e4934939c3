package app

import (
	"context"

	"github.com/gin-gonic/gin"

	"library-web/internal/config"
	"library-web/internal/middleware"
	"library-web/internal/session"
	"library-web/internal/web"
)

func setupHTTP(ctx context.Context, cfg config.Config) (*gin.Engine, func() error, error) {
	infra, err := setupInfra(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	sessions := middleware.NewSessions(infra.Sessions, session.CookieOptions{
		Secure:   cfg.CookieSecure,
		SameSite: cfg.CookieSameSite,
	}, cfg.SessionTTL)

	handler := web.NewHandler(infra.Library, sessions)

	gin.SetMode(cfg.GinMode)
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger())

	handler.RegisterRoutes(router)

	return router, infra.Close, nil
}
