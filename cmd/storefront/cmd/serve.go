package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/storefront/internal/revocation"
	"github.com/nao1215/storefront/internal/server"
	"github.com/nao1215/storefront/pkg/auth"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "HTTPサーバーを起動する",
	Long:  "設定、データベース、ルーティングの順に初期化してからリッスンを開始します。SIGINT/SIGTERMでグレースフルに停止します。",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		cfg, logger, st, err := bootstrap(ctx)
		if err != nil {
			return err
		}
		defer func() {
			if err := st.Close(); err != nil {
				logger.Error("データベースの切断に失敗しました", "error", err)
			}
		}()

		if cfg.IsProduction() {
			gin.SetMode(gin.ReleaseMode)
		}

		revocations, err := revocation.New(revocation.Config{
			RedisAddr:     cfg.Redis.Addr,
			RedisPassword: cfg.Redis.Password,
			RedisDB:       cfg.Redis.DB,
		})
		if err != nil {
			return fmt.Errorf("トークン失効ストアの初期化に失敗: %w", err)
		}
		defer func() {
			if err := revocations.Close(); err != nil {
				logger.Error("トークン失効ストアの切断に失敗しました", "error", err)
			}
		}()

		pingCtx, cancel := context.WithTimeout(ctx, cfg.Auth.RevocationTimeout)
		err = revocations.Ping(pingCtx)
		cancel()
		if err != nil {
			return fmt.Errorf("トークン失効ストアに接続できません: %w", err)
		}

		tokens, err := auth.NewTokenService(auth.TokenConfig{
			AccessSecret:  cfg.Auth.AccessTokenSecret,
			RefreshSecret: cfg.Auth.RefreshTokenSecret,
			AccessTTL:     cfg.Auth.AccessTokenTTL,
			RefreshTTL:    cfg.Auth.RefreshTokenTTL,
			Issuer:        cfg.Auth.Issuer,
		})
		if err != nil {
			return fmt.Errorf("トークンサービスの初期化に失敗: %w", err)
		}

		srv, err := server.New(cfg, server.Deps{
			Store:       st,
			Tokens:      tokens,
			Revocations: revocations,
			Passwords:   auth.NewBcryptHasher(cfg.Auth.BcryptCost),
			Logger:      logger,
		})
		if err != nil {
			return fmt.Errorf("サーバーの初期化に失敗: %w", err)
		}
		logger.Info("ルーティングを設定しました", "routes", len(srv.Bindings()))

		return srv.Run(ctx)
	},
}
