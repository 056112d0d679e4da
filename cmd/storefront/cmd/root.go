// Package cmd はstorefrontコマンドのサブコマンドを実装する。
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/nao1215/storefront/internal/config"
	"github.com/nao1215/storefront/internal/logging"
	"github.com/nao1215/storefront/internal/store"
	"github.com/spf13/cobra"
)

// configPath は--configフラグで指定された設定ファイルのパス。
var configPath string

var rootCmd = &cobra.Command{
	Use:   "storefront",
	Short: "ストアフロントAPIサーバー",
	Long: `storefrontは顧客向け（/cust-api）と管理者向け（/adm-api）のAPIを提供するHTTPサーバーです。

設定は環境変数（STOREFRONT_*）、設定ファイル、.envファイルの順に読み込みます。`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "設定ファイルのパス（省略時は ./storefront.yaml）")
	rootCmd.AddCommand(serveCmd, migrateCmd, createAdminCmd, healthcheckCmd)
}

// Execute はルートコマンドを実行する。
func Execute() error {
	return rootCmd.Execute()
}

// bootstrap は設定の読み込み、ロガーの設定、データベースへの接続とマイグレーションを順に行う。
// 返されたStoreは呼び出し側で閉じる。
func bootstrap(ctx context.Context) (*config.Config, *slog.Logger, *store.Store, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, err
	}
	logger := logging.Setup(os.Stderr, cfg.Server.LogLevel, cfg.IsProduction())

	st, err := store.Open(ctx, cfg.Database.Path, logger)
	if err != nil {
		return nil, nil, nil, err
	}
	applied, err := st.Migrate(ctx)
	if err != nil {
		_ = st.Close()
		return nil, nil, nil, fmt.Errorf("マイグレーションに失敗: %w", err)
	}
	if applied > 0 {
		logger.Info("マイグレーションを適用しました", "count", applied)
	}
	return cfg, logger, st, nil
}
