package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/nao1215/storefront/pkg/httpclient"
	"github.com/spf13/cobra"
)

var (
	healthcheckURL     string
	healthcheckTimeout time.Duration
)

// healthResponse は/healthのレスポンス。
type healthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

var healthcheckCmd = &cobra.Command{
	Use:   "healthcheck",
	Short: "稼働中のサーバーの/healthを確認する",
	Long:  "コンテナのHEALTHCHECKなどから使用します。サーバーが正常でなければ0以外で終了します。",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), healthcheckTimeout)
		defer cancel()

		var resp healthResponse
		if err := httpclient.New(healthcheckURL, healthcheckTimeout).GetJSON(ctx, "/health", &resp); err != nil {
			return fmt.Errorf("ヘルスチェックに失敗: %w", err)
		}
		if resp.Status != "ok" {
			return fmt.Errorf("サーバーが正常ではありません: status=%s", resp.Status)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", resp.Service, resp.Status)
		return nil
	},
}

func init() {
	healthcheckCmd.Flags().StringVar(&healthcheckURL, "url", "http://127.0.0.1:8080", "サーバーのベースURL")
	healthcheckCmd.Flags().DurationVar(&healthcheckTimeout, "timeout", 5*time.Second, "タイムアウト")
}
