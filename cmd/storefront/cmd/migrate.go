package cmd

import (
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "データベースのマイグレーションを適用する",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, logger, st, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()

		logger.Info("マイグレーションが完了しました", "database", cfg.Database.Path)
		return nil
	},
}
