package cmd

import (
	"errors"
	"fmt"

	"github.com/nao1215/storefront/internal/store"
	"github.com/nao1215/storefront/pkg/auth"
	"github.com/spf13/cobra"
)

var (
	adminEmail    string
	adminPassword string
	adminName     string
)

var createAdminCmd = &cobra.Command{
	Use:   "create-admin",
	Short: "管理者ユーザーを作成する",
	Long: `管理者ユーザーを作成します。
同じメールアドレスのユーザーが既に存在する場合は、そのユーザーにadminロールを追加します。
パスワードは新規作成時のみ使用します。`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if len(adminPassword) < 8 || len(adminPassword) > 72 {
			return errors.New("パスワードは8文字以上72文字以下で指定してください")
		}

		ctx := cmd.Context()
		cfg, logger, st, err := bootstrap(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		existing, err := st.GetUserByEmail(ctx, adminEmail)
		switch {
		case err == nil:
			roles := existing.Roles.Slice()
			user, err := st.UpdateUserRoles(ctx, existing.ID, auth.NewRoleSet(append(roles, auth.RoleAdmin)...))
			if err != nil {
				return fmt.Errorf("ロールの更新に失敗: %w", err)
			}
			logger.Info("既存ユーザーにadminロールを追加しました", "user_id", user.ID, "roles", user.Roles.String())
			return nil
		case !errors.Is(err, store.ErrNotFound):
			return err
		}

		hash, err := auth.NewBcryptHasher(cfg.Auth.BcryptCost).Hash(adminPassword)
		if err != nil {
			return err
		}
		user, err := st.CreateUser(ctx, store.NewUserParams{
			Email:        adminEmail,
			Name:         adminName,
			PasswordHash: hash,
			Roles:        auth.NewRoleSet(auth.RoleAdmin),
		})
		if err != nil {
			return fmt.Errorf("管理者ユーザーの作成に失敗: %w", err)
		}
		logger.Info("管理者ユーザーを作成しました", "user_id", user.ID, "email", user.Email)
		return nil
	},
}

func init() {
	createAdminCmd.Flags().StringVar(&adminEmail, "email", "", "メールアドレス")
	createAdminCmd.Flags().StringVar(&adminPassword, "password", "", "パスワード（8〜72文字）")
	createAdminCmd.Flags().StringVar(&adminName, "name", "管理者", "表示名")
	_ = createAdminCmd.MarkFlagRequired("email")
	_ = createAdminCmd.MarkFlagRequired("password")
}
