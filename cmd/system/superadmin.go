package system

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Alijeyrad/dentlab_backend/internal/service/auth"
	"github.com/Alijeyrad/dentlab_backend/pkg/constants"
	"github.com/Alijeyrad/dentlab_backend/pkg/database"
	"github.com/Alijeyrad/dentlab_backend/pkg/util/password"
)

// NewCreateSuperAdminCommand bootstraps the first account; every other
// admin is created over HTTP by a superadmin.
func NewCreateSuperAdminCommand() *cobra.Command {
	var name, email, phone, pass string

	cmd := &cobra.Command{
		Use:   "create-superadmin",
		Short: "Create a superadmin account",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			client, err := database.NewRepoClient(cfg.Database)
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer client.Close()

			authz, cleanup, err := openAuthorization(cfg)
			if err != nil {
				return err
			}
			defer cleanup(context.Background())

			ctx, cancel := commandContext(cfg)
			defer cancel()

			hasher := password.NewHasher(password.FromCentralConfig(cfg.Password))
			svc := auth.New(client.Admin, client.User, nil, nil, nil, nil, hasher, authz)
			a, err := svc.Signup(ctx, auth.SignupRequest{
				Name:     name,
				Email:    email,
				Phone:    phone,
				Password: pass,
				Role:     constants.RoleSuperAdmin,
			})
			if errors.Is(err, auth.ErrEmailInUse) {
				return fmt.Errorf("an account with email %s already exists", email)
			}
			if err != nil {
				return fmt.Errorf("failed to create superadmin: %w", err)
			}

			fmt.Printf("Superadmin %s created (%s).\n", a.Email, a.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&email, "email", "", "login email")
	cmd.Flags().StringVar(&phone, "phone", "", "contact phone")
	cmd.Flags().StringVar(&pass, "password", "", "initial password")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")

	return cmd
}
