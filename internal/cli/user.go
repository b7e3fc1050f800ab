package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/noah-isme/hazmat-api/internal/models"
	"github.com/noah-isme/hazmat-api/internal/repository"
	"github.com/noah-isme/hazmat-api/internal/service"
)

// UserCmd groups account administration.
func UserCmd(open Opener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage user accounts",
	}
	cmd.AddCommand(userCreateCmd(open))
	return cmd
}

func userCreateCmd(open Opener) *cobra.Command {
	var req service.CreateUserRequest
	var role string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create or update a user by email",
		Long: `Create a user, or update the account that already uses the email.
Without --password the account can only sign in with an emailed code.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req.Role = models.UserRole(role)

			env, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer env.Close()

			svc := service.NewUserService(repository.NewUserRepository(env.DB), nil, env.Logger)
			user, err := svc.Provision(cmd.Context(), req)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ User %s (%s) saved with role %s\n", user.Email, user.ID, user.Role)
			return nil
		},
	}

	cmd.Flags().StringVar(&req.Email, "email", "", "email address (required)")
	cmd.Flags().StringVar(&req.FullName, "name", "", "full name (required)")
	cmd.Flags().StringVar(&req.Department, "department", "", "department")
	cmd.Flags().StringVar(&role, "role", string(models.RoleUser), "role: user, admin or hod")
	cmd.Flags().StringVar(&req.Password, "password", "", "password, at least 8 characters")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}
