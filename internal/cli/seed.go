package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/noah-isme/hazmat-api/internal/repository"
	"github.com/noah-isme/hazmat-api/internal/service"
)

// SeedCmd upserts the hazard class catalog.
func SeedCmd(open Opener) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Upsert the hazard class catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer env.Close()

			svc := service.NewCompatibilityService(repository.NewHazardClassRepository(env.DB), nil, nil, env.Logger)
			n, err := svc.SeedCatalog(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ %d hazard classes ensured\n", n)
			return nil
		},
	}
}
