package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/noah-isme/college-hub-api/internal/repository"
	"github.com/noah-isme/college-hub-api/internal/service"
)

func newClearUsersCommand() *cobra.Command {
	var confirmed bool
	cmd := &cobra.Command{
		Use:   "clear-users",
		Short: "Delete every account except superusers",
		Long:  "Deletes all student, faculty, hod and principal accounts together with their profiles. Colleges and departments are kept.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !confirmed {
				return errors.New("refusing to delete accounts without --yes")
			}
			rt, err := bootstrap()
			if err != nil {
				return err
			}
			defer rt.close()

			users := repository.NewUserRepository(rt.db)
			colleges := repository.NewCollegeRepository(rt.db)
			departments := repository.NewDepartmentRepository(rt.db)
			svc := service.NewUserService(users, repository.NewTenantDirectory(colleges, departments), nil, nil, rt.logger)

			removed, err := svc.ClearNonSuperusers(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d users\n", removed)
			return nil
		},
	}
	cmd.Flags().BoolVar(&confirmed, "yes", false, "confirm the deletion")
	return cmd
}
