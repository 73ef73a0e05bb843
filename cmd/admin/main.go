// Package main provides operator utilities for StackIt.
package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"stackit/internal/cache"
	"stackit/internal/config"
	"stackit/internal/database"
	"stackit/internal/middleware"
	"stackit/internal/models"
	"stackit/internal/repository"
	"stackit/internal/service"

	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var (
	purgeDays int
	unban     bool

	db  *gorm.DB
	cfg *config.Config

	rootCmd = &cobra.Command{
		Use:           "admin",
		Short:         "Operator utilities for the StackIt database",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			if cfg, err = config.LoadConfig(); err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			middleware.Configure(cfg.Env)
			if db, err = database.Connect(cmd.Context(), cfg); err != nil {
				return fmt.Errorf("connect database: %w", err)
			}
			// cached user rows are invalidated on write when redis is reachable
			cache.InitRedis(cfg.RedisURL)
			return nil
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			database.Close()
		},
	}

	purgeCmd = &cobra.Command{
		Use:   "purge-notifications",
		Short: "Hard delete read notifications older than the retention window",
		Args:  cobra.NoArgs,
		RunE:  runPurge,
	}

	reputationCmd = &cobra.Command{
		Use:   "set-reputation <user_id> <reputation>",
		Short: "Overwrite a user's reputation",
		Args:  cobra.ExactArgs(2),
		RunE:  runSetReputation,
	}

	roleCmd = &cobra.Command{
		Use:   "set-role <user_id> <user|admin>",
		Short: "Change a user's role",
		Args:  cobra.ExactArgs(2),
		RunE:  runSetRole,
	}

	banCmd = &cobra.Command{
		Use:   "ban <user_id>",
		Short: "Ban a user, or lift the ban with --unban",
		Args:  cobra.ExactArgs(1),
		RunE:  runBan,
	}

	listAdminsCmd = &cobra.Command{
		Use:   "list-admins",
		Short: "List every admin account",
		Args:  cobra.NoArgs,
		RunE:  runListAdmins,
	}
)

func init() {
	purgeCmd.Flags().IntVar(&purgeDays, "days", 0, "Age in days (0 uses NOTIFICATION_RETENTION_DAYS)")
	banCmd.Flags().BoolVar(&unban, "unban", false, "Lift an existing ban")
	rootCmd.AddCommand(purgeCmd, reputationCmd, roleCmd, banCmd, listAdminsCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func users() *service.UserService {
	return service.NewUserService(repository.NewUserRepository(db))
}

func parseUserID(raw string) (uint, error) {
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid user id %q", raw)
	}
	return uint(id), nil
}

func runPurge(cmd *cobra.Command, _ []string) error {
	if purgeDays < 0 {
		return fmt.Errorf("--days must be a positive number")
	}
	svc := service.NewNotificationService(repository.NewNotificationRepository(db), nil, cfg.NotificationRetentionDays)
	res, err := svc.Purge(cmd.Context(), purgeDays)
	if err != nil {
		return err
	}
	fmt.Printf("Deleted %d read notifications older than %s\n", res.Deleted, res.OlderThan.Format("2006-01-02 15:04"))
	return nil
}

func runSetReputation(cmd *cobra.Command, args []string) error {
	id, err := parseUserID(args[0])
	if err != nil {
		return err
	}
	rep, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("invalid reputation %q", args[1])
	}
	user, err := users().SetReputation(cmd.Context(), id, rep)
	if err != nil {
		return err
	}
	fmt.Printf("User %s (ID: %d) now has %d reputation\n", user.Username, user.ID, user.Reputation)
	return nil
}

func runSetRole(cmd *cobra.Command, args []string) error {
	id, err := parseUserID(args[0])
	if err != nil {
		return err
	}
	user, err := users().SetRole(cmd.Context(), id, models.Role(args[1]))
	if err != nil {
		return err
	}
	fmt.Printf("User %s (ID: %d) is now %s\n", user.Username, user.ID, user.Role)
	return nil
}

func runBan(cmd *cobra.Command, args []string) error {
	id, err := parseUserID(args[0])
	if err != nil {
		return err
	}
	banned := !unban
	user, err := users().SetBanned(cmd.Context(), id, &banned)
	if err != nil {
		return err
	}
	state := "banned"
	if !user.IsBanned {
		state = "unbanned"
	}
	fmt.Printf("User %s (ID: %d) %s\n", user.Username, user.ID, state)
	return nil
}

func runListAdmins(cmd *cobra.Command, _ []string) error {
	admins, err := repository.NewUserRepository(db).ListAdmins(cmd.Context())
	if err != nil {
		return err
	}
	if len(admins) == 0 {
		fmt.Println("No admins found")
		return nil
	}
	fmt.Printf("Found %d admin(s):\n", len(admins))
	for _, a := range admins {
		fmt.Printf("  - ID: %d, Username: %s, Email: %s\n", a.ID, a.Username, a.Email)
	}
	return nil
}
