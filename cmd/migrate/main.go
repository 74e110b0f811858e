package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"siteops-backend/internal/config"
	"siteops-backend/internal/database"
	"siteops-backend/internal/models"
	"siteops-backend/internal/store"
)

var databaseURL string

var rootCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the siteops database",
	Long: `Schema and seed management for the siteops backend.

Available subcommands:
  up        - Create the users, fcm_tokens and collections tables
  seed      - Seed dashboard logins and site collections never written
  reset     - Restore every site collection to the seed data
  add-users - Create dashboard logins`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		config.LoadDotEnv()
	},
}

var upCmd = &cobra.Command{
	Use:   "up",
	Short: "Run schema migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := connect()
		if err != nil {
			return err
		}
		defer db.Close()

		if err := database.Migrate(db); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		log.Println("✅ Migration completed successfully!")
		return nil
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed dashboard logins and site collections",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := connect()
		if err != nil {
			return err
		}
		defer db.Close()

		if err := database.Migrate(db); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		if err := database.SeedUsers(db); err != nil {
			return fmt.Errorf("user seeding failed: %w", err)
		}
		st := store.New(store.NewSQLBackend(db))
		return st.InitializeDefaults(cmd.Context())
	},
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Restore every site collection to the seed data",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := connect()
		if err != nil {
			return err
		}
		defer db.Close()

		st := store.New(store.NewSQLBackend(db))
		if err := st.Reset(cmd.Context()); err != nil {
			return err
		}
		log.Println("✅ Site collections reset")
		return nil
	},
}

var (
	userEmail    string
	userPassword string
	userName     string
	userRole     string
)

var addUsersCmd = &cobra.Command{
	Use:   "add-users",
	Short: "Create dashboard logins",
	Long: `Create one login from flags, or the default login per role when no
--email is given. Existing emails are skipped.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		accounts := database.DefaultAccounts
		if userEmail != "" {
			if userPassword == "" {
				return fmt.Errorf("--password is required with --email")
			}
			if !models.ValidOperatorRole(models.OperatorRole(userRole)) {
				return fmt.Errorf("invalid role %q", userRole)
			}
			accounts = []database.SeedAccount{{
				Email: userEmail, Password: userPassword, Name: userName, Role: userRole,
			}}
		}

		db, err := connect()
		if err != nil {
			return err
		}
		defer db.Close()

		for _, account := range accounts {
			created, err := database.CreateUser(db, account)
			if err != nil {
				log.Printf("❌ Failed to create user %s: %v", account.Email, err)
				continue
			}
			if !created {
				log.Printf("⚠️  User already exists: %s", account.Email)
				continue
			}
			log.Printf("✅ Created %s user: %s", account.Role, account.Email)
		}
		return nil
	},
}

func connect() (*sqlx.DB, error) {
	url := databaseURL
	if url == "" {
		url = os.Getenv("DATABASE_URL")
	}
	if url == "" {
		url = "sqlite://./siteops.db"
	}
	db, err := database.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	log.Println("🔌 Connected to database")
	return db, nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&databaseURL, "database-url", "", "database URL (defaults to DATABASE_URL)")

	addUsersCmd.Flags().StringVar(&userEmail, "email", "", "login email")
	addUsersCmd.Flags().StringVar(&userPassword, "password", "", "login password")
	addUsersCmd.Flags().StringVar(&userName, "name", "", "display name")
	addUsersCmd.Flags().StringVar(&userRole, "role", string(models.RoleOperator), "operator, supervisor or admin")

	rootCmd.AddCommand(upCmd, seedCmd, resetCmd, addUsersCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
