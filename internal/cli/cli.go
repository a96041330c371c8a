package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/taskmatrix/core/internal/api/middleware"
	"github.com/taskmatrix/core/internal/config"
	"github.com/taskmatrix/core/internal/services"
	"gorm.io/gorm"
)

var (
	db            *gorm.DB
	cfg           *config.Config
	apiKeyManager *middleware.APIKeyManager
	userService   *services.UserService
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "taskmatrix",
	Short: "Task management backend with email-to-task ingestion",
	Long: `Taskmatrix is the backend service for a personal task manager with an
Eisenhower matrix view and per-user email-to-task forwarding addresses.

The command line tool provides:
  - Key management: show and reset the API key
  - User management: create users, list users, reset passwords,
    change inbox aliases

Examples:
  taskmatrix key show           # show the current API key
  taskmatrix key reset          # reset the API key
  taskmatrix user create        # create a new user
  taskmatrix user list          # list all users
  taskmatrix user reset-pwd     # reset a user's password
  taskmatrix user alias         # change a user's inbox alias`,
}

// Execute runs the CLI with the provided database and config
func Execute(database *gorm.DB, config *config.Config) {
	db = database
	cfg = config

	var err error
	apiKeyManager, err = middleware.NewAPIKeyManager(cfg.DataDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to initialize API key manager: %v\n", err)
		os.Exit(1)
	}

	userService = services.NewUserService(db)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(keyCmd)
	rootCmd.AddCommand(userCmd)
}
