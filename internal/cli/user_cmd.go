package cli

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/taskmatrix/core/internal/database/models"
	"golang.org/x/term"
)

// userCmd represents the user command group
var userCmd = &cobra.Command{
	Use:   "user",
	Short: "User management",
	Long:  `Manage users: create users, list users, reset passwords and change inbox aliases.`,
}

// userCreateCmd creates a new user
var userCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new user",
	Long:  `Interactively create a new user. Prompts for username, password and nickname.`,
	Run: func(cmd *cobra.Command, args []string) {
		if userService == nil {
			fmt.Fprintln(os.Stderr, "Error: user service not initialized")
			os.Exit(1)
		}

		reader := bufio.NewReader(os.Stdin)

		// Get username
		fmt.Print("Username: ")
		username, err := reader.ReadString('\n')
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to read input: %v\n", err)
			os.Exit(1)
		}
		username = strings.TrimSpace(username)
		if username == "" {
			fmt.Fprintln(os.Stderr, "Error: username must not be empty")
			os.Exit(1)
		}

		// Get password (hidden input)
		fmt.Print("Password (at least 6 characters): ")
		passwordBytes, err := term.ReadPassword(int(syscall.Stdin))
		if err != nil {
			fmt.Fprintf(os.Stderr, "\nError: failed to read password: %v\n", err)
			os.Exit(1)
		}
		fmt.Println()
		password := string(passwordBytes)
		if len(password) < 6 {
			fmt.Fprintln(os.Stderr, "Error: password must be at least 6 characters")
			os.Exit(1)
		}

		// Confirm password
		fmt.Print("Repeat password: ")
		confirmBytes, err := term.ReadPassword(int(syscall.Stdin))
		if err != nil {
			fmt.Fprintf(os.Stderr, "\nError: failed to read password: %v\n", err)
			os.Exit(1)
		}
		fmt.Println()
		if password != string(confirmBytes) {
			fmt.Fprintln(os.Stderr, "Error: passwords do not match")
			os.Exit(1)
		}

		// Get nickname (optional)
		fmt.Print("Nickname (optional, press Enter to skip): ")
		nickname, err := reader.ReadString('\n')
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to read input: %v\n", err)
			os.Exit(1)
		}
		nickname = strings.TrimSpace(nickname)
		if nickname == "" {
			nickname = username
		}

		// Create user
		newUser, err := userService.CreateUser(username, password, nickname)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to create user: %v\n", err)
			os.Exit(1)
		}

		fmt.Println()
		fmt.Println("User created.")
		fmt.Printf("  ID: %d\n", newUser.ID)
		fmt.Printf("  Username: %s\n", newUser.Username)
		fmt.Printf("  Nickname: %s\n", newUser.Nickname)
		fmt.Printf("  Inbox address: %s\n", newUser.InboxAddress(cfg.InboundDomain))
	},
}

// userListCmd lists all users
var userListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all users",
	Run: func(cmd *cobra.Command, args []string) {
		if userService == nil {
			fmt.Fprintln(os.Stderr, "Error: user service not initialized")
			os.Exit(1)
		}

		users, err := userService.ListUsers()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to list users: %v\n", err)
			os.Exit(1)
		}

		if len(users) == 0 {
			fmt.Println("No users yet.")
			return
		}

		fmt.Println("Users:")
		fmt.Println("--------------------------------------------------------------")
		fmt.Printf("%-6s %-20s %-20s %s\n", "ID", "Username", "Inbox alias", "Created")
		fmt.Println("--------------------------------------------------------------")
		for _, u := range users {
			createdAt := u.CreatedAt.Format("2006-01-02 15:04:05")
			fmt.Printf("%-6d %-20s %-20s %s\n", u.ID, u.Username, u.InboxAlias, createdAt)
		}
		fmt.Println("--------------------------------------------------------------")
		fmt.Printf("%d user(s)\n", len(users))
	},
}

// userResetPwdCmd resets a user's password
var userResetPwdCmd = &cobra.Command{
	Use:   "reset-pwd",
	Short: "Reset a user's password",
	Long:  `Interactively reset the password of a user. This asks for confirmation.`,
	Run: func(cmd *cobra.Command, args []string) {
		if userService == nil {
			fmt.Fprintln(os.Stderr, "Error: user service not initialized")
			os.Exit(1)
		}

		reader := bufio.NewReader(os.Stdin)

		targetUser := promptSelectUser(reader)
		if targetUser == nil {
			return
		}

		// Confirm operation
		fmt.Printf("\nWarning: this resets the password of user '%s' (ID: %d).\n", targetUser.Username, targetUser.ID)
		fmt.Print("Continue? (yes/no): ")
		confirm, err := reader.ReadString('\n')
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to read input: %v\n", err)
			os.Exit(1)
		}
		confirm = strings.TrimSpace(strings.ToLower(confirm))
		if confirm != "yes" && confirm != "y" {
			fmt.Println("Cancelled.")
			return
		}

		// Get new password
		fmt.Print("New password (at least 6 characters): ")
		passwordBytes, err := term.ReadPassword(int(syscall.Stdin))
		if err != nil {
			fmt.Fprintf(os.Stderr, "\nError: failed to read password: %v\n", err)
			os.Exit(1)
		}
		fmt.Println()
		newPassword := string(passwordBytes)
		if len(newPassword) < 6 {
			fmt.Fprintln(os.Stderr, "Error: password must be at least 6 characters")
			os.Exit(1)
		}

		// Confirm password
		fmt.Print("Repeat new password: ")
		confirmBytes, err := term.ReadPassword(int(syscall.Stdin))
		if err != nil {
			fmt.Fprintf(os.Stderr, "\nError: failed to read password: %v\n", err)
			os.Exit(1)
		}
		fmt.Println()
		if newPassword != string(confirmBytes) {
			fmt.Fprintln(os.Stderr, "Error: passwords do not match")
			os.Exit(1)
		}

		if err := userService.ResetPassword(targetUser.Username, newPassword); err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to reset password: %v\n", err)
			os.Exit(1)
		}

		fmt.Println()
		fmt.Printf("Password for user '%s' has been reset.\n", targetUser.Username)
	},
}

// userAliasCmd changes a user's inbox alias
var userAliasCmd = &cobra.Command{
	Use:   "alias",
	Short: "Change a user's inbox alias",
	Long:  `Interactively change the inbox alias of a user. Mail sent to <alias>@<inbound domain> turns into tasks for that user.`,
	Run: func(cmd *cobra.Command, args []string) {
		if userService == nil {
			fmt.Fprintln(os.Stderr, "Error: user service not initialized")
			os.Exit(1)
		}

		reader := bufio.NewReader(os.Stdin)

		targetUser := promptSelectUser(reader)
		if targetUser == nil {
			return
		}

		fmt.Printf("\nCurrent inbox address: %s\n", targetUser.InboxAddress(cfg.InboundDomain))
		fmt.Print("New alias (letters, digits, '.', '_' and '-'): ")
		alias, err := reader.ReadString('\n')
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to read input: %v\n", err)
			os.Exit(1)
		}
		alias = strings.TrimSpace(alias)

		updated, err := userService.SetInboxAlias(targetUser.ID, alias)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to change alias: %v\n", err)
			os.Exit(1)
		}

		fmt.Println()
		fmt.Printf("New inbox address: %s\n", updated.InboxAddress(cfg.InboundDomain))
	},
}

// promptSelectUser lists users and asks for an ID. Returns nil when there are
// no users to pick from.
func promptSelectUser(reader *bufio.Reader) *models.User {
	users, err := userService.ListUsers()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to list users: %v\n", err)
		os.Exit(1)
	}

	if len(users) == 0 {
		fmt.Println("No users yet.")
		return nil
	}

	fmt.Println("Available users:")
	for _, u := range users {
		fmt.Printf("  [%d] %s (%s)\n", u.ID, u.Username, u.Nickname)
	}
	fmt.Println()

	fmt.Print("User ID: ")
	idStr, err := reader.ReadString('\n')
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to read input: %v\n", err)
		os.Exit(1)
	}
	idStr = strings.TrimSpace(idStr)
	userID, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error: invalid user ID")
		os.Exit(1)
	}

	targetUser, err := userService.GetUserByID(uint(userID))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: user not found: %v\n", err)
		os.Exit(1)
	}
	return targetUser
}

func init() {
	userCmd.AddCommand(userCreateCmd)
	userCmd.AddCommand(userListCmd)
	userCmd.AddCommand(userResetPwdCmd)
	userCmd.AddCommand(userAliasCmd)
}
