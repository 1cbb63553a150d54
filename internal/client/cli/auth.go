package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/iudanet/gennotes/internal/client/auth"
)

// PasswordEnv переменная окружения с паролем для неинтерактивного входа
const PasswordEnv = "GENNOTES_PASSWORD"

// passwordSource источники пароля помимо окружения и интерактивного ввода
type passwordSource struct {
	FromFile string
	FromArgs string
}

// readPassword reads the password with priority:
// 1. Environment variable GENNOTES_PASSWORD
// 2. File from --password-file
// 3. --password flag
// 4. Interactive prompt
func (c *Cli) readPassword(src passwordSource, confirm bool) (string, error) {
	if envPassword := os.Getenv(PasswordEnv); envPassword != "" {
		return envPassword, nil
	}

	if src.FromFile != "" {
		content, err := os.ReadFile(src.FromFile)
		if err != nil {
			return "", fmt.Errorf("failed to read password file: %w", err)
		}
		password := strings.TrimSpace(string(content))
		if password == "" {
			return "", errors.New("password file is empty")
		}
		return password, nil
	}

	if src.FromArgs != "" {
		return src.FromArgs, nil
	}

	password, err := c.io.ReadPassword("Password: ")
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	if confirm {
		again, err := c.io.ReadPassword("Confirm password: ")
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		if again != password {
			return "", errors.New("passwords do not match")
		}
	}
	return password, nil
}

func (c *Cli) readUsername(username string) (string, error) {
	if username != "" {
		return username, nil
	}
	username, err := c.io.ReadInput("Username: ")
	if err != nil {
		return "", fmt.Errorf("failed to read username: %w", err)
	}
	return username, nil
}

func addCredentialFlags(cmd *cobra.Command, username *string, src *passwordSource) {
	cmd.Flags().StringVarP(username, "username", "u", "", "username (prompted when empty)")
	cmd.Flags().StringVar(&src.FromFile, "password-file", "", "read password from file")
	cmd.Flags().StringVar(&src.FromArgs, "password", "", "password (prefer "+PasswordEnv+" or --password-file)")
}

func (c *Cli) newRegisterCommand() *cobra.Command {
	var (
		username string
		src      passwordSource
	)
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account on the server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			name, err := c.readUsername(username)
			if err != nil {
				return err
			}
			password, err := c.readPassword(src, true)
			if err != nil {
				return err
			}

			result, err := c.auth.Register(cmd.Context(), name, password)
			if err != nil {
				return err
			}

			c.io.Printf("%s Registered %s (user id %s)\n", okMark(), result.Username, result.UserID)
			c.io.Println("Run 'gennotes login' to start a session.")
			return nil
		},
	}
	addCredentialFlags(cmd, &username, &src)
	return cmd
}

func (c *Cli) newLoginCommand() *cobra.Command {
	var (
		username string
		src      passwordSource
	)
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and store the session token locally",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			name, err := c.readUsername(username)
			if err != nil {
				return err
			}
			password, err := c.readPassword(src, false)
			if err != nil {
				return err
			}

			result, err := c.auth.Login(cmd.Context(), name, password)
			if err != nil {
				return err
			}

			c.io.Printf("%s Logged in as %s\n", okMark(), result.Username)
			if !result.ExpiresAt.IsZero() {
				c.io.Printf("Session expires: %s\n", result.ExpiresAt.Local().Format(time.DateTime))
			}
			return nil
		},
	}
	addCredentialFlags(cmd, &username, &src)
	return cmd
}

func (c *Cli) newLogoutCommand() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Forget the session and clear local notes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.auth.Logout(cmd.Context(), force); err != nil {
				if errors.Is(err, auth.ErrPendingChanges) {
					return fmt.Errorf("%w; run 'gennotes sync' first or use --force", err)
				}
				return err
			}
			c.io.Printf("%s Logged out\n", okMark())
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "log out even if local changes are not synced")
	return cmd
}
