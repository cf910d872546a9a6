package cli

import (
	"bufio"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/maintenance-agent/internal/adapters/driven/auth"
	"github.com/custodia-labs/maintenance-agent/internal/core/domain"
)

var (
	tokenUsername string
	tokenRole     string
	tokenTTL      time.Duration
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Operator credentials",
}

var hashPasswordCmd = &cobra.Command{
	Use:   "hash-password [password]",
	Short: "Print the bcrypt hash for an operator password",
	Long: `Prints a bcrypt hash to paste into auth.operators[].password_hash.
With no argument the password is read from the first line of stdin.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHashPassword,
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a bearer token without a login",
	Long: `Signs a token with the configured JWT secret. Intended for scripts and
monitoring that call the dashboard API; the username need not exist.`,
	Args: cobra.NoArgs,
	RunE: runToken,
}

func init() {
	tokenCmd.Flags().StringVarP(&tokenUsername, "user", "u", "", "username to embed in the token")
	tokenCmd.Flags().StringVarP(&tokenRole, "role", "r", string(domain.RoleViewer), "admin, operator or viewer")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "token lifetime")
	_ = tokenCmd.MarkFlagRequired("user")

	authCmd.AddCommand(hashPasswordCmd, tokenCmd)
	rootCmd.AddCommand(authCmd)
}

func runHashPassword(cmd *cobra.Command, args []string) error {
	var password string
	if len(args) == 1 {
		password = args[0]
	} else {
		scanner := bufio.NewScanner(cmd.InOrStdin())
		if scanner.Scan() {
			password = strings.TrimRight(scanner.Text(), "\r")
		}
		if err := scanner.Err(); err != nil {
			return fmt.Errorf("read password: %w", err)
		}
	}
	if password == "" {
		return errors.New("password must not be empty")
	}

	hash, err := auth.NewAdapter("").HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), hash)
	return nil
}

func runToken(cmd *cobra.Command, _ []string) error {
	role := domain.Role(strings.ToLower(tokenRole))
	if !role.Valid() {
		return fmt.Errorf("unknown role %q", tokenRole)
	}
	if tokenTTL <= 0 {
		return errors.New("--ttl must be positive")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	now := time.Now()
	token, err := auth.NewAdapter(cfg.Auth.JWTSecret).GenerateToken(&domain.TokenClaims{
		Username:  tokenUsername,
		Role:      role,
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(tokenTTL).Unix(),
	})
	if err != nil {
		return fmt.Errorf("sign token: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}
