package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"classattend/internal/auth"
	"classattend/internal/config"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint a signed access token for local testing",
	Args:  cobra.NoArgs,
	RunE:  runToken,
}

func init() {
	tokenCmd.Flags().String("sub", "", "Subject (user id) of the token")
	tokenCmd.Flags().String("role", auth.RoleStudent, "Role claim: student, teacher or admin")
	tokenCmd.Flags().Duration("ttl", 0, "Token lifetime (defaults to ACCESS_TTL)")
	rootCmd.AddCommand(tokenCmd)
}

func runToken(cmd *cobra.Command, args []string) error {
	sub := mustGetString(cmd, "sub")
	role := mustGetString(cmd, "role")
	ttl := mustGetDuration(cmd, "ttl")

	if sub == "" {
		return fmt.Errorf("--sub is required")
	}
	switch role {
	case auth.RoleStudent, auth.RoleTeacher, auth.RoleAdmin:
	default:
		return fmt.Errorf("unknown role %q", role)
	}

	cfg := config.Load()
	if ttl <= 0 {
		ttl = cfg.AccessTTL
	}

	token, exp, err := auth.Issue(sub, role, cfg.JWTIssuer, cfg.JWTSigningKey, ttl)
	if err != nil {
		return fmt.Errorf("failed to sign token: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), token)
	fmt.Fprintf(cmd.ErrOrStderr(), "expires %s\n", exp.UTC().Format(time.RFC3339))
	return nil
}
