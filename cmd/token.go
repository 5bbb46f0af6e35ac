package cmd

import (
	"fmt"
	"strings"

	"github.com/frahmantamala/lingkungan/internal"
	"github.com/frahmantamala/lingkungan/internal/auth"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	tokenUserID      string
	tokenName        string
	tokenPermissions string
)

// tokenCmd mints a session token for operators and local testing. Login is
// handled by an external identity service.
var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint a bearer token for the API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := bootstrap()
		if err != nil {
			return err
		}

		if tokenUserID == "" {
			tokenUserID = uuid.NewString()
		}
		var perms []string
		for _, p := range strings.Split(tokenPermissions, ",") {
			if p = strings.TrimSpace(p); p != "" {
				perms = append(perms, p)
			}
		}

		token, expiresAt, err := auth.NewTokenManager(cfg.Security).Generate(internal.User{
			ID:          tokenUserID,
			Name:        tokenName,
			Permissions: perms,
		})
		if err != nil {
			return fmt.Errorf("failed to sign token: %w", err)
		}

		fmt.Fprintln(cmd.OutOrStdout(), token)
		fmt.Fprintf(cmd.ErrOrStderr(), "user_id=%s expires_at=%s\n", tokenUserID, expiresAt.Format("2006-01-02T15:04:05Z07:00"))
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenUserID, "user-id", "", "subject of the token (random uuid when empty)")
	tokenCmd.Flags().StringVar(&tokenName, "name", "Pengurus Lingkungan", "display name")
	tokenCmd.Flags().StringVar(&tokenPermissions, "permissions",
		auth.PermissionApproveContributions+","+auth.PermissionRejectContributions,
		"comma separated permissions")
}
