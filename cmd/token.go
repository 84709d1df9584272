package cmd

import (
	"fmt"
	"time"

	"github.com/USA-RedDragon/walletkit-bridge/internal/config"
	"github.com/USA-RedDragon/walletkit-bridge/internal/utils"
	"github.com/spf13/cobra"
)

const (
	tokenScopeKey   = "scope"
	tokenSubjectKey = "subject"
	tokenTTLKey     = "ttl"
)

func newTokenCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "token",
		Short:         "Issue a JWT for the bridge API or a WebView engine",
		RunE:          runToken,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	config.RegisterFlags(cmd)
	cmd.Flags().String(tokenScopeKey, string(utils.ScopeClient), "Token scope (client or engine)")
	cmd.Flags().String(tokenSubjectKey, "walletkit-bridge", "Token subject")
	cmd.Flags().Duration(tokenTTLKey, 24*time.Hour, "Token lifetime, 0 for a token that never expires")
	return cmd
}

func runToken(cmd *cobra.Command, _ []string) error {
	config, err := config.LoadConfig(cmd)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	rawScope, err := cmd.Flags().GetString(tokenScopeKey)
	if err != nil {
		return fmt.Errorf("failed to get scope: %w", err)
	}
	scope, err := utils.ParseScope(rawScope)
	if err != nil {
		return err
	}
	subject, err := cmd.Flags().GetString(tokenSubjectKey)
	if err != nil {
		return fmt.Errorf("failed to get subject: %w", err)
	}
	ttl, err := cmd.Flags().GetDuration(tokenTTLKey)
	if err != nil {
		return fmt.Errorf("failed to get ttl: %w", err)
	}

	token, err := utils.GenerateJWT(config.JWT.Secret, subject, scope, ttl)
	if err != nil {
		return fmt.Errorf("failed to generate token: %w", err)
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
	return err
}
