package cmd

import (
	"fmt"

	"github.com/amirphl/orochi-idgen/app/dto"
	"github.com/amirphl/orochi-idgen/app/services"
	"github.com/amirphl/orochi-idgen/config"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"
)

var tokenFlags dto.IssueTokenRequest

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue an operator token for the HTTP API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := validator.New().Struct(&tokenFlags); err != nil {
			return fmt.Errorf("invalid token request: %w", err)
		}

		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		svc, err := services.NewTokenService(cfg.JWT.AccessTokenTTL, cfg.JWT.Issuer, cfg.JWT.Audience, cfg.JWT.SecretKey)
		if err != nil {
			return err
		}
		token, err := svc.GenerateToken(tokenFlags.Subject, tokenFlags.Scopes)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenFlags.Subject, "subject", "", "operator the token is issued to")
	tokenCmd.Flags().StringSliceVar(&tokenFlags.Scopes, "scope",
		[]string{services.ScopeRead}, "granted scopes: generators:read, generators:next")
	rootCmd.AddCommand(tokenCmd)
}
