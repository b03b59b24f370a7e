package cmd

import (
	"errors"
	"fmt"

	"github.com/bnema/gemini-live-cli/internal/application"
	"github.com/bnema/gemini-live-cli/internal/domain"
	"github.com/spf13/cobra"
)

func newAuthCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage the Gemini API key",
	}

	cmd.AddCommand(newAuthSetKeyCmd(app), newAuthRemoveKeyCmd(app), newAuthStatusCmd(app))

	return cmd
}

func newAuthSetKeyCmd(app *app) *cobra.Command {
	var value string

	cmd := &cobra.Command{
		Use:   "set-key",
		Short: "Store the Gemini API key in the secret store",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.localService().SetAPIKey(cmd.Context(), application.SetAPIKeyCommand{
				SecretKey: app.cfg.Credential.SecretKey,
				Value:     value,
			})
		},
	}

	cmd.Flags().StringVar(&value, "value", "", "API key value")
	_ = cmd.MarkFlagRequired("value")

	return cmd
}

func newAuthRemoveKeyCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "remove-key",
		Short: "Delete the stored Gemini API key",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.localService().RemoveAPIKey(cmd.Context(), application.RemoveAPIKeyCommand{
				SecretKey: app.cfg.Credential.SecretKey,
			})
		},
	}
}

func newAuthStatusCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show which source would provide the API key",
		RunE: func(cmd *cobra.Command, _ []string) error {
			status := app.localService().APIKeyStatus(cmd.Context())
			out := cmd.OutOrStdout()

			switch {
			case status.Found:
				_, err := fmt.Fprintf(out, "api key: found (%s)\n", status.Source)
				return err
			case status.Err == nil || errors.Is(status.Err, domain.ErrCredentialNotFound):
				if _, err := fmt.Fprintln(out, "api key: missing"); err != nil {
					return err
				}
				_, err := fmt.Fprintf(out, "set $%s or run `glive auth set-key --value ...`\n", app.cfg.Credential.Env)
				return err
			default:
				return fmt.Errorf("resolve api key: %w", status.Err)
			}
		},
	}
}
