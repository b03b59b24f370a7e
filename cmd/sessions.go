package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/bnema/gemini-live-cli/internal/adapters/export/markdown"
	statusadapter "github.com/bnema/gemini-live-cli/internal/adapters/render/status"
	"github.com/bnema/gemini-live-cli/internal/application"
	"github.com/bnema/gemini-live-cli/internal/domain"
	"github.com/spf13/cobra"
)

func newSessionsCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Inspect stored sessions",
	}

	cmd.AddCommand(newSessionsListCmd(app), newSessionsShowCmd(app), newSessionsExportCmd(app))

	return cmd
}

func newSessionsListCmd(app *app) *cobra.Command {
	var limit int
	var asJSON bool
	var local bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List sessions, most recently updated first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc := app.localService()
			if !local {
				var err error
				svc, err = app.service(cmd.Context())
				if err != nil {
					return err
				}
			}

			sessions, err := svc.ListSessions(cmd.Context(), application.ListSessionsQuery{Limit: limit, Local: local})
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(sessions)
			}

			title := ""
			if local {
				title = "Sessions started here"
			}
			rendered, err := app.statusRenderer(sessions, statusadapter.RenderOptions{Now: app.now(), Title: title})
			if err != nil {
				return fmt.Errorf("render sessions: %w", err)
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), rendered)
			return err
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of sessions (0 for all)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print sessions as JSON")
	cmd.Flags().BoolVar(&local, "local", false, "List the history of this machine instead of the store")

	return cmd
}

func newSessionsShowCmd(app *app) *cobra.Command {
	var transcripts int

	cmd := &cobra.Command{
		Use:   "show <session-id>",
		Short: "Print a session's summary and recent transcripts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sc, err := loadSessionContext(cmd, app, args[0], transcripts)
			if err != nil {
				return err
			}

			rendered, err := app.detailRenderer(sc, statusadapter.RenderOptions{Now: app.now()})
			if err != nil {
				return fmt.Errorf("render session: %w", err)
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), rendered)
			return err
		},
	}

	cmd.Flags().IntVar(&transcripts, "transcripts", 20, "Number of recent transcripts to print")

	return cmd
}

func newSessionsExportCmd(app *app) *cobra.Command {
	var out string
	var transcripts int

	cmd := &cobra.Command{
		Use:   "export <session-id>",
		Short: "Export a session as Markdown",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sc, err := loadSessionContext(cmd, app, args[0], transcripts)
			if err != nil {
				return err
			}

			if out == "" {
				data, err := markdown.Render(sc)
				if err != nil {
					return err
				}
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}

			if err := markdown.WriteFile(out, sc); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "exported %s to %s\n", sc.Session.ID, out)
			return err
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "Write to this file instead of stdout")
	cmd.Flags().IntVar(&transcripts, "transcripts", 0, "Number of recent transcripts to include (0 for all)")

	return cmd
}

func loadSessionContext(cmd *cobra.Command, app *app, id string, transcripts int) (domain.SessionContext, error) {
	svc, err := app.service(cmd.Context())
	if err != nil {
		return domain.SessionContext{}, err
	}

	return svc.SessionContext(cmd.Context(), application.SessionContextQuery{
		ID:              domain.SessionID(id),
		TranscriptLimit: transcripts,
	})
}
