package cmd

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func Execute() error {
	// A .env next to the working directory may carry GEMINI_API_KEY.
	_ = godotenv.Load()

	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "glive",
		Short:         "Gemini Live CLI (glive): keep voice sessions alive past the 10 minute limit",
		Long:          "glive holds a Gemini Live conversation open, records transcripts and rolling summaries, and reconnects with the saved context when the server closes the session at its hard time limit.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	app, err := wireApp(os.Stderr)
	if err != nil {
		rootCmd.RunE = func(_ *cobra.Command, _ []string) error {
			return err
		}
		return rootCmd
	}

	rootCmd.PersistentPostRunE = func(_ *cobra.Command, _ []string) error {
		return app.Close()
	}

	rootCmd.AddCommand(
		newVersionCmd(),
		newAuthCmd(app),
		newConnectCmd(app),
		newSessionsCmd(app),
	)

	return rootCmd
}
