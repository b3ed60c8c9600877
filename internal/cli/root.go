package cli

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lprweb",
		Short: "License plate recognition demo front end",
		Long: `lprweb serves the license plate recognition demo page.

Images, video files and the backend's live webcam are submitted to a plate
detection service; the annotated image, recognized text, plate crops and
confidence are shown in the browser.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()
		},
	}

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newDetectCmd())

	return cmd
}
