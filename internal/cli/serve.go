package cli

import (
	"github.com/spf13/cobra"

	"github.com/t0m4t0ww/license-plate-recognition/internal/app"
	"github.com/t0m4t0ww/license-plate-recognition/internal/config"
)

type serveOptions struct {
	configFile  string
	port        int
	detectorURL string
}

func newServeCmd() *cobra.Command {
	var opts serveOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the web interface",
		Long: `Starts the web interface. Configuration comes from the environment
(and .env), optionally overlaid with a YAML file; flags win over both.`,
		Example: `  # Start on the default port 8080
  lprweb serve

  # Use a detector on another host
  lprweb serve --detector http://10.0.0.5:8000 --port 3000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load(cmd)
			if err != nil {
				return err
			}
			application, err := app.NewApp(cfg)
			if err != nil {
				return err
			}
			return application.Run(cmd.Context())
		},
	}

	cmd.Flags().StringVarP(&opts.configFile, "config", "c", "", "YAML config file (default $CONFIG_FILE)")
	cmd.Flags().IntVarP(&opts.port, "port", "p", 0, "Port to listen on (default $PORT or 8080)")
	cmd.Flags().StringVar(&opts.detectorURL, "detector", "", "Detection service URL (default $DETECTOR_URL)")

	return cmd
}

func (o serveOptions) load(cmd *cobra.Command) (*config.Config, error) {
	path := o.configFile
	if path == "" {
		path = config.FileFromEnv()
	}
	cfg, err := config.LoadFile(path)
	if err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("port") {
		cfg.Port = o.port
	}
	if cmd.Flags().Changed("detector") {
		cfg.DetectorURL = o.detectorURL
	}
	return cfg, cfg.Validate()
}
