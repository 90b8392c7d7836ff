package commands

import (
	"github.com/spf13/cobra"

	"finanze/internal/cli"
	"finanze/internal/config"
)

// Version is set at build time with -ldflags "-X ...commands.Version=...".
var Version = "dev"

var (
	cfg *config.Config

	port            string
	dataDir         string
	credentialsMode string
	logLevel        string
)

func Execute() error {
	root := &cobra.Command{
		Use:          "finanze",
		Short:        "Personal finance aggregation backend",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cli.LoadEnvFile()
			loaded, err := cli.LoadConfig()
			if err != nil {
				return err
			}
			applyFlags(cmd, loaded)
			cfg = loaded
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context())
		},
	}

	root.PersistentFlags().StringVar(&port, "port", "", "HTTP port (overrides PORT)")
	root.PersistentFlags().StringVar(&dataDir, "data-dir", "", "directory for the database and settings (overrides DATA_DIR)")
	root.PersistentFlags().StringVar(&credentialsMode, "credentials-storage-mode", "", "DB or ENV (overrides CREDENTIALS_STORAGE_MODE)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "debug, info, warn or error (overrides LOG_LEVEL)")

	root.AddCommand(serveCmd(), sheetsAuthCmd(), versionCmd())
	return root.Execute()
}

// applyFlags lets explicitly set flags win over the environment.
func applyFlags(cmd *cobra.Command, c *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("port") {
		c.Port = port
	}
	if flags.Changed("data-dir") {
		c.DataDir = dataDir
	}
	if flags.Changed("credentials-storage-mode") {
		c.CredentialsStorageMode = credentialsMode
	}
	if flags.Changed("log-level") {
		c.LogLevel = logLevel
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the REST API (default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context())
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Println(Version)
		},
	}
}
