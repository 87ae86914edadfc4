package cmd

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/antelabs/bodyshop/internal/observability"
	"github.com/antelabs/bodyshop/internal/server"
	"github.com/antelabs/bodyshop/pkg/backend"
	"github.com/antelabs/bodyshop/pkg/jobs"
	"github.com/antelabs/bodyshop/pkg/sync"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the dashboard HTTP API",
	Long: `Run the HTTP API the browser dashboard talks to.

Endpoints cover the job list, intake and assessment edits, and a sync
trigger. Sync requests are serialized: a request arriving while a sync
is in flight is rejected with 409.`,
	RunE: runServe,
}

var (
	serveHost string
	servePort int
)

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveHost, "host", "", "Bind host (default from config)")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Bind port (default from config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	host := cfg.Server.Host
	if serveHost != "" {
		host = serveHost
	}
	port := cfg.Server.Port
	if servePort != 0 {
		port = servePort
	}

	svc, err := jobs.NewService(localStore, observability.CLILogger)
	if err != nil {
		return err
	}

	// Settings are re-read per sync so an import while serving takes
	// effect without a restart.
	factory := func(kind backend.Kind) (sync.Syncer, error) {
		settings, err := effectiveSettings()
		if err != nil {
			return nil, err
		}
		return sync.ForSettings(settings, kind, observability.CLILogger)
	}

	srv := server.New(host, port, svc, factory, observability.CLILogger)

	observability.CLILogger.Info("Starting server",
		zap.String("host", host),
		zap.Int("port", port),
		zap.String("data_dir", localStore.RootDir()))

	return srv.Start(ctx)
}
