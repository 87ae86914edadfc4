package cmd

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/antelabs/bodyshop/internal/observability"
	"github.com/antelabs/bodyshop/pkg/backend"
	"github.com/antelabs/bodyshop/pkg/output"
	"github.com/antelabs/bodyshop/pkg/sync"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Synchronize the local job list with a remote backend",
	Long: `Synchronize the local job list with the configured remote backend.

The remote collection is fetched, merged with the local list (local
fields win; images fall back to whichever side has them), written back,
and the merged list replaces the local one.

On any configuration or transport failure the local list is left
untouched.

Example:
  bodyshop sync
  bodyshop sync --backend sheets
  bodyshop sync --audit sync-audit.jsonl`,
	RunE: runSync,
}

var (
	syncBackend string
	syncAudit   string
)

func init() {
	rootCmd.AddCommand(syncCmd)
	syncCmd.Flags().StringVarP(&syncBackend, "backend", "b", "", "Backend to sync against: firestore or sheets (default from config)")
	syncCmd.Flags().StringVar(&syncAudit, "audit", "", "Append a JSONL audit trail of the cycle to this file ('-' for stdout)")
}

func runSync(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	kind := backend.Kind(syncBackend)
	if kind == "" {
		kind = backend.Kind(cfg.Backend)
	}

	settings, err := effectiveSettings()
	if err != nil {
		return err
	}

	local, err := localStore.LoadJobs()
	if err != nil {
		return err
	}

	var opts []sync.Option
	if syncAudit != "" {
		audit, closeAudit, err := openAuditWriter(syncAudit, kind)
		if err != nil {
			return err
		}
		defer closeAudit()
		opts = append(opts, sync.WithAudit(audit))
	}

	syncer, err := sync.ForSettings(settings, kind, observability.CLILogger, opts...)
	if err != nil {
		return describeSyncError(kind, err)
	}

	observability.CLILogger.Info("Starting sync",
		zap.String("backend", kind.String()),
		zap.Int("local_jobs", len(local)))

	merged, err := syncer.Sync(ctx, local)
	if err != nil {
		return describeSyncError(kind, err)
	}

	if err := localStore.SaveJobs(merged); err != nil {
		return fmt.Errorf("persist merged jobs: %w", err)
	}

	fmt.Printf("Synced %d jobs against %s (%d local before merge)\n", len(merged), kind, len(local))
	return nil
}

// openAuditWriter builds a JSONL audit writer for one sync cycle.
// The returned func closes the writer and its file.
func openAuditWriter(path string, kind backend.Kind) (output.Writer, func(), error) {
	if path == "-" {
		w := output.NewJSONLWriter(os.Stdout, uuid.New().String(), kind.String())
		return w, func() { _ = w.Close() }, nil
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open audit file: %w", err)
	}
	w := output.NewJSONLWriter(f, uuid.New().String(), kind.String())
	return w, func() {
		_ = w.Close()
		_ = f.Close()
	}, nil
}

// describeSyncError turns the error taxonomy into actionable messages.
// Local state has not been replaced on any of these paths.
func describeSyncError(kind backend.Kind, err error) error {
	switch {
	case backend.IsConfigError(err):
		return fmt.Errorf("%w (run 'bodyshop settings import' or set BODYSHOP_SETTINGS_* variables)", err)
	case backend.IsUnauthorized(err):
		return fmt.Errorf("%s rejected the credential; the access token may have expired: %w", kind, err)
	case backend.IsPermissionDenied(err):
		return fmt.Errorf("the credential lacks access to the %s resource: %w", kind, err)
	case backend.IsNotFound(err):
		return fmt.Errorf("%s resource not found; check the configured id: %w", kind, err)
	default:
		return err
	}
}
