package cli

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ponto-labs/ponto/internal/api"
	"github.com/ponto-labs/ponto/internal/app/report"
	"github.com/ponto-labs/ponto/internal/app/session"
	"github.com/ponto-labs/ponto/internal/daemon"
	"github.com/ponto-labs/ponto/internal/infra/sqlite"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the ponto daemon",
	Long: `Start the HTTP API daemon for the web dashboard. The daemon owns the
SQLite store, the live accrual loop, and the SSE change feed.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Storage.Path), 0o755); err != nil {
		return err
	}
	db, err := sqlite.Open(cfg.Storage.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	sess := session.New(db, session.Config{
		ContractualDaySeconds: cfg.Workday.ContractualSeconds(),
		LegalExtraSeconds:     cfg.Workday.LegalExtraSeconds(),
		Holidays:              cfg.Workday.HolidaySet(),
		TickInterval:          cfg.Accrual.Interval(),
		PersistEvery:          cfg.Accrual.PersistEvery,
	})
	defer sess.Close()
	if err := sess.Load(cmd.Context(), time.Now()); err != nil {
		return err
	}

	server := api.NewServer(sess, db, report.Options{
		ContractualDaySeconds: cfg.Workday.ContractualSeconds(),
		LegalExtraSeconds:     cfg.Workday.LegalExtraSeconds(),
		Holidays:              cfg.Workday.HolidaySet(),
	})
	if cfg.API.Metrics {
		server.EnableMetrics()
	}

	hub := api.NewUpdateHub()
	server.SetUpdateHub(hub)
	db.SetOnChange(hub.BroadcastChange)

	httpServer := &http.Server{
		Addr:    cfg.API.Addr(),
		Handler: server.Handler(),
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Printf("[daemon] listening on %s (db %s)", cfg.API.Addr(), cfg.Storage.Path)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Printf("[daemon] shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func loadConfig() (daemon.Config, error) {
	path := configPath
	if path == "" {
		path = daemon.DefaultPath()
	}
	return daemon.Load(path)
}
