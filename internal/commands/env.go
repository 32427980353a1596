package commands

import (
	"fmt"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/extracto-dev/extracto/internal/config"
	"github.com/extracto-dev/extracto/internal/ingest"
	"github.com/extracto-dev/extracto/internal/ledger"
	"github.com/extracto-dev/extracto/internal/logging"
	"github.com/extracto-dev/extracto/internal/model"
	"github.com/extracto-dev/extracto/internal/pdftext"
	"github.com/extracto-dev/extracto/internal/reconcile"
	"github.com/extracto-dev/extracto/internal/store"
)

// env is an opened ledger: config, logger, store and the services over it.
type env struct {
	cfg    *config.Config
	user   string
	logger *log.Logger
	store  *store.Store
	ingest *ingest.Service
	ledger *ledger.Service
	rec    *reconcile.Reconciler
}

func openEnv(cmd *cobra.Command, opts *globalOptions) (*env, error) {
	absDir, err := filepath.Abs(opts.dir)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}
	cfg, err := config.Load(filepath.Join(absDir, config.FileName))
	if err != nil {
		return nil, fmt.Errorf("%w (run `extracto init` first)", err)
	}
	logger, err := logging.New(cfg.Log.Level, cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}

	st, err := store.Open(cmd.Context(), cfg.DBPath())
	if err != nil {
		return nil, err
	}

	user := opts.user
	if user == "" {
		user = cfg.User.ID
	}
	rec := reconcile.New(st, logger, model.PaymentMethod(cfg.Import.DefaultPaymentMethod))
	return &env{
		cfg:    cfg,
		user:   user,
		logger: logger,
		store:  st,
		ingest: ingest.NewService(st, rec, pdftext.Extract, logger, ingest.Options{MaxUploadBytes: cfg.MaxUploadBytes()}),
		ledger: ledger.NewService(st, logger),
		rec:    rec,
	}, nil
}

func (e *env) Close() error {
	return e.store.Close()
}
