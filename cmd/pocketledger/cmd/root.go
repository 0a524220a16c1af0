package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmcleod/pocketledger/apiclient"
	"github.com/jmcleod/pocketledger/credstore"
	"github.com/jmcleod/pocketledger/internal/config"
	"github.com/jmcleod/pocketledger/internal/i18n"
	"github.com/jmcleod/pocketledger/session"
	"github.com/jmcleod/pocketledger/storage"
	bboltstorage "github.com/jmcleod/pocketledger/storage/bbolt"
)

// rootOptions holds the persistent flags. Flags left unset fall back to
// the POCKETLEDGER_* environment.
type rootOptions struct {
	apiURL   string
	timeout  time.Duration
	dataDir  string
	lang     string
	logLevel string
	json     bool

	cfg    *config.Config
	logger *slog.Logger
}

// NewRootCommand builds the pocketledger command tree.
func NewRootCommand() *cobra.Command {
	o := &rootOptions{}
	root := &cobra.Command{
		Use:   "pocketledger",
		Short: "pocketledger is a personal finance client",
		Long: `A command line client for the pocketledger personal finance service:
sign in, keep track of income and expenses by category, and see the monthly balance.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return o.configure(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&o.apiURL, "api-url", "", "Backend base URL (env POCKETLEDGER_API_URL)")
	flags.DurationVar(&o.timeout, "timeout", 0, "Request timeout (env POCKETLEDGER_TIMEOUT)")
	flags.StringVar(&o.dataDir, "data-dir", "", "Directory for the credential store (env POCKETLEDGER_DATA_DIR)")
	flags.StringVar(&o.lang, "lang", "", "Message language, pt-BR or en (env POCKETLEDGER_LANG)")
	flags.StringVar(&o.logLevel, "log-level", "", "debug, info, warn or error (env POCKETLEDGER_LOG_LEVEL)")
	flags.BoolVar(&o.json, "json", false, "Print results as JSON")

	root.AddCommand(
		newLoginCmd(o),
		newRegisterCmd(o),
		newLogoutCmd(o),
		newWhoamiCmd(o),
		newProfileCmd(o),
		newAccountCmd(o),
		newCategoriesCmd(o),
		newTransactionsCmd(o),
		newSummaryCmd(o),
		newSandboxCmd(o),
		newVersionCmd(),
	)
	return root
}

// Execute runs the CLI with args. The caller reports the error and
// chooses the exit code, so deferred cleanup in main still runs.
func Execute(args []string) error {
	root := NewRootCommand()
	root.SetArgs(args)
	return root.Execute()
}

func (o *rootOptions) configure(cmd *cobra.Command) error {
	cfg, err := config.Load(cmd.Context())
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("api-url") {
		cfg.APIURL = o.apiURL
	}
	if flags.Changed("timeout") {
		cfg.Timeout = o.timeout
	}
	if flags.Changed("data-dir") {
		cfg.DataDir = o.dataDir
	}
	if flags.Changed("lang") {
		cfg.Language = o.lang
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = o.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	o.cfg = cfg
	o.logger = cfg.NewLogger()
	return nil
}

// app is everything a backend command needs, wired from the configuration.
type app struct {
	repo    storage.Repository
	store   *credstore.Store
	client  *apiclient.Client
	session *session.Controller
	printer *i18n.Printer
}

// open wires the credential store, the backend client and the session
// controller, and restores the session from disk.
func (o *rootOptions) open(ctx context.Context) (*app, error) {
	cfg := o.cfg
	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	key, err := loadStoreKey(cfg.DataDir, cfg.Passphrase, defaultKDFParams)
	if err != nil {
		return nil, err
	}
	bolt, err := bboltstorage.NewRepositoryFromFile(filepath.Join(cfg.DataDir, credentialsFile), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open credential store: %w", err)
	}
	repo, err := storage.NewSealed(bolt, key)
	clear(key)
	if err != nil {
		bolt.Close()
		return nil, err
	}

	store := credstore.New(repo, credstore.WithLogger(o.logger))
	client, err := apiclient.New(cfg.APIURL,
		apiclient.WithTimeout(cfg.Timeout),
		apiclient.WithTokenStore(store),
		apiclient.WithLogger(o.logger),
		apiclient.WithUserAgent("pocketledger/"+Version),
	)
	if err != nil {
		repo.Close()
		return nil, err
	}
	lang := i18n.Match(cfg.Language)
	ctrl := session.New(store, client, session.WithLogger(o.logger), session.WithLanguage(lang))
	ctrl.Load(ctx)

	return &app{
		repo:    repo,
		store:   store,
		client:  client,
		session: ctrl,
		printer: i18n.New(lang),
	}, nil
}

func (a *app) Close() {
	a.session.Close()
	a.repo.Close()
}

// withApp opens the app around fn.
func (o *rootOptions) withApp(cmd *cobra.Command, fn func(a *app) error) error {
	a, err := o.open(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}

// withSession is withApp for commands that need a signed-in user.
func (o *rootOptions) withSession(cmd *cobra.Command, fn func(a *app) error) error {
	return o.withApp(cmd, func(a *app) error {
		if !a.session.State().IsAuthenticated {
			return errors.New(a.printer.Text(i18n.NotSignedIn))
		}
		return fn(a)
	})
}
