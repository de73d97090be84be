package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/aussiebroadwan/provision/internal/provision/automation"
	"github.com/aussiebroadwan/provision/internal/provision/automation/remote"
	"github.com/aussiebroadwan/provision/internal/provision/automation/simulated"
	"github.com/aussiebroadwan/provision/internal/provision/domain"
	httpapi "github.com/aussiebroadwan/provision/internal/provision/http"
	"github.com/aussiebroadwan/provision/internal/provision/inbox"
	"github.com/aussiebroadwan/provision/internal/provision/service"
	"github.com/aussiebroadwan/provision/internal/provision/store"
	"github.com/aussiebroadwan/provision/internal/provision/store/drivers/jsonfile"
	"github.com/aussiebroadwan/provision/internal/provision/store/drivers/sqlite"
	"github.com/aussiebroadwan/provision/pkg/cryptox"
	"github.com/aussiebroadwan/provision/pkg/jwtx"
	"github.com/aussiebroadwan/provision/pkg/logring"
	"github.com/aussiebroadwan/provision/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags.
	BuildVersion = "v0.1.0"

	// SealKeyEnv holds sealing key material when no key file is configured.
	SealKeyEnv = "PROVISION_SEAL_KEY"
)

var ErrNoTOTPSecret = errors.New("no TOTP secret stored for account")

// Application holds the provisioning orchestrator and its dependencies.
type Application struct {
	cfg    Config
	logger *slog.Logger
	ring   *logring.Ring

	// Core dependencies
	store      *jsonfile.Store
	ledger     store.Ledger // nil when run history is disabled
	automation automation.Capability
	simulated  *simulated.Service // set for the simulated driver
	verifier   jwtx.Verifier
	signer     *jwtx.HS256
	inbox      *inbox.Reader

	// Services
	gate                *service.Gate
	runService          *service.RunService
	housekeepingService *service.HousekeepingService

	// Background runs started over HTTP derive from baseCtx.
	baseCtx    context.Context
	cancelRuns context.CancelFunc

	server *http.Server
}

// New creates an Application with all dependencies initialized.
func New(cfg Config) (*Application, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	ring := logring.New(cfg.LogRingSize)
	app := &Application{
		cfg:  cfg,
		ring: ring,
		logger: slogx.New(slogx.Config{
			Service: "provision",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
			Sinks:   []slog.Handler{logring.NewHandler(ring, slogx.ParseLevel(cfg.LogLevel))},
		}),
	}
	app.baseCtx, app.cancelRuns = context.WithCancel(slogx.WithContext(context.Background(), app.logger))

	if err := app.initStore(); err != nil {
		return nil, err
	}
	if err := app.initLedger(); err != nil {
		return nil, err
	}
	if err := app.initAutomation(); err != nil {
		_ = app.Close()
		return nil, err
	}
	if err := app.initAuth(); err != nil {
		_ = app.Close()
		return nil, err
	}
	app.initInbox()
	app.initServices()

	return app, nil
}

// Logger is the application logger, teed into the rolling log.
func (app *Application) Logger() *slog.Logger { return app.logger }

// Context returns ctx carrying the application logger.
func (app *Application) Context(ctx context.Context) context.Context {
	return slogx.WithContext(ctx, app.logger)
}

// initStore opens the credential store, sealing secrets when a key is configured.
func (app *Application) initStore() error {
	opts := []jsonfile.Option{jsonfile.WithLogger(app.logger)}

	sealer, err := cryptox.LoadSealer(app.cfg.SealKeyFile, SealKeyEnv)
	if err != nil {
		return fmt.Errorf("failed to load sealing key: %w", err)
	}
	if sealer != nil {
		opts = append(opts, jsonfile.WithSealer(sealer))
		app.logger.Info("credential store sealing enabled")
	}

	app.store = jsonfile.New(app.cfg.StoreFile, opts...)
	return nil
}

// initLedger opens the run history database and applies migrations.
func (app *Application) initLedger() error {
	if app.cfg.LedgerFile == "" {
		app.logger.Debug("run history disabled")
		return nil
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", app.cfg.LedgerFile)
	db, err := sqlite.NewStore(dsn)
	if err != nil {
		return fmt.Errorf("failed to initialize ledger: %w", err)
	}

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply ledger migrations: %w", err)
	}
	app.ledger = db

	app.logger.Info("ledger migrations applied successfully", "file", app.cfg.LedgerFile)
	return nil
}

func (app *Application) initAutomation() error {
	switch app.cfg.Driver {
	case DriverRemote:
		d := remote.NewDriver(app.cfg.DriverURL)
		d.Client.Token = app.cfg.DriverToken
		app.automation = d
		app.logger.Info("using remote automation driver", "url", app.cfg.DriverURL)

	default:
		sim := simulated.New()
		accounts, err := app.Accounts()
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
		for _, a := range accounts {
			sim.AddAccount(a.Identifier, a.Secret)
		}
		app.simulated = sim
		app.automation = sim
		app.logger.Warn("using simulated automation driver, no remote changes are made")
	}
	return nil
}

// initInbox picks the mailbox backend that matches the automation driver.
func (app *Application) initInbox() {
	var mailbox inbox.Mailbox
	if sim := app.simulated; sim != nil {
		mem := inbox.NewMemory()
		mem.Authenticate = func(c inbox.Credentials) error {
			if !sim.AcceptsMailLogin(c.Username, c.Password) {
				return inbox.ErrAuth
			}
			return nil
		}
		mailbox = mem
	} else {
		mailbox = &inbox.IMAP{Addr: app.cfg.IMAPAddr}
	}
	app.inbox = &inbox.Reader{Mailbox: mailbox, Store: app.store}
}

func (app *Application) initAuth() error {
	if app.cfg.APISecret == "" {
		return nil
	}

	signer, err := jwtx.NewHS256([]byte(app.cfg.APISecret), app.cfg.Issuer)
	if err != nil {
		return fmt.Errorf("invalid API secret: %w", err)
	}
	app.signer = signer
	app.verifier = signer
	return nil
}

// initServices initializes all business logic services.
func (app *Application) initServices() {
	app.gate = &service.Gate{Store: app.store}

	app.runService = &service.RunService{
		Scheduler: service.Scheduler{
			Gate: app.gate,
			Provisioner: &service.Provisioner{
				Automation:  app.automation,
				Store:       app.store,
				Headless:    app.cfg.Headless,
				ProfileRoot: app.cfg.ProfileRoot,
				StepTimeout: app.cfg.StepTimeout,
			},
			Concurrency:    app.cfg.Concurrency,
			SubmitInterval: app.cfg.SubmitInterval,
			Label:          app.cfg.Label,
		},
		Ledger: app.ledger,
		Logger: app.logger,
	}

	if app.ledger != nil {
		app.housekeepingService = service.NewHousekeepingService(
			app.ledger,
			app.logger,
			app.cfg.HousekeepingInterval,
			app.cfg.RunRetention,
		)
	}
}

// Accounts reads the accounts file.
func (app *Application) Accounts() ([]domain.Account, error) {
	return domain.LoadAccountsFile(app.cfg.AccountsFile)
}

// RunBatch provisions accounts synchronously, reporting each finished job
// through onProgress. It is meant for the CLI; the HTTP API starts batches in
// the background instead.
func (app *Application) RunBatch(ctx context.Context, accounts []domain.Account, onProgress func(domain.Progress)) (domain.Report, error) {
	app.runService.Scheduler.OnProgress = onProgress
	return app.runService.RunBatch(app.Context(ctx), accounts)
}

// RunSingle provisions the named account from the accounts file.
func (app *Application) RunSingle(ctx context.Context, identifier, label string) (domain.JobResult, error) {
	accounts, err := app.Accounts()
	if err != nil {
		return domain.JobResult{}, err
	}
	acct, ok := domain.FindAccount(accounts, identifier)
	if !ok {
		return domain.JobResult{}, fmt.Errorf("account %q is not in %s", identifier, app.cfg.AccountsFile)
	}
	return app.runService.RunSingle(app.Context(ctx), acct, label)
}

// Statuses classifies every account in the accounts file.
func (app *Application) Statuses(ctx context.Context) ([]service.AccountStatus, error) {
	accounts, err := app.Accounts()
	if err != nil {
		return nil, err
	}
	return app.gate.ClassifyAll(app.Context(ctx), accounts), nil
}

// Export writes the status partition files into dir.
func (app *Application) Export(ctx context.Context, dir string) ([]string, error) {
	accounts, err := app.Accounts()
	if err != nil {
		return nil, err
	}
	records, err := app.store.Load(app.Context(ctx))
	if err != nil {
		return nil, err
	}
	return service.PartitionAccounts(accounts, records).Export(dir)
}

// TOTP returns the current code for an account.
func (app *Application) TOTP(ctx context.Context, identifier string) (service.Code, error) {
	rec, ok, err := app.store.Get(app.Context(ctx), identifier)
	if err != nil {
		return service.Code{}, err
	}
	if !ok || !rec.HasTOTPSecret() {
		return service.Code{}, fmt.Errorf("%w: %s", ErrNoTOTPSecret, identifier)
	}
	return service.GenerateCode(rec.TOTPSecret, time.Now())
}

// ReadInbox reads the newest messages of a listed account's mailbox.
func (app *Application) ReadInbox(ctx context.Context, identifier string, q inbox.Query) (inbox.Result, error) {
	accounts, err := app.Accounts()
	if err != nil {
		return inbox.Result{}, err
	}
	acct, ok := domain.FindAccount(accounts, identifier)
	if !ok {
		return inbox.Result{}, fmt.Errorf("account %q is not in %s", identifier, app.cfg.AccountsFile)
	}
	return app.inbox.Read(app.Context(ctx), acct, q)
}

// MintToken issues an operator token for the HTTP API.
func (app *Application) MintToken(subject string, scopes []string, ttl time.Duration) (string, error) {
	if app.signer == nil {
		return "", errors.New("PROVISION_API_SECRET is not set")
	}
	return app.signer.Sign(jwtx.NewOperatorClaims(subject, scopes, ttl, app.cfg.Issuer, time.Now()))
}

// Serve runs the operator HTTP API until ctx is cancelled, then shuts down
// gracefully.
func (app *Application) Serve(ctx context.Context) error {
	app.initHTTP()

	if app.housekeepingService != nil {
		app.housekeepingService.Start()
	}

	app.logger.Info("provision service starting", "port", app.cfg.Port, "version", BuildVersion,
		"auth", app.verifier != nil, "driver", app.cfg.Driver)

	// Start server in a goroutine
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	// Block until we receive a shutdown signal or server error
	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
		app.logger.Info("shutdown signal received")

		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown stops the HTTP server, cancels background runs and waits for
// their sessions to close.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down provision service...")

	// Give outstanding requests a deadline for completion
	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if app.server != nil {
		if err := app.server.Shutdown(ctx); err != nil {
			app.logger.Error("graceful server shutdown failed", "error", err)
			if err := app.server.Close(); err != nil {
				app.logger.Error("error closing server", "error", err)
			}
		}
	}

	app.cancelRuns()
	app.runService.Wait()

	if app.housekeepingService != nil {
		app.housekeepingService.Stop()
	}

	if err := app.Close(); err != nil {
		app.logger.Error("error closing ledger", "error", err)
		return err
	}

	app.logger.Info("provision service stopped")
	return nil
}

// Close releases the ledger.
func (app *Application) Close() error {
	if app.ledger == nil {
		return nil
	}
	return app.ledger.Close()
}

// initHTTP initializes the HTTP router and server.
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(app.verifier, BuildVersion, app.logger)

	router.Accounts = app.Accounts
	router.Store = app.store
	router.Ledger = app.ledger
	router.Gate = app.gate
	router.Runs = app.runService
	router.Logs = app.ring
	router.Inbox = app.inbox
	router.BaseContext = app.baseCtx
	router.ApplyRoutes()

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
