package app_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aussiebroadwan/provision/internal/provision/app"
	"github.com/aussiebroadwan/provision/internal/provision/domain"
	"github.com/aussiebroadwan/provision/internal/provision/inbox"
	"github.com/aussiebroadwan/provision/internal/provision/service"
	"github.com/aussiebroadwan/provision/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

func newApp(t *testing.T, mutate func(*app.Config)) (*app.Application, string) {
	t.Helper()
	dir := t.TempDir()

	accounts := "# staff\nalice@example.com|pw-alice\nbob@example.com|pw|with|pipes\n\nbroken line\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "accounts.txt"), []byte(accounts), 0o600))

	cfg := app.DefaultConfig()
	cfg.AccountsFile = filepath.Join(dir, "accounts.txt")
	cfg.StoreFile = filepath.Join(dir, "2fa_backup.json")
	cfg.LedgerFile = filepath.Join(dir, "runs.db")
	cfg.LogLevel = "error"
	if mutate != nil {
		mutate(&cfg)
	}

	a, err := app.New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a, dir
}

func TestSimulatedBatch(t *testing.T) {
	a, dir := newApp(t, nil)
	ctx := context.Background()

	accounts, err := a.Accounts()
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	require.Equal(t, "pw|with|pipes", accounts[1].Secret)

	var progress []domain.Progress
	report, err := a.RunBatch(ctx, accounts, func(p domain.Progress) {
		progress = append(progress, p)
	})
	require.NoError(t, err)
	require.Equal(t, 2, report.Success, strings.Join(report.Lines(), "\n"))
	require.Len(t, progress, 2)
	require.Equal(t, 2, progress[1].Completed)

	statuses, err := a.Statuses(ctx)
	require.NoError(t, err)
	for _, s := range statuses {
		require.Equal(t, domain.StatusComplete, s.Status)
	}

	code, err := a.TOTP(ctx, "alice@example.com")
	require.NoError(t, err)
	require.Len(t, code.Code, 6)

	files, err := a.Export(ctx, dir)
	require.NoError(t, err)
	require.Len(t, files, 3)
	complete, err := os.ReadFile(filepath.Join(dir, service.CompleteFile))
	require.NoError(t, err)
	require.Contains(t, string(complete), "alice@example.com|pw-alice")

	// Second run is a no-op.
	report, err = a.RunBatch(ctx, accounts, nil)
	require.NoError(t, err)
	require.Equal(t, 2, report.Skipped)

	// The simulated mailbox accepts the app password recorded by the run.
	res, err := a.ReadInbox(ctx, "alice@example.com", inbox.Query{UnreadOnly: true})
	require.NoError(t, err)
	require.Equal(t, inbox.AuthAppPassword, res.Auth)
	require.Empty(t, res.Messages)

	_, err = a.ReadInbox(ctx, "nobody@example.com", inbox.Query{})
	require.ErrorContains(t, err, "not in")
}

func TestReadInboxBeforeProvisioning(t *testing.T) {
	a, _ := newApp(t, nil)

	res, err := a.ReadInbox(context.Background(), "alice@example.com", inbox.Query{Limit: 3})
	require.NoError(t, err)
	require.Equal(t, inbox.AuthPassword, res.Auth)
}

func TestRunSingleAndTOTPErrors(t *testing.T) {
	a, _ := newApp(t, nil)
	ctx := context.Background()

	_, err := a.TOTP(ctx, "alice@example.com")
	require.ErrorIs(t, err, app.ErrNoTOTPSecret)

	_, err = a.RunSingle(ctx, "nobody@example.com", "")
	require.ErrorContains(t, err, "not in")

	res, err := a.RunSingle(ctx, "bob@example.com", "Phone")
	require.NoError(t, err)
	require.Equal(t, domain.OutcomeSuccess, res.Outcome, res.Message)
	require.Equal(t, "Phone", res.Label)
}

func TestMintToken(t *testing.T) {
	a, _ := newApp(t, nil)
	_, err := a.MintToken("ops", []string{jwtx.ScopeRead}, 0)
	require.Error(t, err)

	secret := strings.Repeat("x", jwtx.MinSecretLength)
	a, _ = newApp(t, func(c *app.Config) { c.APISecret = secret })
	token, err := a.MintToken("ops", []string{jwtx.ScopeRead}, 0)
	require.NoError(t, err)

	v, err := jwtx.NewHS256([]byte(secret), "provision")
	require.NoError(t, err)
	claims, err := v.Verify(token)
	require.NoError(t, err)
	require.Equal(t, "ops", claims.Subject)
	require.True(t, claims.HasScope(jwtx.ScopeRead))
}

func TestNewRejectsBadConfig(t *testing.T) {
	cfg := app.DefaultConfig()
	cfg.Driver = app.DriverRemote
	_, err := app.New(cfg)
	require.ErrorContains(t, err, "invalid configuration")

	cfg = app.DefaultConfig()
	cfg.StoreFile = filepath.Join(t.TempDir(), "2fa_backup.json")
	cfg.AccountsFile = filepath.Join(t.TempDir(), "missing.txt")
	cfg.APISecret = "short"
	_, err = app.New(cfg)
	require.ErrorIs(t, err, jwtx.ErrWeakSecret)
}
