package service_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/aussiebroadwan/provision/internal/provision/automation/simulated"
	"github.com/aussiebroadwan/provision/internal/provision/domain"
	"github.com/aussiebroadwan/provision/internal/provision/service"
	"github.com/aussiebroadwan/provision/internal/provision/store/drivers/jsonfile"
	"github.com/aussiebroadwan/provision/pkg/slogx"
	"github.com/stretchr/testify/require"
)

type env struct {
	remote      *simulated.Service
	store       *jsonfile.Store
	provisioner *service.Provisioner
	gate        *service.Gate
}

func newEnv(t *testing.T) *env {
	t.Helper()

	remote := simulated.New()
	remote.Retry.Delay = time.Millisecond

	st := jsonfile.New(filepath.Join(t.TempDir(), "2fa_backup.json"),
		jsonfile.WithLogger(slogx.Discard()))

	return &env{
		remote: remote,
		store:  st,
		provisioner: &service.Provisioner{
			Automation:  remote,
			Store:       st,
			Headless:    true,
			StepTimeout: 5 * time.Second,
		},
		gate: &service.Gate{Store: st},
	}
}

func (e *env) scheduler(concurrency int) *service.Scheduler {
	return &service.Scheduler{
		Gate:        e.gate,
		Provisioner: e.provisioner,
		Concurrency: concurrency,
	}
}

func (e *env) record(t *testing.T, identifier string) (domain.SecurityRecord, bool) {
	t.Helper()
	rec, ok, err := e.store.Get(context.Background(), identifier)
	require.NoError(t, err)
	return rec, ok
}

// seedComplete makes both sides agree the account is fully provisioned.
func (e *env) seedComplete(t *testing.T, identifier string) {
	t.Helper()
	e.seedPartial(t, identifier, "JBSWY3DPEHPK3PXP")
	err := e.store.ApplyUpdate(context.Background(), identifier, func(rec *domain.SecurityRecord) error {
		rec.PutAppPassword(domain.DefaultAppPasswordLabel, "abcdabcdabcdabcd", time.Now())
		return nil
	})
	require.NoError(t, err)
}

// seedPartial enrolls the account remotely and stores the secret locally.
func (e *env) seedPartial(t *testing.T, identifier, secret string) {
	t.Helper()
	e.remote.Put(identifier, simulated.Account{
		Password:    "pw-" + identifier,
		TOTPSecret:  secret,
		TwoFactorOn: true,
	})
	err := e.store.ApplyUpdate(context.Background(), identifier, func(rec *domain.SecurityRecord) error {
		return rec.SetTOTPSecret(secret)
	})
	require.NoError(t, err)
}

func account(identifier string) domain.Account {
	return domain.Account{Identifier: identifier, Secret: "pw-" + identifier}
}
