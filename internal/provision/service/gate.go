package service

import (
	"context"
	"slices"

	"github.com/aussiebroadwan/provision/internal/provision/domain"
	"github.com/aussiebroadwan/provision/internal/provision/store"
	"github.com/aussiebroadwan/provision/pkg/slogx"
)

// AccountStatus is the per-account view rendered by the front end.
type AccountStatus struct {
	Identifier        string        `json:"identifier"`
	Status            domain.Status `json:"status"`
	Label             string        `json:"label"`
	HasTOTPSecret     bool          `json:"has_totp_secret"`
	AppPasswordLabels []string      `json:"app_password_labels"`
	UpdatedAt         string        `json:"updated_at,omitempty"`
}

// Gate decides whether an account needs provisioning at all.
type Gate struct {
	Store store.CredentialStore
}

// Classify reads the store and reports how far the account has got. A store
// that cannot be read classifies every account as not started.
func (g *Gate) Classify(ctx context.Context, identifier string) domain.Status {
	rec, ok, err := g.Store.Get(ctx, identifier)
	if err != nil {
		slogx.FromContext(ctx).Warn("failed to read credential store", "error", err)
		return domain.StatusNotStarted
	}
	return domain.StatusOf(rec, ok)
}

// ClassifyAll classifies every account from a single store load, preserving
// input order.
func (g *Gate) ClassifyAll(ctx context.Context, accounts []domain.Account) []AccountStatus {
	records, err := g.Store.Load(ctx)
	if err != nil {
		slogx.FromContext(ctx).Warn("failed to read credential store", "error", err)
		records = nil
	}

	out := make([]AccountStatus, 0, len(accounts))
	for _, acct := range accounts {
		rec, ok := records[acct.Identifier]
		out = append(out, statusOf(acct.Identifier, rec, ok))
	}
	return out
}

func statusOf(identifier string, rec domain.SecurityRecord, ok bool) AccountStatus {
	status := domain.StatusOf(rec, ok)
	labels := make([]string, 0, len(rec.AppPasswords))
	for label := range rec.AppPasswords {
		labels = append(labels, label)
	}
	slices.Sort(labels)

	return AccountStatus{
		Identifier:        identifier,
		Status:            status,
		Label:             status.Label(),
		HasTOTPSecret:     rec.HasTOTPSecret(),
		AppPasswordLabels: labels,
		UpdatedAt:         rec.UpdatedAt,
	}
}
