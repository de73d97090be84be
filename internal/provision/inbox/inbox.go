// Package inbox reads recent messages from an account's mailbox using the
// credentials recorded during provisioning and pulls verification codes out
// of them.
package inbox

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/aussiebroadwan/provision/internal/provision/domain"
	"github.com/aussiebroadwan/provision/internal/provision/service"
	"github.com/aussiebroadwan/provision/internal/provision/store"
	"github.com/aussiebroadwan/provision/pkg/codescan"
	"github.com/aussiebroadwan/provision/pkg/slogx"
	"github.com/emersion/go-message"
	"github.com/emersion/go-message/mail"
)

const (
	DefaultLimit = 5
	MaxLimit     = 50
	previewRunes = 300
)

var (
	// ErrAuth means the mailbox rejected the credentials.
	ErrAuth = errors.New("inbox: authentication failed")
	// ErrUnavailable means the mailbox could not be reached or read.
	ErrUnavailable = errors.New("inbox: mailbox unavailable")
)

// AuthMethod records which credential was presented to the mailbox.
type AuthMethod string

const (
	AuthAppPassword  AuthMethod = "app_password"
	AuthPasswordTOTP AuthMethod = "password_totp"
	AuthPassword     AuthMethod = "password"
)

type Credentials struct {
	Username string
	Password string
}

// Query selects which messages to read.
type Query struct {
	Limit      int
	UnreadOnly bool
}

// RawMessage is an undecoded RFC 5322 message.
type RawMessage struct {
	SeqNum uint32
	Body   []byte
}

// Mailbox fetches the newest messages of an inbox, newest first. Reading never
// marks messages as seen.
type Mailbox interface {
	Fetch(ctx context.Context, creds Credentials, q Query) ([]RawMessage, error)
}

// Message is one decoded message and the code found in it, if any.
type Message struct {
	SeqNum  uint32    `json:"seq_num"`
	Subject string    `json:"subject"`
	From    string    `json:"from"`
	Date    time.Time `json:"date,omitzero"`
	Preview string    `json:"preview"`
	Code    string    `json:"code,omitempty"`
}

type Result struct {
	Identifier string     `json:"identifier"`
	Auth       AuthMethod `json:"auth"`
	Messages   []Message  `json:"messages"`
	// Skipped counts messages that could not be decoded.
	Skipped int `json:"skipped"`
}

// Reader resolves credentials from the credential store and reads an inbox.
type Reader struct {
	Mailbox Mailbox
	Store   store.CredentialStore
	Codes   *codescan.Extractor
	Now     func() time.Time
}

// Read fetches the newest messages for acct. An app password from the store
// is preferred; otherwise the account secret is used, with the current TOTP
// code appended when a secret is stored.
func (r *Reader) Read(ctx context.Context, acct domain.Account, q Query) (Result, error) {
	ctx = slogx.WithAccount(ctx, acct.Identifier)
	log := slogx.FromContext(ctx)

	q.Limit = clampLimit(q.Limit)

	creds, method, err := r.credentials(ctx, acct)
	if err != nil {
		return Result{}, err
	}
	log.Debug("reading inbox", "auth", string(method), "limit", q.Limit, "unread_only", q.UnreadOnly)

	raw, err := r.Mailbox.Fetch(ctx, creds, q)
	if err != nil {
		return Result{}, err
	}

	res := Result{
		Identifier: acct.Identifier,
		Auth:       method,
		Messages:   make([]Message, 0, len(raw)),
	}
	for _, m := range raw {
		msg, err := r.decode(m)
		if err != nil {
			log.Warn("failed to decode message", "seq_num", m.SeqNum, "error", err)
			res.Skipped++
			continue
		}
		if msg.Code != "" {
			log.Info("code found in message", "seq_num", msg.SeqNum, "subject", msg.Subject)
		}
		res.Messages = append(res.Messages, msg)
	}

	log.Info("inbox read", "messages", len(res.Messages), "skipped", res.Skipped)
	return res, nil
}

func (r *Reader) credentials(ctx context.Context, acct domain.Account) (Credentials, AuthMethod, error) {
	creds := Credentials{Username: acct.Identifier, Password: acct.Secret}

	rec, ok, err := r.Store.Get(ctx, acct.Identifier)
	if err != nil {
		return Credentials{}, "", err
	}
	if !ok {
		return creds, AuthPassword, nil
	}

	if pw, found := appPassword(rec); found {
		creds.Password = pw
		return creds, AuthAppPassword, nil
	}

	if rec.HasTOTPSecret() {
		code, err := service.GenerateCode(rec.TOTPSecret, r.now())
		if err != nil {
			return Credentials{}, "", err
		}
		creds.Password += code.Code
		return creds, AuthPasswordTOTP, nil
	}

	return creds, AuthPassword, nil
}

// appPassword picks the default label, then the most recently created one.
func appPassword(rec domain.SecurityRecord) (string, bool) {
	if ap, ok := rec.AppPasswords[domain.DefaultAppPasswordLabel]; ok && ap.Password != "" {
		return ap.Password, true
	}

	labels := make([]string, 0, len(rec.AppPasswords))
	for label, ap := range rec.AppPasswords {
		if ap.Password != "" {
			labels = append(labels, label)
		}
	}
	if len(labels) == 0 {
		return "", false
	}
	sort.Slice(labels, func(i, j int) bool {
		a, b := rec.AppPasswords[labels[i]], rec.AppPasswords[labels[j]]
		if a.CreatedAt != b.CreatedAt {
			return a.CreatedAt > b.CreatedAt
		}
		return labels[i] < labels[j]
	})
	return rec.AppPasswords[labels[0]].Password, true
}

func (r *Reader) decode(raw RawMessage) (Message, error) {
	mr, err := mail.CreateReader(bytes.NewReader(raw.Body))
	if err != nil && !message.IsUnknownCharset(err) {
		return Message{}, fmt.Errorf("parse message: %w", err)
	}
	defer mr.Close()

	msg := Message{SeqNum: raw.SeqNum}
	msg.Subject, _ = mr.Header.Subject()
	if from, err := mr.Header.AddressList("From"); err == nil && len(from) > 0 {
		msg.From = from[0].String()
	}
	if date, err := mr.Header.Date(); err == nil {
		msg.Date = date
	}

	body, err := textBody(mr)
	if err != nil {
		return Message{}, err
	}

	msg.Preview = preview(body)
	msg.Code, _ = r.extractor().Extract(msg.Subject + "\n" + body)
	return msg, nil
}

// textBody returns the first text/plain part, falling back to the first
// text/html part.
func textBody(mr *mail.Reader) (string, error) {
	var html string
	for {
		p, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil && !message.IsUnknownCharset(err) {
			return "", fmt.Errorf("read message part: %w", err)
		}
		if p == nil {
			continue
		}

		h, ok := p.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}
		ct, _, _ := h.ContentType()
		switch ct {
		case "text/plain", "":
			b, err := io.ReadAll(p.Body)
			if err != nil {
				return "", fmt.Errorf("read message body: %w", err)
			}
			return string(b), nil
		case "text/html":
			if html == "" {
				b, err := io.ReadAll(p.Body)
				if err != nil {
					return "", fmt.Errorf("read message body: %w", err)
				}
				html = string(b)
			}
		}
	}
	return html, nil
}

func preview(body string) string {
	s := strings.Join(strings.Fields(body), " ")
	if utf8.RuneCountInString(s) <= previewRunes {
		return s
	}
	return string([]rune(s)[:previewRunes]) + "..."
}

func clampLimit(n int) int {
	switch {
	case n <= 0:
		return DefaultLimit
	case n > MaxLimit:
		return MaxLimit
	default:
		return n
	}
}

func (r *Reader) extractor() *codescan.Extractor {
	if r.Codes == nil {
		return codescan.New(codescan.DefaultConfig())
	}
	return r.Codes
}

func (r *Reader) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}
