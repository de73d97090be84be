// provision drives account security setup: it enables one-time-password
// two-factor sign-in, issues an app password and records the resulting
// secrets in the local credential store.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/aussiebroadwan/provision/internal/provision/app"
	"github.com/aussiebroadwan/provision/internal/provision/domain"
	"github.com/aussiebroadwan/provision/internal/provision/inbox"
	"github.com/aussiebroadwan/provision/pkg/jwtx"
	"github.com/spf13/pflag"
)

const usage = `provision - account security provisioning

Usage:
  provision <command> [flags]

Commands:
  run                 provision every account in the accounts file
  account <id>        provision a single account
  status              show each account's status (--export DIR writes partition files)
  totp <id>           print the current one-time code for an account
  read <id>           read the newest inbox messages and any codes in them
  serve               run the operator HTTP API
  token <subject>     mint an operator token for the HTTP API

Run "provision <command> --help" for flags.
`

func main() {
	if err := run(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		fmt.Fprint(os.Stderr, usage)
		return nil
	}

	cmd, rest := args[0], args[1:]
	cfg, err := app.LoadConfig(rest)
	if err != nil {
		return err
	}

	fs := pflag.NewFlagSet("provision "+cmd, pflag.ContinueOnError)
	cfg.BindFlags(fs)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch cmd {
	case "run":
		return runAll(ctx, fs, &cfg, rest)
	case "account":
		return runAccount(ctx, fs, &cfg, rest)
	case "status":
		return runStatus(ctx, fs, &cfg, rest)
	case "totp":
		return runTOTP(ctx, fs, &cfg, rest)
	case "read":
		return runRead(ctx, fs, &cfg, rest)
	case "serve":
		return runServe(ctx, fs, &cfg, rest)
	case "token":
		return runToken(fs, &cfg, rest)
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func open(fs *pflag.FlagSet, cfg *app.Config, args []string) (*app.Application, error) {
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return app.New(*cfg)
}

func runAll(ctx context.Context, fs *pflag.FlagSet, cfg *app.Config, args []string) error {
	a, err := open(fs, cfg, args)
	if err != nil {
		return err
	}
	defer a.Close()

	accounts, err := a.Accounts()
	if err != nil {
		return err
	}
	if len(accounts) == 0 {
		return fmt.Errorf("no accounts found in %s", cfg.AccountsFile)
	}

	report, err := a.RunBatch(ctx, accounts, func(p domain.Progress) {
		fmt.Println(p)
	})
	if err != nil {
		return err
	}

	printReport(report)
	if report.Error > 0 {
		return fmt.Errorf("%d of %d accounts failed", report.Error, report.Total)
	}
	return nil
}

func runAccount(ctx context.Context, fs *pflag.FlagSet, cfg *app.Config, args []string) error {
	a, err := open(fs, cfg, args)
	if err != nil {
		return err
	}
	defer a.Close()

	if fs.NArg() != 1 {
		return errors.New("usage: provision account <identifier>")
	}

	res, err := a.RunSingle(ctx, fs.Arg(0), cfg.Label)
	if err != nil {
		return err
	}

	fmt.Printf("%s [%s] %s\n", res.Identifier, res.Outcome, res.Message)
	if res.Outcome == domain.OutcomeError {
		return errors.New("provisioning failed")
	}
	return nil
}

func runStatus(ctx context.Context, fs *pflag.FlagSet, cfg *app.Config, args []string) error {
	exportDir := fs.String("export", "", "write accounts_*.txt partition files into this directory")
	asJSON := fs.Bool("json", false, "print JSON instead of a table")

	a, err := open(fs, cfg, args)
	if err != nil {
		return err
	}
	defer a.Close()

	statuses, err := a.Statuses(ctx)
	if err != nil {
		return err
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(statuses); err != nil {
			return err
		}
	} else {
		tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "ACCOUNT\tSTATUS\tAPP PASSWORDS\tUPDATED")
		for _, s := range statuses {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", s.Identifier, s.Label, strings.Join(s.AppPasswordLabels, ","), s.UpdatedAt)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	if *exportDir != "" {
		files, err := a.Export(ctx, *exportDir)
		if err != nil {
			return err
		}
		for _, f := range files {
			fmt.Fprintf(os.Stderr, "wrote %s\n", f)
		}
	}
	return nil
}

func runTOTP(ctx context.Context, fs *pflag.FlagSet, cfg *app.Config, args []string) error {
	a, err := open(fs, cfg, args)
	if err != nil {
		return err
	}
	defer a.Close()

	if fs.NArg() != 1 {
		return errors.New("usage: provision totp <identifier>")
	}

	code, err := a.TOTP(ctx, fs.Arg(0))
	if err != nil {
		return err
	}
	fmt.Printf("%s (valid for %ds)\n", code.Code, code.Remaining)
	return nil
}

func runRead(ctx context.Context, fs *pflag.FlagSet, cfg *app.Config, args []string) error {
	limit := fs.IntP("limit", "n", inbox.DefaultLimit, "number of messages to read")
	unread := fs.Bool("unread", false, "only unread messages")
	asJSON := fs.Bool("json", false, "print JSON instead of a table")

	a, err := open(fs, cfg, args)
	if err != nil {
		return err
	}
	defer a.Close()

	if fs.NArg() != 1 {
		return errors.New("usage: provision read <identifier>")
	}

	res, err := a.ReadInbox(ctx, fs.Arg(0), inbox.Query{Limit: *limit, UnreadOnly: *unread})
	if err != nil {
		return err
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	fmt.Fprintf(os.Stderr, "signed in with %s\n", res.Auth)
	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tDATE\tFROM\tSUBJECT\tCODE")
	for _, m := range res.Messages {
		date := ""
		if !m.Date.IsZero() {
			date = domain.FormatTimestamp(m.Date.Local())
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", m.SeqNum, date, m.From, m.Subject, m.Code)
	}
	return tw.Flush()
}

func runServe(ctx context.Context, fs *pflag.FlagSet, cfg *app.Config, args []string) error {
	fs.IntVarP(&cfg.Port, "port", "p", cfg.Port, "HTTP listen port")

	a, err := open(fs, cfg, args)
	if err != nil {
		return err
	}
	return a.Serve(ctx)
}

func runToken(fs *pflag.FlagSet, cfg *app.Config, args []string) error {
	scopes := fs.StringSlice("scope", []string{jwtx.ScopeRead}, "scopes to grant (provision:read, provision:run)")
	ttl := fs.Duration("ttl", jwtx.DefaultOperatorTokenTTL, "token lifetime")

	a, err := open(fs, cfg, args)
	if err != nil {
		return err
	}
	defer a.Close()

	if fs.NArg() != 1 {
		return errors.New("usage: provision token <subject>")
	}

	token, err := a.MintToken(fs.Arg(0), *scopes, *ttl)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}

func printReport(r domain.Report) {
	fmt.Println()
	for _, line := range r.Lines() {
		fmt.Println(line)
	}
	fmt.Println(r.Summary())
}
