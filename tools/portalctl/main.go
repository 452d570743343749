// Command portalctl drives the portal login and registration flows from a
// terminal, either straight against the backend or through a running
// portal's /api/proxy relay.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/md-rashed-zaman/careportal/libs/auth"
	"github.com/md-rashed-zaman/careportal/libs/backend"
	"github.com/md-rashed-zaman/careportal/libs/config"
	"github.com/md-rashed-zaman/careportal/libs/flow"
	"github.com/md-rashed-zaman/careportal/libs/runtime"
	"github.com/md-rashed-zaman/careportal/libs/session"
)

const usage = `usage: portalctl [flags] login|register|probe

flags:
`

func main() {
	_ = config.LoadDotEnv()
	ctx, stop := runtime.SignalContext()
	defer stop()
	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

type options struct {
	cfg        backend.Config
	verbose    bool
	identifier string
	role       string
	password   string
	firstname  string
	lastname   string
	phone      string
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	cfg := backend.ConfigFromEnv()
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	opts := options{}
	fs := flag.NewFlagSet("portalctl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprint(stderr, usage)
		fs.PrintDefaults()
	}
	fs.BoolVar(&cfg.UseProxy, "proxy", cfg.UseProxy, "route calls through the portal relay")
	fs.StringVar(&cfg.BaseURL, "base-url", cfg.BaseURL, "backend base url")
	fs.StringVar(&cfg.ProxyURL, "proxy-url", cfg.ProxyURL, "portal relay url used with -proxy")
	fs.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "per-call timeout")
	fs.BoolVar(&opts.verbose, "v", cfg.EnableLogging, "log every backend call")
	fs.StringVar(&opts.identifier, "identifier", "", "login or registration email")
	fs.StringVar(&opts.role, "role", backend.RoleAdmin, "login role (U_ADM, U_DEF, U_PRAC, U_PAT)")
	fs.StringVar(&opts.password, "password", config.String("PORTAL_PASSWORD", ""), "password")
	fs.StringVar(&opts.firstname, "firstname", "", "registration first name")
	fs.StringVar(&opts.lastname, "lastname", "", "registration last name")
	fs.StringVar(&opts.phone, "phone", "", "registration phone number")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return errors.New("exactly one command is required")
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	cfg.EnableLogging = opts.verbose
	opts.cfg = cfg

	level := slog.LevelWarn
	if opts.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))
	api := backend.New(cfg, logger)
	p := &prompter{in: bufio.NewScanner(stdin), out: stdout}

	switch fs.Arg(0) {
	case "login":
		return login(ctx, api, logger, opts, p)
	case "register":
		return register(ctx, api, logger, opts, p)
	case "probe":
		return probe(ctx, api, stdout)
	default:
		fs.Usage()
		return fmt.Errorf("unknown command %q", fs.Arg(0))
	}
}

type prompter struct {
	in  *bufio.Scanner
	out io.Writer
}

func (p *prompter) ask(question string) (string, error) {
	fmt.Fprint(p.out, question+": ")
	if !p.in.Scan() {
		if err := p.in.Err(); err != nil {
			return "", err
		}
		return "", io.ErrUnexpectedEOF
	}
	return strings.TrimSpace(p.in.Text()), nil
}

// orAsk returns v, or prompts for it when empty.
func (p *prompter) orAsk(v, question string) (string, error) {
	if v != "" {
		return v, nil
	}
	return p.ask(question)
}

func login(ctx context.Context, api *backend.Client, logger *slog.Logger, opts options, p *prompter) error {
	identifier, err := p.orAsk(opts.identifier, "email")
	if err != nil {
		return err
	}
	password, err := p.orAsk(opts.password, "password")
	if err != nil {
		return err
	}

	m := flow.NewMachine(api, flow.NopRecorder{}, logger)
	s := session.New()
	data, err := m.InitiateLogin(ctx, s, backend.LoginRequest{Identifier: identifier, Role: opts.role, Password: password})
	if err != nil {
		return explain(err)
	}
	fmt.Fprintf(p.out, "verification sent (%s), mode=%s\n", data.VerificationType, opts.cfg.Mode())

	code, err := p.ask("verification code")
	if err != nil {
		return err
	}
	if _, err := m.VerifyLogin(ctx, s, code); err != nil {
		return explain(err)
	}
	fmt.Fprintf(p.out, "signed in user=%s role=%s\n", s.UserID, s.UserRole)
	if exp, ok := auth.BackendTokenExpiry(s.SessionToken); ok {
		fmt.Fprintf(p.out, "session expires %s\n", exp.UTC().Format(time.RFC3339))
	}
	fmt.Fprintln(p.out, s.SessionToken)
	return nil
}

func register(ctx context.Context, api *backend.Client, logger *slog.Logger, opts options, p *prompter) error {
	var err error
	in := backend.RegisterRequest{Firstname: opts.firstname, Lastname: opts.lastname, Email: opts.identifier, Password: opts.password}
	if in.Firstname, err = p.orAsk(in.Firstname, "first name"); err != nil {
		return err
	}
	if in.Lastname, err = p.orAsk(in.Lastname, "last name"); err != nil {
		return err
	}
	if in.Email, err = p.orAsk(in.Email, "email"); err != nil {
		return err
	}
	if in.Password, err = p.orAsk(in.Password, "password"); err != nil {
		return err
	}

	m := flow.NewMachine(api, flow.NopRecorder{}, logger)
	s := session.New()
	if _, err := m.Register(ctx, s, in); err != nil {
		return explain(err)
	}
	code, err := p.ask("email code")
	if err != nil {
		return err
	}
	if _, err := m.VerifyEmail(ctx, s, code); err != nil {
		return explain(err)
	}
	phone, err := p.orAsk(opts.phone, "phone number")
	if err != nil {
		return err
	}
	if _, err := m.SendPhoneCode(ctx, s, phone); err != nil {
		return explain(err)
	}
	code, err = p.ask("phone code")
	if err != nil {
		return err
	}
	data, err := m.VerifyPhone(ctx, s, code)
	if err != nil {
		return explain(err)
	}
	fmt.Fprintf(p.out, "registration complete user=%s; sign in with portalctl login\n", data.UserID)
	return nil
}

func probe(ctx context.Context, api *backend.Client, out io.Writer) error {
	res, err := api.ProbeHealth(ctx)
	if err != nil {
		return explain(err)
	}
	fmt.Fprintf(out, "%s%s -> %d %s\n", api.BaseURL(), backend.PathHealth, res.Status, res.StatusText)
	return nil
}

// explain adds a hint for failures that have a known remedy.
func explain(err error) error {
	var network *backend.NetworkError
	if errors.As(err, &network) && network.SuggestsProxy() {
		return fmt.Errorf("%w (try -proxy if the backend is not reachable directly)", err)
	}
	return err
}
