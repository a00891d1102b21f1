package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"strings"

	"github.com/pribylovaa/school-admin/internal/apiclient"
	"github.com/pribylovaa/school-admin/internal/config"
	"github.com/pribylovaa/school-admin/internal/credentials"
	apierrors "github.com/pribylovaa/school-admin/internal/errors"
	"github.com/pribylovaa/school-admin/internal/pkg/log"
	"github.com/pribylovaa/school-admin/internal/resources"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

// Коды завершения.
const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
	exitAuth  = 3
)

const (
	envUsername = "SCHOOLCTL_USERNAME"
	envPassword = "SCHOOLCTL_PASSWORD"
)

var errUsage = errors.New("usage")

// app — разобранные глобальные флаги и собранные зависимости команды.
type app struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	log    *slog.Logger
	client *apiclient.Client
	closer func() error
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("schoolctl", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var (
		configPath string
		verbose    bool
	)
	fs.StringVar(&configPath, "config", "", "path to config file")
	fs.BoolVar(&verbose, "v", false, "verbose logging to stderr")
	fs.Usage = func() { printUsage(stderr, fs) }

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}

	if fs.NArg() == 0 {
		printUsage(stderr, fs)
		return exitUsage
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(stderr, "config: %v\n", err)
		return exitError
	}

	a := &app{
		stdin:  stdin,
		stdout: stdout,
		stderr: stderr,
		log:    setupLogger(cfg.Env, verbose, stderr),
	}

	cmd, rest := fs.Arg(0), fs.Args()[1:]

	// Все записи команды, включая записи apiclient, помечены её именем.
	ctx, a.log = log.With(log.Into(ctx, a.log), slog.String("cmd", cmd))

	// resources не требует хранилища и сети.
	if cmd == "resources" {
		return a.exit(ctx, a.names())
	}

	if err := a.open(ctx, cfg); err != nil {
		return a.exit(ctx, err)
	}
	defer func() {
		if err := a.closer(); err != nil {
			a.log.Warn("credentials_close_failed", slog.String("err", err.Error()))
		}
	}()

	switch cmd {
	case "login":
		err = a.login(ctx, rest)
	case "logout":
		err = a.logout(ctx)
	case "request":
		err = a.request(ctx, rest)
	case "list":
		err = a.list(ctx, rest)
	default:
		fmt.Fprintf(stderr, "unknown command %q\n", cmd)
		printUsage(stderr, fs)
		return exitUsage
	}

	return a.exit(ctx, err)
}

// open собирает хранилище учётных данных и клиент.
func (a *app) open(ctx context.Context, cfg *config.Config) error {
	store, closer, err := credentials.Open(ctx, cfg.Credentials.StoreOptions())
	if err != nil {
		return err
	}

	client, err := apiclient.New(cfg.ClientConfig(), store, apiclient.WithLogger(a.log))
	if err != nil {
		_ = closer()
		return err
	}

	a.client = client
	a.closer = closer

	return nil
}

func (a *app) login(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	fs.SetOutput(a.stderr)

	username := fs.String("username", os.Getenv(envUsername), "account username (or "+envUsername+")")
	password := fs.String("password", "", "account password (or "+envPassword+")")

	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	if *password == "" {
		*password = os.Getenv(envPassword)
	}

	if *username == "" || *password == "" {
		fmt.Fprintln(a.stderr, "login: username and password are required")
		return errUsage
	}

	if err := a.client.Login(ctx, *username, *password); err != nil {
		return err
	}

	return a.print(map[string]string{"status": "logged_in"})
}

func (a *app) logout(ctx context.Context) error {
	if err := a.client.Logout(ctx); err != nil {
		return err
	}

	return a.print(map[string]string{"status": "logged_out"})
}

// request METHOD PATH [JSON|-]; "-" читает тело из stdin.
func (a *app) request(ctx context.Context, args []string) error {
	if len(args) < 2 || len(args) > 3 {
		fmt.Fprintln(a.stderr, "request: expected METHOD PATH [JSON|-]")
		return errUsage
	}

	var body any
	if len(args) == 3 {
		raw := []byte(args[2])
		if args[2] == "-" {
			b, err := io.ReadAll(a.stdin)
			if err != nil {
				return fmt.Errorf("read stdin: %w", err)
			}
			raw = b
		}

		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			fmt.Fprintf(a.stderr, "request: body is not valid JSON: %v\n", err)
			return errUsage
		}
		body = v
	}

	out, err := a.client.Request(ctx, args[0], args[1], body)
	if err != nil {
		return err
	}

	return a.print(out)
}

// list RESOURCE [key=value ...]
func (a *app) list(ctx context.Context, args []string) error {
	if len(args) == 0 {
		fmt.Fprintln(a.stderr, "list: expected RESOURCE [key=value ...]")
		return errUsage
	}

	query := url.Values{}
	for _, kv := range args[1:] {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			fmt.Fprintf(a.stderr, "list: bad query parameter %q, want key=value\n", kv)
			return errUsage
		}
		query.Add(k, v)
	}

	page, err := resources.NewSchool(a.client).ListByName(ctx, args[0], query)
	if err != nil {
		return err
	}

	return a.print(page)
}

func (a *app) names() error {
	return a.print(resources.NewSchool(nil).Names())
}

func (a *app) print(v any) error {
	enc := json.NewEncoder(a.stdout)
	enc.SetIndent("", "  ")

	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("write output: %w", err)
	}

	return nil
}

// exit печатает ошибку нормализованным JSON и выбирает код завершения.
func (a *app) exit(ctx context.Context, err error) int {
	if err == nil {
		return exitOK
	}

	if errors.Is(err, errUsage) {
		return exitUsage
	}

	enc := json.NewEncoder(a.stderr)
	enc.SetIndent("", "  ")
	_ = enc.Encode(apierrors.ErrorResponse{Error: apierrors.DescribeContext(ctx, err)})

	a.log.Debug("command_failed", slog.String("err", err.Error()))

	if apiclient.IsAuth(err) {
		fmt.Fprintln(a.stderr, "hint: session expired or missing, run `schoolctl login`")
		return exitAuth
	}

	return exitError
}

func printUsage(w io.Writer, fs *flag.FlagSet) {
	fmt.Fprint(w, `usage: schoolctl [flags] <command> [args]

commands:
  login -username U [-password P]   obtain and store a token pair
  logout                            forget stored tokens
  request METHOD PATH [JSON|-]      authenticated request, prints the response
  list RESOURCE [key=value ...]     list a collection as {items, total}
  resources                         known collection names

flags:
`)
	fs.PrintDefaults()
}

// setupLogger пишет в stderr, чтобы не смешиваться с JSON-выводом команд.
// Без -v выводятся только предупреждения и ошибки.
func setupLogger(env string, verbose bool, w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}

	switch env {
	case envDev:
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
	case envProd:
		if !verbose {
			level = slog.LevelError
		}
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
	case envLocal:
		return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
	default:
		return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
	}
}
