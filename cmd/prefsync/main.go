package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/miracckms/Couse-Selector-Advance/internal/app"
	"github.com/miracckms/Couse-Selector-Advance/internal/config"
	"github.com/miracckms/Couse-Selector-Advance/internal/logger"
	"github.com/miracckms/Couse-Selector-Advance/internal/prefs"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const usage = `usage: prefsync [-env-file path] <command> [args]

commands:
  login -username u -password p   sign in and store the credential
  logout                          revoke the session and clear the credential
  status                          show the signed-in user and preferences
  prefs get                       print preferences as JSON
  prefs set key=value...          update preference fields
  prefs export <file>             write preferences to a TOML snapshot
  prefs import <file>             replace preferences from a TOML snapshot
  sync [-metrics-addr addr]       apply key=value lines from stdin as they arrive
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "prefsync:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout io.Writer) error {
	fs := flag.NewFlagSet("prefsync", flag.ContinueOnError)
	envFile := fs.String("env-file", ".env", "Path to a .env file with configuration")
	fs.Usage = func() { fmt.Fprint(fs.Output(), usage) }
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return errors.New("missing command")
	}

	cfg, err := config.Load(*envFile)
	if err != nil {
		return err
	}
	log, err := logger.New(logger.Options{Env: cfg.Env, Level: cfg.LogLevel})
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	a, err := app.New(cfg, app.Options{
		Logger:     log,
		Registerer: reg,
		OnSessionExpired: func() {
			log.Warn().Msg("🔒 Session expired, run `prefsync login` again")
		},
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(context.WithoutCancel(ctx)); err != nil {
			log.Error().Err(err).Msg("❌ Failed to flush pending preference updates")
		}
	}()

	cmd, rest := fs.Arg(0), fs.Args()[1:]
	switch cmd {
	case "login":
		return runLogin(ctx, a, rest, stdout)
	case "logout":
		if err := a.Auth.Logout(ctx); err != nil {
			return err
		}
		fmt.Fprintln(stdout, "Logged out.")
		return nil
	case "status":
		return runStatus(ctx, a, stdout)
	case "prefs":
		return runPrefs(ctx, a, rest, stdout)
	case "sync":
		return runSync(ctx, a, reg, rest, stdin, log)
	}
	fs.Usage()
	return fmt.Errorf("unknown command %q", cmd)
}

func runLogin(ctx context.Context, a *app.App, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	username := fs.String("username", "", "Account username")
	password := fs.String("password", os.Getenv("PREFSYNC_PASSWORD"), "Account password (defaults to $PREFSYNC_PASSWORD)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *username == "" || *password == "" {
		return errors.New("login needs -username and -password")
	}

	cred, err := a.Auth.Login(ctx, *username, *password)
	if err != nil {
		return err
	}
	if cred.AccessToken == "" {
		return errors.New("login response carried no token")
	}

	fmt.Fprintf(stdout, "Logged in as %s.\n", cred.ProfileString("username"))
	return nil
}

func runStatus(ctx context.Context, a *app.App, stdout io.Writer) error {
	cred := a.Auth.CurrentUser(ctx)
	if cred == nil || cred.AccessToken == "" {
		fmt.Fprintln(stdout, "Not logged in.")
		return nil
	}

	var (
		profile map[string]any
		current prefs.Preferences
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		profile, err = a.Auth.Profile(gctx)
		return err
	})
	g.Go(func() error {
		current = a.Sync.Load(gctx)
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	fmt.Fprintf(stdout, "User:      %v <%v>\n", profile["username"], profile["email"])
	if exp, ok := cred.ExpiresAt(); ok {
		fmt.Fprintf(stdout, "Token:     expires %s\n", exp.Local().Format(time.RFC1123))
	}
	fmt.Fprintf(stdout, "Theme:     %s\n", current.Theme)
	fmt.Fprintf(stdout, "Language:  %s\n", current.Language)
	fmt.Fprintf(stdout, "Schedule:  %s mode, %d course(s) selected\n", current.ScheduleMode, len(current.SelectedCoursesAuto))
	if err := a.Sync.Err(); err != nil {
		fmt.Fprintf(stdout, "Warning:   preferences unavailable (%v), showing defaults\n", err)
	}
	return nil
}

func runPrefs(ctx context.Context, a *app.App, args []string, stdout io.Writer) error {
	if len(args) == 0 {
		return errors.New("prefs needs a subcommand: get, set, export, import")
	}

	switch sub, rest := args[0], args[1:]; sub {
	case "get":
		p := a.Sync.Load(ctx)
		if err := a.Sync.Err(); err != nil {
			return err
		}
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(p)
	case "set":
		fields, err := parseAssignments(rest)
		if err != nil {
			return err
		}
		a.Sync.Load(ctx)
		if err := a.Sync.Set(fields); err != nil {
			return err
		}
		if err := a.Sync.Flush(ctx); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Updated %d field(s).\n", len(fields))
		return nil
	case "export":
		if len(rest) != 1 {
			return errors.New("prefs export needs a file path")
		}
		p := a.Sync.Load(ctx)
		if err := a.Sync.Err(); err != nil {
			return err
		}
		if err := prefs.Save(rest[0], p); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Exported to %s.\n", rest[0])
		return nil
	case "import":
		if len(rest) != 1 {
			return errors.New("prefs import needs a file path")
		}
		p, err := prefs.LoadSnapshot(rest[0])
		if err != nil {
			return err
		}
		if err := a.Sync.Replace(ctx, p); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Imported from %s.\n", rest[0])
		return nil
	default:
		return fmt.Errorf("unknown prefs subcommand %q", sub)
	}
}

// runSync feeds key=value lines from in through the debounced synchronizer
// until EOF or cancellation.
func runSync(ctx context.Context, a *app.App, reg *prometheus.Registry, args []string, in io.Reader, log zerolog.Logger) error {
	fs := flag.NewFlagSet("sync", flag.ContinueOnError)
	metricsAddr := fs.String("metrics-addr", a.Config.MetricsAddr, "Serve /metrics on this address")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *metricsAddr != "" {
		reg.MustRegister(collectors.NewGoCollector())
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		srv := &http.Server{Addr: *metricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			log.Info().Str("addr", *metricsAddr).Msg("📈 Serving metrics")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("Metrics listener stopped")
			}
		}()
		defer srv.Close()
	}

	a.Sync.Load(ctx)
	if err := a.Sync.Err(); err != nil {
		log.Warn().Err(err).Msg("⚠️  Starting from default preferences")
	}

	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-scanErr:
					return err
				default:
					return nil
				}
			}
			line = strings.TrimSpace(line)
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			fields, err := parseAssignments([]string{line})
			if err != nil {
				log.Warn().Err(err).Msg("Skipping line")
				continue
			}
			if err := a.Sync.Set(fields); err != nil {
				log.Warn().Err(err).Msg("Skipping line")
			}
		}
	}
}

func parseAssignments(args []string) (map[string]string, error) {
	if len(args) == 0 {
		return nil, errors.New("expected at least one key=value")
	}
	out := make(map[string]string, len(args))
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("expected key=value, got %q", arg)
		}
		out[key] = value
	}
	return out, nil
}
