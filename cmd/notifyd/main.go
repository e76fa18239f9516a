// Command notifyd runs the notification engine behind an HTTP API or a
// terminal inbox.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/nhle/notification-engine/internal/api"
	"github.com/nhle/notification-engine/internal/bridge"
	"github.com/nhle/notification-engine/internal/chat"
	"github.com/nhle/notification-engine/internal/credential"
	"github.com/nhle/notification-engine/internal/engine"
	"github.com/nhle/notification-engine/internal/mailbox"
	"github.com/nhle/notification-engine/internal/model"
	"github.com/nhle/notification-engine/internal/source/email"
	"github.com/nhle/notification-engine/internal/store"
	appsync "github.com/nhle/notification-engine/internal/sync"
	"github.com/nhle/notification-engine/internal/tui"
)

const shutdownTimeout = 5 * time.Second

type flags struct {
	configPath   string
	tui          bool
	writeConfig  bool
	setPassword  string
	forgetPasswd string
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "notifyd: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("loading .env: %w", err)
	}

	v := model.NewViper()
	fs := pflag.NewFlagSet("notifyd", pflag.ContinueOnError)

	var f flags
	fs.StringVar(&f.configPath, "config", model.DefaultConfigPath(), "path to the YAML config file")
	fs.BoolVar(&f.tui, "tui", false, "run the terminal inbox instead of the HTTP server")
	fs.BoolVar(&f.writeConfig, "write-config", false, "write the effective configuration to --config and exit")
	fs.StringVar(&f.setPassword, "set-mail-password", "", "read a password from stdin and store it for the given mailbox id")
	fs.StringVar(&f.forgetPasswd, "forget-mail-password", "", "remove the stored password for the given mailbox id")
	fs.String("addr", "", "HTTP listen address")
	fs.String("store", "", "SQLite snapshot path; empty keeps state in memory")
	fs.String("log-level", "", "log level: debug, info, warn, error")

	if err := fs.Parse(args); err != nil {
		return err
	}

	for key, name := range map[string]string{
		"server.addr": "addr",
		"store.path":  "store",
		"log.level":   "log-level",
	} {
		if err := v.BindPFlag(key, fs.Lookup(name)); err != nil {
			return fmt.Errorf("binding flag %s: %w", name, err)
		}
	}

	switch {
	case f.setPassword != "":
		return setMailPassword(f.setPassword)
	case f.forgetPasswd != "":
		if err := credential.Delete(credential.MailKey(f.forgetPasswd)); err != nil {
			return err
		}
		fmt.Printf("Removed password for mailbox %s\n", f.forgetPasswd)
		return nil
	}

	cfg, err := model.LoadConfigWith(v, f.configPath)
	if err != nil {
		return err
	}
	if f.writeConfig {
		if err := model.SaveConfig(f.configPath, cfg); err != nil {
			return err
		}
		fmt.Printf("Wrote %s\n", f.configPath)
		return nil
	}

	logger, closeLog, err := newLogger(cfg.Log, f.tui, filepath.Dir(f.configPath))
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return serve(ctx, cfg, f.tui, logger)
}

func serve(ctx context.Context, cfg *model.AppConfig, useTUI bool, logger *slog.Logger) error {
	e := engine.New(engine.Options{
		InternalDomains: cfg.Classifier.InternalDomains,
		Logger:          logger.With("component", "engine"),
	})

	var snapshots store.Store
	if cfg.Store.Path != "" {
		s, err := openStore(ctx, cfg.Store.Path, e, logger)
		if err != nil {
			return err
		}
		snapshots = s
		defer func() {
			if err := snapshots.SaveSnapshot(context.Background(), e.Snapshot()); err != nil {
				logger.Error("saving snapshot", "error", err)
			}
			if err := snapshots.Close(); err != nil {
				logger.Error("closing store", "error", err)
			}
		}()
	}

	chats := chat.NewStore(nil)
	mail := mailbox.NewStore()

	br := bridge.New(e.Repository(), e.Classifier(), chats, mail, bridge.Options{
		CurrentUser:   cfg.Bridge.CurrentUser,
		RecipientUser: cfg.Bridge.RecipientUser,
		SelfAddresses: selfAddresses(cfg.Mail),
		Interval:      time.Duration(cfg.Bridge.PollIntervalMs) * time.Millisecond,
		Logger:        logger.With("component", "bridge"),
	})
	br.Start(ctx)
	defer br.Destroy()

	poller := appsync.New(mail, logger.With("component", "sync"))
	mailboxes := registerMailboxes(poller, cfg.Mail, logger)
	poller.Start()
	defer poller.Stop()

	if useTUI {
		opts := tui.Options{UserID: cfg.Bridge.RecipientUser, States: br}
		if mailboxes > 0 {
			opts.Mail = poller
		}
		_, err := tea.NewProgram(tui.New(e, opts), tea.WithAltScreen(), tea.WithContext(ctx)).Run()
		if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
			return fmt.Errorf("running inbox: %w", err)
		}
		return nil
	}

	var status api.MailStatus
	if mailboxes > 0 {
		status = poller
	}
	return serveHTTP(ctx, cfg.Server, api.NewHandler(e, chats, status, logger), logger)
}

func serveHTTP(ctx context.Context, cfg model.ServerConfig, h *api.Handler, logger *slog.Logger) error {
	if !logger.Enabled(ctx, slog.LevelDebug) {
		gin.SetMode(gin.ReleaseMode)
	}

	srv := &http.Server{
		Addr: cfg.Addr,
		Handler: api.NewRouter(h, api.RouterOptions{
			AllowOrigins: cfg.AllowOrigins,
			Logger:       logger.With("component", "http"),
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("serving http: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down http server: %w", err)
	}
	return nil
}

// openStore opens the snapshot database and restores any saved state
// into e.
func openStore(ctx context.Context, path string, e *engine.Engine, logger *slog.Logger) (*store.SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating store directory: %w", err)
	}

	s, err := store.NewSQLiteStore(path)
	if err != nil {
		return nil, err
	}

	snap, err := s.LoadSnapshot(ctx)
	if err != nil {
		_ = s.Close()
		return nil, err
	}
	if !snap.TakenAt.IsZero() {
		e.Restore(snap)
		logger.Info("snapshot loaded", "path", path, "taken_at", snap.TakenAt)
	}
	return s, nil
}

// registerMailboxes adds a fetcher for every enabled mailbox whose
// password can be found. It returns the number registered.
func registerMailboxes(p *appsync.Poller, boxes []model.MailSourceConfig, logger *slog.Logger) int {
	n := 0
	for _, mb := range boxes {
		if !mb.Enabled {
			continue
		}
		password, err := credential.MailPassword(mb.ID)
		if err != nil || password == "" {
			logger.Warn("skipping mailbox without password",
				"mailbox", mb.ID,
				"env", credential.MailEnvVar(mb.ID),
				"error", err,
			)
			continue
		}
		p.Register(email.NewFetcher(mb, password))
		n++
	}
	return n
}

// selfAddresses returns the mailbox usernames that look like addresses.
func selfAddresses(boxes []model.MailSourceConfig) []string {
	var out []string
	for _, mb := range boxes {
		if strings.Contains(mb.Username, "@") {
			out = append(out, mb.Username)
		}
	}
	return out
}

func setMailPassword(mailboxID string) error {
	fmt.Fprintf(os.Stderr, "Password for mailbox %s: ", mailboxID)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return fmt.Errorf("reading password: %w", err)
	}
	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		return errors.New("empty password")
	}
	if err := credential.Set(credential.MailKey(mailboxID), password); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Stored password for mailbox %s\n", mailboxID)
	return nil
}
