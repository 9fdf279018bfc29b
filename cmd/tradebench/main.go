package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"

	"github.com/tradebench/tradebench/internal/engine"
	"github.com/tradebench/tradebench/internal/handler"
	appI18n "github.com/tradebench/tradebench/internal/i18n"
	"github.com/tradebench/tradebench/internal/model"
	"github.com/tradebench/tradebench/internal/question"
	"github.com/tradebench/tradebench/internal/store"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "tradebench",
		Short: "Steamfitter/Pipefitter apprenticeship exam prep server",
	}

	serve := serveCmd()
	root.AddCommand(serve, exportCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE

	// Register serve flags on root so bare `tradebench --addr ...` still works.
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP quiz server",
		RunE:  runServe,
	}
	f := cmd.Flags()
	f.StringP("addr", "a", ":8080", "HTTP listen address")
	f.String("db", "tradebench.db", "SQLite database path")
	f.StringP("data-dir", "D", "data", "Directory holding questions-y{N}.json and study-guides-y{N}.json")
	f.StringP("lang", "l", "en", "Default API language (en, fr)")
	f.Bool("secure-cookies", true, "Set Secure flag on session cookies")
	f.String("admin-email", "", "Seed a first account with this email when the user table is empty")
	f.String("admin-password", "", "Password for the seeded account (or set TRADEBENCH_ADMIN_PASSWORD)")
	f.Duration("session-sweep", time.Hour, "Interval between idle quiz session sweeps")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export archived quiz sessions as JSON",
		RunE:  runExport,
	}
	f := cmd.Flags()
	f.String("db", "tradebench.db", "SQLite database path")
	f.StringP("output", "o", "-", "Output file path (- for stdout)")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func setupLogging(cmd *cobra.Command) {
	v := viperForCmd(cmd)

	var logLevel slog.Level
	switch strings.ToLower(v.GetString("log-level")) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: logLevel}
	var logHandler slog.Handler
	switch strings.ToLower(v.GetString("log-format")) {
	case "json":
		logHandler = slog.NewJSONHandler(os.Stderr, handlerOpts)
	default:
		logHandler = slog.NewTextHandler(os.Stderr, handlerOpts)
	}
	slog.SetDefault(slog.New(logHandler))
}

// viperForCmd binds a command's flags and environment to a fresh viper instance.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())

	v.SetEnvPrefix("TRADEBENCH")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("tradebench")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/tradebench")
	v.AddConfigPath("/etc/tradebench")
	v.AddConfigPath("/data")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Info("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

func runServe(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if err := seedAccount(db, v.GetString("admin-email"), v.GetString("admin-password")); err != nil {
		return fmt.Errorf("seed account: %w", err)
	}

	lang := v.GetString("lang")
	if err := appI18n.Init(lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}

	bank := question.New(v.GetString("data-dir"))

	h := handler.New(db, bank, handler.Config{
		SecureCookies: v.GetBool("secure-cookies"),
		DefaultLang:   lang,
	})

	// Drop finished and abandoned in-memory quiz sessions, and expired auth
	// sessions, on a fixed cadence.
	sweep := v.GetDuration("session-sweep")
	go func() {
		ticker := time.NewTicker(sweep)
		defer ticker.Stop()
		for range ticker.C {
			if removed := h.SweepSessions(engine.DefaultMaxIdle); removed > 0 {
				slog.Debug("swept quiz sessions", "removed", removed)
			}
			if err := db.CleanupExpiredSessions(); err != nil {
				slog.Warn("failed to clean up expired auth sessions", "error", err)
			}
		}
	}()

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(appI18n.Middleware(lang))
	h.Routes(r)

	addr := v.GetString("addr")
	slog.Info("starting server",
		"addr", addr,
		"db", v.GetString("db"),
		"data_dir", v.GetString("data-dir"),
		"lang", lang,
		"secure_cookies", v.GetBool("secure-cookies"),
	)
	return http.ListenAndServe(addr, r)
}

// seedAccount creates a first account on an empty database so a fresh deploy
// is usable before registration is opened up. No-op when users exist or the
// flags are unset.
func seedAccount(db *store.Store, email, password string) error {
	if email == "" || password == "" {
		return nil
	}
	count, err := db.UserCount()
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if _, err := db.CreateUser(model.User{
		Email:        email,
		PasswordHash: string(hash),
		FullName:     "Administrator",
		FirstName:    "Administrator",
		SelectedYear: 1,
	}); err != nil {
		return err
	}
	slog.Info("seeded first account", "email", email)
	return nil
}

func runExport(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	sessions, err := db.ListArchivedSessions()
	if err != nil {
		return fmt.Errorf("list sessions: %w", err)
	}
	progress, err := db.ListAllProgress()
	if err != nil {
		return fmt.Errorf("list progress: %w", err)
	}

	export := struct {
		Sessions []store.ArchivedSession `json:"sessions"`
		Progress []model.Progress        `json:"progress"`
	}{Sessions: sessions, Progress: progress}

	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}

	outPath := v.GetString("output")
	var w io.Writer
	if outPath == "" || outPath == "-" {
		w = os.Stdout
	} else {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	_, _ = fmt.Fprintln(w)

	return nil
}
