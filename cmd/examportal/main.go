package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/examportal/examportal/internal/auth"
	"github.com/examportal/examportal/internal/evaluator"
	"github.com/examportal/examportal/internal/handler"
	"github.com/examportal/examportal/internal/model"
	"github.com/examportal/examportal/internal/store"
)

func main() {
	// Local development keeps OAuth and API credentials in a .env file.
	_ = godotenv.Load()

	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "examportal",
		Short: "Descriptive-answer exam portal with LLM-assisted grading",
	}

	serve := serveCmd()
	root.AddCommand(serve, exportCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE

	// Register serve flags on root so bare `examportal --addr ...` still works.
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP exam portal server",
		RunE:  runServe,
	}
	f := cmd.Flags()
	f.StringP("addr", "a", ":8080", "HTTP listen address")
	f.String("db-driver", "sqlite", "Database driver (sqlite, postgres)")
	f.String("db-dsn", "examportal.db", "Database DSN (file path for sqlite, URL for postgres)")
	f.String("google-client-id", "", "Google OAuth client ID")
	f.String("google-client-secret", "", "Google OAuth client secret")
	f.String("redirect-url", "http://localhost:8080/auth/callback", "OAuth redirect URL")
	f.String("llm-url", evaluator.DefaultBaseURL, "OpenAI-compatible API base URL for evaluation")
	f.String("llm-key", "", "API key for the evaluation model")
	f.String("llm-model", evaluator.DefaultModel, "Evaluation model name")
	f.StringSlice("admin-emails", nil, "Emails promoted to admin on login (repeatable)")
	f.Bool("secure-cookies", true, "Set Secure flag on cookies")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a session's submissions as CSV",
		RunE:  runExport,
	}
	f := cmd.Flags()
	f.String("db-driver", "sqlite", "Database driver (sqlite, postgres)")
	f.String("db-dsn", "examportal.db", "Database DSN (file path for sqlite, URL for postgres)")
	f.Int64("session-id", 0, "Session to export (required)")
	f.StringP("output", "o", "-", "Output file path (- for stdout)")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")

	_ = cmd.MarkFlagRequired("session-id")

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

	v.SetEnvPrefix("EXAMPORTAL")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("examportal")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/examportal")
	v.AddConfigPath("/etc/examportal")
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

func openStore(v *viper.Viper) (*store.Store, error) {
	driver := store.Driver(strings.ToLower(v.GetString("db-driver")))
	db, err := store.New(driver, v.GetString("db-dsn"))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return db, nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := openStore(v)
	if err != nil {
		return err
	}
	defer db.Close()

	google := auth.NewGoogle(
		v.GetString("google-client-id"),
		v.GetString("google-client-secret"),
		v.GetString("redirect-url"),
	)
	if !google.Enabled() {
		slog.Warn("Google OAuth credentials not configured, sign-in is disabled")
	}

	eval := evaluator.New(
		v.GetString("llm-url"),
		v.GetString("llm-key"),
		v.GetString("llm-model"),
	)
	if eval.Enabled() {
		if err := eval.Ping(context.Background()); err != nil {
			return fmt.Errorf("evaluation endpoint health check: %w", err)
		}
		slog.Info("evaluation endpoint OK",
			"url", v.GetString("llm-url"), "model", v.GetString("llm-model"))
	} else {
		slog.Warn("evaluation API key not configured, submissions will stay unscored")
	}

	cfg := model.PortalConfig{
		AdminEmails:   v.GetStringSlice("admin-emails"),
		SecureCookies: v.GetBool("secure-cookies"),
	}

	h := handler.New(db, eval, google, cfg)

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	h.Routes(r)

	users, err := db.UserCount()
	if err != nil {
		return fmt.Errorf("count users: %w", err)
	}

	addr := v.GetString("addr")
	slog.Info("starting server",
		"addr", addr,
		"db_driver", v.GetString("db-driver"),
		"model", v.GetString("llm-model"),
		"admin_emails", len(cfg.AdminEmails),
		"users", users,
	)
	return http.ListenAndServe(addr, r)
}

func runExport(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := openStore(v)
	if err != nil {
		return err
	}
	defer db.Close()

	sessionID := v.GetInt64("session-id")

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

	if err := db.WriteSessionCSV(sessionID, w); err != nil {
		return fmt.Errorf("export session %d: %w", sessionID, err)
	}
	return nil
}
