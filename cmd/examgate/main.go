package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"

	"github.com/rsharan/examgate/internal/exam"
	"github.com/rsharan/examgate/internal/generator"
	"github.com/rsharan/examgate/internal/handler"
	"github.com/rsharan/examgate/internal/metrics"
	"github.com/rsharan/examgate/internal/model"
	"github.com/rsharan/examgate/internal/oracle"
	"github.com/rsharan/examgate/internal/qbank"
	"github.com/rsharan/examgate/internal/scoring"
	"github.com/rsharan/examgate/internal/store"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "examgate",
		Short: "Exam delivery server with AI question generation and a fallback question bank",
	}

	serve := serveCmd()
	root.AddCommand(serve, exportCmd(), validateBankCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE

	// Register serve flags on root so bare `examgate --addr ...` still works.
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP exam server",
		RunE:  runServe,
	}
	f := cmd.Flags()
	f.StringP("addr", "a", ":8080", "HTTP listen address")
	f.String("db", "examgate.db", "SQLite database path")
	f.StringP("questions-dir", "q", "questions", "Directory of fallback question bank JSON files")
	f.Duration("cache-ttl", qbank.DefaultTTL, "Question pool cache TTL")
	f.String("sbert-url", "http://localhost:5005", "Semantic similarity service base URL")
	f.String("llm-url", "", "OpenAI-compatible API base URL (empty disables AI generation)")
	f.String("llm-key", "ollama", "API key for LLM")
	f.String("llm-model", "llama3.2", "LLM model name")
	f.String("cors-origin", "http://localhost:5173", "Allowed CORS origin for the web UI")
	f.Bool("secure-cookies", true, "Set Secure flag on session cookies")
	f.String("admin-password", "", "Initial admin password (or set EXAMGATE_ADMIN_PASSWORD)")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export completed exam results as JSON",
		RunE:  runExport,
	}
	f := cmd.Flags()
	f.String("db", "examgate.db", "SQLite database path")
	f.StringP("output", "o", "-", "Output file path (- for stdout)")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func validateBankCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate-bank",
		Short: "Validate every question bank document and exit non-zero on problems",
		RunE:  runValidateBank,
	}
	f := cmd.Flags()
	f.StringP("questions-dir", "q", "questions", "Directory of fallback question bank JSON files")
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

	v.SetEnvPrefix("EXAMGATE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("examgate")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/examgate")
	v.AddConfigPath("/etc/examgate")
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

	// Seed default admin user if no users exist.
	if err := seedAdmin(db, v.GetString("admin-password")); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}

	// Fallback question bank. A bad directory degrades the bank rather than
	// failing startup; AI generation may still carry exams.
	collector := metrics.NewCollector()
	reader := qbank.NewReader(v.GetString("questions-dir"))
	fallback := qbank.NewService(reader,
		qbank.NewCache(v.GetDuration("cache-ttl")),
		qbank.NewSampler(),
		collector,
	)
	if degraded, detail := reader.Degraded(); degraded {
		slog.Warn("fallback question bank degraded", "detail", detail)
	}

	// Similarity oracle. An unreachable oracle degrades descriptive scoring
	// to 0 marks at submission time, so a failed ping is a warning only.
	sbertURL := v.GetString("sbert-url")
	scorer := oracle.New(sbertURL)
	if err := scorer.Ping(context.Background()); err != nil {
		slog.Warn("similarity service unreachable, descriptive answers will score 0", "url", sbertURL, "error", err)
	} else {
		slog.Info("similarity service OK", "url", sbertURL)
	}

	// AI question generator, optional.
	var gen exam.Generator
	if llmURL := v.GetString("llm-url"); llmURL != "" {
		client := generator.New(llmURL, v.GetString("llm-key"), v.GetString("llm-model"))
		if err := client.Ping(context.Background()); err != nil {
			slog.Warn("LLM endpoint unreachable, exams will use the question bank", "url", llmURL, "error", err)
		} else {
			slog.Info("LLM endpoint OK", "url", llmURL, "model", v.GetString("llm-model"))
		}
		gen = client
	} else {
		slog.Info("no LLM configured, exams will use the question bank")
	}

	exams := exam.NewService(db, gen, fallback, scoring.NewEngine(scorer))
	h := handler.New(db, exams, fallback, collector,
		v.GetString("cors-origin"), v.GetBool("secure-cookies"))

	// Periodic housekeeping: expired sessions and stale cached pools.
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for range ticker.C {
			if err := db.CleanupExpiredSessions(); err != nil {
				slog.Error("session cleanup failed", "error", err)
			}
			fallback.SweepExpired()
		}
	}()

	addr := v.GetString("addr")
	slog.Info("starting server",
		"addr", addr,
		"questions_dir", v.GetString("questions-dir"),
		"sbert_url", sbertURL,
		"llm_url", v.GetString("llm-url"),
		"llm_model", v.GetString("llm-model"),
		"cors_origin", v.GetString("cors-origin"),
	)
	return http.ListenAndServe(addr, h.Routes())
}

func runExport(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	export, err := db.ExportCompletedAttempts()
	if err != nil {
		return fmt.Errorf("export attempts: %w", err)
	}

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

func runValidateBank(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	svc := qbank.NewService(
		qbank.NewReader(v.GetString("questions-dir")),
		qbank.NewCache(0),
		qbank.NewSampler(),
		metrics.NewCollector(),
	)

	problems := svc.ValidateBank()
	if len(problems) == 0 {
		fmt.Println("question bank OK")
		return nil
	}
	for _, p := range problems {
		fmt.Fprintln(os.Stderr, p)
	}
	return fmt.Errorf("question bank has %d problem(s)", len(problems))
}

func seedAdmin(db *store.Store, password string) error {
	count, err := db.UserCount()
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	if password == "" {
		return fmt.Errorf("admin password is required: set --admin-password flag or EXAMGATE_ADMIN_PASSWORD env var")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	_, err = db.CreateUser(model.User{
		Username:     "admin",
		DisplayName:  "Administrator",
		PasswordHash: string(hash),
		Role:         model.UserRoleAdmin,
		Active:       true,
	})
	if err != nil {
		return fmt.Errorf("create admin user: %w", err)
	}

	slog.Info("seeded default admin user", "username", "admin")
	return nil
}
