package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"spycats/internal/app"
	"spycats/internal/config"
	"spycats/internal/db"
	"spycats/internal/engine"
	"spycats/internal/logging"
	"spycats/internal/migrate"
	"spycats/internal/server"
)

var rootCmd = &cobra.Command{
	Use:   "spycat",
	Short: "Spy Cat Agency CLI",
	Long: `spycat manages the agency's cats, missions and targets.
- Cats: agents with a breed checked against the breed catalog; salary is the only field that changes.
- Missions: 1 to 3 targets, at most one cat; a mission completes with its last target and frees its cat.
- Targets: notes can be edited until the target or its mission is complete.
- serve: exposes the same operations over HTTP (OpenAPI at <base-path>/openapi.json, Swagger UI at /docs).`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		workspace := viper.GetString("workspace")
		if _, err := db.EnsureWorkspace(workspace); err != nil {
			return err
		}
		return nil
	},
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(exitCode(err))
	}
}

func initConfig() {
	viper.SetEnvPrefix("SPYCAT")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().String("config", "", "config file (default <workspace>/spycat.yml)")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("breed-url", "", "breed catalog URL")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("breed-url", rootCmd.PersistentFlags().Lookup("breed-url"))
	_ = viper.BindEnv("breed-api-key")
	_ = viper.BindEnv("log-format")
}

func registerCommands() {
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(catCmd())
	rootCmd.AddCommand(missionCmd())
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("addr") {
				cfg.Server.Addr = addr
			}
			if cmd.Flags().Changed("base-path") {
				cfg.Server.BasePath = basePath
			}
			logger := newLogger(cfg)
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := app.Open(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()
			handler, err := server.New(server.Config{
				Engine:      a.Engine,
				BasePath:    cfg.Server.BasePath,
				CORSOrigins: cfg.Server.CORSOrigins,
				Logger:      logger,
			})
			if err != nil {
				return err
			}
			srv := &http.Server{
				Addr:              cfg.Server.Addr,
				Handler:           handler,
				ReadHeaderTimeout: 10 * time.Second,
			}
			go func() {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(shutdownCtx)
			}()
			logger.Info("serving spy cat API",
				"addr", cfg.Server.Addr,
				"base_path", cfg.Server.BasePath,
				"docs", "/docs",
				"metrics", "/metrics",
			)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			logger.Info("server stopped")
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	cmd.Flags().StringVar(&basePath, "base-path", "/v1", "API base path")
	return cmd
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			conn, err := db.Open(db.Config{Workspace: cfg.Database.Workspace, BusyTimeoutMS: cfg.Database.BusyTimeoutMS})
			if err != nil {
				return err
			}
			defer conn.Close()
			if err := migrate.MigrateContext(cmd.Context(), conn); err != nil {
				return err
			}
			version, err := migrate.Current(cmd.Context(), conn)
			if err != nil {
				return err
			}
			return printJSONOrTable(map[string]any{
				"database": db.Path(cfg.Database.Workspace),
				"version":  version,
			})
		},
	}
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect configuration",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.Breed.APIKey != "" {
				cfg.Breed.APIKey = "***"
			}
			return printJSONOrTable(cfg)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "default",
		Short: "Print the default spycat.yml",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Print(config.GenerateDefault())
		},
	})
	return cmd
}

// --- helpers ---

// loadConfig reads the config file and layers flags and SPYCAT_* variables
// over it.
func loadConfig() (*config.Config, error) {
	workspace := viper.GetString("workspace")
	path := viper.GetString("config")
	if path == "" {
		path = config.Path(workspace)
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	cfg.Database.Workspace = workspace
	if v := viper.GetString("log-level"); v != "" {
		cfg.Log.Level = v
	}
	if v := viper.GetString("log-format"); v != "" {
		cfg.Log.Format = v
	}
	if v := viper.GetString("breed-url"); v != "" {
		cfg.Breed.URL = v
	}
	if v := viper.GetString("breed-api-key"); v != "" {
		cfg.Breed.APIKey = v
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) *slog.Logger {
	return logging.New(logging.Config{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Service: "spycat",
	})
}

func withEngine(ctx context.Context, fn func(context.Context, engine.Engine) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := app.Open(ctx, cfg, newLogger(cfg))
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a.Engine)
}

// printJSONOrTable prints v as JSON with --json and as a two-column
// field/value table otherwise. Nested objects flatten to dotted field names.
func printJSONOrTable(v any) error {
	if viper.GetBool("json") {
		return printJSON(v)
	}
	rows, err := fieldRows(v)
	if err != nil {
		return err
	}
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(table.Row{"Field", "Value"})
	for _, r := range rows {
		tw.AppendRow(table.Row{r[0], r[1]})
	}
	tw.Render()
	return nil
}

func fieldRows(v any) ([][2]string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var generic any
	if err := json.Unmarshal(b, &generic); err != nil {
		return nil, err
	}
	var rows [][2]string
	flatten("", generic, &rows)
	sort.Slice(rows, func(i, j int) bool { return rows[i][0] < rows[j][0] })
	return rows, nil
}

func flatten(prefix string, v any, rows *[][2]string) {
	switch x := v.(type) {
	case map[string]any:
		for k, val := range x {
			key := k
			if prefix != "" {
				key = prefix + "." + k
			}
			flatten(key, val, rows)
		}
	case []any:
		parts := make([]string, 0, len(x))
		for _, item := range x {
			b, _ := json.Marshal(item)
			parts = append(parts, strings.Trim(string(b), `"`))
		}
		*rows = append(*rows, [2]string{prefix, strings.Join(parts, ", ")})
	case nil:
		*rows = append(*rows, [2]string{prefix, ""})
	default:
		b, _ := json.Marshal(x)
		*rows = append(*rows, [2]string{prefix, strings.Trim(string(b), `"`)})
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printOK() error {
	return printJSONOrTable(map[string]bool{"ok": true})
}

func parseID(kind, s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid %s id %q", engine.ErrValidation, kind, s)
	}
	return id, nil
}

// exitCode maps engine errors onto distinct process exit codes.
func exitCode(err error) int {
	switch {
	case errors.Is(err, engine.ErrValidation):
		return 2
	case errors.Is(err, engine.ErrNotFound):
		return 3
	case errors.Is(err, engine.ErrConflict):
		return 4
	case errors.Is(err, engine.ErrDependencyUnavailable):
		return 5
	default:
		return 1
	}
}
