package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hrygo/groupmate/internal/profile"
	"github.com/hrygo/groupmate/internal/version"
	"github.com/hrygo/groupmate/server"
	"github.com/hrygo/groupmate/store"
	"github.com/hrygo/groupmate/store/db"
)

var rootCmd = &cobra.Command{
	Use:   "groupmate",
	Short: `A Feishu group-chat assistant bot. Answers when mentioned, joins active conversations, summarizes chats and draws images on request.`,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		// Systemd deployments configure through the unit environment.
		if !isRunningAsSystemdService() {
			_ = godotenv.Load()
		}
		return nil
	},
	Run: func(_ *cobra.Command, _ []string) {
		instanceProfile := &profile.Profile{
			Mode:    viper.GetString("mode"),
			Addr:    viper.GetString("addr"),
			Port:    viper.GetInt("port"),
			Data:    viper.GetString("data"),
			Driver:  viper.GetString("driver"),
			DSN:     viper.GetString("dsn"),
			Version: version.GetCurrentVersion(viper.GetString("mode")),
		}
		instanceProfile.FromEnv()
		// DATABASE_URL points at PostgreSQL and overrides driver/dsn,
		// matching how the bot is deployed on container platforms.
		if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
			instanceProfile.Driver = "postgres"
			instanceProfile.DSN = dbURL
		}
		if err := instanceProfile.Validate(); err != nil {
			slog.Error("invalid configuration", "error", err)
			os.Exit(1)
		}

		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: instanceProfile.SlogLevel(),
		})))

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		dbDriver, err := db.NewDBDriver(instanceProfile)
		if err != nil {
			slog.Error("failed to create db driver", "error", err)
			printDatabaseHint(err, instanceProfile)
			return
		}

		storeInstance := store.New(dbDriver, instanceProfile)
		if err := storeInstance.Migrate(ctx); err != nil {
			slog.Error("failed to migrate", "error", err)
			return
		}

		s, err := server.NewServer(ctx, instanceProfile, storeInstance)
		if err != nil {
			slog.Error("failed to create server", "error", err)
			return
		}

		c := make(chan os.Signal, 1)
		// SIGTERM is the graceful shutdown signal used by systemd and
		// Kubernetes; SIGINT covers interactive runs.
		signal.Notify(c, terminationSignals...)

		if err := s.Start(ctx); err != nil {
			slog.Error("failed to start server", "error", err)
			return
		}
		printGreetings(instanceProfile)

		go func() {
			<-c
			s.Shutdown(ctx)
			cancel()
		}()

		<-ctx.Done()
	},
}

func init() {
	viper.SetDefault("mode", "dev")
	viper.SetDefault("driver", "sqlite")
	viper.SetDefault("port", 28090)

	rootCmd.PersistentFlags().String("mode", "dev", `mode of server, can be "prod" or "dev" or "demo"`)
	rootCmd.PersistentFlags().String("addr", "", "address of server")
	rootCmd.PersistentFlags().Int("port", 28090, "port of server")
	rootCmd.PersistentFlags().String("data", "", "data directory")
	rootCmd.PersistentFlags().String("driver", "sqlite", "database driver (postgres, sqlite)")
	rootCmd.PersistentFlags().String("dsn", "", "database source name(aka. DSN)")

	for _, flag := range []string{"mode", "addr", "port", "data", "driver", "dsn"} {
		if err := viper.BindPFlag(flag, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
			panic(err)
		}
	}

	viper.SetEnvPrefix("groupmate")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
}

func printGreetings(p *profile.Profile) {
	fmt.Printf("Groupmate %s started successfully!\n", p.Version)
	fmt.Printf("Mode: %s\n", p.Mode)
	fmt.Printf("Database driver: %s\n", p.Driver)
	if p.Data != "" {
		fmt.Printf("Data directory: %s\n", p.Data)
	}
	if p.Addr == "" {
		fmt.Printf("Webhook endpoint: http://localhost:%d/feishu/events\n", p.Port)
	} else {
		fmt.Printf("Webhook endpoint: http://%s:%d/feishu/events\n", p.Addr, p.Port)
	}
}

// isRunningAsSystemdService detects if the process is running under systemd.
func isRunningAsSystemdService() bool {
	return os.Getenv("INVOCATION_ID") != "" || os.Getenv("WATCHDOG_USEC") != ""
}

// printDatabaseHint provides actionable messages for common connection issues.
func printDatabaseHint(err error, p *profile.Profile) {
	errMsg := err.Error()
	switch {
	case strings.Contains(errMsg, "connection refused") || strings.Contains(errMsg, "no such host"):
		fmt.Fprintln(os.Stderr, "PostgreSQL is unreachable. Check DATABASE_URL, or run with --driver=sqlite for local development.")
	case strings.Contains(errMsg, "SSL is not enabled") || strings.Contains(errMsg, "sslmode"):
		fmt.Fprintln(os.Stderr, "Add ?sslmode=disable to your DATABASE_URL for non-TLS PostgreSQL.")
	case strings.Contains(errMsg, "password authentication failed"):
		fmt.Fprintln(os.Stderr, "PostgreSQL authentication failed. Check the credentials in DATABASE_URL.")
	default:
		fmt.Fprintln(os.Stderr, "Database error:", errMsg)
	}
	if p.Driver == "sqlite" && p.Data != "" {
		fmt.Fprintf(os.Stderr, "SQLite data directory: %s\n", p.Data)
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		panic(err)
	}
}
