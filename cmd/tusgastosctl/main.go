package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/IvaDonGon/TusGastos/internal/cli"
	"github.com/IvaDonGon/TusGastos/internal/config"
	"github.com/IvaDonGon/TusGastos/internal/core"
	applog "github.com/IvaDonGon/TusGastos/internal/log"
)

var (
	flagConfig string
	flagUser   string
	flagDate   string
)

// session is built once per invocation in PersistentPreRunE.
var session struct {
	cfg    *config.Config
	logger *applog.Logger
	app    *cli.App
	close  []func()
}

var rootCmd = &cobra.Command{
	Use:           "tusgastosctl",
	Short:         "Administer TusGastos recurring payments and budgets",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		cli.LoadEnvFile()
		cfg, err := cli.LoadAndValidateConfig(flagConfig)
		if err != nil {
			return err
		}
		session.cfg = cfg
		session.logger = cli.SetupLogger(cfg, applog.ComponentApp)
		session.close = append(session.close, func() { _ = session.logger.Close() })
		if flagUser == "" {
			flagUser = cfg.AuthMockUserID
		}
		if cmd.Annotations["standalone"] == "true" {
			return nil
		}
		return openApp(cmd.Context())
	},
	PersistentPostRun: func(*cobra.Command, []string) {
		closeAll()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagConfig, "config", "c", "", "TOML config file (default $CONFIG_FILE)")
	rootCmd.PersistentFlags().StringVarP(&flagUser, "user", "u", "", "user id (default $AUTH_MOCK_USER_ID)")
	rootCmd.PersistentFlags().StringVarP(&flagDate, "date", "d", "", "reference day YYYY-MM-DD (default today)")
}

func openApp(ctx context.Context) error {
	store, err := cli.OpenBackend(ctx, session.cfg, session.logger)
	if err != nil {
		return fmt.Errorf("open backend: %w", err)
	}
	session.close = append(session.close, func() { _ = store.Close() })

	notifier, closeNotifier, err := cli.OpenNotifier(session.cfg, session.logger)
	if err != nil {
		return err
	}
	session.close = append(session.close, closeNotifier)

	session.app = cli.NewApp(session.cfg, store, notifier, session.logger)
	return nil
}

// closeAll releases resources in reverse order of acquisition.
func closeAll() {
	for i := len(session.close) - 1; i >= 0; i-- {
		session.close[i]()
	}
	session.close = nil
}

// refDate resolves --date in the configured timezone.
func refDate() (time.Time, error) {
	loc := session.cfg.Location()
	if flagDate == "" {
		return time.Now().In(loc), nil
	}
	key, err := core.NormalizeToDateKey(flagDate)
	if err != nil {
		return time.Time{}, err
	}
	return core.ParseDateKey(key, loc)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		closeAll()
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
