// -- cmd/root.go --
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/jeanbaptistemora/fluidattacks-universe2-sub022/internal/config"
	"github.com/jeanbaptistemora/fluidattacks-universe2-sub022/internal/observability"
	"github.com/jeanbaptistemora/fluidattacks-universe2-sub022/internal/reporting"
	"github.com/jeanbaptistemora/fluidattacks-universe2-sub022/internal/service"
)

// ErrFindingsDetected is returned by scan when --fail-on-findings is set and
// the scan reported vulnerabilities.
var ErrFindingsDetected = errors.New("vulnerabilities detected")

// osExit is swapped in tests.
var osExit = os.Exit

type contextKey string

const configKey contextKey = "config"

// Execute builds the root command and runs it with a signal-aware context.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	rootCmd := newRootCmd(service.NewComponentFactory(), NewStoreProvider(), reporting.New)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil && !errors.Is(err, ErrFindingsDetected) {
		observability.GetLogger().Error("Command execution failed", zap.Error(err))
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	observability.Sync()
	if code := exitCode(err); code != 0 {
		osExit(code)
	}
}

// exitCode maps a command error to the process exit status. Findings exit
// with 2 so that callers can tell them apart from failures.
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, ErrFindingsDetected):
		return 2
	default:
		return 1
	}
}

// newRootCmd creates the base command with every subcommand attached.
func newRootCmd(factory service.ComponentFactory, provider storeProvider, newReporter reporterFactory) *cobra.Command {
	var (
		cfgFile string
		verbose bool
	)

	rootCmd := &cobra.Command{
		Use:   "skims",
		Short: "skims finds vulnerabilities in source code by following untrusted data.",
		Long: `skims parses source files into a language neutral graph, follows the paths
that reach dangerous calls and reports the ones fed by untrusted input.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			v := viper.New()
			config.SetDefaults(v)

			if err := initializeConfig(v, cfgFile); err != nil {
				return fmt.Errorf("failed to initialize configuration: %w", err)
			}

			cfg, err := config.NewConfigFromViper(v)
			if err != nil {
				return fmt.Errorf("failed to load or validate config: %w", err)
			}

			observability.InitializeLogger(cfg.Logger())
			if verbose {
				observability.SetLevel(zapcore.DebugLevel)
			}
			observability.GetLogger().Debug("Starting skims", zap.String("version", Version))

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			cmd.SetContext(context.WithValue(ctx, configKey, cfg))
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is ./skims.yaml, then $HOME/.skims/skims.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.SetVersionTemplate(`{{printf "skims version %s\n" .Version}}`)

	rootCmd.AddCommand(newScanCmd(factory, newReporter))
	rootCmd.AddCommand(newReportCmd(provider, newReporter))
	rootCmd.AddCommand(newVersionCmd())
	return rootCmd
}

// initializeConfig reads in the config file and SKIMS_ environment
// variables. A missing default config file is not an error.
func initializeConfig(v *viper.Viper, cfgFile string) error {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		if home, err := homedir.Dir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".skims"))
		}
		v.SetConfigName("skims")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("SKIMS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}
	return nil
}

// getConfigFromContext returns the configuration stored by the root command.
func getConfigFromContext(ctx context.Context) (config.Interface, error) {
	cfg, ok := ctx.Value(configKey).(config.Interface)
	if !ok || cfg == nil {
		return nil, errors.New("configuration not found in command context")
	}
	return cfg, nil
}
