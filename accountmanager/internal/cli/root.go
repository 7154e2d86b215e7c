package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	"github.com/malbeclabs/account-manager/config"
	"github.com/spf13/cobra"
)

type ExitCode int

const (
	exitCodeSuccess = 0
	exitCodeError   = 1
)

// Set by Run from the binary's LDFLAGS.
var (
	buildVersion = "dev"
	buildCommit  = "none"
	buildDate    = "unknown"
)

// App carries the command dependencies that tests replace.
type App struct {
	Build RuntimeBuilder
	In    io.Reader
	Out   io.Writer
	Err   io.Writer

	opts Options
	log  *slog.Logger
}

func NewApp() *App {
	return &App{
		Build: BuildRuntime,
		In:    os.Stdin,
		Out:   os.Stdout,
		Err:   os.Stderr,
	}
}

func Run(version, commit, date string) ExitCode {
	buildVersion, buildCommit, buildDate = version, commit, date

	if err := NewApp().Command().Execute(); err != nil {
		return exitCodeError
	}
	return exitCodeSuccess
}

func (a *App) Command() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "account-manager",
		Short:         "List and close the accounts owned by a Solana wallet.",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			a.log = newLogger(a.Err, a.opts.Verbose)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			err := cmd.Help()
			if err != nil {
				return fmt.Errorf("failed to show help: %w", err)
			}
			return nil
		},
	}
	rootCmd.SetIn(a.In)
	rootCmd.SetOut(a.Out)
	rootCmd.SetErr(a.Err)

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&a.opts.Env, "env", "e", "", fmt.Sprintf("The network environment (%s, %s, %s, %s; default %s)", config.EnvMainnetBeta, config.EnvTestnet, config.EnvDevnet, config.EnvLocalnet, config.EnvDevnet))
	flags.StringVarP(&a.opts.RPCURL, "rpc-url", "u", "", "Override the RPC URL of the environment")
	flags.StringVarP(&a.opts.Keypair, "keypair", "k", "", "Path to the wallet keypair (default ~/"+config.DefaultKeypairPath+")")
	flags.StringArrayVar(&a.opts.ExtraKeypairs, "extra-keypair", nil, "Additional keypair able to sign for owned accounts (repeatable)")
	flags.StringVarP(&a.opts.ConfigPath, "config", "c", "", "Path to a YAML profile")
	flags.BoolVarP(&a.opts.Verbose, "verbose", "v", false, "Set debug logging level")
	flags.StringVar(&a.opts.MetricsAddr, "metrics-addr", "", "Address to serve prometheus metrics on, disabled when empty")

	rootCmd.AddCommand(
		a.newListCmd(),
		a.newCloseCmd(),
		a.newDashboardCmd(),
		a.newVersionCmd(),
	)
	return rootCmd
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
	}))
}

func (a *App) newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(a.Out, "version: %s, commit: %s, date: %s\n", buildVersion, buildCommit, buildDate)
		},
	}
}
