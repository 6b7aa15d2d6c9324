package cmd

import (
	"context"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/firefly-engineering/devel79ctl/internal/cli"
	"github.com/firefly-engineering/devel79ctl/internal/config"
	"github.com/firefly-engineering/devel79ctl/internal/logging"
)

var (
	verbose    bool
	jsonOutput bool
	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "devel79ctl [-runserver | r] [-config | c <file>]",
	Short: "Devel79 development server controller",
	Long: `devel79ctl controls the Devel79 development server, a VirtualBox
virtual machine described by a small key=value configuration file
(devel79.conf next to the executable by default).

Without a subcommand it connects to the machine, optionally launches it
(-runserver or r) and watches it every checktime seconds until
interrupted:

  devel79ctl -runserver -config devel79.conf
  devel79ctl r c /etc/devel79.conf`,
	Args:               cobra.ArbitraryArgs,
	DisableFlagParsing: true,
	SilenceUsage:       true,
	SilenceErrors:      true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.Setup(verbose, jsonOutput, os.Stderr)
	},
	RunE: runLegacy,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output logs in JSON format")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Configuration file (relative paths are resolved next to the executable)")
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// Helper aliases for user-facing output (delegates to logging package)
var (
	logInfo    = logging.UserInfo
	logSuccess = logging.UserSuccess
	logWarning = logging.UserWarning
	logError   = logging.UserError
)

// runLegacy implements the historical command line. Flag parsing is off
// for the root command, so the switches arrive as plain arguments.
func runLegacy(cmd *cobra.Command, args []string) error {
	var rest []string
	for _, arg := range args {
		switch strings.ToLower(arg) {
		case "-h", "--help", "help":
			return cmd.Help()
		case "-v", "--verbose":
			verbose = true
		case "--json":
			jsonOutput = true
		default:
			rest = append(rest, arg)
		}
	}
	logging.Setup(verbose, jsonOutput, os.Stderr)

	// Unknown tokens are ignored, but a lone mistyped subcommand should
	// not pass silently.
	if len(rest) > 0 && !cli.IsLegacy(rest) {
		logWarning("Ignoring unknown arguments: %s", strings.Join(rest, " "))
	}

	opts := cli.Parse(args)
	logging.Debug("legacy command line", "runServer", opts.RunServer, "config", opts.ConfigFile)

	cfg, err := config.Load(opts.ConfigFile)
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	a, err := openApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	logInfo("Connected to %s (machine %s)", cfg.DisplayName, a.Controller.Name())

	if opts.RunServer {
		startServer(ctx, a)
	}

	return watch(ctx, a, 0, false)
}

// done reports whether err only signals that the command was interrupted.
func done(ctx context.Context, err error) bool {
	return err == nil || ctx.Err() != nil
}
