package cmd

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/andresmejia3/lookout/internal/config"
	"github.com/andresmejia3/lookout/internal/detect"
	"github.com/andresmejia3/lookout/internal/logger"
	"github.com/andresmejia3/lookout/internal/utils"
	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// viperKey is the flag annotation naming the config key a flag overrides.
const viperKey = "viper_key"

var (
	// cfgFile is the optional YAML/TOML/JSON config path
	cfgFile string
	// v holds defaults, file, env and flag values for the running command
	v *viper.Viper
)

// Version is the application version.
const Version = "0.1.0"

var rootCmd = &cobra.Command{
	Use:     "lookout",
	Short:   "Live face & eye detection preview",
	Version: Version, // This enables the --version flag
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		v, err = config.New(cfgFile)
		if err != nil {
			return err
		}
		if err := bindFlags(cmd); err != nil {
			return err
		}
		return logger.Initialize(v.GetBool("log.json"), v.GetString("log.level"))
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Sync()
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	// Create a context that listens for Ctrl+C (SIGINT) or Kill (SIGTERM)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// This tells Cobra not to print the version in the help text, which is cleaner.
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	if err := run(ctx, os.Args[1:], os.Stderr); err != nil {
		stop()
		os.Exit(1)
	}
}

// run executes the command line and reports any error exactly once, as the
// boxed report. Subcommands return errors and never print them.
func run(ctx context.Context, args []string, stderr io.Writer) error {
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		title := "Command failed"
		if errors.Is(err, detect.ErrInitialization) {
			title = "Startup failed"
		}
		utils.ShowError(stderr, title, err, nil)
	}
	return err
}

// configFlag marks flag name as an override for the config key.
func configFlag(fs *pflag.FlagSet, name, key string) {
	_ = fs.SetAnnotation(name, viperKey, []string{key})
}

// bindFlags binds every annotated flag to its config key. Viper only prefers a
// bound flag over file and environment when the flag was actually set.
func bindFlags(cmd *cobra.Command) error {
	var err error
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		keys, ok := f.Annotations[viperKey]
		if !ok || err != nil {
			return
		}
		err = v.BindPFlag(keys[0], f)
	})
	return err
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&cfgFile, "config", "c", "", "Config file (YAML, TOML or JSON)")
	pf.Bool("log-json", false, "Emit JSON logs")
	pf.String("log-level", "info", "Log level (debug, info, warn, error)")
	configFlag(pf, "log-json", "log.json")
	configFlag(pf, "log-level", "log.level")
}
