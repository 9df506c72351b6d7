package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/aretw0/notebook"
)

// app carries what every command needs: configuration and the logger.
type app struct {
	v      *viper.Viper
	logger *zap.Logger
}

// newRootCmd builds the command tree. Each call gets its own flags and
// configuration, so tests can run commands side by side.
func newRootCmd() *cobra.Command {
	a := &app{v: viper.New(), logger: zap.NewNop()}
	var cfgFile string

	rootCmd := &cobra.Command{
		Use:   "notebook",
		Short: "A small note keeper with an always-sorted collection",
		Long: `notebook keeps a collection of notes sorted by last edit.
Every change is saved as a whole snapshot, optionally versioned with git.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := a.loadConfig(cfgFile); err != nil {
				return err
			}
			logger, err := newLogger(a.v.GetBool("verbose"))
			if err != nil {
				return err
			}
			a.logger = logger
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = a.logger.Sync()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default $HOME/.notebook/config.yaml)")
	flags.BoolP("verbose", "v", false, "Enable verbose logging")
	flags.String("path", "", "notebook directory (default: nearest notebook above the working directory)")
	flags.String("adapter", "fs", "storage adapter: fs, sql or memory")
	flags.String("dsn", "", "database DSN for the sql adapter")
	flags.String("snapshot", "", "snapshot file name; the extension picks the format")
	for _, name := range []string{"verbose", "path", "adapter", "dsn", "snapshot"} {
		_ = a.v.BindPFlag(name, flags.Lookup(name))
	}

	rootCmd.AddCommand(
		newListCmd(a),
		newShowCmd(a),
		newNewCmd(a),
		newEditCmd(a),
		newAttachCmd(a),
		newDetachCmd(a),
		newDeleteCmd(a),
		newPurgeCmd(a),
		newWatchCmd(a),
		newStateCmd(a),
		newVersionCmd(),
	)
	return rootCmd
}

func (a *app) loadConfig(cfgFile string) error {
	v := a.v
	v.SetDefault("adapter", "fs")
	v.SetDefault("snapshot", "notes.cbor")
	v.SetDefault("image_quality", 85)
	v.SetDefault("redis.channel", "notebook:changes")

	v.SetEnvPrefix("NOTEBOOK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".notebook"))
		}
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}
	return nil
}

// notebookPath resolves the directory of the fs adapter.
func (a *app) notebookPath() (string, error) {
	if p := a.v.GetString("path"); p != "" {
		return p, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	if root, err := notebook.FindRoot(wd); err == nil {
		return root, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".notebook"), nil
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	cfg.OutputPaths = []string{"stderr"}
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg.Build()
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
