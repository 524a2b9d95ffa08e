package main

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const envPrefix = "GOGRANT"

// app carries state shared by every subcommand once flags, env and config are merged.
type app struct {
	v      *viper.Viper
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	root := &cobra.Command{
		Use:           "grantctl",
		Short:         "Create, verify and serve grant tokens",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	addGlobalFlags(root.PersistentFlags())

	root.AddCommand(
		newServeCmd(a),
		newCreateCmd(a),
		newVerifyCmd(a),
		newKeysCmd(a),
		newBenchCmd(a),
		newPerfCheckCmd(),
	)
	return root
}

func addGlobalFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "config file (yaml, json or toml)")
	fs.String("env-file", ".env", "dotenv file loaded before reading the environment; missing files are ignored")
	fs.String("log-level", "info", "log level (debug, info, warn, error)")
	fs.String("log-format", "console", "log format (json, console)")

	fs.String("keyring", "static", "keyring backend (static, sqlite, redis)")
	fs.String("keyring-file", "keys.yaml", "static keyring YAML file")
	fs.String("sqlite-dsn", "file:gogrant.db", "sqlite keyring DSN")
	fs.String("redis-addr", "", "redis address; empty starts an in-process miniredis")
	fs.String("redis-prefix", "ggk", "redis key prefix for the keyring")
	fs.Duration("redis-connect-timeout", 0, "give up connecting to redis after this long (0 = 30s)")
	fs.String("master-key-b64", "", "32-byte master key in standard base64; seals secrets in the sqlite and redis keyrings")
}

// init loads the dotenv file, then layers config file, environment and flags.
// Flags win over environment, which wins over the config file.
func (a *app) init(cmd *cobra.Command) error {
	envFile, _ := cmd.Flags().GetString("env-file")
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	a.v.SetEnvPrefix(envPrefix)
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()
	if err := a.v.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("bind flags: %w", err)
	}

	if path := a.v.GetString("config"); path != "" {
		a.v.SetConfigFile(path)
		if err := a.v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", path, err)
		}
	}

	logger, err := setupLogger(a.v.GetString("log-level"), a.v.GetString("log-format"))
	if err != nil {
		return err
	}
	a.logger = logger
	return nil
}
