package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/agubarev/rolegate/internal/config"
	"github.com/agubarev/rolegate/internal/core"
	"github.com/agubarev/rolegate/pkg/util"
	homedir "github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// default config file name, looked up within the home directory
const configName = ".rolegate"

// NewRootCommand builds the whole command tree around a given viper instance
func NewRootCommand(v *viper.Viper) *cobra.Command {
	var cfgFile string

	rootCmd := &cobra.Command{
		Use:           "rolegate",
		Short:         "Role registry binding protocol roles to accounts.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return readConfig(v, cfgFile)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.rolegate.yaml)")
	flags.String("backend", "", "storage backend: memory, bolt, badger, redis, mongodb, mysql")
	flags.String("bolt-path", "", "bbolt database file")
	flags.String("badger-dir", "", "badger data directory")
	flags.Bool("debug", false, "enable debug logging")

	v.BindPFlag("backend", flags.Lookup("backend"))
	v.BindPFlag("bolt.path", flags.Lookup("bolt-path"))
	v.BindPFlag("badger.dir", flags.Lookup("badger-dir"))
	v.BindPFlag("log.debug", flags.Lookup("debug"))

	rootCmd.AddCommand(
		newGrantCommand(v),
		newRevokeCommand(v),
		newGetCommand(v),
		newCheckCommand(v),
		newCheckAnyCommand(v),
		newRolesOfCommand(v),
		newListCommand(v),
		newVerifyCommand(v),
		newServeCommand(v),
	)

	return rootCmd
}

// Execute runs the root command
func Execute() {
	if err := NewRootCommand(config.New()).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func readConfig(v *viper.Viper, cfgFile string) error {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)

		if err := v.ReadInConfig(); err != nil {
			return errors.Wrapf(err, "failed to read config file %s", cfgFile)
		}

		return nil
	}

	home, err := homedir.Dir()
	if err != nil {
		return errors.Wrap(err, "failed to find home directory")
	}

	v.AddConfigPath(home)
	v.SetConfigName(configName)

	if err = v.ReadInConfig(); err != nil {
		// config file is optional
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return errors.Wrap(err, "failed to read config file")
		}
	}

	return nil
}

// withCore initializes the core for the duration of a single command
func withCore(v *viper.Viper, fn func(ctx context.Context, c *core.Core, out io.Writer, args []string) error) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(v)
		if err != nil {
			return err
		}

		c, err := core.NewCore(cfg)
		if err != nil {
			return err
		}

		// one-shot commands print JSON to stdout, so logging stays quiet
		// unless explicitly asked for
		if !cfg.Log.Debug {
			if err = c.SetLogger(zap.NewNop()); err != nil {
				return err
			}
		}

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		if err = c.Init(ctx); err != nil {
			return err
		}

		defer c.Close()

		return fn(ctx, c, cmd.OutOrStdout(), args)
	}
}

func printJSON(out io.Writer, val interface{}) error {
	payload, err := util.PrettyJSON(val)
	if err != nil {
		return err
	}

	_, err = out.Write(payload)

	return err
}
