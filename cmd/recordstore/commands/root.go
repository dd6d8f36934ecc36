package commands

import (
	"context"
	"os"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/mathcosmos/recordstore/config"
	"github.com/mathcosmos/recordstore/config/logger"
	"github.com/mathcosmos/recordstore/persist"
	"github.com/mathcosmos/recordstore/storage"
)

var (
	configFile string
	debug      bool
	logConfig  bool
	conf       config.Config
)

var (
	// These are set by Execute
	rootCtx    context.Context
	rootCancel context.CancelFunc
)

var rootHelp = `This tool stores, inspects and recovers the application record kept in a
small quota-limited key-value store.
`

var rootCmd = &cobra.Command{
	Use:   "recordstore",
	Short: "Manage the persisted application record",
	Long:  rootHelp,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		conf = config.Default()
		conf.Version = version
		if configFile != "" {
			err := conf.LoadYAMLFile(configFile, true)
			if err != nil && !errors.Is(err, os.ErrNotExist) {
				logrus.Fatalf("Load config file %q: %v", configFile, err)
			}
		}
		// Also check at this stage. A config must always be valid, even if you
		// later override some items.
		if err := conf.Check(); err != nil {
			logrus.Fatalf("Config file error: %v", err)
		}

		conf.Log = conf.Log.Merge(logger.FlagConfig)
		if debug {
			conf.Log.Level = "debug"
		}
		logger.Configure(conf.Log)
		logrus.WithField("version", version).Debug("Running")
		if logConfig {
			logrus.Infof("Effective configuration:\n%s\n", conf.String())
		}
	},
	Run: func(cmd *cobra.Command, args []string) {
		_ = cmd.Help()
	},
	Version: version,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "recordstore.yaml", "Config file")
	rootCmd.PersistentFlags().BoolVar(&logConfig, "log-config", false, "Log the evaluated configuration on startup")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	logger.RegisterFlagsWith(rootCmd.PersistentFlags().StringVar)
}

func Execute() {
	rootCtx, rootCancel = context.WithCancel(context.Background())
	defer rootCancel()
	if err := rootCmd.Execute(); err != nil {
		logrus.WithError(err).Error("Error")
		os.Exit(1)
	}
}

// newOrchestrator wires the configured backend into an orchestrator.
func newOrchestrator() (*persist.Orchestrator, error) {
	st, err := storage.GetBackend(conf.Storage)
	if err != nil {
		return nil, err
	}
	return persist.New(st, conf)
}
