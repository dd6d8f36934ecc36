package commands

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(clearCmd)
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every record key from the store",
	Run: func(cmd *cobra.Command, args []string) {
		o, err := newOrchestrator()
		if err != nil {
			logrus.WithError(err).Fatal("Storage init error")
		}
		if err := o.ClearAll(rootCtx); err != nil {
			logrus.WithError(err).Fatal("Clear error")
		}
		logrus.Info("Record keys removed")
	},
}
