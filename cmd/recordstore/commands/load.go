package commands

import (
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(loadCmd)
}

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Load the stored record and print it as JSON",
	Run: func(cmd *cobra.Command, args []string) {
		o, err := newOrchestrator()
		if err != nil {
			logrus.WithError(err).Fatal("Storage init error")
		}
		rec, err := o.Load(rootCtx)
		if err != nil {
			logrus.WithError(err).Fatal("Load error")
		}
		out, err := json.MarshalIndent(rec, "", "  ")
		if err != nil {
			logrus.WithError(err).Fatal("JSON marshal error")
		}
		fmt.Println(string(out))
	},
}
