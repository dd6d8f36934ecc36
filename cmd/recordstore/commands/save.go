package commands

import (
	"encoding/json"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/mathcosmos/recordstore/record"
)

func init() {
	rootCmd.AddCommand(saveCmd)
}

// readRecordJSON reads a plain JSON record from a file, or from stdin
// when the path is "-".
func readRecordJSON(fpath string) (*record.Record, error) {
	var contents []byte
	var err error
	if fpath == "-" {
		contents, err = io.ReadAll(os.Stdin)
	} else {
		contents, err = os.ReadFile(fpath)
	}
	if err != nil {
		return nil, errors.Wrap(err, "read record")
	}
	rec := record.New()
	if err := json.Unmarshal(contents, rec); err != nil {
		return nil, errors.Wrap(err, "parse record json")
	}
	return rec, nil
}

var saveCmd = &cobra.Command{
	Use:   "save <record.json>",
	Short: "Store a record from a JSON file ('-' for stdin)",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		rec, err := readRecordJSON(args[0])
		if err != nil {
			logrus.WithError(err).Fatal("Cannot read record")
		}
		o, err := newOrchestrator()
		if err != nil {
			logrus.WithError(err).Fatal("Storage init error")
		}
		res, err := o.Save(rootCtx, rec)
		if err != nil {
			logrus.WithError(err).Fatal("Save error")
		}
		logrus.WithFields(logrus.Fields{
			"outcome": res.Outcome,
			"size":    res.EncodedSize,
			"chunks":  res.ChunkCount,
			"evicted": res.Evicted,
		}).Info("Record saved")
	},
}
