package commands

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/c2h5oh/datasize"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/mathcosmos/recordstore/chunk"
	"github.com/mathcosmos/recordstore/storage"
)

func init() {
	rootCmd.AddCommand(statusCmd)
}

// printStatus inspects the store layout without going through the load
// protocol, so it also works on stores with a broken or partial layout.
func printStatus(st storage.Interface) error {
	ls, err := st.List(rootCtx, conf.PrimaryKey)
	if err != nil {
		return err
	}
	if len(ls) == 0 {
		fmt.Println("layout: empty (no record keys)")
		return nil
	}

	var total int64
	for _, b := range ls {
		total += b.Size
	}
	manifestKey := conf.PrimaryKey + "_manifest"
	chunkPrefix := conf.PrimaryKey + "_chunk_"

	mdata, err := st.Load(rootCtx, manifestKey)
	switch {
	case err == nil:
		fmt.Println("layout: chunked")
		m, err := chunk.UnmarshalManifest(mdata)
		if err != nil {
			fmt.Printf("manifest: INVALID (%v)\n", err)
			break
		}
		fmt.Printf("manifest: format v%d, encoding v%d, %d chunks, %s payload\n",
			m.FormatVersion, m.EncodingVersion, m.ChunkCount,
			datasize.ByteSize(m.TotalLength).HumanReadable())

		var chunks []chunk.Chunk
		for _, b := range ls.WithPrefix(chunkPrefix) {
			index, err := strconv.Atoi(strings.TrimPrefix(b.Name, chunkPrefix))
			if err != nil {
				continue
			}
			data, err := st.Load(rootCtx, b.Name)
			if err != nil {
				fmt.Printf("chunk %d: LOAD ERROR (%v)\n", index, err)
				continue
			}
			chunks = append(chunks, chunk.Chunk{Index: index, Data: string(data)})
		}
		chunk.SortChunks(chunks)
		seen := make(map[int]bool)
		for _, c := range chunks {
			fmt.Printf("chunk %d: %s\n", c.Index,
				datasize.ByteSize(len(c.Data)).HumanReadable())
			seen[c.Index] = true
		}
		for i := 0; i < m.ChunkCount; i++ {
			if !seen[i] {
				fmt.Printf("chunk %d: MISSING\n", i)
			}
		}
	case errors.Is(err, os.ErrNotExist):
		fmt.Println("layout: single-key")
	default:
		return err
	}

	fmt.Println()
	fmt.Println("keys:")
	for _, b := range ls {
		fmt.Printf("  %-40s %s\n", b.Name, datasize.ByteSize(b.Size).HumanReadable())
	}
	fmt.Printf("total: %d keys, %s\n", len(ls), datasize.ByteSize(total).HumanReadable())
	return nil
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the store layout, manifest and per-key sizes",
	Run: func(cmd *cobra.Command, args []string) {
		st, err := storage.GetBackend(conf.Storage)
		if err != nil {
			logrus.WithError(err).Fatal("Storage init error")
		}
		if err := printStatus(st); err != nil {
			logrus.WithError(err).Fatal("Status error")
		}
	},
}
