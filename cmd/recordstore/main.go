package main

import (
	"github.com/mathcosmos/recordstore/cmd/recordstore/commands"

	// Register storage backends
	_ "github.com/mathcosmos/recordstore/storage/blob"
	_ "github.com/mathcosmos/recordstore/storage/fs"
	_ "github.com/mathcosmos/recordstore/storage/memory"
)

// version is overridden during the build with the go linker
var version = "dev"

func main() {
	commands.SetVersion(version)
	commands.Execute()
}
