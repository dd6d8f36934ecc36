package blob

import (
	"testing"

	"github.com/PowerDNS/simpleblob/backends/memory"

	"github.com/mathcosmos/recordstore/storage/tester"
)

func TestBackend(t *testing.T) {
	tester.DoBackendTests(t, New(memory.New()))
}
