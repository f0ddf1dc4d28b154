package memstore_test

import (
	"testing"

	"github.com/meikuraledutech/flowchart/memstore"
	"github.com/meikuraledutech/flowchart/storetest"
)

func TestMemoryStore_Contract(t *testing.T) {
	storetest.Run(t, memstore.New())
}
