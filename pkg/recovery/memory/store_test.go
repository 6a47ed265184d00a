package memory

import (
	"testing"

	"github.com/multihubswap/engine/pkg/recovery/tests"
)

func TestRecoveryMemoryStore(t *testing.T) {
	testStore := New()
	teardown := func() {
		testStore.(*store).reset()
	}

	tests.RunTests(t, testStore, teardown)
}
