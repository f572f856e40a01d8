package memory

import (
	"testing"

	"github.com/solana-token-factory/factory/pkg/factory/data/promo/tests"
)

func TestPromoMemoryStore(t *testing.T) {
	testStore := New()
	teardown := func() {
		testStore.(*store).reset()
	}
	tests.RunTests(t, testStore, teardown)
}
