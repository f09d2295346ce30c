package ids

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReferencesAreUniqueAcrossGoroutines(t *testing.T) {
	g, err := New(7)
	require.NoError(t, err)

	const workers, each = 8, 250
	out := make(chan string, workers*each)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < each; i++ {
				out <- g.Reference()
			}
		}()
	}
	wg.Wait()
	close(out)

	seen := map[string]bool{}
	for ref := range out {
		assert.True(t, strings.HasPrefix(ref, ReferencePrefix))
		assert.False(t, seen[ref], "duplicate %s", ref)
		seen[ref] = true
	}
	assert.Len(t, seen, workers*each)
}

func TestOrderPrefixAndBadNode(t *testing.T) {
	g, err := New(1)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(g.Order(), OrderPrefix))

	_, err = New(5000)
	assert.Error(t, err)
}
