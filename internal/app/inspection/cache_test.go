package inspection

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/ahrav/pdfguard/internal/domain/inspection"
)

func TestExtractionCacheBound(t *testing.T) {
	c := NewExtractionCache(0)

	fps := make([]domain.Fingerprint, 150)
	for i := range fps {
		fps[i] = domain.NewFingerprint([]byte(fmt.Sprintf("doc-%d", i)), "a.pdf", 5)
		require.True(t, c.Put(fps[i], domain.ExtractionResult{Text: fmt.Sprintf("text %d", i)}))
	}

	require.Equal(t, DefaultCacheCapacity, c.Len())
	for i, fp := range fps {
		_, ok := c.Get(fp)
		if i < 50 {
			assert.False(t, ok, "entry %d should have been evicted", i)
			continue
		}
		assert.True(t, ok, "entry %d should be cached", i)
	}
}

func TestExtractionCacheSkipsFailures(t *testing.T) {
	c := NewExtractionCache(10)
	fp := domain.Fingerprint("failed")

	assert.False(t, c.Put(fp, domain.FailedExtraction()))
	_, ok := c.Get(fp)
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestExtractionCacheReturnsCopies(t *testing.T) {
	c := NewExtractionCache(10)
	fp := domain.Fingerprint("fp")
	c.Put(fp, domain.ExtractionResult{Text: "hello world", Metadata: map[string]string{"Title": "x"}})

	got, ok := c.Get(fp)
	require.True(t, ok)
	got.Metadata["Title"] = "mutated"

	again, _ := c.Get(fp)
	assert.Equal(t, "x", again.Metadata["Title"])
}
