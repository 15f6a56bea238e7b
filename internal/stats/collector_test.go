package stats

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCollector_Counters(t *testing.T) {
	c := NewCollector()
	c.AddFilesCompared(2)
	c.AddFilesMatched(1)
	c.AddFilesMismatched(1)
	c.AddBlocksCompared(128)
	c.AddRetries(3)
	c.AddGiveUps(1)

	s := c.Snapshot()
	assert.Equal(t, int64(2), s.FilesCompared)
	assert.Equal(t, int64(1), s.FilesMatched)
	assert.Equal(t, int64(1), s.FilesMismatched)
	assert.Equal(t, int64(128), s.BlocksCompared)
	assert.Equal(t, int64(3), s.Retries)
	assert.Equal(t, int64(1), s.GiveUps)
	assert.Equal(t, int64(0), s.ExtraFiles)
}

func TestCollector_ConcurrentAdds(t *testing.T) {
	c := NewCollector()
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.AddBlocksCompared(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1000), c.Snapshot().BlocksCompared)
}

func TestSnapshot_String(t *testing.T) {
	c := NewCollector()
	c.AddFilesCompared(1)
	assert.Contains(t, c.Snapshot().String(), "compared=1")
}
