package utils

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChunk(t *testing.T) {
	items := []int{1, 2, 3, 4, 5, 6, 7}

	chunks := Chunk(items, 3)
	assert.Equal(t, [][]int{{1, 2, 3}, {4, 5, 6}, {7}}, chunks)

	assert.Nil(t, Chunk([]int{}, 3))
	assert.Equal(t, [][]int{items}, Chunk(items, 0))
	assert.Len(t, Chunk(make([]string, 100), 50), 2)
}

func TestBatchBufferConcurrentAdd(t *testing.T) {
	b := NewBatchBuffer[int](4)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			b.Add(i)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 50, b.Size())
	assert.Len(t, b.GetAndClear(), 50)
	assert.Nil(t, b.GetAndClear())
}
