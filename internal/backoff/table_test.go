package backoff

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vitaliisemenov/driftctl/internal/domain"
)

func TestTable_SetGetClear(t *testing.T) {
	tbl := New()

	_, ok := tbl.Get("svc-A:i1")
	assert.False(t, ok)

	tbl.Set("svc-A:i1", domain.BackoffEntry{RetryCount: 1, Pow: 0})
	entry, ok := tbl.Get("svc-A:i1")
	assert.True(t, ok)
	assert.Equal(t, 1, entry.RetryCount)

	tbl.Clear("svc-A:i1")
	_, ok = tbl.Get("svc-A:i1")
	assert.False(t, ok)
}

func TestTable_ConcurrentAccess(t *testing.T) {
	tbl := New()
	var wg sync.WaitGroup

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			key := "svc:instance"
			entry, _ := tbl.Get(key)
			entry.RetryCount++
			tbl.Set(key, entry)
		}(i)
	}
	wg.Wait()

	assert.LessOrEqual(t, tbl.Len(), 1)
}
