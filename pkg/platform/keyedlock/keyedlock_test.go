package keyedlock

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLockSerializesOneKey(t *testing.T) {
	m := New()

	const workers = 50
	var (
		wg      sync.WaitGroup
		counter int
	)
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			m.Lock("group-a")
			counter++
			m.Unlock("group-a")
		}()
	}
	wg.Wait()

	assert.Equal(t, workers, counter)
}

func TestLockIsReacquirable(t *testing.T) {
	m := New()
	m.Lock("k")
	m.Unlock("k")
	m.Lock("k")
	m.Unlock("k")
}
