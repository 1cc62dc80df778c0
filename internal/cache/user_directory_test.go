package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserDirectory(t *testing.T) {
	t.Run("RememberAndLookup", func(t *testing.T) {
		d := NewUserDirectory(10, time.Minute)

		isNew := d.Remember("alice", 1)
		assert.True(t, isNew)

		id, ok := d.Lookup("alice")
		require.True(t, ok)
		assert.Equal(t, int64(1), id)
	})

	t.Run("LastWriteWins", func(t *testing.T) {
		d := NewUserDirectory(10, time.Minute)
		d.Remember("alice", 1)

		isNew := d.Remember("alice", 2)
		assert.False(t, isNew)

		id, ok := d.Lookup("alice")
		require.True(t, ok)
		assert.Equal(t, int64(2), id)
	})

	t.Run("CaseAndAtSignIgnored", func(t *testing.T) {
		d := NewUserDirectory(10, time.Minute)
		d.Remember("Alice", 7)

		id, ok := d.Lookup("@ALICE")
		require.True(t, ok)
		assert.Equal(t, int64(7), id)
	})

	t.Run("UnknownUsername", func(t *testing.T) {
		d := NewUserDirectory(10, time.Minute)
		_, ok := d.Lookup("nobody")
		assert.False(t, ok)
	})

	t.Run("EmptyUsernameNotStored", func(t *testing.T) {
		d := NewUserDirectory(10, time.Minute)
		assert.False(t, d.Remember("", 1))
		assert.Equal(t, 0, d.Len())
	})

	t.Run("EvictsBySize", func(t *testing.T) {
		d := NewUserDirectory(2, 0)
		d.Remember("a", 1)
		d.Remember("b", 2)
		d.Remember("c", 3)

		assert.Equal(t, 2, d.Len())
		_, ok := d.Lookup("a")
		assert.False(t, ok, "самая старая запись должна быть вытеснена")
		_, ok = d.Lookup("c")
		assert.True(t, ok)
	})

	t.Run("ExpiresByTTL", func(t *testing.T) {
		d := NewUserDirectory(10, 50*time.Millisecond)
		d.Remember("alice", 1)

		time.Sleep(120 * time.Millisecond)

		_, ok := d.Lookup("alice")
		assert.False(t, ok)
	})
}

func TestUserDirectory_Concurrent(t *testing.T) {
	d := NewUserDirectory(1000, time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				name := fmt.Sprintf("user%d", j)
				d.Remember(name, int64(worker))
				d.Lookup(name)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 100, d.Len())
}
