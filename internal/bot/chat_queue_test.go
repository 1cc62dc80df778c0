package bot

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestChatQueue_PreservesOrderWithinChat(t *testing.T) {
	defer goleak.VerifyNone(t)

	q := NewChatQueue(time.Minute)

	var (
		mu  sync.Mutex
		got = map[int64][]int{}
	)
	for i := 0; i < 50; i++ {
		for _, chatID := range []int64{1, 2, 3} {
			i, chatID := i, chatID
			require.NoError(t, q.Submit(chatID, func() {
				mu.Lock()
				got[chatID] = append(got[chatID], i)
				mu.Unlock()
			}))
		}
	}
	q.Close()

	for _, chatID := range []int64{1, 2, 3} {
		require.Len(t, got[chatID], 50)
		for i, v := range got[chatID] {
			assert.Equal(t, i, v)
		}
	}
}

func TestChatQueue_ChatsRunConcurrently(t *testing.T) {
	defer goleak.VerifyNone(t)

	q := NewChatQueue(time.Minute)
	defer q.Close()

	release := make(chan struct{})
	done := make(chan struct{})

	// первый чат блокируется, пока второй не выполнит свою задачу
	require.NoError(t, q.Submit(1, func() { <-release }))
	require.NoError(t, q.Submit(2, func() {
		close(release)
		close(done)
	}))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("second chat was blocked by the first one")
	}
}

func TestChatQueue_IdleWorkerExits(t *testing.T) {
	defer goleak.VerifyNone(t)

	q := NewChatQueue(20 * time.Millisecond)
	defer q.Close()

	ran := make(chan struct{})
	require.NoError(t, q.Submit(42, func() { close(ran) }))
	<-ran

	assert.Eventually(t, func() bool { return q.Active() == 0 }, time.Second, 5*time.Millisecond)

	// после завершения воркера чат снова принимает задачи
	again := make(chan struct{})
	require.NoError(t, q.Submit(42, func() { close(again) }))
	select {
	case <-again:
	case <-time.After(time.Second):
		t.Fatal("task was not executed after worker restart")
	}
}

func TestChatQueue_CloseDrainsAndRejects(t *testing.T) {
	defer goleak.VerifyNone(t)

	q := NewChatQueue(time.Minute)

	var (
		mu    sync.Mutex
		count int
	)
	for i := 0; i < 10; i++ {
		require.NoError(t, q.Submit(7, func() {
			time.Sleep(time.Millisecond)
			mu.Lock()
			count++
			mu.Unlock()
		}))
	}
	q.Close()

	assert.Equal(t, 10, count)
	assert.Equal(t, 0, q.Active())
	assert.ErrorIs(t, q.Submit(7, func() {}), ErrQueueClosed)
}
