package services

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"tg-search-relay/internal/domain"
	"tg-search-relay/internal/ports"
)

// mockTextIndex - мок для ports.TextIndex.
type mockTextIndex struct {
	mock.Mock
}

func (m *mockTextIndex) QueueMessage(ctx context.Context, record domain.IndexRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

// mockImageIndex - мок для ports.ImageIndex.
type mockImageIndex struct {
	mock.Mock
}

func (m *mockImageIndex) IndexImage(ctx context.Context, buffers [][]byte, record domain.IndexRecord) error {
	args := m.Called(ctx, buffers, record)
	return args.Error(0)
}

// mockSearcher - мок для ports.Searcher.
type mockSearcher struct {
	mock.Mock
}

func (m *mockSearcher) Search(ctx context.Context, query domain.SearchQuery) (domain.SearchResult, error) {
	args := m.Called(ctx, query)
	return args.Get(0).(domain.SearchResult), args.Error(1)
}

// mockPlatform - мок для ports.Platform.
type mockPlatform struct {
	mock.Mock
}

func (m *mockPlatform) ChatMember(ctx context.Context, chatID, userID int64) (ports.MemberStatus, error) {
	args := m.Called(ctx, chatID, userID)
	return args.Get(0).(ports.MemberStatus), args.Error(1)
}

func (m *mockPlatform) ProfilePhotos(ctx context.Context, userID int64) ([][]domain.PhotoVariant, error) {
	args := m.Called(ctx, userID)
	if res := args.Get(0); res != nil {
		return res.([][]domain.PhotoVariant), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockPlatform) DownloadFile(ctx context.Context, fileRef string) ([]byte, error) {
	args := m.Called(ctx, fileRef)
	if res := args.Get(0); res != nil {
		return res.([]byte), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockPlatform) SendReply(ctx context.Context, reply ports.Reply) error {
	args := m.Called(ctx, reply)
	return args.Error(0)
}

// mapDirectory - простой справочник для тестов.
type mapDirectory struct {
	mu    sync.Mutex
	users map[string]int64
}

func newMapDirectory() *mapDirectory {
	return &mapDirectory{users: make(map[string]int64)}
}

func (d *mapDirectory) Remember(username string, userID int64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, known := d.users[username]
	d.users[username] = userID
	return !known
}

func (d *mapDirectory) Lookup(username string) (int64, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	id, ok := d.users[username]
	return id, ok
}

// recordingMetrics запоминает вызовы метрик.
type recordingMetrics struct {
	mu         sync.Mutex
	outcomes   []string
	dispatches map[string]int
	scopes     []string
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{dispatches: make(map[string]int)}
}

func (m *recordingMetrics) EventHandled(outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outcomes = append(m.outcomes, outcome)
}

func (m *recordingMetrics) IndexDispatched(target string, _ error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dispatches[target]++
}

func (m *recordingMetrics) SearchExecuted(scope string, _ int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scopes = append(m.scopes, scope)
}
