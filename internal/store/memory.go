package store

import (
	"context"
	"sort"
	"sync"

	"github.com/jun/watchlist/internal/model"
)

type memoryKey struct {
	userID string
	itemID string
}

// MemoryTable implements Table with an in-process map.
// It backs DEV_MODE and the tests; data does not survive a restart.
type MemoryTable struct {
	items map[memoryKey]model.WatchListItem
	mu    sync.RWMutex
}

// NewMemoryTable creates an empty MemoryTable.
func NewMemoryTable() *MemoryTable {
	return &MemoryTable{items: make(map[memoryKey]model.WatchListItem)}
}

func (m *MemoryTable) Query(_ context.Context, userID string) ([]model.WatchListItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	items := []model.WatchListItem{}
	for k, item := range m.items {
		if k.userID == userID {
			items = append(items, item)
		}
	}
	// Map iteration is random; creation order keeps listings stable.
	sort.Slice(items, func(i, j int) bool {
		if items[i].CreatedAt != items[j].CreatedAt {
			return items[i].CreatedAt < items[j].CreatedAt
		}
		return items[i].ItemID < items[j].ItemID
	})
	return items, nil
}

func (m *MemoryTable) Get(_ context.Context, userID, itemID string) (*model.WatchListItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	item, ok := m.items[memoryKey{userID, itemID}]
	if !ok {
		return nil, ErrNotFound
	}
	return &item, nil
}

func (m *MemoryTable) Put(_ context.Context, item model.WatchListItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.items[memoryKey{item.UserID, item.ItemID}] = item
	return nil
}

func (m *MemoryTable) UpdateName(_ context.Context, userID, itemID, name string) (*model.WatchListItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := memoryKey{userID, itemID}
	item, ok := m.items[k]
	if !ok {
		return nil, ErrNotFound
	}
	item.Name = name
	m.items[k] = item
	return &item, nil
}

func (m *MemoryTable) Delete(_ context.Context, userID, itemID string) (*model.WatchListItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := memoryKey{userID, itemID}
	item, ok := m.items[k]
	if !ok {
		return nil, nil
	}
	delete(m.items, k)
	return &item, nil
}

func (m *MemoryTable) SetAttachmentURL(_ context.Context, userID, itemID, url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := memoryKey{userID, itemID}
	item, ok := m.items[k]
	if !ok {
		return ErrNotFound
	}
	item.AttachmentURL = url
	m.items[k] = item
	return nil
}
