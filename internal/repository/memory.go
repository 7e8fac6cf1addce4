package repository

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/ivanoskov/ledger_bot/internal/model"
)

// MemoryRepository хранит пользователей и записи в памяти процесса.
// Используется в тестах и при STORAGE=memory.
type MemoryRepository struct {
	mu      sync.Mutex
	users   map[string]model.UserState
	records map[string][]model.Record // по возрастанию RecordID
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		users:   make(map[string]model.UserState),
		records: make(map[string][]model.Record),
	}
}

func (m *MemoryRepository) GetOrCreateUser(ctx context.Context, id string) (*model.UserState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	user, ok := m.users[id]
	if !ok {
		user = *model.NewUserState(id)
		user.UpdatedAt = time.Now()
		m.users[id] = user
	}
	return &user, nil
}

func (m *MemoryRepository) SaveUser(ctx context.Context, user *model.UserState) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	saved := *user
	saved.UpdatedAt = time.Now()
	m.users[user.ID] = saved
	return nil
}

func (m *MemoryRepository) InsertRecord(ctx context.Context, record *model.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	list := m.records[record.PersonID]
	list = append(list, *record)
	slices.SortFunc(list, func(a, b model.Record) int { return a.RecordID - b.RecordID })
	m.records[record.PersonID] = list
	return nil
}

func (m *MemoryRepository) UpdateRecord(ctx context.Context, record *model.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	list := m.records[record.PersonID]
	for i := range list {
		if list[i].RecordID == record.RecordID {
			list[i] = *record
			return nil
		}
	}
	return ErrNotFound
}

func (m *MemoryRepository) DeleteRecord(ctx context.Context, personID string, recordID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	list := m.records[personID]
	idx := slices.IndexFunc(list, func(r model.Record) bool { return r.RecordID == recordID })
	if idx < 0 {
		return ErrNotFound
	}

	list = slices.Delete(list, idx, idx+1)
	for i := range list {
		if list[i].RecordID > recordID {
			list[i].RecordID--
		}
	}
	m.records[personID] = list
	return nil
}

func (m *MemoryRepository) GetRecords(ctx context.Context, personID string, filter model.RecordFilter) ([]model.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var result []model.Record
	for _, r := range m.records[personID] {
		if len(filter.Categories) > 0 && !slices.Contains(filter.Categories, r.Category) {
			continue
		}
		result = append(result, r)
	}
	return result, nil
}

func (m *MemoryRepository) Close() error {
	return nil
}
