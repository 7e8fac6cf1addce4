package repository

import (
	"context"
	"errors"

	"github.com/ivanoskov/ledger_bot/internal/model"
)

// ErrNotFound возвращается, когда запись с указанным номером отсутствует
var ErrNotFound = errors.New("record not found")

// IsNotFound сообщает, что запись не найдена
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

type Repository interface {
	// Пользователи
	GetOrCreateUser(ctx context.Context, id string) (*model.UserState, error)
	SaveUser(ctx context.Context, user *model.UserState) error

	// Записи
	InsertRecord(ctx context.Context, record *model.Record) error
	UpdateRecord(ctx context.Context, record *model.Record) error
	// DeleteRecord удаляет запись и сдвигает номера всех следующих записей
	// пользователя на единицу вниз, в порядке возрастания.
	DeleteRecord(ctx context.Context, personID string, recordID int) error
	GetRecords(ctx context.Context, personID string, filter model.RecordFilter) ([]model.Record, error)

	Close() error
}

var (
	_ Repository = (*MemoryRepository)(nil)
	_ Repository = (*SQLRepository)(nil)
	_ Repository = (*SupabaseRepository)(nil)
)
