// Package events публикует изменения записей во внешнюю шину.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ivanoskov/ledger_bot/internal/model"
)

// Type тип события
type Type string

const (
	RecordAdded   Type = "record.added"
	RecordEdited  Type = "record.edited"
	RecordDeleted Type = "record.deleted"
)

// Event описывает одно изменение в записях пользователя
type Event struct {
	ID         string        `json:"id"`
	Type       Type          `json:"type"`
	PersonID   string        `json:"person_id"`
	RecordID   int           `json:"record_id"`
	Record     *model.Record `json:"record,omitempty"`
	NumOfRec   int           `json:"num_of_rec"`
	OccurredAt time.Time     `json:"occurred_at"`
}

// NewEvent создает событие с новым идентификатором
func NewEvent(t Type, personID string, recordID, numOfRec int, record *model.Record) Event {
	return Event{
		ID:         uuid.New().String(),
		Type:       t,
		PersonID:   personID,
		RecordID:   recordID,
		Record:     record,
		NumOfRec:   numOfRec,
		OccurredAt: time.Now().UTC(),
	}
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// Nop ничего не публикует
type Nop struct{}

func (Nop) Publish(ctx context.Context, event Event) error { return nil }
func (Nop) Close() error { return nil }
