package repository

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/sirupsen/logrus"
	"github.com/supabase-community/postgrest-go"
	"github.com/supabase-community/supabase-go"

	"github.com/ivanoskov/ledger_bot/internal/logging"
	"github.com/ivanoskov/ledger_bot/internal/model"
)

const (
	peopleTable      = "people"
	recordsTable     = "records"
	deleteRecordFunc = "delete_record"
)

// SupabaseSchema таблицы и функция delete_record для проекта Supabase
//
//go:embed supabase.sql
var SupabaseSchema string

// SupabaseRepository работает с таблицами people и records через PostgREST.
// Схема проекта должна быть создана из SupabaseSchema.
type SupabaseRepository struct {
	client *supabase.Client
	log    logrus.FieldLogger
}

func NewSupabaseRepository(url, key string, log logrus.FieldLogger) (*SupabaseRepository, error) {
	client, err := supabase.NewClient(url, key, &supabase.ClientOptions{})
	if err != nil {
		return nil, err
	}

	return &SupabaseRepository{
		client: client,
		log:    log,
	}, nil
}

func (r *SupabaseRepository) GetOrCreateUser(ctx context.Context, id string) (*model.UserState, error) {
	data, _, err := r.client.From(peopleTable).
		Select("*", "", false).
		Eq("id", id).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	var users []model.UserState
	if err := json.Unmarshal(data, &users); err != nil {
		return nil, fmt.Errorf("failed to parse user: %w", err)
	}
	if len(users) > 0 {
		return &users[0], nil
	}

	user := model.NewUserState(id)
	if _, _, err := r.client.From(peopleTable).Insert(user, false, "", "minimal", "").Execute(); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	r.log.WithField(logging.FieldUserID, id).Info("Создан новый пользователь")
	return user, nil
}

func (r *SupabaseRepository) SaveUser(ctx context.Context, user *model.UserState) error {
	_, _, err := r.client.From(peopleTable).
		Update(map[string]any{
			"status":         user.Status,
			"num_of_rec":     user.NumOfRec,
			"pending_target": user.PendingTarget,
		}, "minimal", "").
		Eq("id", user.ID).
		Execute()
	if err != nil {
		return fmt.Errorf("failed to save user: %w", err)
	}
	return nil
}

func (r *SupabaseRepository) InsertRecord(ctx context.Context, record *model.Record) error {
	_, _, err := r.client.From(recordsTable).Insert(record, false, "", "minimal", "").Execute()
	if err != nil {
		return fmt.Errorf("failed to insert record: %w", err)
	}
	return nil
}

func (r *SupabaseRepository) UpdateRecord(ctx context.Context, record *model.Record) error {
	data, _, err := r.client.From(recordsTable).
		Update(map[string]any{
			"category":    record.Category,
			"description": record.Description,
			"amount":      record.Amount,
		}, "representation", "").
		Eq("person_id", record.PersonID).
		Eq("record_id", strconv.Itoa(record.RecordID)).
		Execute()
	if err != nil {
		return fmt.Errorf("failed to update record: %w", err)
	}

	var updated []model.Record
	if err := json.Unmarshal(data, &updated); err != nil {
		return fmt.Errorf("failed to parse updated record: %w", err)
	}
	if len(updated) == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteRecord вызывает функцию delete_record из supabase.sql: удаление и
// перенумерация выполняются одной транзакцией на стороне базы.
func (r *SupabaseRepository) DeleteRecord(ctx context.Context, personID string, recordID int) error {
	body := r.client.Rpc(deleteRecordFunc, "", map[string]any{
		"p_person_id": personID,
		"p_record_id": recordID,
	})

	shifted, err := parseDeleteResult(body)
	if err != nil {
		return err
	}

	r.log.WithFields(logrus.Fields{
		logging.FieldUserID:   personID,
		logging.FieldRecordID: recordID,
		logging.FieldCount:    shifted,
	}).Debug("Записи перенумерованы")
	return nil
}

// parseDeleteResult разбирает ответ delete_record: число сдвинутых записей
// или -1, если удалять было нечего
func parseDeleteResult(body string) (int, error) {
	var shifted int
	if err := json.Unmarshal([]byte(body), &shifted); err != nil {
		return 0, fmt.Errorf("failed to delete record: unexpected response %q", body)
	}
	if shifted < 0 {
		return 0, ErrNotFound
	}
	return shifted, nil
}

func (r *SupabaseRepository) GetRecords(ctx context.Context, personID string, filter model.RecordFilter) ([]model.Record, error) {
	query := r.client.From(recordsTable).
		Select("*", "", false).
		Eq("person_id", personID)

	if len(filter.Categories) > 0 {
		query = query.In("category", filter.Categories)
	}

	data, _, err := query.Order("record_id", &postgrest.OrderOpts{Ascending: true}).Execute()
	if err != nil {
		return nil, fmt.Errorf("failed to get records: %w", err)
	}

	var records []model.Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to parse records: %w", err)
	}
	return records, nil
}

func (r *SupabaseRepository) Close() error {
	return nil
}
