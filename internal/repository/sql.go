package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/ivanoskov/ledger_bot/internal/model"
)

//go:embed schema.sql
var schemaSQL string

// Dialect имя драйвера database/sql
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite3"
	DialectPostgres Dialect = "postgres"
)

// SQLRepository хранит данные в SQLite или PostgreSQL
type SQLRepository struct {
	db      *sql.DB
	dialect Dialect
}

func NewSQLRepository(dialect Dialect, dsn string) (*SQLRepository, error) {
	db, err := sql.Open(string(dialect), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dialect == DialectSQLite {
		// один писатель; заодно :memory: остается одной базой
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &SQLRepository{db: db, dialect: dialect}, nil
}

// rebind заменяет ? на $1, $2, ... для PostgreSQL
func (r *SQLRepository) rebind(query string) string {
	if r.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, c := range query {
		if c == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(c)
	}
	return b.String()
}

func (r *SQLRepository) GetOrCreateUser(ctx context.Context, id string) (*model.UserState, error) {
	const insert = `INSERT INTO people (id, status, num_of_rec, pending_target)
	VALUES (?, ?, 0, 0) ON CONFLICT (id) DO NOTHING`
	if _, err := r.db.ExecContext(ctx, r.rebind(insert), id, model.StatusInit); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	const query = `SELECT id, status, num_of_rec, pending_target FROM people WHERE id = ?`
	var user model.UserState
	err := r.db.QueryRowContext(ctx, r.rebind(query), id).
		Scan(&user.ID, &user.Status, &user.NumOfRec, &user.PendingTarget)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

func (r *SQLRepository) SaveUser(ctx context.Context, user *model.UserState) error {
	const query = `INSERT INTO people (id, status, num_of_rec, pending_target)
	VALUES (?, ?, ?, ?)
	ON CONFLICT (id) DO UPDATE SET
		status = excluded.status,
		num_of_rec = excluded.num_of_rec,
		pending_target = excluded.pending_target`

	_, err := r.db.ExecContext(ctx, r.rebind(query), user.ID, user.Status, user.NumOfRec, user.PendingTarget)
	if err != nil {
		return fmt.Errorf("failed to save user: %w", err)
	}
	return nil
}

func (r *SQLRepository) InsertRecord(ctx context.Context, record *model.Record) error {
	const query = `INSERT INTO records (person_id, record_id, category, description, amount)
	VALUES (?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		record.PersonID, record.RecordID, record.Category, record.Description, record.Amount)
	if err != nil {
		return fmt.Errorf("failed to insert record: %w", err)
	}
	return nil
}

func (r *SQLRepository) UpdateRecord(ctx context.Context, record *model.Record) error {
	const query = `UPDATE records SET category = ?, description = ?, amount = ?
	WHERE person_id = ? AND record_id = ?`

	res, err := r.db.ExecContext(ctx, r.rebind(query),
		record.Category, record.Description, record.Amount, record.PersonID, record.RecordID)
	if err != nil {
		return fmt.Errorf("failed to update record: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update record: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *SQLRepository) DeleteRecord(ctx context.Context, personID string, recordID int) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx, r.rebind(`DELETE FROM records WHERE person_id = ? AND record_id = ?`), personID, recordID)
	if err != nil {
		return fmt.Errorf("failed to delete record: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete record: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}

	rows, err := tx.QueryContext(ctx,
		r.rebind(`SELECT record_id FROM records WHERE person_id = ? AND record_id > ? ORDER BY record_id`),
		personID, recordID)
	if err != nil {
		return fmt.Errorf("failed to list records: %w", err)
	}
	var ids []int
	for rows.Next() {
		var id int
		if err = rows.Scan(&id); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan record id: %w", err)
		}
		ids = append(ids, id)
	}
	if err = rows.Err(); err != nil {
		rows.Close()
		return fmt.Errorf("failed to list records: %w", err)
	}
	if err = rows.Close(); err != nil {
		return fmt.Errorf("failed to list records: %w", err)
	}

	// По возрастанию: номер old-1 к этому моменту уже свободен
	for _, old := range ids {
		_, err = tx.ExecContext(ctx,
			r.rebind(`UPDATE records SET record_id = ? WHERE person_id = ? AND record_id = ?`),
			old-1, personID, old)
		if err != nil {
			return fmt.Errorf("failed to renumber record %d: %w", old, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit delete: %w", err)
	}
	return nil
}

func (r *SQLRepository) GetRecords(ctx context.Context, personID string, filter model.RecordFilter) ([]model.Record, error) {
	query := `SELECT person_id, record_id, category, description, amount FROM records WHERE person_id = ?`
	args := []any{personID}
	if len(filter.Categories) > 0 {
		query += ` AND category IN (?` + strings.Repeat(`, ?`, len(filter.Categories)-1) + `)`
		for _, c := range filter.Categories {
			args = append(args, c)
		}
	}
	query += ` ORDER BY record_id`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get records: %w", err)
	}
	defer rows.Close()

	var records []model.Record
	for rows.Next() {
		var rec model.Record
		if err := rows.Scan(&rec.PersonID, &rec.RecordID, &rec.Category, &rec.Description, &rec.Amount); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to get records: %w", err)
	}
	return records, nil
}

func (r *SQLRepository) Close() error {
	return r.db.Close()
}
