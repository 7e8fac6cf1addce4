package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ivanoskov/ledger_bot/internal/category"
	"github.com/ivanoskov/ledger_bot/internal/events"
	"github.com/ivanoskov/ledger_bot/internal/logging"
	"github.com/ivanoskov/ledger_bot/internal/model"
	"github.com/ivanoskov/ledger_bot/internal/repository"
)

// CategoryMode определяет, как разбирается строка записи
type CategoryMode string

const (
	// CategoriesValidated: "категория описание сумма", категория из дерева
	CategoriesValidated CategoryMode = "validated"
	// CategoriesFree: "категория описание сумма", категория любая
	CategoriesFree CategoryMode = "free"
	// CategoriesNone: "описание сумма"
	CategoriesNone CategoryMode = "none"
)

// ParseCategoryMode разбирает значение из конфигурации
func ParseCategoryMode(s string) (CategoryMode, error) {
	switch m := CategoryMode(strings.ToLower(strings.TrimSpace(s))); m {
	case CategoriesValidated, CategoriesFree, CategoriesNone:
		return m, nil
	case "":
		return CategoriesValidated, nil
	default:
		return "", fmt.Errorf("unknown category mode %q", s)
	}
}

// Repository определяет интерфейс для работы с хранилищем записей
type Repository interface {
	InsertRecord(ctx context.Context, record *model.Record) error
	UpdateRecord(ctx context.Context, record *model.Record) error
	DeleteRecord(ctx context.Context, personID string, recordID int) error
	GetRecords(ctx context.Context, personID string, filter model.RecordFilter) ([]model.Record, error)
}

// Ledger выполняет операции над записями одного пользователя. Методы
// изменяют переданный UserState; сохранять его должен вызывающий.
type Ledger struct {
	repo     Repository
	taxonomy *category.Taxonomy
	mode     CategoryMode
	events   events.Publisher
	log      logrus.FieldLogger

	publishTimeout time.Duration
}

// DefaultPublishTimeout ограничивает публикацию одного события
const DefaultPublishTimeout = 2 * time.Second

type Option func(*Ledger)

func WithCategoryMode(mode CategoryMode) Option {
	return func(l *Ledger) { l.mode = mode }
}

func WithPublisher(p events.Publisher) Option {
	return func(l *Ledger) { l.events = p }
}

func WithLogger(log logrus.FieldLogger) Option {
	return func(l *Ledger) { l.log = log }
}

// WithPublishTimeout задает, сколько ход пользователя ждет публикации события
func WithPublishTimeout(d time.Duration) Option {
	return func(l *Ledger) { l.publishTimeout = d }
}

// NewLedger создает новый экземпляр Ledger
func NewLedger(repo Repository, taxonomy *category.Taxonomy, opts ...Option) *Ledger {
	l := &Ledger{
		repo:     repo,
		taxonomy: taxonomy,
		mode:     CategoriesValidated,
		events:   events.Nop{},
		log:      logging.Discard(),

		publishTimeout: DefaultPublishTimeout,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Listing результат просмотра записей
type Listing struct {
	Text    string
	Records []model.Record
	Total   int64
}

// Selection результат первого шага редактирования. Target == 0 означает,
// что редактирование пропущено.
type Selection struct {
	Target int
	Reply  string
}

func (s Selection) Accepted() bool {
	return s.Target > 0
}

func (l *Ledger) Add(ctx context.Context, user *model.UserState, line string) (string, error) {
	rec, err := l.parseRecord(line, "add")
	if err != nil {
		return "", err
	}
	rec.PersonID = user.ID
	rec.RecordID = user.NumOfRec + 1

	if err := l.repo.InsertRecord(ctx, &rec); err != nil {
		return "", fmt.Errorf("failed to add record: %w", err)
	}
	user.NumOfRec++

	l.publish(ctx, events.NewEvent(events.RecordAdded, user.ID, rec.RecordID, user.NumOfRec, &rec))
	return fmt.Sprintf("Successfully add a record No.%d: %s", rec.RecordID, rec), nil
}

func (l *Ledger) Delete(ctx context.Context, user *model.UserState, text string) (string, error) {
	n, err := parseNumber(text, user.NumOfRec, "delete")
	if err != nil {
		return "", err
	}
	if n == 0 {
		return "The deletion is skipped.", nil
	}

	if err := l.repo.DeleteRecord(ctx, user.ID, n); err != nil {
		if repository.IsNotFound(err) {
			return "", noRecord(n, "delete")
		}
		return "", fmt.Errorf("failed to delete record: %w", err)
	}
	user.NumOfRec--

	l.log.WithFields(logrus.Fields{
		logging.FieldUserID:   user.ID,
		logging.FieldRecordID: n,
		logging.FieldCount:    user.NumOfRec,
	}).Debug("Запись удалена")

	l.publish(ctx, events.NewEvent(events.RecordDeleted, user.ID, n, user.NumOfRec, nil))
	return fmt.Sprintf("Successfully delete a record No.%d", n), nil
}

// EditAskForID выбирает запись для редактирования и запоминает ее номер
// в user.PendingTarget
func (l *Ledger) EditAskForID(ctx context.Context, user *model.UserState, text string) (Selection, error) {
	n, err := parseNumber(text, user.NumOfRec, "edit")
	if err != nil {
		return Selection{}, err
	}
	if n == 0 {
		return Selection{Reply: "The edit is skipped."}, nil
	}

	user.PendingTarget = n
	return Selection{
		Target: n,
		Reply:  l.editPrompt(),
	}, nil
}

// Edit перезаписывает запись, выбранную на предыдущем шаге
func (l *Ledger) Edit(ctx context.Context, user *model.UserState, line string) (string, error) {
	target := user.PendingTarget
	user.PendingTarget = 0
	if target < 1 || target > user.NumOfRec {
		return "", noRecord(target, "edit")
	}

	rec, err := l.parseRecord(line, "edit")
	if err != nil {
		return "", err
	}
	rec.PersonID = user.ID
	rec.RecordID = target

	if err := l.repo.UpdateRecord(ctx, &rec); err != nil {
		if repository.IsNotFound(err) {
			return "", noRecord(target, "edit")
		}
		return "", fmt.Errorf("failed to edit record: %w", err)
	}

	l.publish(ctx, events.NewEvent(events.RecordEdited, user.ID, target, user.NumOfRec, &rec))
	return fmt.Sprintf("Successfully edit a record No.%d", target), nil
}

// Find показывает записи категории и всех ее подкатегорий
func (l *Ledger) Find(ctx context.Context, user *model.UserState, name string) (Listing, error) {
	name = strings.TrimSpace(name)
	leaves := category.Flatten(l.taxonomy.SubtreeOf(name)...)
	if len(leaves) == 0 {
		return Listing{}, NewReplyError(NotFoundError, fmt.Sprintf(
			"There's no category named %q.\nYou can check the category list by command \"view categories\".\nFail to find records.", name))
	}

	records, err := l.repo.GetRecords(ctx, user.ID, model.RecordFilter{Categories: leaves})
	if err != nil {
		return Listing{}, fmt.Errorf("failed to find records: %w", err)
	}

	l.log.WithFields(logrus.Fields{
		logging.FieldUserID:   user.ID,
		logging.FieldCategory: name,
		logging.FieldCount:    len(records),
	}).Debug("Поиск по категории")

	total := model.Sum(records)
	text := fmt.Sprintf("Here's your expense and income records under category %q:\n", name) +
		renderTable(records, l.mode != CategoriesNone) +
		fmt.Sprintf("The total amount above is %d.", total)

	return Listing{Text: text, Records: records, Total: total}, nil
}

// View показывает все записи и баланс
func (l *Ledger) View(ctx context.Context, user *model.UserState) (Listing, error) {
	records, err := l.repo.GetRecords(ctx, user.ID, model.RecordFilter{})
	if err != nil {
		return Listing{}, fmt.Errorf("failed to view records: %w", err)
	}

	balance := model.Sum(records)
	text := "Here's your expense and income records:\n" +
		renderTable(records, l.mode != CategoriesNone) +
		fmt.Sprintf("Now you have %d dollars.", balance)

	return Listing{Text: text, Records: records, Total: balance}, nil
}

// AddPrompt приглашение к вводу новой записи
func (l *Ledger) AddPrompt() string {
	if l.mode == CategoriesNone {
		return "Add an expense or income record with description and amount: "
	}
	return "Add an expense or income record with category, description, and amount: "
}

func (l *Ledger) editPrompt() string {
	if l.mode == CategoriesNone {
		return "Edit the record with new description and amount: "
	}
	return "Edit the record with new category, description, and amount: "
}

func (l *Ledger) parseRecord(line, op string) (model.Record, error) {
	fields := strings.Fields(line)

	var rec model.Record
	var amount string
	switch {
	case l.mode == CategoriesNone && len(fields) == 2:
		rec.Description, amount = fields[0], fields[1]
	case l.mode != CategoriesNone && len(fields) == 3:
		rec.Category, rec.Description, amount = fields[0], fields[1], fields[2]
	default:
		example := "meal breakfast -50"
		if l.mode == CategoriesNone {
			example = "breakfast -50"
		}
		return rec, NewReplyError(FormatError, fmt.Sprintf(
			"The format of a record should be like this: %s.\nFail to %s a record.", example, op))
	}

	if l.mode == CategoriesValidated && !l.taxonomy.IsValid(rec.Category) {
		return rec, NewReplyError(CategoryError, fmt.Sprintf(
			"The specified category is not in the category list.\nYou can check the category list by command \"view categories\".\nFail to %s a record.", op))
	}

	amt, err := strconv.ParseInt(amount, 10, 64)
	if err != nil {
		return rec, NewReplyError(FormatError, fmt.Sprintf("Invalid value for money.\nFail to %s a record.", op))
	}
	rec.Amount = amt
	return rec, nil
}

// parseNumber разбирает номер записи; допустимы значения от 0 до count
func parseNumber(text string, count int, op string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil {
		return 0, NewReplyError(FormatError, fmt.Sprintf("Invalid format. Fail to %s a record.", op))
	}
	if n < 0 || n > count {
		return 0, noRecord(n, op)
	}
	return n, nil
}

func noRecord(n int, op string) error {
	return NewReplyError(RangeError, fmt.Sprintf("There's no record with No.%d. Fail to %s a record.", n, op))
}

// publish отправляет событие не дольше publishTimeout. Ошибка только
// логируется: запись уже сохранена.
func (l *Ledger) publish(ctx context.Context, event events.Event) {
	ctx, cancel := context.WithTimeout(ctx, l.publishTimeout)
	defer cancel()

	if err := l.events.Publish(ctx, event); err != nil {
		l.log.WithError(err).WithFields(logrus.Fields{
			logging.FieldUserID:    event.PersonID,
			logging.FieldEventType: event.Type,
		}).Warn("Не удалось опубликовать событие")
	}
}
