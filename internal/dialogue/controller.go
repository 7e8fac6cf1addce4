// Package dialogue реализует конечный автомат диалога с пользователем.
// Каждое сообщение обрабатывается в зависимости от сохраненного состояния
// пользователя и переводит его в следующее состояние.
package dialogue

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/ivanoskov/ledger_bot/internal/category"
	"github.com/ivanoskov/ledger_bot/internal/logging"
	"github.com/ivanoskov/ledger_bot/internal/model"
	"github.com/ivanoskov/ledger_bot/internal/service"
)

// Store хранит состояние пользователей
type Store interface {
	GetOrCreateUser(ctx context.Context, id string) (*model.UserState, error)
	SaveUser(ctx context.Context, user *model.UserState) error
}

// Reply ответ на одно сообщение
type Reply struct {
	Text string
	// Listing выставлен для view и find; Records содержит показанные записи
	Listing bool
	Records []model.Record
}

type turn struct {
	reply Reply
	next  model.Status
}

func prompt(text string, next model.Status) turn {
	return turn{reply: Reply{Text: text}, next: next}
}

func listed(l service.Listing) turn {
	return turn{
		reply: Reply{Text: l.Text, Listing: true, Records: l.Records},
		next:  model.StatusInit,
	}
}

type Controller struct {
	store    Store
	ledger   *service.Ledger
	taxonomy *category.Taxonomy
	commands []command
	log      logrus.FieldLogger

	locks sync.Map // user id -> *sync.Mutex
}

func NewController(store Store, ledger *service.Ledger, taxonomy *category.Taxonomy, log logrus.FieldLogger) *Controller {
	c := &Controller{
		store:    store,
		ledger:   ledger,
		taxonomy: taxonomy,
		log:      log,
	}
	c.commands = c.buildCommands()
	return c
}

// lock сериализует обработку сообщений одного пользователя
func (c *Controller) lock(userID string) func() {
	m, _ := c.locks.LoadOrStore(userID, &sync.Mutex{})
	mu := m.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// Handle обрабатывает одно входящее сообщение пользователя. Ошибки ввода
// превращаются в ответ; возвращаемая ошибка означает сбой хранилища.
func (c *Controller) Handle(ctx context.Context, userID, text string) (Reply, error) {
	unlock := c.lock(userID)
	defer unlock()

	user, err := c.store.GetOrCreateUser(ctx, userID)
	if err != nil {
		return Reply{}, fmt.Errorf("failed to load user state: %w", err)
	}

	log := c.log.WithFields(logrus.Fields{
		logging.FieldUserID: userID,
		logging.FieldStatus: user.Status,
	})

	if !user.Status.Valid() {
		log.Warn("Неизвестное состояние, возврат в INIT")
		user.Status = model.StatusInit
	}

	t, err := c.step(ctx, user, text)
	if err != nil {
		re, ok := service.AsReplyError(err)
		if !ok {
			return Reply{}, err
		}
		log.WithField("kind", re.Kind).Debug("Ошибка ввода")
		t = prompt(re.Msg, model.StatusInit)
	}

	user.Status = t.next
	if err := c.store.SaveUser(ctx, user); err != nil {
		return Reply{}, fmt.Errorf("failed to save user state: %w", err)
	}

	log.WithFields(logrus.Fields{
		logging.FieldNext:  user.Status,
		logging.FieldCount: user.NumOfRec,
	}).Debug("Сообщение обработано")
	return t.reply, nil
}

// step таблица переходов автомата
func (c *Controller) step(ctx context.Context, user *model.UserState, text string) (turn, error) {
	switch user.Status {
	case model.StatusInit:
		return c.dispatch(ctx, user, text)

	case model.StatusAdd:
		reply, err := c.ledger.Add(ctx, user, text)
		return prompt(reply, model.StatusInit), err

	case model.StatusDelete:
		reply, err := c.ledger.Delete(ctx, user, text)
		return prompt(reply, model.StatusInit), err

	case model.StatusEditAskForID:
		sel, err := c.ledger.EditAskForID(ctx, user, text)
		if err != nil {
			return turn{}, err
		}
		if sel.Accepted() {
			return prompt(sel.Reply, model.StatusEdit), nil
		}
		return prompt(sel.Reply, model.StatusInit), nil

	case model.StatusEdit:
		reply, err := c.ledger.Edit(ctx, user, text)
		return prompt(reply, model.StatusInit), err

	case model.StatusFind:
		listing, err := c.ledger.Find(ctx, user, text)
		if err != nil {
			return turn{}, err
		}
		return listed(listing), nil

	default:
		return turn{}, fmt.Errorf("unexpected status %q", user.Status)
	}
}
