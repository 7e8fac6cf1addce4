package dialogue

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/ivanoskov/ledger_bot/internal/logging"
	"github.com/ivanoskov/ledger_bot/internal/model"
	"github.com/ivanoskov/ledger_bot/internal/service"
)

const invalidCommand = "Invalid command. Try again."

// command начинает сценарий по ключевому слову
type command struct {
	keyword     string
	description string
	run         func(ctx context.Context, user *model.UserState) (turn, error)
}

func (c *Controller) buildCommands() []command {
	return []command{
		{"add", "add an expense or income record", func(ctx context.Context, user *model.UserState) (turn, error) {
			return prompt(c.ledger.AddPrompt(), model.StatusAdd), nil
		}},
		{"view", "show all records and the balance", func(ctx context.Context, user *model.UserState) (turn, error) {
			listing, err := c.ledger.View(ctx, user)
			if err != nil {
				return turn{}, err
			}
			return listed(listing), nil
		}},
		{"delete", "delete a record", func(ctx context.Context, user *model.UserState) (turn, error) {
			return prompt("Which record do you want to delete (0 to skip): No.?", model.StatusDelete), nil
		}},
		{"edit", "edit a record", func(ctx context.Context, user *model.UserState) (turn, error) {
			return prompt("Which record do you want to edit (0 to skip): No.?", model.StatusEditAskForID), nil
		}},
		{"find", "show records of a category and its subcategories", func(ctx context.Context, user *model.UserState) (turn, error) {
			return prompt("Which category do you want to find? ", model.StatusFind), nil
		}},
		{"view categories", "show the category list", func(ctx context.Context, user *model.UserState) (turn, error) {
			return prompt(strings.Join(c.taxonomy.Render(), "\n"), model.StatusInit), nil
		}},
		{"help", "show this message", func(ctx context.Context, user *model.UserState) (turn, error) {
			return prompt(c.help(), model.StatusInit), nil
		}},
	}
}

// dispatch обрабатывает сообщение в состоянии INIT
func (c *Controller) dispatch(ctx context.Context, user *model.UserState, text string) (turn, error) {
	for _, cmd := range c.commands {
		if cmd.keyword == text {
			c.log.WithFields(logrus.Fields{
				logging.FieldUserID:  user.ID,
				logging.FieldCommand: cmd.keyword,
			}).Debug("Команда")
			return cmd.run(ctx, user)
		}
	}
	return turn{}, service.NewReplyError(service.UnknownCommandError, invalidCommand)
}

func (c *Controller) help() string {
	var b strings.Builder
	b.WriteString("Available commands:")
	for _, cmd := range c.commands {
		b.WriteString("\n" + cmd.keyword + " - " + cmd.description)
	}
	return b.String()
}

// Keywords возвращает ключевые слова команд в порядке вывода справки
func (c *Controller) Keywords() []string {
	keywords := make([]string, 0, len(c.commands))
	for _, cmd := range c.commands {
		keywords = append(keywords, cmd.keyword)
	}
	return keywords
}
