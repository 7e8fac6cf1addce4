// Команда ledger ведет тот же диалог, что и бот, через консоль.
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ivanoskov/ledger_bot/internal/config"
	"github.com/ivanoskov/ledger_bot/internal/container"
	"github.com/ivanoskov/ledger_bot/internal/dialogue"
	"github.com/ivanoskov/ledger_bot/internal/repository"
)

type handler interface {
	Handle(ctx context.Context, userID, text string) (dialogue.Reply, error)
}

func newRootCmd() *cobra.Command {
	var c *container.Container

	root := &cobra.Command{
		Use:           "ledger",
		Short:         "Keep expense and income records from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				return err
			}
			c, err = container.NewContainer(cfg)
			return err
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if c == nil {
				return nil
			}
			return c.Close()
		},
	}

	var user string
	chat := &cobra.Command{
		Use:   "chat",
		Short: "Talk to the ledger line by line",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd.Context(), c.Controller, user, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	chat.Flags().StringVarP(&user, "user", "u", "console", "user id the records belong to")

	categories := &cobra.Command{
		Use:   "categories",
		Short: "Print the category tree",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), strings.Join(c.Taxonomy.Render(), "\n"))
			return err
		},
	}

	schema := &cobra.Command{
		Use:   "schema",
		Short: "Print the SQL to run in a Supabase project before first use",
		// схема не требует подключения к хранилищу
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprint(cmd.OutOrStdout(), repository.SupabaseSchema)
			return err
		},
	}

	root.AddCommand(chat, categories, schema)
	return root
}

// runChat читает строки из in и печатает ответы в out до конца ввода
// или команды exit
func runChat(ctx context.Context, h handler, user string, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}

		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "exit" {
			return nil
		}

		reply, err := h.Handle(ctx, user, line)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, reply.Text)
	}
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "❌", err)
		os.Exit(1)
	}
}
