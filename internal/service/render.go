package service

import (
	"fmt"
	"strings"

	"github.com/ivanoskov/ledger_bot/internal/model"
)

// Ширины колонок таблицы записей
const (
	noWidth       = 3
	categoryWidth = 15
	descWidth     = 20
	amountWidth   = 6
)

func ruler(withCategory bool) string {
	cols := []string{strings.Repeat("=", noWidth)}
	if withCategory {
		cols = append(cols, strings.Repeat("=", categoryWidth))
	}
	cols = append(cols, strings.Repeat("=", descWidth), strings.Repeat("=", amountWidth))
	return strings.Join(cols, " ") + "\n"
}

// renderTable печатает записи таблицей фиксированной ширины
func renderTable(records []model.Record, withCategory bool) string {
	var b strings.Builder

	if withCategory {
		fmt.Fprintf(&b, "%-*s %-*s %-*s %-*s\n",
			noWidth, "No.", categoryWidth, "Category", descWidth, "Description", amountWidth, "Amount")
	} else {
		fmt.Fprintf(&b, "%-*s %-*s %-*s\n", noWidth, "No.", descWidth, "Description", amountWidth, "Amount")
	}
	b.WriteString(ruler(withCategory))

	for _, r := range records {
		if withCategory {
			fmt.Fprintf(&b, "%-*d %-*s %-*s %*d\n",
				noWidth, r.RecordID, categoryWidth, r.Category, descWidth, r.Description, amountWidth, r.Amount)
		} else {
			fmt.Fprintf(&b, "%-*d %-*s %*d\n", noWidth, r.RecordID, descWidth, r.Description, amountWidth, r.Amount)
		}
	}

	b.WriteString(ruler(withCategory))
	return b.String()
}
