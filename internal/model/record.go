package model

import "fmt"

// Record одна запись дохода или расхода. RecordID плотный и начинается с 1
// в пределах одного пользователя.
type Record struct {
	PersonID    string `json:"person_id"`
	RecordID    int    `json:"record_id"`
	Category    string `json:"category"`
	Description string `json:"description"`
	Amount      int64  `json:"amount"`
}

// String возвращает запись в том же виде, в котором ее вводит пользователь
func (r Record) String() string {
	if r.Category == "" {
		return fmt.Sprintf("%s %d", r.Description, r.Amount)
	}
	return fmt.Sprintf("%s %s %d", r.Category, r.Description, r.Amount)
}

type RecordFilter struct {
	Categories []string // пусто - все записи
}

// Sum считает сумму по записям
func Sum(records []Record) int64 {
	var total int64
	for _, r := range records {
		total += r.Amount
	}
	return total
}
