package model

import "time"

// Status определяет, как интерпретировать следующее сообщение пользователя
type Status string

const (
	StatusInit         Status = "INIT"
	StatusAdd          Status = "ADD"
	StatusDelete       Status = "DELETE"
	StatusEditAskForID Status = "EDIT_ASK_FOR_ID"
	StatusEdit         Status = "EDIT"
	StatusFind         Status = "FIND"
)

// Valid сообщает, входит ли статус в закрытый набор состояний диалога
func (s Status) Valid() bool {
	switch s {
	case StatusInit, StatusAdd, StatusDelete, StatusEditAskForID, StatusEdit, StatusFind:
		return true
	}
	return false
}

// UserState представляет текущее состояние пользователя
type UserState struct {
	ID            string    `json:"id"`
	Status        Status    `json:"status"`
	NumOfRec      int       `json:"num_of_rec"`
	PendingTarget int       `json:"pending_target"`
	UpdatedAt     time.Time `json:"-"`
}

// NewUserState возвращает состояние нового пользователя
func NewUserState(id string) *UserState {
	return &UserState{
		ID:     id,
		Status: StatusInit,
	}
}
