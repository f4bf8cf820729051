package model

import (
	"fmt"
	"strings"
	"time"
)

// RequestStatus — статус запроса доступа.
type RequestStatus string

const (
	// StatusPending — запрос ожидает решения владельца.
	StatusPending RequestStatus = "PENDING"
	// StatusApproved — владелец одобрил запрос.
	StatusApproved RequestStatus = "APPROVED"
	// StatusRejected — владелец отклонил запрос.
	StatusRejected RequestStatus = "REJECTED"

	// StatusNoRequest — sentinel для проекций: запрос не существует.
	// В таблице access_requests не встречается.
	StatusNoRequest RequestStatus = "NO_REQUEST"
)

// ParseRequestStatus разбирает строку статуса (регистронезависимо).
// Sentinel NO_REQUEST не принимается — он не является состоянием записи.
func ParseRequestStatus(s string) (RequestStatus, error) {
	switch RequestStatus(strings.ToUpper(strings.TrimSpace(s))) {
	case StatusPending:
		return StatusPending, nil
	case StatusApproved:
		return StatusApproved, nil
	case StatusRejected:
		return StatusRejected, nil
	default:
		return "", fmt.Errorf("недопустимый статус %q, допустимые: PENDING, APPROVED, REJECTED", s)
	}
}

// AccessRequest — запрос доступа к приватному файлу.
// Хранится в таблице access_requests с уникальностью (requester_id, file_id):
// на пару (запрашивающий, файл) существует не более одной записи,
// повторный запрос после отклонения мутирует существующую запись.
type AccessRequest struct {
	// ID — UUID запроса
	ID string
	// RequesterID — UUID запрашивающего
	RequesterID string
	// Requester — запрашивающий (заполняется join-ом в репозитории)
	Requester *User
	// FileID — UUID файла
	FileID string
	// OwnerID — UUID владельца файла (денормализован на момент запроса)
	OwnerID string
	// Owner — владелец файла (заполняется join-ом в репозитории)
	Owner *User
	// Status — текущий статус (PENDING, APPROVED, REJECTED)
	Status RequestStatus
	// Message — сообщение запрашивающего (опционально)
	Message *string
	// RequestedAt — время создания или повторной подачи запроса
	RequestedAt time.Time
	// RespondedAt — время решения владельца, nil пока PENDING
	RespondedAt *time.Time
}
