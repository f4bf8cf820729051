// Пакет model — доменные модели File Share.
package model

import "time"

// User — локальная проекция пользователя из IdP.
// Хранится в таблице users, создаётся/обновляется при первом
// аутентифицированном запросе (upsert по email).
type User struct {
	// ID — UUID пользователя
	ID string
	// Email — адрес электронной почты (уникальный)
	Email string
	// FirstName — имя
	FirstName string
	// LastName — фамилия
	LastName string
	// CreatedAt — время создания записи
	CreatedAt time.Time
}

// DisplayName возвращает отображаемое имя пользователя.
// Если имя и фамилия не заданы — возвращает email.
func (u *User) DisplayName() string {
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	default:
		return u.Email
	}
}
