// errors.go — ошибки бизнес-логики сервисного слоя.
package service

import "errors"

var (
	// ErrNotFound — ресурс не найден.
	ErrNotFound = errors.New("ресурс не найден")
	// ErrForbidden — у пользователя нет прав на операцию.
	ErrForbidden = errors.New("недостаточно прав для операции")
	// ErrInvalidOperation — семантически недопустимая операция
	// (запрос доступа к собственному или публичному файлу).
	ErrInvalidOperation = errors.New("операция недопустима")
	// ErrConflict — конфликт (дублирующийся запрос доступа).
	ErrConflict = errors.New("конфликт — запрос уже существует")
	// ErrIOFailure — ошибка чтения/записи blob store.
	ErrIOFailure = errors.New("ошибка ввода-вывода хранилища")
)
