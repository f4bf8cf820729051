package model

import "time"

// FileRecord — запись файла в каталоге.
// Хранится в таблице files. Метаданные неизменяемы после создания,
// единственная мутация — удаление (с каскадом по запросам доступа).
type FileRecord struct {
	// ID — UUID файла
	ID string
	// Name — оригинальное имя файла
	Name string
	// ContentType — MIME-тип файла
	ContentType string
	// Size — размер файла в байтах
	Size int64
	// BlobToken — токен содержимого в blob store (не публичный ID)
	BlobToken string
	// OwnerID — UUID владельца
	OwnerID string
	// Owner — владелец (заполняется join-ом в репозитории)
	Owner *User
	// IsPublic — публичный файл доступен всем, включая анонимов
	IsPublic bool
	// Description — описание файла (опционально)
	Description *string
	// CreatedAt — время загрузки, неизменяемо
	CreatedAt time.Time
}

// Visibility возвращает видимость файла строкой (PUBLIC, PRIVATE).
func (f *FileRecord) Visibility() string {
	if f.IsPublic {
		return "PUBLIC"
	}
	return "PRIVATE"
}

// OwnedBy сообщает, владеет ли файлом пользователь с указанным ID.
func (f *FileRecord) OwnedBy(userID string) bool {
	return userID != "" && f.OwnerID == userID
}
