package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/arturkryukov/fileshare/internal/domain/model"
)

// FileRepository — доступ к таблице files (каталог файлов).
type FileRepository interface {
	// Create вставляет новую запись файла. Поле f.CreatedAt заполняется из БД.
	Create(ctx context.Context, f *model.FileRecord) error
	// GetByID возвращает файл по UUID вместе с владельцем.
	GetByID(ctx context.Context, fileID string) (*model.FileRecord, error)
	// ListByOwner возвращает файлы владельца.
	ListByOwner(ctx context.Context, ownerID string) ([]*model.FileRecord, error)
	// ListPublic возвращает все публичные файлы.
	ListPublic(ctx context.Context) ([]*model.FileRecord, error)
	// ListVisibleTo возвращает файлы, видимые пользователю:
	// публичные ∪ собственные ∪ с одобренным запросом доступа.
	ListVisibleTo(ctx context.Context, viewerID string) ([]*model.FileRecord, error)
	// ListOthersPrivate возвращает приватные файлы других пользователей.
	// Файлы с существующими запросами НЕ исключаются — проекция
	// аннотирует их статусом запроса.
	ListOthersPrivate(ctx context.Context, viewerID string) ([]*model.FileRecord, error)
	// Delete удаляет запись файла (hard delete).
	Delete(ctx context.Context, fileID string) error
}

// fileColumns — список колонок файла с join-ом владельца.
const fileColumns = `
	f.id, f.name, f.content_type, f.size, f.blob_token,
	f.owner_id, f.is_public, f.description, f.created_at,
	u.id, u.email, u.first_name, u.last_name, u.created_at`

// fileRepo — реализация FileRepository.
type fileRepo struct {
	db DBTX
}

// NewFileRepository создаёт репозиторий каталога файлов.
func NewFileRepository(db DBTX) FileRepository {
	return &fileRepo{db: db}
}

func (r *fileRepo) Create(ctx context.Context, f *model.FileRecord) error {
	query := `
		INSERT INTO files (id, name, content_type, size, blob_token, owner_id, is_public, description)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at`

	err := r.db.QueryRow(ctx, query,
		f.ID, f.Name, f.ContentType, f.Size, f.BlobToken,
		f.OwnerID, f.IsPublic, f.Description,
	).Scan(&f.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: файл с таким ID уже существует", ErrConflict)
		}
		return fmt.Errorf("ошибка создания файла: %w", err)
	}
	return nil
}

func (r *fileRepo) GetByID(ctx context.Context, fileID string) (*model.FileRecord, error) {
	query := `
		SELECT ` + fileColumns + `
		FROM files f
		JOIN users u ON u.id = f.owner_id
		WHERE f.id = $1`

	f, err := scanFileRow(r.db.QueryRow(ctx, query, fileID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения файла: %w", err)
	}
	return f, nil
}

func (r *fileRepo) ListByOwner(ctx context.Context, ownerID string) ([]*model.FileRecord, error) {
	query := `
		SELECT ` + fileColumns + `
		FROM files f
		JOIN users u ON u.id = f.owner_id
		WHERE f.owner_id = $1
		ORDER BY f.created_at DESC`

	return r.queryFiles(ctx, query, ownerID)
}

func (r *fileRepo) ListPublic(ctx context.Context) ([]*model.FileRecord, error) {
	query := `
		SELECT ` + fileColumns + `
		FROM files f
		JOIN users u ON u.id = f.owner_id
		WHERE f.is_public
		ORDER BY f.created_at DESC`

	return r.queryFiles(ctx, query)
}

func (r *fileRepo) ListVisibleTo(ctx context.Context, viewerID string) ([]*model.FileRecord, error) {
	query := `
		SELECT ` + fileColumns + `
		FROM files f
		JOIN users u ON u.id = f.owner_id
		WHERE f.is_public
			OR f.owner_id = $1
			OR EXISTS (
				SELECT 1 FROM access_requests ar
				WHERE ar.file_id = f.id
					AND ar.requester_id = $1
					AND ar.status = 'APPROVED'
			)
		ORDER BY f.created_at DESC`

	return r.queryFiles(ctx, query, viewerID)
}

func (r *fileRepo) ListOthersPrivate(ctx context.Context, viewerID string) ([]*model.FileRecord, error) {
	query := `
		SELECT ` + fileColumns + `
		FROM files f
		JOIN users u ON u.id = f.owner_id
		WHERE NOT f.is_public AND f.owner_id != $1
		ORDER BY f.created_at DESC`

	return r.queryFiles(ctx, query, viewerID)
}

func (r *fileRepo) Delete(ctx context.Context, fileID string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM files WHERE id = $1`, fileID)
	if err != nil {
		return fmt.Errorf("ошибка удаления файла: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// queryFiles выполняет запрос списка файлов и сканирует строки.
func (r *fileRepo) queryFiles(ctx context.Context, query string, args ...any) ([]*model.FileRecord, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка файлов: %w", err)
	}
	defer rows.Close()

	var result []*model.FileRecord
	for rows.Next() {
		f, err := scanFileRow(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования файла: %w", err)
		}
		result = append(result, f)
	}
	return result, rows.Err()
}

// scanFileRow сканирует одну строку файла вместе с владельцем.
func scanFileRow(row pgx.Row) (*model.FileRecord, error) {
	f := &model.FileRecord{Owner: &model.User{}}
	err := row.Scan(
		&f.ID, &f.Name, &f.ContentType, &f.Size, &f.BlobToken,
		&f.OwnerID, &f.IsPublic, &f.Description, &f.CreatedAt,
		&f.Owner.ID, &f.Owner.Email, &f.Owner.FirstName, &f.Owner.LastName, &f.Owner.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return f, nil
}
