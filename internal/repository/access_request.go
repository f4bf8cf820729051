package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/arturkryukov/fileshare/internal/domain/model"
)

// AccessRequestRepository — доступ к таблице access_requests.
// Уникальный индекс (requester_id, file_id) страхует инвариант
// «не более одного запроса на пару» при конкурентных вставках.
type AccessRequestRepository interface {
	// Create вставляет новый запрос. Поле ar.RequestedAt заполняется из БД.
	Create(ctx context.Context, ar *model.AccessRequest) error
	// GetByID возвращает запрос по UUID вместе с участниками.
	GetByID(ctx context.Context, requestID string) (*model.AccessRequest, error)
	// FindForFile возвращает запрос пары (файл, запрашивающий).
	FindForFile(ctx context.Context, fileID, requesterID string) (*model.AccessRequest, error)
	// ListByOwner возвращает запросы, полученные владельцем файлов.
	ListByOwner(ctx context.Context, ownerID string) ([]*model.AccessRequest, error)
	// ListByRequester возвращает запросы, отправленные пользователем.
	ListByRequester(ctx context.Context, requesterID string) ([]*model.AccessRequest, error)
	// UpdateStatus устанавливает статус и responded_at.
	UpdateStatus(ctx context.Context, requestID string, status model.RequestStatus, respondedAt time.Time) error
	// ResetToPending возвращает отклонённый запрос в PENDING:
	// новое сообщение, requested_at = now, responded_at = NULL.
	ResetToPending(ctx context.Context, requestID string, message *string) error
	// Delete удаляет запрос.
	Delete(ctx context.Context, requestID string) error
	// DeleteByFile удаляет все запросы файла (каскад при удалении файла).
	// Возвращает количество удалённых записей.
	DeleteByFile(ctx context.Context, fileID string) (int, error)
}

// requestColumns — колонки запроса с join-ом запрашивающего и владельца.
const requestColumns = `
	ar.id, ar.requester_id, ar.file_id, ar.owner_id, ar.status,
	ar.message, ar.requested_at, ar.responded_at,
	rq.id, rq.email, rq.first_name, rq.last_name, rq.created_at,
	ow.id, ow.email, ow.first_name, ow.last_name, ow.created_at`

// accessRequestRepo — реализация AccessRequestRepository.
type accessRequestRepo struct {
	db DBTX
}

// NewAccessRequestRepository создаёт репозиторий запросов доступа.
func NewAccessRequestRepository(db DBTX) AccessRequestRepository {
	return &accessRequestRepo{db: db}
}

func (r *accessRequestRepo) Create(ctx context.Context, ar *model.AccessRequest) error {
	query := `
		INSERT INTO access_requests (id, requester_id, file_id, owner_id, status, message)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING requested_at`

	err := r.db.QueryRow(ctx, query,
		ar.ID, ar.RequesterID, ar.FileID, ar.OwnerID, ar.Status, ar.Message,
	).Scan(&ar.RequestedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: запрос для этой пары (пользователь, файл) уже существует", ErrConflict)
		}
		return fmt.Errorf("ошибка создания запроса доступа: %w", err)
	}
	return nil
}

func (r *accessRequestRepo) GetByID(ctx context.Context, requestID string) (*model.AccessRequest, error) {
	query := `
		SELECT ` + requestColumns + `
		FROM access_requests ar
		JOIN users rq ON rq.id = ar.requester_id
		JOIN users ow ON ow.id = ar.owner_id
		WHERE ar.id = $1`

	ar, err := scanRequestRow(r.db.QueryRow(ctx, query, requestID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения запроса доступа: %w", err)
	}
	return ar, nil
}

func (r *accessRequestRepo) FindForFile(ctx context.Context, fileID, requesterID string) (*model.AccessRequest, error) {
	query := `
		SELECT ` + requestColumns + `
		FROM access_requests ar
		JOIN users rq ON rq.id = ar.requester_id
		JOIN users ow ON ow.id = ar.owner_id
		WHERE ar.file_id = $1 AND ar.requester_id = $2`

	ar, err := scanRequestRow(r.db.QueryRow(ctx, query, fileID, requesterID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка поиска запроса доступа: %w", err)
	}
	return ar, nil
}

func (r *accessRequestRepo) ListByOwner(ctx context.Context, ownerID string) ([]*model.AccessRequest, error) {
	query := `
		SELECT ` + requestColumns + `
		FROM access_requests ar
		JOIN users rq ON rq.id = ar.requester_id
		JOIN users ow ON ow.id = ar.owner_id
		WHERE ar.owner_id = $1
		ORDER BY ar.requested_at DESC`

	return r.queryRequests(ctx, query, ownerID)
}

func (r *accessRequestRepo) ListByRequester(ctx context.Context, requesterID string) ([]*model.AccessRequest, error) {
	query := `
		SELECT ` + requestColumns + `
		FROM access_requests ar
		JOIN users rq ON rq.id = ar.requester_id
		JOIN users ow ON ow.id = ar.owner_id
		WHERE ar.requester_id = $1
		ORDER BY ar.requested_at DESC`

	return r.queryRequests(ctx, query, requesterID)
}

func (r *accessRequestRepo) UpdateStatus(ctx context.Context, requestID string, status model.RequestStatus, respondedAt time.Time) error {
	query := `
		UPDATE access_requests
		SET status = $2, responded_at = $3
		WHERE id = $1`

	tag, err := r.db.Exec(ctx, query, requestID, status, respondedAt)
	if err != nil {
		return fmt.Errorf("ошибка обновления статуса запроса: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *accessRequestRepo) ResetToPending(ctx context.Context, requestID string, message *string) error {
	query := `
		UPDATE access_requests
		SET status = 'PENDING', message = $2, requested_at = now(), responded_at = NULL
		WHERE id = $1`

	tag, err := r.db.Exec(ctx, query, requestID, message)
	if err != nil {
		return fmt.Errorf("ошибка повторной подачи запроса: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *accessRequestRepo) Delete(ctx context.Context, requestID string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM access_requests WHERE id = $1`, requestID)
	if err != nil {
		return fmt.Errorf("ошибка удаления запроса: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *accessRequestRepo) DeleteByFile(ctx context.Context, fileID string) (int, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM access_requests WHERE file_id = $1`, fileID)
	if err != nil {
		return 0, fmt.Errorf("ошибка каскадного удаления запросов: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// queryRequests выполняет запрос списка и сканирует строки.
func (r *accessRequestRepo) queryRequests(ctx context.Context, query string, args ...any) ([]*model.AccessRequest, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка запросов: %w", err)
	}
	defer rows.Close()

	var result []*model.AccessRequest
	for rows.Next() {
		ar, err := scanRequestRow(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования запроса: %w", err)
		}
		result = append(result, ar)
	}
	return result, rows.Err()
}

// scanRequestRow сканирует одну строку запроса вместе с участниками.
func scanRequestRow(row pgx.Row) (*model.AccessRequest, error) {
	ar := &model.AccessRequest{Requester: &model.User{}, Owner: &model.User{}}
	err := row.Scan(
		&ar.ID, &ar.RequesterID, &ar.FileID, &ar.OwnerID, &ar.Status,
		&ar.Message, &ar.RequestedAt, &ar.RespondedAt,
		&ar.Requester.ID, &ar.Requester.Email, &ar.Requester.FirstName, &ar.Requester.LastName, &ar.Requester.CreatedAt,
		&ar.Owner.ID, &ar.Owner.Email, &ar.Owner.FirstName, &ar.Owner.LastName, &ar.Owner.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return ar, nil
}
