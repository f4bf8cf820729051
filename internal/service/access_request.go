// access_request.go — сервис ledger запросов доступа.
// Машина состояний на пару (запрашивающий, файл):
//
//	∅ → PENDING → APPROVED | REJECTED; REJECTED → PENDING (повторная подача);
//	владелец может перевести APPROVED → REJECTED (отзыв доступа).
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/arturkryukov/fileshare/internal/domain/model"
	"github.com/arturkryukov/fileshare/internal/repository"
)

// Prometheus-метрики ledger.
var accessRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "fs_access_requests_total",
	Help: "Общее количество операций с запросами доступа (по операции и исходу).",
}, []string{"op", "outcome"})

// AccessRequestService — сервис запросов доступа.
type AccessRequestService struct {
	requests repository.AccessRequestRepository
	files    repository.FileRepository
	tx       *repository.TxRunner
	logger   *slog.Logger
}

// NewAccessRequestService создаёт сервис запросов доступа.
func NewAccessRequestService(
	requests repository.AccessRequestRepository,
	files repository.FileRepository,
	tx *repository.TxRunner,
	logger *slog.Logger,
) *AccessRequestService {
	return &AccessRequestService{
		requests: requests,
		files:    files,
		tx:       tx,
		logger:   logger.With(slog.String("component", "access_request_service")),
	}
}

// Create создаёт запрос доступа или повторно подаёт отклонённый.
//
// Ошибки: ErrNotFound — файл не существует; ErrInvalidOperation — запрос
// к собственному или публичному файлу; ErrConflict — уже есть PENDING
// или APPROVED запрос.
//
// Проверка «запрос уже существует» и вставка/повторная подача выполняются
// в одной транзакции; уникальный индекс (requester_id, file_id) страхует
// от гонки двух конкурентных Create.
func (s *AccessRequestService) Create(ctx context.Context, requester *model.User, fileID string, message *string) (*model.AccessRequest, error) {
	file, err := s.files.GetByID(ctx, fileID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			accessRequestsTotal.WithLabelValues("create", "not_found").Inc()
			return nil, fmt.Errorf("%w: файл %s", ErrNotFound, fileID)
		}
		return nil, fmt.Errorf("получение файла: %w", err)
	}

	if file.OwnedBy(requester.ID) {
		accessRequestsTotal.WithLabelValues("create", "invalid").Inc()
		return nil, fmt.Errorf("%w: нельзя запросить доступ к собственному файлу", ErrInvalidOperation)
	}
	if file.IsPublic {
		accessRequestsTotal.WithLabelValues("create", "invalid").Inc()
		return nil, fmt.Errorf("%w: файл публичный, запрос доступа не требуется", ErrInvalidOperation)
	}

	var result *model.AccessRequest
	err = s.tx.RunInTx(ctx, func(tx pgx.Tx) error {
		txRequests := repository.NewAccessRequestRepository(tx)

		existing, findErr := txRequests.FindForFile(ctx, fileID, requester.ID)
		switch {
		case findErr == nil:
			switch existing.Status {
			case model.StatusPending:
				return fmt.Errorf("%w: запрос уже ожидает решения владельца", ErrConflict)
			case model.StatusApproved:
				return fmt.Errorf("%w: запрос уже одобрен", ErrConflict)
			case model.StatusRejected:
				// Повторная подача: мутируем существующую запись
				if resetErr := txRequests.ResetToPending(ctx, existing.ID, message); resetErr != nil {
					return fmt.Errorf("повторная подача запроса: %w", resetErr)
				}
				updated, getErr := txRequests.GetByID(ctx, existing.ID)
				if getErr != nil {
					return fmt.Errorf("чтение обновлённого запроса: %w", getErr)
				}
				result = updated
				return nil
			default:
				return fmt.Errorf("неизвестный статус запроса %q", existing.Status)
			}

		case errors.Is(findErr, repository.ErrNotFound):
			ar := &model.AccessRequest{
				ID:          uuid.New().String(),
				RequesterID: requester.ID,
				Requester:   requester,
				FileID:      file.ID,
				OwnerID:     file.OwnerID,
				Owner:       file.Owner,
				Status:      model.StatusPending,
				Message:     message,
			}
			if createErr := txRequests.Create(ctx, ar); createErr != nil {
				if errors.Is(createErr, repository.ErrConflict) {
					// Гонка с конкурентным Create — уникальный индекс сработал
					return fmt.Errorf("%w: запрос уже существует", ErrConflict)
				}
				return fmt.Errorf("создание запроса: %w", createErr)
			}
			result = ar
			return nil

		default:
			return fmt.Errorf("поиск существующего запроса: %w", findErr)
		}
	})
	if err != nil {
		if errors.Is(err, ErrConflict) {
			accessRequestsTotal.WithLabelValues("create", "conflict").Inc()
		} else {
			accessRequestsTotal.WithLabelValues("create", "error").Inc()
		}
		return nil, err
	}

	accessRequestsTotal.WithLabelValues("create", "ok").Inc()
	s.logger.Info("Запрос доступа подан",
		slog.String("request_id", result.ID),
		slog.String("file_id", file.ID),
		slog.String("requester", requester.Email),
	)

	return result, nil
}

// Transition переводит запрос в новый статус по решению владельца.
// Любой целевой статус принимается от владельца, включая отзыв
// ранее одобренного доступа (APPROVED → REJECTED).
//
// Ошибки: ErrNotFound — запрос не существует; ErrForbidden — actor
// не является владельцем файла.
func (s *AccessRequestService) Transition(ctx context.Context, requestID string, actor *model.User, status model.RequestStatus) (*model.AccessRequest, error) {
	req, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: запрос %s", ErrNotFound, requestID)
		}
		return nil, fmt.Errorf("получение запроса: %w", err)
	}

	if req.OwnerID != actor.ID {
		accessRequestsTotal.WithLabelValues("transition", "forbidden").Inc()
		return nil, fmt.Errorf("%w: только владелец файла может решать судьбу запроса", ErrForbidden)
	}

	respondedAt := time.Now().UTC()
	if err := s.requests.UpdateStatus(ctx, requestID, status, respondedAt); err != nil {
		accessRequestsTotal.WithLabelValues("transition", "error").Inc()
		return nil, fmt.Errorf("обновление статуса запроса: %w", err)
	}

	req.Status = status
	req.RespondedAt = &respondedAt

	accessRequestsTotal.WithLabelValues("transition", "ok").Inc()
	s.logger.Info("Статус запроса обновлён",
		slog.String("request_id", requestID),
		slog.String("status", string(status)),
		slog.String("owner", actor.Email),
	)

	return req, nil
}

// Delete удаляет запрос. Разрешено запрашивающему и владельцу файла.
func (s *AccessRequestService) Delete(ctx context.Context, requestID string, actor *model.User) error {
	req, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: запрос %s", ErrNotFound, requestID)
		}
		return fmt.Errorf("получение запроса: %w", err)
	}

	if req.RequesterID != actor.ID && req.OwnerID != actor.ID {
		return fmt.Errorf("%w: удалять запрос может запрашивающий или владелец файла", ErrForbidden)
	}

	if err := s.requests.Delete(ctx, requestID); err != nil {
		return fmt.Errorf("удаление запроса: %w", err)
	}

	s.logger.Info("Запрос доступа удалён",
		slog.String("request_id", requestID),
		slog.String("actor", actor.Email),
	)

	return nil
}

// FindFor возвращает запрос пары (файл, запрашивающий).
func (s *AccessRequestService) FindFor(ctx context.Context, fileID, requesterID string) (*model.AccessRequest, error) {
	req, err := s.requests.FindForFile(ctx, fileID, requesterID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("поиск запроса: %w", err)
	}
	return req, nil
}

// ListReceivedBy возвращает запросы, полученные владельцем файлов.
func (s *AccessRequestService) ListReceivedBy(ctx context.Context, ownerID string) ([]*model.AccessRequest, error) {
	requests, err := s.requests.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("получение полученных запросов: %w", err)
	}
	return requests, nil
}

// ListSentBy возвращает запросы, отправленные пользователем.
func (s *AccessRequestService) ListSentBy(ctx context.Context, requesterID string) ([]*model.AccessRequest, error) {
	requests, err := s.requests.ListByRequester(ctx, requesterID)
	if err != nil {
		return nil, fmt.Errorf("получение отправленных запросов: %w", err)
	}
	return requests, nil
}

// HasPendingRequest — probe: существует ли PENDING-запрос пользователя на файл.
// Ошибки проглатываются — probe отвечает false, а не падает.
func (s *AccessRequestService) HasPendingRequest(ctx context.Context, fileID, userID string) bool {
	req, err := s.requests.FindForFile(ctx, fileID, userID)
	if err != nil {
		return false
	}
	return req.Status == model.StatusPending
}
