// projection.go — витрина приватных файлов: списки и карточки чужих
// приватных файлов, аннотированные статусом доступа зрителя.
package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/arturkryukov/fileshare/internal/domain/model"
)

// FileWithStatus — файл вместе с проекцией статуса доступа зрителя.
type FileWithStatus struct {
	File   *model.FileRecord
	Status ProjectedStatus
}

// QuickCheckResult — компактный ответ быстрой проверки доступа.
// Hint — человекочитаемая подсказка для UI.
type QuickCheckResult struct {
	FileID        string
	FileName      string
	Visibility    string
	IsOwner       bool
	HasAccess     bool
	CanRequest    bool
	HasRequested  bool
	RequestStatus model.RequestStatus
	Hint          string
}

// ProjectionService — витрина приватных файлов.
type ProjectionService struct {
	files  *FileService
	policy *Policy
	logger *slog.Logger
}

// NewProjectionService создаёт витрину приватных файлов.
func NewProjectionService(files *FileService, policy *Policy, logger *slog.Logger) *ProjectionService {
	return &ProjectionService{
		files:  files,
		policy: policy,
		logger: logger.With(slog.String("component", "projection_service")),
	}
}

// OthersPrivateFiles возвращает чужие приватные файлы с проекцией статуса.
// Файлы с уже поданными запросами не исключаются: зритель видит,
// на какой стадии находится каждый его запрос.
func (s *ProjectionService) OthersPrivateFiles(ctx context.Context, viewer *model.User) ([]FileWithStatus, error) {
	files, err := s.files.ListOthersPrivate(ctx, viewer.ID)
	if err != nil {
		return nil, err
	}

	out := make([]FileWithStatus, 0, len(files))
	for _, file := range files {
		out = append(out, FileWithStatus{
			File:   file,
			Status: s.policy.ProjectStatus(ctx, file, viewer),
		})
	}
	return out, nil
}

// PrivateFileDetails возвращает карточку чужого приватного файла.
// Для публичного или собственного файла карточка не строится —
// возвращается ErrInvalidOperation.
func (s *ProjectionService) PrivateFileDetails(ctx context.Context, fileID string, viewer *model.User) (*FileWithStatus, error) {
	file, err := s.files.Get(ctx, fileID)
	if err != nil {
		return nil, err
	}

	if file.IsPublic {
		return nil, fmt.Errorf("%w: файл публичный, карточка приватного файла неприменима", ErrInvalidOperation)
	}
	if file.OwnedBy(viewer.ID) {
		return nil, fmt.Errorf("%w: это собственный файл зрителя", ErrInvalidOperation)
	}

	return &FileWithStatus{
		File:   file,
		Status: s.policy.ProjectStatus(ctx, file, viewer),
	}, nil
}

// QuickCheck выполняет быструю проверку доступа зрителя к файлу.
func (s *ProjectionService) QuickCheck(ctx context.Context, fileID string, viewer *model.User) (*QuickCheckResult, error) {
	file, err := s.files.Get(ctx, fileID)
	if err != nil {
		return nil, err
	}

	ps := s.policy.ProjectStatus(ctx, file, viewer)

	return &QuickCheckResult{
		FileID:        file.ID,
		FileName:      file.Name,
		Visibility:    file.Visibility(),
		IsOwner:       ps.IsOwner,
		HasAccess:     ps.HasAccess,
		CanRequest:    ps.CanRequest,
		HasRequested:  ps.HasRequested,
		RequestStatus: ps.RequestStatus,
		Hint:          quickCheckHint(ps),
	}, nil
}

// quickCheckHint подбирает подсказку для UI по проекции статуса.
func quickCheckHint(ps ProjectedStatus) string {
	switch {
	case ps.IsOwner:
		return "Это ваш файл"
	case ps.IsPublic:
		return "Файл публичный, доступ открыт"
	case ps.RequestStatus == model.StatusApproved:
		return "Доступ одобрен владельцем"
	case ps.RequestStatus == model.StatusPending:
		return "Запрос ожидает решения владельца"
	case ps.RequestStatus == model.StatusRejected:
		return "Запрос отклонён, можно подать повторно"
	default:
		return "Доступ можно запросить у владельца"
	}
}
