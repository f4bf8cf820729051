// file.go — сервис каталога файлов: загрузка, выдача, списки, удаление.
// Метаданные живут в PostgreSQL, содержимое — в blob-хранилище на диске.
// Порядок загрузки: сначала blob, потом метаданные; при сбое вставки
// метаданных blob откатывается, осиротевших записей не остаётся.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/arturkryukov/fileshare/internal/domain/model"
	"github.com/arturkryukov/fileshare/internal/repository"
	"github.com/arturkryukov/fileshare/internal/storage/blobstore"
)

var (
	uploadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fs_uploads_total",
		Help: "Общее количество загрузок файлов (по исходу).",
	}, []string{"outcome"})

	downloadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fs_downloads_total",
		Help: "Общее количество скачиваний файлов (по исходу).",
	}, []string{"outcome"})

	blobOrphansTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fs_blob_orphans_total",
		Help: "Количество blob, оставшихся на диске после удаления записи файла.",
	})
)

// UploadInput — параметры загрузки файла.
type UploadInput struct {
	Name        string
	ContentType string
	IsPublic    bool
	Description *string
	Content     io.Reader
}

// FileService — сервис каталога файлов.
type FileService struct {
	files    repository.FileRepository
	requests repository.AccessRequestRepository
	blobs    *blobstore.Store
	cache    *CacheService
	policy   *Policy
	tx       *repository.TxRunner
	logger   *slog.Logger
}

// NewFileService создаёт сервис каталога файлов.
func NewFileService(
	files repository.FileRepository,
	requests repository.AccessRequestRepository,
	blobs *blobstore.Store,
	cache *CacheService,
	policy *Policy,
	tx *repository.TxRunner,
	logger *slog.Logger,
) *FileService {
	return &FileService{
		files:    files,
		requests: requests,
		blobs:    blobs,
		cache:    cache,
		policy:   policy,
		tx:       tx,
		logger:   logger.With(slog.String("component", "file_service")),
	}
}

// Upload сохраняет содержимое в blob-хранилище и регистрирует файл в каталоге.
func (s *FileService) Upload(ctx context.Context, owner *model.User, in UploadInput) (*model.FileRecord, error) {
	if in.Name == "" {
		uploadsTotal.WithLabelValues("invalid").Inc()
		return nil, fmt.Errorf("%w: имя файла не задано", ErrInvalidOperation)
	}

	put, err := s.blobs.Put(in.Content, in.Name)
	if err != nil {
		uploadsTotal.WithLabelValues("io_error").Inc()
		return nil, fmt.Errorf("%w: сохранение содержимого: %v", ErrIOFailure, err)
	}

	contentType := in.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	file := &model.FileRecord{
		ID:          uuid.New().String(),
		Name:        in.Name,
		ContentType: contentType,
		Size:        put.Size,
		BlobToken:   put.Token,
		OwnerID:     owner.ID,
		Owner:       owner,
		IsPublic:    in.IsPublic,
		Description: in.Description,
	}

	if err := s.files.Create(ctx, file); err != nil {
		// Откат blob-а, чтобы не копить сирот на диске
		if delErr := s.blobs.Delete(put.Token); delErr != nil {
			s.logger.Error("Не удалось откатить blob после сбоя вставки",
				slog.String("token", put.Token),
				slog.String("error", delErr.Error()),
			)
		}
		uploadsTotal.WithLabelValues("db_error").Inc()
		return nil, fmt.Errorf("регистрация файла: %w", err)
	}

	s.cache.Set(file.ID, file)
	uploadsTotal.WithLabelValues("ok").Inc()
	s.logger.Info("Файл загружен",
		slog.String("file_id", file.ID),
		slog.String("name", file.Name),
		slog.Int64("size", file.Size),
		slog.Bool("public", file.IsPublic),
		slog.String("owner", owner.Email),
	)

	return file, nil
}

// Get возвращает файл по UUID. Сначала кеш, затем БД.
func (s *FileService) Get(ctx context.Context, fileID string) (*model.FileRecord, error) {
	if file, ok := s.cache.Get(fileID); ok {
		return file, nil
	}

	file, err := s.files.GetByID(ctx, fileID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: файл %s", ErrNotFound, fileID)
		}
		return nil, fmt.Errorf("получение файла: %w", err)
	}

	s.cache.Set(fileID, file)
	return file, nil
}

// GetForViewer возвращает файл, если зритель имеет право его видеть.
// viewer == nil — анонимный зритель.
func (s *FileService) GetForViewer(ctx context.Context, fileID string, viewer *model.User) (*model.FileRecord, error) {
	file, err := s.Get(ctx, fileID)
	if err != nil {
		return nil, err
	}

	if !s.policy.CanView(ctx, file, viewer) {
		return nil, fmt.Errorf("%w: нет доступа к файлу %s", ErrForbidden, fileID)
	}

	return file, nil
}

// Content открывает содержимое файла для скачивания или предпросмотра.
// Файл и reader возвращаются вместе; закрыть reader обязан вызывающий.
func (s *FileService) Content(ctx context.Context, fileID string, viewer *model.User) (*model.FileRecord, io.ReadCloser, error) {
	file, err := s.Get(ctx, fileID)
	if err != nil {
		downloadsTotal.WithLabelValues("not_found").Inc()
		return nil, nil, err
	}

	if !s.policy.CanDownload(ctx, file, viewer) {
		downloadsTotal.WithLabelValues("forbidden").Inc()
		return nil, nil, fmt.Errorf("%w: нет доступа к файлу %s", ErrForbidden, fileID)
	}

	rc, err := s.blobs.Open(file.BlobToken)
	if err != nil {
		downloadsTotal.WithLabelValues("io_error").Inc()
		if errors.Is(err, blobstore.ErrNotFound) {
			// Метаданные есть, содержимого нет: расхождение каталога и диска
			s.logger.Error("Blob отсутствует для существующего файла",
				slog.String("file_id", fileID),
				slog.String("token", file.BlobToken),
			)
			return nil, nil, fmt.Errorf("%w: содержимое файла %s недоступно", ErrIOFailure, fileID)
		}
		return nil, nil, fmt.Errorf("%w: открытие содержимого: %v", ErrIOFailure, err)
	}

	downloadsTotal.WithLabelValues("ok").Inc()
	return file, rc, nil
}

// ListMine возвращает файлы владельца (публичные и приватные).
func (s *FileService) ListMine(ctx context.Context, ownerID string) ([]*model.FileRecord, error) {
	files, err := s.files.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("получение файлов владельца: %w", err)
	}
	return files, nil
}

// ListPublic возвращает все публичные файлы. Доступно без аутентификации.
func (s *FileService) ListPublic(ctx context.Context) ([]*model.FileRecord, error) {
	files, err := s.files.ListPublic(ctx)
	if err != nil {
		return nil, fmt.Errorf("получение публичных файлов: %w", err)
	}
	return files, nil
}

// ListVisible возвращает файлы, видимые пользователю:
// публичные, собственные и чужие приватные с одобренным доступом.
func (s *FileService) ListVisible(ctx context.Context, viewerID string) ([]*model.FileRecord, error) {
	files, err := s.files.ListVisibleTo(ctx, viewerID)
	if err != nil {
		return nil, fmt.Errorf("получение видимых файлов: %w", err)
	}
	return files, nil
}

// ListOthersPrivate возвращает приватные файлы других пользователей.
func (s *FileService) ListOthersPrivate(ctx context.Context, viewerID string) ([]*model.FileRecord, error) {
	files, err := s.files.ListOthersPrivate(ctx, viewerID)
	if err != nil {
		return nil, fmt.Errorf("получение чужих приватных файлов: %w", err)
	}
	return files, nil
}

// Delete удаляет файл: запись каталога, связанные запросы доступа и blob.
// Разрешено только владельцу. Метаданные и запросы удаляются в одной
// транзакции; blob удаляется после — его сбой не отменяет удаление,
// осиротевший blob фиксируется в логе.
func (s *FileService) Delete(ctx context.Context, fileID string, actor *model.User) error {
	file, err := s.Get(ctx, fileID)
	if err != nil {
		return err
	}

	if !file.OwnedBy(actor.ID) {
		return fmt.Errorf("%w: удалять файл может только владелец", ErrForbidden)
	}

	var removedRequests int
	err = s.tx.RunInTx(ctx, func(tx pgx.Tx) error {
		txRequests := repository.NewAccessRequestRepository(tx)
		txFiles := repository.NewFileRepository(tx)

		n, err := txRequests.DeleteByFile(ctx, fileID)
		if err != nil {
			return fmt.Errorf("удаление запросов доступа файла: %w", err)
		}
		removedRequests = n

		if err := txFiles.Delete(ctx, fileID); err != nil {
			return fmt.Errorf("удаление записи файла: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.cache.Delete(fileID)

	if err := s.blobs.Delete(file.BlobToken); err != nil {
		blobOrphansTotal.Inc()
		s.logger.Error("Не удалось удалить blob, содержимое осиротело",
			slog.String("file_id", fileID),
			slog.String("token", file.BlobToken),
			slog.String("error", err.Error()),
		)
	}

	s.logger.Info("Файл удалён",
		slog.String("file_id", fileID),
		slog.String("name", file.Name),
		slog.Int("removed_requests", removedRequests),
		slog.String("owner", actor.Email),
	)

	return nil
}
