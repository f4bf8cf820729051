// policy.go — движок политики доступа к файлам.
// Чистые функции решений: кто может смотреть, скачивать и запрашивать
// доступ к файлу. Никаких побочных эффектов — единственная зависимость
// это lookup запроса доступа для пары (файл, пользователь).
// Ошибки lookup проглатываются: probe-функции используются для UI-гейтинга
// и при сбое отвечают «нет» (нет доступа, подача запрещена), а не падают.
// Отсутствие запроса (repository.ErrNotFound) сбоем не считается.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/arturkryukov/fileshare/internal/domain/model"
	"github.com/arturkryukov/fileshare/internal/repository"
)

// RequestLookup — поиск запроса доступа для пары (файл, запрашивающий).
// Реализуется repository.AccessRequestRepository.
// Реализация обязана возвращать ошибку, для которой errors.Is относительно
// repository.ErrNotFound истинно, если запроса не существует.
type RequestLookup interface {
	FindForFile(ctx context.Context, fileID, requesterID string) (*model.AccessRequest, error)
}

// ProjectedStatus — проекция статуса доступа зрителя к файлу.
// Используется всеми read endpoint'ами, которым нужна per-viewer аннотация.
//
// Внутренние инварианты:
//   - HasAccess == CanDownload
//   - RequestStatus == APPROVED ⇒ CanRequest == false
//   - запроса нет ⇒ RequestStatus == NO_REQUEST и HasRequested == false
type ProjectedStatus struct {
	// IsOwner — зритель владеет файлом
	IsOwner bool
	// IsPublic — файл публичный
	IsPublic bool
	// HasRequested — существует запрос зрителя на этот файл
	HasRequested bool
	// RequestStatus — статус запроса или NO_REQUEST
	RequestStatus model.RequestStatus
	// RequestID — UUID запроса (пустой, если запроса нет)
	RequestID string
	// Message — сообщение запроса
	Message *string
	// RequestedAt — время подачи запроса
	RequestedAt *time.Time
	// RespondedAt — время решения владельца
	RespondedAt *time.Time
	// HasAccess — зритель может просматривать файл
	HasAccess bool
	// CanDownload — зритель может скачивать файл (== HasAccess)
	CanDownload bool
	// CanRequest — зритель может подать (или повторить) запрос доступа
	CanRequest bool
}

// Policy — движок политики доступа.
type Policy struct {
	requests RequestLookup
}

// NewPolicy создаёт движок политики доступа.
func NewPolicy(requests RequestLookup) *Policy {
	return &Policy{requests: requests}
}

// CanView сообщает, может ли зритель просматривать файл.
// viewer == nil — анонимный зритель.
// Истина если: файл публичный; зритель — владелец; существует
// одобренный запрос доступа зрителя.
func (p *Policy) CanView(ctx context.Context, file *model.FileRecord, viewer *model.User) bool {
	if file.IsPublic {
		return true
	}
	if viewer == nil {
		return false
	}
	if file.OwnedBy(viewer.ID) {
		return true
	}

	req, err := p.requests.FindForFile(ctx, file.ID, viewer.ID)
	if err != nil {
		// Нет запроса или сбой lookup — доступа нет
		return false
	}
	return req.Status == model.StatusApproved
}

// CanDownload сообщает, может ли зритель скачивать файл.
// Отдельного уровня «только скачивание» в домене нет — правила совпадают с CanView.
func (p *Policy) CanDownload(ctx context.Context, file *model.FileRecord, viewer *model.User) bool {
	return p.CanView(ctx, file, viewer)
}

// CanRequestAccess сообщает, может ли зритель подать запрос доступа.
// Ложь для анонима, владельца и публичного файла. Существующий запрос
// блокирует повторную подачу, пока он PENDING или APPROVED;
// после REJECTED запрос можно подать повторно.
func (p *Policy) CanRequestAccess(ctx context.Context, file *model.FileRecord, viewer *model.User) bool {
	if viewer == nil {
		return false
	}
	if file.OwnedBy(viewer.ID) {
		return false
	}
	if file.IsPublic {
		return false
	}

	req, err := p.requests.FindForFile(ctx, file.ID, viewer.ID)
	switch {
	case err == nil:
		return req.Status == model.StatusRejected
	case errors.Is(err, repository.ErrNotFound):
		// Запроса ещё не было — подача разрешена
		return true
	default:
		// Сбой lookup — probe отвечает «нет»
		return false
	}
}

// ProjectStatus строит проекцию статуса зрителя для файла.
// Повторный вызов без изменений в ledger возвращает идентичный результат.
func (p *Policy) ProjectStatus(ctx context.Context, file *model.FileRecord, viewer *model.User) ProjectedStatus {
	ps := ProjectedStatus{
		IsPublic:      file.IsPublic,
		RequestStatus: model.StatusNoRequest,
	}

	var req *model.AccessRequest
	lookupOK := true
	if viewer != nil {
		ps.IsOwner = file.OwnedBy(viewer.ID)
		if !ps.IsOwner {
			found, err := p.requests.FindForFile(ctx, file.ID, viewer.ID)
			switch {
			case err == nil:
				req = found
			case errors.Is(err, repository.ErrNotFound):
				// Запроса нет — проекция остаётся NO_REQUEST
			default:
				lookupOK = false
			}
		}
	}

	if req != nil {
		ps.HasRequested = true
		ps.RequestStatus = req.Status
		ps.RequestID = req.ID
		ps.Message = req.Message
		requestedAt := req.RequestedAt
		ps.RequestedAt = &requestedAt
		ps.RespondedAt = req.RespondedAt
	}

	ps.HasAccess = ps.IsOwner || file.IsPublic || (req != nil && req.Status == model.StatusApproved)
	ps.CanDownload = ps.HasAccess
	ps.CanRequest = viewer != nil && !ps.IsOwner && !file.IsPublic && lookupOK &&
		(req == nil || req.Status == model.StatusRejected)

	return ps
}
