// handler.go — основной обработчик API File Share.
// Объединяет доменные обработчики, маппит сервисные ошибки в HTTP-ответы
// и описывает маршруты chi.
package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/arturkryukov/fileshare/internal/api/errors"
	"github.com/arturkryukov/fileshare/internal/domain/model"
	"github.com/arturkryukov/fileshare/internal/service"
)

// APIHandler — основной обработчик API File Share.
type APIHandler struct {
	health        *HealthHandler
	files         *service.FileService
	requests      *service.AccessRequestService
	projection    *service.ProjectionService
	policy        *service.Policy
	maxUploadSize int64
	logger        *slog.Logger
}

// NewAPIHandler создаёт основной обработчик API.
// maxUploadSize — предел размера тела запроса загрузки (FS_MAX_UPLOAD_SIZE).
func NewAPIHandler(
	health *HealthHandler,
	files *service.FileService,
	requests *service.AccessRequestService,
	projection *service.ProjectionService,
	policy *service.Policy,
	maxUploadSize int64,
	logger *slog.Logger,
) *APIHandler {
	return &APIHandler{
		health:        health,
		files:         files,
		requests:      requests,
		projection:    projection,
		policy:        policy,
		maxUploadSize: maxUploadSize,
		logger:        logger.With(slog.String("component", "api_handler")),
	}
}

// Routes регистрирует маршруты API на роутере.
// Аутентификацию навешивает server (необязательную: анонимный запрос
// проходит без пользователя в контексте); обработчики, которым нужна
// личность, сами возвращают 401.
func (h *APIHandler) Routes(r chi.Router) {
	r.Get("/health/live", h.health.HealthLive)
	r.Get("/health/ready", h.health.HealthReady)
	r.Get("/metrics", h.health.GetMetrics)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/files", func(r chi.Router) {
			r.Post("/upload", h.UploadFile)
			r.Get("/my-files", h.ListMyFiles)
			r.Get("/public", h.ListPublicFiles)
			r.Get("/visible", h.ListVisibleFiles)
			r.Route("/{fileID}", func(r chi.Router) {
				r.Get("/", h.GetFile)
				r.Delete("/", h.DeleteFile)
				r.Get("/download", h.DownloadFile)
				r.Get("/preview", h.PreviewFile)
				r.Get("/access", h.CheckAccess)
				r.Get("/can-request", h.CanRequestAccess)
				r.Get("/has-requested", h.HasRequestedAccess)
			})
		})

		r.Route("/requests", func(r chi.Router) {
			r.Post("/", h.CreateRequest)
			r.Get("/received", h.ListReceivedRequests)
			r.Get("/sent", h.ListSentRequests)
			r.Put("/{requestID}", h.RespondToRequest)
			r.Delete("/{requestID}", h.DeleteRequest)
		})

		r.Route("/private-files", func(r chi.Router) {
			r.Get("/others", h.ListOthersPrivateFiles)
			r.Get("/{fileID}", h.GetPrivateFileDetails)
			r.Get("/{fileID}/quick-check", h.QuickCheckAccess)
		})
	})
}

// --- DTO ---

// userResponse — представление пользователя в ответах API.
type userResponse struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	FirstName   string `json:"firstName,omitempty"`
	LastName    string `json:"lastName,omitempty"`
	DisplayName string `json:"displayName"`
}

// fileResponse — представление файла в ответах API.
type fileResponse struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	ContentType string        `json:"contentType"`
	Size        int64         `json:"size"`
	Visibility  string        `json:"visibility"`
	Description *string       `json:"description,omitempty"`
	Owner       *userResponse `json:"owner,omitempty"`
	CreatedAt   string        `json:"createdAt"`
}

// requestResponse — представление запроса доступа в ответах API.
type requestResponse struct {
	ID          string        `json:"id"`
	FileID      string        `json:"fileId"`
	Status      string        `json:"status"`
	Message     *string       `json:"message,omitempty"`
	Requester   *userResponse `json:"requester,omitempty"`
	Owner       *userResponse `json:"owner,omitempty"`
	RequestedAt string        `json:"requestedAt"`
	RespondedAt *string       `json:"respondedAt,omitempty"`
}

// accessStatusResponse — представление проекции статуса доступа.
type accessStatusResponse struct {
	IsOwner       bool    `json:"isOwner"`
	HasRequested  bool    `json:"hasRequested"`
	RequestStatus string  `json:"requestStatus"`
	RequestID     string  `json:"requestId,omitempty"`
	Message       *string `json:"message,omitempty"`
	RequestedAt   *string `json:"requestedAt,omitempty"`
	RespondedAt   *string `json:"respondedAt,omitempty"`
	HasAccess     bool    `json:"hasAccess"`
	CanDownload   bool    `json:"canDownload"`
	CanRequest    bool    `json:"canRequest"`
}

// fileWithStatusResponse — файл с проекцией статуса доступа зрителя.
type fileWithStatusResponse struct {
	File   fileResponse         `json:"file"`
	Status accessStatusResponse `json:"status"`
}

func toUserResponse(u *model.User) *userResponse {
	if u == nil {
		return nil
	}
	return &userResponse{
		ID:          u.ID,
		Email:       u.Email,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		DisplayName: u.DisplayName(),
	}
}

func toFileResponse(f *model.FileRecord) fileResponse {
	return fileResponse{
		ID:          f.ID,
		Name:        f.Name,
		ContentType: f.ContentType,
		Size:        f.Size,
		Visibility:  f.Visibility(),
		Description: f.Description,
		Owner:       toUserResponse(f.Owner),
		CreatedAt:   f.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func toFileResponses(files []*model.FileRecord) []fileResponse {
	out := make([]fileResponse, 0, len(files))
	for _, f := range files {
		out = append(out, toFileResponse(f))
	}
	return out
}

func toRequestResponse(ar *model.AccessRequest) requestResponse {
	resp := requestResponse{
		ID:          ar.ID,
		FileID:      ar.FileID,
		Status:      string(ar.Status),
		Message:     ar.Message,
		Requester:   toUserResponse(ar.Requester),
		Owner:       toUserResponse(ar.Owner),
		RequestedAt: ar.RequestedAt.UTC().Format(time.RFC3339),
	}
	if ar.RespondedAt != nil {
		respondedAt := ar.RespondedAt.UTC().Format(time.RFC3339)
		resp.RespondedAt = &respondedAt
	}
	return resp
}

func toRequestResponses(requests []*model.AccessRequest) []requestResponse {
	out := make([]requestResponse, 0, len(requests))
	for _, ar := range requests {
		out = append(out, toRequestResponse(ar))
	}
	return out
}

func toAccessStatusResponse(ps service.ProjectedStatus) accessStatusResponse {
	resp := accessStatusResponse{
		IsOwner:       ps.IsOwner,
		HasRequested:  ps.HasRequested,
		RequestStatus: string(ps.RequestStatus),
		RequestID:     ps.RequestID,
		Message:       ps.Message,
		HasAccess:     ps.HasAccess,
		CanDownload:   ps.CanDownload,
		CanRequest:    ps.CanRequest,
	}
	if ps.RequestedAt != nil {
		requestedAt := ps.RequestedAt.UTC().Format(time.RFC3339)
		resp.RequestedAt = &requestedAt
	}
	if ps.RespondedAt != nil {
		respondedAt := ps.RespondedAt.UTC().Format(time.RFC3339)
		resp.RespondedAt = &respondedAt
	}
	return resp
}

func toFileWithStatusResponse(fw service.FileWithStatus) fileWithStatusResponse {
	return fileWithStatusResponse{
		File:   toFileResponse(fw.File),
		Status: toAccessStatusResponse(fw.Status),
	}
}

// --- Вспомогательные функции ---

// writeJSON записывает JSON-ответ с указанным статусом.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeServiceError маппит ошибку сервисного слоя в HTTP-ответ.
func (h *APIHandler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		apierrors.NotFound(w, err.Error())
	case errors.Is(err, service.ErrForbidden):
		apierrors.Forbidden(w, err.Error())
	case errors.Is(err, service.ErrConflict):
		apierrors.Conflict(w, err.Error())
	case errors.Is(err, service.ErrInvalidOperation):
		apierrors.InvalidOperation(w, err.Error())
	case errors.Is(err, service.ErrIOFailure):
		apierrors.IOFailure(w, err.Error())
	default:
		h.logger.Error("Внутренняя ошибка API", slog.String("error", err.Error()))
		apierrors.InternalError(w, "Внутренняя ошибка сервера")
	}
}
