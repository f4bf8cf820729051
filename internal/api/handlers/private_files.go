// private_files.go — HTTP handlers витрины приватных файлов.
// Чужие приватные файлы с аннотацией статуса, карточка файла
// и быстрая проверка доступа.
package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/arturkryukov/fileshare/internal/api/errors"
	"github.com/arturkryukov/fileshare/internal/api/middleware"
	"github.com/arturkryukov/fileshare/internal/service"
)

// quickCheckResponse — ответ быстрой проверки доступа.
type quickCheckResponse struct {
	FileID        string `json:"fileId"`
	FileName      string `json:"fileName"`
	Visibility    string `json:"visibility"`
	IsOwner       bool   `json:"isOwner"`
	HasAccess     bool   `json:"hasAccess"`
	CanRequest    bool   `json:"canRequest"`
	HasRequested  bool   `json:"hasRequested"`
	RequestStatus string `json:"requestStatus"`
	Hint          string `json:"hint"`
}

func toQuickCheckResponse(qc *service.QuickCheckResult) quickCheckResponse {
	return quickCheckResponse{
		FileID:        qc.FileID,
		FileName:      qc.FileName,
		Visibility:    qc.Visibility,
		IsOwner:       qc.IsOwner,
		HasAccess:     qc.HasAccess,
		CanRequest:    qc.CanRequest,
		HasRequested:  qc.HasRequested,
		RequestStatus: string(qc.RequestStatus),
		Hint:          qc.Hint,
	}
}

// ListOthersPrivateFiles обрабатывает GET /api/v1/private-files/others.
// Чужие приватные файлы с проекцией статуса доступа; файлы с уже
// поданными запросами остаются в списке.
func (h *APIHandler) ListOthersPrivateFiles(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())
	if user == nil {
		apierrors.Unauthorized(w, "Требуется аутентификация")
		return
	}

	files, err := h.projection.OthersPrivateFiles(r.Context(), user)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	out := make([]fileWithStatusResponse, 0, len(files))
	for _, fw := range files {
		out = append(out, toFileWithStatusResponse(fw))
	}
	writeJSON(w, http.StatusOK, out)
}

// GetPrivateFileDetails обрабатывает GET /api/v1/private-files/{fileID}.
// Карточка чужого приватного файла; для публичного или собственного
// файла возвращается INVALID_OPERATION.
func (h *APIHandler) GetPrivateFileDetails(w http.ResponseWriter, r *http.Request) {
	fileID := chi.URLParam(r, "fileID")
	user := middleware.UserFromContext(r.Context())
	if user == nil {
		apierrors.Unauthorized(w, "Требуется аутентификация")
		return
	}

	details, err := h.projection.PrivateFileDetails(r.Context(), fileID, user)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toFileWithStatusResponse(*details))
}

// QuickCheckAccess обрабатывает GET /api/v1/private-files/{fileID}/quick-check.
// Компактный ответ для UI: есть ли доступ, можно ли запросить, подсказка.
func (h *APIHandler) QuickCheckAccess(w http.ResponseWriter, r *http.Request) {
	fileID := chi.URLParam(r, "fileID")
	user := middleware.UserFromContext(r.Context())
	if user == nil {
		apierrors.Unauthorized(w, "Требуется аутентификация")
		return
	}

	qc, err := h.projection.QuickCheck(r.Context(), fileID, user)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toQuickCheckResponse(qc))
}
