// files.go — HTTP handlers каталога файлов.
// Upload, списки, метаданные, download/preview, удаление и probe-endpoints
// доступа (access, can-request, has-requested).
package handlers

import (
	"fmt"
	"io"
	"mime"
	"net/http"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/arturkryukov/fileshare/internal/api/errors"
	"github.com/arturkryukov/fileshare/internal/api/middleware"
	"github.com/arturkryukov/fileshare/internal/service"
)

// UploadFile обрабатывает POST /api/v1/files/upload.
// Multipart form: file (обязательно), isPublic (опционально, default false),
// description (опционально).
func (h *APIHandler) UploadFile(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())
	if user == nil {
		apierrors.Unauthorized(w, "Требуется аутентификация")
		return
	}

	// Ограничиваем тело запроса и парсим multipart
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	if err := r.ParseMultipartForm(32 << 20); err != nil { // 32 MB buffer
		apierrors.ValidationError(w, fmt.Sprintf("Ошибка парсинга multipart: %s", err.Error()))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		apierrors.ValidationError(w, "Поле 'file' обязательно")
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	isPublic := r.FormValue("isPublic") == "true"

	var description *string
	if d := r.FormValue("description"); d != "" {
		description = &d
	}

	uploaded, err := h.files.Upload(r.Context(), user, service.UploadInput{
		Name:        header.Filename,
		ContentType: contentType,
		IsPublic:    isPublic,
		Description: description,
		Content:     file,
	})
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toFileResponse(uploaded))
}

// ListMyFiles обрабатывает GET /api/v1/files/my-files.
// Все файлы владельца, публичные и приватные.
func (h *APIHandler) ListMyFiles(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())
	if user == nil {
		apierrors.Unauthorized(w, "Требуется аутентификация")
		return
	}

	files, err := h.files.ListMine(r.Context(), user.ID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toFileResponses(files))
}

// ListPublicFiles обрабатывает GET /api/v1/files/public.
// Доступно без аутентификации.
func (h *APIHandler) ListPublicFiles(w http.ResponseWriter, r *http.Request) {
	files, err := h.files.ListPublic(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toFileResponses(files))
}

// ListVisibleFiles обрабатывает GET /api/v1/files/visible.
// Публичные + собственные + чужие приватные с одобренным доступом.
// Для анонимного пользователя видимы только публичные файлы.
func (h *APIHandler) ListVisibleFiles(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())
	if user == nil {
		h.ListPublicFiles(w, r)
		return
	}

	files, err := h.files.ListVisible(r.Context(), user.ID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toFileResponses(files))
}

// GetFile обрабатывает GET /api/v1/files/{fileID}.
// Метаданные файла с проекцией статуса доступа зрителя; приватный файл
// отдаётся только тем, кто вправе его видеть.
func (h *APIHandler) GetFile(w http.ResponseWriter, r *http.Request) {
	fileID := chi.URLParam(r, "fileID")
	user := middleware.UserFromContext(r.Context())

	file, err := h.files.GetForViewer(r.Context(), fileID, user)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, fileWithStatusResponse{
		File:   toFileResponse(file),
		Status: toAccessStatusResponse(h.policy.ProjectStatus(r.Context(), file, user)),
	})
}

// DownloadFile обрабатывает GET /api/v1/files/{fileID}/download.
// Отдаёт содержимое с Content-Disposition: attachment.
func (h *APIHandler) DownloadFile(w http.ResponseWriter, r *http.Request) {
	h.serveContent(w, r, true)
}

// PreviewFile обрабатывает GET /api/v1/files/{fileID}/preview.
// Отдаёт содержимое inline для отображения в браузере.
func (h *APIHandler) PreviewFile(w http.ResponseWriter, r *http.Request) {
	h.serveContent(w, r, false)
}

// serveContent отдаёт содержимое файла. attachment управляет
// Content-Disposition: attachment (download) или inline (preview).
func (h *APIHandler) serveContent(w http.ResponseWriter, r *http.Request, attachment bool) {
	fileID := chi.URLParam(r, "fileID")
	user := middleware.UserFromContext(r.Context())

	file, rc, err := h.files.Content(r.Context(), fileID, user)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	defer rc.Close()

	disposition := "inline"
	if attachment {
		disposition = "attachment"
	}

	w.Header().Set("Content-Type", file.ContentType)
	w.Header().Set("Content-Length", fmt.Sprintf("%d", file.Size))
	w.Header().Set("Content-Disposition", mime.FormatMediaType(disposition, map[string]string{
		"filename": file.Name,
	}))

	if _, err := io.Copy(w, rc); err != nil {
		// Заголовки уже отправлены, остаётся зафиксировать обрыв
		h.logger.Warn("Обрыв передачи содержимого файла",
			"file_id", fileID,
			"error", err.Error(),
		)
	}
}

// DeleteFile обрабатывает DELETE /api/v1/files/{fileID}.
// Разрешено только владельцу; каскадно удаляет запросы доступа и blob.
func (h *APIHandler) DeleteFile(w http.ResponseWriter, r *http.Request) {
	fileID := chi.URLParam(r, "fileID")
	user := middleware.UserFromContext(r.Context())
	if user == nil {
		apierrors.Unauthorized(w, "Требуется аутентификация")
		return
	}

	if err := h.files.Delete(r.Context(), fileID, user); err != nil {
		h.writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// CheckAccess обрабатывает GET /api/v1/files/{fileID}/access.
// Полная проекция статуса доступа зрителя к файлу.
func (h *APIHandler) CheckAccess(w http.ResponseWriter, r *http.Request) {
	fileID := chi.URLParam(r, "fileID")
	user := middleware.UserFromContext(r.Context())

	file, err := h.files.Get(r.Context(), fileID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	ps := h.policy.ProjectStatus(r.Context(), file, user)
	writeJSON(w, http.StatusOK, toAccessStatusResponse(ps))
}

// CanRequestAccess обрабатывает GET /api/v1/files/{fileID}/can-request.
// Probe: может ли пользователь подать запрос доступа.
func (h *APIHandler) CanRequestAccess(w http.ResponseWriter, r *http.Request) {
	fileID := chi.URLParam(r, "fileID")
	user := middleware.UserFromContext(r.Context())

	file, err := h.files.Get(r.Context(), fileID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{
		"canRequest": h.policy.CanRequestAccess(r.Context(), file, user),
	})
}

// HasRequestedAccess обрабатывает GET /api/v1/files/{fileID}/has-requested.
// Probe: существует ли PENDING-запрос пользователя на файл.
// Одобренный или отклонённый запрос здесь не считается: probe отвечает
// на вопрос «ждёт ли пользователь решения».
func (h *APIHandler) HasRequestedAccess(w http.ResponseWriter, r *http.Request) {
	fileID := chi.URLParam(r, "fileID")
	user := middleware.UserFromContext(r.Context())
	if user == nil {
		apierrors.Unauthorized(w, "Требуется аутентификация")
		return
	}

	if _, err := h.files.Get(r.Context(), fileID); err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{
		"hasRequested": h.requests.HasPendingRequest(r.Context(), fileID, user.ID),
	})
}
