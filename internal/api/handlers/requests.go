// requests.go — HTTP handlers запросов доступа.
// Подача (включая повторную после отклонения), списки полученных и
// отправленных, решение владельца, удаление.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/arturkryukov/fileshare/internal/api/errors"
	"github.com/arturkryukov/fileshare/internal/api/middleware"
	"github.com/arturkryukov/fileshare/internal/domain/model"
)

// createRequestBody — тело POST /api/v1/requests.
type createRequestBody struct {
	FileID  string  `json:"fileId"`
	Message *string `json:"message,omitempty"`
}

// respondRequestBody — тело PUT /api/v1/requests/{requestID}.
type respondRequestBody struct {
	Status string `json:"status"`
}

// CreateRequest обрабатывает POST /api/v1/requests.
// Подаёт запрос доступа к чужому приватному файлу. Повторная подача
// после отклонения переиспользует ту же запись (статус снова PENDING).
func (h *APIHandler) CreateRequest(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())
	if user == nil {
		apierrors.Unauthorized(w, "Требуется аутентификация")
		return
	}

	var body createRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		apierrors.ValidationError(w, "Некорректное тело запроса: "+err.Error())
		return
	}
	if body.FileID == "" {
		apierrors.ValidationError(w, "Поле 'fileId' обязательно")
		return
	}

	created, err := h.requests.Create(r.Context(), user, body.FileID, body.Message)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toRequestResponse(created))
}

// ListReceivedRequests обрабатывает GET /api/v1/requests/received.
// Запросы на файлы текущего пользователя, новые первыми.
func (h *APIHandler) ListReceivedRequests(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())
	if user == nil {
		apierrors.Unauthorized(w, "Требуется аутентификация")
		return
	}

	requests, err := h.requests.ListReceivedBy(r.Context(), user.ID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toRequestResponses(requests))
}

// ListSentRequests обрабатывает GET /api/v1/requests/sent.
// Запросы, отправленные текущим пользователем, новые первыми.
func (h *APIHandler) ListSentRequests(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())
	if user == nil {
		apierrors.Unauthorized(w, "Требуется аутентификация")
		return
	}

	requests, err := h.requests.ListSentBy(r.Context(), user.ID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toRequestResponses(requests))
}

// RespondToRequest обрабатывает PUT /api/v1/requests/{requestID}.
// Решение владельца: APPROVED или REJECTED. Повторное решение по тому
// же запросу допускается — владелец может отозвать одобренный доступ.
func (h *APIHandler) RespondToRequest(w http.ResponseWriter, r *http.Request) {
	requestID := chi.URLParam(r, "requestID")
	user := middleware.UserFromContext(r.Context())
	if user == nil {
		apierrors.Unauthorized(w, "Требуется аутентификация")
		return
	}

	var body respondRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		apierrors.ValidationError(w, "Некорректное тело запроса: "+err.Error())
		return
	}

	status, err := model.ParseRequestStatus(body.Status)
	if err != nil {
		apierrors.ValidationError(w, err.Error())
		return
	}
	if status == model.StatusPending {
		apierrors.ValidationError(w, "Статус решения должен быть APPROVED или REJECTED")
		return
	}

	updated, err := h.requests.Transition(r.Context(), requestID, user, status)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toRequestResponse(updated))
}

// DeleteRequest обрабатывает DELETE /api/v1/requests/{requestID}.
// Разрешено запрашивающему (отмена) и владельцу файла.
func (h *APIHandler) DeleteRequest(w http.ResponseWriter, r *http.Request) {
	requestID := chi.URLParam(r, "requestID")
	user := middleware.UserFromContext(r.Context())
	if user == nil {
		apierrors.Unauthorized(w, "Требуется аутентификация")
		return
	}

	if err := h.requests.Delete(r.Context(), requestID, user); err != nil {
		h.writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
