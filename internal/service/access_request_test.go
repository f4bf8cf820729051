package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/arturkryukov/fileshare/internal/domain/model"
	"github.com/arturkryukov/fileshare/internal/repository"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newRequestService собирает сервис на фейковых репозиториях.
// TxRunner отсутствует — транзакционный путь Create покрывается
// интеграционными тестами репозитория.
func newRequestService(files *fakeFileRepo, requests *fakeRequestRepo) *AccessRequestService {
	return NewAccessRequestService(requests, files, nil, discardLogger())
}

func TestAccessRequestCreateValidation(t *testing.T) {
	ctx := context.Background()
	files := newFakeFileRepo()
	files.put(&model.FileRecord{ID: "pub", OwnerID: testOwner.ID, IsPublic: true})
	files.put(&model.FileRecord{ID: "own", OwnerID: testViewer.ID, IsPublic: false})
	svc := newRequestService(files, newFakeRequestRepo())

	tests := []struct {
		name    string
		fileID  string
		wantErr error
	}{
		{"несуществующий файл", "missing", ErrNotFound},
		{"собственный файл", "own", ErrInvalidOperation},
		{"публичный файл", "pub", ErrInvalidOperation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, testViewer, tt.fileID, nil)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Create() err = %v, ожидалось %v", err, tt.wantErr)
			}
		})
	}
}

func TestAccessRequestTransition(t *testing.T) {
	ctx := context.Background()
	requests := newFakeRequestRepo()
	requests.put(&model.AccessRequest{
		ID:          "req-1",
		RequesterID: testViewer.ID,
		FileID:      "file-priv",
		OwnerID:     testOwner.ID,
		Status:      model.StatusPending,
		RequestedAt: time.Now().UTC(),
	})
	svc := newRequestService(newFakeFileRepo(), requests)

	// Не владелец не может решать судьбу запроса
	if _, err := svc.Transition(ctx, "req-1", testViewer, model.StatusApproved); !errors.Is(err, ErrForbidden) {
		t.Errorf("Transition() чужим пользователем: err = %v, ожидалось ErrForbidden", err)
	}

	// Несуществующий запрос
	if _, err := svc.Transition(ctx, "missing", testOwner, model.StatusApproved); !errors.Is(err, ErrNotFound) {
		t.Errorf("Transition() несуществующего запроса: err = %v, ожидалось ErrNotFound", err)
	}

	// Владелец одобряет
	updated, err := svc.Transition(ctx, "req-1", testOwner, model.StatusApproved)
	if err != nil {
		t.Fatalf("Transition() владельцем: %v", err)
	}
	if updated.Status != model.StatusApproved {
		t.Errorf("статус = %s, ожидалось APPROVED", updated.Status)
	}
	if updated.RespondedAt == nil {
		t.Error("responded_at должен быть установлен после решения")
	}

	// Отзыв ранее одобренного доступа
	updated, err = svc.Transition(ctx, "req-1", testOwner, model.StatusRejected)
	if err != nil {
		t.Fatalf("Transition() APPROVED → REJECTED: %v", err)
	}
	if updated.Status != model.StatusRejected {
		t.Errorf("статус после отзыва = %s, ожидалось REJECTED", updated.Status)
	}
}

func TestAccessRequestDelete(t *testing.T) {
	ctx := context.Background()
	stranger := &model.User{ID: "stranger-1", Email: "stranger@example.com"}

	newReq := func() *model.AccessRequest {
		return &model.AccessRequest{
			ID:          "req-1",
			RequesterID: testViewer.ID,
			FileID:      "file-priv",
			OwnerID:     testOwner.ID,
			Status:      model.StatusPending,
			RequestedAt: time.Now().UTC(),
		}
	}

	tests := []struct {
		name    string
		actor   *model.User
		wantErr error
	}{
		{"запрашивающий может удалить", testViewer, nil},
		{"владелец файла может удалить", testOwner, nil},
		{"посторонний не может удалить", stranger, ErrForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			requests := newFakeRequestRepo()
			requests.put(newReq())
			svc := newRequestService(newFakeFileRepo(), requests)

			err := svc.Delete(ctx, "req-1", tt.actor)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Delete(): %v", err)
				}
				if _, err := requests.GetByID(ctx, "req-1"); !errors.Is(err, repository.ErrNotFound) {
					t.Error("запрос должен быть удалён")
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Delete() err = %v, ожидалось %v", err, tt.wantErr)
			}
		})
	}
}

func TestAccessRequestHasPendingRequest(t *testing.T) {
	ctx := context.Background()
	requests := newFakeRequestRepo()
	requests.put(&model.AccessRequest{
		ID: "req-p", RequesterID: "u1", FileID: "f1",
		OwnerID: testOwner.ID, Status: model.StatusPending,
	})
	requests.put(&model.AccessRequest{
		ID: "req-a", RequesterID: "u2", FileID: "f1",
		OwnerID: testOwner.ID, Status: model.StatusApproved,
	})
	svc := newRequestService(newFakeFileRepo(), requests)

	if !svc.HasPendingRequest(ctx, "f1", "u1") {
		t.Error("PENDING-запрос должен обнаруживаться")
	}
	// Probe отвечает только про PENDING: одобренный запрос — это уже доступ
	if svc.HasPendingRequest(ctx, "f1", "u2") {
		t.Error("APPROVED-запрос не считается ожидающим")
	}
	if svc.HasPendingRequest(ctx, "f1", "u3") {
		t.Error("отсутствие запроса — false")
	}
}

func TestAccessRequestLists(t *testing.T) {
	ctx := context.Background()
	requests := newFakeRequestRepo()
	requests.put(&model.AccessRequest{ID: "r1", RequesterID: testViewer.ID, FileID: "f1", OwnerID: testOwner.ID, Status: model.StatusPending})
	requests.put(&model.AccessRequest{ID: "r2", RequesterID: "other", FileID: "f2", OwnerID: testOwner.ID, Status: model.StatusApproved})
	svc := newRequestService(newFakeFileRepo(), requests)

	received, err := svc.ListReceivedBy(ctx, testOwner.ID)
	if err != nil {
		t.Fatalf("ListReceivedBy(): %v", err)
	}
	if len(received) != 2 {
		t.Errorf("получено %d запросов, ожидалось 2", len(received))
	}

	sent, err := svc.ListSentBy(ctx, testViewer.ID)
	if err != nil {
		t.Fatalf("ListSentBy(): %v", err)
	}
	if len(sent) != 1 || sent[0].ID != "r1" {
		t.Errorf("неожиданный список отправленных: %+v", sent)
	}
}
