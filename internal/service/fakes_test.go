package service

import (
	"context"
	"sync"
	"time"

	"github.com/arturkryukov/fileshare/internal/domain/model"
	"github.com/arturkryukov/fileshare/internal/repository"
)

// Фейковые репозитории в памяти для unit-тестов сервисов.
// Транзакционные пути (TxRunner) покрываются интеграционными тестами
// репозиториев, здесь тестируется логика сервисного слоя.

type fakeFileRepo struct {
	mu    sync.Mutex
	files map[string]*model.FileRecord
}

func newFakeFileRepo() *fakeFileRepo {
	return &fakeFileRepo{files: make(map[string]*model.FileRecord)}
}

func (f *fakeFileRepo) put(file *model.FileRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.files[file.ID] = file
}

func (f *fakeFileRepo) Create(_ context.Context, file *model.FileRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.files[file.ID]; ok {
		return repository.ErrConflict
	}
	if file.CreatedAt.IsZero() {
		file.CreatedAt = time.Now().UTC()
	}
	f.files[file.ID] = file
	return nil
}

func (f *fakeFileRepo) GetByID(_ context.Context, fileID string) (*model.FileRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	file, ok := f.files[fileID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return file, nil
}

func (f *fakeFileRepo) ListByOwner(_ context.Context, ownerID string) ([]*model.FileRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.FileRecord
	for _, file := range f.files {
		if file.OwnerID == ownerID {
			out = append(out, file)
		}
	}
	return out, nil
}

func (f *fakeFileRepo) ListPublic(_ context.Context) ([]*model.FileRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.FileRecord
	for _, file := range f.files {
		if file.IsPublic {
			out = append(out, file)
		}
	}
	return out, nil
}

func (f *fakeFileRepo) ListVisibleTo(_ context.Context, viewerID string) ([]*model.FileRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.FileRecord
	for _, file := range f.files {
		if file.IsPublic || file.OwnerID == viewerID {
			out = append(out, file)
		}
	}
	return out, nil
}

func (f *fakeFileRepo) ListOthersPrivate(_ context.Context, viewerID string) ([]*model.FileRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.FileRecord
	for _, file := range f.files {
		if !file.IsPublic && file.OwnerID != viewerID {
			out = append(out, file)
		}
	}
	return out, nil
}

func (f *fakeFileRepo) Delete(_ context.Context, fileID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.files[fileID]; !ok {
		return repository.ErrNotFound
	}
	delete(f.files, fileID)
	return nil
}

type fakeRequestRepo struct {
	mu       sync.Mutex
	requests map[string]*model.AccessRequest
}

func newFakeRequestRepo() *fakeRequestRepo {
	return &fakeRequestRepo{requests: make(map[string]*model.AccessRequest)}
}

func (f *fakeRequestRepo) put(req *model.AccessRequest) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests[req.ID] = req
}

func (f *fakeRequestRepo) Create(_ context.Context, ar *model.AccessRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.requests {
		if existing.FileID == ar.FileID && existing.RequesterID == ar.RequesterID {
			return repository.ErrConflict
		}
	}
	if ar.RequestedAt.IsZero() {
		ar.RequestedAt = time.Now().UTC()
	}
	f.requests[ar.ID] = ar
	return nil
}

func (f *fakeRequestRepo) GetByID(_ context.Context, requestID string) (*model.AccessRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	req, ok := f.requests[requestID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return req, nil
}

func (f *fakeRequestRepo) FindForFile(_ context.Context, fileID, requesterID string) (*model.AccessRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, req := range f.requests {
		if req.FileID == fileID && req.RequesterID == requesterID {
			return req, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeRequestRepo) ListByOwner(_ context.Context, ownerID string) ([]*model.AccessRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.AccessRequest
	for _, req := range f.requests {
		if req.OwnerID == ownerID {
			out = append(out, req)
		}
	}
	return out, nil
}

func (f *fakeRequestRepo) ListByRequester(_ context.Context, requesterID string) ([]*model.AccessRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.AccessRequest
	for _, req := range f.requests {
		if req.RequesterID == requesterID {
			out = append(out, req)
		}
	}
	return out, nil
}

func (f *fakeRequestRepo) UpdateStatus(_ context.Context, requestID string, status model.RequestStatus, respondedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	req, ok := f.requests[requestID]
	if !ok {
		return repository.ErrNotFound
	}
	req.Status = status
	req.RespondedAt = &respondedAt
	return nil
}

func (f *fakeRequestRepo) ResetToPending(_ context.Context, requestID string, message *string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	req, ok := f.requests[requestID]
	if !ok {
		return repository.ErrNotFound
	}
	req.Status = model.StatusPending
	req.Message = message
	req.RequestedAt = time.Now().UTC()
	req.RespondedAt = nil
	return nil
}

func (f *fakeRequestRepo) Delete(_ context.Context, requestID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.requests[requestID]; !ok {
		return repository.ErrNotFound
	}
	delete(f.requests, requestID)
	return nil
}

func (f *fakeRequestRepo) DeleteByFile(_ context.Context, fileID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for id, req := range f.requests {
		if req.FileID == fileID {
			delete(f.requests, id)
			n++
		}
	}
	return n, nil
}
