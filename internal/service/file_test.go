package service

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/arturkryukov/fileshare/internal/domain/model"
	"github.com/arturkryukov/fileshare/internal/storage/blobstore"
)

func newFileService(t *testing.T, files *fakeFileRepo, requests *fakeRequestRepo) (*FileService, string) {
	t.Helper()

	dataDir := t.TempDir()
	blobs, err := blobstore.New(dataDir)
	if err != nil {
		t.Fatalf("создание blob-хранилища: %v", err)
	}

	cache := NewCacheService(16, time.Minute)
	policy := NewPolicy(requests)
	svc := NewFileService(files, requests, blobs, cache, policy, nil, discardLogger())
	return svc, dataDir
}

func TestFileUpload(t *testing.T) {
	ctx := context.Background()
	files := newFakeFileRepo()
	svc, _ := newFileService(t, files, newFakeRequestRepo())

	desc := "квартальный отчёт"
	file, err := svc.Upload(ctx, testOwner, UploadInput{
		Name:        "report.pdf",
		ContentType: "application/pdf",
		IsPublic:    false,
		Description: &desc,
		Content:     strings.NewReader("содержимое отчёта"),
	})
	if err != nil {
		t.Fatalf("Upload(): %v", err)
	}

	if file.ID == "" || file.BlobToken == "" {
		t.Error("идентификатор и blob-токен должны быть заполнены")
	}
	if file.Size != int64(len("содержимое отчёта")) {
		t.Errorf("размер = %d, ожидалось %d", file.Size, len("содержимое отчёта"))
	}
	if file.Visibility() != "PRIVATE" {
		t.Errorf("видимость = %s, ожидалось PRIVATE", file.Visibility())
	}

	// Запись попала в каталог
	stored, err := files.GetByID(ctx, file.ID)
	if err != nil {
		t.Fatalf("файл не зарегистрирован в каталоге: %v", err)
	}
	if stored.BlobToken != file.BlobToken {
		t.Error("blob-токен в каталоге не совпадает")
	}
}

func TestFileUploadEmptyName(t *testing.T) {
	svc, _ := newFileService(t, newFakeFileRepo(), newFakeRequestRepo())

	_, err := svc.Upload(context.Background(), testOwner, UploadInput{
		Name:    "",
		Content: strings.NewReader("x"),
	})
	if !errors.Is(err, ErrInvalidOperation) {
		t.Errorf("Upload() без имени: err = %v, ожидалось ErrInvalidOperation", err)
	}
}

// failingFileRepo ломает вставку записи для проверки отката blob-а.
type failingFileRepo struct {
	*fakeFileRepo
}

func (f *failingFileRepo) Create(context.Context, *model.FileRecord) error {
	return errors.New("обрыв соединения с БД")
}

func TestFileUploadRollsBackBlobOnDBFailure(t *testing.T) {
	dataDir := t.TempDir()
	blobs, err := blobstore.New(dataDir)
	if err != nil {
		t.Fatalf("создание blob-хранилища: %v", err)
	}
	requests := newFakeRequestRepo()
	svc := NewFileService(
		&failingFileRepo{newFakeFileRepo()}, requests, blobs,
		NewCacheService(16, time.Minute), NewPolicy(requests), nil, discardLogger(),
	)

	_, err = svc.Upload(context.Background(), testOwner, UploadInput{
		Name:    "doomed.txt",
		Content: strings.NewReader("не доживёт до каталога"),
	})
	if err == nil {
		t.Fatal("ожидалась ошибка вставки метаданных")
	}

	// Blob должен быть откачен, каталог данных — пуст
	entries, readErr := os.ReadDir(dataDir)
	if readErr != nil {
		t.Fatalf("чтение каталога данных: %v", readErr)
	}
	if len(entries) != 0 {
		t.Errorf("после отката в каталоге данных осталось %d файлов", len(entries))
	}
}

func TestFileGetUsesCache(t *testing.T) {
	ctx := context.Background()
	files := newFakeFileRepo()
	svc, _ := newFileService(t, files, newFakeRequestRepo())

	file, err := svc.Upload(ctx, testOwner, UploadInput{
		Name:    "cached.txt",
		Content: strings.NewReader("x"),
	})
	if err != nil {
		t.Fatalf("Upload(): %v", err)
	}

	// Запись удаляется из репозитория, но остаётся в кеше
	if err := files.Delete(ctx, file.ID); err != nil {
		t.Fatalf("Delete(): %v", err)
	}

	got, err := svc.Get(ctx, file.ID)
	if err != nil {
		t.Fatalf("Get() после удаления из БД должен отдать кеш: %v", err)
	}
	if got.ID != file.ID {
		t.Errorf("из кеша вернулся не тот файл: %s", got.ID)
	}
}

func TestFileGetNotFound(t *testing.T) {
	svc, _ := newFileService(t, newFakeFileRepo(), newFakeRequestRepo())

	_, err := svc.Get(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() несуществующего файла: err = %v, ожидалось ErrNotFound", err)
	}
}

func TestFileGetForViewer(t *testing.T) {
	ctx := context.Background()
	files := newFakeFileRepo()
	requests := newFakeRequestRepo()
	svc, _ := newFileService(t, files, requests)

	private, err := svc.Upload(ctx, testOwner, UploadInput{
		Name:    "secret.txt",
		Content: strings.NewReader("тайна"),
	})
	if err != nil {
		t.Fatalf("Upload(): %v", err)
	}

	// Постороннему доступ запрещён
	if _, err := svc.GetForViewer(ctx, private.ID, testViewer); !errors.Is(err, ErrForbidden) {
		t.Errorf("GetForViewer() чужого приватного файла: err = %v, ожидалось ErrForbidden", err)
	}

	// Владелец видит свой файл
	if _, err := svc.GetForViewer(ctx, private.ID, testOwner); err != nil {
		t.Errorf("GetForViewer() владельцем: %v", err)
	}

	// Одобренный запрос открывает доступ
	requests.put(&model.AccessRequest{
		ID: "req-1", RequesterID: testViewer.ID, FileID: private.ID,
		OwnerID: testOwner.ID, Status: model.StatusApproved,
	})
	if _, err := svc.GetForViewer(ctx, private.ID, testViewer); err != nil {
		t.Errorf("GetForViewer() с одобренным запросом: %v", err)
	}
}

func TestFileContent(t *testing.T) {
	ctx := context.Background()
	svc, _ := newFileService(t, newFakeFileRepo(), newFakeRequestRepo())

	const body = "публичное содержимое"
	file, err := svc.Upload(ctx, testOwner, UploadInput{
		Name:     "open.txt",
		IsPublic: true,
		Content:  strings.NewReader(body),
	})
	if err != nil {
		t.Fatalf("Upload(): %v", err)
	}

	// Публичный файл скачивается анонимом
	got, rc, err := svc.Content(ctx, file.ID, nil)
	if err != nil {
		t.Fatalf("Content(): %v", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("чтение содержимого: %v", err)
	}
	if string(data) != body {
		t.Errorf("содержимое = %q, ожидалось %q", data, body)
	}
	if got.ID != file.ID {
		t.Error("вернулась не та запись файла")
	}
}

func TestFileContentForbidden(t *testing.T) {
	ctx := context.Background()
	svc, _ := newFileService(t, newFakeFileRepo(), newFakeRequestRepo())

	file, err := svc.Upload(ctx, testOwner, UploadInput{
		Name:    "closed.txt",
		Content: strings.NewReader("закрыто"),
	})
	if err != nil {
		t.Fatalf("Upload(): %v", err)
	}

	if _, _, err := svc.Content(ctx, file.ID, nil); !errors.Is(err, ErrForbidden) {
		t.Errorf("Content() анонимом приватного файла: err = %v, ожидалось ErrForbidden", err)
	}
	if _, _, err := svc.Content(ctx, file.ID, testViewer); !errors.Is(err, ErrForbidden) {
		t.Errorf("Content() посторонним: err = %v, ожидалось ErrForbidden", err)
	}
}

func TestFileDeleteValidation(t *testing.T) {
	ctx := context.Background()
	files := newFakeFileRepo()
	svc, _ := newFileService(t, files, newFakeRequestRepo())

	if err := svc.Delete(ctx, "missing", testOwner); !errors.Is(err, ErrNotFound) {
		t.Errorf("Delete() несуществующего файла: err = %v, ожидалось ErrNotFound", err)
	}

	file, err := svc.Upload(ctx, testOwner, UploadInput{
		Name:    "mine.txt",
		Content: strings.NewReader("x"),
	})
	if err != nil {
		t.Fatalf("Upload(): %v", err)
	}

	if err := svc.Delete(ctx, file.ID, testViewer); !errors.Is(err, ErrForbidden) {
		t.Errorf("Delete() не владельцем: err = %v, ожидалось ErrForbidden", err)
	}
}
