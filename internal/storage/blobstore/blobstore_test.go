package blobstore

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"strings"
	"testing"
)

// TestPutOpenRoundTrip проверяет запись и чтение blob по токену.
func TestPutOpenRoundTrip(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("ошибка создания store: %v", err)
	}

	content := "содержимое тестового файла"
	res, err := store.Put(strings.NewReader(content), "report.pdf")
	if err != nil {
		t.Fatalf("ошибка Put: %v", err)
	}

	if res.Size != int64(len(content)) {
		t.Errorf("Size = %d, ожидался %d", res.Size, len(content))
	}
	if !strings.HasSuffix(res.Token, ".pdf") {
		t.Errorf("токен %q должен сохранять расширение .pdf", res.Token)
	}

	// Checksum совпадает с SHA-256 содержимого
	sum := sha256.Sum256([]byte(content))
	if res.Checksum != hex.EncodeToString(sum[:]) {
		t.Errorf("Checksum = %q, ожидался %q", res.Checksum, hex.EncodeToString(sum[:]))
	}

	rc, err := store.Open(res.Token)
	if err != nil {
		t.Fatalf("ошибка Open: %v", err)
	}
	defer rc.Close()

	got, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("ошибка чтения: %v", err)
	}
	if string(got) != content {
		t.Errorf("содержимое = %q, ожидалось %q", got, content)
	}
}

// TestOpenNotFound проверяет ошибку при чтении несуществующего токена.
func TestOpenNotFound(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("ошибка создания store: %v", err)
	}

	if _, err := store.Open("no-such-token"); err == nil {
		t.Fatal("ожидалась ошибка для несуществующего токена")
	}
}

// TestDeleteIdempotent проверяет, что удаление идемпотентно.
func TestDeleteIdempotent(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("ошибка создания store: %v", err)
	}

	res, err := store.Put(strings.NewReader("data"), "a.txt")
	if err != nil {
		t.Fatalf("ошибка Put: %v", err)
	}

	if err := store.Delete(res.Token); err != nil {
		t.Fatalf("ошибка первого Delete: %v", err)
	}
	if store.Exists(res.Token) {
		t.Error("blob существует после удаления")
	}

	// Повторное удаление — без ошибки
	if err := store.Delete(res.Token); err != nil {
		t.Errorf("повторный Delete вернул ошибку: %v", err)
	}
}

// TestTokenSanitizesExtension проверяет нормализацию расширения в токене.
func TestTokenSanitizesExtension(t *testing.T) {
	tests := []struct {
		filename string
		wantExt  string
	}{
		{"photo.JPG", ".jpg"},
		{"archive.tar.gz", ".gz"},
		{"noext", ""},
		{"weird.p/df", ""},
		{"long.superduperlongext", ""},
	}

	for _, tt := range tests {
		token := newToken(tt.filename)
		// UUID — 36 символов, дальше расширение
		ext := token[36:]
		if ext != tt.wantExt {
			t.Errorf("newToken(%q): расширение %q, ожидалось %q", tt.filename, ext, tt.wantExt)
		}
	}
}
