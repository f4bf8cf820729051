// Пакет blobstore — хранение сырого содержимого файлов на диске.
// Содержимое адресуется непрозрачным токеном, отличным от публичного
// UUID файла. Streaming-запись с подсчётом SHA-256 на лету.
package blobstore

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// ErrNotFound — blob с указанным токеном не существует.
var ErrNotFound = errors.New("blob не найден")

// Store — blob store на локальном диске.
type Store struct {
	// dataDir — корневая директория хранения (FS_DATA_DIR)
	dataDir string
}

// PutResult — результат записи blob.
type PutResult struct {
	// Token — токен для последующего чтения/удаления
	Token string
	// Size — размер записанных данных в байтах
	Size int64
	// Checksum — SHA-256 хэш содержимого
	Checksum string
}

// New создаёт Store. Директория создаётся, если не существует.
func New(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0o750); err != nil {
		return nil, fmt.Errorf("не удалось создать директорию данных %s: %w", dataDir, err)
	}
	return &Store{dataDir: dataDir}, nil
}

// Put записывает данные из reader на диск и возвращает токен.
// Токен: {uuid}{ext}, расширение берётся из оригинального имени.
//
// Паттерн: temp файл → запись + SHA-256 → fsync → atomic rename.
// При ошибке temp файл удаляется.
func (s *Store) Put(reader io.Reader, originalFilename string) (*PutResult, error) {
	token := newToken(originalFilename)
	fullPath := filepath.Join(s.dataDir, token)
	tmpPath := fullPath + ".tmp"

	f, err := os.Create(tmpPath)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания временного файла: %w", err)
	}

	// Streaming запись с одновременным подсчётом SHA-256
	hasher := sha256.New()
	tee := io.TeeReader(reader, hasher)

	size, err := io.Copy(f, tee)
	if err != nil {
		f.Close()
		os.Remove(tmpPath)
		return nil, fmt.Errorf("ошибка записи данных: %w", err)
	}

	// fsync для гарантии записи на диск
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return nil, fmt.Errorf("ошибка fsync: %w", err)
	}

	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("ошибка закрытия файла: %w", err)
	}

	// Атомарный rename
	if err := os.Rename(tmpPath, fullPath); err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("ошибка атомарного переименования: %w", err)
	}

	return &PutResult{
		Token:    token,
		Size:     size,
		Checksum: hex.EncodeToString(hasher.Sum(nil)),
	}, nil
}

// Open открывает blob для чтения. Вызывающий код обязан закрыть ReadCloser.
// Возвращает ErrNotFound, если blob не существует.
func (s *Store) Open(token string) (io.ReadCloser, error) {
	f, err := os.Open(filepath.Join(s.dataDir, token))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, token)
		}
		return nil, fmt.Errorf("ошибка открытия blob %s: %w", token, err)
	}
	return f, nil
}

// Delete удаляет blob с диска. Возвращает nil, если blob уже не существует.
func (s *Store) Delete(token string) error {
	err := os.Remove(filepath.Join(s.dataDir, token))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("ошибка удаления blob %s: %w", token, err)
	}
	return nil
}

// Exists проверяет существование blob на диске.
func (s *Store) Exists(token string) bool {
	_, err := os.Stat(filepath.Join(s.dataDir, token))
	return err == nil
}

// DataDir возвращает путь к директории данных.
func (s *Store) DataDir() string {
	return s.dataDir
}

// newToken генерирует токен хранения: {uuid}{ext}.
// Расширение нормализуется — только буквы и цифры, не длиннее 10 символов.
func newToken(originalFilename string) string {
	ext := strings.ToLower(filepath.Ext(originalFilename))
	if len(ext) > 10 || !safeExt(ext) {
		ext = ""
	}
	return uuid.New().String() + ext
}

// safeExt проверяет, что расширение состоит из точки, букв и цифр.
func safeExt(ext string) bool {
	if ext == "" {
		return true
	}
	for i, r := range ext {
		if i == 0 {
			if r != '.' {
				return false
			}
			continue
		}
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return false
		}
	}
	return len(ext) > 1
}
