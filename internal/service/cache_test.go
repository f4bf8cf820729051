package service

import (
	"testing"
	"time"

	"github.com/arturkryukov/fileshare/internal/domain/model"
)

// TestCacheService_GetSet проверяет базовые операции Get/Set.
func TestCacheService_GetSet(t *testing.T) {
	cache := NewCacheService(100, 5*time.Minute)

	record := &model.FileRecord{
		ID:          "test-uuid-1",
		Name:        "test.txt",
		ContentType: "text/plain",
		Size:        1024,
	}

	// Cache miss
	_, ok := cache.Get("test-uuid-1")
	if ok {
		t.Fatal("ожидался cache miss для нового ключа")
	}

	// Set + cache hit
	cache.Set("test-uuid-1", record)
	got, ok := cache.Get("test-uuid-1")
	if !ok {
		t.Fatal("ожидался cache hit после Set")
	}
	if got.ID != "test-uuid-1" {
		t.Errorf("ID = %q, ожидался %q", got.ID, "test-uuid-1")
	}
	if got.Name != "test.txt" {
		t.Errorf("Name = %q, ожидался %q", got.Name, "test.txt")
	}
}

// TestCacheService_Delete проверяет удаление из кэша (инвалидация).
func TestCacheService_Delete(t *testing.T) {
	cache := NewCacheService(100, 5*time.Minute)

	cache.Set("delete-me", &model.FileRecord{ID: "delete-me"})

	// Проверяем что запись есть
	if _, ok := cache.Get("delete-me"); !ok {
		t.Fatal("ожидался cache hit перед удалением")
	}

	cache.Delete("delete-me")

	if _, ok := cache.Get("delete-me"); ok {
		t.Fatal("ожидался cache miss после Delete")
	}
}

// TestCacheService_TTLExpiration проверяет автоматическое истечение TTL.
func TestCacheService_TTLExpiration(t *testing.T) {
	// Короткий TTL = 50ms для теста
	cache := NewCacheService(100, 50*time.Millisecond)

	cache.Set("ttl-test", &model.FileRecord{ID: "ttl-test"})

	if _, ok := cache.Get("ttl-test"); !ok {
		t.Fatal("ожидался cache hit сразу после Set")
	}

	time.Sleep(100 * time.Millisecond)

	if _, ok := cache.Get("ttl-test"); ok {
		t.Fatal("ожидался cache miss после истечения TTL")
	}
}

// TestCacheService_Eviction проверяет вытеснение при переполнении.
func TestCacheService_Eviction(t *testing.T) {
	cache := NewCacheService(2, 5*time.Minute)

	cache.Set("one", &model.FileRecord{ID: "one"})
	cache.Set("two", &model.FileRecord{ID: "two"})
	cache.Set("three", &model.FileRecord{ID: "three"})

	// Самая старая запись вытеснена
	if _, ok := cache.Get("one"); ok {
		t.Error("запись 'one' должна быть вытеснена LRU")
	}
	if _, ok := cache.Get("three"); !ok {
		t.Error("запись 'three' должна остаться в кэше")
	}
}
