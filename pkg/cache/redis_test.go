// Unit-тесты RedisClient: кэш чтения и хранение сессий используют один клиент
package cache

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	redismock "github.com/go-redis/redismock/v8"
)

// TestCacheRoundTrip проверяет Set, Get (hit и miss) и Invalidate на ключе кэша товара
func TestCacheRoundTrip(t *testing.T) {
	db, mock := redismock.NewClientMock()
	client := &RedisClient{client: db}
	ctx := context.Background()
	key := "product:1"
	val := []byte(`{"id":1,"name":"Widget"}`)
	ttl := time.Minute

	mock.ExpectSet(key, val, ttl).SetVal("OK")
	if err := client.Set(ctx, key, val, ttl); err != nil {
		t.Errorf("Set error: %v", err)
	}

	mock.ExpectGet(key).SetVal(string(val))
	got, err := client.Get(ctx, key)
	if err != nil {
		t.Errorf("Get error: %v", err)
	}
	if string(got) != string(val) {
		t.Errorf("Get expected %s, got %s", val, got)
	}

	// отсутствующий ключ транслируется в ErrCacheMiss
	mock.ExpectGet("product:99").RedisNil()
	if _, err = client.Get(ctx, "product:99"); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("expected ErrCacheMiss, got %v", err)
	}

	mock.ExpectDel(key).SetVal(1)
	if err := client.Invalidate(ctx, key); err != nil {
		t.Errorf("Invalidate error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

// TestSessionKeys проверяет хранение сессии: запись с TTL и удаление при выходе
func TestSessionKeys(t *testing.T) {
	db, mock := redismock.NewClientMock()
	client := &RedisClient{client: db}
	ctx := context.Background()
	key := "session:deadbeef"
	identity := []byte(`{"userId":1,"name":"Administrator","role":"admin"}`)

	mock.ExpectSet(key, identity, 24*time.Hour).SetVal("OK")
	if err := client.Set(ctx, key, identity, 24*time.Hour); err != nil {
		t.Errorf("Set error: %v", err)
	}

	// выход: ключ удаляется, повторное чтение даёт промах
	mock.ExpectDel(key).SetVal(1)
	if err := client.Invalidate(ctx, key); err != nil {
		t.Errorf("Invalidate error: %v", err)
	}
	mock.ExpectGet(key).RedisNil()
	if _, err := client.Get(ctx, key); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("expected ErrCacheMiss after invalidate, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

// TestSet_Error проверяет возвращение ошибки при неудаче операции Set
func TestSet_Error(t *testing.T) {
	db, mock := redismock.NewClientMock()
	client := &RedisClient{client: db}
	ctx := context.Background()
	mock.ExpectSet("key", []byte("value"), time.Minute).SetErr(errors.New("set failed"))
	err := client.Set(ctx, "key", []byte("value"), time.Minute)
	if err == nil || !strings.Contains(err.Error(), "set failed") {
		t.Errorf("expected set error, got %v", err)
	}
}

// TestGet_OtherError проверяет, что ошибка соединения не маскируется под cache miss
func TestGet_OtherError(t *testing.T) {
	db, mock := redismock.NewClientMock()
	client := &RedisClient{client: db}
	ctx := context.Background()
	mock.ExpectGet("key").SetErr(errors.New("get failed"))
	_, err := client.Get(ctx, "key")
	if err == nil || !strings.Contains(err.Error(), "get failed") {
		t.Errorf("expected get error, got %v", err)
	}
	if errors.Is(err, ErrCacheMiss) {
		t.Error("connection error must not be reported as cache miss")
	}
}
