package consumer

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"InventoryService/internal/model"
)

// Repo описывает интерфейс репозитория ClickHouse для пакетной записи событий движений
type Repo interface {
	BatchInsertMovements(ctx context.Context, events []model.Movement) error
}

// Consumer буферизует события движений и отправляет их пакетно в ClickHouse
// batchSize определяет макс. количество событий до отправки
// mutex защищает доступ к буферу events
type Consumer struct {
	repo      Repo
	batchSize int
	events    []model.Movement
	mu        sync.Mutex
}

// NewConsumer создаёт Consumer с указанным репозиторием и размером пакета
func NewConsumer(repo Repo, batchSize int) *Consumer {
	return &Consumer{repo: repo, batchSize: batchSize, events: make([]model.Movement, 0, batchSize)}
}

// HandleMessage обрабатывает сообщение из NATS: парсит JSON движения, добавляет
// событие в буфер и при достижении batchSize отправляет пакет в ClickHouse
func (c *Consumer) HandleMessage(ctx context.Context, data []byte) error {
	log.Printf("Получено сообщение NATS: %s", string(data))
	var m model.Movement
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	log.Printf("Получено событие движения: %+v", m)
	c.mu.Lock()
	c.events = append(c.events, m)
	// если достигли batchSize, сбрасываем буфер
	if len(c.events) >= c.batchSize {
		eventsCopy := make([]model.Movement, len(c.events))
		copy(eventsCopy, c.events)
		c.events = c.events[:0]
		c.mu.Unlock()
		return c.repo.BatchInsertMovements(ctx, eventsCopy)
	}
	c.mu.Unlock()
	return nil
}

// Flush отправляет все накопленные события, если они есть
func (c *Consumer) Flush(ctx context.Context) error {
	c.mu.Lock()
	if len(c.events) == 0 {
		c.mu.Unlock()
		return nil
	}
	eventsCopy := make([]model.Movement, len(c.events))
	copy(eventsCopy, c.events)
	c.events = c.events[:0]
	c.mu.Unlock()
	return c.repo.BatchInsertMovements(ctx, eventsCopy)
}
