package repository

import (
	"context"
	"database/sql"
	"log"
	"time"

	"InventoryService/internal/model"
)

// ClickhouseRepo реализует пакетную запись событий движений в ClickHouse
type ClickhouseRepo struct {
	db *sql.DB
}

// NewClickhouseRepo создаёт новый репозиторий для ClickHouse
func NewClickhouseRepo(db *sql.DB) *ClickhouseRepo {
	return &ClickhouseRepo{db: db}
}

// BatchInsertMovements записывает пакет событий движений в таблицу movements_log
// Время события фиксируется в момент вставки
func (r *ClickhouseRepo) BatchInsertMovements(ctx context.Context, events []model.Movement) error {
	// начинаем 'транзакцию' для batch insert (clickhouse-go собирает блок при PrepareContext)
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	log.Printf("Начало пакетной вставки %d событий движений в ClickHouse", len(events))
	// PrepareContext для одной строки; clickhouse-go будет собирать несколько Exec в один блок
	query := `INSERT INTO movements_log (Id, ProductId, UserId, Kind, Quantity, EventTime) VALUES (?, ?, ?, ?, ?, ?)`
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer func() { _ = stmt.Close() }()
	// выполняем ExecContext для каждой записи; драйвер соберёт весь пакет
	for _, e := range events {
		userID := 0
		if e.UserID != nil {
			userID = *e.UserID
		}
		_, err := stmt.ExecContext(ctx,
			e.ID, e.ProductID, userID,
			string(e.Kind), e.Quantity,
			time.Now(),
		)
		if err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	log.Printf("Успешно вставлено %d событий движений в ClickHouse", len(events))
	return nil
}
