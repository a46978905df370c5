package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"InventoryService/internal/model"
)

// ErrNotFound возвращается при отсутствии записи
var ErrNotFound = errors.New("record not found")

// ErrInsufficientStock возвращается, когда расход превышает текущий остаток товара
var ErrInsufficientStock = errors.New("insufficient stock")

// ErrEmptyName возвращается при попытке создания записи с пустым именем
var ErrEmptyName = &emptyNameError{}

type emptyNameError struct{}

func (e *emptyNameError) Error() string {
	return "name cannot be empty"
}

func (e *emptyNameError) Is(target error) bool {
	return target != nil && target.Error() == e.Error()
}

// ProductRepository реализует доступ к таблицам products и movements
type ProductRepository struct {
	db *sql.DB
}

// NewProductRepository создает новый репозиторий товаров
func NewProductRepository(db *sql.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

// CreateProduct добавляет товар и, при ненулевом начальном остатке, запись прихода
// в журнал движений; обе вставки выполняются в одной транзакции
func (r *ProductRepository) CreateProduct(ctx context.Context, name string, quantity, minQuantity int, userID int) (*model.Product, error) {
	if name == "" {
		return nil, ErrEmptyName
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()
	// вставляем товар, created_at обрабатывается дефолтом в БД
	query := `INSERT INTO products(name, quantity, min_quantity) VALUES($1, $2, $3)
		RETURNING id, created_at`
	var id int
	var createdAt time.Time
	err = tx.QueryRowContext(ctx, query, name, quantity, minQuantity).Scan(&id, &createdAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert product: %w", err)
	}
	// фиксируем начальный остаток в журнале, чтобы остаток выводился из движений
	if quantity > 0 {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO movements(product_id, user_id, kind, quantity) VALUES($1, $2, $3, $4)`,
			id, userID, model.KindIn, quantity)
		if err != nil {
			return nil, fmt.Errorf("failed to insert initial movement: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return &model.Product{
		ID:          id,
		Name:        name,
		Quantity:    quantity,
		MinQuantity: minQuantity,
		CreatedAt:   createdAt,
	}, nil
}

// GetProduct возвращает товар по id
func (r *ProductRepository) GetProduct(ctx context.Context, id int) (*model.Product, error) {
	query := `SELECT id, name, quantity, min_quantity, created_at FROM products WHERE id=$1`
	row := r.db.QueryRowContext(ctx, query, id)
	var p model.Product
	err := row.Scan(&p.ID, &p.Name, &p.Quantity, &p.MinQuantity, &p.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return &p, nil
}

// DeleteProduct удаляет товар с блокировкой и транзакцией;
// записи журнала движений удаляются каскадом по внешнему ключу
func (r *ProductRepository) DeleteProduct(ctx context.Context, id int) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()
	// проверка существования с блокировкой
	row := tx.QueryRowContext(ctx, `SELECT id FROM products WHERE id=$1 FOR UPDATE`, id)
	var existingID int
	if err := row.Scan(&existingID); err != nil {
		if err == sql.ErrNoRows {
			return ErrNotFound
		}
		return fmt.Errorf("failed to select product for delete: %w", err)
	}
	_, err = tx.ExecContext(ctx, `DELETE FROM products WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ListProducts возвращает список товаров с пагинацией, общее число записей
// и число товаров с остатком не выше минимального порога
func (r *ProductRepository) ListProducts(ctx context.Context, limit, offset int) ([]model.Product, int, int, error) {
	var total, lowStock int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products`).Scan(&total); err != nil {
		return nil, 0, 0, fmt.Errorf("failed to count products: %w", err)
	}
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products WHERE quantity <= min_quantity`).Scan(&lowStock); err != nil {
		return nil, 0, 0, fmt.Errorf("failed to count low stock products: %w", err)
	}
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, quantity, min_quantity, created_at FROM products ORDER BY id LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("failed to select products list: %w", err)
	}
	defer rows.Close()
	var products []model.Product
	for rows.Next() {
		var p model.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Quantity, &p.MinQuantity, &p.CreatedAt); err != nil {
			return nil, 0, 0, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}
	return products, total, lowStock, nil
}

// ApplyMovement атомарно изменяет остаток товара и добавляет запись в журнал движений.
// Строка товара блокируется на время транзакции (SELECT ... FOR UPDATE), поэтому
// параллельные расходы не могут пройти проверку достаточности по устаревшему остатку.
// При недостатке остатка возвращается ErrInsufficientStock и состояние не меняется.
func (r *ProductRepository) ApplyMovement(ctx context.Context, productID, userID int, kind model.MovementKind, quantity int) (*model.Movement, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()
	// получаем текущий остаток с блокировкой
	var current int
	row := tx.QueryRowContext(ctx, `SELECT quantity FROM products WHERE id=$1 FOR UPDATE`, productID)
	if err := row.Scan(&current); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to select product for movement: %w", err)
	}
	// проверка достаточности остатка для расхода
	newQuantity := current + quantity
	if kind == model.KindOut {
		if quantity > current {
			return nil, ErrInsufficientStock
		}
		newQuantity = current - quantity
	}
	_, err = tx.ExecContext(ctx, `UPDATE products SET quantity=$1 WHERE id=$2`, newQuantity, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to update product quantity: %w", err)
	}
	// запись журнала, created_at обрабатывается дефолтом в БД
	var id int
	var createdAt time.Time
	err = tx.QueryRowContext(ctx,
		`INSERT INTO movements(product_id, user_id, kind, quantity) VALUES($1, $2, $3, $4)
		RETURNING id, created_at`,
		productID, userID, kind, quantity).Scan(&id, &createdAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert movement: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	uid := userID
	return &model.Movement{
		ID:        id,
		ProductID: productID,
		UserID:    &uid,
		Kind:      kind,
		Quantity:  quantity,
		CreatedAt: createdAt,
	}, nil
}

// ListMovements возвращает все записи журнала, отсортированные по времени по убыванию
func (r *ProductRepository) ListMovements(ctx context.Context) ([]model.Movement, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, product_id, user_id, kind, quantity, created_at FROM movements ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to select movements list: %w", err)
	}
	defer rows.Close()
	var movements []model.Movement
	for rows.Next() {
		var m model.Movement
		if err := rows.Scan(&m.ID, &m.ProductID, &m.UserID, &m.Kind, &m.Quantity, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan movement: %w", err)
		}
		movements = append(movements, m)
	}
	return movements, nil
}
