package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"InventoryService/internal/model"
)

// ErrInvalidQuantity возвращается при отрицательном остатке или неположительном количестве движения
var ErrInvalidQuantity = errors.New("invalid quantity")

// ErrInvalidKind возвращается при неизвестном виде движения
var ErrInvalidKind = errors.New("invalid movement kind")

// ProductRepo определяет интерфейс репозитория для товаров и журнала движений
// Реализация может быть на основе базы данных Postgres
type ProductRepo interface {
	CreateProduct(ctx context.Context, name string, quantity, minQuantity int, userID int) (*model.Product, error)
	GetProduct(ctx context.Context, id int) (*model.Product, error)
	DeleteProduct(ctx context.Context, id int) error
	ListProducts(ctx context.Context, limit, offset int) ([]model.Product, int, int, error)
	ApplyMovement(ctx context.Context, productID, userID int, kind model.MovementKind, quantity int) (*model.Movement, error)
	ListMovements(ctx context.Context) ([]model.Movement, error)
}

// Cache определяет интерфейс кэширования результатов операций (Redis)
// Методы позволяют записывать, читать и инвалидировать кэш по ключу
type Cache interface {
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, error)
	Invalidate(ctx context.Context, key string) error
}

// Logger определяет интерфейс публикации аудит-событий (NATS)
type Logger interface {
	PublishLog(data []byte) error
}

// cacheTTL задаёт время жизни записей в кэше (Redis), по умолчанию 1 минута или из REDIS_TTL
var cacheTTL = time.Minute

func init() {
	if v := os.Getenv("REDIS_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cacheTTL = d
		}
	}
}

// movementsListKey — ключ кэша полного списка журнала движений
const movementsListKey = "movements:list"

// InventoryService реализует бизнес-логику склада:
// - проверка входных данных (валидация)
// - вызовы репозитория для операций над товарами и движениями
// - кэширование результатов чтения и инвалидирование при изменениях
// - публикация событий движений в аудит-поток
type InventoryService struct {
	repo   ProductRepo
	cache  Cache
	logger Logger
}

// NewInventoryService создаёт новый сервис склада
func NewInventoryService(r ProductRepo, c Cache, l Logger) *InventoryService {
	return &InventoryService{repo: r, cache: c, logger: l}
}

// CreateProduct создаёт новый товар и возвращает его:
// 1. Валидирует имя и неотрицательность остатков
// 2. Вызывает метод репозитория CreateProduct (начальный приход пишется там же)
// 3. Инвалидирует кэш списков
// 4. При ненулевом начальном остатке публикует событие прихода в аудит-поток
func (s *InventoryService) CreateProduct(ctx context.Context, name string, quantity, minQuantity int, actor *model.Identity) (*model.Product, error) {
	if name == "" {
		return nil, errors.New("name cannot be empty")
	}
	if quantity < 0 || minQuantity < 0 {
		return nil, ErrInvalidQuantity
	}
	product, err := s.repo.CreateProduct(ctx, name, quantity, minQuantity, actor.UserID)
	if err != nil {
		return nil, err
	}
	// инвалидируем кэш списков товаров и движений
	_ = s.cache.Invalidate(ctx, "products:list")
	_ = s.cache.Invalidate(ctx, movementsListKey)
	if quantity > 0 {
		uid := actor.UserID
		event := model.Movement{ProductID: product.ID, UserID: &uid, Kind: model.KindIn, Quantity: quantity, CreatedAt: product.CreatedAt}
		data, _ := json.Marshal(event)
		_ = s.logger.PublishLog(data)
	}
	return product, nil
}

// GetProduct возвращает товар по id:
// 1. Пытается получить из кэша Redis
// 2. При промахе кэша запрашивает из репозитория
// 3. Сохраняет результат в кэш
func (s *InventoryService) GetProduct(ctx context.Context, id int) (*model.Product, error) {
	key := fmt.Sprintf("product:%d", id)
	bytes, err := s.cache.Get(ctx, key)
	if err == nil {
		var p model.Product
		_ = json.Unmarshal(bytes, &p)
		return &p, nil
	}
	product, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	data, _ := json.Marshal(product)
	_ = s.cache.Set(ctx, key, data, cacheTTL)
	return product, nil
}

// DeleteProduct удаляет товар вместе с его журналом движений:
// 1. Вызывает DeleteProduct репозитория (повторное удаление даёт ErrNotFound)
// 2. Инвалидирует кэш списков и конкретного товара
func (s *InventoryService) DeleteProduct(ctx context.Context, id int) error {
	if err := s.repo.DeleteProduct(ctx, id); err != nil {
		return err
	}
	_ = s.cache.Invalidate(ctx, "products:list")
	_ = s.cache.Invalidate(ctx, fmt.Sprintf("product:%d", id))
	_ = s.cache.Invalidate(ctx, movementsListKey)
	return nil
}

// ApplyMovement регистрирует движение товара:
// 1. Валидирует вид движения и положительность количества
// 2. Вызывает ApplyMovement репозитория (атомарное изменение остатка + запись журнала)
// 3. Инвалидирует кэш товара и списков
// 4. Публикует событие движения в аудит-поток
func (s *InventoryService) ApplyMovement(ctx context.Context, productID int, kind model.MovementKind, quantity int, actor *model.Identity) (*model.Movement, error) {
	if !kind.Valid() {
		return nil, ErrInvalidKind
	}
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	movement, err := s.repo.ApplyMovement(ctx, productID, actor.UserID, kind, quantity)
	if err != nil {
		return nil, err
	}
	_ = s.cache.Invalidate(ctx, fmt.Sprintf("product:%d", productID))
	_ = s.cache.Invalidate(ctx, "products:list")
	_ = s.cache.Invalidate(ctx, movementsListKey)
	data, _ := json.Marshal(movement)
	_ = s.logger.PublishLog(data)
	return movement, nil
}

// ListProducts возвращает список товаров с метаданными:
// 1. Пытается получить из кэша по ключу с limit/offset
// 2. При промахе кэша запрашивает из репозитория
// 3. Кэширует ответ (массив товаров, total и lowStock)
func (s *InventoryService) ListProducts(ctx context.Context, limit, offset int) ([]model.Product, int, int, error) {
	key := fmt.Sprintf("products:list:%d:%d", limit, offset)
	if bytes, err := s.cache.Get(ctx, key); err == nil {
		var resp productListResponse
		_ = json.Unmarshal(bytes, &resp)
		return resp.Products, resp.Meta.Total, resp.Meta.LowStock, nil
	}
	products, total, lowStock, err := s.repo.ListProducts(ctx, limit, offset)
	if err != nil {
		return nil, 0, 0, err
	}
	resp := productListResponse{Products: products}
	resp.Meta.Total = total
	resp.Meta.LowStock = lowStock
	resp.Meta.Limit = limit
	resp.Meta.Offset = offset
	data, _ := json.Marshal(resp)
	_ = s.cache.Set(ctx, key, data, cacheTTL)
	return products, total, lowStock, nil
}

// productListResponse — форма кэшируемого ответа списка товаров
type productListResponse struct {
	Products []model.Product `json:"products"`
	Meta     struct {
		Total    int `json:"total"`
		LowStock int `json:"lowStock"`
		Limit    int `json:"limit"`
		Offset   int `json:"offset"`
	} `json:"meta"`
}

// ListMovements возвращает журнал движений, самые свежие первыми:
// 1. Пытается получить из кэша
// 2. При промахе кэша запрашивает из репозитория и кэширует
func (s *InventoryService) ListMovements(ctx context.Context) ([]model.Movement, error) {
	if bytes, err := s.cache.Get(ctx, movementsListKey); err == nil {
		var movements []model.Movement
		_ = json.Unmarshal(bytes, &movements)
		return movements, nil
	}
	movements, err := s.repo.ListMovements(ctx)
	if err != nil {
		return nil, err
	}
	data, _ := json.Marshal(movements)
	_ = s.cache.Set(ctx, movementsListKey, data, cacheTTL)
	return movements, nil
}
