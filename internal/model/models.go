package model

import "time"

// Role определяет уровень доступа пользователя
type Role string

const (
	// RoleAdmin — полный доступ, включая управление пользователями
	RoleAdmin Role = "admin"
	// RoleOrdinary — доступ только к складским операциям
	RoleOrdinary Role = "ordinary"
)

// Valid проверяет, что роль одна из двух допустимых
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleOrdinary
}

// MovementKind определяет направление движения товара: приход или расход
type MovementKind string

const (
	// KindIn — приход товара на склад
	KindIn MovementKind = "in"
	// KindOut — расход товара со склада
	KindOut MovementKind = "out"
)

// Valid проверяет, что вид движения один из двух допустимых
func (k MovementKind) Valid() bool {
	return k == KindIn || k == KindOut
}

// Product представляет сущность товара (таблица products)
// Quantity не может стать отрицательным в результате движения
type Product struct {
	ID          int       `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Quantity    int       `db:"quantity" json:"quantity"`
	MinQuantity int       `db:"min_quantity" json:"minQuantity"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
}

// LowStock сообщает, опустился ли остаток до минимального порога
func (p *Product) LowStock() bool {
	return p.Quantity <= p.MinQuantity
}

// User представляет учетную запись (таблица users)
// PasswordHash хранит bcrypt-хеш и никогда не сериализуется в JSON
type User struct {
	ID           int       `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	Login        string    `db:"login" json:"login"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Role         Role      `db:"role" json:"role"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
}

// Movement представляет запись журнала движений (таблица movements)
// Запись неизменяема после создания: журнал только пополняется
// UserID — указатель, т.к. после удаления пользователя ссылка обнуляется
type Movement struct {
	ID        int          `db:"id" json:"id"`
	ProductID int          `db:"product_id" json:"productId"`
	UserID    *int         `db:"user_id" json:"userId,omitempty"`
	Kind      MovementKind `db:"kind" json:"kind"`
	Quantity  int          `db:"quantity" json:"quantity"`
	CreatedAt time.Time    `db:"created_at" json:"createdAt"`
}

// Identity представляет данные сессии аутентифицированного пользователя
type Identity struct {
	UserID int    `json:"userId"`
	Name   string `json:"name"`
	Role   Role   `json:"role"`
}

// IsAdmin сообщает, имеет ли идентичность административную роль
func (i *Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}
