package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"InventoryService/internal/model"
	"InventoryService/internal/repository"
	"InventoryService/internal/service"
)

// InventoryService задаёт интерфейс бизнес-логики склада для HTTP-слоя
type InventoryService interface {
	CreateProduct(ctx context.Context, name string, quantity, minQuantity int, actor *model.Identity) (*model.Product, error)
	GetProduct(ctx context.Context, id int) (*model.Product, error)
	DeleteProduct(ctx context.Context, id int) error
	ListProducts(ctx context.Context, limit, offset int) ([]model.Product, int, int, error)
	ApplyMovement(ctx context.Context, productID int, kind model.MovementKind, quantity int, actor *model.Identity) (*model.Movement, error)
	ListMovements(ctx context.Context) ([]model.Movement, error)
}

// UserService задаёт интерфейс бизнес-логики учетных записей для HTTP-слоя
type UserService interface {
	Create(ctx context.Context, name, login, password string, role model.Role) (*model.User, error)
	Delete(ctx context.Context, id int) error
	SetRole(ctx context.Context, id int, role model.Role) (*model.User, error)
	List(ctx context.Context) ([]model.User, error)
	Authenticate(ctx context.Context, login, password string) (*model.User, error)
}

// Sessions задаёт интерфейс хранилища сессий для входа и выхода
type Sessions interface {
	SessionReader
	Create(ctx context.Context, user *model.User) (string, error)
	Destroy(ctx context.Context, token string) error
}

// Handler содержит зависимости и реализует HTTP-эндпоинты сервиса склада
type Handler struct {
	inventory InventoryService
	users     UserService
	sessions  Sessions
}

// NewHandler создаёт новый HTTP Handler
func NewHandler(inventory InventoryService, users UserService, sessions Sessions) *Handler {
	return &Handler{inventory: inventory, users: users, sessions: sessions}
}

// RegisterRoutes регистрирует маршруты API.
// Складские операции требуют аутентификации, управление пользователями — роли admin.
func (h *Handler) RegisterRoutes(r *mux.Router) {
	// Эндпоинты для проверки здоровья и готовности сервиса
	r.HandleFunc("/healthz", h.Healthz).Methods("GET")
	r.HandleFunc("/readyz", h.Readyz).Methods("GET")
	r.HandleFunc("/auth/login", h.Login).Methods("POST")

	authed := r.NewRoute().Subrouter()
	authed.Use(AuthMiddleware(h.sessions))
	authed.HandleFunc("/auth/logout", h.Logout).Methods("POST")
	authed.HandleFunc("/product/create", h.CreateProduct).Methods("POST")
	authed.HandleFunc("/product/get", h.GetProduct).Methods("GET")
	authed.HandleFunc("/product/remove", h.RemoveProduct).Methods("DELETE")
	authed.HandleFunc("/products/list", h.ListProducts).Methods("GET")
	authed.HandleFunc("/movement/apply", h.ApplyMovement).Methods("POST")
	authed.HandleFunc("/movements/list", h.ListMovements).Methods("GET")

	admin := r.NewRoute().Subrouter()
	admin.Use(AuthMiddleware(h.sessions), AdminMiddleware())
	admin.HandleFunc("/user/create", h.CreateUser).Methods("POST")
	admin.HandleFunc("/user/remove", h.RemoveUser).Methods("DELETE")
	admin.HandleFunc("/user/role", h.SetUserRole).Methods("PATCH")
	admin.HandleFunc("/users/list", h.ListUsers).Methods("GET")
}

// ErrorResponse модель ошибки API
type ErrorResponse struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details"`
}

func writeError(w http.ResponseWriter, status int, resp ErrorResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

// writeServiceError отображает ошибки бизнес-логики на HTTP-статусы и коды API
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, ErrorResponse{3, "errors.common.notFound", map[string]interface{}{}})
	case errors.Is(err, repository.ErrInsufficientStock):
		writeError(w, http.StatusConflict, ErrorResponse{5, "errors.stock.insufficient", map[string]interface{}{}})
	case errors.Is(err, repository.ErrLoginTaken):
		writeError(w, http.StatusConflict, ErrorResponse{4, "errors.user.loginTaken", map[string]interface{}{}})
	case errors.Is(err, service.ErrInvalidRole),
		errors.Is(err, service.ErrInvalidKind),
		errors.Is(err, service.ErrInvalidQuantity),
		errors.Is(err, repository.ErrEmptyName):
		writeError(w, http.StatusBadRequest, ErrorResponse{1, err.Error(), map[string]interface{}{}})
	case errors.Is(err, service.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, ErrorResponse{2, "errors.auth.invalidCredentials", map[string]interface{}{}})
	default:
		writeError(w, http.StatusInternalServerError, ErrorResponse{1, err.Error(), map[string]interface{}{}})
	}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// Login обрабатывает POST /auth/login
// 1. Декодирует логин и пароль из тела запроса
// 2. Проверяет учетные данные; при неудаче возвращает 401
// 3. Создаёт сессию, ставит cookie и возвращает идентичность
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Login    string `json:"login"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponse{1, "invalid request body", map[string]interface{}{}})
		return
	}
	user, err := h.users.Authenticate(r.Context(), req.Login, req.Password)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	token, err := h.sessions.Create(r.Context(), user)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
	})
	writeJSON(w, model.Identity{UserID: user.ID, Name: user.Name, Role: user.Role})
}

// Logout обрабатывает POST /auth/logout: удаляет сессию и гасит cookie
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(sessionCookie); err == nil {
		if err := h.sessions.Destroy(r.Context(), cookie.Value); err != nil {
			writeServiceError(w, err)
			return
		}
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	writeJSON(w, map[string]interface{}{"status": "ok"})
}

// CreateProduct обрабатывает POST /product/create
// 1. Декодирует тело запроса с полями name, quantity и minQuantity
// 2. Валидирует имя и неотрицательность количеств; minQuantity по умолчанию 1
// 3. Вызывает сервис CreateProduct от имени текущей идентичности
// 4. Возвращает JSON созданного товара
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFromContext(r.Context())
	var req struct {
		Name        string `json:"name"`
		Quantity    *int   `json:"quantity"`
		MinQuantity *int   `json:"minQuantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponse{1, "invalid request body", map[string]interface{}{}})
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, ErrorResponse{1, "name cannot be empty", map[string]interface{}{}})
		return
	}
	quantity := 0
	if req.Quantity != nil {
		quantity = *req.Quantity
	}
	// минимальный порог по умолчанию 1
	minQuantity := 1
	if req.MinQuantity != nil {
		minQuantity = *req.MinQuantity
	}
	if quantity < 0 || minQuantity < 0 {
		writeError(w, http.StatusBadRequest, ErrorResponse{1, "quantity cannot be negative", map[string]interface{}{}})
		return
	}
	product, err := h.inventory.CreateProduct(r.Context(), req.Name, quantity, minQuantity, identity)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, product)
}

// GetProduct обрабатывает GET /product/get
// Парсит id из query и возвращает JSON товара либо 404
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, ErrorResponse{1, "invalid id", map[string]interface{}{}})
		return
	}
	product, err := h.inventory.GetProduct(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, product)
}

// RemoveProduct обрабатывает DELETE /product/remove
// Повторное удаление того же id возвращает 404
func (h *Handler) RemoveProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, ErrorResponse{1, "invalid id", map[string]interface{}{}})
		return
	}
	if err := h.inventory.DeleteProduct(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, map[string]interface{}{"id": id, "removed": true})
}

// ListProducts обрабатывает GET /products/list
// 1. Читает optional параметры limit, offset (по умолчанию 10 и 0)
// 2. Возвращает JSON с полем meta (total, lowStock, limit, offset) и массивом products
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	limit, offset := 10, 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			limit = i
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			offset = i
		}
	}
	products, total, lowStock, err := h.inventory.ListProducts(r.Context(), limit, offset)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	resp := struct {
		Meta struct {
			Total    int `json:"total"`
			LowStock int `json:"lowStock"`
			Limit    int `json:"limit"`
			Offset   int `json:"offset"`
		} `json:"meta"`
		Products []model.Product `json:"products"`
	}{Products: products}
	resp.Meta.Total = total
	resp.Meta.LowStock = lowStock
	resp.Meta.Limit = limit
	resp.Meta.Offset = offset
	writeJSON(w, resp)
}

// ApplyMovement обрабатывает POST /movement/apply
// 1. Декодирует productId, kind и quantity из тела запроса
// 2. Валидирует вид движения и положительность количества
// 3. Вызывает сервис ApplyMovement от имени текущей идентичности
// 4. При недостатке остатка возвращает 409, состояние не меняется
func (h *Handler) ApplyMovement(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFromContext(r.Context())
	var req struct {
		ProductID int                `json:"productId"`
		Kind      model.MovementKind `json:"kind"`
		Quantity  int                `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponse{1, "invalid request body", map[string]interface{}{}})
		return
	}
	if req.ProductID <= 0 {
		writeError(w, http.StatusBadRequest, ErrorResponse{1, "invalid productId", map[string]interface{}{}})
		return
	}
	if !req.Kind.Valid() {
		writeError(w, http.StatusBadRequest, ErrorResponse{1, "invalid movement kind", map[string]interface{}{}})
		return
	}
	if req.Quantity <= 0 {
		writeError(w, http.StatusBadRequest, ErrorResponse{1, "quantity must be positive", map[string]interface{}{}})
		return
	}
	movement, err := h.inventory.ApplyMovement(r.Context(), req.ProductID, req.Kind, req.Quantity, identity)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, movement)
}

// ListMovements обрабатывает GET /movements/list
// Возвращает JSON-массив записей журнала, самые свежие первыми
func (h *Handler) ListMovements(w http.ResponseWriter, r *http.Request) {
	movements, err := h.inventory.ListMovements(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, map[string]interface{}{"movements": movements})
}

// CreateUser обрабатывает POST /user/create (только admin)
// 1. Декодирует name, login, password и role из тела запроса
// 2. Вызывает сервис Create; занятый логин даёт 409, неизвестная роль — 400
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string     `json:"name"`
		Login    string     `json:"login"`
		Password string     `json:"password"`
		Role     model.Role `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponse{1, "invalid request body", map[string]interface{}{}})
		return
	}
	user, err := h.users.Create(r.Context(), req.Name, req.Login, req.Password, req.Role)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, user)
}

// RemoveUser обрабатывает DELETE /user/remove (только admin)
// Журнал движений удалённого пользователя сохраняется
func (h *Handler) RemoveUser(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, ErrorResponse{1, "invalid id", map[string]interface{}{}})
		return
	}
	if err := h.users.Delete(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, map[string]interface{}{"id": id, "removed": true})
}

// SetUserRole обрабатывает PATCH /user/role (только admin)
// 1. Парсит id из query и новую роль из тела запроса
// 2. Вызывает сервис SetRole и возвращает обновлённого пользователя
func (h *Handler) SetUserRole(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, ErrorResponse{1, "invalid id", map[string]interface{}{}})
		return
	}
	var req struct {
		Role model.Role `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponse{1, "invalid request body", map[string]interface{}{}})
		return
	}
	user, err := h.users.SetRole(r.Context(), id, req.Role)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, user)
}

// ListUsers обрабатывает GET /users/list (только admin)
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.List(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, map[string]interface{}{"users": users})
}

// Healthz возвращает статус работы сервиса
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// Readyz возвращает готовность сервиса
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ready"}`))
}

// parseID извлекает и валидирует id из query parameters
// ok=false при ошибке парсинга или если значение <=0
func parseID(r *http.Request) (int, bool) {
	id, err := strconv.Atoi(r.URL.Query().Get("id"))
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
