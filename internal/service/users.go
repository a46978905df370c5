package service

import (
	"context"
	"errors"

	"golang.org/x/crypto/bcrypt"

	"InventoryService/internal/model"
	"InventoryService/internal/repository"
)

// ErrInvalidRole возвращается при неизвестной роли пользователя
var ErrInvalidRole = errors.New("invalid role")

// ErrInvalidCredentials возвращается при неверном логине или пароле.
// Неизвестный логин и неверный пароль для вызывающего неразличимы.
var ErrInvalidCredentials = errors.New("invalid login or password")

// UserRepo определяет интерфейс репозитория для учетных записей
type UserRepo interface {
	CreateUser(ctx context.Context, name, login, passwordHash string, role model.Role) (*model.User, error)
	GetUser(ctx context.Context, id int) (*model.User, error)
	GetUserByLogin(ctx context.Context, login string) (*model.User, error)
	DeleteUser(ctx context.Context, id int) error
	UpdateRole(ctx context.Context, id int, role model.Role) (*model.User, error)
	ListUsers(ctx context.Context) ([]model.User, error)
}

// UserService реализует бизнес-логику учетных записей:
// - валидация роли и обязательных полей
// - хеширование паролей (bcrypt) вместо хранения в открытом виде
// - проверка учетных данных при входе
type UserService struct {
	repo UserRepo
}

// NewUserService создаёт новый сервис учетных записей
func NewUserService(r UserRepo) *UserService {
	return &UserService{repo: r}
}

// Create создаёт нового пользователя:
// 1. Валидирует роль и обязательные поля
// 2. Хеширует пароль bcrypt
// 3. Вызывает CreateUser репозитория (занятый логин даёт ErrLoginTaken)
func (s *UserService) Create(ctx context.Context, name, login, password string, role model.Role) (*model.User, error) {
	if name == "" || login == "" {
		return nil, errors.New("name and login cannot be empty")
	}
	if password == "" {
		return nil, errors.New("password cannot be empty")
	}
	if !role.Valid() {
		return nil, ErrInvalidRole
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	return s.repo.CreateUser(ctx, name, login, string(hash), role)
}

// Delete удаляет пользователя; записи журнала движений сохраняются
func (s *UserService) Delete(ctx context.Context, id int) error {
	return s.repo.DeleteUser(ctx, id)
}

// SetRole изменяет роль пользователя после валидации нового значения
func (s *UserService) SetRole(ctx context.Context, id int, role model.Role) (*model.User, error) {
	if !role.Valid() {
		return nil, ErrInvalidRole
	}
	return s.repo.UpdateRole(ctx, id, role)
}

// List возвращает всех пользователей
func (s *UserService) List(ctx context.Context) ([]model.User, error) {
	return s.repo.ListUsers(ctx)
}

// Authenticate проверяет учетные данные:
// 1. Ищет пользователя по точному логину
// 2. Сравнивает bcrypt-хеш с переданным паролем
// Обе неудачи сворачиваются в ErrInvalidCredentials
func (s *UserService) Authenticate(ctx context.Context, login, password string) (*model.User, error) {
	user, err := s.repo.GetUserByLogin(ctx, login)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// EnsureAdmin создаёт учетную запись администратора по умолчанию, если логин свободен.
// Вызывается при старте приложения, чтобы в пустой базе был хотя бы один администратор.
func (s *UserService) EnsureAdmin(ctx context.Context, name, login, password string) error {
	if _, err := s.repo.GetUserByLogin(ctx, login); err == nil {
		return nil
	}
	_, err := s.Create(ctx, name, login, password, model.RoleAdmin)
	if errors.Is(err, repository.ErrLoginTaken) {
		// параллельный старт уже создал администратора
		return nil
	}
	return err
}
