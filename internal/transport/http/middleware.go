package http

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"InventoryService/internal/model"
)

// sessionCookie — имя cookie с токеном сессии
const sessionCookie = "session_token"

// contextKey — собственный тип ключа контекста, чтобы не пересекаться с чужими ключами
type contextKey int

const identityKey contextKey = iota

// IdentityFromContext возвращает идентичность текущего запроса, если она установлена
// middleware аутентификации
func IdentityFromContext(ctx context.Context) (*model.Identity, bool) {
	identity, ok := ctx.Value(identityKey).(*model.Identity)
	return identity, ok
}

// SessionReader определяет минимальный интерфейс хранилища сессий для middleware
type SessionReader interface {
	Get(ctx context.Context, token string) (*model.Identity, error)
}

// AuthMiddleware проверяет наличие валидной сессии по cookie и кладёт идентичность
// в контекст запроса. Без сессии запрос завершается кодом 401.
func AuthMiddleware(sessions SessionReader) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(sessionCookie)
			if err != nil {
				writeError(w, http.StatusUnauthorized, ErrorResponse{2, "errors.auth.unauthenticated", map[string]interface{}{}})
				return
			}
			identity, err := sessions.Get(r.Context(), cookie.Value)
			if err != nil {
				writeError(w, http.StatusUnauthorized, ErrorResponse{2, "errors.auth.unauthenticated", map[string]interface{}{}})
				return
			}
			ctx := context.WithValue(r.Context(), identityKey, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AdminMiddleware пропускает только идентичности с ролью admin.
// Ставится после AuthMiddleware; не-администратор получает 403 без побочных эффектов.
func AdminMiddleware() mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := IdentityFromContext(r.Context())
			if !ok || !identity.IsAdmin() {
				writeError(w, http.StatusForbidden, ErrorResponse{2, "errors.auth.forbidden", map[string]interface{}{}})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// statusResponseWriter обёртка для http.ResponseWriter, чтобы захватывать статус-код
// и передавать его дальше
type statusResponseWriter struct {
	http.ResponseWriter
	status int
}

// WriteHeader сохраняет статус и вызывает оригинальный WriteHeader
func (w *statusResponseWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// LoggingMiddleware выводит в стандартный лог информацию о каждом HTTP-запросе и панике
func LoggingMiddleware() mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			srw := &statusResponseWriter{ResponseWriter: w, status: http.StatusOK}
			// обработка паники
			defer func() {
				if rec := recover(); rec != nil {
					dur := time.Since(start).Milliseconds()
					log.Printf("PANIC %s %s 500 %dms: %v", r.Method, r.URL.Path, dur, rec)
					panic(rec)
				}
			}()
			next.ServeHTTP(srw, r)
			dur := time.Since(start).Milliseconds()
			log.Printf("%s %s %d %dms", r.Method, r.URL.Path, srw.status, dur)
		})
	}
}
