package middleware

import (
	"context"
	"net/http"
	"strconv"

	"github.com/m04kA/SMC-SchedulingService/internal/api/handlers"
	"github.com/m04kA/SMC-SchedulingService/internal/domain"
)

// Заголовки, которые выставляет gateway после аутентификации
const (
	HeaderUserID   = "X-User-ID"
	HeaderUserRole = "X-User-Role"
)

const (
	msgMissingUserID   = "отсутствует ID пользователя"
	msgInvalidUserID   = "некорректный ID пользователя"
	msgInvalidUserRole = "некорректная роль пользователя"
)

type actorKey struct{}

// Auth извлекает пользователя из заголовков X-User-ID и X-User-Role.
// Роль payment заголовком получить нельзя.
func Auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rawID := r.Header.Get(HeaderUserID)
		if rawID == "" {
			handlers.RespondUnauthorized(w, msgMissingUserID)
			return
		}

		userID, err := strconv.ParseInt(rawID, 10, 64)
		if err != nil || userID <= 0 {
			handlers.RespondUnauthorized(w, msgInvalidUserID)
			return
		}

		role, err := domain.ParseActorRole(r.Header.Get(HeaderUserRole))
		if err != nil {
			handlers.RespondUnauthorized(w, msgInvalidUserRole)
			return
		}

		ctx := WithActor(r.Context(), domain.Actor{Role: role, UserID: userID})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// WithActor кладет пользователя в контекст
func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// GetActor возвращает пользователя, установленного Auth
func GetActor(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorKey{}).(domain.Actor)
	return actor, ok
}
