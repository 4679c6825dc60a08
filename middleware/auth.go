package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/Reviahh/GoblinCave-CMS-backend-sub000/models"
	"github.com/golang-jwt/jwt/v4"
)

type contextKey string

const userContextKey contextKey = "current_user"

const (
	jwtClaimUserID = "user_id"
	jwtClaimRole   = "role"
)

var ErrNoCurrentUser = errors.New("current user not found in context")

// Authenticate разбирает Bearer-токен и кладёт CurrentUser в контекст.
// Роль и id разрешаются здесь один раз; сервисы получают актора явно.
func Authenticate(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				http.Error(w, "missing or malformed authorization header", http.StatusUnauthorized)
				return
			}
			tokenString := strings.TrimPrefix(header, "Bearer ")

			claims := jwt.MapClaims{}
			token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, errors.New("unexpected signing method")
				}
				return secret, nil
			})
			if err != nil || !token.Valid {
				http.Error(w, "invalid or expired token", http.StatusUnauthorized)
				return
			}

			user, err := currentUserFromClaims(claims)
			if err != nil {
				http.Error(w, "invalid token claims", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), userContextKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func currentUserFromClaims(claims jwt.MapClaims) (models.CurrentUser, error) {
	idClaim, ok := claims[jwtClaimUserID]
	if !ok {
		return models.CurrentUser{}, errors.New("missing user_id claim")
	}
	idFloat, ok := idClaim.(float64)
	if !ok || idFloat != float64(int(idFloat)) || int(idFloat) <= 0 {
		return models.CurrentUser{}, errors.New("invalid user_id claim")
	}

	roleClaim, ok := claims[jwtClaimRole]
	if !ok {
		return models.CurrentUser{}, errors.New("missing role claim")
	}
	roleStr, ok := roleClaim.(string)
	if !ok {
		return models.CurrentUser{}, errors.New("invalid role claim")
	}
	role := models.UserRole(roleStr)
	switch role {
	case models.RoleParticipant, models.RoleOrganizer, models.RoleAdmin:
	default:
		return models.CurrentUser{}, errors.New("unknown role claim")
	}

	return models.CurrentUser{ID: int(idFloat), Role: role}, nil
}

// RequireRole пропускает запрос только для перечисленных ролей.
func RequireRole(roles ...models.UserRole) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := CurrentUserFromContext(r.Context())
			if err != nil {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			for _, role := range roles {
				if user.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			http.Error(w, "Forbidden", http.StatusForbidden)
		})
	}
}

func CurrentUserFromContext(ctx context.Context) (models.CurrentUser, error) {
	user, ok := ctx.Value(userContextKey).(models.CurrentUser)
	if !ok || user.IsZero() {
		return models.CurrentUser{}, ErrNoCurrentUser
	}
	return user, nil
}
