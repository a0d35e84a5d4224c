// Package middleware содержит HTTP middleware админ-сервиса.
package middleware

import (
	"context"
	"crypto/rand"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mmeshcher/escrowadmin-system/internal/model"
)

type contextKey string

const operatorKey contextKey = "operator"

// TokenTTL — срок действия сессионного токена оператора.
const TokenTTL = 24 * time.Hour

// Operator содержит данные сессии оператора, извлечённые из токена.
type Operator struct {
	ID   string
	Role model.Role
}

// AuthMiddleware выполняет проверку аутентификации оператора по bearer-токену.
type AuthMiddleware struct {
	secretKey []byte
}

// NewAuthMiddleware создаёт новый экземпляр AuthMiddleware с указанным секретным ключом.
func NewAuthMiddleware(secret string) *AuthMiddleware {
	key := []byte(secret)
	if len(key) == 0 {
		randomKey := make([]byte, 32)
		if _, err := rand.Read(randomKey); err == nil {
			key = randomKey
		} else {
			key = []byte("default-secret-key")
		}
	}

	return &AuthMiddleware{
		secretKey: key,
	}
}

// IssueToken выпускает подписанный сессионный токен для оператора.
func (a *AuthMiddleware) IssueToken(operatorID string, role model.Role) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"operator_id": operatorID,
		"role":        string(role),
		"iat":         now.Unix(),
		"exp":         now.Add(TokenTTL).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString(a.secretKey)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	return signed, nil
}

// VerifyToken проверяет подпись и срок действия токена и возвращает данные сессии.
func (a *AuthMiddleware) VerifyToken(tokenString string) (Operator, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.secretKey, nil
	})
	if err != nil {
		return Operator{}, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return Operator{}, fmt.Errorf("invalid token")
	}

	operatorID, ok := claims["operator_id"].(string)
	if !ok || operatorID == "" {
		return Operator{}, fmt.Errorf("invalid operator_id in token")
	}

	roleStr, ok := claims["role"].(string)
	if !ok {
		return Operator{}, fmt.Errorf("invalid role in token")
	}

	role := model.Role(roleStr)
	if !role.Valid() {
		return Operator{}, fmt.Errorf("invalid role %q in token", roleStr)
	}

	return Operator{ID: operatorID, Role: role}, nil
}

// Middleware проверяет bearer-токен и добавляет данные оператора в контекст запроса.
func (a *AuthMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}

		operator, err := a.VerifyToken(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), operatorKey, operator)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetOperatorFromContext извлекает данные оператора из контекста запроса.
func GetOperatorFromContext(ctx context.Context) (Operator, bool) {
	op, ok := ctx.Value(operatorKey).(Operator)
	return op, ok
}
