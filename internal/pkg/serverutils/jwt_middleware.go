package serverutils

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

const (
	LocalAccountID = "account_id"
	LocalUserEmail = "user_email"
)

// AppClaims identify a signed-in Microsoft account inside the app token.
type AppClaims struct {
	AccountID string `json:"account_id"`
	Email     string `json:"email"`
	jwt.RegisteredClaims
}

func IssueToken(secret []byte, accountID, email string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := AppClaims{
		AccountID: accountID,
		Email:     email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

func ParseToken(secret []byte, tokenStr string) (*AppClaims, error) {
	claims := &AppClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if !token.Valid || claims.AccountID == "" {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// BearerToken reads the Authorization header, falling back to the "token"
// query parameter for websocket handshakes.
func BearerToken(ctx *fiber.Ctx) string {
	authHeader := ctx.Get("Authorization")
	if len(authHeader) > 7 && authHeader[:7] == "Bearer " {
		return authHeader[7:]
	}
	return ctx.Query("token")
}

func JwtMiddleware(secret []byte) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		tokenStr := BearerToken(ctx)
		if tokenStr == "" {
			return ctx.Status(fiber.StatusUnauthorized).JSON(ErrorResponse(fiber.StatusUnauthorized, "Missing token"))
		}
		claims, err := ParseToken(secret, tokenStr)
		if err != nil {
			return ctx.Status(fiber.StatusUnauthorized).JSON(ErrorResponse(fiber.StatusUnauthorized, "Invalid token"))
		}
		ctx.Locals(LocalAccountID, claims.AccountID)
		ctx.Locals(LocalUserEmail, claims.Email)
		return ctx.Next()
	}
}

// CurrentUser returns the identity JwtMiddleware stored on the request.
func CurrentUser(ctx *fiber.Ctx) (accountID, email string) {
	accountID, _ = ctx.Locals(LocalAccountID).(string)
	email, _ = ctx.Locals(LocalUserEmail).(string)
	return accountID, email
}
