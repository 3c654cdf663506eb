package serverutils

import (
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var secret = []byte("test-secret")

func protectedApp() *fiber.App {
	app := fiber.New()
	app.Use(ErrorHandlerMiddleware())
	app.Get("/me", JwtMiddleware(secret), func(c *fiber.Ctx) error {
		account, email := CurrentUser(c)
		return c.JSON(fiber.Map{"account": account, "email": email})
	})
	app.Get("/boom", func(c *fiber.Ctx) error {
		return errors.New("boom")
	})
	app.Get("/missing", func(c *fiber.Ctx) error {
		return fiber.ErrNotFound
	})
	return app
}

func TestJwtMiddleware(t *testing.T) {
	app := protectedApp()
	token, err := IssueToken(secret, "oid-1", "a@corp.com", time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		query  string
		status int
	}{
		{"header", "Bearer " + token, "", fiber.StatusOK},
		{"query", "", "?token=" + token, fiber.StatusOK},
		{"missing", "", "", fiber.StatusUnauthorized},
		{"garbage", "Bearer abc", "", fiber.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/me"+tt.query, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)
			if tt.status == fiber.StatusOK {
				var body map[string]string
				require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
				assert.Equal(t, "oid-1", body["account"])
				assert.Equal(t, "a@corp.com", body["email"])
			}
		})
	}
}

func TestParseTokenRejects(t *testing.T) {
	expired, err := IssueToken(secret, "oid-1", "a@corp.com", -time.Minute)
	require.NoError(t, err)
	_, err = ParseToken(secret, expired)
	assert.Error(t, err)

	other, err := IssueToken([]byte("other"), "oid-1", "a@corp.com", time.Hour)
	require.NoError(t, err)
	_, err = ParseToken(secret, other)
	assert.Error(t, err)
}

func TestErrorHandlerEnvelope(t *testing.T) {
	app := protectedApp()

	resp, err := app.Test(httptest.NewRequest("GET", "/boom", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.JSONEq(t, `{"success":false,"code":500,"message":"boom"}`, string(body))

	resp, err = app.Test(httptest.NewRequest("GET", "/missing", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestValidateStruct(t *testing.T) {
	type req struct {
		Name string `validate:"required"`
		Age  int    `validate:"min=1"`
	}
	assert.NoError(t, ValidateStruct(req{Name: "a", Age: 2}))

	err := ValidateStruct(req{})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, []string{"Name (required)", "Age (min)"}, ve.Fields)
}
