package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"echo-assistant-be/internal/dto"
	"echo-assistant-be/internal/pkg/logger"
	"echo-assistant-be/internal/pkg/serverutils"
	"echo-assistant-be/internal/service"
	internalWS "echo-assistant-be/internal/websocket"
	"echo-assistant-be/pkg/graph"
	"echo-assistant-be/pkg/selection"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var secret = []byte("controller-secret")

type fakeChat struct {
	service.IChatService
	got    *dto.ChatRequest
	caller service.Caller
}

func (f *fakeChat) Chat(ctx context.Context, c service.Caller, req *dto.ChatRequest) (*dto.ChatResponse, error) {
	f.got, f.caller = req, c
	return &dto.ChatResponse{Reply: selection.Reply{Response: "ok", Intent: selection.IntentGeneral}, ChatId: "42"}, nil
}

func (f *fakeChat) Messages(ctx context.Context, c service.Caller, chatID string) (*dto.ChatMessagesResponse, error) {
	return &dto.ChatMessagesResponse{Messages: []dto.ChatMessageResponse{{Sender: "You", Message: chatID}}}, nil
}

type fakeHR struct {
	uploaded string
	content  string
	deleted  string
}

func (f *fakeHR) IsAdmin(email string) bool { return email == "hr@corp.com" }
func (f *fakeHR) AdminEmails() []string     { return []string{"hr@corp.com"} }
func (f *fakeHR) List(ctx context.Context) (*dto.HRDocumentListResponse, error) {
	return &dto.HRDocumentListResponse{Files: []dto.HRDocumentResponse{{Name: "a.pdf"}}}, nil
}
func (f *fakeHR) Upload(ctx context.Context, actor, name string, r io.Reader) (*dto.HRDocumentResponse, error) {
	data, _ := io.ReadAll(r)
	f.uploaded, f.content = name, string(data)
	return &dto.HRDocumentResponse{Name: name, Uploader: actor}, nil
}
func (f *fakeHR) Delete(ctx context.Context, actor, name string) error {
	if actor != "hr@corp.com" {
		return service.ErrNotHRAdmin
	}
	f.deleted = name
	return nil
}

type fakeAuth struct{}

func (fakeAuth) LoginURL(state string) string { return "https://login.microsoftonline.com/authorize?state=" + state }
func (fakeAuth) HandleCallback(ctx context.Context, code string) (*dto.LoginResult, error) {
	if code == "blocked" {
		return nil, service.ErrDomainNotAllowed
	}
	return &dto.LoginResult{AccessToken: "jwt", UserEmail: "a@corp.com"}, nil
}
func (fakeAuth) Credential(ctx context.Context, accountID string) (*graph.Credential, error) {
	return nil, nil
}
func (fakeAuth) Logout(ctx context.Context, accountID string) error { return nil }

func newApp(chat *fakeChat, hr *fakeHR) *fiber.App {
	app := fiber.New()
	app.Use(serverutils.ErrorHandlerMiddleware())
	auth := serverutils.JwtMiddleware(secret)
	hub := internalWS.NewHub(nil, logger.NewNopLogger())
	NewAuthController(fakeAuth{}, chat, hr, "http://front", logger.NewNopLogger()).RegisterRoutes(app, auth)
	NewChatController(chat, hub, logger.NewNopLogger()).RegisterRoutes(app, auth)
	NewHRDocumentController(hr).RegisterRoutes(app, auth)
	NewAdminController(hr, logger.NewNopLogger()).RegisterRoutes(app, auth)
	return app
}

func bearer(t *testing.T, email string) string {
	t.Helper()
	token, err := serverutils.IssueToken(secret, "acc-1", email, time.Hour)
	require.NoError(t, err)
	return "Bearer " + token
}

func TestChatEndpoint(t *testing.T) {
	chat := &fakeChat{}
	app := newApp(chat, &fakeHR{})

	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{"message":"hi","selectionStage":true,"selectedIndices":[1,3],"chat_id":"42"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", bearer(t, "a@corp.com"))
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["response"])
	assert.Equal(t, "42", body["chat_id"])
	assert.Equal(t, []int{1, 3}, chat.got.SelectedIndices)
	assert.Equal(t, service.Caller{AccountID: "acc-1", Email: "a@corp.com"}, chat.caller)
}

func TestChatEndpointValidation(t *testing.T) {
	app := newApp(&fakeChat{}, &fakeHR{})

	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{"message":"x","selectedIndices":[0]}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", bearer(t, "a@corp.com"))
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestChatRequiresToken(t *testing.T) {
	app := newApp(&fakeChat{}, &fakeHR{})
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/messages/1", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestMessagesEndpoint(t *testing.T) {
	app := newApp(&fakeChat{}, &fakeHR{})
	req := httptest.NewRequest(http.MethodGet, "/api/messages/1700000000", nil)
	req.Header.Set("Authorization", bearer(t, "a@corp.com"))
	resp, err := app.Test(req)
	require.NoError(t, err)

	var body dto.ChatMessagesResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Messages, 1)
	assert.Equal(t, "1700000000", body.Messages[0].Message)
}

func TestLoginSetsStateAndRedirects(t *testing.T) {
	app := newApp(&fakeChat{}, &fakeHR{})
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/login", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusFound, resp.StatusCode)

	var state string
	for _, c := range resp.Cookies() {
		if c.Name == stateCookie {
			state = c.Value
		}
	}
	require.NotEmpty(t, state)
	assert.Contains(t, resp.Header.Get("Location"), "state="+state)
}

func TestCallback(t *testing.T) {
	app := newApp(&fakeChat{}, &fakeHR{})

	tests := []struct {
		name     string
		query    string
		cookie   string
		status   int
		location string
	}{
		{"state mismatch", "?code=c&state=a", "b", http.StatusBadRequest, ""},
		{"missing code", "?state=a", "a", http.StatusBadRequest, ""},
		{"domain blocked", "?code=blocked&state=a", "a", http.StatusForbidden, ""},
		{"provider error", "?error=access_denied", "", http.StatusBadRequest, ""},
		{"ok", "?code=c&state=a", "a", http.StatusFound, "http://front/auth/callback?email=a%40corp.com&token=jwt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/getAToken"+tt.query, nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: stateCookie, Value: tt.cookie})
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)
			if tt.location != "" {
				assert.Equal(t, tt.location, resp.Header.Get("Location"))
			}
		})
	}
}

func TestAdminEmails(t *testing.T) {
	app := newApp(&fakeChat{}, &fakeHR{})
	req := httptest.NewRequest(http.MethodGet, "/admin_emails", nil)
	req.Header.Set("Authorization", bearer(t, "a@corp.com"))
	resp, err := app.Test(req)
	require.NoError(t, err)

	var body serverutils.Response[dto.AdminEmailsResponse]
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, []string{"hr@corp.com"}, body.Data.AdminEmails)
}

func uploadRequest(t *testing.T, email, name, content string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, w.WriteField("metadata", `{"uploader":"spoofed@corp.com"}`))
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload_hr_doc", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", bearer(t, email))
	return req
}

func TestUploadHRDocument(t *testing.T) {
	hr := &fakeHR{}
	app := newApp(&fakeChat{}, hr)

	resp, err := app.Test(uploadRequest(t, "hr@corp.com", "policy.txt", "leave rules"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "policy.txt", hr.uploaded)
	assert.Equal(t, "leave rules", hr.content)

	resp, err = app.Test(uploadRequest(t, "a@corp.com", "policy.txt", "x"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestDeleteHRDocument(t *testing.T) {
	hr := &fakeHR{}
	app := newApp(&fakeChat{}, hr)

	req := httptest.NewRequest(http.MethodDelete, "/api/hr_documents", strings.NewReader(`{"filename":"a.pdf"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", bearer(t, "hr@corp.com"))
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "a.pdf", hr.deleted)

	req = httptest.NewRequest(http.MethodDelete, "/api/hr_documents", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", bearer(t, "hr@corp.com"))
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAdminLogsForbiddenForNonAdmin(t *testing.T) {
	app := newApp(&fakeChat{}, &fakeHR{})
	req := httptest.NewRequest(http.MethodGet, "/api/admin/logs", nil)
	req.Header.Set("Authorization", bearer(t, "a@corp.com"))
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	req = httptest.NewRequest(http.MethodGet, "/api/admin/logs", nil)
	req.Header.Set("Authorization", bearer(t, "hr@corp.com"))
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
