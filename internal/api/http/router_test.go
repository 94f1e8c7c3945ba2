package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	nethttp "net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/helpdesk-service/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk-service/internal/assistant"
	"github.com/spec-kit/helpdesk-service/internal/audit"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/blobstore"
	"github.com/spec-kit/helpdesk-service/internal/clock"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/observability"
	"github.com/spec-kit/helpdesk-service/internal/repository/memory"
	"github.com/spec-kit/helpdesk-service/internal/service"
)

type stubAssistant struct {
	reply assistant.Reply
}

func (s stubAssistant) GenerateReply(context.Context, assistant.Request) (*assistant.Reply, error) {
	r := s.reply
	return &r, nil
}

type apiFixture struct {
	app     *fiber.App
	blobs   *blobstore.Memory
	metrics *observability.Metrics
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	ctx := context.Background()
	logger := zap.NewNop()
	store := memory.New()
	fake := clock.NewFake(time.Date(2025, 5, 2, 8, 0, 0, 0, time.UTC))
	recorder := audit.NewRecorder(audit.RecorderDependencies{Store: store, Clock: fake})
	passwords := auth.NewPasswords(bcrypt.MinCost)
	tokens := auth.NewTokenManager("router-test", 15)
	metrics := observability.NewMetrics()
	blobs := blobstore.NewMemory()

	directory := service.NewDirectoryService(service.DirectoryDependencies{Store: recorder, Passwords: passwords, Clock: fake})
	_, err := directory.CreateClient(ctx, service.NewClientInput{Name: "Ana", Email: "ana@example.com", Password: "ana-pass"})
	require.NoError(t, err)
	_, err = directory.CreateClient(ctx, service.NewClientInput{Name: "Bruno", Email: "bruno@example.com", Password: "bruno-pass"})
	require.NoError(t, err)
	_, err = directory.CreateAnalyst(ctx, service.NewAnalystInput{Name: "Carla", Email: "carla@example.com", Password: "carla-pass", Specialty: "Infra"})
	require.NoError(t, err)
	_, err = directory.CreateAnalyst(ctx, service.NewAnalystInput{Name: "Eva", Email: "eva@example.com", Password: "eva-pass", IsAdmin: true})
	require.NoError(t, err)

	tickets := service.NewTicketService(service.TicketDependencies{
		Store:      recorder,
		Assistant:  stubAssistant{reply: assistant.Reply{Text: "Try reconnecting."}},
		Blobs:      blobs,
		Dispatcher: events.NewInMemoryDispatcher(),
		Clock:      fake,
		Logger:     logger,
		Metrics:    metrics,
	})
	authService := service.NewAuthService(service.AuthDependencies{Store: store, Tokens: tokens, Passwords: passwords})

	app := fiber.New()
	RegisterMiddlewares(app, logger, metrics, 5*time.Second)
	RegisterRoutes(app, RouteConfig{
		Health:         handlers.NewHealthHandler("helpdesk-service", "test", nil, metrics),
		Auth:           handlers.NewAuthHandler(authService),
		Tickets:        handlers.NewTicketsHandler(tickets),
		StaffTickets:   handlers.NewStaffTicketsHandler(tickets),
		Admin:          handlers.NewAdminHandler(tickets),
		AuthMiddleware: auth.NewAuthMiddleware(tokens, store),
	})
	return &apiFixture{app: app, blobs: blobs, metrics: metrics}
}

func (f *apiFixture) do(t *testing.T, method, path, token string, body io.Reader, contentType string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set(fiber.HeaderContentType, contentType)
	}
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	resp, err := f.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := map[string]any{}
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}

func (f *apiFixture) json(t *testing.T, method, path, token string, payload any) (int, map[string]any) {
	t.Helper()
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}
	return f.do(t, method, path, token, body, fiber.MIMEApplicationJSON)
}

func (f *apiFixture) login(t *testing.T, who, email, password string) string {
	t.Helper()
	status, body := f.json(t, nethttp.MethodPost, "/auth/"+who+"/login", "", map[string]string{"email": email, "password": password})
	require.Equal(t, nethttp.StatusOK, status, body)
	return body["data"].(map[string]any)["auth"].(map[string]any)["token"].(string)
}

func errorCode(body map[string]any) string {
	e, _ := body["error"].(map[string]any)
	code, _ := e["code"].(string)
	return code
}

func createMultipart(t *testing.T, title, description string, files map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)
	require.NoError(t, w.WriteField("title", title))
	require.NoError(t, w.WriteField("description", description))
	for name, content := range files {
		part, err := w.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf, w.FormDataContentType()
}

func TestTicketFlowOverHTTP(t *testing.T) {
	f := newAPIFixture(t)
	ana := f.login(t, "clients", "ana@example.com", "ana-pass")
	carla := f.login(t, "analysts", "carla@example.com", "carla-pass")

	body, contentType := createMultipart(t, "VPN down", "cannot connect", map[string]string{"log.txt": "timeout"})
	status, created := f.do(t, nethttp.MethodPost, "/tickets", ana, body, contentType)
	require.Equal(t, nethttp.StatusCreated, status, created)
	data := created["data"].(map[string]any)
	assert.Equal(t, string(domain.TicketStatusOpenAI), data["status"])
	assert.Len(t, data["messages"], 3)
	assert.Len(t, data["attachments"], 1)
	assert.Equal(t, 1, f.blobs.Len())
	id := strconv.Itoa(int(data["id"].(float64)))

	status, listed := f.json(t, nethttp.MethodGet, "/tickets", ana, nil)
	require.Equal(t, nethttp.StatusOK, status)
	assert.Len(t, listed["data"], 1)

	status, msgs := f.json(t, nethttp.MethodPost, "/tickets/"+id+"/messages", ana, map[string]string{"content": "still broken"})
	require.Equal(t, nethttp.StatusCreated, status, msgs)
	assert.Len(t, msgs["data"], 5)

	status, msgs = f.json(t, nethttp.MethodPost, "/staff/tickets/"+id+"/messages", carla, map[string]string{"content": "Looking into it"})
	require.Equal(t, nethttp.StatusCreated, status, msgs)
	assert.Len(t, msgs["data"], 6)

	status, detail := f.json(t, nethttp.MethodGet, "/staff/tickets/"+id, carla, nil)
	require.Equal(t, nethttp.StatusOK, status)
	d := detail["data"].(map[string]any)
	assert.Equal(t, true, d["analyst_engaged"])
	assert.Equal(t, "Carla", d["analyst_name"])

	status, mine := f.json(t, nethttp.MethodGet, "/staff/tickets/mine", carla, nil)
	require.Equal(t, nethttp.StatusOK, status)
	assert.Len(t, mine["data"], 1)

	status, updated := f.json(t, nethttp.MethodPut, "/staff/tickets/"+id, carla, map[string]any{
		"status":   "COMPLETED",
		"priority": "HIGH",
		"team_tag": "network",
	})
	require.Equal(t, nethttp.StatusOK, status, updated)
	u := updated["data"].(map[string]any)
	assert.Equal(t, "COMPLETED", u["status"])
	assert.NotNil(t, u["completed_at"])
	assert.Nil(t, u["analyst_id"])

	status, report := f.json(t, nethttp.MethodGet, "/staff/reports/status", carla, nil)
	require.Equal(t, nethttp.StatusOK, status)
	data = report["data"].(map[string]any)
	assert.Equal(t, []any{map[string]any{"status": "COMPLETED", "count": float64(1)}}, data["by_status"])
	assert.Equal(t, float64(0), data["open_total"])
	assert.Equal(t, []any{}, data["open_by_priority"])
	assert.Equal(t, []any{}, data["recent_open"])
	assert.NotEmpty(t, data["recent_since"])
}

func TestAuthorizationOverHTTP(t *testing.T) {
	f := newAPIFixture(t)
	ana := f.login(t, "clients", "ana@example.com", "ana-pass")
	bruno := f.login(t, "clients", "bruno@example.com", "bruno-pass")
	carla := f.login(t, "analysts", "carla@example.com", "carla-pass")
	eva := f.login(t, "analysts", "eva@example.com", "eva-pass")

	status, created := f.json(t, nethttp.MethodPost, "/tickets", ana, map[string]string{"title": "Printer", "description": "jammed"})
	require.Equal(t, nethttp.StatusCreated, status, created)
	id := strconv.Itoa(int(created["data"].(map[string]any)["id"].(float64)))

	status, body := f.json(t, nethttp.MethodGet, "/tickets", "", nil)
	assert.Equal(t, nethttp.StatusUnauthorized, status)
	assert.Equal(t, "UNAUTHORIZED", errorCode(body))

	status, body = f.json(t, nethttp.MethodGet, "/tickets", "garbage", nil)
	assert.Equal(t, nethttp.StatusUnauthorized, status)

	status, body = f.json(t, nethttp.MethodGet, "/tickets/"+id, bruno, nil)
	assert.Equal(t, nethttp.StatusForbidden, status)
	assert.Equal(t, "FORBIDDEN", errorCode(body))

	status, _ = f.json(t, nethttp.MethodGet, "/staff/tickets", ana, nil)
	assert.Equal(t, nethttp.StatusForbidden, status)

	status, _ = f.json(t, nethttp.MethodDelete, "/admin/tickets/"+id, carla, nil)
	assert.Equal(t, nethttp.StatusForbidden, status)

	status, body = f.json(t, nethttp.MethodGet, "/tickets/abc", ana, nil)
	assert.Equal(t, nethttp.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_FAILED", errorCode(body))

	status, body = f.json(t, nethttp.MethodGet, "/staff/tickets/9999", carla, nil)
	assert.Equal(t, nethttp.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", errorCode(body))

	status, body = f.json(t, nethttp.MethodPost, "/auth/clients/login", "", map[string]string{"email": "ana@example.com", "password": "nope"})
	assert.Equal(t, nethttp.StatusUnauthorized, status)

	status, body = f.json(t, nethttp.MethodGet, "/admin/audit?entity=tickets&key="+id, eva, nil)
	require.Equal(t, nethttp.StatusOK, status)
	entries := body["data"].([]any)
	require.Len(t, entries, 1)
	assert.Equal(t, "client:1", entries[0].(map[string]any)["actor_id"])

	status, _ = f.json(t, nethttp.MethodDelete, "/admin/tickets/"+id, eva, nil)
	assert.Equal(t, nethttp.StatusNoContent, status)
	status, _ = f.json(t, nethttp.MethodGet, "/tickets/"+id, ana, nil)
	assert.Equal(t, nethttp.StatusNotFound, status)
}

func TestHealthAndMetrics(t *testing.T) {
	f := newAPIFixture(t)

	status, body := f.json(t, nethttp.MethodGet, "/health/live", "", nil)
	assert.Equal(t, nethttp.StatusOK, status)
	assert.Equal(t, "alive", body["status"])

	status, body = f.json(t, nethttp.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, nethttp.StatusOK, status)
	assert.Equal(t, "ready", body["status"])

	status, body = f.json(t, nethttp.MethodGet, "/nowhere", "", nil)
	assert.Equal(t, nethttp.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", errorCode(body))

	f.json(t, nethttp.MethodGet, "/tickets", "", nil)
	status, body = f.json(t, nethttp.MethodGet, "/metrics", "", nil)
	assert.Equal(t, nethttp.StatusOK, status)
	raw, err := json.Marshal(body["data"])
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(raw), "UNAUTHORIZED"), string(raw))
}
