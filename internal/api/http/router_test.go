package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	stdhttp "net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/chat-platform/internal/api/http/handlers"
	"github.com/spec-kit/chat-platform/internal/auth"
	"github.com/spec-kit/chat-platform/internal/events"
	"github.com/spec-kit/chat-platform/internal/llm"
	"github.com/spec-kit/chat-platform/internal/observability"
	"github.com/spec-kit/chat-platform/internal/repository/repotest"
	"github.com/spec-kit/chat-platform/internal/service"
	"github.com/spec-kit/chat-platform/internal/storage"
)

type stubCompleter struct {
	mu    sync.Mutex
	reply string
	err   error
	calls [][]llm.Message
}

func (s *stubCompleter) Complete(_ context.Context, messages []llm.Message) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, messages)
	if s.err != nil {
		return "", s.err
	}
	return s.reply, nil
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

type testServer struct {
	app       *fiber.App
	store     *repotest.Store
	completer *stubCompleter
	now       time.Time
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	srv := &testServer{
		store:     repotest.NewStore(),
		completer: &stubCompleter{reply: "hello from the model"},
		now:       time.Now(),
	}
	logger := zap.NewNop()
	metrics := observability.NewMetrics()
	tokens := auth.NewTokenManager("test-secret", 30*time.Minute).WithClock(func() time.Time { return srv.now })
	dispatcher := events.NewInMemoryDispatcher()

	blobs, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)

	authService := service.NewAuthService(service.AuthDependencies{
		UserRepo:   srv.store.Users(),
		Hasher:     auth.NewPasswordHasher(bcrypt.MinCost),
		Tokens:     tokens,
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	projectService := service.NewProjectService(service.ProjectDependencies{
		ProjectRepo: srv.store.Projects(),
		PromptRepo:  srv.store.Prompts(),
		FileRepo:    srv.store.Files(),
		Blobs:       blobs,
		Logger:      logger,
	})
	chatService := service.NewChatService(service.ChatDependencies{
		ProjectRepo: srv.store.Projects(),
		PromptRepo:  srv.store.Prompts(),
		MessageRepo: srv.store.Messages(),
		Completer:   srv.completer,
		Dispatcher:  dispatcher,
		Logger:      logger,
	})
	fileService := service.NewFileService(srv.store.Projects(), srv.store.Files(), blobs, 1024, logger)

	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(logger, metrics)})
	RegisterMiddlewares(app, logger, metrics, 5*time.Second)
	RegisterRoutes(app, RouteConfig{
		Health: handlers.NewHealthHandler("chat-platform", "test", map[string]handlers.Pinger{
			"postgres": stubPinger{},
		}),
		Auth:     handlers.NewAuthHandler(authService, false),
		Projects: handlers.NewProjectsHandler(projectService),
		Chat:     handlers.NewChatHandler(chatService),
		Files:    handlers.NewFilesHandler(fileService),
		Sessions: auth.NewSessionResolver(tokens, srv.store.Users()),
		Metrics:  metrics.Handler(),
	})
	srv.app = app
	return srv
}

type credentials struct {
	cookie string
	header string
}

func (c credentials) apply(req *stdhttp.Request) {
	if c.cookie != "" {
		req.Header.Set("Cookie", auth.CookieName+"="+c.cookie)
	}
	if c.header != "" {
		req.Header.Set(fiber.HeaderAuthorization, c.header)
	}
}

func (s *testServer) do(t *testing.T, req *stdhttp.Request, creds credentials) *stdhttp.Response {
	t.Helper()
	creds.apply(req)
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func (s *testServer) doJSON(t *testing.T, method, target string, body any, creds credentials) *stdhttp.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	return s.do(t, req, creds)
}

func (s *testServer) register(t *testing.T, email, password string) string {
	t.Helper()
	resp := s.doJSON(t, fiber.MethodPost, "/auth/register", map[string]string{"email": email, "password": password}, credentials{})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	var out struct {
		Data struct {
			AccessToken string `json:"access_token"`
		} `json:"data"`
	}
	decode(t, resp, &out)
	require.NotEmpty(t, out.Data.AccessToken)
	return out.Data.AccessToken
}

func (s *testServer) createProject(t *testing.T, token, name string) int64 {
	t.Helper()
	resp := s.doJSON(t, fiber.MethodPost, "/projects", map[string]string{"name": name}, cookie(token))
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	var out struct {
		Data struct {
			ID int64 `json:"id"`
		} `json:"data"`
	}
	decode(t, resp, &out)
	return out.Data.ID
}

func cookie(token string) credentials { return credentials{cookie: "Bearer " + token} }

func bearer(token string) credentials { return credentials{header: "Bearer " + token} }

func decode(t *testing.T, resp *stdhttp.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func readAll(t *testing.T, resp *stdhttp.Response) string {
	t.Helper()
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(raw)
}

func projectPath(id int64, suffix string) string {
	return "/projects/" + strconv.FormatInt(id, 10) + suffix
}

func TestAuth_RegisterLoginAndMe(t *testing.T) {
	srv := newTestServer(t)
	token := srv.register(t, "a@x.com", "pw123")

	resp := srv.doJSON(t, fiber.MethodGet, "/auth/me", nil, cookie(token))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var me struct {
		Data struct {
			Email string `json:"email"`
		} `json:"data"`
	}
	decode(t, resp, &me)
	assert.Equal(t, "a@x.com", me.Data.Email)

	resp = srv.doJSON(t, fiber.MethodPost, "/auth/login", map[string]string{"email": "a@x.com", "password": "pw123"}, credentials{})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Set-Cookie"), auth.CookieName+"=")
	assert.Contains(t, strings.ToLower(resp.Header.Get("Set-Cookie")), "httponly")
}

func TestAuth_DuplicateRegistration(t *testing.T) {
	srv := newTestServer(t)
	srv.register(t, "a@x.com", "pw123")

	resp := srv.doJSON(t, fiber.MethodPost, "/auth/register", map[string]string{"email": "a@x.com", "password": "other"}, credentials{})
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	var body errorBody
	decode(t, resp, &body)
	assert.Equal(t, "Email already registered", body.Error.Message)
}

func TestAuth_LoginFailuresAreIndistinguishable(t *testing.T) {
	srv := newTestServer(t)
	srv.register(t, "a@x.com", "pw123")

	wrong := srv.doJSON(t, fiber.MethodPost, "/auth/login", map[string]string{"email": "a@x.com", "password": "nope"}, credentials{})
	unknown := srv.doJSON(t, fiber.MethodPost, "/auth/login", map[string]string{"email": "b@x.com", "password": "pw123"}, credentials{})

	assert.Equal(t, fiber.StatusUnauthorized, wrong.StatusCode)
	assert.Equal(t, wrong.StatusCode, unknown.StatusCode)
	assert.Equal(t, "Bearer", wrong.Header.Get("WWW-Authenticate"))
	assert.Equal(t, "Bearer", unknown.Header.Get("WWW-Authenticate"))
	assert.Equal(t, readAll(t, wrong), readAll(t, unknown))
}

func TestAuth_TokenEndpointAcceptsOAuthForm(t *testing.T) {
	srv := newTestServer(t)
	srv.register(t, "a@x.com", "pw123")

	form := url.Values{"username": {"a@x.com"}, "password": {"pw123"}}
	req := httptest.NewRequest(fiber.MethodPost, "/token", strings.NewReader(form.Encode()))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationForm)
	resp := srv.do(t, req, credentials{})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var out struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
	}
	decode(t, resp, &out)
	assert.Equal(t, "bearer", out.TokenType)

	resp = srv.doJSON(t, fiber.MethodGet, "/api/projects/1/messages", nil, bearer(out.AccessToken))
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestAuth_LogoutClearsCookie(t *testing.T) {
	srv := newTestServer(t)
	token := srv.register(t, "a@x.com", "pw123")

	for _, method := range []string{fiber.MethodGet, fiber.MethodPost} {
		resp := srv.doJSON(t, method, "/auth/logout", nil, cookie(token))
		require.Equal(t, fiber.StatusOK, resp.StatusCode)
		assert.Contains(t, resp.Header.Get("Set-Cookie"), auth.CookieName+"=;")
	}

	// The token is not revoked by logout.
	resp := srv.doJSON(t, fiber.MethodGet, "/auth/me", nil, cookie(token))
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestSession_RejectionsAreUniform(t *testing.T) {
	srv := newTestServer(t)
	token := srv.register(t, "a@x.com", "pw123")

	reference := srv.doJSON(t, fiber.MethodGet, "/projects", nil, credentials{})
	require.Equal(t, fiber.StatusUnauthorized, reference.StatusCode)
	referenceBody := readAll(t, reference)

	var body errorBody
	require.NoError(t, json.Unmarshal([]byte(referenceBody), &body))
	assert.Equal(t, "Could not validate credentials", body.Error.Message)
	assert.Equal(t, "Bearer", reference.Header.Get("WWW-Authenticate"))

	cases := map[string]credentials{
		"cookie without prefix": {cookie: token},
		"lowercase prefix":      {cookie: "bearer " + token},
		"garbage token":         {cookie: "Bearer not-a-jwt"},
		"header on cookie path": bearer(token),
	}
	for name, creds := range cases {
		t.Run(name, func(t *testing.T) {
			resp := srv.doJSON(t, fiber.MethodGet, "/projects", nil, creds)
			assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
			assert.Equal(t, "Bearer", resp.Header.Get("WWW-Authenticate"))
			assert.Equal(t, referenceBody, readAll(t, resp))
		})
	}

	srv.now = srv.now.Add(31 * time.Minute)
	expired := srv.doJSON(t, fiber.MethodGet, "/projects", nil, cookie(token))
	assert.Equal(t, fiber.StatusUnauthorized, expired.StatusCode)
	assert.Equal(t, referenceBody, readAll(t, expired))
}

func TestSession_HeaderFlowOnlyOnAPIRoutes(t *testing.T) {
	srv := newTestServer(t)
	token := srv.register(t, "a@x.com", "pw123")
	projectID := srv.createProject(t, token, "demo")

	target := "/api" + projectPath(projectID, "/chat")
	resp := srv.doJSON(t, fiber.MethodPost, target, map[string]string{"message": "hi"}, bearer(token))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp = srv.doJSON(t, fiber.MethodPost, target, map[string]string{"message": "hi"}, cookie(token))
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	resp = srv.doJSON(t, fiber.MethodGet, "/api"+projectPath(projectID, "/messages"), nil, credentials{header: "BEARER " + token})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var out struct {
		Data []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"data"`
	}
	decode(t, resp, &out)
	require.Len(t, out.Data, 2)
	assert.Equal(t, "user", out.Data[0].Role)
	assert.Equal(t, "assistant", out.Data[1].Role)
}

func TestChat_GatewayTimeoutBecomesFallbackReply(t *testing.T) {
	srv := newTestServer(t)
	token := srv.register(t, "a@x.com", "pw123")
	projectID := srv.createProject(t, token, "demo")

	timeout := &llm.Error{Kind: llm.KindTimeout, Message: "deadline exceeded"}
	srv.completer.err = timeout

	form := url.Values{"message": {"are you there?"}}
	req := httptest.NewRequest(fiber.MethodPost, projectPath(projectID, "/chat"), strings.NewReader(form.Encode()))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationForm)
	resp := srv.do(t, req, cookie(token))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var out struct {
		Data struct {
			Response string `json:"response"`
			Failed   bool   `json:"failed"`
		} `json:"data"`
	}
	decode(t, resp, &out)
	assert.True(t, out.Data.Failed)
	assert.Equal(t, llm.FallbackMessage(timeout), out.Data.Response)

	resp = srv.doJSON(t, fiber.MethodGet, projectPath(projectID, "/chat"), nil, cookie(token))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var history struct {
		Data []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"data"`
	}
	decode(t, resp, &history)
	require.Len(t, history.Data, 2)
	assert.Equal(t, "are you there?", history.Data[0].Content)
	assert.Equal(t, llm.FallbackMessage(timeout), history.Data[1].Content)
}

func TestProjects_IsolatedBetweenUsers(t *testing.T) {
	srv := newTestServer(t)
	alice := srv.register(t, "alice@x.com", "pw123")
	bob := srv.register(t, "bob@x.com", "pw123")
	projectID := srv.createProject(t, alice, "private")

	for _, target := range []string{projectPath(projectID, ""), projectPath(projectID, "/chat"), projectPath(projectID, "/prompts")} {
		resp := srv.doJSON(t, fiber.MethodGet, target, nil, cookie(bob))
		assert.Equal(t, fiber.StatusNotFound, resp.StatusCode, target)
	}

	resp := srv.doJSON(t, fiber.MethodGet, "/projects/not-a-number", nil, cookie(alice))
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestProjects_PromptBecomesSystemInstruction(t *testing.T) {
	srv := newTestServer(t)
	token := srv.register(t, "a@x.com", "pw123")
	projectID := srv.createProject(t, token, "demo")

	resp := srv.doJSON(t, fiber.MethodPost, projectPath(projectID, "/prompts"), map[string]string{"text": "Be brief."}, cookie(token))
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	resp = srv.doJSON(t, fiber.MethodPost, projectPath(projectID, "/chat"), map[string]string{"message": "hi"}, cookie(token))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	require.Len(t, srv.completer.calls, 1)
	sent := srv.completer.calls[0]
	require.Len(t, sent, 2)
	assert.Equal(t, llm.Message{Role: llm.RoleSystem, Content: "Be brief."}, sent[0])
	assert.Equal(t, llm.Message{Role: llm.RoleUser, Content: "hi"}, sent[1])
}

func uploadRequest(t *testing.T, target, filename, content string) *stdhttp.Request {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(fiber.MethodPost, target, &buf)
	req.Header.Set(fiber.HeaderContentType, writer.FormDataContentType())
	return req
}

func TestFiles_UploadListDownload(t *testing.T) {
	srv := newTestServer(t)
	alice := srv.register(t, "alice@x.com", "pw123")
	bob := srv.register(t, "bob@x.com", "pw123")
	projectID := srv.createProject(t, alice, "docs")

	resp := srv.do(t, uploadRequest(t, projectPath(projectID, "/upload"), "notes.txt", "remember the milk"), cookie(alice))
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	var uploaded struct {
		Data struct {
			ID       int64  `json:"id"`
			Filename string `json:"filename"`
			FileSize int64  `json:"file_size"`
		} `json:"data"`
	}
	decode(t, resp, &uploaded)
	assert.Equal(t, "notes.txt", uploaded.Data.Filename)
	assert.Equal(t, int64(len("remember the milk")), uploaded.Data.FileSize)

	resp = srv.doJSON(t, fiber.MethodGet, projectPath(projectID, "/files"), nil, cookie(alice))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var listed struct {
		Data []struct {
			ID int64 `json:"id"`
		} `json:"data"`
	}
	decode(t, resp, &listed)
	require.Len(t, listed.Data, 1)

	download := "/files/" + strconv.FormatInt(uploaded.Data.ID, 10)
	resp = srv.doJSON(t, fiber.MethodGet, download, nil, cookie(alice))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get(fiber.HeaderContentDisposition), "notes.txt")
	assert.Equal(t, "remember the milk", readAll(t, resp))

	resp = srv.doJSON(t, fiber.MethodGet, download, nil, cookie(bob))
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp = srv.doJSON(t, fiber.MethodDelete, download, nil, cookie(alice))
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
	resp = srv.doJSON(t, fiber.MethodGet, download, nil, cookie(alice))
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestFiles_RejectsOversizedAndMissingFile(t *testing.T) {
	srv := newTestServer(t)
	token := srv.register(t, "a@x.com", "pw123")
	projectID := srv.createProject(t, token, "docs")

	resp := srv.do(t, uploadRequest(t, projectPath(projectID, "/files"), "big.bin", strings.Repeat("x", 2048)), cookie(token))
	assert.Equal(t, fiber.StatusRequestEntityTooLarge, resp.StatusCode)

	resp = srv.doJSON(t, fiber.MethodPost, projectPath(projectID, "/files"), map[string]string{"name": "nothing"}, cookie(token))
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestHealthAndMetrics(t *testing.T) {
	srv := newTestServer(t)

	resp := srv.doJSON(t, fiber.MethodGet, "/health", nil, credentials{})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var health map[string]any
	decode(t, resp, &health)
	assert.Equal(t, "ok", health["status"])

	resp = srv.doJSON(t, fiber.MethodGet, "/health/ready", nil, credentials{})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp = srv.doJSON(t, fiber.MethodGet, "/metrics", nil, credentials{})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, readAll(t, resp), "chat_platform_http_requests_total")
}

func TestHealth_ReadyReportsFailingDependency(t *testing.T) {
	app := fiber.New()
	h := handlers.NewHealthHandler("chat-platform", "test", map[string]handlers.Pinger{
		"postgres": stubPinger{},
		"redis":    stubPinger{err: errors.New("connection refused")},
	})
	app.Get("/ready", h.Ready)

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/ready", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
	assert.Contains(t, readAll(t, resp), "connection refused")
}

func TestMiddleware_RecoversPanics(t *testing.T) {
	logger := zap.NewNop()
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(logger, nil)})
	RegisterMiddlewares(app, logger, nil, time.Second)
	app.Get("/boom", func(*fiber.Ctx) error { panic("kaboom") })

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/boom", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get(observability.RequestIDHeader))
	var body errorBody
	decode(t, resp, &body)
	assert.Equal(t, "INTERNAL_ERROR", body.Error.Code)
}
