package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"estoque/internal/notify"
	"estoque/internal/repositories"
	"estoque/internal/server"
	"estoque/internal/services"
	"estoque/internal/uploads"

	"github.com/fasthttp/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testJWTSecret = "test_jwt_secret"

var (
	discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))
	pngBytes      = append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), make([]byte, 64)...)
)

type recordingMailer struct {
	mu     sync.Mutex
	bodies []string
}

func (m *recordingMailer) Send(_ context.Context, _, _, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bodies = append(m.bodies, body)
	return nil
}

func (m *recordingMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.bodies)
}

type testEnv struct {
	app       *fiber.App
	hub       *notify.Hub
	notifier  *notify.Notifier
	mailer    *recordingMailer
	uploadDir string
}

// setupApp builds the full app over a private in-memory SQLite database.
func setupApp(t *testing.T) *testEnv {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := repositories.OpenGORM("sqlite", dsn)
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	hub := notify.NewHub(discardLogger)
	mailer := &recordingMailer{}
	notifier := notify.NewNotifier(hub, mailer, nil, "admin@empresa.com", discardLogger)
	uploadDir := filepath.Join(t.TempDir(), "uploads")

	app := server.New(server.Deps{
		Products:          services.NewProductService(repositories.NewGORMProductRepository(db), notifier, discardLogger),
		Auth:              services.NewAuthService(repositories.NewGORMUserRepository(db), testJWTSecret, time.Hour, discardLogger),
		Uploads:           uploads.NewService(uploads.NewDiskStorage(uploadDir, discardLogger), discardLogger),
		Hub:               hub,
		DisableRequestLog: true,
	})
	t.Cleanup(notifier.Wait)

	return &testEnv{app: app, hub: hub, notifier: notifier, mailer: mailer, uploadDir: uploadDir}
}

func (e *testEnv) do(t *testing.T, method, path string, body any, header ...string) (*http.Response, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	return e.send(t, req)
}

func (e *testEnv) send(t *testing.T, req *http.Request) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var decoded map[string]any
	if len(raw) > 0 && strings.HasPrefix(resp.Header.Get("Content-Type"), fiber.MIMEApplicationJSON) {
		require.NoError(t, json.Unmarshal(raw, &decoded), string(raw))
	}
	return resp, decoded
}

func products(body map[string]any) []map[string]any {
	list, _ := body["produtos"].([]any)
	out := make([]map[string]any, 0, len(list))
	for _, p := range list {
		out = append(out, p.(map[string]any))
	}
	return out
}

func TestProductLifecycle(t *testing.T) {
	env := setupApp(t)

	resp, created := env.do(t, http.MethodPost, "/produtos", map[string]any{"nome": "Mouse", "quantidade": 3})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	id, _ := created["id"].(string)
	require.NotEmpty(t, id)
	assert.Equal(t, "Mouse", created["nome"])
	assert.Equal(t, float64(3), created["quantidade"])

	env.notifier.Wait()
	assert.Equal(t, 1, env.mailer.count())

	resp, page := env.do(t, http.MethodGet, "/produtos?nome=Mou", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(1), page["page"])
	assert.Equal(t, float64(10), page["limit"])
	require.Len(t, products(page), 1)
	assert.Equal(t, id, products(page)[0]["id"])

	resp, body := env.do(t, http.MethodPut, "/produtos/"+id, map[string]any{"nome": "Mouse", "quantidade": 10})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Produto atualizado com sucesso", body["message"])

	resp, got := env.do(t, http.MethodGet, "/produtos/"+id, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(10), got["quantidade"])

	resp, body = env.do(t, http.MethodDelete, "/produtos/"+id, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Produto excluído com sucesso", body["message"])

	resp, body = env.do(t, http.MethodDelete, "/produtos/"+id, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Produto não encontrado", body["error"])

	resp, _ = env.do(t, http.MethodGet, "/produtos/"+id, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	env.notifier.Wait()
	assert.Equal(t, 1, env.mailer.count(), "updates never notify")
}

func TestCreateProduct_Duplicate(t *testing.T) {
	env := setupApp(t)

	resp, _ := env.do(t, http.MethodPost, "/produtos", map[string]any{"nome": "Teclado", "quantidade": 8})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, body := env.do(t, http.MethodPost, "/produtos", map[string]any{"nome": "Teclado", "quantidade": 1})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Produto já cadastrado no sistema.", body["message"])

	_, page := env.do(t, http.MethodGet, "/produtos", nil)
	assert.Len(t, products(page), 1)

	env.notifier.Wait()
	assert.Equal(t, 0, env.mailer.count())
}

func TestCreateProduct_Validation(t *testing.T) {
	env := setupApp(t)

	resp, body := env.do(t, http.MethodPost, "/produtos", map[string]any{"nome": "A", "quantidade": -1})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	erros, ok := body["erros"].([]any)
	require.True(t, ok)
	require.Len(t, erros, 2)
	assert.Equal(t, "nome", erros[0].(map[string]any)["field"])
	assert.Equal(t, "O nome deve ter pelo menos 2 caracteres", erros[0].(map[string]any)["message"])
	assert.Equal(t, "A quantidade deve ser um número inteiro não negativo", erros[1].(map[string]any)["message"])

	resp, _ = env.do(t, http.MethodPost, "/produtos", map[string]any{"nome": "Mouse", "quantidade": "muitos"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	_, page := env.do(t, http.MethodGet, "/produtos", nil)
	assert.Empty(t, products(page))
}

func TestUpdateProduct_Errors(t *testing.T) {
	env := setupApp(t)

	resp, _ := env.do(t, http.MethodPut, "/produtos/"+uuid.NewString(), map[string]any{"nome": "Mouse", "quantidade": 1})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = env.do(t, http.MethodPut, "/produtos/qualquer", map[string]any{"nome": "", "quantidade": 1})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	_, a := env.do(t, http.MethodPost, "/produtos", map[string]any{"nome": "Mouse", "quantidade": 7})
	env.do(t, http.MethodPost, "/produtos", map[string]any{"nome": "Monitor", "quantidade": 7})
	resp, body := env.do(t, http.MethodPut, "/produtos/"+a["id"].(string), map[string]any{"nome": "Monitor", "quantidade": 7})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Produto já cadastrado no sistema.", body["message"])
}

func TestListProducts_FiltersAndPages(t *testing.T) {
	env := setupApp(t)
	for i, name := range []string{"Mouse", "Mousepad", "Teclado", "Monitor", "Cabo"} {
		resp, _ := env.do(t, http.MethodPost, "/produtos", map[string]any{"nome": name, "quantidade": (i + 1) * 5})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}

	_, page := env.do(t, http.MethodGet, "/produtos?nome=MOUSE", nil)
	assert.Len(t, products(page), 2)

	_, page = env.do(t, http.MethodGet, "/produtos?quantidade_min=15", nil)
	assert.Len(t, products(page), 3)

	_, page = env.do(t, http.MethodGet, "/produtos?page=2&limit=2", nil)
	assert.Equal(t, float64(2), page["page"])
	assert.Len(t, products(page), 2)

	resp, page := env.do(t, http.MethodGet, "/produtos?page=4611686018427387904&limit=4", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, products(page))

	_, page = env.do(t, http.MethodGet, "/produtos?limit=1000", nil)
	assert.Equal(t, float64(100), page["limit"])

	_, page = env.do(t, http.MethodGet, "/produtos?page=abc&limit=-1", nil)
	assert.Equal(t, float64(1), page["page"])
	assert.Equal(t, float64(10), page["limit"])
	assert.Len(t, products(page), 5)
}

func TestAuthRegisterLoginProtected(t *testing.T) {
	env := setupApp(t)
	creds := map[string]string{"username": "fabio", "password": "segredo"}

	resp, body := env.do(t, http.MethodPost, "/register", creds)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "Usuário registrado com sucesso!", body["message"])
	assert.NotContains(t, body, "password")

	resp, body = env.do(t, http.MethodPost, "/register", creds)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Nome de usuário já está em uso.", body["message"])

	resp, body = env.do(t, http.MethodPost, "/register", map[string]string{"username": "sem-senha"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Nome de usuário e senha são obrigatórios", body["message"])

	resp, body = env.do(t, http.MethodPost, "/login", map[string]string{"username": "fabio", "password": "errada"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Credenciais inválidas", body["message"])

	resp, body = env.do(t, http.MethodPost, "/login", map[string]string{"username": "ninguem", "password": "segredo"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, body = env.do(t, http.MethodPost, "/login", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = env.do(t, http.MethodPost, "/login", creds)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)

	resp, body = env.do(t, http.MethodGet, "/protected", nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "Acesso negado", body["message"])

	resp, body = env.do(t, http.MethodGet, "/protected", nil, "Authorization", "Bearer "+token+"x")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "Token inválido", body["message"])

	resp, body = env.do(t, http.MethodGet, "/protected", nil, "Authorization", "Bearer "+token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Você acessou uma rota protegida!", body["message"])
	assert.Equal(t, "fabio", body["user"].(map[string]any)["username"])
}

func uploadRequest(t *testing.T, field, filename, contentType string, data []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if field != "" {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, filename))
		h.Set("Content-Type", contentType)
		pw, err := w.CreatePart(h)
		require.NoError(t, err)
		_, err = pw.Write(data)
		require.NoError(t, err)
	} else {
		require.NoError(t, w.WriteField("descricao", "sem arquivo"))
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestUpload(t *testing.T) {
	env := setupApp(t)

	resp, body := env.send(t, uploadRequest(t, "imagem", "foto.png", "image/png", pngBytes))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Upload realizado com sucesso!", body["message"])
	file := body["file"].(map[string]any)
	name := file["filename"].(string)
	assert.True(t, strings.HasSuffix(name, "-foto.png"))
	assert.Equal(t, "image/png", file["mimetype"])

	stored, err := os.ReadFile(filepath.Join(env.uploadDir, name))
	require.NoError(t, err)
	assert.Equal(t, pngBytes, stored)

	served, err := env.app.Test(httptest.NewRequest(http.MethodGet, file["url"].(string), nil), -1)
	require.NoError(t, err)
	defer served.Body.Close()
	assert.Equal(t, http.StatusOK, served.StatusCode)
	data, err := io.ReadAll(served.Body)
	require.NoError(t, err)
	assert.Equal(t, pngBytes, data)
}

func TestUpload_Rejections(t *testing.T) {
	env := setupApp(t)
	tooBig := append(append([]byte{}, pngBytes...), make([]byte, 3<<20)...)
	overBodyLimit := append(append([]byte{}, pngBytes...), make([]byte, server.BodyLimit+1)...)

	tests := []struct {
		name string
		req  *http.Request
		want string
	}{
		{"text file", uploadRequest(t, "imagem", "notas.txt", "text/plain", []byte("ola")), "Tipo de arquivo inválido. Apenas imagens são permitidas."},
		{"no file", uploadRequest(t, "", "", "", nil), "Nenhum arquivo enviado ou tipo de arquivo inválido."},
		{"wrong field", uploadRequest(t, "foto", "foto.png", "image/png", pngBytes), "Envie apenas um arquivo no campo 'imagem'."},
		{"over 2 MB", uploadRequest(t, "imagem", "grande.png", "image/png", tooBig), "Arquivo excede o limite de 2 MB."},
		{"over body limit", uploadRequest(t, "imagem", "enorme.png", "image/png", overBodyLimit), "Arquivo excede o limite de 2 MB."},
		{"not multipart", httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader("x")), "Nenhum arquivo enviado ou tipo de arquivo inválido."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := env.send(t, tt.req)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, tt.want, body["message"])
		})
	}

	entries, _ := os.ReadDir(env.uploadDir)
	assert.Empty(t, entries)
}

func TestUnknownRouteAndHealth(t *testing.T) {
	env := setupApp(t)

	resp, body := env.do(t, http.MethodGet, "/nada", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.NotEmpty(t, body["error"])

	resp, body = env.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "healthy", body["status"])

	resp, _ = env.do(t, http.MethodGet, "/ws", nil)
	assert.Equal(t, http.StatusUpgradeRequired, resp.StatusCode)
}

func TestSecurityHeaders(t *testing.T) {
	env := setupApp(t)
	resp, _ := env.do(t, http.MethodGet, "/health", nil, "Origin", "http://example.com")
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestLowStockWebsocketEvent(t *testing.T) {
	env := setupApp(t)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go env.app.Listener(ln)
	t.Cleanup(func() { _ = env.app.Shutdown() })

	conn, _, err := websocket.DefaultDialer.Dial("ws://"+ln.Addr().String()+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return env.hub.Count() == 1 }, 2*time.Second, 10*time.Millisecond)

	resp, _ := env.do(t, http.MethodPost, "/produtos", map[string]any{"nome": "Teclado", "quantidade": 10})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp, _ = env.do(t, http.MethodPost, "/produtos", map[string]any{"nome": "Mouse", "quantidade": 2})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)

	var ev struct {
		Event string         `json:"event"`
		Data  map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(msg, &ev))
	assert.Equal(t, "estoqueBaixo", ev.Event)
	assert.Equal(t, "Mouse", ev.Data["nome"])
	assert.Equal(t, float64(2), ev.Data["quantidade"])

	env.notifier.Wait()
	assert.Equal(t, 1, env.mailer.count())

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return env.hub.Count() == 0 }, 2*time.Second, 10*time.Millisecond)
}
