package handler_test

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"tchatsouvenir/bookshop/internal/auth"
	"tchatsouvenir/bookshop/internal/bookgen"
	"tchatsouvenir/bookshop/internal/handler"
	"tchatsouvenir/bookshop/internal/model"
	"tchatsouvenir/bookshop/internal/service"
)

const whatsappChat = "12/03/2024, 09:15 - Awa: Bonjour 😀\n" +
	"12/03/2024, 09:16 - Moussa: Salut\nça va ?\n" +
	"12/03/2024, 09:17 - Awa: <Media omitted>\n" +
	"13/03/2024, 20:00 - Awa: Bonne nuit\n"

type testEnv struct {
	server *httptest.Server
	issuer *auth.Issuer
}

func newTestEnv(t *testing.T, svc handler.Services) *testEnv {
	t.Helper()
	dir := t.TempDir()
	store := bookgen.NewStore(filepath.Join(dir, "books"), filepath.Join(dir, "media"), "http://localhost:5173")
	runner := bookgen.NewRunner(store, zap.NewNop(), bookgen.WithStepDelay(0, 0))
	t.Cleanup(runner.Close)

	issuer := auth.NewIssuer("handler-secret", time.Hour)
	h := handler.NewHandler(svc, handler.Options{
		Logger:        zap.NewNop(),
		Issuer:        issuer,
		Runner:        runner,
		Generator:     bookgen.NewGenerator(store, 0),
		Store:         store,
		MaxUploadSize: 1 << 20,
	})
	server := httptest.NewServer(h)
	t.Cleanup(server.Close)
	return &testEnv{server: server, issuer: issuer}
}

func (e *testEnv) token(t *testing.T, role model.Role) string {
	t.Helper()
	tok, err := e.issuer.Issue(&model.User{ID: "u-" + string(role), Email: "x@example.com", Role: role})
	require.NoError(t, err)
	return tok
}

func (e *testEnv) do(t *testing.T, method, path, token string, body io.Reader, contentType string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, e.server.URL+path, body)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func multipartBody(t *testing.T, filename string, data []byte, fields map[string]string) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if filename != "" {
		fw, err := mw.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = fw.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func buildZip(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestHealthCheck(t *testing.T) {
	env := newTestEnv(t, handler.Services{})
	resp := env.do(t, http.MethodGet, "/v1/health", "", nil, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "OK", string(body))
}

func TestExtractMessages(t *testing.T) {
	env := newTestEnv(t, handler.Services{})

	body, ct := multipartBody(t, "chat.txt", []byte(whatsappChat), map[string]string{
		"platform":     "whatsapp",
		"strip_emojis": "true",
		"to":           "2024-03-12",
	})
	resp := env.do(t, http.MethodPost, "/v1/messages/extract", "", body, ct)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	out := decode[handler.ExtractResponse](t, resp)
	require.Len(t, out.Messages, 3)
	assert.Equal(t, "Bonjour", strings.TrimSpace(out.Messages[0].Content))
	assert.Equal(t, "Salut\nça va ?", out.Messages[1].Content)
	assert.True(t, out.Messages[0].IsOwner)
	assert.Equal(t, 3, out.Summary.TotalMessages)
	assert.Equal(t, []string{"Awa", "Moussa"}, out.Summary.Participants)
}

func TestExtractMessages_Zip(t *testing.T) {
	env := newTestEnv(t, handler.Services{})
	archive := buildZip(t, map[string]string{
		"WhatsApp Chat with Moussa.txt": whatsappChat,
		"IMG-20240312-WA0001.jpg":       "jpeg",
	})

	body, ct := multipartBody(t, "export.zip", archive, map[string]string{"platform": "whatsapp", "exclude_photos": "true"})
	resp := env.do(t, http.MethodPost, "/v1/messages/extract", "", body, ct)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	out := decode[handler.ExtractResponse](t, resp)
	assert.Len(t, out.Messages, 3)
	assert.Len(t, out.Attachments, 1)
}

func TestExtractMessages_BadInput(t *testing.T) {
	env := newTestEnv(t, handler.Services{})

	body, ct := multipartBody(t, "", nil, map[string]string{"platform": "whatsapp"})
	resp := env.do(t, http.MethodPost, "/v1/messages/extract", "", body, ct)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	body, ct = multipartBody(t, "chat.txt", []byte(whatsappChat), nil)
	resp = env.do(t, http.MethodPost, "/v1/messages/extract", "", body, ct)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	body, ct = multipartBody(t, "chat.txt", []byte(whatsappChat), map[string]string{"platform": "telegram"})
	resp = env.do(t, http.MethodPost, "/v1/messages/extract", "", body, ct)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	body, ct = multipartBody(t, "message_1.json", []byte(`{"messages":`), map[string]string{"platform": "messenger"})
	resp = env.do(t, http.MethodPost, "/v1/messages/extract", "", body, ct)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestDesignJobs(t *testing.T) {
	env := newTestEnv(t, handler.Services{})

	design := `{"cover_title":"Nous deux","messages":[{"sender":"Awa","content":"Bonjour","timestamp":"2024-03-12T09:15:00Z","type":"text","is_owner":true}]}`
	resp := env.do(t, http.MethodPost, "/v1/books/create", "", strings.NewReader(design), "application/json")
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	created := decode[handler.CreateDesignResponse](t, resp)
	assert.True(t, created.Success)
	require.NotEmpty(t, created.DesignID)

	var job bookgen.Job
	require.Eventually(t, func() bool {
		r := env.do(t, http.MethodGet, "/v1/books/status/"+created.DesignID, "", nil, "")
		job = decode[bookgen.Job](t, r)
		return job.Status == bookgen.JobCompleted
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 100, job.Progress)
	assert.Equal(t, "/preview/"+created.DesignID+".html", job.PreviewURL)

	resp = env.do(t, http.MethodGet, job.PreviewURL, "", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	html, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(html), "Nous deux")

	// cancelling a finished job leaves it completed
	resp = env.do(t, http.MethodPut, "/v1/books/"+created.DesignID+"/cancel", "", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, bookgen.JobCompleted, decode[bookgen.Job](t, resp).Status)

	resp = env.do(t, http.MethodGet, "/v1/books/status/unknown", "", nil, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGenerateAndDownload(t *testing.T) {
	env := newTestEnv(t, handler.Services{})
	archive := buildZip(t, map[string]string{
		"chat.txt":                whatsappChat,
		"IMG-20240312-WA0001.jpg": "jpeg-bytes",
	})

	body, ct := multipartBody(t, "export.zip", archive, map[string]string{"title": "Nous deux", "format": "unknown"})
	resp := env.do(t, http.MethodPost, "/v1/books/generate", "", body, ct)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	body, ct = multipartBody(t, "export.zip", archive, map[string]string{"title": "Nous deux", "format": "premium"})
	resp = env.do(t, http.MethodPost, "/v1/books/generate", "", body, ct)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	res := decode[bookgen.GenerateResult](t, resp)
	assert.Equal(t, "completed", res.Status)
	assert.Equal(t, model.FormatPremium, res.Format)
	assert.Equal(t, 4, res.MessageCount)
	assert.Equal(t, "http://localhost:5173/v1/books/download/"+res.BookID, res.DownloadURL)

	resp = env.do(t, http.MethodGet, "/v1/books/download/"+res.BookID, "", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), res.BookID+".html")
	html, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(html), "Nous deux")
	assert.Contains(t, string(html), `data-format="PREMIUM"`)
	assert.Contains(t, string(html), "/v1/media/"+res.BookID+"/IMG-20240312-WA0001.jpg")

	resp = env.do(t, http.MethodGet, "/v1/media/"+res.BookID+"/IMG-20240312-WA0001.jpg", "", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	img, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "jpeg-bytes", string(img))

	resp = env.do(t, http.MethodGet, "/v1/books/download/missing_book", "", nil, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp = env.do(t, http.MethodGet, "/v1/media/"+res.BookID+"/..%2F..%2Fetc%2Fpasswd", "", nil, "")
	assert.NotEqual(t, http.StatusOK, resp.StatusCode)
}

func TestAuthGuards(t *testing.T) {
	env := newTestEnv(t, handler.Services{})

	resp := env.do(t, http.MethodGet, "/v1/cart", "", nil, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/v1/orders/mine", "not-a-token", nil, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	user := env.token(t, model.RoleUser)
	for _, path := range []string{"/v1/orders", "/v1/printers", "/v1/admin/dashboard", "/v1/books/deleted", "/v1/books/stats/margins"} {
		resp = env.do(t, http.MethodGet, path, user, nil, "")
		assert.Equal(t, http.StatusForbidden, resp.StatusCode, path)
	}
}

func TestPaymentCallback_Validation(t *testing.T) {
	payments := service.NewPaymentService(nil, nil, nil, nil, nil, nil, nil, service.PaymentConfig{}, zap.NewNop())
	env := newTestEnv(t, handler.Services{Payments: payments})

	resp := env.do(t, http.MethodPost, "/v1/payments/callback", "", strings.NewReader(`{"status":"SUCCESS"}`), "application/json")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.do(t, http.MethodPost, "/v1/payments/callback", "", strings.NewReader(`{"transaction_id":"TXN-1","status":"maybe"}`), "application/json")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.do(t, http.MethodPost, "/v1/payments/callback", "", strings.NewReader(`{`), "application/json")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, map[string]string{"error": "invalid request body"}, decode[map[string]string](t, resp))
}
