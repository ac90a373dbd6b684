package http

import (
	"encoding/csv"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	"spese-tracker/internal/mirror"
	"spese-tracker/internal/services"
	"spese-tracker/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testApp struct {
	ts     *httptest.Server
	client *http.Client
	mirror *mirror.CSVMirror
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	repo, err := storage.NewSQLiteRepository(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	m, err := mirror.NewCSVMirror(t.TempDir())
	require.NoError(t, err)

	svc := services.NewExpenseService(repo, m, nil)

	srv, err := NewServer(Config{
		Addr:               ":0",
		SecretKey:          "test-secret",
		SessionTTL:         time.Hour,
		RateLimitPerMinute: 1000,
	}, svc, repo)
	require.NoError(t, err)
	t.Cleanup(srv.rateLimiter.Stop)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	client := &http.Client{Jar: jar}

	return &testApp{ts: ts, client: client, mirror: m}
}

func (a *testApp) postForm(t *testing.T, path string, form url.Values) *http.Response {
	t.Helper()
	resp, err := a.client.PostForm(a.ts.URL+path, form)
	require.NoError(t, err)
	return resp
}

func (a *testApp) get(t *testing.T, path string) (*http.Response, string) {
	t.Helper()
	resp, err := a.client.Get(a.ts.URL + path)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()
	return resp, string(body)
}

func (a *testApp) register(t *testing.T, username, password string) {
	t.Helper()
	resp := a.postForm(t, "/auth/register", url.Values{
		"username":         {username},
		"password":         {password},
		"confirm_password": {password},
	})
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func (a *testApp) addExpense(t *testing.T, data, categoria, descrizione, importo string) {
	t.Helper()
	resp := a.postForm(t, "/spese/add", url.Values{
		"data":        {data},
		"categoria":   {categoria},
		"descrizione": {descrizione},
		"importo":     {importo},
	})
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHealthEndpoints(t *testing.T) {
	app := newTestApp(t)

	resp, body := app.get(t, "/healthz")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body)

	resp, body = app.get(t, "/readyz")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ready", body)
}

func TestUnauthenticatedIndexRedirectsToLogin(t *testing.T) {
	app := newTestApp(t)

	resp, body := app.get(t, "/spese")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Accedi")
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	app := newTestApp(t)
	app.register(t, "alice", "password123")

	resp := app.postForm(t, "/auth/logout", url.Values{})
	resp.Body.Close()

	resp = app.postForm(t, "/auth/login", url.Values{
		"username": {"alice"},
		"password": {"wrong-password"},
	})
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Contains(t, string(body), "Username o password non validi")

	// Unknown usernames produce the same message.
	resp = app.postForm(t, "/auth/login", url.Values{
		"username": {"nobody"},
		"password": {"password123"},
	})
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Contains(t, string(body), "Username o password non validi")
}

func TestExpenseLifecycle(t *testing.T) {
	app := newTestApp(t)
	app.register(t, "alice", "password123")

	app.addExpense(t, "2024-03-01", "Food", "Lunch", "12,50")
	app.addExpense(t, "2024-03-15", "Food", "Dinner", "30.00")
	app.addExpense(t, "2024-04-02", "Transport", "Train", "9.00")

	_, body := app.get(t, "/spese")
	assert.Contains(t, body, "Lunch")
	assert.Contains(t, body, "Dinner")
	assert.Contains(t, body, "Train")
	assert.Contains(t, body, "€51,50", "comma and dot amounts sum together")

	// Month filter narrows the report and its total.
	_, body = app.get(t, "/spese/filter?mese=2024-03")
	assert.Contains(t, body, "Lunch")
	assert.NotContains(t, body, "Train")
	assert.Contains(t, body, "€42,50")

	// Category and month filters combine with AND.
	_, body = app.get(t, "/spese/filter?categoria=Food&mese=2024-04")
	assert.NotContains(t, body, "Lunch")
	assert.NotContains(t, body, "Train")
	assert.Contains(t, body, "€0,00")

	// Mirror matches the full expense list, newest first.
	rows := readMirrorFile(t, app.mirror.Path(1))
	require.Len(t, rows, 4)
	assert.Equal(t, mirror.Header, rows[0])
	assert.Equal(t, "Train", rows[1][4])
	assert.Equal(t, "12.50", rows[3][5])
}

func TestExportCSV(t *testing.T) {
	app := newTestApp(t)
	app.register(t, "alice", "password123")
	app.addExpense(t, "2024-03-01", "Food", "Lunch", "12,50")
	app.addExpense(t, "2024-04-02", "Transport", "Train", "9.00")

	resp, body := app.get(t, "/spese/export")
	assert.Equal(t, "text/csv; charset=utf-8", resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), `filename="spese.csv"`)

	records, err := csv.NewReader(strings.NewReader(body)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, mirror.Header, records[0])

	// Filtered export names the file after the filters.
	resp, body = app.get(t, "/spese/export?categoria=Food&mese=2024-03")
	assert.Contains(t, resp.Header.Get("Content-Disposition"), `filename="spese_Food_2024-03.csv"`)

	records, err = csv.NewReader(strings.NewReader(body)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "Lunch", records[1][4])
}

func TestEditAndDelete(t *testing.T) {
	app := newTestApp(t)
	app.register(t, "alice", "password123")
	app.addExpense(t, "2024-03-01", "Food", "Lunch", "12,50")

	resp := app.postForm(t, "/spese/edit/1", url.Values{
		"data":        {"2024-03-02"},
		"categoria":   {"Food"},
		"descrizione": {"Brunch"},
		"importo":     {"15.00"},
	})
	resp.Body.Close()

	_, body := app.get(t, "/spese")
	assert.Contains(t, body, "Brunch")
	assert.NotContains(t, body, "Lunch")

	resp = app.postForm(t, "/spese/delete/1", url.Values{})
	resp.Body.Close()

	_, body = app.get(t, "/spese")
	assert.Contains(t, body, "Nessuna spesa registrata")

	rows := readMirrorFile(t, app.mirror.Path(1))
	require.Len(t, rows, 1, "mirror is header-only after the last delete")
}

func TestForeignExpenseIsMasked(t *testing.T) {
	app := newTestApp(t)
	app.register(t, "alice", "password123")
	app.addExpense(t, "2024-03-01", "Food", "Lunch", "12.50")

	resp := app.postForm(t, "/auth/logout", url.Values{})
	resp.Body.Close()
	app.register(t, "bob", "password123")

	resp = app.postForm(t, "/spese/delete/1", url.Values{})
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Contains(t, string(body), "Spesa non trovata o non autorizzata")
}

func TestInvalidAmountIsRejected(t *testing.T) {
	app := newTestApp(t)
	app.register(t, "alice", "password123")

	for _, importo := range []string{"0", "-5", "abc"} {
		resp := app.postForm(t, "/spese/add", url.Values{
			"data":        {"2024-03-01"},
			"categoria":   {"Food"},
			"descrizione": {"Lunch"},
			"importo":     {importo},
		})
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		assert.Contains(t, string(body), "Importo non valido", "importo %q", importo)
	}

	_, body := app.get(t, "/spese")
	assert.Contains(t, body, "Nessuna spesa registrata")
}

func TestSecurityHeadersPresent(t *testing.T) {
	app := newTestApp(t)

	resp, _ := app.get(t, "/healthz")
	assert.Equal(t, "DENY", resp.Header.Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
	assert.NotEmpty(t, resp.Header.Get("Content-Security-Policy"))
}

func readMirrorFile(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}
