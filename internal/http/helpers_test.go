package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/crypto/bcrypt"

	"feedshop/internal/config"
	"feedshop/internal/events"
	"feedshop/internal/http/handlers"
	applog "feedshop/internal/log"
	"feedshop/internal/repos"
	"feedshop/internal/services"
)

const adminSecret = "hay-bale-42"

func testConfig() config.Config {
	return config.Config{
		AppEnv:    "test",
		Views:     "../../web/templates",
		ShopName:  "JAMIR TRADING",
		Tagline:   "Cow Feed & Supplies",
		CartTTL:   time.Minute,
		RateLimit: 1000,
	}
}

func newTestApp(t *testing.T) (*fiber.App, *services.App) {
	t.Helper()
	ctx := context.Background()
	db, err := repos.OpenDB(":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	catalog := services.NewCatalog(repos.NewProductRepo(db))
	if err := catalog.Load(ctx); err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	ledger := services.NewLedger(repos.NewOrderRepo(db), repos.NewInvoiceCounter(db), catalog, events.Nop{})
	if err := ledger.Load(ctx); err != nil {
		t.Fatalf("load ledger: %v", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(adminSecret), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	gate, err := services.NewSecretGate("", string(hash), time.Hour)
	if err != nil {
		t.Fatal(err)
	}

	cfg := testConfig()
	svc := &services.App{
		Catalog:  catalog,
		Sessions: services.NewSessions(catalog, cfg.CartTTL),
		Ledger:   ledger,
		Reports:  services.NewReports(ledger),
		Gate:     gate,
	}
	return handlers.NewApp(handlers.NewDeps(svc, cfg), cfg), svc
}

// client keeps cookies between requests and echoes the CSRF cookie in the
// header the middleware looks for.
type client struct {
	t       *testing.T
	app     *fiber.App
	cookies map[string]string
}

func newClient(t *testing.T, app *fiber.App) *client {
	t.Helper()
	cl := &client{t: t, app: app, cookies: map[string]string{}}
	if resp, _ := cl.do("GET", "/healthz", nil); resp.StatusCode != http.StatusOK {
		t.Fatalf("healthz: %d", resp.StatusCode)
	}
	if cl.cookies["csrf_"] == "" {
		t.Fatal("csrf token missing")
	}
	return cl
}

func (cl *client) do(method, path string, body any) (*http.Response, []byte) {
	cl.t.Helper()
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			cl.t.Fatal(err)
		}
		rdr = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rdr)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok := cl.cookies["csrf_"]; tok != "" {
		req.Header.Set("X-Csrf-Token", tok)
	}
	for name, v := range cl.cookies {
		req.AddCookie(&http.Cookie{Name: name, Value: v})
	}
	resp, err := cl.app.Test(req, -1)
	if err != nil {
		cl.t.Fatalf("%s %s: %v", method, path, err)
	}
	for _, c := range resp.Cookies() {
		if c.Value == "" {
			delete(cl.cookies, c.Name)
			continue
		}
		cl.cookies[c.Name] = c.Value
	}
	out, _ := io.ReadAll(resp.Body)
	return resp, out
}

func (cl *client) json(method, path string, body any, into any) int {
	cl.t.Helper()
	resp, raw := cl.do(method, path, body)
	if into != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, into); err != nil {
			cl.t.Fatalf("%s %s: decode %q: %v", method, path, raw, err)
		}
	}
	return resp.StatusCode
}

func (cl *client) loginAdmin() {
	cl.t.Helper()
	if code := cl.json("POST", "/admin/login", map[string]string{"secret": adminSecret}, nil); code != http.StatusOK {
		cl.t.Fatalf("admin login: %d", code)
	}
	if cl.cookies["admin_token"] == "" {
		cl.t.Fatal("admin_token cookie missing")
	}
}

type logEntry struct {
	Action string
	Kind   string
	Fields map[string]any
}

// captureLogs swaps in an observing logger for the duration of fn.
func captureLogs(t *testing.T, fn func()) []logEntry {
	t.Helper()
	core, logs := observer.New(zap.DebugLevel)
	prev := applog.L()
	applog.SetLogger(zap.New(core))
	defer applog.SetLogger(prev)

	fn()

	var out []logEntry
	for _, e := range logs.All() {
		ctx := e.ContextMap()
		le := logEntry{Action: e.Message}
		le.Kind, _ = ctx["kind"].(string)
		le.Fields, _ = ctx["fields"].(map[string]any)
		out = append(out, le)
	}
	return out
}

func findLog(entries []logEntry, action string) (logEntry, bool) {
	for _, e := range entries {
		if e.Action == action {
			return e, true
		}
	}
	return logEntry{}, false
}
