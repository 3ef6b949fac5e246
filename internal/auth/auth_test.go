package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"restoran-kpi/internal/apperr"
	"restoran-kpi/internal/config"
	"restoran-kpi/internal/models"
	"restoran-kpi/internal/repo"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newTestApp(store repo.Store, limiter *LoginLimiter) *fiber.App {
	cfg := &config.Config{JWTSecret: testSecret, JWTTTL: time.Hour}
	log := logrus.New()
	log.SetOutput(io.Discard)

	app := fiber.New(fiber.Config{ErrorHandler: apperr.ErrorHandler(log)})
	g := app.Group("/api/auth")
	g.Post("/register-admin", RegisterAdminHandler(store))
	g.Post("/login", limiter.Middleware(), LoginHandler(cfg, store))
	g.Get("/me", JWTMiddleware(cfg), MeHandler(store))
	app.Get("/admin-only", JWTMiddleware(cfg), RequireRole(models.RoleAdmin), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	return app
}

func post(t *testing.T, app *fiber.App, path string, body any) (*http.Response, map[string]any) {
	t.Helper()
	b, _ := json.Marshal(body)
	req := httptest.NewRequest("POST", path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	out := map[string]any{}
	json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

func get(t *testing.T, app *fiber.App, path, token string) (*http.Response, map[string]any) {
	t.Helper()
	req := httptest.NewRequest("GET", path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	out := map[string]any{}
	json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

func TestRegisterAdminLoginAndMe(t *testing.T) {
	store := repo.NewMemoryStore()
	app := newTestApp(store, NewLoginLimiter(100, 100))

	admin := map[string]any{"name": "Root", "email": "Root@Example.com", "password": "correct-horse"}
	if resp, body := post(t, app, "/api/auth/register-admin", admin); resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("register: %d %v", resp.StatusCode, body)
	}
	if resp, _ := post(t, app, "/api/auth/register-admin", admin); resp.StatusCode != fiber.StatusForbidden {
		t.Fatalf("second admin: %d, want 403", resp.StatusCode)
	}

	if resp, _ := post(t, app, "/api/auth/login", map[string]any{"email": "root@example.com", "password": "wrong-pass"}); resp.StatusCode != fiber.StatusUnauthorized {
		t.Fatalf("wrong password: %d, want 401", resp.StatusCode)
	}
	if resp, _ := post(t, app, "/api/auth/login", map[string]any{"email": "nobody@example.com", "password": "x"}); resp.StatusCode != fiber.StatusUnauthorized {
		t.Fatalf("unknown email: %d, want 401", resp.StatusCode)
	}

	resp, body := post(t, app, "/api/auth/login", map[string]any{"email": " ROOT@example.com", "password": "correct-horse"})
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("login: %d %v", resp.StatusCode, body)
	}
	token := body["token"].(string)

	resp, me := get(t, app, "/api/auth/me", token)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("me: %d", resp.StatusCode)
	}
	user := me["user"].(map[string]any)
	if user["email"] != "root@example.com" || user["role"] != "admin" {
		t.Fatalf("me = %v", me)
	}

	if resp, _ := get(t, app, "/admin-only", token); resp.StatusCode != fiber.StatusOK {
		t.Fatalf("admin-only as admin: %d", resp.StatusCode)
	}
}

func TestRegisterAdminConcurrentBootstrap(t *testing.T) {
	store := repo.NewMemoryStore()
	app := newTestApp(store, NewLoginLimiter(100, 100))

	const callers = 8
	statuses := make([]int, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			b, _ := json.Marshal(map[string]any{
				"name": "Root", "email": fmt.Sprintf("root%d@example.com", i), "password": "correct-horse",
			})
			req := httptest.NewRequest("POST", "/api/auth/register-admin", bytes.NewReader(b))
			req.Header.Set("Content-Type", "application/json")
			resp, err := app.Test(req, -1)
			if err != nil {
				t.Errorf("caller %d: %v", i, err)
				return
			}
			statuses[i] = resp.StatusCode
		}(i)
	}
	wg.Wait()

	created := 0
	for i, code := range statuses {
		switch code {
		case fiber.StatusCreated:
			created++
		case fiber.StatusForbidden:
		default:
			t.Errorf("caller %d: status %d", i, code)
		}
	}
	if created != 1 {
		t.Fatalf("%d admins registered, want 1", created)
	}
}

func TestRequireRoleAndCallerFrom(t *testing.T) {
	store := repo.NewMemoryStore()
	app := newTestApp(store, NewLoginLimiter(100, 100))

	rid := uint(4)
	tok, err := GenerateToken(testSecret, time.Hour, &models.User{ID: 9, Role: models.RoleViewer, RestaurantID: &rid})
	if err != nil {
		t.Fatal(err)
	}
	if resp, _ := get(t, app, "/admin-only", tok); resp.StatusCode != fiber.StatusForbidden {
		t.Fatalf("viewer on admin route: %d, want 403", resp.StatusCode)
	}

	probe := fiber.New()
	cfg := &config.Config{JWTSecret: testSecret}
	probe.Get("/", JWTMiddleware(cfg), func(c *fiber.Ctx) error {
		caller, err := CallerFrom(c)
		if err != nil {
			return err
		}
		if caller.UserID != 9 || caller.Role != models.RoleViewer || caller.RestaurantID == nil || *caller.RestaurantID != 4 {
			t.Errorf("caller = %+v", caller)
		}
		return c.SendStatus(fiber.StatusOK)
	})
	if resp, _ := get(t, probe, "/", tok); resp.StatusCode != fiber.StatusOK {
		t.Fatalf("probe: %d", resp.StatusCode)
	}
}

func TestExpiredAndForeignTokens(t *testing.T) {
	store := repo.NewMemoryStore()
	app := newTestApp(store, NewLoginLimiter(100, 100))
	u := &models.User{ID: 1, Role: models.RoleAdmin}

	expired, _ := GenerateToken(testSecret, -time.Minute, u)
	if resp, _ := get(t, app, "/admin-only", expired); resp.StatusCode != fiber.StatusUnauthorized {
		t.Fatalf("expired: %d, want 401", resp.StatusCode)
	}
	foreign, _ := GenerateToken("another-secret-another-secret-123", time.Hour, u)
	if resp, _ := get(t, app, "/admin-only", foreign); resp.StatusCode != fiber.StatusUnauthorized {
		t.Fatalf("foreign signature: %d, want 401", resp.StatusCode)
	}
}

func TestLoginRateLimited(t *testing.T) {
	store := repo.NewMemoryStore()
	app := newTestApp(store, NewLoginLimiter(0.001, 2))
	creds := map[string]any{"email": "a@example.com", "password": "whatever"}

	for i := 0; i < 2; i++ {
		if resp, _ := post(t, app, "/api/auth/login", creds); resp.StatusCode != fiber.StatusUnauthorized {
			t.Fatalf("attempt %d: %d, want 401", i+1, resp.StatusCode)
		}
	}
	if resp, _ := post(t, app, "/api/auth/login", creds); resp.StatusCode != fiber.StatusTooManyRequests {
		t.Fatalf("third attempt: %d, want 429", resp.StatusCode)
	}
}

func TestLoginLimiterCleanup(t *testing.T) {
	l := NewLoginLimiter(1, 1)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	l.Allow("10.0.0.1")
	now = now.Add(10 * time.Minute)
	l.Allow("10.0.0.2")
	l.Cleanup(5 * time.Minute)

	if _, ok := l.visitors["10.0.0.1"]; ok {
		t.Fatal("idle visitor should be dropped")
	}
	if _, ok := l.visitors["10.0.0.2"]; !ok {
		t.Fatal("recent visitor should be kept")
	}
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	store := repo.NewMemoryStore()
	ctx := context.Background()
	if _, err := CreateUser(ctx, store, "A", "a@example.com", "password1", models.RoleAdmin, nil); err != nil {
		t.Fatal(err)
	}
	_, err := CreateUser(ctx, store, "B", "A@EXAMPLE.COM", "password2", models.RoleAdmin, nil)
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("want conflict, got %v", err)
	}
}
