package kpi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"restoran-kpi/internal/apperr"
	"restoran-kpi/internal/auth"
	"restoran-kpi/internal/config"
	"restoran-kpi/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/xuri/excelize/v2"
)

const testSecret = "test-secret-test-secret-test-secret"

func newTestApp(f *fixture) *fiber.App {
	cfg := &config.Config{JWTSecret: testSecret, JWTTTL: time.Hour}
	app := fiber.New(fiber.Config{ErrorHandler: apperr.ErrorHandler(quietLogger())})

	g := app.Group("/api/kpi", auth.JWTMiddleware(cfg))
	g.Get("/entries", ListEntriesHandler(f.svc))
	g.Get("/entries/:id", GetEntryHandler(f.svc))
	g.Post("/entries", auth.RequireRole(models.RoleAdmin, models.RoleManager), CreateEntryHandler(f.svc))
	g.Put("/entries/:id", auth.RequireRole(models.RoleAdmin, models.RoleManager), UpdateEntryHandler(f.svc))
	g.Delete("/entries/:id", auth.RequireRole(models.RoleAdmin), DeleteEntryHandler(f.svc))
	g.Get("/aggregate", AggregateHandler(f.svc))
	g.Get("/aggregate/export", ExportAggregateHandler(f.svc))
	return app
}

func tokenFor(t *testing.T, u models.User) string {
	t.Helper()
	tok, err := auth.GenerateToken(testSecret, time.Hour, &u)
	if err != nil {
		t.Fatal(err)
	}
	return tok
}

func do(t *testing.T, app *fiber.App, method, path, token string, body any) *http.Response {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}

func TestEntryHandlersFlow(t *testing.T) {
	f := newFixture(t)
	app := newTestApp(f)
	adminTok := tokenFor(t, models.User{ID: 1, Role: models.RoleAdmin})
	managerTok := tokenFor(t, models.User{ID: 2, Role: models.RoleManager, RestaurantID: uintp(f.rA)})

	body := map[string]any{
		"restaurant_id": f.rA,
		"entry_date":    "2024-01-01",
		"revenue":       1000,
		"labour_cost":   300,
		"food_cost":     320.5,
		"orders":        40,
	}
	resp := do(t, app, "POST", "/api/kpi/entries", managerTok, body)
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("create status = %d", resp.StatusCode)
	}
	var created map[string]any
	json.NewDecoder(resp.Body).Decode(&created)
	if created["labour_cost_percent"] != float64(30) || created["entry_date"] != "2024-01-01" {
		t.Fatalf("created = %v", created)
	}

	if resp := do(t, app, "POST", "/api/kpi/entries", managerTok, body); resp.StatusCode != fiber.StatusConflict {
		t.Fatalf("duplicate status = %d, want 409", resp.StatusCode)
	}

	body["restaurant_id"] = f.rB
	if resp := do(t, app, "POST", "/api/kpi/entries", managerTok, body); resp.StatusCode != fiber.StatusForbidden {
		t.Fatalf("other restaurant status = %d, want 403", resp.StatusCode)
	}

	body["revenue"] = -10
	resp = do(t, app, "POST", "/api/kpi/entries", adminTok, body)
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("negative revenue status = %d, want 400", resp.StatusCode)
	}
	var verr map[string]any
	json.NewDecoder(resp.Body).Decode(&verr)
	if details, _ := verr["details"].(map[string]any); details["revenue"] != "gte" {
		t.Fatalf("validation body = %v", verr)
	}

	id := uint(created["id"].(float64))
	path := fmt.Sprintf("/api/kpi/entries/%d", id)
	if resp := do(t, app, "PUT", path, managerTok, map[string]any{"orders": 50}); resp.StatusCode != fiber.StatusOK {
		t.Fatalf("update status = %d", resp.StatusCode)
	}
	if resp := do(t, app, "DELETE", path, managerTok, nil); resp.StatusCode != fiber.StatusForbidden {
		t.Fatalf("manager delete status = %d, want 403", resp.StatusCode)
	}
	if resp := do(t, app, "DELETE", path, adminTok, nil); resp.StatusCode != fiber.StatusNoContent {
		t.Fatalf("admin delete status = %d, want 204", resp.StatusCode)
	}
	if resp := do(t, app, "GET", path, adminTok, nil); resp.StatusCode != fiber.StatusNotFound {
		t.Fatalf("get after delete status = %d, want 404", resp.StatusCode)
	}
}

func TestHandlersRequireToken(t *testing.T) {
	f := newFixture(t)
	app := newTestApp(f)

	if resp := do(t, app, "GET", "/api/kpi/entries", "", nil); resp.StatusCode != fiber.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
	if resp := do(t, app, "GET", "/api/kpi/entries", "garbage", nil); resp.StatusCode != fiber.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
}

func TestAggregateHandlers(t *testing.T) {
	f := newFixture(t)
	app := newTestApp(f)
	for _, d := range []string{"2024-01-01", "2024-01-02", "2024-01-03"} {
		f.mustCreate(t, createReq(f.rA, d, "1000", "300", "300", 40))
	}
	viewerTok := tokenFor(t, models.User{ID: 3, Role: models.RoleViewer, RestaurantID: uintp(f.rA)})

	resp := do(t, app, "GET", "/api/kpi/aggregate?start_date=2024-01-01&end_date=2024-01-07&granularity=week", viewerTok, nil)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("aggregate status = %d", resp.StatusCode)
	}
	var buckets []map[string]any
	json.NewDecoder(resp.Body).Decode(&buckets)
	if len(buckets) != 1 || buckets[0]["total_revenue"] != float64(3000) {
		t.Fatalf("buckets = %v", buckets)
	}
	alerts := buckets[0]["alerts"].(map[string]any)
	if alerts["labour_cost"] != "critical" {
		t.Fatalf("alerts = %v", alerts)
	}

	resp = do(t, app, "GET", "/api/kpi/aggregate?start_date=2024-01-07&end_date=2024-01-01", viewerTok, nil)
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("inverted range status = %d, want 400", resp.StatusCode)
	}

	resp = do(t, app, "GET", "/api/kpi/aggregate/export?start_date=2024-01-01&end_date=2024-01-07&granularity=week", viewerTok, nil)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("export status = %d", resp.StatusCode)
	}
	if cd := resp.Header.Get("Content-Disposition"); !strings.Contains(cd, "kpi-2024-01-01-2024-01-07.xlsx") {
		t.Fatalf("Content-Disposition = %q", cd)
	}

	wb, err := excelize.OpenReader(resp.Body)
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer wb.Close()
	rows, err := wb.GetRows(exportSheet)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 || rows[0][0] != "Period" || rows[1][0] != "2024-01-01" || rows[1][2] != "Kadikoy" {
		t.Fatalf("rows = %v", rows)
	}
}
