//go:build integration

package handler_test

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"
	"github.com/sazon-pos/api/internal/config"
	"github.com/sazon-pos/api/internal/database"
	"github.com/sazon-pos/api/internal/router"
	"github.com/sazon-pos/api/internal/ws"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"golang.org/x/crypto/bcrypt"
)

// TestIntegrationFlow exercises the full order-to-invoice lifecycle against a
// real PostgreSQL database: register, order, approve, deliver, direct sale.
func TestIntegrationFlow(t *testing.T) {
	ctx := context.Background()

	pgContainer, connStr, cleanup := setupPostgresContainer(t, ctx)
	defer cleanup()

	runMigrations(t, connStr)

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		t.Fatalf("create pool: %v", err)
	}
	defer pool.Close()

	cfg := &config.Config{
		Port:        "8081",
		DatabaseURL: connStr,
		JWTSecret:   "integration-test-secret",
	}
	queries := database.New(pool)
	hub := ws.NewHub()
	// NOTE: hub.Run() goroutine leaks on test exit; Hub has no shutdown
	// mechanism. Acceptable for tests.
	go hub.Run()

	r := router.New(cfg, queries, pool, hub)

	server := httptest.NewServer(r)
	defer server.Close()

	// --- 1. Bootstrap: admin user and CASH payment method via direct SQL ---
	adminID := createAdminUser(t, ctx, pool)
	createPaymentMethod(t, ctx, pool, "CASH")

	// --- 2. Register a customer through the API ---
	customerTokens := registerCustomer(t, server)
	customerToken := customerTokens["access_token"].(string)

	// --- 3. Login as admin ---
	adminToken := login(t, server, "admin@test.com", "password123")

	// --- 4. Create category and product ---
	categoryResp := httpPostJSON(t, server, "/admin/categories", map[string]interface{}{
		"name": "Mains",
	}, adminToken)
	categoryID := categoryResp["id"].(string)

	productResp := httpPostJSON(t, server, "/admin/products", map[string]interface{}{
		"category_id": categoryID,
		"name":        "Ceviche Mixto",
		"unit_price":  "25.50",
		"stock":       10,
	}, adminToken)
	productID := productResp["id"].(string)

	// --- 5. Customer places an order ---
	orderResp := httpPostJSON(t, server, "/orders", map[string]interface{}{
		"items": []map[string]interface{}{
			{"product_id": productID, "quantity": 1},
		},
	}, customerToken)
	orderID := orderResp["id"].(string)

	if orderResp["status"].(string) != "PENDING" {
		t.Fatalf("order status: got %s, want PENDING", orderResp["status"])
	}
	// 25.50 subtotal, 15% tax rounded to 3.82, total 29.32
	if orderResp["total"].(string) != "29.32" {
		t.Fatalf("order total: got %s, want 29.32", orderResp["total"])
	}

	// --- 6. Stock is reserved at order time ---
	afterOrder := httpGetJSON(t, server, "/products/"+productID, customerToken)
	if afterOrder["stock"].(float64) != 9 {
		t.Fatalf("stock after order: got %v, want 9", afterOrder["stock"])
	}

	// --- 7. Admin approves: invoice generated, order moves to the kitchen ---
	invoiceResp := httpPostJSON(t, server, "/staff/orders/"+orderID+"/approve", nil, adminToken)
	if invoiceResp["status"].(string) != "PAID" {
		t.Fatalf("invoice status: got %s, want PAID", invoiceResp["status"])
	}
	if invoiceResp["subtotal"].(string) != "25.50" {
		t.Fatalf("invoice subtotal: got %s, want 25.50", invoiceResp["subtotal"])
	}
	if invoiceResp["tax"].(string) != "3.82" {
		t.Fatalf("invoice tax: got %s, want 3.82", invoiceResp["tax"])
	}
	if invoiceResp["total"].(string) != "29.32" {
		t.Fatalf("invoice total: got %s, want 29.32", invoiceResp["total"])
	}
	if invoiceResp["origin"].(string) != "Order "+orderID {
		t.Fatalf("invoice origin: got %s, want Order %s", invoiceResp["origin"], orderID)
	}

	orderAfterApprove := httpGetJSON(t, server, "/orders/"+orderID, customerToken)
	if orderAfterApprove["status"].(string) != "IN_KITCHEN" {
		t.Fatalf("order status after approval: got %s, want IN_KITCHEN", orderAfterApprove["status"])
	}

	// --- 8. Approving twice is a hard stop ---
	rr := httpPost(t, server, "/staff/orders/"+orderID+"/approve", nil, adminToken)
	if rr.StatusCode != http.StatusConflict {
		t.Fatalf("second approval: got %d, want %d", rr.StatusCode, http.StatusConflict)
	}
	rr.Body.Close()

	// --- 9. Deliver the order through the pipeline ---
	patchStatus(t, server, orderID, "OUT_FOR_DELIVERY", adminToken)
	patchStatus(t, server, orderID, "DELIVERED", adminToken)

	// --- 10. Direct point-of-sale invoice, no backing order ---
	directResp := httpPostJSON(t, server, "/staff/invoices/direct", map[string]interface{}{
		"items": []map[string]interface{}{
			{"product_id": productID, "quantity": 2},
		},
	}, adminToken)
	if directResp["origin"].(string) != "Direct sale" {
		t.Fatalf("direct invoice origin: got %s, want Direct sale", directResp["origin"])
	}
	if directResp["customer_name"].(string) != "Consumidor Final" {
		t.Fatalf("direct invoice customer: got %s, want Consumidor Final", directResp["customer_name"])
	}
	// 2 x 25.50 = 51.00, tax 7.65, total 58.65
	if directResp["total"].(string) != "58.65" {
		t.Fatalf("direct invoice total: got %s, want 58.65", directResp["total"])
	}

	afterDirect := httpGetJSON(t, server, "/products/"+productID, customerToken)
	if afterDirect["stock"].(float64) != 7 {
		t.Fatalf("stock after direct sale: got %v, want 7", afterDirect["stock"])
	}

	// --- 11. Movement ledger reconciles with the stock column ---
	movements := httpGetList(t, server, "/admin/products/"+productID+"/movements", adminToken)
	if len(movements) != 3 {
		t.Fatalf("movements count: got %d, want 3 (initial, order, direct sale)", len(movements))
	}

	// --- 12. Audit trail captured the whole flow ---
	events := httpGetList(t, server, "/admin/audit-events", adminToken)
	if len(events) < 4 {
		t.Fatalf("audit events: got %d, want at least 4", len(events))
	}

	t.Logf("Integration test passed: container=%s, admin=%s, order=%s",
		pgContainer.GetContainerID(), adminID, orderID)
}

// --- Setup helpers ---

func setupPostgresContainer(t *testing.T, ctx context.Context) (testcontainers.Container, string, func()) {
	t.Helper()

	pgContainer, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("sazon_test"),
		tcpostgres.WithUsername("sazon"),
		tcpostgres.WithPassword("sazon"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Fatalf("start postgres container: %v", err)
	}

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("get connection string: %v", err)
	}

	cleanup := func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("terminate container: %v", err)
		}
	}

	return pgContainer, connStr, cleanup
}

func runMigrations(t *testing.T, connStr string) {
	t.Helper()

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		t.Fatalf("open db for migrations: %v", err)
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		t.Fatalf("create migrate driver: %v", err)
	}

	// Path relative to this test file's package directory.
	m, err := migrate.NewWithDatabaseInstance(
		"file://../../migrations",
		"postgres", driver)
	if err != nil {
		t.Fatalf("create migrate instance: %v", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		t.Fatalf("run migrations: %v", err)
	}
}

func createAdminUser(t *testing.T, ctx context.Context, pool *pgxpool.Pool) uuid.UUID {
	t.Helper()
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}

	var id uuid.UUID
	err = pool.QueryRow(ctx,
		`INSERT INTO users (email, hashed_password, full_name, role)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id`,
		"admin@test.com", string(hashedPassword), "Test Admin", "ADMIN",
	).Scan(&id)
	if err != nil {
		t.Fatalf("create admin user: %v", err)
	}
	return id
}

func createPaymentMethod(t *testing.T, ctx context.Context, pool *pgxpool.Pool, name string) {
	t.Helper()
	if _, err := pool.Exec(ctx,
		`INSERT INTO payment_methods (name) VALUES ($1)`, name); err != nil {
		t.Fatalf("create payment method %s: %v", name, err)
	}
}

// --- API call helpers ---

func registerCustomer(t *testing.T, server *httptest.Server) map[string]interface{} {
	t.Helper()
	return httpPostJSON(t, server, "/auth/register", map[string]interface{}{
		"email":     "maria@test.com",
		"password":  "password123",
		"full_name": "Maria Lopez",
		"tax_id":    "1712345678",
	}, "")
}

func login(t *testing.T, server *httptest.Server, email, password string) string {
	t.Helper()
	resp := httpPostJSON(t, server, "/auth/login", map[string]interface{}{
		"email":    email,
		"password": password,
	}, "")
	token, ok := resp["access_token"].(string)
	if !ok || token == "" {
		t.Fatalf("login failed: no access_token in response: %+v", resp)
	}
	return token
}

func patchStatus(t *testing.T, server *httptest.Server, orderID, status, token string) {
	t.Helper()
	b, _ := json.Marshal(map[string]string{"status": status})
	req, err := http.NewRequest("PATCH", server.URL+"/staff/orders/"+orderID+"/status", bytes.NewReader(b))
	if err != nil {
		t.Fatalf("create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		var errResp map[string]interface{}
		json.NewDecoder(resp.Body).Decode(&errResp)
		t.Fatalf("PATCH status %s: got %d, body: %v", status, resp.StatusCode, errResp)
	}
}

// --- HTTP helpers ---

func httpPost(t *testing.T, server *httptest.Server, path string, body map[string]interface{}, token string) *http.Response {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest("POST", server.URL+path, reader)
	if err != nil {
		t.Fatalf("create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	return resp
}

func httpPostJSON(t *testing.T, server *httptest.Server, path string, body map[string]interface{}, token string) map[string]interface{} {
	t.Helper()
	resp := httpPost(t, server, path, body, token)
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errResp map[string]interface{}
		json.NewDecoder(resp.Body).Decode(&errResp)
		t.Fatalf("POST %s: status %d, body: %v", path, resp.StatusCode, errResp)
	}

	var result map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return result
}

func httpGetJSON(t *testing.T, server *httptest.Server, path string, token string) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	httpGetInto(t, server, path, token, &result)
	return result
}

func httpGetList(t *testing.T, server *httptest.Server, path string, token string) []interface{} {
	t.Helper()
	var result []interface{}
	httpGetInto(t, server, path, token, &result)
	return result
}

func httpGetInto(t *testing.T, server *httptest.Server, path, token string, out interface{}) {
	t.Helper()
	req, err := http.NewRequest("GET", server.URL+path, nil)
	if err != nil {
		t.Fatalf("create request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errResp map[string]interface{}
		json.NewDecoder(resp.Body).Decode(&errResp)
		t.Fatalf("GET %s: status %d, body: %v", path, resp.StatusCode, errResp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}
