package server

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"battle-arena/internal/api"
	"battle-arena/internal/config"
	"battle-arena/internal/database"
	"battle-arena/internal/notify"
	"battle-arena/internal/repository"
	"battle-arena/internal/service"

	"github.com/rs/zerolog"
)

type testServer struct {
	srv *httptest.Server
	db  *sql.DB
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	cfg := &config.Config{
		EliminationThreshold: 4,
		DefenseHoldingCap:    10,
	}

	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"), zerolog.Nop())
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	log := zerolog.Nop()
	battles := repository.NewBattleRepository(db, cfg, log)
	stocks := repository.NewInventoryRepository(db, log)
	participants := repository.NewParticipantRepository(db, log)
	items := repository.NewItemRepository(db, log)
	logs := repository.NewBattleLogRepository(db, log)
	hub := notify.NewHub(log)
	webhook := api.NewWebhookNotifier(cfg, log)

	battleSvc := service.NewBattleService(battles, stocks, participants, items, logs, hub, webhook, log)
	inventorySvc := service.NewInventoryService(stocks, items, log)

	arena := NewArenaServer(battleSvc, inventorySvc, participants, hub, log)
	srv := httptest.NewServer(arena.Routes())
	t.Cleanup(srv.Close)

	return &testServer{srv: srv, db: db}
}

func (ts *testServer) post(t *testing.T, path string, body any) *http.Response {
	t.Helper()

	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	resp, err := http.Post(ts.srv.URL+path, "application/json", bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (ts *testServer) get(t *testing.T, path string) *http.Response {
	t.Helper()

	resp, err := http.Get(ts.srv.URL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (ts *testServer) seed(t *testing.T) {
	t.Helper()

	resp := ts.post(t, "/api/v1/admin/participants", map[string]string{"id": "p1", "display_name": "Alice"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create p1: status %d", resp.StatusCode)
	}
	resp = ts.post(t, "/api/v1/admin/participants", map[string]string{"id": "p2", "display_name": "Bob"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create p2: status %d", resp.StatusCode)
	}
	resp = ts.post(t, "/api/v1/admin/grants", map[string]any{"owner_id": "p1", "item_id": "item-attack", "quantity": 1})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("grant: status %d", resp.StatusCode)
	}
}

func (ts *testServer) stockID(t *testing.T, ownerID, itemID string) string {
	t.Helper()

	var id string
	err := ts.db.QueryRowContext(context.Background(),
		`SELECT id FROM inventory WHERE owner_id = ? AND item_id = ?`, ownerID, itemID).Scan(&id)
	if err != nil {
		t.Fatalf("look up stock id: %v", err)
	}
	return id
}

func TestUseItemEndpoint(t *testing.T) {
	ts := newTestServer(t)
	ts.seed(t)
	stock := ts.stockID(t, "p1", "item-attack")

	resp := ts.post(t, "/api/v1/battle/use", map[string]string{
		"actor_id":          "p1",
		"inventory_item_id": stock,
		"target_id":         "p2",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var result effectResultResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if result.OutcomeKind != "applied" {
		t.Fatalf("outcome = %s, want applied", result.OutcomeKind)
	}

	resp = ts.get(t, "/api/v1/participants/p2")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get participant status = %d", resp.StatusCode)
	}
	var p participantView
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		t.Fatalf("decode participant: %v", err)
	}
	if p.Injuries != 1 {
		t.Fatalf("injuries = %d, want 1", p.Injuries)
	}
}

func TestUseItemMissingTargetIsBadRequest(t *testing.T) {
	ts := newTestServer(t)
	ts.seed(t)
	stock := ts.stockID(t, "p1", "item-attack")

	resp := ts.post(t, "/api/v1/battle/use", map[string]string{
		"actor_id":          "p1",
		"inventory_item_id": stock,
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestUseItemUnknownActorIsNotFound(t *testing.T) {
	ts := newTestServer(t)
	ts.seed(t)
	stock := ts.stockID(t, "p1", "item-attack")

	resp := ts.post(t, "/api/v1/battle/use", map[string]string{
		"actor_id":          "ghost",
		"inventory_item_id": stock,
		"target_id":         "p2",
	})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestTransferCapConflict(t *testing.T) {
	ts := newTestServer(t)
	ts.seed(t)

	resp := ts.post(t, "/api/v1/admin/grants", map[string]any{"owner_id": "p1", "item_id": "item-defense", "quantity": 1})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("grant defense: status %d", resp.StatusCode)
	}
	resp = ts.post(t, "/api/v1/admin/grants", map[string]any{"owner_id": "p2", "item_id": "item-defense", "quantity": 10})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("grant defense to p2: status %d", resp.StatusCode)
	}

	stock := ts.stockID(t, "p1", "item-defense")
	resp = ts.post(t, "/api/v1/inventory/transfer", map[string]string{
		"from_id":           "p1",
		"to_id":             "p2",
		"inventory_item_id": stock,
	})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("status = %d, want 409", resp.StatusCode)
	}
}

func TestQuantityEndpointDefaultsToZero(t *testing.T) {
	ts := newTestServer(t)
	ts.seed(t)

	resp := ts.get(t, "/api/v1/inventory/p2/quantity?item_id=item-heal")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var body map[string]int
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["quantity"] != 0 {
		t.Fatalf("quantity = %d, want 0", body["quantity"])
	}
}
