package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/klingon-exchange/ledger-indexer/internal/ledger"
	"github.com/klingon-exchange/ledger-indexer/internal/storage"
	"github.com/klingon-exchange/ledger-indexer/pkg/logging"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	store, err := storage.New(&storage.Config{DSN: ":memory:"})
	if err != nil {
		t.Fatalf("storage.New() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })

	log := logging.New(&logging.Config{Level: "error"})
	engine := ledger.NewEngine(store, log)
	return NewServer(engine, log)
}

func postJSON(t *testing.T, srv *Server, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("json.Marshal() error = %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
		t.Fatalf("failed to decode response %q: %v", rec.Body.String(), err)
	}
}

func genesisBlock() map[string]interface{} {
	return map[string]interface{}{
		"id":     ledger.ComputeBlockID(1, []string{"tx1"}),
		"height": 1,
		"transactions": []map[string]interface{}{
			{
				"id":     "tx1",
				"inputs": []interface{}{},
				"outputs": []map[string]interface{}{
					{"address": "addr1", "value": 10},
				},
			},
		},
	}
}

// TestSubmitBlockGenesis covers accepting a valid genesis block.
func TestSubmitBlockGenesis(t *testing.T) {
	srv := newTestServer(t)

	rec := postJSON(t, srv, "/blocks", genesisBlock())
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s, want 200", rec.Code, rec.Body.String())
	}

	var msg messageResponse
	decodeBody(t, rec, &msg)
	if msg.Message != "Block processed successfully" {
		t.Errorf("Message = %q, want success message", msg.Message)
	}
}

// TestGetBalanceAfterGenesis covers balance reflecting applied outputs.
func TestGetBalanceAfterGenesis(t *testing.T) {
	srv := newTestServer(t)
	postJSON(t, srv, "/blocks", genesisBlock())

	req := httptest.NewRequest(http.MethodGet, "/balance/addr1", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s, want 200", rec.Code, rec.Body.String())
	}
	var balance balanceResponse
	decodeBody(t, rec, &balance)
	if balance.Balance != 10 {
		t.Errorf("Balance = %d, want 10", balance.Balance)
	}
}

// TestGetBalanceUnknownAddressIsZero covers the implicit zero-balance case.
func TestGetBalanceUnknownAddressIsZero(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/balance/nobody", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var balance balanceResponse
	decodeBody(t, rec, &balance)
	if balance.Balance != 0 {
		t.Errorf("Balance = %d, want 0", balance.Balance)
	}
}

// TestGetBalanceEmptyAddressIsValidationError covers a missing address
// path segment reaching the handler's 400 instead of the mux's bare 404.
func TestGetBalanceEmptyAddressIsValidationError(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/balance/", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, body = %s, want 400", rec.Code, rec.Body.String())
	}
	var errBody errorResponse
	decodeBody(t, rec, &errBody)
	if errBody.Code != ledger.CodeValidationError {
		t.Errorf("Code = %s, want %s", errBody.Code, ledger.CodeValidationError)
	}
}

// TestSubmitBlockHeightGap covers a height gap being rejected with a 400
// and INVALID_HEIGHT.
func TestSubmitBlockHeightGap(t *testing.T) {
	srv := newTestServer(t)
	postJSON(t, srv, "/blocks", genesisBlock())

	bad := map[string]interface{}{
		"id":           ledger.ComputeBlockID(3, nil),
		"height":       3,
		"transactions": []interface{}{},
	}
	rec := postJSON(t, srv, "/blocks", bad)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, body = %s, want 400", rec.Code, rec.Body.String())
	}

	var errBody errorResponse
	decodeBody(t, rec, &errBody)
	if errBody.Code != ledger.CodeInvalidHeight {
		t.Errorf("Code = %s, want %s", errBody.Code, ledger.CodeInvalidHeight)
	}
}

// TestSubmitBlockSumMismatch covers conservation-of-value failures
// surfacing as SUM_MISMATCH.
func TestSubmitBlockSumMismatch(t *testing.T) {
	srv := newTestServer(t)
	postJSON(t, srv, "/blocks", genesisBlock())

	bad := map[string]interface{}{
		"id":     ledger.ComputeBlockID(2, []string{"tx2"}),
		"height": 2,
		"transactions": []map[string]interface{}{
			{
				"id": "tx2",
				"inputs": []map[string]interface{}{
					{"txId": "tx1", "index": 0},
				},
				"outputs": []map[string]interface{}{
					{"address": "addr2", "value": 999},
				},
			},
		},
	}
	rec := postJSON(t, srv, "/blocks", bad)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, body = %s, want 400", rec.Code, rec.Body.String())
	}

	var errBody errorResponse
	decodeBody(t, rec, &errBody)
	if errBody.Code != ledger.CodeSumMismatch {
		t.Errorf("Code = %s, want %s", errBody.Code, ledger.CodeSumMismatch)
	}
}

// TestRollbackEndToEnd covers the rollback endpoint end to end: submit two
// blocks, roll back to height 1, confirm balances revert.
func TestRollbackEndToEnd(t *testing.T) {
	srv := newTestServer(t)
	postJSON(t, srv, "/blocks", genesisBlock())

	split := map[string]interface{}{
		"id":     ledger.ComputeBlockID(2, []string{"tx2"}),
		"height": 2,
		"transactions": []map[string]interface{}{
			{
				"id": "tx2",
				"inputs": []map[string]interface{}{
					{"txId": "tx1", "index": 0},
				},
				"outputs": []map[string]interface{}{
					{"address": "addr2", "value": 4},
					{"address": "addr3", "value": 6},
				},
			},
		},
	}
	if rec := postJSON(t, srv, "/blocks", split); rec.Code != http.StatusOK {
		t.Fatalf("submit block2 status = %d, body = %s", rec.Code, rec.Body.String())
	}

	req := httptest.NewRequest(http.MethodPost, "/rollback?height=1", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("rollback status = %d, body = %s, want 200", rec.Code, rec.Body.String())
	}

	var msg messageResponse
	decodeBody(t, rec, &msg)
	want := fmt.Sprintf("Rollback to height %d completed successfully", 1)
	if msg.Message != want {
		t.Errorf("Message = %q, want %q", msg.Message, want)
	}

	balReq := httptest.NewRequest(http.MethodGet, "/balance/addr1", nil)
	balRec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(balRec, balReq)
	var balance balanceResponse
	decodeBody(t, balRec, &balance)
	if balance.Balance != 10 {
		t.Errorf("Balance(addr1) after rollback = %d, want 10", balance.Balance)
	}
}

// TestRollbackMissingHeightParam covers the transport-level validation
// for a missing required query parameter.
func TestRollbackMissingHeightParam(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/rollback", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	var errBody errorResponse
	decodeBody(t, rec, &errBody)
	if errBody.Code != ledger.CodeValidationError {
		t.Errorf("Code = %s, want %s", errBody.Code, ledger.CodeValidationError)
	}
}

// TestRollbackNegativeHeight covers the transport-level rejection of a
// negative height before it reaches the engine.
func TestRollbackNegativeHeight(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/rollback?height=-1", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

// TestCORSPreflight covers the OPTIONS preflight short-circuit.
func TestCORSPreflight(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/blocks", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Errorf("Access-Control-Allow-Origin = %q, want echoed origin", got)
	}
}
