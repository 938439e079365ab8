package ledger

import (
	"context"
	"testing"

	"github.com/klingon-exchange/ledger-indexer/internal/storage"
	"github.com/klingon-exchange/ledger-indexer/pkg/logging"
)

type recordingSink struct {
	applied   []string
	rolledTo  []int64
}

func (r *recordingSink) BlockApplied(height int64, blockID string) {
	r.applied = append(r.applied, blockID)
}
func (r *recordingSink) RollbackCompleted(height int64) {
	r.rolledTo = append(r.rolledTo, height)
}

func newTestEngine(t *testing.T) (*Engine, *recordingSink) {
	t.Helper()
	store, err := storage.New(&storage.Config{DSN: ":memory:"})
	if err != nil {
		t.Fatalf("storage.New() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })

	sink := &recordingSink{}
	log := logging.New(&logging.Config{Level: "error"})
	return NewEngine(store, log, WithEventSink(sink)), sink
}

func TestEngineSubmitGenesisAndQueryBalance(t *testing.T) {
	engine, sink := newTestEngine(t)
	ctx := context.Background()

	req := genesisRequest()
	if err := engine.SubmitBlock(ctx, req); err != nil {
		t.Fatalf("SubmitBlock() error = %v", err)
	}

	balance, err := engine.GetBalance(ctx, "addr1")
	if err != nil {
		t.Fatalf("GetBalance() error = %v", err)
	}
	if balance != 10 {
		t.Errorf("GetBalance(addr1) = %d, want 10", balance)
	}
	if len(sink.applied) != 1 || sink.applied[0] != req.ID {
		t.Errorf("sink.applied = %v, want [%s]", sink.applied, req.ID)
	}
}

func TestEngineRejectsHeightGap(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	if err := engine.SubmitBlock(ctx, genesisRequest()); err != nil {
		t.Fatalf("SubmitBlock(genesis) error = %v", err)
	}

	bad := &BlockRequest{Height: 3}
	bad.ID = ComputeBlockID(3, nil)
	err := engine.SubmitBlock(ctx, bad)
	ledgerErr, ok := err.(*Error)
	if !ok {
		t.Fatalf("error = %v (%T), want *Error", err, err)
	}
	if ledgerErr.Code != CodeInvalidHeight {
		t.Errorf("Code = %s, want %s", ledgerErr.Code, CodeInvalidHeight)
	}

	// A rejected submission must not have mutated height.
	height, err := storage.MaxHeight(ctx, engine.store.DB())
	if err != nil {
		t.Fatalf("MaxHeight() error = %v", err)
	}
	if height != 1 {
		t.Errorf("MaxHeight() after rejected submit = %d, want 1", height)
	}
}

func TestEngineRollbackEndToEnd(t *testing.T) {
	engine, sink := newTestEngine(t)
	ctx := context.Background()

	if err := engine.SubmitBlock(ctx, genesisRequest()); err != nil {
		t.Fatalf("SubmitBlock(genesis) error = %v", err)
	}

	split := TransactionRequest{
		ID:     "tx2",
		Inputs: []InputRequest{{TxID: "tx1", Index: 0}},
		Outputs: []OutputRequest{
			{Address: "addr2", Value: 4},
			{Address: "addr3", Value: 6},
		},
	}
	block2 := &BlockRequest{Height: 2, Transactions: []TransactionRequest{split}}
	block2.ID = ComputeBlockID(2, []string{"tx2"})
	if err := engine.SubmitBlock(ctx, block2); err != nil {
		t.Fatalf("SubmitBlock(block2) error = %v", err)
	}

	if err := engine.Rollback(ctx, 1); err != nil {
		t.Fatalf("Rollback(1) error = %v", err)
	}

	balance, err := engine.GetBalance(ctx, "addr1")
	if err != nil {
		t.Fatalf("GetBalance() error = %v", err)
	}
	if balance != 10 {
		t.Errorf("GetBalance(addr1) after rollback = %d, want 10", balance)
	}
	if len(sink.rolledTo) != 1 || sink.rolledTo[0] != 1 {
		t.Errorf("sink.rolledTo = %v, want [1]", sink.rolledTo)
	}
}

func TestEngineRollbackRejectsNegativeTarget(t *testing.T) {
	engine, _ := newTestEngine(t)
	err := engine.Rollback(context.Background(), -1)
	ledgerErr, ok := err.(*Error)
	if !ok {
		t.Fatalf("error = %v (%T), want *Error", err, err)
	}
	if ledgerErr.Code != CodeInvalidTarget {
		t.Errorf("Code = %s, want %s", ledgerErr.Code, CodeInvalidTarget)
	}
}

func TestEngineBalanceAgreesWithComputed(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	if err := engine.SubmitBlock(ctx, genesisRequest()); err != nil {
		t.Fatalf("SubmitBlock(genesis) error = %v", err)
	}

	cached, err := engine.GetBalance(ctx, "addr1")
	if err != nil {
		t.Fatalf("GetBalance() error = %v", err)
	}
	computed, err := engine.ComputeBalance(ctx, "addr1")
	if err != nil {
		t.Fatalf("ComputeBalance() error = %v", err)
	}
	if cached != computed {
		t.Errorf("GetBalance() = %d, ComputeBalance() = %d, want equal", cached, computed)
	}
}
