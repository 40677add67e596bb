package mocks

import (
	"context"
	"sync"

	"github.com/jackc/pgx/v5"
)

// FakeTx records Commit and Rollback. Any other pgx.Tx method panics on the nil embedded interface.
type FakeTx struct {
	pgx.Tx
	mu         sync.Mutex
	Committed  bool
	RolledBack bool
	CommitErr  error
}

func (tx *FakeTx) Commit(ctx context.Context) error {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	if tx.CommitErr != nil {
		return tx.CommitErr
	}
	tx.Committed = true
	return nil
}

func (tx *FakeTx) Rollback(ctx context.Context) error {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	if tx.Committed {
		return pgx.ErrTxClosed
	}
	tx.RolledBack = true
	return nil
}

// TxBeginnerFake hands out one FakeTx per BeginTx call.
type TxBeginnerFake struct {
	mu       sync.Mutex
	BeginErr error
	Txs      []*FakeTx
}

func (b *TxBeginnerFake) BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.BeginErr != nil {
		return nil, b.BeginErr
	}
	tx := &FakeTx{}
	b.Txs = append(b.Txs, tx)
	return tx, nil
}

func (b *TxBeginnerFake) Last() *FakeTx {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.Txs) == 0 {
		return nil
	}
	return b.Txs[len(b.Txs)-1]
}
