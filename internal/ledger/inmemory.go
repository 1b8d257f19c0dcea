package ledger

import (
	"context"
	"fmt"
	"math/big"
	"sync"
)

type inMemoryLedger struct {
	mu           sync.RWMutex
	balances     map[string]*big.Int
	transactions map[string]TransactionResult
	deposits     map[string]*big.Int
}

// NewInMemory creates a concurrency-safe in-memory ledger useful for unit tests.
func NewInMemory() Ledger {
	return &inMemoryLedger{
		balances:     make(map[string]*big.Int),
		transactions: make(map[string]TransactionResult),
		deposits:     make(map[string]*big.Int),
	}
}

func (l *inMemoryLedger) EnsureAccount(_ context.Context, code string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, exists := l.balances[code]; !exists {
		l.balances[code] = new(big.Int)
	}
	return nil
}

func (l *inMemoryLedger) Balance(_ context.Context, code string) (*big.Int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	balance, exists := l.balances[code]
	if !exists {
		return nil, ErrInsufficientFunds
	}
	return new(big.Int).Set(balance), nil
}

func (l *inMemoryLedger) Deposit(_ context.Context, code, clientTxID string, amount *big.Int) (*big.Int, error) {
	if amount == nil || amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	key := "deposit:" + clientTxID
	if prev, exists := l.deposits[key]; exists {
		return new(big.Int).Set(prev), ErrDuplicateTransaction
	}

	balance, ok := l.balances[code]
	if !ok {
		balance = new(big.Int)
		l.balances[code] = balance
	}
	balance.Add(balance, amount)

	l.deposits[key] = new(big.Int).Set(balance)
	return new(big.Int).Set(balance), nil
}

func (l *inMemoryLedger) Transfer(_ context.Context, fromCode, toCode, kind, clientTxID string, amount *big.Int) (TransactionResult, error) {
	if amount == nil || amount.Sign() <= 0 {
		return TransactionResult{}, ErrInvalidAmount
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if res, exists := l.transactions[kind+":"+clientTxID]; exists {
		return res, ErrDuplicateTransaction
	}

	fromBalance, ok := l.balances[fromCode]
	if !ok {
		return TransactionResult{}, fmt.Errorf("account %s not found", fromCode)
	}
	toBalance, ok := l.balances[toCode]
	if !ok {
		// Same contract as the Postgres backend: destinations must be
		// provisioned with EnsureAccount before funds can land on them.
		return TransactionResult{}, fmt.Errorf("account %s not found", toCode)
	}

	if fromBalance.Cmp(amount) < 0 {
		return TransactionResult{}, ErrInsufficientFunds
	}

	fromBalance.Sub(fromBalance, amount)
	toBalance.Add(toBalance, amount)

	res := TransactionResult{
		TransactionID: kind + ":" + clientTxID,
		FromBalance:   new(big.Int).Set(fromBalance),
		ToBalance:     new(big.Int).Set(toBalance),
	}

	l.transactions[kind+":"+clientTxID] = res
	return res, nil
}
