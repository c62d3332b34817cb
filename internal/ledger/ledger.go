// Package ledger defines the account-balance collaborator contract. Balance
// reads are snapshots; mutation and locking belong to the external ledger
// system, never to the settlement layer.
package ledger

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/ashwinrao/railswitch/internal/errs"
)

// AccountLedger supplies balance snapshots for the funds check.
type AccountLedger interface {
	GetBalance(ctx context.Context, accountID string) (decimal.Decimal, error)
}

// Static is an in-memory ledger used in dev wiring and tests.
type Static struct {
	mutex    sync.RWMutex
	balances map[string]decimal.Decimal
}

func NewStatic(balances map[string]decimal.Decimal) *Static {
	if balances == nil {
		balances = make(map[string]decimal.Decimal)
	}
	return &Static{balances: balances}
}

func (s *Static) GetBalance(ctx context.Context, accountID string) (decimal.Decimal, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	balance, ok := s.balances[accountID]
	if !ok {
		return decimal.Zero, errs.Newf(errs.KindFunds, "unknown account %s", accountID)
	}
	return balance, nil
}

func (s *Static) SetBalance(accountID string, balance decimal.Decimal) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.balances[accountID] = balance
}
