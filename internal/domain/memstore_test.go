package domain_test

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/karuppiah-t/transfercore/internal/domain"
)

// The in-memory store below mirrors the storage contract the orchestrator
// depends on: exclusive blocking row locks held until the unit of work ends,
// staged writes that become visible only on commit, and a version check on
// save. It lets the concurrency properties run without a database.

type memRow struct {
	mu  sync.Mutex
	acc domain.Account
}

type memStore struct {
	mu     sync.Mutex
	rows   map[int64]*memRow
	byNum  map[string]int64
	nextID int64

	transactions []domain.Transaction
	audits       []domain.AuditLog
	nextTxID     int64

	lockRequests [][]int64
}

func newMemStore() *memStore {
	return &memStore{
		rows:  make(map[int64]*memRow),
		byNum: make(map[string]int64),
	}
}

func (s *memStore) addAccount(number, balance string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	id := s.nextID
	s.rows[id] = &memRow{acc: domain.Account{
		ID:      id,
		Number:  number,
		Balance: decimal.RequireFromString(balance),
	}}
	s.byNum[number] = id
	return id
}

func (s *memStore) balance(number string) decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rows[s.byNum[number]].acc.Balance
}

func (s *memStore) committedTransactions() []domain.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Transaction, len(s.transactions))
	copy(out, s.transactions)
	return out
}

func (s *memStore) committedAudits() []domain.AuditLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.AuditLog, len(s.audits))
	copy(out, s.audits)
	return out
}

// memUnit is one atomic unit of work: locks held plus staged writes.
type memUnit struct {
	store       *memStore
	locked      []*memRow
	staged      map[int64]domain.Account
	stagedTx    []*domain.Transaction
	stagedAudit []domain.AuditLog
}

type unitKey struct{}

func unitFrom(ctx context.Context) *memUnit {
	u, _ := ctx.Value(unitKey{}).(*memUnit)
	return u
}

func (u *memUnit) finish(commit bool) {
	if commit {
		u.store.mu.Lock()
		for id, acc := range u.staged {
			u.store.rows[id].acc = acc
		}
		for _, t := range u.stagedTx {
			u.store.transactions = append(u.store.transactions, *t)
		}
		u.store.audits = append(u.store.audits, u.stagedAudit...)
		u.store.mu.Unlock()
	}
	for i := len(u.locked) - 1; i >= 0; i-- {
		u.locked[i].mu.Unlock()
	}
}

// memTxManager implements domain.TransactionManager over the memStore.
type memTxManager struct {
	store *memStore

	mu       sync.Mutex
	attempts int
}

func (m *memTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	m.mu.Lock()
	m.attempts++
	m.mu.Unlock()

	u := &memUnit{store: m.store, staged: make(map[int64]domain.Account)}
	err := fn(context.WithValue(ctx, unitKey{}, u))
	u.finish(err == nil)
	return err
}

// memAccounts implements domain.AccountRepository.
type memAccounts struct {
	store *memStore
}

func (r *memAccounts) FindByNumber(ctx context.Context, number string) (*domain.Account, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	id, ok := r.store.byNum[number]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrAccountNotFound, number)
	}
	acc := r.store.rows[id].acc
	return &acc, nil
}

func (r *memAccounts) LockAndFetchByIDs(ctx context.Context, ids []int64) ([]*domain.Account, error) {
	u := unitFrom(ctx)

	ordered := make([]int64, len(ids))
	copy(ordered, ids)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i] < ordered[j] })

	r.store.mu.Lock()
	r.store.lockRequests = append(r.store.lockRequests, ordered)
	r.store.mu.Unlock()

	accounts := make([]*domain.Account, 0, len(ordered))
	for _, id := range ordered {
		r.store.mu.Lock()
		row, ok := r.store.rows[id]
		r.store.mu.Unlock()
		if !ok {
			return nil, fmt.Errorf("%w: id %d", domain.ErrAccountNotFound, id)
		}
		row.mu.Lock()
		u.locked = append(u.locked, row)
		acc := row.acc
		accounts = append(accounts, &acc)
	}
	return accounts, nil
}

func (r *memAccounts) Save(ctx context.Context, account *domain.Account) error {
	u := unitFrom(ctx)

	current, staged := u.staged[account.ID]
	if !staged {
		r.store.mu.Lock()
		current = r.store.rows[account.ID].acc
		r.store.mu.Unlock()
	}
	if current.Version != account.Version {
		return fmt.Errorf("%w: account %d at version %d", domain.ErrStaleVersion, account.ID, account.Version)
	}
	account.Version++
	u.staged[account.ID] = *account
	return nil
}

// memLedger implements domain.LedgerRepository.
type memLedger struct {
	store *memStore
}

func (r *memLedger) InsertTransaction(ctx context.Context, tx *domain.Transaction) (int64, error) {
	u := unitFrom(ctx)
	r.store.mu.Lock()
	r.store.nextTxID++
	tx.ID = r.store.nextTxID
	r.store.mu.Unlock()
	u.stagedTx = append(u.stagedTx, tx)
	return tx.ID, nil
}

func (r *memLedger) UpdateTransactionStatus(ctx context.Context, id int64, status domain.TransactionStatus) error {
	u := unitFrom(ctx)
	for _, t := range u.stagedTx {
		if t.ID == id {
			t.Status = status
			return nil
		}
	}
	return fmt.Errorf("transaction %d not staged in this unit", id)
}

func (r *memLedger) AppendAuditLog(ctx context.Context, action, details string) error {
	u := unitFrom(ctx)
	u.stagedAudit = append(u.stagedAudit, domain.AuditLog{Action: action, Details: details})
	return nil
}

// harness bundles a fresh store with wired orchestrator and supervisor.
type harness struct {
	store      *memStore
	txm        *memTxManager
	supervisor *domain.Supervisor
	orch       *domain.Orchestrator
}

func newHarness() *harness {
	store := newMemStore()
	txm := &memTxManager{store: store}
	orch := domain.NewOrchestrator(&memAccounts{store: store}, &memLedger{store: store})
	return &harness{
		store:      store,
		txm:        txm,
		orch:       orch,
		supervisor: domain.NewSupervisor(orch, txm, nil, nil),
	}
}
