package ledger

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

type recordKey struct {
	kind Kind
	id   string
}

// MemoryStore is a concurrency-safe in-memory Store used in tests and when
// running without a database.
type MemoryStore struct {
	mu       sync.RWMutex
	locks    map[string]*sync.Mutex
	balances map[string]Balance
	records  map[recordKey]Record
}

// NewMemoryStore builds an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		locks:    make(map[string]*sync.Mutex),
		balances: make(map[string]Balance),
		records:  make(map[recordKey]Record),
	}
}

func (s *MemoryStore) userLock(userID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[userID] = l
	}
	return l
}

// WithUserLock serializes callbacks per user. Mutations are buffered in the
// Tx and applied only when fn succeeds, mirroring transaction rollback.
func (s *MemoryStore) WithUserLock(ctx context.Context, userID string, fn func(Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l := s.userLock(userID)
	l.Lock()
	defer l.Unlock()

	s.mu.RLock()
	bal, ok := s.balances[userID]
	s.mu.RUnlock()
	if !ok {
		bal = Balance{UserID: userID, Amount: decimal.Zero, UpdatedAt: time.Now().UTC()}
	}

	tx := &memTx{store: s, userID: userID, balance: bal.Amount}
	if err := fn(tx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if tx.balanceDirty || !ok {
		s.balances[userID] = Balance{UserID: userID, Amount: tx.balance, UpdatedAt: time.Now().UTC()}
	}
	for _, rec := range tx.upserts {
		s.records[recordKey{rec.Kind, rec.ID}] = rec
	}
	for _, key := range tx.deletes {
		delete(s.records, key)
	}
	return nil
}

func (s *MemoryStore) ReadBalance(_ context.Context, userID string) (Balance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if bal, ok := s.balances[userID]; ok {
		return bal, nil
	}
	return Balance{UserID: userID, Amount: decimal.Zero}, nil
}

func (s *MemoryStore) ListBalances(_ context.Context) ([]Balance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Balance, 0, len(s.balances))
	for _, bal := range s.balances {
		out = append(out, bal)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

func (s *MemoryStore) FindRecord(_ context.Context, kind Kind, id string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[recordKey{kind, id}]
	if !ok {
		return Record{}, ErrNotFound
	}
	return rec, nil
}

func (s *MemoryStore) ListRecords(_ context.Context, kind Kind, userID string, filter RecordFilter) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Record
	for key, rec := range s.records {
		if key.kind == kind && rec.UserID == userID && filter.Matches(rec) {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

type memTx struct {
	store        *MemoryStore
	userID       string
	balance      decimal.Decimal
	balanceDirty bool
	upserts      []Record
	deletes      []recordKey
}

func (t *memTx) Record(kind Kind, id string) (Record, error) {
	rec, err := t.store.FindRecord(context.Background(), kind, id)
	if err != nil {
		return Record{}, err
	}
	if rec.UserID != t.userID {
		return Record{}, ErrNotFound
	}
	return rec, nil
}

func (t *memTx) InsertRecord(rec Record) error {
	t.upserts = append(t.upserts, rec)
	return nil
}

func (t *memTx) UpdateRecord(rec Record) error {
	t.upserts = append(t.upserts, rec)
	return nil
}

func (t *memTx) DeleteRecord(kind Kind, id string) error {
	t.deletes = append(t.deletes, recordKey{kind, id})
	return nil
}

func (t *memTx) Balance() (decimal.Decimal, error) {
	return t.balance, nil
}

func (t *memTx) ApplyDelta(delta decimal.Decimal) (decimal.Decimal, error) {
	next := t.balance.Add(delta)
	if next.IsNegative() {
		return decimal.Decimal{}, ErrInsufficientFunds
	}
	t.balance = next
	t.balanceDirty = true
	return next, nil
}
