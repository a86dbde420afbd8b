package ledger

import (
	"context"
	"sort"
	"sync"
	"time"

	"serotonyl.ru/brusliste/internal/common"
)

// fakeStore — Store в памяти. WithinTx держит мьютекс всю транзакцию
// (как FOR UPDATE, только грубее) и применяет изменения только при успехе.
type fakeStore struct {
	mu    sync.Mutex
	state *fakeState

	// failInsert, если задан, возвращается из InsertTransaction внутри транзакции
	failInsert error
}

type fakeState struct {
	people       map[int64]*Person
	txs          []*Transaction
	nextPersonID int64
	nextTxID     int64
	clock        time.Time
}

func newFakeStore() *fakeStore {
	return &fakeStore{state: &fakeState{
		people: make(map[int64]*Person),
		clock:  time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}}
}

func (st *fakeState) clone() *fakeState {
	c := *st
	c.people = make(map[int64]*Person, len(st.people))
	for id, p := range st.people {
		cp := *p
		c.people[id] = &cp
	}
	c.txs = make([]*Transaction, len(st.txs))
	for i, t := range st.txs {
		ct := *t
		c.txs[i] = &ct
	}
	return &c
}

func (st *fakeState) tick() time.Time {
	st.clock = st.clock.Add(time.Second)
	return st.clock
}

func (st *fakeState) byName(name string) *Person {
	for _, p := range st.people {
		if p.Name == name {
			return p
		}
	}
	return nil
}

func (st *fakeState) insert(t *Transaction) *Transaction {
	st.nextTxID++
	saved := *t
	saved.ID = st.nextTxID
	saved.CreatedAt = st.tick()
	st.txs = append(st.txs, &saved)
	out := saved
	return &out
}

func (s *fakeStore) WithinTx(ctx context.Context, fn func(tx TxStore) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	draft := s.state.clone()
	if err := fn(&fakeTx{state: draft, failInsert: s.failInsert}); err != nil {
		return err
	}
	s.state = draft
	return nil
}

func (s *fakeStore) ListPeople(ctx context.Context) ([]*Person, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	people := make([]*Person, 0, len(s.state.people))
	for _, p := range s.state.people {
		cp := *p
		people = append(people, &cp)
	}
	sort.Slice(people, func(i, j int) bool { return people[i].Name < people[j].Name })
	return people, nil
}

func (s *fakeStore) ListTransactions(ctx context.Context) ([]*Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	txs := make([]*Transaction, 0, len(s.state.txs))
	for i := len(s.state.txs) - 1; i >= 0; i-- {
		ct := *s.state.txs[i]
		if ct.PersonID != nil {
			if p, ok := s.state.people[*ct.PersonID]; ok {
				name := p.Name
				ct.PersonName = &name
			}
		}
		txs = append(txs, &ct)
	}
	return txs, nil
}

func (s *fakeStore) InsertTransaction(ctx context.Context, t *Transaction) (*Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.insert(t), nil
}

func (s *fakeStore) UpdateTransactionBeverageType(ctx context.Context, id int64, beverageType *string) (*Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, t := range s.state.txs {
		if t.ID == id {
			t.BeverageType = beverageType
			out := *t
			return &out, nil
		}
	}
	return nil, &common.NotFoundError{Entity: "transaction", ID: id}
}

func (s *fakeStore) person(name string) *Person {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p := s.state.byName(name); p != nil {
		cp := *p
		return &cp
	}
	return nil
}

func (s *fakeStore) transactions() []*Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone().txs
}

type fakeTx struct {
	state      *fakeState
	failInsert error
}

func (tx *fakeTx) EnsurePerson(ctx context.Context, name string, beverageType *string) error {
	if tx.state.byName(name) != nil {
		return nil
	}
	tx.state.nextPersonID++
	now := tx.state.tick()
	tx.state.people[tx.state.nextPersonID] = &Person{
		ID:           tx.state.nextPersonID,
		Name:         name,
		BeverageType: beverageType,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	return nil
}

func (tx *fakeTx) LockPersonByName(ctx context.Context, name string) (*Person, error) {
	if p := tx.state.byName(name); p != nil {
		cp := *p
		return &cp, nil
	}
	return nil, nil
}

func (tx *fakeTx) LockPersonByID(ctx context.Context, id int64) (*Person, error) {
	if p, ok := tx.state.people[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, nil
}

func (tx *fakeTx) ApplyDelta(ctx context.Context, id, delta int64, beverageType *string) (*Person, error) {
	p := tx.state.people[id]
	p.OutstandingUnits += delta
	if beverageType != nil {
		p.BeverageType = beverageType
	}
	p.UpdatedAt = tx.state.tick()
	cp := *p
	return &cp, nil
}

func (tx *fakeTx) ZeroBalance(ctx context.Context, id int64) (*Person, error) {
	p := tx.state.people[id]
	p.OutstandingUnits = 0
	p.UpdatedAt = tx.state.tick()
	cp := *p
	return &cp, nil
}

func (tx *fakeTx) InsertTransaction(ctx context.Context, t *Transaction) (*Transaction, error) {
	if tx.failInsert != nil {
		return nil, tx.failInsert
	}
	return tx.state.insert(t), nil
}

func (tx *fakeTx) DeletePerson(ctx context.Context, id int64) error {
	if _, ok := tx.state.people[id]; !ok {
		return &common.NotFoundError{Entity: "person", ID: id}
	}
	delete(tx.state.people, id)
	for _, t := range tx.state.txs {
		if t.PersonID != nil && *t.PersonID == id {
			t.PersonID = nil
		}
	}
	return nil
}

// recordingNotifier складывает тексты в канал.
type recordingNotifier struct {
	sent chan string
	err  error
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{sent: make(chan string, 8)}
}

func (n *recordingNotifier) Send(ctx context.Context, text string) error {
	n.sent <- text
	return n.err
}
