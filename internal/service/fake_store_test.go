package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/restaurant-seating/internal/model"
	"github.com/iliyamo/restaurant-seating/internal/queue"
	"github.com/iliyamo/restaurant-seating/internal/repository"
)

// fakeStore is an in-memory Store. Transactions are serialized and rolled
// back by restoring a snapshot.
type fakeStore struct {
	txMu sync.Mutex
	mu   sync.Mutex

	tables       map[int64]model.Table
	nextTableID  int64
	codes        map[string]string
	reservations map[string]model.Reservation
	entries      map[string]model.WaitingEntry
	visits       map[int64]model.Visit
	nextVisitID  int64
	bills        map[string]model.Bill

	// fail makes the named method return the error.
	fail map[string]error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		tables:       make(map[int64]model.Table),
		codes:        make(map[string]string),
		reservations: make(map[string]model.Reservation),
		entries:      make(map[string]model.WaitingEntry),
		visits:       make(map[int64]model.Visit),
		bills:        make(map[string]model.Bill),
		fail:         make(map[string]error),
	}
}

type fakeSnapshot struct {
	tables       map[int64]model.Table
	nextTableID  int64
	codes        map[string]string
	reservations map[string]model.Reservation
	entries      map[string]model.WaitingEntry
	visits       map[int64]model.Visit
	nextVisitID  int64
	bills        map[string]model.Bill
}

func copyMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (s *fakeStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	if err := s.failed("WithTx"); err != nil {
		return err
	}
	s.mu.Lock()
	snap := fakeSnapshot{
		tables:       copyMap(s.tables),
		nextTableID:  s.nextTableID,
		codes:        copyMap(s.codes),
		reservations: copyMap(s.reservations),
		entries:      copyMap(s.entries),
		visits:       copyMap(s.visits),
		nextVisitID:  s.nextVisitID,
		bills:        copyMap(s.bills),
	}
	s.mu.Unlock()
	if err := fn(ctx); err != nil {
		s.mu.Lock()
		s.tables, s.nextTableID, s.codes = snap.tables, snap.nextTableID, snap.codes
		s.reservations, s.entries = snap.reservations, snap.entries
		s.visits, s.nextVisitID, s.bills = snap.visits, snap.nextVisitID, snap.bills
		s.mu.Unlock()
		return err
	}
	return nil
}

func (s *fakeStore) setFail(method string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail[method] = err
}

func (s *fakeStore) failed(method string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fail[method]
}

// seeding helpers

func (s *fakeStore) addTable(capacity int) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextTableID++
	s.tables[s.nextTableID] = model.Table{ID: s.nextTableID, Capacity: capacity, Available: true}
	return s.nextTableID
}

func (s *fakeStore) addReservation(r model.Reservation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.TableCapacity == 0 {
		r.TableCapacity = r.Guests
	}
	s.reservations[r.Code] = r
	s.codes[r.Code] = string(KindReservation)
}

func (s *fakeStore) addEntry(e model.WaitingEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[e.Code] = e
	s.codes[e.Code] = string(KindWaiting)
}

func (s *fakeStore) table(id int64) model.Table {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tables[id]
}

func (s *fakeStore) reservation(code string) model.Reservation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reservations[code]
}

func (s *fakeStore) entry(code string) model.WaitingEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.entries[code]
}

func (s *fakeStore) visitsFor(code string) []model.Visit {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Visit
	for _, v := range s.visits {
		if v.Code == code {
			out = append(out, v)
		}
	}
	return out
}

func (s *fakeStore) billCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.bills)
}

// Inventory

func (s *fakeStore) BucketCounts(ctx context.Context) (map[int]int, error) {
	if err := s.failed("BucketCounts"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[int]int)
	for _, t := range s.tables {
		out[t.Capacity]++
	}
	return out, nil
}

func (s *fakeStore) GetTable(ctx context.Context, id int64) (*model.Table, error) {
	if err := s.failed("GetTable"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tables[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &t, nil
}

func (s *fakeStore) sortedTables(keep func(model.Table) bool) []model.Table {
	var out []model.Table
	for _, t := range s.tables {
		if keep(t) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Capacity != out[j].Capacity {
			return out[i].Capacity < out[j].Capacity
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (s *fakeStore) ListTables(ctx context.Context) ([]model.Table, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sortedTables(func(model.Table) bool { return true }), nil
}

func (s *fakeStore) CreateTable(ctx context.Context, t *model.Table) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextTableID++
	t.ID = s.nextTableID
	s.tables[t.ID] = *t
	return nil
}

func (s *fakeStore) FreeTables(ctx context.Context) ([]model.Table, error) {
	if err := s.failed("FreeTables"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sortedTables(model.Table.Free), nil
}

func (s *fakeStore) TotalCapacity(ctx context.Context) (int, error) {
	if err := s.failed("TotalCapacity"); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, t := range s.tables {
		total += t.Capacity
	}
	return total, nil
}

func (s *fakeStore) SetTableAvailable(ctx context.Context, id int64, available bool) error {
	if err := s.failed("SetTableAvailable"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tables[id]
	if !ok {
		return repository.ErrNotFound
	}
	if t.Available == available {
		return repository.ErrConflict
	}
	t.Available = available
	s.tables[id] = t
	return nil
}

func (s *fakeStore) HoldTable(ctx context.Context, id int64, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tables[id]
	if !ok {
		return repository.ErrNotFound
	}
	if !t.Available || t.HeldBy != nil {
		return repository.ErrConflict
	}
	c := code
	t.HeldBy = &c
	s.tables[id] = t
	return nil
}

func (s *fakeStore) ReleaseTableHold(ctx context.Context, id int64, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tables[id]
	if !ok {
		return repository.ErrNotFound
	}
	if t.HeldBy == nil || *t.HeldBy != code {
		return repository.ErrConflict
	}
	t.HeldBy = nil
	s.tables[id] = t
	return nil
}

func (s *fakeStore) TableHeldBy(ctx context.Context, code string) (*model.Table, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tables {
		if t.HeldBy != nil && *t.HeldBy == code {
			return &t, nil
		}
	}
	return nil, nil
}

// Codes

func (s *fakeStore) RegisterCode(ctx context.Context, code, kind string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.codes[code]; ok {
		return repository.ErrDuplicate
	}
	s.codes[code] = kind
	return nil
}

// Reservations

func (s *fakeStore) CreateReservation(ctx context.Context, r *model.Reservation) error {
	if err := s.failed("CreateReservation"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.reservations[r.Code]; ok {
		return repository.ErrDuplicate
	}
	s.reservations[r.Code] = *r
	return nil
}

func (s *fakeStore) GetReservation(ctx context.Context, code string) (*model.Reservation, error) {
	if err := s.failed("GetReservation"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reservations[code]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &r, nil
}

func (s *fakeStore) listReservations(keep func(model.Reservation) bool) []model.Reservation {
	var out []model.Reservation
	for _, r := range s.reservations {
		if keep(r) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].DateTime.Equal(out[j].DateTime) {
			return out[i].DateTime.Before(out[j].DateTime)
		}
		return out[i].Code < out[j].Code
	})
	return out
}

func (s *fakeStore) CountOccupyingInWindow(ctx context.Context, capacity int, start, end time.Time) (int, error) {
	if err := s.failed("CountOccupyingInWindow"); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.reservations {
		if r.TableCapacity == capacity && r.Status.OccupiesTable() && !r.DateTime.Before(start) && !r.DateTime.After(end) {
			n++
		}
	}
	return n, nil
}

func (s *fakeStore) ListActiveInWindow(ctx context.Context, start, end time.Time) ([]model.Reservation, error) {
	if err := s.failed("ListActiveInWindow"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listReservations(func(r model.Reservation) bool {
		return r.Status == model.ReservationActive && !r.DateTime.Before(start) && r.DateTime.Before(end)
	}), nil
}

func (s *fakeStore) ListReservationsByStatus(ctx context.Context, status model.ReservationStatus) ([]model.Reservation, error) {
	if err := s.failed("ListReservationsByStatus"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listReservations(func(r model.Reservation) bool { return r.Status == status }), nil
}

func (s *fakeStore) ListOverdueReservations(ctx context.Context, cutoff time.Time) ([]model.Reservation, error) {
	if err := s.failed("ListOverdueReservations"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listReservations(func(r model.Reservation) bool {
		return r.Status == model.ReservationActive && r.DateTime.Before(cutoff)
	}), nil
}

func (s *fakeStore) ListDueForReminder(ctx context.Context, from, until time.Time) ([]model.Reservation, error) {
	if err := s.failed("ListDueForReminder"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listReservations(func(r model.Reservation) bool {
		return r.Status == model.ReservationActive && !r.ReminderSent && !r.DateTime.Before(from) && r.DateTime.Before(until)
	}), nil
}

func (s *fakeStore) MarkReminderSent(ctx context.Context, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reservations[code]
	if !ok {
		return repository.ErrNotFound
	}
	if r.ReminderSent {
		return repository.ErrConflict
	}
	r.ReminderSent = true
	s.reservations[code] = r
	return nil
}

func (s *fakeStore) UpdateReservationStatus(ctx context.Context, code string, from, to model.ReservationStatus) error {
	if err := s.failed("UpdateReservationStatus"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reservations[code]
	if !ok {
		return repository.ErrNotFound
	}
	if r.Status != from {
		return repository.ErrConflict
	}
	r.Status = to
	s.reservations[code] = r
	return nil
}

func (s *fakeStore) MarkReservationNotified(ctx context.Context, code string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reservations[code]
	if !ok {
		return repository.ErrNotFound
	}
	if r.Status != model.ReservationWaitingAtRestaurant {
		return repository.ErrConflict
	}
	r.Status = model.ReservationNotified
	r.NotifiedAt = &at
	s.reservations[code] = r
	return nil
}

// Waiting list

func (s *fakeStore) CreateEntry(ctx context.Context, e *model.WaitingEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[e.Code]; ok {
		return repository.ErrDuplicate
	}
	s.entries[e.Code] = *e
	return nil
}

func (s *fakeStore) GetEntry(ctx context.Context, code string) (*model.WaitingEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[code]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &e, nil
}

func (s *fakeStore) ListEntriesByStatus(ctx context.Context, status model.WaitingStatus) ([]model.WaitingEntry, error) {
	if err := s.failed("ListEntriesByStatus"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.WaitingEntry
	for _, e := range s.entries {
		if e.Status == status {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].EntryTime.Equal(out[j].EntryTime) {
			return out[i].EntryTime.Before(out[j].EntryTime)
		}
		return out[i].Code < out[j].Code
	})
	return out, nil
}

func (s *fakeStore) UpdateEntryStatus(ctx context.Context, code string, from, to model.WaitingStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[code]
	if !ok {
		return repository.ErrNotFound
	}
	if e.Status != from {
		return repository.ErrConflict
	}
	e.Status = to
	s.entries[code] = e
	return nil
}

func (s *fakeStore) MarkEntryNotified(ctx context.Context, code string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[code]
	if !ok {
		return repository.ErrNotFound
	}
	if e.Status != model.WaitingQueued {
		return repository.ErrConflict
	}
	e.Status = model.WaitingNotified
	e.NotifiedAt = &at
	s.entries[code] = e
	return nil
}

// Visits and bills

func (s *fakeStore) CreateBill(ctx context.Context, b *model.Bill) error {
	if err := s.failed("CreateBill"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bills[b.ID] = *b
	return nil
}

func (s *fakeStore) CloseBill(ctx context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bills[id]
	if !ok {
		return repository.ErrNotFound
	}
	if b.Status != model.BillOpen {
		return repository.ErrConflict
	}
	b.Status = model.BillClosed
	b.ClosedAt = &at
	s.bills[id] = b
	return nil
}

func (s *fakeStore) CreateVisit(ctx context.Context, v *model.Visit) error {
	if err := s.failed("CreateVisit"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.visits {
		if existing.Code == v.Code {
			return repository.ErrDuplicate
		}
	}
	s.nextVisitID++
	v.ID = s.nextVisitID
	s.visits[v.ID] = *v
	return nil
}

func (s *fakeStore) GetOpenVisit(ctx context.Context, code string) (*model.Visit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range s.visits {
		if v.Code == code && v.Status != model.VisitFinished {
			return &v, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *fakeStore) ListOpenVisits(ctx context.Context) ([]model.Visit, error) {
	if err := s.failed("ListOpenVisits"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Visit
	for _, v := range s.visits {
		if v.Status != model.VisitFinished {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *fakeStore) MarkOverstayAlerted(ctx context.Context, id int64, at time.Time) error {
	if err := s.failed("MarkOverstayAlerted"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.visits[id]
	if !ok {
		return repository.ErrNotFound
	}
	if v.OverstayAlertedAt != nil {
		return repository.ErrConflict
	}
	at = at.UTC()
	v.OverstayAlertedAt = &at
	s.visits[id] = v
	return nil
}

func (s *fakeStore) UpdateVisitStatus(ctx context.Context, id int64, from, to model.VisitStatus, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.visits[id]
	if !ok {
		return repository.ErrNotFound
	}
	if v.Status != from {
		return repository.ErrConflict
	}
	v.Status = to
	if to == model.VisitFinished {
		v.EndTime = &at
	}
	s.visits[id] = v
	return nil
}

// recordingNotifier captures published events.
type recordingNotifier struct {
	mu         sync.Mutex
	tableReady []queue.TableReadyEvent
	reminders  []queue.ReminderEvent
	overstays  []queue.OverstayAlertEvent
	err        error
}

func (n *recordingNotifier) TableReady(ctx context.Context, ev queue.TableReadyEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.tableReady = append(n.tableReady, ev)
	return n.err
}

func (n *recordingNotifier) Reminder(ctx context.Context, ev queue.ReminderEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.reminders = append(n.reminders, ev)
	return nil
}

func (n *recordingNotifier) Overstay(ctx context.Context, ev queue.OverstayAlertEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.overstays = append(n.overstays, ev)
	return n.err
}

func (n *recordingNotifier) readyCodes() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, 0, len(n.tableReady))
	for _, ev := range n.tableReady {
		out = append(out, ev.Code)
	}
	return out
}
