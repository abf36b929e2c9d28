package service

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/municipal-it/helpdesk/internal/domain"
	"github.com/municipal-it/helpdesk/internal/events"
	"github.com/municipal-it/helpdesk/internal/repository"
)

// memStore backs every repository with maps guarded by one mutex, mirroring
// the conditional-update contracts of the Postgres implementations.
type memStore struct {
	mu           sync.Mutex
	seq          int
	statuses     map[string]domain.Status
	problemTypes map[string]domain.ProblemType
	settings     map[string]string
	tickets      map[string]domain.Ticket
	users        map[string]domain.User
	devices      []domain.Device
}

func newMemStore() *memStore {
	return &memStore{
		statuses:     map[string]domain.Status{},
		problemTypes: map[string]domain.ProblemType{},
		settings:     map[string]string{},
		tickets:      map[string]domain.Ticket{},
		users:        map[string]domain.User{},
	}
}

func (m *memStore) nextID(prefix string) string {
	m.seq++
	return fmt.Sprintf("%s-%d", prefix, m.seq)
}

func (m *memStore) ticket(t *testing.T, id string) domain.Ticket {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	tk, ok := m.tickets[id]
	if !ok {
		t.Fatalf("ticket %s not stored", id)
	}
	return tk
}

func (m *memStore) ticketCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tickets)
}

type memStatuses struct{ *memStore }

func (r memStatuses) Create(_ context.Context, st *domain.Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.statuses {
		if existing.Name == st.Name {
			return repository.ErrDuplicate
		}
	}
	st.ID = r.nextID("st")
	r.statuses[st.ID] = *st
	return nil
}

func (r memStatuses) UpdateAll(_ context.Context, changes []domain.Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	next := make(map[string]domain.Status, len(r.statuses))
	for id, st := range r.statuses {
		next[id] = st
	}
	for _, c := range changes {
		if _, ok := next[c.ID]; !ok {
			return pgx.ErrNoRows
		}
		next[c.ID] = c
	}
	names := map[string]bool{}
	for _, st := range next {
		if names[st.Name] {
			return repository.ErrDuplicate
		}
		names[st.Name] = true
	}
	r.statuses = next
	return nil
}

func (r memStatuses) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.statuses[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.statuses, id)
	return nil
}

func (r memStatuses) GetByID(_ context.Context, id string) (*domain.Status, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.statuses[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &st, nil
}

func (r memStatuses) List(_ context.Context) ([]domain.Status, error) {
	return r.ListByKind(context.Background(), domain.StatusKinds()...)
}

func (r memStatuses) ListByKind(_ context.Context, kinds ...domain.StatusKind) ([]domain.Status, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Status
	for _, st := range r.statuses {
		if slices.Contains(kinds, st.Kind) {
			out = append(out, st)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r memStatuses) CountTickets(_ context.Context, id string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, tk := range r.tickets {
		if tk.StatusID == id {
			n++
		}
	}
	return n, nil
}

type memProblemTypes struct{ *memStore }

func (r memProblemTypes) Create(_ context.Context, pt *domain.ProblemType) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.problemTypes {
		if existing.Name == pt.Name {
			return repository.ErrDuplicate
		}
	}
	pt.ID = r.nextID("pt")
	r.problemTypes[pt.ID] = *pt
	return nil
}

func (r memProblemTypes) RenameAll(_ context.Context, changes []domain.ProblemType) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	next := make(map[string]domain.ProblemType, len(r.problemTypes))
	for id, pt := range r.problemTypes {
		next[id] = pt
	}
	for _, c := range changes {
		if _, ok := next[c.ID]; !ok {
			return pgx.ErrNoRows
		}
		next[c.ID] = c
	}
	names := map[string]bool{}
	for _, pt := range next {
		if names[pt.Name] {
			return repository.ErrDuplicate
		}
		names[pt.Name] = true
	}
	r.problemTypes = next
	return nil
}

func (r memProblemTypes) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.problemTypes[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.problemTypes, id)
	return nil
}

func (r memProblemTypes) GetByID(_ context.Context, id string) (*domain.ProblemType, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	pt, ok := r.problemTypes[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &pt, nil
}

func (r memProblemTypes) List(_ context.Context) ([]domain.ProblemType, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.ProblemType, 0, len(r.problemTypes))
	for _, pt := range r.problemTypes {
		out = append(out, pt)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r memProblemTypes) CountTickets(_ context.Context, id string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, tk := range r.tickets {
		if tk.ProblemTypeID == id {
			n++
		}
	}
	return n, nil
}

type memSettings struct{ *memStore }

func (r memSettings) All(_ context.Context) (map[string]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]string, len(r.settings))
	for k, v := range r.settings {
		out[k] = v
	}
	return out, nil
}

func (r memSettings) SetAll(_ context.Context, values map[string]string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k, v := range values {
		if v == "" {
			delete(r.settings, k)
			continue
		}
		r.settings[k] = v
	}
	return nil
}

type memTickets struct{ *memStore }

func (r memTickets) Create(_ context.Context, tk *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	tk.ID = r.nextID("tk")
	tk.UpdatedAt = tk.CreatedAt
	r.tickets[tk.ID] = *tk
	return nil
}

func (r memTickets) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	tk, ok := r.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &tk, nil
}

func (r memTickets) Capture(_ context.Context, id, handlerID, capturedStatusID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	tk, ok := r.tickets[id]
	if !ok || !r.statuses[tk.StatusID].IsInitial() {
		return repository.ErrStaleTicket
	}
	tk.HandlerID = &handlerID
	tk.StatusID = capturedStatusID
	tk.ResolvedAt = nil
	tk.UpdatedAt = at
	r.tickets[id] = tk
	return nil
}

func (r memTickets) ApplyTransition(_ context.Context, tr repository.TicketTransition) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	tk, ok := r.tickets[tr.ID]
	if !ok || tk.StatusID != tr.ExpectedStatusID {
		return repository.ErrStaleTicket
	}
	tk.StatusID = tr.StatusID
	tk.SolutionLog = tr.LogEntry + tk.SolutionLog
	tk.ResolvedAt = tr.ResolvedAt
	if tr.ClearHandler {
		tk.HandlerID = nil
	}
	tk.UpdatedAt = tr.At
	r.tickets[tr.ID] = tk
	return nil
}

func (r memTickets) ExpireLapsed(_ context.Context, expiredStatusID string, windowDays int, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, tk := range r.tickets {
		if !r.statuses[tk.StatusID].AllowsReopen() || tk.StatusID == expiredStatusID || tk.ResolvedAt == nil {
			continue
		}
		if tk.ResolvedAt.Add(time.Duration(windowDays) * day).After(now) {
			continue
		}
		tk.StatusID = expiredStatusID
		tk.ResolvedAt = nil
		tk.UpdatedAt = now
		r.tickets[id] = tk
		n++
	}
	return n, nil
}

func (r memTickets) List(_ context.Context, f repository.TicketFilter) ([]domain.TicketView, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.TicketView
	for _, tk := range r.tickets {
		st := r.statuses[tk.StatusID]
		switch {
		case f.RequesterID != nil && tk.RequesterID != *f.RequesterID,
			f.HandlerID != nil && (tk.HandlerID == nil || *tk.HandlerID != *f.HandlerID),
			f.ExcludeHandlerID != nil && tk.HandlerID != nil && *tk.HandlerID == *f.ExcludeHandlerID,
			f.StatusID != nil && tk.StatusID != *f.StatusID,
			f.Municipality != nil && tk.Municipality != *f.Municipality,
			f.ProblemTypeID != nil && tk.ProblemTypeID != *f.ProblemTypeID,
			f.FinalizedOnly && !st.IsFinal():
			continue
		}
		requester := r.users[tk.RequesterID]
		view := domain.TicketView{
			Ticket:          tk,
			Status:          st,
			ProblemTypeName: r.problemTypes[tk.ProblemTypeID].Name,
			RequesterEmail:  requester.Email,
			RequesterName:   requester.DisplayName,
		}
		if tk.HandlerID != nil {
			name := r.users[*tk.HandlerID].DisplayName
			view.HandlerName = &name
		}
		out = append(out, view)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (r memTickets) ListMunicipalities(_ context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, tk := range r.tickets {
		out = append(out, tk.Municipality)
	}
	slices.Sort(out)
	return slices.Compact(out), nil
}

type memUsers struct{ *memStore }

func (r memUsers) Create(_ context.Context, u *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return repository.ErrDuplicate
		}
	}
	if u.ID == "" {
		u.ID = r.nextID("u")
	}
	r.users[u.ID] = *u
	return nil
}

func (r memUsers) CreateIfAbsent(ctx context.Context, u *domain.User) (bool, error) {
	err := r.Create(ctx, u)
	if err == repository.ErrDuplicate {
		return false, nil
	}
	return err == nil, err
}

func (r memUsers) Update(_ context.Context, u *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.users[u.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	u.PasswordHash = existing.PasswordHash
	r.users[u.ID] = *u
	return nil
}

func (r memUsers) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.users, id)
	return nil
}

func (r memUsers) SetPassword(_ context.Context, id, hash string, mustReset bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return pgx.ErrNoRows
	}
	u.PasswordHash = hash
	u.MustResetPassword = mustReset
	r.users[id] = u
	return nil
}

func (r memUsers) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &u, nil
}

func (r memUsers) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r memUsers) Search(_ context.Context, term string) ([]domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	term = strings.ToLower(strings.TrimSpace(term))
	var out []domain.User
	for _, u := range r.users {
		if term == "" || strings.Contains(strings.ToLower(u.DisplayName+" "+u.Email+" "+u.Municipality), term) {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DisplayName < out[j].DisplayName })
	return out, nil
}

func (r memUsers) FirstRequesterIn(_ context.Context, municipality string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var found *domain.User
	for _, u := range r.users {
		if u.IsAdmin || u.Municipality != municipality {
			continue
		}
		if found == nil || u.ID < found.ID {
			u := u
			found = &u
		}
	}
	if found == nil {
		return nil, pgx.ErrNoRows
	}
	return found, nil
}

type memDevices struct{ *memStore }

func (r memDevices) GetBySerial(_ context.Context, serial string) (*domain.Device, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range r.devices {
		if d.IMEI1 == serial {
			return &d, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r memDevices) ListByMunicipality(_ context.Context, municipality string) ([]domain.Device, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Device
	for _, d := range r.devices {
		if d.Municipality == municipality {
			out = append(out, d)
		}
	}
	return out, nil
}

func (r memDevices) ListMunicipalities(_ context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, d := range r.devices {
		out = append(out, d.Municipality)
	}
	slices.Sort(out)
	return slices.Compact(out), nil
}

func (r memDevices) ReplaceAll(_ context.Context, devices []domain.Device) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.devices = append([]domain.Device(nil), devices...)
	for i := range r.devices {
		r.devices[i].ID = fmt.Sprintf("dev-%d", i+1)
	}
	return int64(len(r.devices)), nil
}

type memDashboards struct{ *memStore }

func (r memDashboards) StatusCounts(_ context.Context, requesterID *string) ([]repository.StatusCount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []repository.StatusCount
	for _, st := range r.statuses {
		sc := repository.StatusCount{Status: st}
		for _, tk := range r.tickets {
			if tk.StatusID == st.ID && (requesterID == nil || tk.RequesterID == *requesterID) {
				sc.Count++
			}
		}
		out = append(out, sc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Status.Name < out[j].Status.Name })
	return out, nil
}

func (r memDashboards) ProblemTypeCounts(_ context.Context) ([]repository.ProblemTypeCount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []repository.ProblemTypeCount
	for _, pt := range r.problemTypes {
		pc := repository.ProblemTypeCount{ProblemType: pt}
		for _, tk := range r.tickets {
			if tk.ProblemTypeID == pt.ID {
				pc.Count++
			}
		}
		if pc.Count > 0 {
			out = append(out, pc)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].ProblemType.Name < out[j].ProblemType.Name
	})
	return out, nil
}

type manualClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type stubPhotos struct {
	stored  []string
	deleted []string
}

func (p *stubPhotos) Store(data []byte, suggestedName string) (string, error) {
	ref := fmt.Sprintf("photo-%d%s", len(p.stored)+1, filepath.Ext(suggestedName))
	p.stored = append(p.stored, ref)
	return ref, nil
}

func (p *stubPhotos) Delete(ref string) error {
	p.deleted = append(p.deleted, ref)
	return nil
}

type expiryCounter struct {
	mu    sync.Mutex
	total int64
}

func (e *expiryCounter) RecordExpired(n int64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.total += n
}

// Fixture ids.
const (
	stOpen     = "st-open"
	stProgress = "st-progress"
	stWaiting  = "st-waiting"
	stResolved = "st-resolved"
	stClosed   = "st-closed"
	stExpired  = "st-expired"

	ptScreen  = "pt-screen"
	ptBattery = "pt-battery"
)

var (
	adminCaller = domain.Caller{ID: "u-admin", Email: "suporte@prefeitura.gov", Municipality: "Capital", IsAdmin: true, DisplayName: "Suporte"}
	adminTwo    = domain.Caller{ID: "u-admin2", Email: "plantao@prefeitura.gov", Municipality: "Capital", IsAdmin: true}
	anaCaller   = domain.Caller{ID: "u-ana", Email: "ana@norte.gov", Municipality: "Norte", DisplayName: "Ana"}
	beaCaller   = domain.Caller{ID: "u-bea", Email: "bea@sul.gov", Municipality: "Sul", DisplayName: "Bea"}
)

type harness struct {
	store     *memStore
	clock     *manualClock
	photos    *stubPhotos
	expiry    *expiryCounter

	mu        sync.Mutex
	published []events.Event

	catalog   *CatalogService
	settings  *SettingsService
	tickets   *TicketService
	dashboard *DashboardService
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	store := newMemStore()
	for _, st := range []domain.Status{
		{ID: stOpen, Name: "Aberto", Kind: domain.StatusKindUnclaimed},
		{ID: stProgress, Name: "Em atendimento", Kind: domain.StatusKindInProgress},
		{ID: stWaiting, Name: "Aguardando peça", Kind: domain.StatusKindAwaiting},
		{ID: stResolved, Name: "Resolvido", Kind: domain.StatusKindResolved},
		{ID: stClosed, Name: "Fechado", Kind: domain.StatusKindClosed},
		{ID: stExpired, Name: "Expirado", Kind: domain.StatusKindClosed},
	} {
		store.statuses[st.ID] = st
	}
	store.problemTypes[ptScreen] = domain.ProblemType{ID: ptScreen, Name: "Tela quebrada"}
	store.problemTypes[ptBattery] = domain.ProblemType{ID: ptBattery, Name: "Bateria"}
	for _, c := range []domain.Caller{adminCaller, adminTwo, anaCaller, beaCaller} {
		store.users[c.ID] = domain.User{ID: c.ID, Email: c.Email, Municipality: c.Municipality, DisplayName: c.DisplayName, IsAdmin: c.IsAdmin}
	}
	store.settings[domain.SettingCapturedStatusID] = stProgress
	store.settings[domain.SettingExpiredStatusID] = stExpired

	h := &harness{
		store:  store,
		clock:  &manualClock{t: time.Date(2024, 3, 4, 9, 30, 0, 0, time.UTC)},
		photos: &stubPhotos{},
		expiry: &expiryCounter{},
	}
	dispatcher := events.NewInMemoryDispatcher(nil)
	record := func(_ context.Context, e events.Event) error {
		h.mu.Lock()
		defer h.mu.Unlock()
		h.published = append(h.published, e)
		return nil
	}
	for _, et := range append(events.TicketEventTypes(), events.EventCatalogChanged, events.EventSettingsChanged) {
		dispatcher.Subscribe(et, record)
	}

	h.settings = NewSettingsService(SettingsDependencies{
		SettingsRepo: memSettings{store},
		StatusRepo:   memStatuses{store},
		Dispatcher:   dispatcher,
		Clock:        h.clock,
	})
	h.catalog = NewCatalogService(CatalogDependencies{
		StatusRepo:      memStatuses{store},
		ProblemTypeRepo: memProblemTypes{store},
		SettingsRepo:    memSettings{store},
		Dispatcher:      dispatcher,
		Clock:           h.clock,
	})
	h.tickets = NewTicketService(TicketDependencies{
		TicketRepo:      memTickets{store},
		StatusRepo:      memStatuses{store},
		ProblemTypeRepo: memProblemTypes{store},
		UserRepo:        memUsers{store},
		Catalog:         h.catalog,
		Settings:        h.settings,
		Photos:          h.photos,
		Expiry:          h.expiry,
		Dispatcher:      dispatcher,
		Clock:           h.clock,
		Location:        time.UTC,
	})
	h.dashboard = NewDashboardService(DashboardDependencies{
		DashboardRepo: memDashboards{store},
		TicketRepo:    memTickets{store},
	})
	return h
}

func (h *harness) submit(t *testing.T, caller domain.Caller) *domain.Ticket {
	t.Helper()
	res, err := h.tickets.Submit(context.Background(), caller, SubmitInput{
		DeviceSerial:  "356938035643809",
		ProblemTypeID: ptScreen,
		Description:   "Tela trincada após queda",
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	return res.Ticket
}

func (h *harness) eventTypes() []events.EventType {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]events.EventType, 0, len(h.published))
	for _, e := range h.published {
		out = append(out, e.Type)
	}
	return out
}

// checkInvariants asserts the lifecycle invariants over every stored ticket.
func (h *harness) checkInvariants(t *testing.T) {
	t.Helper()
	h.store.mu.Lock()
	defer h.store.mu.Unlock()
	for id, tk := range h.store.tickets {
		st := h.store.statuses[tk.StatusID]
		if (tk.ResolvedAt != nil) != st.AllowsReopen() {
			t.Errorf("ticket %s in %s: resolvedAt=%v", id, st.Name, tk.ResolvedAt)
		}
		if st.IsInitial() && tk.HandlerID != nil {
			t.Errorf("ticket %s in initial status has handler %s", id, *tk.HandlerID)
		}
	}
}
