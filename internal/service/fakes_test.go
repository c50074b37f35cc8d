package service

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

// memStore backs the repository fakes with maps and counts writes.
type memStore struct {
	mu        sync.Mutex
	nextID    int64
	users     map[int64]domain.User
	tickets   map[int64]domain.Ticket
	responses []domain.TicketResponse

	userCreates   int
	userUpdates   int
	ticketUpdates int
	ticketReads   int
}

func newMemStore() *memStore {
	return &memStore{
		users:   map[int64]domain.User{},
		tickets: map[int64]domain.Ticket{},
	}
}

func (m *memStore) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *memStore) addUser(username string, isAgent, isAdmin bool) *domain.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := domain.User{
		ID:       m.id(),
		Username: username,
		Email:    username + "@example.com",
		IsAgent:  isAgent,
		IsAdmin:  isAdmin,
	}
	m.users[u.ID] = u
	return &u
}

func (m *memStore) ticket(id int64) domain.Ticket {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tickets[id]
}

type memUsers struct{ *memStore }

func (r memUsers) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.userCreates++
	for _, u := range r.users {
		if u.Username == user.Username {
			return &repository.DuplicateError{Constraint: "users_username_key"}
		}
		if u.Email == user.Email {
			return &repository.DuplicateError{Constraint: "users_email_key"}
		}
	}
	user.ID = r.id()
	r.users[user.ID] = *user
	return nil
}

func (r memUsers) SetRoleFlag(_ context.Context, id int64, flag string, value bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return pgx.ErrNoRows
	}
	r.userUpdates++
	switch flag {
	case repository.RoleFlagAgent:
		u.IsAgent = value
	case repository.RoleFlagAdmin:
		u.IsAdmin = value
	default:
		return fmt.Errorf("unknown role flag %q", flag)
	}
	r.users[id] = u
	return nil
}

func (r memUsers) ToggleRoleFlag(ctx context.Context, id int64, flag string) (bool, error) {
	r.mu.Lock()
	u, ok := r.users[id]
	r.mu.Unlock()
	if !ok {
		return false, pgx.ErrNoRows
	}
	value := !u.IsAgent
	if flag == repository.RoleFlagAdmin {
		value = !u.IsAdmin
	}
	return value, r.SetRoleFlag(ctx, id, flag, value)
}

func (r memUsers) GetByID(_ context.Context, id int64) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &u, nil
}

func (r memUsers) find(match func(domain.User) bool) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if match(u) {
			found := u
			return &found, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r memUsers) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	return r.find(func(u domain.User) bool { return u.Email == email })
}

func (r memUsers) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	return r.find(func(u domain.User) bool { return u.Username == username })
}

func (r memUsers) filter(match func(domain.User) bool) []domain.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.User
	for _, u := range r.users {
		if match(u) {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out
}

func (r memUsers) List(_ context.Context) ([]domain.User, error) {
	return r.filter(func(domain.User) bool { return true }), nil
}

func (r memUsers) ListAgentCapable(_ context.Context) ([]domain.User, error) {
	return r.filter(func(u domain.User) bool { return u.AgentCapable() }), nil
}

func (r memUsers) Count(ctx context.Context) (int64, error) {
	users, _ := r.List(ctx)
	return int64(len(users)), nil
}

func (r memUsers) CountAgentCapable(ctx context.Context) (int64, error) {
	users, _ := r.ListAgentCapable(ctx)
	return int64(len(users)), nil
}

type memTickets struct{ *memStore }

func (r memTickets) Create(_ context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket.ID = r.id()
	r.tickets[ticket.ID] = *ticket
	return nil
}

func (r memTickets) SetAgent(_ context.Context, ticketID, agentID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tickets[ticketID]
	if !ok {
		return pgx.ErrNoRows
	}
	r.ticketUpdates++
	t.AgentID = &agentID
	name := r.users[agentID].Username
	t.AgentName = &name
	r.tickets[ticketID] = t
	return nil
}

func (r memTickets) SetStatus(_ context.Context, ticketID int64, status domain.TicketStatus, at time.Time) (time.Time, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tickets[ticketID]
	if !ok {
		return time.Time{}, pgx.ErrNoRows
	}
	r.ticketUpdates++
	t.Status = status
	t.Touch(at)
	r.tickets[ticketID] = t
	return t.LastUpdated, nil
}

func (r memTickets) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tickets[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.tickets, id)
	kept := r.responses[:0]
	for _, resp := range r.responses {
		if resp.TicketID != id {
			kept = append(kept, resp)
		}
	}
	r.responses = kept
	return nil
}

func (r memTickets) GetByID(_ context.Context, id int64) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &t, nil
}

func (r memTickets) ListWithFilter(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ticketReads++
	var out []domain.Ticket
	for _, t := range r.tickets {
		if filter.AuthorID != nil && t.AuthorID != *filter.AuthorID {
			continue
		}
		if filter.AgentPoolFor != nil && t.AgentID != nil && *t.AgentID != *filter.AgentPoolFor {
			continue
		}
		if len(filter.Statuses) > 0 && !slices.Contains(filter.Statuses, t.Status) {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DatePosted.Equal(out[j].DatePosted) {
			return out[i].ID > out[j].ID
		}
		return out[i].DatePosted.After(out[j].DatePosted)
	})
	return out, nil
}

func (r memTickets) CountByStatus(_ context.Context) (map[domain.TicketStatus]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ticketReads++
	counts := map[domain.TicketStatus]int64{}
	for _, status := range domain.AllTicketStatuses() {
		counts[status] = 0
	}
	for _, t := range r.tickets {
		counts[t.Status]++
	}
	return counts, nil
}

// interleavedTickets runs afterRead once, after the next GetByID snapshot is
// taken, to model a write committed by another request in between.
type interleavedTickets struct {
	memTickets
	afterRead func()
}

func (r *interleavedTickets) GetByID(ctx context.Context, id int64) (*domain.Ticket, error) {
	t, err := r.memTickets.GetByID(ctx, id)
	if hook := r.afterRead; hook != nil {
		r.afterRead = nil
		hook()
	}
	return t, err
}

// interleavedUsers is the account counterpart of interleavedTickets.
type interleavedUsers struct {
	memUsers
	afterRead func()
}

func (r *interleavedUsers) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	u, err := r.memUsers.GetByID(ctx, id)
	if hook := r.afterRead; hook != nil {
		r.afterRead = nil
		hook()
	}
	return u, err
}

type memResponses struct{ *memStore }

func (r memResponses) Create(_ context.Context, resp *domain.TicketResponse) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tickets[resp.TicketID]
	if !ok {
		return pgx.ErrNoRows
	}
	t.Touch(resp.DatePosted)
	r.tickets[t.ID] = t
	resp.ID = r.id()
	r.responses = append(r.responses, *resp)
	return nil
}

func (r memResponses) ListByTicket(_ context.Context, ticketID int64) ([]domain.TicketResponse, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.TicketResponse
	for _, resp := range r.responses {
		if resp.TicketID == ticketID {
			out = append(out, resp)
		}
	}
	return out, nil
}

// stubRevocations records revoked token ids.
type stubRevocations struct {
	revokeFn func(ctx context.Context, tokenID string, ttl time.Duration) error
}

func (s *stubRevocations) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	if s.revokeFn != nil {
		return s.revokeFn(ctx, tokenID, ttl)
	}
	return nil
}

func (s *stubRevocations) IsRevoked(context.Context, string) (bool, error) {
	return false, nil
}

// fakeClock returns a settable instant.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 9, 0, 0, 123456789, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func requireDenial(t *testing.T, err error, notice, redirect string) {
	t.Helper()
	var de *apperrors.DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, apperrors.CodeForbidden, de.Code)
	assert.Equal(t, notice, de.Message)
	assert.Equal(t, redirect, de.Details[DetailRedirect])
}

func requireCode(t *testing.T, err error, code string) *apperrors.DomainError {
	t.Helper()
	var de *apperrors.DomainError
	require.ErrorAs(t, err, &de)
	require.Equal(t, code, de.Code)
	return de
}

func actorOf(u *domain.User) *domain.Actor {
	a := u.Actor()
	return &a
}
