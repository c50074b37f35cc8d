package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

type ticketFixture struct {
	store    *memStore
	clock    *fakeClock
	svc      *TicketService
	customer *domain.User
	other    *domain.User
	agent    *domain.User
	admin    *domain.User
	events   []events.Event
}

func newTicketFixture(t *testing.T) *ticketFixture {
	t.Helper()
	f := &ticketFixture{store: newMemStore(), clock: newFakeClock()}
	f.customer = f.store.addUser("alice", false, false)
	f.other = f.store.addUser("bob", false, false)
	f.agent = f.store.addUser("carol", true, false)
	f.admin = f.store.addUser("dave", false, true)

	dispatcher := events.NewInMemoryDispatcher()
	for _, eventType := range events.AllEventTypes() {
		dispatcher.Subscribe(eventType, func(_ context.Context, e events.Event) error {
			f.events = append(f.events, e)
			return nil
		})
	}

	f.svc = NewTicketService(TicketDependencies{
		TicketRepo:   memTickets{f.store},
		ResponseRepo: memResponses{f.store},
		UserRepo:     memUsers{f.store},
		Dispatcher:   dispatcher,
		Clock:        f.clock.Now,
	})
	return f
}

func (f *ticketFixture) createTicket(t *testing.T, author *domain.User) *domain.Ticket {
	t.Helper()
	ticket, err := f.svc.Create(context.Background(), actorOf(author), TicketCreateInput{
		Title:       "Printer on fire",
		Description: "Smoke everywhere",
		Category:    domain.TicketCategoryTechnical,
		Priority:    domain.TicketPriorityHigh,
	})
	require.NoError(t, err)
	return ticket
}

func TestCreateTicketDefaults(t *testing.T) {
	f := newTicketFixture(t)

	ticket, err := f.svc.Create(context.Background(), actorOf(f.customer), TicketCreateInput{
		Title:       "Cannot login",
		Description: "Password reset loops",
		Category:    domain.TicketCategoryTechnical,
	})
	require.NoError(t, err)

	stored := f.store.ticket(ticket.ID)
	assert.Equal(t, domain.TicketStatusOpen, stored.Status)
	assert.Equal(t, domain.TicketPriorityMedium, stored.Priority)
	assert.Nil(t, stored.AgentID)
	assert.Equal(t, f.customer.ID, stored.AuthorID)
	assert.True(t, stored.DatePosted.Equal(stored.LastUpdated))
	assert.Equal(t, f.clock.Now().UTC().Truncate(time.Microsecond), stored.DatePosted)

	require.Len(t, f.events, 1)
	assert.Equal(t, events.EventTicketCreated, f.events[0].Type)
	assert.Equal(t, ticket.ID, f.events[0].TicketID)
}

func TestCreateTicketValidation(t *testing.T) {
	f := newTicketFixture(t)

	tests := []struct {
		name  string
		input TicketCreateInput
		field string
	}{
		{"short title", TicketCreateInput{Title: "abc", Description: "d", Category: domain.TicketCategoryOther}, "title"},
		{"long title", TicketCreateInput{Title: string(make([]byte, 101)), Description: "d", Category: domain.TicketCategoryOther}, "title"},
		{"blank description", TicketCreateInput{Title: "Valid title", Description: "   ", Category: domain.TicketCategoryOther}, "description"},
		{"bad category", TicketCreateInput{Title: "Valid title", Description: "d", Category: "Hardware"}, "category"},
		{"bad priority", TicketCreateInput{Title: "Valid title", Description: "d", Category: domain.TicketCategoryOther, Priority: "Critical"}, "priority"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Create(context.Background(), actorOf(f.customer), tt.input)
			de := requireCode(t, err, apperrors.CodeValidation)
			assert.Contains(t, de.Details, tt.field)
		})
	}
	assert.Empty(t, f.store.tickets)
}

func TestCreateTicketRequiresLogin(t *testing.T) {
	f := newTicketFixture(t)
	_, err := f.svc.Create(context.Background(), nil, TicketCreateInput{})
	requireDenial(t, err, auth.NoticeLoginRequired, "/login")
}

func TestTicketVisibility(t *testing.T) {
	f := newTicketFixture(t)
	ctx := context.Background()
	ticket := f.createTicket(t, f.customer)

	_, err := f.svc.GetForViewer(ctx, actorOf(f.other), ticket.ID)
	requireDenial(t, err, auth.NoticeTicketForbidden, "/user_dashboard")

	// Unassigned tickets are not visible to agents.
	_, err = f.svc.GetForViewer(ctx, actorOf(f.agent), ticket.ID)
	requireDenial(t, err, auth.NoticeTicketForbidden, "/user_dashboard")

	view, err := f.svc.GetForViewer(ctx, actorOf(f.admin), ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, ticket.ID, view.Ticket.ID)
	assert.Len(t, view.Agents, 2)

	view, err = f.svc.GetForViewer(ctx, actorOf(f.customer), ticket.ID)
	require.NoError(t, err)
	assert.Empty(t, view.Agents)

	_, err = f.svc.GetForViewer(ctx, actorOf(f.customer), 999)
	requireCode(t, err, apperrors.CodeNotFound)
}

func TestInternalNoteScenario(t *testing.T) {
	f := newTicketFixture(t)
	ctx := context.Background()
	ticket := f.createTicket(t, f.customer)

	_, err := f.svc.AssignAgent(ctx, actorOf(f.admin), ticket.ID, f.agent.ID)
	require.NoError(t, err)

	_, err = f.svc.AddResponse(ctx, actorOf(f.agent), ticket.ID, ResponseInput{Content: "checking logs", IsInternalNote: true})
	require.NoError(t, err)
	_, err = f.svc.AddResponse(ctx, actorOf(f.agent), ticket.ID, ResponseInput{Content: "We are on it"})
	require.NoError(t, err)

	customerView, err := f.svc.GetForViewer(ctx, actorOf(f.customer), ticket.ID)
	require.NoError(t, err)
	require.Len(t, customerView.Responses, 1)
	assert.Equal(t, "We are on it", customerView.Responses[0].Content)

	agentView, err := f.svc.GetForViewer(ctx, actorOf(f.agent), ticket.ID)
	require.NoError(t, err)
	assert.Len(t, agentView.Responses, 2)

	_, err = f.svc.AddResponse(ctx, actorOf(f.customer), ticket.ID, ResponseInput{Content: "sneaky", IsInternalNote: true})
	requireDenial(t, err, auth.NoticeInternalNoteOnly, auth.TicketPath(ticket.ID))
	assert.Len(t, f.store.responses, 2)
}

func TestAddResponseAdvancesLastUpdated(t *testing.T) {
	f := newTicketFixture(t)
	ctx := context.Background()
	ticket := f.createTicket(t, f.customer)
	created := f.store.ticket(ticket.ID).LastUpdated

	f.clock.Advance(time.Minute)
	_, err := f.svc.AddResponse(ctx, actorOf(f.customer), ticket.ID, ResponseInput{Content: "any update?"})
	require.NoError(t, err)
	bumped := f.store.ticket(ticket.ID).LastUpdated
	assert.True(t, bumped.After(created))

	f.clock.Advance(-time.Hour)
	_, err = f.svc.AddResponse(ctx, actorOf(f.customer), ticket.ID, ResponseInput{Content: "clock skew"})
	require.NoError(t, err)
	assert.Equal(t, bumped, f.store.ticket(ticket.ID).LastUpdated)
}

func TestAddResponseRequiresContent(t *testing.T) {
	f := newTicketFixture(t)
	ticket := f.createTicket(t, f.customer)

	_, err := f.svc.AddResponse(context.Background(), actorOf(f.customer), ticket.ID, ResponseInput{Content: " "})
	de := requireCode(t, err, apperrors.CodeValidation)
	assert.Contains(t, de.Details, "content")
	assert.Empty(t, f.store.responses)
}

func TestChangeStatusIsPermissiveAndTouches(t *testing.T) {
	f := newTicketFixture(t)
	ctx := context.Background()
	ticket := f.createTicket(t, f.customer)

	f.clock.Advance(time.Minute)
	updated, err := f.svc.ChangeStatus(ctx, actorOf(f.agent), ticket.ID, domain.TicketStatusClosed)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusClosed, updated.Status)
	first := f.store.ticket(ticket.ID).LastUpdated

	f.clock.Advance(time.Minute)
	_, err = f.svc.ChangeStatus(ctx, actorOf(f.agent), ticket.ID, domain.TicketStatusClosed)
	require.NoError(t, err)
	second := f.store.ticket(ticket.ID)
	assert.Equal(t, domain.TicketStatusClosed, second.Status)
	assert.True(t, second.LastUpdated.After(first))

	_, err = f.svc.ChangeStatus(ctx, actorOf(f.agent), ticket.ID, domain.TicketStatusOpen)
	require.NoError(t, err)
	assert.Equal(t, 3, f.store.ticketUpdates)
}

func TestChangeStatusDenials(t *testing.T) {
	f := newTicketFixture(t)
	ctx := context.Background()
	ticket := f.createTicket(t, f.customer)

	_, err := f.svc.ChangeStatus(ctx, actorOf(f.agent), ticket.ID, "Escalated")
	requireDenial(t, err, NoticeInvalidStatus, auth.TicketPath(ticket.ID))

	_, err = f.svc.ChangeStatus(ctx, actorOf(f.customer), ticket.ID, domain.TicketStatusClosed)
	requireDenial(t, err, auth.NoticeAgentRequired, "/")

	_, err = f.svc.ChangeStatus(ctx, actorOf(f.agent), 999, domain.TicketStatusClosed)
	requireCode(t, err, apperrors.CodeNotFound)
	assert.Zero(t, f.store.ticketUpdates)
}

func TestAssignAgent(t *testing.T) {
	f := newTicketFixture(t)
	ctx := context.Background()
	ticket := f.createTicket(t, f.customer)
	before := f.store.ticket(ticket.ID).LastUpdated

	f.clock.Advance(time.Minute)
	_, err := f.svc.AssignAgent(ctx, actorOf(f.agent), ticket.ID, 999)
	requireDenial(t, err, NoticeAgentNotFound, auth.TicketPath(ticket.ID))

	_, err = f.svc.AssignAgent(ctx, actorOf(f.agent), ticket.ID, f.other.ID)
	requireDenial(t, err, NoticeInvalidAgent, auth.TicketPath(ticket.ID))
	assert.Nil(t, f.store.ticket(ticket.ID).AgentID)

	updated, err := f.svc.AssignAgent(ctx, actorOf(f.agent), ticket.ID, f.admin.ID)
	require.NoError(t, err)
	require.NotNil(t, updated.AgentName)
	assert.Equal(t, "dave", *updated.AgentName)

	stored := f.store.ticket(ticket.ID)
	require.NotNil(t, stored.AgentID)
	assert.Equal(t, f.admin.ID, *stored.AgentID)
	assert.Equal(t, before, stored.LastUpdated)
}

func TestAssignAgentKeepsInterleavedStatusChange(t *testing.T) {
	f := newTicketFixture(t)
	ctx := context.Background()
	ticket := f.createTicket(t, f.customer)

	tickets := &interleavedTickets{memTickets: memTickets{f.store}}
	svc := NewTicketService(TicketDependencies{
		TicketRepo:   tickets,
		ResponseRepo: memResponses{f.store},
		UserRepo:     memUsers{f.store},
		Clock:        f.clock.Now,
	})
	f.clock.Advance(time.Minute)
	tickets.afterRead = func() {
		_, err := f.svc.ChangeStatus(ctx, actorOf(f.agent), ticket.ID, domain.TicketStatusResolved)
		require.NoError(t, err)
	}

	updated, err := svc.AssignAgent(ctx, actorOf(f.admin), ticket.ID, f.agent.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusResolved, updated.Status)

	stored := f.store.ticket(ticket.ID)
	assert.Equal(t, domain.TicketStatusResolved, stored.Status)
	require.NotNil(t, stored.AgentID)
	assert.Equal(t, f.agent.ID, *stored.AgentID)
	assert.Equal(t, f.clock.Now().UTC().Truncate(time.Microsecond), stored.LastUpdated)
}

func TestChangeStatusKeepsInterleavedAssignment(t *testing.T) {
	f := newTicketFixture(t)
	ctx := context.Background()
	ticket := f.createTicket(t, f.customer)

	tickets := &interleavedTickets{memTickets: memTickets{f.store}}
	svc := NewTicketService(TicketDependencies{
		TicketRepo:   tickets,
		ResponseRepo: memResponses{f.store},
		UserRepo:     memUsers{f.store},
		Clock:        f.clock.Now,
	})
	tickets.afterRead = func() {
		_, err := f.svc.AssignAgent(ctx, actorOf(f.admin), ticket.ID, f.agent.ID)
		require.NoError(t, err)
	}

	_, err := svc.ChangeStatus(ctx, actorOf(f.agent), ticket.ID, domain.TicketStatusInProgress)
	require.NoError(t, err)

	stored := f.store.ticket(ticket.ID)
	assert.Equal(t, domain.TicketStatusInProgress, stored.Status)
	require.NotNil(t, stored.AgentID)
	assert.Equal(t, f.agent.ID, *stored.AgentID)
}

func TestChangeStatusNeverRewindsLastUpdated(t *testing.T) {
	f := newTicketFixture(t)
	ctx := context.Background()
	ticket := f.createTicket(t, f.customer)

	f.clock.Advance(time.Hour)
	_, err := f.svc.AddResponse(ctx, actorOf(f.customer), ticket.ID, ResponseInput{Content: "still broken"})
	require.NoError(t, err)
	latest := f.store.ticket(ticket.ID).LastUpdated

	f.clock.Advance(-30 * time.Minute)
	updated, err := f.svc.ChangeStatus(ctx, actorOf(f.agent), ticket.ID, domain.TicketStatusClosed)
	require.NoError(t, err)
	assert.Equal(t, latest, updated.LastUpdated)
	assert.Equal(t, latest, f.store.ticket(ticket.ID).LastUpdated)
}

func TestDeleteTicket(t *testing.T) {
	f := newTicketFixture(t)
	ctx := context.Background()
	ticket := f.createTicket(t, f.customer)
	_, err := f.svc.AddResponse(ctx, actorOf(f.customer), ticket.ID, ResponseInput{Content: "hello"})
	require.NoError(t, err)

	err = f.svc.Delete(ctx, actorOf(f.agent), ticket.ID)
	requireDenial(t, err, auth.NoticeAdminRequired, "/")

	require.NoError(t, f.svc.Delete(ctx, actorOf(f.admin), ticket.ID))
	assert.Empty(t, f.store.tickets)
	assert.Empty(t, f.store.responses)

	err = f.svc.Delete(ctx, actorOf(f.admin), ticket.ID)
	requireCode(t, err, apperrors.CodeNotFound)
}

func TestDashboards(t *testing.T) {
	f := newTicketFixture(t)
	ctx := context.Background()

	first := f.createTicket(t, f.customer)
	f.clock.Advance(time.Second)
	second := f.createTicket(t, f.customer)
	f.clock.Advance(time.Second)
	foreign := f.createTicket(t, f.other)

	_, err := f.svc.AssignAgent(ctx, actorOf(f.admin), foreign.ID, f.admin.ID)
	require.NoError(t, err)
	_, err = f.svc.ChangeStatus(ctx, actorOf(f.admin), first.ID, domain.TicketStatusResolved)
	require.NoError(t, err)

	mine, err := f.svc.CustomerDashboard(ctx, actorOf(f.customer))
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, second.ID, mine[0].ID)
	assert.Equal(t, first.ID, mine[1].ID)

	theirs, err := f.svc.CustomerDashboard(ctx, actorOf(f.other))
	require.NoError(t, err)
	require.Len(t, theirs, 1)
	assert.Equal(t, foreign.ID, theirs[0].ID)

	_, err = f.svc.CustomerDashboard(ctx, actorOf(f.agent))
	de := requireCode(t, err, apperrors.CodeForbidden)
	assert.Equal(t, NoticeStaffDashboard, de.Message)
	assert.Equal(t, "info", de.Details[DetailCategory])

	pool, err := f.svc.AgentDashboard(ctx, actorOf(f.agent))
	require.NoError(t, err)
	assert.Len(t, pool, 2)

	_, err = f.svc.AgentDashboard(ctx, actorOf(f.customer))
	requireDenial(t, err, auth.NoticeAgentRequired, "/")

	overview, err := f.svc.AdminDashboard(ctx, actorOf(f.admin), nil)
	require.NoError(t, err)
	assert.Len(t, overview.Tickets, 3)
	assert.Equal(t, int64(2), overview.StatusCounts[domain.TicketStatusOpen])
	assert.Equal(t, int64(1), overview.StatusCounts[domain.TicketStatusResolved])
	assert.Equal(t, int64(0), overview.StatusCounts[domain.TicketStatusClosed])
	assert.Len(t, overview.StatusCounts, 4)
	assert.Equal(t, int64(4), overview.TotalUsers)
	assert.Equal(t, int64(2), overview.TotalAgents)
}

func TestCustomerDashboardIsPerAuthor(t *testing.T) {
	f := newTicketFixture(t)
	ctx := context.Background()

	jam, err := f.svc.Create(ctx, actorOf(f.customer), TicketCreateInput{
		Title:       "Printer jam",
		Description: "Paper stuck in tray 2",
		Category:    domain.TicketCategoryTechnical,
		Priority:    domain.TicketPriorityMedium,
	})
	require.NoError(t, err)

	mine, err := f.svc.CustomerDashboard(ctx, actorOf(f.customer))
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, jam.ID, mine[0].ID)
	assert.Equal(t, "Printer jam", mine[0].Title)
	assert.Equal(t, domain.TicketCategoryTechnical, mine[0].Category)
	assert.Equal(t, domain.TicketPriorityMedium, mine[0].Priority)
	assert.Equal(t, domain.TicketStatusOpen, mine[0].Status)

	theirs, err := f.svc.CustomerDashboard(ctx, actorOf(f.other))
	require.NoError(t, err)
	assert.Empty(t, theirs)

	overview, err := f.svc.AdminDashboard(ctx, actorOf(f.admin), nil)
	require.NoError(t, err)
	require.Len(t, overview.Tickets, 1)
	assert.Equal(t, jam.ID, overview.Tickets[0].ID)

	_, err = f.svc.GetForViewer(ctx, actorOf(f.other), jam.ID)
	requireDenial(t, err, auth.NoticeTicketForbidden, "/user_dashboard")
}

func TestAdminDashboardStatusFilter(t *testing.T) {
	f := newTicketFixture(t)
	ctx := context.Background()

	open := f.createTicket(t, f.customer)
	f.clock.Advance(time.Second)
	resolved := f.createTicket(t, f.customer)
	f.clock.Advance(time.Second)
	closed := f.createTicket(t, f.other)
	_, err := f.svc.ChangeStatus(ctx, actorOf(f.agent), resolved.ID, domain.TicketStatusResolved)
	require.NoError(t, err)
	_, err = f.svc.ChangeStatus(ctx, actorOf(f.agent), closed.ID, domain.TicketStatusClosed)
	require.NoError(t, err)

	overview, err := f.svc.AdminDashboard(ctx, actorOf(f.admin), []domain.TicketStatus{domain.TicketStatusResolved, domain.TicketStatusClosed})
	require.NoError(t, err)
	require.Len(t, overview.Tickets, 2)
	assert.Equal(t, closed.ID, overview.Tickets[0].ID)
	assert.Equal(t, resolved.ID, overview.Tickets[1].ID)
	assert.Equal(t, int64(1), overview.StatusCounts[domain.TicketStatusOpen])
	assert.Equal(t, []domain.TicketStatus{domain.TicketStatusResolved, domain.TicketStatusClosed}, overview.StatusFilter)

	overview, err = f.svc.AdminDashboard(ctx, actorOf(f.admin), []domain.TicketStatus{domain.TicketStatusOpen})
	require.NoError(t, err)
	require.Len(t, overview.Tickets, 1)
	assert.Equal(t, open.ID, overview.Tickets[0].ID)

	reads := f.store.ticketReads
	_, err = f.svc.AdminDashboard(ctx, actorOf(f.admin), []domain.TicketStatus{"Escalated"})
	requireDenial(t, err, NoticeInvalidStatus, "/admin_dashboard")
	assert.Equal(t, reads, f.store.ticketReads)
}

func TestAdminDashboardDeniedBeforeReads(t *testing.T) {
	f := newTicketFixture(t)

	_, err := f.svc.AdminDashboard(context.Background(), nil, nil)
	requireDenial(t, err, auth.NoticeLoginRequired, "/login")
	_, err = f.svc.AdminDashboard(context.Background(), actorOf(f.agent), nil)
	requireDenial(t, err, auth.NoticeAdminRequired, "/")
	assert.Zero(t, f.store.ticketReads)
}
