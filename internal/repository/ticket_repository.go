package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// TicketFilter captures dashboard query parameters. Nil fields are ignored.
type TicketFilter struct {
	AuthorID *int64
	// AgentPoolFor selects tickets assigned to this agent plus the
	// unassigned pool.
	AgentPoolFor *int64
	Statuses     []domain.TicketStatus
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	SetAgent(ctx context.Context, ticketID, agentID int64) error
	SetStatus(ctx context.Context, ticketID int64, status domain.TicketStatus, at time.Time) (time.Time, error)
	Delete(ctx context.Context, id int64) error
	GetByID(ctx context.Context, id int64) (*domain.Ticket, error)
	ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	CountByStatus(ctx context.Context) (map[domain.TicketStatus]int64, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketSelect = `
        SELECT t.id, t.title, t.description, t.category, t.priority, t.status,
               t.date_posted, t.last_updated, t.user_id, t.agent_id,
               author.username, agent.username
        FROM tickets t
        JOIN users author ON author.id = t.user_id
        LEFT JOIN users agent ON agent.id = t.agent_id`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (title, description, category, priority, status, date_posted, last_updated, user_id, agent_id)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
        RETURNING id`
	return r.pool.QueryRow(ctx, query,
		ticket.Title,
		ticket.Description,
		ticket.Category,
		ticket.Priority,
		ticket.Status,
		ticket.DatePosted,
		ticket.LastUpdated,
		ticket.AuthorID,
		ticket.AgentID,
	).Scan(&ticket.ID)
}

// SetAgent writes agent_id only. last_updated is not touched.
func (r *ticketRepository) SetAgent(ctx context.Context, ticketID, agentID int64) error {
	cmd, err := r.pool.Exec(ctx, `UPDATE tickets SET agent_id=$1 WHERE id=$2`, agentID, ticketID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// SetStatus writes status and moves last_updated forward to at, never back.
// It returns the stored last_updated.
func (r *ticketRepository) SetStatus(ctx context.Context, ticketID int64, status domain.TicketStatus, at time.Time) (time.Time, error) {
	const query = `
        UPDATE tickets SET status=$1, last_updated=GREATEST(last_updated, $2)
        WHERE id=$3
        RETURNING last_updated`
	var lastUpdated time.Time
	if err := r.pool.QueryRow(ctx, query, status, at, ticketID).Scan(&lastUpdated); err != nil {
		return time.Time{}, err
	}
	return lastUpdated.UTC(), nil
}

// Delete removes the ticket; its responses go with it through the FK cascade.
func (r *ticketRepository) Delete(ctx context.Context, id int64) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM tickets WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ticketRepository) GetByID(ctx context.Context, id int64) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := scanTicket(r.pool.QueryRow(ctx, ticketSelect+` WHERE t.id=$1`, id), &ticket); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.AuthorID != nil {
		args = append(args, *filter.AuthorID)
		clauses = append(clauses, fmt.Sprintf("t.user_id=$%d", len(args)))
	}
	if filter.AgentPoolFor != nil {
		args = append(args, *filter.AgentPoolFor)
		clauses = append(clauses, fmt.Sprintf("(t.agent_id=$%d OR t.agent_id IS NULL)", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("t.status IN (%s)", strings.Join(placeholders, ",")))
	}

	query := fmt.Sprintf(`%s WHERE %s ORDER BY t.date_posted DESC, t.id DESC`,
		ticketSelect, strings.Join(clauses, " AND "))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		if err := scanTicket(rows, &ticket); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}

// CountByStatus returns a count for every status, including zeroes.
func (r *ticketRepository) CountByStatus(ctx context.Context) (map[domain.TicketStatus]int64, error) {
	counts := make(map[domain.TicketStatus]int64, 4)
	for _, status := range domain.AllTicketStatuses() {
		counts[status] = 0
	}

	rows, err := r.pool.Query(ctx, `SELECT status, COUNT(*) FROM tickets GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			status domain.TicketStatus
			n      int64
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

func scanTicket(row pgx.Row, ticket *domain.Ticket) error {
	return row.Scan(
		&ticket.ID,
		&ticket.Title,
		&ticket.Description,
		&ticket.Category,
		&ticket.Priority,
		&ticket.Status,
		&ticket.DatePosted,
		&ticket.LastUpdated,
		&ticket.AuthorID,
		&ticket.AgentID,
		&ticket.AuthorName,
		&ticket.AgentName,
	)
}
