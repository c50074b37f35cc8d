package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// TicketResponseRepository manages ticket thread responses.
type TicketResponseRepository interface {
	// Create stores resp and advances the parent ticket's last_updated to
	// at least resp.DatePosted in the same transaction.
	Create(ctx context.Context, resp *domain.TicketResponse) error
	ListByTicket(ctx context.Context, ticketID int64) ([]domain.TicketResponse, error)
}

type ticketResponseRepository struct {
	pool *pgxpool.Pool
}

// NewTicketResponseRepository builds repository.
func NewTicketResponseRepository(pool *pgxpool.Pool) TicketResponseRepository {
	return &ticketResponseRepository{pool: pool}
}

func (r *ticketResponseRepository) Create(ctx context.Context, resp *domain.TicketResponse) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		cmd, err := tx.Exec(ctx,
			`UPDATE tickets SET last_updated = GREATEST(last_updated, $1) WHERE id=$2`,
			resp.DatePosted, resp.TicketID)
		if err != nil {
			return err
		}
		if cmd.RowsAffected() == 0 {
			return pgx.ErrNoRows
		}

		const query = `
            INSERT INTO ticket_responses (content, date_posted, is_internal_note, ticket_id, user_id)
            VALUES ($1,$2,$3,$4,$5)
            RETURNING id`
		return tx.QueryRow(ctx, query,
			resp.Content,
			resp.DatePosted,
			resp.IsInternalNote,
			resp.TicketID,
			resp.AuthorID,
		).Scan(&resp.ID)
	})
}

func (r *ticketResponseRepository) ListByTicket(ctx context.Context, ticketID int64) ([]domain.TicketResponse, error) {
	const query = `
        SELECT r.id, r.ticket_id, r.user_id, r.content, r.is_internal_note, r.date_posted, u.username
        FROM ticket_responses r
        JOIN users u ON u.id = r.user_id
        WHERE r.ticket_id=$1
        ORDER BY r.date_posted ASC, r.id ASC`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.TicketResponse
	for rows.Next() {
		var resp domain.TicketResponse
		if err := rows.Scan(
			&resp.ID,
			&resp.TicketID,
			&resp.AuthorID,
			&resp.Content,
			&resp.IsInternalNote,
			&resp.DatePosted,
			&resp.ResponderName,
		); err != nil {
			return nil, err
		}
		result = append(result, resp)
	}
	return result, rows.Err()
}
