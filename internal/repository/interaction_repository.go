package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chiapettaiago/chamados/internal/domain"
)

// InteractionRepository manages ticket interactions.
type InteractionRepository interface {
	Create(ctx context.Context, interaction *domain.Interaction) error
	ListByTicket(ctx context.Context, ticketID int64) ([]domain.Interaction, error)
}

type interactionRepository struct {
	pool *pgxpool.Pool
}

// NewInteractionRepository builds repository.
func NewInteractionRepository(pool *pgxpool.Pool) InteractionRepository {
	return &interactionRepository{pool: pool}
}

func (r *interactionRepository) Create(ctx context.Context, interaction *domain.Interaction) error {
	const query = `
        INSERT INTO interactions (ticket_id, content, author, created_at)
        VALUES ($1,$2,$3,$4)
        RETURNING id`
	return r.pool.QueryRow(ctx, query,
		interaction.TicketID,
		interaction.Content,
		interaction.Author,
		interaction.CreatedAt,
	).Scan(&interaction.ID)
}

func (r *interactionRepository) ListByTicket(ctx context.Context, ticketID int64) ([]domain.Interaction, error) {
	const query = `
        SELECT id, ticket_id, content, author, created_at
        FROM interactions WHERE ticket_id=$1 ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Interaction
	for rows.Next() {
		var in domain.Interaction
		if err := rows.Scan(
			&in.ID,
			&in.TicketID,
			&in.Content,
			&in.Author,
			&in.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, in)
	}
	return result, rows.Err()
}
