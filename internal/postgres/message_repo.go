package postgres

import (
	"context"

	"github.com/cwrk-planet/presence-service/internal/domain"

	"github.com/jackc/pgx/v5/pgxpool"
)

type MessageRepository struct {
	db *pgxpool.Pool
}

func NewMessageRepository(db *pgxpool.Pool) *MessageRepository {
	return &MessageRepository{db: db}
}

// Insert — id и created_at назначает база, клиентский payload их не задаёт.
func (r *MessageRepository) Insert(ctx context.Context, m domain.Message) (*domain.Message, error) {
	row := r.db.QueryRow(ctx, `
		INSERT INTO messages (sender_id, receiver_id, application_id, content)
		VALUES ($1, $2, $3, $4)
		RETURNING id, sender_id, receiver_id, application_id, content, created_at, is_read
	`, m.SenderID, m.ReceiverID, m.ApplicationID, m.Content)

	var out domain.Message
	if err := row.Scan(&out.ID, &out.SenderID, &out.ReceiverID, &out.ApplicationID, &out.Content, &out.CreatedAt, &out.IsRead); err != nil {
		return nil, err
	}
	return &out, nil
}

// MarkRead идемпотентен: повторный вызов оставляет is_read = TRUE.
func (r *MessageRepository) MarkRead(ctx context.Context, id string) error {
	_, err := r.db.Exec(ctx, `UPDATE messages SET is_read = TRUE WHERE id = $1`, id)

	return err
}
