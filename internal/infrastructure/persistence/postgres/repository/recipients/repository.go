// internal/infrastructure/persistence/postgres/repository/recipients/repository.go
package recipients

import (
	"context"
	"database/sql"
	"fmt"

	"telegram-fcm-signal-bridge/internal/core/domain/dispatch"
	"telegram-fcm-signal-bridge/internal/infrastructure/persistence/postgres/models"
	"telegram-fcm-signal-bridge/pkg/logger"

	"github.com/jmoiron/sqlx"
)

// RecipientRepository интерфейс для работы с получателями рассылки
type RecipientRepository interface {
	ListActive(ctx context.Context, filter dispatch.RecipientFilter) ([]dispatch.Recipient, error)
	FindByIdentifier(ctx context.Context, identifier string) (*models.Recipient, error)
	Add(ctx context.Context, recipient *models.Recipient) error
	Deactivate(ctx context.Context, identifier string) error
	MarkTokenInvalid(ctx context.Context, deliveryToken string) error
	CountByClass(ctx context.Context) (map[string]int, error)
}

// RecipientRepositoryImpl реализация репозитория получателей
type RecipientRepositoryImpl struct {
	db *sqlx.DB
}

// NewRecipientRepository создает новый репозиторий получателей
func NewRecipientRepository(db *sqlx.DB) *RecipientRepositoryImpl {
	return &RecipientRepositoryImpl{db: db}
}

// ListActive возвращает активных получателей с учетом фильтра доставки
func (r *RecipientRepositoryImpl) ListActive(ctx context.Context, filter dispatch.RecipientFilter) ([]dispatch.Recipient, error) {
	query := `
		SELECT id, identifier, delivery_token, class, role, is_active, created_at, updated_at
		FROM recipients
		WHERE is_active = TRUE
	`
	var args []interface{}

	switch filter.Mode {
	case dispatch.FilterEndUsers:
		query += ` AND class = 'end_user'`
	case dispatch.FilterOperators:
		query += ` AND class = 'operator'`
	case dispatch.FilterOperatorsByRole:
		query += ` AND class = 'operator' AND role = $1`
		args = append(args, filter.Role)
	}

	query += ` ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list recipients: %w", err)
	}
	defer rows.Close()

	var recipients []dispatch.Recipient
	for rows.Next() {
		recipient, err := scanRecipient(rows)
		if err != nil {
			return nil, err
		}
		recipients = append(recipients, recipient.ToDomain())
	}

	return recipients, rows.Err()
}

// FindByIdentifier находит получателя по идентификатору
func (r *RecipientRepositoryImpl) FindByIdentifier(ctx context.Context, identifier string) (*models.Recipient, error) {
	query := `
		SELECT id, identifier, delivery_token, class, role, is_active, created_at, updated_at
		FROM recipients
		WHERE identifier = $1
	`

	var recipient models.Recipient
	err := r.db.QueryRowContext(ctx, query, identifier).Scan(
		&recipient.ID, &recipient.Identifier, &recipient.DeliveryToken,
		&recipient.Class, &recipient.Role, &recipient.IsActive,
		&recipient.CreatedAt, &recipient.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	return &recipient, nil
}

// Add регистрирует получателя; повторная регистрация обновляет токен и класс
func (r *RecipientRepositoryImpl) Add(ctx context.Context, recipient *models.Recipient) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO recipients (identifier, delivery_token, class, role, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (identifier) DO UPDATE SET
			delivery_token = EXCLUDED.delivery_token,
			class = EXCLUDED.class,
			role = EXCLUDED.role,
			is_active = EXCLUDED.is_active,
			updated_at = EXCLUDED.updated_at
		RETURNING id
	`

	err = tx.QueryRowContext(ctx, query,
		recipient.Identifier, recipient.DeliveryToken, recipient.Class,
		recipient.Role, recipient.IsActive,
		recipient.CreatedAt, recipient.UpdatedAt,
	).Scan(&recipient.ID)
	if err != nil {
		return fmt.Errorf("failed to add recipient: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// Deactivate отключает получателя от рассылки
func (r *RecipientRepositoryImpl) Deactivate(ctx context.Context, identifier string) error {
	query := `
		UPDATE recipients
		SET is_active = FALSE,
			updated_at = NOW()
		WHERE identifier = $1
	`

	result, err := r.db.ExecContext(ctx, query, identifier)
	if err != nil {
		return err
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return sql.ErrNoRows
	}

	return nil
}

// MarkTokenInvalid отключает всех получателей с мертвым токеном доставки
func (r *RecipientRepositoryImpl) MarkTokenInvalid(ctx context.Context, deliveryToken string) error {
	query := `
		UPDATE recipients
		SET is_active = FALSE,
			updated_at = NOW()
		WHERE delivery_token = $1 AND is_active = TRUE
	`

	result, err := r.db.ExecContext(ctx, query, deliveryToken)
	if err != nil {
		return err
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected > 0 {
		logger.Info("🗑️ Отключено получателей с недействительным токеном: %d", rowsAffected)
	}

	return nil
}

// CountByClass возвращает количество активных получателей по классам
func (r *RecipientRepositoryImpl) CountByClass(ctx context.Context) (map[string]int, error) {
	query := `
		SELECT class, COUNT(*)
		FROM recipients
		WHERE is_active = TRUE
		GROUP BY class
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var class string
		var count int
		if err := rows.Scan(&class, &count); err != nil {
			return nil, err
		}
		counts[class] = count
	}

	return counts, rows.Err()
}

// scanRecipient сканирует строку из rows в Recipient
func scanRecipient(rows *sql.Rows) (*models.Recipient, error) {
	var recipient models.Recipient
	var createdAt, updatedAt sql.NullTime

	err := rows.Scan(
		&recipient.ID, &recipient.Identifier, &recipient.DeliveryToken,
		&recipient.Class, &recipient.Role, &recipient.IsActive,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if createdAt.Valid {
		recipient.CreatedAt = createdAt.Time
	}
	if updatedAt.Valid {
		recipient.UpdatedAt = updatedAt.Time
	}

	return &recipient, nil
}
