// internal/infrastructure/persistence/postgres/models/recipient.go
package models

import (
	"database/sql"
	"time"

	"telegram-fcm-signal-bridge/internal/core/domain/dispatch"
)

// Recipient - модель получателя push-уведомлений
type Recipient struct {
	ID            int            `db:"id" json:"id"`
	Identifier    string         `db:"identifier" json:"identifier"`
	DeliveryToken string         `db:"delivery_token" json:"delivery_token"`
	Class         string         `db:"class" json:"class"`
	Role          sql.NullString `db:"role" json:"role,omitempty"`
	IsActive      bool           `db:"is_active" json:"is_active"`
	CreatedAt     time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at" json:"updated_at"`
}

// Константы классов получателей
const (
	ClassEndUser  = "end_user"
	ClassOperator = "operator"
)

// IsOperator проверяет, является ли получатель оператором
func (r *Recipient) IsOperator() bool {
	return r.Class == ClassOperator
}

// ToDomain преобразует модель в получателя рассылки
func (r *Recipient) ToDomain() dispatch.Recipient {
	recipient := dispatch.Recipient{
		Identifier:    r.Identifier,
		DeliveryToken: r.DeliveryToken,
		Class:         dispatch.RecipientClass(r.Class),
	}
	if r.Role.Valid {
		recipient.Role = r.Role.String
	}
	return recipient
}

// NewRecipient создает нового активного получателя
func NewRecipient(identifier, deliveryToken, class, role string) *Recipient {
	now := time.Now()
	recipient := &Recipient{
		Identifier:    identifier,
		DeliveryToken: deliveryToken,
		Class:         class,
		IsActive:      true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if role != "" {
		recipient.Role = sql.NullString{String: role, Valid: true}
	}
	return recipient
}
