package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shenikar/sos_broadcasting_system/internal/models"
)

// AudienceRepository читает экстренные контакты и принятые связи пользователя.
// Записями владеют внешние сервисы, отсюда они только читаются.
type AudienceRepository struct {
	db *pgxpool.Pool
}

func NewAudienceRepository(db *pgxpool.Pool) *AudienceRepository {
	return &AudienceRepository{db: db}
}

// EmergencyContacts возвращает контакты владельца в порядке приоритета
func (r *AudienceRepository) EmergencyContacts(ctx context.Context, ownerID string) ([]models.AudienceMember, error) {
	query := `
		SELECT id::text, full_name, phone_number, email
		FROM emergency_contacts
		WHERE owner_id = $1
		ORDER BY priority, created_at;
	`
	rows, err := r.db.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list emergency contacts: %w", err)
	}
	defer rows.Close()

	members := make([]models.AudienceMember, 0)
	for rows.Next() {
		var id, name, phone, email string
		if err := rows.Scan(&id, &name, &phone, &email); err != nil {
			return nil, fmt.Errorf("failed to scan emergency contact row: %w", err)
		}
		members = append(members, models.AudienceMember{
			Kind:        models.AudienceEmergencyContact,
			Identity:    id,
			DisplayName: name,
			Addresses:   addresses(address(models.ChannelSMS, phone), address(models.ChannelEmail, email)),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error emergency contacts iteration: %w", err)
	}
	return members, nil
}

// Bystanders возвращает пользователей со взаимно принятой связью с владельцем
func (r *AudienceRepository) Bystanders(ctx context.Context, ownerID string) ([]models.AudienceMember, error) {
	query := `
		SELECT c.to_user_id, c.to_user_name, c.to_user_email
		FROM connections c
		WHERE c.from_user_id = $1
			AND c.status = 'accepted'
			AND EXISTS (
				SELECT 1 FROM connections back
				WHERE back.from_user_id = c.to_user_id
					AND back.to_user_id = c.from_user_id
					AND back.status = 'accepted'
			)
		ORDER BY c.created_at;
	`
	rows, err := r.db.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list bystander connections: %w", err)
	}
	defer rows.Close()

	members := make([]models.AudienceMember, 0)
	for rows.Next() {
		var userID, name, email string
		if err := rows.Scan(&userID, &name, &email); err != nil {
			return nil, fmt.Errorf("failed to scan connection row: %w", err)
		}
		members = append(members, models.AudienceMember{
			Kind:        models.AudienceBystander,
			Identity:    userID,
			DisplayName: name,
			Addresses:   addresses(address(models.ChannelInApp, userID), address(models.ChannelEmail, email)),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error connections iteration: %w", err)
	}
	return members, nil
}

func address(channel models.ChannelKind, value string) models.ChannelAddress {
	return models.ChannelAddress{Channel: channel, Address: value}
}

// addresses отбрасывает пустые адреса
func addresses(all ...models.ChannelAddress) []models.ChannelAddress {
	out := make([]models.ChannelAddress, 0, len(all))
	for _, a := range all {
		if a.Address != "" {
			out = append(out, a)
		}
	}
	return out
}
