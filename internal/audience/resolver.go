package audience

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shenikar/sos_broadcasting_system/internal/models"
	"github.com/sirupsen/logrus"
)

// MaxEmergencyContacts - пользователь может завести не больше 5 экстренных контактов
const MaxEmergencyContacts = 5

// ContactSource читает экстренные контакты пользователя (данными владеет внешний сервис)
type ContactSource interface {
	EmergencyContacts(ctx context.Context, ownerID string) ([]models.AudienceMember, error)
}

// ConnectionSource читает принятые взаимные связи с bystander-ами
type ConnectionSource interface {
	Bystanders(ctx context.Context, ownerID string) ([]models.AudienceMember, error)
}

// Resolver собирает упорядоченный список получателей: сначала контакты, затем bystander-ы.
// Только чтение, без побочных эффектов.
type Resolver struct {
	contacts    ContactSource
	connections ConnectionSource
	logger      *logrus.Logger
}

func NewResolver(contacts ContactSource, connections ConnectionSource, logger *logrus.Logger) *Resolver {
	return &Resolver{
		contacts:    contacts,
		connections: connections,
		logger:      logger,
	}
}

// Resolve возвращает получателей тревоги. Пустой список - валидный результат, не ошибка.
// Если один из источников недоступен, возвращаются получатели из другого вместе с ошибкой.
func (r *Resolver) Resolve(ctx context.Context, ownerID string) ([]models.AudienceMember, error) {
	log := r.logger.WithFields(logrus.Fields{
		"service":  "audience",
		"method":   "Resolve",
		"owner_id": ownerID,
	})

	var errs []error

	contacts, err := r.contacts.EmergencyContacts(ctx, ownerID)
	if err != nil {
		log.WithError(err).Error("Failed to read emergency contacts")
		errs = append(errs, fmt.Errorf("emergency contacts: %w", err))
	}

	bystanders, err := r.connections.Bystanders(ctx, ownerID)
	if err != nil {
		log.WithError(err).Error("Failed to read bystander connections")
		errs = append(errs, fmt.Errorf("bystanders: %w", err))
	}

	members := make([]models.AudienceMember, 0, len(contacts)+len(bystanders))
	seen := make(map[string]struct{}, cap(members))

	added := 0
	for i, m := range contacts {
		if added == MaxEmergencyContacts {
			// Остаток считается по сырому списку, пропущенные выше строки в него не входят
			log.WithField("dropped", len(contacts)-i).Warn("Emergency contact list exceeds the limit, extra contacts ignored")
			break
		}
		m.Kind = models.AudienceEmergencyContact
		if appendMember(&members, seen, m, ownerID) {
			added++
		}
	}
	for _, m := range bystanders {
		m.Kind = models.AudienceBystander
		appendMember(&members, seen, m, ownerID)
	}

	log.WithFields(logrus.Fields{
		"contacts":   added,
		"bystanders": len(members) - added,
	}).Info("Audience resolved")

	return members, errors.Join(errs...)
}

// appendMember добавляет получателя, отбрасывая дубликаты и самого владельца
func appendMember(members *[]models.AudienceMember, seen map[string]struct{}, m models.AudienceMember, ownerID string) bool {
	m.Identity = strings.TrimSpace(m.Identity)
	if m.Identity == "" || isOwner(m, ownerID) {
		return false
	}
	if _, dup := seen[m.Key()]; dup {
		return false
	}

	addresses := make([]models.ChannelAddress, 0, len(m.Addresses))
	for _, a := range m.Addresses {
		a.Address = strings.TrimSpace(a.Address)
		if a.Address != "" {
			addresses = append(addresses, a)
		}
	}
	m.Addresses = addresses

	seen[m.Key()] = struct{}{}
	*members = append(*members, m)
	return true
}

// isOwner защищает от кривых данных выше по потоку: владельцу тревоги не шлем его же тревогу
func isOwner(m models.AudienceMember, ownerID string) bool {
	if m.Identity == ownerID {
		return true
	}
	for _, a := range m.Addresses {
		if a.Channel == models.ChannelInApp && strings.TrimSpace(a.Address) == ownerID {
			return true
		}
	}
	return false
}
