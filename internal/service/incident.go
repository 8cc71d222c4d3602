package service

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shenikar/sos_broadcasting_system/internal/config"
	"github.com/shenikar/sos_broadcasting_system/internal/models"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

type incidentService struct {
	repo       IncidentRepository
	locations  LocationResolver
	audience   AudienceResolver
	dispatcher Dispatcher
	events     EventPublisher
	logger     *logrus.Logger
	cfg        *config.Config

	now     func() time.Time
	numbers func(time.Time) string
}

func NewIncidentService(
	repo IncidentRepository,
	locations LocationResolver,
	audience AudienceResolver,
	dispatcher Dispatcher,
	events EventPublisher,
	logger *logrus.Logger,
	cfg *config.Config,
) IncidentService {
	return &incidentService{
		repo:       repo,
		locations:  locations,
		audience:   audience,
		dispatcher: dispatcher,
		events:     events,
		logger:     logger,
		cfg:        cfg,
		now:        time.Now,
		numbers:    incidentNumber,
	}
}

// incidentNumber - человекочитаемый номер вида INC-2026-042. Уникальность не гарантируется.
func incidentNumber(at time.Time) string {
	return fmt.Sprintf("INC-%d-%03d", at.Year(), rand.IntN(1000))
}

// TriggerIncident поднимает тревогу: местоположение и получатели определяются параллельно,
// затем инцидент записывается и только после этого начинается рассылка.
// Ошибка возвращается, только если инцидент не удалось записать.
func (s *incidentService) TriggerIncident(ctx context.Context, req models.TriggerRequest) (*models.TriggerResult, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service":  "incident",
		"method":   "TriggerIncident",
		"owner_id": req.OwnerID,
		"severity": int(req.Severity),
	})
	log.Info("Emergency alert triggered")

	if !req.Severity.Valid() {
		log.Warn("Rejected alert with invalid severity")
		return nil, fmt.Errorf("service: %w", models.ErrInvalidSeverity)
	}
	if strings.TrimSpace(req.OwnerID) == "" {
		return nil, fmt.Errorf("service: owner id is required")
	}

	var (
		location models.Location
		audience []models.AudienceMember
	)
	var g errgroup.Group
	g.Go(func() error {
		location = s.locations.Resolve(ctx, req.Position, s.cfg.GeocodeTimeout)
		return nil
	})
	g.Go(func() error {
		members, err := s.audience.Resolve(ctx, req.OwnerID)
		if err != nil {
			// Тревога поднимается в любом случае, даже с неполным списком получателей
			log.WithError(err).Error("Failed to resolve full audience, continuing with partial audience")
		}
		audience = members
		return nil
	})
	_ = g.Wait()

	if audience == nil {
		audience = []models.AudienceMember{}
	}

	triggeredAt := s.now().UTC()
	incident := &models.Incident{
		OwnerID:          req.OwnerID,
		OwnerName:        req.OwnerName,
		IncidentNumber:   s.numbers(triggeredAt),
		Severity:         req.Severity,
		Status:           models.StatusActive,
		TriggeredAt:      triggeredAt,
		Location:         location,
		Note:             strings.TrimSpace(req.Note),
		AudienceSnapshot: audience,
		ResponseLog: []models.ResponseLogEntry{{
			Timestamp: triggeredAt,
			Actor:     models.ActorUser,
			Action:    models.ActionAlertTriggered,
			Details:   fmt.Sprintf("%s alert initiated", req.Severity.Badge()),
		}},
	}

	if err := s.repo.Create(ctx, incident); err != nil {
		log.WithError(err).Error("Failed to record incident in repository")
		return nil, fmt.Errorf("service: could not create incident: %w: %w", models.ErrIncidentPersistence, err)
	}

	log = log.WithFields(logrus.Fields{
		"incident_id":     incident.ID,
		"incident_number": incident.IncidentNumber,
		"location":        incident.Location.Status,
		"recipients":      len(audience),
	})
	log.Info("Incident recorded")

	// Записанную тревогу нельзя отменить: отмена запроса не прерывает рассылку
	dispatchCtx := context.WithoutCancel(ctx)
	s.publish(dispatchCtx, log, models.EventIncidentTriggered, incident)

	summary := s.dispatcher.Dispatch(dispatchCtx, incident, audience)

	if err := s.repo.AttachDeliverySummary(dispatchCtx, incident.ID, summary); err != nil {
		log.WithError(err).Error("Failed to attach delivery summary")
	} else {
		incident.DeliverySummary = &summary
	}

	entry := models.ResponseLogEntry{
		Timestamp: s.now().UTC(),
		Actor:     models.ActorSystem,
		Action:    models.ActionNotificationsDispatched,
		Details:   dispatchDetails(summary),
	}
	if err := s.repo.AppendLog(dispatchCtx, incident.ID, entry); err != nil {
		log.WithError(err).Error("Failed to append dispatch log entry")
	} else {
		incident.ResponseLog = append(incident.ResponseLog, entry)
	}

	if err := s.repo.InvalidateIncidentCache(dispatchCtx, incident.ID); err != nil {
		log.WithError(err).Warn("Failed to invalidate incident cache")
	}
	s.publish(dispatchCtx, log, models.EventIncidentDispatched, incident)

	outcome := models.TriggerOutcomeDispatched
	if len(audience) == 0 {
		outcome = models.TriggerOutcomeNoRecipients
		log.Warn("Alert recorded with zero recipients")
	}

	log.WithFields(logrus.Fields{
		"delivered": summary.Delivered(),
		"failed":    summary.Failed(),
		"outcome":   outcome,
	}).Info("Emergency alert processed")

	return &models.TriggerResult{
		Incident: incident,
		Summary:  summary,
		Outcome:  outcome,
	}, nil
}

// GetIncident получает инцидент владельца, сначала из кеша закрытых инцидентов
func (s *incidentService) GetIncident(ctx context.Context, ownerID string, id uuid.UUID) (*models.Incident, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service":     "incident",
		"method":      "GetIncident",
		"incident_id": id,
	})
	log.Info("Fetching incident by ID")

	incident, err := s.repo.GetIncidentFromCache(ctx, id)
	if err != nil {
		log.WithError(err).Warn("Failed to read incident cache")
	}

	if incident == nil {
		incident, err = s.repo.GetByID(ctx, id)
		if err != nil {
			log.WithError(err).Error("Failed to get incident in repository")
			return nil, fmt.Errorf("service: could not get incident: %w", err)
		}
		// Кешируются только закрытые инциденты: активный может измениться между чтением из БД и записью в кеш
		if incident.Status == models.StatusResolved {
			if err := s.repo.SetIncidentCache(ctx, incident); err != nil {
				log.WithError(err).Warn("Failed to cache incident")
			}
		}
	}

	if incident.OwnerID != ownerID {
		log.WithField("owner_id", ownerID).Warn("Attempted to read another user's incident")
		return nil, fmt.Errorf("service: could not get incident: %w", models.ErrForbidden)
	}

	log.Info("Incident fetched successfully")
	return incident, nil
}

// ListIncidents возвращает инциденты владельца с пагинацией, новые первыми
func (s *incidentService) ListIncidents(ctx context.Context, ownerID string, page, pageSize int) ([]*models.Incident, error) {
	page, pageSize = clampPage(page, pageSize)

	log := s.logger.WithFields(logrus.Fields{
		"service":   "incident",
		"method":    "ListIncidents",
		"owner_id":  ownerID,
		"page":      page,
		"page_size": pageSize,
	})
	log.Info("Listing incidents")

	incidents, err := s.repo.ListByOwner(ctx, ownerID, page, pageSize)
	if err != nil {
		log.WithError(err).Error("Failed to list incidents from repository")
		return nil, fmt.Errorf("service: could not list incidents: %w", err)
	}

	log.WithField("count", len(incidents)).Info("Incidents listed successfully")
	return incidents, nil
}

func (s *incidentService) GetStats(ctx context.Context, ownerID string) (models.IncidentStats, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service":  "incident",
		"method":   "GetStats",
		"owner_id": ownerID,
	})

	stats, err := s.repo.StatsByOwner(ctx, ownerID)
	if err != nil {
		log.WithError(err).Error("Failed to get incident stats from repository")
		return models.IncidentStats{}, fmt.Errorf("service: could not get incident stats: %w", err)
	}
	return stats, nil
}

// ResolveIncident - единственный переход жизненного цикла: active -> resolved.
// Повторный вызов возвращает ErrInvalidTransition и ничего не меняет.
func (s *incidentService) ResolveIncident(ctx context.Context, ownerID string, id uuid.UUID) (*models.Incident, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service":     "incident",
		"method":      "ResolveIncident",
		"incident_id": id,
		"owner_id":    ownerID,
	})
	log.Info("Attempting to resolve incident")

	incident, err := s.repo.GetByID(ctx, id)
	if err != nil {
		log.WithError(err).Warn("Attempted to resolve a non-existent incident")
		return nil, fmt.Errorf("service: could not resolve incident: %w", err)
	}
	if incident.OwnerID != ownerID {
		log.Warn("Attempted to resolve another user's incident")
		return nil, fmt.Errorf("service: could not resolve incident: %w", models.ErrForbidden)
	}
	if !incident.Status.CanTransitionTo(models.StatusResolved) {
		log.WithField("status", incident.Status).Warn("Rejected invalid status transition")
		return nil, fmt.Errorf("service: could not resolve incident: %w", models.ErrInvalidTransition)
	}

	resolvedAt := s.now().UTC()
	entry := models.ResponseLogEntry{
		Timestamp: resolvedAt,
		Actor:     models.ActorUser,
		Action:    models.ActionMarkedSafe,
		Details:   "Incident resolved by owner",
	}
	// Хранилище повторно проверяет статус: при гонке второй вызов получит ErrInvalidTransition
	if err := s.repo.Resolve(ctx, id, resolvedAt, entry); err != nil {
		log.WithError(err).Error("Failed to resolve incident in repository")
		return nil, fmt.Errorf("service: could not resolve incident: %w", err)
	}

	if err := s.repo.InvalidateIncidentCache(ctx, id); err != nil {
		log.WithError(err).Warn("Failed to invalidate incident cache")
	}

	incident.Status = models.StatusResolved
	incident.ResolvedAt = &resolvedAt
	incident.ResponseLog = append(incident.ResponseLog, entry)

	s.publish(ctx, log, models.EventIncidentResolved, incident)

	log.Info("Incident resolved successfully")
	return incident, nil
}

// publish отправляет событие. Ошибка только логируется: события не влияют на сам инцидент.
func (s *incidentService) publish(ctx context.Context, log *logrus.Entry, eventType models.EventType, incident *models.Incident) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, models.NewIncidentEvent(eventType, incident, s.now().UTC())); err != nil {
		log.WithError(err).WithField("event_type", eventType).Warn("Failed to publish incident event")
	}
}

func dispatchDetails(summary models.DeliverySummary) string {
	if len(summary.Recipients) == 0 {
		return "0 recipients"
	}
	return fmt.Sprintf("%d recipients, %d delivered, %d failed",
		len(summary.Recipients), summary.Delivered(), summary.Failed())
}

func clampPage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return page, pageSize
}
