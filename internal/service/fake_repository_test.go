package service

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shenikar/sos_broadcasting_system/internal/models"
)

// memoryRepository - потокобезопасное хранилище в памяти с той же семантикой условных записей, что и в postgres
type memoryRepository struct {
	mu        sync.Mutex
	incidents map[uuid.UUID]*models.Incident
	order     []uuid.UUID
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{incidents: make(map[uuid.UUID]*models.Incident)}
}

func cloneIncident(in *models.Incident) *models.Incident {
	out := *in
	out.AudienceSnapshot = slices.Clone(in.AudienceSnapshot)
	out.ResponseLog = slices.Clone(in.ResponseLog)
	if in.ResolvedAt != nil {
		t := *in.ResolvedAt
		out.ResolvedAt = &t
	}
	if in.DeliverySummary != nil {
		s := *in.DeliverySummary
		out.DeliverySummary = &s
	}
	return &out
}

func (r *memoryRepository) Create(ctx context.Context, incident *models.Incident) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	incident.ID = uuid.New()
	incident.UpdatedAt = time.Now()
	r.incidents[incident.ID] = cloneIncident(incident)
	r.order = append(r.order, incident.ID)
	return nil
}

func (r *memoryRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Incident, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	incident, ok := r.incidents[id]
	if !ok {
		return nil, fmt.Errorf("incident with id %s: %w", id, models.ErrIncidentNotFound)
	}
	return cloneIncident(incident), nil
}

func (r *memoryRepository) ListByOwner(ctx context.Context, ownerID string, page, pageSize int) ([]*models.Incident, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.Incident, 0)
	for i := len(r.order) - 1; i >= 0; i-- {
		if incident := r.incidents[r.order[i]]; incident.OwnerID == ownerID {
			out = append(out, cloneIncident(incident))
		}
	}
	start := min((page-1)*pageSize, len(out))
	end := min(start+pageSize, len(out))
	return out[start:end], nil
}

func (r *memoryRepository) StatsByOwner(ctx context.Context, ownerID string) (models.IncidentStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var stats models.IncidentStats
	for _, incident := range r.incidents {
		if incident.OwnerID != ownerID {
			continue
		}
		stats.Total++
		switch incident.Status {
		case models.StatusActive:
			stats.Active++
		case models.StatusResolved:
			stats.Resolved++
		}
	}
	return stats, nil
}

func (r *memoryRepository) AttachDeliverySummary(ctx context.Context, id uuid.UUID, summary models.DeliverySummary) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	incident, ok := r.incidents[id]
	if !ok {
		return models.ErrIncidentNotFound
	}
	if incident.DeliverySummary != nil {
		return models.ErrDeliverySummaryExists
	}
	incident.DeliverySummary = &summary
	return nil
}

func (r *memoryRepository) AppendLog(ctx context.Context, id uuid.UUID, entry models.ResponseLogEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	incident, ok := r.incidents[id]
	if !ok {
		return models.ErrIncidentNotFound
	}
	incident.ResponseLog = append(incident.ResponseLog, entry)
	return nil
}

func (r *memoryRepository) Resolve(ctx context.Context, id uuid.UUID, resolvedAt time.Time, entry models.ResponseLogEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	incident, ok := r.incidents[id]
	if !ok {
		return models.ErrIncidentNotFound
	}
	if incident.Status != models.StatusActive {
		return models.ErrInvalidTransition
	}
	incident.Status = models.StatusResolved
	incident.ResolvedAt = &resolvedAt
	incident.ResponseLog = append(incident.ResponseLog, entry)
	return nil
}

func (r *memoryRepository) GetIncidentFromCache(ctx context.Context, id uuid.UUID) (*models.Incident, error) {
	return nil, nil
}

func (r *memoryRepository) SetIncidentCache(ctx context.Context, incident *models.Incident) error {
	return nil
}

func (r *memoryRepository) InvalidateIncidentCache(ctx context.Context, id uuid.UUID) error {
	return nil
}

// cachingRepository добавляет к хранилищу в памяти кеш с семантикой Redis.
// afterLoad, если задан, один раз вызывается между чтением строки из хранилища и возвратом результата.
type cachingRepository struct {
	*memoryRepository

	cacheMu   sync.Mutex
	cache     map[uuid.UUID]*models.Incident
	afterLoad func()
}

func newCachingRepository() *cachingRepository {
	return &cachingRepository{
		memoryRepository: newMemoryRepository(),
		cache:            make(map[uuid.UUID]*models.Incident),
	}
}

func (r *cachingRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Incident, error) {
	incident, err := r.memoryRepository.GetByID(ctx, id)

	r.cacheMu.Lock()
	hook := r.afterLoad
	r.afterLoad = nil
	r.cacheMu.Unlock()
	if hook != nil {
		hook()
	}
	return incident, err
}

func (r *cachingRepository) GetIncidentFromCache(ctx context.Context, id uuid.UUID) (*models.Incident, error) {
	r.cacheMu.Lock()
	defer r.cacheMu.Unlock()
	if incident, ok := r.cache[id]; ok {
		return cloneIncident(incident), nil
	}
	return nil, nil
}

func (r *cachingRepository) SetIncidentCache(ctx context.Context, incident *models.Incident) error {
	r.cacheMu.Lock()
	defer r.cacheMu.Unlock()
	r.cache[incident.ID] = cloneIncident(incident)
	return nil
}

func (r *cachingRepository) InvalidateIncidentCache(ctx context.Context, id uuid.UUID) error {
	r.cacheMu.Lock()
	defer r.cacheMu.Unlock()
	delete(r.cache, id)
	return nil
}

func (r *cachingRepository) cached(id uuid.UUID) (*models.Incident, bool) {
	r.cacheMu.Lock()
	defer r.cacheMu.Unlock()
	incident, ok := r.cache[id]
	return incident, ok
}
