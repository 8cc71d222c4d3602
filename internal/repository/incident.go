package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/shenikar/sos_broadcasting_system/internal/models"
	"github.com/shenikar/sos_broadcasting_system/internal/service"
)

const incidentColumns = `
	id,
	owner_id,
	owner_name,
	incident_number,
	severity,
	status,
	triggered_at,
	resolved_at,
	location,
	note,
	audience_snapshot,
	delivery_summary,
	updated_at`

// pgxPool - часть *pgxpool.Pool, которой пользуется хранилище
type pgxPool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type IncidentRepository struct {
	db          pgxPool
	redisClient *redis.Client
	cacheTTL    time.Duration
}

func NewIncidentRepository(db *pgxpool.Pool, redisClient *redis.Client, cacheTTL time.Duration) service.IncidentRepository {
	return &IncidentRepository{
		db:          db,
		redisClient: redisClient,
		cacheTTL:    cacheTTL,
	}
}

// Create записывает инцидент и начальные записи журнала в одной транзакции. ID назначает бд.
func (r *IncidentRepository) Create(ctx context.Context, incident *models.Incident) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	query := `
		INSERT INTO incidents (owner_id, owner_name, incident_number, severity, status, triggered_at, location, note, audience_snapshot)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id, updated_at;
	`
	audience := incident.AudienceSnapshot
	if audience == nil {
		audience = []models.AudienceMember{}
	}
	err = tx.QueryRow(ctx, query,
		incident.OwnerID,
		incident.OwnerName,
		incident.IncidentNumber,
		incident.Severity,
		incident.Status,
		incident.TriggeredAt,
		incident.Location,
		incident.Note,
		audience,
	).Scan(&incident.ID, &incident.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create incident: %w", err)
	}

	for _, entry := range incident.ResponseLog {
		if err := insertLogEntry(ctx, tx, incident.ID, entry); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit incident: %w", err)
	}
	return nil
}

// GetByID возвращает инцидент по его UUID вместе с журналом
func (r *IncidentRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Incident, error) {
	query := `SELECT` + incidentColumns + ` FROM incidents WHERE id = $1;`

	incident, err := scanIncident(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("incident with id %s: %w", id, models.ErrIncidentNotFound)
		}
		return nil, fmt.Errorf("failed to get incident by id: %w", err)
	}

	logs, err := r.loadLogs(ctx, []uuid.UUID{id})
	if err != nil {
		return nil, err
	}
	incident.ResponseLog = logs[id]
	if incident.ResponseLog == nil {
		incident.ResponseLog = []models.ResponseLogEntry{}
	}
	return incident, nil
}

// ListByOwner возвращает инциденты владельца, новые первыми
func (r *IncidentRepository) ListByOwner(ctx context.Context, ownerID string, page, pageSize int) ([]*models.Incident, error) {
	// рассчитываем смещение
	offset := (page - 1) * pageSize

	query := `SELECT` + incidentColumns + `
		FROM incidents
		WHERE owner_id = $1
		ORDER BY triggered_at DESC, id
		LIMIT $2 OFFSET $3;
	`
	rows, err := r.db.Query(ctx, query, ownerID, pageSize, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list incidents: %w", err)
	}
	defer rows.Close()

	incidents := make([]*models.Incident, 0)
	ids := make([]uuid.UUID, 0)
	for rows.Next() {
		incident, err := scanIncident(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan incident row: %w", err)
		}
		incidents = append(incidents, incident)
		ids = append(ids, incident.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error list iteration: %w", err)
	}
	if len(ids) == 0 {
		return incidents, nil
	}

	logs, err := r.loadLogs(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, incident := range incidents {
		incident.ResponseLog = logs[incident.ID]
		if incident.ResponseLog == nil {
			incident.ResponseLog = []models.ResponseLogEntry{}
		}
	}
	return incidents, nil
}

// StatsByOwner считает инциденты владельца по статусам
func (r *IncidentRepository) StatsByOwner(ctx context.Context, ownerID string) (models.IncidentStats, error) {
	query := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status = 'active'),
			COUNT(*) FILTER (WHERE status = 'resolved')
		FROM incidents
		WHERE owner_id = $1;
	`
	var stats models.IncidentStats
	if err := r.db.QueryRow(ctx, query, ownerID).Scan(&stats.Total, &stats.Active, &stats.Resolved); err != nil {
		return models.IncidentStats{}, fmt.Errorf("failed to get incident stats: %w", err)
	}
	return stats, nil
}

// AttachDeliverySummary записывает итог рассылки. Повторная запись - ошибка ErrDeliverySummaryExists.
func (r *IncidentRepository) AttachDeliverySummary(ctx context.Context, id uuid.UUID, summary models.DeliverySummary) error {
	query := `
		UPDATE incidents SET
			delivery_summary = $2,
			updated_at = NOW()
		WHERE id = $1 AND delivery_summary IS NULL;
	`
	cmdTag, err := r.db.Exec(ctx, query, id, summary)
	if err != nil {
		return fmt.Errorf("failed to attach delivery summary: %w", err)
	}

	if cmdTag.RowsAffected() == 0 {
		exists, err := r.exists(ctx, r.db, id)
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("incident with id %s: %w", id, models.ErrIncidentNotFound)
		}
		return fmt.Errorf("incident with id %s: %w", id, models.ErrDeliverySummaryExists)
	}
	return nil
}

// AppendLog дописывает запись в журнал существующего инцидента
func (r *IncidentRepository) AppendLog(ctx context.Context, id uuid.UUID, entry models.ResponseLogEntry) error {
	query := `
		INSERT INTO incident_response_log (incident_id, logged_at, actor, action, details)
		SELECT id, $2, $3, $4, $5 FROM incidents WHERE id = $1;
	`
	cmdTag, err := r.db.Exec(ctx, query, id, entry.Timestamp, entry.Actor, entry.Action, entry.Details)
	if err != nil {
		return fmt.Errorf("failed to append response log: %w", err)
	}

	// Если RowsAffected() == 0, значит инцидента с таким id не существует
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("incident with id %s: %w", id, models.ErrIncidentNotFound)
	}
	return nil
}

// Resolve переводит инцидент active -> resolved и пишет запись журнала атомарно.
// При гонке выигрывает первая запись, остальные получают ErrInvalidTransition.
func (r *IncidentRepository) Resolve(ctx context.Context, id uuid.UUID, resolvedAt time.Time, entry models.ResponseLogEntry) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	query := `
		UPDATE incidents SET
			status = 'resolved',
			resolved_at = $2,
			updated_at = NOW()
		WHERE id = $1 AND status = 'active';
	`
	cmdTag, err := tx.Exec(ctx, query, id, resolvedAt)
	if err != nil {
		return fmt.Errorf("failed to resolve incident: %w", err)
	}

	if cmdTag.RowsAffected() == 0 {
		exists, err := r.exists(ctx, tx, id)
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("incident with id %s: %w", id, models.ErrIncidentNotFound)
		}
		return fmt.Errorf("incident with id %s is already resolved: %w", id, models.ErrInvalidTransition)
	}

	if err := insertLogEntry(ctx, tx, id, entry); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit resolve: %w", err)
	}
	return nil
}

// GetIncidentFromCache пытается получить инцидент из Redis
func (r *IncidentRepository) GetIncidentFromCache(ctx context.Context, id uuid.UUID) (*models.Incident, error) {
	val, err := r.redisClient.Get(ctx, incidentCacheKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get incident from cache: %w", err)
	}

	incident := &models.Incident{}
	if err := json.Unmarshal(val, incident); err != nil {
		return nil, fmt.Errorf("failed to unmarshal incident from cache: %w", err)
	}
	return incident, nil
}

// SetIncidentCache сохраняет инцидент в Redis
func (r *IncidentRepository) SetIncidentCache(ctx context.Context, incident *models.Incident) error {
	val, err := json.Marshal(incident)
	if err != nil {
		return fmt.Errorf("failed to marshal incident for cache: %w", err)
	}
	if err := r.redisClient.Set(ctx, incidentCacheKey(incident.ID), val, r.cacheTTL).Err(); err != nil {
		return fmt.Errorf("failed to set incident in cache: %w", err)
	}
	return nil
}

// InvalidateIncidentCache удаляет инцидент из Redis кэша
func (r *IncidentRepository) InvalidateIncidentCache(ctx context.Context, id uuid.UUID) error {
	if err := r.redisClient.Del(ctx, incidentCacheKey(id)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate incident cache: %w", err)
	}
	return nil
}

func incidentCacheKey(id uuid.UUID) string {
	return fmt.Sprintf("incident:%s", id.String())
}

// querier - общий интерфейс пула и транзакции
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (r *IncidentRepository) exists(ctx context.Context, q querier, id uuid.UUID) (bool, error) {
	var exists bool
	if err := q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM incidents WHERE id = $1);`, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check incident existence: %w", err)
	}
	return exists, nil
}

func (r *IncidentRepository) loadLogs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID][]models.ResponseLogEntry, error) {
	query := `
		SELECT incident_id, logged_at, actor, action, details
		FROM incident_response_log
		WHERE incident_id = ANY($1)
		ORDER BY id;
	`
	rows, err := r.db.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load response log: %w", err)
	}
	defer rows.Close()

	logs := make(map[uuid.UUID][]models.ResponseLogEntry, len(ids))
	for rows.Next() {
		var (
			incidentID uuid.UUID
			entry      models.ResponseLogEntry
		)
		if err := rows.Scan(&incidentID, &entry.Timestamp, &entry.Actor, &entry.Action, &entry.Details); err != nil {
			return nil, fmt.Errorf("failed to scan response log row: %w", err)
		}
		logs[incidentID] = append(logs[incidentID], entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error response log iteration: %w", err)
	}
	return logs, nil
}

func insertLogEntry(ctx context.Context, tx pgx.Tx, id uuid.UUID, entry models.ResponseLogEntry) error {
	query := `
		INSERT INTO incident_response_log (incident_id, logged_at, actor, action, details)
		VALUES ($1, $2, $3, $4, $5);
	`
	if _, err := tx.Exec(ctx, query, id, entry.Timestamp, entry.Actor, entry.Action, entry.Details); err != nil {
		return fmt.Errorf("failed to insert response log entry: %w", err)
	}
	return nil
}

func scanIncident(row pgx.Row) (*models.Incident, error) {
	incident := &models.Incident{}
	err := row.Scan(
		&incident.ID,
		&incident.OwnerID,
		&incident.OwnerName,
		&incident.IncidentNumber,
		&incident.Severity,
		&incident.Status,
		&incident.TriggeredAt,
		&incident.ResolvedAt,
		&incident.Location,
		&incident.Note,
		&incident.AudienceSnapshot,
		&incident.DeliverySummary,
		&incident.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return incident, nil
}
