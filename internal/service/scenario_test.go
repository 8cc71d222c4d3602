package service

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shenikar/sos_broadcasting_system/internal/audience"
	"github.com/shenikar/sos_broadcasting_system/internal/channel"
	"github.com/shenikar/sos_broadcasting_system/internal/config"
	"github.com/shenikar/sos_broadcasting_system/internal/dispatch"
	"github.com/shenikar/sos_broadcasting_system/internal/geo"
	"github.com/shenikar/sos_broadcasting_system/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Сценарии прогоняются на настоящих резолверах, диспетчере и каналах поверх хранилища в памяти

type staticContacts map[string][]models.AudienceMember

func (s staticContacts) EmergencyContacts(ctx context.Context, ownerID string) ([]models.AudienceMember, error) {
	return s[ownerID], nil
}

type staticConnections map[string][]models.AudienceMember

func (s staticConnections) Bystanders(ctx context.Context, ownerID string) ([]models.AudienceMember, error) {
	return s[ownerID], nil
}

type geocoderFunc func(ctx context.Context, lat, lng float64) (string, error)

func (f geocoderFunc) ReverseGeocode(ctx context.Context, lat, lng float64) (string, error) {
	return f(ctx, lat, lng)
}

type memoryInbox struct {
	mu   sync.Mutex
	rows []*models.Notification
}

func (m *memoryInbox) Create(ctx context.Context, n *models.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = append(m.rows, n)
	return nil
}

type scenario struct {
	service IncidentService
	repo    *memoryRepository
	inbox   *memoryInbox
}

func newScenario(t *testing.T, contacts staticContacts, connections staticConnections, geocoder geo.Geocoder, geocodeTimeout time.Duration) scenario {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{}) // Отключаем вывод логов в тестах

	repo := newMemoryRepository()
	inbox := &memoryInbox{}
	dispatcher := dispatch.NewDispatcher(logger, time.Second,
		channel.NewSMSChannel(channel.NewLogSMSSender(logger), "254"),
		channel.NewEmailChannel(channel.NewLogMailSender(logger)),
		channel.NewInAppChannel(inbox, nil, logger),
	)
	cfg := &config.Config{GeocodeTimeout: geocodeTimeout}

	svc := NewIncidentService(
		repo,
		geo.NewResolver(geocoder, logger),
		audience.NewResolver(contacts, connections, logger),
		dispatcher,
		nil,
		logger,
		cfg,
	)
	return scenario{service: svc, repo: repo, inbox: inbox}
}

func coords(lat, lng float64) models.PositionReport {
	return models.PositionReport{Coordinates: &models.Coordinates{Latitude: lat, Longitude: lng, Accuracy: 12}}
}

func TestScenario_NoRecipients(t *testing.T) {
	// Подготовка
	s := newScenario(t, staticContacts{}, staticConnections{}, nil, time.Second)
	ctx := context.Background()

	// Действие
	result, err := s.service.TriggerIncident(ctx, models.TriggerRequest{
		OwnerID:  "owner-1",
		Severity: models.SeverityImmediate,
		Position: coords(-1.28, 36.81),
	})

	// Проверки
	require.NoError(t, err)
	assert.Equal(t, models.TriggerOutcomeNoRecipients, result.Outcome)
	assert.Empty(t, result.Summary.Recipients)

	listed, err := s.service.ListIncidents(ctx, "owner-1", 1, 20)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, result.Incident.ID, listed[0].ID)
	assert.Equal(t, models.StatusActive, listed[0].Status)
	require.NotNil(t, listed[0].DeliverySummary)
	assert.Empty(t, listed[0].DeliverySummary.Recipients)
	require.Len(t, listed[0].ResponseLog, 2)
	assert.Equal(t, models.ActionAlertTriggered, listed[0].ResponseLog[0].Action)
	assert.Equal(t, "0 recipients", listed[0].ResponseLog[1].Details)
}

func TestScenario_CriticalWithOneInvalidAddress(t *testing.T) {
	// Подготовка
	contacts := staticContacts{"owner-1": {
		{Identity: "c1", DisplayName: "Mum", Addresses: []models.ChannelAddress{{Channel: models.ChannelSMS, Address: "0712 345 678"}}},
		{Identity: "c2", DisplayName: "Brother", Addresses: []models.ChannelAddress{{Channel: models.ChannelSMS, Address: "not-a-number"}}},
	}}
	connections := staticConnections{"owner-1": {
		{Identity: "u9", DisplayName: "Neighbour", Addresses: []models.ChannelAddress{{Channel: models.ChannelInApp, Address: "u9"}}},
	}}
	s := newScenario(t, contacts, connections, nil, time.Second)
	ctx := context.Background()

	// Действие
	result, err := s.service.TriggerIncident(ctx, models.TriggerRequest{
		OwnerID:   "owner-1",
		OwnerName: "Amina",
		Severity:  models.SeverityCritical,
		Position:  coords(-1.28, 36.81),
	})

	// Проверки
	require.NoError(t, err)
	assert.Equal(t, models.TriggerOutcomeDispatched, result.Outcome)
	require.Len(t, result.Summary.Recipients, 3)
	assert.Equal(t, 1, result.Summary.Failed())
	assert.False(t, result.Summary.Recipients[1].Delivered())
	assert.Equal(t, "invalid phone number", result.Summary.Recipients[1].Outcomes[0].Reason)

	stored, err := s.service.GetIncident(ctx, "owner-1", result.Incident.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusActive, stored.Status)
	assert.Equal(t, "3 recipients, 2 delivered, 1 failed", stored.ResponseLog[1].Details)

	require.Len(t, s.inbox.rows, 1)
	assert.Equal(t, "u9", s.inbox.rows[0].UserID)
	assert.Contains(t, s.inbox.rows[0].Body, "Level 3 - CRITICAL")
}

func TestScenario_GeolocationDenied(t *testing.T) {
	s := newScenario(t, staticContacts{}, staticConnections{}, nil, time.Second)

	result, err := s.service.TriggerIncident(context.Background(), models.TriggerRequest{
		OwnerID:  "owner-1",
		Severity: models.SeverityConcern,
		Position: models.PositionReport{ErrorCode: models.PositionPermissionDenied},
	})

	require.NoError(t, err)
	stored, err := s.repo.GetByID(context.Background(), result.Incident.ID)
	require.NoError(t, err)
	assert.Equal(t, models.LocationUnavailable, stored.Location.Status)
	assert.Equal(t, models.PositionPermissionDenied, stored.Location.Reason)
	assert.Nil(t, stored.Location.Address)
}

func TestScenario_GeocodeTimeoutKeepsCoordinates(t *testing.T) {
	// Подготовка: геокодер висит дольше бюджета
	release := make(chan struct{})
	defer close(release)
	slow := geocoderFunc(func(ctx context.Context, lat, lng float64) (string, error) {
		select {
		case <-release:
		case <-ctx.Done():
		}
		return "", ctx.Err()
	})
	timeout := 100 * time.Millisecond
	s := newScenario(t, staticContacts{}, staticConnections{}, slow, timeout)

	// Действие
	start := time.Now()
	result, err := s.service.TriggerIncident(context.Background(), models.TriggerRequest{
		OwnerID:  "owner-1",
		Severity: models.SeverityImmediate,
		Position: coords(-1.2864, 36.8172),
	})
	elapsed := time.Since(start)

	// Проверки
	require.NoError(t, err)
	assert.Less(t, elapsed, timeout+300*time.Millisecond)
	location := result.Incident.Location
	assert.Equal(t, models.LocationAvailable, location.Status)
	assert.Nil(t, location.Address)
	assert.Equal(t, models.GeocodeTimedOut, location.GeocodeStatus)
	assert.InDelta(t, -1.2864, location.Latitude, 1e-9)
	assert.InDelta(t, 36.8172, location.Longitude, 1e-9)
}

func TestScenario_SeverityIsPreserved(t *testing.T) {
	s := newScenario(t, staticContacts{}, staticConnections{}, nil, time.Second)
	ctx := context.Background()

	for _, severity := range []models.Severity{models.SeverityConcern, models.SeverityImmediate, models.SeverityCritical} {
		result, err := s.service.TriggerIncident(ctx, models.TriggerRequest{OwnerID: "owner-1", Severity: severity})
		require.NoError(t, err)

		stored, err := s.service.GetIncident(ctx, "owner-1", result.Incident.ID)
		require.NoError(t, err)
		assert.Equal(t, severity, stored.Severity)

		_, err = s.service.ResolveIncident(ctx, "owner-1", result.Incident.ID)
		require.NoError(t, err)
		stored, err = s.service.GetIncident(ctx, "owner-1", result.Incident.ID)
		require.NoError(t, err)
		assert.Equal(t, severity, stored.Severity)
	}

	stats, err := s.service.GetStats(ctx, "owner-1")
	require.NoError(t, err)
	assert.Equal(t, models.IncidentStats{Total: 3, Active: 0, Resolved: 3}, stats)
}

func TestScenario_ResolveTwice(t *testing.T) {
	// Подготовка
	s := newScenario(t, staticContacts{}, staticConnections{}, nil, time.Second)
	ctx := context.Background()
	result, err := s.service.TriggerIncident(ctx, models.TriggerRequest{OwnerID: "owner-1", Severity: models.SeverityCritical})
	require.NoError(t, err)
	id := result.Incident.ID

	// Действие
	_, err = s.service.ResolveIncident(ctx, "owner-1", id)
	require.NoError(t, err)
	afterFirst, err := s.repo.GetByID(ctx, id)
	require.NoError(t, err)

	_, err = s.service.ResolveIncident(ctx, "owner-1", id)

	// Проверки: второй вызов отклонен, состояние не изменилось
	require.ErrorIs(t, err, models.ErrInvalidTransition)
	afterSecond, err := s.repo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, afterFirst.Status, afterSecond.Status)
	assert.Equal(t, afterFirst.ResolvedAt, afterSecond.ResolvedAt)
	assert.Equal(t, afterFirst.ResponseLog, afterSecond.ResponseLog)

	// Успешный resolve добавил ровно одну запись: триггер, рассылка, resolve
	require.Len(t, afterFirst.ResponseLog, 3)
	assert.Equal(t, models.ActionMarkedSafe, afterFirst.ResponseLog[2].Action)
	assert.Equal(t, models.ActorUser, afterFirst.ResponseLog[2].Actor)
}

func TestScenario_ConcurrentResolveFirstWriteWins(t *testing.T) {
	// Подготовка
	s := newScenario(t, staticContacts{}, staticConnections{}, nil, time.Second)
	ctx := context.Background()
	result, err := s.service.TriggerIncident(ctx, models.TriggerRequest{OwnerID: "owner-1", Severity: models.SeverityImmediate})
	require.NoError(t, err)

	// Действие
	const attempts = 8
	var (
		wg    sync.WaitGroup
		start = make(chan struct{})
		errs  = make([]error, attempts)
	)
	for i := range attempts {
		wg.Go(func() {
			<-start
			_, errs[i] = s.service.ResolveIncident(ctx, "owner-1", result.Incident.ID)
		})
	}
	close(start)
	wg.Wait()

	// Проверки
	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.True(t, errors.Is(err, models.ErrInvalidTransition), err)
	}
	assert.Equal(t, 1, succeeded)

	stored, err := s.repo.GetByID(ctx, result.Incident.ID)
	require.NoError(t, err)
	markedSafe := 0
	for _, entry := range stored.ResponseLog {
		if entry.Action == models.ActionMarkedSafe {
			markedSafe++
		}
	}
	assert.Equal(t, 1, markedSafe)
}

func TestScenario_OwnerNeverNotified(t *testing.T) {
	contacts := staticContacts{"owner-1": {
		{Identity: "owner-1", Addresses: []models.ChannelAddress{{Channel: models.ChannelSMS, Address: "+254712345678"}}},
	}}
	connections := staticConnections{"owner-1": {
		{Identity: "owner-1", Addresses: []models.ChannelAddress{{Channel: models.ChannelInApp, Address: "owner-1"}}},
		{Identity: "u2", Addresses: []models.ChannelAddress{{Channel: models.ChannelInApp, Address: "u2"}}},
	}}
	s := newScenario(t, contacts, connections, nil, time.Second)

	result, err := s.service.TriggerIncident(context.Background(), models.TriggerRequest{OwnerID: "owner-1", Severity: models.SeverityConcern})

	require.NoError(t, err)
	require.Len(t, result.Incident.AudienceSnapshot, 1)
	assert.Equal(t, "u2", result.Incident.AudienceSnapshot[0].Identity)
	require.Len(t, s.inbox.rows, 1)
	assert.Equal(t, "u2", s.inbox.rows[0].UserID)
}

func TestScenario_ResolveDuringReadLeavesNoStaleCache(t *testing.T) {
	// Подготовка
	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{}) // Отключаем вывод логов в тестах

	repo := newCachingRepository()
	svc := NewIncidentService(repo, nil, nil, nil, nil, logger, &config.Config{})
	ctx := context.Background()

	incident := &models.Incident{OwnerID: "owner-1", Severity: models.SeverityImmediate, Status: models.StatusActive}
	require.NoError(t, repo.Create(ctx, incident))

	// Владелец отмечает себя в безопасности, пока чтение уже получило активную строку
	var resolveErr error
	repo.afterLoad = func() {
		_, resolveErr = svc.ResolveIncident(ctx, "owner-1", incident.ID)
	}

	// Действие
	first, err := svc.GetIncident(ctx, "owner-1", incident.ID)
	require.NoError(t, err)
	require.NoError(t, resolveErr)
	second, err := svc.GetIncident(ctx, "owner-1", incident.ID)
	require.NoError(t, err)

	// Проверки
	assert.Equal(t, models.StatusActive, first.Status)
	assert.Equal(t, models.StatusResolved, second.Status)
	require.NotNil(t, second.ResolvedAt)

	cached, ok := repo.cached(incident.ID)
	require.True(t, ok)
	assert.Equal(t, models.StatusResolved, cached.Status)

	third, err := svc.GetIncident(ctx, "owner-1", incident.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusResolved, third.Status)
}
