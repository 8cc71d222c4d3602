package dispatch

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shenikar/sos_broadcasting_system/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeChannel - канал, поведение которого задается функцией
type fakeChannel struct {
	kind  models.ChannelKind
	send  func(ctx context.Context, address string, msg Message) error
	calls atomic.Int32
}

func (f *fakeChannel) Kind() models.ChannelKind { return f.kind }

func (f *fakeChannel) Send(ctx context.Context, address string, msg Message) error {
	f.calls.Add(1)
	if f.send == nil {
		return nil
	}
	return f.send(ctx, address, msg)
}

func newTestDispatcher(timeout time.Duration, channels ...Channel) *Dispatcher {
	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{}) // Отключаем вывод логов в тестах
	return NewDispatcher(logger, timeout, channels...)
}

func testIncident() *models.Incident {
	address := "Moi Avenue, Nairobi, Kenya"
	return &models.Incident{
		ID:             uuid.New(),
		OwnerID:        "owner",
		OwnerName:      "Amina",
		IncidentNumber: "INC-2026-042",
		Severity:       models.SeverityCritical,
		Status:         models.StatusActive,
		TriggeredAt:    time.Date(2026, 10, 14, 9, 30, 0, 0, time.UTC),
		Location: models.Location{
			Status:        models.LocationAvailable,
			Latitude:      -1.2864,
			Longitude:     36.8172,
			Address:       &address,
			GeocodeStatus: models.GeocodeOK,
		},
		Note: "Near the bus stop",
	}
}

func member(kind models.AudienceKind, id string, addrs ...models.ChannelAddress) models.AudienceMember {
	return models.AudienceMember{Kind: kind, Identity: id, DisplayName: id, Addresses: addrs}
}

func sms(v string) models.ChannelAddress { return models.ChannelAddress{Channel: models.ChannelSMS, Address: v} }
func inApp(v string) models.ChannelAddress { return models.ChannelAddress{Channel: models.ChannelInApp, Address: v} }
func email(v string) models.ChannelAddress { return models.ChannelAddress{Channel: models.ChannelEmail, Address: v} }

func TestDispatch_OneEntryPerRecipient(t *testing.T) {
	// Подготовка
	smsChannel := &fakeChannel{kind: models.ChannelSMS}
	inAppChannel := &fakeChannel{kind: models.ChannelInApp}
	d := newTestDispatcher(time.Second, smsChannel, inAppChannel)
	audience := []models.AudienceMember{
		member(models.AudienceEmergencyContact, "c1", sms("+254700000001")),
		member(models.AudienceEmergencyContact, "c2", sms("+254700000002"), email("c2@example.com")),
		member(models.AudienceBystander, "u1", inApp("u1")),
	}

	// Действие
	summary := d.Dispatch(context.Background(), testIncident(), audience)

	// Проверки
	require.Len(t, summary.Recipients, 3)
	for i, r := range summary.Recipients {
		assert.Equal(t, audience[i].Identity, r.Identity)
		assert.Equal(t, audience[i].Kind, r.Kind)
	}
	assert.Equal(t, 3, summary.Delivered())
	assert.Equal(t, 0, summary.Failed())
	assert.Equal(t, models.ChannelStats{Succeeded: 2}, summary.Channels[models.ChannelSMS])
	assert.Equal(t, models.ChannelStats{Succeeded: 1}, summary.Channels[models.ChannelInApp])
	// У email-канала нет адаптера, это записанный отказ, а не ошибка
	assert.Equal(t, models.ChannelStats{Failed: 1}, summary.Channels[models.ChannelEmail])
	assert.False(t, summary.CompletedAt.IsZero())
}

func TestDispatch_EmptyAudience(t *testing.T) {
	d := newTestDispatcher(time.Second, &fakeChannel{kind: models.ChannelSMS})

	summary := d.Dispatch(context.Background(), testIncident(), nil)

	assert.Empty(t, summary.Recipients)
	assert.Equal(t, 0, summary.Delivered())
	assert.Empty(t, summary.Channels)
}

func TestDispatch_FailureIsIsolated(t *testing.T) {
	// Подготовка
	smsChannel := &fakeChannel{
		kind: models.ChannelSMS,
		send: func(ctx context.Context, address string, msg Message) error {
			if address == "bad" {
				return errors.New("invalid phone number")
			}
			return nil
		},
	}
	inAppChannel := &fakeChannel{kind: models.ChannelInApp}
	d := newTestDispatcher(time.Second, smsChannel, inAppChannel)
	audience := []models.AudienceMember{
		member(models.AudienceEmergencyContact, "c1", sms("+254700000001")),
		member(models.AudienceEmergencyContact, "c2", sms("bad")),
		member(models.AudienceBystander, "u1", inApp("u1")),
	}

	// Действие
	summary := d.Dispatch(context.Background(), testIncident(), audience)

	// Проверки
	require.Len(t, summary.Recipients, 3)
	assert.True(t, summary.Recipients[0].Delivered())
	assert.False(t, summary.Recipients[1].Delivered())
	require.Len(t, summary.Recipients[1].Outcomes, 1)
	assert.Equal(t, "invalid phone number", summary.Recipients[1].Outcomes[0].Reason)
	assert.True(t, summary.Recipients[2].Delivered())
	assert.Equal(t, 1, summary.Failed())
}

func TestDispatch_SlowChannelTimesOut(t *testing.T) {
	// Подготовка: адаптер игнорирует ctx и висит, пока тест его не отпустит
	release := make(chan struct{})
	defer close(release)
	slow := &fakeChannel{
		kind: models.ChannelEmail,
		send: func(ctx context.Context, address string, msg Message) error {
			<-release
			return nil
		},
	}
	fast := &fakeChannel{kind: models.ChannelSMS}
	timeout := 50 * time.Millisecond
	d := newTestDispatcher(timeout, slow, fast)
	audience := []models.AudienceMember{
		member(models.AudienceEmergencyContact, "c1", email("c1@example.com"), sms("+254700000001")),
	}

	// Действие
	start := time.Now()
	summary := d.Dispatch(context.Background(), testIncident(), audience)
	elapsed := time.Since(start)

	// Проверки
	assert.Less(t, elapsed, timeout+500*time.Millisecond)
	require.Len(t, summary.Recipients, 1)
	require.Len(t, summary.Recipients[0].Outcomes, 2)
	// Исходы отсортированы по каналу: email, sms
	assert.False(t, summary.Recipients[0].Outcomes[0].Success)
	assert.Contains(t, summary.Recipients[0].Outcomes[0].Reason, "timed out")
	assert.True(t, summary.Recipients[0].Outcomes[1].Success)
	assert.True(t, summary.Recipients[0].Delivered())
}

func TestDispatch_SendsConcurrently(t *testing.T) {
	// Подготовка: каждая отправка ждет, пока стартуют все остальные
	const recipients = 5
	var started sync.WaitGroup
	started.Add(recipients)
	barrier := &fakeChannel{
		kind: models.ChannelInApp,
		send: func(ctx context.Context, address string, msg Message) error {
			started.Done()
			started.Wait()
			return nil
		},
	}
	d := newTestDispatcher(2*time.Second, barrier)
	audience := make([]models.AudienceMember, 0, recipients)
	for _, id := range []string{"u1", "u2", "u3", "u4", "u5"} {
		audience = append(audience, member(models.AudienceBystander, id, inApp(id)))
	}

	// Действие
	summary := d.Dispatch(context.Background(), testIncident(), audience)

	// Проверки: при последовательной отправке все попытки упали бы по таймауту
	assert.Equal(t, recipients, summary.Delivered())
	assert.Equal(t, int32(recipients), barrier.calls.Load())
}

func TestDispatch_MemberWithoutAddresses(t *testing.T) {
	d := newTestDispatcher(time.Second, &fakeChannel{kind: models.ChannelSMS})
	audience := []models.AudienceMember{
		member(models.AudienceEmergencyContact, "c1"),
	}

	summary := d.Dispatch(context.Background(), testIncident(), audience)

	require.Len(t, summary.Recipients, 1)
	require.Len(t, summary.Recipients[0].Outcomes, 1)
	assert.False(t, summary.Recipients[0].Outcomes[0].Success)
	assert.Equal(t, ReasonNoAddresses, summary.Recipients[0].Outcomes[0].Reason)
}

func TestDispatch_OneSendPerChannel(t *testing.T) {
	smsChannel := &fakeChannel{kind: models.ChannelSMS}
	d := newTestDispatcher(time.Second, smsChannel)
	audience := []models.AudienceMember{
		member(models.AudienceEmergencyContact, "c1", sms("+254700000001"), sms("+254700000009")),
	}

	summary := d.Dispatch(context.Background(), testIncident(), audience)

	assert.Equal(t, int32(1), smsChannel.calls.Load())
	require.Len(t, summary.Recipients[0].Outcomes, 1)
	assert.Equal(t, "+254700000001", summary.Recipients[0].Outcomes[0].Address)
}

func TestDispatch_PanickingAdapterIsRecorded(t *testing.T) {
	broken := &fakeChannel{
		kind: models.ChannelSMS,
		send: func(ctx context.Context, address string, msg Message) error {
			panic("boom")
		},
	}
	d := newTestDispatcher(time.Second, broken, &fakeChannel{kind: models.ChannelInApp})
	audience := []models.AudienceMember{
		member(models.AudienceEmergencyContact, "c1", sms("+254700000001")),
		member(models.AudienceBystander, "u1", inApp("u1")),
	}

	summary := d.Dispatch(context.Background(), testIncident(), audience)

	assert.False(t, summary.Recipients[0].Delivered())
	assert.Contains(t, summary.Recipients[0].Outcomes[0].Reason, "panicked")
	assert.True(t, summary.Recipients[1].Delivered())
}

func TestDispatch_MessageReachesChannel(t *testing.T) {
	var got Message
	var mu sync.Mutex
	capture := &fakeChannel{
		kind: models.ChannelSMS,
		send: func(ctx context.Context, address string, msg Message) error {
			mu.Lock()
			defer mu.Unlock()
			got = msg
			return nil
		},
	}
	d := newTestDispatcher(time.Second, capture)
	incident := testIncident()

	d.Dispatch(context.Background(), incident, []models.AudienceMember{
		member(models.AudienceEmergencyContact, "c1", sms("+254700000001")),
	})

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, incident.ID, got.IncidentID)
	assert.Equal(t, models.SeverityCritical, got.Severity)
	assert.Contains(t, got.Body, "Level 3 - CRITICAL")
}
