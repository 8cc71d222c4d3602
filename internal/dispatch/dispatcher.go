package dispatch

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/shenikar/sos_broadcasting_system/internal/models"
	"github.com/sirupsen/logrus"
)

const (
	ReasonNoAddresses       = "no channel addresses"
	ReasonChannelNotEnabled = "channel not configured"
)

// Channel - единый контракт отправки для всех каналов доставки
type Channel interface {
	Kind() models.ChannelKind
	Send(ctx context.Context, address string, msg Message) error
}

// Dispatcher рассылает тревогу параллельно: одна горутина на пару (получатель, канал).
// Ошибка одного канала не влияет на остальные и записывается в итог, а не возвращается.
type Dispatcher struct {
	channels map[models.ChannelKind]Channel
	timeout  time.Duration
	logger   *logrus.Logger
	now      func() time.Time
}

func NewDispatcher(logger *logrus.Logger, timeout time.Duration, channels ...Channel) *Dispatcher {
	byKind := make(map[models.ChannelKind]Channel, len(channels))
	for _, ch := range channels {
		byKind[ch.Kind()] = ch
	}
	return &Dispatcher{
		channels: byKind,
		timeout:  timeout,
		logger:   logger,
		now:      time.Now,
	}
}

// Dispatch возвращает управление только после завершения всех отправок.
// В итоге ровно одна запись на каждого получателя из audience.
func (d *Dispatcher) Dispatch(ctx context.Context, incident *models.Incident, audience []models.AudienceMember) models.DeliverySummary {
	log := d.logger.WithFields(logrus.Fields{
		"service":     "dispatch",
		"method":      "Dispatch",
		"incident_id": incident.ID,
		"recipients":  len(audience),
	})
	log.Info("Starting notification fan-out")

	msg := NewMessage(incident)
	results := newCollector(audience)

	var wg sync.WaitGroup
	for i, member := range audience {
		targets := uniqueChannels(member.Addresses)
		if len(targets) == 0 {
			results.add(i, models.ChannelOutcome{
				Success:     false,
				Reason:      ReasonNoAddresses,
				AttemptedAt: d.now(),
			})
			continue
		}
		for _, target := range targets {
			wg.Go(func() {
				results.add(i, d.send(ctx, member, target, msg))
			})
		}
	}
	wg.Wait()

	summary := results.summary(d.now())
	log.WithFields(logrus.Fields{
		"delivered": summary.Delivered(),
		"failed":    summary.Failed(),
	}).Info("Notification fan-out completed")
	return summary
}

// send выполняет одну отправку со своим таймаутом. Адаптер, игнорирующий ctx, не задерживает рассылку.
func (d *Dispatcher) send(ctx context.Context, member models.AudienceMember, target models.ChannelAddress, msg Message) models.ChannelOutcome {
	outcome := models.ChannelOutcome{
		Channel:     target.Channel,
		Address:     target.Address,
		AttemptedAt: d.now(),
	}
	log := d.logger.WithFields(logrus.Fields{
		"service":  "dispatch",
		"method":   "send",
		"identity": member.Identity,
		"kind":     member.Kind.String(),
		"channel":  target.Channel,
	})

	ch, ok := d.channels[target.Channel]
	if !ok {
		outcome.Reason = ReasonChannelNotEnabled
		log.Warn("No adapter for channel, delivery skipped")
		return outcome
	}

	sendCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("channel adapter panicked: %v", r)
			}
		}()
		done <- ch.Send(sendCtx, target.Address, msg)
	}()

	var err error
	select {
	case err = <-done:
	case <-sendCtx.Done():
		err = sendCtx.Err()
	}

	switch {
	case err == nil:
		outcome.Success = true
	case errors.Is(err, context.DeadlineExceeded):
		outcome.Reason = fmt.Sprintf("timed out after %s", d.timeout)
	default:
		outcome.Reason = err.Error()
	}

	if !outcome.Success {
		log.WithField("reason", outcome.Reason).Warn("Channel delivery failed")
	}
	return outcome
}

// uniqueChannels оставляет первый адрес каждого канала: не больше одной записи на пару (получатель, канал)
func uniqueChannels(addresses []models.ChannelAddress) []models.ChannelAddress {
	seen := make(map[models.ChannelKind]struct{}, len(addresses))
	out := make([]models.ChannelAddress, 0, len(addresses))
	for _, a := range addresses {
		if a.Address == "" {
			continue
		}
		if _, dup := seen[a.Channel]; dup {
			continue
		}
		seen[a.Channel] = struct{}{}
		out = append(out, a)
	}
	return out
}

// collector собирает результаты горутин под мьютексом
type collector struct {
	mu         sync.Mutex
	recipients []models.RecipientDelivery
}

func newCollector(audience []models.AudienceMember) *collector {
	recipients := make([]models.RecipientDelivery, len(audience))
	for i, m := range audience {
		recipients[i] = models.RecipientDelivery{
			Kind:        m.Kind,
			Identity:    m.Identity,
			DisplayName: m.DisplayName,
			Outcomes:    make([]models.ChannelOutcome, 0, len(m.Addresses)),
		}
	}
	return &collector{recipients: recipients}
}

func (c *collector) add(i int, outcome models.ChannelOutcome) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.recipients[i].Outcomes = append(c.recipients[i].Outcomes, outcome)
}

func (c *collector) summary(completedAt time.Time) models.DeliverySummary {
	c.mu.Lock()
	defer c.mu.Unlock()

	channels := make(map[models.ChannelKind]models.ChannelStats)
	for _, r := range c.recipients {
		slices.SortStableFunc(r.Outcomes, func(a, b models.ChannelOutcome) int {
			return strings.Compare(string(a.Channel), string(b.Channel))
		})
		for _, o := range r.Outcomes {
			if o.Channel == "" {
				continue
			}
			stats := channels[o.Channel]
			if o.Success {
				stats.Succeeded++
			} else {
				stats.Failed++
			}
			channels[o.Channel] = stats
		}
	}
	return models.DeliverySummary{
		Recipients:  c.recipients,
		Channels:    channels,
		CompletedAt: completedAt,
	}
}
