package models

import "time"

// ChannelOutcome - результат одной отправки (получатель, канал)
type ChannelOutcome struct {
	Channel     ChannelKind `json:"channel"`
	Address     string      `json:"address"`
	Success     bool        `json:"success"`
	Reason      string      `json:"reason,omitempty"`
	AttemptedAt time.Time   `json:"attempted_at"`
}

// RecipientDelivery - итог доставки одному получателю по всем его каналам
type RecipientDelivery struct {
	Kind        AudienceKind     `json:"kind"`
	Identity    string           `json:"identity"`
	DisplayName string           `json:"display_name"`
	Outcomes    []ChannelOutcome `json:"outcomes"`
}

// Delivered - хотя бы один канал доставил сообщение
func (r RecipientDelivery) Delivered() bool {
	for _, o := range r.Outcomes {
		if o.Success {
			return true
		}
	}
	return false
}

// ChannelStats - счетчики по каналу
type ChannelStats struct {
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// DeliverySummary - агрегированный результат fan-out, записывается в инцидент один раз
type DeliverySummary struct {
	Recipients  []RecipientDelivery          `json:"recipients"`
	Channels    map[ChannelKind]ChannelStats `json:"channels"`
	CompletedAt time.Time                    `json:"completed_at"`
}

func (s DeliverySummary) Delivered() int {
	n := 0
	for _, r := range s.Recipients {
		if r.Delivered() {
			n++
		}
	}
	return n
}

func (s DeliverySummary) Failed() int {
	return len(s.Recipients) - s.Delivered()
}
