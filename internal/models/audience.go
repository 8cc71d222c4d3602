package models

import (
	"fmt"
)

// AudienceKind - закрытый набор видов получателей тревоги
type AudienceKind int

const (
	AudienceEmergencyContact AudienceKind = iota + 1
	AudienceBystander
)

func (k AudienceKind) String() string {
	switch k {
	case AudienceEmergencyContact:
		return "emergency_contact"
	case AudienceBystander:
		return "bystander"
	}
	return fmt.Sprintf("AudienceKind(%d)", int(k))
}

func (k AudienceKind) MarshalText() ([]byte, error) {
	switch k {
	case AudienceEmergencyContact, AudienceBystander:
		return []byte(k.String()), nil
	}
	return nil, fmt.Errorf("unknown audience kind %d", int(k))
}

func (k *AudienceKind) UnmarshalText(text []byte) error {
	switch string(text) {
	case "emergency_contact":
		*k = AudienceEmergencyContact
	case "bystander":
		*k = AudienceBystander
	default:
		return fmt.Errorf("unknown audience kind %q", string(text))
	}
	return nil
}

// ChannelKind - канал доставки уведомления
type ChannelKind string

const (
	ChannelInApp ChannelKind = "in_app"
	ChannelSMS   ChannelKind = "sms"
	ChannelEmail ChannelKind = "email"
)

// ChannelAddress - адрес получателя в конкретном канале (телефон, email или user id)
type ChannelAddress struct {
	Channel ChannelKind `json:"channel"`
	Address string      `json:"address"`
}

// AudienceMember - получатель тревоги: экстренный контакт или доверенный bystander
type AudienceMember struct {
	Kind        AudienceKind     `json:"kind"`
	Identity    string           `json:"identity"`
	DisplayName string           `json:"display_name"`
	Addresses   []ChannelAddress `json:"addresses"`
}

// Key уникален в пределах одного инцидента
func (m AudienceMember) Key() string {
	return m.Kind.String() + ":" + m.Identity
}

// CountByKind возвращает число контактов и bystander-ов
func CountByKind(members []AudienceMember) (contacts, bystanders int) {
	for _, m := range members {
		switch m.Kind {
		case AudienceEmergencyContact:
			contacts++
		case AudienceBystander:
			bystanders++
		}
	}
	return contacts, bystanders
}
