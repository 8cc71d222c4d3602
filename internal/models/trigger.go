package models

// TriggerRequest - входные данные тревоги. Владелец приходит от внешнего сервиса идентификации.
type TriggerRequest struct {
	OwnerID   string
	OwnerName string
	Severity  Severity
	Note      string
	Position  PositionReport
}

// TriggerOutcome - итоговое состояние сценария тревоги для пользователя
type TriggerOutcome string

const (
	// TriggerOutcomeDispatched - тревога записана, рассылка выполнена (возможно с частичными ошибками)
	TriggerOutcomeDispatched TriggerOutcome = "dispatched"
	// TriggerOutcomeNoRecipients - тревога записана, но получателей нет
	TriggerOutcomeNoRecipients TriggerOutcome = "no_recipients"
)

// TriggerResult - результат успешной записи тревоги
type TriggerResult struct {
	Incident *Incident       `json:"incident"`
	Summary  DeliverySummary `json:"summary"`
	Outcome  TriggerOutcome  `json:"outcome"`
}
