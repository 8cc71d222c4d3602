package v1

import "github.com/shenikar/sos_broadcasting_system/internal/models"

// DTOToTriggerRequest собирает входные данные тревоги. Владелец берется из токена идентификации, а не из тела.
func DTOToTriggerRequest(dto TriggerIncidentRequest, ownerID, ownerName string) models.TriggerRequest {
	return models.TriggerRequest{
		OwnerID:   ownerID,
		OwnerName: ownerName,
		Severity:  models.Severity(dto.Severity),
		Note:      dto.Note,
		Position:  DTOToPositionReport(dto.Position),
	}
}

// DTOToPositionReport: код ошибки важнее координат, неполные координаты считаются отсутствующими
func DTOToPositionReport(dto *PositionRequest) models.PositionReport {
	if dto == nil {
		return models.PositionReport{}
	}
	if dto.Error != "" {
		return models.PositionReport{ErrorCode: models.PositionErrorCode(dto.Error)}
	}
	if dto.Latitude == nil || dto.Longitude == nil {
		return models.PositionReport{}
	}
	return models.PositionReport{
		Coordinates: &models.Coordinates{
			Latitude:  *dto.Latitude,
			Longitude: *dto.Longitude,
			Accuracy:  dto.Accuracy,
		},
	}
}

func ModelToLocationResponse(l models.Location) LocationResponse {
	resp := LocationResponse{
		Status:        string(l.Status),
		Address:       l.Address,
		Description:   l.Describe(),
		GeocodeStatus: string(l.GeocodeStatus),
		Reason:        string(l.Reason),
	}
	if l.Available() {
		lat, lng, acc := l.Latitude, l.Longitude, l.Accuracy
		resp.Latitude = &lat
		resp.Longitude = &lng
		resp.Accuracy = &acc
	}
	return resp
}

func ModelToDeliverySummaryResponse(s models.DeliverySummary) DeliverySummaryResponse {
	resp := DeliverySummaryResponse{
		Recipients:  make([]RecipientDeliveryResponse, len(s.Recipients)),
		Channels:    make(map[string]ChannelStatsDTO, len(s.Channels)),
		Delivered:   s.Delivered(),
		Failed:      s.Failed(),
		CompletedAt: s.CompletedAt,
	}
	for i, r := range s.Recipients {
		outcomes := make([]ChannelOutcomeResponse, len(r.Outcomes))
		for j, o := range r.Outcomes {
			outcomes[j] = ChannelOutcomeResponse{
				Channel:     string(o.Channel),
				Address:     o.Address,
				Success:     o.Success,
				Reason:      o.Reason,
				AttemptedAt: o.AttemptedAt,
			}
		}
		resp.Recipients[i] = RecipientDeliveryResponse{
			Kind:        r.Kind.String(),
			Identity:    r.Identity,
			DisplayName: r.DisplayName,
			Delivered:   r.Delivered(),
			Outcomes:    outcomes,
		}
	}
	for channel, stats := range s.Channels {
		resp.Channels[string(channel)] = ChannelStatsDTO{Succeeded: stats.Succeeded, Failed: stats.Failed}
	}
	return resp
}

// ModelToIncidentResponse преобразует доменную модель в DTO для ответа
func ModelToIncidentResponse(model *models.Incident) *IncidentResponse {
	contacts, bystanders := models.CountByKind(model.AudienceSnapshot)

	audience := make([]RecipientResponse, len(model.AudienceSnapshot))
	for i, m := range model.AudienceSnapshot {
		audience[i] = RecipientResponse{
			Kind:        m.Kind.String(),
			Identity:    m.Identity,
			DisplayName: m.DisplayName,
		}
	}

	log := make([]ResponseLogEntryResponse, len(model.ResponseLog))
	for i, e := range model.ResponseLog {
		log[i] = ResponseLogEntryResponse{
			Timestamp: e.Timestamp,
			Actor:     e.Actor,
			Action:    e.Action,
			Details:   e.Details,
		}
	}

	resp := &IncidentResponse{
		ID:                 model.ID,
		IncidentNumber:     model.IncidentNumber,
		OwnerID:            model.OwnerID,
		OwnerName:          model.OwnerName,
		Severity:           int(model.Severity),
		SeverityBadge:      model.Severity.Badge(),
		SeverityTitle:      model.Severity.Title(),
		SeverityDesc:       model.Severity.Description(),
		SeverityExamples:   model.Severity.Examples(),
		Status:             string(model.Status),
		TriggeredAt:        model.TriggeredAt,
		ResolvedAt:         model.ResolvedAt,
		Location:           ModelToLocationResponse(model.Location),
		Note:               model.Note,
		ContactsNotified:   contacts,
		BystandersNotified: bystanders,
		Audience:           audience,
		ResponseLog:        log,
		UpdatedAt:          model.UpdatedAt,
	}
	if model.DeliverySummary != nil {
		summary := ModelToDeliverySummaryResponse(*model.DeliverySummary)
		resp.DeliverySummary = &summary
	}
	return resp
}

// ModelsToIncidentResponses преобразует слайс моделей в слайс DTO
func ModelsToIncidentResponses(models []*models.Incident) []*IncidentResponse {
	responses := make([]*IncidentResponse, len(models))
	for i, model := range models {
		responses[i] = ModelToIncidentResponse(model)
	}
	return responses
}

func ModelToNotificationResponse(n *models.Notification) NotificationResponse {
	return NotificationResponse{
		ID:         n.ID,
		Type:       n.Type,
		Title:      n.Title,
		Body:       n.Body,
		IncidentID: n.IncidentID,
		Read:       n.Read,
		CreatedAt:  n.CreatedAt,
	}
}

func ModelsToNotificationResponses(notifications []*models.Notification) []NotificationResponse {
	responses := make([]NotificationResponse, len(notifications))
	for i, n := range notifications {
		responses[i] = ModelToNotificationResponse(n)
	}
	return responses
}
