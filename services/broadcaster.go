package services

import "github.com/golf-arbitri/referee-system/models"

// EventBroadcaster рассылает доменные события на подключённые дашборды.
// Реализуется events.Hub; в тестах подменяется заглушкой.
type EventBroadcaster interface {
	BroadcastToRoom(room string, eventType string, payload interface{})
	BroadcastTournamentEvent(t *models.Tournament, eventType string, payload interface{})
}
