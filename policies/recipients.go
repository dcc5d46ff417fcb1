package policies

import "github.com/golf-arbitri/referee-system/models"

// MailboxDirectory maps tournament scope to administrative mailboxes.
// Зональные адреса настраиваются по зонам, с fallback-адресом для зон без
// собственного ящика; национальные турниры идут в ящик CRC.
type MailboxDirectory struct {
	ZoneMailboxes   map[int]string
	FallbackMailbox string
	NationalMailbox string
}

// Recipients — результат маршрутизации уведомления по одному турниру.
// Для одного турнира заполняется ровно один из адресов.
type Recipients struct {
	ZoneMailbox     string `json:"zone_mailbox,omitempty"`
	NationalMailbox string `json:"national_mailbox,omitempty"`
}

// ZoneMailbox returns the administrative mailbox for a zone.
func (d MailboxDirectory) ZoneMailbox(zoneID int) string {
	if addr, ok := d.ZoneMailboxes[zoneID]; ok && addr != "" {
		return addr
	}
	return d.FallbackMailbox
}

// RecipientsFor computes the outbound recipients for a single tournament's
// availability notification. National tournaments route to the national
// mailbox only, zonal tournaments to the zone mailbox only — never both.
// Each tournament is routed independently; simultaneous zonal and national
// submissions by the same referee must not be conflated into one batch.
func (d MailboxDirectory) RecipientsFor(t *models.Tournament) Recipients {
	if t.IsNational() {
		return Recipients{NationalMailbox: d.NationalMailbox}
	}
	if t.ZoneID != nil {
		return Recipients{ZoneMailbox: d.ZoneMailbox(*t.ZoneID)}
	}
	return Recipients{ZoneMailbox: d.FallbackMailbox}
}
