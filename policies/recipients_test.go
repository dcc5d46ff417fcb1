package policies_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/golf-arbitri/referee-system/policies"
)

func testDirectory() policies.MailboxDirectory {
	return policies.MailboxDirectory{
		ZoneMailboxes: map[int]string{
			3: "szr3@federgolf.it",
			4: "szr4@federgolf.it",
		},
		FallbackMailbox: "arbitri@federgolf.it",
		NationalMailbox: "crc@federgolf.it",
	}
}

func TestRecipientsFor_ZonalTournamentRoutesToZoneOnly(t *testing.T) {
	dir := testDirectory()

	recipients := dir.RecipientsFor(zonalTournament(3))

	assert.Equal(t, "szr3@federgolf.it", recipients.ZoneMailbox)
	assert.Empty(t, recipients.NationalMailbox)
}

func TestRecipientsFor_NationalTournamentRoutesToNationalOnly(t *testing.T) {
	dir := testDirectory()

	recipients := dir.RecipientsFor(nationalTournament())

	assert.Equal(t, "crc@federgolf.it", recipients.NationalMailbox)
	assert.Empty(t, recipients.ZoneMailbox)
}

// A national-level referee in zone 3 submitting for a zonal tournament in
// their zone and for a national tournament elsewhere: each tournament is
// routed per its own scope, never both mailboxes in one call.
func TestRecipientsFor_SimultaneousSubmissionsStaySeparated(t *testing.T) {
	dir := testDirectory()

	zonal := dir.RecipientsFor(zonalTournament(3))
	national := dir.RecipientsFor(nationalTournament())

	assert.Equal(t, "szr3@federgolf.it", zonal.ZoneMailbox)
	assert.Empty(t, zonal.NationalMailbox)
	assert.Equal(t, "crc@federgolf.it", national.NationalMailbox)
	assert.Empty(t, national.ZoneMailbox)
}

func TestRecipientsFor_UnknownZoneFallsBack(t *testing.T) {
	dir := testDirectory()

	recipients := dir.RecipientsFor(zonalTournament(7))

	assert.Equal(t, "arbitri@federgolf.it", recipients.ZoneMailbox)
}
