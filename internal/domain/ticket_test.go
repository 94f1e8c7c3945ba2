package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTicketCodeShape(t *testing.T) {
	code := NewTicketCode()
	assert.True(t, ValidTicketCode(code), code)
	assert.Len(t, code, 11)
}

func TestNewTicketCodeUniqueAcrossManyTickets(t *testing.T) {
	seen := make(map[string]struct{}, 10000)
	for i := 0; i < 10000; i++ {
		code := NewTicketCode()
		_, dup := seen[code]
		require.False(t, dup, "duplicate code %s", code)
		seen[code] = struct{}{}
	}
}

func TestValidTicketCodeRejectsMalformed(t *testing.T) {
	for _, code := range []string{"", "HD-", "HD-abcdefgh", "XX-ABCDEFGH", "HD-ABCDEFGHI"} {
		assert.False(t, ValidTicketCode(code), code)
	}
}

func TestBlockedForClient(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	window := 72 * time.Hour
	at := func(d time.Duration) *time.Time {
		v := now.Add(-d)
		return &v
	}

	cases := []struct {
		name   string
		ticket Ticket
		want   bool
	}{
		{"closed", Ticket{Status: TicketStatusClosed}, true},
		{"completed recently", Ticket{Status: TicketStatusCompleted, CompletedAt: at(71 * time.Hour)}, false},
		{"completed long ago", Ticket{Status: TicketStatusCompleted, CompletedAt: at(73 * time.Hour)}, true},
		{"completed without stamp", Ticket{Status: TicketStatusCompleted}, false},
		{"in progress", Ticket{Status: TicketStatusInProgressAnalyst}, false},
		{"cancelled", Ticket{Status: TicketStatusCancelled}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.ticket.BlockedForClient(now, window))
		})
	}
}

func TestPriorityRank(t *testing.T) {
	assert.Greater(t, TicketPriorityUrgent.Rank(), TicketPriorityHigh.Rank())
	assert.Greater(t, TicketPriorityHigh.Rank(), TicketPriorityMedium.Rank())
	assert.Greater(t, TicketPriorityMedium.Rank(), TicketPriorityLow.Rank())
	assert.False(t, TicketPriority("SOON").Valid())
}

func TestCloneIsDeep(t *testing.T) {
	id := int64(4)
	orig := &Ticket{ID: 1, AnalystID: &id}
	cp := orig.Clone()
	*cp.AnalystID = 9
	assert.Equal(t, int64(4), *orig.AnalystID)
}
