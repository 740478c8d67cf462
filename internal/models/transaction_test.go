package models

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSeverity(t *testing.T) {
	got, err := ParseSeverity("")
	require.NoError(t, err)
	assert.Equal(t, SeverityNone, got)

	for _, s := range []DamageSeverity{SeverityNone, SeverityLight, SeverityMedium, SeverityHigh, SeveritySevere} {
		got, err := ParseSeverity(string(s))
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}

	_, err = ParseSeverity("catastrophic")
	assert.Error(t, err)
}

func TestParseComplaintType(t *testing.T) {
	for _, ct := range []ComplaintType{ComplaintDelivery, ComplaintDamage, ComplaintBehavior, ComplaintOther} {
		got, err := ParseComplaintType(string(ct))
		require.NoError(t, err)
		assert.Equal(t, ct, got)
	}

	_, err := ParseComplaintType("")
	assert.Error(t, err)
}

func TestTerminalStatuses(t *testing.T) {
	assert.True(t, StatusRejected.Terminal())
	assert.True(t, StatusCompleted.Terminal())
	assert.False(t, StatusPending.Terminal())
	assert.False(t, StatusApproved.Terminal())
	assert.False(t, StatusDelivered.Terminal())
}

func TestParticipant(t *testing.T) {
	tx := &Transaction{BorrowerID: uuid.New(), OwnerID: uuid.New()}
	assert.True(t, tx.Participant(tx.BorrowerID))
	assert.True(t, tx.Participant(tx.OwnerID))
	assert.False(t, tx.Participant(uuid.New()))
}
