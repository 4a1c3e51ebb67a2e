package referral

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mutualref/mutualref/internal/model"
	"github.com/mutualref/mutualref/internal/store"
)

func TestValidLink(t *testing.T) {
	assert.True(t, ValidLink("https://t.me/somebot?start=ref_123"))
	assert.False(t, ValidLink("https://example.com/?start=ref_123"))
	assert.False(t, ValidLink("https://t.me/somebot"))
	assert.False(t, ValidLink("hello"))
}

func TestSubmitAttachAccept(t *testing.T) {
	var s model.LinkSlot

	require.NoError(t, Submit(&s, "https://t.me/somebot?start=ref_1"))
	assert.Equal(t, model.SlotSubmitted, s.Status)

	require.NoError(t, AttachScreenshot(&s, "file-42"))
	assert.Equal(t, model.SlotUnderReview, s.Status)
	assert.Equal(t, "file-42", s.Screenshot)

	require.NoError(t, Accept(&s))
	assert.Equal(t, model.SlotAccepted, s.Status)
}

func TestSubmitInvalidFormat(t *testing.T) {
	var s model.LinkSlot
	err := Submit(&s, "not a link")
	require.ErrorIs(t, err, store.ErrInvalidInput)
	assert.Equal(t, model.SlotEmpty, s.Status)
}

func TestNoShortcutToAccepted(t *testing.T) {
	// An empty slot must pass through Submitted and UnderReview before
	// it can be accepted or rejected.
	var s model.LinkSlot
	require.ErrorIs(t, Accept(&s), store.ErrInvalidTransition)
	require.ErrorIs(t, Reject(&s, model.ReasonOther), store.ErrInvalidTransition)

	require.NoError(t, Submit(&s, "https://t.me/somebot?start=ref_1"))
	require.ErrorIs(t, Accept(&s), store.ErrInvalidTransition)
}

func TestRejectThenResubmit(t *testing.T) {
	var s model.LinkSlot
	require.NoError(t, Submit(&s, "https://t.me/somebot?start=ref_1"))
	require.NoError(t, AttachScreenshot(&s, "file-1"))
	require.NoError(t, Reject(&s, model.ReasonBadScreenshot))
	assert.Equal(t, model.SlotRejected, s.Status)
	assert.Equal(t, model.ReasonBadScreenshot, s.Reason)

	require.NoError(t, Submit(&s, "https://t.me/somebot?start=ref_2"))
	assert.Equal(t, model.SlotSubmitted, s.Status)
	assert.Equal(t, model.ReasonNone, s.Reason)
	assert.Empty(t, s.Screenshot)
}

func TestTerminalStatesAreFinal(t *testing.T) {
	accepted := model.LinkSlot{Status: model.SlotAccepted}
	require.ErrorIs(t, Submit(&accepted, "https://t.me/b?start=x"), store.ErrInvalidTransition)
	require.ErrorIs(t, Skip(&accepted), store.ErrInvalidTransition)

	member := model.LinkSlot{Status: model.SlotAlreadyMember}
	require.ErrorIs(t, Submit(&member, "https://t.me/b?start=x"), store.ErrInvalidTransition)

	skipped := model.LinkSlot{Status: model.SlotSkipped}
	require.ErrorIs(t, Submit(&skipped, "https://t.me/b?start=x"), store.ErrInvalidTransition)
}

func TestSkip(t *testing.T) {
	var s model.LinkSlot
	require.NoError(t, Skip(&s))
	assert.Equal(t, model.SlotSkipped, s.Status)

	submitted := model.LinkSlot{Status: model.SlotSubmitted}
	require.NoError(t, Skip(&submitted))

	reviewed := model.LinkSlot{Status: model.SlotUnderReview}
	require.ErrorIs(t, Skip(&reviewed), store.ErrInvalidTransition)
}

func TestMarkAlreadyMember(t *testing.T) {
	var s model.LinkSlot
	require.NoError(t, MarkAlreadyMember(&s))
	assert.Equal(t, model.SlotAlreadyMember, s.Status)

	submitted := model.LinkSlot{Status: model.SlotSubmitted}
	require.ErrorIs(t, MarkAlreadyMember(&submitted), store.ErrInvalidTransition)
}
