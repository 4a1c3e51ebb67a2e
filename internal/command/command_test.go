package command

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mutualref/mutualref/internal/model"
	"github.com/mutualref/mutualref/internal/store"
)

func TestRoundTrip(t *testing.T) {
	tests := []Command{
		{Kind: Start},
		{Kind: AcceptRules},
		{Kind: SendLink, Slot: 2},
		{Kind: Completed, Slot: 1},
		{Kind: AcceptLink, Identity: 123456789, Slot: 1},
		{Kind: RejectLink, Identity: 42, Slot: 2, Reason: model.ReasonBadScreenshot},
		{Kind: SkipSibling, Identity: 42},
		{Kind: ReviewBan, Identity: 42},
		{Kind: SupportReply, Identity: 42},
		{Kind: MaintenanceHistory},
	}
	for _, want := range tests {
		got, err := Parse(want.Encode())
		require.NoError(t, err, "encode %v", want)
		assert.Equal(t, want, got)
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	for _, data := range []string{
		"",
		"nope",
		"send_link",          // missing slot
		"send_link:3",        // slot out of range
		"review_accept:abc:1",
		"review_reject:42:1", // missing reason
		"review_reject:42:1:unknown",
		"review_skip",
	} {
		_, err := Parse(data)
		assert.ErrorIs(t, err, store.ErrInvalidInput, "data %q", data)
	}
}
