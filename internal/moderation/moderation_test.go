package moderation

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mutualref/mutualref/internal/access"
	"github.com/mutualref/mutualref/internal/maintenance"
	"github.com/mutualref/mutualref/internal/model"
	"github.com/mutualref/mutualref/internal/notify"
	"github.com/mutualref/mutualref/internal/referral"
	"github.com/mutualref/mutualref/internal/store"
	"github.com/mutualref/mutualref/internal/store/memory"
)

const (
	admin = int64(1)
	user  = int64(42)
)

var partners = [2]model.Partner{
	{Name: "AtlantaVPN", URL: "https://t.me/atlanta_bot?start=ref_1"},
	{Name: "Nursultan VPN", URL: "https://t.me/nursultan_bot?start=ref_1"},
}

func newTestWorkflow(t *testing.T) (*Workflow, *memory.Store, *notify.Recorder) {
	t.Helper()
	users := memory.New()
	maint := maintenance.New()
	gate := access.NewGate(admin, 99, maint)
	rec := &notify.Recorder{}
	w := New(users, gate, maint, rec, store.NopArchive{}, partners, zerolog.Nop())
	return w, users, rec
}

func submit(t *testing.T, users *memory.Store, id int64, slot int) {
	t.Helper()
	users.Ensure(id, "tester", "Test")
	require.NoError(t, users.Update(id, func(u *model.UserRecord) error {
		if err := referral.Submit(u.Slot(slot), "https://t.me/somebot?start=ref_x"); err != nil {
			return err
		}
		return referral.AttachScreenshot(u.Slot(slot), "file-1")
	}))
}

func TestAcceptLink(t *testing.T) {
	w, users, rec := newTestWorkflow(t)
	submit(t, users, user, 1)

	require.NoError(t, w.AcceptLink(context.Background(), admin, user, 1))

	u, err := users.Get(user)
	require.NoError(t, err)
	assert.Equal(t, model.SlotAccepted, u.Slots[0].Status)
	assert.Equal(t, 1, u.AcceptedRefs)

	// User gets an acceptance notice, and because no sibling awaits
	// review, both sides get the consolidated status.
	userTexts := rec.TextsTo(user)
	require.NotEmpty(t, userTexts)
	assert.Contains(t, userTexts[0].Text, "ACCEPTED")
	assert.Contains(t, userTexts[len(userTexts)-1].Text, "REVIEW RESULT")

	staffTexts := rec.TextsTo(admin)
	require.NotEmpty(t, staffTexts)
	assert.Contains(t, staffTexts[len(staffTexts)-1].Text, "processed")
}

func TestAcceptSurfacesSibling(t *testing.T) {
	w, users, rec := newTestWorkflow(t)
	submit(t, users, user, 1)
	submit(t, users, user, 2)

	require.NoError(t, w.AcceptLink(context.Background(), admin, user, 1))

	staffTexts := rec.TextsTo(admin)
	require.NotEmpty(t, staffTexts)
	last := staffTexts[len(staffTexts)-1]
	assert.Contains(t, last.Text, "review link #2")
	require.NotNil(t, last.Menu)
}

func TestRejectThenResubmit(t *testing.T) {
	w, users, rec := newTestWorkflow(t)
	submit(t, users, user, 1)

	require.NoError(t, w.RejectLink(context.Background(), admin, user, 1, model.ReasonBadScreenshot))

	u, _ := users.Get(user)
	assert.Equal(t, model.SlotRejected, u.Slots[0].Status)
	assert.Equal(t, model.ReasonBadScreenshot, u.Slots[0].Reason)

	userTexts := rec.TextsTo(user)
	require.NotEmpty(t, userTexts)
	assert.Contains(t, userTexts[0].Text, "invalid screenshot")

	// Resubmission restarts the cycle.
	require.NoError(t, users.Update(user, func(u *model.UserRecord) error {
		return referral.Submit(u.Slot(1), "https://t.me/somebot?start=ref_new")
	}))
	u, _ = users.Get(user)
	assert.Equal(t, model.SlotSubmitted, u.Slots[0].Status)
}

func TestSkippedSiblingMeansImmediateConsolidation(t *testing.T) {
	// Scenario: user submits only slot 1 and skips slot 2. Accepting
	// slot 1 must produce the consolidated status right away.
	w, users, rec := newTestWorkflow(t)
	submit(t, users, user, 1)
	require.NoError(t, users.Update(user, func(u *model.UserRecord) error {
		return referral.Skip(u.Slot(2))
	}))

	require.NoError(t, w.AcceptLink(context.Background(), admin, user, 1))

	staffTexts := rec.TextsTo(admin)
	require.Len(t, staffTexts, 1)
	assert.Contains(t, staffTexts[0].Text, "processed")
	assert.Contains(t, staffTexts[0].Text, "SKIPPED")
}

func TestSkipSibling(t *testing.T) {
	w, users, rec := newTestWorkflow(t)
	submit(t, users, user, 1)

	require.NoError(t, w.SkipSibling(context.Background(), admin, user))

	u, _ := users.Get(user)
	assert.Equal(t, model.SlotSkipped, u.Slots[1].Status)
	assert.NotEmpty(t, rec.TextsTo(user))
}

func TestUnauthorized(t *testing.T) {
	w, users, rec := newTestWorkflow(t)
	submit(t, users, user, 1)

	require.ErrorIs(t, w.AcceptLink(context.Background(), 555, user, 1), store.ErrUnauthorized)
	require.ErrorIs(t, w.RejectLink(context.Background(), 555, user, 1, model.ReasonOther), store.ErrUnauthorized)
	require.ErrorIs(t, w.SkipSibling(context.Background(), 555, user), store.ErrUnauthorized)
	require.ErrorIs(t, w.BanFromReview(context.Background(), 555, user), store.ErrUnauthorized)
	_, err := w.Stats(555)
	require.ErrorIs(t, err, store.ErrUnauthorized)

	u, _ := users.Get(user)
	assert.Equal(t, model.SlotUnderReview, u.Slots[0].Status)
	assert.Empty(t, rec.Texts)
}

func TestAcceptUnknownUser(t *testing.T) {
	w, _, _ := newTestWorkflow(t)
	require.ErrorIs(t, w.AcceptLink(context.Background(), admin, 777, 1), store.ErrNotFound)
}

func TestAcceptRequiresReviewState(t *testing.T) {
	w, users, _ := newTestWorkflow(t)
	users.Ensure(user, "tester", "Test")
	require.ErrorIs(t, w.AcceptLink(context.Background(), admin, user, 1), store.ErrInvalidTransition)
}

func TestBanFromReviewGuards(t *testing.T) {
	w, _, rec := newTestWorkflow(t)

	require.NoError(t, w.BanFromReview(context.Background(), admin, user))
	assert.NotEmpty(t, rec.TextsTo(user))

	require.ErrorIs(t, w.BanFromReview(context.Background(), admin, 99), store.ErrProtected)
	require.ErrorIs(t, w.BanFromReview(context.Background(), admin, admin), store.ErrPrivileged)
}

func TestStats(t *testing.T) {
	w, users, _ := newTestWorkflow(t)
	submit(t, users, user, 1)
	require.NoError(t, w.AcceptLink(context.Background(), admin, user, 1))

	st, err := w.Stats(admin)
	require.NoError(t, err)
	assert.Equal(t, 1, st.Users)
	assert.Equal(t, 1, st.AcceptedRefs)
	assert.Equal(t, 1, st.UsersWithAccepted)
	assert.Equal(t, 1, st.Admins)
	assert.False(t, st.Maintenance)
}
