package bot

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mutualref/mutualref/internal/access"
	"github.com/mutualref/mutualref/internal/command"
	"github.com/mutualref/mutualref/internal/conversation"
	"github.com/mutualref/mutualref/internal/maintenance"
	"github.com/mutualref/mutualref/internal/model"
	"github.com/mutualref/mutualref/internal/moderation"
	"github.com/mutualref/mutualref/internal/notify"
	"github.com/mutualref/mutualref/internal/store"
	"github.com/mutualref/mutualref/internal/store/memory"
)

const (
	adminID = int64(1)
	userID  = int64(42)
)

var testPartners = [2]model.Partner{
	{Name: "AtlantaVPN", URL: "https://t.me/atlanta_bot?start=ref_1"},
	{Name: "Nursultan VPN", URL: "https://t.me/nursultan_bot?start=ref_1"},
}

type fixture struct {
	bot   *Bot
	users *memory.Store
	gate  *access.Gate
	maint *maintenance.Controller
	sess  *conversation.Sessions
	rec   *notify.Recorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	users := memory.New()
	maint := maintenance.New()
	gate := access.NewGate(adminID, 99, maint)
	sess := conversation.NewSessions()
	rec := &notify.Recorder{}
	wf := moderation.New(users, gate, maint, rec, store.NopArchive{}, testPartners, zerolog.Nop())
	b := New(Deps{
		Users:    users,
		Support:  users,
		Sessions: sess,
		Gate:     gate,
		Maint:    maint,
		Workflow: wf,
		Send:     rec,
		Archive:  store.NopArchive{},
		Partners: testPartners,
		Log:      zerolog.Nop(),
	})
	return &fixture{bot: b, users: users, gate: gate, maint: maint, sess: sess, rec: rec}
}

func (f *fixture) text(id int64, text string) {
	f.bot.HandleText(context.Background(), TextMessage{Identity: id, Username: "tester", FirstName: "Test", Text: text})
}

func (f *fixture) photo(id int64, ref string) {
	f.bot.HandlePhoto(context.Background(), PhotoMessage{Identity: id, Username: "tester", FirstName: "Test", MediaRef: ref})
}

func (f *fixture) callback(id int64, cmd command.Command) {
	f.bot.HandleCallback(context.Background(), CallbackAction{
		Identity: id, Username: "tester", FirstName: "Test",
		Data:    cmd.Encode(),
		Message: notify.MessageHandle{ChatID: id, MessageID: 7},
	})
}

func (f *fixture) lastTextTo(t *testing.T, id int64) notify.RecordedText {
	t.Helper()
	texts := f.rec.TextsTo(id)
	require.NotEmpty(t, texts)
	return texts[len(texts)-1]
}

func TestStartCreatesRecordAndShowsMenu(t *testing.T) {
	f := newFixture(t)
	f.text(userID, "/start")

	u, err := f.users.Get(userID)
	require.NoError(t, err)
	assert.Equal(t, "tester", u.Username)

	last := f.lastTextTo(t, userID)
	assert.Contains(t, last.Text, "Hello")
	assert.Contains(t, last.Text, "AtlantaVPN")
	require.NotNil(t, last.Menu)
}

func TestSingleLinkFlowReachesReview(t *testing.T) {
	f := newFixture(t)
	f.text(userID, "/start")
	f.callback(userID, command.Command{Kind: command.Start})
	f.callback(userID, command.Command{Kind: command.AcceptRules})
	f.callback(userID, command.Command{Kind: command.SendLink, Slot: 1})
	f.text(userID, "https://t.me/mybot?start=ref_42")
	f.callback(userID, command.Command{Kind: command.SkipLink2})
	f.photo(userID, "photo-1")

	u, err := f.users.Get(userID)
	require.NoError(t, err)
	assert.Equal(t, model.SlotUnderReview, u.Slots[0].Status)
	assert.Equal(t, model.SlotSkipped, u.Slots[1].Status)
	assert.Equal(t, conversation.Idle, f.sess.State(userID))

	// One photo goes to the sole staff member, carrying the review menu.
	require.Len(t, f.rec.Photos, 1)
	assert.Equal(t, adminID, f.rec.Photos[0].To)
	require.NotNil(t, f.rec.Photos[0].Menu)
	assert.Contains(t, f.rec.Photos[0].Photo.Caption, "ID: 42")

	assert.Contains(t, f.lastTextTo(t, userID).Text, "sent for review")
}

func TestTwoLinkFlowSendsMediaGroup(t *testing.T) {
	f := newFixture(t)
	f.text(userID, "/start")
	f.callback(userID, command.Command{Kind: command.AcceptRules})
	f.callback(userID, command.Command{Kind: command.SendLink, Slot: 1})
	f.text(userID, "https://t.me/mybot?start=a")
	f.callback(userID, command.Command{Kind: command.SendLink, Slot: 2})
	f.text(userID, "https://t.me/mybot?start=b")
	f.callback(userID, command.Command{Kind: command.Completed, Slot: 1})
	f.photo(userID, "photo-1")

	// The second screenshot is requested before anything reaches staff.
	assert.Equal(t, conversation.AwaitingScreenshot2, f.sess.State(userID))
	assert.Empty(t, f.rec.Groups)

	f.photo(userID, "photo-2")

	require.Len(t, f.rec.Groups, 1)
	assert.Len(t, f.rec.Groups[0].Photos, 2)
	last := f.lastTextTo(t, adminID)
	assert.Contains(t, last.Text, "USER INFO")
	require.NotNil(t, last.Menu)
}

func TestReviewAcceptClearsMenu(t *testing.T) {
	f := newFixture(t)
	f.text(userID, "/start")
	f.callback(userID, command.Command{Kind: command.AcceptRules})
	f.callback(userID, command.Command{Kind: command.SendLink, Slot: 1})
	f.text(userID, "https://t.me/mybot?start=a")
	f.callback(userID, command.Command{Kind: command.SkipLink2})
	f.photo(userID, "photo-1")

	f.callback(adminID, command.Command{Kind: command.AcceptLink, Identity: userID, Slot: 1})

	u, _ := f.users.Get(userID)
	assert.Equal(t, model.SlotAccepted, u.Slots[0].Status)
	require.Len(t, f.rec.Edits, 1)
	assert.Equal(t, adminID, f.rec.Edits[0].ChatID)
}

func TestInvalidLinkKeepsAwaitingState(t *testing.T) {
	f := newFixture(t)
	f.text(userID, "/start")
	f.callback(userID, command.Command{Kind: command.AcceptRules})
	f.callback(userID, command.Command{Kind: command.SendLink, Slot: 1})
	f.text(userID, "https://example.com/nope")

	assert.Equal(t, conversation.AwaitingLink1, f.sess.State(userID))
	assert.Contains(t, f.lastTextTo(t, userID).Text, "Invalid link format")

	u, _ := f.users.Get(userID)
	assert.Equal(t, model.SlotEmpty, u.Slots[0].Status)
}

func TestRejectingRulesBlacklists(t *testing.T) {
	f := newFixture(t)
	f.text(userID, "/start")
	f.callback(userID, command.Command{Kind: command.Start})
	f.callback(userID, command.Command{Kind: command.RejectRules})

	assert.True(t, f.gate.IsBlacklisted(userID))
	assert.Contains(t, f.lastTextTo(t, userID).Text, "rejected the rules")
	assert.Contains(t, f.lastTextTo(t, adminID).Text, "blacklisted")

	// Stray messages from a banned user are dropped without a reply.
	before := len(f.rec.TextsTo(userID))
	f.text(userID, "hello?")
	assert.Len(t, f.rec.TextsTo(userID), before)
}

func TestMaintenanceDeniesUsersButNotStaff(t *testing.T) {
	f := newFixture(t)
	end := time.Now().Add(2 * time.Hour)
	f.maint.Activate(end, "upgrade", "@root")

	f.text(userID, "/start")
	last := f.lastTextTo(t, userID)
	assert.Contains(t, last.Text, "maintenance")
	assert.Contains(t, last.Text, "upgrade")

	f.text(adminID, "/start")
	assert.Contains(t, f.lastTextTo(t, adminID).Text, "Hello")
}

func TestBanBeatsMaintenance(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.gate.Ban(userID))
	f.maint.Activate(time.Now().Add(time.Hour), "", "@root")

	f.text(userID, "/start")
	assert.Contains(t, f.lastTextTo(t, userID).Text, "blocked")
}

func TestSupportRoundTrip(t *testing.T) {
	f := newFixture(t)
	f.text(userID, "/start")
	f.callback(userID, command.Command{Kind: command.Support})
	f.text(userID, "my link is stuck")

	staffMsg := f.lastTextTo(t, adminID)
	assert.Contains(t, staffMsg.Text, "my link is stuck")
	require.NotNil(t, staffMsg.Menu)

	f.callback(adminID, command.Command{Kind: command.SupportReply, Identity: userID})
	f.text(adminID, "we are on it")

	assert.Contains(t, f.lastTextTo(t, userID).Text, "we are on it")
	thread := f.users.SupportThread(userID)
	require.Len(t, thread, 2)
	assert.Equal(t, model.RoleUser, thread[0].Role)
	assert.Equal(t, model.RoleStaff, thread[1].Role)
}

func TestAdminPanelRequiresRole(t *testing.T) {
	f := newFixture(t)
	f.callback(userID, command.Command{Kind: command.AdminPanel})
	assert.Contains(t, f.lastTextTo(t, userID).Text, "do not have access")

	f.callback(adminID, command.Command{Kind: command.AdminPanel})
	assert.Contains(t, f.lastTextTo(t, adminID).Text, "ADMIN PANEL")
}

func TestTempBanEntryFlow(t *testing.T) {
	f := newFixture(t)
	f.callback(adminID, command.Command{Kind: command.TempBan})
	assert.Equal(t, conversation.AwaitingTempBanEntry, f.sess.State(adminID))

	f.text(adminID, "nonsense")
	assert.Equal(t, conversation.AwaitingTempBanEntry, f.sess.State(adminID))

	f.text(adminID, "42 2h")
	assert.True(t, f.gate.IsTempBanned(userID))
	assert.Equal(t, conversation.Idle, f.sess.State(adminID))
	assert.Contains(t, f.lastTextTo(t, adminID).Text, "banned for 2 h")
}

func TestMaintenanceSetupFlow(t *testing.T) {
	f := newFixture(t)
	f.callback(adminID, command.Command{Kind: command.MaintenanceOn})
	f.text(adminID, "2h")
	assert.Equal(t, conversation.AwaitingMaintenanceReason, f.sess.State(adminID))

	f.text(adminID, "database migration")
	st := f.maint.Status()
	assert.True(t, st.Active)
	assert.Equal(t, "database migration", st.Reason)

	f.callback(adminID, command.Command{Kind: command.MaintenanceOff})
	assert.False(t, f.maint.Status().Active)
}

func TestAlreadyMemberFlow(t *testing.T) {
	f := newFixture(t)
	f.text(userID, "/start")
	f.callback(userID, command.Command{Kind: command.AcceptRules})
	f.callback(userID, command.Command{Kind: command.AlreadyMemberMenu})
	f.callback(userID, command.Command{Kind: command.AlreadyMember, Slot: 1})

	u, _ := f.users.Get(userID)
	assert.Equal(t, model.SlotAlreadyMember, u.Slots[0].Status)
	assert.Contains(t, f.lastTextTo(t, userID).Text, "Nursultan VPN")
}

func TestGarbageCallbackGetsHint(t *testing.T) {
	f := newFixture(t)
	f.bot.HandleCallback(context.Background(), CallbackAction{Identity: userID, Data: "what_is_this"})
	assert.Contains(t, f.lastTextTo(t, userID).Text, "menu buttons")
}

func TestCompletedWithoutLinkIsRefused(t *testing.T) {
	f := newFixture(t)
	f.text(userID, "/start")
	f.callback(userID, command.Command{Kind: command.AcceptRules})
	f.callback(userID, command.Command{Kind: command.Completed, Slot: 2})

	assert.Contains(t, f.lastTextTo(t, userID).Text, "not submitted link #2")
	assert.Equal(t, conversation.CollectingLinks, f.sess.State(userID))
}
