// Package bot routes inbound chat events. Every event passes the
// access gate first; allowed events are dispatched on the conversation
// state (text, photos) or on the parsed command (menu callbacks).
package bot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/mutualref/mutualref/internal/access"
	"github.com/mutualref/mutualref/internal/command"
	"github.com/mutualref/mutualref/internal/conversation"
	"github.com/mutualref/mutualref/internal/maintenance"
	"github.com/mutualref/mutualref/internal/model"
	"github.com/mutualref/mutualref/internal/moderation"
	"github.com/mutualref/mutualref/internal/notify"
	"github.com/mutualref/mutualref/internal/store"
)

// Inbound events, produced by the transport.

type TextMessage struct {
	Identity  int64
	Username  string
	FirstName string
	Text      string
}

type PhotoMessage struct {
	Identity  int64
	Username  string
	FirstName string
	MediaRef  string
}

type CallbackAction struct {
	Identity  int64
	Username  string
	FirstName string
	Data      string
	Message   notify.MessageHandle
}

type Bot struct {
	users    store.UserStore
	support  store.SupportStore
	sessions *conversation.Sessions
	gate     *access.Gate
	maint    *maintenance.Controller
	mod      *moderation.Workflow
	send     notify.Dispatcher
	archive  store.Archive
	partners [2]model.Partner
	log      zerolog.Logger

	now func() time.Time
}

type Deps struct {
	Users    store.UserStore
	Support  store.SupportStore
	Sessions *conversation.Sessions
	Gate     *access.Gate
	Maint    *maintenance.Controller
	Workflow *moderation.Workflow
	Send     notify.Dispatcher
	Archive  store.Archive
	Partners [2]model.Partner
	Log      zerolog.Logger
}

func New(d Deps) *Bot {
	return &Bot{
		users:    d.Users,
		support:  d.Support,
		sessions: d.Sessions,
		gate:     d.Gate,
		maint:    d.Maint,
		mod:      d.Workflow,
		send:     d.Send,
		archive:  d.Archive,
		partners: d.Partners,
		log:      d.Log,
		now:      time.Now,
	}
}

// HandleText processes a free-text message, /start and /admin included.
func (b *Bot) HandleText(ctx context.Context, msg TextMessage) {
	d := b.gate.Evaluate(msg.Identity)
	switch d.Verdict {
	case access.DeniedBanned:
		if msg.Text == "/start" {
			b.reply(ctx, msg.Identity, textBlocked, nil)
		}
		return
	case access.DeniedMaintenance:
		b.reply(ctx, msg.Identity, maintenanceNotice(d.Maintenance), nil)
		return
	}

	switch msg.Text {
	case "/start":
		b.handleStart(ctx, msg.Identity, msg.Username, msg.FirstName)
		return
	case "/admin":
		b.handleAdminCommand(ctx, msg.Identity)
		return
	}

	switch st := b.sessions.State(msg.Identity); st {
	case conversation.AwaitingLink1:
		b.handleLinkSubmission(ctx, msg, 1)
	case conversation.AwaitingLink2:
		b.handleLinkSubmission(ctx, msg, 2)
	case conversation.InSupportMessage:
		b.handleSupportMessage(ctx, msg)
	case conversation.InSupportReply:
		b.handleSupportReply(ctx, msg)
	case conversation.AwaitingBanID,
		conversation.AwaitingTempBanEntry,
		conversation.AwaitingUnbanID,
		conversation.AwaitingBlacklistAddID,
		conversation.AwaitingBlacklistRemoveID,
		conversation.AwaitingModeratorID,
		conversation.AwaitingAdminID,
		conversation.AwaitingWhitelistAddID,
		conversation.AwaitingWhitelistRemoveID,
		conversation.AwaitingMaintenanceTime,
		conversation.AwaitingMaintenanceReason:
		b.handleStaffEntry(ctx, msg, st)
	default:
		b.handleStray(ctx, msg.Identity, st)
	}
}

// HandlePhoto processes an inbound photo. Only the screenshot states
// expect one; everywhere else the user gets a navigation hint.
func (b *Bot) HandlePhoto(ctx context.Context, msg PhotoMessage) {
	d := b.gate.Evaluate(msg.Identity)
	switch d.Verdict {
	case access.DeniedBanned:
		return
	case access.DeniedMaintenance:
		b.reply(ctx, msg.Identity, maintenanceNotice(d.Maintenance), nil)
		return
	}

	switch st := b.sessions.State(msg.Identity); st {
	case conversation.AwaitingScreenshot1:
		b.handleScreenshot(ctx, msg, 1)
	case conversation.AwaitingScreenshot2:
		b.handleScreenshot(ctx, msg, 2)
	default:
		b.handleStray(ctx, msg.Identity, st)
	}
}

// HandleCallback parses the opaque callback data once and dispatches on
// the typed command.
func (b *Bot) HandleCallback(ctx context.Context, msg CallbackAction) {
	d := b.gate.Evaluate(msg.Identity)
	switch d.Verdict {
	case access.DeniedBanned:
		b.reply(ctx, msg.Identity, textBlocked, nil)
		return
	case access.DeniedMaintenance:
		b.reply(ctx, msg.Identity, maintenanceNotice(d.Maintenance), nil)
		return
	}

	cmd, err := command.Parse(msg.Data)
	if err != nil {
		b.log.Warn().Str("data", msg.Data).Msg("unparseable callback")
		b.reply(ctx, msg.Identity, textUseButtons, b.mainMenu(msg.Identity))
		return
	}

	switch cmd.Kind {
	case command.Start, command.ShowRules:
		b.sessions.SetState(msg.Identity, conversation.AwaitingRuleDecision)
		b.reply(ctx, msg.Identity, rulesText, rulesMenu())
	case command.BackToMain:
		b.handleStart(ctx, msg.Identity, msg.Username, msg.FirstName)
	case command.BackToLinks:
		b.showLinksMenu(ctx, msg.Identity)
	case command.AcceptRules:
		b.handleAcceptRules(ctx, msg)
	case command.RejectRules:
		b.handleRejectRules(ctx, msg)
	case command.Profile:
		b.handleProfile(ctx, msg.Identity)
	case command.Support:
		b.sessions.SetState(msg.Identity, conversation.InSupportMessage)
		b.reply(ctx, msg.Identity, textSupportPrompt, backMenu())
	case command.SendLink:
		b.handleSendLinkPrompt(ctx, msg.Identity, cmd.Slot)
	case command.SkipLink2:
		b.handleSkipLink2(ctx, msg)
	case command.AlreadyMemberMenu:
		b.sessions.SetState(msg.Identity, conversation.AwaitingAlreadyMemberChoice)
		b.reply(ctx, msg.Identity, textAlreadyMemberPrompt, b.alreadyMemberMenu())
	case command.AlreadyMember:
		b.handleAlreadyMember(ctx, msg, cmd.Slot)
	case command.Completed:
		b.handleCompleted(ctx, msg, cmd.Slot)
	default:
		b.handleStaffCallback(ctx, msg, cmd)
	}
}

// handleStart resets the session and renders the main menu. The state
// stays cleared: /start never leaves a dangling conversation.
func (b *Bot) handleStart(ctx context.Context, id int64, username, firstName string) {
	b.sessions.Clear(id)
	u := b.users.Ensure(id, username, firstName)
	b.reply(ctx, id, b.welcomeText(u), b.mainMenu(id))
}

func (b *Bot) handleStray(ctx context.Context, id int64, st conversation.State) {
	if st != conversation.Idle {
		b.reply(ctx, id, textUseButtons, b.mainMenu(id))
		return
	}
	b.reply(ctx, id, textUseStart, b.mainMenu(id))
}

func (b *Bot) handleAdminCommand(ctx context.Context, id int64) {
	if !b.gate.IsModerator(id) {
		b.reply(ctx, id, textNoAccess, nil)
		return
	}
	b.reply(ctx, id, textAdminPanel, b.adminPanelMenu())
}

// reply sends best-effort: a blocked or deleted account must never fail
// the handler.
func (b *Bot) reply(ctx context.Context, id int64, text string, menu *notify.Menu) {
	if err := b.send.SendText(ctx, id, text, menu); err != nil {
		b.log.Warn().Err(err).Int64("user", id).Msg("send failed")
	}
}

func (b *Bot) notifyAdmins(ctx context.Context, except int64, text string) {
	for _, id := range b.gate.Admins() {
		if id == except {
			continue
		}
		b.reply(ctx, id, text, nil)
	}
}

func (b *Bot) notifyStaff(ctx context.Context, text string, menu *notify.Menu) {
	for _, id := range b.gate.Staff() {
		b.reply(ctx, id, text, menu)
	}
}

// recordEvent appends to the in-memory audit history and journals the
// entry to the archive, best-effort.
func (b *Bot) recordEvent(ctx context.Context, u *model.UserRecord, text string) {
	entry := model.HistoryEntry{At: b.now(), Text: text}
	u.History = append(u.History, entry)
	if err := b.archive.RecordEvent(ctx, u.ID, entry); err != nil {
		b.log.Warn().Err(err).Int64("user", u.ID).Msg("archive event failed")
	}
}

func maintenanceNotice(st model.MaintenanceStatus) string {
	msg := textMaintenance + "\n\n⏳ Expected to end: " + maintenance.FormatClock(st.EndsAt) + "\n"
	if st.Reason != "" {
		msg += "📝 Reason: " + st.Reason + "\n"
	}
	return msg
}

func parseIdentity(text string) (int64, error) {
	var id int64
	if _, err := fmt.Sscanf(text, "%d", &id); err != nil || id <= 0 {
		return 0, fmt.Errorf("identity %q: %w", text, store.ErrInvalidInput)
	}
	return id, nil
}

func errIsPolicy(err error) bool {
	return errors.Is(err, store.ErrProtected) || errors.Is(err, store.ErrPrivileged)
}
