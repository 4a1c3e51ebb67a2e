package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mutualref/mutualref/internal/conversation"
	"github.com/mutualref/mutualref/internal/maintenance"
	"github.com/mutualref/mutualref/internal/model"
	"github.com/mutualref/mutualref/internal/moderation"
	"github.com/mutualref/mutualref/internal/notify"
	"github.com/mutualref/mutualref/internal/referral"
	"github.com/mutualref/mutualref/internal/store"
)

func (b *Bot) handleAcceptRules(ctx context.Context, msg CallbackAction) {
	id := msg.Identity
	b.users.Ensure(id, msg.Username, msg.FirstName)
	if err := b.users.Update(id, func(u *model.UserRecord) error {
		b.recordEvent(ctx, u, "accepted the rules")
		return nil
	}); err != nil {
		b.log.Warn().Err(err).Int64("user", id).Msg("record rules acceptance")
	}
	b.sessions.SetState(id, conversation.CollectingLinks)
	b.reply(ctx, id, b.linksIntroText(), linksMenu(false))
}

// handleRejectRules blacklists the user on the spot. Rejecting the
// rules is a final answer, not a navigation step.
func (b *Bot) handleRejectRules(ctx context.Context, msg CallbackAction) {
	id := msg.Identity
	b.users.Ensure(id, msg.Username, msg.FirstName)
	if err := b.users.Update(id, func(u *model.UserRecord) error {
		b.recordEvent(ctx, u, "rejected the rules, blacklisted")
		return nil
	}); err != nil {
		b.log.Warn().Err(err).Int64("user", id).Msg("record rules rejection")
	}
	if err := b.gate.Ban(id); err != nil {
		b.log.Warn().Err(err).Int64("user", id).Msg("ban on rules rejection")
	}
	b.sessions.Clear(id)
	b.reply(ctx, id, textRulesRejected, nil)
	b.notifyAdmins(ctx, 0, fmt.Sprintf("🚫 User @%s (%d) rejected the rules and was blacklisted.", msg.Username, id))
}

func (b *Bot) handleProfile(ctx context.Context, id int64) {
	u, err := b.users.Get(id)
	if err != nil {
		b.reply(ctx, id, textUseStart, b.mainMenu(id))
		return
	}

	var sb strings.Builder
	sb.WriteString("👤 YOUR PROFILE\n\n")
	fmt.Fprintf(&sb, "Name: %s\n", u.FirstName)
	fmt.Fprintf(&sb, "Username: @%s\n", u.Username)
	fmt.Fprintf(&sb, "ID: %d\n", u.ID)
	fmt.Fprintf(&sb, "Joined: %s\n", maintenance.FormatClock(u.JoinedAt))
	fmt.Fprintf(&sb, "Submissions: %d\n", u.Attempts)
	fmt.Fprintf(&sb, "Accepted referrals: %d\n", u.AcceptedRefs)
	if flags := b.accessFlags(id); flags != "" {
		sb.WriteString(flags)
	}
	sb.WriteString("\n")
	sb.WriteString(referral.StatusText(u, b.partners))
	if n := len(u.History); n > 0 {
		sb.WriteString("\n📜 Recent activity:\n")
		start := n - 5
		if start < 0 {
			start = 0
		}
		for _, e := range u.History[start:] {
			fmt.Fprintf(&sb, "• %s — %s\n", maintenance.FormatClock(e.At), e.Text)
		}
	}
	b.reply(ctx, id, sb.String(), backMenu())
}

// showLinksMenu re-renders the link collection step from the current
// record, so "back" always lands on the right variant.
func (b *Bot) showLinksMenu(ctx context.Context, id int64) {
	u, err := b.users.Get(id)
	if err != nil {
		b.reply(ctx, id, textUseStart, b.mainMenu(id))
		return
	}
	b.sessions.SetState(id, conversation.CollectingLinks)
	hasLink1 := u.Slots[0].Status != model.SlotEmpty
	b.reply(ctx, id, textLinksStep, linksMenu(hasLink1))
}

func (b *Bot) handleSendLinkPrompt(ctx context.Context, id int64, slot int) {
	if slot == 2 {
		b.sessions.SetState(id, conversation.AwaitingLink2)
	} else {
		b.sessions.SetState(id, conversation.AwaitingLink1)
	}
	b.reply(ctx, id, fmt.Sprintf("📎 Send your referral link #%d\n\nFormat: https://t.me/...?start=...", slot), backToLinksMenu())
}

// handleSkipLink2 is the user opting out of the second link. Slot 2 is
// marked skipped right away and the screenshot step begins.
func (b *Bot) handleSkipLink2(ctx context.Context, msg CallbackAction) {
	id := msg.Identity
	err := b.users.Update(id, func(u *model.UserRecord) error {
		if u.Slots[0].Status != model.SlotSubmitted {
			return store.ErrInvalidTransition
		}
		if err := referral.Skip(u.Slot(2)); err != nil {
			return err
		}
		b.recordEvent(ctx, u, "chose to submit one link only")
		return nil
	})
	if err != nil {
		b.reply(ctx, id, textLink1First, linksMenu(false))
		return
	}
	b.sessions.SetState(id, conversation.AwaitingScreenshot1)
	b.reply(ctx, id, "✅ You chose to submit one link only.\n\nNow send the screenshot for link #1:", backToLinksMenu())
}

func (b *Bot) handleAlreadyMember(ctx context.Context, msg CallbackAction, slot int) {
	id := msg.Identity
	b.users.Ensure(id, msg.Username, msg.FirstName)
	err := b.users.Update(id, func(u *model.UserRecord) error {
		if err := referral.MarkAlreadyMember(u.Slot(slot)); err != nil {
			return err
		}
		b.recordEvent(ctx, u, fmt.Sprintf("marked already a member of %s", b.partners[slot-1].Name))
		return nil
	})
	if err != nil {
		b.reply(ctx, id, textUseButtons, b.mainMenu(id))
		return
	}
	other := b.partners[2-slot]
	b.sessions.SetState(id, conversation.CollectingLinks)
	b.reply(ctx, id,
		fmt.Sprintf("🔄 You were already in %s.\n\nNow send the link for %s:", b.partners[slot-1].Name, other.Name),
		linksMenu(false))
}

// handleCompleted moves to the screenshot step for the chosen slot,
// provided its link was actually submitted.
func (b *Bot) handleCompleted(ctx context.Context, msg CallbackAction, slot int) {
	id := msg.Identity
	u, err := b.users.Get(id)
	if err != nil {
		b.reply(ctx, id, textUseStart, b.mainMenu(id))
		return
	}
	if u.Slot(slot).Status != model.SlotSubmitted {
		b.reply(ctx, id,
			fmt.Sprintf("❌ You have not submitted link #%d yet!\nSend the link first.", slot),
			linksMenu(u.Slots[0].Status != model.SlotEmpty))
		return
	}
	if slot == 2 {
		b.sessions.SetState(id, conversation.AwaitingScreenshot2)
	} else {
		b.sessions.SetState(id, conversation.AwaitingScreenshot1)
	}
	b.reply(ctx, id, fmt.Sprintf("📸 Send the completion screenshot for link #%d\n\nIt must show that you followed the referral.", slot), nil)
}

func (b *Bot) handleLinkSubmission(ctx context.Context, msg TextMessage, slot int) {
	id := msg.Identity
	b.users.Ensure(id, msg.Username, msg.FirstName)
	err := b.users.Update(id, func(u *model.UserRecord) error {
		if err := referral.Submit(u.Slot(slot), msg.Text); err != nil {
			return err
		}
		u.Attempts++
		b.recordEvent(ctx, u, fmt.Sprintf("submitted link #%d", slot))
		return nil
	})
	if errors.Is(err, store.ErrInvalidInput) {
		// Stay in the awaiting state; the user just retypes the link.
		b.reply(ctx, id, textBadLinkFormat, linksMenu(slot == 2))
		return
	}
	if err != nil {
		b.reply(ctx, id, textUseButtons, b.mainMenu(id))
		b.sessions.Clear(id)
		return
	}

	b.sessions.SetState(id, conversation.CollectingLinks)
	if slot == 1 {
		b.reply(ctx, id, "✅ Link #1 saved!\n\nNow you can:\n• Send link #2\n• Skip the second link\n• Go straight to completion", linksMenu(true))
		return
	}
	b.reply(ctx, id, "✅ Both links saved!\n\nNow send your completion screenshots:", completionMenu())
}

func (b *Bot) handleScreenshot(ctx context.Context, msg PhotoMessage, slot int) {
	id := msg.Identity
	var after model.UserRecord
	err := b.users.Update(id, func(u *model.UserRecord) error {
		if err := referral.AttachScreenshot(u.Slot(slot), msg.MediaRef); err != nil {
			return err
		}
		b.recordEvent(ctx, u, fmt.Sprintf("submitted screenshot #%d", slot))
		after = *u
		return nil
	})
	if err != nil {
		b.sessions.SetState(id, conversation.CollectingLinks)
		b.reply(ctx, id, textLink1First, linksMenu(false))
		return
	}

	if slot == 1 && after.Slots[1].Status == model.SlotSubmitted {
		// Link 2 exists but its screenshot is still missing.
		b.sessions.SetState(id, conversation.AwaitingScreenshot2)
		b.reply(ctx, id, "✅ Screenshot #1 received!\n\nNow send the screenshot for link #2:", completionMenu())
		return
	}

	b.submitForReview(ctx, after)
	b.sessions.Clear(id)
	b.reply(ctx, id, "✅ Your screenshots were sent for review!\nPlease wait for staff confirmation.", b.mainMenu(id))
}

// submitForReview fans the submission out to every staff member: one
// photo with an inline review menu, or a media group followed by the
// summary carrying the menu.
func (b *Bot) submitForReview(ctx context.Context, u model.UserRecord) {
	var sb strings.Builder
	sb.WriteString("📊 USER INFO:\n\n")
	fmt.Fprintf(&sb, "👤 User: @%s\n", u.Username)
	fmt.Fprintf(&sb, "🆔 ID: %d\n\n", u.ID)
	sb.WriteString("🔗 SUBMITTED LINKS:\n")
	for i, s := range u.Slots {
		if s.URL != "" {
			fmt.Fprintf(&sb, "#%d: %s\n", i+1, s.URL)
		}
	}
	sb.WriteString("\n")
	sb.WriteString(referral.StatusText(u, b.partners))
	info := sb.String()

	var photos []notify.Photo
	reviewSlot := 0
	for i, s := range u.Slots {
		if s.Status == model.SlotUnderReview && s.Screenshot != "" {
			photos = append(photos, notify.Photo{
				MediaRef: s.Screenshot,
				Caption:  fmt.Sprintf("Screenshot #%d (%s)", i+1, b.partners[i].Name),
			})
			if reviewSlot == 0 {
				reviewSlot = i + 1
			}
		}
	}
	if reviewSlot == 0 {
		b.log.Error().Int64("user", u.ID).Msg("review fan-out without a reviewable slot")
		return
	}

	other := u.Slot(3 - reviewSlot)
	offerSkip := other.Status == model.SlotEmpty || other.Status == model.SlotSubmitted
	menu := moderation.ReviewMenu(u.ID, reviewSlot, offerSkip)

	for _, staff := range b.gate.Staff() {
		if len(photos) == 1 {
			p := photos[0]
			p.Caption = info + "\n\n" + p.Caption
			if err := b.send.SendPhoto(ctx, staff, p, menu); err != nil {
				b.log.Warn().Err(err).Int64("staff", staff).Msg("review photo send failed")
			}
			continue
		}
		if err := b.send.SendPhotoGroup(ctx, staff, photos); err != nil {
			b.log.Warn().Err(err).Int64("staff", staff).Msg("review group send failed")
			continue
		}
		b.reply(ctx, staff, info, menu)
	}
}

func (b *Bot) handleSupportMessage(ctx context.Context, msg TextMessage) {
	id := msg.Identity
	b.users.Ensure(id, msg.Username, msg.FirstName)
	sm := model.SupportMessage{
		At:         b.now(),
		Role:       model.RoleUser,
		AuthorID:   id,
		AuthorName: msg.Username,
		Text:       msg.Text,
	}
	b.support.AppendSupport(id, sm)
	if err := b.archive.RecordSupport(ctx, id, sm); err != nil {
		b.log.Warn().Err(err).Int64("user", id).Msg("archive support failed")
	}

	b.notifyStaff(ctx,
		fmt.Sprintf("🆘 SUPPORT MESSAGE\n\n👤 From: @%s (%d)\n\n%s", msg.Username, id, msg.Text),
		supportReplyMenu(id))
	b.sessions.Clear(id)
	b.reply(ctx, id, "✅ Your message was sent to support.\nWe will reply as soon as possible.", b.mainMenu(id))
}

func (b *Bot) handleSupportReply(ctx context.Context, msg TextMessage) {
	actor := msg.Identity
	target := b.sessions.ReplyTarget(actor)
	b.sessions.Clear(actor)
	if target == 0 {
		b.reply(ctx, actor, "❌ Reply target lost, open the support message again.", nil)
		return
	}

	sm := model.SupportMessage{
		At:         b.now(),
		Role:       model.RoleStaff,
		AuthorID:   actor,
		AuthorName: msg.Username,
		Text:       msg.Text,
	}
	b.support.AppendSupport(target, sm)
	if err := b.archive.RecordSupport(ctx, target, sm); err != nil {
		b.log.Warn().Err(err).Int64("user", target).Msg("archive support failed")
	}

	b.reply(ctx, target, "💬 SUPPORT REPLY:\n\n"+msg.Text, nil)
	b.reply(ctx, actor, fmt.Sprintf("✅ Reply delivered to user %d.", target), nil)
	b.notifyAdmins(ctx, actor, fmt.Sprintf("📨 @%s replied to support request of %d.", msg.Username, target))
}

func (b *Bot) accessFlags(id int64) string {
	var flags []string
	if b.gate.IsBlacklisted(id) {
		flags = append(flags, "🚫 blacklisted")
	}
	if b.gate.IsTempBanned(id) {
		flags = append(flags, "⏳ temporarily banned")
	}
	if b.gate.IsWhitelisted(id) {
		flags = append(flags, "📋 whitelisted")
	}
	if len(flags) == 0 {
		return ""
	}
	return "Flags: " + strings.Join(flags, ", ") + "\n"
}

func (b *Bot) welcomeText(u model.UserRecord) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "👋 Hello, %s!\n\n", u.FirstName)
	sb.WriteString("🤝 MUTUAL REFERRAL EXCHANGE\n\n")
	sb.WriteString("Follow our partner links and submit your own, everyone wins.\n\nPartner bots:\n")
	for i, p := range b.partners {
		mark := "🔴"
		if u.Slots[i].Status == model.SlotAccepted {
			mark = "🟢"
		}
		fmt.Fprintf(&sb, "%s %d. %s — %s\n", mark, i+1, p.Name, p.URL)
	}
	sb.WriteString("\nPress 🚀 Start to begin.")
	return sb.String()
}

func (b *Bot) linksIntroText() string {
	var sb strings.Builder
	sb.WriteString("✅ Great! First complete our partner links:\n\n")
	for i, p := range b.partners {
		fmt.Fprintf(&sb, "%d. %s — %s\n", i+1, p.Name, p.URL)
	}
	sb.WriteString("\nThen send your own referral links here.")
	return sb.String()
}
