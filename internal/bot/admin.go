package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mutualref/mutualref/internal/command"
	"github.com/mutualref/mutualref/internal/conversation"
	"github.com/mutualref/mutualref/internal/maintenance"
	"github.com/mutualref/mutualref/internal/model"
	"github.com/mutualref/mutualref/internal/store"
)

// handleStaffCallback dispatches the staff command kinds. Review and
// stats are open to moderators; everything else on the panel needs the
// admin role.
func (b *Bot) handleStaffCallback(ctx context.Context, msg CallbackAction, cmd command.Command) {
	actor := msg.Identity
	if !b.gate.IsModerator(actor) {
		b.reply(ctx, actor, textNoAccess, nil)
		return
	}

	switch cmd.Kind {
	case command.AcceptLink:
		b.finishReview(ctx, msg, b.mod.AcceptLink(ctx, actor, cmd.Identity, cmd.Slot))
		return
	case command.RejectLink:
		b.finishReview(ctx, msg, b.mod.RejectLink(ctx, actor, cmd.Identity, cmd.Slot, cmd.Reason))
		return
	case command.SkipSibling:
		b.finishReview(ctx, msg, b.mod.SkipSibling(ctx, actor, cmd.Identity))
		return
	case command.ReviewBan:
		b.finishReview(ctx, msg, b.mod.BanFromReview(ctx, actor, cmd.Identity))
		return
	case command.SupportReply:
		b.sessions.SetReplyTarget(actor, cmd.Identity)
		b.sessions.SetState(actor, conversation.InSupportReply)
		b.reply(ctx, actor, fmt.Sprintf("💬 Send your reply to user %d:", cmd.Identity), nil)
		return
	case command.AdminPanel:
		b.reply(ctx, actor, textAdminPanel, b.adminPanelMenu())
		return
	case command.Stats:
		st, err := b.mod.Stats(actor)
		if err != nil {
			b.reply(ctx, actor, textNoAccess, nil)
			return
		}
		b.reply(ctx, actor, statsText(st), b.adminPanelMenu())
		return
	}

	if !b.gate.IsAdmin(actor) {
		b.reply(ctx, actor, textNoAccess, nil)
		return
	}

	switch cmd.Kind {
	case command.BanMenu:
		b.reply(ctx, actor, "🚫 BAN MANAGEMENT", banMenu())
	case command.BlacklistMenu:
		b.reply(ctx, actor, "📛 BLACKLIST MANAGEMENT", blacklistMenu())
	case command.WhitelistMenu:
		b.reply(ctx, actor, "📋 WHITELIST MANAGEMENT", whitelistMenu())
	case command.BanPermanent:
		b.promptEntry(ctx, actor, conversation.AwaitingBanID, "Send the ID of the user to ban permanently:")
	case command.Unban:
		b.promptEntry(ctx, actor, conversation.AwaitingUnbanID, "Send the ID of the user to unban:")
	case command.TempBan:
		b.promptEntry(ctx, actor, conversation.AwaitingTempBanEntry,
			"Send: <user ID> <duration>\n\nDuration examples: 30m, 2h, 1d")
	case command.BlacklistAdd:
		b.promptEntry(ctx, actor, conversation.AwaitingBlacklistAddID, "Send the ID to add to the blacklist:")
	case command.BlacklistRemove:
		b.promptEntry(ctx, actor, conversation.AwaitingBlacklistRemoveID, "Send the ID to remove from the blacklist:")
	case command.GiveModerator:
		b.promptEntry(ctx, actor, conversation.AwaitingModeratorID, "Send the ID of the user to make a moderator:")
	case command.GiveAdmin:
		b.promptEntry(ctx, actor, conversation.AwaitingAdminID, "Send the ID of the user to make an administrator:")
	case command.WhitelistAdd:
		b.promptEntry(ctx, actor, conversation.AwaitingWhitelistAddID, "Send the ID to add to the maintenance whitelist:")
	case command.WhitelistRemove:
		b.promptEntry(ctx, actor, conversation.AwaitingWhitelistRemoveID, "Send the ID to remove from the whitelist:")
	case command.WhitelistShow:
		b.reply(ctx, actor, b.whitelistText(), whitelistMenu())
	case command.MaintenanceOn:
		b.promptEntry(ctx, actor, conversation.AwaitingMaintenanceTime,
			"🔧 Send the maintenance end time.\n\nFormats:\n• 31.12.2026 23:59\n• 23:59 (today or tomorrow)\n• 30m / 2h / 1d")
	case command.MaintenanceOff:
		b.handleMaintenanceOff(ctx, actor, staffName(msg.Username, msg.FirstName))
	case command.MaintenanceHistory:
		b.reply(ctx, actor, maintenanceHistoryText(b.maint.History(10)), b.adminPanelMenu())
	default:
		b.reply(ctx, actor, textUseButtons, b.mainMenu(actor))
	}
}

func (b *Bot) promptEntry(ctx context.Context, actor int64, st conversation.State, prompt string) {
	b.sessions.SetState(actor, st)
	b.reply(ctx, actor, prompt, backMenu())
}

// finishReview clears the inline menu on success so a decision cannot
// be clicked twice, and maps workflow errors to short notices.
func (b *Bot) finishReview(ctx context.Context, msg CallbackAction, err error) {
	if err == nil {
		if e := b.send.EditMenu(ctx, msg.Message, nil); e != nil {
			b.log.Warn().Err(e).Msg("clearing review menu failed")
		}
		return
	}
	switch {
	case errors.Is(err, store.ErrUnauthorized):
		b.reply(ctx, msg.Identity, textNoAccess, nil)
	case errors.Is(err, store.ErrNotFound):
		b.reply(ctx, msg.Identity, "❌ User not found.", nil)
	case errors.Is(err, store.ErrInvalidTransition):
		b.reply(ctx, msg.Identity, "❌ This link is not awaiting review anymore.", nil)
	case errIsPolicy(err):
		b.reply(ctx, msg.Identity, "🛡 This identity cannot be banned.", nil)
	default:
		b.log.Error().Err(err).Msg("review action failed")
		b.reply(ctx, msg.Identity, "❌ Action failed.", nil)
	}
}

// handleStaffEntry consumes the free-text argument of an admin panel
// flow. Parse failures keep the state so the admin can just retype.
func (b *Bot) handleStaffEntry(ctx context.Context, msg TextMessage, st conversation.State) {
	actor := msg.Identity
	if !b.gate.IsAdmin(actor) {
		b.sessions.Clear(actor)
		b.reply(ctx, actor, textNoAccess, nil)
		return
	}

	switch st {
	case conversation.AwaitingBanID:
		b.entryBan(ctx, msg, false)
	case conversation.AwaitingBlacklistAddID:
		b.entryBan(ctx, msg, true)
	case conversation.AwaitingTempBanEntry:
		b.entryTempBan(ctx, msg)
	case conversation.AwaitingUnbanID:
		b.entryUnban(ctx, msg, false)
	case conversation.AwaitingBlacklistRemoveID:
		b.entryUnban(ctx, msg, true)
	case conversation.AwaitingModeratorID:
		b.entryGrant(ctx, msg, false)
	case conversation.AwaitingAdminID:
		b.entryGrant(ctx, msg, true)
	case conversation.AwaitingWhitelistAddID:
		b.entryWhitelistAdd(ctx, msg)
	case conversation.AwaitingWhitelistRemoveID:
		b.entryWhitelistRemove(ctx, msg)
	case conversation.AwaitingMaintenanceTime:
		b.entryMaintenanceTime(ctx, msg)
	case conversation.AwaitingMaintenanceReason:
		b.entryMaintenanceReason(ctx, msg)
	}
}

func (b *Bot) entryBan(ctx context.Context, msg TextMessage, blacklistWording bool) {
	actor := msg.Identity
	target, err := parseIdentity(msg.Text)
	if err != nil {
		b.reply(ctx, actor, textNumericID, backMenu())
		return
	}
	b.sessions.Clear(actor)

	if err := b.gate.Ban(target); err != nil {
		b.reply(ctx, actor, banErrorText(err), b.adminPanelMenu())
		return
	}
	b.auditUser(ctx, target, "permanently banned by staff")

	verb := "permanently banned"
	if blacklistWording {
		verb = "added to the blacklist"
	}
	b.reply(ctx, target, textBlocked, nil)
	b.reply(ctx, actor, fmt.Sprintf("✅ User %d %s.", target, verb), b.adminPanelMenu())
	b.notifyAdmins(ctx, actor, fmt.Sprintf("🚫 @%s %s user %d.", msg.Username, verb, target))
}

func (b *Bot) entryTempBan(ctx context.Context, msg TextMessage) {
	actor := msg.Identity
	fields := strings.Fields(msg.Text)
	if len(fields) != 2 {
		b.reply(ctx, actor, "❌ Use: <user ID> <duration>, for example: 123456 2h", backMenu())
		return
	}
	target, err := parseIdentity(fields[0])
	if err != nil {
		b.reply(ctx, actor, textNumericID, backMenu())
		return
	}
	dur, err := maintenance.ParseDuration(fields[1])
	if err != nil {
		b.reply(ctx, actor, "❌ Invalid duration. Examples: 30m, 2h, 1d", backMenu())
		return
	}
	b.sessions.Clear(actor)

	until := b.now().Add(dur)
	if err := b.gate.TempBan(target, until); err != nil {
		b.reply(ctx, actor, banErrorText(err), b.adminPanelMenu())
		return
	}
	b.auditUser(ctx, target, fmt.Sprintf("temporarily banned for %s", maintenance.FormatDuration(dur)))

	b.reply(ctx, target, fmt.Sprintf("⏳ You are banned until %s (%s).", maintenance.FormatClock(until), maintenance.FormatDuration(dur)), nil)
	b.reply(ctx, actor, fmt.Sprintf("✅ User %d banned for %s.", target, maintenance.FormatDuration(dur)), b.adminPanelMenu())
	b.notifyAdmins(ctx, actor, fmt.Sprintf("⏳ @%s temporarily banned user %d for %s.", msg.Username, target, maintenance.FormatDuration(dur)))
}

func (b *Bot) entryUnban(ctx context.Context, msg TextMessage, blacklistWording bool) {
	actor := msg.Identity
	target, err := parseIdentity(msg.Text)
	if err != nil {
		b.reply(ctx, actor, textNumericID, backMenu())
		return
	}
	b.sessions.Clear(actor)

	if !b.gate.Unban(target) {
		where := "banned"
		if blacklistWording {
			where = "in the blacklist"
		}
		b.reply(ctx, actor, fmt.Sprintf("❌ User %d is not %s.", target, where), b.adminPanelMenu())
		return
	}
	b.auditUser(ctx, target, "unbanned by staff")

	b.reply(ctx, target, "✅ You have been unbanned. Welcome back!", nil)
	b.reply(ctx, actor, fmt.Sprintf("✅ User %d unbanned.", target), b.adminPanelMenu())
	b.notifyAdmins(ctx, actor, fmt.Sprintf("✅ @%s unbanned user %d.", msg.Username, target))
}

func (b *Bot) entryGrant(ctx context.Context, msg TextMessage, admin bool) {
	actor := msg.Identity
	target, err := parseIdentity(msg.Text)
	if err != nil {
		b.reply(ctx, actor, textNumericID, backMenu())
		return
	}
	b.sessions.Clear(actor)

	role := "moderator"
	if admin {
		role = "administrator"
		b.gate.GrantAdmin(target)
	} else {
		b.gate.GrantModerator(target)
	}
	b.auditUser(ctx, target, "granted "+role+" rights")

	b.reply(ctx, target, fmt.Sprintf("🛡 You were granted %s rights.", role), nil)
	b.reply(ctx, actor, fmt.Sprintf("✅ User %d is now a %s.", target, role), b.adminPanelMenu())
	b.notifyAdmins(ctx, actor, fmt.Sprintf("🛡 @%s made user %d a %s.", msg.Username, target, role))
}

func (b *Bot) entryWhitelistAdd(ctx context.Context, msg TextMessage) {
	actor := msg.Identity
	target, err := parseIdentity(msg.Text)
	if err != nil {
		b.reply(ctx, actor, textNumericID, backMenu())
		return
	}
	b.sessions.Clear(actor)

	b.gate.WhitelistAdd(target)
	b.reply(ctx, actor, fmt.Sprintf("✅ User %d added to the whitelist.", target), b.adminPanelMenu())
}

func (b *Bot) entryWhitelistRemove(ctx context.Context, msg TextMessage) {
	actor := msg.Identity
	target, err := parseIdentity(msg.Text)
	if err != nil {
		b.reply(ctx, actor, textNumericID, backMenu())
		return
	}
	b.sessions.Clear(actor)

	switch err := b.gate.WhitelistRemove(target); {
	case errors.Is(err, store.ErrProtected):
		b.reply(ctx, actor, "🛡 This ID cannot leave the whitelist.", b.adminPanelMenu())
	case errors.Is(err, store.ErrNotFound):
		b.reply(ctx, actor, fmt.Sprintf("❌ User %d is not in the whitelist.", target), b.adminPanelMenu())
	default:
		b.reply(ctx, actor, fmt.Sprintf("✅ User %d removed from the whitelist.", target), b.adminPanelMenu())
	}
}

func (b *Bot) entryMaintenanceTime(ctx context.Context, msg TextMessage) {
	actor := msg.Identity
	end, err := maintenance.ParseEndTime(msg.Text, b.now())
	if err != nil {
		b.reply(ctx, actor, "❌ Invalid time. Formats: 31.12.2026 23:59, 23:59, 30m, 2h, 1d", backMenu())
		return
	}
	b.sessions.SetMaintenanceEnd(actor, end)
	b.sessions.SetState(actor, conversation.AwaitingMaintenanceReason)
	b.reply(ctx, actor, "📝 Send the maintenance reason, or \"no\" to skip:", backMenu())
}

func (b *Bot) entryMaintenanceReason(ctx context.Context, msg TextMessage) {
	actor := msg.Identity
	end := b.sessions.MaintenanceEnd(actor)
	b.sessions.Clear(actor)
	if end.IsZero() {
		b.reply(ctx, actor, "❌ Maintenance setup expired, start over.", b.adminPanelMenu())
		return
	}

	reason := strings.TrimSpace(msg.Text)
	if low := strings.ToLower(reason); low == "no" || low == "-" {
		reason = ""
	}

	name := staffName(msg.Username, msg.FirstName)
	b.maint.Activate(end, reason, name)
	if err := b.archive.RecordMaintenance(ctx, model.MaintenanceRecord{
		Actor:     name,
		StartedAt: b.now(),
		EndsAt:    end,
		Reason:    reason,
	}); err != nil {
		b.log.Warn().Err(err).Msg("archive maintenance failed")
	}

	b.reply(ctx, actor, fmt.Sprintf("🔧 Maintenance mode is ON until %s.", maintenance.FormatClock(end)), b.adminPanelMenu())
	b.notifyAdmins(ctx, actor, fmt.Sprintf("🔧 @%s enabled maintenance mode until %s.", msg.Username, maintenance.FormatClock(end)))
}

func (b *Bot) handleMaintenanceOff(ctx context.Context, actor int64, name string) {
	if !b.maint.Deactivate(name) {
		b.reply(ctx, actor, "ℹ️ Maintenance mode is not active.", b.adminPanelMenu())
		return
	}
	if err := b.archive.CompleteMaintenance(ctx, b.now()); err != nil {
		b.log.Warn().Err(err).Msg("archive maintenance completion failed")
	}
	b.reply(ctx, actor, "✅ Maintenance mode is OFF.", b.adminPanelMenu())
	b.notifyAdmins(ctx, actor, fmt.Sprintf("✅ %s disabled maintenance mode.", name))
}

// auditUser appends a history entry when the target has a record.
// Targets that never talked to the bot are fine to skip.
func (b *Bot) auditUser(ctx context.Context, target int64, text string) {
	err := b.users.Update(target, func(u *model.UserRecord) error {
		b.recordEvent(ctx, u, text)
		return nil
	})
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		b.log.Warn().Err(err).Int64("user", target).Msg("audit entry failed")
	}
}

func (b *Bot) whitelistText() string {
	ids := b.gate.Whitelist()
	if len(ids) == 0 {
		return "📋 The whitelist is empty."
	}
	var sb strings.Builder
	sb.WriteString("📋 WHITELIST:\n\n")
	for _, id := range ids {
		if u, err := b.users.Get(id); err == nil && u.Username != "" {
			fmt.Fprintf(&sb, "• @%s (%d)\n", u.Username, id)
			continue
		}
		fmt.Fprintf(&sb, "• %d\n", id)
	}
	return sb.String()
}

func banErrorText(err error) string {
	switch {
	case errors.Is(err, store.ErrProtected):
		return "🛡 This ID is protected and cannot be banned."
	case errors.Is(err, store.ErrPrivileged):
		return "🛡 Administrators cannot be banned."
	default:
		return "❌ Ban failed."
	}
}

func staffName(username, firstName string) string {
	if username != "" {
		return "@" + username
	}
	if firstName != "" {
		return firstName
	}
	return "console"
}

func statsText(st model.Stats) string {
	var sb strings.Builder
	sb.WriteString("📊 BOT STATISTICS\n\n")
	fmt.Fprintf(&sb, "👥 Users: %d\n", st.Users)
	fmt.Fprintf(&sb, "✅ Accepted referrals: %d\n", st.AcceptedRefs)
	fmt.Fprintf(&sb, "🏆 Users with accepted links: %d\n\n", st.UsersWithAccepted)
	fmt.Fprintf(&sb, "🚫 Blacklisted: %d\n", st.Blacklisted)
	fmt.Fprintf(&sb, "⏳ Temporarily banned: %d\n", st.TempBanned)
	fmt.Fprintf(&sb, "📋 Whitelisted: %d\n", st.Whitelisted)
	fmt.Fprintf(&sb, "👑 Admins: %d\n", st.Admins)
	fmt.Fprintf(&sb, "🛡 Moderators: %d\n", st.Moderators)
	if st.Maintenance {
		sb.WriteString("\n🔧 Maintenance mode is ON\n")
	}
	return sb.String()
}

func maintenanceHistoryText(recs []model.MaintenanceRecord) string {
	if len(recs) == 0 {
		return "📜 No maintenance records yet."
	}
	var sb strings.Builder
	sb.WriteString("📜 MAINTENANCE HISTORY:\n\n")
	for _, r := range recs {
		mark := "⏳"
		if r.Completed {
			mark = "✅"
		}
		fmt.Fprintf(&sb, "%s %s — %s, by %s", mark, maintenance.FormatClock(r.StartedAt), maintenance.FormatClock(r.EndsAt), r.Actor)
		if r.Reason != "" {
			fmt.Fprintf(&sb, " (%s)", r.Reason)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
