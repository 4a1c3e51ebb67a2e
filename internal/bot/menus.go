package bot

import (
	"fmt"

	"github.com/mutualref/mutualref/internal/command"
	"github.com/mutualref/mutualref/internal/notify"
)

func btn(label string, kind command.Kind) notify.Button {
	return notify.Button{Label: label, Command: command.Command{Kind: kind}}
}

func slotBtn(label string, kind command.Kind, slot int) notify.Button {
	return notify.Button{Label: label, Command: command.Command{Kind: kind, Slot: slot}}
}

func (b *Bot) mainMenu(id int64) *notify.Menu {
	m := &notify.Menu{}
	m.Row(btn("🚀 Start", command.Start)).
		Row(btn("📖 Rules", command.ShowRules)).
		Row(btn("👤 Profile", command.Profile)).
		Row(btn("🆘 Support", command.Support))
	if b.gate.IsModerator(id) {
		m.Row(btn("⚙️ Admin panel", command.AdminPanel))
	}
	return m
}

func backMenu() *notify.Menu {
	return (&notify.Menu{}).Row(btn("◀️ Back", command.BackToMain))
}

func backToLinksMenu() *notify.Menu {
	return (&notify.Menu{}).Row(btn("◀️ Back", command.BackToLinks))
}

func rulesMenu() *notify.Menu {
	return (&notify.Menu{}).
		Row(btn("✅ I accept the rules", command.AcceptRules)).
		Row(btn("❌ I do not accept", command.RejectRules)).
		Row(btn("◀️ Back", command.BackToMain))
}

// linksMenu varies with progress: before link 1 it offers the
// already-a-member shortcut, after it the skip and completion options.
func linksMenu(hasLink1 bool) *notify.Menu {
	m := &notify.Menu{}
	if !hasLink1 {
		m.Row(slotBtn("📎 Send link #1", command.SendLink, 1)).
			Row(btn("🔄 I was already in a bot", command.AlreadyMemberMenu))
	} else {
		m.Row(slotBtn("📎 Send link #2", command.SendLink, 2)).
			Row(btn("✅ Do not send a second link", command.SkipLink2)).
			Row(slotBtn("📸 I completed link #1", command.Completed, 1))
	}
	m.Row(btn("◀️ Back", command.BackToMain))
	return m
}

func (b *Bot) alreadyMemberMenu() *notify.Menu {
	return (&notify.Menu{}).
		Row(slotBtn(fmt.Sprintf("#1 — %s", b.partners[0].Name), command.AlreadyMember, 1)).
		Row(slotBtn(fmt.Sprintf("#2 — %s", b.partners[1].Name), command.AlreadyMember, 2)).
		Row(btn("◀️ Back", command.BackToLinks))
}

func completionMenu() *notify.Menu {
	return (&notify.Menu{}).
		Row(slotBtn("✅ Link #1 completed", command.Completed, 1)).
		Row(slotBtn("✅ Link #2 completed", command.Completed, 2)).
		Row(btn("◀️ Back", command.BackToLinks))
}

func (b *Bot) adminPanelMenu() *notify.Menu {
	maintLabel := "🔧 Maintenance ON"
	maintKind := command.MaintenanceOn
	if b.maint.Status().Active {
		maintLabel = "✅ Maintenance OFF"
		maintKind = command.MaintenanceOff
	}
	return (&notify.Menu{}).
		Row(btn("🚫 Bans", command.BanMenu), btn("📛 Blacklist", command.BlacklistMenu)).
		Row(btn("📋 Whitelist", command.WhitelistMenu), btn("📊 Statistics", command.Stats)).
		Row(btn("🛡 Give moderator", command.GiveModerator), btn("👑 Give admin", command.GiveAdmin)).
		Row(btn(maintLabel, maintKind), btn("📜 Maintenance history", command.MaintenanceHistory)).
		Row(btn("◀️ Back", command.BackToMain))
}

func banMenu() *notify.Menu {
	return (&notify.Menu{}).
		Row(btn("🚫 Permanent ban", command.BanPermanent)).
		Row(btn("⏳ Temporary ban", command.TempBan)).
		Row(btn("✅ Unban", command.Unban)).
		Row(btn("◀️ Back", command.AdminPanel))
}

func blacklistMenu() *notify.Menu {
	return (&notify.Menu{}).
		Row(btn("➕ Add", command.BlacklistAdd)).
		Row(btn("➖ Remove", command.BlacklistRemove)).
		Row(btn("◀️ Back", command.AdminPanel))
}

func whitelistMenu() *notify.Menu {
	return (&notify.Menu{}).
		Row(btn("➕ Add", command.WhitelistAdd)).
		Row(btn("➖ Remove", command.WhitelistRemove)).
		Row(btn("👀 Show", command.WhitelistShow)).
		Row(btn("◀️ Back", command.AdminPanel))
}

func supportReplyMenu(target int64) *notify.Menu {
	return (&notify.Menu{}).Row(notify.Button{
		Label:   "💬 Reply",
		Command: command.Command{Kind: command.SupportReply, Identity: target},
	})
}
