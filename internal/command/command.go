// Package command is the typed form of the opaque callback identifiers
// the transport carries. Callback data is parsed exactly once at the
// boundary; everything past it dispatches on Kind.
package command

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mutualref/mutualref/internal/model"
	"github.com/mutualref/mutualref/internal/store"
)

type Kind int

const (
	Unknown Kind = iota
	Start
	ShowRules
	AcceptRules
	RejectRules
	Profile
	Support
	BackToMain
	BackToLinks

	SendLink          // Slot
	SkipLink2
	AlreadyMemberMenu
	AlreadyMember // Slot
	Completed     // Slot

	AdminPanel
	BanMenu
	BanPermanent
	Unban
	TempBan
	BlacklistMenu
	BlacklistAdd
	BlacklistRemove
	GiveModerator
	GiveAdmin
	WhitelistMenu
	WhitelistAdd
	WhitelistRemove
	WhitelistShow
	MaintenanceOn
	MaintenanceOff
	MaintenanceHistory
	Stats

	AcceptLink   // Identity, Slot
	RejectLink   // Identity, Slot, Reason
	SkipSibling  // Identity
	ReviewBan    // Identity
	SupportReply // Identity
)

// Command is a parsed action: Kind plus whichever arguments the kind
// carries. Identity is the target identity, not the actor.
type Command struct {
	Kind     Kind
	Identity int64
	Slot     int
	Reason   model.RejectReason
}

var kindTokens = map[Kind]string{
	Start:              "start",
	ShowRules:          "rules",
	AcceptRules:        "rules_accept",
	RejectRules:        "rules_reject",
	Profile:            "profile",
	Support:            "support",
	BackToMain:         "back_main",
	BackToLinks:        "back_links",
	SendLink:           "send_link",
	SkipLink2:          "skip_link2",
	AlreadyMemberMenu:  "member_menu",
	AlreadyMember:      "member",
	Completed:          "completed",
	AdminPanel:         "admin",
	BanMenu:            "admin_ban_menu",
	BanPermanent:       "admin_ban",
	Unban:              "admin_unban",
	TempBan:            "admin_tempban",
	BlacklistMenu:      "admin_bl_menu",
	BlacklistAdd:       "admin_bl_add",
	BlacklistRemove:    "admin_bl_del",
	GiveModerator:      "admin_moder",
	GiveAdmin:          "admin_admin",
	WhitelistMenu:      "admin_wl_menu",
	WhitelistAdd:       "admin_wl_add",
	WhitelistRemove:    "admin_wl_del",
	WhitelistShow:      "admin_wl_show",
	MaintenanceOn:      "admin_maint_on",
	MaintenanceOff:     "admin_maint_off",
	MaintenanceHistory: "admin_maint_hist",
	Stats:              "admin_stats",
	AcceptLink:         "review_accept",
	RejectLink:         "review_reject",
	SkipSibling:        "review_skip",
	ReviewBan:          "review_ban",
	SupportReply:       "support_reply",
}

var tokenKinds = func() map[string]Kind {
	m := make(map[string]Kind, len(kindTokens))
	for k, t := range kindTokens {
		m[t] = k
	}
	return m
}()

var reasonTokens = map[model.RejectReason]string{
	model.ReasonTooManySponsors: "sponsors",
	model.ReasonAlreadyInBot:    "member",
	model.ReasonBadScreenshot:   "screenshot",
	model.ReasonOther:           "other",
}

var tokenReasons = func() map[string]model.RejectReason {
	m := make(map[string]model.RejectReason, len(reasonTokens))
	for r, t := range reasonTokens {
		m[t] = r
	}
	return m
}()

// Encode renders the command as callback data for a menu button.
func (c Command) Encode() string {
	tok := kindTokens[c.Kind]
	switch c.Kind {
	case SendLink, AlreadyMember, Completed:
		return fmt.Sprintf("%s:%d", tok, c.Slot)
	case AcceptLink:
		return fmt.Sprintf("%s:%d:%d", tok, c.Identity, c.Slot)
	case RejectLink:
		return fmt.Sprintf("%s:%d:%d:%s", tok, c.Identity, c.Slot, reasonTokens[c.Reason])
	case SkipSibling, ReviewBan, SupportReply:
		return fmt.Sprintf("%s:%d", tok, c.Identity)
	default:
		return tok
	}
}

// Parse decodes callback data back into a Command.
func Parse(data string) (Command, error) {
	parts := strings.Split(data, ":")
	kind, ok := tokenKinds[parts[0]]
	if !ok {
		return Command{}, fmt.Errorf("callback %q: %w", data, store.ErrInvalidInput)
	}
	c := Command{Kind: kind}

	switch kind {
	case SendLink, AlreadyMember, Completed:
		slot, err := parseSlot(parts, 1)
		if err != nil {
			return Command{}, fmt.Errorf("callback %q: %w", data, err)
		}
		c.Slot = slot
	case SkipSibling, ReviewBan, SupportReply:
		id, err := parseID(parts, 1)
		if err != nil {
			return Command{}, fmt.Errorf("callback %q: %w", data, err)
		}
		c.Identity = id
	case AcceptLink, RejectLink:
		id, err := parseID(parts, 1)
		if err != nil {
			return Command{}, fmt.Errorf("callback %q: %w", data, err)
		}
		slot, err := parseSlot(parts, 2)
		if err != nil {
			return Command{}, fmt.Errorf("callback %q: %w", data, err)
		}
		c.Identity = id
		c.Slot = slot
		if kind == RejectLink {
			if len(parts) < 4 {
				return Command{}, fmt.Errorf("callback %q: %w", data, store.ErrInvalidInput)
			}
			reason, ok := tokenReasons[parts[3]]
			if !ok {
				return Command{}, fmt.Errorf("callback %q: %w", data, store.ErrInvalidInput)
			}
			c.Reason = reason
		}
	}
	return c, nil
}

func parseID(parts []string, i int) (int64, error) {
	if len(parts) <= i {
		return 0, store.ErrInvalidInput
	}
	id, err := strconv.ParseInt(parts[i], 10, 64)
	if err != nil {
		return 0, store.ErrInvalidInput
	}
	return id, nil
}

func parseSlot(parts []string, i int) (int, error) {
	if len(parts) <= i {
		return 0, store.ErrInvalidInput
	}
	slot, err := strconv.Atoi(parts[i])
	if err != nil || (slot != 1 && slot != 2) {
		return 0, store.ErrInvalidInput
	}
	return slot, nil
}
