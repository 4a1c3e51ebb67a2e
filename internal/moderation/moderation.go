// Package moderation holds the staff-facing review workflow. Every
// operation checks the actor's role, commits the state change, and only
// then sends notifications.
package moderation

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/mutualref/mutualref/internal/access"
	"github.com/mutualref/mutualref/internal/command"
	"github.com/mutualref/mutualref/internal/maintenance"
	"github.com/mutualref/mutualref/internal/model"
	"github.com/mutualref/mutualref/internal/notify"
	"github.com/mutualref/mutualref/internal/referral"
	"github.com/mutualref/mutualref/internal/store"
)

type Workflow struct {
	users    store.UserStore
	gate     *access.Gate
	maint    *maintenance.Controller
	send     notify.Dispatcher
	archive  store.Archive
	partners [2]model.Partner
	log      zerolog.Logger

	now func() time.Time
}

func New(users store.UserStore, gate *access.Gate, maint *maintenance.Controller, send notify.Dispatcher, archive store.Archive, partners [2]model.Partner, log zerolog.Logger) *Workflow {
	return &Workflow{
		users:    users,
		gate:     gate,
		maint:    maint,
		send:     send,
		archive:  archive,
		partners: partners,
		log:      log,
		now:      time.Now,
	}
}

// ReviewMenu builds the staff menu for one slot under review. offerSkip
// adds the "only one link" shortcut used while the sibling slot still
// has no screenshot.
func ReviewMenu(target int64, slot int, offerSkip bool) *notify.Menu {
	m := &notify.Menu{}
	m.Row(notify.Button{
		Label:   fmt.Sprintf("✅ Accept link #%d", slot),
		Command: command.Command{Kind: command.AcceptLink, Identity: target, Slot: slot},
	})
	m.Row(
		notify.Button{
			Label:   "📊 >6 sponsors",
			Command: command.Command{Kind: command.RejectLink, Identity: target, Slot: slot, Reason: model.ReasonTooManySponsors},
		},
		notify.Button{
			Label:   "🔄 Already in bot",
			Command: command.Command{Kind: command.RejectLink, Identity: target, Slot: slot, Reason: model.ReasonAlreadyInBot},
		},
	)
	m.Row(
		notify.Button{
			Label:   "❌ Bad screenshot",
			Command: command.Command{Kind: command.RejectLink, Identity: target, Slot: slot, Reason: model.ReasonBadScreenshot},
		},
		notify.Button{
			Label:   "🤔 Other",
			Command: command.Command{Kind: command.RejectLink, Identity: target, Slot: slot, Reason: model.ReasonOther},
		},
	)
	if offerSkip {
		m.Row(notify.Button{
			Label:   "⏭ Skip (one link only)",
			Command: command.Command{Kind: command.SkipSibling, Identity: target},
		})
	}
	m.Row(notify.Button{
		Label:   "🚫 Ban",
		Command: command.Command{Kind: command.ReviewBan, Identity: target},
	})
	return m
}

// AcceptLink resolves the slot positively, bumps the accepted counter,
// notifies the user, and either surfaces the sibling slot to the actor
// or sends the consolidated status to both sides.
func (w *Workflow) AcceptLink(ctx context.Context, actor, target int64, slot int) error {
	if !w.gate.IsModerator(actor) {
		return store.ErrUnauthorized
	}

	var after model.UserRecord
	err := w.users.Update(target, func(u *model.UserRecord) error {
		if err := referral.Accept(u.Slot(slot)); err != nil {
			return err
		}
		u.AcceptedRefs++
		w.recordEvent(ctx, u, fmt.Sprintf("link #%d accepted by staff", slot))
		after = *u
		return nil
	})
	if err != nil {
		return err
	}

	w.notify(ctx, target, fmt.Sprintf("✅ Link #%d (%s) ACCEPTED!\nThanks for completing it!", slot, w.partners[slot-1].Name))

	if sibling, ok := pendingSibling(after, slot); ok {
		w.notifyMenu(ctx, actor,
			fmt.Sprintf("✅ Link #%d accepted!\n\nNow review link #%d:", slot, sibling),
			ReviewMenu(target, sibling, false))
		return nil
	}
	w.sendConsolidated(ctx, actor, after)
	return nil
}

// RejectLink resolves the slot negatively with a reason. The user may
// fix and resubmit; the sibling slot is surfaced next when it is still
// waiting for review.
func (w *Workflow) RejectLink(ctx context.Context, actor, target int64, slot int, reason model.RejectReason) error {
	if !w.gate.IsModerator(actor) {
		return store.ErrUnauthorized
	}

	var after model.UserRecord
	err := w.users.Update(target, func(u *model.UserRecord) error {
		if err := referral.Reject(u.Slot(slot), reason); err != nil {
			return err
		}
		w.recordEvent(ctx, u, fmt.Sprintf("link #%d rejected: %s", slot, reason))
		after = *u
		return nil
	})
	if err != nil {
		return err
	}

	w.notify(ctx, target, fmt.Sprintf("❌ Link #%d (%s) REJECTED\n\nReason: %s\n\nPlease fix it and submit again.", slot, w.partners[slot-1].Name, reason))

	if sibling, ok := pendingSibling(after, slot); ok {
		w.notifyMenu(ctx, actor,
			fmt.Sprintf("❌ Link #%d rejected\n\nNow review link #%d:", slot, sibling),
			ReviewMenu(target, sibling, false))
	}
	return nil
}

// SkipSibling force-skips the unsubmitted sibling slot when staff
// decide a single-link review is enough, then sends the consolidated
// status.
func (w *Workflow) SkipSibling(ctx context.Context, actor, target int64) error {
	if !w.gate.IsModerator(actor) {
		return store.ErrUnauthorized
	}

	var after model.UserRecord
	err := w.users.Update(target, func(u *model.UserRecord) error {
		for num := 2; num >= 1; num-- {
			s := u.Slot(num)
			if s.Status == model.SlotEmpty || (s.Status == model.SlotSubmitted && s.Screenshot == "") {
				if err := referral.Skip(s); err != nil {
					return err
				}
				w.recordEvent(ctx, u, fmt.Sprintf("staff skipped link #%d", num))
				after = *u
				return nil
			}
		}
		return store.ErrInvalidTransition
	})
	if err != nil {
		return err
	}

	w.sendConsolidated(ctx, actor, after)
	return nil
}

// BanFromReview is the permanent ban shortcut on the review menu. The
// protected-identity and admin-immunity rules apply as everywhere else.
func (w *Workflow) BanFromReview(ctx context.Context, actor, target int64) error {
	if !w.gate.IsModerator(actor) {
		return store.ErrUnauthorized
	}
	if err := w.gate.Ban(target); err != nil {
		return err
	}
	w.notify(ctx, target, "⛔ You have been banned by the administrator.")
	w.notify(ctx, actor, fmt.Sprintf("✅ User %d added to the blacklist", target))
	return nil
}

// Stats snapshots the totals for the staff stats view.
func (w *Workflow) Stats(actor int64) (model.Stats, error) {
	if !w.gate.IsModerator(actor) {
		return model.Stats{}, store.ErrUnauthorized
	}
	var st model.Stats
	for _, u := range w.users.List() {
		st.Users++
		st.AcceptedRefs += u.AcceptedRefs
		if u.Slots[0].Status == model.SlotAccepted || u.Slots[1].Status == model.SlotAccepted {
			st.UsersWithAccepted++
		}
	}
	st.Blacklisted, st.TempBanned, st.Whitelisted, st.Admins, st.Moderators = w.gate.Counts()
	st.Maintenance = w.maint.Status().Active
	return st, nil
}

// pendingSibling reports the other slot's number when it still awaits
// review. Either unresolved slot may legally be reviewed in any order;
// this only drives what is surfaced to staff next.
func pendingSibling(u model.UserRecord, slot int) (int, bool) {
	other := 3 - slot
	if u.Slot(other).Status == model.SlotUnderReview {
		return other, true
	}
	return 0, false
}

func (w *Workflow) sendConsolidated(ctx context.Context, actor int64, u model.UserRecord) {
	status := referral.StatusText(u, w.partners)
	w.notify(ctx, u.ID, fmt.Sprintf("📊 REVIEW RESULT:\n\n%s", status))
	w.notify(ctx, actor, fmt.Sprintf("✅ All links of @%s (%d) processed!\n\n%s", u.Username, u.ID, status))
}

func (w *Workflow) recordEvent(ctx context.Context, u *model.UserRecord, text string) {
	entry := model.HistoryEntry{At: w.now(), Text: text}
	u.History = append(u.History, entry)
	if err := w.archive.RecordEvent(ctx, u.ID, entry); err != nil {
		w.log.Warn().Err(err).Int64("user", u.ID).Msg("archive event failed")
	}
}

func (w *Workflow) notify(ctx context.Context, id int64, text string) {
	w.notifyMenu(ctx, id, text, nil)
}

func (w *Workflow) notifyMenu(ctx context.Context, id int64, text string, menu *notify.Menu) {
	if err := w.send.SendText(ctx, id, text, menu); err != nil {
		w.log.Warn().Err(err).Int64("user", id).Msg("notify failed")
	}
}
