// Package referral implements the per-slot link state machine.
// Transitions are pure functions over a LinkSlot; callers hold the
// record lock and decide which slot a transition applies to.
package referral

import (
	"fmt"
	"strings"

	"github.com/mutualref/mutualref/internal/model"
	"github.com/mutualref/mutualref/internal/store"
)

// ValidLink is the platform-link-format predicate: a referral link must
// point at the chat platform and carry a start payload.
func ValidLink(text string) bool {
	return strings.Contains(text, "t.me/") && strings.Contains(text, "?start=")
}

// Submit stores a link. Allowed from Empty, or from Rejected to restart
// the review cycle. The screenshot and reject reason reset with it.
func Submit(s *model.LinkSlot, url string) error {
	if !ValidLink(url) {
		return fmt.Errorf("submit %q: %w", url, store.ErrInvalidInput)
	}
	if s.Status != model.SlotEmpty && s.Status != model.SlotRejected {
		return transitionErr(s.Status, "submit")
	}
	s.URL = url
	s.Screenshot = ""
	s.Reason = model.ReasonNone
	s.Status = model.SlotSubmitted
	return nil
}

// AttachScreenshot moves a submitted slot into review.
func AttachScreenshot(s *model.LinkSlot, mediaRef string) error {
	if s.Status != model.SlotSubmitted {
		return transitionErr(s.Status, "attach screenshot")
	}
	s.Screenshot = mediaRef
	s.Status = model.SlotUnderReview
	return nil
}

// MarkAlreadyMember records that the user declared prior participation.
// The slot is excluded from the submission flow but stays visible in
// status output.
func MarkAlreadyMember(s *model.LinkSlot) error {
	if s.Status != model.SlotEmpty {
		return transitionErr(s.Status, "mark already member")
	}
	s.Status = model.SlotAlreadyMember
	return nil
}

// Skip opts the slot out. Allowed from Empty or from Submitted while no
// screenshot is attached. Slot-2-only policy is enforced by callers.
func Skip(s *model.LinkSlot) error {
	if s.Status != model.SlotEmpty && s.Status != model.SlotSubmitted {
		return transitionErr(s.Status, "skip")
	}
	s.Status = model.SlotSkipped
	return nil
}

// Accept resolves a reviewed slot positively.
func Accept(s *model.LinkSlot) error {
	if s.Status != model.SlotUnderReview {
		return transitionErr(s.Status, "accept")
	}
	s.Status = model.SlotAccepted
	s.Reason = model.ReasonNone
	return nil
}

// Reject resolves a reviewed slot negatively with a reason. The user may
// resubmit afterwards.
func Reject(s *model.LinkSlot, reason model.RejectReason) error {
	if s.Status != model.SlotUnderReview {
		return transitionErr(s.Status, "reject")
	}
	s.Status = model.SlotRejected
	s.Reason = reason
	return nil
}

func transitionErr(from model.SlotStatus, op string) error {
	return fmt.Errorf("%s from %s: %w", op, from, store.ErrInvalidTransition)
}
