package referral

import (
	"fmt"
	"strings"

	"github.com/mutualref/mutualref/internal/model"
)

// StatusLine renders one slot for status and review notices.
func StatusLine(p model.Partner, s model.LinkSlot) string {
	switch s.Status {
	case model.SlotAccepted:
		return fmt.Sprintf("✅ %s: ACCEPTED", p.Name)
	case model.SlotRejected:
		return fmt.Sprintf("❌ %s: REJECTED (%s)", p.Name, s.Reason)
	case model.SlotAlreadyMember:
		return fmt.Sprintf("🔄 %s: ALREADY A MEMBER", p.Name)
	case model.SlotSkipped:
		return fmt.Sprintf("⏭ %s: SKIPPED", p.Name)
	case model.SlotUnderReview:
		return fmt.Sprintf("🔍 %s: UNDER REVIEW", p.Name)
	default:
		return fmt.Sprintf("⏳ %s: PENDING", p.Name)
	}
}

// StatusText renders both slots, one line each.
func StatusText(u model.UserRecord, partners [2]model.Partner) string {
	var b strings.Builder
	for i, p := range partners {
		b.WriteString(StatusLine(p, u.Slots[i]))
		b.WriteString("\n")
	}
	return b.String()
}
