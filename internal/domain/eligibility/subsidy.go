// Package eligibility computes derived subsidy and attendance-validity
// values from a member's recorded history. It is pure: no I/O, no clocks.
package eligibility

import (
	domain "mms/internal/domain/member"
)

// Subsidy rates awarded across the membership classes.
const (
	RateExco      = 95
	RateFloor     = 10
	RateAssociate = 10
)

// Tier sequences per membership class, in award order. Ordinary B's sequence
// is a prefix-compatible subset of Ordinary A's: a member upgraded from B to
// A keeps already-used tiers consumed and continues from the next unused one.
var (
	ordinaryATiers = []int{90, 70, 50, RateFloor}
	ordinaryBTiers = []int{70, RateFloor}
)

// ValidRates are the only subsidy percentages that can ever be awarded.
var ValidRates = []int{95, 90, 70, 50, 10}

// IsValidRate reports whether rate is one of the recognised subsidy tiers.
func IsValidRate(rate int) bool {
	for _, r := range ValidRates {
		if r == rate {
			return true
		}
	}
	return false
}

// NextSubsidyRate returns the next subsidy percentage for a member of the
// given class with the given usage history.
// PRE: history lists subsidy percentages already consumed, in usage order
// POST: returns 95 for exco, 10 for associates, else the first tier of the
//
//	class sequence not present in history, or the floor once exhausted
//
// INVARIANT: scanning the sequence (not counting uses) keeps the result
// correct across mid-history class upgrades
func NextSubsidyRate(membershipType string, isExco bool, history []int) int {
	if isExco {
		return RateExco
	}
	switch membershipType {
	case domain.TypeAssociate:
		return RateAssociate
	case domain.TypeOrdinaryB:
		return nextUnusedTier(ordinaryBTiers, history)
	case domain.TypeOrdinaryA:
		return nextUnusedTier(ordinaryATiers, history)
	}
	return RateFloor
}

func nextUnusedTier(tiers []int, history []int) int {
	used := make(map[int]bool, len(history))
	for _, h := range history {
		used[h] = true
	}
	for _, tier := range tiers {
		if !used[tier] {
			return tier
		}
	}
	return tiers[len(tiers)-1]
}

// MemberNextSubsidyRate returns the next subsidy rate for m, honoring a
// manual override when one is set.
// INVARIANT: an admin-set subsidyOverride always wins over the computed rate
func MemberNextSubsidyRate(m *domain.Member) int {
	if m.SubsidyOverride != nil {
		return *m.SubsidyOverride
	}
	return NextSubsidyRate(m.MembershipType, m.IsExco, m.SubsidyHistory())
}

// ScholarshipEligible reports whether a member can still be awarded the
// scholarship: Ordinary A members who have not yet received it.
func ScholarshipEligible(m *domain.Member) bool {
	return m.MembershipType == domain.TypeOrdinaryA && !m.ScholarshipAwarded
}
