package domain

import "sort"

// Facts are the relationship facts that bear on one account/target pair
type Facts struct {
	Blocked bool // account is blocked by target
	Private bool // target's content is private
	Follows bool // account follows target
}

// Valid predicts whether the account can currently access the target's content.
func (f Facts) Valid() bool {
	return !f.Blocked && (!f.Private || f.Follows)
}

// Signals are the visibility signals carried by an identity lookup response.
// Each one independently asserts (present) or retracts (absent) its fact.
type Signals struct {
	BlockedBy bool
	Protected bool
	Following bool
}

// Facts converts the signals to the facts they assert
func (s Signals) Facts() Facts {
	return Facts{
		Blocked: s.BlockedBy,
		Private: s.Protected,
		Follows: s.Following,
	}
}

// Visible is the verdict a probe returns for these signals
func (s Signals) Visible() bool {
	return s.Facts().Valid()
}

// Candidate is an account paired with its derived validity for one target
type Candidate struct {
	Account Account
	Valid   bool
}

// SortCandidates orders valid accounts before invalid ones, then by ascending priority.
// Validity always dominates priority.
func SortCandidates(candidates []Candidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Valid != candidates[j].Valid {
			return candidates[i].Valid
		}
		return candidates[i].Account.Priority < candidates[j].Account.Priority
	})
}

// Partition splits ordered candidates into the valid and invalid groups, preserving order.
func Partition(candidates []Candidate) (valid, invalid []Account) {
	for _, c := range candidates {
		if c.Valid {
			valid = append(valid, c.Account)
		} else {
			invalid = append(invalid, c.Account)
		}
	}
	return valid, invalid
}
