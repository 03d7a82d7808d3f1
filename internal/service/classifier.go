package service

import (
	"sort"

	"contactlink/internal/models"
)

// Outcome is the classifier verdict for one identify request.
type Outcome string

const (
	OutcomeNewPrimary         Outcome = "new_primary"
	OutcomeMerge              Outcome = "merge"
	OutcomeAttach             Outcome = "attach"
	OutcomeAttachViaSecondary Outcome = "attach_via_secondary"
)

// Decision is what the resolver must write before assembling the response.
type Decision struct {
	Outcome   Outcome
	PrimaryID int64
	// Demote holds the matched primaries that lose a merge, oldest first.
	Demote []int64
	// CreateSecondary is set when the request carries an email or phone number
	// that none of the matched contacts has.
	CreateSecondary bool
}

// Classify decides how a request relates to the contacts it matched. It is pure:
// the caller owns every repository write.
//
// With no matches the request founds a new primary. With two or more matched
// primaries the oldest wins and the rest are demoted; no contact is created in that
// case. With exactly one matched primary, or with only secondaries matched, the
// request attaches to the resolved primary and a secondary is created only when it
// carries new information.
func Classify(matches []models.Contact, email, phoneNumber string) Decision {
	if len(matches) == 0 {
		return Decision{Outcome: OutcomeNewPrimary}
	}

	var primaries []models.Contact
	for _, c := range matches {
		if c.IsPrimary() {
			primaries = append(primaries, c)
		}
	}

	if len(primaries) == 0 {
		// Every match is a secondary; they point at their primary.
		anchor := oldest(matches)
		d := Decision{Outcome: OutcomeAttachViaSecondary}
		if anchor.LinkedID != nil {
			d.PrimaryID = *anchor.LinkedID
		}
		d.CreateSecondary = hasNewInformation(matches, email, phoneNumber)
		return d
	}

	winner := oldest(primaries)
	if len(primaries) > 1 {
		d := Decision{Outcome: OutcomeMerge, PrimaryID: winner.ID}
		sortSeniority(primaries)
		for _, p := range primaries {
			if p.ID != winner.ID {
				d.Demote = append(d.Demote, p.ID)
			}
		}
		return d
	}

	return Decision{
		Outcome:         OutcomeAttach,
		PrimaryID:       winner.ID,
		CreateSecondary: hasNewInformation(matches, email, phoneNumber),
	}
}

// hasNewInformation reports whether a non-empty incoming email or phone number is
// absent from every matched contact.
func hasNewInformation(matches []models.Contact, email, phoneNumber string) bool {
	existingEmails := make(map[string]struct{}, len(matches))
	existingPhones := make(map[string]struct{}, len(matches))
	for _, c := range matches {
		if c.Email != nil {
			existingEmails[*c.Email] = struct{}{}
		}
		if c.PhoneNumber != nil {
			existingPhones[*c.PhoneNumber] = struct{}{}
		}
	}

	if email != "" {
		if _, ok := existingEmails[email]; !ok {
			return true
		}
	}
	if phoneNumber != "" {
		if _, ok := existingPhones[phoneNumber]; !ok {
			return true
		}
	}
	return false
}

// unmatchedPrimaries reports how many clusters the matches touch and which of those
// clusters' primaries are not among the matches themselves.
func unmatchedPrimaries(matches []models.Contact) (clusters int, missing []int64) {
	heads := make(map[int64]struct{}, len(matches))
	for _, c := range matches {
		if c.IsPrimary() {
			heads[c.ID] = struct{}{}
		}
	}
	for _, c := range matches {
		if c.IsPrimary() || c.LinkedID == nil {
			continue
		}
		if _, ok := heads[*c.LinkedID]; !ok {
			heads[*c.LinkedID] = struct{}{}
			missing = append(missing, *c.LinkedID)
		}
	}
	return len(heads), missing
}

// senior orders contacts by creation time, then id.
func senior(a, b models.Contact) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}

func oldest(contacts []models.Contact) models.Contact {
	best := contacts[0]
	for _, c := range contacts[1:] {
		if senior(c, best) {
			best = c
		}
	}
	return best
}

func sortSeniority(contacts []models.Contact) {
	sort.SliceStable(contacts, func(i, j int) bool {
		return senior(contacts[i], contacts[j])
	})
}
