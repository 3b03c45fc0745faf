// Package dispatch decodes the action identifiers attached to prompt components.
package dispatch

import "strings"

// Verb is the action a component triggers.
type Verb string

const (
	VerbRequest          Verb = "request_wl"
	VerbFillForm         Verb = "fill_form"
	VerbSubmitForm       Verb = "wl_form_modal"
	VerbLegalStatus      Verb = "legal_status"
	VerbApproveForm      Verb = "validate_wl"
	VerbRejectForm       Verb = "reject_wl"
	VerbApproveInterview Verb = "validate_interview"
	VerbRejectInterview  Verb = "reject_interview"
)

// Form field identifiers of the whitelist modal.
const (
	FieldLastName      = "nom_personnage"
	FieldFirstName     = "prenom_personnage"
	FieldBackgroundURL = "background_link"
)

var caseVerbs = map[Verb]bool{
	VerbFillForm:         true,
	VerbSubmitForm:       true,
	VerbLegalStatus:      true,
	VerbApproveForm:      true,
	VerbRejectForm:       true,
	VerbApproveInterview: true,
	VerbRejectInterview:  true,
}

// Action is a decoded action identifier.
type Action struct {
	Verb        Verb
	ApplicantID string
}

// Decode parses an action identifier. The applicant id is the segment after
// the last underscore. Unknown identifiers return ok=false.
func Decode(customID string) (Action, bool) {
	if Verb(customID) == VerbRequest {
		return Action{Verb: VerbRequest}, true
	}
	i := strings.LastIndexByte(customID, '_')
	if i <= 0 || i == len(customID)-1 {
		return Action{}, false
	}
	verb := Verb(customID[:i])
	if !caseVerbs[verb] {
		return Action{}, false
	}
	return Action{Verb: verb, ApplicantID: customID[i+1:]}, true
}

// Encode builds the identifier of a case-scoped action.
func Encode(verb Verb, applicantID string) string {
	if verb == VerbRequest {
		return string(VerbRequest)
	}
	return string(verb) + "_" + applicantID
}

// String returns the encoded identifier.
func (a Action) String() string {
	return Encode(a.Verb, a.ApplicantID)
}

// IsStaff reports whether the action is a staff decision.
func (a Action) IsStaff() bool {
	switch a.Verb {
	case VerbApproveForm, VerbRejectForm, VerbApproveInterview, VerbRejectInterview:
		return true
	}
	return false
}

// Approves reports whether a staff action is an approval.
func (a Action) Approves() bool {
	return a.Verb == VerbApproveForm || a.Verb == VerbApproveInterview
}
