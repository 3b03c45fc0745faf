package domain

// EventKind is a request to move a case forward.
type EventKind string

const (
	EventFormFilled            EventKind = "FORM_FILLED"
	EventFormSubmitted         EventKind = "FORM_SUBMITTED"
	EventLegalStatusChosen     EventKind = "LEGAL_STATUS_CHOSEN"
	EventStaffDecidesForm      EventKind = "STAFF_DECIDES_FORM"
	EventStaffDecidesInterview EventKind = "STAFF_DECIDES_INTERVIEW"
)

// Decision is a staff verdict.
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

// Event carries the kind plus its payload.
type Event struct {
	Kind        EventKind
	Draft       *Draft      // FormSubmitted
	LegalStatus LegalStatus // LegalStatusChosen
	Decision    Decision    // Staff decisions
	// ExpectedStage, when set, must match the current stage or the attempt is stale.
	ExpectedStage Stage
}

// FormFilled requests the form modal.
func FormFilled() Event {
	return Event{Kind: EventFormFilled}
}

// FormSubmitted carries the submitted form fields.
func FormSubmitted(d Draft) Event {
	return Event{Kind: EventFormSubmitted, Draft: &d}
}

// LegalStatusChosen carries the selected legal status.
func LegalStatusChosen(s LegalStatus) Event {
	return Event{Kind: EventLegalStatusChosen, LegalStatus: s}
}

// StaffDecidesForm carries a form review verdict.
func StaffDecidesForm(d Decision) Event {
	return Event{Kind: EventStaffDecidesForm, Decision: d}
}

// StaffDecidesInterview carries an interview verdict.
func StaffDecidesInterview(d Decision) Event {
	return Event{Kind: EventStaffDecidesInterview, Decision: d}
}

// IsStaffDecision reports whether the event needs staff rank.
func (e Event) IsStaffDecision() bool {
	return e.Kind == EventStaffDecidesForm || e.Kind == EventStaffDecidesInterview
}

// Actor is the identity performing an action.
type Actor struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	RoleIDs []string `json:"role_ids"`
	// IsAdmin is set by the hosting layer when the actor holds administrator rights.
	IsAdmin bool `json:"is_admin"`
}
