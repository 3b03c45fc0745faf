package domain

import "time"

// Stage is the position of a case in the approval workflow.
type Stage string

const (
	StageRequested           Stage = "REQUESTED"
	StageAwaitingForm        Stage = "AWAITING_FORM"
	StageAwaitingLegalStatus Stage = "AWAITING_LEGAL_STATUS"
	StageAwaitingFormReview  Stage = "AWAITING_FORM_REVIEW"
	StageAwaitingInterview   Stage = "AWAITING_INTERVIEW"
	StageApproved            Stage = "APPROVED"
	StageRejected            Stage = "REJECTED"
)

// StageTransitions lists the only legal edges between stages.
var StageTransitions = map[string][]string{
	string(StageRequested):           {string(StageAwaitingForm)},
	string(StageAwaitingForm):        {string(StageAwaitingLegalStatus)},
	string(StageAwaitingLegalStatus): {string(StageAwaitingFormReview)},
	string(StageAwaitingFormReview):  {string(StageAwaitingInterview), string(StageRejected)},
	string(StageAwaitingInterview):   {string(StageApproved), string(StageRejected)},
	string(StageApproved):            {},
	string(StageRejected):            {},
}

// IsTerminal reports whether the stage ends the case.
func (s Stage) IsTerminal() bool {
	return s == StageApproved || s == StageRejected
}

// LegalStatus is the applicant's declared character alignment.
type LegalStatus string

const (
	LegalStatusLegal   LegalStatus = "legal"
	LegalStatusIllegal LegalStatus = "illegal"
)

// Valid reports whether s is one of the selectable statuses.
func (s LegalStatus) Valid() bool {
	return s == LegalStatusLegal || s == LegalStatusIllegal
}

// Applicant identifies the member who opened a case.
type Applicant struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Draft is the working copy of a submitted form, kept until the legal status is chosen.
type Draft struct {
	LastName      string      `json:"last_name"`
	FirstName     string      `json:"first_name"`
	BackgroundURL string      `json:"background_url"`
	ChannelID     string      `json:"channel_id"`
	LegalStatus   LegalStatus `json:"legal_status,omitempty"`
	CreatedAt     time.Time   `json:"created_at"`
}

// Submission is the completed form staff review.
type Submission struct {
	LastName      string      `json:"last_name"`
	FirstName     string      `json:"first_name"`
	BackgroundURL string      `json:"background_url"`
	LegalStatus   LegalStatus `json:"legal_status"`
	SubmittedAt   time.Time   `json:"submitted_at"`
}

// ApplicationCase is one applicant's whitelist application within a tenant.
type ApplicationCase struct {
	ID         string      `json:"id"`
	TenantID   string      `json:"tenant_id"`
	Applicant  Applicant   `json:"applicant"`
	ChannelID  string      `json:"channel_id"`
	Stage      Stage       `json:"stage"`
	Submission *Submission `json:"submission,omitempty"`
	OpenedAt   time.Time   `json:"opened_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}
