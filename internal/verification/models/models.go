// Package models holds the verification domain types shared by the protocol
// client, poller, orchestrator, and handlers.
package models

import (
	"fmt"

	dErrors "veriflow/pkg/domain-errors"
)

// ProfileType enumerates the supported verification programs. Each has its own
// institution catalog and step-path nuances, configured in the profiles
// package rather than in per-type code.
type ProfileType string

const (
	ProfileGeminiOnePro   ProfileType = "gemini_one_pro"
	ProfileTeacherK12     ProfileType = "chatgpt_teacher_k12"
	ProfileSpotifyStudent ProfileType = "spotify_student"
	ProfileYouTubeStudent ProfileType = "youtube_student"
	ProfileBoltTeacher    ProfileType = "bolt_teacher"
)

// AllProfileTypes lists every supported program in a stable order.
func AllProfileTypes() []ProfileType {
	return []ProfileType{
		ProfileGeminiOnePro,
		ProfileTeacherK12,
		ProfileSpotifyStudent,
		ProfileYouTubeStudent,
		ProfileBoltTeacher,
	}
}

// ParseProfileType validates a profile type string.
func ParseProfileType(s string) (ProfileType, error) {
	t := ProfileType(s)
	for _, known := range AllProfileTypes() {
		if t == known {
			return t, nil
		}
	}
	return "", dErrors.Newf(dErrors.CodeInvalidInput, "unknown profile type %q", s)
}

func (t ProfileType) String() string {
	return string(t)
}

// Role is the applicant role a program verifies.
type Role string

const (
	RoleTeacher Role = "teacher"
	RoleStudent Role = "student"
)

// Step enumerates the session's position in the protocol. Transitions move
// strictly forward; Error is terminal and unrecoverable.
type Step string

const (
	StepInitial               Step = "initial"
	StepPersonalInfoSubmitted Step = "personal_info_submitted"
	StepSsoResolved           Step = "sso_resolved"
	StepUploadURLsRequested   Step = "upload_urls_requested"
	StepDocumentsUploaded     Step = "documents_uploaded"
	StepSuccess               Step = "success"
	StepPending               Step = "pending"
	StepError                 Step = "error"
)

// stepRank orders the forward path. Terminal steps share the highest rank so a
// session can finish from any position.
var stepRank = map[Step]int{
	StepInitial:               0,
	StepPersonalInfoSubmitted: 1,
	StepSsoResolved:           2,
	StepUploadURLsRequested:   3,
	StepDocumentsUploaded:     4,
	StepSuccess:               5,
	StepPending:               5,
	StepError:                 5,
}

// Terminal reports whether no further transition is allowed from this step.
func (s Step) Terminal() bool {
	return s == StepSuccess || s == StepPending || s == StepError
}

// Institution is one entry in a program's school catalog.
type Institution struct {
	ID         string `json:"id"`
	IDExtended string `json:"idExtended"`
	Name       string `json:"name"`
}

// IdentityProfile is one synthetic applicant. DeviceFingerprint is generated
// fresh for every session; reuse across sessions is an anti-abuse signal.
type IdentityProfile struct {
	FirstName         string
	LastName          string
	BirthDate         string // ISO date, age-plausible for the role
	Email             string
	Institution       Institution
	DeviceFingerprint string // 32 lowercase hex characters
}

// FullName returns the display name used in rendered documents.
func (p IdentityProfile) FullName() string {
	return p.FirstName + " " + p.LastName
}

// UploadState tracks a document artifact's upload progress.
type UploadState string

const (
	UploadPending  UploadState = "pending"
	UploadUploaded UploadState = "uploaded"
	UploadFailed   UploadState = "failed"
)

// DocumentKind selects which proof document the renderer produces.
type DocumentKind string

const (
	DocumentPDF DocumentKind = "pdf"
	DocumentPNG DocumentKind = "png"
)

// MimeType returns the deterministic mime type for a document kind.
func (k DocumentKind) MimeType() string {
	switch k {
	case DocumentPDF:
		return "application/pdf"
	case DocumentPNG:
		return "image/png"
	default:
		return "application/octet-stream"
	}
}

// Extension returns the file extension for a document kind.
func (k DocumentKind) Extension() string {
	return string(k)
}

// DocumentArtifact is one rendered proof document. Artifacts are paired with
// upload URLs by position in the request, never by name.
type DocumentArtifact struct {
	FileName  string
	MimeType  string
	Size      int
	Content   []byte
	UploadURL string
	State     UploadState
}

// Session is one in-flight verification attempt. Sessions are transient and
// never outlive the flow that created them.
type Session struct {
	VerificationID string
	ExternalUserID string
	ProfileType    ProfileType
	CurrentStep    Step
	Documents      []*DocumentArtifact
}

// NewSession starts a session at the initial step.
func NewSession(profileType ProfileType) *Session {
	return &Session{
		ProfileType: profileType,
		CurrentStep: StepInitial,
	}
}

// Transition advances the session to the given step, enforcing the
// strictly-forward invariant. Error is always reachable and always final.
func (s *Session) Transition(to Step) error {
	if s.CurrentStep == StepError {
		return fmt.Errorf("session %s is in terminal error state", s.VerificationID)
	}
	if to == StepError {
		s.CurrentStep = StepError
		return nil
	}
	if s.CurrentStep.Terminal() {
		return fmt.Errorf("session %s already terminal at %s", s.VerificationID, s.CurrentStep)
	}
	if stepRank[to] <= stepRank[s.CurrentStep] && !to.Terminal() {
		return fmt.Errorf("session %s cannot move backwards from %s to %s", s.VerificationID, s.CurrentStep, to)
	}
	s.CurrentStep = to
	return nil
}

// Outcome is the single result of an end-to-end flow. Success with Pending
// set means documents were accepted and review has not issued a code yet.
type Outcome struct {
	Success        bool   `json:"success"`
	Pending        bool   `json:"pending"`
	Message        string `json:"message,omitempty"`
	RewardCode     string `json:"reward_code,omitempty"`
	RedirectURL    string `json:"redirect_url,omitempty"`
	VerificationID string `json:"verification_id,omitempty"`
	CurrentStep    string `json:"current_step,omitempty"`
}

// Failure builds the failure outcome every error path collapses into.
func Failure(verificationID, message string) *Outcome {
	return &Outcome{
		Success:        false,
		Message:        message,
		VerificationID: verificationID,
	}
}
