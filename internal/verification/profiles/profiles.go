// Package profiles holds the per-program protocol configuration. Five
// programs share one client; everything that used to differ between their
// flows lives here as data.
package profiles

import (
	"veriflow/internal/verification/models"

	dErrors "veriflow/pkg/domain-errors"
)

// Config drives the verification client through one program's step path.
type Config struct {
	Type        models.ProfileType
	DisplayName string

	// ProgramID is the upstream program the flow verifies against.
	ProgramID string

	Role models.Role

	// PersonalInfoStep names the first protocol step. Student and teacher
	// programs use different step names upstream.
	PersonalInfoStep string

	// Documents lists the proof artifacts submitted, in the order their
	// upload URLs are requested. Order is part of the wire contract.
	Documents []models.DocumentKind

	// SkipSSO controls whether the client issues the SSO-removal step when
	// the prior response declares an SSO step outstanding.
	SkipSSO bool

	// Resumable programs can restart a session from an external user ID
	// alone, skipping personal info collection entirely.
	Resumable bool

	// PollsRewardCode programs issue a code asynchronously after review;
	// the orchestrator polls a bounded window for it.
	PollsRewardCode bool

	// Plausible applicant age range for the role.
	MinAge, MaxAge int

	EmailDomains []string
	Institutions []models.Institution
}

// ForType returns the configuration for a profile type.
func ForType(t models.ProfileType) (Config, error) {
	cfg, ok := catalog[t]
	if !ok {
		return Config{}, dErrors.Newf(dErrors.CodeInvalidInput, "no profile configuration for %q", t)
	}
	return cfg, nil
}

// All returns every program configuration in a stable order.
func All() []Config {
	out := make([]Config, 0, len(catalog))
	for _, t := range models.AllProfileTypes() {
		out = append(out, catalog[t])
	}
	return out
}

var defaultEmailDomains = []string{"gmail.com", "outlook.com", "yahoo.com"}

var catalog = map[models.ProfileType]Config{
	models.ProfileGeminiOnePro: {
		Type:             models.ProfileGeminiOnePro,
		DisplayName:      "Gemini One Pro",
		ProgramID:        "67c8c14f3b1f2a5e9d4b21c7",
		Role:             models.RoleTeacher,
		PersonalInfoStep: "collectTeacherPersonalInfo",
		Documents:        []models.DocumentKind{models.DocumentPDF, models.DocumentPNG},
		SkipSSO:          true,
		MinAge:           25,
		MaxAge:           60,
		EmailDomains:     defaultEmailDomains,
		Institutions: []models.Institution{
			{ID: "3015970", IDExtended: "3015970-K12", Name: "Lincoln Unified School District"},
			{ID: "3022418", IDExtended: "3022418-K12", Name: "Riverside Preparatory Academy"},
			{ID: "3047765", IDExtended: "3047765-K12", Name: "Jefferson County Public Schools"},
		},
	},
	models.ProfileTeacherK12: {
		Type:             models.ProfileTeacherK12,
		DisplayName:      "ChatGPT Teacher K12",
		ProgramID:        "689b5b2e7f1d3c44a81e09f2",
		Role:             models.RoleTeacher,
		PersonalInfoStep: "collectTeacherPersonalInfo",
		Documents:        []models.DocumentKind{models.DocumentPDF, models.DocumentPNG},
		SkipSSO:          true,
		MinAge:           25,
		MaxAge:           60,
		EmailDomains:     defaultEmailDomains,
		Institutions: []models.Institution{
			{ID: "3061225", IDExtended: "3061225-K12", Name: "Maple Grove Elementary School"},
			{ID: "3094412", IDExtended: "3094412-K12", Name: "Harrison Central High School"},
			{ID: "3108863", IDExtended: "3108863-K12", Name: "Oakdale Joint Unified School District"},
		},
	},
	models.ProfileSpotifyStudent: {
		Type:             models.ProfileSpotifyStudent,
		DisplayName:      "Spotify Student",
		ProgramID:        "5e0e0ebc9cb4761a1c488d56",
		Role:             models.RoleStudent,
		PersonalInfoStep: "collectStudentPersonalInfo",
		Documents:        []models.DocumentKind{models.DocumentPNG},
		SkipSSO:          true,
		MinAge:           16,
		MaxAge:           30,
		EmailDomains:     defaultEmailDomains,
		Institutions: []models.Institution{
			{ID: "2876453", IDExtended: "2876453-US", Name: "Ohio State University"},
			{ID: "2890114", IDExtended: "2890114-US", Name: "University of Central Florida"},
			{ID: "2901327", IDExtended: "2901327-US", Name: "Arizona State University"},
		},
	},
	models.ProfileYouTubeStudent: {
		Type:             models.ProfileYouTubeStudent,
		DisplayName:      "YouTube Student Premium",
		ProgramID:        "61a9862f8a14a01f5d1bca22",
		Role:             models.RoleStudent,
		PersonalInfoStep: "collectStudentPersonalInfo",
		Documents:        []models.DocumentKind{models.DocumentPNG},
		SkipSSO:          true,
		MinAge:           16,
		MaxAge:           30,
		EmailDomains:     defaultEmailDomains,
		Institutions: []models.Institution{
			{ID: "2913356", IDExtended: "2913356-US", Name: "Georgia State University"},
			{ID: "2925549", IDExtended: "2925549-US", Name: "University of Houston"},
			{ID: "2938771", IDExtended: "2938771-US", Name: "Portland Community College"},
		},
	},
	models.ProfileBoltTeacher: {
		Type:             models.ProfileBoltTeacher,
		DisplayName:      "Bolt.new Teacher",
		ProgramID:        "68cf2d1ab93e4f7c2a6d0e81",
		Role:             models.RoleTeacher,
		PersonalInfoStep: "collectTeacherPersonalInfo",
		Documents:        []models.DocumentKind{models.DocumentPDF, models.DocumentPNG},
		SkipSSO:          false,
		Resumable:        true,
		PollsRewardCode:  true,
		MinAge:           25,
		MaxAge:           60,
		EmailDomains:     defaultEmailDomains,
		Institutions: []models.Institution{
			{ID: "3127784", IDExtended: "3127784-K12", Name: "Westbrook Independent School District"},
			{ID: "3139001", IDExtended: "3139001-K12", Name: "Clearwater Montessori Academy"},
			{ID: "3142295", IDExtended: "3142295-K12", Name: "Summit Ridge High School"},
		},
	},
}
