package client

// Wire payloads for the remote verification protocol. Field names follow the
// upstream JSON contract exactly.

type organizationPayload struct {
	ID         string `json:"id"`
	IDExtended string `json:"idExtended"`
	Name       string `json:"name"`
}

type metadataPayload struct {
	MarketConsentValue bool   `json:"marketConsentValue"`
	RefererURL         string `json:"refererUrl"`
	VerificationID     string `json:"verificationId"`
	SubmissionOptIn    string `json:"submissionOptIn"`
}

type personalInfoRequest struct {
	FirstName             string              `json:"firstName"`
	LastName              string              `json:"lastName"`
	BirthDate             string              `json:"birthDate"`
	Email                 string              `json:"email"`
	PhoneNumber           string              `json:"phoneNumber"`
	Organization          organizationPayload `json:"organization"`
	DeviceFingerprintHash string              `json:"deviceFingerprintHash"`
	Locale                string              `json:"locale"`
	Metadata              metadataPayload     `json:"metadata"`
}

type fileDescriptor struct {
	FileName string `json:"fileName"`
	MimeType string `json:"mimeType"`
	FileSize int    `json:"fileSize"`
}

// docUploadRequest declares artifacts in submission order; the response
// returns one upload URL per artifact in the same order.
type docUploadRequest struct {
	Files []fileDescriptor `json:"files"`
}

type resolveRequest struct {
	ExternalUserID string `json:"externalUserId"`
}

type stepResponse struct {
	CurrentStep    string   `json:"currentStep"`
	ErrorIDs       []string `json:"errorIds"`
	VerificationID string   `json:"verificationId"`
	RedirectURL    string   `json:"redirectUrl"`
	Documents      []struct {
		UploadURL string `json:"uploadUrl"`
	} `json:"documents"`
	RewardCode string `json:"rewardCode"`
	RewardData struct {
		RewardCode string `json:"rewardCode"`
	} `json:"rewardData"`
}

// rewardCode returns the code whether the remote reports it top-level or
// nested under rewardData.
func (r *stepResponse) rewardCode() string {
	if r.RewardCode != "" {
		return r.RewardCode
	}
	return r.RewardData.RewardCode
}

const submissionOptIn = "By submitting the personal information above, I acknowledge that my personal " +
	"information is being collected under the privacy policy of the business from which " +
	"I am seeking a discount"
