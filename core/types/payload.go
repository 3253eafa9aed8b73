package types

import "github.com/ethereum/go-ethereum/common"

// BootstrapPayload initialises the program. A zero CreditPrice keeps the
// default price.
type BootstrapPayload struct {
	Treasury    common.Address `json:"treasury"`
	CreditMint  string         `json:"creditMint"`
	CreditPrice uint64         `json:"creditPrice,omitempty"`
}

type PurchaseCreditsPayload struct {
	Amount uint64 `json:"amount"`
}

type CreateCoursePayload struct {
	CourseID        string         `json:"courseId"`
	CourseName      string         `json:"courseName"`
	Instructor      common.Address `json:"instructor"`
	RequiredCredits uint64         `json:"requiredCredits"`
}

type RegisterCoursePayload struct {
	CourseID string `json:"courseId"`
}

type CompleteCoursePayload struct {
	CourseID string         `json:"courseId"`
	Student  common.Address `json:"student"`
	Grade    uint8          `json:"grade"`
}

type MintCertificatePayload struct {
	CourseID    string `json:"courseId"`
	MetadataURI string `json:"metadataUri"`
}

// ClaimGraduationPayload lists the course ids the student claims to satisfy.
type ClaimGraduationPayload struct {
	RequiredCourses []string `json:"requiredCourses"`
	MetadataURI     string   `json:"metadataUri"`
}

type SetCourseActivePayload struct {
	CourseID string `json:"courseId"`
	Active   bool   `json:"active"`
}

type SetCreditPricePayload struct {
	Price uint64 `json:"price"`
}
