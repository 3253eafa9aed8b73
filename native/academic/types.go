package academic

import (
	"crypto/sha256"

	"github.com/ethereum/go-ethereum/common"
)

const (
	// ModuleName identifies the program for pause checks.
	ModuleName = "academic"

	// DefaultCreditPrice is the native price of one credit at bootstrap.
	DefaultCreditPrice uint64 = 1_000_000
	// DefaultCreditSymbol names the credit token when bootstrap omits one.
	DefaultCreditSymbol = "CREDIT"

	MaxCourseIDLength   = 32
	MaxCourseNameLength = 100

	MinGrade uint8 = 0
	MaxGrade uint8 = 100
	// PassingGrade is reported on enrollment views. Completion never
	// requires it.
	PassingGrade uint8 = 50

	CertificateNamePrefix = "AcademicChain Certificate - "
	CertificateSymbol     = "ACADNFT"
	GraduationName        = "AcademicChain Graduation"
	GraduationSymbol      = "GRADNFT"
)

// DefaultProgramID is the address the program derives its records under.
var DefaultProgramID = common.HexToAddress("0x000000000000000000000000000000000000acad")

// recordTag is the 8-byte type discriminator stored at the head of every
// record so a record can never be decoded as another type.
type recordTag [8]byte

func tagFor(name string) recordTag {
	sum := sha256.Sum256([]byte("account:" + name))
	var tag recordTag
	copy(tag[:], sum[:8])
	return tag
}

var (
	programConfigTag  = tagFor("ProgramConfig")
	courseTag         = tagFor("Course")
	enrollmentTag     = tagFor("CourseEnrollment")
	studentProfileTag = tagFor("StudentProfile")
)

// ProgramConfig is the singleton program configuration.
type ProgramConfig struct {
	Tag         recordTag      `json:"-"`
	Address     common.Address `json:"address"`
	Authority   common.Address `json:"authority"`
	Treasury    common.Address `json:"treasury"`
	CreditMint  string         `json:"creditMint"`
	CreditPrice uint64         `json:"creditPrice"`
	Bump        uint8          `json:"bump"`
}

// Course is an offering students can enroll in.
type Course struct {
	Tag             recordTag      `json:"-"`
	Address         common.Address `json:"address"`
	CourseID        string         `json:"courseId"`
	CourseName      string         `json:"courseName"`
	Instructor      common.Address `json:"instructor"`
	RequiredCredits uint64         `json:"requiredCredits"`
	IsActive        bool           `json:"isActive"`
	CreatedAt       uint64         `json:"createdAt"`
	Bump            uint8          `json:"bump"`
}

// Enrollment links a student to a course. CompletionDate and CertificateMint
// are zero until set.
type Enrollment struct {
	Tag             recordTag      `json:"-"`
	Address         common.Address `json:"address"`
	Student         common.Address `json:"student"`
	CourseID        string         `json:"courseId"`
	CreditsPaid     uint64         `json:"creditsPaid"`
	EnrollmentDate  uint64         `json:"enrollmentDate"`
	CompletionDate  uint64         `json:"completionDate,omitempty"`
	IsCompleted     bool           `json:"isCompleted"`
	Grade           uint8          `json:"grade"`
	CertificateMint common.Address `json:"certificateMint"`
	Bump            uint8          `json:"bump"`
}

// HasCertificate reports whether a certificate marker has been issued.
func (e *Enrollment) HasCertificate() bool {
	return e.CertificateMint != (common.Address{})
}

// Passed reports whether a completed enrollment met PassingGrade.
func (e *Enrollment) Passed() bool {
	return e.IsCompleted && e.Grade >= PassingGrade
}

// StudentProfile aggregates a student's credit and completion counters.
type StudentProfile struct {
	Tag                   recordTag      `json:"-"`
	Address               common.Address `json:"address"`
	Student               common.Address `json:"student"`
	TotalCreditsPurchased uint64         `json:"totalCreditsPurchased"`
	TotalCreditsSpent     uint64         `json:"totalCreditsSpent"`
	CoursesCompleted      uint16         `json:"coursesCompleted"`
	GraduationNFT         common.Address `json:"graduationNft"`
	CreatedAt             uint64         `json:"createdAt"`
	Bump                  uint8          `json:"bump"`
}

// HasGraduated reports whether the graduation marker has been issued.
func (p *StudentProfile) HasGraduated() bool {
	return p.GraduationNFT != (common.Address{})
}
