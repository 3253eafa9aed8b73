package events

import (
	"strconv"

	"academicchain/core/types"
)

const (
	// TypeProgramInitialized is emitted once when the program configuration
	// is bootstrapped.
	TypeProgramInitialized = "academic.program.initialized"
	// TypeCreditPriceUpdated is emitted when the authority reprices credits.
	TypeCreditPriceUpdated = "academic.price.updated"
	// TypeCreditsPurchased is emitted when a student buys credits.
	TypeCreditsPurchased = "academic.credits.purchased"
	// TypeCourseCreated is emitted when a course record is published.
	TypeCourseCreated = "academic.course.created"
	// TypeCourseStatusChanged is emitted when a course is opened or closed.
	TypeCourseStatusChanged = "academic.course.status"
	// TypeStudentEnrolled is emitted when credits are burned for an enrollment.
	TypeStudentEnrolled = "academic.course.enrolled"
	// TypeCourseCompleted is emitted when an instructor records a grade.
	TypeCourseCompleted = "academic.course.completed"
	// TypeCertificateMinted is emitted when a course certificate marker is issued.
	TypeCertificateMinted = "academic.certificate.minted"
	// TypeGraduationClaimed is emitted when a graduation marker is issued.
	TypeGraduationClaimed = "academic.graduation.claimed"
)

type ProgramInitialized struct {
	Config      [20]byte
	Authority   [20]byte
	Treasury    [20]byte
	CreditMint  string
	CreditPrice uint64
}

func (ProgramInitialized) EventType() string { return TypeProgramInitialized }

func (e ProgramInitialized) Event() *types.Event {
	return &types.Event{
		Type: TypeProgramInitialized,
		Attributes: map[string]string{
			"config":      formatRecord(e.Config),
			"authority":   formatIdentity(e.Authority),
			"treasury":    formatIdentity(e.Treasury),
			"creditMint":  e.CreditMint,
			"creditPrice": formatUint(e.CreditPrice),
		},
	}
}

type CreditPriceUpdated struct {
	Authority [20]byte
	Previous  uint64
	Price     uint64
}

func (CreditPriceUpdated) EventType() string { return TypeCreditPriceUpdated }

func (e CreditPriceUpdated) Event() *types.Event {
	return &types.Event{
		Type: TypeCreditPriceUpdated,
		Attributes: map[string]string{
			"authority": formatIdentity(e.Authority),
			"previous":  formatUint(e.Previous),
			"price":     formatUint(e.Price),
		},
	}
}

// CreditsPurchased records the credits minted and the native cost paid.
type CreditsPurchased struct {
	Student        [20]byte
	Amount         uint64
	Cost           uint64
	TotalPurchased uint64
}

func (CreditsPurchased) EventType() string { return TypeCreditsPurchased }

func (e CreditsPurchased) Event() *types.Event {
	return &types.Event{
		Type: TypeCreditsPurchased,
		Attributes: map[string]string{
			"student":        formatIdentity(e.Student),
			"amount":         formatUint(e.Amount),
			"cost":           formatUint(e.Cost),
			"totalPurchased": formatUint(e.TotalPurchased),
		},
	}
}

type CourseCreated struct {
	Course          [20]byte
	CourseID        string
	CourseName      string
	Instructor      [20]byte
	RequiredCredits uint64
	CreatedAt       int64
}

func (CourseCreated) EventType() string { return TypeCourseCreated }

func (e CourseCreated) Event() *types.Event {
	return &types.Event{
		Type: TypeCourseCreated,
		Attributes: map[string]string{
			"course":          formatRecord(e.Course),
			"courseId":        e.CourseID,
			"courseName":      e.CourseName,
			"instructor":      formatIdentity(e.Instructor),
			"requiredCredits": formatUint(e.RequiredCredits),
			"createdAt":       strconv.FormatInt(e.CreatedAt, 10),
		},
	}
}

type CourseStatusChanged struct {
	CourseID string
	Active   bool
}

func (CourseStatusChanged) EventType() string { return TypeCourseStatusChanged }

func (e CourseStatusChanged) Event() *types.Event {
	return &types.Event{
		Type: TypeCourseStatusChanged,
		Attributes: map[string]string{
			"courseId": e.CourseID,
			"active":   strconv.FormatBool(e.Active),
		},
	}
}

type StudentEnrolled struct {
	Enrollment  [20]byte
	Student     [20]byte
	CourseID    string
	CreditsPaid uint64
}

func (StudentEnrolled) EventType() string { return TypeStudentEnrolled }

func (e StudentEnrolled) Event() *types.Event {
	return &types.Event{
		Type: TypeStudentEnrolled,
		Attributes: map[string]string{
			"enrollment":  formatRecord(e.Enrollment),
			"student":     formatIdentity(e.Student),
			"courseId":    e.CourseID,
			"creditsPaid": formatUint(e.CreditsPaid),
		},
	}
}

type CourseCompleted struct {
	Student          [20]byte
	Instructor       [20]byte
	CourseID         string
	Grade            uint8
	Passed           bool
	CoursesCompleted uint16
}

func (CourseCompleted) EventType() string { return TypeCourseCompleted }

func (e CourseCompleted) Event() *types.Event {
	return &types.Event{
		Type: TypeCourseCompleted,
		Attributes: map[string]string{
			"student":          formatIdentity(e.Student),
			"instructor":       formatIdentity(e.Instructor),
			"courseId":         e.CourseID,
			"grade":            strconv.Itoa(int(e.Grade)),
			"passed":           strconv.FormatBool(e.Passed),
			"coursesCompleted": strconv.Itoa(int(e.CoursesCompleted)),
		},
	}
}

type CertificateMinted struct {
	Student     [20]byte
	CourseID    string
	Marker      [20]byte
	MetadataURI string
}

func (CertificateMinted) EventType() string { return TypeCertificateMinted }

func (e CertificateMinted) Event() *types.Event {
	return &types.Event{
		Type: TypeCertificateMinted,
		Attributes: map[string]string{
			"student":     formatIdentity(e.Student),
			"courseId":    e.CourseID,
			"marker":      formatRecord(e.Marker),
			"metadataUri": e.MetadataURI,
		},
	}
}

type GraduationClaimed struct {
	Student          [20]byte
	Marker           [20]byte
	CoursesCompleted uint16
	RequiredCourses  int
}

func (GraduationClaimed) EventType() string { return TypeGraduationClaimed }

func (e GraduationClaimed) Event() *types.Event {
	return &types.Event{
		Type: TypeGraduationClaimed,
		Attributes: map[string]string{
			"student":          formatIdentity(e.Student),
			"marker":           formatRecord(e.Marker),
			"coursesCompleted": strconv.Itoa(int(e.CoursesCompleted)),
			"requiredCourses":  strconv.Itoa(e.RequiredCourses),
		},
	}
}
