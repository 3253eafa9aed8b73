package academic

import "errors"

// Kind classifies program errors for callers that map them onto transport
// codes.
type Kind string

const (
	KindAuthorization Kind = "authorization"
	KindPrecondition  Kind = "precondition"
	KindArithmetic    Kind = "arithmetic"
	KindIntegrity     Kind = "integrity"
	KindNotFound      Kind = "not_found"
	// KindExternal marks failures raised by a collaborator or the host.
	KindExternal Kind = "external"
)

// Error is a program error with a stable name and numeric code.
type Error struct {
	Code uint32
	Name string
	Kind Kind
	msg  string
}

func (e *Error) Error() string { return "academic: " + e.msg }

var registry []*Error

func newError(code uint32, name string, kind Kind, msg string) *Error {
	err := &Error{Code: code, Name: name, Kind: kind, msg: msg}
	registry = append(registry, err)
	return err
}

var (
	ErrInsufficientCredits      = newError(6000, "InsufficientCredits", KindPrecondition, "insufficient credits to register for this course")
	ErrCourseNotActive          = newError(6001, "CourseNotActive", KindPrecondition, "course is not active")
	ErrAlreadyEnrolled          = newError(6002, "AlreadyEnrolled", KindPrecondition, "student already enrolled in this course")
	ErrCourseNotCompleted       = newError(6003, "CourseNotCompleted", KindPrecondition, "course not completed yet")
	ErrInvalidGrade             = newError(6004, "InvalidGrade", KindPrecondition, "invalid grade value (must be 0-100)")
	ErrUnauthorizedInstructor   = newError(6005, "UnauthorizedInstructor", KindAuthorization, "only the course instructor can perform this action")
	ErrCertificateAlreadyMinted = newError(6006, "CertificateAlreadyMinted", KindPrecondition, "certificate already minted")
	ErrRequirementsNotMet       = newError(6007, "RequirementsNotMet", KindPrecondition, "not all required courses completed")
	ErrInvalidCourseID          = newError(6008, "InvalidCourseId", KindPrecondition, "course id must be at most 32 bytes")
	ErrArithmeticOverflow       = newError(6009, "ArithmeticOverflow", KindArithmetic, "arithmetic overflow")
	ErrInvalidCourseName        = newError(6010, "InvalidCourseName", KindPrecondition, "course name must be 1-100 bytes")
	ErrInvalidCredits           = newError(6011, "InvalidCredits", KindPrecondition, "required credits must be positive")
	ErrAlreadyInitialized       = newError(6012, "AlreadyInitialized", KindPrecondition, "program already initialized")
	ErrNotInitialized           = newError(6013, "NotInitialized", KindNotFound, "program not initialized")
	ErrInvalidAmount            = newError(6014, "InvalidAmount", KindPrecondition, "amount must be positive")
	ErrCourseNotFound           = newError(6015, "CourseNotFound", KindNotFound, "course not found")
	ErrProfileNotFound          = newError(6016, "ProfileNotFound", KindNotFound, "student profile not found")
	ErrEnrollmentNotFound       = newError(6017, "EnrollmentNotFound", KindNotFound, "enrollment not found")
	ErrUnauthorized             = newError(6018, "Unauthorized", KindAuthorization, "caller is not the configuration authority")
	ErrDuplicateCourse          = newError(6019, "DuplicateCourse", KindPrecondition, "course already exists")
	ErrEnrollmentMismatch       = newError(6020, "EnrollmentMismatch", KindIntegrity, "enrollment does not belong to this student and course")
	ErrAlreadyCompleted         = newError(6021, "AlreadyCompleted", KindPrecondition, "course completion already recorded")
	ErrRecordCorrupted          = newError(6022, "RecordCorrupted", KindIntegrity, "record type tag mismatch")
	ErrInvalidInstructor        = newError(6023, "InvalidInstructor", KindPrecondition, "instructor identity required")
	ErrInvalidTreasury          = newError(6024, "InvalidTreasury", KindPrecondition, "treasury identity required")
	ErrInvalidPrice             = newError(6025, "InvalidPrice", KindPrecondition, "credit price must be positive")
	ErrMissingSigner            = newError(6026, "MissingSigner", KindAuthorization, "operation requires an authenticated caller")
	ErrModulePaused             = newError(6027, "ModulePaused", KindPrecondition, "program is paused")
)

// KindOf returns the classification of err, or KindExternal when err does not
// wrap a program error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindExternal
}

// AsError returns the program error wrapped by err, if any.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// Errors lists every program error in code order.
func Errors() []*Error {
	out := make([]*Error, len(registry))
	copy(out, registry)
	return out
}
