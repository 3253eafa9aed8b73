package academic

import (
	"github.com/ethereum/go-ethereum/common"
)

func (e *Engine) readable() error {
	if e == nil || e.state == nil {
		return errNilState
	}
	return nil
}

// Config returns the program configuration.
func (e *Engine) Config() (*ProgramConfig, error) {
	if err := e.readable(); err != nil {
		return nil, err
	}
	cfg, _, err := e.loadConfig()
	return cfg, err
}

// Course returns the course registered under courseID.
func (e *Engine) Course(courseID string) (*Course, error) {
	if err := e.readable(); err != nil {
		return nil, err
	}
	if err := validateCourseID(courseID); err != nil {
		return nil, err
	}
	return e.loadCourse(courseID)
}

// Courses lists every course in creation order.
func (e *Engine) Courses() ([]*Course, error) {
	if err := e.readable(); err != nil {
		return nil, err
	}
	var ids [][]byte
	if err := e.state.KVGetList(courseIndexKey, &ids); err != nil {
		return nil, err
	}
	out := make([]*Course, 0, len(ids))
	for _, id := range ids {
		course, err := e.loadCourse(string(id))
		if err != nil {
			return nil, err
		}
		out = append(out, course)
	}
	return out, nil
}

// Enrollment returns student's enrollment in courseID.
func (e *Engine) Enrollment(student common.Address, courseID string) (*Enrollment, error) {
	if err := e.readable(); err != nil {
		return nil, err
	}
	if err := validateCourseID(courseID); err != nil {
		return nil, err
	}
	return e.loadEnrollment(student, courseID)
}

// Enrollments lists student's enrollments in registration order.
func (e *Engine) Enrollments(student common.Address) ([]*Enrollment, error) {
	if err := e.readable(); err != nil {
		return nil, err
	}
	var ids [][]byte
	if err := e.state.KVGetList(enrollmentIndexKey(student), &ids); err != nil {
		return nil, err
	}
	out := make([]*Enrollment, 0, len(ids))
	for _, id := range ids {
		enrollment, err := e.loadEnrollment(student, string(id))
		if err != nil {
			return nil, err
		}
		out = append(out, enrollment)
	}
	return out, nil
}

// Profile returns the student profile.
func (e *Engine) Profile(student common.Address) (*StudentProfile, error) {
	if err := e.readable(); err != nil {
		return nil, err
	}
	profile, ok, err := e.loadProfile(student)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrProfileNotFound
	}
	return profile, nil
}

// CreditBalance returns student's credit token balance.
func (e *Engine) CreditBalance(student common.Address) (uint64, error) {
	if err := e.readable(); err != nil {
		return 0, err
	}
	if e.ledger == nil {
		return 0, errNilCollaborator
	}
	cfg, _, err := e.loadConfig()
	if err != nil {
		return 0, err
	}
	return e.ledger.BalanceOf(cfg.CreditMint, student)
}
