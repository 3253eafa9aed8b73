package academic

import (
	"errors"

	"github.com/ethereum/go-ethereum/common"

	"academicchain/core/events"
	nativecommon "academicchain/native/common"
)

// CreateCourse publishes a new active course. Only the configuration
// authority may create courses.
func (e *Engine) CreateCourse(caller common.Address, courseID, courseName string, instructor common.Address, requiredCredits uint64) (*Course, error) {
	if err := e.begin(caller); err != nil {
		return nil, err
	}
	cfg, _, err := e.loadConfig()
	if err != nil {
		return nil, err
	}
	if err := nativecommon.RequireSigner(caller, cfg.Authority); err != nil {
		return nil, ErrUnauthorized
	}
	if err := validateCourseID(courseID); err != nil {
		return nil, err
	}
	if err := validateCourseName(courseName); err != nil {
		return nil, err
	}
	if requiredCredits == 0 {
		return nil, ErrInvalidCredits
	}
	if instructor == (common.Address{}) {
		return nil, ErrInvalidInstructor
	}
	key, err := e.courseKey(courseID)
	if err != nil {
		return nil, err
	}
	course := &Course{
		Address:         key.Address,
		CourseID:        courseID,
		CourseName:      courseName,
		Instructor:      instructor,
		RequiredCredits: requiredCredits,
		IsActive:        true,
		CreatedAt:       e.now(),
		Bump:            key.Bump,
	}
	if err := e.createRecord(key.Address, courseTag, course); err != nil {
		if errors.Is(err, errRecordExists) {
			return nil, ErrDuplicateCourse
		}
		return nil, err
	}
	if err := e.state.KVAppend(courseIndexKey, []byte(courseID)); err != nil {
		return nil, err
	}
	e.emit(events.CourseCreated{
		Course:          key.Address,
		CourseID:        courseID,
		CourseName:      courseName,
		Instructor:      instructor,
		RequiredCredits: requiredCredits,
		CreatedAt:       int64(course.CreatedAt),
	})
	return course, nil
}

// SetCourseActive opens or closes a course for new enrollments. Only the
// configuration authority may toggle it.
func (e *Engine) SetCourseActive(caller common.Address, courseID string, active bool) (*Course, error) {
	if err := e.begin(caller); err != nil {
		return nil, err
	}
	cfg, _, err := e.loadConfig()
	if err != nil {
		return nil, err
	}
	if err := nativecommon.RequireSigner(caller, cfg.Authority); err != nil {
		return nil, ErrUnauthorized
	}
	if err := validateCourseID(courseID); err != nil {
		return nil, err
	}
	course, err := e.loadCourse(courseID)
	if err != nil {
		return nil, err
	}
	if course.IsActive == active {
		return course, nil
	}
	course.IsActive = active
	if err := e.updateRecord(course.Address, course); err != nil {
		return nil, err
	}
	e.emit(events.CourseStatusChanged{CourseID: courseID, Active: active})
	return course, nil
}

// CompleteCourse records the grade for student's enrollment. Only the course
// instructor may complete, and completion is recorded at most once.
func (e *Engine) CompleteCourse(caller, student common.Address, courseID string, grade uint8) (*Enrollment, error) {
	if err := e.begin(caller); err != nil {
		return nil, err
	}
	if err := validateCourseID(courseID); err != nil {
		return nil, err
	}
	course, err := e.loadCourse(courseID)
	if err != nil {
		return nil, err
	}
	if caller != course.Instructor {
		return nil, ErrUnauthorizedInstructor
	}
	if err := validateGrade(grade); err != nil {
		return nil, err
	}
	enrollment, err := e.loadEnrollment(student, courseID)
	if err != nil {
		return nil, err
	}
	if enrollment.Student != student || enrollment.CourseID != courseID {
		return nil, ErrEnrollmentMismatch
	}
	if enrollment.IsCompleted {
		return nil, ErrAlreadyCompleted
	}
	profile, exists, err := e.loadProfile(student)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrProfileNotFound
	}
	completed, err := checkedIncrement16(profile.CoursesCompleted)
	if err != nil {
		return nil, err
	}

	enrollment.IsCompleted = true
	enrollment.Grade = grade
	enrollment.CompletionDate = e.now()
	if err := e.updateRecord(enrollment.Address, enrollment); err != nil {
		return nil, err
	}
	profile.CoursesCompleted = completed
	if err := e.updateRecord(profile.Address, profile); err != nil {
		return nil, err
	}
	e.emit(events.CourseCompleted{
		Student:          student,
		Instructor:       caller,
		CourseID:         courseID,
		Grade:            grade,
		Passed:           IsPassingGrade(grade),
		CoursesCompleted: completed,
	})
	return enrollment, nil
}
