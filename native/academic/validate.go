package academic

import "unicode/utf8"

// validateCourseID only caps the length; an empty id is a valid key.
func validateCourseID(id string) error {
	if len(id) > MaxCourseIDLength || !utf8.ValidString(id) {
		return ErrInvalidCourseID
	}
	return nil
}

func validateCourseName(name string) error {
	if len(name) == 0 || len(name) > MaxCourseNameLength || !utf8.ValidString(name) {
		return ErrInvalidCourseName
	}
	return nil
}

func validateGrade(grade uint8) error {
	if grade > MaxGrade {
		return ErrInvalidGrade
	}
	return nil
}

// IsPassingGrade reports whether grade meets PassingGrade.
func IsPassingGrade(grade uint8) bool {
	return grade >= PassingGrade && grade <= MaxGrade
}
