package academic

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"academicchain/core/events"
	"academicchain/native/marker"
)

// MintCertificate issues the certificate marker for the caller's completed
// enrollment in courseID. Each enrollment yields at most one certificate.
func (e *Engine) MintCertificate(caller common.Address, courseID, metadataURI string) (*Enrollment, error) {
	if err := e.begin(caller); err != nil {
		return nil, err
	}
	if e.markers == nil {
		return nil, errNilCollaborator
	}
	if err := validateCourseID(courseID); err != nil {
		return nil, err
	}
	course, err := e.loadCourse(courseID)
	if err != nil {
		return nil, err
	}
	enrollment, err := e.loadEnrollment(caller, courseID)
	if err != nil {
		return nil, err
	}
	if enrollment.Student != caller || enrollment.CourseID != courseID {
		return nil, ErrEnrollmentMismatch
	}
	if !enrollment.IsCompleted {
		return nil, ErrCourseNotCompleted
	}
	if enrollment.HasCertificate() {
		return nil, ErrCertificateAlreadyMinted
	}
	key, err := e.certificateKey(caller, courseID)
	if err != nil {
		return nil, err
	}
	req := marker.MintRequest{
		Address: key.Address,
		Owner:   caller,
		Kind:    marker.KindCertificate,
		Name:    CertificateNamePrefix + course.CourseName,
		Symbol:  CertificateSymbol,
		URI:     metadataURI,
	}
	if _, err := e.markers.Mint(req, key.signer(e.programID)); err != nil {
		return nil, fmt.Errorf("mint certificate: %w", err)
	}
	enrollment.CertificateMint = key.Address
	if err := e.updateRecord(enrollment.Address, enrollment); err != nil {
		return nil, err
	}
	e.emit(events.CertificateMinted{
		Student:     caller,
		CourseID:    courseID,
		Marker:      key.Address,
		MetadataURI: req.URI,
	})
	return enrollment, nil
}

// ClaimGraduation issues the graduation marker once the caller has completed
// at least len(requiredCourses) courses. Only the count is compared; the
// listed ids are not matched against enrollments.
func (e *Engine) ClaimGraduation(caller common.Address, requiredCourses []string, metadataURI string) (*StudentProfile, error) {
	if err := e.begin(caller); err != nil {
		return nil, err
	}
	if e.markers == nil {
		return nil, errNilCollaborator
	}
	profile, exists, err := e.loadProfile(caller)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrProfileNotFound
	}
	if profile.HasGraduated() {
		return nil, ErrCertificateAlreadyMinted
	}
	if int(profile.CoursesCompleted) < len(requiredCourses) {
		return nil, fmt.Errorf("%w: completed %d of %d", ErrRequirementsNotMet, profile.CoursesCompleted, len(requiredCourses))
	}
	key, err := e.graduationKey(caller)
	if err != nil {
		return nil, err
	}
	req := marker.MintRequest{
		Address: key.Address,
		Owner:   caller,
		Kind:    marker.KindGraduation,
		Name:    GraduationName,
		Symbol:  GraduationSymbol,
		URI:     metadataURI,
	}
	if _, err := e.markers.Mint(req, key.signer(e.programID)); err != nil {
		return nil, fmt.Errorf("claim graduation: %w", err)
	}
	profile.GraduationNFT = key.Address
	if err := e.updateRecord(profile.Address, profile); err != nil {
		return nil, err
	}
	e.emit(events.GraduationClaimed{
		Student:          caller,
		Marker:           key.Address,
		CoursesCompleted: profile.CoursesCompleted,
		RequiredCourses:  len(requiredCourses),
	})
	return profile, nil
}
