package academic

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"academicchain/crypto"
	nativecommon "academicchain/native/common"
)

var (
	seedConfig          = []byte("config")
	seedCourse          = []byte("course")
	seedEnrollment      = []byte("enrollment")
	seedStudentProfile  = []byte("student_profile")
	seedCertificateMint = []byte("certificate_mint")
	seedGraduationMint  = []byte("graduation_mint")

	recordPrefix      = []byte("academic/record/")
	courseIndexKey    = []byte("academic/index/courses")
	enrollmentIdxBase = []byte("academic/index/enrollments/")
)

// derived is a program-derived address together with the seeds that produced
// it, so the program can sign for it.
type derived struct {
	Address common.Address
	Seeds   [][]byte
	Bump    uint8
}

func (d derived) signer(program common.Address) nativecommon.ProgramSigner {
	return nativecommon.ProgramSigner{Program: program, Seeds: d.Seeds, Bump: d.Bump}
}

func (e *Engine) derive(seeds ...[]byte) (derived, error) {
	addr, bump, err := crypto.FindProgramAddress(e.programID, seeds...)
	if err != nil {
		return derived{}, fmt.Errorf("derive address: %w", err)
	}
	return derived{Address: addr, Seeds: seeds, Bump: bump}, nil
}

// ConfigAddress returns the address of the program configuration.
func (e *Engine) ConfigAddress() (common.Address, error) {
	d, err := e.configKey()
	return d.Address, err
}

func (e *Engine) configKey() (derived, error) {
	return e.derive(seedConfig)
}

func (e *Engine) courseKey(courseID string) (derived, error) {
	return e.derive(seedCourse, []byte(courseID))
}

func (e *Engine) enrollmentKey(student common.Address, courseID string) (derived, error) {
	return e.derive(seedEnrollment, student.Bytes(), []byte(courseID))
}

func (e *Engine) profileKey(student common.Address) (derived, error) {
	return e.derive(seedStudentProfile, student.Bytes())
}

func (e *Engine) certificateKey(student common.Address, courseID string) (derived, error) {
	return e.derive(seedCertificateMint, student.Bytes(), []byte(courseID))
}

func (e *Engine) graduationKey(student common.Address) (derived, error) {
	return e.derive(seedGraduationMint, student.Bytes())
}

func recordKey(addr common.Address) []byte {
	return append(append([]byte(nil), recordPrefix...), addr.Bytes()...)
}

func enrollmentIndexKey(student common.Address) []byte {
	return append(append([]byte(nil), enrollmentIdxBase...), student.Bytes()...)
}
