package academic

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"academicchain/core/events"
)

// PurchaseCredits charges the caller amount*price in native currency, paid to
// the treasury, and mints amount credits to the caller. The student profile
// is created on first purchase.
func (e *Engine) PurchaseCredits(caller common.Address, amount uint64) (*StudentProfile, error) {
	if err := e.begin(caller); err != nil {
		return nil, err
	}
	if err := e.requireCollaborators(); err != nil {
		return nil, err
	}
	if amount == 0 {
		return nil, ErrInvalidAmount
	}
	cfg, cfgKey, err := e.loadConfig()
	if err != nil {
		return nil, err
	}
	cost, err := checkedMul(amount, cfg.CreditPrice)
	if err != nil {
		return nil, err
	}
	profile, exists, err := e.loadProfile(caller)
	if err != nil {
		return nil, err
	}
	profileKey, err := e.profileKey(caller)
	if err != nil {
		return nil, err
	}
	if !exists {
		profile = &StudentProfile{
			Address:   profileKey.Address,
			Student:   caller,
			CreatedAt: e.now(),
			Bump:      profileKey.Bump,
		}
	}
	total, err := checkedAdd(profile.TotalCreditsPurchased, amount)
	if err != nil {
		return nil, err
	}

	if err := e.bank.Transfer(caller, cfg.Treasury, cost); err != nil {
		return nil, fmt.Errorf("purchase credits: pay treasury: %w", err)
	}
	if err := e.ledger.Mint(cfg.CreditMint, caller, amount, cfgKey.signer(e.programID)); err != nil {
		return nil, fmt.Errorf("purchase credits: mint: %w", err)
	}

	profile.TotalCreditsPurchased = total
	if exists {
		err = e.updateRecord(profileKey.Address, profile)
	} else {
		err = e.createRecord(profileKey.Address, studentProfileTag, profile)
	}
	if err != nil {
		return nil, err
	}
	e.emit(events.CreditsPurchased{
		Student:        caller,
		Amount:         amount,
		Cost:           cost,
		TotalPurchased: total,
	})
	return profile, nil
}

// RegisterCourse burns the course's required credits from the caller and
// records the enrollment. Every precondition is checked before the burn.
func (e *Engine) RegisterCourse(caller common.Address, courseID string) (*Enrollment, error) {
	if err := e.begin(caller); err != nil {
		return nil, err
	}
	if err := e.requireCollaborators(); err != nil {
		return nil, err
	}
	if err := validateCourseID(courseID); err != nil {
		return nil, err
	}
	cfg, _, err := e.loadConfig()
	if err != nil {
		return nil, err
	}
	course, err := e.loadCourse(courseID)
	if err != nil {
		return nil, err
	}
	if !course.IsActive {
		return nil, ErrCourseNotActive
	}
	enrollKey, err := e.enrollmentKey(caller, courseID)
	if err != nil {
		return nil, err
	}
	taken, err := e.occupied(enrollKey.Address)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrAlreadyEnrolled
	}
	profile, exists, err := e.loadProfile(caller)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrProfileNotFound
	}
	balance, err := e.ledger.BalanceOf(cfg.CreditMint, caller)
	if err != nil {
		return nil, fmt.Errorf("register course: balance: %w", err)
	}
	if balance < course.RequiredCredits {
		return nil, fmt.Errorf("%w: have %d, need %d", ErrInsufficientCredits, balance, course.RequiredCredits)
	}
	spent, err := checkedAdd(profile.TotalCreditsSpent, course.RequiredCredits)
	if err != nil {
		return nil, err
	}

	if err := e.ledger.Burn(cfg.CreditMint, caller, course.RequiredCredits, caller); err != nil {
		return nil, fmt.Errorf("register course: burn: %w", err)
	}

	enrollment := &Enrollment{
		Address:        enrollKey.Address,
		Student:        caller,
		CourseID:       courseID,
		CreditsPaid:    course.RequiredCredits,
		EnrollmentDate: e.now(),
		Bump:           enrollKey.Bump,
	}
	if err := e.createRecord(enrollKey.Address, enrollmentTag, enrollment); err != nil {
		return nil, err
	}
	if err := e.state.KVAppend(enrollmentIndexKey(caller), []byte(courseID)); err != nil {
		return nil, err
	}
	profile.TotalCreditsSpent = spent
	if err := e.updateRecord(profile.Address, profile); err != nil {
		return nil, err
	}
	e.emit(events.StudentEnrolled{
		Enrollment:  enrollKey.Address,
		Student:     caller,
		CourseID:    courseID,
		CreditsPaid: course.RequiredCredits,
	})
	return enrollment, nil
}
