package core

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"academicchain/core/state"
	"academicchain/core/types"
	"academicchain/native"
	"academicchain/native/academic"
	"academicchain/native/marker"
)

// EnrollmentView decorates an enrollment with the advisory passing flag.
type EnrollmentView struct {
	*academic.Enrollment
	Passing bool `json:"passing"`
}

func newEnrollmentView(e *academic.Enrollment) *EnrollmentView {
	if e == nil {
		return nil
	}
	return &EnrollmentView{Enrollment: e, Passing: e.IsCompleted && academic.IsPassingGrade(e.Grade)}
}

// view runs fn against the committed state under the read lock.
func (n *Node) view(fn func(*native.Modules, *state.Manager) error) error {
	n.mu.RLock()
	defer n.mu.RUnlock()
	manager := state.NewManager(n.db)
	return fn(n.modules(manager, nil), manager)
}

// Initialized reports whether the program configuration exists.
func (n *Node) Initialized() (bool, error) {
	var ok bool
	err := n.view(func(m *native.Modules, _ *state.Manager) error {
		_, err := m.Academic.Config()
		if errors.Is(err, academic.ErrNotInitialized) {
			return nil
		}
		ok = err == nil
		return err
	})
	return ok, err
}

func (n *Node) Config() (cfg *academic.ProgramConfig, err error) {
	err = n.view(func(m *native.Modules, _ *state.Manager) error {
		cfg, err = m.Academic.Config()
		return err
	})
	return cfg, err
}

func (n *Node) Course(courseID string) (course *academic.Course, err error) {
	err = n.view(func(m *native.Modules, _ *state.Manager) error {
		course, err = m.Academic.Course(courseID)
		return err
	})
	return course, err
}

func (n *Node) Courses() (courses []*academic.Course, err error) {
	err = n.view(func(m *native.Modules, _ *state.Manager) error {
		courses, err = m.Academic.Courses()
		return err
	})
	return courses, err
}

func (n *Node) Enrollment(student common.Address, courseID string) (*EnrollmentView, error) {
	var enrollment *academic.Enrollment
	err := n.view(func(m *native.Modules, _ *state.Manager) error {
		var err error
		enrollment, err = m.Academic.Enrollment(student, courseID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return newEnrollmentView(enrollment), nil
}

func (n *Node) Enrollments(student common.Address) ([]*EnrollmentView, error) {
	var list []*academic.Enrollment
	err := n.view(func(m *native.Modules, _ *state.Manager) error {
		var err error
		list, err = m.Academic.Enrollments(student)
		return err
	})
	if err != nil {
		return nil, err
	}
	out := make([]*EnrollmentView, 0, len(list))
	for _, e := range list {
		out = append(out, newEnrollmentView(e))
	}
	return out, nil
}

func (n *Node) Profile(student common.Address) (profile *academic.StudentProfile, err error) {
	err = n.view(func(m *native.Modules, _ *state.Manager) error {
		profile, err = m.Academic.Profile(student)
		return err
	})
	return profile, err
}

// CreditBalance returns the student's academic credit token balance.
func (n *Node) CreditBalance(student common.Address) (balance uint64, err error) {
	err = n.view(func(m *native.Modules, _ *state.Manager) error {
		balance, err = m.Academic.CreditBalance(student)
		return err
	})
	return balance, err
}

// NativeBalance returns the native currency balance of addr.
func (n *Node) NativeBalance(addr common.Address) (balance *big.Int, err error) {
	err = n.view(func(m *native.Modules, _ *state.Manager) error {
		balance, err = m.Bank.Balance(addr)
		return err
	})
	return balance, err
}

func (n *Node) Account(addr common.Address) (account *types.Account, err error) {
	err = n.view(func(_ *native.Modules, manager *state.Manager) error {
		account, err = manager.GetAccount(addr)
		return err
	})
	return account, err
}

// Marker returns the certificate or graduation marker stored at addr.
func (n *Node) Marker(addr common.Address) (m *marker.Marker, err error) {
	err = n.view(func(mods *native.Modules, _ *state.Manager) error {
		m, err = mods.Marker.Get(addr)
		return err
	})
	return m, err
}

func (n *Node) MarkersOwnedBy(owner common.Address) (list []*marker.Marker, err error) {
	err = n.view(func(mods *native.Modules, _ *state.Manager) error {
		list, err = mods.Marker.OwnedBy(owner)
		return err
	})
	return list, err
}

// StateRoot returns the root of the committed state.
func (n *Node) StateRoot() (root common.Hash, err error) {
	err = n.view(func(_ *native.Modules, manager *state.Manager) error {
		root, err = manager.Root()
		return err
	})
	return root, err
}
