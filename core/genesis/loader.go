package genesis

import (
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"academicchain/core/state"
	"academicchain/native"
	"academicchain/native/academic"
	"academicchain/storage"
)

var ErrAlreadyApplied = errors.New("genesis: state already initialised")

// Apply seeds native balances, bootstraps the program and creates the initial
// courses. All writes land in one batch; on any error nothing is written.
// It returns the resulting state root.
func Apply(db storage.Database, spec *GenesisSpec) (common.Hash, error) {
	if db == nil {
		return common.Hash{}, fmt.Errorf("genesis: database required")
	}
	if spec == nil {
		return common.Hash{}, fmt.Errorf("genesis: spec required")
	}
	manager := state.NewManager(db)
	if _, ok, err := manager.StateVersion(); err != nil {
		return common.Hash{}, err
	} else if ok {
		return common.Hash{}, ErrAlreadyApplied
	}

	ts := spec.GenesisTimestamp()
	mods := native.NewModules(manager, native.Options{
		ProgramID: spec.ProgramAddress(),
		Now:       func() time.Time { return ts },
	})

	for _, alloc := range spec.balances {
		if alloc.amount.Sign() == 0 {
			continue
		}
		if err := mods.Bank.Credit(alloc.account, alloc.amount); err != nil {
			manager.Discard()
			return common.Hash{}, fmt.Errorf("genesis: credit %s: %w", alloc.account.Hex(), err)
		}
	}

	if _, err := mods.Academic.Bootstrap(spec.authority, spec.treasury, spec.CreditMint, spec.CreditPrice); err != nil {
		manager.Discard()
		if errors.Is(err, academic.ErrAlreadyInitialized) {
			return common.Hash{}, ErrAlreadyApplied
		}
		return common.Hash{}, fmt.Errorf("genesis: bootstrap: %w", err)
	}

	for i, course := range spec.Courses {
		if _, err := mods.Academic.CreateCourse(spec.authority, course.ID, course.Name, course.instructor, course.RequiredCredits); err != nil {
			manager.Discard()
			return common.Hash{}, fmt.Errorf("genesis: courses[%d]: %w", i, err)
		}
		if course.Active != nil && !*course.Active {
			if _, err := mods.Academic.SetCourseActive(spec.authority, course.ID, false); err != nil {
				manager.Discard()
				return common.Hash{}, fmt.Errorf("genesis: courses[%d]: %w", i, err)
			}
		}
	}

	if err := manager.SetStateVersion(state.StateVersion); err != nil {
		manager.Discard()
		return common.Hash{}, err
	}
	root, err := manager.Root()
	if err != nil {
		manager.Discard()
		return common.Hash{}, err
	}
	if err := manager.Commit(); err != nil {
		return common.Hash{}, err
	}
	return root, nil
}
