package common

import (
	"errors"
	"fmt"
)

// ErrModulePaused is returned by Guard for a module listed in the pause set.
var ErrModulePaused = errors.New("module paused")

// PauseView reports operator pauses by module name.
type PauseView interface {
	IsPaused(module string) bool
}

// Guard fails when any of the named modules is paused. A nil view pauses
// nothing.
func Guard(p PauseView, modules ...string) error {
	if p == nil {
		return nil
	}
	for _, module := range modules {
		if module != "" && p.IsPaused(module) {
			return fmt.Errorf("%w: %s", ErrModulePaused, module)
		}
	}
	return nil
}
