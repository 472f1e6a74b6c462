package skill

import "fmt"

// ErrDuplicateSkill reports an Add call for a name that already exists.
func ErrDuplicateSkill(name string) error {
	return fmt.Errorf("skill %q already exists", name)
}

// ErrSkillNotFound reports an Update/Remove call for an unregistered name.
func ErrSkillNotFound(name string) error {
	return fmt.Errorf("skill %q not found", name)
}
