package reconciler

import (
	"fmt"

	"github.com/declarr/declarr/resource"
)

// CreateOp submits a desired resource absent from the remote instance.
type CreateOp struct {
	Resource resource.Resource
}

// UpdateOp converges an existing remote resource towards the desired one.
type UpdateOp struct {
	Identity resource.Identity
	Desired  resource.Resource
	Deltas   []resource.FieldDelta
}

// DeleteOp removes a remote resource with no desired counterpart.
type DeleteOp struct {
	Identity resource.Identity
}

// SectionChanges groups the operations planned for one section. Within a
// section the apply order is Create, Update, Delete.
type SectionChanges struct {
	Section string
	Creates []CreateOp
	Updates []UpdateOp
	Deletes []DeleteOp
}

func (s SectionChanges) Empty() bool {
	return len(s.Creates) == 0 && len(s.Updates) == 0 && len(s.Deletes) == 0
}

// PlanIssue records a field or resource that had to be skipped during
// planning. Issues never abort a plan; they are surfaced with the changeset
// so nothing is silently swallowed.
type PlanIssue struct {
	Section  string
	Resource string
	Field    string
	Err      error
}

func (i PlanIssue) String() string {
	scope := i.Section
	if i.Resource != "" {
		scope += "[" + i.Resource + "]"
	}
	if i.Field != "" {
		scope += "." + i.Field
	}
	return fmt.Sprintf("%s: %v", scope, i.Err)
}

// Changeset is the ordered set of operations needed to move the actual
// remote state to the desired state. Sections appear in registry order.
type Changeset struct {
	Sections []SectionChanges
	Issues   []PlanIssue
}

func (c *Changeset) Empty() bool {
	if c == nil {
		return true
	}
	for _, section := range c.Sections {
		if !section.Empty() {
			return false
		}
	}
	return true
}

// Counts returns the number of planned creates, updates and deletes.
func (c *Changeset) Counts() (creates, updates, deletes int) {
	if c == nil {
		return 0, 0, 0
	}
	for _, section := range c.Sections {
		creates += len(section.Creates)
		updates += len(section.Updates)
		deletes += len(section.Deletes)
	}
	return creates, updates, deletes
}
