package engine

// Action is a mutating user action
type Action int

const (
	ActionVote Action = iota
	ActionCreate
	ActionEdit
	ActionApprove
	ActionDelete
	ActionLock
	ActionSticky
)

func (a Action) String() string {
	switch a {
	case ActionVote:
		return "vote"
	case ActionCreate:
		return "create"
	case ActionEdit:
		return "edit"
	case ActionApprove:
		return "approve"
	case ActionDelete:
		return "delete"
	case ActionLock:
		return "lock"
	case ActionSticky:
		return "sticky"
	}
	return "unknown"
}

// MutationPolicy says how the client reflects a successful action
type MutationPolicy int

const (
	// ApplyLocally patches the local tree once the server confirms
	ApplyLocally MutationPolicy = iota

	// ConfirmThenReload leaves local state alone and reloads the page
	// once the server confirms
	ConfirmThenReload
)

// MutationPolicyFor returns the policy used for a.
// Page attribute writes change ordering and access rules everywhere, so
// they reload; everything else touches a single comment.
func MutationPolicyFor(a Action) MutationPolicy {
	switch a {
	case ActionLock, ActionSticky:
		return ConfirmThenReload
	}
	return ApplyLocally
}
