package auth

import "github.com/vovakirdan/socketchat-server/internal/core"

// Privilege is the tier of a control-surface session.
type Privilege int

const (
	PrivilegeNone Privilege = iota
	PrivilegeOperator
	PrivilegeSuperOperator
)

func (p Privilege) String() string {
	switch p {
	case PrivilegeOperator:
		return "operator"
	case PrivilegeSuperOperator:
		return "super_operator"
	default:
		return "none"
	}
}

// Actor is the name shown in moderation notices.
func (p Privilege) Actor() string {
	switch p {
	case PrivilegeOperator:
		return "mod"
	case PrivilegeSuperOperator:
		return "admin"
	default:
		return ""
	}
}

// Allows reports whether a session of tier p may perform action.
// Super-operators may do everything operators can.
func (p Privilege) Allows(action core.ActionKind) bool {
	switch p {
	case PrivilegeSuperOperator:
		return true
	case PrivilegeOperator:
		switch action {
		case core.ActionMute, core.ActionUnmute, core.ActionKick:
			return true
		}
	}
	return false
}
