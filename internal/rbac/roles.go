package rbac

// Principal kinds. Keep these stable; they are part of the token contract.
const (
	KindUser   = "user"
	KindMentor = "mentor"
	KindAdmin  = "admin"
)

func IsAdmin(kind string) bool { return kind == KindAdmin }

func IsValidKind(kind string) bool {
	switch kind {
	case KindUser, KindMentor, KindAdmin:
		return true
	default:
		return false
	}
}
