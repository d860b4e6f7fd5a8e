package domain

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// ParseRole maps identity metadata onto a Role. Anything unrecognised is a
// plain user.
func ParseRole(s string) Role {
	if Role(s) == RoleAdmin {
		return RoleAdmin
	}
	return RoleUser
}

type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// IdentityKey partitions persisted carts between users and the guest.
type IdentityKey string

const GuestIdentity IdentityKey = "guest"

// IdentityKeyFor resolves the cart partition for the signed-in user, or the
// guest partition when nobody is signed in.
func IdentityKeyFor(u *User) IdentityKey {
	if u == nil || u.ID == "" {
		return GuestIdentity
	}
	return IdentityKey(u.ID)
}

// CartStorageKey is the persistence key of an identity's cart.
func CartStorageKey(key IdentityKey) string {
	return "cart_" + string(key)
}
