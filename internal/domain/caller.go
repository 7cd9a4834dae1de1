package domain

type Role string

const (
	RoleCustomer Role = "customer"
	RoleSeller   Role = "seller"
	RoleAdmin    Role = "admin"
)

// Caller is the identity the upstream auth gateway attached to a request.
type Caller struct {
	ID   string
	Role Role
}

func ParseRole(s string) (Role, bool) {
	switch r := Role(s); r {
	case RoleCustomer, RoleSeller, RoleAdmin:
		return r, true
	}
	return "", false
}

// CanRead reports whether the caller may see the order at all. Sellers
// still only get their own items.
func (c Caller) CanRead(o *Order) bool {
	switch c.Role {
	case RoleAdmin:
		return true
	case RoleSeller:
		return o.HasSeller(c.ID)
	case RoleCustomer:
		return o.CustomerID == c.ID
	}
	return false
}
