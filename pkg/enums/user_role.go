package enums

// UserRole is the role asserted by the identity provider token.
type UserRole string

const (
	UserRoleCustomer UserRole = "customer"
	UserRoleStaff    UserRole = "staff"
	UserRoleAdmin    UserRole = "admin"
)

var userRoles = set[UserRole]{UserRoleCustomer, UserRoleStaff, UserRoleAdmin}

func (r UserRole) String() string { return string(r) }
func (r UserRole) IsValid() bool  { return userRoles.has(r) }

// IsOperator reports whether the role may drive order fulfilment.
func (r UserRole) IsOperator() bool {
	return r == UserRoleStaff || r == UserRoleAdmin
}

func ParseUserRole(value string) (UserRole, error) {
	return userRoles.parse("user role", value)
}
