package models

// Role of an authenticated user.
const (
	RoleCustomer = "customer"
	RoleStaff    = "staff"
)

// User represents an authenticated account (customer or bar staff).
type User struct {
	ID       int64
	Email    string
	PassHash []byte
	Role     string
}
