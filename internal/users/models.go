package users

import "time"

// User represents a user row. Username, email and the password hash are
// nullable: externally-authenticated users carry no password, and identities
// issued by the auth provider may arrive without a username.
type User struct {
	ID                   string    `json:"id"`
	Username             *string   `json:"username"`
	Email                *string   `json:"email"`
	PasswordHash         *string   `json:"-"`
	IsAdmin              bool      `json:"is_admin"`
	AdminRole            *string   `json:"admin_role,omitempty"`
	StripeCustomerID     *string   `json:"stripe_customer_id,omitempty"`
	StripeSubscriptionID *string   `json:"stripe_subscription_id,omitempty"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// NewUser is the input for password-based registration. The password is
// hashed at the route boundary; the data layer only ever sees the hash.
type NewUser struct {
	Username     string
	Email        string
	PasswordHash string
}

// UpsertUser is the input for externally-issued-identity login, where the
// identity provider supplies a stable id. Every provided field overwrites
// the stored row on conflict.
type UpsertUser struct {
	ID                   string
	Username             *string
	Email                *string
	StripeCustomerID     *string
	StripeSubscriptionID *string
}

// Permission names a capability grant checked per protected admin operation.
// Stored as plain text; typed here so invalid values are caught before they
// reach the database.
type Permission string

const (
	PermissionEditProducts      Permission = "edit_products"
	PermissionAddProducts       Permission = "add_products"
	PermissionViewPrescriptions Permission = "view_prescriptions"
	PermissionManageUsers       Permission = "manage_users"
)

// Valid reports whether the permission is one of the known grants.
func (p Permission) Valid() bool {
	switch p {
	case PermissionEditProducts, PermissionAddProducts, PermissionViewPrescriptions, PermissionManageUsers:
		return true
	}
	return false
}

// AdminPermission is one (user, permission) grant row.
type AdminPermission struct {
	ID         string     `json:"id"`
	UserID     string     `json:"user_id"`
	Permission Permission `json:"permission"`
}

// UserWithPermissions is a user enriched with all of their grants.
type UserWithPermissions struct {
	User
	Permissions []AdminPermission `json:"permissions"`
}
