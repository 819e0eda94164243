package users

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

// Conf provides data access for users and admin permissions.
type Conf struct {
	db *sql.DB
}

func NewConf(db *sql.DB) (*Conf, error) {
	if db == nil {
		return nil, fmt.Errorf("db is nil")
	}
	return &Conf{db: db}, nil
}

const userColumns = `id, username, email, password_hash, is_admin, admin_role,
       stripe_customer_id, stripe_subscription_id, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (User, error) {
	var u User
	var username, email, passwordHash, adminRole, stripeCustomer, stripeSub sql.NullString
	err := row.Scan(&u.ID, &username, &email, &passwordHash, &u.IsAdmin, &adminRole,
		&stripeCustomer, &stripeSub, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return User{}, err
	}
	u.Username = nullableString(username)
	u.Email = nullableString(email)
	u.PasswordHash = nullableString(passwordHash)
	u.AdminRole = nullableString(adminRole)
	u.StripeCustomerID = nullableString(stripeCustomer)
	u.StripeSubscriptionID = nullableString(stripeSub)
	return u, nil
}

func nullableString(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	return &s.String
}

// GetUser looks a user up by id. Returns sql.ErrNoRows when absent.
func (c *Conf) GetUser(ctx context.Context, id string) (User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(c.db.QueryRowContext(ctx, query, id))
}

// GetUserByUsername looks a user up by their unique username.
func (c *Conf) GetUserByUsername(ctx context.Context, username string) (User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1`
	return scanUser(c.db.QueryRowContext(ctx, query, username))
}

// GetUserByEmail looks a user up by their unique email.
func (c *Conf) GetUserByEmail(ctx context.Context, email string) (User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUser(c.db.QueryRowContext(ctx, query, email))
}

// CreateUser inserts a user for password-based registration. The admin flag
// defaults to false and timestamps to now.
func (c *Conf) CreateUser(ctx context.Context, nu NewUser) (User, error) {
	query := `
		INSERT INTO users (id, username, email, password_hash, is_admin, created_at, updated_at)
		VALUES ($1, $2, $3, $4, false, NOW(), NOW())
		RETURNING ` + userColumns
	user, err := scanUser(c.db.QueryRowContext(ctx, query, uuid.NewString(), nu.Username, nu.Email, nu.PasswordHash))
	if err != nil {
		return User{}, fmt.Errorf("failed to insert user: %w", err)
	}
	return user, nil
}

// UpsertUser inserts a user row keyed by an externally-issued stable id. On
// conflict every provided field overwrites the stored value and updated_at
// is refreshed.
func (c *Conf) UpsertUser(ctx context.Context, uu UpsertUser) (User, error) {
	query := `
		INSERT INTO users (id, username, email, is_admin, stripe_customer_id, stripe_subscription_id, created_at, updated_at)
		VALUES ($1, $2, $3, false, $4, $5, NOW(), NOW())
		ON CONFLICT (id) DO UPDATE SET
			username = EXCLUDED.username,
			email = EXCLUDED.email,
			stripe_customer_id = EXCLUDED.stripe_customer_id,
			stripe_subscription_id = EXCLUDED.stripe_subscription_id,
			updated_at = NOW()
		RETURNING ` + userColumns
	user, err := scanUser(c.db.QueryRowContext(ctx, query,
		uu.ID, uu.Username, uu.Email, uu.StripeCustomerID, uu.StripeSubscriptionID))
	if err != nil {
		return User{}, fmt.Errorf("failed to upsert user: %w", err)
	}
	return user, nil
}

// ListUsers returns all users, newest first.
func (c *Conf) ListUsers(ctx context.Context) ([]User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY created_at DESC`
	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var list []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		list = append(list, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}
	return list, nil
}

// SetUserAdmin sets the admin flag and role label together. The role column
// is always overwritten: calling this without a role clears the stored role.
func (c *Conf) SetUserAdmin(ctx context.Context, id string, isAdmin bool, role *string) (User, error) {
	query := `
		UPDATE users SET is_admin = $2, admin_role = $3, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + userColumns
	user, err := scanUser(c.db.QueryRowContext(ctx, query, id, isAdmin, role))
	if err != nil {
		return User{}, err
	}
	return user, nil
}

// GetUserWithPermissions fetches a user together with their full list of
// admin permission rows.
func (c *Conf) GetUserWithPermissions(ctx context.Context, id string) (UserWithPermissions, error) {
	user, err := c.GetUser(ctx, id)
	if err != nil {
		return UserWithPermissions{}, err
	}

	query := `SELECT id, user_id, permission FROM admin_permissions WHERE user_id = $1`
	rows, err := c.db.QueryContext(ctx, query, id)
	if err != nil {
		return UserWithPermissions{}, fmt.Errorf("failed to query permissions: %w", err)
	}
	defer rows.Close()

	perms := []AdminPermission{}
	for rows.Next() {
		var p AdminPermission
		if err := rows.Scan(&p.ID, &p.UserID, &p.Permission); err != nil {
			return UserWithPermissions{}, fmt.Errorf("failed to scan permission: %w", err)
		}
		perms = append(perms, p)
	}
	if err := rows.Err(); err != nil {
		return UserWithPermissions{}, fmt.Errorf("error iterating permissions: %w", err)
	}
	return UserWithPermissions{User: user, Permissions: perms}, nil
}

// HasAdminPermission reports whether a grant row exists for the exact
// (user, permission) pair. This is the sole authorization signal for
// protected admin routes.
func (c *Conf) HasAdminPermission(ctx context.Context, userID string, permission Permission) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM admin_permissions WHERE user_id = $1 AND permission = $2)`
	var exists bool
	if err := c.db.QueryRowContext(ctx, query, userID, permission).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check permission: %w", err)
	}
	return exists, nil
}

// AddAdminPermission inserts a single grant row. No dedup check: duplicate
// rows are harmless since only existence is consulted.
func (c *Conf) AddAdminPermission(ctx context.Context, userID string, permission Permission) (AdminPermission, error) {
	query := `
		INSERT INTO admin_permissions (id, user_id, permission)
		VALUES ($1, $2, $3)
		RETURNING id, user_id, permission`
	var p AdminPermission
	err := c.db.QueryRowContext(ctx, query, uuid.NewString(), userID, permission).
		Scan(&p.ID, &p.UserID, &p.Permission)
	if err != nil {
		return AdminPermission{}, fmt.Errorf("failed to add permission: %w", err)
	}
	return p, nil
}

// RemoveAdminPermission deletes every grant row for the pair. Deleting a
// non-existent grant is a no-op.
func (c *Conf) RemoveAdminPermission(ctx context.Context, userID string, permission Permission) error {
	query := `DELETE FROM admin_permissions WHERE user_id = $1 AND permission = $2`
	if _, err := c.db.ExecContext(ctx, query, userID, permission); err != nil {
		return fmt.Errorf("failed to remove permission: %w", err)
	}
	return nil
}
