package model

import "time"

// Role names carried in the access token's "role" claim.
const (
	RoleAdmin = "ADMIN"
	RoleUser  = "USER"
)

// User represents an account record as stored in the `users` table.
// Each field corresponds to a column in the database.
//
// Fields:
//  ID                 – primary key identifier of the user.
//  Username           – unique, lower-cased login name.
//  PasswordHash       – bcrypt hashed password.
//  FullName           – display name.
//  RemainingLeaveDays – leave-day balance; debited on request creation.
//  IsAdmin            – whether the user may approve or deny requests.
//  CreatedAt          – timestamp of creation.
type User struct {
	ID                 uint64    `json:"id"`                   // users.id
	Username           string    `json:"username"`             // users.username
	PasswordHash       string    `json:"-"`                    // users.password_hash
	FullName           string    `json:"full_name"`            // users.full_name
	RemainingLeaveDays int       `json:"remaining_leave_days"` // users.remaining_leave_days
	IsAdmin            bool      `json:"is_admin"`             // users.is_admin
	CreatedAt          time.Time `json:"created_at"`           // users.created_at (unix millis)
}

// Role maps the admin flag onto the role name used for authorization.
func (u User) Role() string {
	if u.IsAdmin {
		return RoleAdmin
	}
	return RoleUser
}
