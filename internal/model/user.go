package model

import "time"

// UserStatus is the tiered capability level stored in users.status.  It is
// independent of the platform flags IsAdmin and IsSuperuser.
type UserStatus uint8

const (
	StatusPlain         UserStatus = 1
	StatusManager       UserStatus = 2
	StatusConsultant    UserStatus = 3
	StatusAdministrator UserStatus = 4
	StatusTourAuthor    UserStatus = 5
)

// Valid reports whether s is one of the known statuses.
func (s UserStatus) Valid() bool { return s >= StatusPlain && s <= StatusTourAuthor }

// Elevated reports whether the status grants tour authoring, withdrawals
// and booking moderation.
func (s UserStatus) Elevated() bool {
	switch s {
	case StatusManager, StatusConsultant, StatusAdministrator, StatusTourAuthor:
		return true
	}
	return false
}

func (s UserStatus) String() string {
	switch s {
	case StatusPlain:
		return "plain"
	case StatusManager:
		return "manager"
	case StatusConsultant:
		return "consultant"
	case StatusAdministrator:
		return "administrator"
	case StatusTourAuthor:
		return "tour_author"
	}
	return "unknown"
}

// User represents an account row in the `users` table.  Email is the login
// identity.  The password is only ever kept as a bcrypt hash.
//
// Fields:
//  ID           – primary key identifier.
//  Email        – unique, lower-cased login identity.
//  Username     – display name.
//  Phone        – optional phone number.
//  PasswordHash – bcrypt hash of the password.
//  Avatar       – path of the stored avatar image (nil when unset).
//  Status       – capability tier, see UserStatus.
//  IsAdmin      – platform administrator flag.
//  IsSuperuser  – platform superuser flag.
//  IsBlocked    – suppresses all authenticated access.
//  BalanceCents – funds available for withdrawal, in minor units.
type User struct {
	ID           uint64     // users.id
	Email        string     // users.email
	Username     string     // users.username
	Phone        string     // users.phone
	PasswordHash string     // users.password_hash
	Avatar       *string    // users.avatar (nullable)
	Status       UserStatus // users.status
	IsAdmin      bool       // users.is_admin
	IsSuperuser  bool       // users.is_superuser
	IsBlocked    bool       // users.is_blocked
	BalanceCents int64      // users.balance_cents
	CreatedAt    time.Time  // users.created_at
	UpdatedAt    time.Time  // users.updated_at
}

// ProfilePatch lists the columns a user may change on their own profile.
// Nil fields are left untouched.
type ProfilePatch struct {
	Username *string
	Email    *string
	Phone    *string
	Avatar   *string
}

// RefreshToken models an entry in the `refresh_tokens` table.  Only the
// SHA-256 hash of the raw token is stored.
type RefreshToken struct {
	ID        uint64     // refresh_tokens.id
	UserID    uint64     // refresh_tokens.user_id
	TokenHash string     // refresh_tokens.token_hash
	ExpiresAt time.Time  // refresh_tokens.expires_at
	RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
	CreatedAt time.Time  // refresh_tokens.created_at
}

// Statistics holds the platform-wide counters shown to administrators.
type Statistics struct {
	TotalUsers    int64
	TotalBookings int64
	TotalTours    int64
}
