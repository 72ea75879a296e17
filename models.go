package auth

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// UserType is the account tier stored on every user
type UserType = string

const (
	// UserTypeFree is the tier every new account starts on
	UserTypeFree UserType = "Free"
	// UserTypePremium is the paid tier
	UserTypePremium UserType = "Premium"
)

// User is the user model
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	FirstName     string     `bun:"first_name,notnull" json:"firstName"`
	LastName      string     `bun:"last_name,notnull" json:"lastName"`
	Email         string     `bun:"email,notnull,unique" json:"email"`
	Phone         string     `bun:"phone" json:"phone"`
	CityState     string     `bun:"city_state" json:"cityState"`
	PasswordHash  string     `bun:"password_hash,notnull" json:"-"`
	UserType      UserType   `bun:"user_type,notnull" json:"userType"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"createdAt,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updatedAt,omitempty"`
}

// ProfileEdit holds the only fields a user may change on their own
// record. Email, password and tier are not editable through this path.
type ProfileEdit struct {
	FirstName string
	LastName  string
	Phone     string
	CityState string
}

// Apply copies the editable fields onto the user
func (p ProfileEdit) Apply(u *User) *User {
	if u == nil {
		return nil
	}
	u.FirstName = p.FirstName
	u.LastName = p.LastName
	u.Phone = p.Phone
	u.CityState = p.CityState
	return u
}

// NormalizeEmail is applied to every email before it is stored or
// used as a lookup key.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ParseUserType checks the given tier against the known ones
func ParseUserType(s string) (UserType, bool) {
	switch strings.TrimSpace(s) {
	case UserTypeFree:
		return UserTypeFree, true
	case UserTypePremium:
		return UserTypePremium, true
	default:
		return "", false
	}
}

func prepareUserDefaults(record *User) {
	if record == nil {
		return
	}

	if record.UserType == "" {
		record.UserType = UserTypeFree
	}

	record.Email = NormalizeEmail(record.Email)

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}

	now := time.Now()
	if record.CreatedAt == nil {
		record.CreatedAt = &now
	}
	if record.UpdatedAt == nil {
		record.UpdatedAt = &now
	}
}

// PrepareUserDefaults fills in id, tier and timestamps before a user is
// persisted. Store implementations outside this package call it.
func PrepareUserDefaults(record *User) {
	prepareUserDefaults(record)
}
