package models

import "time"

// User is the single entity of the service. Password is kept as received and
// is never serialized.
type User struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Email     string    `gorm:"size:255;not null;uniqueIndex" json:"email"`
	Username  string    `gorm:"size:50;not null;index" json:"username"`
	Password  string    `gorm:"not null" json:"-"`
	IsActive  bool      `gorm:"not null" json:"isActive"`
	CreatedAt time.Time `gorm:"not null" json:"createdAt"`
	UpdatedAt time.Time `gorm:"not null" json:"updatedAt"`
}

// UserInsert holds the fields accepted when a user is created.
// A nil IsActive stores true.
type UserInsert struct {
	Email    string
	Username string
	Password string
	IsActive *bool
}

// UserUpdate is a partial set of mutable fields; nil fields are left alone.
type UserUpdate struct {
	Email    *string
	Username *string
	Password *string
	IsActive *bool
}

func (u UserUpdate) IsEmpty() bool {
	return u.Email == nil && u.Username == nil && u.Password == nil && u.IsActive == nil
}

// Columns maps the supplied fields to column names for a partial update.
func (u UserUpdate) Columns() map[string]interface{} {
	cols := make(map[string]interface{}, 4)
	if u.Email != nil {
		cols["email"] = *u.Email
	}
	if u.Username != nil {
		cols["username"] = *u.Username
	}
	if u.Password != nil {
		cols["password"] = *u.Password
	}
	if u.IsActive != nil {
		cols["is_active"] = *u.IsActive
	}
	return cols
}
