package domain

import "time"

const (
	RoleAdmin = "Admin"
	RoleUser  = "User"
)

// Roles are seeded on startup and by the create-admin command.
var Roles = []string{RoleAdmin, RoleUser}

// LockoutForever is the lockout end written when an admin locks an account.
var LockoutForever = time.Date(9999, 12, 31, 23, 59, 59, 0, time.UTC)

type User struct {
	ID             int64      `gorm:"primaryKey;autoIncrement:false" json:"id,string"`
	Email          string     `gorm:"size:256;uniqueIndex" json:"email"`
	PasswordHash   string     `gorm:"size:255" json:"-"`
	FullName       string     `gorm:"size:100" json:"full_name"`
	Address        string     `gorm:"size:200" json:"address"`
	PhoneNumber    string     `gorm:"size:32" json:"phone_number"`
	EmailConfirmed bool       `json:"email_confirmed"`
	LockoutEnd     *time.Time `json:"lockout_end,omitempty"`
	LastLogin      *time.Time `json:"last_login,omitempty"`
	CreatedAt      time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

func (User) TableName() string {
	return "sys_user"
}

func (u User) IsLockedOut(now time.Time) bool {
	return u.LockoutEnd != nil && u.LockoutEnd.After(now)
}

type Role struct {
	ID   int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	Name string `gorm:"size:64;uniqueIndex" json:"name"`
}

func (Role) TableName() string {
	return "sys_role"
}

type UserRole struct {
	UserId int64 `gorm:"primaryKey;autoIncrement:false" json:"user_id,string"`
	RoleId int64 `gorm:"primaryKey;autoIncrement:false" json:"role_id"`
}

func (UserRole) TableName() string {
	return "sys_user_role"
}

// UserRow is a user joined with role names for back-office lists.
type UserRow struct {
	User
	Roles    []string `gorm:"-" json:"roles"`
	IsLocked bool     `gorm:"-" json:"is_locked"`
}
