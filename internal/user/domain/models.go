// Package domain contains the staff/patient registry models.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Role is the closed set of actor roles. Capabilities are a static
// function of role; anything record-specific is an ownership check done by
// the owning use case.
type Role string

const (
	RoleAdmin        Role = "admin"
	RoleDoctor       Role = "doctor"
	RoleLabAssistant Role = "lab_assistant"
	RoleReceptionist Role = "receptionist"
	RolePatient      Role = "patient"
)

// Roles lists every known role.
func Roles() []Role {
	return []Role{RoleAdmin, RoleDoctor, RoleLabAssistant, RoleReceptionist, RolePatient}
}

// ParseRole validates a raw role string against the closed set.
func ParseRole(raw string) (Role, bool) {
	role := Role(raw)
	switch role {
	case RoleAdmin, RoleDoctor, RoleLabAssistant, RoleReceptionist, RolePatient:
		return role, true
	default:
		return "", false
	}
}

// Actor is the authenticated caller every operation receives explicitly.
type Actor struct {
	ID   snowflake.ID `json:"id"`
	Role Role         `json:"role"`
}

func (a Actor) IsAdmin() bool { return a.Role == RoleAdmin }

// User is a registered account: staff or patient, distinguished by role.
type User struct {
	ID           snowflake.ID `json:"id" gorm:"primaryKey"`
	Role         Role         `json:"role" gorm:"type:text;not null;index"`
	Email        string       `json:"email" gorm:"type:text;not null;uniqueIndex"`
	PasswordHash string       `json:"-" gorm:"type:text;not null"`
	FirstName    string       `json:"first_name" gorm:"type:text;not null"`
	LastName     string       `json:"last_name" gorm:"type:text;not null"`
	Active       bool         `json:"active" gorm:"not null;default:true"`
	CreatedAt    time.Time    `json:"created_at" gorm:"not null"`
	UpdatedAt    time.Time    `json:"updated_at" gorm:"not null"`
}

func (User) TableName() string { return "users" }

func (u *User) Actor() Actor {
	return Actor{ID: u.ID, Role: u.Role}
}
