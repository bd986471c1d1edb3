package model

import "time"

// Role is the privilege level stored in users.role.
type Role string

const (
	RoleUser       Role = "USER"
	RoleBusiness   Role = "BUSINESS"
	RoleAdmin      Role = "ADMIN"
	RoleSuperAdmin Role = "SUPER_ADMIN"
)

// Roles is the allow-list for role changes.
var Roles = []Role{RoleUser, RoleBusiness, RoleAdmin, RoleSuperAdmin}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	for _, v := range Roles {
		if r == v {
			return true
		}
	}
	return false
}

// IsAdmin reports whether r may use the admin console at all.
func (r Role) IsAdmin() bool { return r == RoleAdmin || r == RoleSuperAdmin }

// UserStatus is the lifecycle state stored in users.status. DELETED is the
// soft-delete marker and is terminal.
type UserStatus string

const (
	UserStatusActive    UserStatus = "ACTIVE"
	UserStatusSuspended UserStatus = "SUSPENDED"
	UserStatusDeleted   UserStatus = "DELETED"
)

// Valid reports whether s is a known user status.
func (s UserStatus) Valid() bool {
	return s == UserStatusActive || s == UserStatusSuspended || s == UserStatusDeleted
}

// Settable reports whether an admin may set s through the status endpoint.
// DELETED is only reachable through the delete operation.
func (s UserStatus) Settable() bool {
	return s == UserStatusActive || s == UserStatusSuspended
}

// User mirrors a row of the `users` table.
//
// Fields:
//
//	ID              – primary key, immutable.
//	Phone           – unique login identifier.
//	Name, Email     – optional profile data.
//	ProfileImageURL – optional avatar URL.
//	Region          – optional region code.
//	Timezone        – IANA zone name, defaults to UTC.
//	Language        – preferred language, defaults to ko.
//	Role, Status    – see Role and UserStatus.
//	CreatedAt       – creation timestamp.
//	UpdatedAt       – timestamp of the last status/role/profile change.
type User struct {
	ID              uint64     `json:"id"`
	Phone           string     `json:"phone"`
	Name            *string    `json:"name"`
	Email           *string    `json:"email"`
	ProfileImageURL *string    `json:"profileImageUrl"`
	Region          *string    `json:"region"`
	Timezone        string     `json:"timezone"`
	Language        string     `json:"language"`
	Role            Role       `json:"role"`
	Status          UserStatus `json:"status"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

// UserFilter narrows a user listing. Zero values mean "no filter".
type UserFilter struct {
	Page   int
	Limit  int
	Search string // substring over phone, name and email
	Role   Role
	Status UserStatus
}
