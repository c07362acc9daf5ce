package models

// Domain models matching the database schema in db/migrations/0001_init.sql

import "time"

// RoleAdmin is the only staff role.
const RoleAdmin = "admin"

type Admin struct {
	ID           string     `json:"id" db:"id"`
	Email        string     `json:"email" db:"email"`
	PasswordHash string     `json:"-" db:"password_hash"`
	Name         string     `json:"name" db:"name"`
	Role         string     `json:"role" db:"role"`
	IsActive     bool       `json:"isActive" db:"is_active"`
	LastLogin    *time.Time `json:"lastLogin,omitempty" db:"last_login"`
	CreatedAt    time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time  `json:"updatedAt" db:"updated_at"`
}

// AdminProfile is the redacted view returned by login.
type AdminProfile struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

func (a *Admin) Profile() AdminProfile {
	return AdminProfile{ID: a.ID, Name: a.Name, Email: a.Email, Role: a.Role}
}

type ServiceRequest struct {
	ID              string      `json:"id" db:"id"`
	Name            string      `json:"name" db:"name" validate:"required"`
	Email           string      `json:"email" db:"email" validate:"required,email"`
	Company         string      `json:"company,omitempty" db:"company"`
	Phone           string      `json:"phone,omitempty" db:"phone"`
	ServiceType     ServiceType `json:"serviceType" db:"service_type" validate:"required,service_type"`
	Message         string      `json:"message" db:"message" validate:"required,min=10"`
	Status          Status      `json:"status" db:"status" validate:"required,request_status"`
	Priority        Priority    `json:"priority" db:"priority" validate:"required,request_priority"`
	EstimatedBudget string      `json:"estimatedBudget,omitempty" db:"estimated_budget"`
	Deadline        *time.Time  `json:"deadline,omitempty" db:"deadline"`
	Notes           string      `json:"notes,omitempty" db:"notes"`
	CreatedAt       time.Time   `json:"createdAt" db:"created_at"`
	UpdatedAt       time.Time   `json:"updatedAt" db:"updated_at"`
}

// GroupCount is one (serviceType, status) bucket of stored requests.
type GroupCount struct {
	ServiceType ServiceType
	Status      Status
	Count       int64
}

type ServiceTypeCount struct {
	ServiceType ServiceType `json:"serviceType"`
	Count       int64       `json:"count"`
}

type Overview struct {
	Total         int64              `json:"total"`
	Pending       int64              `json:"pending"`
	InProgress    int64              `json:"inProgress"`
	Completed     int64              `json:"completed"`
	ByServiceType []ServiceTypeCount `json:"byServiceType"`
}
