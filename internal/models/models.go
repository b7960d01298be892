package models

import "time"

// ErrorResponse is the standard JSON error body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Entities

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	IsAdmin      bool      `json:"isAdmin"`
	CreatedAt    time.Time `json:"createdAt"`
}

type Course struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Instructor  string    `json:"instructor"`
	PriceCents  int64     `json:"priceCents"`
	Published   bool      `json:"published"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type Lesson struct {
	ID        string    `json:"id"`
	CourseID  string    `json:"courseId"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Position  int       `json:"position"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	// CoursePublished mirrors the parent course's published flag at read
	// time. Not serialized; used to decide notification visibility.
	CoursePublished bool `json:"-"`
}

type Enrollment struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	CourseID  string    `json:"courseId"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

// Auth

type RegisterRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token     string `json:"token"`
	UserID    string `json:"userId"`
	Name      string `json:"name"`
	IsAdmin   bool   `json:"isAdmin"`
	ExpiresIn int64  `json:"expiresIn"`
}

// Session lifecycle

type SessionStatusResponse struct {
	RemainingTime int64     `json:"remainingTime"`
	LastActivity  time.Time `json:"lastActivity"`
	NeedsWarning  bool      `json:"needsWarning"`
}

type SessionExtendResponse struct {
	Message   string `json:"message"`
	ExpiresIn int64  `json:"expiresIn"`
}

type SessionLogoutResponse struct {
	Message string `json:"message"`
}

// Course / lesson / enrollment requests

type CourseRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Instructor  string `json:"instructor"`
	PriceCents  int64  `json:"priceCents"`
	Published   bool   `json:"published"`
}

type LessonRequest struct {
	Title    string `json:"title"`
	Content  string `json:"content"`
	Position int    `json:"position"`
}

type EnrollRequest struct {
	CourseID string `json:"courseId"`
}
