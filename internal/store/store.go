// Package store is the SQL query layer for users, courses, lessons, and enrollments.
package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/tudasmester/elira-backend/internal/models"
)

// ErrNotFound is returned when a queried record does not exist.
var ErrNotFound = errors.New("record not found")

// Store wraps the database handle with typed queries.
type Store struct {
	db *sql.DB
}

// New creates a Store over the given database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Users

func (s *Store) CreateUser(ctx context.Context, email, name, passwordHash string, isAdmin bool) (*models.User, error) {
	u := &models.User{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         name,
		PasswordHash: passwordHash,
		IsAdmin:      isAdmin,
		CreatedAt:    time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, email, name, password_hash, is_admin, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		u.ID, u.Email, u.Name, u.PasswordHash, u.IsAdmin, u.CreatedAt)
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	u := &models.User{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, email, name, password_hash, is_admin, created_at FROM users WHERE email = ?`,
		email).Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.IsAdmin, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

// Courses

func (s *Store) CreateCourse(ctx context.Context, req models.CourseRequest) (*models.Course, error) {
	now := time.Now().UTC()
	c := &models.Course{
		ID:          uuid.NewString(),
		Title:       req.Title,
		Description: req.Description,
		Instructor:  req.Instructor,
		PriceCents:  req.PriceCents,
		Published:   req.Published,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO courses (id, title, description, instructor, price_cents, published, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Title, c.Description, c.Instructor, c.PriceCents, c.Published, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Store) GetCourse(ctx context.Context, id string) (*models.Course, error) {
	c := &models.Course{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, title, description, instructor, price_cents, published, created_at, updated_at
		 FROM courses WHERE id = ?`, id).
		Scan(&c.ID, &c.Title, &c.Description, &c.Instructor, &c.PriceCents, &c.Published, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// ListCourses returns all courses; when publishedOnly is set, unpublished
// courses are filtered out.
func (s *Store) ListCourses(ctx context.Context, publishedOnly bool) ([]models.Course, error) {
	query := `SELECT id, title, description, instructor, price_cents, published, created_at, updated_at
	          FROM courses ORDER BY created_at DESC`
	if publishedOnly {
		query = `SELECT id, title, description, instructor, price_cents, published, created_at, updated_at
		         FROM courses WHERE published = 1 ORDER BY created_at DESC`
	}

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	courses := []models.Course{}
	for rows.Next() {
		var c models.Course
		if err := rows.Scan(&c.ID, &c.Title, &c.Description, &c.Instructor, &c.PriceCents, &c.Published, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		courses = append(courses, c)
	}
	return courses, rows.Err()
}

func (s *Store) UpdateCourse(ctx context.Context, id string, req models.CourseRequest) (*models.Course, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE courses SET title = ?, description = ?, instructor = ?, price_cents = ?, published = ?, updated_at = ?
		 WHERE id = ?`,
		req.Title, req.Description, req.Instructor, req.PriceCents, req.Published, time.Now().UTC(), id)
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}
	return s.GetCourse(ctx, id)
}

func (s *Store) DeleteCourse(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM courses WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Lessons

func (s *Store) CreateLesson(ctx context.Context, courseID string, req models.LessonRequest) (*models.Lesson, error) {
	now := time.Now().UTC()
	l := &models.Lesson{
		ID:        uuid.NewString(),
		CourseID:  courseID,
		Title:     req.Title,
		Content:   req.Content,
		Position:  req.Position,
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO lessons (id, course_id, title, content, position, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		l.ID, l.CourseID, l.Title, l.Content, l.Position, l.CreatedAt, l.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return l, nil
}

// GetLesson returns a lesson joined with its parent course's published flag.
func (s *Store) GetLesson(ctx context.Context, id string) (*models.Lesson, error) {
	l := &models.Lesson{}
	err := s.db.QueryRowContext(ctx,
		`SELECT l.id, l.course_id, l.title, l.content, l.position, l.created_at, l.updated_at, c.published
		 FROM lessons l JOIN courses c ON c.id = l.course_id
		 WHERE l.id = ?`, id).
		Scan(&l.ID, &l.CourseID, &l.Title, &l.Content, &l.Position, &l.CreatedAt, &l.UpdatedAt, &l.CoursePublished)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return l, nil
}

func (s *Store) ListLessons(ctx context.Context, courseID string) ([]models.Lesson, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, course_id, title, content, position, created_at, updated_at
		 FROM lessons WHERE course_id = ? ORDER BY position, created_at`, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	lessons := []models.Lesson{}
	for rows.Next() {
		var l models.Lesson
		if err := rows.Scan(&l.ID, &l.CourseID, &l.Title, &l.Content, &l.Position, &l.CreatedAt, &l.UpdatedAt); err != nil {
			return nil, err
		}
		lessons = append(lessons, l)
	}
	return lessons, rows.Err()
}

func (s *Store) UpdateLesson(ctx context.Context, id string, req models.LessonRequest) (*models.Lesson, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE lessons SET title = ?, content = ?, position = ?, updated_at = ? WHERE id = ?`,
		req.Title, req.Content, req.Position, time.Now().UTC(), id)
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}
	return s.GetLesson(ctx, id)
}

func (s *Store) DeleteLesson(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM lessons WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Enrollments

func (s *Store) CreateEnrollment(ctx context.Context, userID, courseID string) (*models.Enrollment, error) {
	e := &models.Enrollment{
		ID:        uuid.NewString(),
		UserID:    userID,
		CourseID:  courseID,
		Status:    "active",
		CreatedAt: time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO enrollments (id, user_id, course_id, status, created_at) VALUES (?, ?, ?, ?, ?)`,
		e.ID, e.UserID, e.CourseID, e.Status, e.CreatedAt)
	if err != nil {
		return nil, err
	}
	return e, nil
}

func (s *Store) GetEnrollment(ctx context.Context, id string) (*models.Enrollment, error) {
	e := &models.Enrollment{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, course_id, status, created_at FROM enrollments WHERE id = ?`, id).
		Scan(&e.ID, &e.UserID, &e.CourseID, &e.Status, &e.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

func (s *Store) ListEnrollmentsByUser(ctx context.Context, userID string) ([]models.Enrollment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, course_id, status, created_at FROM enrollments
		 WHERE user_id = ? ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	enrollments := []models.Enrollment{}
	for rows.Next() {
		var e models.Enrollment
		if err := rows.Scan(&e.ID, &e.UserID, &e.CourseID, &e.Status, &e.CreatedAt); err != nil {
			return nil, err
		}
		enrollments = append(enrollments, e)
	}
	return enrollments, rows.Err()
}

// ListEnrollments returns every enrollment, newest first.
func (s *Store) ListEnrollments(ctx context.Context) ([]models.Enrollment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, course_id, status, created_at FROM enrollments
		 ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	enrollments := []models.Enrollment{}
	for rows.Next() {
		var e models.Enrollment
		if err := rows.Scan(&e.ID, &e.UserID, &e.CourseID, &e.Status, &e.CreatedAt); err != nil {
			return nil, err
		}
		enrollments = append(enrollments, e)
	}
	return enrollments, rows.Err()
}

func (s *Store) DeleteEnrollment(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM enrollments WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
