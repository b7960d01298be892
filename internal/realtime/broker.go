// Package realtime distributes change notifications to live WebSocket
// connections. The broker owns the connection registry, classifies each
// connection by role, and applies per-kind visibility rules when fanning out.
// Delivery is best-effort: a missed frame is recovered by the client's next
// page load, never retried here.
package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/tudasmester/elira-backend/internal/models"
)

// Role classifies a connection.
type Role string

const (
	RoleAnonymous Role = "anonymous-user"
	RoleUser      Role = "authenticated-user"
	RoleAdmin     Role = "admin"
)

// EntityKind names the entity a change notification is about.
type EntityKind string

const (
	KindCourse     EntityKind = "course"
	KindEnrollment EntityKind = "enrollment"
	KindLesson     EntityKind = "lesson"
)

// Action names the mutation that occurred.
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Fetcher re-reads canonical records after a mutation is reported.
// *store.Store satisfies it.
type Fetcher interface {
	GetCourse(ctx context.Context, id string) (*models.Course, error)
	GetLesson(ctx context.Context, id string) (*models.Lesson, error)
	GetEnrollment(ctx context.Context, id string) (*models.Enrollment, error)
}

// ackFrame is sent once on a connection right after registration.
type ackFrame struct {
	Type   string `json:"type"`
	Role   Role   `json:"role"`
	UserID string `json:"userId,omitempty"`
}

// changeFrame is the wire form of one change notification.
type changeFrame struct {
	Type   string `json:"type"`
	Action Action `json:"action"`
	Data   any    `json:"data"`
	UserID string `json:"userId,omitempty"`
}

// idStub is the delete payload: just enough for the client to drop the record.
type idStub struct {
	ID string `json:"id"`
}

// Stats reports connection counts per classification.
type Stats struct {
	Admins      int `json:"admins"`
	Users       int `json:"users"`
	Anonymous   int `json:"anonymous"`
	UniqueUsers int `json:"uniqueUsers"`
}

// Broker is the connection registry and fan-out engine. Every live connection
// sits in exactly one of the three indexes: the admin set, one per-user
// bucket, or the anonymous set.
type Broker struct {
	mu        sync.RWMutex
	admins    map[*Conn]struct{}
	users     map[string]map[*Conn]struct{}
	anonymous map[*Conn]struct{}

	fetcher      Fetcher
	fetchTimeout time.Duration
}

// NewBroker creates a Broker that re-reads canonical records through fetcher,
// bounding each read by fetchTimeout.
func NewBroker(fetcher Fetcher, fetchTimeout time.Duration) *Broker {
	return &Broker{
		admins:       make(map[*Conn]struct{}),
		users:        make(map[string]map[*Conn]struct{}),
		anonymous:    make(map[*Conn]struct{}),
		fetcher:      fetcher,
		fetchTimeout: fetchTimeout,
	}
}

// Register inserts a connection into the index matching its role and sends
// the acknowledgement frame. An unknown role, or an authenticated role with
// no user id, downgrades to anonymous.
func (b *Broker) Register(c *Conn, role Role, userID string) {
	switch role {
	case RoleAdmin:
	case RoleUser:
		if userID == "" {
			role = RoleAnonymous
		}
	default:
		role = RoleAnonymous
	}
	if role == RoleAnonymous {
		userID = ""
	}

	c.role = role
	c.userID = userID

	b.mu.Lock()
	switch role {
	case RoleAdmin:
		b.admins[c] = struct{}{}
	case RoleUser:
		if b.users[userID] == nil {
			b.users[userID] = make(map[*Conn]struct{})
		}
		b.users[userID][c] = struct{}{}
	default:
		b.anonymous[c] = struct{}{}
	}
	b.mu.Unlock()

	ack, err := json.Marshal(ackFrame{Type: "connection_established", Role: role, UserID: userID})
	if err == nil {
		c.enqueue(ack)
	}

	slog.Debug("connection registered",
		slog.String("role", string(role)),
		slog.String("user_id", userID))
}

// Deregister removes a connection from whichever index holds it and stops its
// write pump. Idempotent: duplicate close events are silent no-ops.
func (b *Broker) Deregister(c *Conn) {
	b.mu.Lock()
	removed := false
	switch c.role {
	case RoleAdmin:
		if _, ok := b.admins[c]; ok {
			delete(b.admins, c)
			removed = true
		}
	case RoleUser:
		if bucket, ok := b.users[c.userID]; ok {
			if _, ok := bucket[c]; ok {
				delete(bucket, c)
				removed = true
			}
			if len(bucket) == 0 {
				delete(b.users, c.userID)
			}
		}
	default:
		if _, ok := b.anonymous[c]; ok {
			delete(b.anonymous, c)
			removed = true
		}
	}
	b.mu.Unlock()

	if removed {
		c.close()
		slog.Debug("connection deregistered", slog.String("role", string(c.role)))
	}
}

// Publish notifies connections about a committed mutation to a course or
// lesson. For non-delete actions the canonical record is re-read; if that
// read fails the notification is dropped and logged, never surfaced — the
// triggering write has already succeeded.
//
// Enrollment changes go through PublishEnrollment, which carries the owner
// the handler already holds (a deleted enrollment row cannot be re-read).
func (b *Broker) Publish(ctx context.Context, kind EntityKind, id string, action Action) {
	switch kind {
	case KindCourse:
		b.publishCourse(ctx, id, action)
	case KindLesson:
		b.publishLesson(ctx, id, action)
	case KindEnrollment:
		b.publishEnrollment(ctx, id, action, "")
	default:
		slog.Warn("publish for unknown entity kind", slog.String("kind", string(kind)))
	}
}

// PublishEnrollment notifies connections about an enrollment change,
// delivering to admins and to the owner's connections only.
func (b *Broker) PublishEnrollment(ctx context.Context, id string, action Action, ownerUserID string) {
	b.publishEnrollment(ctx, id, action, ownerUserID)
}

func (b *Broker) publishCourse(ctx context.Context, id string, action Action) {
	var payload any
	broadcast := true

	if action == ActionDelete {
		payload = idStub{ID: id}
	} else {
		ctx, cancel := context.WithTimeout(ctx, b.fetchTimeout)
		defer cancel()
		course, err := b.fetcher.GetCourse(ctx, id)
		if err != nil {
			slog.Warn("course re-read failed, notification dropped",
				slog.String("course_id", id), slog.Any("error", err))
			return
		}
		payload = course
		broadcast = course.Published
	}

	b.deliver(changeFrame{Type: "course_update", Action: action, Data: payload}, broadcast)
}

func (b *Broker) publishLesson(ctx context.Context, id string, action Action) {
	var payload any
	broadcast := true

	if action == ActionDelete {
		payload = idStub{ID: id}
	} else {
		ctx, cancel := context.WithTimeout(ctx, b.fetchTimeout)
		defer cancel()
		lesson, err := b.fetcher.GetLesson(ctx, id)
		if err != nil {
			slog.Warn("lesson re-read failed, notification dropped",
				slog.String("lesson_id", id), slog.Any("error", err))
			return
		}
		payload = lesson
		broadcast = lesson.CoursePublished
	}

	b.deliver(changeFrame{Type: "lesson_update", Action: action, Data: payload}, broadcast)
}

func (b *Broker) publishEnrollment(ctx context.Context, id string, action Action, ownerUserID string) {
	var payload any

	if action == ActionDelete {
		payload = idStub{ID: id}
	} else {
		ctx, cancel := context.WithTimeout(ctx, b.fetchTimeout)
		defer cancel()
		enrollment, err := b.fetcher.GetEnrollment(ctx, id)
		if err != nil {
			slog.Warn("enrollment re-read failed, notification dropped",
				slog.String("enrollment_id", id), slog.Any("error", err))
			return
		}
		payload = enrollment
		if ownerUserID == "" {
			ownerUserID = enrollment.UserID
		}
	}

	frame := changeFrame{Type: "enrollment_update", Action: action, Data: payload, UserID: ownerUserID}
	b.deliverEnrollment(frame, ownerUserID)
}

// deliver serializes the frame once and sends it to all admin connections,
// plus every user and anonymous connection when broadcast is set.
func (b *Broker) deliver(frame changeFrame, broadcast bool) {
	data, err := json.Marshal(frame)
	if err != nil {
		slog.Warn("change frame marshal failed", slog.Any("error", err))
		return
	}

	targets := b.collect(broadcast, false, "")
	for _, c := range targets {
		if !c.enqueue(data) {
			slog.Debug("dropped frame for unreachable connection",
				slog.String("type", frame.Type))
		}
	}
}

// deliverEnrollment sends the frame to admins and, when an owner is known,
// to that owner's connections only.
func (b *Broker) deliverEnrollment(frame changeFrame, ownerUserID string) {
	data, err := json.Marshal(frame)
	if err != nil {
		slog.Warn("change frame marshal failed", slog.Any("error", err))
		return
	}

	targets := b.collect(false, true, ownerUserID)
	for _, c := range targets {
		if !c.enqueue(data) {
			slog.Debug("dropped frame for unreachable connection",
				slog.String("type", frame.Type))
		}
	}
}

// collect snapshots the target connections under the read lock. broadcast
// selects every user and anonymous connection; owned selects only the given
// owner's bucket. Admins are always included.
func (b *Broker) collect(broadcast, owned bool, ownerUserID string) []*Conn {
	b.mu.RLock()
	defer b.mu.RUnlock()

	targets := make([]*Conn, 0, len(b.admins))
	for c := range b.admins {
		targets = append(targets, c)
	}

	if broadcast {
		for _, bucket := range b.users {
			for c := range bucket {
				targets = append(targets, c)
			}
		}
		for c := range b.anonymous {
			targets = append(targets, c)
		}
	} else if owned && ownerUserID != "" {
		for c := range b.users[ownerUserID] {
			targets = append(targets, c)
		}
	}

	return targets
}

// Stats returns connection counts per classification.
func (b *Broker) Stats() Stats {
	b.mu.RLock()
	defer b.mu.RUnlock()

	users := 0
	for _, bucket := range b.users {
		users += len(bucket)
	}

	return Stats{
		Admins:      len(b.admins),
		Users:       users,
		Anonymous:   len(b.anonymous),
		UniqueUsers: len(b.users),
	}
}
