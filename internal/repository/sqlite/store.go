// Package sqlite provides a SQLite-backed implementation of the class and
// roadmap stores for single-node deployments.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/Shivanand-hulikatti/roadmap-class-booking/internal/model"
	"github.com/Shivanand-hulikatti/roadmap-class-booking/internal/repository"
	"github.com/Shivanand-hulikatti/roadmap-class-booking/internal/repository/sqlite/migrations"
)

const (
	statusConfirmed  = "confirmed"
	statusWaitlisted = "waitlisted"
)

// Store persists classes, booking records and roadmaps in SQLite.
type Store struct {
	sqlDB *sql.DB
}

var (
	_ repository.ClassStore   = (*Store)(nil)
	_ repository.RoadmapStore = (*Store)(nil)
)

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

// Open opens a SQLite store and applies embedded migrations.
//
// Transactions take the writer lock at BEGIN and the pool holds a single
// connection, so class mutations are serialized.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) +
		"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_txlock=immediate"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(context.Background(), sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// CreateClass inserts one class with zeroed counters.
func (s *Store) CreateClass(ctx context.Context, class model.Class) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	docID := class.ID
	if docID == "" {
		docID = uuid.New().String()
	}

	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO classes (class_id, doc_id, class_name, class_description, icon, color, total_slots, bookings, waitlist, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, 0, 0, ?)`,
		class.ClassID, docID, class.ClassName, class.Description, class.Icon, class.Color, class.TotalSlots,
		toMillis(time.Now()),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrDuplicateKey
		}
		return fmt.Errorf("insert class: %w", err)
	}
	return nil
}

// ListClasses returns every class in creation order.
func (s *Store) ListClasses(ctx context.Context) ([]model.Class, error) {
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT doc_id, class_id, class_name, class_description, icon, color, total_slots, bookings, waitlist
		 FROM classes
		 ORDER BY created_at ASC, rowid ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list classes: %w", err)
	}
	defer rows.Close()

	var classes []model.Class
	for rows.Next() {
		var c model.Class
		if err := rows.Scan(&c.ID, &c.ClassID, &c.ClassName, &c.Description, &c.Icon, &c.Color, &c.TotalSlots, &c.Bookings, &c.Waitlist); err != nil {
			return nil, fmt.Errorf("scan class: %w", err)
		}
		classes = append(classes, c)
	}
	return classes, rows.Err()
}

// MutateClass loads, transforms and writes back one class inside a single
// immediate transaction.
func (s *Store) MutateClass(ctx context.Context, classID string, fn repository.MutateFunc) (err error) {
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	state, err := loadClassState(ctx, tx, classID)
	if err != nil {
		return err
	}

	if err = fn(state); err != nil {
		return err
	}

	if state.Record != nil {
		if err = writeBookingRecord(ctx, tx, classID, state.Record); err != nil {
			return err
		}
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE classes SET bookings = ?, waitlist = ? WHERE class_id = ?`,
		state.Class.Bookings, state.Class.Waitlist, classID,
	)
	if err != nil {
		return fmt.Errorf("update class counters: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update class counters: %w", err)
	}
	if affected == 0 {
		return repository.ErrUpdateFailed
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func loadClassState(ctx context.Context, tx *sql.Tx, classID string) (*model.ClassState, error) {
	state := &model.ClassState{}
	c := &state.Class
	err := tx.QueryRowContext(ctx,
		`SELECT doc_id, class_id, class_name, class_description, icon, color, total_slots, bookings, waitlist
		 FROM classes WHERE class_id = ?`,
		classID,
	).Scan(&c.ID, &c.ClassID, &c.ClassName, &c.Description, &c.Icon, &c.Color, &c.TotalSlots, &c.Bookings, &c.Waitlist)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("load class: %w", err)
	}

	var exists int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM booking_records WHERE class_id = ?`,
		classID,
	).Scan(&exists); err != nil {
		return nil, fmt.Errorf("check booking record: %w", err)
	}
	if exists == 0 {
		return state, nil
	}

	rows, err := tx.QueryContext(ctx,
		`SELECT status, class_id, class_name, user_id, user_name, booking_date
		 FROM reservations
		 WHERE class_id = ?
		 ORDER BY status ASC, position ASC`,
		classID,
	)
	if err != nil {
		return nil, fmt.Errorf("load reservations: %w", err)
	}
	defer rows.Close()

	record := &model.BookingRecord{ClassID: classID}
	for rows.Next() {
		var status string
		var r model.Reservation
		if err := rows.Scan(&status, &r.ClassID, &r.ClassName, &r.UserID, &r.UserName, &r.BookingDate); err != nil {
			return nil, fmt.Errorf("scan reservation: %w", err)
		}
		if status == statusWaitlisted {
			record.Waitlist = append(record.Waitlist, r)
		} else {
			record.Bookings = append(record.Bookings, r)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load reservations: %w", err)
	}
	state.Record = record
	return state, nil
}

func writeBookingRecord(ctx context.Context, tx *sql.Tx, classID string, record *model.BookingRecord) error {
	if _, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO booking_records (class_id, created_at) VALUES (?, ?)`,
		classID, toMillis(time.Now()),
	); err != nil {
		return fmt.Errorf("ensure booking record: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM reservations WHERE class_id = ?`, classID); err != nil {
		return fmt.Errorf("clear reservations: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO reservations (class_id, status, position, user_id, user_name, class_name, booking_date)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return fmt.Errorf("prepare reservation insert: %w", err)
	}
	defer stmt.Close()

	for _, list := range []struct {
		status string
		items  []model.Reservation
	}{
		{statusConfirmed, record.Bookings},
		{statusWaitlisted, record.Waitlist},
	} {
		for i, r := range list.items {
			if _, err := stmt.ExecContext(ctx, classID, list.status, i, r.UserID, r.UserName, r.ClassName, r.BookingDate); err != nil {
				return fmt.Errorf("insert reservation: %w", err)
			}
		}
	}
	return nil
}

// ListUserBookings returns all confirmed reservations held by userID.
func (s *Store) ListUserBookings(ctx context.Context, userID string) ([]model.UserBooking, error) {
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT r.class_id, r.class_name, r.booking_date
		 FROM reservations r
		 JOIN classes c ON c.class_id = r.class_id
		 WHERE r.user_id = ? AND r.status = ?
		 ORDER BY c.created_at ASC, c.rowid ASC, r.position ASC`,
		userID, statusConfirmed,
	)
	if err != nil {
		return nil, fmt.Errorf("list user bookings: %w", err)
	}
	defer rows.Close()

	var out []model.UserBooking
	for rows.Next() {
		var b model.UserBooking
		if err := rows.Scan(&b.ClassID, &b.ClassName, &b.BookingDate); err != nil {
			return nil, fmt.Errorf("scan user booking: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// SaveRoadmap upserts the roadmap on (email, title).
func (s *Store) SaveRoadmap(ctx context.Context, email string, roadmap model.Roadmap) error {
	nodes, err := marshalGraph(roadmap.Nodes)
	if err != nil {
		return fmt.Errorf("encode nodes: %w", err)
	}
	edges, err := marshalGraph(roadmap.Edges)
	if err != nil {
		return fmt.Errorf("encode edges: %w", err)
	}
	now := toMillis(time.Now())

	_, err = s.sqlDB.ExecContext(ctx,
		`INSERT INTO roadmaps (email, title, nodes, edges, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (email, title)
		 DO UPDATE SET nodes = excluded.nodes, edges = excluded.edges, updated_at = excluded.updated_at`,
		email, roadmap.Title, nodes, edges, now, now,
	)
	if err != nil {
		return fmt.Errorf("upsert roadmap: %w", err)
	}
	return nil
}

// FetchRoadmap returns one roadmap or ErrNotFound.
func (s *Store) FetchRoadmap(ctx context.Context, email, title string) (model.Roadmap, error) {
	var nodes, edges string
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT nodes, edges FROM roadmaps WHERE email = ? AND title = ?`,
		email, title,
	).Scan(&nodes, &edges)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Roadmap{}, repository.ErrNotFound
		}
		return model.Roadmap{}, fmt.Errorf("fetch roadmap: %w", err)
	}

	rm := model.Roadmap{Title: title}
	if err := json.Unmarshal([]byte(nodes), &rm.Nodes); err != nil {
		return model.Roadmap{}, fmt.Errorf("decode nodes: %w", err)
	}
	if err := json.Unmarshal([]byte(edges), &rm.Edges); err != nil {
		return model.Roadmap{}, fmt.Errorf("decode edges: %w", err)
	}
	return rm, nil
}

// ListProjectTitles returns the user's titles in first-save order.
func (s *Store) ListProjectTitles(ctx context.Context, email string) ([]string, error) {
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT title FROM roadmaps WHERE email = ? ORDER BY id ASC`,
		email,
	)
	if err != nil {
		return nil, fmt.Errorf("list project titles: %w", err)
	}
	defer rows.Close()

	titles := []string{}
	for rows.Next() {
		var title string
		if err := rows.Scan(&title); err != nil {
			return nil, fmt.Errorf("scan project title: %w", err)
		}
		titles = append(titles, title)
	}
	return titles, rows.Err()
}

func marshalGraph(items []map[string]any) (string, error) {
	if items == nil {
		items = []map[string]any{}
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}
