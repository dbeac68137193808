// Package postgres implements the repository stores on PostgreSQL using pgx
// directly (no ORM).
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Shivanand-hulikatti/roadmap-class-booking/internal/model"
	"github.com/Shivanand-hulikatti/roadmap-class-booking/internal/repository"
)

const (
	statusConfirmed  = "confirmed"
	statusWaitlisted = "waitlisted"

	uniqueViolation = "23505"
)

// ClassRepository handles persistence for classes and booking records.
type ClassRepository struct {
	db *pgxpool.Pool
}

var _ repository.ClassStore = (*ClassRepository)(nil)

// NewClassRepository constructs a ClassRepository.
func NewClassRepository(db *pgxpool.Pool) *ClassRepository {
	return &ClassRepository{db: db}
}

// CreateClass inserts a new class with zeroed counters.
func (r *ClassRepository) CreateClass(ctx context.Context, class model.Class) error {
	docID := uuid.New()
	if class.ID != "" {
		parsed, err := uuid.Parse(class.ID)
		if err != nil {
			return fmt.Errorf("parse class document id: %w", err)
		}
		docID = parsed
	}

	_, err := r.db.Exec(ctx,
		`INSERT INTO classes (class_id, doc_id, class_name, class_description, icon, color, total_slots, bookings, waitlist)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, 0, 0)`,
		class.ClassID, docID, class.ClassName, class.Description, class.Icon, class.Color, class.TotalSlots,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return repository.ErrDuplicateKey
		}
		return fmt.Errorf("insert class: %w", err)
	}
	return nil
}

// ListClasses returns all classes ordered by creation time.
func (r *ClassRepository) ListClasses(ctx context.Context) ([]model.Class, error) {
	rows, err := r.db.Query(ctx,
		`SELECT doc_id::text, class_id, class_name, class_description, icon, color, total_slots, bookings, waitlist
		 FROM classes
		 ORDER BY created_at ASC, class_id ASC`,
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

// MutateClass performs a concurrency-safe class transition inside one
// transaction.
//
// SELECT ... FOR UPDATE takes an exclusive row lock on the class. Any other
// transaction attempting the same on that class blocks until this one
// commits or rolls back, so the capacity check, the list change and the
// counter write are observed as a single step.
func (r *ClassRepository) MutateClass(ctx context.Context, classID string, fn repository.MutateFunc) (err error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
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

	tag, err := tx.Exec(ctx,
		`UPDATE classes SET bookings = $2, waitlist = $3 WHERE class_id = $1`,
		classID, state.Class.Bookings, state.Class.Waitlist,
	)
	if err != nil {
		return fmt.Errorf("update class counters: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrUpdateFailed
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func loadClassState(ctx context.Context, tx pgx.Tx, classID string) (*model.ClassState, error) {
	state := &model.ClassState{}
	c := &state.Class
	err := tx.QueryRow(ctx,
		`SELECT doc_id::text, class_id, class_name, class_description, icon, color, total_slots, bookings, waitlist
		 FROM classes
		 WHERE class_id = $1
		 FOR UPDATE`,
		classID,
	).Scan(&c.ID, &c.ClassID, &c.ClassName, &c.Description, &c.Icon, &c.Color, &c.TotalSlots, &c.Bookings, &c.Waitlist)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("lock class row: %w", err)
	}

	var exists bool
	if err := tx.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM booking_records WHERE class_id = $1)`,
		classID,
	).Scan(&exists); err != nil {
		return nil, fmt.Errorf("check booking record: %w", err)
	}
	if !exists {
		return state, nil
	}

	rows, err := tx.Query(ctx,
		`SELECT status, class_id, class_name, user_id, user_name, booking_date
		 FROM reservations
		 WHERE class_id = $1
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
		var res model.Reservation
		if err := rows.Scan(&status, &res.ClassID, &res.ClassName, &res.UserID, &res.UserName, &res.BookingDate); err != nil {
			return nil, fmt.Errorf("scan reservation: %w", err)
		}
		if status == statusWaitlisted {
			record.Waitlist = append(record.Waitlist, res)
		} else {
			record.Bookings = append(record.Bookings, res)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load reservations: %w", err)
	}
	state.Record = record
	return state, nil
}

// writeBookingRecord replaces the stored lists with record's lists. The class
// row lock is held by the caller.
func writeBookingRecord(ctx context.Context, tx pgx.Tx, classID string, record *model.BookingRecord) error {
	batch := &pgx.Batch{}
	batch.Queue(`INSERT INTO booking_records (class_id) VALUES ($1) ON CONFLICT (class_id) DO NOTHING`, classID)
	batch.Queue(`DELETE FROM reservations WHERE class_id = $1`, classID)

	queue := func(status string, list []model.Reservation) {
		for i, res := range list {
			batch.Queue(
				`INSERT INTO reservations (class_id, status, position, user_id, user_name, class_name, booking_date)
				 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
				classID, status, i, res.UserID, res.UserName, res.ClassName, res.BookingDate,
			)
		}
	}
	queue(statusConfirmed, record.Bookings)
	queue(statusWaitlisted, record.Waitlist)

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("write booking record: %w", err)
	}
	return nil
}

// ListUserBookings returns all confirmed reservations held by userID.
func (r *ClassRepository) ListUserBookings(ctx context.Context, userID string) ([]model.UserBooking, error) {
	rows, err := r.db.Query(ctx,
		`SELECT r.class_id, r.class_name, r.booking_date
		 FROM reservations r
		 JOIN classes c ON c.class_id = r.class_id
		 WHERE r.user_id = $1 AND r.status = $2
		 ORDER BY c.created_at ASC, r.class_id ASC, r.position ASC`,
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
