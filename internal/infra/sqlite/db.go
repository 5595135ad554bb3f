// Package sqlite persists clock events and tickets and implements the
// data-access contract consumed by the session engine. Event timestamps are
// stored as Unix epoch seconds; work dates as local YYYY-MM-DD strings.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/ponto-labs/ponto/internal/domain"
)

// ─── Schema ─────────────────────────────────────────────────────────────────

// Migrations returns the schema migration statements.
// Each string is a single SQL statement (SQLite executes one at a time).
func Migrations() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS clock_events (
			id         TEXT PRIMARY KEY,
			entry_time INTEGER NOT NULL,
			kind       TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_clock_events_time ON clock_events(entry_time)`,

		`CREATE TABLE IF NOT EXISTS tickets (
			id            TEXT PRIMARY KEY,
			identifier    TEXT NOT NULL,
			work_date     TEXT NOT NULL,
			total_seconds INTEGER NOT NULL DEFAULT 0,
			active_since  INTEGER,
			created_at    INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_tickets_date ON tickets(work_date)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_tickets_day_identifier ON tickets(work_date, identifier)`,
	}
}

// DB wraps the SQLite connection.
type DB struct {
	db       *sql.DB
	onChange func(table string)
}

// Open opens (creating if necessary) the database at path and applies
// migrations. Use ":memory:" for tests.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// Single writer; avoids SQLITE_BUSY from the modernc driver.
	db.SetMaxOpenConns(1)

	for _, stmt := range Migrations() {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
	}
	return &DB{db: db}, nil
}

// Close closes the underlying connection.
func (d *DB) Close() error { return d.db.Close() }

// SetOnChange registers a callback fired after every successful mutation,
// with the affected table name. This backs the push channel that tells
// connected clients to refetch; leaving it unset degrades to manual refresh.
func (d *DB) SetOnChange(fn func(table string)) { d.onChange = fn }

func (d *DB) notify(table string) {
	if d.onChange != nil {
		d.onChange(table)
	}
}

// ─── Clock Event Operations ─────────────────────────────────────────────────

// AppendEvent inserts a new clock event at the given timestamp. The kind is
// validated here so no unknown marking ever reaches the table.
func (d *DB) AppendEvent(ctx context.Context, kind domain.EventKind, at time.Time) (domain.ClockEvent, error) {
	if !kind.Valid() {
		return domain.ClockEvent{}, domain.ErrInvalidKind
	}
	ev := domain.ClockEvent{
		ID:        uuid.NewString(),
		Timestamp: at.Truncate(time.Second),
		Kind:      kind,
	}
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO clock_events (id, entry_time, kind) VALUES (?, ?, ?)
	`, ev.ID, ev.Timestamp.Unix(), string(ev.Kind))
	if err != nil {
		return domain.ClockEvent{}, fmt.Errorf("append event: %w", err)
	}
	d.notify("clock_events")
	return ev, nil
}

// UpdateEventTime moves an existing event to a new timestamp.
func (d *DB) UpdateEventTime(ctx context.Context, id string, newTime time.Time) (domain.ClockEvent, error) {
	res, err := d.db.ExecContext(ctx, `
		UPDATE clock_events SET entry_time = ? WHERE id = ?
	`, newTime.Truncate(time.Second).Unix(), id)
	if err != nil {
		return domain.ClockEvent{}, fmt.Errorf("update event time: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ClockEvent{}, domain.ErrEventNotFound
	}
	d.notify("clock_events")
	return d.getEvent(ctx, id)
}

func (d *DB) getEvent(ctx context.Context, id string) (domain.ClockEvent, error) {
	var ev domain.ClockEvent
	var epoch int64
	var kind string
	err := d.db.QueryRowContext(ctx, `
		SELECT id, entry_time, kind FROM clock_events WHERE id = ?
	`, id).Scan(&ev.ID, &epoch, &kind)
	if err == sql.ErrNoRows {
		return domain.ClockEvent{}, domain.ErrEventNotFound
	}
	if err != nil {
		return domain.ClockEvent{}, fmt.Errorf("get event: %w", err)
	}
	ev.Timestamp = time.Unix(epoch, 0).In(time.Local)
	ev.Kind = domain.EventKind(kind)
	return ev, nil
}

// DeleteLastEventOfDay removes the newest event of the given local calendar
// day. Used by the reopen-workday correction flow.
func (d *DB) DeleteLastEventOfDay(ctx context.Context, day time.Time) error {
	start, end := dayBounds(day)
	var id string
	err := d.db.QueryRowContext(ctx, `
		SELECT id FROM clock_events
		WHERE entry_time >= ? AND entry_time < ?
		ORDER BY entry_time DESC LIMIT 1
	`, start, end).Scan(&id)
	if err == sql.ErrNoRows {
		return domain.ErrNoEvents
	}
	if err != nil {
		return fmt.Errorf("find last event: %w", err)
	}
	if _, err := d.db.ExecContext(ctx, `DELETE FROM clock_events WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete last event: %w", err)
	}
	d.notify("clock_events")
	return nil
}

func (d *DB) eventsBetween(ctx context.Context, start, end int64) ([]domain.ClockEvent, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT id, entry_time, kind FROM clock_events
		WHERE entry_time >= ? AND entry_time < ?
		ORDER BY entry_time ASC
	`, start, end)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []domain.ClockEvent
	for rows.Next() {
		var ev domain.ClockEvent
		var epoch int64
		var kind string
		if err := rows.Scan(&ev.ID, &epoch, &kind); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		ev.Timestamp = time.Unix(epoch, 0).In(time.Local)
		ev.Kind = domain.EventKind(kind)
		events = append(events, ev)
	}
	return events, rows.Err()
}

// ─── Ticket Operations ──────────────────────────────────────────────────────

// CreateTicket inserts an empty ticket for the given work date.
func (d *DB) CreateTicket(ctx context.Context, identifier, workDate string) (domain.Ticket, error) {
	t := domain.Ticket{
		ID:         uuid.NewString(),
		Identifier: identifier,
		WorkDate:   workDate,
	}
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO tickets (id, identifier, work_date, total_seconds, created_at)
		VALUES (?, ?, ?, 0, ?)
	`, t.ID, t.Identifier, t.WorkDate, time.Now().Unix())
	if err != nil {
		return domain.Ticket{}, fmt.Errorf("create ticket: %w", err)
	}
	d.notify("tickets")
	return t, nil
}

// UpdateTicketSeconds sets a ticket's accumulated whole seconds.
func (d *DB) UpdateTicketSeconds(ctx context.Context, id string, seconds int64) error {
	res, err := d.db.ExecContext(ctx, `
		UPDATE tickets SET total_seconds = ? WHERE id = ?
	`, seconds, id)
	if err != nil {
		return fmt.Errorf("update ticket seconds: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrTicketNotFound
	}
	d.notify("tickets")
	return nil
}

// UpdateTicketAccrual writes a running ticket's accumulated seconds and
// advances active_since in one statement. Stored totals are therefore always
// "as of" the stored activation time, which is what keeps the load-time
// reconciliation exact across accrual snapshots.
func (d *DB) UpdateTicketAccrual(ctx context.Context, id string, seconds int64, since time.Time) error {
	res, err := d.db.ExecContext(ctx, `
		UPDATE tickets SET total_seconds = ?, active_since = ? WHERE id = ?
	`, seconds, since.Unix(), id)
	if err != nil {
		return fmt.Errorf("update ticket accrual: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrTicketNotFound
	}
	d.notify("tickets")
	return nil
}

// SetTicketActive marks a ticket as accruing since the given time, or stops
// it when since is nil. Activation clears active_since on every other ticket
// of the same work date in the same transaction, so the singleton invariant
// holds even if the caller's state is stale.
func (d *DB) SetTicketActive(ctx context.Context, id string, since *time.Time) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if since != nil {
		_, err = tx.ExecContext(ctx, `
			UPDATE tickets SET active_since = NULL
			WHERE active_since IS NOT NULL
			  AND work_date = (SELECT work_date FROM tickets WHERE id = ?)
			  AND id != ?
		`, id, id)
		if err != nil {
			return fmt.Errorf("clear other active tickets: %w", err)
		}
	}

	var sinceEpoch interface{}
	if since != nil {
		sinceEpoch = since.Unix()
	}
	res, err := tx.ExecContext(ctx, `
		UPDATE tickets SET active_since = ? WHERE id = ?
	`, sinceEpoch, id)
	if err != nil {
		return fmt.Errorf("set ticket active: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrTicketNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	d.notify("tickets")
	return nil
}

// DeleteTicket removes a ticket.
func (d *DB) DeleteTicket(ctx context.Context, id string) error {
	res, err := d.db.ExecContext(ctx, `DELETE FROM tickets WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete ticket: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrTicketNotFound
	}
	d.notify("tickets")
	return nil
}

func (d *DB) ticketsByDates(ctx context.Context, fromDate, toDate string) ([]domain.Ticket, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT id, identifier, work_date, total_seconds, active_since FROM tickets
		WHERE work_date >= ? AND work_date <= ?
		ORDER BY created_at ASC
	`, fromDate, toDate)
	if err != nil {
		return nil, fmt.Errorf("query tickets: %w", err)
	}
	defer rows.Close()

	var tickets []domain.Ticket
	for rows.Next() {
		var t domain.Ticket
		var since sql.NullInt64
		if err := rows.Scan(&t.ID, &t.Identifier, &t.WorkDate, &t.AccumulatedSeconds, &since); err != nil {
			return nil, fmt.Errorf("scan ticket: %w", err)
		}
		if since.Valid {
			ts := time.Unix(since.Int64, 0).In(time.Local)
			t.ActiveSince = &ts
		}
		tickets = append(tickets, t)
	}
	return tickets, rows.Err()
}

// ─── Fetch Operations ───────────────────────────────────────────────────────

// FetchDay returns one local calendar day's events (ascending by timestamp)
// and tickets.
func (d *DB) FetchDay(ctx context.Context, day time.Time) ([]domain.ClockEvent, []domain.Ticket, error) {
	start, end := dayBounds(day)
	events, err := d.eventsBetween(ctx, start, end)
	if err != nil {
		return nil, nil, err
	}
	key := domain.DateKey(day)
	tickets, err := d.ticketsByDates(ctx, key, key)
	if err != nil {
		return nil, nil, err
	}
	return events, tickets, nil
}

// FetchRange returns all events and tickets between two local calendar days,
// inclusive. Used by the monthly and weekly aggregators.
func (d *DB) FetchRange(ctx context.Context, from, to time.Time) ([]domain.ClockEvent, []domain.Ticket, error) {
	start, _ := dayBounds(from)
	_, end := dayBounds(to)
	events, err := d.eventsBetween(ctx, start, end)
	if err != nil {
		return nil, nil, err
	}
	tickets, err := d.ticketsByDates(ctx, domain.DateKey(from), domain.DateKey(to))
	if err != nil {
		return nil, nil, err
	}
	return events, tickets, nil
}

// dayBounds returns [00:00 of day, 00:00 of the next day) as epoch seconds.
func dayBounds(day time.Time) (int64, int64) {
	start := domain.StartOfDay(day)
	return start.Unix(), start.AddDate(0, 0, 1).Unix()
}
