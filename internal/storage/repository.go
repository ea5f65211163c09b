package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"billtracker/internal/core"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db            *sql.DB
	schemaVersion uint
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// modernc sqlite serializes writers; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	version, err := RunMigrations(dbPath)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db, schemaVersion: version}, nil
}

// SchemaVersion is the migration version applied when the repository opened.
func (r *SQLiteRepository) SchemaVersion() uint {
	return r.schemaVersion
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

const billColumns = `id, name, amount_cents, recurring, day, due_date, autopay`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBill(row rowScanner) (core.Bill, error) {
	var (
		b         core.Bill
		recurring bool
		autopay   bool
		day       sql.NullInt64
		dueDate   sql.NullString
	)
	if err := row.Scan(&b.ID, &b.Name, &b.Amount.Cents, &recurring, &day, &dueDate, &autopay); err != nil {
		return core.Bill{}, err
	}
	b.Recurring = recurring
	b.Autopay = autopay
	if day.Valid {
		b.Day = int(day.Int64)
	}
	if dueDate.Valid && dueDate.String != "" {
		d, err := core.ParseDate(dueDate.String)
		if err != nil {
			return core.Bill{}, fmt.Errorf("bill %d: %w", b.ID, err)
		}
		b.Date = d
	}
	return b, nil
}

// billArgs returns the nullable day and due_date columns for b.
func billArgs(b core.Bill) (day sql.NullInt64, dueDate sql.NullString) {
	if b.Recurring {
		return sql.NullInt64{Int64: int64(b.Day), Valid: true}, sql.NullString{}
	}
	return sql.NullInt64{}, sql.NullString{String: b.Date.String(), Valid: true}
}

// ListBills implements ports.BillStore
func (r *SQLiteRepository) ListBills(ctx context.Context) ([]core.Bill, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+billColumns+` FROM bills ORDER BY name ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list bills: %w", err)
	}
	defer rows.Close()

	var bills []core.Bill
	for rows.Next() {
		b, err := scanBill(rows)
		if err != nil {
			return nil, fmt.Errorf("scan bill: %w", err)
		}
		bills = append(bills, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list bills: %w", err)
	}
	return bills, nil
}

// GetBill implements ports.BillStore
func (r *SQLiteRepository) GetBill(ctx context.Context, id int64) (core.Bill, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+billColumns+` FROM bills WHERE id = ?`, id)
	b, err := scanBill(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Bill{}, fmt.Errorf("bill %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Bill{}, fmt.Errorf("get bill %d: %w", id, err)
	}
	return b, nil
}

// CreateBill implements ports.BillStore
func (r *SQLiteRepository) CreateBill(ctx context.Context, b core.Bill) (core.Bill, error) {
	b = b.Normalize()
	if err := b.Validate(); err != nil {
		return core.Bill{}, err
	}
	day, dueDate := billArgs(b)
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO bills (name, amount_cents, recurring, day, due_date, autopay) VALUES (?, ?, ?, ?, ?, ?)`,
		b.Name, b.Amount.Cents, b.Recurring, day, dueDate, b.Autopay)
	if err != nil {
		return core.Bill{}, fmt.Errorf("create bill: %w", err)
	}
	if b.ID, err = res.LastInsertId(); err != nil {
		return core.Bill{}, fmt.Errorf("create bill: %w", err)
	}

	slog.DebugContext(ctx, "Bill saved to SQLite",
		"bill_id", b.ID,
		"bill_name", b.Name,
		"amount_cents", b.Amount.Cents,
		"recurring", b.Recurring)

	return b, nil
}

// UpdateBill implements ports.BillStore
func (r *SQLiteRepository) UpdateBill(ctx context.Context, b core.Bill) (core.Bill, error) {
	b = b.Normalize()
	if err := b.Validate(); err != nil {
		return core.Bill{}, err
	}
	day, dueDate := billArgs(b)
	res, err := r.db.ExecContext(ctx,
		`UPDATE bills SET name = ?, amount_cents = ?, recurring = ?, day = ?, due_date = ?, autopay = ? WHERE id = ?`,
		b.Name, b.Amount.Cents, b.Recurring, day, dueDate, b.Autopay, b.ID)
	if err != nil {
		return core.Bill{}, fmt.Errorf("update bill %d: %w", b.ID, err)
	}
	if err := expectOneRow(res, "bill", b.ID); err != nil {
		return core.Bill{}, err
	}
	return b, nil
}

// DeleteBill implements ports.BillStore
func (r *SQLiteRepository) DeleteBill(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM bills WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete bill %d: %w", id, err)
	}
	return expectOneRow(res, "bill", id)
}

// ListPayDays implements ports.PayDayStore
func (r *SQLiteRepository) ListPayDays(ctx context.Context) ([]core.PayDay, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, day, amount_cents FROM paydays ORDER BY day ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list paydays: %w", err)
	}
	defer rows.Close()

	var paydays []core.PayDay
	for rows.Next() {
		var p core.PayDay
		if err := rows.Scan(&p.ID, &p.Day, &p.Amount.Cents); err != nil {
			return nil, fmt.Errorf("scan payday: %w", err)
		}
		paydays = append(paydays, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list paydays: %w", err)
	}
	return paydays, nil
}

// CreatePayDay implements ports.PayDayStore
func (r *SQLiteRepository) CreatePayDay(ctx context.Context, p core.PayDay) (core.PayDay, error) {
	if err := p.Validate(); err != nil {
		return core.PayDay{}, err
	}
	res, err := r.db.ExecContext(ctx, `INSERT INTO paydays (day, amount_cents) VALUES (?, ?)`, p.Day, p.Amount.Cents)
	if err != nil {
		return core.PayDay{}, fmt.Errorf("create payday: %w", err)
	}
	if p.ID, err = res.LastInsertId(); err != nil {
		return core.PayDay{}, fmt.Errorf("create payday: %w", err)
	}
	return p, nil
}

// DeletePayDay implements ports.PayDayStore
func (r *SQLiteRepository) DeletePayDay(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM paydays WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete payday %d: %w", id, err)
	}
	return expectOneRow(res, "payday", id)
}

// ReplacePayDay implements ports.PayDayStore
func (r *SQLiteRepository) ReplacePayDay(ctx context.Context, p core.PayDay) (core.PayDay, []int64, error) {
	if err := p.Validate(); err != nil {
		return core.PayDay{}, nil, err
	}
	return r.replacePayDay(ctx, p)
}

// replacePayDay runs the delete and insert in one transaction so a failed
// insert leaves the previous payday in place.
func (r *SQLiteRepository) replacePayDay(ctx context.Context, p core.PayDay) (core.PayDay, []int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.PayDay{}, nil, fmt.Errorf("replace payday: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, `SELECT id FROM paydays WHERE day = ? ORDER BY id ASC`, p.Day)
	if err != nil {
		return core.PayDay{}, nil, fmt.Errorf("replace payday: %w", err)
	}
	var removed []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return core.PayDay{}, nil, fmt.Errorf("scan payday: %w", err)
		}
		removed = append(removed, id)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return core.PayDay{}, nil, fmt.Errorf("replace payday: %w", err)
	}
	rows.Close()

	if _, err := tx.ExecContext(ctx, `DELETE FROM paydays WHERE day = ?`, p.Day); err != nil {
		return core.PayDay{}, nil, fmt.Errorf("replace payday: %w", err)
	}
	res, err := tx.ExecContext(ctx, `INSERT INTO paydays (day, amount_cents) VALUES (?, ?)`, p.Day, p.Amount.Cents)
	if err != nil {
		return core.PayDay{}, nil, fmt.Errorf("replace payday: %w", err)
	}
	if p.ID, err = res.LastInsertId(); err != nil {
		return core.PayDay{}, nil, fmt.Errorf("replace payday: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return core.PayDay{}, nil, fmt.Errorf("replace payday: %w", err)
	}
	return p, removed, nil
}

func expectOneRow(res sql.Result, kind string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s %d: %w", kind, id, err)
	}
	if n == 0 {
		return fmt.Errorf("%s %d: %w", kind, id, core.ErrNotFound)
	}
	return nil
}
