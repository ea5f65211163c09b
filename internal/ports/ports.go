package ports

import (
	"context"

	"billtracker/internal/core"
)

// Ports for outbound storage adapters.
type (
	// BillStore persists bills. ListBills orders by name.
	BillStore interface {
		ListBills(ctx context.Context) ([]core.Bill, error)
		// GetBill returns core.ErrNotFound for unknown ids.
		GetBill(ctx context.Context, id int64) (core.Bill, error)
		// CreateBill assigns a new id and returns the stored bill.
		CreateBill(ctx context.Context, b core.Bill) (core.Bill, error)
		UpdateBill(ctx context.Context, b core.Bill) (core.Bill, error)
		DeleteBill(ctx context.Context, id int64) error
	}

	// PayDayStore persists paydays. ListPayDays orders by day then id.
	PayDayStore interface {
		ListPayDays(ctx context.Context) ([]core.PayDay, error)
		CreatePayDay(ctx context.Context, p core.PayDay) (core.PayDay, error)
		DeletePayDay(ctx context.Context, id int64) error
		// ReplacePayDay removes every payday on p.Day and stores p in one
		// atomic step, returning the stored payday and the removed ids.
		ReplacePayDay(ctx context.Context, p core.PayDay) (core.PayDay, []int64, error)
	}

	// Store is a backend serving both record kinds.
	Store interface {
		BillStore
		PayDayStore
	}
)
