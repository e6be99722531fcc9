package dataset

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/sirupsen/logrus"

	"booking-insights-go/internal/logger"
	"booking-insights-go/internal/types"
)

const sqlDateTime = "2006-01-02 15:04:05"

// MySQLSource loads datasets from a booking platform's MySQL replica.
type MySQLSource struct {
	db  *sql.DB
	log *logger.Logger
}

// OpenMySQL accepts mariadb:// or mysql:// URLs as well as driver DSNs.
func OpenMySQL(dsn string, log *logger.Logger) (*MySQLSource, error) {
	mysqlDSN, err := toMySQLDSN(dsn)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("mysql", mysqlDSN)
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)
	return NewMySQLSource(db, log), nil
}

func NewMySQLSource(db *sql.DB, log *logger.Logger) *MySQLSource {
	if log == nil {
		log = logger.New()
	}
	return &MySQLSource{db: db, log: log.Component("dataset.mysql")}
}

func (s *MySQLSource) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *MySQLSource) Close() error {
	return s.db.Close()
}

// toMySQLDSN normalizes dsn into a driver DSN that always scans DATETIME
// columns into time.Time in UTC.
func toMySQLDSN(dsn string) (string, error) {
	cfg := mysql.NewConfig()
	if strings.HasPrefix(dsn, "mariadb://") || strings.HasPrefix(dsn, "mysql://") {
		u, err := url.Parse(dsn)
		if err != nil {
			return "", fmt.Errorf("parse dsn: %w", err)
		}
		cfg.Net = "tcp"
		cfg.Addr = u.Host
		cfg.DBName = strings.TrimPrefix(u.Path, "/")
		if u.User != nil {
			cfg.User = u.User.Username()
			cfg.Passwd, _ = u.User.Password()
		}
		if cfg.User == "" || cfg.Addr == "" || cfg.DBName == "" {
			return "", fmt.Errorf("incomplete dsn (user/host/db)")
		}
	} else {
		parsed, err := mysql.ParseDSN(dsn)
		if err != nil {
			return "", fmt.Errorf("parse dsn: %w", err)
		}
		cfg = parsed
	}
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	cfg.InterpolateParams = true
	return cfg.FormatDSN(), nil
}

// bounds turns an inclusive date window into a half-open DATETIME range.
func bounds(start, end time.Time) []any {
	from := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	to := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)
	return []any{from.Format(sqlDateTime), to.Format(sqlDateTime)}
}

const (
	bookingsQuery = `
		SELECT id, start_at, online, COALESCE(status, ''), adults, children, revenue,
		       waiver_required, waiver_completed, no_show, COALESCE(activity_id, ''),
		       COALESCE(customer_id, ''), COALESCE(customer_email, '')
		FROM bookings
		WHERE start_at >= ? AND start_at < ?`
	transactionsQuery = `
		SELECT id, created_at, gross, net, discount, refund, COALESCE(customer_email, '')
		FROM transactions
		WHERE created_at >= ? AND created_at < ?`
	revenueItemsQuery = `
		SELECT booking_id, activity_id, created_at, amount
		FROM itemized_revenue
		WHERE created_at >= ? AND created_at < ?`
	paymentsQuery = `
		SELECT id, COALESCE(booking_id, ''), paid_at, amount, COALESCE(method, ''), COALESCE(status, '')
		FROM payments
		WHERE paid_at >= ? AND paid_at < ?`
	availabilityQuery = `
		SELECT activity_id, start_at, capacity, booked
		FROM availability_instances
		WHERE start_at >= ? AND start_at < ?`
	inventoryQuery = `SELECT activity_id, name FROM inventory_items`
	customersQuery = `SELECT id, COALESCE(email, ''), COALESCE(name, '') FROM customers`
	vouchersQuery  = `SELECT code, value, status FROM gift_vouchers`
)

// Load reads every dataset for w. Previous-period tables are read only when
// w carries a comparison range.
func (s *MySQLSource) Load(ctx context.Context, w types.Window) (types.Datasets, error) {
	cur := bounds(w.Start, w.End)
	var ds types.Datasets
	var err error

	if ds.Bookings, err = query(ctx, s.db, bookingsQuery, cur, scanBooking); err != nil {
		return types.Datasets{}, fmt.Errorf("load bookings: %w", err)
	}
	if ds.Transactions, err = query(ctx, s.db, transactionsQuery, cur, scanTransaction); err != nil {
		return types.Datasets{}, fmt.Errorf("load transactions: %w", err)
	}
	if ds.ItemizedRevenue, err = query(ctx, s.db, revenueItemsQuery, cur, scanRevenueItem); err != nil {
		return types.Datasets{}, fmt.Errorf("load itemized revenue: %w", err)
	}
	if ds.Payments, err = query(ctx, s.db, paymentsQuery, cur, scanPayment); err != nil {
		return types.Datasets{}, fmt.Errorf("load payments: %w", err)
	}
	if ds.AvailabilityInstances, err = query(ctx, s.db, availabilityQuery, cur, scanAvailability); err != nil {
		return types.Datasets{}, fmt.Errorf("load availability: %w", err)
	}
	if ds.InventoryItems, err = query(ctx, s.db, inventoryQuery, nil, scanInventory); err != nil {
		return types.Datasets{}, fmt.Errorf("load inventory: %w", err)
	}
	if ds.Customers, err = query(ctx, s.db, customersQuery, nil, scanCustomer); err != nil {
		return types.Datasets{}, fmt.Errorf("load customers: %w", err)
	}
	if ds.Vouchers, err = query(ctx, s.db, vouchersQuery, nil, scanVoucher); err != nil {
		return types.Datasets{}, fmt.Errorf("load vouchers: %w", err)
	}
	future := bounds(w.End.AddDate(0, 0, 1), w.End.AddDate(0, 0, 90))
	if ds.FutureBookings, err = query(ctx, s.db, bookingsQuery, future, scanBooking); err != nil {
		return types.Datasets{}, fmt.Errorf("load future bookings: %w", err)
	}

	if w.HasComparison() {
		cmp := bounds(w.CompareStart, w.CompareEnd)
		prev := &types.PeriodData{}
		if prev.Bookings, err = query(ctx, s.db, bookingsQuery, cmp, scanBooking); err != nil {
			return types.Datasets{}, fmt.Errorf("load previous bookings: %w", err)
		}
		if prev.Transactions, err = query(ctx, s.db, transactionsQuery, cmp, scanTransaction); err != nil {
			return types.Datasets{}, fmt.Errorf("load previous transactions: %w", err)
		}
		if prev.Payments, err = query(ctx, s.db, paymentsQuery, cmp, scanPayment); err != nil {
			return types.Datasets{}, fmt.Errorf("load previous payments: %w", err)
		}
		ds.Previous = prev
	}

	s.log.WithFields(logrus.Fields{
		"start":        cur[0],
		"end":          cur[1],
		"bookings":     len(ds.Bookings),
		"transactions": len(ds.Transactions),
		"comparison":   ds.Previous != nil,
	}).Info("datasets loaded")
	return ds, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func query[T any](ctx context.Context, db *sql.DB, q string, args []any, scan func(scanner) (T, error)) ([]T, error) {
	rows, err := db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		rec, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func scanBooking(r scanner) (types.Booking, error) {
	var b types.Booking
	err := r.Scan(&b.ID, &b.Date, &b.Online, &b.Status, &b.Adults, &b.Children, &b.Revenue,
		&b.WaiverRequired, &b.WaiverCompleted, &b.NoShow, &b.ActivityID, &b.CustomerID, &b.CustomerEmail)
	return b, err
}

func scanTransaction(r scanner) (types.Transaction, error) {
	var t types.Transaction
	err := r.Scan(&t.ID, &t.Date, &t.Gross, &t.Net, &t.Discount, &t.Refund, &t.CustomerEmail)
	return t, err
}

func scanRevenueItem(r scanner) (types.RevenueItem, error) {
	var it types.RevenueItem
	err := r.Scan(&it.BookingID, &it.ActivityID, &it.Date, &it.Amount)
	return it, err
}

func scanPayment(r scanner) (types.Payment, error) {
	var p types.Payment
	err := r.Scan(&p.ID, &p.BookingID, &p.Date, &p.Amount, &p.Method, &p.Status)
	return p, err
}

func scanAvailability(r scanner) (types.AvailabilityInstance, error) {
	var a types.AvailabilityInstance
	err := r.Scan(&a.ActivityID, &a.Start, &a.Capacity, &a.Booked)
	return a, err
}

func scanInventory(r scanner) (types.InventoryItem, error) {
	var it types.InventoryItem
	err := r.Scan(&it.ActivityID, &it.Name)
	return it, err
}

func scanCustomer(r scanner) (types.Customer, error) {
	var c types.Customer
	err := r.Scan(&c.ID, &c.Email, &c.Name)
	return c, err
}

func scanVoucher(r scanner) (types.GiftVoucher, error) {
	var v types.GiftVoucher
	err := r.Scan(&v.Code, &v.Value, &v.Status)
	return v, err
}
