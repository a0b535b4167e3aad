package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"tripsched/internal/model"
)

//go:embed migrations/*.sql
var migrations embed.FS

type Postgres struct {
	db *sql.DB
}

func NewPostgres(dsn string) (*Postgres, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	return &Postgres{db: db}, nil
}

func (p *Postgres) Ping(ctx context.Context) error { return p.db.PingContext(ctx) }

func (p *Postgres) Close() error { return p.db.Close() }

// Migrate applies the embedded schema files in lexical order. Every statement is idempotent.
func (p *Postgres) Migrate(ctx context.Context) error {
	names, err := fs.Glob(migrations, "migrations/*.sql")
	if err != nil {
		return err
	}
	sort.Strings(names)
	for _, name := range names {
		body, err := migrations.ReadFile(name)
		if err != nil {
			return err
		}
		if _, err := p.db.ExecContext(ctx, string(body)); err != nil {
			return fmt.Errorf("migrate %s: %w", name, err)
		}
	}
	return nil
}

const tripColumns = `id, tenant_id, customer_id, driver_id, vehicle_id, trip_date, pickup_minute, band, status, type,
    pickup_address, pickup_lat, pickup_lng, dest_address, dest_lat, dest_lng, price, schedule_entry_id, created_at, updated_at`

type rowScanner interface{ Scan(dest ...any) error }

func scanTrip(row rowScanner) (model.Trip, error) {
	var t model.Trip
	var driverID, vehicleID, entryID sql.NullString
	var date time.Time
	var minute int
	var band, status, typ string
	var pAddr, dAddr sql.NullString
	var pLat, pLng, dLat, dLng sql.NullFloat64
	err := row.Scan(&t.ID, &t.TenantID, &t.CustomerID, &driverID, &vehicleID, &date, &minute, &band, &status, &typ,
		&pAddr, &pLat, &pLng, &dAddr, &dLat, &dLng, &t.Price, &entryID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return t, err
	}
	t.DriverID = driverID.String
	t.VehicleID = vehicleID.String
	t.ScheduleEntryID = entryID.String
	t.Date = date.Format(model.DateLayout)
	t.PickupTime = model.Clock(minute)
	t.Band = model.Band(band)
	t.Status = model.TripStatus(status)
	t.Type = model.TripType(typ)
	t.Pickup = location(pAddr, pLat, pLng)
	t.Destination = location(dAddr, dLat, dLng)
	return t, nil
}

func (p *Postgres) ListTrips(ctx context.Context, tenantID string, f model.TripFilter) ([]model.Trip, error) {
	where := []string{"tenant_id=$1"}
	args := []any{tenantID}
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.From != "" {
		add("trip_date >= $%d", f.From)
	}
	if f.To != "" {
		add("trip_date <= $%d", f.To)
	}
	if f.DriverID != "" {
		add("driver_id = $%d", f.DriverID)
	}
	if f.CustomerID != "" {
		add("customer_id = $%d", f.CustomerID)
	}
	if len(f.Statuses) > 0 {
		ss := make([]string, len(f.Statuses))
		for i, s := range f.Statuses {
			ss[i] = string(s)
		}
		add("status = ANY($%d)", ss)
	}
	if f.UnassignedOnly {
		where = append(where, "(driver_id IS NULL OR driver_id = '')")
	}
	q := `SELECT ` + tripColumns + ` FROM trips WHERE ` + strings.Join(where, " AND ") + ` ORDER BY trip_date, pickup_minute, customer_id, id`
	rows, err := p.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Trip{}
	for rows.Next() {
		t, err := scanTrip(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (p *Postgres) GetTrip(ctx context.Context, tenantID, id string) (model.Trip, error) {
	row := p.db.QueryRowContext(ctx, `SELECT `+tripColumns+` FROM trips WHERE tenant_id=$1 AND id=$2`, tenantID, id)
	t, err := scanTrip(row)
	if errors.Is(err, sql.ErrNoRows) {
		return t, ErrNotFound
	}
	return t, err
}

// SaveTrips writes the change set in one transaction. Updates run first so a slot freed by an
// update can be reused by an insert of the same batch.
func (p *Postgres) SaveTrips(ctx context.Context, tenantID string, changes model.TripChanges) error {
	if changes.Empty() {
		return nil
	}
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC()
	for _, t := range changes.Updates {
		pLat, pLng := coords(t.Pickup)
		dLat, dLng := coords(t.Destination)
		res, err := tx.ExecContext(ctx, `UPDATE trips SET customer_id=$1, driver_id=$2, vehicle_id=$3, trip_date=$4, pickup_minute=$5, band=$6,
            status=$7, type=$8, pickup_address=$9, pickup_lat=$10, pickup_lng=$11, dest_address=$12, dest_lat=$13, dest_lng=$14,
            price=$15, schedule_entry_id=$16, updated_at=$17 WHERE tenant_id=$18 AND id=$19`,
			t.CustomerID, nullIfEmpty(t.DriverID), nullIfEmpty(t.VehicleID), t.Date, int(t.PickupTime), string(t.Band),
			string(t.Status), string(t.Type), nullIfEmpty(t.Pickup.Address), pLat, pLng, nullIfEmpty(t.Destination.Address), dLat, dLng,
			t.Price, nullIfEmpty(t.ScheduleEntryID), now, tenantID, t.ID)
		if err != nil {
			return mapWriteErr(err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("update trip %s: %w", t.ID, ErrNotFound)
		}
	}
	for _, t := range changes.Inserts {
		if t.ID == "" {
			t.ID = uuid.New().String()
		}
		pLat, pLng := coords(t.Pickup)
		dLat, dLng := coords(t.Destination)
		_, err := tx.ExecContext(ctx, `INSERT INTO trips (id, tenant_id, customer_id, driver_id, vehicle_id, trip_date, pickup_minute, band, status, type,
            pickup_address, pickup_lat, pickup_lng, dest_address, dest_lat, dest_lng, price, schedule_entry_id, created_at, updated_at)
            VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$19)`,
			t.ID, tenantID, t.CustomerID, nullIfEmpty(t.DriverID), nullIfEmpty(t.VehicleID), t.Date, int(t.PickupTime), string(t.Band),
			string(t.Status), string(t.Type), nullIfEmpty(t.Pickup.Address), pLat, pLng, nullIfEmpty(t.Destination.Address), dLat, dLng,
			t.Price, nullIfEmpty(t.ScheduleEntryID), now)
		if err != nil {
			return mapWriteErr(err)
		}
	}
	return tx.Commit()
}

func (p *Postgres) ListScheduleEntries(ctx context.Context, tenantID string) ([]model.ScheduleEntry, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT id, customer_id, weekday, pickup_address, pickup_lat, pickup_lng, dest_address, dest_lat, dest_lng,
        pickup_minute, daily_price, driver_id FROM schedule_entries WHERE tenant_id=$1 ORDER BY customer_id, weekday, pickup_minute`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.ScheduleEntry{}
	for rows.Next() {
		var e model.ScheduleEntry
		var weekday, minute int
		var pAddr, dAddr, driverID sql.NullString
		var pLat, pLng, dLat, dLng sql.NullFloat64
		if err := rows.Scan(&e.ID, &e.CustomerID, &weekday, &pAddr, &pLat, &pLng, &dAddr, &dLat, &dLng, &minute, &e.DailyPrice, &driverID); err != nil {
			return nil, err
		}
		e.TenantID = tenantID
		e.Weekday = time.Weekday(weekday)
		e.PickupTime = model.Clock(minute)
		e.Pickup = location(pAddr, pLat, pLng)
		e.Destination = location(dAddr, dLat, dLng)
		e.DriverID = driverID.String
		out = append(out, e)
	}
	return out, rows.Err()
}

func (p *Postgres) PutScheduleEntry(ctx context.Context, tenantID string, e model.ScheduleEntry) (model.ScheduleEntry, error) {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	e.TenantID = tenantID
	pLat, pLng := coords(e.Pickup)
	dLat, dLng := coords(e.Destination)
	_, err := p.db.ExecContext(ctx, `INSERT INTO schedule_entries (tenant_id, id, customer_id, weekday, pickup_address, pickup_lat, pickup_lng,
        dest_address, dest_lat, dest_lng, pickup_minute, daily_price, driver_id) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
        ON CONFLICT (tenant_id, id) DO UPDATE SET customer_id=EXCLUDED.customer_id, weekday=EXCLUDED.weekday,
        pickup_address=EXCLUDED.pickup_address, pickup_lat=EXCLUDED.pickup_lat, pickup_lng=EXCLUDED.pickup_lng,
        dest_address=EXCLUDED.dest_address, dest_lat=EXCLUDED.dest_lat, dest_lng=EXCLUDED.dest_lng,
        pickup_minute=EXCLUDED.pickup_minute, daily_price=EXCLUDED.daily_price, driver_id=EXCLUDED.driver_id`,
		tenantID, e.ID, e.CustomerID, int(e.Weekday), nullIfEmpty(e.Pickup.Address), pLat, pLng,
		nullIfEmpty(e.Destination.Address), dLat, dLng, int(e.PickupTime), e.DailyPrice, nullIfEmpty(e.DriverID))
	if err != nil {
		return model.ScheduleEntry{}, err
	}
	return e, nil
}

const driverColumns = `id, name, active, vehicle_id, vehicle_capacity, vehicle_accessible, max_trips_per_day`

func scanDriver(row rowScanner, tenantID string) (model.Driver, error) {
	var d model.Driver
	err := row.Scan(&d.ID, &d.Name, &d.Active, &d.Vehicle.ID, &d.Vehicle.Capacity, &d.Vehicle.WheelchairAccessible, &d.MaxTripsPerDay)
	d.TenantID = tenantID
	return d, err
}

func (p *Postgres) ListDrivers(ctx context.Context, tenantID string, activeOnly bool) ([]model.Driver, error) {
	q := `SELECT ` + driverColumns + ` FROM drivers WHERE tenant_id=$1`
	if activeOnly {
		q += ` AND active`
	}
	rows, err := p.db.QueryContext(ctx, q+` ORDER BY id`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Driver{}
	for rows.Next() {
		d, err := scanDriver(rows, tenantID)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (p *Postgres) GetDriver(ctx context.Context, tenantID, id string) (model.Driver, error) {
	d, err := scanDriver(p.db.QueryRowContext(ctx, `SELECT `+driverColumns+` FROM drivers WHERE tenant_id=$1 AND id=$2`, tenantID, id), tenantID)
	if errors.Is(err, sql.ErrNoRows) {
		return d, ErrNotFound
	}
	return d, err
}

func (p *Postgres) PutDriver(ctx context.Context, tenantID string, d model.Driver) (model.Driver, error) {
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	d.TenantID = tenantID
	_, err := p.db.ExecContext(ctx, `INSERT INTO drivers (tenant_id, `+driverColumns+`) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        ON CONFLICT (tenant_id, id) DO UPDATE SET name=EXCLUDED.name, active=EXCLUDED.active, vehicle_id=EXCLUDED.vehicle_id,
        vehicle_capacity=EXCLUDED.vehicle_capacity, vehicle_accessible=EXCLUDED.vehicle_accessible, max_trips_per_day=EXCLUDED.max_trips_per_day`,
		tenantID, d.ID, d.Name, d.Active, d.Vehicle.ID, d.Vehicle.Capacity, d.Vehicle.WheelchairAccessible, d.MaxTripsPerDay)
	if err != nil {
		return model.Driver{}, err
	}
	return d, nil
}

func (p *Postgres) ListCustomers(ctx context.Context, tenantID string) ([]model.Customer, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT id, name, requires_wheelchair FROM customers WHERE tenant_id=$1 ORDER BY id`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Customer{}
	for rows.Next() {
		var c model.Customer
		if err := rows.Scan(&c.ID, &c.Name, &c.RequiresWheelchair); err != nil {
			return nil, err
		}
		c.TenantID = tenantID
		out = append(out, c)
	}
	return out, rows.Err()
}

func (p *Postgres) PutCustomer(ctx context.Context, tenantID string, c model.Customer) (model.Customer, error) {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	c.TenantID = tenantID
	_, err := p.db.ExecContext(ctx, `INSERT INTO customers (tenant_id, id, name, requires_wheelchair) VALUES ($1,$2,$3,$4)
        ON CONFLICT (tenant_id, id) DO UPDATE SET name=EXCLUDED.name, requires_wheelchair=EXCLUDED.requires_wheelchair`,
		tenantID, c.ID, c.Name, c.RequiresWheelchair)
	if err != nil {
		return model.Customer{}, err
	}
	return c, nil
}

// Helpers
func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func coords(l model.Location) (lat, lng any) {
	if l.Point == nil {
		return nil, nil
	}
	return l.Point.Lat, l.Point.Lng
}

func location(addr sql.NullString, lat, lng sql.NullFloat64) model.Location {
	l := model.Location{Address: addr.String}
	if lat.Valid && lng.Valid {
		l.Point = &model.GeoPoint{Lat: lat.Float64, Lng: lng.Float64}
	}
	return l
}

// mapWriteErr turns a unique violation on the regular-slot index into ErrDuplicateTrip.
func mapWriteErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%s: %w", pgErr.ConstraintName, ErrDuplicateTrip)
	}
	return err
}
