package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/azimuth-networks/radiosync/internal/config"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// ErrNoDeployment is returned when the database has no deployment record for
// the requested serial number.
var ErrNoDeployment = errors.New("no deployment record")

// DeploymentRecord holds the customer and site parameters a radio is
// deployed with.
type DeploymentRecord struct {
	CustomerID   int64
	CustomerName string
	Email        string
	Phone        string
	Active       bool
	Address      string
	City         string
	State        string
	Zip          string
	Latitude     *float64
	Longitude    *float64
}

// DeploymentSource resolves a device serial number to its deployment
// parameters. The deploy operation is its only consumer.
type DeploymentSource interface {
	LookupDeployment(ctx context.Context, serial string) (*DeploymentRecord, error)
}

// SQLStore reads deployment records through database/sql.
type SQLStore struct {
	db    *sql.DB
	query string
}

var _ DeploymentSource = (*SQLStore)(nil)

const lookupQuery = `
SELECT
    c.id,
    c.name,
    c.email,
    c.phone,
    c.active,
    COALESCE(a.addr1, c.addr1) AS addr1,
    COALESCE(a.city, c.city) AS city,
    COALESCE(a.state, c.state) AS state,
    COALESCE(a.zip, c.zip) AS zip,
    a.latitude,
    a.longitude
FROM customer c
LEFT JOIN address a ON c.id = a.idnum AND a.type = 6
WHERE c.id = (
    SELECT status_detail FROM inventory_record WHERE serial_number = %s
)`

// Open connects to the deployment database described by cfg and verifies the
// connection before returning.
func Open(cfg config.Database) (*SQLStore, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if driver == "" {
		driver = "sqlite"
	}
	var dsn, placeholder string
	switch driver {
	case "sqlite":
		dsn = cfg.Path
		placeholder = "?"
	case "postgres":
		dsn = fmt.Sprintf("host=%s port=%s dbname=%s user=%s password=%s sslmode=require",
			cfg.Host, cfg.Port, cfg.Name, cfg.User, cfg.Password)
		placeholder = "$1"
	default:
		return nil, errors.Errorf("unsupported database driver %q", cfg.Driver)
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, errors.Wrap(err, "open deployment database")
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "ping deployment database")
	}
	log.Debug().Str("driver", driver).Msg("deployment database connected")
	return NewSQLStore(db, placeholder), nil
}

// NewSQLStore wraps an existing database handle. placeholder is the bind
// marker of the underlying driver ("?" or "$1").
func NewSQLStore(db *sql.DB, placeholder string) *SQLStore {
	if strings.TrimSpace(placeholder) == "" {
		placeholder = "?"
	}
	return &SQLStore{db: db, query: fmt.Sprintf(lookupQuery, placeholder)}
}

// Close releases the underlying database handle.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// LookupDeployment fetches the deployment record keyed by serial number.
// Returns ErrNoDeployment when the serial has no matching customer.
func (s *SQLStore) LookupDeployment(ctx context.Context, serial string) (*DeploymentRecord, error) {
	row := s.db.QueryRowContext(ctx, s.query, serial)
	var (
		rec          DeploymentRecord
		email, phone sql.NullString
		addr, city   sql.NullString
		state, zip   sql.NullString
		lat, lon     sql.NullFloat64
	)
	err := row.Scan(&rec.CustomerID, &rec.CustomerName, &email, &phone, &rec.Active,
		&addr, &city, &state, &zip, &lat, &lon)
	if err == sql.ErrNoRows {
		return nil, ErrNoDeployment
	}
	if err != nil {
		return nil, errors.Wrapf(err, "lookup deployment for %s", serial)
	}
	rec.Email = email.String
	rec.Phone = phone.String
	rec.Address = addr.String
	rec.City = city.String
	rec.State = state.String
	rec.Zip = zip.String
	if lat.Valid {
		rec.Latitude = &lat.Float64
	}
	if lon.Valid {
		rec.Longitude = &lon.Float64
	}
	return &rec, nil
}
