package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/apex/log"
	_ "github.com/go-sql-driver/mysql"

	"incident-feed-service/config"
	"incident-feed-service/models"
)

// Database handles all report and vote storage operations
type Database struct {
	db *sql.DB
}

// NewDatabase opens a connection pool to MySQL
func NewDatabase(cfg *config.Config) (*Database, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true&multiStatements=true",
		cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName)

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	log.Infof("Database connected successfully to %s:%s/%s", cfg.DBHost, cfg.DBPort, cfg.DBName)

	return &Database{db: db}, nil
}

// New wraps an existing connection; used by tests.
func New(db *sql.DB) *Database {
	return &Database{db: db}
}

// Close closes the database connection
func (d *Database) Close() error {
	return d.db.Close()
}

// CreateReport inserts a new report and returns it with its assigned id.
func (d *Database) CreateReport(ctx context.Context, report *models.Report) (*models.Report, error) {
	if report.Status == "" {
		report.Status = "Pending"
	}
	report.CreatedAt = time.Now().UTC()

	result, err := d.db.ExecContext(ctx, `
		INSERT INTO incident_reports
		(date, severity, location_latitude, location_longitude, location_accuracy, details, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		report.Date, report.Severity,
		report.Latitude, report.Longitude, report.Accuracy,
		report.Details, report.Status, report.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert report: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get inserted report id: %w", err)
	}
	report.ID = id

	return report, nil
}

const reportColumns = `id, date, severity, location_latitude, location_longitude,
		location_accuracy, details, status, verified, address, created_at`

func scanReport(scanner interface{ Scan(...any) error }) (models.Report, error) {
	var (
		r        models.Report
		lat      sql.NullFloat64
		lon      sql.NullFloat64
		accuracy sql.NullFloat64
		address  sql.NullString
	)
	err := scanner.Scan(&r.ID, &r.Date, &r.Severity, &lat, &lon, &accuracy,
		&r.Details, &r.Status, &r.Verified, &address, &r.CreatedAt)
	if err != nil {
		return models.Report{}, err
	}
	if lat.Valid && lon.Valid {
		r.Latitude = &lat.Float64
		r.Longitude = &lon.Float64
		if accuracy.Valid {
			r.Accuracy = &accuracy.Float64
		}
	}
	if address.Valid && address.String != "" {
		r.Address = &address.String
	}
	return r, nil
}

// GetReports returns all reports, most recent first.
func (d *Database) GetReports(ctx context.Context) ([]models.Report, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT `+reportColumns+`
		FROM incident_reports
		ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query reports: %w", err)
	}
	defer rows.Close()

	reports := make([]models.Report, 0)
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}
		reports = append(reports, r)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating reports: %w", err)
	}
	return reports, nil
}

// GetReportByID returns a single report. Missing reports surface as
// sql.ErrNoRows for callers to map to a not-found error.
func (d *Database) GetReportByID(ctx context.Context, id int64) (*models.Report, error) {
	row := d.db.QueryRowContext(ctx, `
		SELECT `+reportColumns+`
		FROM incident_reports
		WHERE id = ?`, id)

	r, err := scanReport(row)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// UpdateReportAddress caches a resolved display address on a report.
func (d *Database) UpdateReportAddress(ctx context.Context, reportID int64, address string) error {
	_, err := d.db.ExecContext(ctx, `
		UPDATE incident_reports SET address = ? WHERE id = ?`,
		address, reportID)
	if err != nil {
		return fmt.Errorf("failed to update report address: %w", err)
	}
	return nil
}

// UpdateReportStatus sets the free-text status of a report.
func (d *Database) UpdateReportStatus(ctx context.Context, reportID int64, status string) error {
	// Callers verify existence first; an unchanged value legitimately
	// affects zero rows.
	_, err := d.db.ExecContext(ctx, `
		UPDATE incident_reports SET status = ? WHERE id = ?`,
		status, reportID)
	if err != nil {
		return fmt.Errorf("failed to update report status: %w", err)
	}
	return nil
}

// SetReportVerified marks a report as verified by a moderator.
func (d *Database) SetReportVerified(ctx context.Context, reportID int64, verified bool) error {
	_, err := d.db.ExecContext(ctx, `
		UPDATE incident_reports SET verified = ? WHERE id = ?`,
		verified, reportID)
	if err != nil {
		return fmt.Errorf("failed to update report verified flag: %w", err)
	}
	return nil
}

// DeleteReport removes a report and its votes.
func (d *Database) DeleteReport(ctx context.Context, reportID int64) error {
	result, err := d.db.ExecContext(ctx, `
		DELETE FROM incident_reports WHERE id = ?`, reportID)
	if err != nil {
		return fmt.Errorf("failed to delete report: %w", err)
	}
	if err := requireRow(result); err != nil {
		return err
	}
	if _, err := d.db.ExecContext(ctx, `
		DELETE FROM report_votes WHERE report_id = ?`, reportID); err != nil {
		return fmt.Errorf("failed to delete report votes: %w", err)
	}
	return nil
}

// requireRow maps a zero-row update to sql.ErrNoRows.
func requireRow(result sql.Result) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get status of db op: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
