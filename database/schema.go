package database

import (
	"fmt"

	"github.com/apex/log"
)

// InitSchema creates the necessary database tables if they don't exist
func (d *Database) InitSchema() error {
	log.Info("Initializing incident feed database schema...")

	reportsTableSQL := `
	CREATE TABLE IF NOT EXISTS incident_reports(
		id INT NOT NULL AUTO_INCREMENT,
		date VARCHAR(64) NOT NULL,
		severity VARCHAR(255) NOT NULL,
		location_latitude DOUBLE,
		location_longitude DOUBLE,
		location_accuracy DOUBLE,
		details TEXT NOT NULL,
		status VARCHAR(64) NOT NULL DEFAULT 'Pending',
		verified BOOL NOT NULL DEFAULT false,
		address VARCHAR(512),
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (id),
		INDEX created_at_index (created_at)
	)`

	if _, err := d.db.Exec(reportsTableSQL); err != nil {
		return fmt.Errorf("failed to create incident_reports table: %w", err)
	}
	log.Info("Incident_reports table created/verified")

	votesTableSQL := `
	CREATE TABLE IF NOT EXISTS report_votes(
		report_id INT NOT NULL,
		voter_id VARCHAR(255) NOT NULL,
		value TINYINT NOT NULL,
		UNIQUE KEY idx_report_voter (report_id, voter_id),
		INDEX report_id_index (report_id)
	)`

	if _, err := d.db.Exec(votesTableSQL); err != nil {
		return fmt.Errorf("failed to create report_votes table: %w", err)
	}
	log.Info("Report_votes table created/verified")

	return nil
}
