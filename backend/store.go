package backend

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/brutella/hc/log"
	_ "github.com/mattn/go-sqlite3"

	"github.com/ra1nb0w/pistream"
)

// Store keeps the last applied settings in a sqlite database so they
// survive a restart. It only ever holds one row.
type Store struct {
	dbFile   string
	dbHandle *sql.DB
}

// OpenStore opens or creates the database at dbFile.
func OpenStore(dbFile string) (*Store, error) {
	log.Debug.Println("Open database " + dbFile)
	db, err := sql.Open("sqlite3", dbFile)
	if err != nil {
		return nil, err
	}

	s := &Store{dbFile: dbFile, dbHandle: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) createSchema() error {
	createSettingsTableSQL := `
CREATE TABLE IF NOT EXISTS device_settings (
"id" integer NOT NULL PRIMARY KEY CHECK ("id" = 1),
"datetime" DATE DEFAULT (datetime('now')),
"brightness" integer NOT NULL,
"infrared" integer NOT NULL
);`

	if _, err := s.dbHandle.Exec(createSettingsTableSQL); err != nil {
		return fmt.Errorf("create device_settings: %w", err)
	}
	return nil
}

// LoadSettings returns the saved settings; ok is false when nothing was
// saved yet.
func (s *Store) LoadSettings() (settings pistream.Settings, ok bool, err error) {
	row := s.dbHandle.QueryRow(`SELECT brightness, infrared FROM device_settings WHERE id = 1`)

	err = row.Scan(&settings.Brightness, &settings.Infrared)
	if errors.Is(err, sql.ErrNoRows) {
		return settings, false, nil
	}
	if err != nil {
		return settings, false, err
	}
	return settings, true, nil
}

// SaveSettings replaces the saved settings.
func (s *Store) SaveSettings(settings pistream.Settings) error {
	q := `INSERT OR REPLACE INTO device_settings(id, brightness, infrared) VALUES (1, ?, ?)`
	_, err := s.dbHandle.Exec(q, settings.Brightness, settings.Infrared)
	return err
}

func (s *Store) Close() error {
	return s.dbHandle.Close()
}
