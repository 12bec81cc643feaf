// Package repository is the versioned specimen store. Objects live in a
// SQLite database keyed by a generated UUID; every write also appends the
// content to a version history.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/agentstation/specimap/internal/repository/schema"
	"github.com/agentstation/specimap/pkg/constants"
	"github.com/agentstation/specimap/pkg/errors"
	"github.com/agentstation/specimap/pkg/logging"
	"github.com/agentstation/specimap/pkg/reconcile"
	"github.com/agentstation/specimap/pkg/specimen"
)

// Store is a SQLite-backed repository. It is safe for concurrent use; a
// file lock keeps other processes out of the same database.
type Store struct {
	db     *sql.DB
	path   string
	lock   *flock.Flock
	schema *schema.Schema
}

// Version is one entry of an object's history.
type Version struct {
	Number     int             `json:"version" yaml:"version"`
	Content    specimen.Fields `json:"content" yaml:"content"`
	RecordedAt time.Time       `json:"recorded_at" yaml:"recorded_at"`
}

// Open creates or opens the database at path and validates against the
// named schema. An empty path selects constants.DefaultRepositoryFile.
func Open(ctx context.Context, path, schemaName string) (*Store, error) {
	if path == "" {
		path = constants.DefaultRepositoryFile
	}
	if schemaName == "" {
		schemaName = constants.DefaultSchemaName
	}
	sch, err := schema.Load(schemaName)
	if err != nil {
		return nil, &errors.ConfigError{Component: "repository", Message: "loading schema " + schemaName, Err: err}
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, constants.DirPermissions); err != nil {
			return nil, errors.WrapIO("mkdir", dir, err)
		}
	}

	lock := flock.New(path + ".lock")
	ok, err := lock.TryLock()
	if err != nil {
		return nil, errors.WrapIO("lock", path+".lock", err)
	}
	if !ok {
		return nil, errors.NewRepositoryError("open", path, false, errors.New("database is in use by another specimap process"))
	}

	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		_ = lock.Unlock()
		return nil, errors.NewRepositoryError("open", path, false, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		_ = lock.Unlock()
		return nil, errors.NewRepositoryError("open", path, false, err)
	}

	s := &Store{db: db, path: path, lock: lock, schema: sch}
	if err := s.applyMigrations(ctx); err != nil {
		_ = s.Close()
		return nil, errors.NewRepositoryError("migrate", path, false, err)
	}

	logging.FromContext(ctx).Debug().Str("path", path).Str("schema", sch.Name).Msg("Opened repository")
	return s, nil
}

// connection pragmas. They go in the DSN so every pooled connection gets
// them; write transactions take the lock up front.
var pragmas = []string{
	"busy_timeout(5000)",
	"journal_mode(WAL)",
	"foreign_keys(1)",
}

func dsn(path string) string {
	q := "_txlock=immediate"
	for _, p := range pragmas {
		q += "&_pragma=" + p
	}
	return "file:" + path + "?" + q
}

// Path returns the database file.
func (s *Store) Path() string {
	return s.path
}

// Schema returns the schema content is validated against.
func (s *Store) Schema() *schema.Schema {
	return s.schema
}

// Close closes the database and releases the process lock.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	err := s.db.Close()
	if s.lock != nil {
		_ = s.lock.Unlock()
	}
	return err
}

// Validate implements reconcile.Repository.
func (s *Store) Validate(_ context.Context, content specimen.Fields, requireID bool) error {
	return s.schema.Validate(content, requireID)
}

// FindByNaturalKey implements reconcile.Repository.
func (s *Store) FindByNaturalKey(ctx context.Context, key specimen.NaturalKey) ([]specimen.Fields, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT content FROM specimens
		 WHERE scientific_name = ? AND institution_code = ? AND physical_specimen_id = ?
		 ORDER BY created_at, id`,
		key.ScientificName, key.InstitutionCode, key.PhysicalSpecimenID,
	)
	if err != nil {
		return nil, s.classify("find", key.String(), err)
	}
	defer func() { _ = rows.Close() }()

	var matches []specimen.Fields
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, s.classify("find", key.String(), err)
		}
		content, err := decode(raw)
		if err != nil {
			return nil, errors.NewRepositoryError("find", key.String(), false, err)
		}
		matches = append(matches, content)
	}
	if err := rows.Err(); err != nil {
		return nil, s.classify("find", key.String(), err)
	}
	return matches, nil
}

// Create implements reconcile.Repository. The id is generated here.
func (s *Store) Create(ctx context.Context, content specimen.Fields) (string, error) {
	id := uuid.NewString()
	content = content.Copy()
	content[specimen.FieldID] = id
	if err := s.schema.Validate(content, true); err != nil {
		return "", err
	}
	raw, err := json.Marshal(content)
	if err != nil {
		return "", errors.NewRepositoryError("create", id, false, err)
	}
	key := keyOf(content)
	now := timestamp()

	err = s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO specimens (
				id, scientific_name, institution_code, physical_specimen_id,
				version, content, created_at, updated_at
			) VALUES (?, ?, ?, ?, 1, ?, ?, ?)`,
			id, key.ScientificName, key.InstitutionCode, key.PhysicalSpecimenID,
			string(raw), now, now,
		); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO specimen_versions (specimen_id, version, content, recorded_at) VALUES (?, 1, ?, ?)`,
			id, string(raw), now,
		)
		return err
	})
	if err != nil {
		return "", s.classify("create", id, err)
	}
	return id, nil
}

// Update implements reconcile.Repository. It bumps the object's version
// and records the new content in its history.
func (s *Store) Update(ctx context.Context, id string, content specimen.Fields) error {
	content = content.Copy()
	content[specimen.FieldID] = id
	if err := s.schema.Validate(content, true); err != nil {
		return err
	}
	raw, err := json.Marshal(content)
	if err != nil {
		return errors.NewRepositoryError("update", id, false, err)
	}
	key := keyOf(content)
	now := timestamp()

	err = s.withTx(ctx, func(tx *sql.Tx) error {
		var version int
		row := tx.QueryRowContext(ctx, "SELECT version FROM specimens WHERE id = ?", id)
		if err := row.Scan(&version); err != nil {
			if stderrors.Is(err, sql.ErrNoRows) {
				return &errors.NotFoundError{Resource: "specimen", ID: id}
			}
			return err
		}
		version++
		if _, err := tx.ExecContext(ctx,
			`UPDATE specimens SET
				scientific_name = ?, institution_code = ?, physical_specimen_id = ?,
				version = ?, content = ?, updated_at = ?
			 WHERE id = ?`,
			key.ScientificName, key.InstitutionCode, key.PhysicalSpecimenID,
			version, string(raw), now, id,
		); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO specimen_versions (specimen_id, version, content, recorded_at) VALUES (?, ?, ?, ?)`,
			id, version, string(raw), now,
		)
		return err
	})
	if err != nil {
		return s.classify("update", id, err)
	}
	return nil
}

// Get returns the current content of an object.
func (s *Store) Get(ctx context.Context, id string) (specimen.Fields, bool, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, "SELECT content FROM specimens WHERE id = ?", id).Scan(&raw)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, s.classify("get", id, err)
	}
	content, err := decode(raw)
	if err != nil {
		return nil, false, errors.NewRepositoryError("get", id, false, err)
	}
	return content, true, nil
}

// History returns every version of an object, oldest first.
func (s *Store) History(ctx context.Context, id string) ([]Version, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT version, content, recorded_at FROM specimen_versions WHERE specimen_id = ? ORDER BY version",
		id,
	)
	if err != nil {
		return nil, s.classify("history", id, err)
	}
	defer func() { _ = rows.Close() }()

	var versions []Version
	for rows.Next() {
		var (
			v        Version
			raw, rec string
		)
		if err := rows.Scan(&v.Number, &raw, &rec); err != nil {
			return nil, s.classify("history", id, err)
		}
		if v.Content, err = decode(raw); err != nil {
			return nil, errors.NewRepositoryError("history", id, false, err)
		}
		v.RecordedAt, _ = time.Parse(time.RFC3339Nano, rec)
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

// Count returns the number of stored objects.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM specimens").Scan(&n); err != nil {
		return 0, s.classify("count", "", err)
	}
	return n, nil
}

const (
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// withTx runs fn in a transaction, retrying the whole transaction while
// the database stays busy past the busy timeout.
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	delay := busyRetryInitialBackoff
	var err error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		err = s.runTx(ctx, fn)
		if !isBusy(err) || attempt == busyRetryAttempts-1 {
			return err
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return err
}

func (s *Store) runTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func isBusy(err error) bool {
	var sqlErr *sqlite.Error
	if !stderrors.As(err, &sqlErr) {
		return false
	}
	switch sqlErr.Code() & 0xff {
	case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
		return true
	}
	return false
}

// classify wraps a database error. Only constraint conflicts are soft: a
// concurrent writer already stored the same natural key. Everything else,
// including a database that stayed busy, is hard.
func (s *Store) classify(op, id string, err error) error {
	if err == nil {
		return nil
	}
	var sqlErr *sqlite.Error
	if stderrors.As(err, &sqlErr) && sqlErr.Code()&0xff == sqlite3.SQLITE_CONSTRAINT {
		return errors.NewRepositoryError(op, id, true, err)
	}
	return errors.NewRepositoryError(op, id, false, err)
}

func keyOf(content specimen.Fields) specimen.NaturalKey {
	r := specimen.Record{Fields: content}
	return specimen.NaturalKey{
		ScientificName:     r.String(specimen.FieldScientificName),
		InstitutionCode:    r.String(specimen.FieldInstitutionCode),
		PhysicalSpecimenID: r.String(specimen.FieldPhysicalSpecimenID),
	}
}

func decode(raw string) (specimen.Fields, error) {
	var content specimen.Fields
	if err := json.Unmarshal([]byte(raw), &content); err != nil {
		return nil, err
	}
	return content, nil
}

func timestamp() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

var _ reconcile.Repository = (*Store)(nil)
