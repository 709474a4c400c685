// Package data stores the last calculation of every session and an append-only
// history of calculations in sqlite.
package data

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"time"

	"github.com/ansel1/merry"
	"github.com/fpawel/gasflow/internal/pkg"
	"github.com/jmoiron/sqlx"
)

//go:embed schema.sql
var SQLCreate string

const TimeLayout = "2006-01-02 15:04:05.000"

// calculation kinds
const (
	KindGas = "gas"
	KindCTL = "ctl"
)

var ErrNotFound = merry.New("no stored calculation").WithHTTPCode(404)

func Open(filename string) (*sqlx.DB, error) {
	db, err := pkg.OpenSqliteDBx(filename)
	if err != nil {
		return nil, merry.Append(err, filename)
	}
	if _, err := db.Exec(SQLCreate); err != nil {
		_ = db.Close()
		return nil, merry.Append(err, "create schema")
	}
	return db, nil
}

// Entry is a stored calculation. Input and Result hold the JSON encoding of
// the request and its result.
type Entry struct {
	ID         int64           `json:"id,omitempty"`
	SessionKey string          `json:"session_key"`
	Kind       string          `json:"kind"`
	SavedAt    time.Time       `json:"saved_at"`
	Input      json.RawMessage `json:"input"`
	Result     json.RawMessage `json:"result"`
}

type row struct {
	ID         int64  `db:"id"`
	SessionKey string `db:"session_key"`
	Kind       string `db:"kind"`
	SavedAt    string `db:"saved_at"`
	InputJSON  string `db:"input_json"`
	ResultJSON string `db:"result_json"`
}

func (x row) entry() (Entry, error) {
	t, err := time.ParseInLocation(TimeLayout, x.SavedAt, time.UTC)
	if err != nil {
		return Entry{}, merry.Append(err, "saved_at")
	}
	return Entry{
		ID:         x.ID,
		SessionKey: x.SessionKey,
		Kind:       x.Kind,
		SavedAt:    t,
		Input:      json.RawMessage(x.InputJSON),
		Result:     json.RawMessage(x.ResultJSON),
	}, nil
}

// Decode unmarshals the stored input and result.
func (x Entry) Decode(input, result interface{}) error {
	if err := json.Unmarshal(x.Input, input); err != nil {
		return merry.Append(err, "input_json")
	}
	if err := json.Unmarshal(x.Result, result); err != nil {
		return merry.Append(err, "result_json")
	}
	return nil
}

// SaveLast replaces the last calculation of kind for the session and appends
// it to the history.
func SaveLast(ctx context.Context, db *sqlx.DB, key, kind string, input, result interface{}) error {
	in, err := json.Marshal(input)
	if err != nil {
		return merry.Wrap(err)
	}
	res, err := json.Marshal(result)
	if err != nil {
		return merry.Wrap(err)
	}
	tm := time.Now().UTC().Format(TimeLayout)

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return merry.Wrap(err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO calc(session_key, kind, saved_at, input_json, result_json) VALUES (?, ?, ?, ?, ?)`,
		key, kind, tm, string(in), string(res)); err != nil {
		_ = tx.Rollback()
		return merry.Append(err, "calc")
	}
	r, err := tx.ExecContext(ctx,
		`INSERT INTO calc_history(session_key, kind, saved_at, input_json, result_json) VALUES (?, ?, ?, ?, ?)`,
		key, kind, tm, string(in), string(res))
	if err != nil {
		_ = tx.Rollback()
		return merry.Append(err, "calc_history")
	}
	if _, err := pkg.SqlGetNewInsertedID(r); err != nil {
		_ = tx.Rollback()
		return err
	}
	return merry.Wrap(tx.Commit())
}

// GetLast returns the last calculation of kind for the session or ErrNotFound.
func GetLast(ctx context.Context, db *sqlx.DB, key, kind string) (Entry, error) {
	var x row
	err := db.GetContext(ctx, &x,
		`SELECT 0 AS id, session_key, kind, saved_at, input_json, result_json FROM calc WHERE session_key = ? AND kind = ?`,
		key, kind)
	if err == sql.ErrNoRows {
		return Entry{}, ErrNotFound.Here().Appendf("%s %s", kind, key)
	}
	if err != nil {
		return Entry{}, merry.Wrap(err)
	}
	return x.entry()
}

// ListHistory returns up to limit most recent calculations, newest first.
func ListHistory(ctx context.Context, db *sqlx.DB, limit int) ([]Entry, error) {
	var rows []row
	if err := db.SelectContext(ctx, &rows,
		`SELECT id, session_key, kind, saved_at, input_json, result_json FROM calc_history ORDER BY id DESC LIMIT ?`,
		limit); err != nil {
		return nil, merry.Wrap(err)
	}
	xs := make([]Entry, 0, len(rows))
	for _, r := range rows {
		x, err := r.entry()
		if err != nil {
			return nil, err
		}
		xs = append(xs, x)
	}
	return xs, nil
}
