package trace

import (
	"database/sql"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/structs"
	// Need to use SQLite connections.
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/xid"
	"github.com/sarchlab/akita/v4/sim"
	"github.com/tebeka/atexit"

	"github.com/sarchlab/mmusim/cache"
)

const accessTable = "access"

// AccessRecord is one row of the access table.
type AccessRecord struct {
	Session string
	Seq     int64
	Event   string
	Unit    string
	Address string
	Hit     bool
	Dirty   bool
	State   string
}

// Recorder is a hook that stores every cache event in a SQLite database.
// Rows are buffered and written in batches.
type Recorder struct {
	*sql.DB

	path      string
	session   string
	seq       int64
	batchSize int
	pending   []AccessRecord
}

// NewRecorder creates a new database at path + ".sqlite3". An empty path
// picks a unique name. Buffered rows are flushed when the program exits
// through atexit.
func NewRecorder(path string) (*Recorder, error) {
	session := xid.New().String()
	if path == "" {
		path = "mmusim_trace_" + session
	}

	filename := path + ".sqlite3"
	if _, err := os.Stat(filename); err == nil {
		return nil, fmt.Errorf("file %s already exists", filename)
	}

	db, err := sql.Open("sqlite3", filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open trace database: %w", err)
	}

	r := &Recorder{
		DB:        db,
		path:      filename,
		session:   session,
		batchSize: 10000,
	}

	if err := r.createTable(); err != nil {
		_ = db.Close()
		return nil, err
	}

	fmt.Fprintf(os.Stderr, "Cache accesses are recorded in %s\n", filename)

	atexit.Register(func() { _ = r.Flush() })

	return r, nil
}

func (r *Recorder) createTable() error {
	columns := strings.Join(structs.Names(AccessRecord{}), ", \n\t")

	_, err := r.Exec(`CREATE TABLE ` + accessTable + ` (` + "\n\t" + columns + "\n" + `);`)
	if err != nil {
		return fmt.Errorf("failed to create access table: %w", err)
	}

	return nil
}

// Path returns the database file name.
func (r *Recorder) Path() string {
	return r.path
}

// Session returns the id stored with every row of this recorder.
func (r *Recorder) Session() string {
	return r.session
}

// Func records one cache event.
func (r *Recorder) Func(ctx sim.HookCtx) {
	info, ok := ctx.Item.(cache.AccessInfo)
	if !ok {
		return
	}

	r.seq++
	r.pending = append(r.pending, AccessRecord{
		Session: r.session,
		Seq:     r.seq,
		Event:   ctx.Pos.Name,
		Unit:    info.Unit,
		Address: fmt.Sprintf("0x%x", info.Address.Uint64()),
		Hit:     info.Hit,
		Dirty:   info.Dirty,
		State:   info.State.String(),
	})

	if len(r.pending) >= r.batchSize {
		if err := r.Flush(); err != nil {
			panic(err)
		}
	}
}

// Flush writes the buffered rows in one transaction.
func (r *Recorder) Flush() error {
	if len(r.pending) == 0 {
		return nil
	}

	tx, err := r.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	marks := strings.TrimSuffix(strings.Repeat("?, ", len(structs.Names(AccessRecord{}))), ", ")

	stmt, err := tx.Prepare("INSERT INTO " + accessTable + " VALUES (" + marks + ")")
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, rec := range r.pending {
		if _, err := stmt.Exec(structs.Values(rec)...); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to insert access %d: %w", rec.Seq, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit accesses: %w", err)
	}

	r.pending = nil

	return nil
}

// Close flushes and closes the database.
func (r *Recorder) Close() error {
	if err := r.Flush(); err != nil {
		return err
	}

	return r.DB.Close()
}

// EventCount is the number of events of one kind seen by one unit.
type EventCount struct {
	Unit  string
	Event string
	Count int
}

// Counts summarizes the flushed rows per unit and event.
func (r *Recorder) Counts() ([]EventCount, error) {
	rows, err := r.Query(`SELECT Unit, Event, COUNT(*) FROM ` + accessTable +
		` GROUP BY Unit, Event ORDER BY Unit, Event`)
	if err != nil {
		return nil, fmt.Errorf("failed to query access counts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []EventCount

	for rows.Next() {
		var c EventCount
		if err := rows.Scan(&c.Unit, &c.Event, &c.Count); err != nil {
			return nil, fmt.Errorf("failed to scan access counts: %w", err)
		}

		out = append(out, c)
	}

	return out, rows.Err()
}
