package sqlite

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/jobharvest/rod-jobs/internal/filter"
	"github.com/jobharvest/rod-jobs/internal/job"
)

type SqliteOutput struct {
	Database string
	// RunID groups every row written by one run.
	RunID string
	Log   *zap.Logger

	db      *sql.DB
	recChan chan *job.Record
	errChan chan job.ErrorEntry
	wg      sync.WaitGroup

	dbLock sync.Mutex
}

var schema = []string{
	"CREATE TABLE IF NOT EXISTS runs (run_id text not null primary key, search text, started_at text, summary text);",
	"CREATE TABLE IF NOT EXISTS jobs (id integer not null primary key, run_id text, source_url text, company text, title text, record text);",
	"CREATE TABLE IF NOT EXISTS failures (id integer not null primary key, run_id text, source_url text, message text);",
}

func (o *SqliteOutput) Init() error {
	if o.Database == "" {
		return errors.New("sqlite database file not set")
	}
	if o.RunID == "" {
		return errors.New("sqlite run id not set")
	}
	if o.Log == nil {
		o.Log = zap.NewNop()
	}

	db, err := sql.Open("sqlite3", o.Database)
	if err != nil {
		return err
	}
	o.db = db

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return fmt.Errorf("failed to create table %q: %w", stmt, err)
		}
	}

	//Buffered channels as records finish in bursts
	o.recChan = make(chan *job.Record, 20)
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		insert := "INSERT into jobs(run_id, source_url, company, title, record) values(?, ?, ?, ?, ?);"
		for r := range o.recChan {
			payload, err := json.Marshal(r)
			if err != nil {
				o.Log.Error("failed to encode record", zap.String("url", r.SourceURL), zap.Error(err))
				continue
			}
			o.dbLock.Lock()
			_, err = db.Exec(insert, o.RunID, r.SourceURL, r.Company, r.Title, string(payload))
			o.dbLock.Unlock()
			if err != nil {
				o.Log.Error("failed to insert record", zap.String("url", r.SourceURL), zap.Error(err))
			}
		}
	}()

	o.errChan = make(chan job.ErrorEntry, 20)
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		insert := "INSERT into failures(run_id, source_url, message) values(?, ?, ?);"
		for e := range o.errChan {
			o.dbLock.Lock()
			_, err := db.Exec(insert, o.RunID, e.SourceURL, e.Message)
			o.dbLock.Unlock()
			if err != nil {
				o.Log.Error("failed to insert failure", zap.String("url", e.SourceURL), zap.Error(err))
			}
		}
	}()
	return nil
}

// Cleanup flushes pending rows and closes the database.
func (o *SqliteOutput) Cleanup() error {
	close(o.recChan)
	close(o.errChan)
	o.wg.Wait()
	return o.db.Close()
}

// The go sqlite driver does not allow for concurrent writes, so there must only be one "SqliteOutput" object used, but the Handle methods are safe to use by multiple go routines
func (o *SqliteOutput) HandleRecord(r *job.Record) {
	o.recChan <- r
}

func (o *SqliteOutput) HandleFailure(e job.ErrorEntry) {
	o.errChan <- e
}

// HandleSummary stores the run row with its aggregate counts.
func (o *SqliteOutput) HandleSummary(search string, started time.Time, log filter.AggregateLog) error {
	summary, err := json.Marshal(log)
	if err != nil {
		return err
	}
	o.dbLock.Lock()
	defer o.dbLock.Unlock()
	_, err = o.db.Exec("INSERT OR REPLACE into runs(run_id, search, started_at, summary) values(?, ?, ?, ?);",
		o.RunID, search, started.UTC().Format(time.RFC3339), string(summary))
	return err
}

// Write stores one pipeline result: the filtered records, the dropped URLs and
// the summary.
func (o *SqliteOutput) Write(search string, started time.Time, records []*job.Record, dropped []job.ErrorEntry, log filter.AggregateLog) error {
	for _, r := range records {
		o.HandleRecord(r)
	}
	for _, e := range dropped {
		o.HandleFailure(e)
	}
	return o.HandleSummary(search, started, log)
}
