package storage

import (
	"encoding/json"
	"log"
	"os"
	"time"

	"paper_trading/internal/models"

	"github.com/shopspring/decimal"
)

func init() {
	// The state document is read by external report tooling that expects
	// plain JSON numbers for cash, qty and totals.
	decimal.MarshalJSONWithoutQuotes = true
}

// Store persists the portfolio document as a single JSON file.
// The whole document is the unit of durability: no field-level writes.
//
// There is deliberately no lock and no concurrency token. Two runners
// sharing one document race with last-writer-wins; the design assumes a
// single scheduled runner.
type Store struct {
	Path         string
	StartingCash decimal.Decimal
}

// New returns a Store writing to path, seeding fresh documents with
// startingCash.
func New(path string, startingCash decimal.Decimal) *Store {
	return &Store{Path: path, StartingCash: startingCash}
}

// defaultState builds a brand-new portfolio document.
func (st *Store) defaultState() models.PortfolioState {
	s := models.PortfolioState{
		StartDate: time.Now().Format("2006-01-02"),
		Cash:      st.StartingCash,
	}
	s.Normalize()
	return s
}

// Load reads the document from disk. A missing file yields a fresh
// default document which is persisted immediately. Any other failure
// yields an ephemeral default so the run can still proceed; the loss of
// durability is logged loudly, never hidden.
func (st *Store) Load() models.PortfolioState {
	b, err := os.ReadFile(st.Path)
	if os.IsNotExist(err) {
		log.Printf("State file %s missing, creating a new document", st.Path)
		s := st.defaultState()
		st.Save(s)
		return s
	}
	if err != nil {
		log.Printf("ERROR: Could not read state file %s: %v. Running with EPHEMERAL state; this run will not be persisted to the next.", st.Path, err)
		return st.defaultState()
	}

	var s models.PortfolioState
	if err := json.Unmarshal(b, &s); err != nil {
		log.Printf("ERROR: Corrupt state file %s: %v. Running with EPHEMERAL state; this run will not be persisted to the next.", st.Path, err)
		return st.defaultState()
	}

	// Older documents predate the equity curve.
	s.Normalize()
	return s
}

// Save writes the document atomically: temp file, fsync, rename.
// A failed save is logged and swallowed; the in-memory state stays valid
// for this run's report, the next run simply will not see it.
func (st *Store) Save(s models.PortfolioState) {
	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		log.Printf("ERROR: Failed to marshal state: %v", err)
		return
	}

	tmp := st.Path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		log.Printf("ERROR: Failed to create temp state file: %v", err)
		return
	}
	defer f.Close()

	if _, err := f.Write(b); err != nil {
		log.Printf("ERROR: Failed to write temp state file: %v", err)
		return
	}
	if err := f.Sync(); err != nil {
		log.Printf("ERROR: Failed to sync temp state file: %v", err)
		return
	}
	f.Close()

	if err := os.Rename(tmp, st.Path); err != nil {
		log.Printf("ERROR: Failed to replace state file (atomic rename): %v", err)
	}
}
