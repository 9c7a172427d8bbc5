// Package diagnostics implements a sqlite packet-trace sink satisfying
// circuit.TraceSink, letting a deployer replay a session's exact datagram
// timeline offline. Grounded on the teacher's store.DB (sql.Open plus a
// migrate step run at Open), generalized from a control-plane users/tokens
// schema to an append-only packet trace.
package diagnostics

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"dev.mvwire.core/protocol/messages"
)

// Sink is a sqlite-backed trace sink for one circuit's lifetime.
type Sink struct {
	db *sql.DB
}

// Open opens (creating if absent) a trace database at path and runs its
// migration.
func Open(path string) (*Sink, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=wal")
	if err != nil {
		return nil, fmt.Errorf("diagnostics: open %s: %w", path, err)
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("diagnostics: migrate %s: %w", path, err)
	}
	return &Sink{db: db}, nil
}

func migrate(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS packets (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			seq INTEGER NOT NULL,
			direction TEXT NOT NULL,
			message_type TEXT NOT NULL,
			size INTEGER NOT NULL,
			reliable INTEGER NOT NULL,
			recorded_at TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_packets_seq ON packets(seq);
		CREATE INDEX IF NOT EXISTS idx_packets_type ON packets(message_type);
	`)
	return err
}

// TraceOutbound records one outbound fragment. Implements circuit.TraceSink.
func (s *Sink) TraceOutbound(seq uint32, reliable bool, t messages.PacketType, n int) {
	s.insert(seq, "out", t, n, reliable)
}

// TraceInbound records one inbound datagram. Implements circuit.TraceSink.
func (s *Sink) TraceInbound(seq uint32, t messages.PacketType, n int) {
	s.insert(seq, "in", t, n, false)
}

func (s *Sink) insert(seq uint32, direction string, t messages.PacketType, n int, reliable bool) {
	_, err := s.db.Exec(
		"INSERT INTO packets (seq, direction, message_type, size, reliable, recorded_at) VALUES (?, ?, ?, ?, ?, ?)",
		seq, direction, t.String(), n, reliable, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return // best-effort tracing; a dropped row must never block the circuit
	}
}

// Close releases the underlying database handle.
func (s *Sink) Close() error {
	return s.db.Close()
}
