package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"
)

// Document numbering prefixes
const (
	ContractNumberPrefix = "CTR"
	InvoiceNumberPrefix  = "INV"
)

// DefaultSequenceLockTimeout bounds the wait for the per-(prefix, year)
// counter row lock. A caller that cannot acquire it in time fails without
// allocating anything.
const DefaultSequenceLockTimeout = 5 * time.Second

// SequenceService issues unique, monotonically increasing document codes of
// the form PREFIX-YYYY-NNNNNN. Each (prefix, year) pair has its own counter
// row, so contract and invoice numbering never serialize against each other.
type SequenceService struct {
	db          *sql.DB
	lockTimeout time.Duration
}

// NewSequenceService creates a new sequence service
func NewSequenceService(db *sql.DB) *SequenceService {
	return &SequenceService{
		db:          db,
		lockTimeout: DefaultSequenceLockTimeout,
	}
}

// Next allocates the next document code for a prefix and year. Concurrent
// callers for the same (prefix, year) are serialized on the counter row;
// each successful call returns a distinct, increasing value. Gaps from
// rolled-back allocations are acceptable.
func (s *SequenceService) Next(ctx context.Context, prefix string, year int) (string, error) {
	// The first allocation for a (prefix, year) seeds the counter from the
	// highest code already present in the document tables, so deployments
	// that predate the counter keep their numbering uninterrupted. The seed
	// only matters when the row does not exist yet; a concurrent insert
	// winning the race makes ours a no-op.
	seed, err := s.seedFromDocuments(ctx, prefix, year)
	if err != nil {
		return "", fmt.Errorf("failed to seed sequence %s-%d: %w", prefix, year, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin sequence transaction: %w", err)
	}
	defer tx.Rollback()

	lockMillis := s.lockTimeout.Milliseconds()
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", lockMillis)); err != nil {
		return "", fmt.Errorf("failed to set sequence lock timeout: %w", err)
	}

	insert := `
		INSERT INTO document_sequences (prefix, year, last_value)
		VALUES ($1, $2, $3)
		ON CONFLICT (prefix, year) DO NOTHING
	`
	if _, err := tx.ExecContext(ctx, insert, prefix, year, seed); err != nil {
		return "", fmt.Errorf("failed to create sequence row: %w", err)
	}

	var lastValue int
	lock := `SELECT last_value FROM document_sequences WHERE prefix = $1 AND year = $2 FOR UPDATE`
	if err := tx.QueryRowContext(ctx, lock, prefix, year).Scan(&lastValue); err != nil {
		if isLockTimeout(err) {
			return "", &ConcurrencyError{Prefix: prefix, Year: year, Err: err}
		}
		return "", fmt.Errorf("failed to lock sequence row: %w", err)
	}

	next := lastValue + 1
	update := `UPDATE document_sequences SET last_value = $1, updated_at = $2 WHERE prefix = $3 AND year = $4`
	if _, err := tx.ExecContext(ctx, update, next, time.Now(), prefix, year); err != nil {
		return "", fmt.Errorf("failed to advance sequence: %w", err)
	}

	if err := tx.Commit(); err != nil {
		if isLockTimeout(err) {
			return "", &ConcurrencyError{Prefix: prefix, Year: year, Err: err}
		}
		return "", fmt.Errorf("failed to commit sequence allocation: %w", err)
	}

	return FormatDocumentCode(prefix, year, next), nil
}

// seedFromDocuments finds the highest already-issued code with this prefix
// and year across both numbered document tables.
func (s *SequenceService) seedFromDocuments(ctx context.Context, prefix string, year int) (int, error) {
	pattern := fmt.Sprintf("%s-%d-%%", prefix, year)

	queries := []string{
		`SELECT number FROM contract_documents WHERE number LIKE $1 ORDER BY number DESC LIMIT 1`,
		`SELECT invoice_number FROM payment_records WHERE invoice_number LIKE $1 ORDER BY invoice_number DESC LIMIT 1`,
	}

	seed := 0
	for _, query := range queries {
		var code string
		err := s.db.QueryRowContext(ctx, query, pattern).Scan(&code)
		if err == sql.ErrNoRows {
			continue
		}
		if err != nil {
			return 0, err
		}
		if seq := ParseSequenceSuffix(code); seq > seed {
			seed = seq
		}
	}
	return seed, nil
}

// FormatDocumentCode renders a document code as PREFIX-YYYY-NNNNNN.
func FormatDocumentCode(prefix string, year, sequence int) string {
	return fmt.Sprintf("%s-%d-%06d", prefix, year, sequence)
}

// ParseSequenceSuffix extracts the numeric suffix from a document code.
// Unparsable codes count as zero.
func ParseSequenceSuffix(code string) int {
	idx := strings.LastIndex(code, "-")
	if idx < 0 || idx == len(code)-1 {
		return 0
	}
	seq, err := strconv.Atoi(code[idx+1:])
	if err != nil || seq < 0 {
		return 0
	}
	return seq
}

// isLockTimeout reports whether the error is a Postgres lock wait timeout or
// deadlock, i.e. the bounded wait on the counter row expired.
func isLockTimeout(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		// 55P03 lock_not_available, 40P01 deadlock_detected
		return pqErr.Code == "55P03" || pqErr.Code == "40P01"
	}
	return errors.Is(err, context.DeadlineExceeded)
}
