package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"zkregistry/internal/merkle"
	"zkregistry/pkg/platform/tx"
)

const uniqueViolation = "23505"

// PostgresLedger persists the head root and every accepted submission.
// The head row is locked for the duration of a submission so concurrent
// submitters serialize on it.
type PostgresLedger struct {
	db       *sql.DB
	registry string
	now      func() time.Time
}

func NewPostgres(db *sql.DB, registry string) *PostgresLedger {
	return &PostgresLedger{db: db, registry: registry, now: time.Now}
}

func (l *PostgresLedger) Head(ctx context.Context) (Head, error) {
	var (
		root  string
		nonce int64
	)
	err := l.db.QueryRowContext(ctx,
		`SELECT root, nonce FROM ledger_heads WHERE registry = $1`, l.registry,
	).Scan(&root, &nonce)
	if errors.Is(err, sql.ErrNoRows) {
		return Head{}, nil
	}
	if err != nil {
		return Head{}, fmt.Errorf("read ledger head: %w", err)
	}
	return toHead(root, nonce)
}

func (l *PostgresLedger) Submit(ctx context.Context, u RootUpdate) (Receipt, error) {
	if existing, ok := tx.From(ctx); ok {
		return l.submit(ctx, existing, u)
	}
	sqlTx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return Receipt{}, fmt.Errorf("begin ledger tx: %w", err)
	}
	r, err := l.submit(tx.WithTx(ctx, sqlTx), sqlTx, u)
	if err != nil {
		_ = sqlTx.Rollback()
		return Receipt{}, err
	}
	if err := sqlTx.Commit(); err != nil {
		return Receipt{}, fmt.Errorf("commit ledger tx: %w", err)
	}
	return r, nil
}

func (l *PostgresLedger) submit(ctx context.Context, sqlTx *sql.Tx, u RootUpdate) (Receipt, error) {
	// seed the head row so FOR UPDATE always has something to lock
	_, err := sqlTx.ExecContext(ctx,
		`INSERT INTO ledger_heads (registry, root, nonce, updated_at)
		 VALUES ($1, $2, 0, $3)
		 ON CONFLICT (registry) DO NOTHING`,
		l.registry, merkle.Zero.String(), l.now().UTC(),
	)
	if err != nil {
		return Receipt{}, fmt.Errorf("seed ledger head: %w", err)
	}

	var (
		root  string
		nonce int64
	)
	err = sqlTx.QueryRowContext(ctx,
		`SELECT root, nonce FROM ledger_heads WHERE registry = $1 FOR UPDATE`, l.registry,
	).Scan(&root, &nonce)
	if err != nil {
		return Receipt{}, fmt.Errorf("lock ledger head: %w", err)
	}
	head, err := toHead(root, nonce)
	if err != nil {
		return Receipt{}, err
	}
	if err := check(head, u); err != nil {
		return Receipt{}, err
	}

	r := newReceipt(u, l.now().UTC())
	_, err = sqlTx.ExecContext(ctx,
		`INSERT INTO ledger_submissions
		 (id, registry, nonce, previous_root, new_root, identity, tx_hash, status, submitted_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		r.ID, l.registry, int64(u.Nonce), u.PreviousRoot.String(), u.NewRoot.String(),
		u.Identity.String(), r.Hash, string(r.Status), r.SubmittedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return Receipt{}, fmt.Errorf("%w: %d", ErrNonceUsed, u.Nonce)
		}
		return Receipt{}, fmt.Errorf("insert ledger submission: %w", err)
	}
	_, err = sqlTx.ExecContext(ctx,
		`UPDATE ledger_heads SET root = $2, nonce = $3, updated_at = $4 WHERE registry = $1`,
		l.registry, u.NewRoot.String(), int64(u.Nonce), r.SubmittedAt,
	)
	if err != nil {
		return Receipt{}, fmt.Errorf("advance ledger head: %w", err)
	}
	return r, nil
}

// Submissions returns the accepted updates for identity, oldest first.
func (l *PostgresLedger) Submissions(ctx context.Context, identity merkle.Hash) ([]Receipt, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT id, tx_hash, status, nonce, submitted_at
		 FROM ledger_submissions
		 WHERE registry = $1 AND identity = $2
		 ORDER BY nonce`,
		l.registry, identity.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("list ledger submissions: %w", err)
	}
	defer rows.Close()

	var out []Receipt
	for rows.Next() {
		var (
			r      Receipt
			status string
			nonce  int64
		)
		if err := rows.Scan(&r.ID, &r.Hash, &status, &nonce, &r.SubmittedAt); err != nil {
			return nil, fmt.Errorf("scan ledger submission: %w", err)
		}
		r.Status = Status(status)
		r.Nonce = uint64(nonce)
		out = append(out, r)
	}
	return out, rows.Err()
}

func toHead(root string, nonce int64) (Head, error) {
	h, err := merkle.ParseHash(root)
	if err != nil {
		return Head{}, fmt.Errorf("corrupt ledger head root: %w", err)
	}
	return Head{Root: h, Nonce: uint64(nonce)}, nil
}
