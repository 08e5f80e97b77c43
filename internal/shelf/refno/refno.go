// Package refno allocates the per-owner display numbers ("Ref No.") of books
// and wishlist items. Each collection has its own numbering space.
//
// A number is reserved through a row in ref_counters that is locked for the
// rest of the caller's transaction, so two concurrent creates for the same
// owner are serialised and can never see the same value. The counter is also
// reconciled with MAX(ref_no) because bulk imports insert explicit numbers
// without touching it.
package refno

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"bookshelf-backend/internal/platform/db"
)

type Collection string

const (
	Books    Collection = "books"
	Wishlist Collection = "wishlist"
)

// MaxAttempts: デッドロック・UNIQUE衝突時の再試行回数
const MaxAttempts = 3

func (c Collection) table() (string, error) {
	switch c {
	case Books:
		return "books", nil
	case Wishlist:
		return "wishlist", nil
	}
	return "", fmt.Errorf("refno: unknown collection %q", string(c))
}

// Next reserves and returns the next ref_no for owner in c. It must run in
// the same transaction as the INSERT that uses the number.
func Next(ctx context.Context, tx db.DBTX, owner int64, c Collection) (int, error) {
	table, err := c.table()
	if err != nil {
		return 0, err
	}

	const ensure = `
	INSERT INTO ref_counters (user_id, collection, last_ref_no)
	VALUES (?, ?, 0)
	ON DUPLICATE KEY UPDATE last_ref_no = last_ref_no`
	if _, err := tx.ExecContext(ctx, ensure, owner, string(c)); err != nil {
		return 0, err
	}

	const lock = `SELECT last_ref_no FROM ref_counters WHERE user_id = ? AND collection = ? FOR UPDATE`
	var counter int
	if err := tx.QueryRowContext(ctx, lock, owner, string(c)).Scan(&counter); err != nil {
		return 0, err
	}

	// テーブル名は table() で固定値に限定している
	maxQ := fmt.Sprintf(`SELECT COALESCE(MAX(ref_no), 0) FROM %s WHERE user_id = ? LOCK IN SHARE MODE`, table)
	var current int
	if err := tx.QueryRowContext(ctx, maxQ, owner).Scan(&current); err != nil {
		return 0, err
	}

	next := nextFrom(counter, current)

	const bump = `UPDATE ref_counters SET last_ref_no = ? WHERE user_id = ? AND collection = ?`
	if _, err := tx.ExecContext(ctx, bump, next, owner, string(c)); err != nil {
		return 0, err
	}
	return next, nil
}

func nextFrom(counter, currentMax int) int {
	if currentMax > counter {
		return currentMax + 1
	}
	return counter + 1
}

// InTx runs fn in a transaction and retries it when MySQL reports a deadlock,
// a lock wait timeout or a duplicate (user_id, ref_no).
func InTx(ctx context.Context, conn *sql.DB, fn func(ctx context.Context, tx db.DBTX) error) error {
	var err error
	for attempt := 1; attempt <= MaxAttempts; attempt++ {
		err = db.RunInTx(ctx, conn, &sql.TxOptions{}, fn)
		if err == nil {
			return nil
		}
		if !db.IsRetryable(err) && !db.IsDuplicateKey(err) {
			return err
		}
		if ctx.Err() != nil {
			return err
		}
		log.Printf("[WARN] ref_no allocation conflict (attempt %d/%d): %v", attempt, MaxAttempts, err)
	}
	return err
}
