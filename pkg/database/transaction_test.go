package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

type stubTx struct {
	Tx
	open bool
}

func (t *stubTx) IsOpen() bool {
	return t.open
}

type stubDB struct {
	DB
}

func TestFromContext(t *testing.T) {
	db := &stubDB{}

	withTx := func(tx Tx, status string) context.Context {
		ctx := context.WithValue(context.Background(), txKey, tx)
		if status != "" {
			ctx = context.WithValue(ctx, txStatusKey, status)
		}
		return ctx
	}

	t.Run("no transaction falls back to the database", func(t *testing.T) {
		assert.Equal(t, Execer(db), FromContext(context.Background(), db))
	})

	t.Run("open transaction is used", func(t *testing.T) {
		tx := &stubTx{open: true}
		assert.Equal(t, Execer(tx), FromContext(withTx(tx, "open"), db))
	})

	t.Run("closed transaction falls back to the database", func(t *testing.T) {
		tx := &stubTx{open: false}
		assert.Equal(t, Execer(db), FromContext(withTx(tx, "open"), db))
	})

	t.Run("transaction without open status falls back to the database", func(t *testing.T) {
		tx := &stubTx{open: true}
		assert.Equal(t, Execer(db), FromContext(withTx(tx, ""), db))
	})
}
