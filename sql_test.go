package ctvgen

import (
	"database/sql"
	"strings"
	"testing"

	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/require"
)

func testLedger(t *testing.T) *SqliteDB {
	t.Helper()
	db, err := NewSqliteDB("", ":memory:")
	require.NoError(t, err)
	require.NoError(t, db.InitDBTable())
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSqliteDBInsertExists(t *testing.T) {
	db := testLedger(t)

	require.NoError(t, db.CreateTable("items", []string{
		"id INTEGER PRIMARY KEY AUTOINCREMENT",
		"name VARCHAR(32)",
		"size INTEGER",
	}))

	id, err := db.Insert("items", map[string]interface{}{"name": "a", "size": 1})
	require.NoError(t, err)
	require.Equal(t, int64(1), id)

	id, err = db.Insert("items", map[string]interface{}{"size": 2, "name": "b"})
	require.NoError(t, err)
	require.Equal(t, int64(2), id)

	ok, err := db.Exists("items", []string{"name=?", "size=?"}, []interface{}{"b", 2})
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = db.Exists("items", []string{"name=?"}, []interface{}{"c"})
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = db.Exists("items", nil, nil)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = db.Insert("missing", map[string]interface{}{"name": "x"})
	require.Error(t, err)
}

func TestLedgerRuns(t *testing.T) {
	db := testLedger(t)
	seed := testSeed(0xab)

	runID, err := db.InsertRun(seed, 10, "out.json")
	require.NoError(t, err)

	rec, err := db.GetRun(runID)
	require.NoError(t, err)
	require.Equal(t, runID, rec.ID)
	require.Equal(t, strings.Repeat("ab", SeedSize), rec.Seed)
	require.Equal(t, 10, rec.Count)
	require.Equal(t, "out.json", rec.OutPath)
	require.False(t, rec.Started.IsZero())
	require.True(t, rec.Finished.IsZero())

	require.NoError(t, db.FinishRun(runID, 2))
	rec, err = db.GetRun(runID)
	require.NoError(t, err)
	require.False(t, rec.Finished.IsZero())
	require.Equal(t, 2, rec.Mismatches)

	_, err = db.GetRun(runID + 100)
	require.Error(t, err)
}

func TestLedgerVectors(t *testing.T) {
	db := testLedger(t)

	runID, err := db.InsertRun(testSeed(1), 2, "-")
	require.NoError(t, err)

	tx := simpleTemplateTx()
	duplicates, err := db.InsertVectors(runID, []*wire.MsgTx{tx, scriptSigTemplateTx()})
	require.NoError(t, err)
	require.Zero(t, duplicates)

	ok, err := db.ExistsVector(tx.TxHash().String())
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = db.ExistsVector(scriptSigTemplateTx().TxHash().String())
	require.NoError(t, err)
	require.True(t, ok)

	n, err := db.CountVectors(runID)
	require.NoError(t, err)
	require.Equal(t, 2, n)

	n, err = db.CountVectors(runID + 1)
	require.NoError(t, err)
	require.Zero(t, n)

	// 再次记录相同交易时统计重复数量
	runID2, err := db.InsertRun(testSeed(1), 1, "-")
	require.NoError(t, err)
	duplicates, err = db.InsertVectors(runID2, []*wire.MsgTx{tx})
	require.NoError(t, err)
	require.Equal(t, 1, duplicates)
}

// 任一插入失败时整个事务回滚
func TestInsertVectorsRollback(t *testing.T) {
	db := testLedger(t)

	runID, err := db.InsertRun(testSeed(3), 2, "-")
	require.NoError(t, err)

	err = db.WithTx(func(dbTx *sql.Tx) error {
		if _, err := insert(dbTx, "vectors", vectorRow(runID, simpleTemplateTx())); err != nil {
			return err
		}
		_, err := insert(dbTx, "vectors", map[string]interface{}{"missing": 1})
		return err
	})
	require.Error(t, err)

	n, err := db.CountVectors(runID)
	require.NoError(t, err)
	require.Zero(t, n)

	// 回滚后连接仍可使用
	_, err = db.InsertVectors(runID, []*wire.MsgTx{simpleTemplateTx()})
	require.NoError(t, err)
	n, err = db.CountVectors(runID)
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func TestNewSqliteDBFile(t *testing.T) {
	dir := t.TempDir()

	db, err := NewSqliteDB(dir, DbFile)
	require.NoError(t, err)
	require.NoError(t, db.InitDBTable())
	runID, err := db.InsertRun(testSeed(2), 1, "-")
	require.NoError(t, err)
	require.NoError(t, db.Close())

	// 重新打开，建表可重复执行
	db, err = NewSqliteDB(dir, DbFile)
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, db.InitDBTable())

	rec, err := db.GetRun(runID)
	require.NoError(t, err)
	require.Equal(t, 1, rec.Count)
}
