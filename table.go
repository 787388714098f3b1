package ctvgen

import (
	"database/sql"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/btcsuite/btcd/wire"
	"github.com/sirupsen/logrus"
)

const (
	DbFile = "database.db"
)

// InitDBTable 数据库表
func (s *SqliteDB) InitDBTable() error {
	// 创建运行记录表
	if err := s.createRunTable(); err != nil {
		return err
	}
	// 创建向量记录表
	if err := s.createVectorTable(); err != nil {
		return err
	}

	return nil
}

// createRunTable 创建运行记录表
func (s *SqliteDB) createRunTable() error {
	table := []string{
		"id INTEGER PRIMARY KEY AUTOINCREMENT", // 自增长主键
		"seed VARCHAR(64)",                     // 随机数种子
		"count INTEGER",                        // 计划生成的交易数量
		"outPath VARCHAR(255)",                 // 输出路径
		"started INTEGER",                      // 开始时间
		"finished INTEGER DEFAULT 0",           // 结束时间
		"mismatches INTEGER DEFAULT 0",         // 与节点不一致的数量
	}

	if err := s.CreateTable("runs", table); err != nil {
		return fmt.Errorf("创建 runs 表失败: %w", err)
	}
	return nil
}

// createVectorTable 创建向量记录表
func (s *SqliteDB) createVectorTable() error {
	table := []string{
		"id INTEGER PRIMARY KEY AUTOINCREMENT", // 自增长主键
		"runID INTEGER",                        // 所属运行
		"txHash VARCHAR(64)",                   // 交易哈希
		"inputs INTEGER",                       // 输入数量
		"outputs INTEGER",                      // 输出数量
		"witness INTEGER",                      // 是否带见证
	}

	if err := s.CreateTable("vectors", table); err != nil {
		return fmt.Errorf("创建 vectors 表失败: %w", err)
	}
	return nil
}

// RunRecord 一次生成运行的记录
type RunRecord struct {
	ID         int64
	Seed       string
	Count      int
	OutPath    string
	Started    time.Time
	Finished   time.Time
	Mismatches int
}

// InsertRun 记录一次新的运行
func (s *SqliteDB) InsertRun(seed []byte, count int, outPath string) (int64, error) {
	data := map[string]interface{}{
		"seed":    hex.EncodeToString(seed),
		"count":   count,
		"outPath": outPath,
		"started": time.Now().Unix(),
	}
	id, err := s.Insert("runs", data)
	if err != nil {
		return 0, fmt.Errorf("记录运行失败: %w", err)
	}
	return id, nil
}

// FinishRun 记录运行结束
func (s *SqliteDB) FinishRun(runID int64, mismatches int) error {
	_, err := s.DB.Exec("UPDATE runs SET finished = ?, mismatches = ? WHERE id = ?",
		time.Now().Unix(), mismatches, runID)
	return err
}

// GetRun 读取运行记录
func (s *SqliteDB) GetRun(runID int64) (*RunRecord, error) {
	var (
		rec               RunRecord
		started, finished int64
	)
	row := s.DB.QueryRow("SELECT id, seed, count, outPath, started, finished, mismatches FROM runs WHERE id = ?", runID)
	if err := row.Scan(&rec.ID, &rec.Seed, &rec.Count, &rec.OutPath, &started, &finished, &rec.Mismatches); err != nil {
		return nil, err
	}
	rec.Started = time.Unix(started, 0)
	if finished != 0 {
		rec.Finished = time.Unix(finished, 0)
	}
	return &rec, nil
}

// vectorRow 向量表中的一行
func vectorRow(runID int64, tx *wire.MsgTx) map[string]interface{} {
	witness := 0
	if HasWitness(tx) {
		witness = 1
	}
	return map[string]interface{}{
		"runID":   runID,
		"txHash":  tx.TxHash().String(),
		"inputs":  len(tx.TxIn),
		"outputs": len(tx.TxOut),
		"witness": witness,
	}
}

// InsertVectors 在一个事务中记录一次运行的所有向量，任一失败则全部回滚
// 返回此前已经记录过的交易数量
func (s *SqliteDB) InsertVectors(runID int64, txs []*wire.MsgTx) (int, error) {
	// 事务会占用唯一的连接，先检查重复
	duplicates := 0
	for _, tx := range txs {
		txHash := tx.TxHash().String()
		exists, err := s.ExistsVector(txHash)
		if err != nil {
			return 0, err
		}
		if exists {
			duplicates++
			logrus.Warnf("[InsertVectors] 交易已在之前的运行中生成过:\t%s", txHash)
		}
	}

	err := s.WithTx(func(dbTx *sql.Tx) error {
		for _, tx := range txs {
			if _, err := insert(dbTx, "vectors", vectorRow(runID, tx)); err != nil {
				return fmt.Errorf("记录向量失败: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return duplicates, nil
}

// ExistsVector 判断交易是否已经生成过
func (s *SqliteDB) ExistsVector(txHash string) (bool, error) {
	conditions := []string{"txHash=?"} // 查询条件
	args := []interface{}{txHash}      // 查询条件对应的值
	return s.Exists("vectors", conditions, args)
}

// CountVectors 统计某次运行记录的向量数量
func (s *SqliteDB) CountVectors(runID int64) (int, error) {
	var n int
	err := s.DB.QueryRow("SELECT COUNT(*) FROM vectors WHERE runID = ?", runID).Scan(&n)
	return n, err
}
