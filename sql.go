package ctvgen

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// SqliteDB 封装了 sqlite 数据库的基本操作
type SqliteDB struct {
	DB *sql.DB
}

// NewSqliteDB 打开（或创建）dir 目录下的数据库文件
// file 为 ":memory:" 时使用内存数据库
func NewSqliteDB(dir, file string) (*SqliteDB, error) {
	dsn := file
	if file != ":memory:" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
		dsn = filepath.Join(dir, file)
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("打开数据库失败: %w", err)
	}
	// 内存数据库每个连接是独立的
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("连接数据库失败: %w", err)
	}

	return &SqliteDB{DB: db}, nil
}

// CreateTable 创建表（如果不存在）
func (s *SqliteDB) CreateTable(name string, columns []string) error {
	query := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", name, strings.Join(columns, ", "))
	_, err := s.DB.Exec(query)
	return err
}

// execer 是 *sql.DB 和 *sql.Tx 共有的执行接口
type execer interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
}

// Insert 插入一行数据，返回自增主键
func (s *SqliteDB) Insert(table string, data map[string]interface{}) (int64, error) {
	return insert(s.DB, table, data)
}

// insert 使用给定的连接或事务插入一行数据
func insert(db execer, table string, data map[string]interface{}) (int64, error) {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	placeholders := make([]string, len(keys))
	args := make([]interface{}, len(keys))
	for i, k := range keys {
		placeholders[i] = "?"
		args[i] = data[k]
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table, strings.Join(keys, ", "), strings.Join(placeholders, ", "))
	res, err := db.Exec(query, args...)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// WithTx 在一个事务中执行 fn，fn 返回错误时回滚
func (s *SqliteDB) WithTx(fn func(tx *sql.Tx) error) error {
	tx, err := s.DB.Begin()
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// Exists 按条件判断记录是否存在
func (s *SqliteDB) Exists(table string, conditions []string, args []interface{}) (bool, error) {
	query := fmt.Sprintf("SELECT EXISTS(SELECT 1 FROM %s", table)
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += ")"

	var exists bool
	if err := s.DB.QueryRow(query, args...).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// Close 关闭数据库
func (s *SqliteDB) Close() error {
	return s.DB.Close()
}
