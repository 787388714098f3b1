package ctvgen

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/sirupsen/logrus"
)

var (
	templatePrefix = []byte("tmpl-") // 键值前缀
)

// cachedTemplate 是缓存中保存的一条模板哈希
type cachedTemplate struct {
	Hash      string // 模板哈希
	Source    string // 结果来源
	CreatedAt int64  // 写入时间
}

// TemplateCache 基于 badger 的模板哈希缓存
type TemplateCache struct {
	Database *badger.DB
}

// OpenTemplateCache 打开磁盘上的缓存
func OpenTemplateCache(path string) (*TemplateCache, error) {
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, err
	}
	opts := badger.DefaultOptions(path).WithLogger(nil) // 设置 Badger 数据库选项
	opts.ValueDir = path
	db, err := openDB(opts)
	if err != nil {
		return nil, err
	}
	return &TemplateCache{Database: db}, nil
}

// OpenMemoryTemplateCache 打开内存中的缓存，用于测试
func OpenMemoryTemplateCache() (*TemplateCache, error) {
	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	if err != nil {
		return nil, err
	}
	return &TemplateCache{Database: db}, nil
}

// cacheKey 由交易、花费索引和见证标志计算缓存键
func cacheKey(req TemplateRequest) []byte {
	h := sha256.New()
	h.Write([]byte(req.TxHex))
	var idx [4]byte
	binary.LittleEndian.PutUint32(idx[:], req.Index)
	h.Write(idx[:])
	if req.Witness {
		h.Write([]byte{1})
	} else {
		h.Write([]byte{0})
	}
	return append(append([]byte(nil), templatePrefix...), h.Sum(nil)...)
}

// Get 读取缓存，第二个返回值表示是否命中
func (c *TemplateCache) Get(req TemplateRequest) (string, bool, error) {
	var entry cachedTemplate
	found := false

	err := c.Database.View(func(txn *badger.Txn) error {
		item, err := txn.Get(cacheKey(req))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return nil
			}
			return err
		}
		data, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		if err := DecodeFromBytes(data, &entry); err != nil {
			return err
		}
		found = true
		return nil
	})
	if err != nil {
		return "", false, err
	}

	return entry.Hash, found, nil
}

// Put 写入缓存
func (c *TemplateCache) Put(req TemplateRequest, hash, source string) error {
	data, err := EncodeToBytes(cachedTemplate{
		Hash:      hash,
		Source:    source,
		CreatedAt: time.Now().Unix(),
	})
	if err != nil {
		return err
	}

	return c.Database.Update(func(txn *badger.Txn) error {
		return txn.Set(cacheKey(req), data)
	})
}

// Len 返回缓存的条目数量
func (c *TemplateCache) Len() (int, error) {
	count := 0
	err := c.Database.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		// 只需要键
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(templatePrefix); it.ValidForPrefix(templatePrefix); it.Next() {
			count++
		}
		return nil
	})
	return count, err
}

// Close 关闭缓存数据库
func (c *TemplateCache) Close() error {
	return c.Database.Close()
}

// CachedOracle 在预言机前增加一层缓存
type CachedOracle struct {
	Oracle TemplateOracle
	Cache  *TemplateCache
	Source string // 写入缓存时记录的来源
}

// DefaultTemplate 实现 TemplateOracle
func (o *CachedOracle) DefaultTemplate(ctx context.Context, req TemplateRequest) (string, error) {
	hash, ok, err := o.Cache.Get(req)
	if err != nil {
		logrus.Warnf("[CachedOracle] 读取缓存失败:\t%v", err)
	} else if ok {
		return hash, nil
	}

	hash, err = o.Oracle.DefaultTemplate(ctx, req)
	if err != nil {
		return "", err
	}

	if err := o.Cache.Put(req, hash, o.Source); err != nil {
		logrus.Warnf("[CachedOracle] 写入缓存失败:\t%v", err)
	}
	return hash, nil
}

// 目录锁被占用时的重试次数和间隔
var (
	lockRetries    = 3
	lockRetryDelay = time.Second
)

// isLockError badger 使用 flock 锁定目录，锁被其他进程（或同一进程的其他实例）占用时返回此错误
func isLockError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "Cannot acquire directory lock")
}

// openDB 打开数据库，如果目录锁被占用，按递增的间隔重试，等待锁释放
func openDB(opts badger.Options) (*badger.DB, error) {
	db, err := badger.Open(opts)
	for i := 0; isLockError(err) && i < lockRetries; i++ {
		wait := time.Duration(i+1) * lockRetryDelay
		logrus.Warnf("[openDB] 数据库目录被占用，%v 后重试", wait)
		time.Sleep(wait)

		db, err = badger.Open(opts)
	}
	if isLockError(err) {
		return nil, fmt.Errorf("无法获取数据库目录锁: %w", err)
	}
	if err != nil {
		return nil, err
	}
	return db, nil
}
