package ctvgen

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/btcsuite/btcd/wire"
	"github.com/sirupsen/logrus"
	"go.uber.org/fx"
)

// App 提供了生成和校验测试向量所需的各种服务
type App struct {
	ctx    context.Context // 全局上下文
	opt    *Options        // 选项配置
	fs     *FileStore      // 文件存储
	db     *SqliteDB       // 运行记录数据库
	cache  *TemplateCache  // 模板哈希缓存，可能为空
	oracle TemplateOracle  // 模板哈希预言机
	app    *fx.App
}

// Open 检查选项并组装所有服务
func Open(ctx context.Context, opt *Options) (*App, error) {
	// 1. 检查并设置选项
	if err := opt.CheckAndSetOptions(); err != nil {
		return nil, err
	}

	a := &App{ctx: ctx, opt: opt}

	// fx 配置项，每个 Populate 单独调用，构造失败时已打开的资源可以被关闭
	opts := []fx.Option{
		fx.NopLogger,
		a.globalInit(),
		fx.Provide(
			NewFileStore, // 文件存储
			NewLedger,    // 运行记录数据库
			NewAppOracle, // 模板哈希预言机
		),
		fx.Populate(&a.fs),
		fx.Populate(&a.db),
	}
	if opt.UseCache && !opt.Offline {
		opts = append(opts,
			fx.Provide(NewAppTemplateCache), // 模板哈希缓存
			fx.Populate(&a.cache),
		)
	}
	opts = append(opts, fx.Populate(&a.oracle))

	app := fx.New(opts...)
	if err := app.Err(); err != nil {
		a.closeOpened()
		return nil, err
	}
	if err := app.Start(ctx); err != nil {
		return nil, err
	}
	a.app = app

	return a, nil
}

// 全局初始化
func (a *App) globalInit() fx.Option {
	return fx.Provide(
		func() context.Context {
			return a.ctx
		},
		func() *Options {
			return a.opt
		},
	)
}

// closeOpened 关闭 fx 构造失败前已经打开的资源
func (a *App) closeOpened() {
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			logrus.Errorf("[Open] 关闭缓存失败:\t%v", err)
		}
		a.cache = nil
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			logrus.Errorf("[Open] 关闭数据库失败:\t%v", err)
		}
		a.db = nil
	}
}

// Close 释放所有资源
func (a *App) Close() error {
	if a.app == nil {
		return nil
	}
	return a.app.Stop(context.Background())
}

// Oracle 返回正在使用的预言机
func (a *App) Oracle() TemplateOracle {
	return a.oracle
}

// DB 返回运行记录数据库
func (a *App) DB() *SqliteDB {
	return a.db
}

// NewLedger 打开运行记录数据库并建表
func NewLedger(lc fx.Lifecycle, opt *Options) (*SqliteDB, error) {
	db, err := NewSqliteDB(opt.DBPath(), DbFile)
	if err != nil {
		return nil, err
	}
	if err := db.InitDBTable(); err != nil {
		db.Close()
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			return db.Close()
		},
	})
	return db, nil
}

// NewAppTemplateCache 打开模板哈希缓存
func NewAppTemplateCache(lc fx.Lifecycle, opt *Options) (*TemplateCache, error) {
	cache, err := OpenTemplateCache(filepath.Join(opt.DBPath(), "templates"))
	if err != nil {
		logrus.Errorf("[NewAppTemplateCache] 打开缓存失败:\t%v", err)
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			return cache.Close()
		},
	})
	return cache, nil
}

// NewAppOracleInput 构建预言机所需的依赖
type NewAppOracleInput struct {
	fx.In

	Lc    fx.Lifecycle
	Opt   *Options
	Cache *TemplateCache `optional:"true"`
}

// NewAppOracle 离线时使用本地计算，否则以节点为准并与本地计算交叉校验
func NewAppOracle(input NewAppOracleInput) (TemplateOracle, error) {
	opt := input.Opt
	if opt.Offline {
		logrus.Info("[NewAppOracle] 离线模式，只使用本地计算")
		return LocalOracle{}, nil
	}

	rpc, err := NewRPCOracle(opt.RPCURL, opt.CookieFile, opt.RPCUser, opt.RPCPass)
	if err != nil {
		return nil, err
	}
	input.Lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			return rpc.Close()
		},
	})

	var primary TemplateOracle = rpc
	if input.Cache != nil {
		primary = &CachedOracle{Oracle: rpc, Cache: input.Cache, Source: rpc.host}
	}

	return &CrossCheckOracle{Primary: primary, Reference: LocalOracle{}}, nil
}

// GenerateResult 一次生成的结果
type GenerateResult struct {
	RunID      int64
	Seed       []byte
	Entries    []Entry
	Duplicates int // 之前的运行中已经生成过的交易数量
}

// Generate 生成测试向量并写入输出路径，写入成功后再记录向量
func (a *App) Generate(ctx context.Context) (*GenerateResult, error) {
	var (
		rng *Rand
		err error
	)
	if a.opt.Seed != nil {
		rng, err = NewRand(a.opt.Seed)
	} else {
		rng, err = NewOSRand()
	}
	if err != nil {
		return nil, err
	}
	logrus.Infof("[Generate] 随机数种子:\t%s", hex.EncodeToString(rng.Seed()))

	// 1. 记录运行
	runID, err := a.db.InsertRun(rng.Seed(), a.opt.TransactionCount, a.opt.OutPath)
	if err != nil {
		return nil, err
	}
	finish := func(mismatches int) {
		if err := a.db.FinishRun(runID, mismatches); err != nil {
			logrus.Errorf("[Generate] 记录运行结束失败:\t%v", err)
		}
	}

	// 2. 生成向量
	var txs []*wire.MsgTx
	gen := &Generator{
		Opt:    a.opt,
		Rand:   rng,
		Oracle: a.oracle,
		OnVector: func(tx *wire.MsgTx, _ *TestVector) error {
			txs = append(txs, tx)
			return nil
		},
	}

	entries, err := gen.Generate(ctx, a.opt.TransactionCount)
	if err != nil {
		mismatches := 0
		if errors.Is(err, ErrTemplateMismatch) {
			mismatches = 1
		}
		finish(mismatches)
		return nil, err
	}

	// 3. 写入输出
	if err := a.fs.WriteEntriesTo(a.opt.OutPath, entries); err != nil {
		finish(0)
		return nil, fmt.Errorf("write vectors: %w", err)
	}

	// 4. 记录向量
	duplicates, err := a.db.InsertVectors(runID, txs)
	if err != nil {
		finish(0)
		return nil, err
	}

	// 5. 运行结束
	if err := a.db.FinishRun(runID, 0); err != nil {
		return nil, err
	}

	return &GenerateResult{RunID: runID, Seed: rng.Seed(), Entries: entries, Duplicates: duplicates}, nil
}

// Verify 读取向量文件并校验
func (a *App) Verify(ctx context.Context, path string) (*VerifyReport, error) {
	entries, err := a.fs.ReadEntriesFrom(path)
	if err != nil {
		return nil, err
	}
	return VerifyEntries(ctx, entries, a.oracle)
}
