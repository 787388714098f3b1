package ctvgen

import (
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
)

// ErrInvalidOptions 表示选项校验失败
var ErrInvalidOptions = errors.New("invalid options")

// 输出脚本的生成风格
const (
	ScriptStyleRandom   = "random"   // 完全随机的字节
	ScriptStyleStandard = "standard" // 标准模板（P2PKH、P2WPKH、P2TR 等）
)

// Range 表示一个闭区间 [Min, Max]
type Range struct {
	Min int
	Max int
}

// Size 返回区间内整数的个数
func (r Range) Size() uint64 {
	if r.Max < r.Min {
		return 1
	}
	return uint64(r.Max-r.Min) + 1
}

// Options 是生成测试向量所需的参数
type Options struct {
	InputCount         Range // 每笔交易的输入数量
	OutputCount        Range // 每笔交易的输出数量
	ScriptPubKeyLength Range // 公钥脚本长度
	ScriptSigLength    Range // 签名脚本长度
	WitnessLength      Range // 每个输入的见证项数量
	WitnessItemLength  Range // 单个见证项长度
	// RandomBytes 是每笔交易中随机字节的近似数量，不计算 VarInt 长度等开销
	RandomBytes Range

	TransactionCount  int // 生成的交易数量
	ExtraSpendIndexes int // 在 0 和 1 之后追加的随机花费索引数量

	OutPath     string // 输出路径，"-" 表示标准输出
	ScriptStyle string // 输出脚本风格
	Seed        []byte // 随机数种子，为空时使用系统熵

	RPCURL     string // 节点 RPC 地址
	CookieFile string // 节点 cookie 文件
	RPCUser    string // RPC 用户名，仅在未提供 cookie 时使用
	RPCPass    string // RPC 密码

	Offline  bool // 离线模式，只使用本地计算
	UseCache bool // 是否缓存节点结果

	RootPath string // 数据和日志的根目录
}

// DefaultOptions 返回默认选项
func DefaultOptions() *Options {
	return &Options{
		InputCount:         Range{1, 129},
		OutputCount:        Range{0, 129},
		ScriptPubKeyLength: Range{0, 129},
		ScriptSigLength:    Range{0, 129},
		WitnessLength:      Range{0, 129},
		WitnessItemLength:  Range{0, 520},
		RandomBytes:        Range{0, 10_000},

		TransactionCount:  100,
		ExtraSpendIndexes: 2,

		OutPath:     "-",
		ScriptStyle: ScriptStyleRandom,

		UseCache: true,
		RootPath: defaultRootPath(),
	}
}

// defaultRootPath 默认使用用户缓存目录
func defaultRootPath() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "ctvgen")
	}
	return filepath.Join(dir, "ctvgen")
}

// BuildSeed 从十六进制字符串设置随机数种子
func (opt *Options) BuildSeed(seedHex string) error {
	if seedHex == "" {
		opt.Seed = nil
		return nil
	}
	seed, err := hex.DecodeString(seedHex)
	if err != nil {
		return fmt.Errorf("%w: seed: %v", ErrInvalidOptions, err)
	}
	opt.Seed = seed
	return nil
}

// BuildRootPath 设置根路径
func (opt *Options) BuildRootPath(path string) {
	// 检查路径是否为空
	if path == "" {
		return
	}
	if !filepath.IsAbs(path) {
		abs, err := filepath.Abs(path)
		if err != nil {
			return
		}
		path = abs
	}
	opt.RootPath = path
}

// BuildRPC 设置节点连接信息
func (opt *Options) BuildRPC(rpcURL, cookieFile, user, pass string) {
	opt.RPCURL = rpcURL
	opt.CookieFile = cookieFile
	opt.RPCUser = user
	opt.RPCPass = pass
}

// BuildOutPath 设置输出路径
func (opt *Options) BuildOutPath(path string) {
	if path == "" {
		path = "-"
	}
	opt.OutPath = path
}

// BuildScriptStyle 设置输出脚本风格
func (opt *Options) BuildScriptStyle(style string) {
	if style == "" {
		style = ScriptStyleRandom
	}
	opt.ScriptStyle = style
}

// LogsPath 日志目录
func (opt *Options) LogsPath() string {
	return filepath.Join(opt.RootPath, "logs")
}

// DBPath 数据库目录
func (opt *Options) DBPath() string {
	return filepath.Join(opt.RootPath, "db")
}

// CheckAndSetOptions 检查选项
func (opt *Options) CheckAndSetOptions() error {
	ranges := []struct {
		name string
		r    Range
	}{
		{"InputCount", opt.InputCount},
		{"OutputCount", opt.OutputCount},
		{"ScriptPubKeyLength", opt.ScriptPubKeyLength},
		{"ScriptSigLength", opt.ScriptSigLength},
		{"WitnessLength", opt.WitnessLength},
		{"WitnessItemLength", opt.WitnessItemLength},
		{"RandomBytes", opt.RandomBytes},
	}
	for _, item := range ranges {
		if item.r.Min < 0 || item.r.Min > item.r.Max {
			return fmt.Errorf("%w: %s range %d..=%d", ErrInvalidOptions, item.name, item.r.Min, item.r.Max)
		}
	}
	if opt.InputCount.Min < 1 {
		return fmt.Errorf("%w: InputCount must allow at least one input", ErrInvalidOptions)
	}
	if opt.TransactionCount < 0 {
		return fmt.Errorf("%w: TransactionCount %d", ErrInvalidOptions, opt.TransactionCount)
	}
	if opt.ExtraSpendIndexes < 0 {
		return fmt.Errorf("%w: ExtraSpendIndexes %d", ErrInvalidOptions, opt.ExtraSpendIndexes)
	}
	if opt.Seed != nil && len(opt.Seed) != SeedSize {
		return fmt.Errorf("%w: Seed must be %d bytes, got %d", ErrInvalidOptions, SeedSize, len(opt.Seed))
	}
	switch opt.ScriptStyle {
	case ScriptStyleRandom, ScriptStyleStandard:
	default:
		return fmt.Errorf("%w: ScriptStyle %q", ErrInvalidOptions, opt.ScriptStyle)
	}

	if !opt.Offline {
		if opt.RPCURL == "" {
			return fmt.Errorf("%w: RPCURL is required unless offline", ErrInvalidOptions)
		}
		if _, err := url.Parse(opt.RPCURL); err != nil {
			return fmt.Errorf("%w: RPCURL: %v", ErrInvalidOptions, err)
		}
	}

	if opt.OutPath == "" {
		opt.OutPath = "-"
	}
	if opt.RootPath == "" {
		opt.RootPath = defaultRootPath()
	}

	return nil
}
