package ctvgen

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/btcsuite/btcd/rpcclient"
	"github.com/btcsuite/btclog"
	"github.com/sirupsen/logrus"
)

// GetDefaultTemplateMethod 是打过补丁的节点提供的 RPC 方法名
const GetDefaultTemplateMethod = "getdefaulttemplate"

// ErrNotString 表示节点返回的结果不是字符串
var ErrNotString = errors.New("rpc result is not a string")

// TemplateRequest 是一次模板哈希查询
type TemplateRequest struct {
	TxHex   string // 十六进制交易
	Index   uint32 // 花费索引
	Witness bool   // 交易是否带见证
}

// TemplateOracle 返回交易在某个花费索引处的默认模板哈希（十六进制）
type TemplateOracle interface {
	DefaultTemplate(ctx context.Context, req TemplateRequest) (string, error)
}

// LocalOracle 在本地计算模板哈希
type LocalOracle struct{}

// DefaultTemplate 实现 TemplateOracle
func (LocalOracle) DefaultTemplate(ctx context.Context, req TemplateRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	tx, err := DeserializeTxHex(req.TxHex)
	if err != nil {
		return "", err
	}
	return TemplateHashString(tx, req.Index), nil
}

var useRPCLoggerOnce sync.Once

// useRPCLogger 将 rpcclient 的日志转发到 logrus
func useRPCLogger() {
	useRPCLoggerOnce.Do(func() {
		backend := btclog.NewBackend(logrus.StandardLogger().WriterLevel(logrus.DebugLevel))
		logger := backend.Logger("RPCC")
		logger.SetLevel(btclog.LevelInfo)
		rpcclient.UseLogger(logger)
	})
}

// RPCOracle 通过节点的 getdefaulttemplate RPC 获取模板哈希
type RPCOracle struct {
	client *rpcclient.Client
	host   string
}

// NewRPCOracle 创建节点客户端
// rawURL 形如 http://127.0.0.1:18443，提供 cookie 文件时使用 cookie 认证，否则使用用户名密码
func NewRPCOracle(rawURL, cookieFile, user, pass string) (*RPCOracle, error) {
	cfg, err := rpcConnConfig(rawURL)
	if err != nil {
		return nil, err
	}
	if user != "" {
		cfg.User = user
	}
	if pass != "" {
		cfg.Pass = pass
	}
	cfg.CookiePath = cookieFile

	useRPCLogger()

	client, err := rpcclient.New(cfg, nil)
	if err != nil {
		return nil, fmt.Errorf("create rpc client: %w", err)
	}

	logrus.Infof("[NewRPCOracle] 连接节点:\t%s", cfg.Host)
	return &RPCOracle{client: client, host: cfg.Host}, nil
}

// rpcConnConfig 将 URL 转换为 HTTP POST 模式的连接配置
func rpcConnConfig(rawURL string) (*rpcclient.ConnConfig, error) {
	if !strings.Contains(rawURL, "://") {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse rpc url: %w", err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("rpc url %q has no host", rawURL)
	}

	var disableTLS bool
	switch u.Scheme {
	case "http":
		disableTLS = true
	case "https":
	default:
		return nil, fmt.Errorf("unsupported rpc url scheme %q", u.Scheme)
	}

	host := u.Host
	if p := strings.TrimSuffix(u.Path, "/"); p != "" {
		host += p
	}

	pass, _ := u.User.Password()
	return &rpcclient.ConnConfig{
		Host:         host,
		User:         u.User.Username(),
		Pass:         pass,
		HTTPPostMode: true,
		DisableTLS:   disableTLS,
	}, nil
}

// DefaultTemplate 调用 getdefaulttemplate [hex_tx, index, witness]
func (o *RPCOracle) DefaultTemplate(ctx context.Context, req TemplateRequest) (string, error) {
	params := make([]json.RawMessage, 0, 3)
	for _, p := range []interface{}{req.TxHex, req.Index, req.Witness} {
		raw, err := json.Marshal(p)
		if err != nil {
			return "", err
		}
		params = append(params, raw)
	}

	type result struct {
		raw json.RawMessage
		err error
	}
	done := make(chan result, 1)
	go func() {
		raw, err := o.client.RawRequest(GetDefaultTemplateMethod, params)
		done <- result{raw, err}
	}()

	var res result
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res = <-done:
	}
	if res.err != nil {
		return "", fmt.Errorf("%s: %w", GetDefaultTemplateMethod, res.err)
	}

	var hash string
	if err := json.Unmarshal(res.raw, &hash); err != nil {
		return "", fmt.Errorf("%s: %w: %s", GetDefaultTemplateMethod, ErrNotString, res.raw)
	}
	return hash, nil
}

// Close 关闭客户端
func (o *RPCOracle) Close() error {
	o.client.Shutdown()
	o.client.WaitForShutdown()
	return nil
}
