package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/qinglongcn/ctvgen"
	"github.com/sirupsen/logrus"
)

// globalOptions 所有命令共享的选项
type globalOptions struct {
	Root      string `long:"root" description:"directory for the run ledger, template cache and logs"`
	Debug     bool   `short:"d" long:"debug" description:"enable debug logging"`
	NoLogFile bool   `long:"no-log-file" description:"only log to the console"`
}

var global globalOptions

// output 命令结果的输出位置
var output io.Writer = os.Stdout

// RPCOptions 选择计算模板哈希的预言机
type RPCOptions struct {
	RPCURL     string `short:"u" long:"rpc-url" description:"URL of a node exposing getdefaulttemplate"`
	CookieFile string `short:"c" long:"cookie-file" description:"path to the node's .cookie file"`
	RPCUser    string `long:"rpc-user" description:"RPC username, used instead of the cookie file"`
	RPCPass    string `long:"rpc-pass" description:"RPC password"`
	Offline    bool   `long:"offline" description:"compute hashes locally without a node"`
	NoCache    bool   `long:"no-cache" description:"do not cache node responses"`
}

// options 构建库选项
func (r *RPCOptions) options() *ctvgen.Options {
	opt := ctvgen.DefaultOptions()
	opt.BuildRootPath(global.Root)
	opt.BuildRPC(r.RPCURL, r.CookieFile, r.RPCUser, r.RPCPass)
	opt.Offline = r.Offline
	opt.UseCache = !r.NoCache
	return opt
}

// setup 初始化日志，返回的上下文在收到 SIGINT/SIGTERM 时取消
func setup(opt *ctvgen.Options) (context.Context, context.CancelFunc, error) {
	level := logrus.InfoLevel
	if global.Debug {
		level = logrus.DebugLevel
	}
	logsPath := opt.LogsPath()
	if global.NoLogFile {
		logsPath = ""
	}
	if err := ctvgen.SetLog(logsPath, level); err != nil {
		return nil, nil, err
	}

	ctx, cancel := ctvgen.CancelOnSignal(context.Background())
	return ctx, cancel, nil
}

type generateCommand struct {
	RPCOptions

	Count       int    `short:"n" long:"transaction-count" default:"100" description:"number of transactions to generate"`
	OutFile     string `short:"o" long:"out-file" default:"-" description:"output file, - for stdout"`
	Seed        string `long:"seed" description:"hex encoded 32 byte seed for reproducible output"`
	ScriptStyle string `long:"script-style" default:"random" choice:"random" choice:"standard" description:"output script style"`
}

func (c *generateCommand) Execute(_ []string) error {
	opt := c.options()
	opt.TransactionCount = c.Count
	opt.BuildOutPath(c.OutFile)
	opt.BuildScriptStyle(c.ScriptStyle)
	if err := opt.BuildSeed(c.Seed); err != nil {
		return err
	}

	ctx, cancel, err := setup(opt)
	if err != nil {
		return err
	}
	defer cancel()

	app, err := ctvgen.Open(ctx, opt)
	if err != nil {
		return err
	}
	defer app.Close()

	res, err := app.Generate(ctx)
	if err != nil {
		return err
	}
	logrus.Infof("run %d: wrote %d vectors to %s", res.RunID, len(res.Entries)-1, opt.OutPath)
	return nil
}

type verifyCommand struct {
	RPCOptions

	Args struct {
		File string `positional-arg-name:"file" description:"vector file, - for stdin"`
	} `positional-args:"yes" required:"yes"`
}

func (c *verifyCommand) Execute(_ []string) error {
	opt := c.options()

	ctx, cancel, err := setup(opt)
	if err != nil {
		return err
	}
	defer cancel()

	app, err := ctvgen.Open(ctx, opt)
	if err != nil {
		return err
	}
	defer app.Close()

	report, err := app.Verify(ctx, c.Args.File)
	if err != nil {
		return err
	}

	fmt.Fprintf(output, "vectors: %d, hashes: %d, standard outputs: %d/%d\n",
		report.Vectors, report.Hashes, report.StandardOutputs, report.Outputs)
	for _, m := range report.Mismatches {
		fmt.Fprintln(output, m)
	}
	if !report.OK() {
		return errors.New("vector file does not match")
	}
	return nil
}

type inspectCommand struct {
	Args struct {
		File string `positional-arg-name:"file" description:"vector file, - for stdin"`
	} `positional-args:"yes" required:"yes"`
}

func (c *inspectCommand) Execute(_ []string) error {
	if err := ctvgen.SetLog("", logrus.InfoLevel); err != nil {
		return err
	}

	entries, err := ctvgen.NewFileStore().ReadEntriesFrom(c.Args.File)
	if err != nil {
		return err
	}
	return ctvgen.PrintEntries(output, entries)
}
