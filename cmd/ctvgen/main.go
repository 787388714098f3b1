// Command ctvgen generates BIP-119 (OP_CHECKTEMPLATEVERIFY) test vectors and
// cross-checks them against a node exposing the getdefaulttemplate RPC.
package main

import (
	"errors"
	"io"
	"os"

	flags "github.com/jessevdk/go-flags"
	"github.com/sirupsen/logrus"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout))
}

// run 解析命令行并执行子命令，返回进程退出码
func run(args []string, stdout io.Writer) int {
	global = globalOptions{}
	output = stdout

	parser := flags.NewParser(&global, flags.Default)
	parser.SubcommandsOptional = false

	commands := []struct {
		name, short, long string
		data              interface{}
	}{
		{"generate", "Generate test vectors",
			"Generate random transactions and record their default template hashes.",
			&generateCommand{}},
		{"verify", "Verify a test vector file",
			"Recompute every hash in a vector file and report mismatches.",
			&verifyCommand{}},
		{"inspect", "Print a test vector file",
			"Print a human readable dump of a vector file.",
			&inspectCommand{}},
	}
	for _, c := range commands {
		if _, err := parser.AddCommand(c.name, c.short, c.long, c.data); err != nil {
			logrus.Error(err)
			return 1
		}
	}

	if _, err := parser.ParseArgs(args); err != nil {
		var e *flags.Error
		if errors.As(err, &e) && e.Type == flags.ErrHelp {
			return 0
		}
		return 1
	}
	return 0
}
