package main

import (
	"bytes"
	"encoding/hex"
	"path/filepath"
	"strings"
	"testing"

	"github.com/qinglongcn/ctvgen"
	"github.com/stretchr/testify/require"
)

// generateFile 离线生成 n 个向量到临时文件
func generateFile(t *testing.T, root string, n string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ctv.json")
	seed := hex.EncodeToString(bytes.Repeat([]byte{0x5a}, ctvgen.SeedSize))

	var out bytes.Buffer
	code := run([]string{"--root", root, "--no-log-file",
		"generate", "--offline", "-n", n, "--seed", seed, "-o", path}, &out)
	require.Equal(t, 0, code)
	return path
}

func TestRunVerify(t *testing.T) {
	root := t.TempDir()
	path := generateFile(t, root, "3")

	var out bytes.Buffer
	code := run([]string{"--root", root, "--no-log-file", "verify", "--offline", path}, &out)
	require.Equal(t, 0, code)
	require.Contains(t, out.String(), "vectors: 3, hashes: 12")
}

// 向量文件与重新计算的结果不一致时退出码为 1
func TestRunVerifyMismatch(t *testing.T) {
	root := t.TempDir()
	path := generateFile(t, root, "2")

	fs := ctvgen.NewFileStore()
	entries, err := fs.ReadEntriesFrom(path)
	require.NoError(t, err)
	ctvgen.Vectors(entries)[1].Result[0] = strings.Repeat("00", 32)
	require.NoError(t, fs.WriteEntriesTo(path, entries))

	var out bytes.Buffer
	code := run([]string{"--root", root, "--no-log-file", "verify", "--offline", path}, &out)
	require.Equal(t, 1, code)
	require.Contains(t, out.String(), "vector 1 result[0]")
}

func TestRunInspect(t *testing.T) {
	root := t.TempDir()
	path := generateFile(t, root, "1")

	var out bytes.Buffer
	require.Equal(t, 0, run([]string{"inspect", path}, &out))
	require.Contains(t, out.String(), "TxHash")
}

func TestRunErrors(t *testing.T) {
	root := t.TempDir()
	var out bytes.Buffer

	require.Equal(t, 0, run([]string{"--help"}, &out))
	require.Equal(t, 1, run([]string{"bogus"}, &out))
	require.Equal(t, 1, run([]string{}, &out))
	require.Equal(t, 1, run([]string{"--root", root, "--no-log-file",
		"verify", "--offline", filepath.Join(root, "missing.json")}, &out))
	// 未指定节点地址且不是离线模式
	require.Equal(t, 1, run([]string{"--root", root, "--no-log-file",
		"generate", "-n", "1", "-o", filepath.Join(root, "ctv.json")}, &out))
}
