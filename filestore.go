// 向量文件的读写

package ctvgen

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// StdioPath 表示标准输入或标准输出
const StdioPath = "-"

// FileStore 封装了文件存储的操作
type FileStore struct {
	Fs     afero.Fs
	Stdin  io.Reader
	Stdout io.Writer
}

// NewFileStore 创建一个基于操作系统文件系统的 FileStore
func NewFileStore() *FileStore {
	return &FileStore{Fs: afero.NewOsFs(), Stdin: os.Stdin, Stdout: os.Stdout}
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }

// OpenOutput 打开输出，"-" 表示标准输出；文件会被截断或创建，父目录不存在时自动创建
func (fs *FileStore) OpenOutput(path string) (io.WriteCloser, error) {
	if path == StdioPath {
		return nopWriteCloser{fs.Stdout}, nil
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := fs.Fs.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	file, err := fs.Fs.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open output: %w", err)
	}
	return file, nil
}

// OpenInput 打开输入，"-" 表示标准输入
func (fs *FileStore) OpenInput(path string) (io.ReadCloser, error) {
	if path == StdioPath {
		return io.NopCloser(fs.Stdin), nil
	}

	file, err := fs.Fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input: %w", err)
	}
	return file, nil
}

// WriteEntriesTo 将向量写入 path
func (fs *FileStore) WriteEntriesTo(path string, entries []Entry) error {
	w, err := fs.OpenOutput(path)
	if err != nil {
		return err
	}
	if err := WriteEntries(w, entries); err != nil {
		w.Close()
		return err
	}
	if path == StdioPath {
		fmt.Fprintln(fs.Stdout)
	}
	return w.Close()
}

// ReadEntriesFrom 从 path 读取向量
func (fs *FileStore) ReadEntriesFrom(path string) ([]Entry, error) {
	r, err := fs.OpenInput(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	return ReadEntries(r)
}
