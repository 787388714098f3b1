package ctvgen

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/btcsuite/btcd/wire"
)

// DocumentationString 是向量文件的第一项，描述每个向量的字段
const DocumentationString = `{"hex_tx":string (hex tx), "spend_index":[number], "result": [string (hex hash)]}`

// Desc 描述一个测试向量中交易的特征
type Desc struct {
	Inputs     uint32 `json:"Inputs"`     // 输入数量
	Outputs    uint32 `json:"Outputs"`    // 输出数量
	Witness    bool   `json:"Witness"`    // 是否带见证
	Version    int32  `json:"Version"`    // 交易版本号
	ScriptSigs bool   `json:"scriptSigs"` // 是否带签名脚本
}

// NewDesc 从交易中得到描述
func NewDesc(tx *wire.MsgTx) Desc {
	return Desc{
		Inputs:     uint32(len(tx.TxIn)),
		Outputs:    uint32(len(tx.TxOut)),
		Witness:    HasWitness(tx),
		Version:    tx.Version,
		ScriptSigs: HasScriptSigs(tx),
	}
}

// TestVector 一个 BIP-119 测试向量
type TestVector struct {
	HexTx      string   `json:"hex_tx"`      // 十六进制交易
	SpendIndex []uint32 `json:"spend_index"` // 花费索引
	Result     []string `json:"result"`      // 每个花费索引对应的模板哈希
	Desc       Desc     `json:"desc"`        // 交易描述
}

// Entry 是向量文件中的一项：文档字符串或测试向量
type Entry struct {
	Doc    string
	Vector *TestVector
}

// DocEntry 创建一个文档项
func DocEntry(doc string) Entry {
	return Entry{Doc: doc}
}

// VectorEntry 创建一个向量项
func VectorEntry(v *TestVector) Entry {
	return Entry{Vector: v}
}

// IsDoc 是否为文档项
func (e Entry) IsDoc() bool {
	return e.Vector == nil
}

// MarshalJSON 文档项编码为字符串，向量项编码为对象
func (e Entry) MarshalJSON() ([]byte, error) {
	if e.Vector != nil {
		return json.Marshal(e.Vector)
	}
	return json.Marshal(e.Doc)
}

// UnmarshalJSON 按 JSON 类型区分文档项与向量项
func (e *Entry) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return errors.New("empty vector entry")
	}

	switch trimmed[0] {
	case '"':
		e.Vector = nil
		return json.Unmarshal(trimmed, &e.Doc)
	case '{':
		v := new(TestVector)
		if err := json.Unmarshal(trimmed, v); err != nil {
			return err
		}
		e.Doc = ""
		e.Vector = v
		return nil
	}

	return fmt.Errorf("vector entry must be a string or an object, got %.20s", trimmed)
}

// Vectors 返回所有向量项
func Vectors(entries []Entry) []*TestVector {
	var vectors []*TestVector
	for _, e := range entries {
		if e.Vector != nil {
			vectors = append(vectors, e.Vector)
		}
	}
	return vectors
}

// WriteEntries 以两个空格缩进的格式写出向量文件
func WriteEntries(w io.Writer, entries []Entry) error {
	if entries == nil {
		entries = []Entry{}
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// ReadEntries 读取向量文件
func ReadEntries(r io.Reader) ([]Entry, error) {
	var entries []Entry
	if err := json.NewDecoder(r).Decode(&entries); err != nil {
		return nil, fmt.Errorf("decode vectors: %w", err)
	}
	return entries, nil
}
