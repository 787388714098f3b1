package ctvgen

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
)

// ScriptSigsHash 计算所有签名脚本（带 CompactSize 长度前缀）拼接后的 SHA256
func ScriptSigsHash(tx *wire.MsgTx) chainhash.Hash {
	var buf bytes.Buffer
	for _, in := range tx.TxIn {
		// 写入 bytes.Buffer 不会失败
		_ = wire.WriteVarBytes(&buf, 0, in.SignatureScript)
	}
	return sha256.Sum256(buf.Bytes())
}

// SequencesHash 计算所有输入序列号（小端 uint32）拼接后的 SHA256
func SequencesHash(tx *wire.MsgTx) chainhash.Hash {
	buf := make([]byte, 4*len(tx.TxIn))
	for i, in := range tx.TxIn {
		binary.LittleEndian.PutUint32(buf[4*i:], in.Sequence)
	}
	return sha256.Sum256(buf)
}

// OutputsHash 计算所有输出（金额 + 公钥脚本）序列化后的 SHA256
func OutputsHash(tx *wire.MsgTx) chainhash.Hash {
	var buf bytes.Buffer
	for _, out := range tx.TxOut {
		_ = wire.WriteTxOut(&buf, 0, tx.Version, out)
	}
	return sha256.Sum256(buf.Bytes())
}

// DefaultTemplateHash 按 BIP-119 计算交易在给定输入索引处的默认模板哈希
// 见证数据不参与计算，输入索引不做范围检查
func DefaultTemplateHash(tx *wire.MsgTx, inputIndex uint32) chainhash.Hash {
	var buf bytes.Buffer
	var scratch [4]byte

	putUint32 := func(v uint32) {
		binary.LittleEndian.PutUint32(scratch[:], v)
		buf.Write(scratch[:])
	}

	putUint32(uint32(tx.Version))
	putUint32(tx.LockTime)

	if HasScriptSigs(tx) {
		h := ScriptSigsHash(tx)
		buf.Write(h[:])
	}

	putUint32(uint32(len(tx.TxIn)))
	seq := SequencesHash(tx)
	buf.Write(seq[:])

	putUint32(uint32(len(tx.TxOut)))
	outs := OutputsHash(tx)
	buf.Write(outs[:])

	putUint32(inputIndex)

	return sha256.Sum256(buf.Bytes())
}

// TemplateHashString 以 uint256 的显示顺序（字节反转）返回十六进制哈希，
// 与节点 RPC 的返回格式一致
func TemplateHashString(tx *wire.MsgTx, inputIndex uint32) string {
	h := DefaultTemplateHash(tx, inputIndex)
	return h.String()
}
