package ctvgen

import (
	"bytes"
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
)

// MaxMoney 是输出金额的上限（聪），与共识规则的 MAX_MONEY 一致
const MaxMoney = btcutil.MaxSatoshi

// outpointSize 是每个输入的前序输出占用的字节数（32 字节 txid + 4 字节 vout）
const outpointSize = 36

// saturatingSub 返回 a-b，结果不小于 0
func saturatingSub(a, b int) int {
	if b >= a {
		return 0
	}
	return a - b
}

// randomBytesLT 生成长度不超过剩余预算的随机字节，并从预算中扣除
func randomBytesLT(r *Rand, length Range, budget *int) []byte {
	if *budget < 1 {
		return nil
	}

	n := r.Intn(length) % (*budget + 1)
	*budget = saturatingSub(*budget, n)

	return r.Bytes(n)
}

// RandomTx 生成一笔随机交易
// 交易中的变长字段（签名脚本、见证、公钥脚本）共同消耗一个随机字节预算
func RandomTx(r *Rand, opt *Options) (*wire.MsgTx, error) {
	tx := wire.NewMsgTx(int32(r.Uint32()))
	tx.LockTime = r.Uint32()

	inputCount := r.Intn(opt.InputCount)
	outputCount := r.Intn(opt.OutputCount)

	budget := r.Intn(opt.RandomBytes)

	hasWitness := r.Bool()

	// 生成输入
	for i := 0; i < inputCount; i++ {
		prevHash := chainhash.DoubleHashH(r.Bytes(chainhash.HashSize))
		prevOut := wire.NewOutPoint(&prevHash, r.Uint32())

		budget = saturatingSub(budget, outpointSize)

		var witness wire.TxWitness
		if hasWitness {
			items := r.Intn(opt.WitnessLength)
			for j := 0; j < items; j++ {
				witness = append(witness, randomBytesLT(r, opt.WitnessItemLength, &budget))
				if budget < 1 {
					break
				}
			}
		}

		var sigScript []byte
		if hasWitness {
			sigScript = randomBytesLT(r, opt.ScriptSigLength, &budget)
		}

		txIn := wire.NewTxIn(prevOut, sigScript, witness)
		txIn.Sequence = r.Uint32()
		tx.AddTxIn(txIn)

		if budget < 1 {
			break
		}
	}

	// 生成输出
	var scripts scriptSource = randomScripts{length: opt.ScriptPubKeyLength}
	if opt.ScriptStyle == ScriptStyleStandard {
		std, err := newStandardScripts(r)
		if err != nil {
			return nil, fmt.Errorf("[RandomTx] 初始化标准脚本失败: %w", err)
		}
		scripts = std
	}

	for i := 0; i < outputCount; i++ {
		value := int64(r.Uint64() % uint64(MaxMoney+1))

		pkScript, err := scripts.next(r, &budget)
		if err != nil {
			return nil, fmt.Errorf("[RandomTx] 生成第 %d 个输出脚本失败: %w", i, err)
		}

		tx.AddTxOut(wire.NewTxOut(value, pkScript))

		if budget < 1 {
			break
		}
	}

	return tx, nil
}

// SerializeTxHex 将交易按网络格式（含见证）序列化为十六进制
func SerializeTxHex(tx *wire.MsgTx) (string, error) {
	var buf bytes.Buffer
	buf.Grow(tx.SerializeSize())
	if err := tx.Serialize(&buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf.Bytes()), nil
}

// DeserializeTxHex 从十六进制解析交易
func DeserializeTxHex(txHex string) (*wire.MsgTx, error) {
	raw, err := hex.DecodeString(txHex)
	if err != nil {
		return nil, fmt.Errorf("invalid tx hex: %w", err)
	}
	tx := wire.NewMsgTx(wire.TxVersion)
	if err := tx.Deserialize(bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("failed to deserialize tx: %w", err)
	}
	return tx, nil
}

// HasWitness 是否有任意输入携带非空见证
func HasWitness(tx *wire.MsgTx) bool {
	for _, in := range tx.TxIn {
		if len(in.Witness) != 0 {
			return true
		}
	}
	return false
}

// HasScriptSigs 是否有任意输入携带非空签名脚本
func HasScriptSigs(tx *wire.MsgTx) bool {
	for _, in := range tx.TxIn {
		if len(in.SignatureScript) != 0 {
			return true
		}
	}
	return false
}
