// 打印

package ctvgen

import (
	"encoding/hex"
	"fmt"
	"io"

	"github.com/btcsuite/btcd/blockchain"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/txscript"
)

// PrintEntries 以可读形式打印向量文件
func PrintEntries(w io.Writer, entries []Entry) error {
	for n, v := range Vectors(entries) {
		tx, err := DeserializeTxHex(v.HexTx)
		if err != nil {
			fmt.Fprintf(w, "第【%d】个向量: %v\n\n", n+1, err)
			continue
		}

		fmt.Fprintf(w, "第【%d】个向量\n", n+1)
		fmt.Fprintf(w, "\tTxHash\t\t%s\n", tx.TxHash())
		fmt.Fprintf(w, "\tVersion\t\t%d\n", tx.Version)
		fmt.Fprintf(w, "\tLockTime\t%d\n", tx.LockTime)
		fmt.Fprintf(w, "\tInputs\t\t%d\n", len(tx.TxIn))
		fmt.Fprintf(w, "\tOutputs\t\t%d\n", len(tx.TxOut))
		fmt.Fprintf(w, "\tWitness\t\t%v\n", v.Desc.Witness)
		fmt.Fprintf(w, "\tScriptSigs\t%v\n", v.Desc.ScriptSigs)
		fmt.Fprintf(w, "\tSize\t\t%d\n", tx.SerializeSize())
		fmt.Fprintf(w, "\tWeight\t\t%d\n", blockchain.GetTransactionWeight(btcutil.NewTx(tx)))

		for i, out := range tx.TxOut {
			fmt.Fprintf(w, "\t\t<<<\t第【%d】笔输出:\n", i)
			fmt.Fprintf(w, "\t\tValue\t\t%d\n", out.Value)
			fmt.Fprintf(w, "\t\tScript\t\t%s\n", disasmOrHex(out.PkScript))
		}

		for i, idx := range v.SpendIndex {
			var result string
			if i < len(v.Result) {
				result = v.Result[i]
			}
			fmt.Fprintf(w, "\t\t>>>\t花费索引 %d:\t%s\n", idx, result)
		}
		fmt.Fprintln(w)
	}

	return nil
}

// disasmOrHex 反汇编脚本，无法解析时返回原始十六进制
func disasmOrHex(script []byte) string {
	if len(script) == 0 {
		return "(empty)"
	}
	disasm, err := txscript.DisasmString(script)
	if err != nil {
		return hex.EncodeToString(script)
	}
	return disasm
}
