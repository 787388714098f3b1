package ctvgen

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/sirupsen/logrus"
)

// Mismatch 描述向量中一处与重新计算结果不符的地方
type Mismatch struct {
	Vector int    // 向量序号（不含文档项）
	Index  int    // 花费索引的位置，与具体字段无关时为 -1
	Field  string // 字段名
	Want   string // 向量中记录的值
	Got    string // 重新计算得到的值
}

func (m Mismatch) String() string {
	if m.Index >= 0 {
		return fmt.Sprintf("vector %d %s[%d]: want %s, got %s", m.Vector, m.Field, m.Index, m.Want, m.Got)
	}
	return fmt.Sprintf("vector %d %s: want %s, got %s", m.Vector, m.Field, m.Want, m.Got)
}

// VerifyReport 校验结果
type VerifyReport struct {
	Vectors         int        // 向量数量
	Hashes          int        // 校验的哈希数量
	Outputs         int        // 输出总数
	StandardOutputs int        // 标准公钥脚本的输出数量
	Mismatches      []Mismatch // 所有不一致
}

// OK 是否全部一致
func (r *VerifyReport) OK() bool {
	return len(r.Mismatches) == 0
}

// VerifyEntries 重新解析每个向量的交易，检查描述并通过预言机重新计算模板哈希
func VerifyEntries(ctx context.Context, entries []Entry, oracle TemplateOracle) (*VerifyReport, error) {
	report := new(VerifyReport)

	for n, v := range Vectors(entries) {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Vectors++

		add := func(index int, field, want, got string) {
			report.Mismatches = append(report.Mismatches, Mismatch{
				Vector: n, Index: index, Field: field, Want: want, Got: got,
			})
		}

		tx, err := DeserializeTxHex(v.HexTx)
		if err != nil {
			add(-1, "hex_tx", "valid transaction", err.Error())
			continue
		}

		desc := NewDesc(tx)
		if desc != v.Desc {
			add(-1, "desc", fmt.Sprintf("%+v", v.Desc), fmt.Sprintf("%+v", desc))
		}

		for _, out := range tx.TxOut {
			report.Outputs++
			if IsStandardScript(out.PkScript) {
				report.StandardOutputs++
			}
		}

		if len(v.Result) != len(v.SpendIndex) {
			add(-1, "result", strconv.Itoa(len(v.SpendIndex)), strconv.Itoa(len(v.Result)))
			continue
		}

		for i, idx := range v.SpendIndex {
			got, err := oracle.DefaultTemplate(ctx, TemplateRequest{
				TxHex:   v.HexTx,
				Index:   idx,
				Witness: desc.Witness,
			})
			if err != nil {
				var mismatch *TemplateMismatchError
				if errors.As(err, &mismatch) {
					add(i, "oracle", mismatch.Reference, mismatch.Primary)
					continue
				}
				return report, fmt.Errorf("vector %d index %d: %w", n, idx, err)
			}
			report.Hashes++

			if !SameHash(v.Result[i], got) {
				add(i, "result", v.Result[i], got)
			}
		}
	}

	if report.OK() {
		logrus.Infof("[VerifyEntries] %d 个向量，%d 个哈希全部一致", report.Vectors, report.Hashes)
	} else {
		logrus.Warnf("[VerifyEntries] %d 个向量中发现 %d 处不一致", report.Vectors, len(report.Mismatches))
	}
	return report, nil
}
