package ctvgen

import (
	"context"
	"fmt"

	"github.com/btcsuite/btcd/wire"
	"github.com/sirupsen/logrus"
)

// progressInterval 每生成多少个向量打印一次进度
const progressInterval = 10

// Generator 生成测试向量
type Generator struct {
	Opt    *Options
	Rand   *Rand
	Oracle TemplateOracle

	// OnVector 在每个向量生成后调用，可为空
	OnVector func(tx *wire.MsgTx, v *TestVector) error
}

// SpendIndexes 返回花费索引：0、1 以及若干个随机 u32
func (g *Generator) SpendIndexes() []uint32 {
	indexes := []uint32{0, 1}
	for i := 0; i < g.Opt.ExtraSpendIndexes; i++ {
		indexes = append(indexes, g.Rand.Uint32())
	}
	return indexes
}

// NewVector 生成一笔随机交易，并向预言机查询每个花费索引的模板哈希
func (g *Generator) NewVector(ctx context.Context) (*wire.MsgTx, *TestVector, error) {
	tx, err := RandomTx(g.Rand, g.Opt)
	if err != nil {
		return nil, nil, err
	}

	spendIndex := g.SpendIndexes()

	txHex, err := SerializeTxHex(tx)
	if err != nil {
		return nil, nil, fmt.Errorf("serialize tx: %w", err)
	}

	// 确保十六进制能够被解析回来
	if _, err := DeserializeTxHex(txHex); err != nil {
		return nil, nil, err
	}

	desc := NewDesc(tx)

	result := make([]string, 0, len(spendIndex))
	for _, idx := range spendIndex {
		hash, err := g.Oracle.DefaultTemplate(ctx, TemplateRequest{
			TxHex:   txHex,
			Index:   idx,
			Witness: desc.Witness,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("template for index %d: %w", idx, err)
		}
		result = append(result, hash)
	}

	return tx, &TestVector{
		HexTx:      txHex,
		SpendIndex: spendIndex,
		Result:     result,
		Desc:       desc,
	}, nil
}

// Generate 生成 count 个向量，第一项为文档字符串
// ctx 取消时返回已生成的部分以及 ctx.Err()
func (g *Generator) Generate(ctx context.Context, count int) ([]Entry, error) {
	entries := make([]Entry, 0, count+1)
	entries = append(entries, DocEntry(DocumentationString))

	for n := 0; n < count; n++ {
		if err := ctx.Err(); err != nil {
			logrus.Warnf("[Generate] 已取消，生成了 %d/%d 个向量", n, count)
			return entries, err
		}

		tx, vector, err := g.NewVector(ctx)
		if err != nil {
			return entries, fmt.Errorf("vector %d: %w", n, err)
		}
		if g.OnVector != nil {
			if err := g.OnVector(tx, vector); err != nil {
				return entries, fmt.Errorf("vector %d: %w", n, err)
			}
		}
		entries = append(entries, VectorEntry(vector))

		if (n+1)%progressInterval == 0 {
			logrus.Infof("[Generate] 已生成 %d/%d 个向量", n+1, count)
		}
	}

	logrus.Infof("[Generate] 完成，共 %d 个向量", count)
	return entries, nil
}
