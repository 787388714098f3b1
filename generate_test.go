package ctvgen

import (
	"context"
	"errors"
	"testing"

	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/require"
)

func testGenerator(t *testing.T, seed byte, oracle TemplateOracle) *Generator {
	t.Helper()
	return &Generator{Opt: testOptions(t), Rand: testRand(t, seed), Oracle: oracle}
}

func TestGeneratorSpendIndexes(t *testing.T) {
	g := testGenerator(t, 1, LocalOracle{})

	indexes := g.SpendIndexes()
	require.Len(t, indexes, 2+g.Opt.ExtraSpendIndexes)
	require.Equal(t, []uint32{0, 1}, indexes[:2])

	g.Opt.ExtraSpendIndexes = 0
	require.Equal(t, []uint32{0, 1}, g.SpendIndexes())
}

func TestGenerate(t *testing.T) {
	g := testGenerator(t, 2, LocalOracle{})

	var seen []*wire.MsgTx
	g.OnVector = func(tx *wire.MsgTx, v *TestVector) error {
		seen = append(seen, tx)
		return nil
	}

	entries, err := g.Generate(context.Background(), 12)
	require.NoError(t, err)
	require.Len(t, entries, 13)
	require.True(t, entries[0].IsDoc())
	require.Equal(t, DocumentationString, entries[0].Doc)
	require.Len(t, seen, 12)

	for n, v := range Vectors(entries) {
		require.Len(t, v.SpendIndex, 4)
		require.Len(t, v.Result, len(v.SpendIndex))

		tx, err := DeserializeTxHex(v.HexTx)
		require.NoError(t, err)
		require.Equal(t, seen[n].TxHash(), tx.TxHash())
		require.Equal(t, NewDesc(tx), v.Desc)

		for i, idx := range v.SpendIndex {
			require.Equal(t, TemplateHashString(tx, idx), v.Result[i])
		}
	}
}

// 相同种子生成相同的向量文件
func TestGenerateDeterministic(t *testing.T) {
	a, err := testGenerator(t, 3, LocalOracle{}).Generate(context.Background(), 5)
	require.NoError(t, err)
	b, err := testGenerator(t, 3, LocalOracle{}).Generate(context.Background(), 5)
	require.NoError(t, err)
	require.Equal(t, a, b)
}

// 预言机收到的见证标志与交易描述一致
func TestGenerateWitnessFlag(t *testing.T) {
	oracle := &recordingOracle{}
	g := testGenerator(t, 4, oracle)

	entries, err := g.Generate(context.Background(), 20)
	require.NoError(t, err)

	n := 0
	for _, v := range Vectors(entries) {
		for range v.SpendIndex {
			require.Equal(t, v.HexTx, oracle.requests[n].TxHex)
			require.Equal(t, v.Desc.Witness, oracle.requests[n].Witness)
			n++
		}
	}
	require.Equal(t, n, len(oracle.requests))
}

func TestGenerateErrors(t *testing.T) {
	boom := errors.New("boom")

	g := testGenerator(t, 5, &fixedOracle{err: boom})
	entries, err := g.Generate(context.Background(), 3)
	require.ErrorIs(t, err, boom)
	require.Len(t, entries, 1)

	g = testGenerator(t, 5, LocalOracle{})
	g.OnVector = func(*wire.MsgTx, *TestVector) error { return boom }
	_, err = g.Generate(context.Background(), 3)
	require.ErrorIs(t, err, boom)

	// 取消后返回已生成的部分
	ctx, cancel := context.WithCancel(context.Background())
	g = testGenerator(t, 5, LocalOracle{})
	g.OnVector = func(*wire.MsgTx, *TestVector) error {
		cancel()
		return nil
	}
	entries, err = g.Generate(ctx, 10)
	require.ErrorIs(t, err, context.Canceled)
	require.Len(t, entries, 2)
}

// recordingOracle 记录所有请求并在本地计算
type recordingOracle struct {
	requests []TemplateRequest
}

func (o *recordingOracle) DefaultTemplate(ctx context.Context, req TemplateRequest) (string, error) {
	o.requests = append(o.requests, req)
	return LocalOracle{}.DefaultTemplate(ctx, req)
}
