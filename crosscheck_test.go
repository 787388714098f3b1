package ctvgen

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// fixedOracle 总是返回同一个结果，并统计调用次数
type fixedOracle struct {
	mu    sync.Mutex
	hash  string
	err   error
	calls int
}

func (o *fixedOracle) DefaultTemplate(_ context.Context, _ TemplateRequest) (string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls++
	return o.hash, o.err
}

func (o *fixedOracle) Calls() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.calls
}

func TestSameHash(t *testing.T) {
	require.True(t, SameHash("ABCD", "abcd"))
	require.True(t, SameHash(" abcd\n", "abcd"))
	require.False(t, SameHash("abcd", "abce"))
}

func TestCrossCheckOracleAgree(t *testing.T) {
	// 节点以大写十六进制返回也视为一致
	primary := &fixedOracle{hash: "70463693E9D856F0C34A3BF7E0C316ED5268CFA7FCD5522C51FA7B69D587092C"}
	oracle := &CrossCheckOracle{Primary: primary, Reference: LocalOracle{}}

	got, err := oracle.DefaultTemplate(context.Background(), TemplateRequest{TxHex: simpleTemplateTxHex})
	require.NoError(t, err)
	require.Equal(t, primary.hash, got)
}

func TestCrossCheckOracleMismatch(t *testing.T) {
	primary := &fixedOracle{hash: simpleTemplateHash1}
	oracle := &CrossCheckOracle{Primary: primary, Reference: LocalOracle{}}

	req := TemplateRequest{TxHex: simpleTemplateTxHex, Index: 0}
	_, err := oracle.DefaultTemplate(context.Background(), req)
	require.ErrorIs(t, err, ErrTemplateMismatch)

	var mismatch *TemplateMismatchError
	require.True(t, errors.As(err, &mismatch))
	require.Equal(t, req, mismatch.Request)
	require.Equal(t, simpleTemplateHash1, mismatch.Primary)
	require.Equal(t, simpleTemplateHash0, mismatch.Reference)
	require.Contains(t, mismatch.Error(), simpleTemplateHash0)
}

func TestCrossCheckOracleErrors(t *testing.T) {
	boom := errors.New("boom")

	// Primary 失败时不询问 Reference
	primary := &fixedOracle{err: boom}
	reference := &fixedOracle{hash: simpleTemplateHash0}
	oracle := &CrossCheckOracle{Primary: primary, Reference: reference}
	_, err := oracle.DefaultTemplate(context.Background(), TemplateRequest{})
	require.ErrorIs(t, err, boom)
	require.Zero(t, reference.Calls())

	oracle = &CrossCheckOracle{Primary: &fixedOracle{hash: simpleTemplateHash0}, Reference: LocalOracle{}}
	_, err = oracle.DefaultTemplate(context.Background(), TemplateRequest{TxHex: "00"})
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrTemplateMismatch)
}
