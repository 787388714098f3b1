package ctvgen

import (
	"bytes"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
	"github.com/stretchr/testify/require"
)

// testPubKeys 返回 n 个确定性的压缩公钥
func testPubKeys(t *testing.T, n int) [][]byte {
	t.Helper()

	var pubKeys [][]byte
	for i := 0; i < n; i++ {
		_, pub := btcec.PrivKeyFromBytes(bytes.Repeat([]byte{byte(i + 1)}, 32))
		pubKeys = append(pubKeys, pub.SerializeCompressed())
	}
	return pubKeys
}

// TestCheckPkScriptStandard 测试多重签名脚本的标准性检查
func TestCheckPkScriptStandard(t *testing.T) {
	pubKeys := testPubKeys(t, 4)

	tests := []struct {
		name       string // 测试描述。
		script     *txscript.ScriptBuilder
		isStandard bool
	}{
		{
			"key1 and key2",
			txscript.NewScriptBuilder().AddOp(txscript.OP_2).
				AddData(pubKeys[0]).AddData(pubKeys[1]).
				AddOp(txscript.OP_2).AddOp(txscript.OP_CHECKMULTISIG),
			true,
		},
		{
			"key1 or key2",
			txscript.NewScriptBuilder().AddOp(txscript.OP_1).
				AddData(pubKeys[0]).AddData(pubKeys[1]).
				AddOp(txscript.OP_2).AddOp(txscript.OP_CHECKMULTISIG),
			true,
		},
		{
			"escrow",
			txscript.NewScriptBuilder().AddOp(txscript.OP_2).
				AddData(pubKeys[0]).AddData(pubKeys[1]).
				AddData(pubKeys[2]).
				AddOp(txscript.OP_3).AddOp(txscript.OP_CHECKMULTISIG),
			true,
		},
		{
			"one of four",
			txscript.NewScriptBuilder().AddOp(txscript.OP_1).
				AddData(pubKeys[0]).AddData(pubKeys[1]).
				AddData(pubKeys[2]).AddData(pubKeys[3]).
				AddOp(txscript.OP_4).AddOp(txscript.OP_CHECKMULTISIG),
			false,
		},
		{
			"malformed1",
			txscript.NewScriptBuilder().AddOp(txscript.OP_3).
				AddData(pubKeys[0]).AddData(pubKeys[1]).
				AddOp(txscript.OP_2).AddOp(txscript.OP_CHECKMULTISIG),
			false,
		},
		{
			"malformed2",
			txscript.NewScriptBuilder().AddOp(txscript.OP_2).
				AddData(pubKeys[0]).AddData(pubKeys[1]).
				AddOp(txscript.OP_3).AddOp(txscript.OP_CHECKMULTISIG),
			false,
		},
		{
			"malformed3",
			txscript.NewScriptBuilder().AddOp(txscript.OP_0).
				AddData(pubKeys[0]).AddData(pubKeys[1]).
				AddOp(txscript.OP_2).AddOp(txscript.OP_CHECKMULTISIG),
			false,
		},
		{
			"malformed4",
			txscript.NewScriptBuilder().AddOp(txscript.OP_1).
				AddData(pubKeys[0]).AddData(pubKeys[1]).
				AddOp(txscript.OP_0).AddOp(txscript.OP_CHECKMULTISIG),
			false,
		},
		{
			"malformed5",
			txscript.NewScriptBuilder().AddOp(txscript.OP_1).
				AddData(pubKeys[0]).AddData(pubKeys[1]).
				AddOp(txscript.OP_CHECKMULTISIG),
			false,
		},
		{
			"malformed6",
			txscript.NewScriptBuilder().AddOp(txscript.OP_1).
				AddData(pubKeys[0]).AddData(pubKeys[1]),
			false,
		},
	}

	for _, test := range tests {
		script, err := test.script.Script()
		require.NoError(t, err, test.name)

		scriptClass := txscript.GetScriptClass(script)
		got := checkPkScriptStandard(script, scriptClass)
		if test.isStandard {
			require.NoError(t, got, test.name)
		} else {
			require.Error(t, got, test.name)
		}
	}
}

func TestIsStandardScript(t *testing.T) {
	pubKeys := testPubKeys(t, 1)
	params := &chaincfg.MainNetParams

	addrScript := func(addr btcutil.Address, err error) []byte {
		require.NoError(t, err)
		script, err := txscript.PayToAddrScript(addr)
		require.NoError(t, err)
		return script
	}

	pub, err := btcec.ParsePubKey(pubKeys[0])
	require.NoError(t, err)
	taproot := txscript.ComputeTaprootKeyNoScript(pub)

	nullData, err := txscript.NullDataScript([]byte("ctv"))
	require.NoError(t, err)

	tests := []struct {
		name       string
		script     []byte
		isStandard bool
	}{
		{"p2pkh", addrScript(btcutil.NewAddressPubKeyHash(btcutil.Hash160(pubKeys[0]), params)), true},
		{"p2sh", addrScript(btcutil.NewAddressScriptHash([]byte{txscript.OP_TRUE}, params)), true},
		{"p2wpkh", addrScript(btcutil.NewAddressWitnessPubKeyHash(btcutil.Hash160(pubKeys[0]), params)), true},
		{"p2tr", addrScript(btcutil.NewAddressTaproot(schnorr.SerializePubKey(taproot), params)), true},
		{"nulldata", nullData, true},
		{"empty", nil, false},
		{"garbage", []byte{0xde, 0xad, 0xbe, 0xef}, false},
	}

	for _, test := range tests {
		require.Equal(t, test.isStandard, IsStandardScript(test.script), test.name)
	}
}
