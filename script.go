package ctvgen

import (
	"crypto/sha256"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
	"github.com/tyler-smith/go-bip32"
)

// scriptSource 产生输出的公钥脚本，并从预算中扣除所用字节
type scriptSource interface {
	next(r *Rand, budget *int) ([]byte, error)
}

// randomScripts 生成完全随机的公钥脚本
type randomScripts struct {
	length Range
}

func (s randomScripts) next(r *Rand, budget *int) ([]byte, error) {
	return randomBytesLT(r, s.length, budget), nil
}

// StandardKind 标准输出脚本的类型
type StandardKind int

// 标准脚本类型常量
const (
	KindP2PKH    StandardKind = iota // 支付到公钥哈希
	KindP2SH                         // 支付到脚本哈希
	KindP2WPKH                       // 隔离见证公钥哈希
	KindP2WSH                        // 隔离见证脚本哈希
	KindP2TR                         // taproot 密钥路径
	KindMultiSig                     // 裸多重签名 1-of-n
	numStandardKinds
)

// String 返回脚本类型的名称
func (k StandardKind) String() string {
	switch k {
	case KindP2PKH:
		return "p2pkh"
	case KindP2SH:
		return "p2sh"
	case KindP2WPKH:
		return "p2wpkh"
	case KindP2WSH:
		return "p2wsh"
	case KindP2TR:
		return "p2tr"
	case KindMultiSig:
		return "multisig"
	}
	return fmt.Sprintf("StandardKind(%d)", int(k))
}

// standardScripts 使用 BIP-32 派生的密钥生成标准公钥脚本
type standardScripts struct {
	master *bip32.Key
	params *chaincfg.Params
	child  uint32
}

// newStandardScripts 从随机数生成器派生主密钥
func newStandardScripts(r *Rand) (*standardScripts, error) {
	master, err := bip32.NewMasterKey(r.Bytes(32))
	if err != nil {
		return nil, err
	}
	return &standardScripts{master: master, params: &chaincfg.MainNetParams}, nil
}

// nextKey 派生下一个硬化子密钥
func (s *standardScripts) nextKey() (*btcec.PublicKey, error) {
	child, err := s.master.NewChildKey(bip32.FirstHardenedChild + s.child)
	if err != nil {
		return nil, err
	}
	s.child++

	_, pub := btcec.PrivKeyFromBytes(child.Key)
	return pub, nil
}

func (s *standardScripts) next(r *Rand, budget *int) ([]byte, error) {
	if *budget < 1 {
		return nil, nil
	}

	kind := StandardKind(r.Uint32() % uint32(numStandardKinds))
	script, err := s.build(r, kind)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", kind, err)
	}

	*budget = saturatingSub(*budget, len(script))
	return script, nil
}

// build 按类型构建公钥脚本
func (s *standardScripts) build(r *Rand, kind StandardKind) ([]byte, error) {
	pub, err := s.nextKey()
	if err != nil {
		return nil, err
	}
	compressed := pub.SerializeCompressed()

	var addr btcutil.Address
	switch kind {
	case KindP2PKH:
		addr, err = btcutil.NewAddressPubKeyHash(btcutil.Hash160(compressed), s.params)

	case KindP2SH:
		// 赎回脚本为 P2PKH
		var pkh *btcutil.AddressPubKeyHash
		pkh, err = btcutil.NewAddressPubKeyHash(btcutil.Hash160(compressed), s.params)
		if err != nil {
			return nil, err
		}
		var redeem []byte
		redeem, err = txscript.PayToAddrScript(pkh)
		if err != nil {
			return nil, err
		}
		addr, err = btcutil.NewAddressScriptHash(redeem, s.params)

	case KindP2WPKH:
		addr, err = btcutil.NewAddressWitnessPubKeyHash(btcutil.Hash160(compressed), s.params)

	case KindP2WSH:
		// 见证脚本为 1-of-1 多重签名
		var witnessScript []byte
		witnessScript, err = s.multiSig([][]byte{compressed})
		if err != nil {
			return nil, err
		}
		hash := sha256.Sum256(witnessScript)
		addr, err = btcutil.NewAddressWitnessScriptHash(hash[:], s.params)

	case KindP2TR:
		outputKey := txscript.ComputeTaprootKeyNoScript(pub)
		addr, err = btcutil.NewAddressTaproot(schnorr.SerializePubKey(outputKey), s.params)

	case KindMultiSig:
		keys := [][]byte{compressed}
		n := 1 + int(r.Uint32()%maxStandardMultiSigKeys)
		for len(keys) < n {
			extra, err := s.nextKey()
			if err != nil {
				return nil, err
			}
			keys = append(keys, extra.SerializeCompressed())
		}
		return s.multiSig(keys)

	default:
		return nil, fmt.Errorf("unknown script kind %d", int(kind))
	}
	if err != nil {
		return nil, err
	}

	return txscript.PayToAddrScript(addr)
}

// multiSig 构建 1-of-n 多重签名脚本
func (s *standardScripts) multiSig(keys [][]byte) ([]byte, error) {
	pubKeys := make([]*btcutil.AddressPubKey, 0, len(keys))
	for _, k := range keys {
		apk, err := btcutil.NewAddressPubKey(k, s.params)
		if err != nil {
			return nil, err
		}
		pubKeys = append(pubKeys, apk)
	}
	return txscript.MultiSigScript(pubKeys, 1)
}
