package ctvgen

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"

	"golang.org/x/crypto/chacha20"
)

// SeedSize 是随机数种子的字节长度
const SeedSize = chacha20.KeySize

// Rand 是基于 ChaCha20 密钥流的确定性随机数生成器
// 相同的种子总是产生相同的测试向量
type Rand struct {
	seed   []byte
	cipher *chacha20.Cipher
	buf    [64]byte
	off    int
}

// NewRand 使用给定种子创建随机数生成器
func NewRand(seed []byte) (*Rand, error) {
	if len(seed) != SeedSize {
		return nil, fmt.Errorf("seed must be %d bytes, got %d", SeedSize, len(seed))
	}
	nonce := make([]byte, chacha20.NonceSize)
	cipher, err := chacha20.NewUnauthenticatedCipher(seed, nonce)
	if err != nil {
		return nil, err
	}

	r := &Rand{
		seed:   append([]byte(nil), seed...),
		cipher: cipher,
	}
	r.off = len(r.buf) // 第一次读取时填充缓冲区
	return r, nil
}

// NewOSRand 使用系统熵作为种子
func NewOSRand() (*Rand, error) {
	seed := make([]byte, SeedSize)
	if _, err := rand.Read(seed); err != nil {
		return nil, err
	}
	return NewRand(seed)
}

// Seed 返回种子的副本，用于复现
func (r *Rand) Seed() []byte {
	return append([]byte(nil), r.seed...)
}

// refill 生成下一个密钥流块
func (r *Rand) refill() {
	for i := range r.buf {
		r.buf[i] = 0
	}
	r.cipher.XORKeyStream(r.buf[:], r.buf[:])
	r.off = 0
}

// Read 用密钥流填充 p，总是返回 len(p), nil
func (r *Rand) Read(p []byte) (int, error) {
	n := 0
	for n < len(p) {
		if r.off == len(r.buf) {
			r.refill()
		}
		c := copy(p[n:], r.buf[r.off:])
		r.off += c
		n += c
	}
	return n, nil
}

// Uint32 返回一个小端序的 32 位随机数
func (r *Rand) Uint32() uint32 {
	var b [4]byte
	r.Read(b[:])
	return binary.LittleEndian.Uint32(b[:])
}

// Uint64 返回一个小端序的 64 位随机数
func (r *Rand) Uint64() uint64 {
	var b [8]byte
	r.Read(b[:])
	return binary.LittleEndian.Uint64(b[:])
}

// Bool 返回一个随机布尔值
func (r *Rand) Bool() bool {
	return r.Uint32()%2 == 1
}

// Intn 在闭区间内取一个随机整数，使用取模方式缩减
func (r *Rand) Intn(rg Range) int {
	return rg.Min + int(r.Uint64()%rg.Size())
}

// Bytes 返回 n 个随机字节
func (r *Rand) Bytes(n int) []byte {
	b := make([]byte, n)
	r.Read(b)
	return b
}
