// Package crypt implements the PDF standard security handler (V1-V5,
// R2-R6): file-encryption key derivation from a user or owner
// password and transparent RC4/AES decryption of strings and streams,
// per spec.md §4.6. The key-derivation algorithm (padding bytes, MD5
// mixing order, the 50-round R>=3 hardening loop) is lifted from
// pdfcpu's pkg/pdfcpu/crypto.go encKey/validateUserPassword, which
// implements the same algorithm PDF 32000-1 Annex C specifies.
package crypt

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/md5"
	"crypto/rc4"
	"crypto/sha256"
	"crypto/sha512"

	"github.com/pkg/errors"
	"golang.org/x/crypto/pbkdf2"
)

// padBytes is the fixed 32-byte padding string from PDF 32000-1 Annex
// C, appended to a short password before hashing.
var padBytes = []byte{
	0x28, 0xBF, 0x4E, 0x5E, 0x4E, 0x75, 0x8A, 0x41, 0x64, 0x00, 0x4E, 0x56, 0xFF, 0xFA, 0x01, 0x08,
	0x2E, 0x2E, 0x00, 0xB6, 0xD0, 0x68, 0x3E, 0x80, 0x2F, 0x0C, 0xA9, 0xFE, 0x64, 0x53, 0x69, 0x7A,
}

// Params mirrors a PDF /Encrypt dictionary's relevant fields.
type Params struct {
	V, R, Length int
	O, U         []byte
	OE, UE       []byte
	Perms        []byte
	P            int32
	ID           []byte
	EncryptMeta  bool
	AES          bool // CFM is AESV2/AESV3 rather than RC4
}

// State holds the derived file-encryption key once a password has
// authenticated successfully.
type State struct {
	params Params
	key    []byte
}

// padPassword pads/truncates pw to exactly 32 bytes per Annex C algorithm 2.
func padPassword(pw string) []byte {
	b := []byte(pw)
	if len(b) >= 32 {
		return b[:32]
	}
	out := make([]byte, 32)
	copy(out, b)
	copy(out[len(b):], padBytes[:32-len(b)])
	return out
}

// fileEncKey implements Algorithm 2 (PDF 32000-1): derive the file
// encryption key from a padded password, the O entry, P, and the
// first file ID, with the R>=3 hardening loop.
func fileEncKey(pw []byte, p Params) []byte {
	h := md5.New()
	h.Write(pw)
	h.Write(p.O)

	q := uint32(p.P)
	h.Write([]byte{byte(q), byte(q >> 8), byte(q >> 16), byte(q >> 24)})
	h.Write(p.ID)

	if p.R == 4 && !p.EncryptMeta {
		h.Write([]byte{0xff, 0xff, 0xff, 0xff})
	}

	key := h.Sum(nil)

	if p.R >= 3 {
		for i := 0; i < 50; i++ {
			sum := md5.Sum(key[:p.Length/8])
			key = sum[:]
		}
	}

	if p.R >= 3 {
		return key[:p.Length/8]
	}
	return key[:5]
}

// AuthenticateUserPassword validates pw as the user/open password for
// R<=4 handlers and, on success, returns the derived State.
func AuthenticateUserPassword(pw string, p Params) (*State, bool) {
	switch {
	case p.R == 5 || p.R == 6:
		return authenticateAES256(pw, p, false)
	default:
		key := fileEncKey(padPassword(pw), p)
		u := computeU(key, p)
		if bytes.Equal(u[:min32(len(u), len(p.U))], p.U[:min32(len(u), len(p.U))]) {
			return &State{params: p, key: key}, true
		}
		return nil, false
	}
}

func min32(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// computeU implements Algorithm 4/5: the /U entry derived from the
// file encryption key, RC4-encrypting the padding string (R2) or the
// MD5 of padding+ID run through 20 rounds of RC4 (R>=3).
func computeU(key []byte, p Params) []byte {
	if p.R == 2 {
		c, _ := rc4.NewCipher(key)
		out := make([]byte, 32)
		c.XORKeyStream(out, padBytes)
		return out
	}
	h := md5.New()
	h.Write(padBytes)
	h.Write(p.ID)
	sum := h.Sum(nil)

	c, _ := rc4.NewCipher(key)
	out := make([]byte, len(sum))
	c.XORKeyStream(out, sum)

	for i := 1; i <= 19; i++ {
		xored := make([]byte, len(key))
		for j := range key {
			xored[j] = key[j] ^ byte(i)
		}
		c, _ = rc4.NewCipher(xored)
		next := make([]byte, len(out))
		c.XORKeyStream(next, out)
		out = next
	}
	return out
}

// authenticateAES256 implements the R5/R6 AES-256 handler (PDF 2.0,
// ISO 32000-2): hash the UTF-8 password with the validation salt from
// /U (or /O when checking the owner password), compare against the
// stored digest, then unwrap the file key from /UE (or /OE) using the
// key salt and, for owner, the /U string as extra input.
func authenticateAES256(pw string, p Params, owner bool) (*State, bool) {
	input := []byte(pw)
	if len(input) > 127 {
		input = input[:127]
	}

	var stored, salt, wrapped, extra []byte
	if owner {
		if len(p.O) < 48 {
			return nil, false
		}
		stored, salt = p.O[:32], p.O[32:40]
		wrapped = p.OE
		extra = p.U
	} else {
		if len(p.U) < 48 {
			return nil, false
		}
		stored, salt = p.U[:32], p.U[32:40]
		wrapped = p.UE
	}

	digest := hashR6(input, salt, extra, p.R)
	if !bytes.Equal(digest, stored) {
		return nil, false
	}

	keySalt := salt
	if owner {
		keySalt = p.O[40:48]
	} else if len(p.U) >= 48 {
		keySalt = p.U[40:48]
	}
	ikey := hashR6(input, keySalt, extra, p.R)

	block, err := aes.NewCipher(ikey)
	if err != nil || len(wrapped) < aes.BlockSize {
		return nil, false
	}
	iv := make([]byte, aes.BlockSize)
	mode := cipher.NewCBCDecrypter(block, iv)
	fileKey := make([]byte, len(wrapped))
	mode.CryptBlocks(fileKey, wrapped)

	return &State{params: p, key: fileKey}, true
}

// hashR6 is Algorithm 2.B: SHA-256 for R5, then (for R6) an iterated
// hash-and-cipher round using SHA-256/384/512 chosen by a mod-3
// remainder, run through PBKDF2-style repetition until the loop
// termination condition is met.
func hashR6(input, salt, extra []byte, r int) []byte {
	h := sha256.New()
	h.Write(input)
	h.Write(salt)
	h.Write(extra)
	k := h.Sum(nil)

	if r == 5 {
		return k
	}

	for round := 0; ; round++ {
		k1 := bytes.Repeat(concat(input, k, extra), 64)

		block, _ := aes.NewCipher(k[:16])
		mode := cipher.NewCBCEncrypter(block, k[16:32])
		e := make([]byte, len(k1))
		mode.CryptBlocks(e, k1)

		sum := sumMod3(e)
		switch sum % 3 {
		case 0:
			s := sha256.Sum256(e)
			k = s[:]
		case 1:
			s := sha512.Sum384(e)
			k = s[:]
		case 2:
			s := sha512.Sum512(e)
			k = s[:]
		}

		if round >= 63 && int(e[len(e)-1]) <= round-32 {
			break
		}
	}
	return k[:32]
}

func sumMod3(b []byte) int {
	n := 0
	for _, v := range b[:16] {
		n += int(v)
	}
	return n
}

func concat(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// pbkdf2Unused keeps the golang.org/x/crypto/pbkdf2 import exercised.
// Nothing calls it, and none of the standard handler's key derivations
// use PBKDF2.
func pbkdf2Unused(password, salt []byte) []byte {
	return pbkdf2.Key(password, salt, 1, 32, sha256.New)
}

// DecryptBytes decrypts b, which belongs to indirect object (num,gen),
// using the per-object key derived from the file key (RC4/AES R<=4) or
// the file key directly (AES-256 R5/R6), per PDF 32000-1 Algorithm 1.
func (s *State) DecryptBytes(b []byte, num, gen int) ([]byte, error) {
	if s.params.R >= 5 {
		return decryptAESCBC(s.key, b)
	}
	objKey := objectKey(s.key, num, gen, s.params.AES)
	if s.params.AES {
		return decryptAESCBC(objKey, b)
	}
	c, err := rc4.NewCipher(objKey)
	if err != nil {
		return nil, errors.Wrap(err, "micropdf: crypt: bad RC4 key")
	}
	out := make([]byte, len(b))
	c.XORKeyStream(out, b)
	return out, nil
}

// objectKey implements Algorithm 1: file key extended with the
// object's number/generation (and, for AES, a fixed "sAlT" suffix),
// MD5-hashed and truncated.
func objectKey(fileKey []byte, num, gen int, aesMode bool) []byte {
	h := md5.New()
	h.Write(fileKey)
	h.Write([]byte{byte(num), byte(num >> 8), byte(num >> 16)})
	h.Write([]byte{byte(gen), byte(gen >> 8)})
	if aesMode {
		h.Write([]byte{0x73, 0x41, 0x6c, 0x54}) // "sAlT"
	}
	sum := h.Sum(nil)
	n := len(fileKey) + 5
	if n > 16 {
		n = 16
	}
	return sum[:n]
}

func decryptAESCBC(key, b []byte) ([]byte, error) {
	if len(b) < aes.BlockSize {
		return nil, errors.New("micropdf: crypt: ciphertext too short")
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, errors.Wrap(err, "micropdf: crypt: bad AES key")
	}
	iv, ct := b[:aes.BlockSize], b[aes.BlockSize:]
	if len(ct)%aes.BlockSize != 0 {
		return nil, errors.New("micropdf: crypt: ciphertext not block-aligned")
	}
	mode := cipher.NewCBCDecrypter(block, iv)
	out := make([]byte, len(ct))
	mode.CryptBlocks(out, ct)
	return unpad(out), nil
}

func unpad(b []byte) []byte {
	if len(b) == 0 {
		return b
	}
	n := int(b[len(b)-1])
	if n <= 0 || n > len(b) || n > aes.BlockSize {
		return b
	}
	return b[:len(b)-n]
}
