/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2026 Markus Stenberg
 *
 * Created:       Tue Oct  6 09:12:30 2026 mstenber
 * Last modified: Thu Oct 15 14:20:03 2026 mstenber
 * Edit time:     88 min
 *
 */

// codec library transforms sector payloads (+ additional data) to
// the form they are stored in by the key-value device backends: in
// practice encrypted and/or compressed.
//
// CodecChain combines multiple Codecs. Envelopes are CBOR encoded.
package codec

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
	"log"

	"github.com/fxamacker/cbor/v2"
	"github.com/golang/snappy"
	"github.com/minio/sha256-simd"
	"github.com/pierrec/lz4/v4"
	"github.com/pkg/errors"
	"golang.org/x/crypto/pbkdf2"
)

// Codec is a single reversible transformation of byte slices.
type Codec interface {
	DecodeBytes(data, additionalData []byte) (ret []byte, err error)
	EncodeBytes(data, additionalData []byte) (ret []byte, err error)
}

var encMode cbor.EncMode

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		log.Panic("cbor EncMode", err)
	}
}

type EncryptedData struct {
	_             struct{} `cbor:",toarray"`
	Nonce         []byte
	EncryptedData []byte
}

// EncryptingCodec is AES-GCM based encrypting/decrypting (and
// authenticating) Codec. The key is derived with pbkdf2-sha256.
type EncryptingCodec struct {
	gcm cipher.AEAD
}

func (self EncryptingCodec) Init(password, salt []byte, iter int) *EncryptingCodec {
	mk := pbkdf2.Key(password, salt, iter, 32, sha256.New)
	block, err := aes.NewCipher(mk)
	if err != nil {
		log.Panic(err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		log.Panic(err)
	}
	self.gcm = gcm
	return &self
}

func (self *EncryptingCodec) DecodeBytes(data, additionalData []byte) (ret []byte, err error) {
	var ed EncryptedData
	if err = cbor.Unmarshal(data, &ed); err != nil {
		return nil, errors.Wrap(err, "encrypted envelope")
	}
	return self.gcm.Open(nil, ed.Nonce, ed.EncryptedData, additionalData)
}

func (self *EncryptingCodec) EncodeBytes(data, additionalData []byte) (ret []byte, err error) {
	nonce := make([]byte, self.gcm.NonceSize())
	if _, err = rand.Read(nonce); err != nil {
		return
	}
	ed := EncryptedData{Nonce: nonce,
		EncryptedData: self.gcm.Seal(nil, nonce, data, additionalData)}
	return encMode.Marshal(&ed)
}

type CompressionType byte

const (
	CompressionType_PLAIN CompressionType = iota
	CompressionType_SNAPPY
	CompressionType_LZ4
)

var compressionNames = map[string]CompressionType{
	"none":   CompressionType_PLAIN,
	"snappy": CompressionType_SNAPPY,
	"lz4":    CompressionType_LZ4,
}

// ParseCompressionType maps configuration names ("none", "snappy",
// "lz4") to CompressionType.
func ParseCompressionType(name string) (CompressionType, error) {
	ct, ok := compressionNames[name]
	if !ok {
		return CompressionType_PLAIN, fmt.Errorf("unknown compression %q", name)
	}
	return ct, nil
}

type CompressedData struct {
	_               struct{} `cbor:",toarray"`
	CompressionType CompressionType
	Size            int
	RawData         []byte
}

// CompressingCodec compresses with the chosen Algorithm. If the
// result does not improve, the payload is stored plain (at the cost
// of the envelope).
type CompressingCodec struct {
	Algorithm CompressionType
}

func (self *CompressingCodec) DecodeBytes(data, additionalData []byte) (ret []byte, err error) {
	var cd CompressedData
	if err = cbor.Unmarshal(data, &cd); err != nil {
		return nil, errors.Wrap(err, "compressed envelope")
	}
	switch cd.CompressionType {
	case CompressionType_PLAIN:
		ret = cd.RawData
	case CompressionType_SNAPPY:
		ret, err = snappy.Decode(nil, cd.RawData)
	case CompressionType_LZ4:
		ret = make([]byte, cd.Size)
		var n int
		n, err = lz4.UncompressBlock(cd.RawData, ret)
		if err == nil && n != cd.Size {
			err = fmt.Errorf("lz4: got %d bytes, expected %d", n, cd.Size)
		}
	default:
		err = fmt.Errorf("unsupported compression type %d", cd.CompressionType)
	}
	return
}

func (self *CompressingCodec) compress(data []byte) ([]byte, error) {
	switch self.Algorithm {
	case CompressionType_SNAPPY:
		return snappy.Encode(nil, data), nil
	case CompressionType_LZ4:
		dst := make([]byte, lz4.CompressBlockBound(len(data)))
		n, err := lz4.CompressBlock(data, dst, nil)
		if err != nil {
			return nil, err
		}
		return dst[:n], nil
	}
	return nil, nil
}

func (self *CompressingCodec) EncodeBytes(data, additionalData []byte) (ret []byte, err error) {
	rd, err := self.compress(data)
	if err != nil {
		return
	}
	cd := CompressedData{CompressionType: self.Algorithm, Size: len(data), RawData: rd}
	if len(rd) == 0 || len(rd) >= len(data) {
		cd.CompressionType = CompressionType_PLAIN
		cd.RawData = data
	}
	return encMode.Marshal(&cd)
}

type CodecChain struct {
	codecs, reverseCodecs []Codec
}

// Init initializes the codec chain. codecs are given in decoding
// order, so e.g. encrypting one should be given before compressing
// one.
func (self CodecChain) Init(codecs ...Codec) *CodecChain {
	self.codecs = codecs
	self.reverseCodecs = make([]Codec, len(codecs))
	for i, c := range codecs {
		self.reverseCodecs[len(codecs)-i-1] = c
	}
	return &self
}

func (self *CodecChain) DecodeBytes(data, additionalData []byte) (ret []byte, err error) {
	ret = data
	for _, c := range self.codecs {
		ret, err = c.DecodeBytes(ret, additionalData)
		if err != nil {
			return
		}
	}
	return
}

func (self *CodecChain) EncodeBytes(data, additionalData []byte) (ret []byte, err error) {
	ret = data
	for _, c := range self.reverseCodecs {
		ret, err = c.EncodeBytes(ret, additionalData)
		if err != nil {
			return
		}
	}
	return
}
