/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2026 Markus Stenberg
 *
 * Created:       Tue Oct  6 10:20:44 2026 mstenber
 * Last modified: Thu Oct 15 14:31:12 2026 mstenber
 * Edit time:     35 min
 *
 */

package codec

import (
	"bytes"
	"crypto/rand"
	"fmt"
	"log"
	"testing"

	"github.com/stvp/assert"
)

const compressible = "123456789123456789123456789123456789123456789123456789123456789123456789123456789123456789123456789"

func prodCodecOnce(t *testing.T, c Codec, p []byte) {
	enc, err := c.EncodeBytes(p, nil)
	assert.Nil(t, err)
	dec, err := c.DecodeBytes(enc, nil)
	assert.Nil(t, err)
	assert.True(t, bytes.Equal(p, dec))
}

func prodCodec(t *testing.T, c Codec) {
	prodCodecOnce(t, c, []byte("foo"))
	prodCodecOnce(t, c, []byte(compressible))
	prodCodecOnce(t, c, make([]byte, 512))
}

func TestEncryptingCodec(t *testing.T) {
	t.Parallel()
	p := []byte("data")
	ad := []byte("ad")

	c := EncryptingCodec{}.Init([]byte("foo"), []byte("salt"), 64)
	prodCodec(t, c)

	enc, err := c.EncodeBytes(p, nil)
	assert.Nil(t, err)

	// additional data is authenticated
	_, err = c.DecodeBytes(enc, ad)
	assert.NotNil(t, err)

	// same payload does not encrypt the same way
	enc2, err := c.EncodeBytes(p, nil)
	assert.Nil(t, err)
	assert.False(t, bytes.Equal(enc, enc2))

	dec, err := c.DecodeBytes(enc2, nil)
	assert.Nil(t, err)
	assert.Equal(t, dec, p)

	enc3, err := c.EncodeBytes(p, ad)
	assert.Nil(t, err)
	dec, err = c.DecodeBytes(enc3, ad)
	assert.Nil(t, err)
	assert.Equal(t, dec, p)

	other := EncryptingCodec{}.Init([]byte("bar"), []byte("salt"), 64)
	_, err = other.DecodeBytes(enc3, ad)
	assert.NotNil(t, err)
}

func TestCompressingCodec(t *testing.T) {
	t.Parallel()
	for _, name := range []string{"none", "snappy", "lz4"} {
		name := name
		t.Run(name, func(t *testing.T) {
			ct, err := ParseCompressionType(name)
			assert.Nil(t, err)
			c := &CompressingCodec{Algorithm: ct}
			prodCodec(t, c)
			enc, err := c.EncodeBytes(make([]byte, 512), nil)
			assert.Nil(t, err)
			if ct == CompressionType_PLAIN {
				assert.True(t, len(enc) > 512)
			} else {
				assert.True(t, len(enc) < 100)
			}
		})
	}
	_, err := ParseCompressionType("zip")
	assert.NotNil(t, err)
}

func TestNopCodecChain(t *testing.T) {
	t.Parallel()
	prodCodec(t, &CodecChain{})
}

func TestCodecChain(t *testing.T) {
	t.Parallel()
	c1 := EncryptingCodec{}.Init([]byte("foo"), []byte("salt"), 64)
	c2 := &CompressingCodec{Algorithm: CompressionType_SNAPPY}
	c := CodecChain{}.Init(c1, c2)
	prodCodec(t, c)

	enc, err := c.EncodeBytes(make([]byte, 512), []byte("lba"))
	assert.Nil(t, err)
	assert.True(t, len(enc) < 512)
	_, err = c.DecodeBytes(enc, []byte("other lba"))
	assert.NotNil(t, err)
}

func BenchmarkCodec(b *testing.B) {
	run := func(b *testing.B, c Codec, p []byte, decode bool) {
		enc, err := c.EncodeBytes(p, nil)
		if err != nil {
			log.Panic(err)
		}
		b.SetBytes(int64(len(p)))
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			if decode {
				_, err = c.DecodeBytes(enc, nil)
			} else {
				_, err = c.EncodeBytes(p, nil)
			}
			if err != nil {
				log.Panic(err)
			}
		}
	}
	random := make([]byte, 512)
	if _, err := rand.Read(random); err != nil {
		log.Panic(err)
	}
	zeros := make([]byte, 512)
	aes := EncryptingCodec{}.Init([]byte("foo"), []byte("salt"), 64)
	codecs := map[string]Codec{
		"AES":        aes,
		"Snappy":     &CompressingCodec{Algorithm: CompressionType_SNAPPY},
		"LZ4":        &CompressingCodec{Algorithm: CompressionType_LZ4},
		"AES+Snappy": CodecChain{}.Init(aes, &CompressingCodec{Algorithm: CompressionType_SNAPPY}),
	}
	for name, c := range codecs {
		for _, decode := range []bool{false, true} {
			op := "Encode"
			if decode {
				op = "Decode"
			}
			c, decode := c, decode
			b.Run(fmt.Sprintf("%s-%s-Random", op, name), func(b *testing.B) {
				run(b, c, random, decode)
			})
			b.Run(fmt.Sprintf("%s-%s-Zeros", op, name), func(b *testing.B) {
				run(b, c, zeros, decode)
			})
		}
	}
}
