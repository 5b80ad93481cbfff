/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2026 Markus Stenberg
 *
 * Created:       Wed Oct  7 09:30:10 2026 mstenber
 * Last modified: Fri Oct 16 11:21:37 2026 mstenber
 * Edit time:     33 min
 *
 */

// factory package creates devices by backend name, optionally with
// an encrypting/compressing codec for the key-value backends.
package factory

import (
	"sort"

	"github.com/fingon/go-tinyfs/codec"
	"github.com/fingon/go-tinyfs/device"
	"github.com/fingon/go-tinyfs/device/badger"
	"github.com/fingon/go-tinyfs/device/bolt"
	"github.com/fingon/go-tinyfs/device/file"
	"github.com/fingon/go-tinyfs/device/inmemory"
	"github.com/fingon/go-tinyfs/mlog"
	"github.com/pkg/errors"
)

const (
	DefaultIterations  = 12345
	DefaultSalt        = "tinyfs"
	DefaultCompression = "snappy"
)

type factoryCallback func(config device.Configuration) (device.Device, error)

type backendInfo struct {
	create factoryCallback

	// usesCodec is true for the key-value backends
	usesCodec bool
}

var backendFactories = map[string]backendInfo{
	"inmemory": {create: inmemory.NewInMemoryDevice},
	"file":     {create: file.NewFileDevice},
	"bolt":     {create: bolt.NewBoltDevice, usesCodec: true},
	"badger":   {create: badger.NewBadgerDevice, usesCodec: true},
}

// List returns the backend names, sorted.
func List() []string {
	keys := make([]string, 0, len(backendFactories))
	for k := range backendFactories {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// UsesCodec tells if the named backend stores sectors through a
// codec.
func UsesCodec(name string) bool {
	return backendFactories[name].usesCodec
}

func New(name, path string, sectors uint32) (device.Device, error) {
	return NewWithConfig(name, device.Configuration{Path: path, Sectors: sectors})
}

func NewWithConfig(name string, config device.Configuration) (device.Device, error) {
	mlog.Printf2("device/factory/factory", "f.NewWithConfig %v %v", name, config.Path)
	bi, ok := backendFactories[name]
	if !ok {
		return nil, errors.Wrapf(device.ErrUnknownBackend, "%q", name)
	}
	return bi.create(config)
}

type CodecConfiguration struct {
	device.Configuration
	BackendName    string
	Password, Salt string
	Iterations     int
	Compression    string
}

// NewCodecDevice is NewWithConfig with the codec chain built from
// the configuration: encryption if there is a password, compression
// unless it is "none".
func NewCodecDevice(config CodecConfiguration) (device.Device, error) {
	mlog.Printf2("device/factory/factory", "f.NewCodecDevice %v", config.BackendName)
	beconfig := config.Configuration
	if UsesCodec(config.BackendName) {
		c, err := NewCodec(config)
		if err != nil {
			return nil, err
		}
		beconfig.Codec = c
	}
	return NewWithConfig(config.BackendName, beconfig)
}

// NewCodec builds the codec chain NewCodecDevice uses.
func NewCodec(config CodecConfiguration) (codec.Codec, error) {
	iterations := config.Iterations
	if iterations == 0 {
		iterations = DefaultIterations
	}
	salt := config.Salt
	if salt == "" {
		salt = DefaultSalt
	}
	compression := config.Compression
	if compression == "" {
		compression = DefaultCompression
	}
	ct, err := codec.ParseCompressionType(compression)
	if err != nil {
		return nil, err
	}
	var codecs []codec.Codec
	if config.Password != "" {
		mlog.Printf2("device/factory/factory", " with encryption")
		codecs = append(codecs, codec.EncryptingCodec{}.Init([]byte(config.Password), []byte(salt), iterations))
	}
	if ct != codec.CompressionType_PLAIN {
		mlog.Printf2("device/factory/factory", " with compression %v", compression)
		codecs = append(codecs, &codec.CompressingCodec{Algorithm: ct})
	}
	return codec.CodecChain{}.Init(codecs...), nil
}
