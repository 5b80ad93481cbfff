/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2026 Markus Stenberg
 *
 * Created:       Thu Oct 15 10:40:19 2026 mstenber
 * Last modified: Fri Oct 16 22:25:03 2026 mstenber
 * Edit time:     9 min
 *
 */

package config

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/stvp/assert"
)

// not parallel; these touch the environment

func TestDefault(t *testing.T) {
	c, err := Load("")
	assert.Nil(t, err)
	assert.Equal(t, *c, Default())
	c, err = Load("/nonexistent/tinyfs.yaml")
	assert.Nil(t, err)
	assert.Equal(t, c.Backend, "file")
}

func TestLoad(t *testing.T) {
	dir, err := ioutil.TempDir("", "config")
	assert.Nil(t, err)
	defer os.RemoveAll(dir)
	filename := filepath.Join(dir, "tinyfs.yaml")
	data := []byte("backend: bolt\npath: /tmp/x\ncompression: lz4\ninodes: 256\n")
	assert.Nil(t, ioutil.WriteFile(filename, data, 0600))

	os.Setenv("TINYFS_PASSWORD", "secret")
	os.Setenv("TINYFS_INODES", "512")
	defer os.Unsetenv("TINYFS_PASSWORD")
	defer os.Unsetenv("TINYFS_INODES")

	c, err := Load(filename)
	assert.Nil(t, err)
	assert.Equal(t, c.Backend, "bolt")
	assert.Equal(t, c.Path, "/tmp/x")
	assert.Equal(t, c.Compression, "lz4")
	assert.Equal(t, c.Password, "secret")
	assert.Equal(t, c.Inodes, uint32(512))
	assert.Equal(t, c.Partition, "sdb1")

	cc := c.CodecConfiguration()
	assert.Equal(t, cc.BackendName, "bolt")
	assert.Equal(t, cc.Password, "secret")
}

func TestValidate(t *testing.T) {
	c := Default()
	c.Backend = "floppy"
	assert.NotNil(t, c.Validate())
	c = Default()
	c.Compression = "zip"
	assert.NotNil(t, c.Validate())
	c = Default()
	c.Path = ""
	assert.NotNil(t, c.Validate())
}
