/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2026 Markus Stenberg
 *
 * Created:       Wed Oct  7 08:40:19 2026 mstenber
 * Last modified: Thu Oct 15 10:20:02 2026 mstenber
 * Edit time:     24 min
 *
 */

package bolt

import (
	"log"
	"os"
	"path/filepath"

	"github.com/fingon/go-tinyfs/device"
	"github.com/fingon/go-tinyfs/mlog"
	"github.com/pkg/errors"
	bbolt "go.etcd.io/bbolt"
)

var sectorBucket = []byte("sectors")

// boltStore keeps sectors (and the device metadata) in a single
// bbolt bucket of config.Path/bbolt.db.
type boltStore struct {
	db *bbolt.DB
}

var _ device.KVStore = &boltStore{}

func NewBoltDevice(config device.Configuration) (device.Device, error) {
	if err := os.MkdirAll(config.Path, 0755); err != nil {
		return nil, errors.Wrap(err, "bolt directory")
	}
	db, err := bbolt.Open(filepath.Join(config.Path, "bbolt.db"), 0600, nil)
	if err != nil {
		return nil, errors.Wrap(err, "bbolt.Open")
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(sectorBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, "bbolt bucket")
	}
	return device.NewKVDevice(&boltStore{db: db}, config)
}

func (self *boltStore) Get(key []byte) (v []byte) {
	err := self.db.View(func(tx *bbolt.Tx) error {
		// values are only valid within the transaction
		if bv := tx.Bucket(sectorBucket).Get(key); bv != nil {
			v = append([]byte(nil), bv...)
		}
		return nil
	})
	if err != nil {
		log.Panic("bbolt.View", err)
	}
	return
}

func (self *boltStore) Set(key, value []byte) {
	mlog.Printf2("device/bolt/bolt", "bbolt.Set %x (%d b)", key, len(value))
	err := self.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(sectorBucket).Put(key, value)
	})
	if err != nil {
		log.Panic("bbolt.Update", err)
	}
}

func (self *boltStore) Flush() {
	if err := self.db.Sync(); err != nil {
		log.Panic("bbolt.Sync", err)
	}
}

func (self *boltStore) Close() {
	self.db.Close()
}
