/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2026 Markus Stenberg
 *
 * Created:       Wed Oct  7 09:05:44 2026 mstenber
 * Last modified: Thu Oct 15 10:22:48 2026 mstenber
 * Edit time:     21 min
 *
 */

package badger

import (
	"log"
	"os"

	"github.com/dgraph-io/badger"
	"github.com/fingon/go-tinyfs/device"
	"github.com/fingon/go-tinyfs/mlog"
	"github.com/pkg/errors"
)

// badgerStore keeps sectors in a badger database in config.Path.
type badgerStore struct {
	db *badger.DB
}

var _ device.KVStore = &badgerStore{}

func NewBadgerDevice(config device.Configuration) (device.Device, error) {
	if err := os.MkdirAll(config.Path, 0755); err != nil {
		return nil, errors.Wrap(err, "badger directory")
	}
	opts := badger.DefaultOptions
	opts.Dir = config.Path
	opts.ValueDir = config.Path
	opts.SyncWrites = true
	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Wrap(err, "badger.Open")
	}
	return device.NewKVDevice(&badgerStore{db: db}, config)
}

func (self *badgerStore) Get(key []byte) (v []byte) {
	err := self.db.View(func(txn *badger.Txn) error {
		i, err := txn.Get(key)
		if err != nil {
			return err
		}
		v, err = i.ValueCopy(nil)
		return err
	})
	if err == badger.ErrKeyNotFound {
		return nil
	}
	if err != nil {
		log.Panic("badger get:", err)
	}
	return
}

func (self *badgerStore) Set(key, value []byte) {
	mlog.Printf2("device/badger/badger", "bad.Set %x (%d b)", key, len(value))
	err := self.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, value)
	})
	if err != nil {
		log.Panic("badger set:", err)
	}
}

func (self *badgerStore) Flush() {
}

func (self *badgerStore) Close() {
	self.db.Close()
}
