package voucher

import (
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

const bucketName = "vouchers"

// DB stores saved vouchers
type DB interface {
	// SaveVoucher inserts or replaces the voucher stored under its normalised number
	SaveVoucher(v *StoredVoucher) error

	// GetVoucher returns ErrVoucherNotFound when nothing is stored under id
	GetVoucher(id string) (*StoredVoucher, error)

	Close() error
}

// BoltDB implements DB using bbolt
type BoltDB struct {
	db *bbolt.DB
}

// NewBoltDB opens the database at path. The 1s lock timeout makes a second
// process on the same file fail instead of waiting.
func NewBoltDB(path string) (*BoltDB, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening boltdb: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	return &BoltDB{db: db}, nil
}

func (b *BoltDB) SaveVoucher(v *StoredVoucher) error {
	key := NormalizeID(v.VoucherNo)
	if key == "" {
		return ErrVoucherNoRequired
	}
	return b.db.Update(func(tx *bbolt.Tx) error {
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("marshaling voucher: %w", err)
		}
		return tx.Bucket([]byte(bucketName)).Put([]byte(key), data)
	})
}

func (b *BoltDB) GetVoucher(id string) (*StoredVoucher, error) {
	var v *StoredVoucher
	err := b.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(bucketName)).Get([]byte(NormalizeID(id)))
		if data == nil {
			return fmt.Errorf("%w: %s", ErrVoucherNotFound, id)
		}
		return json.Unmarshal(data, &v)
	})
	if err != nil {
		return nil, err
	}
	return v, nil
}

func (b *BoltDB) Close() error {
	return b.db.Close()
}
