package voucher

import (
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("BoltDB", func() {
	var (
		dbPath string
		db     *BoltDB
	)

	BeforeEach(func() {
		dbPath = filepath.Join(GinkgoT().TempDir(), "test.db")
		var err error
		db, err = NewBoltDB(dbPath)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		if db != nil {
			db.Close()
		}
	})

	Describe("SaveVoucher", func() {
		var record *StoredVoucher

		BeforeEach(func() {
			record = &StoredVoucher{
				VoucherNo:  "abc123",
				Narration:  "first",
				Mode:       "CHECK",
				FrontImage: []byte{1, 2, 3},
				CreatedAt:  time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
			}
			Expect(db.SaveVoucher(record)).To(Succeed())
		})

		It("stores the voucher under its normalised number", func() {
			saved, err := db.GetVoucher("ABC123")
			Expect(err).NotTo(HaveOccurred())
			Expect(saved.Narration).To(Equal("first"))
			Expect(saved.FrontImage).To(Equal([]byte{1, 2, 3}))
			Expect(saved.CreatedAt.Equal(record.CreatedAt)).To(BeTrue())
		})

		It("replaces an existing voucher", func() {
			Expect(db.SaveVoucher(&StoredVoucher{VoucherNo: " ABC123", Narration: "second"})).To(Succeed())
			saved, err := db.GetVoucher("abc123")
			Expect(err).NotTo(HaveOccurred())
			Expect(saved.Narration).To(Equal("second"))
			Expect(saved.FrontImage).To(BeEmpty())
		})

		It("rejects a blank voucher number", func() {
			Expect(db.SaveVoucher(&StoredVoucher{VoucherNo: " "})).To(MatchError(ErrVoucherNoRequired))
		})
	})

	Describe("GetVoucher", func() {
		It("returns ErrVoucherNotFound for a missing id", func() {
			_, err := db.GetVoucher("missing")
			Expect(err).To(MatchError(ErrVoucherNotFound))
		})
	})

	Describe("opening the same file twice", func() {
		It("fails instead of waiting forever", func() {
			_, err := NewBoltDB(dbPath)
			Expect(err).To(MatchError(ContainSubstring("opening boltdb")))
		})
	})

	Describe("persistence", func() {
		It("keeps vouchers across reopen", func() {
			Expect(db.SaveVoucher(&StoredVoucher{VoucherNo: "K1", Narration: "kept"})).To(Succeed())
			Expect(db.Close()).To(Succeed())

			var err error
			db, err = NewBoltDB(dbPath)
			Expect(err).NotTo(HaveOccurred())
			saved, err := db.GetVoucher("k1")
			Expect(err).NotTo(HaveOccurred())
			Expect(saved.Narration).To(Equal("kept"))
		})
	})
})
