package voucher

import (
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/zombor/check-scanner/internal/device"
	"github.com/zombor/check-scanner/internal/device/devicetest"
	"github.com/zombor/check-scanner/internal/retry"
)

var _ = Describe("Extractor", func() {
	var (
		driver    *devicetest.Driver
		storage   *mockStorage
		clock     TimeSource
		sleeps    *sleepRecorder
		extractor *Extractor
		front     []byte
		v         Voucher
	)

	BeforeEach(func() {
		driver = devicetest.New()
		storage = newMockStorage()
		sleeps = &sleepRecorder{}
		clock = &fixedTimeSource{t: scanTime}
		front = []byte{0xFF, 0xD8, 0xAA, 0xBB}
		scriptCheckScan(driver, front, []byte{0xFF, 0xD8})
	})

	JustBeforeEach(func() {
		policy := retry.Policy{Attempts: 5, Delay: time.Second, Sleep: sleeps.sleep}
		extractor = NewExtractor(driver, storage, nil, clock, policy)
		v = extractor.Extract("DOC", device.ModeCheck, "STX.STX001", "V-9")
	})

	When("the image size is not ready at first", func() {
		BeforeEach(func() {
			driver.FieldQueues[devicetest.FieldKey("ImageInfo", "ImageSize", 1)] = []string{"0", "", "4"}
		})

		It("retries until it is", func() {
			Expect(v.FrontImage).NotTo(BeEmpty())
			Expect(v.BackImage).NotTo(BeEmpty())
			Expect(sleeps.delays).To(HaveLen(2))
		})
	})

	When("the image id is empty", func() {
		BeforeEach(func() {
			driver.Fields[devicetest.FieldKey("ImageInfo", "ImageURL", 1)] = " "
		})

		It("gives up after five attempts", func() {
			Expect(v.FrontImage).To(BeEmpty())
			Expect(v.FrontImagePath).To(BeEmpty())
			Expect(sleeps.delays).To(HaveLen(4))
			Expect(driver.CallsTo("GetImage")).To(Equal(1))
		})

		It("still captures the back image", func() {
			Expect(v.BackImage).NotTo(BeEmpty())
		})
	})

	When("the image read keeps failing", func() {
		BeforeEach(func() {
			driver.ImageFailure["img-front"] = -5
		})

		It("tries five times then returns an empty image", func() {
			Expect(v.FrontImage).To(BeEmpty())
			Expect(driver.CallsTo("GetImage")).To(Equal(6))
		})
	})

	When("the device returns fewer bytes than announced", func() {
		BeforeEach(func() {
			driver.Fields[devicetest.FieldKey("ImageInfo", "ImageSize", 1)] = "100"
		})

		It("keeps only the bytes read", func() {
			Expect(storage.files["front_20240307_140509.jpg"]).To(Equal(front))
		})
	})

	When("the audit write fails", func() {
		BeforeEach(func() {
			storage.saveErr = errors.New("read-only filesystem")
		})

		It("keeps the image but not the path", func() {
			Expect(v.FrontImage).NotTo(BeEmpty())
			Expect(v.FrontImagePath).To(BeEmpty())
			Expect(v.BackImagePath).To(BeEmpty())
		})
	})

	When("the clock moves between the two images", func() {
		var stepping *steppingTimeSource

		BeforeEach(func() {
			stepping = &steppingTimeSource{t: scanTime, step: 5 * time.Second}
			clock = stepping
		})

		It("names both audit files with one timestamp", func() {
			Expect(stepping.calls).To(Equal(1))
			Expect(v.FrontImagePath).To(Equal("front_20240307_140509.jpg"))
			Expect(v.BackImagePath).To(Equal("back_20240307_140509.jpg"))
		})
	})

	When("the audit copy cannot be read back", func() {
		BeforeEach(func() {
			storage.getErr = errors.New("permission denied")
		})

		It("keeps the image but not the path", func() {
			Expect(v.FrontImage).NotTo(BeEmpty())
			Expect(v.FrontImagePath).To(BeEmpty())
			Expect(v.BackImagePath).To(BeEmpty())
		})
	})

	When("the audit copy differs from the capture", func() {
		BeforeEach(func() {
			storage.readBack = []byte("truncated")
		})

		It("keeps the image but not the path", func() {
			Expect(v.FrontImage).NotTo(BeEmpty())
			Expect(v.FrontImagePath).To(BeEmpty())
			Expect(v.BackImagePath).To(BeEmpty())
		})
	})

	When("a MICR part is blank", func() {
		BeforeEach(func() {
			driver.Fields[devicetest.FieldKey("DocInfo", "MICRRaw", 0)] = "0001U U0002T0003U04"
			driver.Fields[devicetest.FieldKey("DocInfo", "RoutingNumber", 0)] = "011000015"
		})

		It("keeps the later fields in place and falls back for routing", func() {
			Expect(v.CheckNumber).To(Equal("0001"))
			Expect(v.RoutingNumber).To(Equal("011000015"))
			Expect(v.AccountNumber).To(Equal("0002"))
			Expect(v.BankCode).To(Equal("0003"))
		})
	})

	When("the MICR line is too short", func() {
		BeforeEach(func() {
			driver.Fields[devicetest.FieldKey("DocInfo", "MICRRaw", 0)] = "12345U678"
			driver.Fields[devicetest.FieldKey("DocInfo", "AccountNumber", 0)] = " 5551234 "
			driver.Fields[devicetest.FieldKey("DocInfo", "RoutingNumber", 0)] = "011000015"
		})

		It("falls back to the parsed account and routing fields", func() {
			Expect(v.MICR).To(Equal("12345U678"))
			Expect(v.CheckNumber).To(BeEmpty())
			Expect(v.AccountNumber).To(Equal("5551234"))
			Expect(v.RoutingNumber).To(Equal("011000015"))
		})
	})

	When("the response has no MICR line", func() {
		BeforeEach(func() {
			delete(driver.Fields, devicetest.FieldKey("DocInfo", "MICRRaw", 0))
		})

		It("decodes to empty fields", func() {
			Expect(v.MICR).To(BeEmpty())
			Expect(v.CheckNumber).To(BeEmpty())
			Expect(v.BankCode).To(BeEmpty())
		})
	})
})
