package device_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/zombor/check-scanner/internal/device"
	"github.com/zombor/check-scanner/internal/device/devicetest"
)

var _ = Describe("BuildOptions", func() {
	var (
		driver *devicetest.Driver
		mode   device.Mode
		blob   string
		err    error
	)

	BeforeEach(func() {
		driver = devicetest.New()
	})

	JustBeforeEach(func() {
		blob, err = device.BuildOptions(driver, mode)
	})

	When("building magstripe options", func() {
		BeforeEach(func() {
			mode = device.ModeMagStripe
		})

		It("sets exactly the magstripe keys", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(devicetest.ParseOptions(blob)).To(Equal(map[string]string{
				"ProcessOptions/DocFeed":        "MSR",
				"ProcessOptions/DocFeedTimeout": "15000",
				"ProcessOptions/MSRFmt":         "ISO",
			}))
		})
	})

	When("building check options", func() {
		BeforeEach(func() {
			mode = device.ModeCheck
		})

		It("sets exactly the check keys", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(devicetest.ParseOptions(blob)).To(Equal(map[string]string{
				"Application/Transfer":          "HTTP",
				"Application/DocUnits":          "ENGLISH",
				"ProcessOptions/DocFeedTimeout": "10000",
				"ProcessOptions/DocFeed":        "MANUAL",
				"ImageOptions/Number":           "2",
				"ImageOptions/ImageSide[1]":     "FRONT",
				"ImageOptions/ImageSide[2]":     "BACK",
				"ImageOptions/ImageColor[1]":    "COL24",
				"ImageOptions/ImageColor[2]":    "COL24",
				"ImageOptions/Resolution[1]":    "100x100",
				"ImageOptions/Resolution[2]":    "100x100",
				"ImageOptions/Compression[1]":   "JPEG",
				"ImageOptions/Compression[2]":   "JPEG",
				"ImageOptions/FileType[1]":      "JPG",
				"ImageOptions/FileType[2]":      "JPG",
				"ProcessOptions/ReadMICR":       "E13B",
				"ProcessOptions/MICRFmt":        "6200",
			}))
		})

		It("writes indexed image fields with the indexed call", func() {
			Expect(driver.CallsTo("SetIndexValue")).To(Equal(10))
			Expect(driver.CallsTo("SetValue")).To(Equal(7))
		})

		When("one write fails", func() {
			BeforeEach(func() {
				driver.SetFailures["ImageOptions/Resolution[2]"] = -12
			})

			It("returns that code", func() {
				Expect(err).To(HaveOccurred())
				Expect(err.(*device.DriverError).Code).To(Equal(device.Status(-12)))
			})

			It("returns no blob", func() {
				Expect(blob).To(BeEmpty())
			})

			It("stops writing after the failure", func() {
				calls := driver.Calls()
				Expect(calls[len(calls)-1]).To(Equal("SetIndexValue ImageOptions/Resolution[2]"))
			})
		})
	})

	When("the mode is invalid", func() {
		BeforeEach(func() {
			mode = device.ModeInvalid
		})

		It("fails with invalid feed type", func() {
			Expect(err).To(MatchError(device.ErrInvalidFeedType))
		})

		It("produces no blob and makes no driver calls", func() {
			Expect(blob).To(BeEmpty())
			Expect(driver.Calls()).To(BeEmpty())
		})
	})
})
