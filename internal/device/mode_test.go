package device_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/zombor/check-scanner/internal/device"
)

var _ = Describe("ParseMode", func() {
	DescribeTable("known document types",
		func(input string, expected device.Mode) {
			m, err := device.ParseMode(input)
			Expect(err).NotTo(HaveOccurred())
			Expect(m).To(Equal(expected))
		},
		Entry("upper case check", "CHECK", device.ModeCheck),
		Entry("lower case check", "check", device.ModeCheck),
		Entry("msr", "msr", device.ModeMagStripe),
		Entry("magstripe alias", "MagStripe", device.ModeMagStripe),
	)

	DescribeTable("rejected document types",
		func(input string) {
			m, err := device.ParseMode(input)
			Expect(err).To(MatchError(device.ErrInvalidMode))
			Expect(m).To(Equal(device.ModeInvalid))
		},
		Entry("invalid", "INVALID"),
		Entry("empty", ""),
		Entry("unknown", "passport"),
	)

	It("formats modes the way clients send them", func() {
		Expect(device.ModeCheck.String()).To(Equal("CHECK"))
		Expect(device.ModeMagStripe.String()).To(Equal("MSR"))
		Expect(device.ModeInvalid.String()).To(Equal("INVALID"))
	})
})

var _ = Describe("DriverError", func() {
	It("matches ErrInvalidFeedType only for the invalid feed code", func() {
		Expect(&device.DriverError{Op: "scan", Code: device.StatusInvalidFeedType}).To(MatchError(device.ErrInvalidFeedType))
		Expect(&device.DriverError{Op: "scan", Code: -3}).NotTo(MatchError(device.ErrInvalidFeedType))
	})

	It("includes the device and code in the message", func() {
		err := &device.DriverError{Op: "open", Device: "STX.STX001", Code: -3}
		Expect(err.Error()).To(Equal("open STX.STX001: driver returned -3"))
	})
})
