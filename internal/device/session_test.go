package device_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/zombor/check-scanner/internal/device"
	"github.com/zombor/check-scanner/internal/device/devicetest"
)

var _ = Describe("Session", func() {
	var (
		driver  *devicetest.Driver
		session *device.Session
	)

	BeforeEach(func() {
		driver = devicetest.New()
		session = device.NewSession(driver)
	})

	It("starts closed in check mode", func() {
		name, open := session.Current()
		Expect(name).To(BeEmpty())
		Expect(open).To(BeFalse())
		Expect(session.Mode()).To(Equal(device.ModeCheck))
	})

	Describe("SetMode", func() {
		It("accepts magstripe", func() {
			Expect(session.SetMode(device.ModeMagStripe)).To(Succeed())
			Expect(session.Mode()).To(Equal(device.ModeMagStripe))
		})

		It("rejects invalid and keeps the previous mode", func() {
			Expect(session.SetMode(device.ModeInvalid)).To(MatchError(device.ErrInvalidMode))
			Expect(session.Mode()).To(Equal(device.ModeCheck))
		})
	})

	Describe("EnsureOpen", func() {
		var err error

		When("the first open succeeds", func() {
			BeforeEach(func() {
				err = session.EnsureOpen("A")
			})

			It("opens the device", func() {
				Expect(err).NotTo(HaveOccurred())
				Expect(driver.Calls()).To(Equal([]string{"OpenDevice A"}))
				name, open := session.Current()
				Expect(name).To(Equal("A"))
				Expect(open).To(BeTrue())
			})

			It("does nothing when asked again for the same device", func() {
				Expect(session.EnsureOpen("A")).To(Succeed())
				Expect(driver.CallsTo("OpenDevice")).To(Equal(1))
			})
		})

		When("the first open fails and the retry succeeds", func() {
			BeforeEach(func() {
				driver.OpenStatuses = []device.Status{-5, device.StatusOK}
				err = session.EnsureOpen("A")
			})

			It("closes before retrying once", func() {
				Expect(err).NotTo(HaveOccurred())
				Expect(driver.Calls()).To(Equal([]string{"OpenDevice A", "CloseDevice A", "OpenDevice A"}))
			})
		})

		When("both opens fail", func() {
			BeforeEach(func() {
				driver.OpenStatuses = []device.Status{-5, -6}
				err = session.EnsureOpen("A")
			})

			It("returns the second driver code", func() {
				var derr *device.DriverError
				Expect(err).To(BeAssignableToTypeOf(derr))
				Expect(err.(*device.DriverError).Code).To(Equal(device.Status(-6)))
			})

			It("stays closed", func() {
				_, open := session.Current()
				Expect(open).To(BeFalse())
			})

			It("only retries once", func() {
				Expect(driver.CallsTo("OpenDevice")).To(Equal(2))
			})
		})

		When("switching to another device", func() {
			BeforeEach(func() {
				Expect(session.EnsureOpen("A")).To(Succeed())
				err = session.EnsureOpen("B")
			})

			It("closes the old device before opening the new one", func() {
				Expect(err).NotTo(HaveOccurred())
				Expect(driver.Calls()).To(Equal([]string{"OpenDevice A", "CloseDevice A", "OpenDevice B"}))
				name, open := session.Current()
				Expect(name).To(Equal("B"))
				Expect(open).To(BeTrue())
			})
		})
	})

	Describe("Close", func() {
		It("marks the session closed even when the driver fails", func() {
			Expect(session.EnsureOpen("A")).To(Succeed())
			driver.CloseStatuses = []device.Status{-9}
			session.Close()
			_, open := session.Current()
			Expect(open).To(BeFalse())
		})

		It("does not call the driver when already closed", func() {
			session.Close()
			Expect(driver.Calls()).To(BeEmpty())
		})
	})

	Describe("Reset", func() {
		When("the device is open", func() {
			BeforeEach(func() {
				Expect(session.EnsureOpen("A")).To(Succeed())
			})

			It("closes then reopens the same device", func() {
				Expect(session.Reset()).To(Succeed())
				Expect(driver.Calls()).To(Equal([]string{"OpenDevice A", "CloseDevice A", "OpenDevice A"}))
			})

			It("ignores a failing close", func() {
				driver.CloseStatuses = []device.Status{-9}
				Expect(session.Reset()).To(Succeed())
				_, open := session.Current()
				Expect(open).To(BeTrue())
			})

			It("leaves the session closed when the reopen fails", func() {
				driver.OpenStatuses = []device.Status{-4}
				err := session.Reset()
				Expect(err).To(HaveOccurred())
				Expect(err.(*device.DriverError).Code).To(Equal(device.Status(-4)))
				_, open := session.Current()
				Expect(open).To(BeFalse())
			})
		})

		When("the device is closed", func() {
			It("does nothing", func() {
				Expect(session.Reset()).To(Succeed())
				Expect(driver.Calls()).To(BeEmpty())
			})
		})
	})
})
