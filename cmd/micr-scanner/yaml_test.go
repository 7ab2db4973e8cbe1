package main

import (
	"errors"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("parseYAML", func() {
	var (
		input string
		got   [][2]string
		setFn func(name, value string) error
		err   error
	)

	BeforeEach(func() {
		got = nil
		setFn = func(name, value string) error {
			got = append(got, [2]string{name, value})
			return nil
		}
	})

	JustBeforeEach(func() {
		err = parseYAML(strings.NewReader(input), setFn)
	})

	When("the file has flat keys", func() {
		BeforeEach(func() {
			input = "port: 6000\ndriver: simulator\nscan-delay: 500ms\n"
		})

		It("sets each flag", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(Equal([][2]string{
				{"driver", "simulator"},
				{"port", "6000"},
				{"scan-delay", "500ms"},
			}))
		})
	})

	When("the file has nested sections", func() {
		BeforeEach(func() {
			input = "gemini:\n  key: abc\n  model: gemini-2.5-flash\nauth:\n  user: clerk\n"
		})

		It("joins keys with dashes", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(Equal([][2]string{
				{"auth-user", "clerk"},
				{"gemini-key", "abc"},
				{"gemini-model", "gemini-2.5-flash"},
			}))
		})
	})

	When("a value is a list", func() {
		BeforeEach(func() {
			input = "cors-origin:\n  - http://a\n  - http://b\n"
		})

		It("sets the flag once per element", func() {
			Expect(got).To(Equal([][2]string{
				{"cors-origin", "http://a"},
				{"cors-origin", "http://b"},
			}))
		})
	})

	When("a value is a bool or empty", func() {
		BeforeEach(func() {
			input = "version: false\nauth-pass:\n"
		})

		It("stringifies bools and skips nulls", func() {
			Expect(got).To(Equal([][2]string{{"version", "false"}}))
		})
	})

	When("the file is empty", func() {
		BeforeEach(func() {
			input = ""
		})

		It("sets nothing", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(BeEmpty())
		})
	})

	When("the file is not YAML", func() {
		BeforeEach(func() {
			input = "port: [unclosed"
		})

		It("returns an error", func() {
			Expect(err).To(MatchError(ContainSubstring("decoding yaml config")))
		})
	})

	When("a flag is unknown", func() {
		BeforeEach(func() {
			input = "bogus: 1\n"
			setFn = func(name, value string) error {
				return errors.New("flag not defined")
			}
		})

		It("names the flag in the error", func() {
			Expect(err).To(MatchError(ContainSubstring("setting bogus")))
		})
	})
})
