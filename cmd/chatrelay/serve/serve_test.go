package servecmder_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	servecmder "github.com/alfredmayaki/chatrelay/cmd/chatrelay/serve"
)

var _ = Describe("NewServeCmd", func() {
	It("creates a command with the correct use string", func() {
		cmd := servecmder.NewServeCmd()
		Expect(cmd.Use).To(Equal("serve"))
	})

	It("has --listen flag with the default relay address", func() {
		cmd := servecmder.NewServeCmd()
		flag := cmd.Flags().Lookup("listen")
		Expect(flag).NotTo(BeNil())
		Expect(flag.Shorthand).To(Equal("l"))
		Expect(flag.DefValue).To(Equal(":8787"))
	})

	It("has --provider flag defaulting to anthropic", func() {
		cmd := servecmder.NewServeCmd()
		flag := cmd.Flags().Lookup("provider")
		Expect(flag).NotTo(BeNil())
		Expect(flag.Shorthand).To(Equal("p"))
		Expect(flag.DefValue).To(Equal("anthropic"))
	})

	It("has --events flag defaulting to off", func() {
		cmd := servecmder.NewServeCmd()
		flag := cmd.Flags().Lookup("events")
		Expect(flag).NotTo(BeNil())
		Expect(flag.DefValue).To(Equal("false"))
	})

	It("has --events-brokers flag with the local broker default", func() {
		cmd := servecmder.NewServeCmd()
		flag := cmd.Flags().Lookup("events-brokers")
		Expect(flag).NotTo(BeNil())
		Expect(flag.DefValue).To(Equal("localhost:9092"))
	})

	It("has an --auth flag defaulting to off", func() {
		cmd := servecmder.NewServeCmd()
		flag := cmd.Flags().Lookup("auth")
		Expect(flag).NotTo(BeNil())
		Expect(flag.DefValue).To(Equal("false"))
	})

	It("has --auth-listen flag with the auth relay default", func() {
		cmd := servecmder.NewServeCmd()
		flag := cmd.Flags().Lookup("auth-listen")
		Expect(flag).NotTo(BeNil())
		Expect(flag.DefValue).To(Equal(":8788"))
	})
})
