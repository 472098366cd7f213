package chatcmder_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	chatcmder "github.com/alfredmayaki/chatrelay/cmd/chatrelay/chat"
)

var _ = Describe("NewChatCmd", func() {
	It("creates a command with the correct use string", func() {
		cmd := chatcmder.NewChatCmd()
		Expect(cmd.Use).To(Equal("chat"))
	})

	It("has --relay-target flag with the default relay address", func() {
		cmd := chatcmder.NewChatCmd()
		flag := cmd.Flags().Lookup("relay-target")
		Expect(flag).NotTo(BeNil())
		Expect(flag.Shorthand).To(Equal("t"))
		Expect(flag.DefValue).To(Equal("http://localhost:8787"))
	})

	It("has --max-history-turns flag with the ring default", func() {
		cmd := chatcmder.NewChatCmd()
		flag := cmd.Flags().Lookup("max-history-turns")
		Expect(flag).NotTo(BeNil())
		Expect(flag.DefValue).To(Equal("6"))
	})

	It("has --max-message-chars flag with the length default", func() {
		cmd := chatcmder.NewChatCmd()
		flag := cmd.Flags().Lookup("max-message-chars")
		Expect(flag).NotTo(BeNil())
		Expect(flag.DefValue).To(Equal("1000"))
	})

	It("has --request-timeout-ms flag with the timeout default", func() {
		cmd := chatcmder.NewChatCmd()
		flag := cmd.Flags().Lookup("request-timeout-ms")
		Expect(flag).NotTo(BeNil())
		Expect(flag.DefValue).To(Equal("30000"))
	})

	It("has a --reset flag defaulting to off", func() {
		cmd := chatcmder.NewChatCmd()
		flag := cmd.Flags().Lookup("reset")
		Expect(flag).NotTo(BeNil())
		Expect(flag.DefValue).To(Equal("false"))
	})
})
