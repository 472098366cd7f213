package chat_test

import (
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/alfredmayaki/chatrelay/pkg/chat"
)

var _ = Describe("History", func() {
	It("retains turns in insertion order", func() {
		h := chat.NewHistory(6)
		h.Push(chat.RoleUser, "hello")
		h.Push(chat.RoleBot, "hi there")

		turns := h.Snapshot()
		Expect(turns).To(HaveLen(2))
		Expect(turns[0]).To(Equal(chat.Turn{Role: chat.RoleUser, Text: "hello"}))
		Expect(turns[1]).To(Equal(chat.Turn{Role: chat.RoleBot, Text: "hi there"}))
	})

	It("never exceeds 2×maxTurns entries", func() {
		h := chat.NewHistory(6)
		for i := range 50 {
			h.Push(chat.RoleUser, fmt.Sprintf("q%d", i))
			h.Push(chat.RoleBot, fmt.Sprintf("a%d", i))
		}
		Expect(h.Len()).To(Equal(12))
	})

	It("evicts oldest entries first", func() {
		h := chat.NewHistory(2)
		for i := range 5 {
			h.Push(chat.RoleUser, fmt.Sprintf("q%d", i))
			h.Push(chat.RoleBot, fmt.Sprintf("a%d", i))
		}

		turns := h.Snapshot()
		Expect(turns).To(HaveLen(4))
		Expect(turns[0].Text).To(Equal("q3"))
		Expect(turns[1].Text).To(Equal("a3"))
		Expect(turns[2].Text).To(Equal("q4"))
		Expect(turns[3].Text).To(Equal("a4"))
	})

	It("falls back to the default cap for non-positive maxTurns", func() {
		h := chat.NewHistory(0)
		for i := range 20 {
			h.Push(chat.RoleUser, fmt.Sprintf("%d", i))
		}
		Expect(h.Len()).To(Equal(chat.DefaultMaxHistoryTurns * 2))
	})

	It("returns independent snapshots", func() {
		h := chat.NewHistory(6)
		h.Push(chat.RoleUser, "original")

		snap := h.Snapshot()
		snap[0].Text = "mutated"

		Expect(h.Snapshot()[0].Text).To(Equal("original"))
	})
})

var _ = Describe("Normalize", func() {
	It("collapses whitespace runs to a single space", func() {
		Expect(chat.Normalize("  a   b  ")).To(Equal("a b"))
	})

	It("handles tabs and newlines", func() {
		Expect(chat.Normalize("a\t\nb\r\n c")).To(Equal("a b c"))
	})

	It("reduces pure whitespace to empty", func() {
		Expect(chat.Normalize(" \t\n ")).To(BeEmpty())
	})

	It("is idempotent", func() {
		inputs := []string{"", "  a   b  ", "x", " mixed\ttabs and  spaces "}
		for _, in := range inputs {
			once := chat.Normalize(in)
			Expect(chat.Normalize(once)).To(Equal(once))
		}
	})
})
