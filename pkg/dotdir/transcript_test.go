package dotdir_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/alfredmayaki/chatrelay/pkg/dotdir"
)

var _ = Describe("dotdir.Manager transcript", func() {
	var tmpDir string
	var m *dotdir.Manager

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "dotdir-test-*")
		Expect(err).NotTo(HaveOccurred())
		m = dotdir.NewManager()
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	Describe("LoadTranscript", func() {
		It("returns nil when no transcript file exists", func() {
			t, err := m.LoadTranscript(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(t).To(BeNil())
		})

		It("loads a valid transcript", func() {
			// Write a transcript file manually
			data := `{"max_turns":6,"turns":[{"role":"user","text":"hello"},{"role":"bot","text":"hi there"}]}`
			err := os.WriteFile(filepath.Join(tmpDir, "transcript.json"), []byte(data), 0o600)
			Expect(err).NotTo(HaveOccurred())

			t, err := m.LoadTranscript(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(t).NotTo(BeNil())
			Expect(t.MaxTurns).To(Equal(6))
			Expect(t.Turns).To(HaveLen(2))
			Expect(t.Turns[0].Role).To(Equal("user"))
			Expect(t.Turns[0].Text).To(Equal("hello"))
			Expect(t.Turns[1].Role).To(Equal("bot"))
			Expect(t.Turns[1].Text).To(Equal("hi there"))
		})

		It("returns error for invalid JSON", func() {
			err := os.WriteFile(filepath.Join(tmpDir, "transcript.json"), []byte("not json"), 0o600)
			Expect(err).NotTo(HaveOccurred())

			t, err := m.LoadTranscript(tmpDir)
			Expect(err).To(HaveOccurred())
			Expect(t).To(BeNil())
		})
	})

	Describe("SaveTranscript", func() {
		It("persists the transcript to disk", func() {
			t := &dotdir.Transcript{
				MaxTurns: 6,
				Turns: []dotdir.TranscriptTurn{
					{Role: "user", Text: "what is Go?"},
					{Role: "bot", Text: "Go is a programming language."},
				},
			}

			err := m.SaveTranscript(t, tmpDir)
			Expect(err).NotTo(HaveOccurred())

			// Verify the file exists
			_, err = os.Stat(filepath.Join(tmpDir, "transcript.json"))
			Expect(err).NotTo(HaveOccurred())

			// Load it back and verify
			loaded, err := m.LoadTranscript(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded.MaxTurns).To(Equal(6))
			Expect(loaded.Turns).To(HaveLen(2))
		})

		It("returns error for nil transcript", func() {
			err := m.SaveTranscript(nil, tmpDir)
			Expect(err).To(HaveOccurred())
		})

		It("overwrites an existing transcript", func() {
			first := &dotdir.Transcript{
				MaxTurns: 6,
				Turns:    []dotdir.TranscriptTurn{{Role: "user", Text: "first message"}},
			}
			second := &dotdir.Transcript{
				MaxTurns: 6,
				Turns:    []dotdir.TranscriptTurn{{Role: "user", Text: "second message"}},
			}

			err := m.SaveTranscript(first, tmpDir)
			Expect(err).NotTo(HaveOccurred())

			err = m.SaveTranscript(second, tmpDir)
			Expect(err).NotTo(HaveOccurred())

			loaded, err := m.LoadTranscript(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded.Turns).To(HaveLen(1))
			Expect(loaded.Turns[0].Text).To(Equal("second message"))
		})

		It("trims turns beyond twice the cap, oldest first", func() {
			t := &dotdir.Transcript{MaxTurns: 2}
			for i := range 10 {
				role := "user"
				if i%2 == 1 {
					role = "bot"
				}
				t.Turns = append(t.Turns, dotdir.TranscriptTurn{Role: role, Text: string(rune('a' + i))})
			}

			err := m.SaveTranscript(t, tmpDir)
			Expect(err).NotTo(HaveOccurred())

			loaded, err := m.LoadTranscript(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded.Turns).To(HaveLen(4))
			Expect(loaded.Turns[0].Text).To(Equal("g"))
			Expect(loaded.Turns[3].Text).To(Equal("j"))
		})
	})

	Describe("ClearTranscript", func() {
		It("removes the transcript file", func() {
			t := &dotdir.Transcript{MaxTurns: 6, Turns: []dotdir.TranscriptTurn{}}
			err := m.SaveTranscript(t, tmpDir)
			Expect(err).NotTo(HaveOccurred())

			err = m.ClearTranscript(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			// Verify it's gone
			loaded, err := m.LoadTranscript(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded).To(BeNil())
		})

		It("succeeds when no transcript file exists", func() {
			err := m.ClearTranscript(tmpDir)
			Expect(err).NotTo(HaveOccurred())
		})
	})

	Describe("round-trip", func() {
		It("saves and loads the transcript correctly", func() {
			t := &dotdir.Transcript{
				MaxTurns: 6,
				Turns: []dotdir.TranscriptTurn{
					{Role: "user", Text: "Hello!"},
					{Role: "bot", Text: "Hi! How can I help?"},
					{Role: "user", Text: "Tell me about Go."},
					{Role: "bot", Text: "Go is a statically typed, compiled language."},
				},
			}

			err := m.SaveTranscript(t, tmpDir)
			Expect(err).NotTo(HaveOccurred())

			loaded, err := m.LoadTranscript(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded).To(Equal(t))
		})
	})
})
