package provider_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/alfredmayaki/chatrelay/pkg/llm/provider"
)

var _ = Describe("New", func() {
	It("builds an adapter for every supported provider type", func() {
		for _, providerType := range provider.SupportedProviders() {
			adapter, err := provider.New(providerType, provider.Settings{
				APIKey:    "key",
				AccountID: "acct",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(adapter.Name()).To(Equal(providerType))
		}
	})

	It("rejects an unknown provider type and names the alternatives", func() {
		_, err := provider.New("bedrock", provider.Settings{})
		Expect(err).To(MatchError(ContainSubstring(`unknown provider type: "bedrock"`)))
		Expect(err).To(MatchError(ContainSubstring("anthropic")))
	})
})
