package intent_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/intents/pkg/intent"
)

var _ = Describe("NormalizeText", func() {
	DescribeTable("folds text to its unaccented form",
		func(in, want string) {
			Expect(intent.NormalizeText(in)).To(Equal(want))
		},
		Entry("spanish", "¿Dónde está mi señal?", "¿Donde esta mi senal?"),
		Entry("croatian", "Kako mogu platiti račun?", "Kako mogu platiti racun?"),
		Entry("german sharp s", "Straße", "Strasse"),
		Entry("polish l", "Łódź", "Lodz"),
		Entry("ascii is unchanged", "reset my password", "reset my password"),
		Entry("non-latin scripts are kept", "как дела", "как дела"),
	)
})
