package rail_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	"github.com/ashwinrao/railswitch/internal/payment"
	"github.com/ashwinrao/railswitch/internal/rail"
)

func orderFor(amount int64, currency string, paymentType payment.Type, urgency payment.Urgency) *payment.Order {
	return payment.NewOrder(payment.Instruction{
		Amount:        decimal.NewFromInt(amount),
		Currency:      currency,
		FromAccountID: "ACC-1",
		ToAccountID:   "ACC-2",
		PaymentType:   paymentType,
		Urgency:       urgency,
	}, 3)
}

var _ = Describe("Selector", func() {
	selector := rail.NewSelector()

	DescribeTable("routing by payment attributes",
		func(amount int64, currency string, paymentType payment.Type, urgency payment.Urgency, expected string) {
			order := orderFor(amount, currency, paymentType, urgency)
			Expect(selector.Select(order)).To(Equal(expected))
		},
		Entry("international goes to the wire rail", int64(15000), "USD", payment.TypeInternational, payment.UrgencyNormal, rail.Wire),
		Entry("foreign currency goes to the wire rail", int64(500), "EUR", payment.TypeDomestic, payment.UrgencyNormal, rail.Wire),
		Entry("high value goes to gross settlement", int64(500000), "INR", payment.TypeDomestic, payment.UrgencyNormal, rail.RTGS),
		Entry("exactly the high-value threshold goes to gross settlement", int64(200000), "INR", payment.TypeDomestic, payment.UrgencyNormal, rail.RTGS),
		Entry("small value goes to the instant rail", int64(500), "INR", payment.TypeDomestic, payment.UrgencyNormal, rail.UPI),
		Entry("instant urgency goes to the instant rail", int64(50000), "INR", payment.TypeDomestic, payment.UrgencyInstant, rail.UPI),
		Entry("mid value goes to the batch rail", int64(50000), "INR", payment.TypeDomestic, payment.UrgencyNormal, rail.NEFT),
	)

	It("is deterministic for identical inputs", func() {
		order := orderFor(500, "INR", payment.TypeDomestic, payment.UrgencyInstant)
		first := selector.Select(order)
		for i := 0; i < 100; i++ {
			Expect(selector.Select(order)).To(Equal(first))
		}
	})

	It("routes on the converted amount when one is set", func() {
		order := orderFor(1000, "INR", payment.TypeDomestic, payment.UrgencyNormal)
		converted := decimal.NewFromInt(250000)
		order.ConvertedAmount = &converted

		Expect(selector.Select(order)).To(Equal(rail.RTGS))
	})
})
