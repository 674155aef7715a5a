package book

// TakerFeeVenueA returns the venue A taker fee in dollars for buying shares
// contracts at decimal price p:
//
//	fee = n · p · 0.25 · (p·(1−p))²
//
// The curve peaks near mid prices (≈ 0.0078·n dollars at p = 0.5) and
// vanishes at the boundaries, matching the venue's published schedule.
func TakerFeeVenueA(p float64, shares float64) float64 {
	if shares <= 0 || p <= 0 || p >= 1 {
		return 0
	}

	base := p * (1 - p)

	return shares * p * 0.25 * base * base
}

// SameMarketPairFee returns the combined venue A taker fee for buying both
// sides of one binary market at their walk VWAPs.
func SameMarketPairFee(yesVWAP, noVWAP float64, shares float64) float64 {
	return TakerFeeVenueA(yesVWAP, shares) + TakerFeeVenueA(noVWAP, shares)
}

// PairArb computes gross and net profit in dollars for buying complementary
// sides at per-share costs cA and cB with total fee totalFee:
//
//	gross = (1 − (cA+cB)) · shares
//	net   = gross − totalFee
//
// The combined position pays $1 per contract at settlement regardless of
// outcome, so profitability is purely a function of entry cost and fees.
func PairArb(cA, cB float64, shares float64, totalFee float64) (gross, net float64) {
	gross = (1.0 - (cA + cB)) * shares
	net = gross - totalFee

	return gross, net
}
