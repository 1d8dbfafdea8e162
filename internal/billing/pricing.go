package billing

// Totals aggregates each grid column plus the net monthly total.
type Totals struct {
	MRC             float64 `json:"mrc"`
	Discount        float64 `json:"discount"`
	Features        float64 `json:"features"`
	EIP             float64 `json:"eip"`
	DevicePromo     float64 `json:"devicePromo"`
	AutopayDiscount float64 `json:"autopayDiscount"`
	Total           float64 `json:"total"`
}

// LineTotal is the net monthly charge of one line. It may be negative.
func LineTotal(l Line) float64 {
	return l.MRC.Effective() - l.Discount + l.Features + l.EIP - l.DevicePromo - autopayCredit(l)
}

// GridTotals sums every column across lines. An empty grid totals zero.
func GridTotals(lines []Line) Totals {
	var t Totals
	for _, l := range lines {
		t.MRC += l.MRC.Effective()
		t.Discount += l.Discount
		t.Features += l.Features
		t.EIP += l.EIP
		t.DevicePromo += l.DevicePromo
		t.AutopayDiscount += autopayCredit(l)
		t.Total += LineTotal(l)
	}
	return t
}

// BillChange is the monthly delta shown to the trainee: proposed minus baseline.
func BillChange(proposed, baseline []Line) float64 {
	return GridTotals(proposed).Total - GridTotals(baseline).Total
}

func autopayCredit(l Line) float64 {
	if l.Autopay {
		return AutopayDiscount
	}
	return 0
}
