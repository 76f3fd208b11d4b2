package report

import (
	"fmt"
	"math"
	"strings"

	"pairlab/internal/strategy/pairs"
)

// FormatInt formats an integer with comma separators.
func FormatInt(n int) string {
	if n < 0 {
		return "-" + FormatInt(-n)
	}
	s := fmt.Sprintf("%d", n)
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	start := len(s) % 3
	if start > 0 {
		b.WriteString(s[:start])
	}
	for i := start; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

// FormatMoney formats a dollar amount as "$12,345.67".
func FormatMoney(v float64) string {
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	cents := int(math.Round(v * 100))
	return fmt.Sprintf("%s$%s.%02d", sign, FormatInt(cents/100), cents%100)
}

// FormatPct formats a fraction as a signed percentage, "+12.3%".
// Drops the decimal for magnitudes of 100% or more to keep width compact.
func FormatPct(f float64) string {
	pct := f * 100
	if math.Abs(pct) >= 100 {
		return fmt.Sprintf("%+.0f%%", pct)
	}
	return fmt.Sprintf("%+.1f%%", pct)
}

// FormatDrawdown formats a drawdown fraction as an unsigned percentage.
func FormatDrawdown(d float64) string {
	return fmt.Sprintf("%.1f%%", math.Abs(d)*100)
}

// FormatMetric formats a possibly undefined statistic, "n/a" when undefined.
func FormatMetric(m pairs.Metric, format func(float64) string) string {
	if !m.Defined {
		return "n/a"
	}
	return format(m.Value)
}

// FormatOptional formats a nullable stored statistic.
func FormatOptional(v *float64, format func(float64) string) string {
	if v == nil {
		return "n/a"
	}
	return format(*v)
}

// FormatRatio formats a ratio with two decimals.
func FormatRatio(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

// FormatPValue formats a p-value, switching to scientific notation for very
// small values.
func FormatPValue(p float64) string {
	if p < 1e-4 {
		return fmt.Sprintf("%.1e", p)
	}
	return fmt.Sprintf("%.4f", p)
}

// FormatCount formats a count, using a K suffix for large values.
func FormatCount(n int) string {
	if n >= 100_000 {
		return fmt.Sprintf("%.0fK", float64(n)/1e3)
	}
	return FormatInt(n)
}
