// Package utils provides common utility functions for Indeks AI.
package utils

import (
	"fmt"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Index levels are quoted the way Yahoo Finance and most Indonesian
// brokerage apps display ^JKSE: comma thousands, dot decimals.
var printer = message.NewPrinter(language.English)

// FormatPoints formats an index level with thousands grouping, e.g. "7,123.45".
func FormatPoints(v float64) string {
	return printer.Sprintf("%.2f", v)
}

// FormatSignedPoints formats a change with an explicit sign and grouping, e.g. "+1,234.50".
func FormatSignedPoints(v float64) string {
	return printer.Sprintf("%+.2f", v)
}

// FormatPct formats a percentage with sign, e.g. "+2.45%".
func FormatPct(pct float64) string {
	return fmt.Sprintf("%+.2f%%", pct)
}

// FormatVolume formats a share volume with grouping and no decimals, e.g. "18,234,567,000".
func FormatVolume(volume int64) string {
	return printer.Sprintf("%d", volume)
}

// FormatChange formats a bar change as "+12.34 (+0.17%)", or "-" when the
// change is exactly zero (the first bar of a series).
func FormatChange(change, pct float64) string {
	if change == 0 {
		return "-"
	}
	return FormatSignedPoints(change) + " (" + FormatPct(pct) + ")"
}

// PctChange returns (to - from) / from * 100, or 0 when from is zero.
func PctChange(from, to float64) float64 {
	if from == 0 {
		return 0
	}
	return (to - from) / from * 100
}
