// Package taxid validates Brazilian taxpayer identifiers (CPF and CNPJ).
package taxid

import "strings"

var (
	cnpjFirstWeights  = []int{5, 4, 3, 2, 9, 8, 7, 6, 5, 4, 3, 2}
	cnpjSecondWeights = []int{6, 5, 4, 3, 2, 9, 8, 7, 6, 5, 4, 3, 2}
)

// Digits drops every non-digit rune.
func Digits(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ValidCPF accepts formatted ("123.456.789-09") or bare CPFs. Only dots,
// dashes and spaces are tolerated as separators.
func ValidCPF(raw string) bool {
	digits, ok := normalize(raw, 11)
	if !ok {
		return false
	}

	first := checkDigit(digits[:9], descending(10, 9))
	if first != digits[9] {
		return false
	}
	second := checkDigit(digits[:10], descending(11, 10))
	return second == digits[10]
}

// ValidCNPJ accepts formatted ("11.222.333/0001-81") or bare CNPJs.
func ValidCNPJ(raw string) bool {
	digits, ok := normalize(raw, 14)
	if !ok {
		return false
	}

	first := checkDigit(digits[:12], cnpjFirstWeights)
	if first != digits[12] {
		return false
	}
	second := checkDigit(digits[:13], cnpjSecondWeights)
	return second == digits[13]
}

func FormatCPF(raw string) string {
	d := Digits(raw)
	if len(d) != 11 {
		return raw
	}
	return d[0:3] + "." + d[3:6] + "." + d[6:9] + "-" + d[9:11]
}

func FormatCNPJ(raw string) string {
	d := Digits(raw)
	if len(d) != 14 {
		return raw
	}
	return d[0:2] + "." + d[2:5] + "." + d[5:8] + "/" + d[8:12] + "-" + d[12:14]
}

func normalize(raw string, length int) ([]int, bool) {
	digits := make([]int, 0, length)
	for _, r := range raw {
		switch {
		case r >= '0' && r <= '9':
			digits = append(digits, int(r-'0'))
		case r == '.', r == '-', r == '/', r == ' ':
		default:
			return nil, false
		}
	}
	if len(digits) != length {
		return nil, false
	}

	allEqual := true
	for _, d := range digits[1:] {
		if d != digits[0] {
			allEqual = false
			break
		}
	}
	if allEqual {
		return nil, false
	}
	return digits, true
}

func checkDigit(digits []int, weights []int) int {
	sum := 0
	for i, d := range digits {
		sum += d * weights[i]
	}
	rem := sum % 11
	if rem < 2 {
		return 0
	}
	return 11 - rem
}

func descending(from, count int) []int {
	weights := make([]int, count)
	for i := range weights {
		weights[i] = from - i
	}
	return weights
}
