package domain

import "strings"

// NormalizeDocument strips everything but digits from a CPF/CNPJ string.
func NormalizeDocument(doc string) string {
	var b strings.Builder
	for _, r := range doc {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// IsValidCPF validates a Brazilian CPF by its two check digits. Formatted
// input (dots, dash) is accepted. Repeated-digit sequences such as
// "11111111111" carry valid checksums but are rejected as known fakes.
func IsValidCPF(doc string) bool {
	cpf := NormalizeDocument(doc)
	if len(cpf) != 11 {
		return false
	}
	if allSameDigit(cpf) {
		return false
	}

	if digit := cpfCheckDigit(cpf, 9, 10); digit != int(cpf[9]-'0') {
		return false
	}
	if digit := cpfCheckDigit(cpf, 10, 11); digit != int(cpf[10]-'0') {
		return false
	}
	return true
}

// IsValidCNPJ validates a Brazilian CNPJ by its two check digits.
func IsValidCNPJ(doc string) bool {
	cnpj := NormalizeDocument(doc)
	if len(cnpj) != 14 {
		return false
	}
	if allSameDigit(cnpj) {
		return false
	}

	if digit := cnpjCheckDigit(cnpj, 12); digit != int(cnpj[12]-'0') {
		return false
	}
	if digit := cnpjCheckDigit(cnpj, 13); digit != int(cnpj[13]-'0') {
		return false
	}
	return true
}

// IsValidDocument accepts either a CPF or a CNPJ.
func IsValidDocument(doc string) bool {
	switch len(NormalizeDocument(doc)) {
	case 11:
		return IsValidCPF(doc)
	case 14:
		return IsValidCNPJ(doc)
	default:
		return false
	}
}

func allSameDigit(s string) bool {
	for i := 1; i < len(s); i++ {
		if s[i] != s[0] {
			return false
		}
	}
	return true
}

func cpfCheckDigit(cpf string, length, startWeight int) int {
	sum := 0
	for i := 0; i < length; i++ {
		sum += int(cpf[i]-'0') * (startWeight - i)
	}
	rest := (sum * 10) % 11
	if rest == 10 {
		return 0
	}
	return rest
}

var cnpjWeights = []int{6, 5, 4, 3, 2, 9, 8, 7, 6, 5, 4, 3, 2}

func cnpjCheckDigit(cnpj string, length int) int {
	weights := cnpjWeights[len(cnpjWeights)-length:]
	sum := 0
	for i := 0; i < length; i++ {
		sum += int(cnpj[i]-'0') * weights[i]
	}
	rest := sum % 11
	if rest < 2 {
		return 0
	}
	return 11 - rest
}
