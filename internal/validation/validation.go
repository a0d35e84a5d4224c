// Package validation содержит функции валидации входных данных.
package validation

import "unicode"

// IsValidPhone проверяет телефон пользователя: от 10 до 15 цифр,
// допускается ведущий знак "+".
func IsValidPhone(phone string) bool {
	if phone == "" {
		return false
	}

	digits := 0
	for i, ch := range phone {
		if ch == '+' && i == 0 {
			continue
		}
		if !unicode.IsDigit(ch) {
			return false
		}
		digits++
	}

	return digits >= 10 && digits <= 15
}

// IsValidPan проверяет формат индийского налогового номера PAN:
// пять букв, четыре цифры, буква.
func IsValidPan(pan string) bool {
	if len(pan) != 10 {
		return false
	}

	for i, ch := range pan {
		switch {
		case i < 5 || i == 9:
			if ch < 'A' || ch > 'Z' {
				return false
			}
		default:
			if ch < '0' || ch > '9' {
				return false
			}
		}
	}

	return true
}

// IsValidIfsc проверяет формат банковского кода IFSC:
// четыре буквы, ноль, шесть букв или цифр.
func IsValidIfsc(code string) bool {
	if len(code) != 11 {
		return false
	}

	for i, ch := range code {
		switch {
		case i < 4:
			if ch < 'A' || ch > 'Z' {
				return false
			}
		case i == 4:
			if ch != '0' {
				return false
			}
		default:
			if (ch < 'A' || ch > 'Z') && (ch < '0' || ch > '9') {
				return false
			}
		}
	}

	return true
}

// IsValidPincode проверяет почтовый индекс: ровно шесть цифр,
// первая не ноль.
func IsValidPincode(pincode string) bool {
	if len(pincode) != 6 {
		return false
	}

	for i, ch := range pincode {
		if !unicode.IsDigit(ch) {
			return false
		}
		if i == 0 && ch == '0' {
			return false
		}
	}

	return true
}
