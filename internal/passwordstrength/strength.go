// Package passwordstrength scores encryption passwords with a simple heuristic.
package passwordstrength

import (
	"strings"
	"unicode"
)

// Score is 0 (very weak) to 4 (strong).
type Score int

const (
	VeryWeak Score = iota
	Weak
	Fair
	Good
	Strong
)

func (s Score) String() string {
	return [...]string{"very weak", "weak", "fair", "good", "strong"}[s]
}

var common = map[string]struct{}{
	"password": {}, "123456": {}, "12345678": {}, "qwerty": {}, "letmein": {},
	"iloveyou": {}, "admin": {}, "welcome": {}, "monkey": {}, "dragon": {},
}

// Evaluate scores pw by length and character variety. Known common passwords
// and single repeated characters score VeryWeak.
func Evaluate(pw string) Score {
	if _, bad := common[strings.ToLower(pw)]; bad || len(pw) == 0 {
		return VeryWeak
	}
	if strings.Count(pw, pw[:1]) == len(pw) {
		return VeryWeak
	}

	var lower, upper, digit, other bool
	n := 0
	for _, r := range pw {
		n++
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		default:
			other = true
		}
	}
	classes := 0
	for _, ok := range []bool{lower, upper, digit, other} {
		if ok {
			classes++
		}
	}

	points := 0
	switch {
	case n >= 20:
		points += 3
	case n >= 14:
		points += 2
	case n >= 10:
		points++
	}
	if classes >= 3 {
		points++
	}
	if classes == 4 {
		points++
	}
	if n < 8 && points > int(Weak) {
		points = int(Weak)
	}
	if points > int(Strong) {
		points = int(Strong)
	}
	return Score(points)
}
