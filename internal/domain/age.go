package domain

import (
	"fmt"
	"math"
	"strings"
)

type AgeGroup string

const (
	AgeChild  AgeGroup = "child"
	AgeTeen   AgeGroup = "teen"
	AgeAdult  AgeGroup = "adult"
	AgeSenior AgeGroup = "senior"
)

// AgeGroupFor maps an estimated age in years onto a kiosk age group.
func AgeGroupFor(age float64) AgeGroup {
	years := math.Round(age)
	switch {
	case years <= 12:
		return AgeChild
	case years <= 19:
		return AgeTeen
	case years <= 64:
		return AgeAdult
	default:
		return AgeSenior
	}
}

func ParseAgeGroup(s string) (AgeGroup, error) {
	switch g := AgeGroup(strings.ToLower(strings.TrimSpace(s))); g {
	case AgeChild, AgeTeen, AgeAdult, AgeSenior:
		return g, nil
	default:
		return "", fmt.Errorf("%w: age group %q", ErrInvalidParam, s)
	}
}
