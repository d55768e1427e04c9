package types

import "strings"

type BloodType string

const (
	BloodTypeAPos  BloodType = "A+"
	BloodTypeANeg  BloodType = "A-"
	BloodTypeBPos  BloodType = "B+"
	BloodTypeBNeg  BloodType = "B-"
	BloodTypeABPos BloodType = "AB+"
	BloodTypeABNeg BloodType = "AB-"
	BloodTypeOPos  BloodType = "O+"
	BloodTypeONeg  BloodType = "O-"
)

// AllBloodTypes is the canonical ordering used wherever a list of types is returned.
var AllBloodTypes = []BloodType{
	BloodTypeONeg,
	BloodTypeOPos,
	BloodTypeANeg,
	BloodTypeAPos,
	BloodTypeBNeg,
	BloodTypeBPos,
	BloodTypeABNeg,
	BloodTypeABPos,
}

func (b BloodType) Valid() bool {
	for _, t := range AllBloodTypes {
		if b == t {
			return true
		}
	}
	return false
}

func (b BloodType) String() string {
	return string(b)
}

// ParseBloodType normalises user input such as "ab+", " O− " or "o-".
func ParseBloodType(s string) (BloodType, bool) {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "−", "-")
	s = strings.ToUpper(s)

	b := BloodType(s)
	if !b.Valid() {
		return "", false
	}

	return b, true
}
