// Package blood holds the ABO/Rh red cell compatibility rules.
package blood

import "bloodlink/pkg/types"

// donorTo lists, for each donor type, the recipient types that can receive
// its red cells. This is the donor-can-give-to direction; CompatibleDonorTypes
// walks the same table transposed.
var donorTo = map[types.BloodType][]types.BloodType{
	types.BloodTypeONeg: {
		types.BloodTypeONeg, types.BloodTypeOPos,
		types.BloodTypeANeg, types.BloodTypeAPos,
		types.BloodTypeBNeg, types.BloodTypeBPos,
		types.BloodTypeABNeg, types.BloodTypeABPos,
	},
	types.BloodTypeOPos:  {types.BloodTypeOPos, types.BloodTypeAPos, types.BloodTypeBPos, types.BloodTypeABPos},
	types.BloodTypeANeg:  {types.BloodTypeANeg, types.BloodTypeAPos, types.BloodTypeABNeg, types.BloodTypeABPos},
	types.BloodTypeAPos:  {types.BloodTypeAPos, types.BloodTypeABPos},
	types.BloodTypeBNeg:  {types.BloodTypeBNeg, types.BloodTypeBPos, types.BloodTypeABNeg, types.BloodTypeABPos},
	types.BloodTypeBPos:  {types.BloodTypeBPos, types.BloodTypeABPos},
	types.BloodTypeABNeg: {types.BloodTypeABNeg, types.BloodTypeABPos},
	types.BloodTypeABPos: {types.BloodTypeABPos},
}

// CanDonateTo reports whether red cells from donor can be given to recipient.
// Unknown types on either side are never compatible.
func CanDonateTo(donor, recipient types.BloodType) bool {
	for _, t := range donorTo[donor] {
		if t == recipient {
			return true
		}
	}
	return false
}

// CompatibleRequestTypes returns the recipient types a donor can serve, in
// canonical order. Used to pre-filter requests before any distance work.
func CompatibleRequestTypes(donor types.BloodType) []types.BloodType {
	out := make([]types.BloodType, 0, len(donorTo[donor]))
	for _, t := range types.AllBloodTypes {
		if CanDonateTo(donor, t) {
			out = append(out, t)
		}
	}
	return out
}

// CompatibleDonorTypes returns the donor types whose blood a recipient of the
// given type can receive.
func CompatibleDonorTypes(recipient types.BloodType) []types.BloodType {
	out := make([]types.BloodType, 0, len(types.AllBloodTypes))
	for _, t := range types.AllBloodTypes {
		if CanDonateTo(t, recipient) {
			out = append(out, t)
		}
	}
	return out
}
