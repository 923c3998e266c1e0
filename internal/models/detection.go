package models

// Detection label bits used in the defaultLabel bitmask.
var detectionLabels = []struct {
	bit  int
	name string
}{
	{1, "Person"},
	{2, "Vehicle"},
	{3, "Animal"},
	{4, "Tampering"},
	{6, "Crowd"},
	{7, "License Plate"},
	{8, "Over-occupancy"},
}

// DecodeDetectionLabels expands a defaultLabel bitmask into tags.
func DecodeDetectionLabels(mask int) []string {
	var out []string
	for _, l := range detectionLabels {
		if mask&(1<<l.bit) != 0 {
			out = append(out, l.name)
		}
	}
	return out
}
