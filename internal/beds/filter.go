package beds

import (
	"github.com/hackgods/ward-dashboard/internal/hospital"
	"github.com/hackgods/ward-dashboard/internal/listing"
)

// BedFilter mirrors the ward/status selects and search box of the bed view.
type BedFilter struct {
	Ward   string
	Status string
	Search string
}

// Filter applies f to beds without reordering them.
func Filter(beds []hospital.Bed, f BedFilter) []hospital.Bed {
	return listing.Filter(beds,
		listing.Equals(f.Ward, func(b hospital.Bed) string { return b.Ward }),
		listing.Equals(string(hospital.ParseBedStatus(f.Status)), func(b hospital.Bed) string { return string(b.Status) }),
		listing.Contains(f.Search, searchFields),
	)
}

func searchFields(b hospital.Bed) []string {
	fields := []string{b.ID, b.Room}
	if b.Patient != nil {
		fields = append(fields, b.Patient.Name, b.Patient.ID)
	}
	return fields
}

// Wards lists distinct ward names in first-seen order, for the ward select.
func Wards(beds []hospital.Bed) []string {
	seen := make(map[string]struct{})
	var wards []string
	for _, b := range beds {
		if _, ok := seen[b.Ward]; ok || b.Ward == "" {
			continue
		}
		seen[b.Ward] = struct{}{}
		wards = append(wards, b.Ward)
	}
	return wards
}
