package mockdata

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hackgods/ward-dashboard/internal/hospital"
)

func TestBeds_SatisfyOccupancyInvariant(t *testing.T) {
	beds := Beds()
	assert.NotEmpty(t, beds)
	assert.Empty(t, hospital.CheckBeds(beds))
	for _, b := range beds {
		assert.True(t, b.Mock, b.ID)
	}
}

func TestBeds_ReturnsIndependentCopies(t *testing.T) {
	first := Beds()
	first[0].Patient.Name = "changed"
	first[2].Status = hospital.BedOccupied

	second := Beds()
	assert.Equal(t, "Marko Jovanovic", second[0].Patient.Name)
	assert.Equal(t, hospital.BedAvailable, second[2].Status)
}

func TestMedicines_Deterministic(t *testing.T) {
	assert.Equal(t, Medicines(), Medicines())
	for _, m := range Medicines() {
		assert.True(t, m.Mock)
		assert.NotEmpty(t, m.Manufacturer)
	}
}

func TestPatients_AllTagged(t *testing.T) {
	for _, p := range Patients() {
		assert.True(t, p.Mock)
		assert.NotEmpty(t, p.DisplayName)
	}
}
