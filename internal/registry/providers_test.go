package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLookup(t *testing.T) {
	p, ok := Lookup("aiims-delhi")
	assert.True(t, ok)
	assert.Equal(t, "AIIMS New Delhi", p.Name)
	assert.Equal(t, 100, p.TrustScore)
	assert.True(t, p.Verified)
}

func TestLookupUnknown(t *testing.T) {
	_, ok := Lookup("fake-clinic")
	assert.False(t, ok)
}

func TestLookupReturnsCopy(t *testing.T) {
	p, _ := Lookup("apollo-delhi")
	p.TrustScore = 0

	again, _ := Lookup("apollo-delhi")
	assert.Equal(t, 98, again.TrustScore)
}

func TestAll(t *testing.T) {
	all := All()
	assert.Len(t, all, 4)

	all[0].ID = "mutated"
	assert.Equal(t, "apollo-delhi", All()[0].ID)
}
