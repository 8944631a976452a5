package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDID(t *testing.T) {
	did := DID("0x742D35C67D391D7F1E43CC2C87BB977B66C9B007", "baseSepolia")
	assert.Equal(t, "did:ethr:baseSepolia:0x742d35c67d391d7f1e43cc2c87bb977b66c9b007", did)
}

func TestDIDDeterministic(t *testing.T) {
	a := DID("0x742d35c67d391d7f1e43cc2c87bb977b66c9b007", "base")
	b := DID("0x742D35C67D391D7F1E43CC2C87BB977B66C9B007", "base")
	assert.Equal(t, a, b)
}

func TestValidAddress(t *testing.T) {
	assert.True(t, ValidAddress("0x742d35c67d391d7f1e43cc2c87bb977b66c9b007"))
	assert.True(t, ValidAddress("0x742D35C67D391D7F1E43CC2C87BB977B66C9B007"))
	assert.False(t, ValidAddress("742d35c67d391d7f1e43cc2c87bb977b66c9b007"))
	assert.False(t, ValidAddress("0x742d35"))
	assert.False(t, ValidAddress("0x742d35c67d391d7f1e43cc2c87bb977b66c9b0zz"))
	assert.False(t, ValidAddress(""))
}
