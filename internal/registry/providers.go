package registry

// Provider is a registered healthcare institution. Records embed a copy of
// the entry looked up at intake time, so later registry changes never mutate
// stored records.
type Provider struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Address    string `json:"address"`
	License    string `json:"license"`
	Verified   bool   `json:"verified"`
	TrustScore int    `json:"trustScore"`
}

var providers = []Provider{
	{
		ID:         "apollo-delhi",
		Name:       "Apollo Hospital Delhi",
		Address:    "0x742d35c67d391d7f1e43cc2c87bb977b66c9b007",
		License:    "DL-MED-2019-001",
		Verified:   true,
		TrustScore: 98,
	},
	{
		ID:         "aiims-delhi",
		Name:       "AIIMS New Delhi",
		Address:    "0x8ba1f109551bd432803012645hac136c24f0686e",
		License:    "DL-MED-2018-002",
		Verified:   true,
		TrustScore: 100,
	},
	{
		ID:         "fortis-mumbai",
		Name:       "Fortis Hospital Mumbai",
		Address:    "0x2546bf417bc4c37c9f875f386c7f58d2f0c27772",
		License:    "EXPIRED-2023",
		Verified:   false,
		TrustScore: 45,
	},
	{
		ID:         "max-noida",
		Name:       "Max Hospital Noida",
		Address:    "0x95222290dd7278aa3ddd389cc1e1d165cc4bafe5",
		License:    "UP-MED-2021-004",
		Verified:   true,
		TrustScore: 94,
	},
}

// Lookup returns the provider entry for id by value.
func Lookup(id string) (Provider, bool) {
	for _, p := range providers {
		if p.ID == id {
			return p, true
		}
	}
	return Provider{}, false
}

// All returns a copy of the registry.
func All() []Provider {
	out := make([]Provider, len(providers))
	copy(out, providers)
	return out
}
