package model

// Animal is a canonical animal identity candidate assembled from one or more
// sources. Registry identifiers are keyed by registry name (e.g. "fei",
// "usef") so the same animal seen through two federations can be linked.
//
// Confidence is the identity-resolution score in [0,1]. It only ever moves
// upward: merges recompute it as the max of the two sides.
type Animal struct {
	Name        string            `json:"name"`
	Breed       string            `json:"breed,omitempty"`
	Country     string            `json:"country,omitempty"`
	DateOfBirth string            `json:"date_of_birth,omitempty"` // ISO date or empty
	Sex         string            `json:"sex,omitempty"`
	HeightCM    int               `json:"height_cm,omitempty"`
	Color       string            `json:"color,omitempty"`
	Sire        string            `json:"sire,omitempty"`
	Dam         string            `json:"dam,omitempty"`
	ExternalIDs map[string]string `json:"external_ids,omitempty"`
	Confidence  float64           `json:"identity_confidence"`
	Sources     []string          `json:"sources,omitempty"`
}

// HasExternalID reports whether the animal carries the given registry ID.
func (a Animal) HasExternalID(registry, id string) bool {
	return id != "" && a.ExternalIDs[registry] == id
}
