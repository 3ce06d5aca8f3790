package types

import "strings"

// Address captures a Vietnamese shipping address. Persisted as jsonb on the
// order row so the snapshot survives later catalog/settings changes.
type Address struct {
	Line1    string `json:"line1"`
	Ward     string `json:"ward,omitempty"`
	District string `json:"district,omitempty"`
	Province string `json:"province"`
	Country  string `json:"country"`
}

// Validate reports whether the minimum deliverable fields are present.
func (a Address) Validate() error {
	if strings.TrimSpace(a.Line1) == "" {
		return errMissingField("line1")
	}
	if strings.TrimSpace(a.Province) == "" {
		return errMissingField("province")
	}
	return nil
}

type errMissingField string

func (e errMissingField) Error() string {
	return "address: missing " + string(e)
}
