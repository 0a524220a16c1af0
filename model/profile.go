// Package model defines the records exchanged with the finance backend.
//
// JSON field names follow the backend contract (Portuguese); Go field names
// are English.
package model

import (
	"encoding/json"
	"maps"
)

// Profile is the signed-in user as reported by the backend. Fields the
// client does not interpret (ids, timestamps) are kept in Extra so that a
// cached copy round-trips without loss.
type Profile struct {
	Name  string
	Email string
	Extra map[string]json.RawMessage
}

// ID returns the backend identity of the user, or "" when none was sent.
func (p Profile) ID() string {
	for _, k := range []string{"id_usuario", "id"} {
		raw, ok := p.Extra[k]
		if !ok {
			continue
		}
		var s string
		if json.Unmarshal(raw, &s) == nil {
			return s
		}
		var n json.Number
		if json.Unmarshal(raw, &n) == nil {
			return n.String()
		}
	}
	return ""
}

// Clone returns a deep copy of p in the form a decoded profile has: an
// empty Extra becomes nil. A clone survives a JSON round trip unchanged.
func (p Profile) Clone() Profile {
	if len(p.Extra) == 0 {
		p.Extra = nil
		return p
	}
	p.Extra = maps.Clone(p.Extra)
	return p
}

func (p Profile) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(p.Extra)+2)
	for k, v := range p.Extra {
		out[k] = v
	}
	out["nome"] = p.Name
	out["email"] = p.Email
	return json.Marshal(out)
}

func (p *Profile) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	var out Profile
	if v, ok := raw["nome"]; ok {
		if err := json.Unmarshal(v, &out.Name); err != nil {
			return err
		}
		delete(raw, "nome")
	}
	if v, ok := raw["email"]; ok {
		if err := json.Unmarshal(v, &out.Email); err != nil {
			return err
		}
		delete(raw, "email")
	}
	if len(raw) > 0 {
		out.Extra = maps.Clone(raw)
	}
	*p = out
	return nil
}
