package models

// Draft holds a form's raw field values keyed by field name.
// The empty string is the unset sentinel; a Draft is never mutated in place.
type Draft map[string]string

// Get returns the raw value of a field.
func (d Draft) Get(name string) string {
	return d[name]
}

// IsSet reports whether a field holds a non-sentinel value.
func (d Draft) IsSet(name string) bool {
	return d[name] != ""
}

// With returns a copy of the draft with one field replaced.
func (d Draft) With(name, value string) Draft {
	next := d.Clone()
	next[name] = value
	return next
}

// Clone returns an independent copy.
func (d Draft) Clone() Draft {
	next := make(Draft, len(d))
	for k, v := range d {
		next[k] = v
	}
	return next
}
