package api

// Metadata carries caller correlation values from a request to its response.
type Metadata struct {
	// Index is the submission index assigned by a batch.
	Index int `json:"index" yaml:"index"`

	// Page is the page number assigned by the paginator. Zero outside pagination.
	Page int `json:"page,omitempty" yaml:"page,omitempty"`

	// Labels holds free-form caller values.
	Labels map[string]string `json:"labels,omitempty" yaml:"labels,omitempty"`
}

// Clone returns a deep copy of m.
func (m Metadata) Clone() Metadata {
	c := m
	if m.Labels != nil {
		c.Labels = make(map[string]string, len(m.Labels))
		for k, v := range m.Labels {
			c.Labels[k] = v
		}
	}
	return c
}

// Label returns the label value for key, or "" when absent.
func (m Metadata) Label(key string) string {
	if m.Labels == nil {
		return ""
	}
	return m.Labels[key]
}

// WithLabel returns a copy of m with key set to value.
func (m Metadata) WithLabel(key, value string) Metadata {
	c := m.Clone()
	if c.Labels == nil {
		c.Labels = make(map[string]string, 1)
	}
	c.Labels[key] = value
	return c
}
