package preprocess

// Metadata maps an operation ID to its extension key -> formatted literal
// entries. Operations without examples are absent.
type Metadata map[string]map[string]string

// For returns the entries of one operation, or nil.
func (m Metadata) For(opID string) map[string]string {
	return m[opID]
}

// Example returns the formatted literal for an operation and content type.
func (m Metadata) Example(opID, contentType string) (string, bool) {
	v, ok := m[opID][ExtensionKey(contentType)]
	return v, ok
}

// First returns the first of contentTypes that has an example for opID.
func (m Metadata) First(opID string, contentTypes []string) (contentType, literal string, ok bool) {
	for _, ct := range contentTypes {
		if v, found := m.Example(opID, ct); found {
			return ct, v, true
		}
	}
	return "", "", false
}
