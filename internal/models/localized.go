package models

// LocalizedText holds one display string per locale code, e.g. "zh-TW".
type LocalizedText map[string]string

// Lookup returns the value for locale and whether it was present.
func (t LocalizedText) Lookup(locale string) (string, bool) {
	if t == nil {
		return "", false
	}
	v, ok := t[locale]
	return v, ok
}

// Get returns the value for locale or an empty string.
func (t LocalizedText) Get(locale string) string {
	v, _ := t.Lookup(locale)
	return v
}
