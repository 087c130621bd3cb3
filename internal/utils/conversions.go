package utils

// ToStringSlice returns the string elements of a decoded JSON value. A
// single string becomes a one element slice; other types are dropped.
func ToStringSlice(value any) []string {
	switch v := value.(type) {
	case string:
		return []string{v}
	case []string:
		return append([]string(nil), v...)
	case []any:
		stringSlice := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				stringSlice = append(stringSlice, s)
			}
		}
		return stringSlice
	default:
		return nil
	}
}
