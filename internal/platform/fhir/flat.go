package fhir

// Accessors for flat records produced by NormalizeRecord. Decoded JSON
// carries numbers as float64; these smooth that over for struct mapping.

func FlatString(flat map[string]interface{}, key string) string {
	s, _ := flat[key].(string)
	return s
}

func FlatBool(flat map[string]interface{}, key string) bool {
	b, _ := flat[key].(bool)
	return b
}

func FlatInt(flat map[string]interface{}, key string) int {
	n, _ := intValue(flat[key])
	return n
}

func FlatFloat(flat map[string]interface{}, key string) float64 {
	switch n := flat[key].(type) {
	case float64:
		return n
	case int:
		return float64(n)
	default:
		return 0
	}
}
