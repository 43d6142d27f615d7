package utils

// MaskSecret keeps the first four characters of a credential for recognition
// and hides the rest.
func MaskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 4 {
		return "*****"
	}
	return s[:4] + "*****"
}
