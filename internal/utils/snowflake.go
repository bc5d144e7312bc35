package utils

// IsSnowflake reports whether id looks like a Discord ID: 1 to 20 decimal digits.
func IsSnowflake(id string) bool {
	if id == "" || len(id) > 20 {
		return false
	}
	for _, r := range id {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
