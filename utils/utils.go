package utils

// ShortAddr truncates an address to its first n characters for display.
// Addresses shorter than n are returned unchanged.
func ShortAddr(addr string, n int) string {
	if len(addr) <= n {
		return addr
	}
	return addr[:n]
}

// HasString reports whether slice contains str.
func HasString(slice []string, str string) bool {
	for _, s := range slice {
		if s == str {
			return true
		}
	}
	return false
}
