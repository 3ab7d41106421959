package radiosync

import (
	"fmt"
	"math"
	"strings"
	"unicode"
)

const maxHostnameLength = 50

// CalculateAzimuth returns the bearing in degrees from true north (0-360)
// from the customer location toward the base node, rounded to two decimals.
func CalculateAzimuth(customerLat, customerLon, bnLat, bnLon float64) float64 {
	latDiff := bnLat - customerLat
	lonDiff := bnLon - customerLon
	azimuth := math.Atan2(lonDiff, latDiff) * 180 / math.Pi
	azimuth = math.Mod(azimuth+360, 360)
	return math.Round(azimuth*100) / 100
}

// DeployHostname builds the customer-facing hostname: uppercased name with
// invalid characters stripped, length-capped, suffixed with the customer id.
// Falls back to CUSTOMER-<id> when the name is empty.
func DeployHostname(customerName string, customerID int64) string {
	name := strings.ToUpper(strings.TrimSpace(customerName))
	name = strings.ReplaceAll(name, "/", " ")
	var b strings.Builder
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	// Truncate on rune boundaries; the name may contain non-ASCII letters.
	runes := []rune(b.String())
	id := fmt.Sprintf("%d", customerID)
	if maxName := maxHostnameLength - len(id) - 1; len(runes) > maxName {
		runes = runes[:maxName]
	}
	sanitized := strings.TrimRight(string(runes), " ")
	if sanitized == "" {
		return "CUSTOMER-" + id
	}
	return sanitized + "-" + id
}
