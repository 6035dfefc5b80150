package utils

import "strings"

// ExtractNameFromEmail derives a display name from the local part of an email
func ExtractNameFromEmail(email string) string {
	at := strings.Index(email, "@")
	if at <= 0 {
		return email
	}
	return email[:at]
}

// FallbackAvatarURL returns a generated avatar for users without one
func FallbackAvatarURL(name string) string {
	return "https://api.dicebear.com/9.x/adventurer/svg?seed=" + name
}
