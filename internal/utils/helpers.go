package utils

import (
	"strings"
)

// Truncate recorta a length runas, sin partir caracteres multibyte
func Truncate(s string, length int) string {
	runes := []rune(s)
	if len(runes) <= length {
		return s
	}
	return strings.TrimSpace(string(runes[:length])) + "..."
}

// DefaultString devuelve el valor por defecto si la cadena está vacía
func DefaultString(s, defaultValue string) string {
	if strings.TrimSpace(s) == "" {
		return defaultValue
	}
	return s
}
