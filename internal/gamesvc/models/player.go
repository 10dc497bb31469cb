package models

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

const MaxNameLength = 20

var serialPattern = regexp.MustCompile(`^[A-Z]{2}[0-9]{8}$`)

type Player struct {
	ID           string    `json:"id" bson:"id"`
	Name         string    `json:"name" bson:"name"`
	SerialNumber string    `json:"serialNumber" bson:"serialNumber"` // 2 uppercase letters + 8 digits
	IsHost       bool      `json:"isHost" bson:"isHost"`
	JoinedAt     time.Time `json:"joinedAt" bson:"joinedAt"`
}

// CleanName trims a display name and enforces the length limit.
func CleanName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("%w: name is required", ErrInvalidName)
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return "", fmt.Errorf("%w: name longer than %d characters", ErrInvalidName, MaxNameLength)
	}
	return name, nil
}

func ValidSerial(serial string) bool {
	return serialPattern.MatchString(serial)
}
