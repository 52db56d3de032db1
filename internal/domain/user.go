// Package domain contains entity without logic, just meta-data
package domain

import (
	"errors"
	"unicode/utf8"
)

const (
	MaxUsernameLen = 64
	MaxRoomNameLen = 64
)

var (
	ErrUsernameTooLong = errors.New("username too long")
	ErrUsernameEmpty   = errors.New("username empty")
	ErrRoomNameEmpty   = errors.New("room name empty")
	ErrRoomNameTooLong = errors.New("room name too long")
)

func ValidateUsername(username string) error {
	if len(username) == 0 {
		return ErrUsernameEmpty
	}
	if utf8.RuneCountInString(username) > MaxUsernameLen {
		return ErrUsernameTooLong
	}
	return nil
}

func ValidateRoomName(room RoomName) error {
	if len(room) == 0 {
		return ErrRoomNameEmpty
	}
	if utf8.RuneCountInString(string(room)) > MaxRoomNameLen {
		return ErrRoomNameTooLong
	}
	return nil
}
