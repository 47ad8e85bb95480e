// Copyright (c) 2026 Quill. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// OTPLength is the number of digits in a one-time code.
const OTPLength = 6

const (
	lowerChars   = "abcdefghijklmnopqrstuvwxyz"
	upperChars   = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	digitChars   = "0123456789"
	specialChars = "!@#$%^&*()-_=+[]{}<>?"
)

// GenerateOTP returns a uniformly random numeric code of [OTPLength] digits.
// Leading zeros are kept.
func GenerateOTP() (string, error) {
	code := make([]byte, OTPLength)
	for i := range code {
		c, err := randomChar(digitChars)
		if err != nil {
			return "", err
		}
		code[i] = c
	}
	return string(code), nil
}

// RandomPassword returns a password of the given length (minimum 8) containing
// at least one lowercase letter, uppercase letter, digit and special character.
// It is used for accounts created through a social provider.
func RandomPassword(length int) (string, error) {
	if length < 8 {
		length = 8
	}

	all := lowerChars + upperChars + digitChars + specialChars
	password := make([]byte, 0, length)

	for _, class := range []string{lowerChars, upperChars, digitChars, specialChars} {
		c, err := randomChar(class)
		if err != nil {
			return "", err
		}
		password = append(password, c)
	}

	for len(password) < length {
		c, err := randomChar(all)
		if err != nil {
			return "", err
		}
		password = append(password, c)
	}

	// Fisher-Yates so the guaranteed classes are not always in front
	for i := len(password) - 1; i > 0; i-- {
		j, err := rand.Int(rand.Reader, big.NewInt(int64(i+1)))
		if err != nil {
			return "", fmt.Errorf("sec: failed to shuffle password: %w", err)
		}
		password[i], password[j.Int64()] = password[j.Int64()], password[i]
	}

	return string(password), nil
}

func randomChar(alphabet string) (byte, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(alphabet))))
	if err != nil {
		return 0, fmt.Errorf("sec: failed to read random: %w", err)
	}
	return alphabet[n.Int64()], nil
}
