package app

import (
	"fmt"
	"math"
	"net/mail"
	"strings"
	"unicode/utf8"

	"squarespool/internal/domain"
)

func cleanText(field, value string, maxLen int, required bool) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" && required {
		return "", fmt.Errorf("%w: %s is required", ErrInvalidInput, field)
	}
	if utf8.RuneCountInString(value) > maxLen {
		return "", fmt.Errorf("%w: %s is longer than %d characters", ErrInvalidInput, field, maxLen)
	}
	return value, nil
}

func (s *Service) cleanDetails(d OwnerDetails) (OwnerDetails, error) {
	email, err := cleanText("email", d.Email, s.cfg.MaxEmailLength, false)
	if err != nil {
		return OwnerDetails{}, err
	}
	if email != "" {
		if _, err := mail.ParseAddress(email); err != nil {
			return OwnerDetails{}, fmt.Errorf("%w: email %q is not valid", ErrInvalidInput, email)
		}
	}
	note, err := cleanText("note", d.Note, s.cfg.MaxNoteLength, false)
	if err != nil {
		return OwnerDetails{}, err
	}
	return OwnerDetails{Email: email, Note: note}, nil
}

func (s *Service) cleanPlayerName(name string) (string, error) {
	return cleanText("player name", name, s.cfg.MaxNameLength, true)
}

func cleanPrice(price float64) (float64, error) {
	if price < 0 || math.IsNaN(price) || math.IsInf(price, 0) {
		return 0, fmt.Errorf("%w: price per square must be zero or more", ErrInvalidInput)
	}
	return float64(domain.DollarsToCents(price)) / 100, nil
}

func cleanHostCut(cut string) (string, error) {
	cut = strings.TrimSpace(cut)
	if _, err := domain.ParseHostCut(cut); err != nil {
		return "", fmt.Errorf("%w: host cut %q must look like 10%% or $50", ErrInvalidInput, cut)
	}
	return cut, nil
}

// cleanScore accepts an empty score or up to three digits.
func cleanScore(q domain.Quarter, side, score string) (string, error) {
	score = strings.TrimSpace(score)
	if len(score) > 3 {
		return "", fmt.Errorf("%w: %s %s score is too long", ErrInvalidInput, q, side)
	}
	for _, r := range score {
		if r < '0' || r > '9' {
			return "", fmt.Errorf("%w: %s %s score must be digits", ErrInvalidInput, q, side)
		}
	}
	return score, nil
}
