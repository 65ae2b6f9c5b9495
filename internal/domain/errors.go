package domain

import "errors"

// Domain errors
var (
	ErrNotFound      = errors.New("resource not found")
	ErrAlreadyExists = errors.New("resource already exists")
	ErrInvalidInput  = errors.New("invalid input")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrConflict      = errors.New("conflict")

	// ErrTransient marks network failures and remote call timeouts
	ErrTransient = errors.New("remote directory unavailable")

	ErrProfileNotFound   = errors.New("profile not found")
	ErrMemberNotFound    = errors.New("member not found")
	ErrNicknameTaken     = errors.New("nickname already in use")
	ErrInvalidNickname   = errors.New("invalid nickname")
	ErrNoVerifiableEmail = errors.New("no verifiable email")
	ErrTooManyTechStacks = errors.New("too many tech stacks")
	ErrUnknownField      = errors.New("unknown signup field")
)

// Validation constants
const (
	NicknameMinLength = 2
	NicknameMaxLength = 11
	MaxTechStacks     = 10
	MaxAnswerLength   = 500
)
