package domain

import "strings"

// Defaults for profiles provisioned on first login
const (
	DefaultNickname           = "사용자"
	DefaultDescription        = "안녕하세요! 반갑습니다😆"
	DefaultBackgroundImageURL = "/logos/hi.png"
	DefaultExperience         = "0"
)

// DefaultProfile maps identity metadata to the placeholder profile created on first login
func DefaultProfile(identity Identity) Profile {
	nickname := identity.FullName
	if nickname == "" {
		nickname = strings.SplitN(identity.Email, "@", 2)[0]
	}
	if nickname == "" {
		nickname = DefaultNickname
	}

	return Profile{
		UserID:             identity.UserID,
		Nickname:           nickname,
		Email:              identity.Email,
		Experience:         DefaultExperience,
		Description:        DefaultDescription,
		ProfileImageURL:    identity.AvatarURL,
		BackgroundImageURL: DefaultBackgroundImageURL,
		HubCard:            false,
	}
}
