package handlers

import (
	"time"

	"habitly/internal/models"
)

// UserDTO is the user shape every auth and profile endpoint returns.
type UserDTO struct {
	UserID    int     `json:"userId"`
	Email     string  `json:"email"`
	FirstName *string `json:"firstName,omitempty"`
	LastName  *string `json:"lastName,omitempty"`
	AvatarID  *int    `json:"avatarId,omitempty"`
	IsGuest   bool    `json:"isGuest"`
	CreatedAt string  `json:"createdAt"`
}

func ToUserDTO(u models.User) UserDTO {
	return UserDTO{
		UserID:    u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		AvatarID:  u.AvatarID,
		IsGuest:   u.IsGuest,
		CreatedAt: u.CreatedAt.Format(time.RFC3339),
	}
}

// HabitLogDTO renders dates as date-only strings.
type HabitLogDTO struct {
	HabitID int    `json:"habitId"`
	Date    string `json:"date"`
	Count   int    `json:"count"`
}

func ToHabitLogDTO(l models.HabitLog) HabitLogDTO {
	return HabitLogDTO{
		HabitID: l.HabitID,
		Date:    l.Date.Format("2006-01-02"),
		Count:   l.Count,
	}
}
