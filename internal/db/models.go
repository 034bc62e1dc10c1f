package db

import (
	"time"

	"gorm.io/datatypes"
)

type Room struct {
	ID             string         `gorm:"primaryKey;size:64"`
	Players        datatypes.JSON `gorm:"not null"`
	RequiredCount  int            `gorm:"not null;default:2"`
	SelectedGenres datatypes.JSON `gorm:"not null"`
	CardCount      int            `gorm:"not null;default:4"`
	OwnerName      string         `gorm:"size:64"`
	Status         string         `gorm:"size:32;not null;default:waiting"`
	CreatedAt      time.Time      `gorm:"not null"`
	UpdatedAt      time.Time      `gorm:"not null"`
}

type Genre struct {
	ID          string    `gorm:"primaryKey;size:64"`
	Name        string    `gorm:"size:64;uniqueIndex;not null"`
	Description string    `gorm:"size:280"`
	Color       string    `gorm:"size:16;not null"`
	CreatedAt   time.Time `gorm:"not null"`
	UpdatedAt   time.Time `gorm:"not null"`
	Cards       []Card
}

type Card struct {
	ID          string    `gorm:"primaryKey;size:64"`
	GenreID     string    `gorm:"size:64;index;not null"`
	Question    string    `gorm:"size:280;not null"`
	Description string    `gorm:"size:280"`
	CreatedAt   time.Time `gorm:"not null"`
	UpdatedAt   time.Time `gorm:"not null"`
	Genre       Genre
}

type GameSession struct {
	ID               string         `gorm:"primaryKey;size:64"`
	CardCount        int            `gorm:"not null;default:10"`
	SelectedGenres   datatypes.JSON `gorm:"not null"`
	UsedCardIDs      datatypes.JSON `gorm:"not null"`
	CurrentCardIndex int            `gorm:"not null;default:0"`
	CreatedAt        time.Time      `gorm:"not null"`
	UpdatedAt        time.Time      `gorm:"not null"`
}

type DealtCard struct {
	ID        uint      `gorm:"primaryKey"`
	RoomID    string    `gorm:"size:64;index;not null;uniqueIndex:idx_dealt_room_card"`
	CardID    string    `gorm:"size:64;not null;uniqueIndex:idx_dealt_room_card"`
	CreatedAt time.Time `gorm:"not null"`
}

type Event struct {
	ID        uint           `gorm:"primaryKey"`
	RoomID    string         `gorm:"size:64;index"`
	Kind      string         `gorm:"size:48;not null"`
	Payload   datatypes.JSON `gorm:"not null"`
	CreatedAt time.Time      `gorm:"not null"`
}
