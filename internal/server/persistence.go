package server

import (
	"encoding/json"
	"errors"
	"log"

	"table-talk/internal/db"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var errRoomExists = errors.New("room already exists")

// gormRoomStore is the Postgres-backed room store.
type gormRoomStore struct {
	db *gorm.DB
}

func newGormRoomStore(conn *gorm.DB) *gormRoomStore {
	return &gormRoomStore{db: conn}
}

func (s *gormRoomStore) CreateRoom(rec RoomRecord) error {
	record := db.Room{
		ID:             rec.ID,
		Players:        toJSON(rec.Players),
		RequiredCount:  rec.RequiredCount,
		SelectedGenres: toJSON(rec.SelectedGenres),
		CardCount:      rec.CardCount,
		OwnerName:      rec.OwnerName,
		Status:         statusWaiting,
	}
	if err := s.db.Create(&record).Error; err != nil {
		if isUniqueViolation(err) {
			return errRoomExists
		}
		return err
	}
	return nil
}

func (s *gormRoomStore) FetchRoom(id string) (RoomRecord, error) {
	var record db.Room
	if err := s.db.First(&record, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return RoomRecord{}, errRoomNotFound
		}
		return RoomRecord{}, err
	}
	rec := RoomRecord{
		ID:            record.ID,
		RequiredCount: record.RequiredCount,
		CardCount:     record.CardCount,
		OwnerName:     record.OwnerName,
		Status:        record.Status,
	}
	fromJSON(record.Players, &rec.Players)
	fromJSON(record.SelectedGenres, &rec.SelectedGenres)
	return rec, nil
}

func (s *gormRoomStore) SetRoomStatus(id, status string) error {
	return s.db.Model(&db.Room{}).Where("id = ?", id).Update("status", status).Error
}

func (s *gormRoomStore) DeleteRoom(id string) error {
	if err := s.db.Delete(&db.Room{}, "id = ?", id).Error; err != nil {
		return err
	}
	return s.db.Delete(&db.DealtCard{}, "room_id = ?", id).Error
}

func (s *gormRoomStore) DealtCardIDs(roomID string) ([]string, error) {
	var ids []string
	err := s.db.Model(&db.DealtCard{}).Where("room_id = ?", roomID).Pluck("card_id", &ids).Error
	return ids, err
}

func (s *gormRoomStore) RecordDealt(roomID string, cardIDs []string) error {
	if len(cardIDs) == 0 {
		return nil
	}
	records := make([]db.DealtCard, 0, len(cardIDs))
	for _, cardID := range cardIDs {
		records = append(records, db.DealtCard{RoomID: roomID, CardID: cardID})
	}
	return s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&records).Error
}

func (s *gormRoomStore) RecordEvent(roomID, kind string, payload EventPayload) {
	body, err := json.Marshal(payload)
	if err != nil {
		return
	}
	record := db.Event{
		RoomID:  roomID,
		Kind:    kind,
		Payload: datatypes.JSON(body),
	}
	if err := s.db.Create(&record).Error; err != nil {
		log.Printf("event write failed room_id=%s kind=%s error=%v", roomID, kind, err)
	}
}

// gormCardSource serves the genre and card catalog from Postgres.
type gormCardSource struct {
	db *gorm.DB
}

func newGormCardSource(conn *gorm.DB) *gormCardSource {
	return &gormCardSource{db: conn}
}

func (s *gormCardSource) CardsMatching(genreIDs []string, excludeIDs []string) ([]CardView, error) {
	query := s.db.Model(&db.Card{}).Preload("Genre")
	if genreIDs != nil {
		query = query.Where("genre_id IN ?", genreIDs)
	}
	if len(excludeIDs) > 0 {
		query = query.Where("id NOT IN ?", excludeIDs)
	}
	var records []db.Card
	if err := query.Find(&records).Error; err != nil {
		return nil, err
	}
	cards := make([]CardView, 0, len(records))
	for _, record := range records {
		cards = append(cards, CardView{
			ID:          record.ID,
			Question:    record.Question,
			Description: record.Description,
			Genre: CardGenre{
				ID:    record.Genre.ID,
				Name:  record.Genre.Name,
				Color: record.Genre.Color,
			},
		})
	}
	return cards, nil
}

func (s *gormCardSource) Genres() ([]GenreView, error) {
	var records []db.Genre
	if err := s.db.Order("name asc").Find(&records).Error; err != nil {
		return nil, err
	}
	type genreCount struct {
		GenreID string
		Count   int
	}
	var counts []genreCount
	if err := s.db.Model(&db.Card{}).
		Select("genre_id, count(*) as count").
		Group("genre_id").
		Scan(&counts).Error; err != nil {
		return nil, err
	}
	countByGenre := make(map[string]int, len(counts))
	for _, entry := range counts {
		countByGenre[entry.GenreID] = entry.Count
	}
	genres := make([]GenreView, 0, len(records))
	for _, record := range records {
		genres = append(genres, GenreView{
			ID:          record.ID,
			Name:        record.Name,
			Description: record.Description,
			Color:       record.Color,
			CardCount:   countByGenre[record.ID],
		})
	}
	return genres, nil
}

func toJSON(values []string) datatypes.JSON {
	if values == nil {
		values = []string{}
	}
	data, err := json.Marshal(values)
	if err != nil {
		return datatypes.JSON("[]")
	}
	return datatypes.JSON(data)
}

func fromJSON(data datatypes.JSON, dest *[]string) {
	if len(data) == 0 {
		return
	}
	_ = json.Unmarshal(data, dest)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
