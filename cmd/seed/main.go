package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"os"

	"table-talk/internal/config"
	"table-talk/internal/db"

	"github.com/google/uuid"
)

type cardRecord struct {
	Genre            string
	GenreDescription string
	Color            string
	Question         string
	Description      string
}

func main() {
	filePath := flag.String("file", "db/seed/cards.csv", "path to card catalog csv")
	flag.Parse()

	if err := config.LoadDotEnv(".env"); err != nil {
		log.Printf("failed to load .env: %v", err)
	}

	conn, err := db.Open()
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}

	records, err := readCards(*filePath)
	if err != nil {
		log.Fatalf("failed to read card catalog: %v", err)
	}

	genreIDs := make(map[string]string)
	inserted := 0
	for _, record := range records {
		genreID, ok := genreIDs[record.Genre]
		if !ok {
			genre := db.Genre{Name: record.Genre}
			if err := conn.Where(db.Genre{Name: record.Genre}).
				Attrs(db.Genre{
					ID:          uuid.NewString(),
					Description: record.GenreDescription,
					Color:       record.Color,
				}).
				FirstOrCreate(&genre).Error; err != nil {
				log.Fatalf("failed to upsert genre: %v", err)
			}
			genreID = genre.ID
			genreIDs[record.Genre] = genreID
		}

		card := db.Card{GenreID: genreID, Question: record.Question}
		if err := conn.Where(db.Card{GenreID: genreID, Question: record.Question}).
			Attrs(db.Card{
				ID:          uuid.NewString(),
				Description: record.Description,
			}).
			FirstOrCreate(&card).Error; err != nil {
			log.Fatalf("failed to upsert card: %v", err)
		}
		inserted++
	}

	log.Printf("loaded %d cards across %d genres", inserted, len(genreIDs))
}

func readCards(path string) ([]cardRecord, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("no rows in %s", path)
	}

	records := make([]cardRecord, 0, len(rows))
	for i, row := range rows {
		if i == 0 && row[0] == "genre" {
			continue
		}
		if len(row) < 5 {
			return nil, fmt.Errorf("row %d: expected 5 columns, got %d", i+1, len(row))
		}
		records = append(records, cardRecord{
			Genre:            row[0],
			GenreDescription: row[1],
			Color:            row[2],
			Question:         row[3],
			Description:      row[4],
		})
	}
	return records, nil
}
