package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"
)

func main() {
	name := flag.String("name", "", "migration name, e.g. add_cards_table")
	dir := flag.String("dir", filepath.Join("db", "migrations"), "migrations directory")
	flag.Parse()

	if *name == "" && flag.NArg() > 0 {
		*name = flag.Arg(0)
	}
	if *name == "" {
		log.Fatal("migration name is required")
	}
	if strings.ContainsAny(*name, " \t") {
		log.Fatal("migration name must not contain whitespace")
	}

	stamp := time.Now().UTC().Format("20060102150405")
	base := fmt.Sprintf("%s_%s", stamp, *name)

	if err := os.MkdirAll(*dir, 0o755); err != nil {
		log.Fatalf("create migrations dir: %v", err)
	}
	stubs := []struct {
		path string
		body string
	}{
		{filepath.Join(*dir, base+".up.sql"), "-- up migration\n"},
		{filepath.Join(*dir, base+".down.sql"), "-- down migration\n"},
	}
	for _, stub := range stubs {
		if err := createStub(stub.path, stub.body); err != nil {
			log.Fatalf("create migration stub: %v", err)
		}
		log.Printf("created %s", stub.path)
	}
}

func createStub(path, content string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("file already exists: %s", path)
	} else if !os.IsNotExist(err) {
		return err
	}
	return os.WriteFile(path, []byte(content), 0o644)
}
