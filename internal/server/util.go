package server

import "github.com/google/uuid"

func newConnID() string {
	return uuid.NewString()
}

func newRoomID() string {
	return uuid.NewString()
}

func newSessionID() string {
	return uuid.NewString()
}
