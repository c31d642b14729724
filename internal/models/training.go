package models

import "time"

// TrainingEntry binds a known message to its canned response. Entries are
// unique by case-normalized message.
type TrainingEntry struct {
	Message  string `json:"message"`
	Response string `json:"response"`
}

// UnknownMessage is an append-only record of a message the bot had no answer
// for. It is logged to the training file and published to the notifier topic.
type UnknownMessage struct {
	UserID    string    `json:"userId"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}
