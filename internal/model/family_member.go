package model

import "time"

type FamilyMember struct {
	ID          int64     `json:"id"`
	HouseholdID int64     `json:"household_id"`
	Name        string    `json:"name"`
	Initials    string    `json:"initials"`
	Color       string    `json:"color"`
	CreatedAt   time.Time `json:"created_at"`
}
