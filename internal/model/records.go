// Package model defines the persisted record types.
package model

import "time"

// Roles carried by an identity token.
const (
	RolePatient = "patient"
	RoleDoctor  = "doctor"
	RoleAdmin   = "admin"
)

// SelfDiagnosis is one patient-submitted symptom prediction.
type SelfDiagnosis struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Diagnosis   string    `json:"diagnosis"`
	Description string    `json:"description"`
	Symptoms    string    `json:"symptoms"`
	CreatedAt   time.Time `json:"created_at"`
}

// TestResult is one doctor-run domain test.
type TestResult struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Name      string    `json:"name"`
	Doctor    string    `json:"doctor"`
	Diagnosis string    `json:"diagnosis"`
	Features  []float64 `json:"features"`
	CreatedAt time.Time `json:"created_at"`
}

// Question is a help desk request.
type Question struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Contact   string    `json:"contact,omitempty"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// Response is an admin reply to a Question. User and Question are copied
// from the question so the list survives question cleanup.
type Response struct {
	ID         string    `json:"id"`
	QuestionID string    `json:"question_id"`
	User       string    `json:"user"`
	Question   string    `json:"question"`
	Body       string    `json:"body"`
	CreatedAt  time.Time `json:"created_at"`
}
