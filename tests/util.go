// Package testutil provides fixtures shared by package tests.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/tsfaye/sims/core/finance"
	"github.com/tsfaye/sims/core/grade"
	"github.com/tsfaye/sims/core/subject"
	"github.com/tsfaye/sims/core/user"
)

// NopLogger discards everything; the default logger for tests.
type NopLogger struct{}

func (NopLogger) Enable(bool)                  {}
func (NopLogger) Debug(string, ...interface{}) {}
func (NopLogger) Info(string, ...interface{})  {}
func (NopLogger) Warn(string, ...interface{})  {}
func (NopLogger) Error(string, ...interface{}) {}
func (NopLogger) Fatal(string, ...interface{}) {}

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, uname, email, pwd string,
	roles []string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	t.Helper()

	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		Name:       name,
		Username:   uname,
		Email:      email,
		Roles:      roles,
		IsActive:   isActive,
		IsApproved: true,
		CreatedAt:  tstamp,
		UpdatedAt:  tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

func CreateSubject(t *testing.T, repo subject.Repository, code, name string, gradeLevel int, active bool) subject.Subject {
	t.Helper()

	now := time.Now().UTC()
	sub, err := repo.CreateSubject(context.Background(), subject.Subject{
		Code:        code,
		Name:        name,
		GradeLevel:  gradeLevel,
		CreditHours: 3,
		SubjectType: subject.TypeCore,
		IsActive:    active,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		t.Fatalf("CreateSubject() failed: %v", err)
	}
	return sub
}

func CreateGrade(t *testing.T, repo grade.Repository, studentID, subjectID int, score float64) grade.Grade {
	t.Helper()

	g, err := repo.UpsertGrade(context.Background(), grade.Grade{
		StudentID: studentID,
		SubjectID: subjectID,
		Score:     &score,
		GradedAt:  time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("CreateGrade() failed: %v", err)
	}
	return g
}

func CreatePayment(t *testing.T, repo finance.Repository, studentID int, amount float64, paidAt time.Time) finance.Payment {
	t.Helper()

	p, err := repo.CreatePayment(context.Background(), finance.Payment{
		StudentID: studentID,
		Amount:    amount,
		Reference: "test",
		PaidAt:    paidAt.UTC(),
	})
	if err != nil {
		t.Fatalf("CreatePayment() failed: %v", err)
	}
	return p
}
