package main

import (
	"context"
	"fmt"
	"sort"

	"github.com/tsfaye/sims/core/subject"
)

// deactivateSubject deactivates active subjects matching code, optionally
// restricted to one grade level, then verifies the outcome.
func (cli *commandLine) deactivateSubject(code string, grade *int) error {
	ctx := context.Background()

	filter := subject.QueryFilter{Code: code}
	if grade != nil {
		filter.GradeLevel = *grade
	}
	matches, err := cli.subSvc.Filter(ctx, filter)
	if err != nil {
		return err
	}
	if len(matches) == 0 {
		if grade != nil {
			return fmt.Errorf("no subject found with code %q for grade %d", code, *grade)
		}
		return fmt.Errorf("no subject found with code %q", code)
	}

	fmt.Printf("Found %d subject(s) with code %q:\n", len(matches), code)
	for _, sub := range matches {
		status := "active"
		if !sub.IsActive {
			status = "inactive"
		}
		fmt.Printf("  - %s (grade %d, %s)\n", sub, sub.GradeLevel, status)
	}

	n, err := cli.subSvc.DeactivateByCode(ctx, code, grade)
	if err != nil {
		return err
	}
	fmt.Printf("Deactivated %d subject(s).\n", n)

	// verify: no active rows with this code should remain in scope
	active := true
	filter.IsActive = &active
	remaining, err := cli.subSvc.Filter(ctx, filter)
	if err != nil {
		return err
	}
	if len(remaining) > 0 {
		return fmt.Errorf("verification failed: %d subject(s) with code %q still active", len(remaining), code)
	}
	fmt.Println("Verified: no active subjects remain with this code.")
	return nil
}

// setSubjects reconciles the subject catalog for one grade, or every grade
// with a defined catalog when grade is 0.
func (cli *commandLine) setSubjects(grade int) error {
	ctx := context.Background()

	var grades []int
	if grade != 0 {
		if _, ok := subject.GradeCatalog[grade]; !ok {
			return fmt.Errorf("no catalog defined for grade %d", grade)
		}
		grades = []int{grade}
	} else {
		for g := range subject.GradeCatalog {
			grades = append(grades, g)
		}
		sort.Ints(grades)
	}

	totals := make(map[string]int)
	for _, g := range grades {
		fmt.Printf("Grade %d:\n", g)
		changes, err := cli.subSvc.EnsureCatalog(ctx, g)
		if err != nil {
			return fmt.Errorf("reconciling grade %d: %w", g, err)
		}
		for _, change := range changes {
			fmt.Printf("  %-11s %s\n", change.Action, change.Subject)
			totals[change.Action]++
		}
	}

	fmt.Printf(
		"Done: %d created, %d updated, %d unchanged, %d deactivated.\n",
		totals["created"], totals["updated"], totals["exists"], totals["deactivated"],
	)
	return nil
}
