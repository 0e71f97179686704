package database

import (
	"strings"
	"testing"
)

func TestStatementsCoverSchema(t *testing.T) {
	stmts := Statements()
	want := []string{
		"users", "refresh_tokens", "categories", "regions", "date_tours", "tour_images",
		"tours", "tour_categories", "tour_regions", "tour_dates", "tour_image_links",
		"bookings", "ratings", "feedbacks", "favorites", "banners",
	}
	if len(stmts) != len(want) {
		t.Fatalf("expected %d statements, got %d", len(want), len(stmts))
	}
	for i, table := range want {
		if !strings.HasPrefix(stmts[i], "CREATE TABLE IF NOT EXISTS "+table+" ") {
			t.Errorf("statement %d should create %s, got %.60q", i, table, stmts[i])
		}
	}
}

func TestFeedbackParentIsProtected(t *testing.T) {
	for _, s := range Statements() {
		if strings.HasPrefix(s, "CREATE TABLE IF NOT EXISTS feedbacks ") {
			if !strings.Contains(s, "REFERENCES feedbacks (id) ON DELETE RESTRICT") {
				t.Fatal("feedback parent must not cascade")
			}
			return
		}
	}
	t.Fatal("feedbacks table missing")
}
