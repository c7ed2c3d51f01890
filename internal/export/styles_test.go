package export

import (
	"testing"

	"github.com/jpravetz/stravaexport/internal/models"
)

func TestCategoryPrecedence(t *testing.T) {
	table := NewStyleTable(nil)

	tests := []struct {
		name string
		doc  ActivityDoc
		want string
	}{
		{
			"moto beats commute",
			ActivityDoc{Activity: models.Activity{Type: models.Ride, Commute: true}, IsMoto: true},
			models.StyleMoto,
		},
		{
			"commute beats type",
			ActivityDoc{Activity: models.Activity{Type: models.Ride, Commute: true}},
			models.StyleCommute,
		},
		{
			"type style",
			ActivityDoc{Activity: models.Activity{Type: models.Run}},
			string(models.Run),
		},
		{
			"unknown type falls back to default",
			ActivityDoc{Activity: models.Activity{Type: models.ActivityType("Kitesurf")}},
			models.StyleDefault,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := table.Category(tt.doc); got != tt.want {
				t.Errorf("Category() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestStyleTableOverride(t *testing.T) {
	table := NewStyleTable(map[string]models.LineStyle{
		string(models.Ride): {Color: "FF112233", Width: 2},
	})

	if s := table.Get(string(models.Ride)); s.Color != "FF112233" || s.Width != 2 {
		t.Errorf("override not applied: %+v", s)
	}
}

func TestStyleTableInvalidOverrideIgnored(t *testing.T) {
	def := NewStyleTable(nil).Get(string(models.Ride))

	table := NewStyleTable(map[string]models.LineStyle{
		string(models.Ride): {Color: "red", Width: 4},         // not hex
		string(models.Run):  {Color: "FF112233", Width: 1000}, // width out of range
	})

	if s := table.Get(string(models.Ride)); s != def {
		t.Errorf("invalid color override must keep default, got %+v", s)
	}
	if s := table.Get(string(models.Run)); s == (models.LineStyle{Color: "FF112233", Width: 1000}) {
		t.Errorf("invalid width override must be ignored")
	}
}

func TestStyleID(t *testing.T) {
	if got := StyleID(models.StyleCommute); got != "StravaLineStyleCommute" {
		t.Errorf("StyleID = %q", got)
	}
}

func TestGetUnknownCategoryFallsBack(t *testing.T) {
	table := NewStyleTable(nil)
	if s := table.Get("NoSuch"); s != table.Get(models.StyleDefault) {
		t.Errorf("unknown category must fall back to default")
	}
}
