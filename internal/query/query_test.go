package query

import (
	"math"
	"strings"
	"testing"
)

// TestQuery_Key_City verifies that city keys are trimmed, lowercased and
// type-tagged, so equivalent spellings share a cache subject.
func TestQuery_Key_City(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"lowercase passthrough", "seattle", "city:seattle"},
		{"mixed case", "SeAtTlE", "city:seattle"},
		{"trimmed", "  Paris  ", "city:paris"},
		{"multiword", "New York", "city:new york"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := City(tc.in).Key()
			if got != tc.want {
				t.Fatalf("City(%q).Key() = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

// TestQuery_Key_Coord verifies coordinate keys round to exactly 4 fractional
// digits so coordinates within ~11 m collide intentionally.
func TestQuery_Key_Coord(t *testing.T) {
	a := Coord(48.85661, 2.35222).Key()
	b := Coord(48.85663, 2.35224).Key()
	if a != b {
		t.Errorf("nearby coordinates should share a key: %q vs %q", a, b)
	}
	if a != "coord:48.8566,2.3522" {
		t.Errorf("Key() = %q, want coord:48.8566,2.3522", a)
	}

	far := Coord(48.8570, 2.3522).Key()
	if far == a {
		t.Errorf("distinct coordinates should not share key %q", a)
	}
}

// TestQuery_Key_NaN verifies the accepted degenerate behavior: a NaN
// coordinate formats as the literal NaN in the key rather than erroring.
func TestQuery_Key_NaN(t *testing.T) {
	key := Coord(math.NaN(), 2.0).Key()
	if !strings.Contains(key, "NaN") {
		t.Errorf("Key() = %q, want literal NaN in key", key)
	}
}

// TestQuery_Key_CityAndCoordDisjoint verifies the type tags keep a city key
// from ever colliding with a coordinate key.
func TestQuery_Key_CityAndCoordDisjoint(t *testing.T) {
	city := City("48.8566,2.3522").Key()
	coord := Coord(48.8566, 2.3522).Key()
	if city == coord {
		t.Errorf("city and coordinate queries must not share key %q", city)
	}
}

// TestValidateCity covers length bounds and the allowed character set.
func TestValidateCity(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr error
	}{
		{"simple", "Lyon", "Lyon", nil},
		{"trimmed", "  Lyon  ", "Lyon", nil},
		{"accented", "Besançon", "Besançon", nil},
		{"apostrophe", "L'Haÿ-les-Roses", "L'Haÿ-les-Roses", nil},
		{"empty", "", "", ErrCityEmpty},
		{"whitespace only", "   ", "", ErrCityEmpty},
		{"too short", "a", "", ErrCityTooShort},
		{"too long", strings.Repeat("a", 65), "", ErrCityTooLong},
		{"angle brackets", "<script>", "", ErrCityInvalidChars},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ValidateCity(tc.in)
			if err != tc.wantErr {
				t.Fatalf("ValidateCity(%q) error = %v, want %v", tc.in, err, tc.wantErr)
			}
			if got != tc.want {
				t.Errorf("ValidateCity(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

// TestValidateCoord verifies range checks for latitude and longitude.
func TestValidateCoord(t *testing.T) {
	tests := []struct {
		name     string
		lat, lon float64
		wantErr  bool
	}{
		{"paris", 48.8566, 2.3522, false},
		{"extremes", -90, 180, false},
		{"lat too high", 90.1, 0, true},
		{"lat too low", -90.1, 0, true},
		{"lon too high", 0, 180.1, true},
		{"lon too low", 0, -180.1, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateCoord(tc.lat, tc.lon)
			if (err != nil) != tc.wantErr {
				t.Fatalf("ValidateCoord(%v, %v) error = %v, wantErr %v", tc.lat, tc.lon, err, tc.wantErr)
			}
		})
	}
}
