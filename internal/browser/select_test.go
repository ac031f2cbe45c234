package browser

import (
	"testing"
)

func TestFilter(t *testing.T) {
	t.Parallel()

	candidates := []Candidate{
		{ID: "1", Type: "page", Title: "Example Domain", URL: "https://example.com/"},
		{ID: "2", Type: "page", Title: "New Tab", URL: "chrome://newtab/"},
		{ID: "3", Type: "page", Title: "Docs", URL: "https://example.com/docs"},
	}

	tests := []struct {
		name    string
		expr    string
		wantIDs []string
		wantErr bool
	}{
		{name: "empty keeps all", expr: "", wantIDs: []string{"1", "2", "3"}},
		{name: "url contains", expr: `url contains "example.com"`, wantIDs: []string{"1", "3"}},
		{name: "title equality", expr: `title == "Docs"`, wantIDs: []string{"3"}},
		{name: "no match", expr: `id == "9"`, wantIDs: nil},
		{name: "not boolean", expr: `title`, wantErr: true},
		{name: "unknown field", expr: `port == 1`, wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := Filter(candidates, tt.expr)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Filter() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if len(got) != len(tt.wantIDs) {
				t.Fatalf("expected %d candidates, got %d", len(tt.wantIDs), len(got))
			}
			for i, c := range got {
				if c.ID != tt.wantIDs[i] {
					t.Errorf("candidate %d: expected %s, got %s", i, tt.wantIDs[i], c.ID)
				}
			}
		})
	}
}

func TestCandidates(t *testing.T) {
	t.Parallel()

	got := Candidates([]Target{{ID: "A", Type: "page", Title: "T", URL: "https://a"}})
	if len(got) != 1 || got[0] != (Candidate{ID: "A", Type: "page", Title: "T", URL: "https://a"}) {
		t.Errorf("unexpected candidates %+v", got)
	}
}
