package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ewilliams-labs/vocalis/internal/core/domain"
)

// TestCompanion_Recommend verifies lookup, model override, playlist links and history.
func TestCompanion_Recommend(t *testing.T) {
	tests := []struct {
		name      string
		req       domain.RecommendRequest
		predictor *mockPredictor
		finder    *mockFinder
		repo      mockHistory
		wantErr   error
		wantTask  string
		wantMusic string
		wantURL   string
		wantSrc   string
		wantSaved bool
	}{
		{
			name:      "Sad while relaxing",
			req:       domain.RecommendRequest{Mood: "Sad", Activity: "Relaxing", Hour: 21},
			wantTask:  "Journaling",
			wantMusic: "Calm Acoustic / Ambient",
			wantSrc:   domain.SourceRuleTable,
			wantSaved: true,
		},
		{
			name:      "Energetic workout",
			req:       domain.RecommendRequest{Mood: "Energetic", Activity: "Workout", Hour: 7},
			wantTask:  "Interval Training",
			wantMusic: "High BPM EDM / Hip-Hop",
			wantSrc:   domain.SourceRuleTable,
			wantSaved: true,
		},
		{
			name:      "Unknown pair falls back to default",
			req:       domain.RecommendRequest{Mood: "Happy", Activity: "Cooking", Hour: 12},
			wantTask:  "Light Planning",
			wantMusic: "Soft Background Music",
			wantSrc:   domain.SourceRuleTable,
			wantSaved: true,
		},
		{
			name:      "Curated link for lo-fi",
			req:       domain.RecommendRequest{Mood: "Calm", Activity: "Studying", Hour: 10},
			wantTask:  "Deep Work Session",
			wantMusic: "Lo-fi / Instrumental",
			wantURL:   DefaultPlaylistLinks["Lo-Fi"],
			wantSrc:   domain.SourceRuleTable,
			wantSaved: true,
		},
		{
			name:      "Finder used when no curated link",
			req:       domain.RecommendRequest{Mood: "Sad", Activity: "Relaxing", Hour: 3},
			finder:    &mockFinder{url: "https://open.spotify.com/playlist/abc"},
			wantTask:  "Journaling",
			wantMusic: "Calm Acoustic / Ambient",
			wantURL:   "https://open.spotify.com/playlist/abc",
			wantSrc:   domain.SourceRuleTable,
			wantSaved: true,
		},
		{
			name:      "Finder failure keeps the recommendation",
			req:       domain.RecommendRequest{Mood: "Sad", Activity: "Relaxing", Hour: 3},
			finder:    &mockFinder{err: errors.New("spotify down")},
			wantTask:  "Journaling",
			wantMusic: "Calm Acoustic / Ambient",
			wantSrc:   domain.SourceRuleTable,
			wantSaved: true,
		},
		{
			name:      "Model label replaces table task",
			req:       domain.RecommendRequest{Mood: "Stressed", Activity: "Coding", Hour: 15},
			predictor: &mockPredictor{label: "Deep Work Session"},
			wantTask:  "Deep Work Session",
			wantMusic: "Low-lyric Electronic",
			wantURL:   DefaultPlaylistLinks["Electronic"],
			wantSrc:   domain.SourceModel,
			wantSaved: true,
		},
		{
			name:      "Model rejects unknown category",
			req:       domain.RecommendRequest{Mood: "Happy", Activity: "Coding", Hour: 15},
			predictor: &mockPredictor{err: &domain.FieldError{Field: "mood", Kind: domain.ErrUnknownCategory}},
			wantTask:  "Light Planning",
			wantMusic: "Soft Background Music",
			wantSrc:   domain.SourceRuleTable,
			wantSaved: true,
		},
		{
			name:    "Hour out of range",
			req:     domain.RecommendRequest{Mood: "Sad", Activity: "Relaxing", Hour: 24},
			wantErr: domain.ErrOutOfRange,
		},
		{
			name:    "Missing mood",
			req:     domain.RecommendRequest{Activity: "Relaxing"},
			wantErr: domain.ErrInvalidInput,
		},
		{
			name:    "Unknown table",
			req:     domain.RecommendRequest{Mood: "Sad", Activity: "Relaxing", Table: "nope"},
			wantErr: domain.ErrNotFound,
		},
		{
			name:    "History failure",
			req:     domain.RecommendRequest{Mood: "Sad", Activity: "Relaxing"},
			repo:    mockHistory{appendErr: errors.New("disk full")},
			wantErr: errHistory,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			opts := []CompanionOption{}
			if tc.predictor != nil {
				opts = append(opts, WithTaskModel(tc.predictor, "companion-task"))
			}
			if tc.finder != nil {
				opts = append(opts, WithPlaylistFinder(tc.finder))
			}
			c := NewCompanion(&tc.repo, opts...)
			c.now = func() time.Time { return time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC) }

			got, err := c.Recommend(context.Background(), tc.req)
			if tc.wantErr != nil {
				if tc.wantErr == errHistory {
					if err == nil {
						t.Fatal("expected history error")
					}
				} else if !errors.Is(err, tc.wantErr) {
					t.Fatalf("got err=%v, want %v", err, tc.wantErr)
				}
				if len(tc.repo.entries) != 0 {
					t.Fatalf("did not expect a history row, got %d", len(tc.repo.entries))
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Task != tc.wantTask || got.Music != tc.wantMusic {
				t.Fatalf("got task=%q music=%q, want task=%q music=%q", got.Task, got.Music, tc.wantTask, tc.wantMusic)
			}
			if got.PlaylistURL != tc.wantURL {
				t.Fatalf("got url=%q, want %q", got.PlaylistURL, tc.wantURL)
			}
			if got.Source != tc.wantSrc {
				t.Fatalf("got source=%q, want %q", got.Source, tc.wantSrc)
			}
			if tc.wantSaved {
				if len(tc.repo.entries) != 1 {
					t.Fatalf("expected one history row, got %d", len(tc.repo.entries))
				}
				row := tc.repo.entries[0]
				if row.ID != got.HistoryID || row.Status != domain.StatusRecommended || row.Task != got.Task || row.Hour != tc.req.Hour {
					t.Fatalf("unexpected history row %+v for %+v", row, got)
				}
			}
		})
	}
}

func TestCompanion_RecommendIsRepeatable(t *testing.T) {
	repo := &mockHistory{}
	c := NewCompanion(repo)
	req := domain.RecommendRequest{Mood: "Calm", Activity: "Studying", Hour: 9}

	first, err := c.Recommend(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	second, err := c.Recommend(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if first.Task != second.Task || first.Music != second.Music || first.PlaylistURL != second.PlaylistURL {
		t.Fatalf("same inputs gave %+v then %+v", first, second)
	}
	if first.HistoryID == second.HistoryID {
		t.Fatal("expected distinct history ids")
	}
}

func TestCompanion_TaskModelInputs(t *testing.T) {
	tests := []struct {
		name     string
		req      domain.RecommendRequest
		wantGoal string
	}{
		{"goal passed through", domain.RecommendRequest{Mood: "Calm", Activity: "Studying", Goal: " Learning ", Hour: 10}, "Learning"},
		{"empty goal", domain.RecommendRequest{Mood: "Stressed", Activity: "Coding", Hour: 23}, "None"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := &mockPredictor{label: "Deep Work Session"}
			c := NewCompanion(&mockHistory{}, WithTaskModel(p, "companion-task"))
			if _, err := c.Recommend(context.Background(), tc.req); err != nil {
				t.Fatal(err)
			}
			want := map[string]any{"mood": tc.req.Mood, "activity": tc.req.Activity, "hour": tc.req.Hour, "goal": tc.wantGoal}
			if len(p.inputs) != len(want) {
				t.Fatalf("inputs = %v, want %v", p.inputs, want)
			}
			for k, v := range want {
				if p.inputs[k] != v {
					t.Fatalf("inputs[%q] = %v, want %v", k, p.inputs[k], v)
				}
			}
		})
	}
}

func TestCompanion_ExtraTables(t *testing.T) {
	study, err := domain.NewRuleTable("study", domain.Outcome{Task: "Review", Music: "Classical Piano"}, []domain.Rule{
		{RuleKey: domain.RuleKey{Mood: "Calm", Activity: "Studying"}, Task: "Read", Music: "Jazz Trio"},
	})
	if err != nil {
		t.Fatal(err)
	}
	c := NewCompanion(&mockHistory{}, WithRuleTables(study))

	got, err := c.Recommend(context.Background(), domain.RecommendRequest{Mood: "Calm", Activity: "Studying", Table: "study"})
	if err != nil {
		t.Fatal(err)
	}
	if got.Music != "Jazz Trio" || got.PlaylistURL != DefaultPlaylistLinks["Jazz"] {
		t.Fatalf("unexpected recommendation %+v", got)
	}

	got, err = c.Recommend(context.Background(), domain.RecommendRequest{Mood: "Calm", Activity: "Studying"})
	if err != nil {
		t.Fatal(err)
	}
	if got.Music != "Lo-fi / Instrumental" {
		t.Fatalf("default table changed: %+v", got)
	}
	if n := len(c.Tables()); n != 2 {
		t.Fatalf("expected 2 tables, got %d", n)
	}

	shadow, err := domain.NewRuleTable(domain.CompanionTableName, domain.Outcome{Music: "Other"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	c = NewCompanion(&mockHistory{}, WithRuleTables(shadow))
	got, err = c.Recommend(context.Background(), domain.RecommendRequest{Mood: "Sad", Activity: "Relaxing"})
	if err != nil {
		t.Fatal(err)
	}
	if got.Music != "Calm Acoustic / Ambient" {
		t.Fatalf("built-in table was replaced: %+v", got)
	}

	c = NewCompanion(&mockHistory{}, WithRuleTables(study), WithDefaultTable("study"))
	got, err = c.Recommend(context.Background(), domain.RecommendRequest{Mood: "Sad", Activity: "Relaxing"})
	if err != nil {
		t.Fatal(err)
	}
	if got.Music != "Classical Piano" || got.Matched {
		t.Fatalf("expected the study default, got %+v", got)
	}
}

func TestCompanion_DetectMood(t *testing.T) {
	tests := []struct {
		name    string
		cls     *mockClassifier
		text    string
		want    string
		wantErr error
	}{
		{name: "Picks a table mood", cls: &mockClassifier{mood: "Stressed"}, text: "deadline tomorrow and nothing works", want: "Stressed"},
		{name: "Answer outside the list", cls: &mockClassifier{mood: "Furious"}, text: "argh", wantErr: domain.ErrUnknownCategory},
		{name: "Empty text", cls: &mockClassifier{mood: "Calm"}, text: "  ", wantErr: domain.ErrInvalidInput},
		{name: "No classifier", text: "hello", wantErr: ErrClassifierUnavailable},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var opts []CompanionOption
			if tc.cls != nil {
				opts = append(opts, WithMoodClassifier(tc.cls))
			}
			c := NewCompanion(&mockHistory{}, opts...)
			got, err := c.DetectMood(context.Background(), tc.text, "")
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("got err=%v, want %v", err, tc.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if got.Mood != tc.want {
				t.Fatalf("got mood %q, want %q", got.Mood, tc.want)
			}
			if len(tc.cls.moods) != 4 {
				t.Fatalf("classifier offered %v", tc.cls.moods)
			}
		})
	}
}

func TestCompanion_History(t *testing.T) {
	repo := &mockHistory{entries: []domain.HistoryEntry{{ID: "a"}, {ID: "b"}, {ID: "c"}}}
	c := NewCompanion(repo)

	got, err := c.History(context.Background(), 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].ID != "c" {
		t.Fatalf("unexpected history %+v", got)
	}

	repo.listErr = errors.New("locked")
	if _, err := c.History(context.Background(), 0); err == nil {
		t.Fatal("expected error")
	}
}

// --- Mocks ---

var errHistory = errors.New("history failure")

// mockHistory keeps entries in insertion order.
type mockHistory struct {
	entries   []domain.HistoryEntry
	appendErr error
	listErr   error
}

func (m *mockHistory) Append(ctx context.Context, e domain.HistoryEntry) error {
	if m.appendErr != nil {
		return m.appendErr
	}
	m.entries = append(m.entries, e)
	return nil
}

func (m *mockHistory) List(ctx context.Context, limit int) ([]domain.HistoryEntry, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []domain.HistoryEntry
	for i := len(m.entries) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, m.entries[i])
	}
	return out, nil
}

type mockPredictor struct {
	label  string
	err    error
	inputs map[string]any
}

func (m *mockPredictor) Predict(ctx context.Context, model string, inputs map[string]any) (domain.Prediction, error) {
	m.inputs = inputs
	if m.err != nil {
		return domain.Prediction{}, m.err
	}
	return domain.Prediction{Model: model, Label: m.label}, nil
}

type mockFinder struct {
	url string
	err error
}

func (m *mockFinder) FindPlaylist(ctx context.Context, genre string) (string, error) {
	return m.url, m.err
}

type mockClassifier struct {
	mood  string
	moods []string
}

func (m *mockClassifier) ClassifyMood(ctx context.Context, text string, moods []string) (domain.MoodResult, error) {
	m.moods = moods
	return domain.MoodResult{Mood: m.mood}, nil
}
