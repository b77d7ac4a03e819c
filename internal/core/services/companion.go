package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ewilliams-labs/vocalis/internal/core/domain"
	"github.com/ewilliams-labs/vocalis/internal/core/ports"
)

// ErrClassifierUnavailable is returned by DetectMood when no classifier is wired.
var ErrClassifierUnavailable = errors.New("service: mood classifier not configured")

// DefaultPlaylistLinks are the curated links keyed by genre keyword.
var DefaultPlaylistLinks = map[string]string{
	"Lo-Fi":      "https://www.youtube.com/watch?v=3AtDnEC4zak",
	"Electronic": "https://www.youtube.com/watch?v=HMnrl0tmd3k",
	"Jazz":       "https://www.youtube.com/watch?v=3tmd-ClpJxA",
	"Classical":  "https://www.youtube.com/watch?v=GRxofEmo3HA",
	"Pop":        "https://www.youtube.com/watch?v=fJ9rUzIMcZQ",
}

// noGoal is the task model's category for a request without a goal.
const noGoal = "None"

// Companion serves mood and activity based recommendations and keeps the
// history of what it served.
type Companion struct {
	tables       map[string]*domain.RuleTable
	defaultTable string
	history      ports.HistoryRepository
	predictor    ports.Predictor
	taskModel    string
	finder       ports.PlaylistFinder
	classifier   ports.MoodClassifier
	links        map[string]string
	logger       *slog.Logger
	now          func() time.Time
}

// CompanionOption customizes a Companion.
type CompanionOption func(*Companion)

// WithRuleTables registers extra tables next to the built-in one. Tables
// are never merged or replaced; a name already registered is skipped and a
// request picks a table by name.
func WithRuleTables(tables ...*domain.RuleTable) CompanionOption {
	return func(c *Companion) {
		for _, t := range tables {
			if _, taken := c.tables[t.Name]; taken {
				c.logger.Warn("rule table name already registered, skipping", "table", t.Name)
				continue
			}
			c.tables[t.Name] = t
		}
	}
}

// WithDefaultTable selects the table used when a request names none.
// Unknown names are ignored.
func WithDefaultTable(name string) CompanionOption {
	return func(c *Companion) {
		if _, ok := c.tables[name]; ok {
			c.defaultTable = name
		}
	}
}

// WithTaskModel makes the named model's label replace the table task
// whenever the model accepts the request.
func WithTaskModel(p ports.Predictor, model string) CompanionOption {
	return func(c *Companion) {
		c.predictor = p
		c.taskModel = model
	}
}

// WithPlaylistFinder sets the fallback used when no curated link fits.
func WithPlaylistFinder(f ports.PlaylistFinder) CompanionOption {
	return func(c *Companion) { c.finder = f }
}

// WithMoodClassifier enables DetectMood.
func WithMoodClassifier(m ports.MoodClassifier) CompanionOption {
	return func(c *Companion) { c.classifier = m }
}

// WithPlaylistLinks replaces the curated links.
func WithPlaylistLinks(links map[string]string) CompanionOption {
	return func(c *Companion) { c.links = links }
}

func WithLogger(l *slog.Logger) CompanionOption {
	return func(c *Companion) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewCompanion constructs a Companion around the built-in companion table.
func NewCompanion(history ports.HistoryRepository, opts ...CompanionOption) *Companion {
	builtin := domain.CompanionTable()
	c := &Companion{
		tables:       map[string]*domain.RuleTable{builtin.Name: builtin},
		defaultTable: builtin.Name,
		history:      history,
		links:        DefaultPlaylistLinks,
		logger:       slog.Default(),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Table returns a rule table by name. An empty name is the default table.
func (c *Companion) Table(name string) (*domain.RuleTable, error) {
	if name == "" {
		name = c.defaultTable
	}
	t, ok := c.tables[name]
	if !ok {
		return nil, &domain.FieldError{Field: "table", Reason: fmt.Sprintf("unknown table %q", name), Kind: domain.ErrNotFound}
	}
	return t, nil
}

// Tables returns every registered table sorted by name.
func (c *Companion) Tables() []*domain.RuleTable {
	out := make([]*domain.RuleTable, 0, len(c.tables))
	for _, t := range c.tables {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Recommend looks up the task and music for a request, attaches a playlist
// link when one is known and records the result in the history.
func (c *Companion) Recommend(ctx context.Context, req domain.RecommendRequest) (domain.Recommendation, error) {
	if err := req.Validate(); err != nil {
		return domain.Recommendation{}, fmt.Errorf("service: invalid request: %w", err)
	}
	bucket, err := domain.TimeBucket(req.Hour)
	if err != nil {
		return domain.Recommendation{}, fmt.Errorf("service: invalid request: %w", err)
	}
	table, err := c.Table(req.Table)
	if err != nil {
		return domain.Recommendation{}, fmt.Errorf("service: %w", err)
	}

	outcome, matched := table.Recommend(req.Mood, req.Activity)
	rec := domain.Recommendation{
		Task:       outcome.Task,
		Music:      outcome.Music,
		TimeBucket: bucket,
		Source:     domain.SourceRuleTable,
		Matched:    matched,
	}

	if task, ok := c.predictTask(ctx, req); ok {
		rec.Task = task
		rec.Source = domain.SourceModel
	}
	rec.PlaylistURL = c.playlistFor(ctx, rec.Music)

	entry := domain.HistoryEntry{
		ID:        uuid.NewString(),
		Mood:      req.Mood,
		Activity:  req.Activity,
		Goal:      req.Goal,
		Hour:      req.Hour,
		Task:      rec.Task,
		Music:     rec.Music,
		Status:    domain.StatusRecommended,
		CreatedAt: c.now().UTC(),
	}
	if err := c.history.Append(ctx, entry); err != nil {
		return domain.Recommendation{}, fmt.Errorf("service: failed to record history: %w", err)
	}
	rec.HistoryID = entry.ID

	c.logger.Info("recommendation served",
		"mood", req.Mood, "activity", req.Activity, "task", rec.Task,
		"music", rec.Music, "matched", matched, "source", rec.Source)
	return rec, nil
}

// predictTask asks the task model for a label. An empty goal is sent as
// "None". Inputs the model does not know, such as a free-text goal outside
// its categories, fall back to the table task.
func (c *Companion) predictTask(ctx context.Context, req domain.RecommendRequest) (string, bool) {
	if c.predictor == nil || c.taskModel == "" {
		return "", false
	}
	goal := strings.TrimSpace(req.Goal)
	if goal == "" {
		goal = noGoal
	}
	p, err := c.predictor.Predict(ctx, c.taskModel, map[string]any{
		"mood":     req.Mood,
		"activity": req.Activity,
		"hour":     req.Hour,
		"goal":     goal,
	})
	switch {
	case err == nil && p.Label != "":
		return p.Label, true
	case err == nil:
		c.logger.Warn("task model returned no label", "model", c.taskModel)
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrModelNotFound):
		c.logger.Debug("task model skipped", "model", c.taskModel, "error", err)
	default:
		c.logger.Warn("task model failed", "model", c.taskModel, "error", err)
	}
	return "", false
}

// playlistFor prefers a curated link whose keyword appears in the genre
// label, then the finder. Finder failures only cost the link.
func (c *Companion) playlistFor(ctx context.Context, music string) string {
	if link := matchLink(c.links, music); link != "" {
		return link
	}
	if c.finder == nil {
		return ""
	}
	link, err := c.finder.FindPlaylist(ctx, music)
	if err != nil {
		c.logger.Warn("playlist lookup failed", "music", music, "error", err)
		return ""
	}
	return link
}

func matchLink(links map[string]string, music string) string {
	keys := make([]string, 0, len(links))
	for k := range links {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	label := strings.ToLower(music)
	for _, k := range keys {
		if strings.Contains(label, strings.ToLower(k)) {
			return links[k]
		}
	}
	return ""
}

// DetectMood picks one of the table's moods for free text.
func (c *Companion) DetectMood(ctx context.Context, text, tableName string) (domain.MoodResult, error) {
	if c.classifier == nil {
		return domain.MoodResult{}, ErrClassifierUnavailable
	}
	if strings.TrimSpace(text) == "" {
		return domain.MoodResult{}, &domain.FieldError{Field: "text", Reason: "is required", Kind: domain.ErrInvalidInput}
	}
	table, err := c.Table(tableName)
	if err != nil {
		return domain.MoodResult{}, fmt.Errorf("service: %w", err)
	}
	moods := table.Moods()
	res, err := c.classifier.ClassifyMood(ctx, text, moods)
	if err != nil {
		return domain.MoodResult{}, fmt.Errorf("service: failed to classify mood: %w", err)
	}
	for _, m := range moods {
		if m == res.Mood {
			return res, nil
		}
	}
	return domain.MoodResult{}, fmt.Errorf("service: classifier answered %q: %w", res.Mood, domain.ErrUnknownCategory)
}

// History returns the most recent recommendations.
func (c *Companion) History(ctx context.Context, limit int) ([]domain.HistoryEntry, error) {
	entries, err := c.history.List(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("service: failed to load history: %w", err)
	}
	return entries, nil
}
