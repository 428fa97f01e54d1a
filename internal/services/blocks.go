package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	types "github.com/yungbote/routineflow-backend/internal/domain"
)

var timePattern = regexp.MustCompile(`^([0-1]?[0-9]|2[0-3]):[0-5][0-9]$`)

// BlockDraft is one block as returned by the model, before validation.
type BlockDraft struct {
	DayOfWeek   *float64 `json:"day_of_week"`
	BlockType   string   `json:"block_type"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	StartTime   string   `json:"start_time"`
	EndTime     string   `json:"end_time"`
	IsFixed     bool     `json:"is_fixed"`
	Priority    *float64 `json:"priority"`
}

type BlockValidationError struct {
	Index  int
	Field  string
	Reason string
}

func (e *BlockValidationError) Error() string {
	return fmt.Sprintf("block %d: %s %s", e.Index, e.Field, e.Reason)
}

var ErrNoBlocks = errors.New("no blocks in model output")

// ValidTime reports whether s matches H:MM or HH:MM in 00:00..23:59.
func ValidTime(s string) bool { return timePattern.MatchString(strings.TrimSpace(s)) }

// NormalizeTime rewrites a valid time as zero-padded HH:MM.
func NormalizeTime(s string) (string, bool) {
	m, ok := minutesOf(s)
	if !ok {
		return "", false
	}
	return formatMinutes(m), true
}

func minutesOf(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if !timePattern.MatchString(s) {
		return 0, false
	}
	h, m, _ := strings.Cut(s, ":")
	hh, _ := strconv.Atoi(h)
	mm, _ := strconv.Atoi(m)
	return hh*60 + mm, true
}

func formatMinutes(m int) string {
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}

// ParseBlocks extracts {"blocks":[...]} from the first '{' to the last '}' of text.
func ParseBlocks(text string) ([]BlockDraft, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON object in model output")
	}
	var doc struct {
		Blocks []BlockDraft `json:"blocks"`
	}
	if err := json.Unmarshal([]byte(text[start:end+1]), &doc); err != nil {
		return nil, fmt.Errorf("decode model output: %w", err)
	}
	if len(doc.Blocks) == 0 {
		return nil, ErrNoBlocks
	}
	return doc.Blocks, nil
}

// ValidateBlocks checks the whole batch and returns normalized rows, or the first failure.
// Nothing is returned unless every block is valid.
func ValidateBlocks(drafts []BlockDraft) ([]*types.RoutineBlock, error) {
	if len(drafts) == 0 {
		return nil, ErrNoBlocks
	}
	out := make([]*types.RoutineBlock, 0, len(drafts))
	for i, d := range drafts {
		b, err := validateBlock(i, d)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}

func validateBlock(i int, d BlockDraft) (*types.RoutineBlock, error) {
	fail := func(field, reason string) error {
		return &BlockValidationError{Index: i, Field: field, Reason: reason}
	}
	if d.DayOfWeek == nil {
		return nil, fail("day_of_week", "is required")
	}
	day := *d.DayOfWeek
	if day != math.Trunc(day) || day < 0 || day > 6 {
		return nil, fail("day_of_week", "must be an integer in 0..6")
	}
	bt := types.BlockType(strings.ToLower(strings.TrimSpace(d.BlockType)))
	if !bt.Valid() {
		return nil, fail("block_type", fmt.Sprintf("%q is not a block type", d.BlockType))
	}
	title := strings.TrimSpace(d.Title)
	if title == "" {
		return nil, fail("title", "is empty")
	}
	startMin, ok := minutesOf(d.StartTime)
	if !ok {
		return nil, fail("start_time", fmt.Sprintf("%q is not HH:MM", d.StartTime))
	}
	endMin, ok := minutesOf(d.EndTime)
	if !ok {
		return nil, fail("end_time", fmt.Sprintf("%q is not HH:MM", d.EndTime))
	}
	if endMin <= startMin {
		return nil, fail("end_time", "must be after start_time")
	}
	priority := 1
	if d.Priority != nil {
		priority = int(math.Round(*d.Priority))
	}
	if priority < 1 {
		priority = 1
	}
	if priority > 5 {
		priority = 5
	}
	return &types.RoutineBlock{
		DayOfWeek:   int(day),
		BlockType:   bt,
		Title:       title,
		Description: strings.TrimSpace(d.Description),
		StartTime:   formatMinutes(startMin),
		EndTime:     formatMinutes(endMin),
		IsFixed:     d.IsFixed,
		Priority:    priority,
	}, nil
}

// outsideWindow reports whether b starts before wake or ends after sleep. Unparseable bounds and
// overnight windows never report.
func outsideWindow(b *types.RoutineBlock, wake, sleep string) bool {
	w, ok1 := minutesOf(wake)
	s, ok2 := minutesOf(sleep)
	if !ok1 || !ok2 || s <= w {
		return false
	}
	start, _ := minutesOf(b.StartTime)
	end, _ := minutesOf(b.EndTime)
	return start < w || end > s
}
