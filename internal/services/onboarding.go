package services

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/routineflow-backend/internal/data/repos"
	types "github.com/yungbote/routineflow-backend/internal/domain"
	"github.com/yungbote/routineflow-backend/internal/domain/onboarding"
	"github.com/yungbote/routineflow-backend/internal/platform/apierr"
	"github.com/yungbote/routineflow-backend/internal/platform/dbctx"
	"github.com/yungbote/routineflow-backend/internal/platform/logger"
)

const (
	minFocusMinutes = 15
	maxFocusMinutes = 240
	maxListItems    = 20
	maxAnswerLen    = 200
)

// OnboardingInput holds the eight questionnaire answers.
type OnboardingInput struct {
	WakeTime         string                  `json:"wake_time"`
	SleepTime        string                  `json:"sleep_time"`
	HasFixedWork     bool                    `json:"has_fixed_work"`
	WorkDays         []int                   `json:"work_days"`
	WorkHours        string                  `json:"work_hours"`
	FixedCommitments []types.FixedCommitment `json:"fixed_commitments"`
	MainGoals        []string                `json:"main_goals"`
	EnergyPeak       string                  `json:"energy_peak"`
	FocusDuration    int                     `json:"focus_duration"`
	Priorities       []string                `json:"priorities"`
}

type OnboardingResult struct {
	Questionnaire *types.QuestionnaireResponse `json:"questionnaire"`
	Version       int                          `json:"version"`
	Source        string                       `json:"source"`
}

type OnboardingService interface {
	Save(dbc dbctx.Context, userID uuid.UUID, email string, in OnboardingInput) (*OnboardingResult, error)
	Get(dbc dbctx.Context, userID uuid.UUID) (*types.QuestionnaireResponse, error)
}

type onboardingService struct {
	db            *gorm.DB
	log           *logger.Logger
	profiles      repos.ProfileRepo
	questionnaire repos.QuestionnaireRepo
	versions      repos.OnboardingVersionRepo
	gamification  repos.GamificationRepo
}

func NewOnboardingService(
	db *gorm.DB,
	log *logger.Logger,
	profiles repos.ProfileRepo,
	questionnaire repos.QuestionnaireRepo,
	versions repos.OnboardingVersionRepo,
	gamification repos.GamificationRepo,
) OnboardingService {
	return &onboardingService{
		db:            db,
		log:           log.With("service", "OnboardingService"),
		profiles:      profiles,
		questionnaire: questionnaire,
		versions:      versions,
		gamification:  gamification,
	}
}

func invalid(format string, args ...any) error {
	return apierr.BadRequest(CodeInvalidRequest, fmt.Errorf(format, args...))
}

func cleanList(field string, in []string) ([]string, error) {
	if len(in) > maxListItems {
		return nil, invalid("%s: at most %d items", field, maxListItems)
	}
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if utf8.RuneCountInString(s) > maxAnswerLen {
			return nil, invalid("%s: item longer than %d characters", field, maxAnswerLen)
		}
		out = append(out, s)
	}
	if len(out) == 0 {
		return nil, invalid("%s: at least one item is required", field)
	}
	return out, nil
}

// normalize validates in and maps it onto a questionnaire row.
func (in OnboardingInput) normalize(userID uuid.UUID) (*types.QuestionnaireResponse, error) {
	wake, ok := NormalizeTime(in.WakeTime)
	if !ok {
		return nil, invalid("wake_time must be HH:MM")
	}
	sleep, ok := NormalizeTime(in.SleepTime)
	if !ok {
		return nil, invalid("sleep_time must be HH:MM")
	}
	if in.FocusDuration < minFocusMinutes || in.FocusDuration > maxFocusMinutes {
		return nil, invalid("focus_duration must be between %d and %d", minFocusMinutes, maxFocusMinutes)
	}
	energy := strings.TrimSpace(in.EnergyPeak)
	if energy == "" || utf8.RuneCountInString(energy) > maxAnswerLen {
		return nil, invalid("energy_peak is required")
	}
	workHours := strings.TrimSpace(in.WorkHours)
	if utf8.RuneCountInString(workHours) > maxAnswerLen {
		return nil, invalid("work_hours longer than %d characters", maxAnswerLen)
	}

	seen := map[int]bool{}
	days := make([]int, 0, len(in.WorkDays))
	for _, d := range in.WorkDays {
		if d < 0 || d > 6 {
			return nil, invalid("work_days: %d is not a weekday", d)
		}
		if !seen[d] {
			seen[d] = true
			days = append(days, d)
		}
	}

	if len(in.FixedCommitments) > maxListItems {
		return nil, invalid("fixed_commitments: at most %d items", maxListItems)
	}
	commitments := make([]types.FixedCommitment, 0, len(in.FixedCommitments))
	for i, c := range in.FixedCommitments {
		if c.Day < 0 || c.Day > 6 {
			return nil, invalid("fixed_commitments[%d]: day must be in 0..6", i)
		}
		start, ok1 := NormalizeTime(c.Start)
		end, ok2 := NormalizeTime(c.End)
		if !ok1 || !ok2 || end <= start {
			return nil, invalid("fixed_commitments[%d]: invalid time range", i)
		}
		title := strings.TrimSpace(c.Title)
		if title == "" || utf8.RuneCountInString(title) > maxAnswerLen {
			return nil, invalid("fixed_commitments[%d]: title is required", i)
		}
		commitments = append(commitments, types.FixedCommitment{Day: c.Day, Start: start, End: end, Title: title})
	}

	goals, err := cleanList("main_goals", in.MainGoals)
	if err != nil {
		return nil, err
	}
	priorities, err := cleanList("priorities", in.Priorities)
	if err != nil {
		return nil, err
	}

	return &types.QuestionnaireResponse{
		UserID:           userID,
		WakeTime:         wake,
		SleepTime:        sleep,
		HasFixedWork:     in.HasFixedWork,
		WorkDays:         datatypes.NewJSONSlice(days),
		WorkHours:        workHours,
		FixedCommitments: datatypes.NewJSONSlice(commitments),
		MainGoals:        datatypes.NewJSONSlice(goals),
		EnergyPeak:       energy,
		FocusDuration:    in.FocusDuration,
		Priorities:       datatypes.NewJSONSlice(priorities),
	}, nil
}

func (s *onboardingService) Save(dbc dbctx.Context, userID uuid.UUID, email string, in OnboardingInput) (*OnboardingResult, error) {
	row, err := in.normalize(userID)
	if err != nil {
		return nil, err
	}
	snapshot, err := json.Marshal(row)
	if err != nil {
		return nil, fmt.Errorf("snapshot questionnaire: %w", err)
	}

	res := &OnboardingResult{Questionnaire: row}
	err = inTx(s.db, dbc, func(inner dbctx.Context) error {
		if _, err := s.profiles.Ensure(inner, userID, email, ""); err != nil {
			return fmt.Errorf("ensure profile: %w", err)
		}
		if _, err := s.gamification.Ensure(inner, userID); err != nil {
			return fmt.Errorf("ensure gamification: %w", err)
		}
		existed, err := s.questionnaire.Upsert(inner, row)
		if err != nil {
			return fmt.Errorf("upsert questionnaire: %w", err)
		}
		source := onboarding.SourceOnboarding
		if existed {
			source = onboarding.SourceReOnboarding
		}
		v, err := s.versions.Append(inner, &types.OnboardingVersion{
			UserID:    userID,
			Source:    source,
			Responses: datatypes.JSON(snapshot),
		})
		if err != nil {
			return fmt.Errorf("append onboarding version: %w", err)
		}
		res.Version = v.Version
		res.Source = source
		return nil
	})
	if err != nil {
		s.log.Error("onboarding save failed", "step", "save", "user_id", userID, "error", err)
		return nil, err
	}
	s.log.Info("onboarding saved", "user_id", userID, "version", res.Version, "source", res.Source)
	return res, nil
}

func (s *onboardingService) Get(dbc dbctx.Context, userID uuid.UUID) (*types.QuestionnaireResponse, error) {
	q, err := s.questionnaire.GetByUserID(dbc, userID)
	if err != nil {
		s.log.Error("questionnaire lookup failed", "step", "get", "user_id", userID, "error", err)
		return nil, err
	}
	if q == nil {
		return nil, apierr.NotFound(CodeOnboardingIncomplete, fmt.Errorf("no questionnaire for user %s", userID))
	}
	return q, nil
}
