package services

import (
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/routineflow-backend/internal/catalog"
	"github.com/yungbote/routineflow-backend/internal/data/repos"
	types "github.com/yungbote/routineflow-backend/internal/domain"
	"github.com/yungbote/routineflow-backend/internal/platform/apierr"
	"github.com/yungbote/routineflow-backend/internal/platform/dbctx"
	"github.com/yungbote/routineflow-backend/internal/platform/logger"
)

type LevelInfo struct {
	Current        catalog.Level  `json:"current"`
	Next           *catalog.Level `json:"next"`
	ProgressToNext int            `json:"progress_to_next"`
}

type ProgressView struct {
	Date         string                  `json:"date"`
	Today        *types.DailyProgress    `json:"today"`
	Statuses     []*types.BlockStatus    `json:"statuses"`
	Gamification *types.UserGamification `json:"gamification"`
	Level        LevelInfo               `json:"level"`
}

type StatusUpdate struct {
	Status          *types.BlockStatus      `json:"status"`
	Progress        *types.DailyProgress    `json:"progress"`
	Gamification    *types.UserGamification `json:"gamification"`
	PointsAwarded   int                     `json:"points_awarded"`
	StreakIncreased bool                    `json:"streak_increased"`
	Level           LevelInfo               `json:"level"`
}

type LoginResult struct {
	Awarded      bool                    `json:"awarded"`
	Points       int                     `json:"points"`
	Gamification *types.UserGamification `json:"gamification"`
}

type GamificationService interface {
	InitChecklist(dbc dbctx.Context, userID uuid.UUID) (int, error)
	UpdateBlockStatus(dbc dbctx.Context, userID, blockID uuid.UUID, status string) (*StatusUpdate, error)
	Login(dbc dbctx.Context, userID uuid.UUID) (*LoginResult, error)
	Progress(dbc dbctx.Context, userID uuid.UUID) (*ProgressView, error)
	// AwardPoints adds points and recomputes the level. It joins dbc's transaction when present.
	AwardPoints(dbc dbctx.Context, userID uuid.UUID, points int) (*types.UserGamification, error)
}

type gamificationService struct {
	db           *gorm.DB
	log          *logger.Logger
	cat          *catalog.Catalog
	cal          Calendar
	routines     repos.RoutineRepo
	blocks       repos.RoutineBlockRepo
	statuses     repos.BlockStatusRepo
	daily        repos.DailyProgressRepo
	gamification repos.GamificationRepo
}

func NewGamificationService(
	db *gorm.DB,
	log *logger.Logger,
	cat *catalog.Catalog,
	cal Calendar,
	routines repos.RoutineRepo,
	blocks repos.RoutineBlockRepo,
	statuses repos.BlockStatusRepo,
	daily repos.DailyProgressRepo,
	gamification repos.GamificationRepo,
) GamificationService {
	return &gamificationService{
		db:           db,
		log:          log.With("service", "GamificationService"),
		cat:          cat,
		cal:          cal,
		routines:     routines,
		blocks:       blocks,
		statuses:     statuses,
		daily:        daily,
		gamification: gamification,
	}
}

func (s *gamificationService) levelInfo(points int) LevelInfo {
	cur, next := s.cat.LevelFor(points)
	return LevelInfo{Current: cur, Next: next, ProgressToNext: s.cat.ProgressToNext(points)}
}

func (s *gamificationService) InitChecklist(dbc dbctx.Context, userID uuid.UUID) (int, error) {
	r, err := s.routines.GetActive(dbc, userID)
	if err != nil {
		s.log.Error("active routine lookup failed", "step", "init_checklist", "user_id", userID, "error", err)
		return 0, err
	}
	if r == nil {
		return 0, apierr.NotFound(CodeNoActiveRoutine, fmt.Errorf("no active routine for user %s", userID)).
			WithMessage(s.cat.Message("no_routine", "no active routine"))
	}
	blocks, err := s.blocks.ListByRoutineAndDay(dbc, r.ID, s.cal.Weekday())
	if err != nil {
		s.log.Error("block listing failed", "step", "init_checklist", "routine_id", r.ID, "error", err)
		return 0, err
	}
	ids := make([]uuid.UUID, 0, len(blocks))
	for _, b := range blocks {
		ids = append(ids, b.ID)
	}
	created, err := s.statuses.EnsurePending(dbc, userID, s.cal.Today(), ids)
	if err != nil {
		s.log.Error("checklist init failed", "step", "init_checklist", "user_id", userID, "error", err)
		return 0, err
	}
	return created, nil
}

// summarize derives a day's progress from its status rows.
func summarize(userID uuid.UUID, date string, rows []*types.BlockStatus, threshold int) *types.DailyProgress {
	dp := &types.DailyProgress{UserID: userID, Date: date, BlocksTotal: len(rows)}
	for _, r := range rows {
		switch r.Status {
		case types.StatusCompleted:
			dp.BlocksCompleted++
		case types.StatusSkipped:
			dp.BlocksSkipped++
		}
	}
	if dp.BlocksTotal > 0 {
		dp.CompletionPercentage = int(math.Round(float64(dp.BlocksCompleted) / float64(dp.BlocksTotal) * 100))
	}
	dp.StreakMaintained = dp.BlocksTotal > 0 && dp.CompletionPercentage >= threshold
	return dp
}

// applyStreak advances the streak for a valid day and reports whether it grew.
func applyStreak(g *types.UserGamification, today, yesterday string) bool {
	before := g.CurrentStreak
	switch {
	case g.LastActiveDate != nil && *g.LastActiveDate == today:
		return false
	case g.LastActiveDate != nil && *g.LastActiveDate == yesterday:
		g.CurrentStreak++
	default:
		g.CurrentStreak = 1
	}
	if g.CurrentStreak > g.LongestStreak {
		g.LongestStreak = g.CurrentStreak
	}
	d := today
	g.LastActiveDate = &d
	return g.CurrentStreak > before
}

func (s *gamificationService) threshold(g *types.UserGamification) int {
	if g != nil && g.StreakMinimumPercentage > 0 {
		return g.StreakMinimumPercentage
	}
	return s.cat.Streak.DefaultMinimumPercentage
}

func (s *gamificationService) lockGamification(dbc dbctx.Context, userID uuid.UUID) (*types.UserGamification, error) {
	if _, err := s.gamification.Ensure(dbc, userID); err != nil {
		return nil, fmt.Errorf("ensure gamification: %w", err)
	}
	g, err := s.gamification.GetForUpdate(dbc, userID)
	if err != nil {
		return nil, fmt.Errorf("lock gamification: %w", err)
	}
	if g == nil {
		return nil, fmt.Errorf("gamification row missing for user %s", userID)
	}
	return g, nil
}

func (s *gamificationService) UpdateBlockStatus(dbc dbctx.Context, userID, blockID uuid.UUID, status string) (*StatusUpdate, error) {
	st := types.BlockStatusValue(strings.ToLower(strings.TrimSpace(status)))
	if !st.Valid() {
		return nil, invalid("status must be pending, completed or skipped")
	}
	block, err := s.blocks.GetOwned(dbc, userID, blockID)
	if err != nil {
		s.log.Error("block lookup failed", "step", "update_status", "block_id", blockID, "error", err)
		return nil, err
	}
	if block == nil {
		return nil, apierr.NotFound(CodeBlockNotFound, fmt.Errorf("block %s not found", blockID))
	}

	today, yesterday := s.cal.Today(), s.cal.Yesterday()
	out := &StatusUpdate{}
	err = inTx(s.db, dbc, func(inner dbctx.Context) error {
		g, err := s.lockGamification(inner, userID)
		if err != nil {
			return err
		}
		before, err := s.statuses.ListByDate(inner, userID, today)
		if err != nil {
			return fmt.Errorf("list statuses: %w", err)
		}
		wasCompleted := false
		for _, r := range before {
			if r.BlockID == blockID && r.Status == types.StatusCompleted {
				wasCompleted = true
			}
		}
		prev, err := s.daily.Get(inner, userID, today)
		if err != nil {
			return fmt.Errorf("load daily progress: %w", err)
		}

		row, err := s.statuses.Set(inner, userID, blockID, today, st)
		if err != nil {
			return fmt.Errorf("set status: %w", err)
		}
		after, err := s.statuses.ListByDate(inner, userID, today)
		if err != nil {
			return fmt.Errorf("list statuses: %w", err)
		}
		dp := summarize(userID, today, after, s.threshold(g))
		if prev != nil {
			dp.ID = prev.ID
			dp.CreatedAt = prev.CreatedAt
			dp.ValidDayAwarded = prev.ValidDayAwarded
		}

		points := 0
		if st == types.StatusCompleted && !wasCompleted {
			points += s.cat.Points.CompleteBlock
		}
		if dp.StreakMaintained {
			if !dp.ValidDayAwarded {
				points += s.cat.Points.ValidDay
				dp.ValidDayAwarded = true
			}
			if applyStreak(g, today, yesterday) {
				out.StreakIncreased = true
				points += s.cat.Points.StreakBonus
			}
		}
		if err := s.daily.Upsert(inner, dp); err != nil {
			return fmt.Errorf("upsert daily progress: %w", err)
		}
		g.TotalPoints += points
		cur, _ := s.cat.LevelFor(g.TotalPoints)
		g.CurrentLevel = cur.Key()
		if err := s.gamification.Save(inner, g); err != nil {
			return fmt.Errorf("save gamification: %w", err)
		}

		out.Status = row
		out.Progress = dp
		out.Gamification = g
		out.PointsAwarded = points
		return nil
	})
	if err != nil {
		s.log.Error("block status update failed", "step", "update_status", "user_id", userID, "block_id", blockID, "error", err)
		return nil, err
	}
	out.Level = s.levelInfo(out.Gamification.TotalPoints)
	return out, nil
}

func (s *gamificationService) Login(dbc dbctx.Context, userID uuid.UUID) (*LoginResult, error) {
	today := s.cal.Today()
	out := &LoginResult{}
	err := inTx(s.db, dbc, func(inner dbctx.Context) error {
		g, err := s.lockGamification(inner, userID)
		if err != nil {
			return err
		}
		if g.LastLoginDate != nil && *g.LastLoginDate == today {
			out.Gamification = g
			return nil
		}
		g.LastLoginDate = &today
		g.TotalPoints += s.cat.Points.DailyLogin
		cur, _ := s.cat.LevelFor(g.TotalPoints)
		g.CurrentLevel = cur.Key()
		if err := s.gamification.Save(inner, g); err != nil {
			return fmt.Errorf("save gamification: %w", err)
		}
		out.Awarded = true
		out.Points = s.cat.Points.DailyLogin
		out.Gamification = g
		return nil
	})
	if err != nil {
		s.log.Error("daily login award failed", "step", "login", "user_id", userID, "error", err)
		return nil, err
	}
	return out, nil
}

func (s *gamificationService) AwardPoints(dbc dbctx.Context, userID uuid.UUID, points int) (*types.UserGamification, error) {
	var g *types.UserGamification
	err := inTx(s.db, dbc, func(inner dbctx.Context) error {
		row, err := s.lockGamification(inner, userID)
		if err != nil {
			return err
		}
		row.TotalPoints += points
		cur, _ := s.cat.LevelFor(row.TotalPoints)
		row.CurrentLevel = cur.Key()
		if err := s.gamification.Save(inner, row); err != nil {
			return fmt.Errorf("save gamification: %w", err)
		}
		g = row
		return nil
	})
	return g, err
}

func (s *gamificationService) Progress(dbc dbctx.Context, userID uuid.UUID) (*ProgressView, error) {
	today := s.cal.Today()
	g, err := s.gamification.Get(dbc, userID)
	if err != nil {
		s.log.Error("gamification lookup failed", "step", "progress", "user_id", userID, "error", err)
		return nil, err
	}
	if g == nil {
		g = &types.UserGamification{
			UserID:                  userID,
			CurrentLevel:            s.cat.Levels[0].Key(),
			StreakMinimumPercentage: s.cat.Streak.DefaultMinimumPercentage,
		}
	}
	dp, err := s.daily.Get(dbc, userID, today)
	if err != nil {
		s.log.Error("daily progress lookup failed", "step", "progress", "user_id", userID, "error", err)
		return nil, err
	}
	rows, err := s.statuses.ListByDate(dbc, userID, today)
	if err != nil {
		s.log.Error("status listing failed", "step", "progress", "user_id", userID, "error", err)
		return nil, err
	}
	return &ProgressView{
		Date:         today,
		Today:        dp,
		Statuses:     rows,
		Gamification: g,
		Level:        s.levelInfo(g.TotalPoints),
	}, nil
}
