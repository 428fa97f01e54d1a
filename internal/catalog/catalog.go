package catalog

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"text/template"

	"gopkg.in/yaml.v3"

	types "github.com/yungbote/routineflow-backend/internal/domain"
	"github.com/yungbote/routineflow-backend/internal/platform/logger"
)

const catalogEnv = "ROUTINEFLOW_CATALOG_YAML"

// Unlimited is reported as the limit of paid plans.
const Unlimited = -1

//go:embed catalog.yaml
var catalogFS embed.FS

type PlanLimits struct {
	AdjustmentsPerMonth int  `yaml:"adjustments_per_month"`
	GenerationsPerMonth int  `yaml:"generations_per_month"`
	Unlimited           bool `yaml:"unlimited"`
}

type Points struct {
	CompleteBlock int `yaml:"complete_block"`
	ValidDay      int `yaml:"valid_day"`
	StreakBonus   int `yaml:"streak_bonus"`
	Feedback      int `yaml:"feedback"`
	DailyLogin    int `yaml:"daily_login"`
}

type Level struct {
	Name      string `yaml:"name" json:"name"`
	MinPoints int    `yaml:"min_points" json:"min_points"`
}

// Key is the lowercased name stored in user_gamification.current_level.
func (l Level) Key() string { return strings.ToLower(l.Name) }

type Generation struct {
	Model        string  `yaml:"model"`
	Temperature  float64 `yaml:"temperature"`
	SystemPrompt string  `yaml:"system_prompt"`
	UserPrompt   string  `yaml:"user_prompt"`
}

type Catalog struct {
	Name    string                `yaml:"catalog"`
	Version int                   `yaml:"version"`
	Plans   map[string]PlanLimits `yaml:"plans"`
	Points  Points                `yaml:"points"`
	Levels  []Level               `yaml:"levels"`
	Streak  struct {
		DefaultMinimumPercentage int `yaml:"default_minimum_percentage"`
	} `yaml:"streak"`
	Generation Generation        `yaml:"generation"`
	Messages   map[string]string `yaml:"messages"`

	userPrompt *template.Template
}

var fallback = Catalog{
	Name:    "routineflow",
	Version: 1,
	Plans: map[string]PlanLimits{
		"free":   {AdjustmentsPerMonth: 3, GenerationsPerMonth: 3},
		"pro":    {Unlimited: true},
		"annual": {Unlimited: true},
	},
	Points: Points{CompleteBlock: 10, ValidDay: 50, StreakBonus: 25, Feedback: 5, DailyLogin: 3},
	Levels: []Level{
		{Name: "Iniciante", MinPoints: 0},
		{Name: "Consistente", MinPoints: 500},
		{Name: "Disciplinado", MinPoints: 1500},
		{Name: "Mestre da Rotina", MinPoints: 5000},
	},
	Generation: Generation{
		Model:       "google/gemini-3-flash-preview",
		Temperature: 0.7,
		SystemPrompt: "Você é um especialista em produtividade e gestão de tempo. " +
			"Crie uma rotina semanal personalizada e retorne APENAS um JSON válido no formato " +
			`{"blocks":[{"day_of_week":0,"block_type":"focus","title":"","description":"","start_time":"HH:MM","end_time":"HH:MM","is_fixed":false,"priority":1}]}`,
		UserPrompt: "Crie uma rotina semanal completa para este usuário:\n" +
			"- Acorda às: {{.WakeTime}}\n- Dorme às: {{.SleepTime}}\n- Horário de trabalho: {{.WorkHours}}\n" +
			"- Pico de energia: {{.EnergyPeak}}\n- Duração máxima de foco: {{.FocusDuration}} minutos\n" +
			"- Metas principais: {{.MainGoals}}\n- Prioridades: {{.Priorities}}\n- Compromissos fixos: {{.FixedCommitments}}\n" +
			"Crie blocos para TODOS os 7 dias da semana (0=domingo a 6=sábado).",
	},
	Messages: map[string]string{},
}

func init() {
	fallback.Streak.DefaultMinimumPercentage = 70
}

var (
	loadOnce sync.Once
	loaded   *Catalog
)

// Load parses the embedded catalog once. An invalid document logs a warning and yields the compiled-in fallback.
func Load(log *logger.Logger) *Catalog {
	loadOnce.Do(func() {
		c, err := parse()
		if err != nil {
			if log != nil {
				log.Warn("catalog: load failed; using fallback", "error", err)
			}
			fb := fallback
			c = &fb
			if err := c.compile(); err != nil {
				panic(fmt.Sprintf("catalog: fallback does not compile: %v", err))
			}
		}
		loaded = c
	})
	return loaded
}

func parse() (*Catalog, error) {
	data, err := read()
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes and validates a catalog document.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, err
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	if err := c.compile(); err != nil {
		return nil, err
	}
	return &c, nil
}

func read() ([]byte, error) {
	if path := strings.TrimSpace(os.Getenv(catalogEnv)); path != "" {
		return os.ReadFile(path)
	}
	return catalogFS.ReadFile("catalog.yaml")
}

func (c *Catalog) validate() error {
	if strings.TrimSpace(c.Name) != "routineflow" {
		return fmt.Errorf("unexpected catalog: %s", c.Name)
	}
	for _, p := range []types.Plan{types.PlanFree, types.PlanPro, types.PlanAnnual} {
		if _, ok := c.Plans[string(p)]; !ok {
			return fmt.Errorf("missing plan: %s", p)
		}
	}
	if len(c.Levels) == 0 {
		return errors.New("no levels defined")
	}
	if c.Levels[0].MinPoints != 0 {
		return errors.New("first level must start at 0 points")
	}
	if !sort.SliceIsSorted(c.Levels, func(i, j int) bool { return c.Levels[i].MinPoints < c.Levels[j].MinPoints }) {
		return errors.New("levels must be in ascending order")
	}
	if strings.TrimSpace(c.Generation.SystemPrompt) == "" || strings.TrimSpace(c.Generation.UserPrompt) == "" {
		return errors.New("generation prompts are required")
	}
	if c.Streak.DefaultMinimumPercentage <= 0 || c.Streak.DefaultMinimumPercentage > 100 {
		return fmt.Errorf("invalid streak minimum: %d", c.Streak.DefaultMinimumPercentage)
	}
	return nil
}

func (c *Catalog) compile() error {
	tpl, err := template.New("user_prompt").Option("missingkey=error").Parse(c.Generation.UserPrompt)
	if err != nil {
		return fmt.Errorf("user prompt: %w", err)
	}
	c.userPrompt = tpl
	if c.Messages == nil {
		c.Messages = map[string]string{}
	}
	return nil
}

// AdjustmentLimit returns the monthly adjustment cap for plan, or Unlimited.
func (c *Catalog) AdjustmentLimit(plan types.Plan) int {
	l := c.limits(plan)
	if l.Unlimited {
		return Unlimited
	}
	return l.AdjustmentsPerMonth
}

// GenerationLimit returns the monthly cap on distinct generated weeks for plan, or Unlimited.
func (c *Catalog) GenerationLimit(plan types.Plan) int {
	l := c.limits(plan)
	if l.Unlimited {
		return Unlimited
	}
	return l.GenerationsPerMonth
}

func (c *Catalog) limits(plan types.Plan) PlanLimits {
	if l, ok := c.Plans[string(plan)]; ok {
		return l
	}
	return c.Plans[string(types.PlanFree)]
}

// LevelFor returns the highest level whose threshold is at or below points, and the next one if any.
func (c *Catalog) LevelFor(points int) (Level, *Level) {
	current := c.Levels[0]
	var next *Level
	for i := range c.Levels {
		if points >= c.Levels[i].MinPoints {
			current = c.Levels[i]
			next = nil
			if i+1 < len(c.Levels) {
				n := c.Levels[i+1]
				next = &n
			}
		}
	}
	return current, next
}

// ProgressToNext is the rounded percentage from the current level threshold to the next, capped at 100.
func (c *Catalog) ProgressToNext(points int) int {
	current, next := c.LevelFor(points)
	if next == nil {
		return 100
	}
	span := next.MinPoints - current.MinPoints
	if span <= 0 {
		return 100
	}
	pct := int(float64(points-current.MinPoints)/float64(span)*100 + 0.5)
	if pct > 100 {
		return 100
	}
	return pct
}

// Message returns the user-facing text for key, or def when the catalog has none.
func (c *Catalog) Message(key, def string) string {
	if v := strings.TrimSpace(c.Messages[key]); v != "" {
		return v
	}
	return def
}

type promptInput struct {
	WakeTime         string
	SleepTime        string
	WorkHours        string
	EnergyPeak       string
	FocusDuration    int
	MainGoals        string
	Priorities       string
	FixedCommitments string
}

// UserPrompt renders the generation prompt for a saved questionnaire.
func (c *Catalog) UserPrompt(q *types.QuestionnaireResponse) (string, error) {
	if q == nil {
		return "", errors.New("missing questionnaire")
	}
	in := promptInput{
		WakeTime:         q.WakeTime,
		SleepTime:        q.SleepTime,
		WorkHours:        q.WorkHours,
		EnergyPeak:       q.EnergyPeak,
		FocusDuration:    q.FocusDuration,
		MainGoals:        compactJSON(q.MainGoals),
		Priorities:       compactJSON(q.Priorities),
		FixedCommitments: compactJSON(q.FixedCommitments),
	}
	var buf bytes.Buffer
	if err := c.userPrompt.Execute(&buf, in); err != nil {
		return "", err
	}
	return strings.TrimSpace(buf.String()), nil
}

func compactJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil || string(b) == "null" {
		return "[]"
	}
	return string(b)
}
