package server

import (
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/hashicorp/hcl/v2/hclsimple"
	log "github.com/sirupsen/logrus"
	"github.com/zucenko/hexrace/model"
)

const (
	DefaultPort      = "8080"
	DefaultRings     = 4
	DefaultGridSide  = 7
	DefaultRollDelay = 600 * time.Millisecond
	DefaultTick      = 20 * time.Millisecond

	DefaultMaxAdhoc    = 32
	DefaultIdleTimeout = 5 * time.Minute
)

type JumpConfig struct {
	From int `hcl:"from"`
	To   int `hcl:"to"`
}

// TableConfig is one `table "name" { ... }` block of the table file.
type TableConfig struct {
	Name        string       `hcl:"name,label"`
	Variant     string       `hcl:"variant,optional"`
	Rings       int          `hcl:"rings,optional"`
	Rows        int          `hcl:"rows,optional"`
	Cols        int          `hcl:"cols,optional"`
	RollDelay   string       `hcl:"roll_delay,optional"`
	Capture     *bool        `hcl:"capture,optional"`
	AutoConfirm *bool        `hcl:"auto_confirm,optional"`
	WinDie      *int         `hcl:"win_die,optional"`
	Starts      []int        `hcl:"starts,optional"`
	NoJumps     bool         `hcl:"no_jumps,optional"`
	Jumps       []JumpConfig `hcl:"jump,block"`

	// Adhoc marks tables created on demand rather than read from the file.
	Adhoc bool
}

type tableFile struct {
	AllowAdhoc  *bool         `hcl:"allow_adhoc,optional"`
	MaxAdhoc    *int          `hcl:"max_adhoc,optional"`
	IdleTimeout string        `hcl:"idle_timeout,optional"`
	Tables      []TableConfig `hcl:"table,block"`
}

type Config struct {
	Port       string
	LogLevel   log.Level
	AllowAdhoc bool
	// MaxAdhoc caps live ad-hoc tables, zero means no cap.
	MaxAdhoc int
	// IdleTimeout closes ad-hoc tables left without viewers, zero keeps them.
	IdleTimeout time.Duration
	Tables      map[string]TableConfig
}

// LoadConfig reads PORT, LOG_LEVEL and the optional TABLE_CONFIG file.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Port:       os.Getenv("PORT"),
		LogLevel:   log.InfoLevel,
		AllowAdhoc:  true,
		MaxAdhoc:    DefaultMaxAdhoc,
		IdleTimeout: DefaultIdleTimeout,
		Tables:      make(map[string]TableConfig),
	}
	if cfg.Port == "" {
		cfg.Port = DefaultPort
		log.Printf("Defaulting to port %s", cfg.Port)
	}
	if lvl := os.Getenv("LOG_LEVEL"); lvl != "" {
		parsed, err := log.ParseLevel(lvl)
		if err != nil {
			return nil, fmt.Errorf("LOG_LEVEL: %w", err)
		}
		cfg.LogLevel = parsed
	}
	if path := os.Getenv("TABLE_CONFIG"); path != "" {
		if err := cfg.LoadTables(path); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

func (c *Config) LoadTables(path string) error {
	var file tableFile
	if err := hclsimple.DecodeFile(path, nil, &file); err != nil {
		return fmt.Errorf("failed to decode table file %s: %w", path, err)
	}
	if file.AllowAdhoc != nil {
		c.AllowAdhoc = *file.AllowAdhoc
	}
	if file.MaxAdhoc != nil {
		if *file.MaxAdhoc < 0 {
			return fmt.Errorf("table file %s: max_adhoc must not be negative", path)
		}
		c.MaxAdhoc = *file.MaxAdhoc
	}
	if file.IdleTimeout != "" {
		d, err := time.ParseDuration(file.IdleTimeout)
		if err != nil {
			return fmt.Errorf("table file %s idle_timeout: %w", path, err)
		}
		c.IdleTimeout = d
	}
	for _, tc := range file.Tables {
		if _, dup := c.Tables[tc.Name]; dup {
			return fmt.Errorf("table file %s: duplicate table %q", path, tc.Name)
		}
		c.Tables[tc.Name] = tc
	}
	log.WithFields(log.Fields{"path": path, "tables": len(file.Tables)}).Info("table file loaded")
	return nil
}

// Table returns the configuration of a named table, falling back to the
// default shape for unknown names when ad-hoc tables are allowed.
func (c *Config) Table(name string) (TableConfig, bool) {
	if tc, ok := c.Tables[name]; ok {
		return tc.withDefaults(), true
	}
	if !c.AllowAdhoc {
		return TableConfig{}, false
	}
	return TableConfig{Name: name, Adhoc: true}.withDefaults(), true
}

func (tc TableConfig) withDefaults() TableConfig {
	if tc.Variant == "" {
		tc.Variant = string(model.VariantNestedRing)
	}
	if tc.Rings == 0 {
		tc.Rings = DefaultRings
	}
	if tc.Rows == 0 {
		tc.Rows = DefaultGridSide
	}
	if tc.Cols == 0 {
		tc.Cols = DefaultGridSide
	}
	return tc
}

func (tc TableConfig) Shape() model.Shape {
	shape := model.Shape{
		Variant: model.Variant(tc.Variant),
		Rings:   tc.Rings,
		Rows:    tc.Rows,
		Cols:    tc.Cols,
	}
	if tc.NoJumps || len(tc.Jumps) > 0 {
		shape.Jumps = make(map[model.CellID]model.CellID, len(tc.Jumps))
		for _, j := range tc.Jumps {
			shape.Jumps[model.CellID(j.From)] = model.CellID(j.To)
		}
	}
	for _, s := range tc.Starts {
		shape.Starts = append(shape.Starts, model.CellID(s))
	}
	return shape
}

func (tc TableConfig) Rules() Rules {
	rules := RulesFor(model.Variant(tc.Variant))
	if tc.Capture != nil {
		rules.Capture = *tc.Capture
	}
	if tc.AutoConfirm != nil {
		rules.AutoConfirm = *tc.AutoConfirm
	}
	if tc.WinDie != nil {
		rules.WinDie = *tc.WinDie
	}
	return rules
}

func (tc TableConfig) Delay() (time.Duration, error) {
	if tc.RollDelay == "" {
		return DefaultRollDelay, nil
	}
	d, err := time.ParseDuration(tc.RollDelay)
	if err != nil {
		return 0, fmt.Errorf("table %q roll_delay: %w", tc.Name, err)
	}
	return d, nil
}

// NewGameSession builds the board and engine of a table.
func NewGameSession(tc TableConfig) (*GameSession, error) {
	board, err := model.Build(tc.Shape())
	if err != nil {
		return nil, fmt.Errorf("table %q: %w", tc.Name, err)
	}
	delay, err := tc.Delay()
	if err != nil {
		return nil, err
	}
	engine := NewEngine(board, tc.Rules(), rand.New(rand.NewSource(time.Now().UnixNano())))
	clock := NewClock()
	engine.SetDelay(clock, delay)
	gs := &GameSession{
		State:                 GS_NEW,
		Table:                 tc.Name,
		Adhoc:                 tc.Adhoc,
		Engine:                engine,
		Clock:                 clock,
		Tick:                  DefaultTick,
		ViewerSessions:        make([]*ViewerSession, 0),
		Errors:                make(chan int32),
		Events:                make(chan ViewerEvent, 10),
		ViewerConnectRequests: make(chan ViewerConnectRequest),
	}
	engine.Subscribe(RendererFunc(gs.broadcast))
	gs.updateInfo()
	return gs, nil
}
