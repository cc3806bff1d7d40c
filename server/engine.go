package server

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/zucenko/hexrace/model"
)

var (
	ErrInvalidState = errors.New("action not allowed in current state")
	ErrIllegalMove  = errors.New("roll has no legal target")
	ErrNoTarget     = errors.New("no pending target")
)

type EngineState int

const (
	ES_IDLE EngineState = iota
	ES_AWAIT_ROLL
	ES_ROLLING
	ES_AWAIT_CONFIRM
	ES_OVER
)

// Rules selects the per-variant movement and win rules.
type Rules struct {
	Capture bool
	// WinDie, when set, is the only die value that may land on the center.
	WinDie       int
	ReverseRing  bool
	HomeToCenter bool
	AutoConfirm  bool
}

func RulesFor(v model.Variant) Rules {
	switch v {
	case model.VariantRing:
		return Rules{Capture: true, WinDie: 1}
	case model.VariantGridLoop:
		return Rules{Capture: true, HomeToCenter: true, AutoConfirm: true}
	case model.VariantNestedRing:
		return Rules{ReverseRing: true}
	default:
		return Rules{}
	}
}

type Random interface {
	Intn(n int) int
}

type Scheduler interface {
	After(d time.Duration, f func())
}

type Renderer interface {
	StateChanged(model.StateChange)
}

type RendererFunc func(model.StateChange)

func (f RendererFunc) StateChanged(sc model.StateChange) { f(sc) }

type resolution struct {
	die    int
	target model.CellID
	ok     bool
}

// Engine owns the game state of one table. It is not safe for concurrent
// use; all calls must come from the goroutine owning the table.
type Engine struct {
	Board   *model.Board
	Rules   Rules
	Players [2]*model.Player
	State   EngineState
	Game    model.GameState
	GameID  string

	rnd       Random
	clock     Scheduler
	delay     time.Duration
	pending   *resolution
	gen       int
	renderers []Renderer
	log       *log.Entry
}

func NewEngine(board *model.Board, rules Rules, rnd Random) *Engine {
	e := &Engine{
		Board: board,
		Rules: rules,
		Players: [2]*model.Player{
			{Id: 1, Color: "red"},
			{Id: 2, Color: "blue"},
		},
		State: ES_IDLE,
		rnd:   rnd,
		log:   log.WithField("variant", board.Variant),
	}
	e.placePlayers()
	return e
}

// SetDelay makes every roll wait d on clock before it is applied.
func (e *Engine) SetDelay(clock Scheduler, d time.Duration) {
	e.clock = clock
	e.delay = d
}

func (e *Engine) Subscribe(r Renderer) {
	e.renderers = append(e.renderers, r)
}

func (e *Engine) Current() *model.Player {
	return e.Players[e.Game.Current]
}

func (e *Engine) opponent() *model.Player {
	return e.Players[1-e.Game.Current]
}

func (e *Engine) placePlayers() {
	for i, p := range e.Players {
		start := e.Board.Starts[i]
		p.Start = start
		p.Position = start
		p.Anchor = start
		p.Ring = e.Board.Graph.RingOf(start)
	}
}

func (e *Engine) Start() error {
	if e.State != ES_IDLE && e.State != ES_OVER {
		return fmt.Errorf("%w: start in %s", ErrInvalidState, e.State.Name())
	}
	e.Reset()
	return nil
}

// Reset starts a fresh game from any state. A roll still waiting on the
// clock is dropped.
func (e *Engine) Reset() {
	e.gen++
	e.pending = nil
	e.placePlayers()
	e.Game = model.GameState{
		Current: e.rnd.Intn(2),
		Started: true,
	}
	e.GameID = uuid.New().String()
	e.State = ES_AWAIT_ROLL
	e.log = e.log.WithField("game", e.GameID)
	e.log.WithField("player", e.Current().Id).Info("game reset")
	e.notify(model.EventReset, nil)
}

func (e *Engine) Roll() error {
	if e.State != ES_AWAIT_ROLL {
		return fmt.Errorf("%w: roll in %s", ErrInvalidState, e.State.Name())
	}
	die := e.rnd.Intn(6) + 1
	res := e.resolve(e.Current(), die)
	if e.clock == nil || e.delay <= 0 {
		return e.apply(res)
	}
	e.State = ES_ROLLING
	gen := e.gen
	e.clock.After(e.delay, func() {
		if gen != e.gen || e.State != ES_ROLLING {
			return
		}
		if err := e.apply(res); err != nil {
			e.log.WithError(err).Debug("delayed roll")
		}
	})
	e.notify(model.EventRolling, nil)
	return nil
}

func (e *Engine) resolve(p *model.Player, die int) resolution {
	g := e.Board.Graph
	target, ok := g.Advance(p.Position, die)
	if !ok {
		return resolution{die: die}
	}
	if e.Rules.ReverseRing && target == p.Anchor {
		if inward, found := g.Inward(p.Ring); found {
			target = inward
		}
	}
	if e.Rules.HomeToCenter && target == p.Start {
		target = e.Board.Center
	}
	if target == e.Board.Center && e.Rules.WinDie != 0 && die != e.Rules.WinDie {
		return resolution{die: die}
	}
	return resolution{die: die, target: target, ok: true}
}

func (e *Engine) apply(res resolution) error {
	if !res.ok {
		e.Game.Die = 0
		e.State = ES_AWAIT_ROLL
		e.log.WithFields(log.Fields{"player": e.Current().Id, "die": res.die}).Debug("roll discarded")
		e.notify(model.EventDiscarded, nil)
		return fmt.Errorf("%w: player %d rolled %d from %d", ErrIllegalMove, e.Current().Id, res.die, e.Current().Position)
	}
	e.Game.Die = res.die
	target := res.target
	e.Game.Target = &target
	e.pending = &res
	e.State = ES_AWAIT_CONFIRM
	if e.Rules.AutoConfirm {
		return e.Confirm()
	}
	e.notify(model.EventRolled, nil)
	return nil
}

func (e *Engine) Confirm() error {
	if e.State != ES_AWAIT_CONFIRM {
		return fmt.Errorf("%w: confirm in %s", ErrInvalidState, e.State.Name())
	}
	if e.pending == nil || e.Game.Target == nil {
		return ErrNoTarget
	}
	g := e.Board.Graph
	p, opp := e.Current(), e.opponent()
	target := e.pending.target
	e.pending = nil
	e.Game.Target = nil

	var captured *int32
	if e.Rules.Capture && target != e.Board.Center && opp.Position == target {
		opp.Position = opp.Start
		opp.Anchor = opp.Start
		opp.Ring = g.RingOf(opp.Start)
		id := opp.Id
		captured = &id
		e.log.WithFields(log.Fields{"player": p.Id, "captured": opp.Id, "cell": target}).Info("capture")
	}

	from := p.Position
	p.Position = target
	if ring := g.RingOf(target); ring != p.Ring {
		p.Ring = ring
		p.Anchor = target
	}
	e.log.WithFields(log.Fields{"player": p.Id, "from": from, "to": target, "die": e.Game.Die}).Debug("move")

	if target == e.Board.Center && (e.Rules.WinDie == 0 || e.Game.Die == e.Rules.WinDie) {
		winner := p.Id
		e.Game.Winner = &winner
		e.State = ES_OVER
		e.log.WithField("player", p.Id).Info("game won")
		e.notify(model.EventWon, captured)
		return nil
	}

	e.Game.Die = 0
	e.Game.Current = 1 - e.Game.Current
	e.State = ES_AWAIT_ROLL
	e.notify(model.EventMoved, captured)
	return nil
}

func (e *Engine) Snapshot() model.StateChange {
	positions := make(map[int32]model.CellID, len(e.Players))
	for _, p := range e.Players {
		positions[p.Id] = p.Position
	}
	highlighted := make([]model.CellID, 0, 1)
	if e.Game.Target != nil {
		highlighted = append(highlighted, *e.Game.Target)
	}
	return model.StateChange{
		GameID:           e.GameID,
		ActivePlayer:     e.Current().Id,
		DieValue:         e.Game.Die,
		PlayerPositions:  positions,
		HighlightedCells: highlighted,
		GameOver:         e.State == ES_OVER,
		Winner:           e.Game.Winner,
	}
}

func (e *Engine) notify(ev model.Event, captured *int32) {
	sc := e.Snapshot()
	sc.Event = ev
	sc.Captured = captured
	for _, r := range e.renderers {
		r.StateChanged(sc)
	}
}
