package server

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/zucenko/hexrace/model"
)

type GameServer struct {
	GameSessions  map[string]*GameSession
	GameRequests  chan GameRequest
	TableRequests chan chan []TableInfo
	Reaps         chan *GameSession
	Upgrader      *websocket.Upgrader
	Config        *Config
}

type GameSessionState int

const (
	GS_NEW GameSessionState = iota
	GS_WAIT
	GS_PLAY
	GS_OVER
)

// GameSession hosts one table. Its Loop goroutine is the only code that
// touches the engine.
type GameSession struct {
	State                 GameSessionState
	Table                 string
	Adhoc                 bool
	Engine                *Engine
	Clock                 *Clock
	Tick                  time.Duration
	ViewerSessions        []*ViewerSession
	Errors                chan int32
	Events                chan ViewerEvent
	ViewerConnectRequests chan ViewerConnectRequest

	// IdleTimeout and Reaps are set for ad-hoc tables only.
	IdleTimeout time.Duration
	Reaps       chan<- *GameSession

	nextViewer int32
	cancel     context.CancelFunc
	infoMu     sync.Mutex
	info       TableInfo
}

type ViewerSessionState int

const (
	VS_PLAY ViewerSessionState = iota + 1
	VS_ERR
)

// ViewerSession is one websocket attached to a table. Viewers render the
// shared board and may submit actions for whoever is on turn.
type ViewerSession struct {
	State       ViewerSessionState
	Id          int32
	GameSession *GameSession
	Conn        *websocket.Conn
	GameOver    chan struct{}
	done        chan struct{}

	MessagesToSend chan model.ServerMessage

	DebugInMessages  int
	DebugOutMessages int
	DebugLastMessage time.Time
	DebugLastPing    time.Time
	DebugPings       int
}

type TableInfo struct {
	Table   string `json:"table"`
	State   string `json:"state"`
	GameID  string `json:"game_id,omitempty"`
	Variant string `json:"variant"`
	Viewers int    `json:"viewers"`
	Winner  *int32 `json:"winner,omitempty"`
}
