package server

import (
	"fmt"

	"github.com/gorilla/websocket"
	"github.com/zucenko/hexrace/model"
)

const HTTP_SUCCESS = 200
const HTTP_BAD_REQUEST = 400
const HTTP_NOT_FOUND = 404
const HTTP_TIMEOUT = 408
const HTTP_SERVER_ERR = 503

type ResponseCode int

const (
	GAME_READY ResponseCode = iota
	GAME_NOT_FOUND
	GAME_INVALIDE
	GAME_FULL
)

func (h ResponseCode) ToHttp() int {
	switch h {
	case GAME_READY:
		return HTTP_SUCCESS
	case GAME_NOT_FOUND:
		return HTTP_NOT_FOUND
	case GAME_INVALIDE:
		return HTTP_BAD_REQUEST
	case GAME_FULL:
		return HTTP_SERVER_ERR
	default:
		panic(h)
	}
}

func (gss GameSessionState) Name() string {
	switch gss {
	case GS_NEW:
		return "GS_NEW"
	case GS_WAIT:
		return "GS_WAIT"
	case GS_PLAY:
		return "GS_PLAY"
	case GS_OVER:
		return "GS_OVER"
	default:
		return fmt.Sprintf("n/a:%d", gss)
	}
}

func (vs ViewerSessionState) Name() string {
	switch vs {
	case VS_PLAY:
		return "PLAY"
	case VS_ERR:
		return "ERR"
	default:
		return "N/A"
	}
}

func (s EngineState) Name() string {
	switch s {
	case ES_IDLE:
		return "IDLE"
	case ES_AWAIT_ROLL:
		return "AWAIT_ROLL"
	case ES_ROLLING:
		return "ROLLING"
	case ES_AWAIT_CONFIRM:
		return "AWAIT_CONFIRM"
	case ES_OVER:
		return "GAME_OVER"
	default:
		return fmt.Sprintf("N/A(%d)", s)
	}
}

type GameContextAwaiting struct {
	ResponseCode ResponseCode
	GameSession  *GameSession
}

type GameRequest struct {
	Table               string
	GameContextAwaiting chan GameContextAwaiting
}

type ViewerConnectRequest struct {
	Con      *websocket.Conn
	GameOver chan struct{}
}

type ViewerEvent struct {
	Viewer int32
	Action model.Action
}
