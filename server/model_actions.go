package server

import (
	"context"
	"encoding/gob"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/matryer/way"
	log "github.com/sirupsen/logrus"
	"github.com/zucenko/hexrace/model"
)

func NewGameServer(cfg *Config) *GameServer {
	return &GameServer{
		GameSessions:  make(map[string]*GameSession),
		GameRequests:  make(chan GameRequest),
		TableRequests: make(chan chan []TableInfo),
		Reaps:         make(chan *GameSession),
		Upgrader:      &websocket.Upgrader{},
		Config:        cfg,
	}
}

func (s *GameServer) HandleHttpCall() http.HandlerFunc {
	timeout := 200 * time.Millisecond
	return func(w http.ResponseWriter, r *http.Request) {
		table := way.Param(r.Context(), "table")
		logger := log.WithField("table", table)
		logger.Debug("HandleHttpCall - connection received")

		gcas := make(chan GameContextAwaiting, 1)
		select {
		case s.GameRequests <- GameRequest{Table: table, GameContextAwaiting: gcas}:
		case <-time.After(timeout):
			logger.Warn("GameRequests TIMEOUTED")
			w.WriteHeader(HTTP_TIMEOUT)
			return
		}

		var gca GameContextAwaiting
		select {
		case gca = <-gcas:
			switch gca.ResponseCode {
			case GAME_NOT_FOUND, GAME_INVALIDE, GAME_FULL:
				logger.Infof("HandleHttpCall refused code:%d", gca.ResponseCode)
				w.WriteHeader(gca.ResponseCode.ToHttp())
				return
			case GAME_READY:
			default:
				logger.Errorf("gca.ResponseCode not expected:%v", gca.ResponseCode)
				w.WriteHeader(HTTP_SERVER_ERR)
				return
			}
		case <-time.After(timeout):
			logger.Warn("HandleHttpCall GameContextAwaiting <- TIMEOUTED")
			w.WriteHeader(HTTP_TIMEOUT)
			return
		}

		con, err := s.Upgrader.Upgrade(w, r, nil)
		if err != nil {
			// Upgrade has already answered the request
			logger.WithError(err).Warn("HandleHttpCall websocket upgrade")
			return
		}
		defer con.Close()

		gameOver := make(chan struct{})
		select {
		case gca.GameSession.ViewerConnectRequests <- ViewerConnectRequest{
			Con:      con,
			GameOver: gameOver}:
		case <-time.After(timeout):
			logger.Warn("ViewerConnectRequests TIMEOUTED")
			return
		}

		logger.Debug("HandleHttpCall waiting for viewer to leave")
		select {
		case <-gameOver:
		case <-r.Context().Done():
		}
	}
}

func (s *GameServer) HandleTables() http.HandlerFunc {
	timeout := 200 * time.Millisecond
	return func(w http.ResponseWriter, r *http.Request) {
		infos := make(chan []TableInfo, 1)
		select {
		case s.TableRequests <- infos:
		case <-time.After(timeout):
			w.WriteHeader(HTTP_TIMEOUT)
			return
		}
		var list []TableInfo
		select {
		case list = <-infos:
		case <-time.After(timeout):
			w.WriteHeader(HTTP_TIMEOUT)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(list); err != nil {
			log.WithError(err).Warn("HandleTables encode")
		}
	}
}

func (s *GameServer) Loop(ctx context.Context) {
	log.Info("GameServer.Loop starting")
	for {
		select {
		case <-ctx.Done():
			log.Info("GameServer.Loop stopped")
			return
		case gameReq := <-s.GameRequests:
			gameReq.GameContextAwaiting <- s.findSession(ctx, gameReq.Table)
		case infos := <-s.TableRequests:
			list := make([]TableInfo, 0, len(s.GameSessions))
			for _, gs := range s.GameSessions {
				list = append(list, gs.Info())
			}
			infos <- list
		case gs := <-s.Reaps:
			if cur, found := s.GameSessions[gs.Table]; found && cur == gs {
				delete(s.GameSessions, gs.Table)
			}
			gs.cancel()
			log.WithField("table", gs.Table).Info("idle GameSession closed")
		}
	}
}

func (s *GameServer) findSession(ctx context.Context, table string) GameContextAwaiting {
	if gs, found := s.GameSessions[table]; found {
		return GameContextAwaiting{ResponseCode: GAME_READY, GameSession: gs}
	}
	tc, found := s.Config.Table(table)
	if !found {
		return GameContextAwaiting{ResponseCode: GAME_NOT_FOUND}
	}
	if tc.Adhoc && s.Config.MaxAdhoc > 0 && s.adhocCount() >= s.Config.MaxAdhoc {
		log.WithFields(log.Fields{"table": table, "max": s.Config.MaxAdhoc}).Warn("ad-hoc table refused")
		return GameContextAwaiting{ResponseCode: GAME_FULL}
	}
	gs, err := NewGameSession(tc)
	if err != nil {
		log.WithError(err).WithField("table", table).Warn("create GameSession")
		return GameContextAwaiting{ResponseCode: GAME_INVALIDE}
	}
	log.WithFields(log.Fields{"table": table, "variant": tc.Variant}).Info("create GameSession")
	if gs.Adhoc {
		gs.IdleTimeout = s.Config.IdleTimeout
		gs.Reaps = s.Reaps
	}
	sctx, cancel := context.WithCancel(ctx)
	gs.cancel = cancel
	go gs.Loop(sctx)
	s.GameSessions[table] = gs
	return GameContextAwaiting{ResponseCode: GAME_READY, GameSession: gs}
}

func (s *GameServer) adhocCount() int {
	n := 0
	for _, gs := range s.GameSessions {
		if gs.Adhoc {
			n++
		}
	}
	return n
}

func (gs *GameSession) Loop(ctx context.Context) {
	logger := log.WithField("table", gs.Table)
	logger.Info("GameSession.Loop start")
	ticker := time.NewTicker(gs.Tick)
	defer ticker.Stop()
	last := time.Now()
	idleSince := last
	reaping := false
	for {
		select {
		case <-ctx.Done():
			for len(gs.ViewerSessions) > 0 {
				gs.dropViewer(gs.ViewerSessions[0].Id)
			}
			logger.Info("GameSession.Loop stopped")
			return
		case vcr := <-gs.ViewerConnectRequests:
			vs := gs.addViewer(vcr.Con, vcr.GameOver)
			vs.MessagesToSend <- gs.MakeSetupMessage()
		case id := <-gs.Errors:
			logger.WithField("viewer", id).Info("viewer left")
			gs.dropViewer(id)
			if len(gs.ViewerSessions) == 0 {
				idleSince = time.Now()
			}
		case ve := <-gs.Events:
			gs.Act(ve)
		case now := <-ticker.C:
			gs.Clock.Update(now.Sub(last))
			last = now
			if !reaping && gs.idle(now.Sub(idleSince)) {
				logger.Debug("GameSession idle, asking to be closed")
				select {
				case gs.Reaps <- gs:
					reaping = true
				case <-ctx.Done():
				}
			}
		}
		gs.updateInfo()
	}
}

func (gs *GameSession) idle(since time.Duration) bool {
	return gs.Reaps != nil && gs.IdleTimeout > 0 && len(gs.ViewerSessions) == 0 && since > gs.IdleTimeout
}

// Act applies a viewer action to the engine. Rejected actions leave the
// engine untouched and are only logged.
func (gs *GameSession) Act(ve ViewerEvent) {
	var err error
	switch ve.Action {
	case model.ActionStart:
		err = gs.Engine.Start()
	case model.ActionRoll:
		err = gs.Engine.Roll()
	case model.ActionConfirm:
		err = gs.Engine.Confirm()
	case model.ActionReset:
		gs.Engine.Reset()
	default:
		log.WithFields(log.Fields{"table": gs.Table, "viewer": ve.Viewer}).Warnf("unknown action %q", ve.Action)
		return
	}
	if err != nil {
		entry := log.WithFields(log.Fields{
			"table":  gs.Table,
			"viewer": ve.Viewer,
			"action": ve.Action,
			"state":  gs.Engine.State.Name(),
		}).WithError(err)
		if errors.Is(err, ErrIllegalMove) {
			entry.Info("roll discarded")
		} else {
			entry.Debug("action rejected")
		}
	}
}

func (gs *GameSession) broadcast(sc model.StateChange) {
	msg := model.ServerMessage{Changes: []model.StateChange{sc}}
	for _, vs := range gs.ViewerSessions {
		select {
		case vs.MessagesToSend <- msg:
		default:
			log.WithFields(log.Fields{"table": gs.Table, "viewer": vs.Id}).Warn("Dropping state change, MessagesToSend FULL")
		}
	}
}

func (gs *GameSession) updateInfo() {
	switch gs.Engine.State {
	case ES_IDLE:
		if len(gs.ViewerSessions) > 0 {
			gs.State = GS_WAIT
		}
	case ES_OVER:
		gs.State = GS_OVER
	default:
		gs.State = GS_PLAY
	}
	info := TableInfo{
		Table:   gs.Table,
		State:   gs.State.Name(),
		GameID:  gs.Engine.GameID,
		Variant: string(gs.Engine.Board.Variant),
		Viewers: len(gs.ViewerSessions),
		Winner:  gs.Engine.Game.Winner,
	}
	gs.infoMu.Lock()
	gs.info = info
	gs.infoMu.Unlock()
}

// Info is safe to call from any goroutine.
func (gs *GameSession) Info() TableInfo {
	gs.infoMu.Lock()
	defer gs.infoMu.Unlock()
	return gs.info
}

func (gs *GameSession) addViewer(
	conn *websocket.Conn,
	gameOver chan struct{},
) *ViewerSession {
	gs.nextViewer++
	vs := &ViewerSession{
		State:          VS_PLAY,
		Id:             gs.nextViewer,
		GameSession:    gs,
		Conn:           conn,
		GameOver:       gameOver,
		done:           make(chan struct{}),
		MessagesToSend: make(chan model.ServerMessage, 10),
	}
	conn.SetPingHandler(
		func(message string) error {
			err := conn.WriteControl(websocket.PongMessage, []byte(message), time.Now().Add(time.Second))
			vs.DebugLastPing = time.Now()
			vs.DebugPings++
			if err == websocket.ErrCloseSent {
				return nil
			} else if e, ok := err.(net.Error); ok && e.Timeout() {
				return nil
			}
			return err
		})
	go vs.LoopChannelRead()
	go vs.LoopChannelWrite()
	gs.ViewerSessions = append(gs.ViewerSessions, vs)
	log.WithFields(log.Fields{"table": gs.Table, "viewer": vs.Id}).Info("viewer attached")
	return vs
}

func (gs *GameSession) dropViewer(id int32) {
	for i, vs := range gs.ViewerSessions {
		if vs.Id != id {
			continue
		}
		vs.State = VS_ERR
		close(vs.done)
		close(vs.GameOver)
		gs.ViewerSessions = append(gs.ViewerSessions[:i], gs.ViewerSessions[i+1:]...)
		log.WithFields(log.Fields{
			"table":  gs.Table,
			"viewer": id,
			"state":  vs.State.Name(),
		}).Debug("viewer dropped")
		return
	}
}

func (gs *GameSession) MakeSetupMessage() model.ServerMessage {
	e := gs.Engine
	players := make(map[int32]model.Player)
	for _, p := range e.Players {
		players[p.Id] = *p
	}
	return model.ServerMessage{
		Setup: []model.BoardSetup{{
			GameID:  e.GameID,
			Table:   gs.Table,
			Variant: e.Board.Variant,
			Path:    e.Board.Path,
			Jumps:   e.Board.Jumps,
			Starts:  e.Board.Starts,
			Center:  e.Board.Center,
			Cells:   e.Board.CellList(),
			Players: players,
		}},
		Changes: []model.StateChange{e.Snapshot()},
	}
}

func (vs *ViewerSession) fail() {
	select {
	case vs.GameSession.Errors <- vs.Id:
	case <-vs.done:
	}
}

func (vs *ViewerSession) LoopChannelRead() {
	logger := log.WithFields(log.Fields{"table": vs.GameSession.Table, "viewer": vs.Id})
	logger.Debug("LoopChannelRead STARTED")
loop:
	for {
		_, r, err := vs.Conn.NextReader()
		if err != nil {
			logger.WithError(err).Debug("LoopChannelRead reading message from Conn")
			vs.fail()
			break loop
		}
		cm := &model.ClientMessage{}
		if err := gob.NewDecoder(r).Decode(cm); err != nil {
			logger.WithError(err).Warn("cant decode")
			vs.fail()
			break loop
		}
		vs.DebugLastMessage = time.Now()
		vs.DebugInMessages++

		select {
		case vs.GameSession.Events <- ViewerEvent{Viewer: vs.Id, Action: cm.Action}:
		case <-vs.done:
			break loop
		default:
			logger.Warn("Dropping action read from socket, GameSession.Events FULL")
		}
	}
	logger.Debug("LoopChannelRead ENDED")
}

// this function only consumes. no worries about full buffer stuck
func (vs *ViewerSession) LoopChannelWrite() {
	logger := log.WithFields(log.Fields{"table": vs.GameSession.Table, "viewer": vs.Id})
	logger.Debug("LoopChannelWrite STARTED")
loop:
	for {
		select {
		case <-vs.done:
			break loop
		case mes := <-vs.MessagesToSend:
			w, err := vs.Conn.NextWriter(websocket.BinaryMessage)
			if err != nil {
				logger.WithError(err).Warn("LoopChannelWrite cant get writer")
				vs.fail()
				break loop
			}
			if err := gob.NewEncoder(w).Encode(mes); err != nil {
				logger.WithError(err).Warn("LoopChannelWrite cant encode")
				vs.fail()
				break loop
			}
			if err := w.Close(); err != nil {
				logger.WithError(err).Warn("LoopChannelWrite cant flush")
				vs.fail()
				break loop
			}
			vs.DebugOutMessages++
		}
	}
	logger.Debug("LoopChannelWrite ENDED")
}
