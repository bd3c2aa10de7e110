package ws

import (
	"errors"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	socketio "github.com/googollee/go-socket.io"
	"github.com/rs/zerolog/log"

	"github.com/blankslate-party/blankslate/internal/catalog"
	"github.com/blankslate-party/blankslate/internal/config"
	"github.com/blankslate-party/blankslate/internal/game"
	"github.com/blankslate-party/blankslate/internal/room"
)

// ConnCtx is the per-connection state: which room the socket sits in and
// which stable player it speaks for.
type ConnCtx struct {
	RoomID   string
	PlayerID string
}

type Server struct {
	Rooms *room.Registry
	cat   *catalog.Catalog
	cfg   config.Config

	mu      sync.Mutex
	members map[string]map[string]socketio.Conn // roomID -> socketID -> Conn
}

func New(rooms *room.Registry, cat *catalog.Catalog, cfg config.Config) *Server {
	return &Server{Rooms: rooms, cat: cat, cfg: cfg, members: make(map[string]map[string]socketio.Conn)}
}

// Mount attaches the Socket.IO server with all game handlers to the given
// Gin engine.
func (srv *Server) Mount(r *gin.Engine) *socketio.Server {
	io := socketio.NewServer(nil)

	io.OnConnect("/", func(s socketio.Conn) error {
		s.SetContext(&ConnCtx{})
		log.Info().Str("sid", s.ID()).Msg("socket connected")
		return nil
	})

	io.OnEvent("/", "listRooms", func(s socketio.Conn) map[string]any {
		return map[string]any{"rooms": srv.Rooms.Summaries()}
	})

	io.OnEvent("/", "createRoom", func(s socketio.Conn, payload struct {
		PlayerID string        `json:"playerId"`
		Name     string        `json:"name"`
		Settings room.Settings `json:"settings"`
	}) map[string]any {
		if payload.Settings.Type == "" {
			payload.Settings.Type = game.ModeChat
		}
		rm := srv.Rooms.Create(s.ID(), payload.PlayerID, payload.Name, payload.Settings)
		s.SetContext(&ConnCtx{RoomID: rm.ID, PlayerID: payload.PlayerID})
		s.Join(rm.ID)
		srv.addMember(rm.ID, s)
		log.Info().Str("sid", s.ID()).Str("room", rm.ID).Msg("createRoom")
		srv.broadcastRoomList(io)
		return map[string]any{"room": rm.Snapshot()}
	})

	io.OnEvent("/", "joinRoom", func(s socketio.Conn, payload struct {
		RoomID   string `json:"roomId"`
		PlayerID string `json:"playerId"`
		Name     string `json:"name"`
	}) map[string]any {
		rm, err := srv.Rooms.Get(payload.RoomID)
		if err != nil {
			return srv.err(s, "room_not_found", "Room not found")
		}
		p, err := rm.Join(s.ID(), payload.PlayerID, payload.Name)
		if err != nil {
			return srv.err(s, "join_rejected", err.Error())
		}
		s.SetContext(&ConnCtx{RoomID: rm.ID, PlayerID: p.PlayerID})
		s.Join(rm.ID)
		srv.addMember(rm.ID, s)
		log.Info().Str("sid", s.ID()).Str("room", rm.ID).Str("playerId", p.PlayerID).Msg("joinRoom")

		io.BroadcastToRoom("/", rm.ID, "roomData", rm.Snapshot())
		srv.broadcastRoomList(io)

		// A reconnecting player mid-game gets the current state and their hand back.
		if sess, err := rm.GetSession(); err == nil {
			s.Emit("gameDataUpdated", sess.PublicView(rm.ActivePlayers()))
			s.Emit("handUpdated", sess.Hand(p.PlayerID))
		}
		return map[string]any{"room": rm.Snapshot()}
	})

	io.OnEvent("/", "leaveRoom", func(s socketio.Conn) map[string]any {
		ctx := s.Context().(*ConnCtx)
		rm, err := srv.Rooms.Get(ctx.RoomID)
		if err != nil {
			return map[string]any{"ok": true}
		}
		_, _, anyLeft := rm.Leave(s.ID())
		s.Leave(rm.ID)
		srv.removeMember(rm.ID, s)
		s.SetContext(&ConnCtx{})
		if !anyLeft {
			srv.Rooms.Remove(rm.ID)
		} else {
			// Leaving mid-game must unstall the round just like a dropped
			// connection does.
			if view, ok := srv.settleDeparture(rm); ok {
				io.BroadcastToRoom("/", rm.ID, "gameDataUpdated", view)
			}
			io.BroadcastToRoom("/", rm.ID, "roomData", rm.Snapshot())
		}
		srv.broadcastRoomList(io)
		return map[string]any{"ok": true}
	})

	io.OnEvent("/", "updateSettings", func(s socketio.Conn, payload struct {
		Settings room.Settings `json:"settings"`
	}) map[string]any {
		ctx := s.Context().(*ConnCtx)
		rm, err := srv.Rooms.Get(ctx.RoomID)
		if err != nil {
			return srv.err(s, "room_not_found", "Room not found")
		}
		if !rm.IsHost(s.ID()) {
			return map[string]any{"ok": false}
		}
		if err := rm.UpdateSettings(payload.Settings); err != nil {
			return map[string]any{"ok": false}
		}
		io.BroadcastToRoom("/", rm.ID, "roomData", rm.Snapshot())
		srv.broadcastRoomList(io)
		return map[string]any{"ok": true}
	})

	io.OnEvent("/", "contributeTheme", func(s socketio.Conn, payload struct {
		Name        string   `json:"name"`
		JudgeCards  []string `json:"judgeCards"`
		FillerCards []string `json:"fillerCards"`
	}) map[string]any {
		ctx := s.Context().(*ConnCtx)
		rm, err := srv.Rooms.Get(ctx.RoomID)
		if err != nil {
			return srv.err(s, "room_not_found", "Room not found")
		}
		rm.Contribute(catalog.Contributed{
			Name:          payload.Name,
			ContributorID: ctx.PlayerID,
			JudgeCards:    payload.JudgeCards,
			FillerCards:   payload.FillerCards,
		})
		log.Info().Str("room", rm.ID).Str("theme", payload.Name).Msg("contributeTheme")
		io.BroadcastToRoom("/", rm.ID, "roomData", rm.Snapshot())
		return map[string]any{"ok": true}
	})

	io.OnEvent("/", "startGame", func(s socketio.Conn) map[string]any {
		ctx := s.Context().(*ConnCtx)
		rm, err := srv.Rooms.Get(ctx.RoomID)
		if err != nil {
			return srv.err(s, "room_not_found", "Room not found")
		}
		if !rm.IsHost(s.ID()) {
			return map[string]any{"ok": false}
		}
		sess, active, err := rm.StartGame(srv.cat)
		if err != nil {
			log.Debug().Str("room", rm.ID).Err(err).Msg("startGame rejected")
			return map[string]any{"ok": false}
		}
		log.Info().Str("room", rm.ID).Int("players", len(active)).Msg("startGame")
		io.BroadcastToRoom("/", rm.ID, "gameStarted", sess.PublicView(active))
		srv.emitHands(rm.ID, sess)
		srv.broadcastRoomList(io)
		return map[string]any{"ok": true}
	})

	io.OnEvent("/", "submitCards", func(s socketio.Conn, payload struct {
		Cards []string `json:"cards"`
	}) map[string]any {
		ctx := s.Context().(*ConnCtx)
		rm, sess, err := srv.session(ctx)
		if err != nil {
			return map[string]any{"ok": false}
		}
		id, err := sess.SubmitCards(ctx.PlayerID, payload.Cards, rm.ActivePlayers())
		if err != nil {
			// Stale or malformed submissions are no-ops (the UI only offers
			// valid actions); log and move on.
			log.Debug().Str("room", rm.ID).Str("playerId", ctx.PlayerID).Err(err).Msg("submitCards rejected")
			return map[string]any{"ok": false}
		}
		s.Emit("submissionAccepted", map[string]any{"submissionId": id})
		s.Emit("handUpdated", sess.Hand(ctx.PlayerID))
		io.BroadcastToRoom("/", rm.ID, "gameDataUpdated", sess.PublicView(rm.ActivePlayers()))
		return map[string]any{"submissionId": id}
	})

	io.OnEvent("/", "submitVote", func(s socketio.Conn, payload struct {
		SubmissionID string `json:"submissionId"`
	}) map[string]any {
		ctx := s.Context().(*ConnCtx)
		rm, sess, err := srv.session(ctx)
		if err != nil {
			return map[string]any{"ok": false}
		}
		prev := sess.GetPhase()
		if err := sess.SubmitVote(ctx.PlayerID, payload.SubmissionID, rm.ActivePlayers()); err != nil {
			if errors.Is(err, game.ErrSelfVote) {
				// The one rejection worth explaining to the player.
				return srv.err(s, "self_vote", "You can't vote for your own submission.")
			}
			log.Debug().Str("room", rm.ID).Str("playerId", ctx.PlayerID).Err(err).Msg("submitVote rejected")
			return map[string]any{"ok": false}
		}
		srv.maybeExport(rm, sess, prev)
		io.BroadcastToRoom("/", rm.ID, "gameDataUpdated", sess.PublicView(rm.ActivePlayers()))
		return map[string]any{"ok": true}
	})

	io.OnEvent("/", "startVoting", func(s socketio.Conn) map[string]any {
		ctx := s.Context().(*ConnCtx)
		rm, sess, err := srv.session(ctx)
		if err != nil {
			return map[string]any{"ok": false}
		}
		active := rm.ActivePlayers()
		if !rm.IsHost(s.ID()) && ctx.PlayerID != sess.PublicView(active).JudgeID {
			return map[string]any{"ok": false}
		}
		if err := sess.StartVoting(); err != nil {
			return map[string]any{"ok": false}
		}
		log.Info().Str("room", rm.ID).Msg("startVoting")
		io.BroadcastToRoom("/", rm.ID, "gameDataUpdated", sess.PublicView(active))
		return map[string]any{"ok": true}
	})

	io.OnEvent("/", "nextRound", func(s socketio.Conn) map[string]any {
		ctx := s.Context().(*ConnCtx)
		rm, sess, err := srv.session(ctx)
		if err != nil {
			return map[string]any{"ok": false}
		}
		if !rm.IsHost(s.ID()) {
			return map[string]any{"ok": false}
		}
		if err := sess.NextRound(rm.ActivePlayers()); err != nil {
			return map[string]any{"ok": false}
		}
		log.Info().Str("room", rm.ID).Msg("nextRound")
		io.BroadcastToRoom("/", rm.ID, "gameDataUpdated", sess.PublicView(rm.ActivePlayers()))
		srv.emitHands(rm.ID, sess)
		return map[string]any{"ok": true}
	})

	io.OnEvent("/", "resetGame", func(s socketio.Conn) map[string]any {
		ctx := s.Context().(*ConnCtx)
		rm, err := srv.Rooms.Get(ctx.RoomID)
		if err != nil {
			return srv.err(s, "room_not_found", "Room not found")
		}
		if !rm.IsHost(s.ID()) {
			return map[string]any{"ok": false}
		}
		rm.Reset()
		log.Info().Str("room", rm.ID).Msg("resetGame")
		io.BroadcastToRoom("/", rm.ID, "gameReset", rm.Snapshot())
		srv.broadcastRoomList(io)
		return map[string]any{"ok": true}
	})

	io.OnError("/", func(s socketio.Conn, e error) {
		log.Error().Str("sid", s.ID()).Err(e).Msg("socket error")
	})

	io.OnDisconnect("/", func(s socketio.Conn, reason string) {
		ctx, ok := s.Context().(*ConnCtx)
		if !ok || ctx.RoomID == "" {
			log.Info().Str("sid", s.ID()).Str("reason", reason).Msg("socket disconnected")
			return
		}
		rm, err := srv.Rooms.Get(ctx.RoomID)
		if err != nil {
			return
		}
		srv.removeMember(rm.ID, s)
		_, _, anyLeft := rm.Disconnect(s.ID())
		log.Info().Str("sid", s.ID()).Str("room", rm.ID).Str("reason", reason).Msg("socket disconnected")
		if !anyLeft {
			srv.Rooms.Remove(rm.ID)
			srv.broadcastRoomList(io)
			return
		}
		if view, ok := srv.settleDeparture(rm); ok {
			io.BroadcastToRoom("/", rm.ID, "gameDataUpdated", view)
		}
		io.BroadcastToRoom("/", rm.ID, "roomData", rm.Snapshot())
		srv.broadcastRoomList(io)
	})

	go func() {
		if err := io.Serve(); err != nil {
			log.Error().Err(err).Msg("socket.io serve")
		}
	}()

	r.GET("/socket.io/*any", gin.WrapH(io))
	r.POST("/socket.io/*any", gin.WrapH(io))
	r.OPTIONS("/socket.io/*any", func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")
		c.Status(http.StatusNoContent)
	})

	return io
}

func (srv *Server) session(ctx *ConnCtx) (*room.Room, *game.Session, error) {
	rm, err := srv.Rooms.Get(ctx.RoomID)
	if err != nil {
		return nil, nil, err
	}
	sess, err := rm.GetSession()
	if err != nil {
		return nil, nil, err
	}
	return rm, sess, nil
}

// settleDeparture re-runs the round's completion checks after a player is
// gone, whether they left on purpose or just dropped, so the remaining
// roster never waits on someone who isn't coming back. Returns the fresh
// public view to broadcast when a session is running.
func (srv *Server) settleDeparture(rm *room.Room) (*game.PublicView, bool) {
	sess, err := rm.GetSession()
	if err != nil {
		return nil, false
	}
	prev := sess.GetPhase()
	sess.HandleDisconnect(rm.ActivePlayers())
	srv.maybeExport(rm, sess, prev)
	return sess.PublicView(rm.ActivePlayers()), true
}

// maybeExport appends the round record when an action just closed a round.
func (srv *Server) maybeExport(rm *room.Room, sess *game.Session, prev game.Phase) {
	if !srv.cfg.ExportEnabled || prev == game.PhaseResults || sess.GetPhase() != game.PhaseResults {
		return
	}
	if err := game.ExportRound(sess, rm.ID, rm.ActivePlayers(), srv.cfg.ExportFile); err != nil {
		log.Error().Err(err).Str("room", rm.ID).Msg("round export failed")
	} else {
		log.Info().Str("room", rm.ID).Str("file", srv.cfg.ExportFile).Msg("round exported")
	}
}

// emitHands delivers each member's private hand to their connection only.
func (srv *Server) emitHands(roomID string, sess *game.Session) {
	srv.mu.Lock()
	conns := make([]socketio.Conn, 0, len(srv.members[roomID]))
	for _, c := range srv.members[roomID] {
		conns = append(conns, c)
	}
	srv.mu.Unlock()
	for _, c := range conns {
		ctx, ok := c.Context().(*ConnCtx)
		if !ok || ctx.PlayerID == "" {
			continue
		}
		c.Emit("handUpdated", sess.Hand(ctx.PlayerID))
	}
}

func (srv *Server) broadcastRoomList(io *socketio.Server) {
	io.BroadcastToNamespace("/", "roomList", map[string]any{"rooms": srv.Rooms.Summaries()})
}

func (srv *Server) addMember(roomID string, c socketio.Conn) {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	if srv.members[roomID] == nil {
		srv.members[roomID] = make(map[string]socketio.Conn)
	}
	srv.members[roomID][c.ID()] = c
}

func (srv *Server) removeMember(roomID string, c socketio.Conn) {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	if m := srv.members[roomID]; m != nil {
		delete(m, c.ID())
		if len(m) == 0 {
			delete(srv.members, roomID)
		}
	}
}

func (srv *Server) err(s socketio.Conn, code, message string) map[string]any {
	s.Emit("error", map[string]any{"code": code, "message": message})
	return map[string]any{"error": message}
}
